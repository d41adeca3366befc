package secrets

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/echefulouis/DeepFake/interfaces"
	"github.com/hashicorp/vault/api"
)

// VaultProvider reads the detection credential from a HashiCorp Vault KV v2 mount.
type VaultProvider struct {
	client    *api.Client
	mountPath string
	dataPath  string
	key       string
	timeout   time.Duration
	log       *slog.Logger
}

// NewVaultProvider creates a Vault-backed provider.
// The token is taken from token, or from VAULT_TOKEN when token is empty.
func NewVaultProvider(location interfaces.SecretLocation, token string, timeout time.Duration, log *slog.Logger) (*VaultProvider, error) {
	if log == nil {
		log = slog.Default()
	}

	config := api.DefaultConfig()
	config.Address = location.Address
	config.HttpClient = &http.Client{
		Timeout: 30 * time.Second,
	}

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}
	if token != "" {
		client.SetToken(token)
	}

	return &VaultProvider{
		client:    client,
		mountPath: strings.Trim(location.Mount, "/"),
		dataPath:  strings.Trim(location.Path, "/"),
		key:       location.Key,
		timeout:   timeout,
		log:       log,
	}, nil
}

// Credential reads <mount>/data/<path> and returns the configured field.
func (p *VaultProvider) Credential(ctx context.Context) (string, error) {
	start := time.Now()
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	// Vault KV v2 path structure
	path := fmt.Sprintf("%s/data/%s", p.mountPath, p.dataPath)

	secret, err := p.client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		p.log.Error("Failed to read from Vault",
			slog.String("path", path),
			"err", err)
		return "", interfaces.NewDependencyError(interfaces.DependencySecretStore, err)
	}

	if secret == nil || secret.Data == nil {
		return "", interfaces.NewDependencyError(interfaces.DependencySecretStore,
			fmt.Errorf("%w: nothing stored at %s", interfaces.ErrEmptySecret, path))
	}

	// Extract data from the response (KV v2 format)
	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return "", interfaces.NewDependencyError(interfaces.DependencySecretStore,
			fmt.Errorf("invalid data format in Vault response at %s", path))
	}

	value, _ := data[p.key].(string)
	if value == "" {
		return "", interfaces.NewDependencyError(interfaces.DependencySecretStore,
			fmt.Errorf("%w: field %q at %s", interfaces.ErrEmptySecret, p.key, path))
	}

	p.log.Debug("Fetched secret from Vault",
		slog.String("path", path),
		slog.Duration("duration", time.Since(start)))

	return value, nil
}

// Invalidate is a no-op, every call reads Vault.
func (p *VaultProvider) Invalidate() {}

// Name returns a unique identifier for this provider.
func (p *VaultProvider) Name() string {
	return fmt.Sprintf("vault-%s", p.mountPath)
}
