package secrets

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/echefulouis/DeepFake/interfaces"
)

// ProviderOpts configures NewProvider.
type ProviderOpts struct {
	// Region is used for Secrets Manager when the identifier is not an ARN.
	Region string

	// VaultToken overrides VAULT_TOKEN.
	VaultToken string

	// Timeout bounds each secret fetch.
	Timeout time.Duration

	// CacheTTL enables the in-process credential cache when positive.
	CacheTTL time.Duration
}

// NewProvider builds a credential provider from the configured secret identifier.
func NewProvider(raw string, opts ProviderOpts, log *slog.Logger) (interfaces.CredentialProvider, error) {
	if log == nil {
		log = slog.Default()
	}

	location, err := interfaces.NewSecretLocation(raw)
	if err != nil {
		return nil, err
	}

	var provider interfaces.CredentialProvider
	switch {
	case location.IsVault():
		log.Debug("Creating Vault credential provider", slog.String("address", location.Address))
		provider, err = NewVaultProvider(location, opts.VaultToken, opts.Timeout, log)
	case location.IsSecretsManager():
		log.Debug("Creating Secrets Manager credential provider", slog.String("secret_id", location.SecretID))
		provider, err = NewSecretsManagerProvider(location, opts.Region, opts.Timeout, log)
	default:
		return nil, fmt.Errorf("%w: unsupported secret location %q", interfaces.ErrInvalidLocationURI, raw)
	}
	if err != nil {
		return nil, err
	}

	return NewCachingProvider(provider, opts.CacheTTL, log), nil
}
