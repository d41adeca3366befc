package secrets

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/secretsmanager"
	"github.com/aws/aws-sdk-go/service/secretsmanager/secretsmanageriface"
	"github.com/echefulouis/DeepFake/interfaces"
)

// SecretsManagerProvider reads the detection credential from AWS Secrets Manager.
// The SecretString is used verbatim.
type SecretsManagerProvider struct {
	client   secretsmanageriface.SecretsManagerAPI
	secretID string
	timeout  time.Duration
	log      *slog.Logger
}

// NewSecretsManagerProvider creates a provider for the given secret ARN or name.
// The region embedded in an ARN wins over region.
func NewSecretsManagerProvider(location interfaces.SecretLocation, region string, timeout time.Duration, log *slog.Logger) (*SecretsManagerProvider, error) {
	if location.Region != "" {
		region = location.Region
	}

	cfg := aws.Config{}
	if region != "" {
		cfg.Region = aws.String(region)
	}

	sess, err := session.NewSession(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return NewSecretsManagerProviderWithClient(secretsmanager.New(sess), location.SecretID, timeout, log), nil
}

// NewSecretsManagerProviderWithClient wraps an existing Secrets Manager client.
func NewSecretsManagerProviderWithClient(client secretsmanageriface.SecretsManagerAPI, secretID string, timeout time.Duration, log *slog.Logger) *SecretsManagerProvider {
	if log == nil {
		log = slog.Default()
	}
	return &SecretsManagerProvider{
		client:   client,
		secretID: secretID,
		timeout:  timeout,
		log:      log,
	}
}

// Credential fetches the current secret value.
func (p *SecretsManagerProvider) Credential(ctx context.Context) (string, error) {
	start := time.Now()
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	out, err := p.client.GetSecretValueWithContext(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(p.secretID),
	})
	if err != nil {
		p.log.Error("Failed to fetch secret",
			slog.String("secret_id", p.secretID),
			"err", err,
			slog.Duration("duration", time.Since(start)))
		return "", interfaces.NewDependencyError(interfaces.DependencySecretStore, err)
	}

	value := aws.StringValue(out.SecretString)
	if value == "" {
		return "", interfaces.NewDependencyError(interfaces.DependencySecretStore,
			fmt.Errorf("%w: %s", interfaces.ErrEmptySecret, p.secretID))
	}

	p.log.Debug("Fetched secret",
		slog.String("secret_id", p.secretID),
		slog.Duration("duration", time.Since(start)))

	return value, nil
}

// Invalidate is a no-op, every call reads the secret store.
func (p *SecretsManagerProvider) Invalidate() {}

// Name returns a unique identifier for this provider.
func (p *SecretsManagerProvider) Name() string {
	return "secretsmanager"
}
