package interfaces

import (
	"fmt"
	"net/url"
	"strings"
)

// SecretLocation identifies where the detection-service credential lives.
//
// Two forms are accepted:
//   - AWS Secrets Manager: an ARN (arn:aws:secretsmanager:...) or a bare secret name
//   - Vault KV v2: vault://host[:port]/<mount>/<path>?key=<field>&tls=false
type SecretLocation struct {
	Raw    string
	Scheme string // "secretsmanager" or "vault"

	// SecretID is the ARN or name passed to Secrets Manager.
	SecretID string

	// Region is derived from the ARN when present.
	Region string

	// Vault fields.
	Address string
	Mount   string
	Path    string
	Key     string
}

const defaultVaultKey = "api_key"

// NewSecretLocation parses the configured secret identifier.
func NewSecretLocation(raw string) (SecretLocation, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return SecretLocation{}, fmt.Errorf("%w: empty secret identifier", ErrInvalidLocationURI)
	}

	if strings.HasPrefix(strings.ToLower(raw), "vault://") {
		return parseVaultLocation(raw)
	}

	if strings.Contains(raw, "://") {
		return SecretLocation{}, fmt.Errorf("%w: unsupported secret scheme in %q", ErrInvalidLocationURI, raw)
	}

	loc := SecretLocation{Raw: raw, Scheme: "secretsmanager", SecretID: raw}
	if strings.HasPrefix(raw, "arn:") {
		// arn:partition:service:region:account:secret:name
		parts := strings.SplitN(raw, ":", 7)
		if len(parts) < 7 || parts[2] != "secretsmanager" {
			return SecretLocation{}, fmt.Errorf("%w: not a secretsmanager ARN: %q", ErrInvalidLocationURI, raw)
		}
		loc.Region = parts[3]
	}
	return loc, nil
}

func parseVaultLocation(raw string) (SecretLocation, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return SecretLocation{}, fmt.Errorf("%w: %v", ErrInvalidLocationURI, err)
	}
	if u.Host == "" {
		return SecretLocation{}, fmt.Errorf("%w: vault location without host", ErrInvalidLocationURI)
	}

	segments := strings.SplitN(strings.Trim(u.Path, "/"), "/", 2)
	if len(segments) != 2 || segments[0] == "" || segments[1] == "" {
		return SecretLocation{}, fmt.Errorf("%w: expected vault://host/<mount>/<path>", ErrInvalidLocationURI)
	}

	scheme := "https"
	if v := u.Query().Get("tls"); v == "false" || v == "0" {
		scheme = "http"
	}

	key := u.Query().Get("key")
	if key == "" {
		key = defaultVaultKey
	}

	return SecretLocation{
		Raw:     raw,
		Scheme:  "vault",
		Address: fmt.Sprintf("%s://%s", scheme, u.Host),
		Mount:   segments[0],
		Path:    segments[1],
		Key:     key,
	}, nil
}

// IsVault checks if this is a Vault secret location.
func (loc SecretLocation) IsVault() bool {
	return loc.Scheme == "vault"
}

// IsSecretsManager checks if this is an AWS Secrets Manager location.
func (loc SecretLocation) IsSecretsManager() bool {
	return loc.Scheme == "secretsmanager"
}

// String returns the original identifier.
func (loc SecretLocation) String() string {
	return loc.Raw
}
