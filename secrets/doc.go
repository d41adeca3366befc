// Package secrets resolves the bearer credential for the detection service.
//
// The credential is looked up on every upload. Two stores are supported,
// selected from the shape of the configured identifier:
//
//   - AWS Secrets Manager: an ARN or a bare secret name. The SecretString is the credential.
//   - HashiCorp Vault KV v2: vault://host:8200/<mount>/<path>?key=api_key
//
// NewProvider optionally wraps the store in a CachingProvider. Cached values
// expire after the TTL, are dropped on a failed fetch and can be invalidated
// when the detection service rejects the credential.
package secrets
