package interfaces

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// StorageBackendLocation is a parsed archive location such as
// s3://bucket/prefix?region=eu-west-1 or file:///var/lib/deepfake.
type StorageBackendLocation struct {
	Raw    string
	Scheme string // "s3" or "file"
	Host   string // bucket for s3
	Path   string // key prefix for s3, directory for file
	Query  url.Values
	User   *url.Userinfo // optional ACCESS_KEY:SECRET_KEY for s3
}

// NewStorageBackendLocation parses an archive location URI.
func NewStorageBackendLocation(uri string) (StorageBackendLocation, error) {
	parsed, err := url.Parse(uri)
	if err != nil {
		return StorageBackendLocation{}, fmt.Errorf("%w: %v", ErrInvalidLocationURI, err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	switch scheme {
	case "file", "s3":
	default:
		return StorageBackendLocation{}, fmt.Errorf("%w: unsupported storage scheme %q", ErrInvalidLocationURI, parsed.Scheme)
	}

	return StorageBackendLocation{
		Raw:    uri,
		Scheme: scheme,
		Host:   parsed.Host,
		Path:   parsed.Path,
		Query:  parsed.Query(),
		User:   parsed.User,
	}, nil
}

// S3Location builds the location URI for a bucket the way it is configured
// through BUCKET_NAME, region and an optional S3-compatible endpoint.
func S3Location(bucket, region, endpoint string) (StorageBackendLocation, error) {
	if bucket == "" {
		return StorageBackendLocation{}, fmt.Errorf("%w: empty bucket name", ErrInvalidLocationURI)
	}
	q := url.Values{}
	if region != "" {
		q.Set("region", region)
	}
	if endpoint != "" {
		q.Set("endpoint", endpoint)
	}
	u := url.URL{Scheme: "s3", Host: bucket, Path: "/", RawQuery: q.Encode()}
	return NewStorageBackendLocation(u.String())
}

func (loc StorageBackendLocation) String() string {
	return loc.Raw
}

func (loc StorageBackendLocation) IsFile() bool {
	return loc.Scheme == "file"
}

func (loc StorageBackendLocation) IsS3() bool {
	return loc.Scheme == "s3"
}

// Credentials returns the decoded userinfo of the URI, empty when absent.
func (loc StorageBackendLocation) Credentials() (username, password string) {
	if loc.User == nil {
		return "", ""
	}
	password, _ = loc.User.Password()
	return loc.User.Username(), password
}

// GetParam returns a query parameter, empty when absent.
func (loc StorageBackendLocation) GetParam(name string) string {
	return loc.Query.Get(name)
}

var (
	// ErrBackendUnavailable marks an archive backend that rejected a write.
	ErrBackendUnavailable = errors.New("storage backend unavailable")

	// ErrInvalidLocationURI is returned for malformed or unsupported archive and secret locations.
	ErrInvalidLocationURI = errors.New("invalid location URI")
)

// ArchiveBackend provides write-once object storage for archived images.
type ArchiveBackend interface {
	// Store writes data under key with the given content type.
	Store(ctx context.Context, key string, data []byte, contentType string) error

	// Available backs the /readyz check.
	Available(ctx context.Context) bool

	Name() string

	// LocationURI identifies the backend in logs, with credentials masked.
	LocationURI() string
}

// StorageBackendFactory turns parsed locations into archive backends.
type StorageBackendFactory interface {
	StorageBackendFor(location StorageBackendLocation) (ArchiveBackend, error)
}
