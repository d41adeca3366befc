package storage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/echefulouis/DeepFake/interfaces"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeS3 records PutObject calls; every other S3API method panics if used.
type fakeS3 struct {
	s3iface.S3API
	puts    []*s3.PutObjectInput
	bodies  [][]byte
	putErr  error
	headErr error
}

func (f *fakeS3) PutObjectWithContext(ctx aws.Context, in *s3.PutObjectInput, _ ...request.Option) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.puts = append(f.puts, in)
	f.bodies = append(f.bodies, body)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) HeadBucketWithContext(ctx aws.Context, in *s3.HeadBucketInput, _ ...request.Option) (*s3.HeadBucketOutput, error) {
	if f.headErr != nil {
		return nil, f.headErr
	}
	return &s3.HeadBucketOutput{}, nil
}

func TestS3Backend_Store(t *testing.T) {
	client := &fakeS3{}
	backend := NewS3BackendWithClient(client, "deepfake-images", "", "", testLogger())

	err := backend.Store(context.Background(), "raw/abc.jpg", []byte{0xff, 0xd8, 0xff}, ArchiveContentType)
	require.NoError(t, err)

	require.Len(t, client.puts, 1)
	put := client.puts[0]
	assert.Equal(t, "deepfake-images", aws.StringValue(put.Bucket))
	assert.Equal(t, "raw/abc.jpg", aws.StringValue(put.Key))
	assert.Equal(t, "image/jpeg", aws.StringValue(put.ContentType))
	assert.Nil(t, put.ACL)
	assert.Equal(t, []byte{0xff, 0xd8, 0xff}, client.bodies[0])
}

func TestS3Backend_StoreWithPrefix(t *testing.T) {
	client := &fakeS3{}
	backend := NewS3BackendWithClient(client, "bucket", "/tenant-a/", "", testLogger())

	require.NoError(t, backend.Store(context.Background(), "raw/x.jpg", []byte("x"), ArchiveContentType))
	assert.Equal(t, "tenant-a/raw/x.jpg", aws.StringValue(client.puts[0].Key))
	assert.Equal(t, "s3://bucket/tenant-a", backend.LocationURI())
}

func TestS3Backend_Errors(t *testing.T) {
	client := &fakeS3{putErr: errors.New("AccessDenied"), headErr: errors.New("NotFound")}
	backend := NewS3BackendWithClient(client, "bucket", "", "", testLogger())

	err := backend.Store(context.Background(), "raw/x.jpg", []byte("x"), ArchiveContentType)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AccessDenied")
	assert.False(t, backend.Available(context.Background()))
	assert.Equal(t, "s3-bucket", backend.Name())
}

func TestNewS3Backend_RequiresBucket(t *testing.T) {
	_, err := NewS3Backend("", "", "us-east-1", "", "", "", testLogger())
	assert.True(t, errors.Is(err, interfaces.ErrInvalidLocationURI))
}

func TestFileBackend_Store(t *testing.T) {
	dir := t.TempDir()
	backend, err := NewFileBackend(dir, testLogger())
	require.NoError(t, err)
	assert.True(t, backend.Available(context.Background()))

	require.NoError(t, backend.Store(context.Background(), "raw/a.jpg", []byte("image"), ArchiveContentType))

	data, err := os.ReadFile(filepath.Join(dir, "raw", "a.jpg"))
	require.NoError(t, err)
	assert.Equal(t, []byte("image"), data)

	assert.Error(t, backend.Store(context.Background(), "../escape.jpg", []byte("x"), ArchiveContentType))
	assert.Error(t, backend.Store(context.Background(), "", []byte("x"), ArchiveContentType))
}

func TestStorageBackendFactory(t *testing.T) {
	factory := NewStorageBackendFactory(testLogger())

	loc, err := interfaces.S3Location("deepfake-images", "eu-west-1", "http://127.0.0.1:9000")
	require.NoError(t, err)
	backend, err := factory.StorageBackendFor(loc)
	require.NoError(t, err)
	assert.Equal(t, "s3-deepfake-images", backend.Name())
	assert.Contains(t, backend.LocationURI(), "region=eu-west-1")

	dir := t.TempDir()
	loc, err = interfaces.NewStorageBackendLocation("file://" + dir)
	require.NoError(t, err)
	backend, err = factory.StorageBackendFor(loc)
	require.NoError(t, err)
	assert.IsType(t, &FileBackend{}, backend)

	_, err = factory.StorageBackendFor(interfaces.StorageBackendLocation{Scheme: "ipfs"})
	assert.True(t, errors.Is(err, interfaces.ErrInvalidLocationURI))
}

func TestStorageBackendFactory_CreateMirroredBackend(t *testing.T) {
	factory := NewStorageBackendFactory(testLogger())

	first, err := interfaces.NewStorageBackendLocation("file://" + t.TempDir())
	require.NoError(t, err)
	second, err := interfaces.NewStorageBackendLocation("file://" + t.TempDir())
	require.NoError(t, err)

	single, err := factory.CreateMirroredBackend([]interfaces.StorageBackendLocation{first, {Scheme: "ipfs"}})
	require.NoError(t, err)
	assert.IsType(t, &FileBackend{}, single)

	multi, err := factory.CreateMirroredBackend([]interfaces.StorageBackendLocation{first, second})
	require.NoError(t, err)
	assert.IsType(t, &MirroredBackend{}, multi)

	_, err = factory.CreateMirroredBackend(nil)
	assert.Error(t, err)
}

func TestMirroredBackend_Store(t *testing.T) {
	data := []byte("image")
	storeErr := errors.New("store failed")

	tests := []struct {
		name          string
		setupMocks    func() []interfaces.ArchiveBackend
		expectedError bool
	}{
		{
			name: "all backends successful",
			setupMocks: func() []interfaces.ArchiveBackend {
				mock1 := &MockArchiveBackend{BackendName: "mock-A"}
				mock1.On("Store", mock.Anything, "raw/a.jpg", data, ArchiveContentType).Return(nil)

				mock2 := &MockArchiveBackend{BackendName: "mock-B"}
				mock2.On("Store", mock.Anything, "raw/a.jpg", data, ArchiveContentType).Return(nil)

				return []interfaces.ArchiveBackend{mock1, mock2}
			},
		},
		{
			name: "some backends fail",
			setupMocks: func() []interfaces.ArchiveBackend {
				mock1 := &MockArchiveBackend{BackendName: "mock-A"}
				mock1.On("Store", mock.Anything, "raw/a.jpg", data, ArchiveContentType).Return(storeErr)

				mock2 := &MockArchiveBackend{BackendName: "mock-B"}
				mock2.On("Store", mock.Anything, "raw/a.jpg", data, ArchiveContentType).Return(nil)

				return []interfaces.ArchiveBackend{mock1, mock2}
			},
		},
		{
			name: "all backends fail",
			setupMocks: func() []interfaces.ArchiveBackend {
				mock1 := &MockArchiveBackend{BackendName: "mock-A"}
				mock1.On("Store", mock.Anything, "raw/a.jpg", data, ArchiveContentType).Return(storeErr)

				mock2 := &MockArchiveBackend{BackendName: "mock-B"}
				mock2.On("Store", mock.Anything, "raw/a.jpg", data, ArchiveContentType).Return(storeErr)

				return []interfaces.ArchiveBackend{mock1, mock2}
			},
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backends := tt.setupMocks()
			mirrored := NewMirroredBackend(backends, testLogger())

			err := mirrored.Store(context.Background(), "raw/a.jpg", data, ArchiveContentType)
			if tt.expectedError {
				assert.Error(t, err)
				assert.True(t, errors.Is(err, storeErr))
			} else {
				assert.NoError(t, err)
			}

			for _, backend := range backends {
				backend.(*MockArchiveBackend).AssertExpectations(t)
			}
		})
	}
}

var archiveKeyPattern = regexp.MustCompile(`^raw/[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}\.jpg$`)

func TestArchiver_Archive(t *testing.T) {
	backend := &MockArchiveBackend{}
	backend.On("Store", mock.Anything, mock.AnythingOfType("string"), []byte("raw-bytes"), "image/jpeg").Return(nil)

	archiver := NewArchiver(backend, "", testLogger())
	fixed := uuid.MustParse("7d444840-9dc0-41d6-9b2a-0e6f1a3c2b11")
	archiver.newID = func() uuid.UUID { return fixed }

	archived, err := archiver.Archive(context.Background(), []byte("raw-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "raw/7d444840-9dc0-41d6-9b2a-0e6f1a3c2b11.jpg", archived.Key)
	assert.Equal(t, fixed, archived.ID)
	assert.Equal(t, 9, archived.Size)
	backend.AssertCalled(t, "Store", mock.Anything, archived.Key, []byte("raw-bytes"), "image/jpeg")
}

func TestArchiver_ArchiveFailure(t *testing.T) {
	backend := &MockArchiveBackend{BackendName: "s3-bucket"}
	backend.On("Store", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("AccessDenied"))

	_, err := NewArchiver(backend, "raw", testLogger()).Archive(context.Background(), []byte("x"))
	require.Error(t, err)

	var depErr *interfaces.DependencyError
	require.True(t, errors.As(err, &depErr))
	assert.Equal(t, interfaces.DependencyStorage, depErr.Dependency)
	assert.True(t, errors.Is(err, interfaces.ErrDependency))
}

func TestArchiver_KeysAreFreshAndWellFormed(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		backend := &MockArchiveBackend{}
		backend.On("Store", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
		archiver := NewArchiver(backend, "raw", testLogger())

		data := rapid.SliceOf(rapid.Byte()).Draw(t, "data")
		n := rapid.IntRange(2, 20).Draw(t, "uploads")

		seen := make(map[string]struct{}, n)
		for i := 0; i < n; i++ {
			archived, err := archiver.Archive(context.Background(), data)
			if err != nil {
				t.Fatalf("archive: %v", err)
			}
			if !archiveKeyPattern.MatchString(archived.Key) {
				t.Fatalf("malformed key %q", archived.Key)
			}
			if _, dup := seen[archived.Key]; dup {
				t.Fatalf("duplicate key %q", archived.Key)
			}
			seen[archived.Key] = struct{}{}
		}
	})
}

func TestMaskedLocationURI(t *testing.T) {
	uri := maskedLocationURI("deepfake-images", "/raw-archive/", "eu-west-1", "http://127.0.0.1:9000", "AKIAEXAMPLE")

	assert.True(t, strings.HasPrefix(uri, "s3://AKIAEXAMPLE:"))
	assert.Contains(t, uri, "@deepfake-images/raw-archive?")
	assert.Contains(t, uri, "region=eu-west-1")
	assert.Contains(t, uri, "endpoint=http")

	assert.Equal(t, "s3://deepfake-images/?region=us-east-1", maskedLocationURI("deepfake-images", "", "us-east-1", "", ""))
}

func TestStorageBackendFactory_S3EmbeddedCredentialsDecoded(t *testing.T) {
	factory := NewStorageBackendFactory(testLogger())

	loc, err := interfaces.NewStorageBackendLocation("s3://AKIAEXAMPLE:wJalr%2FK7MDENG@deepfake-images/?region=eu-west-1")
	require.NoError(t, err)

	backend, err := factory.StorageBackendFor(loc)
	require.NoError(t, err)

	s3Backend, ok := backend.(*S3Backend)
	require.True(t, ok)
	client, ok := s3Backend.client.(*s3.S3)
	require.True(t, ok)

	creds, err := client.Config.Credentials.Get()
	require.NoError(t, err)
	assert.Equal(t, "AKIAEXAMPLE", creds.AccessKeyID)
	assert.Equal(t, "wJalr/K7MDENG", creds.SecretAccessKey)
	assert.NotContains(t, backend.LocationURI(), "K7MDENG")
}

func TestMirroredBackend_StoreWithoutBucketListing(t *testing.T) {
	forbidden := errors.New("Forbidden: status code 403")
	a := &fakeS3{headErr: forbidden}
	b := &fakeS3{headErr: forbidden}

	mirrored := NewMirroredBackend([]interfaces.ArchiveBackend{
		NewS3BackendWithClient(a, "a", "", "", testLogger()),
		NewS3BackendWithClient(b, "b", "", "", testLogger()),
	}, testLogger())

	require.NoError(t, mirrored.Store(context.Background(), "raw/x.jpg", []byte("x"), ArchiveContentType))
	assert.Len(t, a.puts, 1)
	assert.Len(t, b.puts, 1)
	assert.False(t, mirrored.Available(context.Background()))
}

func TestMirroredBackend_StoreErrorNamesBackend(t *testing.T) {
	failing := &fakeS3{putErr: errors.New("AccessDenied")}
	mirrored := NewMirroredBackend([]interfaces.ArchiveBackend{
		NewS3BackendWithClient(failing, "a", "", "", testLogger()),
	}, testLogger())

	err := mirrored.Store(context.Background(), "raw/x.jpg", []byte("x"), ArchiveContentType)
	require.Error(t, err)
	assert.True(t, errors.Is(err, interfaces.ErrBackendUnavailable))
	assert.Contains(t, err.Error(), "s3-a")
	assert.Contains(t, err.Error(), "AccessDenied")
}
