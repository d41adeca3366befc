package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/echefulouis/DeepFake/api"
	"github.com/echefulouis/DeepFake/detection"
	"github.com/echefulouis/DeepFake/interfaces"
	"github.com/echefulouis/DeepFake/metrics"
	"github.com/echefulouis/DeepFake/secrets"
	"github.com/echefulouis/DeepFake/storage"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
	"pgregory.net/rapid"
)

var (
	testImage       = []byte{0xff, 0xd8, 0xff, 0xe0, 'J', 'F', 'I', 'F'}
	testImageBase64 = base64.StdEncoding.EncodeToString(testImage)
)

type testEnv struct {
	credentials *secrets.MockCredentialProvider
	detector    *detection.MockDetector
	archiver    *storage.MockImageArchiver
	handler     *UploadHandler
	mux         *chi.Mux
}

func setupTestEnvironment(t *testing.T, cfg api.PipelineConfig) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	env := &testEnv{
		credentials: new(secrets.MockCredentialProvider),
		detector:    new(detection.MockDetector),
		archiver:    new(storage.MockImageArchiver),
	}
	env.handler = NewUploadHandler(env.credentials, env.detector, env.archiver,
		metrics.NewMetrics("test"), nil, cfg, logger)

	env.mux = chi.NewRouter()
	env.handler.RegisterRoutes(env.mux)
	return env
}

func (env *testEnv) post(t *testing.T, body string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	env.mux.ServeHTTP(w, req)
	return w.Result()
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func assertUploadHeaders(t *testing.T, resp *http.Response) {
	t.Helper()
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Content-Type,Authorization,X-Amz-Date,X-Api-Key,X-Amz-Security-Token", resp.Header.Get("Access-Control-Allow-Headers"))
	assert.Equal(t, "OPTIONS,GET", resp.Header.Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}

func uploadBody(image string) string {
	body, _ := json.Marshal(api.UploadRequest{Image: image})
	return string(body)
}

func TestHandleUpload_Success(t *testing.T) {
	env := setupTestEnvironment(t, api.PipelineConfig{ArchiveFailureFatal: true})

	env.credentials.On("Credential", mock.Anything).Return("nvapi-secret", nil)
	env.detector.On("Detect", mock.Anything, testImageBase64, "nvapi-secret").
		Return(interfaces.DetectionResult{"label": "fake", "score": 0.87}, nil)
	env.archiver.On("Archive", mock.Anything, testImage).
		Return(&interfaces.ArchivedImage{Key: "raw/x.jpg", Size: len(testImage)}, nil)

	resp := env.post(t, uploadBody(testImageBase64))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assertUploadHeaders(t, resp)
	assert.Equal(t, `{"message":"Analysis complete","detection_result":{"label":"fake","score":0.87}}`, readBody(t, resp))

	env.archiver.AssertNumberOfCalls(t, "Archive", 1)
	env.credentials.AssertNotCalled(t, "Invalidate")
}

func TestHandleUpload_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		message string
	}{
		{name: "missing image", body: `{}`, message: "No image provided"},
		{name: "empty image", body: `{"image":""}`, message: "No image provided"},
		{name: "null image", body: `{"image":null}`, message: "No image provided"},
		{name: "empty data uri", body: `{"image":"data:image/png;base64,"}`, message: "No image provided"},
		{name: "not base64", body: `{"image":"not*base64!"}`, message: "Invalid image encoding"},
		{name: "malformed json", body: `{"image":`, message: "Invalid request body"},
		{name: "json array", body: `["abc"]`, message: "Invalid request body"},
		{name: "empty body", body: ``, message: "Invalid request body"},
		{name: "image not a string", body: `{"image":42}`, message: "Invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestEnvironment(t, api.PipelineConfig{})

			resp := env.post(t, tt.body)

			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assertUploadHeaders(t, resp)
			assert.JSONEq(t, `{"error":"`+tt.message+`"}`, readBody(t, resp))

			env.credentials.AssertNotCalled(t, "Credential", mock.Anything)
			env.detector.AssertNotCalled(t, "Detect", mock.Anything, mock.Anything, mock.Anything)
			env.archiver.AssertNotCalled(t, "Archive", mock.Anything, mock.Anything)
		})
	}
}

func TestHandleUpload_BodyTooLarge(t *testing.T) {
	env := setupTestEnvironment(t, api.PipelineConfig{MaxBodyBytes: 64})

	resp := env.post(t, uploadBody(strings.Repeat("A", 128)))

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.JSONEq(t, `{"error":"Invalid request body"}`, readBody(t, resp))
	env.credentials.AssertNotCalled(t, "Credential", mock.Anything)
}

func TestHandleUpload_NoImageNeverReachesDependencies(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		env := setupTestEnvironment(t, api.PipelineConfig{})

		fields := rapid.MapOf(
			rapid.StringMatching(`[a-z_]{1,8}`).Filter(func(k string) bool { return k != "image" }),
			rapid.String(),
		).Draw(rt, "fields")
		if rapid.Bool().Draw(rt, "emptyImage") {
			fields["image"] = rapid.SampledFrom([]string{"", "   ", "data:image/jpeg;base64,"}).Draw(rt, "blank")
		}
		body, err := json.Marshal(fields)
		if err != nil {
			rt.Fatalf("marshal: %v", err)
		}

		req := httptest.NewRequest(http.MethodPost, "/upload", bytes.NewReader(body))
		w := httptest.NewRecorder()
		env.mux.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			rt.Fatalf("status %d for %s", w.Code, body)
		}
		if got := w.Body.String(); got != `{"error":"No image provided"}` {
			rt.Fatalf("body %s for %s", got, body)
		}
		if len(env.credentials.Calls)+len(env.detector.Calls)+len(env.archiver.Calls) != 0 {
			rt.Fatalf("dependencies called for %s", body)
		}
	})
}

func TestHandleUpload_DependencyFailures(t *testing.T) {
	leak := "arn:aws:secretsmanager:eu-west-1:123456789012:secret:leaky AccessDeniedException"

	tests := []struct {
		name            string
		setup           func(env *testEnv)
		archiveExpected bool
	}{
		{
			name: "secret store failure",
			setup: func(env *testEnv) {
				env.credentials.On("Credential", mock.Anything).
					Return("", interfaces.NewDependencyError(interfaces.DependencySecretStore, errors.New(leak)))
			},
		},
		{
			name: "detection failure",
			setup: func(env *testEnv) {
				env.credentials.On("Credential", mock.Anything).Return("k", nil)
				env.detector.On("Detect", mock.Anything, mock.Anything, mock.Anything).
					Return(nil, interfaces.NewDependencyError(interfaces.DependencyDetection, errors.New(leak)))
			},
		},
		{
			name: "archive failure",
			setup: func(env *testEnv) {
				env.credentials.On("Credential", mock.Anything).Return("k", nil)
				env.detector.On("Detect", mock.Anything, mock.Anything, mock.Anything).
					Return(interfaces.DetectionResult{"label": "real"}, nil)
				env.archiver.On("Archive", mock.Anything, mock.Anything).
					Return(nil, interfaces.NewDependencyError(interfaces.DependencyStorage, errors.New(leak)))
			},
			archiveExpected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestEnvironment(t, api.PipelineConfig{ArchiveFailureFatal: true})
			tt.setup(env)

			resp := env.post(t, uploadBody(testImageBase64))

			assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
			assertUploadHeaders(t, resp)
			body := readBody(t, resp)
			assert.Equal(t, `{"error":"Analysis failed"}`, body)
			assert.NotContains(t, body, "AccessDenied")

			if !tt.archiveExpected {
				env.archiver.AssertNotCalled(t, "Archive", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestHandleUpload_ArchiveFailureNonFatal(t *testing.T) {
	env := setupTestEnvironment(t, api.PipelineConfig{ArchiveFailureFatal: false})

	env.credentials.On("Credential", mock.Anything).Return("k", nil)
	env.detector.On("Detect", mock.Anything, mock.Anything, mock.Anything).
		Return(interfaces.DetectionResult{"label": "real"}, nil)
	env.archiver.On("Archive", mock.Anything, testImage).
		Return(nil, interfaces.NewDependencyError(interfaces.DependencyStorage, errors.New("SlowDown")))

	resp := env.post(t, uploadBody(testImageBase64))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"message":"Analysis complete","detection_result":{"label":"real"}}`, readBody(t, resp))
}

func TestHandleUpload_ArchiveTimeout(t *testing.T) {
	env := setupTestEnvironment(t, api.PipelineConfig{ArchiveFailureFatal: true, ArchiveTimeout: 20 * time.Millisecond})

	env.credentials.On("Credential", mock.Anything).Return("k", nil)
	env.detector.On("Detect", mock.Anything, mock.Anything, mock.Anything).
		Return(interfaces.DetectionResult{"label": "real"}, nil)
	env.archiver.On("Archive", mock.Anything, testImage).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, interfaces.NewDependencyError(interfaces.DependencyStorage, context.DeadlineExceeded))

	resp := env.post(t, uploadBody(testImageBase64))
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestHandleUpload_CredentialRejectedInvalidatesCache(t *testing.T) {
	env := setupTestEnvironment(t, api.PipelineConfig{ArchiveFailureFatal: true})

	env.credentials.On("Credential", mock.Anything).Return("rotated-away", nil)
	env.credentials.On("Invalidate").Return()
	env.detector.On("Detect", mock.Anything, mock.Anything, "rotated-away").
		Return(nil, interfaces.NewDependencyError(interfaces.DependencyDetection,
			errors.Join(interfaces.ErrCredentialRejected, errors.New("status 401"))))

	resp := env.post(t, uploadBody(testImageBase64))

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	env.credentials.AssertCalled(t, "Invalidate")
	env.archiver.AssertNotCalled(t, "Archive", mock.Anything, mock.Anything)
}

func TestHandleUpload_PanicBecomes500(t *testing.T) {
	env := setupTestEnvironment(t, api.PipelineConfig{})

	env.credentials.On("Credential", mock.Anything).Return("k", nil)
	env.detector.On("Detect", mock.Anything, mock.Anything, mock.Anything).
		Panic("unexpected nil")

	resp := env.post(t, uploadBody(testImageBase64))

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assertUploadHeaders(t, resp)
	assert.Equal(t, `{"error":"Analysis failed"}`, readBody(t, resp))
}

func TestHandleUpload_DataURIPrefix(t *testing.T) {
	env := setupTestEnvironment(t, api.PipelineConfig{ArchiveFailureFatal: true})

	env.credentials.On("Credential", mock.Anything).Return("k", nil)
	env.detector.On("Detect", mock.Anything, testImageBase64, "k").
		Return(interfaces.DetectionResult{}, nil)
	env.archiver.On("Archive", mock.Anything, testImage).
		Return(&interfaces.ArchivedImage{Key: "raw/x.jpg"}, nil)

	resp := env.post(t, uploadBody("data:image/jpeg;base64,"+testImageBase64))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	env.detector.AssertExpectations(t)
	env.archiver.AssertExpectations(t)
}

func TestHandleUpload_RedactsEchoedImageEndToEnd(t *testing.T) {
	nvidia := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"bounding_boxes":[{"is_deepfake":0.93}]}],"image":"ECHO"}`))
	}))
	defer nvidia.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	credentials := new(secrets.MockCredentialProvider)
	credentials.On("Credential", mock.Anything).Return("k", nil)

	archiveDir := t.TempDir()
	backend, err := storage.NewFileBackend(archiveDir, logger)
	require.NoError(t, err)

	handler := NewUploadHandler(
		credentials,
		detection.NewClient(nvidia.URL, time.Second, logger),
		storage.NewArchiver(backend, "raw", logger),
		metrics.NewMetrics("test"),
		nil,
		api.PipelineConfig{ArchiveFailureFatal: true},
		logger,
	)
	mux := chi.NewRouter()
	handler.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(uploadBody(testImageBase64)))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	result := resp["detection_result"].(map[string]any)
	assert.NotContains(t, result, "image")
	assert.Contains(t, result, "data")
}

func TestHandleUpload_ClassifierResultWithRealClientAndArchiver(t *testing.T) {
	var detectCalls atomic.Int32
	classifier := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		detectCalls.Inc()
		assert.Equal(t, "Bearer nvapi-secret", r.Header.Get("Authorization"))

		var req struct {
			Input []string `json:"input"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"data:image/png;base64,aGVsbG8="}, req.Input)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"image": "x", "label": "fake", "score": 0.87}`))
	}))
	defer classifier.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	credentials := new(secrets.MockCredentialProvider)
	credentials.On("Credential", mock.Anything).Return("nvapi-secret", nil)

	backend := &storage.MockArchiveBackend{BackendName: "s3-deepfake-images"}
	backend.On("Store", mock.Anything,
		mock.MatchedBy(func(key string) bool { return archiveKey.MatchString(key) }),
		[]byte("hello"), "image/jpeg").Return(nil).Once()

	handler := NewUploadHandler(
		credentials,
		detection.NewClient(classifier.URL, time.Second, logger),
		storage.NewArchiver(backend, "raw", logger),
		metrics.NewMetrics("test"),
		nil,
		api.PipelineConfig{ArchiveFailureFatal: true},
		logger,
	)
	mux := chi.NewRouter()
	handler.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(`{"image": "aGVsbG8="}`))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	resp := w.Result()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assertUploadHeaders(t, resp)
	assert.Equal(t, `{"message":"Analysis complete","detection_result":{"label":"fake","score":0.87}}`, readBody(t, resp))
	assert.Equal(t, int32(1), detectCalls.Load())
	backend.AssertExpectations(t)
	backend.AssertNumberOfCalls(t, "Store", 1)
}

var archiveKey = regexp.MustCompile(`^raw/[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\.jpg$`)

func TestHandlePreflight(t *testing.T) {
	env := setupTestEnvironment(t, api.PipelineConfig{})

	req := httptest.NewRequest(http.MethodOptions, "/upload", nil)
	req.Header.Set("Origin", "https://deepfake.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	w := httptest.NewRecorder()
	env.mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, http.MethodPost, w.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	assert.Equal(t, "300", w.Header().Get("Access-Control-Max-Age"))
	env.credentials.AssertNotCalled(t, "Credential", mock.Anything)
}
