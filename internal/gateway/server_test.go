package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aurastack/aura/internal/agent"
	"github.com/aurastack/aura/internal/auth/jwt"
	"github.com/aurastack/aura/internal/common/config"
	"github.com/aurastack/aura/internal/file"
	"github.com/aurastack/aura/internal/llm"
	"github.com/aurastack/aura/pkg/metrics"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type scriptedClient struct {
	responses []string
	err       error
}

func (s *scriptedClient) Complete(ctx context.Context, messages []llm.ChatMessage) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if len(s.responses) == 0 {
		return "", errors.New("no scripted response left")
	}
	response := s.responses[0]
	s.responses = s.responses[1:]
	return response, nil
}

type serverOptions struct {
	client   llm.ChatClient
	withAuth bool
	agentURL string
	dbURL    string
}

func newTestServer(t *testing.T, opts serverOptions) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	if opts.client == nil {
		opts.client = &scriptedClient{responses: []string{
			"SELECT 1;",
			`{"is_valid": true, "reason": "ok"}`,
		}}
	}

	cfg := &config.GatewayConfig{
		CORS: config.CORSConfig{AllowOrigins: []string{"*"}},
		Routes: config.RoutesConfig{
			AgentServiceURL:    opts.agentURL,
			DatabaseServiceURL: opts.dbURL,
		},
	}

	var jwtService *jwt.Service
	if opts.withAuth {
		cfg.JWT = config.JWTConfig{
			SecretKey:     testSecret,
			Duration:      time.Hour,
			AdminUsername: "admin",
			AdminPassword: "aura-secret",
		}
		var err error
		jwtService, err = jwt.NewService(cfg.JWT.SecretKey, cfg.JWT.Duration)
		require.NoError(t, err)
	}

	files, err := file.NewService(logger, t.TempDir(), 1)
	require.NoError(t, err)

	orchestrator := agent.NewOrchestrator(logger,
		agent.NewGenerator(logger, opts.client),
		agent.NewCritic(logger, opts.client))

	srv := NewServer(logger, cfg, orchestrator, files, jwtService,
		metrics.New(config.MetricsConfig{Namespace: "aura_test"}))
	return srv.Router()
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	// httptest requests carry a non-cancellable context, which sends
	// httputil.ReverseProxy down its http.CloseNotifier fallback and
	// panics on ResponseRecorder; a cancellable context avoids that.
	ctx, cancel := context.WithCancel(req.Context())
	t.Cleanup(cancel)
	req = req.WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var result map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	return result
}

func TestHealth(t *testing.T) {
	router := newTestServer(t, serverOptions{})
	w := doJSON(t, router, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decode(t, w)["status"])
}

func TestGenerateQuery(t *testing.T) {
	router := newTestServer(t, serverOptions{})

	w := doJSON(t, router, http.MethodPost, "/generate_query", map[string]any{
		"session_id": "sess-1",
		"prompt":     "count all sales",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Success", body["status"])
	assert.Equal(t, "SELECT 1;", body["final_query"])
	assert.NotEmpty(t, body["job_id"])
}

func TestGenerateQueryValidation(t *testing.T) {
	router := newTestServer(t, serverOptions{})

	w := doJSON(t, router, http.MethodPost, "/generate_query", map[string]any{
		"session_id": "sess-1",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGenerateQueryUpstreamError(t *testing.T) {
	router := newTestServer(t, serverOptions{
		client: &scriptedClient{err: errors.New("model unavailable")},
	})

	w := doJSON(t, router, http.MethodPost, "/generate_query", map[string]any{
		"session_id": "sess-1",
		"prompt":     "count all sales",
	}, nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestAuthTokenFlow(t *testing.T) {
	router := newTestServer(t, serverOptions{withAuth: true})

	// wrong credentials
	w := doJSON(t, router, http.MethodPost, "/auth/token", map[string]any{
		"username": "admin",
		"password": "wrong",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// protected route without a token
	w = doJSON(t, router, http.MethodPost, "/generate_query", map[string]any{
		"session_id": "sess-1",
		"prompt":     "count all sales",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// issue a token and retry
	w = doJSON(t, router, http.MethodPost, "/auth/token", map[string]any{
		"username": "admin",
		"password": "aura-secret",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	token := decode(t, w)["access_token"].(string)
	require.NotEmpty(t, token)

	w = doJSON(t, router, http.MethodPost, "/generate_query", map[string]any{
		"session_id": "sess-1",
		"prompt":     "count all sales",
	}, map[string]string{"Authorization": "Bearer " + token})
	assert.Equal(t, http.StatusOK, w.Code)
}

func uploadFile(t *testing.T, router *gin.Engine, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/files/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestFileUploadRoundtrip(t *testing.T) {
	router := newTestServer(t, serverOptions{})

	w := uploadFile(t, router, "sales.csv", "product,revenue\nwidget,100\n")
	require.Equal(t, http.StatusCreated, w.Code)
	meta := decode(t, w)
	fileID := meta["file_id"].(string)
	assert.Equal(t, "sales.csv", meta["original_name"])
	assert.NotEmpty(t, meta["sha256"])

	w = doJSON(t, router, http.MethodGet, "/files/"+fileID, nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/files", nil, nil)
	assert.Equal(t, float64(1), decode(t, w)["count"])

	w = doJSON(t, router, http.MethodDelete, "/files/"+fileID, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/files/"+fileID, nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFileUploadUnsupportedType(t *testing.T) {
	router := newTestServer(t, serverOptions{})

	w := uploadFile(t, router, "script.sh", "#!/bin/sh\n")
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func TestFileUploadMissingField(t *testing.T) {
	router := newTestServer(t, serverOptions{})

	req := httptest.NewRequest(http.MethodPost, "/files/upload", bytes.NewReader(nil))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=xxx")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAgentProxyRewritesPath(t *testing.T) {
	var gotPath string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"tools": [], "count": 0}`))
	}))
	defer upstream.Close()

	router := newTestServer(t, serverOptions{agentURL: upstream.URL})

	w := doJSON(t, router, http.MethodGet, "/agent/tools", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "/tools", gotPath)
	assert.Equal(t, float64(0), decode(t, w)["count"])
}

func TestDatabaseProxyRewritesPath(t *testing.T) {
	var gotPath string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"connections": [], "count": 0}`))
	}))
	defer upstream.Close()

	router := newTestServer(t, serverOptions{dbURL: upstream.URL})

	w := doJSON(t, router, http.MethodGet, "/db/connections", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "/connections", gotPath)
}

func TestAgentProxyUpstreamDown(t *testing.T) {
	router := newTestServer(t, serverOptions{agentURL: "http://127.0.0.1:1"})

	w := doJSON(t, router, http.MethodGet, "/agent/tools", nil, nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}
