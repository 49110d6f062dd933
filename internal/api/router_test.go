package api

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"clinic-call-backend/config"
	"clinic-call-backend/internal/model"
	"clinic-call-backend/internal/state"
	"clinic-call-backend/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type recordingPublisher struct {
	mu     sync.Mutex
	calls  []model.Call
	videos []*string
}

func (r *recordingPublisher) PublishCall(call model.Call) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

func (r *recordingPublisher) PublishVideo(url *string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.videos = append(r.videos, url)
}

type testEnv struct {
	router    *gin.Engine
	holder    *state.MemoryHolder
	store     store.Store
	publisher *recordingPublisher
}

func testServerConfig() *config.ServerConfig {
	return &config.ServerConfig{
		RateLimitPerSec:  1000,
		RateLimitBurst:   1000,
		CacheTTLSeconds:  60,
		CORSAllowOrigins: []string{"*"},
	}
}

func setupRouter(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, gormDB.AutoMigrate(&model.Patient{}, &model.PushSubscription{}))
	sqlDB, _ := gormDB.DB()
	t.Cleanup(func() { sqlDB.Close() })

	env := &testEnv{
		holder:    state.NewMemoryHolder(),
		store:     store.NewGormStore(gormDB),
		publisher: &recordingPublisher{},
	}
	handler := NewHandler(env.holder, env.store, env.publisher, &webpush.Options{VAPIDPublicKey: "test-public-key"})
	env.router = NewRouter(testServerConfig(), handler)
	return env
}

func (e *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var req *http.Request
	if body == "" {
		req, _ = http.NewRequest(method, path, nil)
	} else {
		req, _ = http.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	e.router.ServeHTTP(w, req)
	return w
}

func doOn(router *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, path, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestRouter_RateLimited(t *testing.T) {
	env := setupRouter(t)
	cfg := testServerConfig()
	cfg.RateLimitPerSec = 1
	cfg.RateLimitBurst = 1
	router := NewRouter(cfg, NewHandler(env.holder, env.store, nil, nil))

	assert.Equal(t, http.StatusOK, doOn(router, http.MethodGet, "/api/current-call").Code)
	assert.Equal(t, http.StatusTooManyRequests, doOn(router, http.MethodGet, "/api/current-call").Code)
}

func TestRouter_CORSPreflight(t *testing.T) {
	env := setupRouter(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodOptions, "/api/current-call", nil)
	req.Header.Set("Origin", "http://display.local")
	req.Header.Set("Access-Control-Request-Method", "GET")
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
