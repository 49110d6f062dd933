package mw

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestResponseCache_HitAndInvalidate(t *testing.T) {
	rc := NewResponseCache(time.Minute)
	calls := 0

	r := gin.New()
	r.GET("/api/video", rc.Middleware(), func(c *gin.Context) {
		calls++
		c.JSON(http.StatusOK, gin.H{"n": calls})
	})

	get := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/api/video", nil)
		r.ServeHTTP(w, req)
		return w
	}

	first := get()
	assert.JSONEq(t, `{"n":1}`, first.Body.String())

	second := get()
	assert.JSONEq(t, `{"n":1}`, second.Body.String())
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, 1, calls)

	rc.Invalidate("/api/video")
	third := get()
	assert.JSONEq(t, `{"n":2}`, third.Body.String())
}

func TestResponseCache_DropsResponseOverlappingInvalidate(t *testing.T) {
	rc := NewResponseCache(time.Minute)
	var (
		mu      sync.Mutex
		current = "old"
	)
	parked := make(chan struct{})
	resume := make(chan struct{})
	first := true

	r := gin.New()
	r.GET("/api/video", rc.Middleware(), func(c *gin.Context) {
		mu.Lock()
		value := current
		wait := first
		first = false
		mu.Unlock()
		if wait {
			close(parked)
			<-resume
		}
		c.JSON(http.StatusOK, gin.H{"url": value})
	})

	get := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/api/video", nil)
		r.ServeHTTP(w, req)
		return w
	}

	done := make(chan *httptest.ResponseRecorder)
	go func() { done <- get() }()

	<-parked
	mu.Lock()
	current = "new"
	mu.Unlock()
	rc.Invalidate("/api/video")
	close(resume)

	stale := <-done
	assert.JSONEq(t, `{"url":"old"}`, stale.Body.String())

	fresh := get()
	assert.JSONEq(t, `{"url":"new"}`, fresh.Body.String())
	assert.Empty(t, fresh.Header().Get("X-Cache"))
}

func TestResponseCache_KeepsLiveRequestID(t *testing.T) {
	rc := NewResponseCache(time.Minute)

	r := gin.New()
	r.Use(RequestID())
	r.GET("/api/video", rc.Middleware(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"url": nil})
	})

	get := func(id string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/api/video", nil)
		req.Header.Set(RequestIDHeader, id)
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, "first", get("first").Header().Get(RequestIDHeader))
	second := get("second")
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, "second", second.Header().Get(RequestIDHeader))
}

func TestResponseCache_SkipsErrors(t *testing.T) {
	rc := NewResponseCache(time.Minute)
	calls := 0

	r := gin.New()
	r.GET("/boom", rc.Middleware(), func(c *gin.Context) {
		calls++
		c.JSON(http.StatusInternalServerError, gin.H{"error": "boom"})
	})

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/boom", nil)
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	}
	assert.Equal(t, 2, calls)
}

func TestRateLimiter(t *testing.T) {
	r := gin.New()
	r.Use(RateLimiter(rate.Limit(1), 2))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// A different client has its own bucket.
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestClientLimiters_ForgetIdleClients(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	limiters := NewClientLimiters(rate.Limit(1), 1)
	limiters.now = func() time.Time { return now }

	assert.True(t, limiters.Allow("10.0.0.1"))
	assert.False(t, limiters.Allow("10.0.0.1"))
	assert.True(t, limiters.Allow("10.0.0.2"))
	assert.Equal(t, 2, limiters.Len())

	now = now.Add(clientIdleTTL + time.Second)
	assert.True(t, limiters.Allow("10.0.0.3"))
	assert.Equal(t, 1, limiters.Len())
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("request_id"))
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	r.ServeHTTP(w, req)
	generated := w.Header().Get(RequestIDHeader)
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, w.Body.String())

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}
