package api

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutSubscription_InvalidRequest(t *testing.T) {
	env := setupRouter(t)

	w := env.do(http.MethodPut, "/api/subscriptions", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"ok":false,"error":"Erro ao processar requisição."}`, w.Body.String())

	w = env.do(http.MethodPut, "/api/subscriptions", `{"endpoint":"https://push.example/1"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubscriptionLifecycle(t *testing.T) {
	env := setupRouter(t)
	endpoint := "https://push.example/abc"

	w := env.do(http.MethodPut, "/api/subscriptions", `{"endpoint":"`+endpoint+`","p256dh":"k","auth":"a"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	// A second PUT replaces the keys.
	w = env.do(http.MethodPut, "/api/subscriptions", `{"endpoint":"`+endpoint+`","p256dh":"k2","auth":"a2"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	sub, err := env.store.GetSubscription(context.Background(), endpoint)
	require.NoError(t, err)
	assert.Equal(t, "k2", sub.P256DH)

	w = env.do(http.MethodGet, "/api/subscriptions?endpoint="+endpoint, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), endpoint)

	w = env.do(http.MethodDelete, "/api/subscriptions", `{"endpoint":"`+endpoint+`"}`)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(http.MethodGet, "/api/subscriptions?endpoint="+url.QueryEscape("https://push.example/missing"), "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(http.MethodGet, "/api/subscriptions", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetVAPIDPublicKey(t *testing.T) {
	env := setupRouter(t)

	w := env.do(http.MethodGet, "/api/vapid_public_key", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"publicKey":"test-public-key"}`, w.Body.String())

	handler := NewHandler(env.holder, env.store, nil, nil)
	router := NewRouter(testServerConfig(), handler)
	w = doOn(router, http.MethodGet, "/api/vapid_public_key")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"ok":false,"error":"Notificações push desativadas."}`, w.Body.String())
}

func TestHealthz(t *testing.T) {
	env := setupRouter(t)
	w := env.do(http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}
