package swaprpc

import (
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMacaroonMiddlewareRejectsMissingMacaroon(t *testing.T) {
	root, err := NewRootMacaroon([]byte("root-key"))
	require.NoError(t, err)

	called := false
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true })
	handler := macaroonMiddleware(root, next)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.False(t, called)
}

func TestMacaroonMiddlewareRejectsForeignMacaroon(t *testing.T) {
	root, err := NewRootMacaroon([]byte("root-key"))
	require.NoError(t, err)
	foreign, err := NewRootMacaroon([]byte("some-other-key"))
	require.NoError(t, err)
	foreignBytes, err := foreign.MarshalBinary()
	require.NoError(t, err)

	handler := macaroonMiddleware(root, http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set(macaroonHeader, hex.EncodeToString(foreignBytes))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMacaroonMiddlewareAcceptsRootMacaroon(t *testing.T) {
	root, err := NewRootMacaroon([]byte("root-key"))
	require.NoError(t, err)
	rootBytes, err := root.MarshalBinary()
	require.NoError(t, err)

	called := false
	handler := macaroonMiddleware(root, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set(macaroonHeader, hex.EncodeToString(rootBytes))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, called)
}

func TestNewRootMacaroonIsDeterministicForSameKey(t *testing.T) {
	m1, err := NewRootMacaroon([]byte("same-key"))
	require.NoError(t, err)
	m2, err := NewRootMacaroon([]byte("same-key"))
	require.NoError(t, err)

	require.Equal(t, m1.Signature(), m2.Signature())
}
