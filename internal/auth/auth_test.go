package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/restrobazaar/storefront/internal/backend"
	"github.com/restrobazaar/storefront/internal/common"
	"github.com/restrobazaar/storefront/internal/session"
)

const testSecret = "0123456789abcdef0123456789abcdef"

var testNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func signToken(t *testing.T, alg jwa.SignatureAlgorithm, subject string, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewBuilder().
		Issuer("restrobazaar").
		Subject(subject).
		IssuedAt(testNow.Add(-time.Minute)).
		Expiration(exp).
		Build()
	require.NoError(t, err)
	signed, err := jwt.Sign(tok, jwt.WithKey(alg, []byte(testSecret)))
	require.NoError(t, err)
	return string(signed)
}

func newVerifier() *Verifier {
	return NewVerifier(VerifierConfig{Secret: testSecret, Issuer: "restrobazaar", Now: func() time.Time { return testNow }})
}

func newSessions(t *testing.T) session.Store {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return session.NewRedisStore(client, "", time.Hour)
}

func TestNewVerifierDisabledWithoutSecret(t *testing.T) {
	require.Nil(t, NewVerifier(VerifierConfig{}))
}

func TestVerifierAcceptsValidToken(t *testing.T) {
	userID, err := newVerifier().Verify(signToken(t, jwa.HS256, "user-7", testNow.Add(time.Hour)))
	require.NoError(t, err)
	require.Equal(t, "user-7", userID)
}

func TestVerifierRejections(t *testing.T) {
	v := newVerifier()
	cases := map[string]string{
		"expired":     signToken(t, jwa.HS256, "user-7", testNow.Add(-time.Hour)),
		"wrong alg":   signToken(t, jwa.HS512, "user-7", testNow.Add(time.Hour)),
		"no subject":  signToken(t, jwa.HS256, "", testNow.Add(time.Hour)),
		"garbage":     "not-a-token",
		"empty token": "",
	}
	for name, tok := range cases {
		_, err := v.Verify(tok)
		appErr, ok := common.AsAppError(err)
		require.True(t, ok, name)
		require.Equal(t, http.StatusUnauthorized, appErr.HTTPStatus, name)
	}

	other := NewVerifier(VerifierConfig{Secret: testSecret, Issuer: "someone-else", Now: func() time.Time { return testNow }})
	_, err := other.Verify(signToken(t, jwa.HS256, "user-7", testNow.Add(time.Hour)))
	require.Error(t, err)
}

func TestAuthenticatePrefersHeaderOverSession(t *testing.T) {
	sessions := newSessions(t)
	require.NoError(t, sessions.Set(context.Background(), "s1", session.KeyToken, "session-token"))
	m := Middleware{Sessions: sessions}

	var got string
	h := m.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = common.Token(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(common.WithSessionID(req.Context(), "s1"))
	h.ServeHTTP(httptest.NewRecorder(), req)
	require.Equal(t, "session-token", got)

	req.Header.Set("Authorization", "Bearer header-token")
	h.ServeHTTP(httptest.NewRecorder(), req)
	require.Equal(t, "header-token", got)
}

func TestRequireAuthRedirectsToSignIn(t *testing.T) {
	m := Middleware{Sessions: newSessions(t)}
	h := m.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/wishlist", nil)
	req = req.WithContext(common.WithSessionID(req.Context(), "s1"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), `"redirect":"/signin"`)
}

func TestRequireAuthDropsUnverifiedToken(t *testing.T) {
	m := Middleware{Verifier: newVerifier()}
	h := m.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, _ := common.UserID(r.Context())
		_, _ = fmt.Fprint(w, userID)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, jwa.HS256, "user-9", testNow.Add(-time.Minute)))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req.Header.Set("Authorization", "Bearer "+signToken(t, jwa.HS256, "user-9", testNow.Add(time.Minute)))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "user-9", rec.Body.String())
}

func TestResponderClearsTokenOnBackendUnauthorized(t *testing.T) {
	sessions := newSessions(t)
	ctx := common.WithSessionID(context.Background(), "s1")
	require.NoError(t, sessions.Set(ctx, "s1", session.KeyToken, "stale"))

	req := httptest.NewRequest(http.MethodGet, "/wishlist", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	Responder{Sessions: sessions}.Fail(rec, req, fmt.Errorf("list wishlist: %w", backend.ErrUnauthorized))

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), `"redirect":"/signin"`)
	_, ok, err := sessions.Get(ctx, "s1", session.KeyToken)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestResponderMapsOtherErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	Responder{}.Fail(rec, httptest.NewRequest(http.MethodGet, "/", nil), backend.ErrNotFound)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPutTokenStoresAndRunsHooks(t *testing.T) {
	sessions := newSessions(t)
	var hookToken, hookSession string
	h := NewHandler(HandlerConfig{
		Verifier: newVerifier(),
		Sessions: sessions,
		OnSignIn: []SignInHook{func(ctx context.Context, sid string) error {
			hookToken, _ = common.Token(ctx)
			hookSession = sid
			return nil
		}},
	})
	tok := signToken(t, jwa.HS256, "user-1", testNow.Add(time.Hour))

	req := httptest.NewRequest(http.MethodPut, "/session/token", strings.NewReader(`{"token":"`+tok+`"}`))
	req = req.WithContext(common.WithSessionID(req.Context(), "s1"))
	rec := httptest.NewRecorder()
	h.PutToken(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"userId":"user-1"`)
	require.Equal(t, tok, hookToken)
	require.Equal(t, "s1", hookSession)

	stored, ok, err := sessions.Get(context.Background(), "s1", session.KeyToken)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, tok, stored)

	rec = httptest.NewRecorder()
	del := httptest.NewRequest(http.MethodDelete, "/session/token", nil)
	h.DeleteToken(rec, del.WithContext(common.WithSessionID(del.Context(), "s1")))
	require.Equal(t, http.StatusNoContent, rec.Code)
	_, ok, err = sessions.Get(context.Background(), "s1", session.KeyToken)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestPutTokenRejectsInvalidToken(t *testing.T) {
	sessions := newSessions(t)
	h := NewHandler(HandlerConfig{Verifier: newVerifier(), Sessions: sessions})

	req := httptest.NewRequest(http.MethodPut, "/session/token", strings.NewReader(`{"token":"bogus"}`))
	req = req.WithContext(common.WithSessionID(req.Context(), "s1"))
	rec := httptest.NewRecorder()
	h.PutToken(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	_, ok, err := sessions.Get(context.Background(), "s1", session.KeyToken)
	require.NoError(t, err)
	require.False(t, ok)
}
