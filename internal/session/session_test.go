package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/restrobazaar/storefront/internal/common"
)

func newTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, "", time.Hour), mr
}

func TestRedisStoreRoundTrip(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	_, ok, err := store.Get(ctx, "s1", KeyToken)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Set(ctx, "s1", KeyToken, "abc"))
	value, ok, err := store.Get(ctx, "s1", KeyToken)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "abc", value)
	require.Equal(t, time.Hour, mr.TTL("session:s1"))

	require.NoError(t, store.Delete(ctx, "s1", KeyToken, KeyPendingWishlist))
	_, ok, err = store.Get(ctx, "s1", KeyToken)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisStoreKeysAreIndependent(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "s1", KeySelectedCity, "Pune"))
	require.NoError(t, store.Set(ctx, "s1", KeySelectedCityID, "c-9"))
	require.NoError(t, store.Delete(ctx, "s1", KeySelectedCity))

	id, ok, err := store.Get(ctx, "s1", KeySelectedCityID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "c-9", id)

	_, ok, err = store.Get(ctx, "s2", KeySelectedCityID)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisStoreJSON(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	type pending struct {
		ProductID string `json:"productId"`
	}
	require.NoError(t, store.SetJSON(ctx, "s1", KeyPendingWishlist, pending{ProductID: "p1"}))

	var got pending
	ok, err := store.GetJSON(ctx, "s1", KeyPendingWishlist, &got)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "p1", got.ProductID)

	require.NoError(t, store.Set(ctx, "s1", KeyCart, "{broken"))
	_, err = store.GetJSON(ctx, "s1", KeyCart, &got)
	require.Error(t, err)
}

func TestRedisStoreRequiresSession(t *testing.T) {
	store, _ := newTestStore(t)
	require.ErrorIs(t, store.Set(context.Background(), "", KeyToken, "x"), ErrNoSession)
}

func TestResolverMintsSession(t *testing.T) {
	r := NewResolver("", "", time.Hour)
	var seen string
	h := r.Middleware(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		seen, _ = common.SessionID(req.Context())
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	require.NotEmpty(t, seen)
	require.Equal(t, seen, rr.Header().Get("X-Session-ID"))
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, "sf_session", cookies[0].Name)
	require.Equal(t, seen, cookies[0].Value)
	require.True(t, cookies[0].HttpOnly)
}

func TestResolverReusesHeaderAndCookie(t *testing.T) {
	r := NewResolver("", "", time.Hour)
	id := uuid.NewString()
	var seen string
	h := r.Middleware(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		seen, _ = common.SessionID(req.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Session-ID", id)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, id, seen)
	require.Empty(t, rr.Result().Cookies())

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "sf_session", Value: id})
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, id, seen)
}

func TestResolverRejectsNonUUID(t *testing.T) {
	r := NewResolver("", "", time.Hour)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Session-ID", "../../admin")
	require.Empty(t, r.Resolve(req))
}
