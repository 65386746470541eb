package config

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func baseEnv() map[string]string {
	return map[string]string{
		"BACKEND_BASE_URL":    "https://api.restrobazaar.example/api/",
		"REDIS_URL":           "redis://localhost:6379/0",
		"DATABASE_URL":        "",
		"CART_STORE":          "",
		"CART_TIER_POLICY":    "",
		"RATE_LIMIT_STRATEGY": "",
		"COOKIE_SAMESITE":     "",
		"SESSION_TTL":         "",
		"AUTO_MIGRATE":        "",
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadForTests(baseEnv())
	require.NoError(t, err)
	require.Equal(t, "https://api.restrobazaar.example/api", cfg.BackendBaseURL)
	require.Equal(t, CartStoreSession, cfg.CartStore)
	require.Equal(t, TierPolicySplit, cfg.CartTierPolicy)
	require.Equal(t, RateLimitSliding, cfg.RateLimitStrategy)
	require.Equal(t, "X-Session-ID", cfg.SessionHeader)
	require.Equal(t, "sf_session", cfg.SessionCookie)
	require.Equal(t, 720*time.Hour, cfg.SessionTTL)
	require.Equal(t, http.SameSiteLaxMode, cfg.CookieSameSite)
	require.True(t, cfg.AutoMigrate)
	require.False(t, cfg.UsesPostgres())
}

func TestLoadRequiresBackendAndRedis(t *testing.T) {
	env := baseEnv()
	env["BACKEND_BASE_URL"] = ""
	_, err := LoadForTests(env)
	require.ErrorContains(t, err, "BACKEND_BASE_URL")

	env = baseEnv()
	env["BACKEND_BASE_URL"] = "not a url"
	_, err = LoadForTests(env)
	require.ErrorContains(t, err, "absolute URL")

	env = baseEnv()
	env["REDIS_URL"] = ""
	_, err = LoadForTests(env)
	require.ErrorContains(t, err, "REDIS_URL")
}

func TestLoadPostgresCartStoreNeedsDatabase(t *testing.T) {
	env := baseEnv()
	env["CART_STORE"] = "postgres"
	_, err := LoadForTests(env)
	require.ErrorContains(t, err, "DATABASE_URL")

	env["DATABASE_URL"] = "postgres://localhost/storefront"
	cfg, err := LoadForTests(env)
	require.NoError(t, err)
	require.True(t, cfg.UsesPostgres())
}

func TestLoadRejectsUnknownTierPolicy(t *testing.T) {
	env := baseEnv()
	env["CART_TIER_POLICY"] = "merge"
	_, err := LoadForTests(env)
	require.ErrorContains(t, err, "CART_TIER_POLICY")

	env["CART_TIER_POLICY"] = "Reconcile"
	cfg, err := LoadForTests(env)
	require.NoError(t, err)
	require.Equal(t, TierPolicyReconcile, cfg.CartTierPolicy)
}

func TestHTTPAddr(t *testing.T) {
	require.Equal(t, ":9000", (&Config{Port: "9000"}).HTTPAddr())
	require.Equal(t, ":7000", (&Config{Port: ":7000"}).HTTPAddr())
	require.Equal(t, ":8080", (&Config{}).HTTPAddr())
}

func TestParseHelpers(t *testing.T) {
	require.Equal(t, 5*time.Second, parseDuration("bogus", "5s"))
	require.Equal(t, 3, parseInt("-1", 3))
	require.Equal(t, []string{"a", "b"}, splitAndTrim(" a, ,b "))
}
