package middleware_test

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-transfer-indexer/internal/api/middleware"
)

// testKeyPair returns an RSA private key and its PKIX public key in PEM form
func testKeyPair(t *testing.T) (*rsa.PrivateKey, string) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)

	return key, string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
}

func signToken(t *testing.T, key *rsa.PrivateKey, method jwt.SigningMethod, claims jwt.RegisteredClaims) string {
	t.Helper()

	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func TestAuthenticate_APIKey(t *testing.T) {
	cfg := middleware.AuthConfig{APIKeys: []string{"ops-key", ""}}

	result := middleware.Authenticate("ApiKey ops-key", cfg)
	assert.True(t, result.Success)
	assert.Equal(t, "apikey", result.AuthType)

	result = middleware.Authenticate("ApiKey other", cfg)
	assert.False(t, result.Success)
	assert.Error(t, result.Error)

	result = middleware.Authenticate("ApiKey ", cfg)
	assert.False(t, result.Success, "empty configured keys never match")

	result = middleware.Authenticate("ApiKey ops-key", middleware.AuthConfig{})
	assert.False(t, result.Success)
}

func TestAuthenticate_JWT(t *testing.T) {
	key, publicPEM := testKeyPair(t)
	cfg := middleware.AuthConfig{JWTPublicKey: publicPEM}
	now := time.Now()

	t.Run("valid token", func(t *testing.T) {
		token := signToken(t, key, jwt.SigningMethodRS256, jwt.RegisteredClaims{
			Subject:   "ops@feralfile",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		})

		result := middleware.Authenticate("Bearer "+token, cfg)
		require.True(t, result.Success, "%v", result.Error)
		assert.Equal(t, "jwt", result.AuthType)
		assert.Equal(t, "ops@feralfile", result.AuthSubject)
	})

	t.Run("expired token", func(t *testing.T) {
		token := signToken(t, key, jwt.SigningMethodRS256, jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(-time.Minute)),
		})

		result := middleware.Authenticate("Bearer "+token, cfg)
		assert.False(t, result.Success)
	})

	t.Run("token signed by another key", func(t *testing.T) {
		otherKey, _ := testKeyPair(t)
		token := signToken(t, otherKey, jwt.SigningMethodRS256, jwt.RegisteredClaims{})

		result := middleware.Authenticate("Bearer "+token, cfg)
		assert.False(t, result.Success)
	})

	t.Run("no public key configured", func(t *testing.T) {
		token := signToken(t, key, jwt.SigningMethodRS256, jwt.RegisteredClaims{})

		result := middleware.Authenticate("Bearer "+token, middleware.AuthConfig{})
		assert.False(t, result.Success)
	})
}

func TestAuthenticate_MalformedHeader(t *testing.T) {
	cfg := middleware.AuthConfig{APIKeys: []string{"ops-key"}}

	for _, header := range []string{"", "ops-key", "Basic b3BzOmtleQ=="} {
		result := middleware.Authenticate(header, cfg)
		assert.False(t, result.Success, header)
		assert.Error(t, result.Error, header)
	}
}

func TestAuthenticate_JWTWithoutExpiry(t *testing.T) {
	key, publicPEM := testKeyPair(t)
	token := signToken(t, key, jwt.SigningMethodRS256, jwt.RegisteredClaims{Subject: "ops@feralfile"})

	result := middleware.Authenticate("Bearer "+token, middleware.AuthConfig{JWTPublicKey: publicPEM})
	assert.False(t, result.Success)
}

func TestAuth_StoresPrincipal(t *testing.T) {
	gin.SetMode(gin.TestMode)
	key, publicPEM := testKeyPair(t)

	var got middleware.Principal
	router := gin.New()
	router.GET("/private", middleware.Auth(middleware.AuthConfig{JWTPublicKey: publicPEM, APIKeys: []string{"ops-key"}}), func(c *gin.Context) {
		p, ok := middleware.PrincipalFrom(c)
		require.True(t, ok)
		got = p
		c.Status(http.StatusNoContent)
	})

	call := func(header string) int {
		req := httptest.NewRequest(http.MethodGet, "/private", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec.Code
	}

	token := signToken(t, key, jwt.SigningMethodRS256, jwt.RegisteredClaims{
		Subject:   "ops@feralfile",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	assert.Equal(t, http.StatusNoContent, call("Bearer "+token))
	assert.Equal(t, middleware.Principal{AuthType: middleware.AuthTypeJWT, Subject: "ops@feralfile"}, got)

	assert.Equal(t, http.StatusNoContent, call("ApiKey ops-key"))
	assert.Equal(t, middleware.Principal{AuthType: middleware.AuthTypeAPIKey}, got)

	assert.Equal(t, http.StatusUnauthorized, call(""))
}
