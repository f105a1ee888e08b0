package auth_test

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentful-io/rentful-client/internal/auth"
	"github.com/rentful-io/rentful-client/pkg/rentful"
)

func validSingleUseConfig() auth.SingleUseConfig {
	return auth.SingleUseConfig{
		TokenID:    "token-1",
		Algorithm:  "HS256",
		PrivateKey: "shared-secret",
		CompanyID:  "company-1",
		UserID:     "user-1",
		Issuer:     "https://acme.rentful.com",
	}
}

func TestNewSingleUseConfigValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*auth.SingleUseConfig)
		wantErr error
	}{
		{
			name:    "missing algorithm",
			mutate:  func(c *auth.SingleUseConfig) { c.Algorithm = "" },
			wantErr: rentful.ErrSingleUseTokenAlgorithmRequired,
		},
		{
			name:    "missing company id",
			mutate:  func(c *auth.SingleUseConfig) { c.CompanyID = "" },
			wantErr: rentful.ErrSingleUseTokenCompanyIDRequired,
		},
		{
			name:    "missing user id",
			mutate:  func(c *auth.SingleUseConfig) { c.UserID = "" },
			wantErr: rentful.ErrSingleUseTokenUserIDRequired,
		},
		{
			name:    "missing key material",
			mutate:  func(c *auth.SingleUseConfig) { c.PrivateKey = "" },
			wantErr: rentful.ErrPrivateKeyOrSecretRequired,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			config := validSingleUseConfig()
			tt.mutate(&config)

			_, err := auth.NewSingleUse(config)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestNewSingleUseUnsupportedAlgorithm(t *testing.T) {
	t.Parallel()

	config := validSingleUseConfig()
	config.Algorithm = "none"

	_, err := auth.NewSingleUse(config)
	require.ErrorIs(t, err, rentful.ErrUnsupportedTokenAlgorithm)
}

func TestNewSingleUseBadPEM(t *testing.T) {
	t.Parallel()

	config := validSingleUseConfig()
	config.Algorithm = "ES256"
	config.PrivateKey = "not a pem block"

	_, err := auth.NewSingleUse(config)
	require.Error(t, err)

	config.Algorithm = "RS256"
	_, err = auth.NewSingleUse(config)
	require.Error(t, err)
}

func TestSingleUseAuthorizationSignsRequestBoundToken(t *testing.T) {
	t.Parallel()

	strategy, err := auth.NewSingleUse(validSingleUseConfig())
	require.NoError(t, err)
	require.True(t, strategy.Active())

	header, err := strategy.Authorization(context.Background(), &auth.RequestInfo{
		Method: "POST",
		Path:   "/api/4/orders",
		Body:   []byte(`{"data":{}}`),
	})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(header, "Bearer "))

	raw := strings.TrimPrefix(header, "Bearer ")

	token, err := jwt.Parse(raw, func(*jwt.Token) (interface{}, error) {
		return []byte("shared-secret"), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	require.NoError(t, err)
	require.True(t, token.Valid)

	assert.Equal(t, "token-1", token.Header["kid"])
	assert.Equal(t, "single_use", token.Header["kind"])

	claims, ok := token.Claims.(jwt.MapClaims)
	require.True(t, ok)

	assert.Equal(t, "HS256", claims["alg"])
	assert.Equal(t, "company-1", claims["aud"])
	assert.Equal(t, "user-1", claims["sub"])
	assert.Equal(t, "https://acme.rentful.com", claims["iss"])

	// jti is "{uuid}.{request fingerprint}".
	jti, ok := claims["jti"].(string)
	require.True(t, ok)
	assert.Len(t, strings.SplitN(jti, ".", 2), 2)

	iat, ok := claims["iat"].(float64)
	require.True(t, ok)

	exp, ok := claims["exp"].(float64)
	require.True(t, ok)

	// Default lifetime is ten minutes.
	assert.InDelta(t, 600, exp-iat, 1)
}

func TestSingleUseFingerprintFormula(t *testing.T) {
	t.Parallel()

	strategy, err := auth.NewSingleUse(validSingleUseConfig())
	require.NoError(t, err)

	fingerprintFor := func(req *auth.RequestInfo) string {
		header, err := strategy.Authorization(context.Background(), req)
		require.NoError(t, err)

		token, err := jwt.Parse(strings.TrimPrefix(header, "Bearer "), func(*jwt.Token) (interface{}, error) {
			return []byte("shared-secret"), nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		require.NoError(t, err)

		claims, ok := token.Claims.(jwt.MapClaims)
		require.True(t, ok)

		jti, ok := claims["jti"].(string)
		require.True(t, ok)

		return jti[strings.Index(jti, ".")+1:]
	}

	// base64(sha256("{method}.{path}.{base64(sha256(body))}")).
	body := []byte(`{"data":{}}`)
	bodySum := sha256.Sum256(body)
	bodyDigest := base64.StdEncoding.EncodeToString(bodySum[:])

	withBody := sha256.Sum256([]byte("POST./api/4/orders." + bodyDigest))
	assert.Equal(t, base64.StdEncoding.EncodeToString(withBody[:]), fingerprintFor(&auth.RequestInfo{
		Method: "POST",
		Path:   "/api/4/orders",
		Body:   body,
	}))

	// A bodyless request hashes an empty trailing segment.
	bodyless := sha256.Sum256([]byte("GET./api/4/orders?page%5Bsize%5D=1."))
	assert.Equal(t, base64.StdEncoding.EncodeToString(bodyless[:]), fingerprintFor(&auth.RequestInfo{
		Method: "GET",
		Path:   "/api/4/orders?page%5Bsize%5D=1",
	}))
}

func TestSingleUseFingerprintVariesWithRequest(t *testing.T) {
	t.Parallel()

	strategy, err := auth.NewSingleUse(validSingleUseConfig())
	require.NoError(t, err)

	jtiFor := func(req *auth.RequestInfo) string {
		header, err := strategy.Authorization(context.Background(), req)
		require.NoError(t, err)

		raw := strings.TrimPrefix(header, "Bearer ")

		token, err := jwt.Parse(raw, func(*jwt.Token) (interface{}, error) {
			return []byte("shared-secret"), nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		require.NoError(t, err)

		claims, ok := token.Claims.(jwt.MapClaims)
		require.True(t, ok)

		jti, ok := claims["jti"].(string)
		require.True(t, ok)

		return jti[strings.Index(jti, ".")+1:]
	}

	get := jtiFor(&auth.RequestInfo{Method: "GET", Path: "/api/4/orders"})
	getOther := jtiFor(&auth.RequestInfo{Method: "GET", Path: "/api/4/customers"})
	post := jtiFor(&auth.RequestInfo{Method: "POST", Path: "/api/4/orders"})
	same := jtiFor(&auth.RequestInfo{Method: "GET", Path: "/api/4/orders"})

	assert.Equal(t, get, same, "the fingerprint is deterministic per request shape")
	assert.NotEqual(t, get, getOther)
	assert.NotEqual(t, get, post)
}

func TestSingleUseCustomExpiration(t *testing.T) {
	t.Parallel()

	config := validSingleUseConfig()
	config.Expiration = time.Minute

	strategy, err := auth.NewSingleUse(config)
	require.NoError(t, err)

	header, err := strategy.Authorization(context.Background(), &auth.RequestInfo{Method: "GET", Path: "/"})
	require.NoError(t, err)

	token, err := jwt.Parse(strings.TrimPrefix(header, "Bearer "), func(*jwt.Token) (interface{}, error) {
		return []byte("shared-secret"), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	require.NoError(t, err)

	claims, ok := token.Claims.(jwt.MapClaims)
	require.True(t, ok)

	assert.InDelta(t, 60, claims["exp"].(float64)-claims["iat"].(float64), 1)
}
