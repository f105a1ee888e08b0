package auth

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/rentful-io/rentful-client/internal/constants"
	"github.com/rentful-io/rentful-client/pkg/rentful"
)

// SingleUseConfig configures the single-use signed token strategy. Each
// request gets a fresh short-lived JWT bound to the request fingerprint.
type SingleUseConfig struct {
	// TokenID identifies the registered signing key; sent as the kid header.
	TokenID string
	// Algorithm is the signing algorithm: ES256, RS256, or HS256.
	Algorithm string
	// PrivateKey is the PEM-encoded private key (ES256/RS256) or the shared
	// secret (HS256).
	PrivateKey string
	// CompanyID and UserID are the token audience and subject.
	CompanyID string
	UserID    string
	// Issuer is the canonical company URL ("https://{company}.{domain}").
	Issuer string
	// Expiration is the token lifetime. Zero means the default of ten
	// minutes.
	Expiration time.Duration
}

// SingleUse signs a one-off JWT per request.
type SingleUse struct {
	config SingleUseConfig
	method jwt.SigningMethod
	key    interface{}
}

// NewSingleUse validates the configuration and parses the signing key. Every
// missing or unusable piece is reported as a distinct configuration error.
func NewSingleUse(config SingleUseConfig) (*SingleUse, error) {
	if config.Algorithm == "" {
		return nil, rentful.ErrSingleUseTokenAlgorithmRequired
	}

	if config.CompanyID == "" {
		return nil, rentful.ErrSingleUseTokenCompanyIDRequired
	}

	if config.UserID == "" {
		return nil, rentful.ErrSingleUseTokenUserIDRequired
	}

	if config.PrivateKey == "" {
		return nil, rentful.ErrPrivateKeyOrSecretRequired
	}

	if config.Expiration == 0 {
		config.Expiration = constants.DefaultSingleUseTokenExpiration
	}

	method, key, err := parseSigningKey(config.Algorithm, config.PrivateKey)
	if err != nil {
		return nil, err
	}

	return &SingleUse{config: config, method: method, key: key}, nil
}

func parseSigningKey(algorithm, material string) (jwt.SigningMethod, interface{}, error) {
	switch algorithm {
	case "ES256":
		key, err := jwt.ParseECPrivateKeyFromPEM([]byte(material))
		if err != nil {
			return nil, nil, fmt.Errorf("parsing EC private key: %w", err)
		}

		return jwt.SigningMethodES256, key, nil
	case "RS256":
		key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(material))
		if err != nil {
			return nil, nil, fmt.Errorf("parsing RSA private key: %w", err)
		}

		return jwt.SigningMethodRS256, key, nil
	case "HS256":
		return jwt.SigningMethodHS256, []byte(material), nil
	default:
		return nil, nil, fmt.Errorf("%w: %s", rentful.ErrUnsupportedTokenAlgorithm, algorithm)
	}
}

// Active reports whether the strategy is configured. A SingleUse built by
// NewSingleUse is always active.
func (s *SingleUse) Active() bool {
	return s != nil && s.method != nil
}

// Authorization signs a fresh token bound to the request.
func (s *SingleUse) Authorization(_ context.Context, req *RequestInfo) (string, error) {
	now := time.Now()

	claims := jwt.MapClaims{
		"alg": s.config.Algorithm,
		"iat": now.Unix(),
		"exp": now.Add(s.config.Expiration).Unix(),
		"aud": s.config.CompanyID,
		"sub": s.config.UserID,
		"iss": s.config.Issuer,
		"jti": uuid.NewString() + "." + fingerprint(req),
	}

	token := jwt.NewWithClaims(s.method, claims)
	token.Header["kid"] = s.config.TokenID
	token.Header["kind"] = "single_use"

	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("signing single-use token: %w", err)
	}

	return "Bearer " + signed, nil
}

// fingerprint binds a token to one specific request:
// base64(sha256("{method}.{path+query}.{base64(sha256(body)) or empty}")).
// Bodyless requests contribute an empty string, not an empty-body digest.
func fingerprint(req *RequestInfo) string {
	bodyDigest := ""
	if len(req.Body) > 0 {
		sum := sha256.Sum256(req.Body)
		bodyDigest = base64.StdEncoding.EncodeToString(sum[:])
	}

	sum := sha256.Sum256([]byte(req.Method + "." + req.Path + "." + bodyDigest))

	return base64.StdEncoding.EncodeToString(sum[:])
}
