//
//
package auth

import (
	"crypto/rsa"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// VerifierConfig holds configuration for JWT verification.
type VerifierConfig struct {
	Algorithm    string // "HS256" or "RS256"
	SecretKey    string
	PublicKeyPEM string
}

// Verifier checks token signatures and extracts claims.
type Verifier struct {
	config    VerifierConfig
	publicKey *rsa.PublicKey
}

// NewVerifier creates a new JWT verifier.
func NewVerifier(config VerifierConfig) (*Verifier, error) {
	v := &Verifier{config: config}

	switch config.Algorithm {
	case "HS256":
		if config.SecretKey == "" {
			return nil, fmt.Errorf("HS256 requires secret key")
		}
	case "RS256":
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(config.PublicKeyPEM))
		if err != nil {
			return nil, fmt.Errorf("failed to load public key from PEM: %w", err)
		}
		v.publicKey = key
	default:
		return nil, fmt.Errorf("unsupported algorithm: %s", config.Algorithm)
	}

	return v, nil
}

// VerifyToken verifies a JWT token and returns the claims.
func (v *Verifier) VerifyToken(tokenString string) (*Claims, error) {
	if strings.TrimSpace(tokenString) == "" {
		return nil, fmt.Errorf("token cannot be empty")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != v.config.Algorithm {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		if v.publicKey != nil {
			return v.publicKey, nil
		}
		return []byte(v.config.SecretKey), nil
	}, jwt.WithValidMethods([]string{v.config.Algorithm}))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}
	return extractClaims(claims)
}

// extractClaims reads sub and scopes. Scopes may be a JSON array or a
// space-separated "scope" string.
func extractClaims(claims jwt.MapClaims) (*Claims, error) {
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return nil, fmt.Errorf("missing or invalid 'sub' claim")
	}

	result := &Claims{Subject: sub}
	switch scopes := claims["scopes"].(type) {
	case []interface{}:
		for _, s := range scopes {
			if str, ok := s.(string); ok {
				result.Scopes = append(result.Scopes, str)
			}
		}
	case string:
		result.Scopes = strings.Fields(scopes)
	}
	if len(result.Scopes) == 0 {
		if scope, ok := claims["scope"].(string); ok {
			result.Scopes = strings.Fields(scope)
		}
	}

	return result, nil
}
