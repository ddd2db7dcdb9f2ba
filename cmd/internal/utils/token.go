package utils

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"strings"
	"sync"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

var ErrInvalidToken = errors.New("invalid authorization token")

// TokenData is what the rest of the app needs from a verified ID token.
type TokenData struct {
	Sub   string
	Email string
}

type idTokenClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

var verifier = &jwksCache{}

// InitTokenVerifier points token verification at the identity provider's
// JWKS document. Must be called before any route uses ParseTokenDataCtx.
func InitTokenVerifier(jwksURL string) {
	verifier.url = jwksURL
}

// ParseTokenDataCtx verifies the request's bearer ID token (RS256 against
// the provider's published keys) and extracts subject and email.
func ParseTokenDataCtx(c echo.Context) (*TokenData, error) {
	raw, err := BearerToken(c)
	if err != nil {
		return nil, err
	}

	claims := &idTokenClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, verifier.keyFor,
		jwt.WithValidMethods([]string{"RS256"}))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return &TokenData{Sub: claims.Subject, Email: claims.Email}, nil
}

// BearerToken pulls the raw bearer credential off the request.
func BearerToken(c echo.Context) (string, error) {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", ErrInvalidToken
	}
	return strings.TrimSpace(parts[1]), nil
}

// jwksCache caches the provider's RSA keys by kid and refetches once when
// a token arrives signed with an unknown key (rotation).
type jwksCache struct {
	url string

	mu   sync.RWMutex
	keys map[string]*rsa.PublicKey
}

func (j *jwksCache) keyFor(t *jwt.Token) (any, error) {
	kid, _ := t.Header["kid"].(string)
	if kid == "" {
		return nil, errors.New("token has no kid header")
	}

	j.mu.RLock()
	key := j.keys[kid]
	j.mu.RUnlock()
	if key != nil {
		return key, nil
	}

	if err := j.refresh(); err != nil {
		return nil, err
	}

	j.mu.RLock()
	defer j.mu.RUnlock()
	if key := j.keys[kid]; key != nil {
		return key, nil
	}
	return nil, errors.New("token signed with unknown key " + kid)
}

func (j *jwksCache) refresh() error {
	resp, err := http.Get(j.url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.New("jwks fetch failed: " + resp.Status)
	}

	var doc struct {
		Keys []struct {
			Kid string `json:"kid"`
			Kty string `json:"kty"`
			N   string `json:"n"`
			E   string `json:"e"`
		} `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return err
	}

	keys := make(map[string]*rsa.PublicKey, len(doc.Keys))
	for _, k := range doc.Keys {
		if k.Kty != "RSA" {
			continue
		}
		n, err := base64.RawURLEncoding.DecodeString(k.N)
		if err != nil {
			continue
		}
		e, err := base64.RawURLEncoding.DecodeString(k.E)
		if err != nil {
			continue
		}
		keys[k.Kid] = &rsa.PublicKey{
			N: new(big.Int).SetBytes(n),
			E: int(new(big.Int).SetBytes(e).Int64()),
		}
	}

	j.mu.Lock()
	j.keys = keys
	j.mu.Unlock()
	return nil
}
