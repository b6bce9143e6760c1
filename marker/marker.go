package marker

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// DefaultCookieName is the cookie carrying the marker.
	DefaultCookieName = "SECRET_QUESTION_ANSWERED"
	// DefaultMaxAge applies when no max age is configured.
	DefaultMaxAge = 120 * time.Second

	plainValue = "true"
)

// Config controls marker issuance.
type Config struct {
	CookieName string
	Secure     bool
	SigningKey []byte
	Issuer     string
	Leeway     time.Duration
}

// Claims is the signed marker payload.
type Claims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// Issuer creates marker cookies and checks request cookies for a live marker.
// It holds no per-request state.
type Issuer struct {
	config Config
	now    func() time.Time
}

// New validates cfg and returns an [Issuer].
func New(cfg Config) (*Issuer, error) {
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultCookieName
	}
	if strings.ContainsAny(cfg.CookieName, " ;,=\t\r\n") {
		return nil, errors.New("invalid marker cookie name")
	}
	if len(cfg.SigningKey) > 0 && len(cfg.SigningKey) < 32 {
		return nil, errors.New("marker signing key must be >= 32 bytes")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid marker leeway")
	}
	return &Issuer{config: cfg, now: time.Now}, nil
}

// CookieName returns the configured cookie name.
func (i *Issuer) CookieName() string {
	return i.config.CookieName
}

// Signed reports whether markers carry a signed token.
func (i *Issuer) Signed() bool {
	return len(i.config.SigningKey) > 0
}

// Issue builds the marker cookie scoped to path and valid for maxAge.
func (i *Issuer) Issue(path string, maxAge time.Duration) (*http.Cookie, error) {
	if maxAge <= 0 {
		return nil, errors.New("marker max age must be > 0")
	}
	if path == "" {
		path = "/"
	}

	value := plainValue
	if i.Signed() {
		now := i.now()
		claims := Claims{
			Scope: path,
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(now.Add(maxAge)),
				IssuedAt:  jwt.NewNumericDate(now),
				Issuer:    i.config.Issuer,
			},
		}
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.config.SigningKey)
		if err != nil {
			return nil, fmt.Errorf("sign marker: %w", err)
		}
		value = signed
	}

	return &http.Cookie{
		Name:     i.config.CookieName,
		Value:    value,
		Path:     path,
		MaxAge:   int(maxAge / time.Second),
		Secure:   i.config.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}, nil
}

// Present reports whether cookies contain a live marker for path.
//
// Unsigned markers are trusted on presence alone; the browser enforces expiry.
func (i *Issuer) Present(cookies []*http.Cookie, path string) bool {
	for _, c := range cookies {
		if c == nil || c.Name != i.config.CookieName {
			continue
		}
		if !i.Signed() {
			if c.Value != "" {
				return true
			}
			continue
		}
		if i.verify(c.Value, path) == nil {
			return true
		}
	}
	return false
}

func (i *Issuer) verify(value, path string) error {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	}
	if i.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(i.config.Leeway))
	}
	if i.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(i.config.Issuer))
	}

	claims := &Claims{}
	token, err := jwt.NewParser(options...).ParseWithClaims(value, claims, func(t *jwt.Token) (interface{}, error) {
		return i.config.SigningKey, nil
	})
	if err != nil {
		return err
	}
	if !token.Valid {
		return jwt.ErrTokenInvalidClaims
	}
	if claims.Scope != path {
		return errors.New("marker scope mismatch")
	}
	return nil
}
