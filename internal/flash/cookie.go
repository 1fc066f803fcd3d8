package flash

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/atinyakov/go-page-analyzer/internal/models"
)

// CookieName holds the signed message for CookieStore.
const CookieName = "flash"

// Claims is the payload of a flash cookie.
type Claims struct {
	jwt.RegisteredClaims
	Severity models.Severity `json:"severity"`
	Text     string          `json:"text"`
}

// CookieStore keeps the message itself in an HMAC-signed JWT cookie, so
// nothing is stored server side.
type CookieStore struct {
	secret []byte
	ttl    time.Duration
}

func NewCookieStore(secret string, ttl time.Duration) *CookieStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &CookieStore{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

func (s *CookieStore) Put(w http.ResponseWriter, _ *http.Request, f models.Flash) error {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.ttl)),
		},
		Severity: f.Severity,
		Text:     f.Text,
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return fmt.Errorf("sign flash: %w", err)
	}

	setCookie(w, CookieName, signed, s.ttl)
	return nil
}

// Pop returns the pending message and clears the cookie. A missing cookie
// is not an error; a tampered or expired one is.
func (s *CookieStore) Pop(w http.ResponseWriter, r *http.Request) (*models.Flash, error) {
	cookie, err := r.Cookie(CookieName)
	if errors.Is(err, http.ErrNoCookie) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	clearCookie(w, CookieName)

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(cookie.Value, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse flash: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("flash token is not valid")
	}

	return &models.Flash{Severity: claims.Severity, Text: claims.Text}, nil
}
