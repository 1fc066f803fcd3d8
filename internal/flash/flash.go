// Package flash stores one-time messages across a redirect. Messages are
// written by Put before redirecting and consumed by Pop on the next page.
package flash

import (
	"net/http"
	"time"

	"github.com/atinyakov/go-page-analyzer/internal/models"
)

// DefaultTTL is how long an unread message survives.
const DefaultTTL = 5 * time.Minute

// Store keeps at most one pending message per client.
type Store interface {
	Put(w http.ResponseWriter, r *http.Request, f models.Flash) error
	Pop(w http.ResponseWriter, r *http.Request) (*models.Flash, error)
}

func clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func setCookie(w http.ResponseWriter, name, value string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		Expires:  time.Now().Add(ttl),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
