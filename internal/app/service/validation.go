package service

import (
	"net/url"
	"strings"
	"unicode/utf8"
)

// MaxNameLength is the longest URL accepted, in characters.
const MaxNameLength = 255

const (
	msgRequired = "URL is required"
	msgTooLong  = "URL exceeds 255 characters"
	msgInvalid  = "Invalid URL"
)

// ValidationError carries a message meant for the user.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// NormalizeName validates a submitted URL and returns the form it is
// stored under: the trimmed input with scheme and host lowercased. The
// rest of the URL is kept exactly as submitted.
func NormalizeName(raw string) (string, error) {
	name := strings.TrimSpace(raw)

	if name == "" {
		return "", &ValidationError{Msg: msgRequired}
	}

	if utf8.RuneCountInString(name) > MaxNameLength {
		return "", &ValidationError{Msg: msgTooLong}
	}

	u, err := url.Parse(name)
	if err != nil || u.Opaque != "" || u.Hostname() == "" {
		return "", &ValidationError{Msg: msgInvalid}
	}

	// url.Parse lowercases the scheme
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", &ValidationError{Msg: msgInvalid}
	}

	rest := name[len(u.Scheme)+1:]
	if !strings.HasPrefix(rest, "//") {
		return "", &ValidationError{Msg: msgInvalid}
	}
	rest = rest[2:]

	end := strings.IndexAny(rest, "/?#")
	if end < 0 {
		end = len(rest)
	}
	authority, tail := rest[:end], rest[end:]

	// userinfo keeps its case
	host := authority
	userinfo := ""
	if at := strings.LastIndex(authority, "@"); at >= 0 {
		userinfo, host = authority[:at+1], authority[at+1:]
	}

	return u.Scheme + "://" + userinfo + strings.ToLower(host) + tail, nil
}
