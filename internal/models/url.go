// Package models defines the entities persisted by the analyzer and the
// values exchanged between the service and the HTTP layer.
package models

import "time"

// URL is a registered web address.
type URL struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Check is one recorded probe against a URL. StatusCode is nil when the
// probe failed before a response was received.
type Check struct {
	ID         int64     `json:"id"`
	URLID      int64     `json:"url_id"`
	StatusCode *int      `json:"status_code"`
	CreatedAt  time.Time `json:"created_at"`
}

// URLWithLatestCheck pairs a URL with its most recent check, if any.
type URLWithLatestCheck struct {
	URL
	LatestCheck *Check `json:"latest_check"`
}

// Stats holds row counts reported by the internal stats endpoint.
type Stats struct {
	URLs   int `json:"urls"`
	Checks int `json:"checks"`
}

// URLDetails is a URL together with its full check history, newest first.
type URLDetails struct {
	URL    URL     `json:"url"`
	Checks []Check `json:"checks"`
}
