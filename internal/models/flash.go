package models

// Severity classifies a flash message.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityInfo    Severity = "info"
	SeverityError   Severity = "danger"
)

// Flash is a one-time message shown after a redirect.
type Flash struct {
	Severity Severity `json:"severity"`
	Text     string   `json:"text"`
}

// Outcome is the result of a mutating operation: where to redirect and
// which message, if any, to show there.
type Outcome struct {
	Location string
	Flash    *Flash
}
