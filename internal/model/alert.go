package model

import "time"

// AlertKind indicates what fired the alert.
type AlertKind string

const (
	AlertOpen      AlertKind = "OPEN"
	AlertThreshold AlertKind = "THRESHOLD"
	AlertClose     AlertKind = "CLOSE"
)

// Audience selects who receives an alert.
type Audience int

const (
	// AudienceAll is every configured chat plus every enabled subscriber.
	AudienceAll Audience = iota
	// AudienceDefault is the configured chats that are not subscribers.
	AudienceDefault
	// AudienceChat is the single chat in Alert.ChatID.
	AudienceChat
)

// Alert is one notification decided by the evaluator.
type Alert struct {
	ID        string
	Kind      AlertKind
	Audience  Audience
	ChatID    int64
	Price     int64
	Reference int64
	ChangePct float64 // vs Reference
	OpenPct   float64 // vs the day's open
	Quote     Quote
	FiredAt   time.Time
}
