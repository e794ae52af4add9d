// Package types defines the wire models exchanged with the grid directory
// and the local records gridlink keeps about access point sightings.
package types

import (
	"encoding/json"
	"time"
)

// Version is the current version of gridlink
const Version = "0.3.0"

// BuildTime is set at build time via -ldflags
var BuildTime = "dev"

// Unit is a participant enrolled in the directory.
type Unit struct {
	Fingerprint string          `json:"fingerprint"`
	Name        string          `json:"name"`
	Country     string          `json:"country,omitempty"`
	PublicKey   string          `json:"public_key,omitempty"` // base64 SPKI PEM
	Data        json.RawMessage `json:"data,omitempty"`       // free-form data supplied at enrollment
	Networks    int             `json:"networks,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// UnitsPage is one page of the unit listing.
type UnitsPage struct {
	Pages   int    `json:"pages"`
	Records int    `json:"records"`
	Units   []Unit `json:"units"`
}

// CountryCount is one row of the units-by-country summary.
type CountryCount struct {
	Country string `json:"country"`
	Units   int    `json:"units"`
}

// Mark is the state a message can be moved to.
type Mark string

const (
	MarkSeen    Mark = "seen"
	MarkUnseen  Mark = "unseen"
	MarkDeleted Mark = "deleted"
)

// Valid reports whether m is one of the marks the directory accepts.
func (m Mark) Valid() bool {
	switch m {
	case MarkSeen, MarkUnseen, MarkDeleted:
		return true
	}
	return false
}

// Message is a mailbox entry. Data is encrypted for the recipient and is
// returned as-is.
type Message struct {
	ID         int        `json:"id"`
	Sender     string     `json:"sender"` // sender fingerprint
	SenderName string     `json:"sender_name"`
	Data       string     `json:"data,omitempty"`
	Signature  string     `json:"signature,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	SeenAt     *time.Time `json:"seen_at,omitempty"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty"`
}

// MessagesPage is one page of the inbox listing.
type MessagesPage struct {
	Pages    int       `json:"pages"`
	Records  int       `json:"records"`
	Messages []Message `json:"messages"`
}

// OutboundMessage is the body posted to a recipient's inbox.
type OutboundMessage struct {
	Data      string `json:"data"`
	Signature string `json:"signature"`
}

// EnrollmentRequest is the self-asserted identity sent to obtain a token.
// Only Identity is covered by Signature.
type EnrollmentRequest struct {
	Identity  string `json:"identity"`
	PublicKey string `json:"public_key"` // base64 SPKI PEM
	Signature string `json:"signature"`
	Data      any    `json:"data,omitempty"`
}

// EnrollmentResponse carries the session token.
type EnrollmentResponse struct {
	Token string `json:"token"`
}

// AccessPoint is a wireless network observation.
type AccessPoint struct {
	ESSID string `json:"essid" validate:"max=32"`
	BSSID string `json:"bssid" validate:"required,mac"`
}

// Sighting is an access point recorded locally until it is reported.
type Sighting struct {
	ID         string     `json:"id"`
	ESSID      string     `json:"essid"`
	BSSID      string     `json:"bssid"`
	SeenAt     time.Time  `json:"seen_at"`
	ReportedAt *time.Time `json:"reported_at,omitempty"`
}

// AccessPoint returns the wire form of the sighting.
func (s Sighting) AccessPoint() AccessPoint {
	return AccessPoint{ESSID: s.ESSID, BSSID: s.BSSID}
}
