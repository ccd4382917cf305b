// Package model defines data structures for the translation relay.
package model

import (
	"time"
)

// Party identifies which side of a call leg a connection belongs to.
type Party string

const (
	PartyCaller Party = "caller"
	PartyCallee Party = "callee"
)

// Valid reports whether the party value is one of the two known legs.
func (p Party) Valid() bool {
	return p == PartyCaller || p == PartyCallee
}

// CallStatus is the lifecycle status of a party connection.
type CallStatus string

const (
	CallStatusConnected    CallStatus = "connected"
	CallStatusDisconnected CallStatus = "disconnected"
)

// TargetUnset is the sentinel value used for target fields before the
// second leg is linked.
const TargetUnset = "notset"

// Connection is the per-party state record for one call leg.
//
// The target* fields duplicate the other party's settings so the prompt
// hot path never needs a second lookup. ParentConnectionID is the caller's
// connection ID on both legs and identifies the logical conversation.
type Connection struct {
	ID                 string     `json:"id"`
	WhichParty         Party      `json:"whichParty"`
	ParentConnectionID string     `json:"parentConnectionId"`
	TargetConnectionID string     `json:"targetConnectionId"`
	TranslationActive  bool       `json:"translationActive"`
	CallStatus         CallStatus `json:"callStatus"`

	CallSid   string `json:"callSid"`
	Direction string `json:"direction"`

	// Telephony addressing for this leg.
	From       string `json:"from"`
	To         string `json:"to"`
	AccountSid string `json:"accountSid,omitempty"`
	Creator    string `json:"creator,omitempty"`

	// This party's own speech settings.
	SourceLanguage              string `json:"sourceLanguage"`
	SourceLanguageCode          string `json:"sourceLanguageCode"`
	SourceTranscriptionProvider string `json:"sourceTranscriptionProvider"`
	SourceTTSProvider           string `json:"sourceTtsProvider"`
	SourceVoice                 string `json:"sourceVoice"`

	// The other party's settings, mirrored at link time.
	TargetLanguage              string `json:"targetLanguage"`
	TargetLanguageCode          string `json:"targetLanguageCode"`
	TargetTranscriptionProvider string `json:"targetTranscriptionProvider"`
	TargetTTSProvider           string `json:"targetTtsProvider"`
	TargetVoice                 string `json:"targetVoice"`
	TargetCallSid               string `json:"targetCallSid"`

	CreatedAt time.Time `json:"createdAt"`
}

// TargetLink carries the callee-side values applied to the caller's record
// when the second leg arrives.
type TargetLink struct {
	TargetConnectionID          string
	TargetLanguage              string
	TargetLanguageCode          string
	TargetTranscriptionProvider string
	TargetTTSProvider           string
	TargetVoice                 string
	TargetCallSid               string
}

// ProxyLink pairs the two call SIDs of a leg pair for out-of-band
// correlation by the telephony layer. Keyed by the shared caller-facing
// number and short lived.
type ProxyLink struct {
	Number        string    `json:"number"`
	CallerCallSid string    `json:"callerCallSid"`
	CalleeCallSid string    `json:"calleeCallSid"`
	CreatedAt     time.Time `json:"createdAt"`
}
