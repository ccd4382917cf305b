package model

import (
	"time"
)

// VoiceSettings bundles the spoken language, voice, and provider selection
// for one party.
type VoiceSettings struct {
	Name                  string `json:"name,omitempty"`
	Language              string `json:"language"`
	LanguageCode          string `json:"languageCode"`
	LanguageFriendly      string `json:"languageFriendly,omitempty"`
	TranscriptionProvider string `json:"transcriptionProvider"`
	TTSProvider           string `json:"ttsProvider"`
	Voice                 string `json:"voice"`
}

// Profile is the per-phone-number identity record. It carries the owner's
// own settings for when they are the caller plus the default callee target
// to dial for the second leg. Read-only to the coordinator.
type Profile struct {
	PhoneNumber string `json:"phoneNumber"`
	DisplayName string `json:"displayName,omitempty"`

	Caller VoiceSettings `json:"caller"`

	// Fixed callee target. CalleeDetails selects these over the shared
	// defaults when dialing the second leg.
	CalleeDetails bool          `json:"calleeDetails"`
	CalleeNumber  string        `json:"calleeNumber,omitempty"`
	Callee        VoiceSettings `json:"callee"`

	// Alternate routing to a shared queue number instead of CalleeNumber.
	UseQueue    bool   `json:"useQueue,omitempty"`
	QueueNumber string `json:"queueNumber,omitempty"`

	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// UpsertProfileRequest is the request body for profile create/update.
type UpsertProfileRequest struct {
	PhoneNumber   string        `json:"phoneNumber"`
	DisplayName   string        `json:"displayName,omitempty"`
	Caller        VoiceSettings `json:"caller"`
	CalleeDetails bool          `json:"calleeDetails"`
	CalleeNumber  string        `json:"calleeNumber,omitempty"`
	Callee        VoiceSettings `json:"callee"`
	UseQueue      bool          `json:"useQueue,omitempty"`
	QueueNumber   string        `json:"queueNumber,omitempty"`
}

// ListProfilesResponse is the response for listing profiles.
type ListProfilesResponse struct {
	Profiles []Profile `json:"profiles"`
	Total    int       `json:"total"`
}
