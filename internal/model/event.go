package model

import (
	"strconv"
)

// EventType is the type of a party-channel lifecycle event.
type EventType string

const (
	EventTypeSetup     EventType = "setup"
	EventTypePrompt    EventType = "prompt"
	EventTypeInterrupt EventType = "interrupt"
	EventTypeDTMF      EventType = "dtmf"
	EventTypeError     EventType = "error"
)

// LifecycleEvent is the inbound envelope for one message on a party's
// channel. CustomParameters is present on setup only, VoicePrompt on
// prompt only.
type LifecycleEvent struct {
	Type             EventType         `json:"type"`
	CallSid          string            `json:"callSid,omitempty"`
	Direction        string            `json:"direction,omitempty"`
	CustomParameters map[string]string `json:"customParameters,omitempty"`
	VoicePrompt      string            `json:"voicePrompt,omitempty"`

	// Unhandled event payloads, accepted but not acted on.
	UtteranceUntilInterrupt  string `json:"utteranceUntilInterrupt,omitempty"`
	DurationUntilInterruptMs string `json:"durationUntilInterruptMs,omitempty"`
	Digit                    string `json:"digit,omitempty"`
	Description              string `json:"description,omitempty"`
}

// RelayMessage is the outbound relay message spoken back on a party's
// channel by the call platform.
type RelayMessage struct {
	Type  string `json:"type"`
	Token string `json:"token"`
	Last  bool   `json:"last"`
}

// TextMessage builds the standard text relay message.
func TextMessage(token string) RelayMessage {
	return RelayMessage{Type: "text", Token: token, Last: true}
}

// ErrorReply is the structured error sent back on the channel that
// produced a failing event.
type ErrorReply struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// Custom parameter keys carried in the setup event. The dialer writes
// these into the callee leg's TwiML and the setup handler reads them back,
// so both legs agree on linkage.
const (
	ParamWhichParty                  = "whichParty"
	ParamParentConnectionID          = "parentConnectionId"
	ParamTargetConnectionID          = "targetConnectionId"
	ParamTranslationActive           = "translationActive"
	ParamTo                          = "To"
	ParamFrom                        = "From"
	ParamAccountSid                  = "AccountSid"
	ParamCreator                     = "creator"
	ParamSourceLanguage              = "sourceLanguage"
	ParamSourceLanguageCode          = "sourceLanguageCode"
	ParamSourceTranscriptionProvider = "sourceTranscriptionProvider"
	ParamSourceTTSProvider           = "sourceTtsProvider"
	ParamSourceVoice                 = "sourceVoice"
	ParamTargetLanguage              = "targetLanguage"
	ParamTargetLanguageCode          = "targetLanguageCode"
	ParamTargetTranscriptionProvider = "targetTranscriptionProvider"
	ParamTargetTTSProvider           = "targetTtsProvider"
	ParamTargetVoice                 = "targetVoice"
	ParamTargetCallSid               = "targetCallSid"
)

// ConnectionFromSetup builds a Connection record from a setup event's
// envelope and custom parameters. The connection ID and parent linkage are
// filled in by the coordinator.
func ConnectionFromSetup(evt *LifecycleEvent) *Connection {
	p := evt.CustomParameters
	active, _ := strconv.ParseBool(p[ParamTranslationActive])

	return &Connection{
		WhichParty:        Party(p[ParamWhichParty]),
		TranslationActive: active,
		CallStatus:        CallStatusConnected,
		CallSid:           evt.CallSid,
		Direction:         evt.Direction,
		From:              p[ParamFrom],
		To:                p[ParamTo],
		AccountSid:        p[ParamAccountSid],
		Creator:           p[ParamCreator],

		SourceLanguage:              p[ParamSourceLanguage],
		SourceLanguageCode:          p[ParamSourceLanguageCode],
		SourceTranscriptionProvider: p[ParamSourceTranscriptionProvider],
		SourceTTSProvider:           p[ParamSourceTTSProvider],
		SourceVoice:                 p[ParamSourceVoice],

		TargetConnectionID:          orUnset(p[ParamTargetConnectionID]),
		TargetLanguage:              orUnset(p[ParamTargetLanguage]),
		TargetLanguageCode:          orUnset(p[ParamTargetLanguageCode]),
		TargetTranscriptionProvider: orUnset(p[ParamTargetTranscriptionProvider]),
		TargetTTSProvider:           orUnset(p[ParamTargetTTSProvider]),
		TargetVoice:                 orUnset(p[ParamTargetVoice]),
		TargetCallSid:               orUnset(p[ParamTargetCallSid]),
	}
}

func orUnset(v string) string {
	if v == "" {
		return TargetUnset
	}
	return v
}
