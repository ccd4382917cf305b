package model

import (
	"time"
)

// TranscriptEntry is one relayed utterance in both languages. Entries are
// append-only and ordered by (TS, Seq); Seq disambiguates two utterances
// landing in the same millisecond.
type TranscriptEntry struct {
	ParentConnectionID string `json:"parentConnectionId"`
	TS                 int64  `json:"ts"`
	Seq                uint64 `json:"seq"`

	WhichParty        Party  `json:"whichParty"`
	PartyConnectionID string `json:"partyConnectionId"`

	Original               string `json:"original"`
	OriginalLanguageCode   string `json:"originalLanguageCode"`
	Translated             string `json:"translated"`
	TranslatedLanguageCode string `json:"translatedLanguageCode"`

	SpokenAt time.Time `json:"spokenAt"`
}

// TranscriptResponse is the response for retrieving a conversation
// transcript.
type TranscriptResponse struct {
	ParentConnectionID string            `json:"parentConnectionId"`
	Entries            []TranscriptEntry `json:"entries"`
}
