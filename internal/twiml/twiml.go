// Package twiml renders the call-platform markup that attaches a party
// leg to the relay's websocket channel.
package twiml

import (
	"encoding/xml"
	"sort"
)

// RelayConfig is the per-leg relay configuration rendered as attributes on
// the ConversationRelay element.
type RelayConfig struct {
	URL                   string
	WelcomeGreeting       string
	Language              string
	TranscriptionProvider string
	TTSProvider           string
	Voice                 string
	DTMFDetection         bool
	InterruptByDTMF       bool
}

type document struct {
	XMLName xml.Name `xml:"Response"`
	Connect connect  `xml:"Connect"`
}

type connect struct {
	Relay relayElement `xml:"ConversationRelay"`
}

type relayElement struct {
	URL                   string      `xml:"url,attr"`
	WelcomeGreeting       string      `xml:"welcomeGreeting,attr"`
	DTMFDetection         bool        `xml:"dtmfDetection,attr"`
	InterruptByDTMF       bool        `xml:"interruptByDtmf,attr"`
	Language              string      `xml:"language,attr"`
	TranscriptionProvider string      `xml:"transcriptionProvider,attr"`
	TTSProvider           string      `xml:"ttsProvider,attr"`
	Voice                 string      `xml:"voice,attr"`
	Parameters            []parameter `xml:"Parameter"`
}

type parameter struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// Render produces the TwiML document for one leg. The custom parameters
// are echoed back verbatim in that leg's setup event, which is how linkage
// and settings travel to the coordinator. Parameters render in sorted key
// order so output is deterministic.
func Render(cfg RelayConfig, customParams map[string]string) ([]byte, error) {
	keys := make([]string, 0, len(customParams))
	for k := range customParams {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	params := make([]parameter, 0, len(keys))
	for _, k := range keys {
		params = append(params, parameter{Name: k, Value: customParams[k]})
	}

	doc := document{
		Connect: connect{
			Relay: relayElement{
				URL:                   cfg.URL,
				WelcomeGreeting:       cfg.WelcomeGreeting,
				DTMFDetection:         cfg.DTMFDetection,
				InterruptByDTMF:       cfg.InterruptByDTMF,
				Language:              cfg.Language,
				TranscriptionProvider: cfg.TranscriptionProvider,
				TTSProvider:           cfg.TTSProvider,
				Voice:                 cfg.Voice,
				Parameters:            params,
			},
		},
	}

	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}
