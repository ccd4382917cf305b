package twiml

import (
	"strings"
	"testing"
)

func TestRender(t *testing.T) {
	out, err := Render(RelayConfig{
		URL:                   "wss://relay.example.com/ws",
		WelcomeGreeting:       "Please wait while we connect you to a translator.",
		Language:              "en-US",
		TranscriptionProvider: "Deepgram",
		TTSProvider:           "Amazon",
		Voice:                 "Matthew-Generative",
	}, map[string]string{
		"whichParty":        "caller",
		"translationActive": "false",
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	s := string(out)
	if !strings.HasPrefix(s, "<?xml") {
		t.Errorf("missing XML declaration: %q", s[:20])
	}
	for _, want := range []string{
		"<Response>",
		"<Connect>",
		`url="wss://relay.example.com/ws"`,
		`welcomeGreeting="Please wait while we connect you to a translator."`,
		`language="en-US"`,
		`transcriptionProvider="Deepgram"`,
		`ttsProvider="Amazon"`,
		`voice="Matthew-Generative"`,
		`<Parameter name="translationActive" value="false"`,
		`<Parameter name="whichParty" value="caller"`,
	} {
		if !strings.Contains(s, want) {
			t.Errorf("output missing %q:\n%s", want, s)
		}
	}
}

func TestRenderDeterministicParameterOrder(t *testing.T) {
	params := map[string]string{"c": "3", "a": "1", "b": "2"}

	first, err := Render(RelayConfig{URL: "wss://x/ws"}, params)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := Render(RelayConfig{URL: "wss://x/ws"}, params)
		if err != nil {
			t.Fatalf("Render: %v", err)
		}
		if string(again) != string(first) {
			t.Fatal("output varies across renders")
		}
	}

	s := string(first)
	if !(strings.Index(s, `name="a"`) < strings.Index(s, `name="b"`) &&
		strings.Index(s, `name="b"`) < strings.Index(s, `name="c"`)) {
		t.Errorf("parameters not in sorted key order:\n%s", s)
	}
}

func TestRenderEscapesValues(t *testing.T) {
	out, err := Render(RelayConfig{
		URL:             "wss://x/ws",
		WelcomeGreeting: `Bitte warten & "einen Moment" <Geduld>`,
	}, nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	s := string(out)
	if strings.Contains(s, `"einen`) || strings.Contains(s, "<Geduld>") {
		t.Errorf("attribute not escaped:\n%s", s)
	}
	if !strings.Contains(s, "&amp;") {
		t.Errorf("ampersand not escaped:\n%s", s)
	}
}
