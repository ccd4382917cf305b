package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/crosscall-ai/translation-relay/internal/model"
	"github.com/crosscall-ai/translation-relay/internal/store"
	"github.com/crosscall-ai/translation-relay/internal/translate"
	"github.com/crosscall-ai/translation-relay/pkg/logger"
)

// fakeTranslator tags translated text so tests can tell a provider call
// from a same-language pass-through.
type fakeTranslator struct {
	calls int
}

func (f *fakeTranslator) Translate(ctx context.Context, text, source, target string) (*translate.Result, error) {
	f.calls++
	return &translate.Result{
		TranslatedText:     "[" + target + "] " + text,
		SourceLanguageCode: source,
		TargetLanguageCode: target,
	}, nil
}

func (f *fakeTranslator) Name() string { return "fake" }

type pushedMessage struct {
	connectionID string
	msg          model.RelayMessage
}

type fakePush struct {
	pushed []pushedMessage
	closed map[string]bool
}

func (f *fakePush) Push(ctx context.Context, connectionID string, msg model.RelayMessage) error {
	if f.closed[connectionID] {
		return ErrNotConnected
	}
	f.pushed = append(f.pushed, pushedMessage{connectionID: connectionID, msg: msg})
	return nil
}

type fakeDialer struct {
	activations []*model.Connection
	err         error
}

func (f *fakeDialer) RequestCalleeLeg(ctx context.Context, conn *model.Connection) error {
	if f.err != nil {
		return f.err
	}
	copied := *conn
	f.activations = append(f.activations, &copied)
	return nil
}

type harness struct {
	store       store.Store
	push        *fakePush
	dialer      *fakeDialer
	translator  *fakeTranslator
	coordinator *Coordinator
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	st := store.NewMemory(store.DefaultConfig())
	push := &fakePush{closed: map[string]bool{}}
	dialer := &fakeDialer{}
	translator := &fakeTranslator{}
	gw := translate.NewGateway(translator, logger.NewNop())
	return &harness{
		store:       st,
		push:        push,
		dialer:      dialer,
		translator:  translator,
		coordinator: NewCoordinator(st, gw, push, dialer, nil, logger.NewNop()),
	}
}

func callerSetupEvent() *model.LifecycleEvent {
	return &model.LifecycleEvent{
		Type:      model.EventTypeSetup,
		CallSid:   "CA1111",
		Direction: "inbound",
		CustomParameters: map[string]string{
			model.ParamWhichParty:                  "caller",
			model.ParamTranslationActive:           "false",
			model.ParamFrom:                        "+15550001111",
			model.ParamTo:                          "+15550002222",
			model.ParamSourceLanguage:              "en-US",
			model.ParamSourceLanguageCode:          "en",
			model.ParamSourceTranscriptionProvider: "Deepgram",
			model.ParamSourceTTSProvider:           "Amazon",
			model.ParamSourceVoice:                 "Matthew-Generative",
		},
	}
}

func calleeSetupEvent(callerID string) *model.LifecycleEvent {
	return &model.LifecycleEvent{
		Type:      model.EventTypeSetup,
		CallSid:   "CA2222",
		Direction: "outbound-api",
		CustomParameters: map[string]string{
			model.ParamWhichParty:                  "callee",
			model.ParamParentConnectionID:          callerID,
			model.ParamTargetConnectionID:          callerID,
			model.ParamTranslationActive:           "true",
			model.ParamFrom:                        "+15550002222",
			model.ParamTo:                          "+15550003333",
			model.ParamSourceLanguage:              "es-MX",
			model.ParamSourceLanguageCode:          "es-MX",
			model.ParamSourceTranscriptionProvider: "Deepgram",
			model.ParamSourceTTSProvider:           "Amazon",
			model.ParamSourceVoice:                 "Lupe-Generative",
			model.ParamTargetLanguage:              "en-US",
			model.ParamTargetLanguageCode:          "en",
			model.ParamTargetTranscriptionProvider: "Deepgram",
			model.ParamTargetTTSProvider:           "Amazon",
			model.ParamTargetVoice:                 "Matthew-Generative",
			model.ParamTargetCallSid:               "CA1111",
		},
	}
}

// link drives both setup events so a test starts from an active session.
func (h *harness) link(t *testing.T, callerID, calleeID string) {
	t.Helper()
	ctx := context.Background()
	if err := h.coordinator.HandleEvent(ctx, callerID, callerSetupEvent()); err != nil {
		t.Fatalf("caller setup: %v", err)
	}
	if err := h.coordinator.HandleEvent(ctx, calleeID, calleeSetupEvent(callerID)); err != nil {
		t.Fatalf("callee setup: %v", err)
	}
	h.push.pushed = nil
}

func TestCallerSetupCreatesRecordAndSignalsDialer(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if err := h.coordinator.HandleEvent(ctx, "caller-1", callerSetupEvent()); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	conn, err := h.store.GetConnection(ctx, "caller-1")
	if err != nil {
		t.Fatalf("GetConnection: %v", err)
	}
	if conn.ParentConnectionID != "caller-1" {
		t.Errorf("parent = %q, want own connection ID", conn.ParentConnectionID)
	}
	if conn.TranslationActive {
		t.Error("translation active before link")
	}
	if conn.CallStatus != model.CallStatusConnected {
		t.Errorf("call status = %q, want connected", conn.CallStatus)
	}
	if conn.TargetLanguageCode != model.TargetUnset {
		t.Errorf("target language code = %q, want %q", conn.TargetLanguageCode, model.TargetUnset)
	}

	if len(h.dialer.activations) != 1 {
		t.Fatalf("activations = %d, want 1", len(h.dialer.activations))
	}
	if h.dialer.activations[0].ID != "caller-1" {
		t.Errorf("activation connection ID = %q", h.dialer.activations[0].ID)
	}
}

func TestSetupRejectsInvalidParty(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	evt := callerSetupEvent()
	evt.CustomParameters[model.ParamWhichParty] = "operator"

	err := h.coordinator.HandleEvent(ctx, "conn-1", evt)
	if !errors.Is(err, ErrInvalidParty) {
		t.Fatalf("err = %v, want ErrInvalidParty", err)
	}

	if _, err := h.store.GetConnection(ctx, "conn-1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("record was stored for invalid party: err = %v", err)
	}
	if len(h.dialer.activations) != 0 {
		t.Errorf("dialer signalled despite invalid setup")
	}
}

func TestCalleeSetupLinksCallerAndAnnounces(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if err := h.coordinator.HandleEvent(ctx, "caller-1", callerSetupEvent()); err != nil {
		t.Fatalf("caller setup: %v", err)
	}
	if err := h.coordinator.HandleEvent(ctx, "callee-1", calleeSetupEvent("caller-1")); err != nil {
		t.Fatalf("callee setup: %v", err)
	}

	caller, err := h.store.GetConnection(ctx, "caller-1")
	if err != nil {
		t.Fatalf("GetConnection: %v", err)
	}
	if !caller.TranslationActive {
		t.Error("caller not active after link")
	}
	if caller.TargetConnectionID != "callee-1" {
		t.Errorf("caller target = %q, want callee-1", caller.TargetConnectionID)
	}
	if caller.TargetLanguageCode != "es-MX" {
		t.Errorf("caller target language = %q, want es-MX", caller.TargetLanguageCode)
	}
	if caller.TargetVoice != "Lupe-Generative" {
		t.Errorf("caller target voice = %q", caller.TargetVoice)
	}
	if caller.TargetCallSid != "CA2222" {
		t.Errorf("caller target call SID = %q", caller.TargetCallSid)
	}

	// Both parties hear the session-begun notice in their own language.
	if len(h.push.pushed) != 2 {
		t.Fatalf("pushed %d notices, want 2", len(h.push.pushed))
	}
	byConn := map[string]string{}
	for _, p := range h.push.pushed {
		byConn[p.connectionID] = p.msg.Token
	}
	if !strings.HasPrefix(byConn["callee-1"], "[es-MX]") {
		t.Errorf("callee notice not localized: %q", byConn["callee-1"])
	}
	if byConn["caller-1"] == "" {
		t.Error("caller never received the begun notice")
	}
	// English caller: the gateway passes the notice through untranslated.
	if strings.HasPrefix(byConn["caller-1"], "[") {
		t.Errorf("caller notice went through the provider: %q", byConn["caller-1"])
	}
}

func TestDuplicateCalleeSetupDoesNotRelink(t *testing.T) {
	h := newHarness(t)
	h.link(t, "caller-1", "callee-1")

	err := h.coordinator.HandleEvent(context.Background(), "callee-2", calleeSetupEvent("caller-1"))
	if !errors.Is(err, store.ErrAlreadyLinked) {
		t.Fatalf("err = %v, want ErrAlreadyLinked", err)
	}

	caller, err := h.store.GetConnection(context.Background(), "caller-1")
	if err != nil {
		t.Fatalf("GetConnection: %v", err)
	}
	if caller.TargetConnectionID != "callee-1" {
		t.Errorf("caller target rewritten to %q", caller.TargetConnectionID)
	}
}

func TestPromptBeforeLinkSendsWaitNotice(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if err := h.coordinator.HandleEvent(ctx, "caller-1", callerSetupEvent()); err != nil {
		t.Fatalf("caller setup: %v", err)
	}
	h.push.pushed = nil

	evt := &model.LifecycleEvent{Type: model.EventTypePrompt, VoicePrompt: "hello?"}
	if err := h.coordinator.HandleEvent(ctx, "caller-1", evt); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	if len(h.push.pushed) != 1 {
		t.Fatalf("pushed %d messages, want 1", len(h.push.pushed))
	}
	if h.push.pushed[0].connectionID != "caller-1" {
		t.Errorf("wait notice went to %q, want the speaking party", h.push.pushed[0].connectionID)
	}

	entries, err := h.store.ListTranscript(ctx, "caller-1")
	if err != nil {
		t.Fatalf("ListTranscript: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("transcript written before link: %d entries", len(entries))
	}
}

func TestPromptRelaysTranslationAndWritesTranscript(t *testing.T) {
	h := newHarness(t)
	h.link(t, "caller-1", "callee-1")
	ctx := context.Background()

	evt := &model.LifecycleEvent{Type: model.EventTypePrompt, VoicePrompt: "where is the station"}
	if err := h.coordinator.HandleEvent(ctx, "caller-1", evt); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	if len(h.push.pushed) != 1 {
		t.Fatalf("pushed %d messages, want 1", len(h.push.pushed))
	}
	relayed := h.push.pushed[0]
	if relayed.connectionID != "callee-1" {
		t.Errorf("relayed to %q, want callee-1", relayed.connectionID)
	}
	if relayed.msg.Type != "text" || !relayed.msg.Last {
		t.Errorf("relay message = %+v, want terminal text message", relayed.msg)
	}
	if relayed.msg.Token != "[es-MX] where is the station" {
		t.Errorf("relayed token = %q", relayed.msg.Token)
	}

	entries, err := h.store.ListTranscript(ctx, "caller-1")
	if err != nil {
		t.Fatalf("ListTranscript: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("transcript entries = %d, want 1", len(entries))
	}
	e := entries[0]
	if e.WhichParty != model.PartyCaller || e.PartyConnectionID != "caller-1" {
		t.Errorf("attribution = %s/%s", e.WhichParty, e.PartyConnectionID)
	}
	if e.Original != "where is the station" || e.OriginalLanguageCode != "en" {
		t.Errorf("original = %q (%s)", e.Original, e.OriginalLanguageCode)
	}
	if e.Translated != "[es-MX] where is the station" || e.TranslatedLanguageCode != "es-MX" {
		t.Errorf("translated = %q (%s)", e.Translated, e.TranslatedLanguageCode)
	}
}

func TestRapidPromptsKeepDistinctTranscriptEntries(t *testing.T) {
	h := newHarness(t)
	h.link(t, "caller-1", "callee-1")
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		evt := &model.LifecycleEvent{
			Type:        model.EventTypePrompt,
			VoicePrompt: fmt.Sprintf("utterance %d", i),
		}
		if err := h.coordinator.HandleEvent(ctx, "caller-1", evt); err != nil {
			t.Fatalf("prompt %d: %v", i, err)
		}
	}

	entries, err := h.store.ListTranscript(ctx, "caller-1")
	if err != nil {
		t.Fatalf("ListTranscript: %v", err)
	}
	if len(entries) != 5 {
		t.Fatalf("transcript entries = %d, want 5", len(entries))
	}
	for i, e := range entries {
		if want := fmt.Sprintf("utterance %d", i); e.Original != want {
			t.Errorf("entry %d = %q, want %q; ordering lost", i, e.Original, want)
		}
	}
}

func TestPromptUnknownConnection(t *testing.T) {
	h := newHarness(t)

	evt := &model.LifecycleEvent{Type: model.EventTypePrompt, VoicePrompt: "anyone?"}
	err := h.coordinator.HandleEvent(context.Background(), "ghost", evt)
	if !errors.Is(err, ErrUnknownConnection) {
		t.Fatalf("err = %v, want ErrUnknownConnection", err)
	}
}

func TestPromptToClosedTargetDropsUtterance(t *testing.T) {
	h := newHarness(t)
	h.link(t, "caller-1", "callee-1")
	ctx := context.Background()

	h.push.closed["callee-1"] = true

	evt := &model.LifecycleEvent{Type: model.EventTypePrompt, VoicePrompt: "are you there"}
	if err := h.coordinator.HandleEvent(ctx, "caller-1", evt); err != nil {
		t.Fatalf("event failed for the surviving party: %v", err)
	}

	callee, err := h.store.GetConnection(ctx, "callee-1")
	if err != nil {
		t.Fatalf("GetConnection: %v", err)
	}
	if callee.CallStatus != model.CallStatusDisconnected {
		t.Errorf("callee status = %q, want disconnected", callee.CallStatus)
	}

	entries, err := h.store.ListTranscript(ctx, "caller-1")
	if err != nil {
		t.Fatalf("ListTranscript: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("dropped utterance still landed in transcript")
	}
}

func TestPromptAfterPeerDisconnectSkipsProvider(t *testing.T) {
	h := newHarness(t)
	h.link(t, "caller-1", "callee-1")
	ctx := context.Background()

	if err := h.coordinator.HandleDisconnect(ctx, "callee-1"); err != nil {
		t.Fatalf("HandleDisconnect: %v", err)
	}

	before := h.translator.calls
	evt := &model.LifecycleEvent{Type: model.EventTypePrompt, VoicePrompt: "hello?"}
	if err := h.coordinator.HandleEvent(ctx, "caller-1", evt); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	if h.translator.calls != before {
		t.Errorf("provider invoked %d times for a dead target", h.translator.calls-before)
	}
	if len(h.push.pushed) != 0 {
		t.Errorf("pushed %d messages to a dead target", len(h.push.pushed))
	}
	entries, err := h.store.ListTranscript(ctx, "caller-1")
	if err != nil {
		t.Fatalf("ListTranscript: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("dropped utterance still landed in transcript")
	}
}

func TestUnhandledEventTypesAcknowledged(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for _, typ := range []model.EventType{model.EventTypeInterrupt, model.EventTypeDTMF, model.EventTypeError} {
		if err := h.coordinator.HandleEvent(ctx, "conn-1", &model.LifecycleEvent{Type: typ}); err != nil {
			t.Errorf("%s: %v", typ, err)
		}
	}

	if err := h.coordinator.HandleEvent(ctx, "conn-1", &model.LifecycleEvent{Type: "bogus"}); err == nil {
		t.Error("unrecognized event type accepted")
	}
}

func TestHandleDisconnect(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if err := h.coordinator.HandleEvent(ctx, "caller-1", callerSetupEvent()); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := h.coordinator.HandleDisconnect(ctx, "caller-1"); err != nil {
		t.Fatalf("HandleDisconnect: %v", err)
	}

	conn, err := h.store.GetConnection(ctx, "caller-1")
	if err != nil {
		t.Fatalf("GetConnection: %v", err)
	}
	if conn.CallStatus != model.CallStatusDisconnected {
		t.Errorf("status = %q, want disconnected", conn.CallStatus)
	}

	// A close before setup leaves no record and no error.
	if err := h.coordinator.HandleDisconnect(ctx, "never-set-up"); err != nil {
		t.Errorf("disconnect without record: %v", err)
	}
}
