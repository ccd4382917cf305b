package dialer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/crosscall-ai/translation-relay/internal/model"
	"github.com/crosscall-ai/translation-relay/internal/settings"
	"github.com/crosscall-ai/translation-relay/internal/store"
	"github.com/crosscall-ai/translation-relay/internal/translate"
	"github.com/crosscall-ai/translation-relay/pkg/logger"
)

type placedCall struct {
	from, to, twiml string
}

type fakePlacer struct {
	placed []placedCall
	err    error
}

func (f *fakePlacer) PlaceCall(ctx context.Context, from, to, twiml string) (*Call, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.placed = append(f.placed, placedCall{from: from, to: to, twiml: twiml})
	return &Call{SID: "CAcallee"}, nil
}

type passthroughTranslator struct{}

func (passthroughTranslator) Translate(ctx context.Context, text, source, target string) (*translate.Result, error) {
	return &translate.Result{
		TranslatedText:     text,
		SourceLanguageCode: source,
		TargetLanguageCode: target,
	}, nil
}

func (passthroughTranslator) Name() string { return "passthrough" }

func activationCaller() *model.Connection {
	return &model.Connection{
		ID:                 "caller-1",
		WhichParty:         model.PartyCaller,
		ParentConnectionID: "caller-1",
		CallStatus:         model.CallStatusConnected,
		CallSid:            "CAcaller",
		From:               "+15550001111",
		To:                 "+15550002222",
		AccountSid:         "AC123",
		SourceLanguage:     "en-US",
		SourceLanguageCode: "en",
		SourceTTSProvider:  "Amazon",
		SourceVoice:        "Matthew-Generative",
	}
}

func newTestWorker(placer Placer, st store.Store) *Worker {
	gw := translate.NewGateway(passthroughTranslator{}, logger.NewNop())
	return NewWorker(Config{
		RelayWebSocketURL: "wss://relay.example.com/ws",
		DefaultFromNumber: "+15550000000",
		AgentPhoneNumber:  "+15557770000",
	}, st, settings.NewResolver(st), gw, placer, logger.NewNop())
}

func TestHandleActivationPlacesCalleeLeg(t *testing.T) {
	st := store.NewMemory(store.DefaultConfig())
	placer := &fakePlacer{}
	w := newTestWorker(placer, st)
	ctx := context.Background()

	w.HandleActivation(ctx, activationCaller())

	if len(placer.placed) != 1 {
		t.Fatalf("placed %d calls, want 1", len(placer.placed))
	}
	call := placer.placed[0]
	// The leg dials out from the number the caller reached.
	if call.from != "+15550002222" {
		t.Errorf("from = %q, want the caller-facing number", call.from)
	}
	if call.to != "+15557770000" {
		t.Errorf("to = %q, want the agent number", call.to)
	}

	// The TwiML carries the linkage back to the setup handler.
	for _, want := range []string{
		`name="whichParty" value="callee"`,
		`name="parentConnectionId" value="caller-1"`,
		`name="targetConnectionId" value="caller-1"`,
		`name="translationActive" value="true"`,
		`name="targetLanguageCode" value="en"`,
		`name="targetVoice" value="Matthew-Generative"`,
		`name="targetCallSid" value="CAcaller"`,
		`url="wss://relay.example.com/ws"`,
	} {
		if !strings.Contains(call.twiml, want) {
			t.Errorf("twiml missing %q:\n%s", want, call.twiml)
		}
	}

	link, err := st.GetProxyLink(ctx, "+15550002222")
	if err != nil {
		t.Fatalf("GetProxyLink: %v", err)
	}
	if link.CallerCallSid != "CAcaller" || link.CalleeCallSid != "CAcallee" {
		t.Errorf("proxy link = %+v", link)
	}
}

func TestHandleActivationUsesProfileCallee(t *testing.T) {
	st := store.NewMemory(store.DefaultConfig())
	ctx := context.Background()
	if err := st.PutProfile(ctx, &model.Profile{
		PhoneNumber:   "+15550001111",
		CalleeDetails: true,
		CalleeNumber:  "+15550009999",
		Callee: model.VoiceSettings{
			Language:     "es-MX",
			LanguageCode: "es-MX",
			Voice:        "Lupe-Generative",
		},
	}); err != nil {
		t.Fatalf("PutProfile: %v", err)
	}

	placer := &fakePlacer{}
	w := newTestWorker(placer, st)
	w.HandleActivation(ctx, activationCaller())

	if len(placer.placed) != 1 {
		t.Fatalf("placed %d calls, want 1", len(placer.placed))
	}
	if placer.placed[0].to != "+15550009999" {
		t.Errorf("to = %q, want the profile callee", placer.placed[0].to)
	}
	if !strings.Contains(placer.placed[0].twiml, `voice="Lupe-Generative"`) {
		t.Errorf("callee voice missing from twiml:\n%s", placer.placed[0].twiml)
	}
}

func TestHandleActivationFallsBackToDefaultFrom(t *testing.T) {
	st := store.NewMemory(store.DefaultConfig())
	placer := &fakePlacer{}
	w := newTestWorker(placer, st)

	caller := activationCaller()
	caller.To = ""
	w.HandleActivation(context.Background(), caller)

	if len(placer.placed) != 1 {
		t.Fatalf("placed %d calls, want 1", len(placer.placed))
	}
	if placer.placed[0].from != "+15550000000" {
		t.Errorf("from = %q, want default from number", placer.placed[0].from)
	}
}

func TestHandleActivationPlacerFailure(t *testing.T) {
	st := store.NewMemory(store.DefaultConfig())
	placer := &fakePlacer{err: errors.New("twilio 503")}
	w := newTestWorker(placer, st)
	ctx := context.Background()

	// Failure is logged, not propagated, and leaves no proxy link.
	w.HandleActivation(ctx, activationCaller())

	if _, err := st.GetProxyLink(ctx, "+15550002222"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("proxy link written despite failed placement: err = %v", err)
	}
}
