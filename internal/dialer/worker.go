package dialer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/crosscall-ai/translation-relay/internal/model"
	"github.com/crosscall-ai/translation-relay/internal/settings"
	"github.com/crosscall-ai/translation-relay/internal/store"
	"github.com/crosscall-ai/translation-relay/internal/translate"
	"github.com/crosscall-ai/translation-relay/internal/twiml"
	"github.com/crosscall-ai/translation-relay/pkg/logger"
	"github.com/crosscall-ai/translation-relay/pkg/metrics"
)

const calleeWelcome = "Initiating translation session."

// Config holds the dialer's routing settings.
type Config struct {
	RelayWebSocketURL string
	DefaultFromNumber string
	AgentPhoneNumber  string
	QueueNumber       string
}

// Worker turns activation signals into the outbound callee leg. It
// resolves who to dial from the caller's profile, renders the callee's
// TwiML with the linkage parameters, places the call, and records the
// proxy link pairing the two call SIDs.
type Worker struct {
	cfg      Config
	store    store.Store
	resolver *settings.Resolver
	gateway  *translate.Gateway
	placer   Placer
	logger   *logger.Logger
}

// NewWorker creates a dialer worker.
func NewWorker(cfg Config, st store.Store, resolver *settings.Resolver, gw *translate.Gateway, placer Placer, log *logger.Logger) *Worker {
	return &Worker{
		cfg:      cfg,
		store:    st,
		resolver: resolver,
		gateway:  gw,
		placer:   placer,
		logger:   log,
	}
}

// HandleActivation processes one activation signal. Failures are logged
// and counted; there is no redelivery beyond the stream's own.
func (w *Worker) HandleActivation(ctx context.Context, caller *model.Connection) {
	if err := w.placeCalleeLeg(ctx, caller); err != nil {
		metrics.DialRequestsTotal.WithLabelValues("error").Inc()
		w.logger.Error("failed to place callee leg",
			zap.String("parent_connection_id", caller.ParentConnectionID),
			zap.Error(err),
		)
		return
	}
	metrics.DialRequestsTotal.WithLabelValues("ok").Inc()
}

func (w *Worker) placeCalleeLeg(ctx context.Context, caller *model.Connection) error {
	callee, err := w.resolver.ResolveCallee(ctx, caller.From, w.cfg.QueueNumber, w.cfg.AgentPhoneNumber)
	if err != nil {
		return fmt.Errorf("resolve callee: %w", err)
	}
	if callee.Number == "" {
		return errors.New("no callee number available")
	}

	// Dial from the number the caller reached so the legs share a
	// caller-facing number; that number keys the proxy link.
	callFrom := caller.To
	if callFrom == "" {
		callFrom = w.cfg.DefaultFromNumber
	}

	welcome, err := w.gateway.Translate(ctx, calleeWelcome, "en", callee.Settings.LanguageCode)
	if err != nil {
		return fmt.Errorf("localize welcome: %w", err)
	}

	markup, err := twiml.Render(twiml.RelayConfig{
		URL:                   w.cfg.RelayWebSocketURL,
		WelcomeGreeting:       welcome.TranslatedText,
		Language:              callee.Settings.Language,
		TranscriptionProvider: callee.Settings.TranscriptionProvider,
		TTSProvider:           callee.Settings.TTSProvider,
		Voice:                 callee.Settings.Voice,
	}, calleeParams(caller, callee))
	if err != nil {
		return fmt.Errorf("render twiml: %w", err)
	}

	call, err := w.placer.PlaceCall(ctx, callFrom, callee.Number, string(markup))
	if err != nil {
		return fmt.Errorf("place call to %s: %w", callee.Number, err)
	}

	w.logger.Info("callee leg placed",
		zap.String("parent_connection_id", caller.ParentConnectionID),
		zap.String("callee_call_sid", call.SID),
		zap.String("callee_number", callee.Number),
		zap.Bool("queued", callee.UseQueue),
	)

	link := &model.ProxyLink{
		Number:        callFrom,
		CallerCallSid: caller.CallSid,
		CalleeCallSid: call.SID,
		CreatedAt:     time.Now(),
	}
	if err := w.store.PutProxyLink(ctx, link); err != nil {
		return fmt.Errorf("save proxy link: %w", err)
	}
	return nil
}

// calleeParams assembles the custom parameters for the callee leg. The
// caller's settings become the callee's target fields, and the caller's
// connection ID travels as both the conversation ID and the link target.
func calleeParams(caller *model.Connection, callee *settings.CalleeContext) map[string]string {
	return map[string]string{
		model.ParamWhichParty:         string(model.PartyCallee),
		model.ParamParentConnectionID: caller.ParentConnectionID,
		model.ParamTargetConnectionID: caller.ID,
		model.ParamTranslationActive:  "true",
		model.ParamTo:                 callee.Number,
		model.ParamFrom:               caller.To,
		model.ParamAccountSid:         caller.AccountSid,
		model.ParamCreator:            caller.Creator,

		model.ParamSourceLanguage:              callee.Settings.Language,
		model.ParamSourceLanguageCode:          callee.Settings.LanguageCode,
		model.ParamSourceTranscriptionProvider: callee.Settings.TranscriptionProvider,
		model.ParamSourceTTSProvider:           callee.Settings.TTSProvider,
		model.ParamSourceVoice:                 callee.Settings.Voice,

		model.ParamTargetLanguage:              caller.SourceLanguage,
		model.ParamTargetLanguageCode:          caller.SourceLanguageCode,
		model.ParamTargetTranscriptionProvider: caller.SourceTranscriptionProvider,
		model.ParamTargetTTSProvider:           caller.SourceTTSProvider,
		model.ParamTargetVoice:                 caller.SourceVoice,
		model.ParamTargetCallSid:               caller.CallSid,
	}
}
