package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/crosscall-ai/translation-relay/internal/model"
	"github.com/crosscall-ai/translation-relay/internal/settings"
	"github.com/crosscall-ai/translation-relay/internal/translate"
	"github.com/crosscall-ai/translation-relay/internal/twiml"
	"github.com/crosscall-ai/translation-relay/pkg/logger"
)

const inboundGreeting = "Please wait while we connect you to a translator."

// InboundHandler answers the telephony webhook for a new inbound call with
// the TwiML that attaches the caller leg to the relay channel.
type InboundHandler struct {
	relayWebSocketURL string
	resolver          *settings.Resolver
	gateway           *translate.Gateway
	logger            *logger.Logger
}

// NewInboundHandler creates an inbound call handler.
func NewInboundHandler(relayWebSocketURL string, resolver *settings.Resolver, gw *translate.Gateway, log *logger.Logger) *InboundHandler {
	return &InboundHandler{
		relayWebSocketURL: relayWebSocketURL,
		resolver:          resolver,
		gateway:           gw,
		logger:            log,
	}
}

// Inbound handles POST /twiml/inbound
//
// The telephony platform posts standard call webhook form fields. The
// response attaches the caller to the relay channel with the custom
// parameters the setup event needs. Target fields stay unset until the
// callee leg links.
func (h *InboundHandler) Inbound(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form body")
		return
	}

	from := r.PostFormValue("From")
	to := r.PostFormValue("To")
	callSid := r.PostFormValue("CallSid")
	accountSid := r.PostFormValue("AccountSid")

	caller, err := h.resolver.ResolveCaller(ctx, from)
	if err != nil {
		h.logger.Error("failed to resolve caller settings",
			zap.String("from", from),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to resolve caller")
		return
	}

	greeting, err := h.gateway.Translate(ctx, inboundGreeting, "en", caller.Settings.LanguageCode)
	if err != nil {
		h.logger.Error("failed to localize greeting",
			zap.String("language_code", caller.Settings.LanguageCode),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to localize greeting")
		return
	}

	markup, err := twiml.Render(twiml.RelayConfig{
		URL:                   h.relayWebSocketURL,
		WelcomeGreeting:       greeting.TranslatedText,
		Language:              caller.Settings.Language,
		TranscriptionProvider: caller.Settings.TranscriptionProvider,
		TTSProvider:           caller.Settings.TTSProvider,
		Voice:                 caller.Settings.Voice,
	}, map[string]string{
		model.ParamWhichParty:        string(model.PartyCaller),
		model.ParamTranslationActive: "false",
		model.ParamTo:                to,
		model.ParamFrom:              from,
		model.ParamAccountSid:        accountSid,
		model.ParamCreator:           "client",

		model.ParamSourceLanguage:              caller.Settings.Language,
		model.ParamSourceLanguageCode:          caller.Settings.LanguageCode,
		model.ParamSourceTranscriptionProvider: caller.Settings.TranscriptionProvider,
		model.ParamSourceTTSProvider:           caller.Settings.TTSProvider,
		model.ParamSourceVoice:                 caller.Settings.Voice,

		model.ParamTargetLanguage:              model.TargetUnset,
		model.ParamTargetLanguageCode:          model.TargetUnset,
		model.ParamTargetTranscriptionProvider: model.TargetUnset,
		model.ParamTargetTTSProvider:           model.TargetUnset,
		model.ParamTargetVoice:                 model.TargetUnset,
	})
	if err != nil {
		h.logger.Error("failed to render twiml", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to render response")
		return
	}

	h.logger.Info("inbound call attached",
		zap.String("call_sid", callSid),
		zap.String("from", from),
		zap.String("to", to),
	)

	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	w.Write(markup)
}
