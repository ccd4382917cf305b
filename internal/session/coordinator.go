// Package session implements the call session coordinator: the state
// machine that links the two legs of a call and drives translation, relay,
// and transcript persistence for every utterance.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/crosscall-ai/translation-relay/internal/model"
	"github.com/crosscall-ai/translation-relay/internal/store"
	"github.com/crosscall-ai/translation-relay/internal/translate"
	"github.com/crosscall-ai/translation-relay/pkg/logger"
	"github.com/crosscall-ai/translation-relay/pkg/metrics"
)

var (
	// ErrInvalidParty is returned for a setup event whose whichParty is
	// neither caller nor callee.
	ErrInvalidParty = errors.New("invalid whichParty value in setup event")

	// ErrUnknownConnection is returned for a prompt on a connection with
	// no stored record. The event cannot be processed without party state.
	ErrUnknownConnection = errors.New("no connection record for this channel")

	// ErrNotConnected is returned by a PushChannel when the target party's
	// channel is not open.
	ErrNotConnected = errors.New("target connection is not open")
)

// Notice strings spoken back to a party, authored in English and localized
// through the translation gateway.
const (
	waitNotice  = "Please wait while we configure translation services."
	begunNotice = "The translation session has begun."
)

// PushChannel delivers a relay message to a specific open party channel.
type PushChannel interface {
	Push(ctx context.Context, connectionID string, msg model.RelayMessage) error
}

// Dialer receives the activation signal that triggers the second leg. The
// full caller connection record tells the dialer which number to call, in
// which language, and which linkage ID to hand back.
type Dialer interface {
	RequestCalleeLeg(ctx context.Context, conn *model.Connection) error
}

// EventSink receives best-effort analytics events for relayed speech.
type EventSink interface {
	PublishSpeech(ctx context.Context, entry *model.TranscriptEntry) error
}

// Coordinator processes one lifecycle event at a time for one connection.
// Invocations are independent and short lived; the store is the only
// shared state.
type Coordinator struct {
	store   store.Store
	gateway *translate.Gateway
	push    PushChannel
	dialer  Dialer
	events  EventSink // optional
	logger  *logger.Logger
}

// NewCoordinator creates a call session coordinator.
func NewCoordinator(st store.Store, gw *translate.Gateway, push PushChannel, dialer Dialer, events EventSink, log *logger.Logger) *Coordinator {
	return &Coordinator{
		store:   st,
		gateway: gw,
		push:    push,
		dialer:  dialer,
		events:  events,
		logger:  log,
	}
}

// HandleEvent processes one lifecycle event for one connection. Errors are
// returned to the transport boundary, never panicked across it.
func (c *Coordinator) HandleEvent(ctx context.Context, connectionID string, evt *model.LifecycleEvent) error {
	var err error
	switch evt.Type {
	case model.EventTypeSetup:
		err = c.handleSetup(ctx, connectionID, evt)
	case model.EventTypePrompt:
		err = c.handlePrompt(ctx, connectionID, evt)
	case model.EventTypeInterrupt, model.EventTypeDTMF, model.EventTypeError:
		// Accepted and acknowledged; no state change or relay.
		c.logger.Debug("unhandled event type acknowledged",
			zap.String("connection_id", connectionID),
			zap.String("type", string(evt.Type)),
		)
	default:
		err = fmt.Errorf("unrecognized event type %q", evt.Type)
	}

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.RecordEvent(string(evt.Type), outcome)
	return err
}

// handleSetup creates this party's connection record. The caller's setup
// additionally emits the activation signal for the second leg; the
// callee's setup performs the link and announces the session to both
// parties.
func (c *Coordinator) handleSetup(ctx context.Context, connectionID string, evt *model.LifecycleEvent) error {
	conn := model.ConnectionFromSetup(evt)
	if !conn.WhichParty.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidParty, evt.CustomParameters[model.ParamWhichParty])
	}

	conn.ID = connectionID
	conn.CreatedAt = time.Now()

	// Both legs agree on the caller's connection ID as the conversation
	// ID: the callee carries it in its custom parameters, the caller is
	// the first leg and uses its own ID.
	conn.ParentConnectionID = evt.CustomParameters[model.ParamParentConnectionID]
	if conn.ParentConnectionID == "" {
		conn.ParentConnectionID = connectionID
	}

	if err := c.store.PutConnection(ctx, conn); err != nil {
		return fmt.Errorf("save connection: %w", err)
	}

	log := c.logger.WithConnection(connectionID, conn.ParentConnectionID)
	log.Info("party connection created",
		zap.String("which_party", string(conn.WhichParty)),
		zap.String("call_sid", conn.CallSid),
	)

	switch conn.WhichParty {
	case model.PartyCaller:
		if err := c.dialer.RequestCalleeLeg(ctx, conn); err != nil {
			return fmt.Errorf("request callee leg: %w", err)
		}
		return nil
	case model.PartyCallee:
		return c.linkLegs(ctx, conn, log)
	}
	return nil
}

// linkLegs updates the caller's record with the callee's settings, flips
// translation active on it, and sends both parties the localized
// session-begun notice. The callee's own record is already active from
// creation.
func (c *Coordinator) linkLegs(ctx context.Context, callee *model.Connection, log *logger.Logger) error {
	callerID := callee.TargetConnectionID
	if callerID == "" || callerID == model.TargetUnset {
		return errors.New("callee setup missing caller connection linkage")
	}

	caller, err := c.store.LinkCaller(ctx, callerID, model.TargetLink{
		TargetConnectionID:          callee.ID,
		TargetLanguage:              callee.SourceLanguage,
		TargetLanguageCode:          callee.SourceLanguageCode,
		TargetTranscriptionProvider: callee.SourceTranscriptionProvider,
		TargetTTSProvider:           callee.SourceTTSProvider,
		TargetVoice:                 callee.SourceVoice,
		TargetCallSid:               callee.CallSid,
	})
	if err != nil {
		return fmt.Errorf("link caller %s: %w", callerID, err)
	}

	log.Info("legs linked, translation active",
		zap.String("caller_connection_id", caller.ID),
		zap.String("caller_language", caller.SourceLanguageCode),
		zap.String("callee_language", callee.SourceLanguageCode),
	)

	if err := c.sendNotice(ctx, callee.ID, begunNotice, callee.SourceLanguageCode); err != nil {
		return err
	}
	return c.sendNotice(ctx, caller.ID, begunNotice, caller.SourceLanguageCode)
}

// handlePrompt translates one utterance and relays it to the other leg,
// or sends a wait notice when the conversation is not yet linked.
func (c *Coordinator) handlePrompt(ctx context.Context, connectionID string, evt *model.LifecycleEvent) error {
	party, err := c.store.GetConnection(ctx, connectionID)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrUnknownConnection, connectionID)
	}
	if err != nil {
		return fmt.Errorf("load connection: %w", err)
	}

	// Before linking there is nobody to relay to: tell this party to
	// hold on, in their own language. No transcript is written.
	if !party.TranslationActive {
		return c.sendNotice(ctx, connectionID, waitNotice, party.SourceLanguageCode)
	}

	// A peer already recorded as gone gets no further relay attempts;
	// dropping here saves the provider call too.
	target, err := c.store.GetConnection(ctx, party.TargetConnectionID)
	if err == nil && target.CallStatus == model.CallStatusDisconnected {
		c.logger.Warn("relay target already disconnected, utterance dropped",
			zap.String("connection_id", connectionID),
			zap.String("target_connection_id", party.TargetConnectionID),
		)
		return nil
	}

	result, err := c.gateway.Translate(ctx, evt.VoicePrompt, party.SourceLanguageCode, party.TargetLanguageCode)
	if err != nil {
		return fmt.Errorf("translate utterance: %w", err)
	}

	if err := c.push.Push(ctx, party.TargetConnectionID, model.TextMessage(result.TranslatedText)); err != nil {
		if errors.Is(err, ErrNotConnected) {
			// The peer is gone. Mark it so and stop relaying rather than
			// failing the event for the surviving party.
			_ = c.store.MarkDisconnected(ctx, party.TargetConnectionID)
			metrics.PushFailuresTotal.Inc()
			c.logger.Warn("relay target disconnected, utterance dropped",
				zap.String("connection_id", connectionID),
				zap.String("target_connection_id", party.TargetConnectionID),
			)
			return nil
		}
		metrics.PushFailuresTotal.Inc()
		return fmt.Errorf("push to target %s: %w", party.TargetConnectionID, err)
	}
	metrics.RelaysTotal.WithLabelValues(string(party.WhichParty)).Inc()

	ts, seq := store.NewStamp()
	entry := &model.TranscriptEntry{
		ParentConnectionID:     party.ParentConnectionID,
		TS:                     ts,
		Seq:                    seq,
		WhichParty:             party.WhichParty,
		PartyConnectionID:      party.ID,
		Original:               evt.VoicePrompt,
		OriginalLanguageCode:   result.SourceLanguageCode,
		Translated:             result.TranslatedText,
		TranslatedLanguageCode: result.TargetLanguageCode,
		SpokenAt:               time.UnixMilli(ts),
	}
	if err := c.store.AppendTranscript(ctx, entry); err != nil {
		return fmt.Errorf("append transcript: %w", err)
	}
	metrics.TranscriptAppendsTotal.Inc()

	if c.events != nil {
		if err := c.events.PublishSpeech(ctx, entry); err != nil {
			c.logger.Warn("speech event publish failed", zap.Error(err))
		}
	}
	return nil
}

// HandleDisconnect marks a connection disconnected when its channel
// closes. A close before setup leaves no record, which is fine.
func (c *Coordinator) HandleDisconnect(ctx context.Context, connectionID string) error {
	err := c.store.MarkDisconnected(ctx, connectionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("mark disconnected: %w", err)
	}
	c.logger.Info("party connection closed", zap.String("connection_id", connectionID))
	return nil
}

// sendNotice localizes a notice for a party and pushes it to their
// channel. English targets skip the gateway entirely.
func (c *Coordinator) sendNotice(ctx context.Context, connectionID, notice, languageCode string) error {
	result, err := c.gateway.Translate(ctx, notice, "en", languageCode)
	if err != nil {
		return fmt.Errorf("localize notice: %w", err)
	}
	if err := c.push.Push(ctx, connectionID, model.TextMessage(result.TranslatedText)); err != nil {
		metrics.PushFailuresTotal.Inc()
		return fmt.Errorf("push notice to %s: %w", connectionID, err)
	}
	return nil
}
