// Package settings resolves language, voice, and provider selection for a
// party from their profile.
package settings

import (
	"context"
	"errors"

	"github.com/crosscall-ai/translation-relay/internal/model"
	"github.com/crosscall-ai/translation-relay/internal/store"
)

// DefaultCaller is the settings bundle used when a caller has no profile.
func DefaultCaller() model.VoiceSettings {
	return model.VoiceSettings{
		Name:                  "Guest",
		Language:              "en-US",
		LanguageCode:          "en",
		LanguageFriendly:      "English - United States",
		TranscriptionProvider: "Deepgram",
		TTSProvider:           "Amazon",
		Voice:                 "Matthew-Generative",
	}
}

// DefaultCallee is the settings bundle used when no callee target can be
// resolved.
func DefaultCallee() model.VoiceSettings {
	return model.VoiceSettings{
		Name:                  "Agent",
		Language:              "es-MX",
		LanguageCode:          "es-MX",
		LanguageFriendly:      "Spanish - Mexico",
		TranscriptionProvider: "Deepgram",
		TTSProvider:           "Amazon",
		Voice:                 "Lupe-Generative",
	}
}

// Resolver looks up per-phone-number settings with fixed fallbacks.
// Absence of a profile is a normal case, never an error.
type Resolver struct {
	store store.Store
}

// NewResolver creates a settings resolver.
func NewResolver(st store.Store) *Resolver {
	return &Resolver{store: st}
}

// CallerContext is the resolved configuration for an inbound caller.
type CallerContext struct {
	Settings model.VoiceSettings
	Profile  *model.Profile // nil when no profile exists
}

// ResolveCaller returns the caller's settings for a phone number, falling
// back to defaults when no profile exists.
func (r *Resolver) ResolveCaller(ctx context.Context, phoneNumber string) (*CallerContext, error) {
	p, err := r.store.GetProfile(ctx, phoneNumber)
	if errors.Is(err, store.ErrNotFound) {
		return &CallerContext{Settings: DefaultCaller()}, nil
	}
	if err != nil {
		return nil, err
	}

	s := p.Caller
	if s.Name == "" {
		s.Name = p.DisplayName
	}
	return &CallerContext{Settings: s, Profile: p}, nil
}

// CalleeContext is the resolved target for the second leg.
type CalleeContext struct {
	Settings model.VoiceSettings
	Number   string
	UseQueue bool
}

// ResolveCallee determines who to dial for the second leg. The caller's
// profile wins when it carries callee details; the shared-queue flag
// redirects to the queue number; otherwise the agent profile or fixed
// defaults apply.
func (r *Resolver) ResolveCallee(ctx context.Context, callerNumber, queueNumber, agentNumber string) (*CalleeContext, error) {
	p, err := r.store.GetProfile(ctx, callerNumber)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	if p != nil && p.CalleeDetails {
		number := p.CalleeNumber
		if p.UseQueue {
			number = firstNonEmpty(p.QueueNumber, queueNumber)
		}
		return &CalleeContext{
			Settings: p.Callee,
			Number:   number,
			UseQueue: p.UseQueue,
		}, nil
	}

	// No targeting on the caller's profile: look for a shared agent
	// profile before falling back to defaults.
	agent, err := r.store.GetProfile(ctx, "agent")
	if err == nil {
		return &CalleeContext{
			Settings: agent.Caller,
			Number:   firstNonEmpty(agent.CalleeNumber, agentNumber),
		}, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	return &CalleeContext{Settings: DefaultCallee(), Number: agentNumber}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
