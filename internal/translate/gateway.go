package translate

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/crosscall-ai/translation-relay/pkg/logger"
	"github.com/crosscall-ai/translation-relay/pkg/metrics"
)

const defaultAttemptTimeout = 2 * time.Second

// Gateway wraps a translation Client with the relay's call policy: the
// provider is skipped entirely when source and target are the same
// language, and a failed call gets one bounded retry. Relay latency is
// best effort, so there is no queueing beyond that.
type Gateway struct {
	client         Client
	logger         *logger.Logger
	attemptTimeout time.Duration
}

// NewGateway creates a translation gateway.
func NewGateway(client Client, log *logger.Logger) *Gateway {
	return &Gateway{
		client:         client,
		logger:         log,
		attemptTimeout: defaultAttemptTimeout,
	}
}

// Translate translates text from sourceCode to targetCode. When the two
// codes name the same language the text passes through untouched and the
// provider is never invoked.
func (g *Gateway) Translate(ctx context.Context, text, sourceCode, targetCode string) (*Result, error) {
	if SameLanguage(sourceCode, targetCode) {
		metrics.TranslationsTotal.WithLabelValues("skipped").Inc()
		return &Result{
			TranslatedText:     text,
			SourceLanguageCode: sourceCode,
			TargetLanguageCode: targetCode,
		}, nil
	}

	start := time.Now()
	res, err := g.translateOnce(ctx, text, sourceCode, targetCode)
	if err != nil {
		g.logger.Warn("translation attempt failed, retrying once",
			zap.String("source", sourceCode),
			zap.String("target", targetCode),
			zap.Error(err),
		)
		res, err = g.translateOnce(ctx, text, sourceCode, targetCode)
	}
	if err != nil {
		metrics.TranslationsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	metrics.TranslationsTotal.WithLabelValues("ok").Inc()
	metrics.TranslationDuration.WithLabelValues(g.client.Name()).Observe(time.Since(start).Seconds())
	return res, nil
}

func (g *Gateway) translateOnce(ctx context.Context, text, sourceCode, targetCode string) (*Result, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, g.attemptTimeout)
	defer cancel()
	return g.client.Translate(attemptCtx, text, sourceCode, targetCode)
}
