// Package lambda adapts the HTTP router to API Gateway HTTP API (payload v2) events.
package lambda

import (
	"context"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"

	"github.com/dreschagin/photo-gallery/pkg/logger"
)

const defaultFlushTimeout = 2 * time.Second

// Flusher is implemented by buffered publishers (CloudWatch metrics and logs).
type Flusher interface {
	Flush(ctx context.Context) error
}

// Handler serves one API Gateway event through the shared http.Handler and
// flushes buffered telemetry before returning, since the sandbox may be frozen
// right after the response.
type Handler struct {
	adapter      *httpadapter.HandlerAdapterV2
	flushers     []Flusher
	flushTimeout time.Duration
	logger       *logger.Logger
}

func NewHandler(handler http.Handler, log *logger.Logger, flushers ...Flusher) *Handler {
	if log == nil {
		log = logger.NewNop()
	}

	active := make([]Flusher, 0, len(flushers))
	for _, f := range flushers {
		if f != nil {
			active = append(active, f)
		}
	}

	return &Handler{
		adapter:      httpadapter.NewV2(handler),
		flushers:     active,
		flushTimeout: defaultFlushTimeout,
		logger:       log,
	}
}

// Invoke is the function passed to lambda.Start.
func (h *Handler) Invoke(ctx context.Context, event events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	resp, err := h.adapter.ProxyWithContext(ctx, event)
	h.flush(ctx)
	return resp, err
}

func (h *Handler) flush(ctx context.Context) {
	if len(h.flushers) == 0 {
		return
	}

	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.flushTimeout)
	defer cancel()

	for _, f := range h.flushers {
		if err := f.Flush(flushCtx); err != nil {
			h.logger.Warn("Failed to flush telemetry", "error", err.Error())
		}
	}
}
