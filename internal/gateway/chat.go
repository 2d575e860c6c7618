package gateway

import (
	"context"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/osaurus-ai/osaurus/internal/apperr"
	"github.com/osaurus-ai/osaurus/internal/pipeline"
	"github.com/osaurus-ai/osaurus/internal/wire"
)

// decodeFunc decodes one dialect's request body into the Internal Request.
type decodeFunc func(io.Reader) (wire.Request, error)

// errorEnvelope renders a dialect-specific error body.
type errorEnvelope func(kind apperr.Kind, message string) any

// eventWriter is the common surface of writer.OpenAIWriter/AnthropicWriter/OllamaWriter.
type eventWriter interface {
	Write(wire.GenerationEvent) error
}

// dispatch is the shared request-handling core behind /chat/completions,
// /messages, and /chat: decode -> resolve backend -> run the pipeline ->
// stream (or buffer) generation events through the dialect's writer.
// Grounded on the teacher's internal/gateway/streaming.go accumulation
// loop, adapted from a multi-turn agent loop to one pass per request.
func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, decode decodeFunc, errEnv errorEnvelope, newWriter func(http.ResponseWriter, string, string) eventWriter) {
	s.beginRequest()
	defer s.endRequest()

	req, err := decode(r.Body)
	if err != nil {
		writeDialectError(w, errEnv, apperr.InvalidRequest, "failed to decode request: "+err.Error())
		return
	}

	be, err := s.Resolver.Resolve(req.ModelID)
	if err != nil {
		writeDialectError(w, errEnv, apperr.KindOf(err), err.Error())
		return
	}

	ctx := r.Context()
	var cancel context.CancelFunc
	if !req.Params.Stream && s.NonStreamTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, s.NonStreamTimeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	backendEvents, err := be.Generate(ctx, req)
	if err != nil {
		writeDialectError(w, errEnv, apperr.UpstreamFailure, err.Error())
		return
	}

	genEvents := pipeline.Run(ctx, cancel, backendEvents, req)

	responseID := "chatcmpl-" + uuid.NewString()
	if req.Params.Stream {
		s.streamEvents(w, genEvents, newWriter(w, responseID, req.ModelID))
		return
	}
	s.bufferEvents(w, genEvents, req, responseID)
}

// streamEvents relays every generation event to the dialect writer as it
// arrives, honoring client disconnect by invoking cancel via the
// context passed into dispatch (an http.ResponseWriter write error
// after headers are sent is the writer-disconnect signal, spec §4.F
// "Cancellation & timeouts").
func (s *Server) streamEvents(w http.ResponseWriter, events <-chan wire.GenerationEvent, ew eventWriter) {
	for ev := range events {
		if err := ew.Write(ev); err != nil {
			s.Logger.Warn("stream write failed, client likely disconnected", "error", err)
			// dispatch's deferred cancel() unblocks the pipeline goroutine;
			// no need to drain further sends on this channel.
			return
		}
	}
}

func writeDialectError(w http.ResponseWriter, errEnv errorEnvelope, kind apperr.Kind, message string) {
	writeJSON(w, apperr.HTTPStatus(kind), errEnv(kind, message))
}
