package pipeline

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/osaurus-ai/osaurus/internal/apperr"
	"github.com/osaurus-ai/osaurus/internal/wire"
)

var tracer = otel.Tracer("github.com/osaurus-ai/osaurus/internal/pipeline")

// Run drives a single streaming generation: it consumes BackendEvents
// from in, maintains a RollingBuffer, detects stop sequences and inline
// tool calls, and emits GenerationEvents on the returned channel per the
// grammar RoleStart (ContentDelta | ToolCallDelta)* [Usage] Finish.
//
// cancel is invoked (at most once) whenever the pipeline stops consuming
// the backend before it closes in on its own — on ctx cancellation, on a
// detected stop sequence, on a detected tool call, or on natural Finish —
// so the caller's backend adapter can release resources. The pipeline is
// a single-threaded cooperative producer: it only suspends at the next
// backend event or at the out channel send, per §4.F.
func Run(ctx context.Context, cancel context.CancelFunc, in <-chan wire.BackendEvent, req wire.Request) <-chan wire.GenerationEvent {
	out := make(chan wire.GenerationEvent, 8)
	ctx, span := tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("model_id", req.ModelID),
		attribute.String("dialect", string(req.Dialect)),
	))

	go func() {
		defer span.End()
		defer close(out)
		defer cancel()

		buf := NewRollingBuffer()
		emittedCount := 0
		roleStarted := false
		usageSent := false
		stop := req.Params.Stop
		tools := req.Tools

		// withholdTail is how many trailing characters must stay unemitted
		// at all times: they might still turn into the prefix of a stop
		// sequence that completes on a later token (§4.F "Stop-sequence
		// handling"; a stop sequence can straddle a token boundary even
		// though each backend token is emitted/withheld as a whole).
		withholdTail := 0
		if m := maxStopLen(stop); m > 0 {
			withholdTail = m - 1
		}

		emit := func(ev wire.GenerationEvent) bool {
			select {
			case out <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}
		ensureRoleStart := func() bool {
			if roleStarted {
				return true
			}
			roleStarted = true
			return emit(wire.RoleStartEvent(wire.RoleAssistant))
		}
		// emitUpTo emits buf[emittedCount:target] as one ContentDelta (clipped
		// to what the buffer still holds) and advances emittedCount to
		// target. Returns false if the send was cancelled.
		emitUpTo := func(target int) bool {
			if target <= emittedCount {
				return true
			}
			from := emittedCount
			if from < buf.StartOffset() {
				from = buf.StartOffset()
			}
			text := buf.Slice(from, target)
			emittedCount = target
			if text == "" {
				return true
			}
			return emit(wire.ContentDeltaEvent(text))
		}

		for {
			select {
			case <-ctx.Done():
				// ctx is already done, so emit could pick its ctx.Done arm and
				// drop these; send without blocking into the buffered channel.
				if !roleStarted {
					roleStarted = true
					select {
					case out <- wire.RoleStartEvent(wire.RoleAssistant):
					default:
					}
				}
				select {
				case out <- wire.FinishEvent(wire.FinishError, apperr.New(apperr.Timeout, "request cancelled")):
				default:
				}
				return

			case ev, ok := <-in:
				if !ok {
					ensureRoleStart()
					if !emitUpTo(buf.GlobalLen()) {
						return
					}
					emit(wire.FinishEvent(wire.FinishStop, nil))
					return
				}

				switch ev.Kind {
				case wire.BackendTokenChunk:
					if !ensureRoleStart() {
						return
					}
					token := ev.Text
					tokenLen := len([]rune(token))
					if dropped := buf.Append(token); dropped > 0 {
						span.AddEvent("buffer-pruned", trace.WithAttributes(attribute.Int("dropped_chars", dropped)))
					}

					if pos, found := detectStop(buf, stop, tokenLen); found {
						if !emitUpTo(pos) {
							return
						}
						emit(wire.FinishEvent(wire.FinishStop, nil))
						return
					}

					if len(tools) > 0 && strings.Contains(token, "}") {
						if name, argsJSON, found := detectToolCall(buf, tools); found {
							span.AddEvent("tool-call-detected", trace.WithAttributes(attribute.String("tool_name", name)))
							emit(wire.ToolCallDeltaEvent(0, uuid.NewString(), name, argsJSON))
							emit(wire.FinishEvent(wire.FinishToolCalls, nil))
							return
						}
					}

					// Only the portion of the buffer that can no longer be
					// the start of a straddling stop sequence is safe to
					// emit now; the trailing withholdTail characters wait
					// for the next token (or the final flush at Finish).
					if !emitUpTo(buf.GlobalLen() - withholdTail) {
						return
					}

				case wire.BackendNativeToolCall:
					if !ensureRoleStart() {
						return
					}
					emit(wire.ToolCallDeltaEvent(0, uuid.NewString(), ev.ToolName, ev.ArgsJSON))
					emit(wire.FinishEvent(wire.FinishToolCalls, nil))
					return

				case wire.BackendUsage:
					if !usageSent {
						usageSent = true
						if !emit(wire.UsageEvent(ev.PromptTokens, ev.CompletionTokens)) {
							return
						}
					}

				case wire.BackendFinish:
					ensureRoleStart()
					if !emitUpTo(buf.GlobalLen()) {
						return
					}
					emit(wire.FinishEvent(ev.FinishReason, nil))
					return
				}
			}
		}
	}()

	return out
}
