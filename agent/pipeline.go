package agent

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/toolflow/contract"
	"github.com/BaSui01/toolflow/internal/ctxkeys"
	"github.com/BaSui01/toolflow/tool"
	"github.com/BaSui01/toolflow/types"
)

// Safe user-facing messages per error classification. Diagnostics go to
// Envelope.Error, never here.
var errorMessages = map[types.ErrorCode]string{
	types.ErrContractViolation: "The request could not be processed because its input was invalid.",
	types.ErrToolExecution:     "A tool failed while processing your request.",
	types.ErrNotFound:          "The requested capability is not available.",
	types.ErrUnknown:           "An unexpected error occurred while processing your request.",
}

// outcome is what one pipeline run produced, before envelope construction.
type outcome struct {
	data any
	err  error
}

// run executes one decision: validate, execute, validate, wrap. It always
// returns exactly one envelope.
func (a *Agent) run(ctx context.Context, req Request, original Request, dec Decision) (env Envelope, code types.ErrorCode) {
	requestID := requestIDFrom(ctx)
	start := a.now()

	ctx, span := a.tracer.Start(ctx, "agent.execute", trace.WithAttributes(
		attribute.String("agent.name", a.name),
		attribute.String("agent.strategy", string(dec.Strategy)),
		attribute.String("agent.tool", dec.ToolID),
		attribute.String("agent.pattern", dec.Pattern),
	))
	defer span.End()

	res := a.execute(ctx, req, dec)
	elapsed := a.now().Sub(start)

	if res.err == nil && IsErrorKind(dec.Kind) {
		res.err = types.NewError(types.ErrUnknown, fmt.Sprintf("response kind %q is reserved for errors", dec.Kind))
	}
	if res.err == nil && dec.Kind == "" {
		res.err = types.NewError(types.ErrUnknown, "decision has no response kind")
	}

	if res.err != nil {
		code = types.GetErrorCode(res.err)
		env = a.errorEnvelope(original, dec, requestID, code, res.err)
		env.ExecutionContext[CtxDurationMS] = elapsed.Milliseconds()
		span.RecordError(res.err)
		span.SetStatus(codes.Error, string(code))
		a.logger.Warn("request failed",
			zap.String("strategy", string(dec.Strategy)),
			zap.String("tool", dec.ToolID),
			zap.String("request_id", requestID),
			zap.String("error_type", string(code)),
			zap.Duration("duration", elapsed),
			zap.Error(res.err),
		)
		return env, code
	}

	env = a.successEnvelope(req, dec, requestID, res.data)
	env.ExecutionContext[CtxDurationMS] = elapsed.Milliseconds()
	a.logger.Debug("request processed",
		zap.String("strategy", string(dec.Strategy)),
		zap.String("tool", dec.ToolID),
		zap.String("kind", dec.Kind),
		zap.String("request_id", requestID),
		zap.Duration("duration", elapsed),
	)
	return env, ""
}

// execute runs the tool or inline handler, converting panics into errors.
func (a *Agent) execute(ctx context.Context, req Request, dec Decision) (res outcome) {
	defer func() {
		if r := recover(); r != nil {
			res = outcome{err: types.NewError(types.ErrUnknown, fmt.Sprintf("panic during execution: %v", r))}
		}
	}()

	switch {
	case dec.Handler != nil:
		data, err := dec.Handler(ctx, req)
		return outcome{data: data, err: err}
	case dec.ToolID != "":
		t, err := a.registry.Get(dec.ToolID)
		if err != nil {
			return outcome{err: err}
		}
		data, err := t.Invoke(ctx, dec.Input)
		return outcome{data: data, err: err}
	default:
		return outcome{err: types.NewError(types.ErrUnknown, "decision has neither tool nor handler")}
	}
}

func (a *Agent) successEnvelope(req Request, dec Decision, requestID string, data any) Envelope {
	ec := map[string]any{
		CtxStrategy:  string(dec.Strategy),
		CtxRequestID: requestID,
	}
	if dec.ToolID != "" {
		ec[CtxToolUsed] = dec.ToolID
	} else {
		ec[CtxHandler] = string(dec.Strategy)
	}
	if req.Type != "" {
		ec[CtxRequestedType] = req.Type
	}
	if dec.Pattern != "" {
		ec[CtxMatchedPattern] = dec.Pattern
	}
	maps.Copy(ec, dec.Detected)

	message := ""
	if dec.Render != nil {
		message = dec.Render(data, dec.Detected)
	}
	if message == "" {
		message = fmt.Sprintf("Processed by %s.", a.name)
	}

	return Envelope{
		Type:             dec.Kind,
		Message:          message,
		Data:             data,
		Agent:            a.name,
		Timestamp:        formatTimestamp(a.now()),
		ExecutionContext: ec,
	}
}

func (a *Agent) errorEnvelope(original Request, dec Decision, requestID string, code types.ErrorCode, err error) Envelope {
	ec := map[string]any{
		CtxInputReceived: original,
		CtxErrorType:     string(code),
		CtxStrategy:      string(dec.Strategy),
		CtxRequestID:     requestID,
	}
	if id, ok := tool.FailedToolID(err); ok {
		ec[CtxToolUsed] = id
	} else if dec.ToolID != "" {
		ec[CtxToolUsed] = dec.ToolID
	}
	if dec.Pattern != "" {
		ec[CtxMatchedPattern] = dec.Pattern
	}

	var cv *tool.ContractViolation
	if errors.As(err, &cv) {
		ec[CtxStage] = string(cv.Stage)
		ec[CtxViolations] = append([]contract.Violation(nil), cv.Violations...)
	}

	message, ok := errorMessages[code]
	if !ok {
		message = errorMessages[types.ErrUnknown]
	}

	return Envelope{
		Type:             KindError,
		Message:          message,
		Error:            err.Error(),
		Agent:            a.name,
		Timestamp:        formatTimestamp(a.now()),
		ExecutionContext: ec,
	}
}

func requestIDFrom(ctx context.Context) string {
	if id, ok := ctxkeys.RequestID(ctx); ok {
		return id
	}
	return uuid.NewString()
}

func (a *Agent) now() time.Time {
	return a.clock()
}
