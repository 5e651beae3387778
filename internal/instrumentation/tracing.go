package instrumentation

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope of calchat spans.
const TracerName = "github.com/teemow/calchat"

// Span attribute keys.
const (
	SpanAttrTool        = "calchat.tool"
	SpanAttrService     = "scheduling.service"
	SpanAttrOperation   = "scheduling.operation"
	SpanAttrUserDomain  = "calchat.user_domain"
	SpanAttrStatus      = "calchat.status"
	SpanAttrReadOnly    = "calchat.read_only"
	SpanAttrSession     = "calchat.session_id"
	SpanAttrOrigin      = "calchat.origin"
	SpanAttrLLMProvider = "llm.provider"
	SpanAttrLLMModel    = "llm.model"
)

// SpanAttributeBuilder collects span attributes. Empty values are skipped.
type SpanAttributeBuilder struct {
	attrs []attribute.KeyValue
}

func NewSpanAttributeBuilder() *SpanAttributeBuilder {
	return &SpanAttributeBuilder{attrs: make([]attribute.KeyValue, 0, 8)}
}

func (b *SpanAttributeBuilder) add(key, value string) *SpanAttributeBuilder {
	if value != "" {
		b.attrs = append(b.attrs, attribute.String(key, value))
	}
	return b
}

func (b *SpanAttributeBuilder) WithService(service string) *SpanAttributeBuilder {
	return b.add(SpanAttrService, service)
}

func (b *SpanAttributeBuilder) WithOperation(operation string) *SpanAttributeBuilder {
	return b.add(SpanAttrOperation, operation)
}

// WithUser adds the attendee's email domain. Spans never carry the address.
func (b *SpanAttributeBuilder) WithUser(email string) *SpanAttributeBuilder {
	if email == "" {
		return b
	}
	return b.add(SpanAttrUserDomain, ExtractUserDomain(email))
}

func (b *SpanAttributeBuilder) WithSession(sessionID string) *SpanAttributeBuilder {
	return b.add(SpanAttrSession, sessionID)
}

func (b *SpanAttributeBuilder) WithOrigin(origin string) *SpanAttributeBuilder {
	return b.add(SpanAttrOrigin, origin)
}

func (b *SpanAttributeBuilder) WithReadOnly(readOnly bool) *SpanAttributeBuilder {
	b.attrs = append(b.attrs, attribute.Bool(SpanAttrReadOnly, readOnly))
	return b
}

func (b *SpanAttributeBuilder) Build() []attribute.KeyValue {
	return b.attrs
}

func tracer() trace.Tracer {
	return otel.GetTracerProvider().Tracer(TracerName)
}

// StartSpan starts an internal span. The caller ends it.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

// StartChatTurnSpan starts the server span of one chat turn.
func StartChatTurnSpan(ctx context.Context, sessionID string) (context.Context, trace.Span) {
	return tracer().Start(ctx, "chat.turn",
		trace.WithAttributes(NewSpanAttributeBuilder().WithSession(sessionID).Build()...),
		trace.WithSpanKind(trace.SpanKindServer),
	)
}

// StartToolSpan starts the span of a booking tool call.
func StartToolSpan(ctx context.Context, toolName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer().Start(ctx, "tool."+toolName,
		trace.WithAttributes(append([]attribute.KeyValue{attribute.String(SpanAttrTool, toolName)}, attrs...)...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartSchedulingAPISpan starts a client span for a Cal.com request.
func StartSchedulingAPISpan(ctx context.Context, service, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	base := NewSpanAttributeBuilder().WithService(service).WithOperation(operation).Build()
	return tracer().Start(ctx, service+"."+operation,
		trace.WithAttributes(append(base, attrs...)...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// StartLLMSpan starts a client span for a model completion.
func StartLLMSpan(ctx context.Context, provider, model string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	base := []attribute.KeyValue{
		attribute.String(SpanAttrLLMProvider, provider),
		attribute.String(SpanAttrLLMModel, model),
	}
	return tracer().Start(ctx, "llm."+provider+".generate",
		trace.WithAttributes(append(base, attrs...)...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// SetSpanError records err and marks the span failed. A nil err is ignored.
func SetSpanError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

func SetSpanSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}
