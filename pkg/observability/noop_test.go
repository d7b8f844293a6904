package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestNoopMetrics(t *testing.T) {
	m := NoopMetrics{}
	ctx := context.Background()

	// None of these should panic or record anything.
	m.RecordRender(ctx, "_Row", time.Second, nil)
	m.RecordRender(ctx, "_Row", time.Second, errors.New("ignored"))
	m.RecordResolve(ctx, "_Row", true)
	m.RecordResolve(ctx, "_Row", false)
	m.RecordOutputSize(ctx, "_Row", 4096)
}

func TestNoopSpanManager(t *testing.T) {
	m := NoopSpanManager{}
	ctx := context.Background()

	newCtx, span := m.StartRenderSpan(ctx, "_Row", "render-1")
	assert.Equal(t, ctx, newCtx, "noop must not derive a new context")
	assert.NotNil(t, span)

	stageCtx, stageSpan := m.StartStageSpan(ctx, "resolve")
	assert.Equal(t, ctx, stageCtx)
	assert.NotNil(t, stageSpan)

	m.EndSpanWithError(span, errors.New("ignored"))
	m.EndSpanWithError(nil, nil)
	m.AddSpanEvent(ctx, "ignored", attribute.String("k", "v"))
}
