package perf

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestStartSpanCapturesEndedSpans(t *testing.T) {
	Reset()
	t.Cleanup(Reset)
	require.NoError(t, Init(Config{Enabled: true}))

	ctx, span := StartSpan(context.Background(), "check.scan",
		WithAttributes(attribute.String("mods_path", "mods")),
	)
	_, child := StartSpan(ctx, "check.scan.read")
	child.End()
	span.SetAttributes(attribute.Int("mod_count", 3))
	span.End()

	spans, err := GetSpans()
	require.NoError(t, err)

	scanSpan, ok := FindSpanByName(spans, "check.scan")
	require.True(t, ok)
	assert.Equal(t, "mods", scanSpan.Attributes["mods_path"])
	assert.EqualValues(t, 3, scanSpan.Attributes["mod_count"])

	childSpan, ok := FindSpanByName(spans, "check.scan.read")
	require.True(t, ok)
	assert.Equal(t, scanSpan.SpanID, childSpan.ParentSpanID)
}

func TestSpanEventsAreSnapshotted(t *testing.T) {
	Reset()
	t.Cleanup(Reset)
	require.NoError(t, Init(Config{Enabled: true}))

	_, span := StartSpan(context.Background(), "check.resolve")
	span.AddEvent("cache.hit", WithEventAttributes(attribute.String("mod", "sodium")))
	span.End()

	spans, err := GetSpans()
	require.NoError(t, err)

	resolveSpan, ok := FindSpanByName(spans, "check.resolve")
	require.True(t, ok)
	require.Len(t, resolveSpan.Events, 1)
	assert.Equal(t, "cache.hit", resolveSpan.Events[0].Name)
	assert.Equal(t, "sodium", resolveSpan.Events[0].Attributes["mod"])
}

func TestResetDropsCapturedSpans(t *testing.T) {
	Reset()
	t.Cleanup(Reset)
	require.NoError(t, Init(Config{Enabled: true}))

	_, span := StartSpan(context.Background(), "check.scan")
	span.End()

	Reset()

	spans, err := GetSpans()
	require.NoError(t, err)
	assert.Empty(t, spans)
}

func TestNilSpanMethodsAreSafe(t *testing.T) {
	var span *Span
	span.End()
	span.SetAttributes(attribute.Bool("success", true))
	span.AddEvent("noop")
	span.RecordError(nil)
}

func TestFindSpanByNameMissing(t *testing.T) {
	_, ok := FindSpanByName(nil, "absent")
	assert.False(t, ok)
}
