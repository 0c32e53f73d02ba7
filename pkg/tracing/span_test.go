package tracing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSpanTree(t *testing.T) {
	ctx, root := StartSpan(context.Background(), "run", NewTraceID())
	require.Len(t, root.TraceID, 32)

	for _, name := range []string{"build-index", "match", "match"} {
		_, child := StartChildSpan(ctx, name)
		child.StartTime = child.StartTime.Add(-10 * time.Millisecond)
		child.End()
		require.Equal(t, root.TraceID, child.TraceID)
	}
	root.SetAttr("trips", 100)
	root.End()

	phases := root.Phases()
	require.Len(t, phases, 2)
	require.Equal(t, "build-index", phases[0].Name)
	require.Equal(t, "match", phases[1].Name)
	require.GreaterOrEqual(t, phases[1].Duration, 20*time.Millisecond)
	require.Same(t, root, SpanFromContext(ctx))
}

func TestDetachedChild(t *testing.T) {
	_, span := StartChildSpan(context.Background(), "orphan")
	require.Empty(t, span.TraceID)
	require.Nil(t, SpanFromContext(context.Background()))
}
