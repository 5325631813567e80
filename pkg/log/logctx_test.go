package log

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Тесты меняют slog.Default(), поэтому t.Parallel() не используется.

func newSilent() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func withDefault(t *testing.T) *slog.Logger {
	t.Helper()
	old := slog.Default()
	t.Cleanup(func() { slog.SetDefault(old) })

	def := newSilent()
	slog.SetDefault(def)
	return def
}

func TestFrom_DefaultWhenEmpty(t *testing.T) {
	def := withDefault(t)

	require.Equal(t, def, From(context.Background()))
}

func TestInto_From_RoundTrip(t *testing.T) {
	def := withDefault(t)

	l := newSilent()
	ctx := Into(context.Background(), l)

	require.Equal(t, l, From(ctx))
	require.Equal(t, def, From(context.Background()))
}

func TestFrom_IgnoresForeignAndNilValues(t *testing.T) {
	def := withDefault(t)

	require.Equal(t, def, From(context.WithValue(context.Background(), ctxKey{}, "not-a-logger")))

	var nilLogger *slog.Logger
	require.Equal(t, def, From(context.WithValue(context.Background(), ctxKey{}, nilLogger)))
}

func TestInto_ChildShadowsParent(t *testing.T) {
	withDefault(t)

	parentL, childL := newSilent(), newSilent()
	parent := Into(context.Background(), parentL)
	child := Into(parent, childL)

	require.Equal(t, childL, From(child))
	require.Equal(t, parentL, From(parent))
}

func TestInto_KeepsDeadline(t *testing.T) {
	parent, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	child := Into(parent, newSilent())

	pdl, _ := parent.Deadline()
	cdl, ok := child.Deadline()
	require.True(t, ok)
	require.Equal(t, pdl, cdl)

	cancel()
	<-child.Done()
	require.ErrorIs(t, child.Err(), context.Canceled)
}

func TestWith_AddsAttrs(t *testing.T) {
	withDefault(t)

	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, nil))

	ctx := With(Into(context.Background(), base), "user_id", "u-1")
	From(ctx).Info("hello")

	require.Contains(t, buf.String(), "user_id=u-1")
	require.Equal(t, base, From(Into(context.Background(), base)))
}

func TestWith_NoArgsKeepsContext(t *testing.T) {
	ctx := Into(context.Background(), newSilent())
	require.Equal(t, ctx, With(ctx))
}
