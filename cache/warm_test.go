package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mitfusco98/health-prep-sub002/logger"
	"github.com/mitfusco98/health-prep-sub002/types"
)

func TestWarmerRunsInRegistrationOrder(t *testing.T) {
	w := NewWarmer(logger.NewNopLogger())

	var order []string
	w.Register("first", func(ctx context.Context) error {
		order = append(order, "first")
		return nil
	})
	w.Register("second", func(ctx context.Context) error {
		order = append(order, "second")
		return nil
	})

	require.NoError(t, w.Warm(context.Background()))
	require.Equal(t, []string{"first", "second"}, order)
}

func TestWarmerFailureIsNotFatal(t *testing.T) {
	w := NewWarmer(logger.NewNopLogger())

	var ran bool
	w.Register("failing", func(ctx context.Context) error {
		return types.ErrCacheConnectionFailed
	})
	w.Register("healthy", func(ctx context.Context) error {
		ran = true
		return nil
	})

	require.NoError(t, w.Warm(context.Background()))
	require.True(t, ran)
}

func TestWarmerHonorsCancellation(t *testing.T) {
	w := NewWarmer(logger.NewNopLogger())

	ctx, cancel := context.WithCancel(context.Background())

	w.Register("canceller", func(warmCtx context.Context) error {
		cancel()
		return nil
	})

	var ran bool
	w.Register("after_cancel", func(warmCtx context.Context) error {
		ran = true
		return nil
	})

	require.Error(t, w.Warm(ctx))
	require.False(t, ran)
}

func TestWarmerIgnoresInvalidRegistration(t *testing.T) {
	w := NewWarmer(logger.NewNopLogger())

	w.Register("", func(ctx context.Context) error { return nil })
	w.Register("nil_fn", nil)

	require.NoError(t, w.Warm(context.Background()))
}

func TestWarmerReRegisterReplacesFunc(t *testing.T) {
	w := NewWarmer(logger.NewNopLogger())

	var got string
	w.Register("key", func(ctx context.Context) error {
		got = "old"
		return nil
	})
	w.Register("key", func(ctx context.Context) error {
		got = "new"
		return nil
	})

	require.NoError(t, w.Warm(context.Background()))
	require.Equal(t, "new", got)
}
