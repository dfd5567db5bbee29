package testutil

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"tiergate/internal/tier/source"
)

func TestRunConcurrent(t *testing.T) {
	result := RunConcurrent(30, func(idx int) error {
		switch idx % 3 {
		case 0:
			return nil
		case 1:
			return fmt.Errorf("resolve: %w", source.ErrNotFound)
		default:
			return errors.New("timeout")
		}
	})

	assert.Equal(t, int32(10), result.Successes)
	assert.Equal(t, int32(10), result.NotFounds)
	assert.Equal(t, int32(10), result.Errors)
	assert.Equal(t, int32(30), result.Total())
}

func TestRunConcurrentCtx(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := RunConcurrentCtx(ctx, 5, func(ctx context.Context, _ int) error {
		return ctx.Err()
	})
	assert.Equal(t, int32(5), result.Errors)
}
