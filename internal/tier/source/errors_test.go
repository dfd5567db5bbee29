package source

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLookupError(t *testing.T) {
	t.Run("formats with underlying error", func(t *testing.T) {
		err := NewLookupError(CategoryOutage, KindHTTP, "failed to execute request", errors.New("dial tcp"))
		assert.Equal(t, "http lookup [outage]: failed to execute request: dial tcp", err.Error())
	})

	t.Run("formats without underlying error", func(t *testing.T) {
		err := NewLookupError(CategoryRejected, KindHTTP, "unexpected status: 500", nil)
		assert.Equal(t, "http lookup [rejected]: unexpected status: 500", err.Error())
	})

	t.Run("formats without source", func(t *testing.T) {
		err := NewLookupError(CategoryBadData, "", "source returned an empty endpoint", nil)
		assert.Equal(t, "lookup [bad_data]: source returned an empty endpoint", err.Error())
	})

	t.Run("unwraps", func(t *testing.T) {
		cause := errors.New("cause")
		err := NewLookupError(CategoryInternal, KindRedis, "x", cause)
		assert.True(t, errors.Is(err, cause))
	})
}

func TestGetCategory(t *testing.T) {
	assert.Equal(t, CategoryNotFound, GetCategory(ErrNotFound))
	assert.Equal(t, CategoryNotFound, GetCategory(fmt.Errorf("%w: diagnostic", ErrNotFound)))
	assert.Equal(t, CategoryTimeout, GetCategory(fmt.Errorf("wrapped: %w", NewLookupError(CategoryTimeout, KindPostgres, "x", nil))))
	assert.Equal(t, CategoryInternal, GetCategory(errors.New("plain")))
}

func TestKindValid(t *testing.T) {
	for _, k := range []Kind{KindHTTP, KindPostgres, KindRedis, KindMemory} {
		assert.True(t, k.Valid(), k)
	}
	assert.False(t, Kind("mongo").Valid())
}
