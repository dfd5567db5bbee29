package validation

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type backend struct {
	Name string `yaml:"name" validate:"notblank"`
	URI  string `yaml:"uri" validate:"absuri"`
}

type settings struct {
	Mode     string        `yaml:"mode" validate:"oneof=fast slow"`
	Size     int           `yaml:"size" validate:"gt=0"`
	Timeout  time.Duration `yaml:"timeout" validate:"gt=0"`
	Owner    string        `yaml:"owner" validate:"required"`
	Backends []backend     `yaml:"backends" validate:"required,min=1,unique=Name,dive"`
	Untagged string        `validate:"required"`
}

func validSettings() settings {
	return settings{
		Mode:     "fast",
		Size:     1,
		Timeout:  time.Second,
		Owner:    "ops",
		Backends: []backend{{Name: "a", URI: "http://a.internal"}},
		Untagged: "x",
	}
}

func TestStruct(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*settings)
		wantErr string
	}{
		{name: "valid", mutate: func(*settings) {}},
		{
			name:    "required uses yaml name",
			mutate:  func(s *settings) { s.Owner = "" },
			wantErr: "owner is required",
		},
		{
			name:    "untagged field keeps struct name",
			mutate:  func(s *settings) { s.Untagged = "" },
			wantErr: "Untagged is required",
		},
		{
			name:    "oneof",
			mutate:  func(s *settings) { s.Mode = "medium" },
			wantErr: `mode "medium" is not one of [fast slow]`,
		},
		{
			name:    "gt on int",
			mutate:  func(s *settings) { s.Size = 0 },
			wantErr: "size must be greater than 0, got 0",
		},
		{
			name:    "gt on duration",
			mutate:  func(s *settings) { s.Timeout = 0 },
			wantErr: "timeout must be greater than 0",
		},
		{
			name:    "empty slice",
			mutate:  func(s *settings) { s.Backends = []backend{} },
			wantErr: "backends must have at least 1 entries",
		},
		{
			name: "duplicate name",
			mutate: func(s *settings) {
				s.Backends = append(s.Backends, backend{Name: "a", URI: "http://b.internal"})
			},
			wantErr: "backends has a duplicate name",
		},
		{
			name:    "blank element name",
			mutate:  func(s *settings) { s.Backends[0].Name = "  " },
			wantErr: "backends[0].name must not be blank",
		},
		{
			name:    "relative uri",
			mutate:  func(s *settings) { s.Backends[0].URI = "a.internal" },
			wantErr: `backends[0].uri "a.internal" must be an absolute URI`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSettings()
			tt.mutate(&s)
			err := Struct(s)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestStruct_JoinsEveryFailure(t *testing.T) {
	s := validSettings()
	s.Owner = ""
	s.Size = -3

	err := Struct(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "owner is required")
	assert.Contains(t, err.Error(), "size must be greater than 0, got -3")
}

func TestErrors_PassesThroughOtherErrors(t *testing.T) {
	assert.NoError(t, Errors(nil))
	plain := errors.New("boom")
	assert.Same(t, plain, Errors(plain))
}

func TestIsAbsoluteURI(t *testing.T) {
	assert.True(t, IsAbsoluteURI("http://svc-a.internal"))
	assert.True(t, IsAbsoluteURI("postgres://db.internal:5432/tier"))
	assert.False(t, IsAbsoluteURI("svc-a.internal"))
	assert.False(t, IsAbsoluteURI("http://"))
	assert.False(t, IsAbsoluteURI("%zz"))
	assert.False(t, IsAbsoluteURI(""))
}
