package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

type customKinded struct{}

func (customKinded) Error() string { return "custom" }
func (customKinded) Kind() Kind    { return KindValidation }

func TestError_Message(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{"kind only", &Error{Kind: KindWrite}, "write"},
		{"op and message", New(KindNotFound, "load territory.json", "source not found"), "load territory.json: source not found"},
		{"wrapped", Wrap(KindConnection, "connect", errors.New("boom")), "connect: connection: boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestKindOf(t *testing.T) {
	base := Wrap(KindWrite, "write milestone_events", errors.New("disk full"))
	wrapped := fmt.Errorf("add event: %w", base)

	assert.Equal(t, KindWrite, KindOf(base))
	assert.Equal(t, KindWrite, KindOf(wrapped))
	assert.True(t, IsWrite(wrapped))
	assert.False(t, IsConflict(wrapped))

	assert.Equal(t, KindUnknown, KindOf(nil))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.False(t, Is(nil, KindUnknown))
}

func TestKindOf_ExternalKinded(t *testing.T) {
	err := fmt.Errorf("upload: %w", customKinded{})
	assert.True(t, IsValidation(err))
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("cause")
	err := Wrap(KindRead, "read", cause)
	assert.ErrorIs(t, err, cause)
}
