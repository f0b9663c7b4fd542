package fault

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf_SeesThroughWrapping(t *testing.T) {
	base := Storage("ledger.save", errors.New("disk full"))
	wrapped := fmt.Errorf("record sign-in: %w", base)

	assert.Equal(t, KindStorage, KindOf(wrapped))
	assert.True(t, IsStorage(wrapped))
	assert.False(t, IsValidation(wrapped))
}

func TestKindOf_PlainError(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(errors.New("boom")))
	assert.Equal(t, Kind(""), KindOf(nil))
}

func TestError_Message(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "message only",
			err:  Validation("registry.set", "name cannot be empty"),
			want: "VALIDATION: registry.set: name cannot be empty",
		},
		{
			name: "wrapped only",
			err:  Hardware("reader.connect", errors.New("no readers")),
			want: "HARDWARE_UNAVAILABLE: reader.connect: no readers",
		},
		{
			name: "message and wrapped",
			err:  ReadFailed("detector.read_uid", 3, errors.New("sw 6300")),
			want: "CARD_READ_FAILED: detector.read_uid: uid unreadable after 3 attempts: sw 6300",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("timeout")
	err := RemoteSync("remotesync.publish", cause)

	assert.ErrorIs(t, err, cause)
	assert.True(t, IsRemoteSync(err))
}
