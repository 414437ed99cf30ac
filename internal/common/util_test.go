package common

import (
	"encoding/hex"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeRandHexString_LengthAndHex(t *testing.T) {
	const n = 16
	s, err := MakeRandHexString(n)
	require.NoError(t, err)
	require.Len(t, s, n*2)
	_, err = hex.DecodeString(s)
	require.NoError(t, err)
}

func TestMakeRandHexString_ZeroSize(t *testing.T) {
	s, err := MakeRandHexString(0)
	require.NoError(t, err)
	assert.Empty(t, s)
}

func TestIsKnownStatus(t *testing.T) {
	for _, s := range []string{StatusSubmitted, StatusRunning, StatusCompleted, StatusFailed} {
		assert.True(t, IsKnownStatus(s), s)
	}
	assert.False(t, IsKnownStatus("cancelled"))
	assert.False(t, IsKnownStatus(""))
}

func TestValidationError_As(t *testing.T) {
	err := fmt.Errorf("signup: %w", Invalid("Password must be at least %d characters", 6))

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "Password must be at least 6 characters", ve.Message)
}

func TestUpstreamError_Message(t *testing.T) {
	withStatus := &UpstreamError{StatusCode: 500, Message: "boom"}
	assert.Equal(t, "Workflow API error: 500 boom", withStatus.Error())

	cause := errors.New("dial tcp: refused")
	transport := &UpstreamError{Message: cause.Error(), Err: cause}
	assert.Equal(t, "Workflow API error: dial tcp: refused", transport.Error())
	assert.ErrorIs(t, transport, cause)
}
