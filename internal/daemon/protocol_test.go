package daemon

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestIsNotification(t *testing.T) {
	assert.True(t, Request{Method: MethodStatus}.IsNotification())
	assert.False(t, Request{ID: "1", Method: MethodStatus}.IsNotification())
}

func TestValidateIDRejectsSentinelPrefix(t *testing.T) {
	assert.Error(t, ValidateID("__gofer_roots__"))
	assert.NoError(t, ValidateID("cli-1"))
	assert.NoError(t, ValidateID(""))
}

func TestNewResultAndNewErrorRoundTripJSON(t *testing.T) {
	result := NewResult("1", map[string]string{"ok": "true"})
	data, err := json.Marshal(result)
	require.NoError(t, err)

	var decoded Response
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "1", decoded.ID)
	assert.Nil(t, decoded.Error)

	errResp := NewError("2", ErrCodeNotFound, "project not registered")
	data, err = json.Marshal(errResp)
	require.NoError(t, err)

	require.NoError(t, json.Unmarshal(data, &decoded))
	require.NotNil(t, decoded.Error)
	assert.Equal(t, ErrCodeNotFound, decoded.Error.Code)
	assert.Equal(t, "project not registered", decoded.Error.Message)
}
