package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOnlyReadyIsOK(t *testing.T) {
	all := []Status{Offline, CoverOpen, PaperBeingFed, OutOfPaper, Error,
		NoResponse, NotConnected, Ready, Unrecognised(0x3a, 0x12)}

	for _, s := range all {
		assert.Equal(t, s == Ready, s.OK, "status %q", s.Text)
	}
}

func TestStatusEquality(t *testing.T) {
	assert.Equal(t, Ready, Ready)
	assert.NotEqual(t, Ready, Offline)
	assert.Equal(t, Unrecognised(0x3a, 0x12), Unrecognised(0x3a, 0x12))
	assert.NotEqual(t, Unrecognised(0x3a, 0x12), Unrecognised(0x3a, 0x16))
}

func TestUnrecognisedCarriesBytes(t *testing.T) {
	s := Unrecognised(0x3a, 0x12)
	assert.Contains(t, s.Text, "0x3a")
	assert.Contains(t, s.Text, "0x12")
	assert.False(t, s.OK)
}

func TestStatusMessageJSON(t *testing.T) {
	b, err := json.Marshal(Ready.Message())
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"Ready","ok":true}`, string(b))

	b, err = json.Marshal(Offline.Message())
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"Offline","ok":false}`, string(b))
}
