package bus

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTopics(t *testing.T) {
	tests := []struct {
		prefix string
		status string
	}{
		{"", "status"},
		{"till1", "till1/status"},
		{"till1/", "till1/status"},
		{"shop/till1", "shop/till1/status"},
	}

	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			topics := NewTopics(tt.prefix)
			assert.Equal(t, tt.status, topics.Status)

			prefix := tt.status[:len(tt.status)-len("status")]
			assert.Equal(t, prefix+"print", topics.Print)
			assert.Equal(t, prefix+"printed", topics.Printed)
		})
	}
}

func TestResultJSON(t *testing.T) {
	b, err := json.Marshal(Result{JobID: "7", Status: "Printed", Finished: true, Success: true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"jobid":"7","status":"Printed","finished":true,"success":true}`, string(b))
}

func TestOfflineWillPayload(t *testing.T) {
	assert.JSONEq(t, `{"status":"Offline","ok":false}`, string(offlineWill))
}

func TestAwaitEventsTimeout(t *testing.T) {
	c := New(Config{Hostname: "localhost", Port: 8883, Topics: NewTopics("")}, zerolog.Nop())

	start := time.Now()
	err := c.AwaitEvents(20 * time.Millisecond)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestAwaitEventsConnectionLost(t *testing.T) {
	c := New(Config{Hostname: "localhost", Port: 8883, Topics: NewTopics("")}, zerolog.Nop())

	c.onConnectionLost(nil, assert.AnError)
	assert.ErrorIs(t, c.AwaitEvents(time.Second), ErrConnectionLost)

	// The signal is consumed; the next wait times out normally.
	assert.NoError(t, c.AwaitEvents(time.Millisecond))
}

func TestConnectDrainsStaleLossSignal(t *testing.T) {
	c := New(Config{Hostname: "localhost", Port: 8883, Topics: NewTopics("")}, zerolog.Nop())

	c.onConnectionLost(nil, assert.AnError)

	select {
	case <-c.lost:
	default:
		t.Fatal("loss signal was not latched")
	}
}
