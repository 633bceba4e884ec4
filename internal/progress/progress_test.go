package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubDeliversToSubscribers(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe("req-1")
	defer cancel()

	h.Report(Event{RequestID: "req-1", Stage: "sql_generation", Status: "SQLGenerated", At: time.Now()})
	h.Report(Event{RequestID: "req-other", Stage: "sql_generation", Status: "SQLGenerated", At: time.Now()})

	select {
	case e := <-ch:
		assert.Equal(t, "req-1", e.RequestID)
		assert.Equal(t, "SQLGenerated", e.Status)
	default:
		t.Fatal("expected an event for req-1")
	}
	select {
	case e := <-ch:
		t.Fatalf("unexpected cross-request event: %+v", e)
	default:
	}
}

func TestHubDropsWhenBufferFull(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe("req-1")
	defer cancel()

	for i := 0; i < 40; i++ {
		h.Report(Event{RequestID: "req-1", Status: "Init"})
	}
	// Buffered capacity only; no blocking and no panic.
	assert.Equal(t, 16, len(ch))
}

func TestHubUnsubscribeClosesChannel(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe("req-1")
	cancel()
	cancel()

	_, open := <-ch
	require.False(t, open)

	// Reporting after unsubscribe is a no-op.
	h.Report(Event{RequestID: "req-1", Status: "Init"})
}
