package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/google/uuid"
)

func TestLog_DropsWhenFull(t *testing.T) {
	logger := slog.Default()
	w := NewWriter(nil, logger)
	// Don't start the background goroutine — nothing drains the channel.

	for i := 0; i < bufferSize; i++ {
		w.Log(Entry{Kind: KindRoute, TenantID: uuid.New()})
	}

	// The next log should be dropped (non-blocking), not deadlock the test.
	w.Log(Entry{Kind: KindRoute, TenantID: uuid.New()})

	if len(w.entries) != bufferSize {
		t.Errorf("buffer size = %d, want %d", len(w.entries), bufferSize)
	}
}

func TestLog_EnqueuesEntry(t *testing.T) {
	logger := slog.Default()
	w := NewWriter(nil, logger)

	tid := uuid.New()
	detail, _ := json.Marshal(map[string]string{"tier": "edge"})
	w.Log(Entry{TenantID: tid, Kind: KindRoute, Subject: "abcd1234", Detail: detail})

	entry := <-w.entries
	if entry.Kind != KindRoute {
		t.Errorf("Kind = %q, want %q", entry.Kind, KindRoute)
	}
	if entry.TenantID != tid {
		t.Errorf("TenantID = %v, want %v", entry.TenantID, tid)
	}
	if entry.Subject != "abcd1234" {
		t.Errorf("Subject = %q, want %q", entry.Subject, "abcd1234")
	}
}

func TestClose_FlushesWithNilPool(t *testing.T) {
	// flush() must be a no-op (not panic) when pool is nil: Close closes the
	// channel and waits while the started writer goroutine drains and
	// flushes it.
	w := NewWriter(nil, slog.Default())
	w.Start(context.Background())
	w.Log(Entry{Kind: KindLogin, TenantID: uuid.New()})
	w.Close()
}
