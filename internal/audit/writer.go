// Package audit provides an async, best-effort decision audit trail: a record
// of routing decisions and auth events, keyed by tenant, written to Postgres.
// It observes the router and auth packages without sitting on their call
// path — a write failure here never surfaces to the caller.
package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Kind enumerates the audit event kinds this service records.
type Kind string

const (
	KindRoute         Kind = "route"
	KindLogin         Kind = "login"
	KindLogout        Kind = "logout"
	KindAuthorizeDeny Kind = "authorize_deny"
)

// Entry is a single audit log entry queued for async writing. The query text
// itself is never carried here — only its fingerprint (for KindRoute) or the
// acting subject (for auth events) — so the audit trail never becomes a store
// of conversational history.
type Entry struct {
	TenantID uuid.UUID
	Kind     Kind
	Subject  string
	Detail   json.RawMessage
}

const (
	bufferSize    = 256
	flushInterval = 2 * time.Second
	flushBatch    = 32
)

// Writer is an async, buffered audit log writer. Entries are sent to an
// internal channel and flushed by a background goroutine.
type Writer struct {
	pool    *pgxpool.Pool
	logger  *slog.Logger
	entries chan Entry
	wg      sync.WaitGroup
}

// NewWriter creates an audit Writer. Call Start to begin processing entries.
// pool may be nil (tests that only exercise Log buffering, or a process
// started without a reachable database); flushes are then no-ops.
func NewWriter(pool *pgxpool.Pool, logger *slog.Logger) *Writer {
	return &Writer{
		pool:    pool,
		logger:  logger,
		entries: make(chan Entry, bufferSize),
	}
}

// Start begins the background goroutine that flushes audit entries to the
// database and returns immediately. The goroutine exits, after flushing the
// entries still buffered, when the context is cancelled or Close is called.
func (w *Writer) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run(ctx)
	}()
}

// Close waits for all pending entries to be flushed.
func (w *Writer) Close() {
	close(w.entries)
	w.wg.Wait()
}

// Log enqueues an audit entry for async writing. It never blocks the caller;
// if the buffer is full the entry is dropped and a warning is logged.
func (w *Writer) Log(entry Entry) {
	select {
	case w.entries <- entry:
	default:
		w.logger.Warn("audit log buffer full, dropping entry",
			"kind", entry.Kind, "tenant_id", entry.TenantID)
	}
}

func (w *Writer) run(ctx context.Context) {
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	batch := make([]Entry, 0, flushBatch)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		w.flush(batch)
		batch = batch[:0]
	}

	for {
		select {
		case entry, ok := <-w.entries:
			if !ok {
				flush()
				return
			}
			batch = append(batch, entry)
			if len(batch) >= flushBatch {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-ctx.Done():
			for {
				select {
				case entry, ok := <-w.entries:
					if !ok {
						flush()
						return
					}
					batch = append(batch, entry)
				default:
					flush()
					return
				}
			}
		}
	}
}

// flush writes a batch of entries to the decision_audit table.
func (w *Writer) flush(entries []Entry) {
	if w.pool == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := w.pool.Acquire(ctx)
	if err != nil {
		w.logger.Error("acquiring connection for audit flush", "error", err)
		return
	}
	defer conn.Release()

	batch := &pgxBatch{}
	for _, e := range entries {
		batch.queue(
			"INSERT INTO decision_audit (tenant_id, kind, subject, detail, created_at) VALUES ($1, $2, $3, $4, now())",
			e.TenantID, string(e.Kind), e.Subject, e.Detail,
		)
	}

	if err := batch.send(ctx, conn); err != nil {
		w.logger.Error("writing audit batch", "error", err, "count", len(entries))
	}
}
