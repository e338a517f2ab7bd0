package audit

import (
	"context"
	"log/slog"
	"sync"
)

// LogSink writes audit entries to the structured log. The default backend
// when no durable store is configured.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink returns a sink logging at info level.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger.With("component", "audit")}
}

// Record logs the entry.
func (s *LogSink) Record(ctx context.Context, entry Entry) error {
	s.logger.InfoContext(ctx, "audit entry",
		"audit_id", entry.ID,
		"request_id", entry.RequestID,
		"merchant_id", entry.MerchantID,
		"beneficiary_type", entry.BeneficiaryType,
		"status", entry.Status,
		"ruleset_version", entry.RulesetVersion,
		"errors", len(entry.Errors),
		"warnings", len(entry.Warnings),
		"escalations", len(entry.Escalations),
		"error", entry.Error,
	)
	return nil
}

// Close is a no-op.
func (s *LogSink) Close() error { return nil }

// MemorySink keeps entries in memory. Test and development backend.
type MemorySink struct {
	mu      sync.Mutex
	entries []Entry
}

// NewMemorySink returns an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Record appends the entry.
func (s *MemorySink) Record(_ context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

// Entries returns a copy of everything recorded so far.
func (s *MemorySink) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Close is a no-op.
func (s *MemorySink) Close() error { return nil }
