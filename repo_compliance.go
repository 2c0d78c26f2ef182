package idle

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ComplianceLogEntry is the persisted form of a compliance Event. The log
// is append-only; entries are never updated or deleted by this package.
type ComplianceLogEntry struct {
	bun.BaseModel `bun:"table:compliance_log,alias:cle"`
	ID            uuid.UUID      `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	EpisodeID     uuid.UUID      `bun:"episode_id,nullzero,type:uuid" json:"episode_id,omitempty"`
	EventName     string         `bun:"event_name,notnull" json:"event_name,omitempty"`
	Subject       string         `bun:"subject" json:"subject,omitempty"`
	Metadata      map[string]any `bun:"metadata,type:jsonb" json:"metadata,omitempty"`
	OccurredAt    time.Time      `bun:"occurred_at,notnull" json:"occurred_at,omitempty"`
	CreatedAt     *time.Time     `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// ComplianceEntries is the persistence surface for the compliance log.
type ComplianceEntries interface {
	repository.Repository[*ComplianceLogEntry]
}

// NewComplianceEntriesRepository builds the bun-backed repository.
func NewComplianceEntriesRepository(db *bun.DB) ComplianceEntries {
	return repository.NewRepository[*ComplianceLogEntry](db, repository.ModelHandlers[*ComplianceLogEntry]{
		NewRecord: func() *ComplianceLogEntry { return &ComplianceLogEntry{} },
		GetID: func(e *ComplianceLogEntry) uuid.UUID {
			if e == nil {
				return uuid.Nil
			}
			return e.ID
		},
		SetID: func(e *ComplianceLogEntry, id uuid.UUID) {
			if e != nil {
				e.ID = id
			}
		},
	})
}

// BunSinkOption customizes the sink.
type BunSinkOption func(*BunSink)

// WithBunSinkPseudonymization controls whether subjects are stored as a
// stable hash instead of the raw identifier. On by default; the audit
// trail stays correlatable per subject without retaining PII.
func WithBunSinkPseudonymization(enabled bool) BunSinkOption {
	return func(s *BunSink) {
		s.pseudonymize = enabled
	}
}

// WithBunSinkLogger overrides the logger.
func WithBunSinkLogger(logger Logger) BunSinkOption {
	return func(s *BunSink) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// BunSink is a reference Sink writing compliance events to a database.
// Like every sink it runs best-effort: the coordinator logs its errors and
// moves on.
type BunSink struct {
	entries      ComplianceEntries
	logger       Logger
	pseudonymize bool
}

// NewBunSink builds a sink over the given database.
func NewBunSink(db *bun.DB, opts ...BunSinkOption) *BunSink {
	s := &BunSink{
		entries:      NewComplianceEntriesRepository(db),
		logger:       defLogger{},
		pseudonymize: true,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	return s
}

// Record implements Sink.
func (s *BunSink) Record(ctx context.Context, event Event) error {
	subject := event.Subject
	if s.pseudonymize && subject != "" {
		if id, err := hashid.NewUUID(subject); err == nil {
			subject = id.String()
		}
	}

	entry := &ComplianceLogEntry{
		ID:         uuid.New(),
		EpisodeID:  event.EpisodeID,
		EventName:  event.Name,
		Subject:    subject,
		Metadata:   event.Metadata,
		OccurredAt: event.OccurredAt,
	}

	if _, err := s.entries.Create(ctx, entry); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "could not record compliance event")
	}

	return nil
}
