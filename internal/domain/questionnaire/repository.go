package questionnaire

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// CheckpointStore persists the full SessionState keyed by session ID. Load
// of an unknown session returns ErrSessionNotFound.
type CheckpointStore interface {
	Save(ctx context.Context, state *SessionState) error
	// SaveWithSession persists the checkpoint and the mirrored session
	// record in one transaction: either both are durable or neither is.
	SaveWithSession(ctx context.Context, state *SessionState, session *Session) error
	Load(ctx context.Context, sessionID uuid.UUID) (*SessionState, error)
	Delete(ctx context.Context, sessionID uuid.UUID) error
}

// SessionRepository manages the durable session records
type SessionRepository interface {
	Create(ctx context.Context, session *Session) error
	Update(ctx context.Context, session *Session) error
	FindByID(ctx context.Context, sessionID uuid.UUID) (*Session, error)
	// FindByIDForUser enforces ownership; a foreign session behaves as missing
	FindByIDForUser(ctx context.Context, sessionID, userID uuid.UUID) (*Session, error)
	FindIncompleteByUser(ctx context.Context, userID uuid.UUID) ([]Session, error)
	Delete(ctx context.Context, sessionID uuid.UUID) error
	// MarkExpired flips idle sessions past their expiry cutoff to expired,
	// returning how many were affected
	MarkExpired(ctx context.Context, now time.Time) (int64, error)
}

// SubmissionRepository appends finalized submissions. CreateOnce fails with
// ErrSessionAlreadyFinalized when the session already has one.
type SubmissionRepository interface {
	CreateOnce(ctx context.Context, submission *Submission) error
	FindBySessionID(ctx context.Context, sessionID uuid.UUID) (*Submission, error)
}

// SessionLocker serialises transitions per session: only one in-flight
// transition per session ID is allowed at a time. Acquire returns
// ErrConcurrentAccess when the lock is held elsewhere.
type SessionLocker interface {
	Acquire(ctx context.Context, sessionID uuid.UUID) (release func(), err error)
}
