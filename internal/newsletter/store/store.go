package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/quillpost/quillpost/internal/newsletter/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers implement this.
// It exposes sub-repositories to keep concerns tidy and testable, and makes
// nested transactions hard to write by accident.
type Store interface {
	Users() Users
	Subscribers() Subscribers
	SubscriptionTokens() SubscriptionTokens

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction, committing when fn returns
	// nil and rolling back otherwise. Prefer this over Tx directly.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id uuid.UUID) (domain.User, error)

	// GetUserByUsername is used during login.
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by the app).
	CreateUser(ctx context.Context, u domain.User) error

	// UpdatePasswordHash sets the password_hash and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userID uuid.UUID, newHash string) error

	// IsEmpty returns true if there are no users.
	IsEmpty(ctx context.Context) (bool, error)
}

type Subscribers interface {
	// CreateSubscriber inserts a subscriber in pending_confirmation state.
	CreateSubscriber(ctx context.Context, s domain.Subscriber) error

	// GetSubscriberByEmail returns a subscriber by email.
	GetSubscriberByEmail(ctx context.Context, email string) (domain.Subscriber, error)

	// ConfirmSubscriber transitions a subscriber to confirmed. Confirming an
	// already confirmed subscriber is a no-op, not an error.
	ConfirmSubscriber(ctx context.Context, id uuid.UUID) error

	// ListConfirmedSubscribers returns every confirmed subscriber ordered by
	// subscription date.
	ListConfirmedSubscribers(ctx context.Context) ([]domain.Subscriber, error)
}

type SubscriptionTokens interface {
	// CreateSubscriptionToken stores a token fingerprint for a subscriber.
	CreateSubscriptionToken(ctx context.Context, fingerprint string, subscriberID uuid.UUID, issuedAt time.Time) error

	// GetSubscriberIDByFingerprint resolves a token fingerprint to the
	// subscriber it was issued for.
	GetSubscriberIDByFingerprint(ctx context.Context, fingerprint string) (uuid.UUID, error)
}
