package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/quillpost/quillpost/pkg/secretx"
)

// User is an operator account allowed to log in and publish issues.
type User struct {
	ID           uuid.UUID
	Username     string
	PasswordHash string // argon2id, PHC encoded
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Credentials is a transient per-request username/password pair. It is never
// persisted and the password cannot leak through formatting or logging.
type Credentials struct {
	Username string
	Password secretx.Secret
}
