package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/quillpost/quillpost/internal/newsletter/domain"
	"github.com/quillpost/quillpost/internal/newsletter/store"
	"github.com/quillpost/quillpost/pkg/cryptox"
)

// ErrInvalidCredentials covers every login failure a caller may learn about.
// Unknown username and wrong password collapse into it so responses cannot
// be used to enumerate accounts.
var ErrInvalidCredentials = errors.New("invalid_credentials")

// dummyPasswordHash is a valid-format argon2id hash of no real password. It
// is verified whenever the username does not exist so the unknown-username
// path costs the same as a real verification.
const dummyPasswordHash = "$argon2id$v=19$m=19456,t=2,p=1$" +
	"gZiV/M1gPc22ElAH/Jh1Hw$CWOrkoo7oJBQ/iyh7uJ0LO2aLEfrHwTWllSAxT0zRno"

// CredentialsService validates operator logins and manages passwords.
type CredentialsService struct {
	Store store.Store

	// sem bounds concurrent argon2 work so a login burst cannot occupy
	// every scheduler thread. Sized to GOMAXPROCS on first use.
	sem *semaphore.Weighted
}

func NewCredentialsService(s store.Store) *CredentialsService {
	return &CredentialsService{
		Store: s,
		sem:   semaphore.NewWeighted(int64(runtime.GOMAXPROCS(0))),
	}
}

// Validate checks a username/password pair and returns the user id on
// success. The password is always verified against some hash, real or dummy,
// so timing does not reveal whether the username exists.
func (s *CredentialsService) Validate(ctx context.Context, creds domain.Credentials) (uuid.UUID, error) {
	expectedHash := dummyPasswordHash
	var userID uuid.UUID
	known := false

	user, err := s.Store.Users().GetUserByUsername(ctx, creds.Username)
	switch {
	case err == nil:
		expectedHash = user.PasswordHash
		userID = user.ID
		known = true
	case errors.Is(err, store.ErrNotFound):
		// proceed with the dummy hash
	default:
		return uuid.Nil, fmt.Errorf("failed to look up user: %w", err)
	}

	verifyErr := s.verifyOffLoop(ctx, creds.Password.Expose(), expectedHash)
	switch {
	case verifyErr == nil:
	case errors.Is(verifyErr, cryptox.ErrPasswordMismatch):
		return uuid.Nil, ErrInvalidCredentials
	case !known:
		// A malformed dummy hash would be a programming error, but the
		// caller still only learns that the credentials were bad.
		return uuid.Nil, ErrInvalidCredentials
	default:
		return uuid.Nil, fmt.Errorf("failed to verify password hash: %w", verifyErr)
	}

	if !known {
		// Dummy verification cannot actually succeed; belt and braces.
		return uuid.Nil, ErrInvalidCredentials
	}
	return userID, nil
}

// ChangePassword re-hashes and stores a new password for a user.
func (s *CredentialsService) ChangePassword(ctx context.Context, userID uuid.UUID, newPassword string) error {
	var hash string
	err := s.runOffLoop(ctx, func() error {
		var err error
		hash, err = cryptox.HashPassword(newPassword)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return s.Store.Users().UpdatePasswordHash(ctx, userID, hash)
}

func (s *CredentialsService) verifyOffLoop(ctx context.Context, password, encodedHash string) error {
	return s.runOffLoop(ctx, func() error {
		return cryptox.VerifyPassword(password, encodedHash)
	})
}

// runOffLoop executes a CPU-bound function on its own goroutine, gated by
// the semaphore. A panic in fn becomes an error rather than tearing the
// process down, and cancellation abandons the wait without leaking the
// goroutine (it finishes and releases its slot on its own).
func (s *CredentialsService) runOffLoop(ctx context.Context, fn func() error) error {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		defer s.sem.Release(1)
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("password hashing panicked: %v", r)
			}
		}()
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
