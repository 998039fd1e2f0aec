package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Subscriber status values. A subscriber is created pending and flips to
// confirmed exactly once, when their confirmation token is redeemed.
const (
	StatusPendingConfirmation = "pending_confirmation"
	StatusConfirmed           = "confirmed"
)

// Subscriber is a newsletter recipient.
type Subscriber struct {
	ID           uuid.UUID
	Email        string
	Name         string
	Status       string
	SubscribedAt time.Time
}

// NewSubscriber is a validated signup request. Build it with
// ParseNewSubscriber; direct construction bypasses validation.
type NewSubscriber struct {
	Email string
	Name  string
}

const maxFieldLength = 256

// Characters that would let a stored name break out of the contexts it gets
// interpolated into (emails, logs).
const forbiddenNameCharacters = `/()"<>\{}`

// ErrInvalidSubscriber is wrapped by every signup validation failure so
// callers can separate bad input from internal faults with one errors.Is.
var ErrInvalidSubscriber = errors.New("invalid subscriber")

var (
	ErrEmptyName    = fmt.Errorf("%w: name cannot be empty", ErrInvalidSubscriber)
	ErrNameTooLong  = fmt.Errorf("%w: name cannot exceed %d characters", ErrInvalidSubscriber, maxFieldLength)
	ErrEmptyEmail   = fmt.Errorf("%w: email cannot be empty", ErrInvalidSubscriber)
	ErrEmailTooLong = fmt.Errorf("%w: email cannot exceed %d characters", ErrInvalidSubscriber, maxFieldLength)
	ErrInvalidEmail = fmt.Errorf("%w: email is not a valid address", ErrInvalidSubscriber)
)

// ParseNewSubscriber validates raw signup input.
func ParseNewSubscriber(name, email string) (NewSubscriber, error) {
	parsedName, err := parseSubscriberName(name)
	if err != nil {
		return NewSubscriber{}, err
	}
	parsedEmail, err := parseSubscriberEmail(email)
	if err != nil {
		return NewSubscriber{}, err
	}
	return NewSubscriber{Name: parsedName, Email: parsedEmail}, nil
}

func parseSubscriberName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", ErrEmptyName
	}
	if utf8.RuneCountInString(trimmed) > maxFieldLength {
		return "", ErrNameTooLong
	}
	if strings.ContainsAny(trimmed, forbiddenNameCharacters) {
		return "", fmt.Errorf("%w: name contains a forbidden character", ErrInvalidSubscriber)
	}
	return trimmed, nil
}

func parseSubscriberEmail(email string) (string, error) {
	trimmed := strings.TrimSpace(email)
	if trimmed == "" {
		return "", ErrEmptyEmail
	}
	if utf8.RuneCountInString(trimmed) > maxFieldLength {
		return "", ErrEmailTooLong
	}
	local, domainPart, ok := strings.Cut(trimmed, "@")
	if !ok || local == "" || domainPart == "" || strings.ContainsAny(trimmed, " \t") {
		return "", ErrInvalidEmail
	}
	return trimmed, nil
}
