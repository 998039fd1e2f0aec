package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/quillpost/quillpost/internal/newsletter/domain"
	"github.com/quillpost/quillpost/internal/newsletter/email"
	"github.com/quillpost/quillpost/internal/newsletter/store"
	"github.com/quillpost/quillpost/pkg/cryptox"
	"github.com/quillpost/quillpost/pkg/slogx"
)

// ErrUnknownToken is returned by Confirm when no subscriber matches the
// presented token. Distinct from storage faults so the handler can answer
// 401 instead of 500.
var ErrUnknownToken = errors.New("unknown subscription token")

// SubscriptionService runs the signup and confirmation flows.
type SubscriptionService struct {
	Store   store.Store
	Emails  email.Sender
	BaseURL string
}

// Subscribe records a pending subscriber, issues a confirmation token and
// emails the confirmation link. The subscriber row and the token fingerprint
// are committed in one transaction, so a pending subscriber always has a
// token to redeem. Signing up again with the same email issues a fresh
// token; both remain redeemable.
func (s *SubscriptionService) Subscribe(ctx context.Context, name, emailAddr string) error {
	sub, err := domain.ParseNewSubscriber(name, emailAddr)
	if err != nil {
		return err
	}

	token, err := cryptox.GenerateSubscriptionToken()
	if err != nil {
		return fmt.Errorf("failed to generate subscription token: %w", err)
	}
	fingerprint := cryptox.FingerprintToken(token)

	subscriber := domain.Subscriber{
		ID:           uuid.New(),
		Email:        sub.Email,
		Name:         sub.Name,
		Status:       domain.StatusPendingConfirmation,
		SubscribedAt: time.Now().UTC(),
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		createErr := tx.Subscribers().CreateSubscriber(ctx, subscriber)
		switch {
		case createErr == nil:
		case errors.Is(createErr, store.ErrAlreadyExists):
			// Repeat signup. Reuse the existing row but still mint a new
			// token so a lost confirmation email can be replaced.
			existing, getErr := tx.Subscribers().GetSubscriberByEmail(ctx, sub.Email)
			if getErr != nil {
				return getErr
			}
			subscriber = existing
		default:
			return createErr
		}
		return tx.SubscriptionTokens().CreateSubscriptionToken(
			ctx, fingerprint, subscriber.ID, time.Now().UTC())
	})
	if err != nil {
		return fmt.Errorf("failed to store subscriber: %w", err)
	}

	if err := s.sendConfirmationEmail(ctx, subscriber, token); err != nil {
		return fmt.Errorf("failed to send confirmation email: %w", err)
	}
	return nil
}

// Confirm redeems a confirmation token and marks the subscriber confirmed.
// Redeeming the same token twice succeeds both times.
func (s *SubscriptionService) Confirm(ctx context.Context, token string) error {
	fingerprint := cryptox.FingerprintToken(token)

	subscriberID, err := s.Store.SubscriptionTokens().GetSubscriberIDByFingerprint(ctx, fingerprint)
	if errors.Is(err, store.ErrNotFound) {
		return ErrUnknownToken
	}
	if err != nil {
		return fmt.Errorf("failed to look up subscription token: %w", err)
	}

	if err := s.Store.Subscribers().ConfirmSubscriber(ctx, subscriberID); err != nil {
		return fmt.Errorf("failed to confirm subscriber: %w", err)
	}
	return nil
}

func (s *SubscriptionService) sendConfirmationEmail(ctx context.Context, sub domain.Subscriber, token string) error {
	link := fmt.Sprintf("%s/subscriptions/confirm?subscription_token=%s",
		s.BaseURL, url.QueryEscape(token))

	slogx.FromContext(ctx).Info("sending confirmation email", "subscriber_id", sub.ID)

	return s.Emails.Send(ctx, email.Message{
		To:      sub.Email,
		Subject: "Confirm your subscription",
		HTMLBody: fmt.Sprintf(
			`Welcome to our newsletter!<br/>Click <a href="%s">here</a> to confirm your subscription.`,
			link),
		TextBody: fmt.Sprintf(
			"Welcome to our newsletter!\nVisit %s to confirm your subscription.",
			link),
	})
}
