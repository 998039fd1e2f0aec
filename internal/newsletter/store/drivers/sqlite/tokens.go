package sqlite

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type subscriptionTokensRepo struct {
	q querier
}

func (r *subscriptionTokensRepo) CreateSubscriptionToken(
	ctx context.Context,
	fingerprint string,
	subscriberID uuid.UUID,
	issuedAt time.Time,
) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO subscription_tokens (token_fingerprint, subscriber_id, issued_at)
		 VALUES (?, ?, ?)`,
		fingerprint, subscriberID.String(), issuedAt)
	return mapConflict(err)
}

func (r *subscriptionTokensRepo) GetSubscriberIDByFingerprint(
	ctx context.Context,
	fingerprint string,
) (uuid.UUID, error) {
	var id string
	err := r.q.QueryRowContext(ctx,
		`SELECT subscriber_id FROM subscription_tokens WHERE token_fingerprint = ?`,
		fingerprint).Scan(&id)
	if err != nil {
		return uuid.Nil, mapNotFound(err)
	}
	return uuid.Parse(id)
}
