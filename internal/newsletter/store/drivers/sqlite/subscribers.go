package sqlite

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/quillpost/quillpost/internal/newsletter/domain"
)

type subscribersRepo struct {
	q querier
}

const subscriberColumns = `id, email, name, status, subscribed_at`

func (r *subscribersRepo) CreateSubscriber(ctx context.Context, s domain.Subscriber) error {
	if s.SubscribedAt.IsZero() {
		s.SubscribedAt = time.Now().UTC()
	}
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO subscriptions (id, email, name, status, subscribed_at)
		 VALUES (?, ?, ?, ?, ?)`,
		s.ID.String(), s.Email, s.Name, s.Status, s.SubscribedAt)
	return mapConflict(err)
}

func (r *subscribersRepo) GetSubscriberByEmail(ctx context.Context, email string) (domain.Subscriber, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+subscriberColumns+` FROM subscriptions WHERE email = ?`, email)
	return scanSubscriber(row)
}

func (r *subscribersRepo) ConfirmSubscriber(ctx context.Context, id uuid.UUID) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE subscriptions SET status = ? WHERE id = ?`,
		domain.StatusConfirmed, id.String())
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

func (r *subscribersRepo) ListConfirmedSubscribers(ctx context.Context) ([]domain.Subscriber, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+subscriberColumns+` FROM subscriptions
		 WHERE status = ? ORDER BY subscribed_at`, domain.StatusConfirmed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []domain.Subscriber
	for rows.Next() {
		s, err := scanSubscriber(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

func scanSubscriber(row rowScanner) (domain.Subscriber, error) {
	var (
		s  domain.Subscriber
		id string
	)
	err := row.Scan(&id, &s.Email, &s.Name, &s.Status, &s.SubscribedAt)
	if err != nil {
		return domain.Subscriber{}, mapNotFound(err)
	}
	s.ID, err = uuid.Parse(id)
	if err != nil {
		return domain.Subscriber{}, err
	}
	return s, nil
}
