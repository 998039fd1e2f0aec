package service

import (
	"context"
	"fmt"

	"github.com/quillpost/quillpost/internal/newsletter/domain"
	"github.com/quillpost/quillpost/internal/newsletter/email"
	"github.com/quillpost/quillpost/internal/newsletter/store"
	"github.com/quillpost/quillpost/pkg/slogx"
)

// PublishService delivers newsletter issues to confirmed subscribers.
type PublishService struct {
	Store  store.Store
	Emails email.Sender
}

// Publish sends an issue to every confirmed subscriber. A delivery failure
// for one subscriber is logged and skipped so the rest still receive the
// issue; only listing subscribers can fail the whole operation.
func (s *PublishService) Publish(ctx context.Context, issue domain.Issue) error {
	if err := issue.Validate(); err != nil {
		return err
	}

	subscribers, err := s.Store.Subscribers().ListConfirmedSubscribers(ctx)
	if err != nil {
		return fmt.Errorf("failed to list confirmed subscribers: %w", err)
	}

	log := slogx.FromContext(ctx)
	delivered := 0
	for _, sub := range subscribers {
		err := s.Emails.Send(ctx, email.Message{
			To:       sub.Email,
			Subject:  issue.Title,
			HTMLBody: issue.Content.HTML,
			TextBody: issue.Content.Text,
		})
		if err != nil {
			// A subscriber stored before validation tightened, or a
			// transient provider fault. Their issue is skipped, not retried.
			log.Warn("skipping subscriber, failed to deliver issue",
				"subscriber_id", sub.ID, "error", err)
			continue
		}
		delivered++
	}

	log.Info("issue published",
		"title", issue.Title, "delivered", delivered, "subscribers", len(subscribers))
	return nil
}
