package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quillpost/quillpost/internal/newsletter/domain"
)

func TestPublish(t *testing.T) {
	t.Parallel()

	issue := domain.Issue{
		Title: "Issue #1",
		Content: domain.IssueContent{
			HTML: "<p>news</p>",
			Text: "news",
		},
	}

	setup := func(t *testing.T, sender *fakeSender) (*PublishService, *SubscriptionService) {
		s := newTestStore(t)
		sub := &SubscriptionService{Store: s, Emails: sender, BaseURL: "https://news.example.com"}
		return &PublishService{Store: s, Emails: sender}, sub
	}

	confirmAll := func(t *testing.T, sub *SubscriptionService, sender *fakeSender, emails ...string) {
		t.Helper()
		for i, addr := range emails {
			require.NoError(t, sub.Subscribe(context.Background(), "Reader", addr))
			require.NoError(t, sub.Confirm(context.Background(), extractToken(t, sender.messages()[i])))
		}
	}

	t.Run("delivers to confirmed subscribers only", func(t *testing.T) {
		t.Parallel()

		sender := &fakeSender{}
		pub, sub := setup(t, sender)
		ctx := context.Background()

		confirmAll(t, sub, sender, "confirmed@example.com")
		require.NoError(t, sub.Subscribe(ctx, "Pending", "pending@example.com"))

		before := len(sender.messages())
		require.NoError(t, pub.Publish(ctx, issue))

		issueMail := sender.messages()[before:]
		require.Len(t, issueMail, 1)
		require.Equal(t, "confirmed@example.com", issueMail[0].To)
		require.Equal(t, issue.Title, issueMail[0].Subject)
		require.Equal(t, issue.Content.HTML, issueMail[0].HTMLBody)
		require.Equal(t, issue.Content.Text, issueMail[0].TextBody)
	})

	t.Run("one failed delivery does not stop the rest", func(t *testing.T) {
		t.Parallel()

		sender := &fakeSender{}
		pub, sub := setup(t, sender)
		ctx := context.Background()

		confirmAll(t, sub, sender, "first@example.com", "second@example.com")

		// Fail deliveries to first@ from here on.
		sender.mu.Lock()
		sender.failFor = map[string]error{"first@example.com": errors.New("bounced")}
		sender.mu.Unlock()

		before := len(sender.messages())
		require.NoError(t, pub.Publish(ctx, issue))

		issueMail := sender.messages()[before:]
		require.Len(t, issueMail, 1)
		require.Equal(t, "second@example.com", issueMail[0].To)
	})

	t.Run("rejects invalid issues", func(t *testing.T) {
		t.Parallel()

		sender := &fakeSender{}
		pub, _ := setup(t, sender)

		err := pub.Publish(context.Background(), domain.Issue{Title: "no body"})
		require.ErrorIs(t, err, domain.ErrInvalidIssue)
		require.Empty(t, sender.messages())
	})
}
