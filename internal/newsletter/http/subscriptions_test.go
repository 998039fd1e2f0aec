package http

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quillpost/quillpost/internal/newsletter/domain"
)

func TestSubscribeEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("valid signup returns 200 and stores a pending subscriber", func(t *testing.T) {
		t.Parallel()

		app := newTestApp(t, false)

		resp := app.postForm(t, "/subscriptions", url.Values{
			"name":  {"Ursula Le Guin"},
			"email": {"ursula@example.com"},
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()

		sub, err := app.store.Subscribers().GetSubscriberByEmail(context.Background(), "ursula@example.com")
		require.NoError(t, err)
		require.Equal(t, domain.StatusPendingConfirmation, sub.Status)
		require.Len(t, app.sender.messages(), 1)
	})

	t.Run("validation failures return 400", func(t *testing.T) {
		t.Parallel()

		app := newTestApp(t, false)

		cases := []url.Values{
			{"name": {""}, "email": {"a@b.com"}},
			{"name": {"A Name"}, "email": {""}},
			{"name": {"A Name"}, "email": {"definitely-not-an-email"}},
		}
		for _, form := range cases {
			resp := app.postForm(t, "/subscriptions", form)
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
			resp.Body.Close()
		}
		require.Empty(t, app.sender.messages())
	})
}

func TestConfirmEndpoint(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, false)

	resp := app.postForm(t, "/subscriptions", url.Values{
		"name":  {"Ada"},
		"email": {"ada@example.com"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	token := extractConfirmToken(t, app.sender.messages()[0])

	t.Run("missing token is a 400", func(t *testing.T) {
		resp := app.get(t, "/subscriptions/confirm")
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		resp.Body.Close()
	})

	t.Run("unknown token is a 401", func(t *testing.T) {
		resp := app.get(t, "/subscriptions/confirm?subscription_token=aaaaaaaaaaaaaaaaaaaaaaaaa")
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		resp.Body.Close()
	})

	t.Run("valid token confirms and is re-redeemable", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			resp := app.get(t, "/subscriptions/confirm?subscription_token="+token)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			resp.Body.Close()
		}

		sub, err := app.store.Subscribers().GetSubscriberByEmail(context.Background(), "ada@example.com")
		require.NoError(t, err)
		require.Equal(t, domain.StatusConfirmed, sub.Status)
	})
}
