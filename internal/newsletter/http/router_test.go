package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/quillpost/quillpost/internal/newsletter/domain"
	"github.com/quillpost/quillpost/internal/newsletter/email"
	"github.com/quillpost/quillpost/internal/newsletter/service"
	"github.com/quillpost/quillpost/internal/newsletter/session"
	"github.com/quillpost/quillpost/internal/newsletter/store"
	"github.com/quillpost/quillpost/internal/newsletter/store/drivers/sqlite"
	"github.com/quillpost/quillpost/pkg/cryptox"
	"github.com/quillpost/quillpost/pkg/secretx"
)

type capturingSender struct {
	mu   sync.Mutex
	sent []email.Message
}

func (c *capturingSender) Send(ctx context.Context, msg email.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, msg)
	return nil
}

func (c *capturingSender) messages() []email.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]email.Message(nil), c.sent...)
}

type testApp struct {
	server *httptest.Server
	client *http.Client
	store  store.Store
	sender *capturingSender
}

// newTestApp wires a full router against in-memory storage and returns a
// client that keeps cookies and never follows redirects, so tests can
// assert on 303 responses directly.
func newTestApp(t *testing.T, signedRedirects bool) *testApp {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	sender := &capturingSender{}
	sessions := &session.Manager{Store: session.NewMemoryStore()}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	r := NewRouter("test", st, sessions, secretx.New("hmac-test-key"), signedRedirects, logger)
	r.CredentialsService = service.NewCredentialsService(st)
	r.SubscriptionService = &service.SubscriptionService{
		Store:   st,
		Emails:  sender,
		BaseURL: "https://news.example.com",
	}
	r.PublishService = &service.PublishService{Store: st, Emails: sender}
	r.ApplyRoutes()

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &testApp{
		server: server,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		store:  st,
		sender: sender,
	}
}

func (a *testApp) createUser(t *testing.T, username, password string) uuid.UUID {
	t.Helper()

	hash, err := cryptox.HashPassword(password)
	require.NoError(t, err)

	id := uuid.New()
	require.NoError(t, a.store.Users().CreateUser(context.Background(), domain.User{
		ID:           id,
		Username:     username,
		PasswordHash: hash,
	}))
	return id
}

func (a *testApp) postForm(t *testing.T, path string, form url.Values) *http.Response {
	t.Helper()

	resp, err := a.client.PostForm(a.server.URL+path, form)
	require.NoError(t, err)
	return resp
}

func (a *testApp) get(t *testing.T, path string) *http.Response {
	t.Helper()

	resp, err := a.client.Get(a.server.URL + path)
	require.NoError(t, err)
	return resp
}

func (a *testApp) login(t *testing.T, username, password string) *http.Response {
	t.Helper()

	return a.postForm(t, "/login", url.Values{
		"username": {username},
		"password": {password},
	})
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()

	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, false)

	resp := app.get(t, "/livez")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, readBody(t, resp), `"status":"ok"`)

	resp = app.get(t, "/readyz")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, readBody(t, resp), `"database":"ok"`)
}

func extractConfirmToken(t *testing.T, msg email.Message) string {
	t.Helper()

	_, rest, ok := strings.Cut(msg.TextBody, "subscription_token=")
	require.True(t, ok, "confirmation email should carry a token link")
	token := strings.Fields(rest)[0]
	require.Len(t, token, cryptox.SubscriptionTokenLength)
	return token
}
