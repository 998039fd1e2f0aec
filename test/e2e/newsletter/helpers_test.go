package newsletter_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/quillpost/quillpost/internal/newsletter/domain"
	"github.com/quillpost/quillpost/internal/newsletter/email"
	httpapi "github.com/quillpost/quillpost/internal/newsletter/http"
	"github.com/quillpost/quillpost/internal/newsletter/service"
	"github.com/quillpost/quillpost/internal/newsletter/session"
	"github.com/quillpost/quillpost/internal/newsletter/store"
	"github.com/quillpost/quillpost/internal/newsletter/store/drivers/sqlite"
	"github.com/quillpost/quillpost/pkg/cryptox"
	"github.com/quillpost/quillpost/pkg/secretx"
)

// capturedEmail mirrors the provider's send request body.
type capturedEmail struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	HTMLBody string `json:"HtmlBody"`
	TextBody string `json:"TextBody"`
}

// mailServer is a fake Postmark-compatible API capturing outgoing mail.
type mailServer struct {
	mu     sync.Mutex
	emails []capturedEmail
	server *httptest.Server
}

func newMailServer(t *testing.T) *mailServer {
	t.Helper()

	m := &mailServer{}
	m.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/email" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("X-Postmark-Server-Token") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		var e capturedEmail
		if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		m.mu.Lock()
		m.emails = append(m.emails, e)
		m.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(m.server.Close)
	return m
}

func (m *mailServer) captured() []capturedEmail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]capturedEmail(nil), m.emails...)
}

// testEnv runs the full HTTP stack: real router, real sqlite store, real
// email client speaking HTTP to the fake provider, redis-backed sessions
// against miniredis.
type testEnv struct {
	server *httptest.Server
	client *http.Client
	store  store.Store
	mail   *mailServer
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })
	sessions := &session.Manager{Store: session.NewRedisStore(redisClient)}

	mail := newMailServer(t)
	emailClient := email.NewClient(
		mail.server.URL, "newsletter@example.com", secretx.New("server-token"), 5*time.Second)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := httpapi.NewRouter("e2e", st, sessions, secretx.New("e2e-hmac-key"), false, logger)
	router.CredentialsService = service.NewCredentialsService(st)
	router.SubscriptionService = &service.SubscriptionService{
		Store:  st,
		Emails: emailClient,
	}
	router.PublishService = &service.PublishService{Store: st, Emails: emailClient}
	router.ApplyRoutes()

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	router.SubscriptionService.BaseURL = server.URL

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &testEnv{
		server: server,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		store: st,
		mail:  mail,
	}
}

func (e *testEnv) createUser(t *testing.T, username, password string) {
	t.Helper()

	hash, err := cryptox.HashPassword(password)
	require.NoError(t, err)
	require.NoError(t, e.store.Users().CreateUser(context.Background(), domain.User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: hash,
	}))
}

func (e *testEnv) postForm(t *testing.T, path string, form url.Values) *http.Response {
	t.Helper()

	resp, err := e.client.PostForm(e.server.URL+path, form)
	require.NoError(t, err)
	return resp
}

func (e *testEnv) get(t *testing.T, rawURL string) *http.Response {
	t.Helper()

	if strings.HasPrefix(rawURL, "/") {
		rawURL = e.server.URL + rawURL
	}
	resp, err := e.client.Get(rawURL)
	require.NoError(t, err)
	return resp
}

func confirmationLink(t *testing.T, e capturedEmail) string {
	t.Helper()

	_, rest, ok := strings.Cut(e.TextBody, "Visit ")
	require.True(t, ok, "confirmation email should contain a link")
	link := strings.Fields(rest)[0]
	require.Contains(t, link, "/subscriptions/confirm?subscription_token=")
	return link
}

func drainBody(t *testing.T, resp *http.Response) string {
	t.Helper()

	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}
