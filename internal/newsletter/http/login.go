package http

import (
	"errors"
	"fmt"
	"html"
	"net/http"

	"github.com/quillpost/quillpost/internal/newsletter/domain"
	"github.com/quillpost/quillpost/internal/newsletter/service"
	"github.com/quillpost/quillpost/internal/newsletter/session"
	"github.com/quillpost/quillpost/pkg/cryptox"
	"github.com/quillpost/quillpost/pkg/httpx"
	"github.com/quillpost/quillpost/pkg/secretx"
	"github.com/quillpost/quillpost/pkg/slogx"
)

// genericLoginFailure is the single outward message for every login failure,
// so responses cannot distinguish unknown usernames from wrong passwords.
const genericLoginFailure = "Authentication failed"

type LoginHandler struct {
	CredentialsService *service.CredentialsService

	// HMACKey signs the error query pair used instead of a session flash
	// when SignedRedirects is on.
	HMACKey         secretx.Secret
	SignedRedirects bool
}

// HandleGet renders the login form with any pending failure message. The
// message comes from the one-shot session flash, or from a signed error/tag
// query pair in sessionless deployments. An invalid tag discards the message.
func (h *LoginHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	sess := SessionFromContext(ctx)

	var errMsg string
	if msg, err := sess.PopFlash(ctx); err != nil {
		log.Error("failed to read session flash", "error", err)
	} else if msg != "" {
		errMsg = msg
		writeSessionCookie(w, sess)
	}

	if errMsg == "" && r.URL.Query().Has(cryptox.SignedQueryTagParam) {
		msg, err := cryptox.DecodeSignedQuery(r.URL.Query(), h.HMACKey)
		if err != nil {
			log.Warn("discarding login error message with invalid tag", "error", err)
		} else {
			errMsg = msg
		}
	}

	var errHTML string
	if errMsg != "" {
		errHTML = fmt.Sprintf("<p><i>%s</i></p>\n", html.EscapeString(errMsg))
	}

	httpx.NoCache(w)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, loginPage, errHTML)
}

// HandlePost processes a login attempt. On success the session id is rotated
// before the user id is bound to it, so a pre-planted session id never
// becomes authenticated.
func (h *LoginHandler) HandlePost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	sess := SessionFromContext(ctx)

	if err := r.ParseForm(); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, httpx.ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "Invalid form data",
		})
		return
	}

	creds := domain.Credentials{
		Username: r.FormValue("username"),
		Password: secretx.New(r.FormValue("password")),
	}

	userID, err := h.CredentialsService.Validate(ctx, creds)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			log.Warn("login attempt failed", "username", creds.Username)
			h.redirectWithError(w, r, sess, genericLoginFailure)
			return
		}
		log.Error("login failed unexpectedly", "error", err)
		httpx.WriteJSON(w, http.StatusInternalServerError, httpx.ErrorResponse{
			Error:            "server_error",
			ErrorDescription: "Something went wrong",
		})
		return
	}

	if err := sess.RotateID(ctx); err != nil {
		log.Error("failed to rotate session id", "error", err)
		httpx.WriteJSON(w, http.StatusInternalServerError, httpx.ErrorResponse{
			Error:            "server_error",
			ErrorDescription: "Something went wrong",
		})
		return
	}
	if err := sess.SetUserID(ctx, userID); err != nil {
		log.Error("failed to bind user to session", "error", err)
		httpx.WriteJSON(w, http.StatusInternalServerError, httpx.ErrorResponse{
			Error:            "server_error",
			ErrorDescription: "Something went wrong",
		})
		return
	}

	writeSessionCookie(w, sess)
	httpx.SeeOther(w, r, "/admin/dashboard")
}

func (h *LoginHandler) redirectWithError(
	w http.ResponseWriter,
	r *http.Request,
	sess *session.Session,
	msg string,
) {
	if h.SignedRedirects {
		httpx.SeeOther(w, r, "/login?"+cryptox.EncodeSignedQuery(msg, h.HMACKey))
		return
	}

	if err := sess.Flash(r.Context(), msg); err != nil {
		// The flash is best effort; the login still fails closed.
		slogx.FromContext(r.Context()).Error("failed to store login flash", "error", err)
	} else {
		writeSessionCookie(w, sess)
	}
	httpx.SeeOther(w, r, "/login")
}

const loginPage = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta http-equiv="content-type" content="text/html; charset=utf-8">
    <title>Login</title>
</head>
<body>
%s<form action="/login" method="post">
    <label>Username
        <input type="text" placeholder="Enter Username" name="username">
    </label>
    <label>Password
        <input type="password" placeholder="Enter Password" name="password">
    </label>
    <button type="submit">Login</button>
</form>
</body>
</html>
`
