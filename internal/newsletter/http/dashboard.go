package http

import (
	"fmt"
	"html"
	"net/http"

	"github.com/quillpost/quillpost/internal/newsletter/store"
	"github.com/quillpost/quillpost/pkg/httpx"
	"github.com/quillpost/quillpost/pkg/slogx"
)

type DashboardHandler struct {
	Store store.Store
}

// ServeHTTP renders the admin landing page. Runs behind RequireUser, so a
// user id is always present; a dangling id (user deleted mid-session) still
// fails closed.
func (h *DashboardHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	sess := SessionFromContext(ctx)

	userID, _ := sess.UserID()
	user, err := h.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		log.Error("failed to load dashboard user", "user_id", userID, "error", err)
		httpx.SeeOther(w, r, "/login")
		return
	}

	var flashHTML string
	if msg, err := sess.PopFlash(ctx); err != nil {
		log.Error("failed to read session flash", "error", err)
	} else if msg != "" {
		flashHTML = fmt.Sprintf("<p><i>%s</i></p>\n", html.EscapeString(msg))
	}

	httpx.NoCache(w)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, dashboardPage, flashHTML, html.EscapeString(user.Username))
}

const dashboardPage = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta http-equiv="content-type" content="text/html; charset=utf-8">
    <title>Admin dashboard</title>
</head>
<body>
%s<p>Welcome %s!</p>
<ol>
    <li>
        <form name="changePassword" action="/admin/password" method="post">
            <label>Current password
                <input type="password" name="current_password">
            </label>
            <label>New password
                <input type="password" name="new_password">
            </label>
            <label>Confirm new password
                <input type="password" name="new_password_check">
            </label>
            <button type="submit">Change password</button>
        </form>
    </li>
    <li>
        <form name="logoutForm" action="/admin/logout" method="post">
            <input type="submit" value="Logout">
        </form>
    </li>
</ol>
</body>
</html>
`
