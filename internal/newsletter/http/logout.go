package http

import (
	"net/http"

	"github.com/quillpost/quillpost/pkg/httpx"
	"github.com/quillpost/quillpost/pkg/slogx"
)

type LogoutHandler struct{}

// ServeHTTP destroys the session and sends the user back to the login form
// with a confirmation flash. Runs behind RequireUser.
func (h *LogoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	sess := SessionFromContext(ctx)

	if err := sess.Destroy(ctx); err != nil {
		log.Error("failed to destroy session", "error", err)
		httpx.WriteJSON(w, http.StatusInternalServerError, httpx.ErrorResponse{
			Error:            "server_error",
			ErrorDescription: "Something went wrong",
		})
		return
	}

	if err := sess.Flash(ctx, "You have successfully logged out."); err != nil {
		log.Error("failed to store logout flash", "error", err)
	}
	writeSessionCookie(w, sess)
	httpx.SeeOther(w, r, "/login")
}
