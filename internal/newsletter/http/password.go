package http

import (
	"errors"
	"net/http"

	"github.com/quillpost/quillpost/internal/newsletter/domain"
	"github.com/quillpost/quillpost/internal/newsletter/service"
	"github.com/quillpost/quillpost/pkg/httpx"
	"github.com/quillpost/quillpost/pkg/secretx"
	"github.com/quillpost/quillpost/pkg/slogx"
)

type ChangePasswordHandler struct {
	CredentialsService *service.CredentialsService
}

// ServeHTTP changes the logged-in user's password. The current password is
// revalidated through the same path as login, so a hijacked session alone
// cannot take over the account. Runs behind RequireUser.
func (h *ChangePasswordHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	sess := SessionFromContext(ctx)
	userID, _ := sess.UserID()

	if err := r.ParseForm(); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, httpx.ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "Invalid form data",
		})
		return
	}

	current := secretx.New(r.FormValue("current_password"))
	newPassword := secretx.New(r.FormValue("new_password"))
	newPasswordCheck := secretx.New(r.FormValue("new_password_check"))

	flashAndReturn := func(msg string) {
		if err := sess.Flash(ctx, msg); err != nil {
			log.Error("failed to store password flash", "error", err)
		}
		httpx.SeeOther(w, r, "/admin/dashboard")
	}

	if newPassword.Expose() != newPasswordCheck.Expose() {
		flashAndReturn("You entered two different new passwords - the field values must match.")
		return
	}
	if len(newPassword.Expose()) < 12 || len(newPassword.Expose()) > 128 {
		flashAndReturn("The new password must be between 12 and 128 characters long.")
		return
	}

	user, err := h.CredentialsService.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		log.Error("failed to load user for password change", "user_id", userID, "error", err)
		httpx.SeeOther(w, r, "/login")
		return
	}

	_, err = h.CredentialsService.Validate(ctx, domain.Credentials{
		Username: user.Username,
		Password: current,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			flashAndReturn("The current password is incorrect.")
			return
		}
		log.Error("failed to verify current password", "error", err)
		httpx.WriteJSON(w, http.StatusInternalServerError, httpx.ErrorResponse{
			Error:            "server_error",
			ErrorDescription: "Something went wrong",
		})
		return
	}

	if err := h.CredentialsService.ChangePassword(ctx, userID, newPassword.Expose()); err != nil {
		log.Error("failed to change password", "error", err)
		httpx.WriteJSON(w, http.StatusInternalServerError, httpx.ErrorResponse{
			Error:            "server_error",
			ErrorDescription: "Something went wrong",
		})
		return
	}

	flashAndReturn("Your password has been changed.")
}
