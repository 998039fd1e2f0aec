package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/quillpost/quillpost/internal/newsletter/domain"
	"github.com/quillpost/quillpost/internal/newsletter/service"
	"github.com/quillpost/quillpost/pkg/httpx"
	"github.com/quillpost/quillpost/pkg/slogx"
)

// publishRealm names the protection space in the Basic auth challenge.
const publishRealm = "publish"

type PublishHandler struct {
	CredentialsService *service.CredentialsService
	PublishService     *service.PublishService
}

// ServeHTTP publishes an issue to all confirmed subscribers. The endpoint is
// stateless: every request authenticates via HTTP Basic against the same
// validator as form login. Authentication failures produce the challenge and
// no side effects.
func (h *PublishHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	creds, err := httpx.ParseBasicAuth(r)
	if err != nil {
		log.Warn("publish request without valid basic auth", "error", err)
		httpx.WriteBasicChallenge(w, publishRealm)
		return
	}

	_, err = h.CredentialsService.Validate(ctx, domain.Credentials{
		Username: creds.Username,
		Password: creds.Password,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			log.Warn("publish attempt with invalid credentials", "username", creds.Username)
			httpx.WriteBasicChallenge(w, publishRealm)
			return
		}
		log.Error("publish authentication failed unexpectedly", "error", err)
		httpx.WriteJSON(w, http.StatusInternalServerError, httpx.ErrorResponse{
			Error:            "server_error",
			ErrorDescription: "Something went wrong",
		})
		return
	}

	var issue domain.Issue
	if err := json.NewDecoder(r.Body).Decode(&issue); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, httpx.ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "Invalid JSON body",
		})
		return
	}

	if err := h.PublishService.Publish(ctx, issue); err != nil {
		if errors.Is(err, domain.ErrInvalidIssue) {
			httpx.WriteJSON(w, http.StatusBadRequest, httpx.ErrorResponse{
				Error:            "invalid_request",
				ErrorDescription: err.Error(),
			})
			return
		}
		log.Error("failed to publish issue", "error", err)
		httpx.WriteJSON(w, http.StatusInternalServerError, httpx.ErrorResponse{
			Error:            "server_error",
			ErrorDescription: "Something went wrong",
		})
		return
	}

	w.WriteHeader(http.StatusOK)
}
