package http

import (
	"errors"
	"net/http"

	"github.com/quillpost/quillpost/internal/newsletter/service"
	"github.com/quillpost/quillpost/pkg/httpx"
	"github.com/quillpost/quillpost/pkg/slogx"
)

type ConfirmHandler struct {
	SubscriptionService *service.SubscriptionService
}

func (h *ConfirmHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	token := r.URL.Query().Get("subscription_token")
	if token == "" {
		httpx.WriteJSON(w, http.StatusBadRequest, httpx.ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "subscription_token is required",
		})
		return
	}

	if err := h.SubscriptionService.Confirm(ctx, token); err != nil {
		if errors.Is(err, service.ErrUnknownToken) {
			log.Warn("confirmation attempted with unknown token")
			httpx.WriteJSON(w, http.StatusUnauthorized, httpx.ErrorResponse{
				Error:            "invalid_token",
				ErrorDescription: "There is no subscriber associated with the provided token",
			})
			return
		}
		log.Error("failed to confirm subscriber", "error", err)
		httpx.WriteJSON(w, http.StatusInternalServerError, httpx.ErrorResponse{
			Error:            "server_error",
			ErrorDescription: "Something went wrong",
		})
		return
	}

	w.WriteHeader(http.StatusOK)
}
