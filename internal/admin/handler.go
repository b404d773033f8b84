package admin

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	id "snowflake/pkg/domain"
	dErrors "snowflake/pkg/domain-errors"
	"snowflake/pkg/platform/httputil"
	adminmw "snowflake/pkg/platform/middleware/admin"
	request "snowflake/pkg/platform/middleware/request"
	"snowflake/pkg/requestcontext"
)

// Handler serves operator routes behind the admin token.
type Handler struct {
	service    *Service
	logger     *slog.Logger
	adminToken string
}

func NewHandler(service *Service, logger *slog.Logger, adminToken string) *Handler {
	return &Handler{service: service, logger: logger, adminToken: adminToken}
}

// Register registers the admin routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/admin", func(r chi.Router) {
		r.Use(adminmw.RequireAdminToken(h.adminToken, h.logger))
		r.Use(request.ContentTypeJSON)

		r.Post("/handles", h.handleSignUp)
		r.Get("/handles/{handle}", h.handleGetHandle)
		if h.service.FeesEnabled() {
			r.Post("/balances", h.handleCredit)
			r.Get("/balances/{address}", h.handleGetBalance)
		}
		if h.service.AuditEnabled() {
			r.Get("/tokens/{id}/audit", h.handleAuditTrail)
		}
	})
}

func (h *Handler) handleSignUp(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req SignUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	handle, err := id.ParseHandle(req.Handle)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	addr, err := id.ParseAddress(req.Address)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.SignUp(ctx, handle, addr); err != nil {
		h.logger.WarnContext(ctx, "handle sign up failed",
			"error", err,
			"handle", handle,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, HandleResponse{Handle: handle, Address: addr})
}

func (h *Handler) handleGetHandle(w http.ResponseWriter, r *http.Request) {
	handle, err := id.ParseHandle(chi.URLParam(r, "handle"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	addr, err := h.service.AddressOf(r.Context(), handle)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, HandleResponse{Handle: handle, Address: addr})
}

func (h *Handler) handleCredit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req CreditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	addr, err := id.ParseAddress(req.Address)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	balance, err := h.service.Credit(ctx, addr, req.Amount)
	if err != nil {
		h.logger.WarnContext(ctx, "balance credit failed",
			"error", err,
			"address", addr,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, BalanceResponse{Address: addr, Balance: balance, MintFee: h.service.MintFee()})
}

func (h *Handler) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	addr, err := id.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	balance, err := h.service.Balance(r.Context(), addr)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, BalanceResponse{Address: addr, Balance: balance, MintFee: h.service.MintFee()})
}

func (h *Handler) handleAuditTrail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tokenID, err := id.ParseTokenID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	events, err := h.service.AuditTrail(ctx, tokenID)
	if err != nil {
		h.logger.ErrorContext(ctx, "audit trail read failed",
			"error", err,
			"token_id", tokenID,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toAuditTrailResponse(tokenID, events))
}
