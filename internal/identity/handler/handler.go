package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"snowflake/internal/identity/models"
	id "snowflake/pkg/domain"
	dErrors "snowflake/pkg/domain-errors"
	"snowflake/pkg/platform/httputil"
	authmw "snowflake/pkg/platform/middleware/auth"
	request "snowflake/pkg/platform/middleware/request"
	"snowflake/pkg/requestcontext"
)

const maxBodyBytes = 1 << 20

// Service is the registry surface the handler drives.
type Service interface {
	Mint(ctx context.Context, req *models.MintRequest) (id.TokenID, error)
	AddField(ctx context.Context, tokenID id.TokenID, caller id.Address) (int, error)
	AddOrUpdateFieldEntries(ctx context.Context, req *models.WriteEntriesRequest) (int, error)
	AddResolver(ctx context.Context, tokenID id.TokenID, resolver, caller id.Address) error
	AttestEntry(ctx context.Context, req *models.AttestRequest) error
	OwnerOf(ctx context.Context, tokenID id.TokenID) (id.Address, error)
	TokenOfAddress(ctx context.Context, owner id.Address) (id.TokenID, error)
	TokenOfHandle(ctx context.Context, handle id.Handle) (id.TokenID, error)
	TokenDetails(ctx context.Context, tokenID id.TokenID) (*models.TokenDetails, error)
	FieldDetails(ctx context.Context, tokenID id.TokenID, fieldIndex int) (*models.FieldDetails, error)
	EntryDetails(ctx context.Context, tokenID id.TokenID, fieldIndex int, key string) (*models.EntryDetails, error)
}

// Handler serves the identity registry over HTTP. Reads are public; every
// mutation acts on behalf of the bearer token's address.
type Handler struct {
	logger       *slog.Logger
	registry     Service
	jwtValidator authmw.JWTValidator
	readLimit    func(http.Handler) http.Handler
	writeLimit   func(http.Handler) http.Handler
}

type Option func(*Handler)

// WithReadLimit wraps the public read routes.
func WithReadLimit(mw func(http.Handler) http.Handler) Option {
	return func(h *Handler) {
		h.readLimit = mw
	}
}

// WithWriteLimit wraps the authenticated routes; it runs after RequireAuth.
func WithWriteLimit(mw func(http.Handler) http.Handler) Option {
	return func(h *Handler) {
		h.writeLimit = mw
	}
}

func New(registry Service, logger *slog.Logger, jwtValidator authmw.JWTValidator, opts ...Option) *Handler {
	h := &Handler{
		logger:       logger,
		registry:     registry,
		jwtValidator: jwtValidator,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register registers the registry routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(request.ContentTypeJSON)

		r.Group(func(r chi.Router) {
			if h.readLimit != nil {
				r.Use(h.readLimit)
			}
			r.Get("/tokens/{id}", h.handleTokenDetails)
			r.Get("/tokens/{id}/owner", h.handleOwnerOf)
			r.Get("/tokens/{id}/fields/{index}", h.handleFieldDetails)
			r.Get("/tokens/{id}/fields/{index}/entries/{key}", h.handleEntryDetails)
			r.Get("/addresses/{address}/token", h.handleTokenOfAddress)
			r.Get("/handles/{handle}/token", h.handleTokenOfHandle)
		})

		r.Group(func(r chi.Router) {
			r.Use(authmw.RequireAuth(h.jwtValidator, h.logger))
			if h.writeLimit != nil {
				r.Use(h.writeLimit)
			}
			r.Post("/tokens", h.handleMint)
			r.Post("/tokens/{id}/fields", h.handleAddField)
			r.Put("/tokens/{id}/fields/{index}/entries", h.handleWriteEntries)
			r.Post("/tokens/{id}/resolvers", h.handleAddResolver)
			r.Post("/tokens/{id}/fields/{index}/entries/{key}/attestations", h.handleAttest)
		})
	})
}

func (h *Handler) handleMint(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.requireCaller(w, r)
	if !ok {
		return
	}
	var body MintRequest
	if !h.decode(w, r, &body) {
		return
	}
	req, err := body.toModel(caller)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	tokenID, err := h.registry.Mint(ctx, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, TokenIDResponse{TokenID: tokenID})
}

func (h *Handler) handleAddField(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.requireCaller(w, r)
	if !ok {
		return
	}
	tokenID, ok := h.tokenID(w, r)
	if !ok {
		return
	}
	var body EntriesRequest
	if r.ContentLength != 0 && !h.decode(w, r, &body) {
		return
	}

	var index int
	var err error
	if len(body.Keys) == 0 && len(body.Values) == 0 {
		index, err = h.registry.AddField(ctx, tokenID, caller)
	} else {
		var req *models.WriteEntriesRequest
		req, err = body.toModel(tokenID, models.NewField, caller)
		if err == nil {
			index, err = h.registry.AddOrUpdateFieldEntries(ctx, req)
		}
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FieldIndexResponse{FieldIndex: index})
}

func (h *Handler) handleWriteEntries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.requireCaller(w, r)
	if !ok {
		return
	}
	tokenID, ok := h.tokenID(w, r)
	if !ok {
		return
	}
	index, ok := h.fieldIndex(w, r)
	if !ok {
		return
	}
	var body EntriesRequest
	if !h.decode(w, r, &body) {
		return
	}
	req, err := body.toModel(tokenID, index, caller)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	written, err := h.registry.AddOrUpdateFieldEntries(ctx, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FieldIndexResponse{FieldIndex: written})
}

func (h *Handler) handleAddResolver(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.requireCaller(w, r)
	if !ok {
		return
	}
	tokenID, ok := h.tokenID(w, r)
	if !ok {
		return
	}
	var body ResolverRequest
	if !h.decode(w, r, &body) {
		return
	}
	resolver, err := id.ParseAddress(body.Resolver)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.registry.AddResolver(ctx, tokenID, resolver, caller); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleAttest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.requireCaller(w, r)
	if !ok {
		return
	}
	tokenID, ok := h.tokenID(w, r)
	if !ok {
		return
	}
	index, ok := h.fieldIndex(w, r)
	if !ok {
		return
	}
	var body AttestRequest
	if !h.decode(w, r, &body) {
		return
	}
	err := h.registry.AttestEntry(ctx, &models.AttestRequest{
		TokenID:    tokenID,
		FieldIndex: index,
		Key:        entryKey(r),
		Status:     models.AttestationStatus(body.Status),
		Verifier:   caller,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleTokenDetails(w http.ResponseWriter, r *http.Request) {
	tokenID, ok := h.tokenID(w, r)
	if !ok {
		return
	}
	details, err := h.registry.TokenDetails(r.Context(), tokenID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toTokenDetailsResponse(tokenID, details))
}

func (h *Handler) handleOwnerOf(w http.ResponseWriter, r *http.Request) {
	tokenID, ok := h.tokenID(w, r)
	if !ok {
		return
	}
	owner, err := h.registry.OwnerOf(r.Context(), tokenID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, OwnerResponse{TokenID: tokenID, Owner: owner})
}

func (h *Handler) handleTokenOfAddress(w http.ResponseWriter, r *http.Request) {
	addr, err := id.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	tokenID, err := h.registry.TokenOfAddress(r.Context(), addr)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, TokenIDResponse{TokenID: tokenID})
}

func (h *Handler) handleTokenOfHandle(w http.ResponseWriter, r *http.Request) {
	handle, err := id.ParseHandle(pathValue(r, "handle"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	tokenID, err := h.registry.TokenOfHandle(r.Context(), handle)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, TokenIDResponse{TokenID: tokenID})
}

func (h *Handler) handleFieldDetails(w http.ResponseWriter, r *http.Request) {
	tokenID, ok := h.tokenID(w, r)
	if !ok {
		return
	}
	index, ok := h.fieldIndex(w, r)
	if !ok {
		return
	}
	details, err := h.registry.FieldDetails(r.Context(), tokenID, index)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toFieldDetailsResponse(tokenID, index, details))
}

func (h *Handler) handleEntryDetails(w http.ResponseWriter, r *http.Request) {
	tokenID, ok := h.tokenID(w, r)
	if !ok {
		return
	}
	index, ok := h.fieldIndex(w, r)
	if !ok {
		return
	}
	key := entryKey(r)
	details, err := h.registry.EntryDetails(r.Context(), tokenID, index, key)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toEntryDetailsResponse(key, details))
}

func (h *Handler) requireCaller(w http.ResponseWriter, r *http.Request) (id.Address, bool) {
	caller := requestcontext.Caller(r.Context())
	if caller.IsZero() {
		// RequireAuth guarantees a caller on mutating routes.
		h.logger.ErrorContext(r.Context(), "caller missing from context despite auth middleware",
			"request_id", requestcontext.RequestID(r.Context()),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return "", false
	}
	return caller, true
}

// tokenID parses the {id} segment. Integers that cannot name a token (zero,
// negative, overflowing) are NotFound; anything else is a validation error.
func (h *Handler) tokenID(w http.ResponseWriter, r *http.Request) (id.TokenID, bool) {
	raw := chi.URLParam(r, "id")
	tokenID, err := id.ParseTokenID(raw)
	if err != nil {
		if isInteger(raw) {
			err = dErrors.New(dErrors.CodeNotFound, "token not found")
		}
		h.writeError(w, r, err)
		return 0, false
	}
	return tokenID, true
}

// fieldIndex parses the {index} segment with the same rule as tokenID.
func (h *Handler) fieldIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := chi.URLParam(r, "index")
	if !isInteger(raw) {
		h.writeError(w, r, dErrors.New(dErrors.CodeValidation, "field index must be an integer"))
		return 0, false
	}
	index, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || index < 0 {
		h.writeError(w, r, dErrors.New(dErrors.CodeNotFound, "field not found"))
		return 0, false
	}
	return index, true
}

// isInteger reports whether s is an optionally signed run of decimal digits.
func isInteger(s string) bool {
	s = strings.TrimSpace(s)
	if s != "" && (s[0] == '-' || s[0] == '+') {
		s = s[1:]
	}
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		msg := "invalid request body"
		if errors.Is(err, io.EOF) {
			msg = "request body is required"
		}
		h.logger.WarnContext(r.Context(), "invalid request body",
			"error", err,
			"request_id", requestcontext.RequestID(r.Context()),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, msg))
		return false
	}
	return true
}

// writeError logs at a level matching the failure kind and renders it.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	code := dErrors.CodeOf(err)
	attrs := []any{
		"error", err,
		"code", code,
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", requestcontext.RequestID(ctx),
	}
	if code == dErrors.CodeInternal || code == dErrors.CodeTimeout {
		h.logger.ErrorContext(ctx, "registry request failed", attrs...)
	} else {
		h.logger.InfoContext(ctx, "registry request rejected", attrs...)
	}
	httputil.WriteError(w, err)
}

func entryKey(r *http.Request) string {
	return pathValue(r, "key")
}

// pathValue unescapes a route parameter; keys and handles may contain
// characters chi leaves percent-encoded.
func pathValue(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}
