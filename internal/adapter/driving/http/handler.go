package httphandler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	slogctx "github.com/veqryn/slog-context"

	"github.com/pulsesparkai/SparkOrchestra-sub001/internal/application"
	"github.com/pulsesparkai/SparkOrchestra-sub001/internal/domain/model"
	"github.com/pulsesparkai/SparkOrchestra-sub001/internal/domain/port/driven"
)

const maxBodyBytes = 64 << 10

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	registry    *application.ProbeRegistry
	validator   *application.CredentialValidationService
	keys        *application.KeyService
	attribution *application.AttributionService
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	registry *application.ProbeRegistry,
	validator *application.CredentialValidationService,
	keys *application.KeyService,
	attribution *application.AttributionService,
) *Handler {
	return &Handler{
		registry:    registry,
		validator:   validator,
		keys:        keys,
		attribution: attribution,
	}
}

// RegisterAPIRoutes registers all API routes on mux.
func RegisterAPIRoutes(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("POST /api/v1/keys/validate", h.ValidateKey)
	mux.HandleFunc("PUT /api/v1/users/{user}/keys/{provider}", h.StoreKey)
	mux.HandleFunc("GET /api/v1/users/{user}/keys/{provider}", h.GetKey)
	mux.HandleFunc("DELETE /api/v1/users/{user}/keys/{provider}", h.DeleteKey)
	mux.HandleFunc("POST /api/v1/users/{user}/keys/{provider}/revalidate", h.RevalidateKey)
	mux.HandleFunc("GET /api/v1/users/{user}/decisions", h.ListDecisions)
	mux.HandleFunc("POST /api/v1/executions/authorize", h.Authorize)
	mux.HandleFunc("POST /api/v1/policy/decide", h.Decide)
	mux.HandleFunc("GET /api/v1/health", h.Health)
}

// ValidateKey checks a candidate key without storing it.
// 200 when valid, 400 for any invalidity attributable to the key, 500 when
// the provider could not be reached.
func (h *Handler) ValidateKey(w http.ResponseWriter, r *http.Request) {
	var req ValidateKeyRequest
	if !decodeBody(w, r, &req) {
		return
	}

	verdict, err := h.validator.ValidateFor(r.Context(), parseProvider(req.Provider), req.APIKey)
	if err != nil {
		h.writeValidationError(w, r, err)
		return
	}

	writeVerdict(w, verdict, "API key is valid")
}

// StoreKey validates a key and stores it for the user when valid.
func (h *Handler) StoreKey(w http.ResponseWriter, r *http.Request) {
	var req StoreKeyRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user := r.PathValue("user")
	provider := parseProvider(r.PathValue("provider"))

	verdict, err := h.keys.SaveKey(r.Context(), user, provider, req.APIKey)
	if err != nil {
		h.writeValidationError(w, r, err)
		return
	}

	writeVerdict(w, verdict, "API key saved")
}

// GetKey returns the stored key status for a user, never the key itself.
func (h *Handler) GetKey(w http.ResponseWriter, r *http.Request) {
	user := r.PathValue("user")
	provider := parseProvider(r.PathValue("provider"))

	key, err := h.keys.Status(r.Context(), user, provider)
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toKeyStatusResponse(*key))
}

// DeleteKey removes the stored key for a user.
func (h *Handler) DeleteKey(w http.ResponseWriter, r *http.Request) {
	user := r.PathValue("user")
	provider := parseProvider(r.PathValue("provider"))

	if err := h.keys.RemoveKey(r.Context(), user, provider); err != nil {
		h.writeStoreError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RevalidateKey probes the stored key again and records the new verdict.
func (h *Handler) RevalidateKey(w http.ResponseWriter, r *http.Request) {
	user := r.PathValue("user")
	provider := parseProvider(r.PathValue("provider"))

	verdict, err := h.keys.Revalidate(r.Context(), user, provider)
	if err != nil {
		h.writeValidationError(w, r, err)
		return
	}

	writeVerdict(w, verdict, "API key is valid")
}

// Authorize decides an execution attempt for the scheduler.
// 200 when permitted, 403 when denied.
func (h *Handler) Authorize(w http.ResponseWriter, r *http.Request) {
	var req AuthorizeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	decision, err := h.attribution.Authorize(r.Context(), application.AuthorizeRequest{
		UserID:      strings.TrimSpace(req.UserID),
		Provider:    parseProvider(req.Provider),
		IsScheduled: req.IsScheduled,
		IsRecurring: req.IsRecurring,
	})
	if err != nil {
		slogctx.FromCtx(r.Context()).Error("failed to authorize execution", "user", req.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	status := http.StatusOK
	if !decision.Permitted {
		status = http.StatusForbidden
	}
	writeJSON(w, status, toPolicyDecisionResponse(decision))
}

// Decide evaluates the attribution policy for a caller-supplied context.
func (h *Handler) Decide(w http.ResponseWriter, r *http.Request) {
	var req DecideRequest
	if !decodeBody(w, r, &req) {
		return
	}

	decision := application.Decide(model.ExecutionContext{
		IsScheduled:       req.IsScheduled,
		IsRecurring:       req.IsRecurring,
		HasStoredValidKey: req.HasStoredValidKey,
	})

	writeJSON(w, http.StatusOK, toPolicyDecisionResponse(decision))
}

// ListDecisions returns the user's most recent attribution decisions.
func (h *Handler) ListDecisions(w http.ResponseWriter, r *http.Request) {
	user := r.PathValue("user")

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			writeError(w, http.StatusBadRequest, "limit must be an integer between 1 and 500")
			return
		}
		limit = n
	}

	recs, err := h.attribution.History(r.Context(), user, limit)
	if err != nil {
		slogctx.FromCtx(r.Context()).Error("failed to list decisions", "user", user, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]DecisionRecordResponse, 0, len(recs))
	for _, rec := range recs {
		resp = append(resp, toDecisionRecordResponse(rec))
	}

	writeJSON(w, http.StatusOK, resp)
}

// Health returns a simple health check response with the supported providers.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	providers := []string{}
	for _, p := range h.registry.Providers() {
		providers = append(providers, string(p))
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Time:      time.Now().UTC().Format(time.RFC3339),
		Providers: providers,
	})
}

// writeVerdict writes 200 for a valid verdict and 400 otherwise.
func writeVerdict(w http.ResponseWriter, v model.ValidationVerdict, successMsg string) {
	status := http.StatusOK
	if !v.Valid {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, toValidateKeyResponse(v, successMsg))
}

// writeValidationError maps errors from validation paths. Only an
// unreachable provider or a storage failure is reported as a server error.
func (h *Handler) writeValidationError(w http.ResponseWriter, r *http.Request, err error) {
	logger := slogctx.FromCtx(r.Context())

	var infraErr *model.InfrastructureError
	switch {
	case errors.Is(err, application.ErrUnknownProvider):
		writeJSON(w, http.StatusBadRequest, ValidateKeyResponse{Error: "unknown provider"})
	case errors.As(err, &infraErr):
		writeJSON(w, http.StatusInternalServerError, ValidateKeyResponse{
			Error: "Could not verify the API key: the provider could not be reached. Try again later.",
		})
	case errors.Is(err, context.Canceled):
		logger.Info("validation abandoned by client")
		writeError(w, http.StatusServiceUnavailable, "request cancelled")
	default:
		h.writeStoreError(w, r, err)
	}
}

// writeStoreError maps key store errors to responses.
func (h *Handler) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, driven.ErrKeyNotFound):
		writeError(w, http.StatusNotFound, "no stored key")
	case errors.Is(err, driven.ErrEncryptionKeyNotSet):
		writeError(w, http.StatusServiceUnavailable, "key storage is not configured")
	default:
		slogctx.FromCtx(r.Context()).Error("key store operation failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// decodeBody decodes a size-limited JSON body into v, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		slogctx.FromCtx(r.Context()).Debug("invalid request body", slog.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// parseProvider normalizes a provider name, defaulting to Anthropic.
func parseProvider(raw string) model.Provider {
	p := strings.ToLower(strings.TrimSpace(raw))
	if p == "" {
		return model.ProviderAnthropic
	}
	return model.Provider(p)
}
