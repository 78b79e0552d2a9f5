package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"urlshorten/pkg/logging"
	"urlshorten/pkg/metrics"
	"urlshorten/pkg/middleware"
	"urlshorten/pkg/service"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

type Handler struct {
	links   *service.LinkService
	users   *service.UserService
	metrics *metrics.Metrics
	logger  *logging.Logger
	baseURL string
}

// NewHandler wires the services behind the HTTP routes. users may be nil for
// the redirect-only process.
func NewHandler(links *service.LinkService, users *service.UserService, m *metrics.Metrics, logger *logging.Logger, baseURL string) *Handler {
	return &Handler{
		links:   links,
		users:   users,
		metrics: m,
		logger:  logger,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

type createLinkRequest struct {
	URL string `json:"url"`
}

type linkResponse struct {
	URL         string    `json:"url"`
	Token       string    `json:"token"`
	CreatedTime time.Time `json:"createdTime"`
}

type clickCountResponse struct {
	Token      string `json:"token"`
	ClickCount int64  `json:"clickCount"`
}

type accessTokenResponse struct {
	Token string `json:"token"`
}

func (h *Handler) Redirect(w http.ResponseWriter, r *http.Request) {
	token, ok := h.tokenParam(w, r)
	if !ok {
		return
	}

	longURL, err := h.links.ResolvePublic(r.Context(), token)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	http.Redirect(w, r, longURL, http.StatusFound)
}

func (h *Handler) CreateLink(w http.ResponseWriter, r *http.Request) {
	var req createLinkRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := validateLongURL(req.URL); err != nil {
		h.errorJSON(w, err.Error(), http.StatusBadRequest)
		return
	}

	ownerID := middleware.GetOwnerIDFromContext(r.Context())
	resp, err := h.links.CreateLink(r.Context(), req.URL, ownerID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Location", h.baseURL+"/url/"+resp.Token)
	h.writeJSON(w, resp, http.StatusCreated)
}

func (h *Handler) GetLink(w http.ResponseWriter, r *http.Request) {
	token, ok := h.tokenParam(w, r)
	if !ok {
		return
	}

	link, err := h.links.ResolveForOwner(r.Context(), token, middleware.GetOwnerIDFromContext(r.Context()))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.writeJSON(w, linkResponse{URL: link.LongURL, Token: link.Token, CreatedTime: link.CreatedAt}, http.StatusOK)
}

func (h *Handler) DeleteLink(w http.ResponseWriter, r *http.Request) {
	token, ok := h.tokenParam(w, r)
	if !ok {
		return
	}

	if err := h.links.DeleteLink(r.Context(), token, middleware.GetOwnerIDFromContext(r.Context())); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetClickCount(w http.ResponseWriter, r *http.Request) {
	token, ok := h.tokenParam(w, r)
	if !ok {
		return
	}

	count, err := h.links.GetClickCount(r.Context(), token, middleware.GetOwnerIDFromContext(r.Context()))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.writeJSON(w, clickCountResponse{Token: token, ClickCount: count}, http.StatusOK)
}

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := validateRegistration(&req); err != nil {
		h.errorJSON(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.users.Register(r.Context(), &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Location", h.baseURL+"/user/"+req.UserID)
	w.WriteHeader(http.StatusCreated)
}

func (h *Handler) GetAccessToken(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userid")
	password := r.URL.Query().Get("password")
	if userID == "" || password == "" {
		h.errorJSON(w, "userid and password are required", http.StatusBadRequest)
		return
	}
	if utf8.RuneCountInString(userID) > maxUserFieldLen || utf8.RuneCountInString(password) > maxUserFieldLen {
		h.errorJSON(w, errFieldTooLong.Error(), http.StatusBadRequest)
		return
	}

	token, err := h.users.IssueAccessToken(r.Context(), userID, password)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.writeJSON(w, accessTokenResponse{Token: token}, http.StatusOK)
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handler) tokenParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	token := chi.URLParam(r, "token")
	if !service.IsValidToken(token) {
		h.errorJSON(w, "invalid url token", http.StatusBadRequest)
		return "", false
	}
	return token, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyLen)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.errorJSON(w, "invalid request", http.StatusBadRequest)
		return false
	}
	return true
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		h.errorJSON(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, service.ErrDuplicateLink), errors.Is(err, service.ErrUserExists):
		h.errorJSON(w, err.Error(), http.StatusConflict)
	case errors.Is(err, service.ErrInvalidCredentials):
		h.errorJSON(w, err.Error(), http.StatusNotFound)
	default:
		h.logger.Error(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		h.errorJSON(w, "internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) errorJSON(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, map[string]string{"error": message}, status)
}

func useCommon(r chi.Router) {
	r.Use(chimw.RealIP)
	r.Use(logging.Middleware)
	r.Use(chimw.Recoverer)
}

// SetupRoutes mounts the full API. Link management requires a bearer token;
// the redirect and user endpoints are public.
func SetupRoutes(r *chi.Mux, handler *Handler, authenticator *middleware.Authenticator) {
	useCommon(r)

	r.Get("/health", handler.HealthCheck)
	r.Method(http.MethodGet, "/metrics", handler.metrics.Handler())

	r.Post("/user", handler.CreateUser)
	r.Get("/user/accesstoken", handler.GetAccessToken)

	r.Route("/url", func(r chi.Router) {
		r.Use(authenticator.Authenticate)
		r.Post("/", handler.CreateLink)
		r.Get("/clickcount/{token}", handler.GetClickCount)
		r.Get("/{token}", handler.GetLink)
		r.Delete("/{token}", handler.DeleteLink)
	})

	r.Get("/{token}", handler.Redirect)
}

// SetupRedirectRoutes mounts only the public redirect.
func SetupRedirectRoutes(r *chi.Mux, handler *Handler) {
	useCommon(r)

	r.Get("/health", handler.HealthCheck)
	r.Method(http.MethodGet, "/metrics", handler.metrics.Handler())
	r.Get("/{token}", handler.Redirect)
}
