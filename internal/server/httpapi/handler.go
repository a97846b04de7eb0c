// Package httpapi is the REST driving adapter: it decodes requests, calls
// the services, and maps service error kinds onto HTTP statuses. All vault
// semantics (encryption, ownership, recovery) live below it.
package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/avorobjovs/keyguard/internal/logging"
	"github.com/avorobjovs/keyguard/internal/server/config"
	"github.com/avorobjovs/keyguard/internal/server/services"
)

type Handler struct {
	users     *services.UserService
	creds     *services.CredentialService
	folders   *services.FolderService
	guardians *services.GuardianService
	recovery  *services.RecoveryService

	jwtSecret  []byte
	sessionTTL time.Duration
	logger     logging.Logger
}

func NewHandler(
	users *services.UserService,
	creds *services.CredentialService,
	folders *services.FolderService,
	guardians *services.GuardianService,
	recovery *services.RecoveryService,
	cfg *config.Config,
	logger logging.Logger,
) *Handler {
	return &Handler{
		users:      users,
		creds:      creds,
		folders:    folders,
		guardians:  guardians,
		recovery:   recovery,
		jwtSecret:  []byte(cfg.JWTSecret),
		sessionTTL: cfg.SessionTokenValidityDuration,
		logger:     logger,
	}
}

// NewServeMux registers all routes and wraps them with the middleware chain.
// Recovery sits innermost so panics are caught before logging.
func NewServeMux(h *Handler, logger logging.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/users/signup", h.SignUp)
	mux.HandleFunc("POST /api/v1/users/login", h.Login)
	mux.HandleFunc("POST /api/v1/users/logout", h.Logout)
	mux.Handle("GET /api/v1/users/me", h.auth(h.Me))

	mux.Handle("POST /api/v1/passwords", h.auth(h.CreateCredential))
	mux.Handle("GET /api/v1/passwords", h.auth(h.ListCredentials))
	mux.Handle("GET /api/v1/passwords/{id}", h.auth(h.GetCredential))
	mux.Handle("PUT /api/v1/passwords/{id}", h.auth(h.UpdateCredential))
	mux.Handle("DELETE /api/v1/passwords/{id}", h.auth(h.DeleteCredential))

	mux.Handle("GET /api/v1/folders", h.auth(h.ListFolders))
	mux.Handle("POST /api/v1/folders", h.auth(h.CreateFolder))
	mux.Handle("GET /api/v1/folders/{id}", h.auth(h.GetFolder))
	mux.Handle("PUT /api/v1/folders/{id}", h.auth(h.RenameFolder))
	mux.Handle("DELETE /api/v1/folders/{id}", h.auth(h.DeleteFolder))

	mux.Handle("GET /api/v1/guardians", h.auth(h.ListGuardians))
	mux.Handle("POST /api/v1/guardians", h.auth(h.AddGuardian))
	mux.Handle("DELETE /api/v1/guardians/{id}", h.auth(h.RemoveGuardian))

	// Public by design: the guardian keys are the proof of identity.
	mux.HandleFunc("POST /api/v1/recover", h.Recover)

	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)
	wrapped = requestIDMiddleware(wrapped)

	return wrapped
}

func (h *Handler) auth(next http.HandlerFunc) http.Handler {
	return authMiddleware(h.jwtSecret, next)
}

func decode(r *http.Request, v any) bool {
	return json.NewDecoder(r.Body).Decode(v) == nil
}

func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req SignUpRequest
	if !decode(r, &req) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.users.SignUp(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toUserResponse(user))
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decode(r, &req) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, user, err := h.users.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.sessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})

	writeJSON(w, http.StatusOK, LoginResponse{Token: token, User: toUserResponse(user)})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetByID(r.Context(), userIDFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

func (h *Handler) CreateCredential(w http.ResponseWriter, r *http.Request) {
	secret := vaultSecret(r)
	if secret == "" {
		writeError(w, http.StatusBadRequest, "missing "+vaultSecretHeader+" header")
		return
	}

	var req CreateCredentialRequest
	if !decode(r, &req) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cred, err := h.creds.Create(r.Context(), userIDFromContext(r.Context()), secret, &services.CredentialInput{
		Name:     req.Name,
		Username: req.Username,
		Secret:   req.Secret,
		URL:      req.URL,
		Notes:    req.Notes,
		FolderID: req.FolderID,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toCredentialResponse(cred))
}

func (h *Handler) ListCredentials(w http.ResponseWriter, r *http.Request) {
	creds, err := h.creds.List(r.Context(), userIDFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCredentialResponses(creds))
}

func (h *Handler) GetCredential(w http.ResponseWriter, r *http.Request) {
	secret := vaultSecret(r)
	if secret == "" {
		writeError(w, http.StatusBadRequest, "missing "+vaultSecretHeader+" header")
		return
	}

	cred, err := h.creds.Get(r.Context(), userIDFromContext(r.Context()), secret, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toCredentialResponse(cred))
}

func (h *Handler) UpdateCredential(w http.ResponseWriter, r *http.Request) {
	var req UpdateCredentialRequest
	if !decode(r, &req) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	secret := vaultSecret(r)
	if req.Secret != nil && secret == "" {
		writeError(w, http.StatusBadRequest, "missing "+vaultSecretHeader+" header")
		return
	}

	cred, err := h.creds.Update(r.Context(), userIDFromContext(r.Context()), secret, r.PathValue("id"), &services.CredentialUpdate{
		Name:        req.Name,
		Username:    req.Username,
		Secret:      req.Secret,
		URL:         req.URL,
		Notes:       req.Notes,
		FolderID:    req.FolderID,
		ClearFolder: req.ClearFolder,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toCredentialResponse(cred))
}

func (h *Handler) DeleteCredential(w http.ResponseWriter, r *http.Request) {
	err := h.creds.Delete(r.Context(), userIDFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListFolders(w http.ResponseWriter, r *http.Request) {
	folders, err := h.folders.List(r.Context(), userIDFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := make([]FolderResponse, 0, len(folders))
	for _, f := range folders {
		resp = append(resp, toFolderResponse(f))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	var req FolderRequest
	if !decode(r, &req) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	folder, err := h.folders.Create(r.Context(), userIDFromContext(r.Context()), req.Name)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toFolderResponse(folder))
}

func (h *Handler) GetFolder(w http.ResponseWriter, r *http.Request) {
	folder, creds, err := h.folders.Get(r.Context(), userIDFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, FolderDetailResponse{
		FolderResponse: toFolderResponse(folder),
		Credentials:    toCredentialResponses(creds),
	})
}

func (h *Handler) RenameFolder(w http.ResponseWriter, r *http.Request) {
	var req FolderRequest
	if !decode(r, &req) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	folder, err := h.folders.Rename(r.Context(), userIDFromContext(r.Context()), r.PathValue("id"), req.Name)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toFolderResponse(folder))
}

func (h *Handler) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	err := h.folders.Delete(r.Context(), userIDFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListGuardians(w http.ResponseWriter, r *http.Request) {
	overview, err := h.guardians.List(r.Context(), userIDFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, GuardianOverviewResponse{
		Protecting:  toGuardianEdgeResponses(overview.Protecting),
		ProtectedBy: toGuardianEdgeResponses(overview.ProtectedBy),
	})
}

func (h *Handler) AddGuardian(w http.ResponseWriter, r *http.Request) {
	var req AddGuardianRequest
	if !decode(r, &req) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	edge, err := h.guardians.Add(r.Context(), userIDFromContext(r.Context()), req.Email)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, GuardianEdgeResponse{
		ID:             edge.ID,
		ProtectedEmail: edge.ProtectedEmail,
	})
}

func (h *Handler) RemoveGuardian(w http.ResponseWriter, r *http.Request) {
	err := h.guardians.Remove(r.Context(), userIDFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Recover(w http.ResponseWriter, r *http.Request) {
	var req RecoverRequest
	if !decode(r, &req) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.recovery.Recover(r.Context(), req.Email, req.GuardianKey1, req.GuardianKey2, req.NewPassword)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, RecoverResponse{Email: user.Email, Username: user.Username})
}
