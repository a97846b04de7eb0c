package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/avorobjovs/keyguard/internal/common"
	"github.com/avorobjovs/keyguard/internal/server/models"
)

// writeJSON marshals v and writes it with the given status code. If marshaling
// fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error body with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeServiceError maps a service-layer error kind onto an HTTP status.
// Both recovery failures (not enough guardians, wrong keys) get the same
// status and body so the endpoint does not leak which condition held.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, common.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, common.ErrForbidden):
		writeError(w, http.StatusForbidden, "access denied")
	case errors.Is(err, common.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, common.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, common.ErrDecryption):
		writeError(w, http.StatusUnprocessableEntity, "decryption failed")
	case errors.Is(err, common.ErrInsufficientGuardians), errors.Is(err, common.ErrInvalidKeys):
		writeError(w, http.StatusBadRequest, "recovery failed")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// UserResponse is the JSON representation of an account.
type UserResponse struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
}

// CredentialResponse is the JSON representation of a vault record. Secret is
// populated only by endpoints that decrypt.
type CredentialResponse struct {
	ID       string  `json:"id"`
	FolderID *string `json:"folder_id"`
	Name     string  `json:"name"`
	Username string  `json:"username"`
	Secret   string  `json:"secret,omitempty"`
	URL      string  `json:"url"`
	Notes    string  `json:"notes"`
}

// FolderResponse is the JSON representation of a folder.
type FolderResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// FolderDetailResponse is a folder with the metadata of its records.
type FolderDetailResponse struct {
	FolderResponse
	Credentials []CredentialResponse `json:"credentials"`
}

// GuardianEdgeResponse is the JSON representation of a guardian edge. The
// recovery key appears only in listings where the caller is the guardian.
type GuardianEdgeResponse struct {
	ID             string `json:"id"`
	ProtectedEmail string `json:"protected_email"`
	RecoveryKey    string `json:"recovery_key,omitempty"`
}

// GuardianOverviewResponse splits the caller's edges by role.
type GuardianOverviewResponse struct {
	Protecting  []GuardianEdgeResponse `json:"protecting"`
	ProtectedBy []GuardianEdgeResponse `json:"protected_by"`
}

// LoginResponse carries the minted session token alongside the profile.
type LoginResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// SignUpRequest is the JSON body for account registration.
type SignUpRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the JSON body for login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// CreateCredentialRequest is the JSON body for vault record creation.
type CreateCredentialRequest struct {
	Name     string  `json:"name"`
	Username string  `json:"username"`
	Secret   string  `json:"secret"`
	URL      string  `json:"url"`
	Notes    string  `json:"notes"`
	FolderID *string `json:"folder_id"`
}

// UpdateCredentialRequest is the JSON body for a partial record update.
// Absent fields are left unchanged; clear_folder moves the record to the
// vault root.
type UpdateCredentialRequest struct {
	Name        *string `json:"name"`
	Username    *string `json:"username"`
	Secret      *string `json:"secret"`
	URL         *string `json:"url"`
	Notes       *string `json:"notes"`
	FolderID    *string `json:"folder_id"`
	ClearFolder bool    `json:"clear_folder"`
}

// FolderRequest is the JSON body for folder creation and rename.
type FolderRequest struct {
	Name string `json:"name"`
}

// AddGuardianRequest is the JSON body for registering a guardian.
type AddGuardianRequest struct {
	Email string `json:"email"`
}

// RecoverRequest is the JSON body for the public recovery endpoint.
type RecoverRequest struct {
	Email        string `json:"email"`
	GuardianKey1 string `json:"guardianKey1"`
	GuardianKey2 string `json:"guardianKey2"`
	NewPassword  string `json:"newPassword"`
}

// RecoverResponse confirms whose password was reset.
type RecoverResponse struct {
	Email    string `json:"email"`
	Username string `json:"username"`
}

func toUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toCredentialResponse(c *models.Credential) CredentialResponse {
	return CredentialResponse{
		ID:       c.ID,
		FolderID: c.FolderID,
		Name:     c.Name,
		Username: c.Username,
		Secret:   c.Secret,
		URL:      c.URL,
		Notes:    c.Notes,
	}
}

func toCredentialResponses(creds []*models.Credential) []CredentialResponse {
	resp := make([]CredentialResponse, 0, len(creds))
	for _, c := range creds {
		resp = append(resp, toCredentialResponse(c))
	}
	return resp
}

func toFolderResponse(f *models.Folder) FolderResponse {
	return FolderResponse{ID: f.ID, Name: f.Name}
}

func toGuardianEdgeResponses(edges []*models.GuardianEdge) []GuardianEdgeResponse {
	resp := make([]GuardianEdgeResponse, 0, len(edges))
	for _, e := range edges {
		resp = append(resp, GuardianEdgeResponse{
			ID:             e.ID,
			ProtectedEmail: e.ProtectedEmail,
			RecoveryKey:    e.RecoveryKey,
		})
	}
	return resp
}
