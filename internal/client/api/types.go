package api

// User is the account profile as returned by the server.
type User struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
}

// Credential is a vault record. Secret is present only on responses from
// endpoints that decrypt.
type Credential struct {
	ID       string  `json:"id"`
	FolderID *string `json:"folder_id"`
	Name     string  `json:"name"`
	Username string  `json:"username"`
	Secret   string  `json:"secret,omitempty"`
	URL      string  `json:"url"`
	Notes    string  `json:"notes"`
}

// Folder groups vault records.
type Folder struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// FolderDetail is a folder with the metadata of its records.
type FolderDetail struct {
	Folder
	Credentials []Credential `json:"credentials"`
}

// GuardianEdge is one trust relation. RecoveryKey is non-empty only in
// listings where the caller is the guardian.
type GuardianEdge struct {
	ID             string `json:"id"`
	ProtectedEmail string `json:"protected_email"`
	RecoveryKey    string `json:"recovery_key,omitempty"`
}

// GuardianOverview splits the caller's edges by role.
type GuardianOverview struct {
	Protecting  []GuardianEdge `json:"protecting"`
	ProtectedBy []GuardianEdge `json:"protected_by"`
}

// CredentialInput carries the fields for record creation.
type CredentialInput struct {
	Name     string  `json:"name"`
	Username string  `json:"username"`
	Secret   string  `json:"secret"`
	URL      string  `json:"url"`
	Notes    string  `json:"notes"`
	FolderID *string `json:"folder_id"`
}

// CredentialUpdate carries a partial update; nil fields stay unchanged.
type CredentialUpdate struct {
	Name        *string `json:"name,omitempty"`
	Username    *string `json:"username,omitempty"`
	Secret      *string `json:"secret,omitempty"`
	URL         *string `json:"url,omitempty"`
	Notes       *string `json:"notes,omitempty"`
	FolderID    *string `json:"folder_id,omitempty"`
	ClearFolder bool    `json:"clear_folder,omitempty"`
}

type signUpRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type folderRequest struct {
	Name string `json:"name"`
}

type addGuardianRequest struct {
	Email string `json:"email"`
}

type recoverRequest struct {
	Email        string `json:"email"`
	GuardianKey1 string `json:"guardianKey1"`
	GuardianKey2 string `json:"guardianKey2"`
	NewPassword  string `json:"newPassword"`
}

// RecoverResult confirms whose password was reset.
type RecoverResult struct {
	Email    string `json:"email"`
	Username string `json:"username"`
}

type errorResponse struct {
	Error string `json:"error"`
}
