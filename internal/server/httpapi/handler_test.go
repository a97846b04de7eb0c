package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/avorobjovs/keyguard/internal/common"
	"github.com/avorobjovs/keyguard/internal/cryptox"
	"github.com/avorobjovs/keyguard/internal/dbx"
	"github.com/avorobjovs/keyguard/internal/logging"
	"github.com/avorobjovs/keyguard/internal/server/config"
	"github.com/avorobjovs/keyguard/internal/server/models"
	credsrepo "github.com/avorobjovs/keyguard/internal/server/repositories/credentials"
	foldersrepo "github.com/avorobjovs/keyguard/internal/server/repositories/folders"
	guardiansrepo "github.com/avorobjovs/keyguard/internal/server/repositories/guardians"
	"github.com/avorobjovs/keyguard/internal/server/repositories/repomanager"
	usersrepo "github.com/avorobjovs/keyguard/internal/server/repositories/users"
	"github.com/avorobjovs/keyguard/internal/server/services"
)

// In-memory repositories so the full request path (routing, auth, services,
// encryption) runs without PostgreSQL. The sqlmock DB only backs transaction
// Begin/Commit calls.

type memStore struct {
	seq       int
	users     map[string]*models.User
	creds     map[string]*models.Credential
	folders   map[string]*models.Folder
	guardians map[string]*models.GuardianEdge
}

func newMemStore() *memStore {
	return &memStore{
		users:     map[string]*models.User{},
		creds:     map[string]*models.Credential{},
		folders:   map[string]*models.Folder{},
		guardians: map[string]*models.GuardianEdge{},
	}
}

func (m *memStore) nextID() string {
	m.seq++
	return fmt.Sprintf("%d", m.seq)
}

type memUsersRepo struct{ s *memStore }

func (r *memUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	for _, existing := range r.s.users {
		if existing.Username == u.Username || existing.Email == u.Email {
			return nil, common.ErrConflict
		}
	}
	stored := *u
	stored.ID = r.s.nextID()
	stored.CreatedAt = time.Now()
	r.s.users[stored.ID] = &stored
	out := stored
	return &out, nil
}

func (r *memUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := r.s.users[id]; ok {
		out := *u
		return &out, nil
	}
	return nil, common.ErrNotFound
}

func (r *memUsersRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	for _, u := range r.s.users {
		if u.Username == username {
			out := *u
			return &out, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *memUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range r.s.users {
		if u.Email == email {
			out := *u
			return &out, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *memUsersRepo) UpdatePasswordHash(ctx context.Context, userID string, passwordHash string) error {
	u, ok := r.s.users[userID]
	if !ok {
		return common.ErrNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

type memCredsRepo struct{ s *memStore }

func (r *memCredsRepo) Create(ctx context.Context, cred *models.Credential) (*models.Credential, error) {
	stored := *cred
	stored.ID = r.s.nextID()
	r.s.creds[stored.ID] = &stored
	out := stored
	return &out, nil
}

func (r *memCredsRepo) GetByID(ctx context.Context, id string) (*models.Credential, error) {
	if c, ok := r.s.creds[id]; ok {
		out := *c
		return &out, nil
	}
	return nil, common.ErrNotFound
}

func (r *memCredsRepo) ListByUser(ctx context.Context, userID string) ([]*models.Credential, error) {
	var out []*models.Credential
	for _, c := range r.s.creds {
		if c.UserID == userID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memCredsRepo) ListByFolder(ctx context.Context, folderID string) ([]*models.Credential, error) {
	var out []*models.Credential
	for _, c := range r.s.creds {
		if c.FolderID != nil && *c.FolderID == folderID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memCredsRepo) Update(ctx context.Context, cred *models.Credential) error {
	if _, ok := r.s.creds[cred.ID]; !ok {
		return common.ErrNotFound
	}
	stored := *cred
	r.s.creds[cred.ID] = &stored
	return nil
}

func (r *memCredsRepo) Delete(ctx context.Context, id string) error {
	if _, ok := r.s.creds[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.s.creds, id)
	return nil
}

func (r *memCredsRepo) CountInFolder(ctx context.Context, folderID string) (int64, error) {
	var n int64
	for _, c := range r.s.creds {
		if c.FolderID != nil && *c.FolderID == folderID {
			n++
		}
	}
	return n, nil
}

func (r *memCredsRepo) DeleteByFolder(ctx context.Context, folderID string) error {
	for id, c := range r.s.creds {
		if c.FolderID != nil && *c.FolderID == folderID {
			delete(r.s.creds, id)
		}
	}
	return nil
}

type memFoldersRepo struct{ s *memStore }

func (r *memFoldersRepo) Create(ctx context.Context, folder *models.Folder) (*models.Folder, error) {
	stored := *folder
	stored.ID = r.s.nextID()
	r.s.folders[stored.ID] = &stored
	out := stored
	return &out, nil
}

func (r *memFoldersRepo) GetByID(ctx context.Context, id string) (*models.Folder, error) {
	if f, ok := r.s.folders[id]; ok {
		out := *f
		return &out, nil
	}
	return nil, common.ErrNotFound
}

func (r *memFoldersRepo) ListByUser(ctx context.Context, userID string) ([]*models.Folder, error) {
	var out []*models.Folder
	for _, f := range r.s.folders {
		if f.UserID == userID {
			cp := *f
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memFoldersRepo) Rename(ctx context.Context, id string, name string) error {
	f, ok := r.s.folders[id]
	if !ok {
		return common.ErrNotFound
	}
	f.Name = name
	return nil
}

func (r *memFoldersRepo) Delete(ctx context.Context, id string) error {
	delete(r.s.folders, id)
	return nil
}

type memGuardiansRepo struct{ s *memStore }

func (r *memGuardiansRepo) Create(ctx context.Context, edge *models.GuardianEdge) (*models.GuardianEdge, error) {
	for _, e := range r.s.guardians {
		if e.GuardianID == edge.GuardianID && e.ProtectedEmail == edge.ProtectedEmail {
			return nil, common.ErrConflict
		}
	}
	stored := *edge
	stored.ID = r.s.nextID()
	r.s.guardians[stored.ID] = &stored
	out := stored
	return &out, nil
}

func (r *memGuardiansRepo) GetByID(ctx context.Context, id string) (*models.GuardianEdge, error) {
	if e, ok := r.s.guardians[id]; ok {
		out := *e
		return &out, nil
	}
	return nil, common.ErrNotFound
}

func (r *memGuardiansRepo) ListByGuardian(ctx context.Context, guardianID string) ([]*models.GuardianEdge, error) {
	var out []*models.GuardianEdge
	for _, e := range r.s.guardians {
		if e.GuardianID == guardianID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memGuardiansRepo) ListByProtectedEmail(ctx context.Context, email string) ([]*models.GuardianEdge, error) {
	var out []*models.GuardianEdge
	for _, e := range r.s.guardians {
		if e.ProtectedEmail == email {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memGuardiansRepo) Delete(ctx context.Context, id string) error {
	delete(r.s.guardians, id)
	return nil
}

type memRepoManager struct{ s *memStore }

func (m *memRepoManager) RunMigrations(context.Context, *sql.DB) error       { return nil }
func (m *memRepoManager) Users(db dbx.DBTX) usersrepo.Repository             { return &memUsersRepo{m.s} }
func (m *memRepoManager) Credentials(db dbx.DBTX) credsrepo.Repository       { return &memCredsRepo{m.s} }
func (m *memRepoManager) Folders(db dbx.DBTX) foldersrepo.Repository         { return &memFoldersRepo{m.s} }
func (m *memRepoManager) Guardians(db dbx.DBTX) guardiansrepo.Repository     { return &memGuardiansRepo{m.s} }

var _ repomanager.RepositoryManager = (*memRepoManager)(nil)

type testEnv struct {
	handler http.Handler
	store   *memStore
	mock    sqlmock.Sqlmock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	// Transactions are opened as needed by delete/update/recover flows.
	mock.MatchExpectationsInOrder(false)

	store := newMemStore()
	rm := &memRepoManager{s: store}

	cfg := &config.Config{
		JWTSecret:                    "test-jwt-secret",
		MasterSecret:                 "test-master",
		SessionTokenValidityDuration: time.Hour,
	}

	deriver := cryptox.NewKeyDeriver(cfg.MasterSecret)
	logger := logging.NewSlogLogger(discardSlog())

	h := NewHandler(
		services.NewUserService(db, rm, cfg),
		services.NewCredentialService(db, rm, deriver),
		services.NewFolderService(db, rm),
		services.NewGuardianService(db, rm),
		services.NewRecoveryService(db, rm),
		cfg,
		logger,
	)

	return &testEnv{handler: NewServeMux(h, logger), store: store, mock: mock}
}

func (e *testEnv) do(t *testing.T, method, path, token, vaultSecret string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *strings.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = strings.NewReader(string(b))
	} else {
		reader = strings.NewReader("")
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if vaultSecret != "" {
		req.Header.Set(vaultSecretHeader, vaultSecret)
	}

	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) signupAndLogin(t *testing.T, username, email, password string) string {
	t.Helper()

	rec := e.do(t, http.MethodPost, "/api/v1/users/signup", "", "", SignUpRequest{
		Username: username, Email: email, Password: password,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = e.do(t, http.MethodPost, "/api/v1/users/login", "", "", LoginRequest{
		Username: username, Password: password,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp LoginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	return resp.Token
}

func TestLogin_SetsSessionCookie(t *testing.T) {
	env := newTestEnv(t)
	env.signupAndLogin(t, "alice", "alice@example.com", "password-123")

	rec := env.do(t, http.MethodPost, "/api/v1/users/login", "", "", LoginRequest{
		Username: "alice", Password: "password-123",
	})

	var found bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookieName && c.Value != "" && c.HttpOnly {
			found = true
		}
	}
	if !found {
		t.Errorf("expected HttpOnly session cookie, got %v", rec.Result().Cookies())
	}
}

func TestLogin_WrongCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.signupAndLogin(t, "alice", "alice@example.com", "password-123")

	rec := env.do(t, http.MethodPost, "/api/v1/users/login", "", "", LoginRequest{
		Username: "alice", Password: "wrong",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t)

	paths := []struct{ method, path string }{
		{http.MethodGet, "/api/v1/users/me"},
		{http.MethodGet, "/api/v1/passwords"},
		{http.MethodGet, "/api/v1/folders"},
		{http.MethodGet, "/api/v1/guardians"},
	}
	for _, p := range paths {
		rec := env.do(t, p.method, p.path, "", "", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s without token: status = %d, want 401", p.method, p.path, rec.Code)
		}
	}
}

func TestCredentialLifecycle(t *testing.T) {
	env := newTestEnv(t)
	token := env.signupAndLogin(t, "alice", "alice@example.com", "password-123")

	rec := env.do(t, http.MethodPost, "/api/v1/passwords", token, "password-123", CreateCredentialRequest{
		Name: "github", Username: "alice", Secret: "hunter2", URL: "https://github.com",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}

	var created CredentialResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Secret != "hunter2" {
		t.Errorf("create response secret = %q", created.Secret)
	}

	// Stored envelope must not be the plaintext.
	stored := env.store.creds[created.ID]
	if stored.Secret == "hunter2" || !strings.Contains(stored.Secret, ":") {
		t.Errorf("stored secret is not an envelope: %q", stored.Secret)
	}

	// Listing returns metadata only.
	rec = env.do(t, http.MethodGet, "/api/v1/passwords", token, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var list []CredentialResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 1 || list[0].Secret != "" {
		t.Errorf("listing must not carry secrets: %+v", list)
	}

	// Detail decrypts.
	rec = env.do(t, http.MethodGet, "/api/v1/passwords/"+created.ID, token, "password-123", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d, body %s", rec.Code, rec.Body.String())
	}
	var got CredentialResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode get: %v", err)
	}
	if got.Secret != "hunter2" {
		t.Errorf("decrypted secret = %q, want hunter2", got.Secret)
	}

	// Wrong vault secret cannot decrypt.
	rec = env.do(t, http.MethodGet, "/api/v1/passwords/"+created.ID, token, "other-pass", nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("wrong vault secret: status = %d, want 422", rec.Code)
	}

	// Delete.
	env.mock.ExpectBegin()
	env.mock.ExpectCommit()
	rec = env.do(t, http.MethodDelete, "/api/v1/passwords/"+created.ID, token, "", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if len(env.store.creds) != 0 {
		t.Errorf("credential not deleted")
	}
}

func TestCreateCredential_RequiresVaultHeader(t *testing.T) {
	env := newTestEnv(t)
	token := env.signupAndLogin(t, "alice", "alice@example.com", "password-123")

	rec := env.do(t, http.MethodPost, "/api/v1/passwords", token, "", CreateCredentialRequest{
		Name: "github", Secret: "hunter2",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestCredential_TenantIsolation(t *testing.T) {
	env := newTestEnv(t)
	aliceToken := env.signupAndLogin(t, "alice", "alice@example.com", "password-123")
	bobToken := env.signupAndLogin(t, "bob", "bob@example.com", "password-456")

	rec := env.do(t, http.MethodPost, "/api/v1/passwords", aliceToken, "password-123", CreateCredentialRequest{
		Name: "github", Secret: "hunter2",
	})
	var created CredentialResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/passwords/"+created.ID, bobToken, "password-456", nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("foreign record: status = %d, want 403", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/passwords/does-not-exist", bobToken, "password-456", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing record: status = %d, want 404", rec.Code)
	}
}

func TestGuardianAndRecoveryFlow(t *testing.T) {
	env := newTestEnv(t)
	aliceToken := env.signupAndLogin(t, "alice", "alice@example.com", "password-123")
	bobToken := env.signupAndLogin(t, "bob", "bob@example.com", "password-456")
	carolToken := env.signupAndLogin(t, "carol", "carol@example.com", "password-789")

	for _, email := range []string{"bob@example.com", "carol@example.com"} {
		rec := env.do(t, http.MethodPost, "/api/v1/guardians", aliceToken, "", AddGuardianRequest{Email: email})
		if rec.Code != http.StatusCreated {
			t.Fatalf("add guardian %s: status = %d, body %s", email, rec.Code, rec.Body.String())
		}
		var edge GuardianEdgeResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &edge); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if edge.RecoveryKey != "" {
			t.Errorf("protected user must not see the recovery key")
		}
	}

	// Guardians read their keys from their own listing.
	var keys []string
	for _, token := range []string{bobToken, carolToken} {
		rec := env.do(t, http.MethodGet, "/api/v1/guardians", token, "", nil)
		var overview GuardianOverviewResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &overview); err != nil {
			t.Fatalf("decode overview: %v", err)
		}
		if len(overview.Protecting) != 1 || overview.Protecting[0].RecoveryKey == "" {
			t.Fatalf("guardian listing missing key: %+v", overview)
		}
		keys = append(keys, overview.Protecting[0].RecoveryKey)
	}

	// Alice sees who protects her, without keys.
	rec := env.do(t, http.MethodGet, "/api/v1/guardians", aliceToken, "", nil)
	var aliceView GuardianOverviewResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &aliceView); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(aliceView.ProtectedBy) != 2 {
		t.Fatalf("expected 2 protecting edges, got %+v", aliceView)
	}
	for _, e := range aliceView.ProtectedBy {
		if e.RecoveryKey != "" {
			t.Errorf("protected listing leaked a key")
		}
	}

	// Same key twice must not clear the threshold.
	rec = env.do(t, http.MethodPost, "/api/v1/recover", "", "", RecoverRequest{
		Email: "alice@example.com", GuardianKey1: keys[0], GuardianKey2: keys[0], NewPassword: "brand-new-pass",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("same key twice: status = %d, want 400", rec.Code)
	}

	// Two distinct keys reset the password, no session required.
	env.mock.ExpectBegin()
	env.mock.ExpectCommit()
	rec = env.do(t, http.MethodPost, "/api/v1/recover", "", "", RecoverRequest{
		Email: "alice@example.com", GuardianKey1: keys[0], GuardianKey2: keys[1], NewPassword: "brand-new-pass",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("recover status = %d, body %s", rec.Code, rec.Body.String())
	}

	// Old password stops working; the new one logs in.
	rec = env.do(t, http.MethodPost, "/api/v1/users/login", "", "", LoginRequest{
		Username: "alice", Password: "password-123",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("old password still accepted: status = %d", rec.Code)
	}
	rec = env.do(t, http.MethodPost, "/api/v1/users/login", "", "", LoginRequest{
		Username: "alice", Password: "brand-new-pass",
	})
	if rec.Code != http.StatusOK {
		t.Errorf("new password rejected: status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestFolderCascadeOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	token := env.signupAndLogin(t, "alice", "alice@example.com", "password-123")

	rec := env.do(t, http.MethodPost, "/api/v1/folders", token, "", FolderRequest{Name: "work"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create folder status = %d", rec.Code)
	}
	var folder FolderResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &folder); err != nil {
		t.Fatalf("decode: %v", err)
	}

	rec = env.do(t, http.MethodPost, "/api/v1/passwords", token, "password-123", CreateCredentialRequest{
		Name: "github", Secret: "hunter2", FolderID: &folder.ID,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create credential status = %d, body %s", rec.Code, rec.Body.String())
	}
	var created CredentialResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	// Deleting the only record collapses the folder.
	env.mock.ExpectBegin()
	env.mock.ExpectCommit()
	rec = env.do(t, http.MethodDelete, "/api/v1/passwords/"+created.ID, token, "", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if len(env.store.folders) != 0 {
		t.Errorf("empty folder must be deleted with its last record")
	}
}
