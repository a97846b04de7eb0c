package services

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/avorobjovs/keyguard/internal/dbx"
	"github.com/avorobjovs/keyguard/internal/server/models"
	credsrepo "github.com/avorobjovs/keyguard/internal/server/repositories/credentials"
	foldersrepo "github.com/avorobjovs/keyguard/internal/server/repositories/folders"
	guardiansrepo "github.com/avorobjovs/keyguard/internal/server/repositories/guardians"
	usersrepo "github.com/avorobjovs/keyguard/internal/server/repositories/users"
)

// The services only touch the real *sql.DB to begin transactions; all row
// access goes through fake repositories. sqlmock supplies the Begin/Commit
// handshake for the transactional paths.
func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

type fakeUsersRepo struct {
	createOut *models.User
	createErr error

	byIDOut *models.User
	byIDErr error

	byUsernameOut *models.User
	byUsernameErr error

	byEmailOut *models.User
	byEmailErr error

	updatedUserID string
	updatedHash   string
	updateErr     error
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.createOut != nil {
		return f.createOut, nil
	}
	out := *u
	out.ID = "u1"
	return &out, nil
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	if f.byIDErr != nil {
		return nil, f.byIDErr
	}
	return f.byIDOut, nil
}

func (f *fakeUsersRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	if f.byUsernameErr != nil {
		return nil, f.byUsernameErr
	}
	return f.byUsernameOut, nil
}

func (f *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if f.byEmailErr != nil {
		return nil, f.byEmailErr
	}
	return f.byEmailOut, nil
}

func (f *fakeUsersRepo) UpdatePasswordHash(ctx context.Context, userID string, passwordHash string) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updatedUserID = userID
	f.updatedHash = passwordHash
	return nil
}

type fakeCredsRepo struct {
	created   *models.Credential
	createErr error

	getOut *models.Credential
	getErr error

	listOut []*models.Credential
	listErr error

	listFolderOut []*models.Credential

	updated   *models.Credential
	updateErr error

	deletedID string
	deleteErr error

	countOut int64
	countErr error

	deletedFolderID string
}

func (f *fakeCredsRepo) Create(ctx context.Context, cred *models.Credential) (*models.Credential, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	stored := *cred
	stored.ID = "c1"
	f.created = &stored
	out := stored
	return &out, nil
}

func (f *fakeCredsRepo) GetByID(ctx context.Context, id string) (*models.Credential, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	out := *f.getOut
	return &out, nil
}

func (f *fakeCredsRepo) ListByUser(ctx context.Context, userID string) ([]*models.Credential, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.listOut, nil
}

func (f *fakeCredsRepo) ListByFolder(ctx context.Context, folderID string) ([]*models.Credential, error) {
	return f.listFolderOut, nil
}

func (f *fakeCredsRepo) Update(ctx context.Context, cred *models.Credential) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updated = cred
	return nil
}

func (f *fakeCredsRepo) Delete(ctx context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deletedID = id
	return nil
}

func (f *fakeCredsRepo) CountInFolder(ctx context.Context, folderID string) (int64, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	return f.countOut, nil
}

func (f *fakeCredsRepo) DeleteByFolder(ctx context.Context, folderID string) error {
	f.deletedFolderID = folderID
	return nil
}

type fakeFoldersRepo struct {
	created   *models.Folder
	createErr error

	getOut *models.Folder
	getErr error

	listOut []*models.Folder
	listErr error

	renamedID   string
	renamedName string
	renameErr   error

	deletedID string
	deleteErr error
}

func (f *fakeFoldersRepo) Create(ctx context.Context, folder *models.Folder) (*models.Folder, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	stored := *folder
	stored.ID = "f1"
	f.created = &stored
	out := stored
	return &out, nil
}

func (f *fakeFoldersRepo) GetByID(ctx context.Context, id string) (*models.Folder, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	out := *f.getOut
	return &out, nil
}

func (f *fakeFoldersRepo) ListByUser(ctx context.Context, userID string) ([]*models.Folder, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.listOut, nil
}

func (f *fakeFoldersRepo) Rename(ctx context.Context, id string, name string) error {
	if f.renameErr != nil {
		return f.renameErr
	}
	f.renamedID = id
	f.renamedName = name
	return nil
}

func (f *fakeFoldersRepo) Delete(ctx context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deletedID = id
	return nil
}

type fakeGuardiansRepo struct {
	created   *models.GuardianEdge
	createErr error

	getOut *models.GuardianEdge
	getErr error

	byGuardianOut []*models.GuardianEdge
	byEmailOut    []*models.GuardianEdge
	listErr       error

	deletedID string
	deleteErr error
}

func (f *fakeGuardiansRepo) Create(ctx context.Context, edge *models.GuardianEdge) (*models.GuardianEdge, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	stored := *edge
	stored.ID = "g1"
	f.created = &stored
	out := stored
	return &out, nil
}

func (f *fakeGuardiansRepo) GetByID(ctx context.Context, id string) (*models.GuardianEdge, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	out := *f.getOut
	return &out, nil
}

func (f *fakeGuardiansRepo) ListByGuardian(ctx context.Context, guardianID string) ([]*models.GuardianEdge, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.byGuardianOut, nil
}

func (f *fakeGuardiansRepo) ListByProtectedEmail(ctx context.Context, email string) ([]*models.GuardianEdge, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.byEmailOut, nil
}

func (f *fakeGuardiansRepo) Delete(ctx context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deletedID = id
	return nil
}

type fakeRepoManager struct {
	u *fakeUsersRepo
	c *fakeCredsRepo
	f *fakeFoldersRepo
	g *fakeGuardiansRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository      { return m.u }
func (m *fakeRepoManager) Credentials(db dbx.DBTX) credsrepo.Repository {
	return m.c
}
func (m *fakeRepoManager) Folders(db dbx.DBTX) foldersrepo.Repository { return m.f }
func (m *fakeRepoManager) Guardians(db dbx.DBTX) guardiansrepo.Repository {
	return m.g
}
