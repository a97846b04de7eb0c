package repomanager

import (
	"context"
	"database/sql"

	"github.com/avorobjovs/keyguard/internal/dbx"
	"github.com/avorobjovs/keyguard/internal/server/repositories/credentials"
	"github.com/avorobjovs/keyguard/internal/server/repositories/folders"
	"github.com/avorobjovs/keyguard/internal/server/repositories/guardians"
	"github.com/avorobjovs/keyguard/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX, so services can hand
// the same repository code either a plain connection or an open transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Credentials(db dbx.DBTX) credentials.Repository
	Folders(db dbx.DBTX) folders.Repository
	Guardians(db dbx.DBTX) guardians.Repository
}
