package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/hronboard/internal/dbx"
	"github.com/dmitrijs2005/hronboard/internal/server/repositories/bankaccounts"
	"github.com/dmitrijs2005/hronboard/internal/server/repositories/candidates"
	"github.com/dmitrijs2005/hronboard/internal/server/repositories/documents"
	"github.com/dmitrijs2005/hronboard/internal/server/repositories/locations"
	"github.com/dmitrijs2005/hronboard/internal/server/repositories/messages"
	"github.com/dmitrijs2005/hronboard/internal/server/repositories/templates"
)

// RepositoryManager vends repositories bound to either a *sql.DB or a *sql.Tx,
// so services can compose several of them inside dbx.WithTx.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Candidates(db dbx.DBTX) candidates.Repository
	Documents(db dbx.DBTX) documents.Repository
	Templates(db dbx.DBTX) templates.Repository
	BankAccounts(db dbx.DBTX) bankaccounts.Repository
	Locations(db dbx.DBTX) locations.Repository
	Messages(db dbx.DBTX) messages.Repository
}
