package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/hronboard/internal/common"
	"github.com/dmitrijs2005/hronboard/internal/dbx"
	"github.com/dmitrijs2005/hronboard/internal/server/ingest"
	"github.com/dmitrijs2005/hronboard/internal/server/lifecycle"
	"github.com/dmitrijs2005/hronboard/internal/server/models"
	"github.com/dmitrijs2005/hronboard/internal/server/repositories/repomanager"
)

// IngestResult reports the outcome of a bank statement upload.
type IngestResult struct {
	OK       bool
	Rows     int
	Replaced int64
	Summary  string
	Document *models.CandidateDocument
}

// BankStatementService loads bank statements. The previous row set, the new
// rows and the document transition commit or roll back together.
type BankStatementService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	documents   *DocumentService
}

func NewBankStatementService(db *sql.DB, repomanager repomanager.RepositoryManager, documents *DocumentService) *BankStatementService {
	return &BankStatementService{db: db, repomanager: repomanager, documents: documents}
}

// Ingest validates the table structure, stores the file and replaces the
// candidate's bank account rows. Structural problems return a failed result
// together with the error; cell contents are never rejected.
func (s *BankStatementService) Ingest(ctx context.Context, candidateID, documentID string, file FileUpload) (*IngestResult, error) {
	doc, err := s.documents.getOwned(ctx, s.db, candidateID, documentID)
	if err != nil {
		return nil, err
	}
	if !doc.IsBankStatement() {
		return nil, fmt.Errorf("%w: document %s is not a bank statement", common.ErrIllegalTransition, documentID)
	}
	if _, err := lifecycle.NextDocumentStatus(doc.Status, lifecycle.ActionUpload, lifecycle.ActorCandidate); err != nil {
		return nil, err
	}

	rows, err := ingest.ParseBankStatement(file.Data, file.Name)
	if err != nil {
		return &IngestResult{Summary: err.Error()}, err
	}

	obj, err := s.documents.putFile(ctx, candidateID, documentID, file)
	if err != nil {
		return nil, err
	}

	res := &IngestResult{Rows: len(rows)}
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		accounts := s.repomanager.BankAccounts(tx)

		replaced, err := accounts.DeleteByCandidate(ctx, candidateID)
		if err != nil {
			return err
		}
		for i := range rows {
			row := rows[i]
			row.CandidateID = candidateID
			if err := accounts.Insert(ctx, &row); err != nil {
				return err
			}
		}

		doc, err := s.documents.getOwned(ctx, tx, candidateID, documentID)
		if err != nil {
			return err
		}
		updated, err := applyDocumentTransition(ctx, s.repomanager, tx, doc, lifecycle.ActionUpload, lifecycle.ActorCandidate, obj)
		if err != nil {
			return err
		}

		res.Replaced = replaced
		res.Document = updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	res.OK = true
	res.Summary = fmt.Sprintf("Банковская выписка успешно обработана, загружено счетов: %d", res.Rows)
	return res, nil
}

// Accounts returns the candidate's current bank account rows.
func (s *BankStatementService) Accounts(ctx context.Context, candidateID string) ([]*models.BankAccount, error) {
	return s.repomanager.BankAccounts(s.db).ListByCandidate(ctx, candidateID)
}
