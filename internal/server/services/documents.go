package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/hronboard/internal/common"
	"github.com/dmitrijs2005/hronboard/internal/dbx"
	sc "github.com/dmitrijs2005/hronboard/internal/server/config"
	"github.com/dmitrijs2005/hronboard/internal/server/lifecycle"
	"github.com/dmitrijs2005/hronboard/internal/server/models"
	"github.com/dmitrijs2005/hronboard/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/hronboard/internal/server/repositories/templates"
	"github.com/dmitrijs2005/hronboard/internal/server/storage"
)

// FileUpload is a file received from a candidate.
type FileUpload struct {
	Name        string
	ContentType string
	Data        []byte
}

// DocumentService applies document lifecycle transitions. Every accepted
// transition updates the status conditionally and appends a history row in
// the same transaction.
type DocumentService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	store       storage.ObjectStore
	bucket      string
	presignTTL  time.Duration
}

func NewDocumentService(db *sql.DB, repomanager repomanager.RepositoryManager, store storage.ObjectStore, config *sc.Config) *DocumentService {
	return &DocumentService{
		db:          db,
		repomanager: repomanager,
		store:       store,
		bucket:      config.S3Bucket,
		presignTTL:  config.PresignValidityDuration,
	}
}

// List returns the candidate's documents, materializing one row per required
// template on first access.
func (s *DocumentService) List(ctx context.Context, candidateID string) ([]*models.CandidateDocument, error) {
	return dbx.InTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) ([]*models.CandidateDocument, error) {
		repo := s.repomanager.Documents(tx)

		docs, err := repo.ListByCandidate(ctx, candidateID)
		if err != nil {
			return nil, err
		}
		if len(docs) > 0 {
			return docs, nil
		}

		if err := materializeDocuments(ctx, s.repomanager, tx, candidateID); err != nil {
			return nil, err
		}
		return repo.ListByCandidate(ctx, candidateID)
	})
}

// materializeDocuments seeds the template table when it is empty and creates
// the candidate's missing document rows.
func materializeDocuments(ctx context.Context, rm repomanager.RepositoryManager, tx dbx.DBTX, candidateID string) error {
	tpl := rm.Templates(tx)

	n, err := tpl.Count(ctx)
	if err != nil {
		return err
	}
	if n == 0 {
		if err := tpl.Seed(ctx, templates.Defaults); err != nil {
			return err
		}
	}

	if _, err := rm.Documents(tx).Materialize(ctx, candidateID); err != nil {
		return err
	}
	return nil
}

func (s *DocumentService) Get(ctx context.Context, documentID string) (*models.CandidateDocument, error) {
	return s.repomanager.Documents(s.db).GetByID(ctx, documentID)
}

// getOwned loads a document and checks that it belongs to candidateID.
func (s *DocumentService) getOwned(ctx context.Context, db dbx.DBTX, candidateID, documentID string) (*models.CandidateDocument, error) {
	doc, err := s.repomanager.Documents(db).GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.CandidateID != candidateID {
		return nil, fmt.Errorf("document %s: %w", documentID, common.ErrNotFound)
	}
	return doc, nil
}

// applyDocumentTransition moves doc along action inside tx. The update is
// conditional on the status doc was read with, so a concurrent change makes
// it fail with common.ErrIllegalTransition.
func applyDocumentTransition(ctx context.Context, rm repomanager.RepositoryManager, tx dbx.DBTX,
	doc *models.CandidateDocument, action lifecycle.DocumentAction, actor lifecycle.Actor, obj *models.StoredObject,
) (*models.CandidateDocument, error) {
	next, err := lifecycle.NextDocumentStatus(doc.Status, action, actor)
	if err != nil {
		return nil, err
	}

	repo := rm.Documents(tx)
	if err := repo.UpdateStatus(ctx, doc.ID, doc.Status, next, obj); err != nil {
		return nil, err
	}
	if err := repo.AppendHistory(ctx, doc.ID, next); err != nil {
		return nil, err
	}

	out := *doc
	out.Status = next
	if obj != nil {
		out.Object = obj
		now := time.Now()
		out.SubmittedAt = &now
	}
	return &out, nil
}

// MarkOrdered records that the candidate has ordered the document from the
// issuing authority.
func (s *DocumentService) MarkOrdered(ctx context.Context, candidateID, documentID string) (*models.CandidateDocument, error) {
	return dbx.InTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) (*models.CandidateDocument, error) {
		doc, err := s.getOwned(ctx, tx, candidateID, documentID)
		if err != nil {
			return nil, err
		}
		return applyDocumentTransition(ctx, s.repomanager, tx, doc, lifecycle.ActionMarkOrdered, lifecycle.ActorCandidate, nil)
	})
}

// Upload stores the file and submits the document for review. The blob is
// written before the transaction; a failed transition leaves an unreferenced
// object that the next upload overwrites.
func (s *DocumentService) Upload(ctx context.Context, candidateID, documentID string, file FileUpload) (*models.CandidateDocument, error) {
	doc, err := s.getOwned(ctx, s.db, candidateID, documentID)
	if err != nil {
		return nil, err
	}
	if _, err := lifecycle.NextDocumentStatus(doc.Status, lifecycle.ActionUpload, lifecycle.ActorCandidate); err != nil {
		return nil, err
	}

	obj, err := s.putFile(ctx, candidateID, documentID, file)
	if err != nil {
		return nil, err
	}

	return dbx.InTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) (*models.CandidateDocument, error) {
		doc, err := s.getOwned(ctx, tx, candidateID, documentID)
		if err != nil {
			return nil, err
		}
		return applyDocumentTransition(ctx, s.repomanager, tx, doc, lifecycle.ActionUpload, lifecycle.ActorCandidate, obj)
	})
}

func (s *DocumentService) putFile(ctx context.Context, candidateID, documentID string, file FileUpload) (*models.StoredObject, error) {
	contentType := file.ContentType
	if contentType == "" {
		contentType = storage.ContentTypeFor(file.Name)
	}

	obj := &models.StoredObject{
		Bucket:      s.bucket,
		Key:         storage.ObjectKey(candidateID, documentID, file.Name),
		Size:        int64(len(file.Data)),
		ContentType: contentType,
	}

	if err := s.store.EnsureBucket(ctx, obj.Bucket); err != nil {
		return nil, err
	}
	if err := s.store.PutObject(ctx, obj.Bucket, obj.Key, file.Data, obj.ContentType); err != nil {
		return nil, err
	}
	return obj, nil
}

// Review applies a staff decision to a document. Reviewing any document of a
// registered candidate also moves the candidate to under review.
func (s *DocumentService) Review(ctx context.Context, documentID string, action lifecycle.DocumentAction) (*models.CandidateDocument, error) {
	switch action {
	case lifecycle.ActionApprove, lifecycle.ActionReject, lifecycle.ActionRequestResubmission:
	default:
		return nil, fmt.Errorf("%w: %s is not a review action", common.ErrIllegalTransition, action)
	}

	return dbx.InTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) (*models.CandidateDocument, error) {
		doc, err := s.repomanager.Documents(tx).GetByID(ctx, documentID)
		if err != nil {
			return nil, err
		}

		out, err := applyDocumentTransition(ctx, s.repomanager, tx, doc, action, lifecycle.ActorStaff, nil)
		if err != nil {
			return nil, err
		}

		if err := beginReview(ctx, s.repomanager, tx, doc.CandidateID); err != nil {
			return nil, err
		}
		return out, nil
	})
}

// beginReview moves a registered candidate to under review. Candidates in
// any other status are left alone.
func beginReview(ctx context.Context, rm repomanager.RepositoryManager, tx dbx.DBTX, candidateID string) error {
	err := rm.Candidates(tx).UpdateStatus(ctx, candidateID, models.CandidateRegistered, models.CandidateUnderReview)
	if err != nil && !errors.Is(err, common.ErrIllegalTransition) {
		return err
	}
	return nil
}

// Download returns the stored file of a candidate's document together with a
// filename suitable for sending back to the chat.
func (s *DocumentService) Download(ctx context.Context, candidateID, documentID string) ([]byte, string, error) {
	doc, err := s.getOwned(ctx, s.db, candidateID, documentID)
	if err != nil {
		return nil, "", err
	}
	if doc.Object == nil {
		return nil, "", fmt.Errorf("file of document %s: %w", documentID, common.ErrNotFound)
	}

	data, err := s.store.GetObject(ctx, doc.Object.Bucket, doc.Object.Key)
	if err != nil {
		return nil, "", err
	}
	return data, doc.TemplateName + "." + storage.Extension(doc.Object.Key), nil
}

// PresignDownload returns a time-limited link to the document's file.
func (s *DocumentService) PresignDownload(ctx context.Context, documentID string) (string, error) {
	doc, err := s.Get(ctx, documentID)
	if err != nil {
		return "", err
	}
	if doc.Object == nil {
		return "", fmt.Errorf("file of document %s: %w", documentID, common.ErrNotFound)
	}
	return s.store.PresignGet(ctx, doc.Object.Bucket, doc.Object.Key, s.presignTTL)
}

func (s *DocumentService) UpdateNotes(ctx context.Context, documentID, notes string) error {
	return s.repomanager.Documents(s.db).UpdateNotes(ctx, documentID, sanitizeText(notes))
}

func (s *DocumentService) History(ctx context.Context, documentID string) ([]*models.DocumentHistory, error) {
	repo := s.repomanager.Documents(s.db)
	if _, err := repo.GetByID(ctx, documentID); err != nil {
		return nil, err
	}
	list, err := repo.History(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []*models.DocumentHistory{}
	}
	return list, nil
}
