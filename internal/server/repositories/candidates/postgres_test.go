package candidates

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/hronboard/internal/common"
	"github.com/dmitrijs2005/hronboard/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var candidateCols = []string{
	"candidate_uuid", "first_name", "last_name", "email", "sex", "invitation_code",
	"telegram_chat_id", "status_id", "tutor_uuid", "notes", "agreement_accepted", "agreement_accepted_at",
	"created_at", "updated_at",
}

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresRepository(db), mock, db
}

func TestCreate_OK(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)
	now := time.Now()

	mock.ExpectQuery(`(?s)^INSERT INTO hr\.candidates.*RETURNING created_at, updated_at$`).
		WithArgs("c1", "Anna", "Ivanova", "a@example.com", true, "AB12CD", 2, nil).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	c := &models.Candidate{ID: "c1", FirstName: "Anna", LastName: "Ivanova", Email: "a@example.com",
		Sex: true, InvitationCode: "AB12CD", Status: models.CandidateInvited}
	require.NoError(t, repo.Create(context.Background(), c))
	assert.Equal(t, now, c.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_CodeClash(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectQuery(`INSERT INTO hr\.candidates`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "candidates_invitation_code_key"})

	err := repo.Create(context.Background(), &models.Candidate{ID: "c1", InvitationCode: "AB12CD"})
	require.ErrorIs(t, err, common.ErrAlreadyExists)
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectQuery(`INSERT INTO hr\.candidates`).WillReturnError(errors.New("db down"))

	err := repo.Create(context.Background(), &models.Candidate{ID: "c1"})
	require.Error(t, err)
	assert.Regexp(t, regexp.MustCompile(`db error: .*db down`), err.Error())
}

func TestGetByInvitationCode_OK(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)
	now := time.Now()

	mock.ExpectQuery(`(?s)SELECT candidate_uuid, .* FROM hr\.candidates WHERE invitation_code = \$1`).
		WithArgs("AB12CD").
		WillReturnRows(sqlmock.NewRows(candidateCols).
			AddRow("c1", "Anna", "Ivanova", "a@example.com", false, "AB12CD",
				int64(42), 2, nil, "", false, nil, now, now))

	c, err := repo.GetByInvitationCode(context.Background(), "AB12CD")
	require.NoError(t, err)
	assert.Equal(t, "c1", c.ID)
	assert.Equal(t, models.CandidateInvited, c.Status)
	require.NotNil(t, c.ChatID)
	assert.Equal(t, int64(42), *c.ChatID)
	assert.Nil(t, c.TutorID)
	assert.Nil(t, c.AgreementAcceptedAt)
}

func TestGetByChatID_NotFound(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectQuery(`WHERE telegram_chat_id = \$1`).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows(candidateCols))

	_, err := repo.GetByChatID(context.Background(), 5)
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestGetByID_DBError(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectQuery(`WHERE candidate_uuid = \$1`).WithArgs("c1").WillReturnError(errors.New("boom"))

	_, err := repo.GetByID(context.Background(), "c1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrNotFound)
}

func TestList_FiltersByStatus(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)
	now := time.Now()
	accepted := now.Add(-time.Hour)

	mock.ExpectQuery(`(?s)FROM hr\.candidates WHERE \(\$1 = 0 OR status_id = \$1\) ORDER BY created_at DESC`).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows(candidateCols).
			AddRow("c1", "A", "B", "a@b", false, "AAAAAA", nil, 5, "t1", "n", true, accepted, now, now).
			AddRow("c2", "C", "D", "c@d", true, "BBBBBB", nil, 5, nil, "", true, accepted, now, now))

	got, err := repo.List(context.Background(), models.CandidateUnderReview)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.NotNil(t, got[0].TutorID)
	assert.Equal(t, "t1", *got[0].TutorID)
	require.NotNil(t, got[1].AgreementAcceptedAt)
}

func TestList_QueryErr(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectQuery(`FROM hr\.candidates`).WillReturnError(errors.New("db err"))

	_, err := repo.List(context.Background(), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to select candidates")
}

func TestBindChat(t *testing.T) {
	q := `(?s)UPDATE hr\.candidates SET telegram_chat_id = \$2.*WHERE candidate_uuid = \$1 AND \(telegram_chat_id IS NULL OR telegram_chat_id = \$2\)`

	t.Run("bound", func(t *testing.T) {
		repo, mock, _ := newRepoWithMock(t)
		mock.ExpectExec(q).WithArgs("c1", int64(7)).WillReturnResult(sqlmock.NewResult(0, 1))
		require.NoError(t, repo.BindChat(context.Background(), "c1", 7))
	})

	t.Run("bound to another chat", func(t *testing.T) {
		repo, mock, _ := newRepoWithMock(t)
		mock.ExpectExec(q).WithArgs("c1", int64(7)).WillReturnResult(sqlmock.NewResult(0, 0))
		require.ErrorIs(t, repo.BindChat(context.Background(), "c1", 7), common.ErrAlreadyBound)
	})

	t.Run("chat used by another candidate", func(t *testing.T) {
		repo, mock, _ := newRepoWithMock(t)
		mock.ExpectExec(q).WithArgs("c1", int64(7)).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "candidates_telegram_chat_id_key"})
		require.ErrorIs(t, repo.BindChat(context.Background(), "c1", 7), common.ErrAlreadyBound)
	})
}

func TestUpdateStatus(t *testing.T) {
	q := `(?s)UPDATE hr\.candidates SET status_id = \$3.*WHERE candidate_uuid = \$1 AND status_id = \$2`

	t.Run("applied", func(t *testing.T) {
		repo, mock, _ := newRepoWithMock(t)
		mock.ExpectExec(q).WithArgs("c1", 2, 3).WillReturnResult(sqlmock.NewResult(0, 1))
		require.NoError(t, repo.UpdateStatus(context.Background(), "c1", models.CandidateInvited, models.CandidateRegistered))
	})

	t.Run("lost race", func(t *testing.T) {
		repo, mock, _ := newRepoWithMock(t)
		mock.ExpectExec(q).WithArgs("c1", 5, 7).WillReturnResult(sqlmock.NewResult(0, 0))
		err := repo.UpdateStatus(context.Background(), "c1", models.CandidateUnderReview, models.CandidateAccepted)
		require.ErrorIs(t, err, common.ErrIllegalTransition)
	})

	t.Run("rows affected error", func(t *testing.T) {
		repo, mock, _ := newRepoWithMock(t)
		mock.ExpectExec(q).WillReturnResult(sqlmock.NewErrorResult(errors.New("rows-err")))
		err := repo.UpdateStatus(context.Background(), "c1", models.CandidateInvited, models.CandidateRegistered)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rows affected error")
	})
}

func TestAcceptAgreement(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)
	at := time.Now()

	mock.ExpectExec(`(?s)SET agreement_accepted = true, agreement_accepted_at = COALESCE\(agreement_accepted_at, \$2\)`).
		WithArgs("c1", at).WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.AcceptAgreement(context.Background(), "c1", at))

	mock.ExpectExec(`agreement_accepted = true`).
		WithArgs("missing", at).WillReturnResult(sqlmock.NewResult(0, 0))
	require.ErrorIs(t, repo.AcceptAgreement(context.Background(), "missing", at), common.ErrNotFound)
}

func TestUpdateNotes(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectExec(`UPDATE hr\.candidates SET notes = \$2`).
		WithArgs("c1", "call back").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdateNotes(context.Background(), "c1", "call back"))
}

func TestArchive(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectExec(`(?s)INSERT INTO hr\.candidate_archive .*SELECT .*FROM hr\.candidates WHERE candidate_uuid = \$1.*ON CONFLICT \(candidate_uuid\) DO NOTHING`).
		WithArgs("c1").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Archive(context.Background(), "c1"))

	mock.ExpectExec(`INSERT INTO hr\.candidate_archive`).WithArgs("c2").WillReturnError(errors.New("boom"))
	require.Error(t, repo.Archive(context.Background(), "c2"))
}

func TestListArchive(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)
	now := time.Now()

	mock.ExpectQuery(`FROM hr\.candidate_archive ORDER BY archived_at DESC`).
		WillReturnRows(sqlmock.NewRows([]string{"candidate_uuid", "first_name", "last_name", "email", "status_id", "archived_at"}).
			AddRow("c1", "A", "B", "a@b", 7, now))

	got, err := repo.ListArchive(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, models.CandidateAccepted, got[0].Status)
}
