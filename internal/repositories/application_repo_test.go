package repositories

import (
	"context"
	"regexp"
	"testing"
	"time"

	"talentdesk/internal/common"
	"talentdesk/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type ApplicationRepoTestSuite struct {
	suite.Suite
	mock    pgxmock.PgxPoolIface
	repo    ApplicationRepository
	jobID   uuid.UUID
	context context.Context
}

func (suite *ApplicationRepoTestSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	assert.NoError(suite.T(), err)
	suite.mock = mock

	suite.repo = NewApplicationRepo(mock)
	suite.jobID = uuid.New()
	suite.context = context.Background()
}

func (suite *ApplicationRepoTestSuite) TearDownTest() {
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
	suite.mock.Close()
}

func TestApplicationRepoTestSuite(t *testing.T) {
	suite.Run(t, new(ApplicationRepoTestSuite))
}

func (suite *ApplicationRepoTestSuite) newApplication(ref models.ApplicantRef) *models.Application {
	return &models.Application{
		ID:        uuid.New(),
		JobID:     suite.jobID,
		Applicant: ref,
		Status:    models.StatusNew,
		Snapshot:  models.CandidateSnapshot{FirstName: "Gia", Email: "g@x.com"},
	}
}

func (suite *ApplicationRepoTestSuite) TestCreate_Registered() {
	candidateID := uuid.New()
	app := suite.newApplication(models.RegisteredRef{IdentityID: candidateID})
	now := time.Now()

	suite.mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO applications`)).
		WithArgs(app.ID, suite.jobID, &candidateID, (*uuid.UUID)(nil), false, "g@x.com", models.StatusNew, pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	assert.NoError(suite.T(), suite.repo.Create(suite.context, app))
	assert.Equal(suite.T(), now, app.CreatedAt)
}

func (suite *ApplicationRepoTestSuite) TestCreate_GuestConflict() {
	guestID := uuid.New()
	app := suite.newApplication(models.GuestRef{GuestApplicationID: guestID})

	suite.mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO applications`)).
		WithArgs(app.ID, suite.jobID, (*uuid.UUID)(nil), &guestID, true, "g@x.com", models.StatusNew, pgxmock.AnyArg()).
		WillReturnError(pgx.ErrNoRows)

	err := suite.repo.Create(suite.context, app)
	assert.ErrorIs(suite.T(), err, common.ErrDuplicateApplication)
}

func (suite *ApplicationRepoTestSuite) TestCreate_UniqueViolation() {
	app := suite.newApplication(models.RegisteredRef{IdentityID: uuid.New()})

	suite.mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO applications`)).
		WithArgs(anyArgs(8)...).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := suite.repo.Create(suite.context, app)
	assert.ErrorIs(suite.T(), err, common.ErrDuplicateApplication)
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
}

func (suite *ApplicationRepoTestSuite) TestGetByID_RejectsBrokenApplicantReference() {
	id := uuid.New()
	candidateID, guestID := uuid.New(), uuid.New()
	now := time.Now()

	suite.mock.ExpectQuery(regexp.QuoteMeta(`WHERE a.id = $1`)).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"id", "job_id", "tenant_id", "candidate_id", "guest_application_id",
			"status", "candidate_snapshot", "created_at", "updated_at"}).
			AddRow(id, suite.jobID, uuid.New(), &candidateID, &guestID, models.StatusNew, []byte(`{}`), now, now))

	_, err := suite.repo.GetByID(suite.context, id)
	assert.ErrorIs(suite.T(), err, common.ErrIntegrity)
}

func (suite *ApplicationRepoTestSuite) TestGetByID_Guest() {
	id := uuid.New()
	guestID := uuid.New()
	tenantID := uuid.New()
	now := time.Now()

	suite.mock.ExpectQuery(regexp.QuoteMeta(`WHERE a.id = $1`)).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"id", "job_id", "tenant_id", "candidate_id", "guest_application_id",
			"status", "candidate_snapshot", "created_at", "updated_at"}).
			AddRow(id, suite.jobID, tenantID, (*uuid.UUID)(nil), &guestID, models.StatusInterview,
				[]byte(`{"first_name":"Gia","email":"g@x.com"}`), now, now))

	app, err := suite.repo.GetByID(suite.context, id)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.GuestRef{GuestApplicationID: guestID}, app.Applicant)
	assert.Equal(suite.T(), tenantID, app.TenantID)
	assert.Equal(suite.T(), "g@x.com", app.Snapshot.Email)
	assert.True(suite.T(), app.IsGuestApplication())
}

func (suite *ApplicationRepoTestSuite) TestRelinkGuest() {
	guestID, candidateID := uuid.New(), uuid.New()

	suite.mock.ExpectExec(regexp.QuoteMeta(`SET candidate_id = $2, guest_application_id = NULL, is_guest_application = FALSE`)).
		WithArgs(guestID, candidateID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	n, err := suite.repo.RelinkGuest(suite.context, guestID, candidateID)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(1), n)
}

func (suite *ApplicationRepoTestSuite) TestGetNoteForUpdate_MissingIndex() {
	appID := uuid.New()

	suite.mock.ExpectQuery(regexp.QuoteMeta(`WHERE application_id = $1 AND position = $2`)).
		WithArgs(appID, 4).
		WillReturnError(pgx.ErrNoRows)

	_, err := suite.repo.GetNoteForUpdate(suite.context, appID, 4)
	assert.ErrorIs(suite.T(), err, common.ErrNotFound)
}

func (suite *ApplicationRepoTestSuite) TestListNotes_AttachesHistory() {
	appID := uuid.New()
	noteID := uuid.New()
	author := uuid.New()
	editor := uuid.New()
	now := time.Now()

	suite.mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY position ASC`)).
		WithArgs(appID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "application_id", "position", "text", "author_id",
			"created_at", "edited_by", "edited_at"}).
			AddRow(noteID, appID, 0, "strong candidate", author, now, &editor, &now))
	suite.mock.ExpectQuery(regexp.QuoteMeta(`FROM application_note_edits e`)).
		WithArgs(appID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "note_id", "previous_text", "previous_by", "previous_at",
			"edited_by", "edited_at"}).
			AddRow(uuid.New(), noteID, "good candidate", author, now, editor, now))

	notes, err := suite.repo.ListNotes(suite.context, appID)
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), notes, 1)
	assert.Len(suite.T(), notes[0].History, 1)
	assert.Equal(suite.T(), "good candidate", notes[0].History[0].PreviousText)
}
