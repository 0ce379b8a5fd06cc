package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/visibility-cli/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

var runRowColumns = []string{
	"id", "account_id", "subscription_id", "domain", "status", "progress",
	"trigger_kind", "created_at", "started_at", "completed_at", "error",
}

func TestPostgresStore_GetRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`^get_run$`).
		WithArgs("nonexistent-run").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetRun(context.Background(), "nonexistent-run")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "get run")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`^get_run$`).
		WithArgs("run-1").
		WillReturnRows(mock.NewRows(runRowColumns).AddRow(
			"run-1", "acct-1", (*string)(nil), "acme-plumbing.com", model.RunStatusQuerying, 67,
			model.TriggerManual, created, &created, (*time.Time)(nil), (*string)(nil),
		))

	r, err := s.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusQuerying, r.Status)
	assert.Equal(t, 67, r.Progress)
	assert.Equal(t, model.TriggerManual, r.Trigger)
	assert.Nil(t, r.SubscriptionID)
	require.NotNil(t, r.StartedAt)
	assert.Nil(t, r.CompletedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateRun_InFlight(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	subID := "sub-1"

	mock.ExpectExec(`INSERT INTO runs`).
		WithArgs(pgxmock.AnyArg(), "acct-1", &subID, "acme.com", "pending", 0, "manual", pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "runs_one_in_flight"})

	_, err := s.CreateRun(context.Background(), model.NewRun{
		AccountID:      "acct-1",
		SubscriptionID: &subID,
		Domain:         "acme.com",
		Trigger:        model.TriggerManual,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRunInFlight))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateRun_OtherError(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO runs`).
		WithArgs(pgxmock.AnyArg(), "a", pgxmock.AnyArg(), "acme.com", "pending", 0, "automatic", pgxmock.AnyArg()).
		WillReturnError(errors.New("connection reset"))

	_, err := s.CreateRun(context.Background(), model.NewRun{AccountID: "a", Domain: "acme.com", Trigger: model.TriggerAutomatic})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrRunInFlight))
	assert.Contains(t, err.Error(), "postgres: insert run")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_TransitionRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE runs SET status = \$1, progress = GREATEST\(progress, \$2\)`).
		WithArgs("analyzing", model.ProgressAnalyzing, pgxmock.AnyArg(), "run-1", "crawling").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.TransitionRun(context.Background(), "run-1", model.RunStatusCrawling, model.RunStatusAnalyzing)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_TransitionRun_Conflict(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE runs SET status`).
		WithArgs("crawling", model.ProgressCrawling, pgxmock.AnyArg(), "run-1", "pending").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.TransitionRun(context.Background(), "run-1", model.RunStatusPending, model.RunStatusCrawling)
	assert.True(t, errors.Is(err, ErrStatusConflict))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_TransitionRun_RejectsTerminalTargets(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	assert.Error(t, s.TransitionRun(context.Background(), "run-1", model.RunStatusQuerying, model.RunStatusComplete))
	assert.Error(t, s.TransitionRun(context.Background(), "run-1", model.RunStatusQuerying, model.RunStatusFailed))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateRunProgress(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`^update_run_progress$`).
		WithArgs(72, "run-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, s.UpdateRunProgress(context.Background(), "run-1", 72))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FailRun_AlreadyTerminal(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE runs SET status = 'failed'`).
		WithArgs("boom", pgxmock.AnyArg(), "run-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.FailRun(context.Background(), "run-1", "boom")
	assert.True(t, errors.Is(err, ErrStatusConflict))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CompleteRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE runs SET status = 'complete', progress = 100`).
		WithArgs(pgxmock.AnyArg(), "run-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`INSERT INTO reports`).
		WithArgs("run-1", "tok", "acme.com", 40, 0,
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), 0, 0, "", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := s.CompleteRun(context.Background(), &model.Report{
		RunID:        "run-1",
		Token:        "tok",
		Domain:       "acme.com",
		OverallScore: 40,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CompleteRun_NotQuerying(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE runs SET status = 'complete'`).
		WithArgs(pgxmock.AnyArg(), "run-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	err := s.CompleteRun(context.Background(), &model.Report{RunID: "run-1", Token: "tok"})
	assert.True(t, errors.Is(err, ErrStatusConflict))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InsertPlatformResponses(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "_tmp_upsert_platform_responses"`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_platform_responses"}, platformResponseColumns).
		WillReturnResult(2)
	mock.ExpectExec(`ON CONFLICT \("run_id", "prompt_id", "platform"\) DO UPDATE`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	msg := "timeout"
	err := s.InsertPlatformResponses(context.Background(), []model.PlatformResponse{
		{RunID: "run-1", PromptID: "p1", Platform: "openai", Mentioned: true},
		{RunID: "run-1", PromptID: "p1", Platform: "gemini", ErrorMessage: &msg},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InsertPrompts_UsesCopy(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectCopyFrom(pgx.Identifier{"prompts"}, []string{"id", "run_id", "idx", "text", "category"}).
		WillReturnResult(2)

	prompts := []model.Prompt{
		{ID: "p1", RunID: "run-1", Index: 0, Text: "a", Category: model.CategoryLocal},
		{ID: "p2", RunID: "run-1", Index: 1, Text: "b", Category: model.CategoryProblem},
	}
	require.NoError(t, s.InsertPrompts(context.Background(), prompts))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InsertPrompts_RequiresID(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	err := s.InsertPrompts(context.Background(), []model.Prompt{{RunID: "run-1", Index: 3, Text: "a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prompt 3 has no id")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ActiveRunForSubscription_None(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`WHERE subscription_id = \$1 AND status NOT IN`).
		WithArgs("sub-1").
		WillReturnError(pgx.ErrNoRows)

	r, err := s.ActiveRunForSubscription(context.Background(), "sub-1")
	require.NoError(t, err)
	assert.Nil(t, r)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LatestManualRunAt(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT MAX\(created_at\) FROM runs WHERE subscription_id = \$1 AND trigger_kind = \$2`).
		WithArgs("sub-1", "manual").
		WillReturnRows(mock.NewRows([]string{"max"}).AddRow(&at))

	got, err := s.LatestManualRunAt(context.Background(), "sub-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, at.Equal(*got))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetReportByToken_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`^get_report_by_token$`).
		WithArgs("nope").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetReportByToken(context.Background(), "nope")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPreparedStatements_NamedQueriesAreRegistered(t *testing.T) {
	for _, name := range []string{stmtGetRun, stmtUpdateRunProgress, stmtGetReportByToken} {
		assert.NotEmpty(t, preparedStatements[name], name)
	}
	assert.Contains(t, preparedStatements[stmtUpdateRunProgress], "GREATEST(progress, $1)")
	assert.Contains(t, preparedStatements[stmtUpdateRunProgress], "status = 'querying'")
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE UNIQUE INDEX IF NOT EXISTS runs_one_in_flight`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
