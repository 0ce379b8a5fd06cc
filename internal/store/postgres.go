package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/visibility-cli/internal/db"
	"github.com/sells-group/visibility-cli/internal/model"
)

// inFlightIndex is the partial unique index allowing one non-terminal run
// per subscription.
const inFlightIndex = "runs_one_in_flight"

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

const runColumns = `id, account_id, subscription_id, domain, status, progress, trigger_kind, created_at, started_at, completed_at, error`

const reportColumns = `run_id, token, domain, overall_score, prominence_score, platform_scores, competitors, all_competitors, mention_count, query_count, summary, created_at`

// Names of the hot-path statements prepared on each new connection and
// executed by name. Progress updates and status polls fire many times per run.
const (
	stmtGetRun            = "get_run"
	stmtUpdateRunProgress = "update_run_progress"
	stmtGetReportByToken  = "get_report_by_token"
)

var preparedStatements = map[string]string{
	stmtGetRun:            `SELECT ` + runColumns + ` FROM runs WHERE id = $1`,
	stmtUpdateRunProgress: `UPDATE runs SET progress = GREATEST(progress, $1) WHERE id = $2 AND status = 'querying'`,
	stmtGetReportByToken:  `SELECT ` + reportColumns + ` FROM reports WHERE token = $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	cfg := db.PoolConfig{Prepared: preparedStatements}
	if poolCfg != nil {
		cfg.MaxConns = poolCfg.MaxConns
		cfg.MinConns = poolCfg.MinConns
	}
	pool, err := db.NewPool(ctx, connString, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying database pool.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS accounts (
	id         TEXT PRIMARY KEY,
	email      TEXT NOT NULL UNIQUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS subscriptions (
	id         TEXT PRIMARY KEY,
	account_id TEXT NOT NULL REFERENCES accounts(id),
	domain     TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'active',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS subscription_competitors (
	subscription_id TEXT NOT NULL REFERENCES subscriptions(id),
	name            TEXT NOT NULL,
	PRIMARY KEY (subscription_id, name)
);

CREATE TABLE IF NOT EXISTS runs (
	id              TEXT PRIMARY KEY,
	account_id      TEXT NOT NULL REFERENCES accounts(id),
	subscription_id TEXT REFERENCES subscriptions(id),
	domain          TEXT NOT NULL,
	status          TEXT NOT NULL DEFAULT 'pending',
	progress        INTEGER NOT NULL DEFAULT 0,
	trigger_kind    TEXT NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	started_at      TIMESTAMPTZ,
	completed_at    TIMESTAMPTZ,
	error           TEXT
);

CREATE UNIQUE INDEX IF NOT EXISTS runs_one_in_flight ON runs(subscription_id)
	WHERE subscription_id IS NOT NULL AND status NOT IN ('complete', 'failed');
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_account ON runs(account_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_runs_subscription_trigger ON runs(subscription_id, trigger_kind, created_at DESC);

CREATE TABLE IF NOT EXISTS site_analyses (
	run_id          TEXT PRIMARY KEY REFERENCES runs(id),
	business_type   TEXT NOT NULL DEFAULT '',
	business_name   TEXT,
	services        JSONB NOT NULL DEFAULT '[]',
	location        TEXT NOT NULL DEFAULT '',
	target_audience TEXT NOT NULL DEFAULT '',
	key_phrases     JSONB NOT NULL DEFAULT '[]',
	competitors     JSONB NOT NULL DEFAULT '[]',
	page_count      INTEGER NOT NULL DEFAULT 0,
	low_confidence  BOOLEAN NOT NULL DEFAULT false,
	content_excerpt TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS prompts (
	id       TEXT PRIMARY KEY,
	run_id   TEXT NOT NULL REFERENCES runs(id),
	idx      INTEGER NOT NULL,
	text     TEXT NOT NULL,
	category TEXT NOT NULL,
	UNIQUE (run_id, idx)
);

CREATE TABLE IF NOT EXISTS platform_responses (
	run_id        TEXT NOT NULL REFERENCES runs(id),
	prompt_id     TEXT NOT NULL REFERENCES prompts(id),
	platform      TEXT NOT NULL,
	prompt_idx    INTEGER NOT NULL,
	response_text TEXT,
	mentioned     BOOLEAN NOT NULL DEFAULT false,
	position      INTEGER,
	competitors   JSONB NOT NULL DEFAULT '[]',
	latency_ms    BIGINT NOT NULL DEFAULT 0,
	error_message TEXT,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (run_id, prompt_id, platform)
);

CREATE TABLE IF NOT EXISTS reports (
	run_id           TEXT PRIMARY KEY REFERENCES runs(id),
	token            TEXT NOT NULL UNIQUE,
	domain           TEXT NOT NULL,
	overall_score    INTEGER NOT NULL,
	prominence_score INTEGER NOT NULL,
	platform_scores  JSONB NOT NULL,
	competitors      JSONB NOT NULL,
	all_competitors  JSONB NOT NULL,
	mention_count    INTEGER NOT NULL,
	query_count      INTEGER NOT NULL,
	summary          TEXT NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_reports_created_at ON reports(created_at);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// --- Accounts and subscriptions ---

func (s *PostgresStore) GetOrCreateAccount(ctx context.Context, email string) (*model.Account, error) {
	var a model.Account
	err := s.pool.QueryRow(ctx,
		`INSERT INTO accounts (id, email, created_at) VALUES ($1, $2, $3)
		 ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
		 RETURNING id, email, created_at`,
		uuid.New().String(), email, time.Now().UTC(),
	).Scan(&a.ID, &a.Email, &a.CreatedAt)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get or create account %s", email)
	}
	return &a, nil
}

func (s *PostgresStore) GetAccount(ctx context.Context, accountID string) (*model.Account, error) {
	var a model.Account
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, created_at FROM accounts WHERE id = $1`,
		accountID,
	).Scan(&a.ID, &a.Email, &a.CreatedAt)
	if err != nil {
		return nil, pgNotFound(err, "postgres: get account %s", accountID)
	}
	return &a, nil
}

func (s *PostgresStore) CreateSubscription(ctx context.Context, sub model.Subscription) (*model.Subscription, error) {
	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	if sub.Status == "" {
		sub.Status = model.SubscriptionActive
	}
	sub.CreatedAt = time.Now().UTC()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: begin create subscription")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx,
		`INSERT INTO subscriptions (id, account_id, domain, status, created_at) VALUES ($1, $2, $3, $4, $5)`,
		sub.ID, sub.AccountID, sub.Domain, string(sub.Status), sub.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert subscription")
	}

	if len(sub.Competitors) > 0 {
		rows := make([][]any, len(sub.Competitors))
		for i, name := range sub.Competitors {
			rows[i] = []any{sub.ID, name}
		}
		if _, err := db.CopyFrom(ctx, tx, "subscription_competitors", []string{"subscription_id", "name"}, rows); err != nil {
			return nil, eris.Wrap(err, "postgres: insert subscription competitors")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "postgres: commit create subscription")
	}
	return &sub, nil
}

func (s *PostgresStore) GetSubscription(ctx context.Context, subscriptionID string) (*model.Subscription, error) {
	var sub model.Subscription
	err := s.pool.QueryRow(ctx,
		`SELECT id, account_id, domain, status, created_at FROM subscriptions WHERE id = $1`,
		subscriptionID,
	).Scan(&sub.ID, &sub.AccountID, &sub.Domain, &sub.Status, &sub.CreatedAt)
	if err != nil {
		return nil, pgNotFound(err, "postgres: get subscription %s", subscriptionID)
	}

	byID, err := s.competitorsFor(ctx, []string{sub.ID})
	if err != nil {
		return nil, err
	}
	sub.Competitors = byID[sub.ID]
	return &sub, nil
}

func (s *PostgresStore) ListSubscriptions(ctx context.Context, filter SubscriptionFilter) ([]model.Subscription, error) {
	query := `SELECT id, account_id, domain, status, created_at FROM subscriptions WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.AccountID != "" {
		query += fmt.Sprintf(` AND account_id = $%d`, argIdx)
		args = append(args, filter.AccountID)
		argIdx++
	}
	query += fmt.Sprintf(` ORDER BY created_at ASC LIMIT $%d`, argIdx)
	args = append(args, defaultLimit(filter.Limit))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list subscriptions")
	}
	defer rows.Close()

	var subs []model.Subscription
	var ids []string
	for rows.Next() {
		var sub model.Subscription
		if err := rows.Scan(&sub.ID, &sub.AccountID, &sub.Domain, &sub.Status, &sub.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan subscription")
		}
		subs = append(subs, sub)
		ids = append(ids, sub.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: list subscriptions iterate")
	}
	if len(ids) == 0 {
		return subs, nil
	}

	byID, err := s.competitorsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range subs {
		subs[i].Competitors = byID[subs[i].ID]
	}
	return subs, nil
}

func (s *PostgresStore) competitorsFor(ctx context.Context, ids []string) (map[string][]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT subscription_id, name FROM subscription_competitors WHERE subscription_id = ANY($1) ORDER BY subscription_id, name`,
		ids,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list subscription competitors")
	}
	defer rows.Close()

	out := make(map[string][]string, len(ids))
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, eris.Wrap(err, "postgres: scan subscription competitor")
		}
		out[id] = append(out[id], name)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list subscription competitors iterate")
}

func (s *PostgresStore) UpdateSubscriptionStatus(ctx context.Context, subscriptionID string, status model.SubscriptionStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE subscriptions SET status = $1 WHERE id = $2`,
		string(status), subscriptionID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update subscription status %s", subscriptionID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: subscription %s", subscriptionID)
	}
	return nil
}

// --- Runs ---

func (s *PostgresStore) CreateRun(ctx context.Context, nr model.NewRun) (*model.Run, error) {
	r := &model.Run{
		ID:             uuid.New().String(),
		AccountID:      nr.AccountID,
		SubscriptionID: nr.SubscriptionID,
		Domain:         nr.Domain,
		Status:         model.RunStatusPending,
		Progress:       model.ProgressPending,
		Trigger:        nr.Trigger,
		CreatedAt:      time.Now().UTC(),
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, account_id, subscription_id, domain, status, progress, trigger_kind, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		r.ID, r.AccountID, r.SubscriptionID, r.Domain, string(r.Status), r.Progress, string(r.Trigger), r.CreatedAt,
	)
	if err != nil {
		if db.IsUniqueViolation(err, inFlightIndex) {
			return nil, eris.Wrapf(ErrRunInFlight, "postgres: insert run for subscription %s", deref(nr.SubscriptionID))
		}
		return nil, eris.Wrap(err, "postgres: insert run")
	}
	return r, nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	r, err := scanPGRun(s.pool.QueryRow(ctx, stmtGetRun, runID))
	if err != nil {
		return nil, pgNotFound(err, "postgres: get run %s", runID)
	}
	return r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE true`
	args := []any{}
	argIdx := 1

	add := func(clause string, v any) {
		query += fmt.Sprintf(clause, argIdx)
		args = append(args, v)
		argIdx++
	}
	if filter.Status != "" {
		add(` AND status = $%d`, string(filter.Status))
	}
	if filter.AccountID != "" {
		add(` AND account_id = $%d`, filter.AccountID)
	}
	if filter.SubscriptionID != "" {
		add(` AND subscription_id = $%d`, filter.SubscriptionID)
	}
	if filter.Domain != "" {
		add(` AND domain = $%d`, filter.Domain)
	}
	if filter.Trigger != "" {
		add(` AND trigger_kind = $%d`, string(filter.Trigger))
	}
	query += ` ORDER BY created_at DESC`
	add(` LIMIT $%d`, defaultLimit(filter.Limit))
	if filter.Offset > 0 {
		add(` OFFSET $%d`, filter.Offset)
	}

	return s.queryRuns(ctx, "list runs", query, args...)
}

func (s *PostgresStore) queryRuns(ctx context.Context, op, query string, args ...any) ([]model.Run, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: %s", op)
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanPGRun(rows)
		if err != nil {
			return nil, eris.Wrapf(err, "postgres: %s scan", op)
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrapf(rows.Err(), "postgres: %s iterate", op)
}

func (s *PostgresStore) ActiveRunForSubscription(ctx context.Context, subscriptionID string) (*model.Run, error) {
	r, err := scanPGRun(s.pool.QueryRow(ctx,
		`SELECT `+runColumns+` FROM runs
		 WHERE subscription_id = $1 AND status NOT IN ('complete', 'failed')
		 ORDER BY created_at DESC LIMIT 1`,
		subscriptionID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: active run for subscription %s", subscriptionID)
	}
	return r, nil
}

func (s *PostgresStore) LatestManualRunAt(ctx context.Context, subscriptionID string) (*time.Time, error) {
	var at *time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT MAX(created_at) FROM runs WHERE subscription_id = $1 AND trigger_kind = $2`,
		subscriptionID, string(model.TriggerManual),
	).Scan(&at)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: latest manual run for subscription %s", subscriptionID)
	}
	return at, nil
}

func (s *PostgresStore) TransitionRun(ctx context.Context, runID string, from, to model.RunStatus) error {
	if !from.CanTransition(to) || to == model.RunStatusFailed || to == model.RunStatusComplete {
		return eris.Errorf("postgres: invalid transition %s -> %s", from, to)
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, progress = GREATEST(progress, $2), started_at = COALESCE(started_at, $3)
		 WHERE id = $4 AND status = $5`,
		string(to), to.EntryProgress(), time.Now().UTC(), runID, string(from),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: transition run %s to %s", runID, to)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrStatusConflict, "postgres: run %s is not %s", runID, from)
	}
	return nil
}

func (s *PostgresStore) UpdateRunProgress(ctx context.Context, runID string, progress int) error {
	_, err := s.pool.Exec(ctx, stmtUpdateRunProgress, progress, runID)
	return eris.Wrapf(err, "postgres: update run progress %s", runID)
}

func (s *PostgresStore) FailRun(ctx context.Context, runID string, message string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = 'failed', error = $1, completed_at = $2
		 WHERE id = $3 AND status NOT IN ('complete', 'failed')`,
		message, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrStatusConflict, "postgres: run %s is already terminal", runID)
	}
	return nil
}

func (s *PostgresStore) ListStaleRuns(ctx context.Context, startedBefore time.Time) ([]model.Run, error) {
	return s.queryRuns(ctx, "list stale runs",
		`SELECT `+runColumns+` FROM runs
		 WHERE status NOT IN ('complete', 'failed') AND COALESCE(started_at, created_at) < $1
		 ORDER BY created_at ASC`,
		startedBefore,
	)
}

func (s *PostgresStore) RunStats(ctx context.Context, since time.Time) (*RunStats, error) {
	stats := &RunStats{ByStatus: make(map[string]int)}

	rows, err := s.pool.Query(ctx,
		`SELECT status, COUNT(*) FROM runs WHERE created_at >= $1 GROUP BY status`,
		since,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: run stats")
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run stats")
		}
		stats.ByStatus[status] = n
		stats.Total += n
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: run stats iterate")
	}
	stats.Complete = stats.ByStatus[string(model.RunStatusComplete)]
	stats.Failed = stats.ByStatus[string(model.RunStatusFailed)]

	err = s.pool.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(AVG(overall_score), 0)::float8 FROM reports WHERE created_at >= $1`,
		since,
	).Scan(&stats.ReportsTotal, &stats.AvgScore)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: report stats")
	}
	return stats, nil
}

// --- Stage outputs ---

func (s *PostgresStore) SaveSiteAnalysis(ctx context.Context, a *model.SiteAnalysis) error {
	services, keyPhrases, competitors, err := marshalAnalysisLists(a)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal site analysis")
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO site_analyses
		 (run_id, business_type, business_name, services, location, target_audience, key_phrases, competitors, page_count, low_confidence, content_excerpt, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		a.RunID, a.BusinessType, a.BusinessName, services, a.Location, a.TargetAudience,
		keyPhrases, competitors, a.PageCount, a.LowConfidence, a.ContentExcerpt, a.CreatedAt,
	)
	return eris.Wrapf(err, "postgres: insert site analysis %s", a.RunID)
}

func (s *PostgresStore) GetSiteAnalysis(ctx context.Context, runID string) (*model.SiteAnalysis, error) {
	var a model.SiteAnalysis
	var services, keyPhrases, competitors []byte
	err := s.pool.QueryRow(ctx,
		`SELECT run_id, business_type, business_name, services, location, target_audience, key_phrases, competitors, page_count, low_confidence, content_excerpt, created_at
		 FROM site_analyses WHERE run_id = $1`,
		runID,
	).Scan(&a.RunID, &a.BusinessType, &a.BusinessName, &services, &a.Location, &a.TargetAudience,
		&keyPhrases, &competitors, &a.PageCount, &a.LowConfidence, &a.ContentExcerpt, &a.CreatedAt)
	if err != nil {
		return nil, pgNotFound(err, "postgres: get site analysis %s", runID)
	}
	if err := unmarshalAnalysisLists(&a, services, keyPhrases, competitors); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal site analysis")
	}
	return &a, nil
}

func (s *PostgresStore) InsertPrompts(ctx context.Context, prompts []model.Prompt) error {
	rows := make([][]any, len(prompts))
	for i, p := range prompts {
		if p.ID == "" {
			return eris.Errorf("postgres: prompt %d has no id", p.Index)
		}
		rows[i] = []any{p.ID, p.RunID, p.Index, p.Text, string(p.Category)}
	}
	_, err := db.CopyFrom(ctx, s.pool, "prompts", []string{"id", "run_id", "idx", "text", "category"}, rows)
	return eris.Wrap(err, "postgres: insert prompts")
}

func (s *PostgresStore) ListPrompts(ctx context.Context, runID string) ([]model.Prompt, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, run_id, idx, text, category FROM prompts WHERE run_id = $1 ORDER BY idx`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list prompts")
	}
	defer rows.Close()

	var prompts []model.Prompt
	for rows.Next() {
		var p model.Prompt
		if err := rows.Scan(&p.ID, &p.RunID, &p.Index, &p.Text, &p.Category); err != nil {
			return nil, eris.Wrap(err, "postgres: scan prompt")
		}
		prompts = append(prompts, p)
	}
	return prompts, eris.Wrap(rows.Err(), "postgres: list prompts iterate")
}

var platformResponseColumns = []string{
	"run_id", "prompt_id", "platform", "prompt_idx", "response_text", "mentioned",
	"position", "competitors", "latency_ms", "error_message", "created_at",
}

// InsertPlatformResponses writes the response set with a merge keyed on
// (run_id, prompt_id, platform), so a replayed batch leaves one row per pair.
func (s *PostgresStore) InsertPlatformResponses(ctx context.Context, responses []model.PlatformResponse) error {
	rows := make([][]any, len(responses))
	now := time.Now().UTC()
	for i, r := range responses {
		competitors, err := json.Marshal(nonNilCounts(r.Competitors))
		if err != nil {
			return eris.Wrap(err, "postgres: marshal response competitors")
		}
		createdAt := r.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		rows[i] = []any{
			r.RunID, r.PromptID, r.Platform, r.PromptIndex, r.ResponseText, r.Mentioned,
			r.Position, competitors, r.LatencyMS, r.ErrorMessage, createdAt,
		}
	}

	_, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "platform_responses",
		Columns:      platformResponseColumns,
		ConflictKeys: []string{"run_id", "prompt_id", "platform"},
	}, rows)
	return eris.Wrap(err, "postgres: insert platform responses")
}

func (s *PostgresStore) ListPlatformResponses(ctx context.Context, runID string) ([]model.PlatformResponse, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+strings.Join(platformResponseColumns, ", ")+`
		 FROM platform_responses WHERE run_id = $1 ORDER BY prompt_idx, platform`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list platform responses")
	}
	defer rows.Close()

	var out []model.PlatformResponse
	for rows.Next() {
		var r model.PlatformResponse
		var competitors []byte
		if err := rows.Scan(&r.RunID, &r.PromptID, &r.Platform, &r.PromptIndex, &r.ResponseText, &r.Mentioned,
			&r.Position, &competitors, &r.LatencyMS, &r.ErrorMessage, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan platform response")
		}
		if err := json.Unmarshal(competitors, &r.Competitors); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal response competitors")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list platform responses iterate")
}

// --- Reports ---

// CompleteRun inserts the report and marks the run complete in one
// transaction. The run must be in the querying status.
func (s *PostgresStore) CompleteRun(ctx context.Context, rep *model.Report) error {
	platformScores, competitors, allCompetitors, err := marshalReportLists(rep)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal report")
	}
	now := time.Now().UTC()
	if rep.CreatedAt.IsZero() {
		rep.CreatedAt = now
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin complete run")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tag, err := tx.Exec(ctx,
		`UPDATE runs SET status = 'complete', progress = 100, completed_at = $1
		 WHERE id = $2 AND status = 'querying'`,
		now, rep.RunID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", rep.RunID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrStatusConflict, "postgres: run %s is not querying", rep.RunID)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO reports (`+reportColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		rep.RunID, rep.Token, rep.Domain, rep.OverallScore, rep.ProminenceScore,
		platformScores, competitors, allCompetitors, rep.MentionCount, rep.QueryCount,
		rep.Summary, rep.CreatedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: insert report %s", rep.RunID)
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit complete run")
}

func (s *PostgresStore) GetReport(ctx context.Context, runID string) (*model.Report, error) {
	rep, err := scanPGReport(s.pool.QueryRow(ctx, `SELECT `+reportColumns+` FROM reports WHERE run_id = $1`, runID))
	if err != nil {
		return nil, pgNotFound(err, "postgres: get report %s", runID)
	}
	return rep, nil
}

func (s *PostgresStore) GetReportByToken(ctx context.Context, token string) (*model.Report, error) {
	rep, err := scanPGReport(s.pool.QueryRow(ctx, stmtGetReportByToken, token))
	if err != nil {
		return nil, pgNotFound(err, "postgres: get report by token")
	}
	return rep, nil
}

// helpers

func scanPGRun(row scannable) (*model.Run, error) {
	var r model.Run
	err := row.Scan(&r.ID, &r.AccountID, &r.SubscriptionID, &r.Domain, &r.Status, &r.Progress,
		&r.Trigger, &r.CreatedAt, &r.StartedAt, &r.CompletedAt, &r.Error)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func scanPGReport(row scannable) (*model.Report, error) {
	var rep model.Report
	var platformScores, competitors, allCompetitors []byte
	err := row.Scan(&rep.RunID, &rep.Token, &rep.Domain, &rep.OverallScore, &rep.ProminenceScore,
		&platformScores, &competitors, &allCompetitors, &rep.MentionCount, &rep.QueryCount,
		&rep.Summary, &rep.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := unmarshalReportLists(&rep, platformScores, competitors, allCompetitors); err != nil {
		return nil, eris.Wrap(err, "unmarshal report")
	}
	return &rep, nil
}

// pgNotFound maps pgx.ErrNoRows to ErrNotFound and wraps anything else.
func pgNotFound(err error, format string, args ...any) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return eris.Wrapf(ErrNotFound, format, args...)
	}
	return eris.Wrapf(err, format, args...)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
