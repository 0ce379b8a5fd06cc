package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/visibility-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// Pragmas below are per-connection; a single connection keeps them in
	// force and serializes writers.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS accounts (
	id         TEXT PRIMARY KEY,
	email      TEXT NOT NULL UNIQUE,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS subscriptions (
	id         TEXT PRIMARY KEY,
	account_id TEXT NOT NULL REFERENCES accounts(id),
	domain     TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'active',
	created_at DATETIME NOT NULL
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
	created_at      DATETIME NOT NULL,
	started_at      DATETIME,
	completed_at    DATETIME,
	error           TEXT
);

CREATE UNIQUE INDEX IF NOT EXISTS runs_one_in_flight ON runs(subscription_id)
	WHERE subscription_id IS NOT NULL AND status NOT IN ('complete', 'failed');
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_subscription_trigger ON runs(subscription_id, trigger_kind, created_at);

CREATE TABLE IF NOT EXISTS site_analyses (
	run_id          TEXT PRIMARY KEY REFERENCES runs(id),
	business_type   TEXT NOT NULL DEFAULT '',
	business_name   TEXT,
	services        TEXT NOT NULL DEFAULT '[]',
	location        TEXT NOT NULL DEFAULT '',
	target_audience TEXT NOT NULL DEFAULT '',
	key_phrases     TEXT NOT NULL DEFAULT '[]',
	competitors     TEXT NOT NULL DEFAULT '[]',
	page_count      INTEGER NOT NULL DEFAULT 0,
	low_confidence  BOOLEAN NOT NULL DEFAULT 0,
	content_excerpt TEXT NOT NULL DEFAULT '',
	created_at      DATETIME NOT NULL
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
	mentioned     BOOLEAN NOT NULL DEFAULT 0,
	position      INTEGER,
	competitors   TEXT NOT NULL DEFAULT '[]',
	latency_ms    INTEGER NOT NULL DEFAULT 0,
	error_message TEXT,
	created_at    DATETIME NOT NULL,
	PRIMARY KEY (run_id, prompt_id, platform)
);

CREATE TABLE IF NOT EXISTS reports (
	run_id           TEXT PRIMARY KEY REFERENCES runs(id),
	token            TEXT NOT NULL UNIQUE,
	domain           TEXT NOT NULL,
	overall_score    INTEGER NOT NULL,
	prominence_score INTEGER NOT NULL,
	platform_scores  TEXT NOT NULL,
	competitors      TEXT NOT NULL,
	all_competitors  TEXT NOT NULL,
	mention_count    INTEGER NOT NULL,
	query_count      INTEGER NOT NULL,
	summary          TEXT NOT NULL,
	created_at       DATETIME NOT NULL
);
`

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Accounts and subscriptions ---

func (s *SQLiteStore) GetOrCreateAccount(ctx context.Context, email string) (*model.Account, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO accounts (id, email, created_at) VALUES (?, ?, ?)
		 ON CONFLICT (email) DO NOTHING`,
		uuid.New().String(), email, time.Now().UTC(),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert account %s", email)
	}

	var a model.Account
	err = s.db.QueryRowContext(ctx,
		`SELECT id, email, created_at FROM accounts WHERE email = ?`,
		email,
	).Scan(&a.ID, &a.Email, &a.CreatedAt)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get account %s", email)
	}
	return &a, nil
}

func (s *SQLiteStore) GetAccount(ctx context.Context, accountID string) (*model.Account, error) {
	var a model.Account
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, created_at FROM accounts WHERE id = ?`,
		accountID,
	).Scan(&a.ID, &a.Email, &a.CreatedAt)
	if err != nil {
		return nil, sqlNotFound(err, "sqlite: get account %s", accountID)
	}
	return &a, nil
}

func (s *SQLiteStore) CreateSubscription(ctx context.Context, sub model.Subscription) (*model.Subscription, error) {
	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	if sub.Status == "" {
		sub.Status = model.SubscriptionActive
	}
	sub.CreatedAt = time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin create subscription")
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx,
		`INSERT INTO subscriptions (id, account_id, domain, status, created_at) VALUES (?, ?, ?, ?, ?)`,
		sub.ID, sub.AccountID, sub.Domain, string(sub.Status), sub.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert subscription")
	}
	for _, name := range sub.Competitors {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO subscription_competitors (subscription_id, name) VALUES (?, ?)`,
			sub.ID, name,
		); err != nil {
			return nil, eris.Wrap(err, "sqlite: insert subscription competitor")
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit create subscription")
	}
	return &sub, nil
}

func (s *SQLiteStore) GetSubscription(ctx context.Context, subscriptionID string) (*model.Subscription, error) {
	var sub model.Subscription
	err := s.db.QueryRowContext(ctx,
		`SELECT id, account_id, domain, status, created_at FROM subscriptions WHERE id = ?`,
		subscriptionID,
	).Scan(&sub.ID, &sub.AccountID, &sub.Domain, &sub.Status, &sub.CreatedAt)
	if err != nil {
		return nil, sqlNotFound(err, "sqlite: get subscription %s", subscriptionID)
	}
	if sub.Competitors, err = s.competitorsFor(ctx, sub.ID); err != nil {
		return nil, err
	}
	return &sub, nil
}

func (s *SQLiteStore) ListSubscriptions(ctx context.Context, filter SubscriptionFilter) ([]model.Subscription, error) {
	query := `SELECT id, account_id, domain, status, created_at FROM subscriptions WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.AccountID != "" {
		query += ` AND account_id = ?`
		args = append(args, filter.AccountID)
	}
	query += ` ORDER BY created_at ASC LIMIT ?`
	args = append(args, defaultLimit(filter.Limit))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list subscriptions")
	}
	var subs []model.Subscription
	for rows.Next() {
		var sub model.Subscription
		if err := rows.Scan(&sub.ID, &sub.AccountID, &sub.Domain, &sub.Status, &sub.CreatedAt); err != nil {
			rows.Close()
			return nil, eris.Wrap(err, "sqlite: scan subscription")
		}
		subs = append(subs, sub)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list subscriptions iterate")
	}

	for i := range subs {
		if subs[i].Competitors, err = s.competitorsFor(ctx, subs[i].ID); err != nil {
			return nil, err
		}
	}
	return subs, nil
}

func (s *SQLiteStore) competitorsFor(ctx context.Context, subscriptionID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM subscription_competitors WHERE subscription_id = ? ORDER BY name`,
		subscriptionID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list subscription competitors")
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan subscription competitor")
		}
		names = append(names, name)
	}
	return names, eris.Wrap(rows.Err(), "sqlite: list subscription competitors iterate")
}

func (s *SQLiteStore) UpdateSubscriptionStatus(ctx context.Context, subscriptionID string, status model.SubscriptionStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE subscriptions SET status = ? WHERE id = ?`,
		string(status), subscriptionID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update subscription status %s", subscriptionID)
	}
	return checkRowsAffected(res, ErrNotFound, "subscription", subscriptionID)
}

// --- Runs ---

func (s *SQLiteStore) CreateRun(ctx context.Context, nr model.NewRun) (*model.Run, error) {
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

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, account_id, subscription_id, domain, status, progress, trigger_kind, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.AccountID, r.SubscriptionID, r.Domain, string(r.Status), r.Progress, string(r.Trigger), r.CreatedAt,
	)
	if err != nil {
		if isSQLiteUnique(err, "runs.subscription_id") {
			return nil, eris.Wrapf(ErrRunInFlight, "sqlite: insert run for subscription %s", deref(nr.SubscriptionID))
		}
		return nil, eris.Wrap(err, "sqlite: insert run")
	}
	return r, nil
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	r, err := scanSQLiteRun(s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, runID))
	if err != nil {
		return nil, sqlNotFound(err, "sqlite: get run %s", runID)
	}
	return r, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.AccountID != "" {
		query += ` AND account_id = ?`
		args = append(args, filter.AccountID)
	}
	if filter.SubscriptionID != "" {
		query += ` AND subscription_id = ?`
		args = append(args, filter.SubscriptionID)
	}
	if filter.Domain != "" {
		query += ` AND domain = ?`
		args = append(args, filter.Domain)
	}
	if filter.Trigger != "" {
		query += ` AND trigger_kind = ?`
		args = append(args, string(filter.Trigger))
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, defaultLimit(filter.Limit))

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	return s.queryRuns(ctx, "list runs", query, args...)
}

func (s *SQLiteStore) queryRuns(ctx context.Context, op, query string, args ...any) ([]model.Run, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: %s", op)
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanSQLiteRun(rows)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: %s scan", op)
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrapf(rows.Err(), "sqlite: %s iterate", op)
}

func (s *SQLiteStore) ActiveRunForSubscription(ctx context.Context, subscriptionID string) (*model.Run, error) {
	r, err := scanSQLiteRun(s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM runs
		 WHERE subscription_id = ? AND status NOT IN ('complete', 'failed')
		 ORDER BY created_at DESC LIMIT 1`,
		subscriptionID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: active run for subscription %s", subscriptionID)
	}
	return r, nil
}

func (s *SQLiteStore) LatestManualRunAt(ctx context.Context, subscriptionID string) (*time.Time, error) {
	var at time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT created_at FROM runs WHERE subscription_id = ? AND trigger_kind = ?
		 ORDER BY created_at DESC LIMIT 1`,
		subscriptionID, string(model.TriggerManual),
	).Scan(&at)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: latest manual run for subscription %s", subscriptionID)
	}
	return &at, nil
}

func (s *SQLiteStore) TransitionRun(ctx context.Context, runID string, from, to model.RunStatus) error {
	if !from.CanTransition(to) || to == model.RunStatusFailed || to == model.RunStatusComplete {
		return eris.Errorf("sqlite: invalid transition %s -> %s", from, to)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, progress = MAX(progress, ?), started_at = COALESCE(started_at, ?)
		 WHERE id = ? AND status = ?`,
		string(to), to.EntryProgress(), time.Now().UTC(), runID, string(from),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: transition run %s to %s", runID, to)
	}
	return checkRowsAffected(res, ErrStatusConflict, "run", runID)
}

func (s *SQLiteStore) UpdateRunProgress(ctx context.Context, runID string, progress int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET progress = MAX(progress, ?) WHERE id = ? AND status = 'querying'`,
		progress, runID,
	)
	return eris.Wrapf(err, "sqlite: update run progress %s", runID)
}

func (s *SQLiteStore) FailRun(ctx context.Context, runID string, message string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = 'failed', error = ?, completed_at = ?
		 WHERE id = ? AND status NOT IN ('complete', 'failed')`,
		message, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail run %s", runID)
	}
	return checkRowsAffected(res, ErrStatusConflict, "run", runID)
}

func (s *SQLiteStore) ListStaleRuns(ctx context.Context, startedBefore time.Time) ([]model.Run, error) {
	return s.queryRuns(ctx, "list stale runs",
		`SELECT `+runColumns+` FROM runs
		 WHERE status NOT IN ('complete', 'failed') AND COALESCE(started_at, created_at) < ?
		 ORDER BY created_at ASC`,
		startedBefore.UTC(),
	)
}

func (s *SQLiteStore) RunStats(ctx context.Context, since time.Time) (*RunStats, error) {
	stats := &RunStats{ByStatus: make(map[string]int)}

	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM runs WHERE created_at >= ? GROUP BY status`,
		since.UTC(),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: run stats")
	}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			rows.Close()
			return nil, eris.Wrap(err, "sqlite: scan run stats")
		}
		stats.ByStatus[status] = n
		stats.Total += n
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: run stats iterate")
	}
	stats.Complete = stats.ByStatus[string(model.RunStatusComplete)]
	stats.Failed = stats.ByStatus[string(model.RunStatusFailed)]

	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(AVG(overall_score), 0.0) FROM reports WHERE created_at >= ?`,
		since.UTC(),
	).Scan(&stats.ReportsTotal, &stats.AvgScore)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: report stats")
	}
	return stats, nil
}

// --- Stage outputs ---

func (s *SQLiteStore) SaveSiteAnalysis(ctx context.Context, a *model.SiteAnalysis) error {
	services, keyPhrases, competitors, err := marshalAnalysisLists(a)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal site analysis")
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO site_analyses
		 (run_id, business_type, business_name, services, location, target_audience, key_phrases, competitors, page_count, low_confidence, content_excerpt, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.RunID, a.BusinessType, a.BusinessName, string(services), a.Location, a.TargetAudience,
		string(keyPhrases), string(competitors), a.PageCount, a.LowConfidence, a.ContentExcerpt, a.CreatedAt,
	)
	return eris.Wrapf(err, "sqlite: insert site analysis %s", a.RunID)
}

func (s *SQLiteStore) GetSiteAnalysis(ctx context.Context, runID string) (*model.SiteAnalysis, error) {
	var a model.SiteAnalysis
	var services, keyPhrases, competitors string
	err := s.db.QueryRowContext(ctx,
		`SELECT run_id, business_type, business_name, services, location, target_audience, key_phrases, competitors, page_count, low_confidence, content_excerpt, created_at
		 FROM site_analyses WHERE run_id = ?`,
		runID,
	).Scan(&a.RunID, &a.BusinessType, &a.BusinessName, &services, &a.Location, &a.TargetAudience,
		&keyPhrases, &competitors, &a.PageCount, &a.LowConfidence, &a.ContentExcerpt, &a.CreatedAt)
	if err != nil {
		return nil, sqlNotFound(err, "sqlite: get site analysis %s", runID)
	}
	if err := unmarshalAnalysisLists(&a, []byte(services), []byte(keyPhrases), []byte(competitors)); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal site analysis")
	}
	return &a, nil
}

func (s *SQLiteStore) InsertPrompts(ctx context.Context, prompts []model.Prompt) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin insert prompts")
	}
	defer tx.Rollback() //nolint:errcheck

	for _, p := range prompts {
		if p.ID == "" {
			return eris.Errorf("sqlite: prompt %d has no id", p.Index)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO prompts (id, run_id, idx, text, category) VALUES (?, ?, ?, ?, ?)`,
			p.ID, p.RunID, p.Index, p.Text, string(p.Category),
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert prompt %d", p.Index)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit insert prompts")
}

func (s *SQLiteStore) ListPrompts(ctx context.Context, runID string) ([]model.Prompt, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, idx, text, category FROM prompts WHERE run_id = ? ORDER BY idx`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list prompts")
	}
	defer rows.Close()

	var prompts []model.Prompt
	for rows.Next() {
		var p model.Prompt
		if err := rows.Scan(&p.ID, &p.RunID, &p.Index, &p.Text, &p.Category); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan prompt")
		}
		prompts = append(prompts, p)
	}
	return prompts, eris.Wrap(rows.Err(), "sqlite: list prompts iterate")
}

// InsertPlatformResponses writes the response set in one transaction; a
// replayed row for the same (run, prompt, platform) replaces the earlier one.
func (s *SQLiteStore) InsertPlatformResponses(ctx context.Context, responses []model.PlatformResponse) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin insert platform responses")
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	for _, r := range responses {
		competitors, err := json.Marshal(nonNilCounts(r.Competitors))
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal response competitors")
		}
		createdAt := r.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO platform_responses
			 (`+strings.Join(platformResponseColumns, ", ")+`)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.RunID, r.PromptID, r.Platform, r.PromptIndex, r.ResponseText, r.Mentioned,
			r.Position, string(competitors), r.LatencyMS, r.ErrorMessage, createdAt,
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert platform response %s/%s", r.PromptID, r.Platform)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit insert platform responses")
}

func (s *SQLiteStore) ListPlatformResponses(ctx context.Context, runID string) ([]model.PlatformResponse, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+strings.Join(platformResponseColumns, ", ")+`
		 FROM platform_responses WHERE run_id = ? ORDER BY prompt_idx, platform`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list platform responses")
	}
	defer rows.Close()

	var out []model.PlatformResponse
	for rows.Next() {
		var r model.PlatformResponse
		var competitors string
		if err := rows.Scan(&r.RunID, &r.PromptID, &r.Platform, &r.PromptIndex, &r.ResponseText, &r.Mentioned,
			&r.Position, &competitors, &r.LatencyMS, &r.ErrorMessage, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan platform response")
		}
		if err := json.Unmarshal([]byte(competitors), &r.Competitors); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal response competitors")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list platform responses iterate")
}

// --- Reports ---

func (s *SQLiteStore) CompleteRun(ctx context.Context, rep *model.Report) error {
	platformScores, competitors, allCompetitors, err := marshalReportLists(rep)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal report")
	}
	now := time.Now().UTC()
	if rep.CreatedAt.IsZero() {
		rep.CreatedAt = now
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin complete run")
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx,
		`UPDATE runs SET status = 'complete', progress = 100, completed_at = ?
		 WHERE id = ? AND status = 'querying'`,
		now, rep.RunID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", rep.RunID)
	}
	if err := checkRowsAffected(res, ErrStatusConflict, "run", rep.RunID); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO reports (`+reportColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rep.RunID, rep.Token, rep.Domain, rep.OverallScore, rep.ProminenceScore,
		string(platformScores), string(competitors), string(allCompetitors),
		rep.MentionCount, rep.QueryCount, rep.Summary, rep.CreatedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: insert report %s", rep.RunID)
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit complete run")
}

func (s *SQLiteStore) GetReport(ctx context.Context, runID string) (*model.Report, error) {
	rep, err := scanSQLiteReport(s.db.QueryRowContext(ctx, `SELECT `+reportColumns+` FROM reports WHERE run_id = ?`, runID))
	if err != nil {
		return nil, sqlNotFound(err, "sqlite: get report %s", runID)
	}
	return rep, nil
}

func (s *SQLiteStore) GetReportByToken(ctx context.Context, token string) (*model.Report, error) {
	rep, err := scanSQLiteReport(s.db.QueryRowContext(ctx, `SELECT `+reportColumns+` FROM reports WHERE token = ?`, token))
	if err != nil {
		return nil, sqlNotFound(err, "sqlite: get report by token")
	}
	return rep, nil
}

// helpers

func checkRowsAffected(res sql.Result, sentinel error, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(sentinel, "sqlite: %s %s", entity, id)
	}
	return nil
}

func scanSQLiteRun(row scannable) (*model.Run, error) {
	var r model.Run
	var subscriptionID, errMsg sql.NullString
	var startedAt, completedAt sql.NullTime

	err := row.Scan(&r.ID, &r.AccountID, &subscriptionID, &r.Domain, &r.Status, &r.Progress,
		&r.Trigger, &r.CreatedAt, &startedAt, &completedAt, &errMsg)
	if err != nil {
		return nil, err
	}
	if subscriptionID.Valid {
		r.SubscriptionID = &subscriptionID.String
	}
	if errMsg.Valid {
		r.Error = &errMsg.String
	}
	if startedAt.Valid {
		r.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		r.CompletedAt = &completedAt.Time
	}
	return &r, nil
}

func scanSQLiteReport(row scannable) (*model.Report, error) {
	var rep model.Report
	var platformScores, competitors, allCompetitors string
	err := row.Scan(&rep.RunID, &rep.Token, &rep.Domain, &rep.OverallScore, &rep.ProminenceScore,
		&platformScores, &competitors, &allCompetitors, &rep.MentionCount, &rep.QueryCount,
		&rep.Summary, &rep.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := unmarshalReportLists(&rep, []byte(platformScores), []byte(competitors), []byte(allCompetitors)); err != nil {
		return nil, eris.Wrap(err, "unmarshal report")
	}
	return &rep, nil
}

func sqlNotFound(err error, format string, args ...any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return eris.Wrapf(ErrNotFound, format, args...)
	}
	return eris.Wrapf(err, format, args...)
}

func isSQLiteUnique(err error, column string) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") && strings.Contains(msg, column)
}
