package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/visibility-cli/internal/model"
)

func newTestSQLite(t *testing.T) Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

// seedSubscription creates an account plus an active subscription.
func seedSubscription(t *testing.T, s Store, email, domain string, competitors ...string) (*model.Account, *model.Subscription) {
	t.Helper()
	ctx := context.Background()
	acct, err := s.GetOrCreateAccount(ctx, email)
	require.NoError(t, err)
	sub, err := s.CreateSubscription(ctx, model.Subscription{
		AccountID:   acct.ID,
		Domain:      domain,
		Competitors: competitors,
	})
	require.NoError(t, err)
	return acct, sub
}

// advanceTo walks a pending run forward to the target status.
func advanceTo(t *testing.T, s Store, runID string, target model.RunStatus) {
	t.Helper()
	ctx := context.Background()
	chain := []model.RunStatus{
		model.RunStatusPending,
		model.RunStatusCrawling,
		model.RunStatusAnalyzing,
		model.RunStatusGenerating,
		model.RunStatusQuerying,
	}
	for i := 0; i+1 < len(chain); i++ {
		if chain[i] == target {
			return
		}
		require.NoError(t, s.TransitionRun(ctx, runID, chain[i], chain[i+1]))
	}
}

func storeTestSuite(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("AccountLookupOrCreate", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		a1, err := s.GetOrCreateAccount(ctx, "owner@acme-plumbing.com")
		require.NoError(t, err)
		a2, err := s.GetOrCreateAccount(ctx, "owner@acme-plumbing.com")
		require.NoError(t, err)
		assert.Equal(t, a1.ID, a2.ID)

		got, err := s.GetAccount(ctx, a1.ID)
		require.NoError(t, err)
		assert.Equal(t, "owner@acme-plumbing.com", got.Email)

		_, err = s.GetAccount(ctx, "missing")
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("SubscriptionsWithCompetitors", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		acct, sub := seedSubscription(t, s, "a@b.com", "acme-plumbing.com", "Roto-Rooter", "Mr. Rooter")
		assert.Equal(t, model.SubscriptionActive, sub.Status)

		got, err := s.GetSubscription(ctx, sub.ID)
		require.NoError(t, err)
		assert.Equal(t, acct.ID, got.AccountID)
		assert.ElementsMatch(t, []string{"Roto-Rooter", "Mr. Rooter"}, got.Competitors)

		require.NoError(t, s.UpdateSubscriptionStatus(ctx, sub.ID, model.SubscriptionPastDue))
		active, err := s.ListSubscriptions(ctx, SubscriptionFilter{Status: model.SubscriptionActive})
		require.NoError(t, err)
		assert.Empty(t, active)

		all, err := s.ListSubscriptions(ctx, SubscriptionFilter{AccountID: acct.ID})
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Len(t, all[0].Competitors, 2)

		err = s.UpdateSubscriptionStatus(ctx, "missing", model.SubscriptionActive)
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("CreateAndGetRun", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		acct, err := s.GetOrCreateAccount(ctx, "lead@example.com")
		require.NoError(t, err)

		run, err := s.CreateRun(ctx, model.NewRun{
			AccountID: acct.ID,
			Domain:    "acme-plumbing.com",
			Trigger:   model.TriggerAutomatic,
		})
		require.NoError(t, err)
		assert.NotEmpty(t, run.ID)
		assert.Equal(t, model.RunStatusPending, run.Status)
		assert.Equal(t, 0, run.Progress)

		got, err := s.GetRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, "acme-plumbing.com", got.Domain)
		assert.Equal(t, model.TriggerAutomatic, got.Trigger)
		assert.Nil(t, got.SubscriptionID)
		assert.Nil(t, got.StartedAt)

		_, err = s.GetRun(ctx, "nope")
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("OneInFlightRunPerSubscription", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		acct, sub := seedSubscription(t, s, "x@y.com", "acme.com")

		nr := model.NewRun{AccountID: acct.ID, SubscriptionID: &sub.ID, Domain: sub.Domain, Trigger: model.TriggerScheduled}
		first, err := s.CreateRun(ctx, nr)
		require.NoError(t, err)

		_, err = s.CreateRun(ctx, nr)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrRunInFlight))

		active, err := s.ActiveRunForSubscription(ctx, sub.ID)
		require.NoError(t, err)
		require.NotNil(t, active)
		assert.Equal(t, first.ID, active.ID)

		require.NoError(t, s.FailRun(ctx, first.ID, "boom"))
		active, err = s.ActiveRunForSubscription(ctx, sub.ID)
		require.NoError(t, err)
		assert.Nil(t, active)

		_, err = s.CreateRun(ctx, nr)
		assert.NoError(t, err)
	})

	t.Run("GuardedTransitions", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		acct, _ := seedSubscription(t, s, "g@h.com", "acme.com")
		run, err := s.CreateRun(ctx, model.NewRun{AccountID: acct.ID, Domain: "acme.com", Trigger: model.TriggerAutomatic})
		require.NoError(t, err)

		require.NoError(t, s.TransitionRun(ctx, run.ID, model.RunStatusPending, model.RunStatusCrawling))
		got, err := s.GetRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RunStatusCrawling, got.Status)
		assert.Equal(t, model.ProgressCrawling, got.Progress)
		assert.NotNil(t, got.StartedAt)

		// A second executor racing on the same run loses.
		err = s.TransitionRun(ctx, run.ID, model.RunStatusPending, model.RunStatusCrawling)
		assert.True(t, errors.Is(err, ErrStatusConflict))

		// Skipping a stage is rejected before touching the database.
		err = s.TransitionRun(ctx, run.ID, model.RunStatusCrawling, model.RunStatusQuerying)
		assert.Error(t, err)

		require.NoError(t, s.FailRun(ctx, run.ID, "crawler exploded"))
		got, err = s.GetRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RunStatusFailed, got.Status)
		require.NotNil(t, got.Error)
		assert.Equal(t, "crawler exploded", *got.Error)
		assert.NotNil(t, got.CompletedAt)

		err = s.FailRun(ctx, run.ID, "again")
		assert.True(t, errors.Is(err, ErrStatusConflict))
	})

	t.Run("ProgressIsMonotonicAndScopedToQuerying", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		acct, _ := seedSubscription(t, s, "p@q.com", "acme.com")
		run, err := s.CreateRun(ctx, model.NewRun{AccountID: acct.ID, Domain: "acme.com", Trigger: model.TriggerAutomatic})
		require.NoError(t, err)

		// Ignored outside querying.
		require.NoError(t, s.UpdateRunProgress(ctx, run.ID, 70))
		got, _ := s.GetRun(ctx, run.ID)
		assert.Equal(t, 0, got.Progress)

		advanceTo(t, s, run.ID, model.RunStatusQuerying)
		require.NoError(t, s.UpdateRunProgress(ctx, run.ID, 70))
		require.NoError(t, s.UpdateRunProgress(ctx, run.ID, 60))
		got, _ = s.GetRun(ctx, run.ID)
		assert.Equal(t, 70, got.Progress)
	})

	t.Run("StageOutputsAndCompleteRun", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		acct, _ := seedSubscription(t, s, "c@d.com", "acme-plumbing.com")
		run, err := s.CreateRun(ctx, model.NewRun{AccountID: acct.ID, Domain: "acme-plumbing.com", Trigger: model.TriggerAutomatic})
		require.NoError(t, err)
		advanceTo(t, s, run.ID, model.RunStatusQuerying)

		require.NoError(t, s.SaveSiteAnalysis(ctx, &model.SiteAnalysis{
			RunID:          run.ID,
			BusinessType:   "plumbing contractor",
			BusinessName:   strPtr("Acme Plumbing"),
			Services:       []string{"drain cleaning", "water heaters"},
			Location:       "Denver, CO",
			KeyPhrases:     []string{"24/7"},
			PageCount:      3,
			ContentExcerpt: "Acme Plumbing serves Denver",
		}))
		a, err := s.GetSiteAnalysis(ctx, run.ID)
		require.NoError(t, err)
		require.NotNil(t, a.BusinessName)
		assert.Equal(t, "Acme Plumbing", *a.BusinessName)
		assert.Equal(t, []string{"drain cleaning", "water heaters"}, a.Services)
		assert.Empty(t, a.Competitors)

		prompts := []model.Prompt{
			{ID: uuid.NewString(), RunID: run.ID, Index: 0, Text: "best plumber in denver?", Category: model.CategoryLocal},
			{ID: uuid.NewString(), RunID: run.ID, Index: 1, Text: "who fixes water heaters?", Category: model.CategoryService},
		}
		require.Error(t, s.InsertPrompts(ctx, []model.Prompt{{RunID: run.ID, Text: "no id"}}))
		require.NoError(t, s.InsertPrompts(ctx, prompts))

		listed, err := s.ListPrompts(ctx, run.ID)
		require.NoError(t, err)
		require.Len(t, listed, 2)
		assert.Equal(t, prompts[0].ID, listed[0].ID)
		assert.Equal(t, model.CategoryLocal, listed[0].Category)

		responses := []model.PlatformResponse{
			{RunID: run.ID, PromptID: prompts[0].ID, PromptIndex: 0, Platform: "openai", ResponseText: strPtr("Acme Plumbing is great"), Mentioned: true, Position: intPtr(1), LatencyMS: 120},
			{RunID: run.ID, PromptID: prompts[0].ID, PromptIndex: 0, Platform: "gemini", ErrorMessage: strPtr("timeout"), LatencyMS: 60000},
			{RunID: run.ID, PromptID: prompts[1].ID, PromptIndex: 1, Platform: "openai", ResponseText: strPtr("Try Roto-Rooter"),
				Competitors: []model.CompetitorCount{{Name: "Roto-Rooter", Count: 1}}},
		}
		require.NoError(t, s.InsertPlatformResponses(ctx, responses))
		// Replaying the same batch keeps one row per pair.
		require.NoError(t, s.InsertPlatformResponses(ctx, responses))

		stored, err := s.ListPlatformResponses(ctx, run.ID)
		require.NoError(t, err)
		require.Len(t, stored, 3)
		assert.Equal(t, "gemini", stored[0].Platform)
		assert.False(t, stored[0].Succeeded())
		assert.Nil(t, stored[0].ResponseText)
		require.NotNil(t, stored[1].Position)
		assert.Equal(t, 1, *stored[1].Position)
		assert.Equal(t, []model.CompetitorCount{{Name: "Roto-Rooter", Count: 1}}, stored[2].Competitors)

		rep := &model.Report{
			RunID:           run.ID,
			Token:           "tok123",
			Domain:          "acme-plumbing.com",
			OverallScore:    50,
			ProminenceScore: 50,
			PlatformScores:  []model.PlatformScore{{Platform: "openai", Score: 50, Mentions: 1, Successful: 2}},
			Competitors:     []model.CompetitorCount{{Name: "Roto-Rooter", Count: 1}},
			AllCompetitors:  []model.CompetitorCount{{Name: "Roto-Rooter", Count: 1}},
			MentionCount:    1,
			QueryCount:      3,
			Summary:         "acme-plumbing.com was mentioned in 1 of 2 answers.",
		}
		require.NoError(t, s.CompleteRun(ctx, rep))

		got, err := s.GetRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RunStatusComplete, got.Status)
		assert.Equal(t, 100, got.Progress)
		assert.NotNil(t, got.CompletedAt)

		byToken, err := s.GetReportByToken(ctx, "tok123")
		require.NoError(t, err)
		assert.Equal(t, 50, byToken.OverallScore)
		assert.Equal(t, rep.PlatformScores, byToken.PlatformScores)
		assert.Equal(t, rep.AllCompetitors, byToken.AllCompetitors)

		_, err = s.GetReportByToken(ctx, "missing")
		assert.True(t, errors.Is(err, ErrNotFound))

		// A completed run cannot complete twice or fail.
		rep.Token = "tok456"
		err = s.CompleteRun(ctx, rep)
		assert.True(t, errors.Is(err, ErrStatusConflict))
		assert.True(t, errors.Is(s.FailRun(ctx, run.ID, "late"), ErrStatusConflict))
	})

	t.Run("CompleteRunRequiresQuerying", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		acct, _ := seedSubscription(t, s, "r@s.com", "acme.com")
		run, err := s.CreateRun(ctx, model.NewRun{AccountID: acct.ID, Domain: "acme.com", Trigger: model.TriggerAutomatic})
		require.NoError(t, err)

		err = s.CompleteRun(ctx, &model.Report{RunID: run.ID, Token: "t", Domain: "acme.com"})
		assert.True(t, errors.Is(err, ErrStatusConflict))

		_, err = s.GetReport(ctx, run.ID)
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("LatestManualRunIgnoresScheduled", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		acct, sub := seedSubscription(t, s, "m@n.com", "acme.com")

		at, err := s.LatestManualRunAt(ctx, sub.ID)
		require.NoError(t, err)
		assert.Nil(t, at)

		manual, err := s.CreateRun(ctx, model.NewRun{AccountID: acct.ID, SubscriptionID: &sub.ID, Domain: sub.Domain, Trigger: model.TriggerManual})
		require.NoError(t, err)
		require.NoError(t, s.FailRun(ctx, manual.ID, "x"))

		time.Sleep(5 * time.Millisecond)
		_, err = s.CreateRun(ctx, model.NewRun{AccountID: acct.ID, SubscriptionID: &sub.ID, Domain: sub.Domain, Trigger: model.TriggerScheduled})
		require.NoError(t, err)

		at, err = s.LatestManualRunAt(ctx, sub.ID)
		require.NoError(t, err)
		require.NotNil(t, at)
		assert.WithinDuration(t, manual.CreatedAt, *at, time.Millisecond)
	})

	t.Run("ListRunsFilters", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		acct, sub := seedSubscription(t, s, "l@m.com", "acme.com")

		r1, err := s.CreateRun(ctx, model.NewRun{AccountID: acct.ID, Domain: "acme.com", Trigger: model.TriggerAutomatic})
		require.NoError(t, err)
		_, err = s.CreateRun(ctx, model.NewRun{AccountID: acct.ID, SubscriptionID: &sub.ID, Domain: "acme.com", Trigger: model.TriggerManual})
		require.NoError(t, err)
		require.NoError(t, s.FailRun(ctx, r1.ID, "x"))

		failed, err := s.ListRuns(ctx, RunFilter{Status: model.RunStatusFailed})
		require.NoError(t, err)
		require.Len(t, failed, 1)
		assert.Equal(t, r1.ID, failed[0].ID)

		manual, err := s.ListRuns(ctx, RunFilter{Trigger: model.TriggerManual, SubscriptionID: sub.ID})
		require.NoError(t, err)
		assert.Len(t, manual, 1)

		all, err := s.ListRuns(ctx, RunFilter{AccountID: acct.ID, Limit: 1})
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("StaleRunsAndStats", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		acct, _ := seedSubscription(t, s, "st@t.com", "acme.com")

		stuck, err := s.CreateRun(ctx, model.NewRun{AccountID: acct.ID, Domain: "acme.com", Trigger: model.TriggerAutomatic})
		require.NoError(t, err)
		require.NoError(t, s.TransitionRun(ctx, stuck.ID, model.RunStatusPending, model.RunStatusCrawling))
		done, err := s.CreateRun(ctx, model.NewRun{AccountID: acct.ID, Domain: "acme.com", Trigger: model.TriggerAutomatic})
		require.NoError(t, err)
		require.NoError(t, s.FailRun(ctx, done.ID, "x"))

		stale, err := s.ListStaleRuns(ctx, time.Now().Add(time.Minute))
		require.NoError(t, err)
		require.Len(t, stale, 1)
		assert.Equal(t, stuck.ID, stale[0].ID)

		none, err := s.ListStaleRuns(ctx, time.Now().Add(-time.Hour))
		require.NoError(t, err)
		assert.Empty(t, none)

		stats, err := s.RunStats(ctx, time.Now().Add(-time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 2, stats.Total)
		assert.Equal(t, 1, stats.Failed)
		assert.Equal(t, 1, stats.ByStatus["crawling"])
		assert.Equal(t, 0, stats.ReportsTotal)
	})
}

func TestSQLiteStore(t *testing.T) {
	storeTestSuite(t, newTestSQLite)
}
