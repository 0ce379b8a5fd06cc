//go:build integration

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

type PostgresIntegrationSuite struct {
	suite.Suite
	ctx       context.Context
	container *postgres.PostgresContainer
	connStr   string
}

func (s *PostgresIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()

	container, err := postgres.Run(s.ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("visibility_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	s.connStr, err = container.ConnectionString(s.ctx, "sslmode=disable")
	s.Require().NoError(err)

	st, err := NewPostgres(s.ctx, s.connStr, nil)
	s.Require().NoError(err)
	defer st.Close() //nolint:errcheck
	s.Require().NoError(st.Migrate(s.ctx))
	// Migrations must be re-runnable.
	s.Require().NoError(st.Migrate(s.ctx))
}

func (s *PostgresIntegrationSuite) TearDownSuite() {
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

// newStore returns a store over freshly truncated tables.
func (s *PostgresIntegrationSuite) newStore(t *testing.T) Store {
	t.Helper()
	st, err := NewPostgres(s.ctx, s.connStr, &PoolConfig{MaxConns: 4, MinConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck

	_, err = st.Pool().Exec(s.ctx, `TRUNCATE reports, platform_responses, prompts, site_analyses, runs,
		subscription_competitors, subscriptions, accounts CASCADE`)
	require.NoError(t, err)
	return st
}

func (s *PostgresIntegrationSuite) TestStoreBehavior() {
	storeTestSuite(s.T(), s.newStore)
}

func TestPostgresIntegrationSuite(t *testing.T) {
	suite.Run(t, new(PostgresIntegrationSuite))
}
