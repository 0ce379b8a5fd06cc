package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"serve", "worker", "scan", "runs", "subscriptions", "migrate"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "visibility-cli", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestScanCommand_Flags(t *testing.T) {
	for _, name := range []string{"domain", "email", "format"} {
		require.NotNil(t, scanCmd.Flags().Lookup(name), "scan should have --%s", name)
	}
	assert.Equal(t, "text", scanCmd.Flags().Lookup("format").DefValue)
}

func TestRunsCommand_Subcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range runsCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["list"])
	assert.True(t, names["show"])
	assert.NotNil(t, runsListCmd.Flags().Lookup("trigger"))
}

func TestSubscriptionsCommand_Flags(t *testing.T) {
	require.NotNil(t, subscriptionsAddCmd.Flags().Lookup("competitor"))
	assert.Equal(t, "active", subscriptionsAddCmd.Flags().Lookup("status").DefValue)
	assert.Contains(t, subscriptionsCmd.Aliases, "subs")
}

func TestServeCommand_PortFlag(t *testing.T) {
	f := serveCmd.Flags().Lookup("port")
	require.NotNil(t, f)
	assert.Equal(t, "0", f.DefValue)
}
