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

	for _, name := range []string{"extract", "batch", "serve", "export", "backup", "clients"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "orders", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
	assert.True(t, rootCmd.SilenceUsage)
}

func TestExtractCommand_Flags(t *testing.T) {
	for _, name := range []string{"save", "notify"} {
		flag := extractCmd.Flags().Lookup(name)
		require.NotNil(t, flag, "extract should have --%s flag", name)
		assert.Equal(t, "false", flag.DefValue)
	}
	assert.Error(t, extractCmd.Args(extractCmd, nil))
	assert.NoError(t, extractCmd.Args(extractCmd, []string{"msg.yaml"}))
}

func TestBatchCommand_Flags(t *testing.T) {
	flag := batchCmd.Flags().Lookup("limit")
	require.NotNil(t, flag, "batch command should have --limit flag")
	assert.Equal(t, "100", flag.DefValue)

	for _, name := range []string{"concurrency", "notify", "json"} {
		assert.NotNil(t, batchCmd.Flags().Lookup(name), "batch should have --%s flag", name)
	}
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestExportCommand_Flags(t *testing.T) {
	format := exportCmd.Flags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "xlsx", format.DefValue)

	output := exportCmd.Flags().Lookup("output")
	require.NotNil(t, output)
	assert.Equal(t, "o", output.Shorthand)

	for _, name := range []string{"status", "source", "from", "to", "limit"} {
		assert.NotNil(t, exportCmd.Flags().Lookup(name), "export should have --%s flag", name)
	}
}

func TestBackupCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range backupCmd.Commands() {
		names[c.Name()] = true
	}
	for _, name := range []string{"create", "list", "restore", "prune"} {
		assert.True(t, names[name], "backup should have subcommand %q", name)
	}

	assert.NotNil(t, backupCreateCmd.Flags().Lookup("compress"))
	assert.NotNil(t, backupPruneCmd.Flags().Lookup("keep"))
	assert.Error(t, backupRestoreCmd.Args(backupRestoreCmd, nil))
}

func TestClientsCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range clientsCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["import"])
	assert.True(t, names["list"])
	assert.Error(t, clientsImportCmd.Args(clientsImportCmd, []string{}))
}
