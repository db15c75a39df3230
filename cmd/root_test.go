package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmds := rootCmd.Commands()

	// Collect subcommand names.
	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	expected := []string{"deals", "upload", "status", "answers", "ask", "provenance", "eval", "suggest", "health", "serve"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "valence", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestDealsCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range dealsCmd.Commands() {
		names[c.Name()] = true
	}
	for _, name := range []string{"list", "show", "delete"} {
		assert.True(t, names[name], "expected deals subcommand %q not found", name)
	}
}

func TestUploadCommand_Flags(t *testing.T) {
	require.NotNil(t, uploadCmd.Flags().Lookup("name"), "upload command should have --name flag")
	require.NotNil(t, uploadCmd.Flags().Lookup("borrower"), "upload command should have --borrower flag")
}

func TestStatusCommand_Flags(t *testing.T) {
	require.NotNil(t, statusCmd.Flags().Lookup("watch"))
	require.NotNil(t, statusCmd.Flags().Lookup("all"))
}

func TestEvalCommand_Flags(t *testing.T) {
	flag := evalCmd.Flags().Lookup("questions")
	require.NotNil(t, flag, "eval command should have --questions flag")
	assert.Equal(t, "15", flag.DefValue)

	require.NotNil(t, evalCmd.Flags().Lookup("category"))
	require.NotNil(t, evalCmd.Flags().Lookup("export"))
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}
