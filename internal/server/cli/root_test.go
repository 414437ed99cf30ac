package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/bmd/internal/logging"
	"github.com/dmitrijs2005/bmd/internal/server"
	"github.com/dmitrijs2005/bmd/internal/server/config"
	"github.com/dmitrijs2005/bmd/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func tempDSN(t *testing.T) string {
	return "file:" + filepath.Join(t.TempDir(), "bmd.db") + "?_pragma=foreign_keys(1)"
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmd := NewRootCommand()

	names := map[string]bool{}
	for _, c := range cmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "migrate", "workflows"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}

	for _, flag := range []string{"config", "env", "dsn", "http-address", "mock"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), flag)
	}
}

func TestMigrateCommand(t *testing.T) {
	out, err := run(t, "migrate", "--dsn", tempDSN(t))
	require.NoError(t, err)
	assert.Contains(t, out, "migrations applied")
}

func TestMigrateCommand_BadConfigFile(t *testing.T) {
	_, err := run(t, "migrate", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestWorkflowsCommand(t *testing.T) {
	dsn := tempDSN(t)

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.Database.DSN = dsn

	db, m, err := server.OpenDatabase(context.Background(), cfg)
	require.NoError(t, err)

	now := time.Now().UTC()
	require.NoError(t, m.Users(db).Create(context.Background(), &models.User{
		ID: "u1", Email: "ops@example.org", PasswordHash: "x", Name: "Ops", CreatedAt: now, UpdatedAt: now,
	}))
	require.NoError(t, m.Workflows(db).Create(context.Background(), &models.Workflow{
		ID: "wf-9", UserID: "u1", Name: "Night run", SpeciesName: "Lynx lynx", EcosystemType: "terrestrial",
		GeometryType: "polygon", GeometryWKT: "POINT (1 1)", Parameters: "{}", Status: "running",
		CreatedAt: now, UpdatedAt: now,
	}))
	require.NoError(t, db.Close())

	out, err := run(t, "workflows", "--dsn", dsn, "--status", "running", "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "wf-9")
	assert.Contains(t, out, "Ops <ops@example.org>")

	out, err = run(t, "workflows", "--dsn", dsn, "--status", "running", "--json", "--log-level", "error")
	require.NoError(t, err)
	var list []models.WorkflowWithOwner
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "ops@example.org", list[0].UserEmail)

	out, err = run(t, "workflows", "--dsn", dsn, "--status", "completed", "--log-level", "error")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(strings.TrimSpace(out), "\n")+1, "header only")

	_, err = run(t, "workflows", "--dsn", dsn, "--status", "bogus", "--log-level", "error")
	require.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	var buf bytes.Buffer
	var l logging.Logger = newLogger(&buf, cfg)
	l.Info(context.Background(), "hello")
	assert.Contains(t, buf.String(), `"msg":"hello"`)
}
