package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasnim.dev/eksops/internal/history"
	"tasnim.dev/eksops/internal/prereq"
	"tasnim.dev/eksops/internal/target"
)

// writeConfig writes a config whose required tool can never be found, so any
// command that gets as far as the prerequisite check stops there.
func writeConfig(t *testing.T, extra string) (cfgPath, dir string) {
	t.Helper()
	dir = t.TempDir()
	cfgPath = filepath.Join(dir, "config.yaml")
	body := "required_tools: [eksops-test-missing-tool]\n" +
		"history_db: " + filepath.Join(dir, "history.db") + "\n" + extra
	require.NoError(t, os.WriteFile(cfgPath, []byte(body), 0o600))
	return cfgPath, dir
}

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := execute(context.Background(), root)
	return out.String(), err
}

func TestInvalidEnvironmentRejectedBeforeRemoteCalls(t *testing.T) {
	cfg, _ := writeConfig(t, "")

	for _, sub := range []string{"update", "validate", "backup", "rollback"} {
		t.Run(sub, func(t *testing.T) {
			_, err := runCmd(t, sub, "--config", cfg, "-e", "qa")
			require.Error(t, err)
			assert.ErrorIs(t, err, target.ErrInvalidInput)
			assert.NotErrorIs(t, err, prereq.ErrMissingTool)
		})
	}
}

func TestMissingToolStopsBeforeAWS(t *testing.T) {
	cfg, _ := writeConfig(t, "")

	_, err := runCmd(t, "validate", "--config", cfg, "-e", "dev", "--skip-dns-test")
	require.Error(t, err)
	assert.ErrorIs(t, err, prereq.ErrMissingTool)
	assert.Contains(t, err.Error(), "eksops-test-missing-tool")
}

func TestUpdate_InputValidation(t *testing.T) {
	cfg, dir := writeConfig(t, "")
	badDesired := filepath.Join(dir, "cluster.yaml")
	require.NoError(t, os.WriteFile(badDesired, []byte("kind: Pod\n"), 0o600))

	tests := []struct {
		name string
		args []string
	}{
		{"unknown type", []string{"-t", "everything"}},
		{"patch version", []string{"-k", "1.30.2"}},
		{"config without file", []string{"-t", "config"}},
		{"config file missing", []string{"-t", "config", "-f", filepath.Join(dir, "nope.yaml")}},
		{"config file wrong kind", []string{"-t", "config", "-f", badDesired}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"update", "--config", cfg, "-e", "dev"}, tt.args...)
			_, err := runCmd(t, args...)
			require.Error(t, err)
			assert.ErrorIs(t, err, target.ErrInvalidInput)
		})
	}
}

func TestValidate_InputValidation(t *testing.T) {
	cfg, _ := writeConfig(t, "")

	_, err := runCmd(t, "validate", "--config", cfg, "-e", "dev", "-t", "smoke")
	assert.ErrorIs(t, err, target.ErrInvalidInput)

	_, err = runCmd(t, "validate", "--config", cfg, "-e", "dev", "-o", "xml")
	assert.ErrorIs(t, err, target.ErrInvalidInput)
}

func TestHelpIsReportedAsFailure(t *testing.T) {
	out, err := runCmd(t, "--help")
	require.Error(t, err)
	assert.True(t, IsHelp(err))
	assert.Contains(t, out, "update")
	assert.Contains(t, out, "rollback")

	_, err = runCmd(t, "update", "-h")
	assert.True(t, IsHelp(err))
}

func TestUnknownFlag(t *testing.T) {
	_, err := runCmd(t, "update", "--no-such-flag")
	require.Error(t, err)
	assert.False(t, IsHelp(err))
}

func TestVersion(t *testing.T) {
	cfg, _ := writeConfig(t, "")

	out, err := runCmd(t, "version", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "eksops "+Version)
}

func TestHistory_ListsRecordedRuns(t *testing.T) {
	cfg, dir := writeConfig(t, "")
	ctx := context.Background()

	store, err := history.Open(ctx, filepath.Join(dir, "history.db"))
	require.NoError(t, err)
	for _, r := range []history.Run{
		{Kind: history.KindUpdate, Cluster: "eks-dev", Environment: "dev", Region: "eu-west-1", Scope: "control-plane"},
		{Kind: history.KindValidate, Cluster: "eks-staging", Environment: "staging", Region: "eu-west-1", Scope: "health"},
	} {
		run, err := store.Start(ctx, r)
		require.NoError(t, err)
		require.NoError(t, store.Finish(ctx, run.ID, "done", nil))
	}
	require.NoError(t, store.Close())

	out, err := runCmd(t, "history", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "eks-dev")
	assert.Contains(t, out, "eks-staging")
	assert.Contains(t, out, "control-plane")

	out, err = runCmd(t, "history", "--config", cfg, "-e", "staging")
	require.NoError(t, err)
	assert.Contains(t, out, "eks-staging")
	assert.NotContains(t, out, "eks-dev")
}

func TestHistory_Empty(t *testing.T) {
	cfg, _ := writeConfig(t, "")

	out, err := runCmd(t, "history", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "no runs recorded")
}

func TestRecord_StoresFailure(t *testing.T) {
	cfg, dir := writeConfig(t, "")
	c, err := loadConfig(cfg)
	require.NoError(t, err)
	g := &globalOptions{cfg: c}

	tgt := target.Target{Environment: target.Dev, ClusterName: "eks-dev", Region: "eu-west-1"}
	boom := errors.New("boom")
	err = g.record(context.Background(), history.KindRollback, tgt, "", func() (string, error) {
		return "2 completed", boom
	})
	assert.ErrorIs(t, err, boom)

	store, err := history.Open(context.Background(), filepath.Join(dir, "history.db"))
	require.NoError(t, err)
	defer store.Close()
	runs, err := store.List(context.Background(), "eks-dev", 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, history.StatusFailed, runs[0].Status)
	assert.Equal(t, "2 completed: boom", runs[0].Detail)
}

func TestHistoryTable_StartedWithSeconds(t *testing.T) {
	started := time.Date(2026, 3, 15, 8, 45, 30, 0, time.Local)
	out := historyTable([]history.Run{{
		Kind:     history.KindUpdate,
		Cluster:  "eks-staging",
		Scope:    "addons",
		Status:   history.StatusSucceeded,
		Started:  started,
		Finished: started.Add(3*time.Minute + 5*time.Second),
	}})

	assert.Contains(t, out, "2026-03-15 08:45:30")
	assert.Contains(t, out, "3m05s")
}
