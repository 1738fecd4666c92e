package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type env struct {
	dir    string
	config string
	games  string
	cards  string
	labels string
	model  string
}

// newEnv writes a config pointing every path into a temp dir, plus a small
// dataset where Alpha and Beta appear together in 10 games.
func newEnv(t *testing.T) env {
	t.Helper()
	dir := t.TempDir()
	e := env{
		dir:    dir,
		config: filepath.Join(dir, "config.toml"),
		games:  filepath.Join(dir, "games.csv"),
		cards:  filepath.Join(dir, "cards.csv"),
		labels: filepath.Join(dir, "labels.csv"),
		model:  filepath.Join(dir, "model.bin"),
	}

	cfg := fmt.Sprintf(`[labels]
min_both_present = 5

[storage]
path = %q

[dataset]
cache_dir = %q

[log]
level = "error"
`, filepath.Join(dir, "history.db"), filepath.Join(dir, "datasets"))
	require.NoError(t, os.WriteFile(e.config, []byte(cfg), 0o644))

	var b strings.Builder
	b.WriteString("won,opening_hand,drawn\n")
	for i := 0; i < 10; i++ {
		fmt.Fprintf(&b, "%t,\"[1,2]\",[]\n", i < 7)
	}
	for i := 0; i < 10; i++ {
		fmt.Fprintf(&b, "%t,[1],\"[3]\"\n", i < 3)
	}
	require.NoError(t, os.WriteFile(e.games, []byte(b.String()), 0o644))
	require.NoError(t, os.WriteFile(e.cards, []byte("id,name\n1,Alpha\n2,Beta\n3,Gamma\n"), 0o644))
	return e
}

func (e env) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--config", e.config}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestLabelsTrainPredict(t *testing.T) {
	e := newEnv(t)

	out, err := e.run(t, "labels", e.games, e.cards, e.labels)
	require.NoError(t, err)
	assert.Contains(t, out, "20 games")
	assert.Contains(t, out, "2 labels written")

	out, err = e.run(t, "train", e.labels, e.model, "--epochs", "5", "--seed", "11")
	require.NoError(t, err)
	assert.Contains(t, out, "trained 3 cards on 2 samples")
	assert.FileExists(t, e.model)

	out, err = e.run(t, "predict", e.model, e.cards, "alpha", "beta")
	require.NoError(t, err)
	assert.Contains(t, out, "Alpha (1) + Beta (2)")
	assert.Contains(t, out, "interpretation:")
}

func TestLabels_MinBothFlagOverridesConfig(t *testing.T) {
	e := newEnv(t)

	out, err := e.run(t, "labels", e.games, e.cards, e.labels, "--min-both", "11")
	require.NoError(t, err)
	assert.Contains(t, out, "0 labels written")
}

func TestLabels_MinBothRejectsBelowOne(t *testing.T) {
	e := newEnv(t)

	for _, v := range []string{"0", "-1"} {
		_, err := e.run(t, "labels", e.games, e.cards, e.labels, "--min-both="+v)
		require.Error(t, err, v)
		assert.Contains(t, err.Error(), "--min-both must be at least 1")
	}
	assert.NoFileExists(t, e.labels)
}

func TestTrainStoreAndRuns(t *testing.T) {
	e := newEnv(t)

	out, err := e.run(t, "runs")
	require.NoError(t, err)
	assert.Contains(t, out, "no training runs recorded")

	_, err = e.run(t, "labels", e.games, e.cards, e.labels)
	require.NoError(t, err)
	out, err = e.run(t, "train", e.labels, e.model, "--epochs", "2", "--seed", "5", "--store")
	require.NoError(t, err)
	assert.Contains(t, out, "(seed 5)")

	var runID string
	for _, line := range strings.Split(out, "\n") {
		if id, ok := strings.CutPrefix(line, "run "); ok {
			runID = id
		}
	}
	require.NotEmpty(t, runID)

	out, err = e.run(t, "runs", "--limit", "5")
	require.NoError(t, err)
	assert.Contains(t, out, runID)
	assert.Contains(t, out, e.model)

	_, err = e.run(t, "runs", "--limit", "0")
	require.Error(t, err)
}

func TestLabels_StoreAndTop(t *testing.T) {
	e := newEnv(t)

	_, err := e.run(t, "labels", e.games, e.cards, e.labels, "--store")
	require.NoError(t, err)

	chart := filepath.Join(e.dir, "top.html")
	out, err := e.run(t, "top", "Alpha", "--cards", e.cards, "--limit", "5", "--chart", chart)
	require.NoError(t, err)
	assert.Contains(t, out, "Beta")
	assert.Contains(t, out, "Gamma")
	assert.FileExists(t, chart)
}

func TestPredict_UnknownCard(t *testing.T) {
	e := newEnv(t)

	_, err := e.run(t, "labels", e.games, e.cards, e.labels)
	require.NoError(t, err)
	_, err = e.run(t, "train", e.labels, e.model, "--epochs", "1")
	require.NoError(t, err)

	_, err = e.run(t, "predict", e.model, e.cards, "Alpha", "Nobody")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown card")
}

func TestArgsValidation(t *testing.T) {
	e := newEnv(t)

	_, err := e.run(t, "labels", e.games)
	require.Error(t, err)

	_, err = e.run(t, "download")
	require.Error(t, err)

	_, err = e.run(t, "top", "Alpha")
	require.Error(t, err)
}

func TestConfigInitAndShow(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.toml")

	e := env{config: path}
	out, err := e.run(t, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, path)
	assert.FileExists(t, path)

	_, err = e.run(t, "config", "init")
	require.Error(t, err)

	_, err = e.run(t, "config", "init", "--force")
	require.NoError(t, err)

	t.Setenv("SYNERGY_TRAINING__EPOCHS", "77")
	out, err = e.run(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "epochs = 77")
}

func TestInvalidLogLevel(t *testing.T) {
	e := newEnv(t)

	_, err := e.run(t, "--log-level", "debug", "version")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(e.config, []byte("[log]\nlevel = \"loud\"\n"), 0o644))
	_, err = e.run(t, "version")
	require.Error(t, err)
}
