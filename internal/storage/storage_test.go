package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitCreatesLayout(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "artifacts"))
	require.NoError(t, store.Init())

	for _, dir := range []string{store.JmxDir(), store.CsvDir(), store.ResultsDir(), store.ReportsDir()} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestResolveReferences(t *testing.T) {
	store := New("/srv/stress")

	assert.Equal(t, "", store.ResolveJmx(""))
	assert.Equal(t, "/abs/plan.jmx", store.ResolveJmx("/abs/plan.jmx"))
	assert.Equal(t, "/srv/stress/jmx/plan.jmx", store.ResolveJmx("plan.jmx"))
	assert.Equal(t, "/srv/stress/csv/accounts.csv", store.ResolveCsv("accounts.csv"))
}

func TestCleanupModifiedPlans(t *testing.T) {
	store := New(t.TempDir())
	require.NoError(t, store.Init())

	stale := filepath.Join(store.ResultsDir(), "modified_uc1_100.jmx")
	fresh := filepath.Join(store.ResultsDir(), "modified_uc2_200.jmx")
	other := filepath.Join(store.ResultsDir(), "result_uc1_100.csv")
	for _, path := range []string{stale, fresh, other} {
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	}
	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))

	removed, err := store.CleanupModifiedPlans(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	assert.NoFileExists(t, stale)
	assert.FileExists(t, fresh)
	assert.FileExists(t, other)
}

func TestCleanupModifiedPlansMissingDir(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "never-initialized"))
	_, err := store.CleanupModifiedPlans(time.Hour)
	assert.Error(t, err)
}
