package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mantavya0807/Github-Doctor/internal/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSaveAndRecent(t *testing.T) {
	store := openTestStore(t)

	for i, repo := range []string{"acme/one", "acme/two", "acme/three"} {
		err := store.SaveAnalysis(models.AnalysisResult{
			ID:            repo,
			Repository:    repo,
			Branch:        "main",
			Timestamp:     time.Now().UTC(),
			SecurityScore: 100 - i,
		})
		require.NoError(t, err)
	}

	results, err := store.Recent(2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	// Newest first.
	assert.Equal(t, "acme/three", results[0].Repository)
	assert.Equal(t, "acme/two", results[1].Repository)
}

func TestRecentOnEmptyStore(t *testing.T) {
	store := openTestStore(t)
	results, err := store.Recent(10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRecentDefaultLimit(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.SaveAnalysis(models.AnalysisResult{ID: "a", Repository: "acme/one"}))

	results, err := store.Recent(0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "acme/one", results[0].Repository)
}

func TestResultsRoundTripFixOutcome(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.SaveAnalysis(models.AnalysisResult{
		ID:         "with-fixes",
		Repository: "acme/widgets",
		FixResult: &models.PublishOutcome{
			RequestURL:    "https://github.com/acme/widgets/pull/7",
			RequestNumber: 7,
			FixesApplied:  2,
			EnvVarsNeeded: []string{"API_KEY"},
		},
	}))

	results, err := store.Recent(1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.NotNil(t, results[0].FixResult)
	assert.Equal(t, 7, results[0].FixResult.RequestNumber)
	assert.Equal(t, []string{"API_KEY"}, results[0].FixResult.EnvVarsNeeded)
}
