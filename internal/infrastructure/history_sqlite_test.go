package infrastructure

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/sldl-jobs/internal/domain"
)

func setupHistoryRepo(t *testing.T) (*SQLiteHistoryRepository, func()) {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "history-test-*")
	require.NoError(t, err)

	repo, err := NewSQLiteHistoryRepository(filepath.Join(tmpDir, "history.db"))
	require.NoError(t, err)

	cleanup := func() {
		repo.Close()
		os.RemoveAll(tmpDir)
	}
	return repo, cleanup
}

func finishedJob(query string, status domain.JobStatus, finished time.Time) domain.Job {
	j := *domain.NewJob(query, "", "", "", 0)
	j.Status = status
	j.AppendLog("Searching: " + query)
	j.UpdatedAt = finished
	return j
}

func TestHistory_ArchiveAndFind(t *testing.T) {
	repo, cleanup := setupHistoryRepo(t)
	defer cleanup()

	job := finishedJob("Artist - Song", domain.StatusCompleted, time.Now())
	path := "Artist - Song.flac"
	job.FilePath = &path
	job.Completion = domain.CompletionParsed
	require.NoError(t, repo.Archive(job))

	found, err := repo.FindByID(job.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "Artist - Song", found.Query)
	assert.Equal(t, domain.StatusCompleted, found.Status)
	assert.Equal(t, domain.CompletionParsed, found.Completion)
	assert.Equal(t, path, found.FilePath)
	assert.Equal(t, "Searching: Artist - Song", found.ConsoleLog)
}

func TestHistory_FindByIDMissing(t *testing.T) {
	repo, cleanup := setupHistoryRepo(t)
	defer cleanup()

	found, err := repo.FindByID("missing")

	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestHistory_ArchiveTwiceReplaces(t *testing.T) {
	repo, cleanup := setupHistoryRepo(t)
	defer cleanup()

	job := finishedJob("q", domain.StatusCompleted, time.Now())
	require.NoError(t, repo.Archive(job))

	job.Status = domain.StatusCanceled
	require.NoError(t, repo.Archive(job))

	count, err := repo.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	found, _ := repo.FindByID(job.ID)
	assert.Equal(t, domain.StatusCanceled, found.Status)
}

func TestHistory_FindRecentNewestFirst(t *testing.T) {
	repo, cleanup := setupHistoryRepo(t)
	defer cleanup()

	base := time.Now().Add(-time.Hour)
	for i, q := range []string{"first", "second", "third"} {
		require.NoError(t, repo.Archive(finishedJob(q, domain.StatusCompleted, base.Add(time.Duration(i)*time.Minute))))
	}

	recent, err := repo.FindRecent(2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "third", recent[0].Query)
	assert.Equal(t, "second", recent[1].Query)

	all, err := repo.FindRecent(0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestHistory_PlaylistCounters(t *testing.T) {
	repo, cleanup := setupHistoryRepo(t)
	defer cleanup()

	job := *domain.NewJob("spotify-likes", "", "", "", 0)
	job, _ = domain.Reduce(job, domain.JobEvent{Kind: domain.EventPlaylistCompleted, Succeeded: 3, Failed: 1})
	require.NoError(t, repo.Archive(job))

	found, err := repo.FindByID(job.ID)
	require.NoError(t, err)
	assert.True(t, found.IsPlaylist)
	require.NotNil(t, found.TotalTracks)
	assert.Equal(t, 4, *found.TotalTracks)
	assert.Equal(t, 3, *found.CompletedTracks)
	assert.Equal(t, 1, *found.FailedTracks)
}

func TestHistory_FindByStatus(t *testing.T) {
	repo, cleanup := setupHistoryRepo(t)
	defer cleanup()

	require.NoError(t, repo.Archive(finishedJob("a", domain.StatusCompleted, time.Now())))
	require.NoError(t, repo.Archive(finishedJob("b", domain.StatusFailed, time.Now())))
	require.NoError(t, repo.Archive(finishedJob("c", domain.StatusFailed, time.Now())))

	failed, err := repo.FindByStatus(domain.StatusFailed, 0)
	require.NoError(t, err)
	assert.Len(t, failed, 2)
}
