package activity

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calloway/swgate/internal/swg/domain"
)

func sampleRecord(id string, verdict domain.Verdict) domain.ActivityRecord {
	return domain.ActivityRecord{
		ID:        id,
		Domain:    "news.example.com",
		Category:  domain.Category("News"),
		Verdict:   verdict,
		CacheHit:  false,
		Latency:   12 * time.Millisecond,
		Timestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestJSONLRecorderAppendsOneLinePerDecision(t *testing.T) {
	path := filepath.Join(t.TempDir(), "activity.jsonl")
	rec, err := NewJSONL(path)
	require.NoError(t, err)

	first := sampleRecord("id-1", domain.VerdictAllowed)
	second := sampleRecord("id-2", domain.VerdictBlocked)
	second.CacheHit = true
	second.ErrorKind = domain.ErrorKindOracleTimeout
	rec.Record(first)
	rec.Record(second)
	require.NoError(t, rec.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []map[string]any
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
		lines = append(lines, entry)
	}
	require.NoError(t, scanner.Err())
	require.Len(t, lines, 2)

	assert.Equal(t, "id-1", lines[0]["id"])
	assert.Equal(t, "allowed", lines[0]["verdict"])
	assert.Equal(t, "News", lines[0]["category"])
	assert.NotContains(t, lines[0], "errorKind")

	assert.Equal(t, "id-2", lines[1]["id"])
	assert.Equal(t, "blocked", lines[1]["verdict"])
	assert.Equal(t, true, lines[1]["cacheHit"])
	assert.Equal(t, string(domain.ErrorKindOracleTimeout), lines[1]["errorKind"])
}

func TestJSONLRecorderAppendsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "activity.jsonl")

	rec, err := NewJSONL(path)
	require.NoError(t, err)
	rec.Record(sampleRecord("id-1", domain.VerdictAllowed))
	require.NoError(t, rec.Close())

	rec, err = NewJSONL(path)
	require.NoError(t, err)
	rec.Record(sampleRecord("id-2", domain.VerdictAllowed))
	require.NoError(t, rec.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "id-1")
	assert.Contains(t, string(data), "id-2")
}

func TestArchiveRecentReturnsNewestFirst(t *testing.T) {
	path := filepath.Join(t.TempDir(), "activity.db")
	arc, err := NewArchive(path, nil)
	require.NoError(t, err)
	defer arc.Close()

	arc.Record(sampleRecord("id-1", domain.VerdictAllowed))
	arc.Record(sampleRecord("id-2", domain.VerdictBlocked))
	arc.Record(sampleRecord("id-3", domain.VerdictAllowed))

	recent, err := arc.Recent(2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "id-3", recent[0].ID)
	assert.Equal(t, "id-2", recent[1].ID)
}

func TestArchiveStatsCountDecisions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "activity.db")
	arc, err := NewArchive(path, nil)
	require.NoError(t, err)

	blocked := sampleRecord("id-1", domain.VerdictBlocked)
	cached := sampleRecord("id-2", domain.VerdictAllowed)
	cached.CacheHit = true
	fallback := sampleRecord("id-3", domain.VerdictAllowed)
	fallback.ErrorKind = domain.ErrorKindOracleUnreachable

	arc.Record(blocked)
	arc.Record(cached)
	arc.Record(fallback)

	st := arc.Stats()
	assert.Equal(t, uint64(3), st.Total)
	assert.Equal(t, uint64(1), st.Blocked)
	assert.Equal(t, uint64(1), st.CacheHits)
	assert.Equal(t, uint64(1), st.Fallbacks)
	require.NoError(t, arc.Close())

	// counters survive a reopen
	arc, err = NewArchive(path, nil)
	require.NoError(t, err)
	defer arc.Close()
	assert.Equal(t, uint64(3), arc.Stats().Total)
}

func TestMultiRecorderFansOutAndSkipsNil(t *testing.T) {
	var a, b captureRecorder
	multi := NewMulti(&a, nil, &b)
	multi.Record(sampleRecord("id-1", domain.VerdictAllowed))
	assert.Len(t, a.records, 1)
	assert.Len(t, b.records, 1)
}

type captureRecorder struct {
	records []domain.ActivityRecord
}

func (c *captureRecorder) Record(rec domain.ActivityRecord) {
	c.records = append(c.records, rec)
}
