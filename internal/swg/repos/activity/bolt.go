package activity

import (
	"encoding/binary"
	"encoding/json"
	"time"

	bbolt "go.etcd.io/bbolt"

	"github.com/calloway/swgate/internal/swg/common/log"
	"github.com/calloway/swgate/internal/swg/domain"
)

var (
	bucketRecords = []byte("records")
	bucketMeta    = []byte("meta")
)

var (
	metaTotal     = []byte("total")
	metaBlocked   = []byte("blocked")
	metaCacheHits = []byte("cache_hits")
	metaFallbacks = []byte("fallbacks")
)

// ArchiveStats summarizes every decision the archive has seen.
type ArchiveStats struct {
	Total     uint64
	Blocked   uint64
	CacheHits uint64
	Fallbacks uint64
}

// Archive stores decisions in a Bolt database, keyed by an ascending
// sequence so a reverse cursor walk yields the most recent first.
type Archive struct {
	db     *bbolt.DB
	logger log.Logger
}

// NewArchive opens (or creates) a Bolt database at path and ensures buckets exist.
func NewArchive(path string, logger log.Logger) (*Archive, error) {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketRecords); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists(bucketMeta); err != nil {
			return err
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Archive{db: db, logger: logger}, nil
}

func (a *Archive) Close() error { return a.db.Close() }

// Record appends the decision and bumps the aggregate counters. Failures
// are logged and swallowed so the request path never blocks on the archive.
func (a *Archive) Record(rec domain.ActivityRecord) {
	payload, err := json.Marshal(rec)
	if err != nil {
		a.logger.Error(map[string]any{
			"id":    rec.ID,
			"error": err.Error(),
		}, "Failed to encode activity record")
		return
	}
	err = a.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketRecords)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)
		if err := b.Put(key, payload); err != nil {
			return err
		}
		meta := tx.Bucket(bucketMeta)
		if err := bumpCounter(meta, metaTotal); err != nil {
			return err
		}
		if rec.Verdict == domain.VerdictBlocked {
			if err := bumpCounter(meta, metaBlocked); err != nil {
				return err
			}
		}
		if rec.CacheHit {
			if err := bumpCounter(meta, metaCacheHits); err != nil {
				return err
			}
		}
		if !rec.ErrorKind.IsZero() {
			if err := bumpCounter(meta, metaFallbacks); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		a.logger.Error(map[string]any{
			"id":    rec.ID,
			"error": err.Error(),
		}, "Failed to archive activity record")
	}
}

// Recent returns up to n decisions, newest first.
func (a *Archive) Recent(n int) ([]domain.ActivityRecord, error) {
	if n <= 0 {
		return nil, nil
	}
	out := make([]domain.ActivityRecord, 0, n)
	err := a.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketRecords)
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, v := c.Last(); k != nil && len(out) < n; k, v = c.Prev() {
			var rec domain.ActivityRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				// skip records written by an older incompatible build
				continue
			}
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Stats reads the aggregate counters.
func (a *Archive) Stats() ArchiveStats {
	st := ArchiveStats{}
	_ = a.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMeta)
		if b == nil {
			return nil
		}
		st.Total = readCounter(b, metaTotal)
		st.Blocked = readCounter(b, metaBlocked)
		st.CacheHits = readCounter(b, metaCacheHits)
		st.Fallbacks = readCounter(b, metaFallbacks)
		return nil
	})
	return st
}

func bumpCounter(b *bbolt.Bucket, key []byte) error {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, readCounter(b, key)+1)
	return b.Put(key, buf)
}

func readCounter(b *bbolt.Bucket, key []byte) uint64 {
	if v := b.Get(key); len(v) == 8 {
		return binary.BigEndian.Uint64(v)
	}
	return 0
}

var _ Recorder = (*Archive)(nil)
