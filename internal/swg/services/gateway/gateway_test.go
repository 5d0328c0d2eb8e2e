package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calloway/swgate/internal/swg/common/clock"
	"github.com/calloway/swgate/internal/swg/domain"
	"github.com/calloway/swgate/internal/swg/services/classifier"
)

type stubClassifier struct {
	result classifier.Result
	calls  int
}

func (s *stubClassifier) Resolve(_ context.Context, host string) classifier.Result {
	s.calls++
	if s.result.Domain == "" {
		s.result.Domain = host
	}
	return s.result
}

type stubPolicy struct {
	verdicts map[domain.Category]domain.Verdict
}

func (s *stubPolicy) VerdictFor(cat domain.Category) domain.Verdict {
	if v, ok := s.verdicts[cat]; ok {
		return v
	}
	return domain.VerdictAllowed
}

type captureRecorder struct {
	records []domain.ActivityRecord
}

func (c *captureRecorder) Record(rec domain.ActivityRecord) {
	c.records = append(c.records, rec)
}

func newTestGateway(t *testing.T, cls DomainClassifier, pol PolicyResolver, rec Recorder) *Gateway {
	t.Helper()
	g, err := New(Options{
		Classifier: cls,
		Policy:     pol,
		Activity:   rec,
		Clock:      &clock.MockClock{CurrentTime: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)},
	})
	require.NoError(t, err)
	return g
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(Options{Policy: &stubPolicy{}})
	assert.Error(t, err)
	_, err = New(Options{Classifier: &stubClassifier{}})
	assert.Error(t, err)
}

func TestDecideBlocksByCategory(t *testing.T) {
	cls := &stubClassifier{result: classifier.Result{
		Domain:        "social.example.com",
		Category:      domain.Category("Social Media"),
		OracleLatency: 40 * time.Millisecond,
	}}
	pol := &stubPolicy{verdicts: map[domain.Category]domain.Verdict{
		"Social Media": domain.VerdictBlocked,
	}}
	rec := &captureRecorder{}
	g := newTestGateway(t, cls, pol, rec)

	verdict, record := g.Decide(context.Background(), domain.RequestDescriptor{
		Host:       "social.example.com:443",
		Scheme:     "https",
		ClientAddr: "10.0.0.5:51234",
	})

	assert.Equal(t, domain.VerdictBlocked, verdict)
	require.Len(t, rec.records, 1)
	got := rec.records[0]
	assert.Equal(t, record.ID, got.ID)
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, "social.example.com", got.Domain)
	assert.Equal(t, domain.Category("Social Media"), got.Category)
	assert.Equal(t, domain.VerdictBlocked, got.Verdict)
	assert.False(t, got.CacheHit)
	assert.Equal(t, 40*time.Millisecond, got.OracleLatency)
	assert.False(t, got.Timestamp.IsZero())
}

func TestDecideRecordsCacheHit(t *testing.T) {
	cls := &stubClassifier{result: classifier.Result{
		Domain:   "news.example.com",
		Category: domain.Category("News"),
		CacheHit: true,
	}}
	rec := &captureRecorder{}
	g := newTestGateway(t, cls, &stubPolicy{}, rec)

	verdict, _ := g.Decide(context.Background(), domain.RequestDescriptor{Host: "news.example.com"})

	assert.Equal(t, domain.VerdictAllowed, verdict)
	require.Len(t, rec.records, 1)
	assert.True(t, rec.records[0].CacheHit)
	assert.Equal(t, time.Duration(0), rec.records[0].OracleLatency)
}

func TestDecideCarriesClassificationFailure(t *testing.T) {
	cls := &stubClassifier{result: classifier.Result{
		Domain:    "slow.example.com",
		Category:  domain.Category("Uncategorized"),
		ErrorKind: domain.ErrorKindOracleTimeout,
	}}
	rec := &captureRecorder{}
	g := newTestGateway(t, cls, &stubPolicy{}, rec)

	verdict, record := g.Decide(context.Background(), domain.RequestDescriptor{Host: "slow.example.com"})

	assert.Equal(t, domain.VerdictAllowed, verdict)
	assert.Equal(t, domain.ErrorKindOracleTimeout, record.ErrorKind)
	assert.Equal(t, domain.Category("Uncategorized"), record.Category)
	require.Len(t, rec.records, 1)
}

func TestDecideReresolvesPolicyPerRequest(t *testing.T) {
	cls := &stubClassifier{result: classifier.Result{
		Domain:   "video.example.com",
		Category: domain.Category("Streaming"),
		CacheHit: true,
	}}
	pol := &stubPolicy{verdicts: map[domain.Category]domain.Verdict{
		"Streaming": domain.VerdictAllowed,
	}}
	g := newTestGateway(t, cls, pol, nil)

	verdict, _ := g.Decide(context.Background(), domain.RequestDescriptor{Host: "video.example.com"})
	assert.Equal(t, domain.VerdictAllowed, verdict)

	// operator flips the category between requests
	pol.verdicts["Streaming"] = domain.VerdictBlocked
	verdict, _ = g.Decide(context.Background(), domain.RequestDescriptor{Host: "video.example.com"})
	assert.Equal(t, domain.VerdictBlocked, verdict)
	assert.Equal(t, 2, cls.calls)
}

func TestDecideWithoutRecorder(t *testing.T) {
	cls := &stubClassifier{result: classifier.Result{Domain: "a.example.com", Category: "News"}}
	g := newTestGateway(t, cls, &stubPolicy{}, nil)
	verdict, record := g.Decide(context.Background(), domain.RequestDescriptor{Host: "a.example.com"})
	assert.Equal(t, domain.VerdictAllowed, verdict)
	assert.NotEmpty(t, record.ID)
}
