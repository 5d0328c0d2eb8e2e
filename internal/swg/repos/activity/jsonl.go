package activity

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/calloway/swgate/internal/swg/domain"
)

// JSONLRecorder appends one JSON object per decision to a log file.
// Encoding rides on a dedicated zap core so the sink gets buffering,
// atomic line writes, and append-mode file handling for free.
type JSONLRecorder struct {
	core  *zap.Logger
	close func() error
}

// NewJSONL opens (or creates) the JSONL file at path in append mode.
func NewJSONL(path string) (*JSONLRecorder, error) {
	enc := zapcore.EncoderConfig{
		MessageKey:     "event",
		LevelKey:       zapcore.OmitKey,
		TimeKey:        zapcore.OmitKey,
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		LineEnding:     zapcore.DefaultLineEnding,
	}
	sink, closeSink, err := zap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open activity log %q: %w", path, err)
	}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(enc), sink, zapcore.InfoLevel)
	return &JSONLRecorder{
		core:  zap.New(core),
		close: func() error { closeSink(); return nil },
	}, nil
}

// Record appends one line for the decision.
func (j *JSONLRecorder) Record(rec domain.ActivityRecord) {
	fields := []zap.Field{
		zap.String("id", rec.ID),
		zap.String("domain", rec.Domain),
		zap.String("category", string(rec.Category)),
		zap.String("verdict", rec.Verdict.String()),
		zap.Bool("cacheHit", rec.CacheHit),
		zap.Duration("latencyMs", rec.Latency),
		zap.Time("timestamp", rec.Timestamp),
	}
	if rec.OracleLatency > 0 {
		fields = append(fields, zap.Duration("oracleLatencyMs", rec.OracleLatency))
	}
	if !rec.ErrorKind.IsZero() {
		fields = append(fields, zap.String("errorKind", string(rec.ErrorKind)))
	}
	j.core.Info("decision", fields...)
}

// Close flushes and releases the underlying file.
func (j *JSONLRecorder) Close() error {
	_ = j.core.Sync()
	return j.close()
}

// compile-time interface check
var _ Recorder = (*JSONLRecorder)(nil)
