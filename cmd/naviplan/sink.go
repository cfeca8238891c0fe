package main

import (
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/openav/naviplan/logging"
	"github.com/openav/naviplan/services/planning"
)

// resultSink publishes planning results either as JSON lines or as log entries.
type resultSink struct {
	mu     sync.Mutex
	enc    *json.Encoder
	logger logging.Logger
}

func newResultSink(out io.Writer, asJSON bool, logger logging.Logger) *resultSink {
	sink := &resultSink{logger: logger}
	if asJSON {
		sink.enc = json.NewEncoder(out)
	}
	return sink
}

func (s *resultSink) Publish(ctx context.Context, result planning.Result) error {
	if s.enc != nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.enc.Encode(result)
	}
	keysAndValues := []interface{}{
		"sequence", result.Sequence,
		"source", result.Source,
		"action", result.Action,
		"target_lane", result.TargetLaneID,
		"points", len(result.Trajectory.Points),
		"degraded", result.Degraded,
	}
	if result.Source == planning.SourceFallback {
		s.logger.Infow("fallback trajectory", append(keysAndValues, "reason", result.FallbackReason)...)
		return nil
	}
	s.logger.CDebugw(ctx, "trajectory", keysAndValues...)
	return nil
}
