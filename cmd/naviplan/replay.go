package main

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"github.com/openav/naviplan/logging"
	"github.com/openav/naviplan/services/planning"
)

// readLocalization reads one LocalizationEstimate per line. Blank lines and lines starting with
// '#' are skipped.
func readLocalization(path string) ([]planning.LocalizationEstimate, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer goutils.UncheckedErrorFunc(f.Close)

	var samples []planning.LocalizationEstimate
	scanner := bufio.NewScanner(f)
	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		var sample planning.LocalizationEstimate
		if err := json.Unmarshal([]byte(text), &sample); err != nil {
			return nil, errors.Wrapf(err, "%s:%d", path, line)
		}
		samples = append(samples, sample)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, errors.Errorf("%s: no localization samples", path)
	}
	return samples, nil
}

// replayLocalization publishes one sample per period, stamped with the current time. The last
// sample is held once the replay is exhausted, so it eventually goes stale.
func replayLocalization(
	ctx context.Context,
	clk clock.Clock,
	period time.Duration,
	samples []planning.LocalizationEstimate,
	buffer *planning.LocalizationBuffer,
	logger logging.Logger,
) {
	ticker := clk.Ticker(period)
	defer ticker.Stop()
	for _, sample := range samples {
		sample.Timestamp = clk.Now()
		buffer.Update(sample)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
	logger.Infow("localization replay finished", "samples", len(samples))
}
