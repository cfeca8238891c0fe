package planning

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/benbjohnson/clock"

	"github.com/openav/naviplan/logging"
)

// ReadPadMessages reads one pad command per line from r and hands each to deliver until r is
// exhausted or ctx is done. Blank lines and lines starting with '#' are skipped; malformed lines
// are logged and skipped.
func ReadPadMessages(ctx context.Context, r io.Reader, clk clock.Clock, deliver func(PadMessage), logger logging.Logger) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		msg, err := ParsePadMessage(line)
		if err != nil {
			logger.Warnw("ignoring malformed pad command", "line", line, "error", err)
			continue
		}
		msg.Received = clk.Now()
		logger.Debugw("pad command received", "action", msg.Action)
		deliver(msg)
	}
	return scanner.Err()
}
