package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	goutils "go.viam.com/utils"

	"github.com/openav/naviplan/hdmap"
	"github.com/openav/naviplan/logging"
	"github.com/openav/naviplan/services/planning"
	"github.com/openav/naviplan/services/planning/lanefollow"
	"github.com/openav/naviplan/services/planning/navi"
	"github.com/openav/naviplan/utils"
)

// laneFollowAttribute holds lanefollow.Options inside the config attributes.
const laneFollowAttribute = "lane_follow"

// RunAction runs the configured strategy until the context is done.
func RunAction(c *cli.Context) error {
	cfg, err := planning.ReadConfig(c.String(flagConfig))
	if err != nil {
		return err
	}
	logger, cleanup, err := newLogger(c, cfg.Log)
	if err != nil {
		return err
	}
	defer cleanup()
	logging.ReplaceGlobal(logger)

	if cfg.MapFile == "" {
		return errors.New("map_file is required to run the planner")
	}
	lanes, err := hdmap.ReadMap(cfg.MapFile)
	if err != nil {
		return err
	}
	if cfg.WatchMap {
		watcher, err := hdmap.NewWatcher(cfg.MapFile, lanes, logger.Sublogger("hdmap"))
		if err != nil {
			return err
		}
		defer goutils.UncheckedErrorFunc(watcher.Close)
	}

	optimizer, err := newOptimizer(cfg, lanes, logger)
	if err != nil {
		return err
	}

	clk := clock.New()
	localization := &planning.LocalizationBuffer{}
	strategy, err := planning.NewStrategy(planning.Dependencies{
		Map:          lanes,
		Optimizer:    optimizer,
		Localization: localization,
		Sink:         newResultSink(c.App.Writer, c.Bool(flagJSON), logger.Sublogger("sink")),
		Clock:        clk,
	}, cfg, logger)
	if err != nil {
		return err
	}
	if err := strategy.Init(c.Context); err != nil {
		return err
	}

	ctx := c.Context
	if d := c.Duration(flagDuration); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	workers := utils.NewStoppableWorkersWithContext(ctx)
	defer workers.Stop()
	if path := c.String(flagLocalization); path != "" {
		samples, err := readLocalization(path)
		if err != nil {
			return err
		}
		workers.AddWorkers(func(ctx context.Context) {
			replayLocalization(ctx, clk, cfg.TickPeriod, samples, localization, logger)
		})
	}
	if path := c.String(flagPads); path != "" {
		pads, err := openPads(c, path)
		if err != nil {
			return err
		}
		defer goutils.UncheckedErrorFunc(pads.Close)
		// A reader blocked on stdin cannot be interrupted, so it is not waited for.
		goutils.PanicCapturingGo(func() {
			if err := planning.ReadPadMessages(ctx, pads, clk, strategy.OnPad, logger); err != nil &&
				!errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
				logger.Warnw("stopped reading pad commands", "error", err)
			}
		})
	}

	if err := strategy.Start(ctx); err != nil {
		return err
	}
	logger.Infow("planning", "strategy", strategy.Name(), "tick_period", cfg.TickPeriod, "map", cfg.MapFile)
	<-ctx.Done()

	if err := strategy.Stop(context.Background()); err != nil {
		return err
	}
	if reporter, ok := strategy.(interface{ Stats() navi.Stats }); ok {
		stats := reporter.Stats()
		logger.Infow("planner stopped", "cycles", stats.Cycles, "fallbacks", stats.Fallbacks)
		fmt.Fprintln(c.App.ErrWriter, statsTable(stats))
	}
	return nil
}

// ValidateAction checks a configuration file, its strategy attributes and its lane map.
func ValidateAction(c *cli.Context) error {
	path := c.String(flagConfig)
	cfg, err := planning.ReadConfig(path)
	if err != nil {
		return err
	}
	logger := logging.NewLogger("validate", logging.INFO)
	if _, err := planning.NewStrategy(planning.Dependencies{}, cfg, logger); err != nil {
		return err
	}
	lanesMsg := "no map"
	if cfg.MapFile != "" {
		lanes, err := hdmap.ReadMap(cfg.MapFile)
		if err != nil {
			return err
		}
		if _, err := newOptimizer(cfg, lanes, logger); err != nil {
			return err
		}
		lanesMsg = fmt.Sprintf("%d lanes", len(lanes.LaneIDs()))
	}
	fmt.Fprintf(c.App.Writer, "%s: ok (strategy %s, %s)\n", path, cfg.Strategy, lanesMsg)
	return nil
}

// StrategiesAction lists the registered strategies.
func StrategiesAction(c *cli.Context) error {
	fmt.Fprintln(c.App.Writer, strings.Join(planning.RegisteredStrategies(), "\n"))
	return nil
}

func newLogger(c *cli.Context, cfg planning.LogConfig) (logging.Logger, func(), error) {
	level := logging.INFO
	if cfg.Level != "" {
		var err error
		if level, err = logging.LevelFromString(cfg.Level); err != nil {
			return nil, nil, err
		}
	}
	if c.Bool(flagDebug) {
		level = logging.DEBUG
	}

	logger := logging.NewLogger("naviplan", level, logging.NewWriterAppender(c.App.ErrWriter))
	if cfg.File == "" {
		return logger, func() { goutils.UncheckedError(logger.Sync()) }, nil
	}

	appender, closer := logging.NewFileAppender(logging.FileAppenderConfig{
		Filename:   cfg.File,
		MaxSizeMB:  cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
	})
	logger.AddAppender(appender)
	return logger, func() {
		goutils.UncheckedError(logger.Sync())
		goutils.UncheckedError(closer.Close())
	}, nil
}

func newOptimizer(cfg *planning.Config, lanes hdmap.Service, logger logging.Logger) (*lanefollow.Optimizer, error) {
	opts := lanefollow.Options{CruiseSpeed: cfg.CruiseSpeed}
	if raw, ok := cfg.Attributes[laneFollowAttribute]; ok {
		attrs, err := utils.AssertType[map[string]any](raw)
		if err != nil {
			return nil, errors.Wrapf(err, "attributes.%s", laneFollowAttribute)
		}
		if err := planning.DecodeAttributes(attrs, &opts); err != nil {
			return nil, errors.Wrapf(err, "decoding attributes.%s", laneFollowAttribute)
		}
	}
	return lanefollow.NewOptimizer(lanes, opts, logger.Sublogger("lanefollow"))
}

func openPads(c *cli.Context, path string) (io.ReadCloser, error) {
	if path == "-" {
		if c.App.Reader != nil {
			return io.NopCloser(c.App.Reader), nil
		}
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}
