package planning

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/a8m/envsubst"
	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"github.com/openav/naviplan/logging"
)

// Defaults applied by Config.ApplyDefaults.
const (
	DefaultStrategy           = "navi"
	DefaultTickPeriod         = 100 * time.Millisecond
	DefaultMaxLocalizationAge = 500 * time.Millisecond
	DefaultFallbackPoints     = 10
	DefaultFallbackStep       = 100 * time.Millisecond
	DefaultCruiseSpeed        = 10.0
)

// OriginConfig anchors GNSS localization to the map frame.
type OriginConfig struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// LogConfig configures the planner's logger.
type LogConfig struct {
	Level      string `json:"level"`
	File       string `json:"file"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
}

// Config describes how to configure the planner.
type Config struct {
	Strategy string `json:"strategy"`
	// TickPeriod controls how often RunOnce is invoked.
	TickPeriod time.Duration `json:"tick_period"`
	// OptimizerTimeout bounds each optimizer call; defaults to 80% of the tick period.
	OptimizerTimeout time.Duration `json:"optimizer_timeout"`
	// MaxLocalizationAge is the age past which a sample counts as missing. Zero disables the check.
	MaxLocalizationAge  *time.Duration `json:"max_localization_age"`
	FallbackPoints      int            `json:"fallback_points"`
	FallbackStep        time.Duration  `json:"fallback_step"`
	ReuseLastTrajectory bool           `json:"reuse_last_trajectory"`
	MapFile             string         `json:"map_file"`
	WatchMap            bool           `json:"watch_map"`
	Origin              *OriginConfig  `json:"origin"`
	// CruiseSpeed is in meters per second.
	CruiseSpeed float64   `json:"cruise_speed"`
	Log         LogConfig `json:"log"`

	// Attributes holds strategy specific settings that are not part of this struct.
	Attributes map[string]any `json:"attributes"`
}

// ApplyDefaults fills every unset field with its default.
func (c *Config) ApplyDefaults() {
	if c.Strategy == "" {
		c.Strategy = DefaultStrategy
	}
	if c.TickPeriod == 0 {
		c.TickPeriod = DefaultTickPeriod
	}
	if c.OptimizerTimeout == 0 {
		c.OptimizerTimeout = c.TickPeriod * 4 / 5
	}
	if c.MaxLocalizationAge == nil {
		age := DefaultMaxLocalizationAge
		c.MaxLocalizationAge = &age
	}
	if c.FallbackPoints == 0 {
		c.FallbackPoints = DefaultFallbackPoints
	}
	if c.FallbackStep == 0 {
		c.FallbackStep = DefaultFallbackStep
	}
	if c.CruiseSpeed == 0 {
		c.CruiseSpeed = DefaultCruiseSpeed
	}
}

// LocalizationMaxAge returns the configured staleness bound, zero when disabled.
func (c *Config) LocalizationMaxAge() time.Duration {
	if c.MaxLocalizationAge == nil {
		return 0
	}
	return *c.MaxLocalizationAge
}

// Validate ensures all parts of the config are valid.
func (c *Config) Validate(path string) error {
	var errs error
	fieldPath := func(field string) string {
		if path == "" {
			return field
		}
		return fmt.Sprintf("%s.%s", path, field)
	}
	if c.TickPeriod <= 0 {
		errs = multierr.Append(errs, goutils.NewConfigValidationError(fieldPath("tick_period"),
			errors.New("must be positive")))
	}
	if c.OptimizerTimeout < 0 {
		errs = multierr.Append(errs, goutils.NewConfigValidationError(fieldPath("optimizer_timeout"),
			errors.New("cannot be negative")))
	}
	if c.TickPeriod > 0 && c.OptimizerTimeout > c.TickPeriod {
		errs = multierr.Append(errs, goutils.NewConfigValidationError(fieldPath("optimizer_timeout"),
			errors.Errorf("%s exceeds tick_period %s", c.OptimizerTimeout, c.TickPeriod)))
	}
	if c.LocalizationMaxAge() < 0 {
		errs = multierr.Append(errs, goutils.NewConfigValidationError(fieldPath("max_localization_age"),
			errors.New("cannot be negative")))
	}
	if c.FallbackPoints < 0 {
		errs = multierr.Append(errs, goutils.NewConfigValidationError(fieldPath("fallback_points"),
			errors.New("cannot be negative")))
	}
	if c.FallbackStep < 0 {
		errs = multierr.Append(errs, goutils.NewConfigValidationError(fieldPath("fallback_step"),
			errors.New("cannot be negative")))
	}
	if c.CruiseSpeed < 0 {
		errs = multierr.Append(errs, goutils.NewConfigValidationError(fieldPath("cruise_speed"),
			errors.New("cannot be negative")))
	}
	if c.WatchMap && c.MapFile == "" {
		errs = multierr.Append(errs, goutils.NewConfigValidationFieldRequiredError(path, "map_file"))
	}
	if c.Log.Level != "" {
		if _, err := logging.LevelFromString(c.Log.Level); err != nil {
			errs = multierr.Append(errs, goutils.NewConfigValidationError(fieldPath("log.level"), err))
		}
	}
	return errs
}

// DecodeAttributes decodes a generic attribute map into out, which must be a pointer to a struct
// with json tags. Duration fields accept strings such as "250ms".
func DecodeAttributes(attributes map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           out,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return err
	}
	return decoder.Decode(attributes)
}

// ConfigFromAttributes builds a Config from an attribute map and applies defaults.
func ConfigFromAttributes(attributes map[string]any) (*Config, error) {
	var cfg Config
	if err := DecodeAttributes(attributes, &cfg); err != nil {
		return nil, errors.Wrap(err, "decoding planning config")
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}

// ReadConfig reads a JSON config file, substituting environment variables first, then applies
// defaults and validates it.
func ReadConfig(path string) (*Config, error) {
	buf, err := envsubst.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading config %q", path)
	}
	var attributes map[string]any
	if err := json.Unmarshal(buf, &attributes); err != nil {
		return nil, errors.Wrapf(err, "decoding config %q", path)
	}
	cfg, err := ConfigFromAttributes(attributes)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(""); err != nil {
		return nil, err
	}
	return cfg, nil
}
