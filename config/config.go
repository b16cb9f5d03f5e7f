package config

import (
	"flag"
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/ladderbot/internal/domain"
	"gopkg.in/yaml.v3"
)

const (
	PlatformSimulate = "simulate"
	PlatformBinance  = "binance"
	PlatformBybit    = "bybit"

	defaultPollPriceInterval = time.Minute
	defaultCycleTimeout      = 30 * time.Second
	defaultJournalDir        = "./wal/orders"
)

// defaultSimulateBalance is the quote balance a fresh paper account starts with.
var defaultSimulateBalance = decimal.NewFromInt(1000)

// Config describes one bot: a pair traded on a platform with its ladder parameters.
type Config struct {
	Platform          string
	Pair              domain.Pair
	PollPriceInterval time.Duration
	CycleTimeout      time.Duration
	RestartOnClose    bool
	// SimulateBalance funds a fresh paper account, simulate platform only.
	SimulateBalance decimal.Decimal
	Strategy        domain.StrategyConfig
}

// Options are process-wide switches that are not tied to a single bot.
type Options struct {
	ConfigPath  string
	EnvFile     string
	Setup       bool
	ExportPath  string
	WebAddr     string
	TLSDomain   string
	TLSCacheDir string
	Console     bool
	JournalDir  string
}

// ConfigTmp is the yaml form of Config. Numbers are strings so that decimals
// survive the round trip; empty fields take defaults.
type ConfigTmp struct {
	Platform                  string        `yaml:"platform"`
	Pair                      string        `yaml:"pair"`
	PollPriceInterval         time.Duration `yaml:"poll_price_interval,omitempty"`
	CycleTimeout              time.Duration `yaml:"cycle_timeout,omitempty"`
	RestartOnClose            bool          `yaml:"restart_on_close,omitempty"`
	SimulateBalance           string        `yaml:"simulate_balance,omitempty"`
	BaseOrderSize             string        `yaml:"base_order_size,omitempty"`
	SafetyOrderSize           string        `yaml:"safety_order_size,omitempty"`
	TakeProfitPercentage      string        `yaml:"take_profit_percentage,omitempty"`
	InitialStopLossPercentage string        `yaml:"initial_stop_loss_percentage,omitempty"`
	TrailingDeviation         string        `yaml:"trailing_deviation,omitempty"`
	TakeProfitIncrementFactor string        `yaml:"take_profit_increment_factor,omitempty"`
	MaxSafetyOrders           string        `yaml:"max_safety_orders,omitempty"`
	SafetyOrderSizeScale      string        `yaml:"safety_order_size_scale,omitempty"`
	SafetyOrderStepScale      string        `yaml:"safety_order_step_scale,omitempty"`
	ActivationPercentage      string        `yaml:"activation_percentage,omitempty"`
}

// Get reads bot configs and options from the process arguments.
func Get() ([]Config, Options, error) {
	return Parse(os.Args[1:])
}

// Parse reads bot configs and options from args. With -config the bots come
// from the yaml file, otherwise a single bot is built from flags. In setup and
// export modes no bots are returned.
func Parse(args []string) ([]Config, Options, error) {
	fs := flag.NewFlagSet("ladderbot", flag.ContinueOnError)

	var opts Options
	fs.StringVar(&opts.ConfigPath, "config", "", "path to yaml config")
	fs.StringVar(&opts.EnvFile, "env", "", "path to .env file with exchange credentials")
	fs.BoolVar(&opts.Setup, "setup", false, "run the interactive config wizard")
	fs.StringVar(&opts.ExportPath, "export", "", "export order history to the given .xlsx file and exit")
	fs.StringVar(&opts.WebAddr, "web", "", "serve the dashboard on addr, example: :8080")
	fs.StringVar(&opts.TLSDomain, "tls-domain", "", "serve the dashboard over TLS with a Let's Encrypt certificate for this domain")
	fs.StringVar(&opts.TLSCacheDir, "tls-cache", "./certs", "certificate cache dir")
	fs.BoolVar(&opts.Console, "console", false, "print a status table after every cycle")
	fs.StringVar(&opts.JournalDir, "journal", defaultJournalDir, "order journal dir")

	def := domain.DefaultStrategyConfig()
	platform := fs.String("platform", PlatformSimulate, "exchange: simulate, binance or bybit")
	pair := fs.String("pair", "BTC_USDT", "trade pair, example: BTC_USDT")
	poll := fs.Duration("pollpriceinterval", defaultPollPriceInterval, "poll market price interval")
	cycleTimeout := fs.Duration("cycletimeout", defaultCycleTimeout, "max duration of one strategy cycle")
	restart := fs.Bool("restartonclose", false, "start a new deal after take profit or stop loss fills")
	simBalance := fs.String("simulatebalance", defaultSimulateBalance.String(), "quote balance of a fresh paper account")
	baseSize := fs.String("baseordersize", def.BaseOrderSize.String(), "base order size in quote currency")
	safetySize := fs.String("safetyordersize", def.SafetyOrderSize.String(), "first safety order size in quote currency")
	maxSafety := fs.Int("maxsafetyorders", def.MaxSafetyOrders, "number of safety orders")
	tp := fs.String("takeprofit", def.TakeProfitPercentage.String(), "take profit, fraction of base price")
	sl := fs.String("stoploss", def.InitialStopLossPercentage.String(), "initial stop loss, fraction of base price")

	if err := fs.Parse(args); err != nil {
		return nil, Options{}, errors.Wrap(domain.ErrConfiguration, err.Error())
	}

	if opts.Setup || opts.ExportPath != "" {
		return nil, opts, nil
	}

	if opts.ConfigPath != "" {
		configs, err := Load(opts.ConfigPath)
		return configs, opts, err
	}

	c := ConfigTmp{
		Platform:                  *platform,
		Pair:                      *pair,
		PollPriceInterval:         *poll,
		CycleTimeout:              *cycleTimeout,
		RestartOnClose:            *restart,
		SimulateBalance:           *simBalance,
		BaseOrderSize:             *baseSize,
		SafetyOrderSize:           *safetySize,
		MaxSafetyOrders:           strconv.Itoa(*maxSafety),
		TakeProfitPercentage:      *tp,
		InitialStopLossPercentage: *sl,
	}
	conf, err := c.Config()
	if err != nil {
		return nil, Options{}, err
	}

	return []Config{conf}, opts, nil
}

// Load reads a yaml list of bot configs from path.
func Load(path string) ([]Config, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}

	var configsTmp []ConfigTmp
	if err := yaml.Unmarshal(f, &configsTmp); err != nil {
		return nil, errors.Wrapf(domain.ErrConfiguration, "parse config %s: %v", path, err)
	}
	if len(configsTmp) == 0 {
		return nil, errors.Wrapf(domain.ErrConfiguration, "config %s has no bots", path)
	}

	configs := make([]Config, 0, len(configsTmp))
	seen := make(map[string]struct{}, len(configsTmp))
	for i, c := range configsTmp {
		conf, err := c.Config()
		if err != nil {
			return nil, errors.Wrapf(err, "bot #%d", i+1)
		}

		key := conf.Platform + "/" + conf.Pair.String()
		if _, ok := seen[key]; ok {
			return nil, errors.Wrapf(domain.ErrConfiguration, "bot #%d: %s is configured twice", i+1, key)
		}
		seen[key] = struct{}{}

		configs = append(configs, conf)
	}

	return configs, nil
}

// Config converts the yaml form into a validated Config.
func (c ConfigTmp) Config() (Config, error) {
	switch c.Platform {
	case "":
		c.Platform = PlatformSimulate
	case PlatformSimulate, PlatformBinance, PlatformBybit:
	default:
		return Config{}, errors.Wrapf(domain.ErrConfiguration, "unsupported platform %q", c.Platform)
	}

	pair, err := domain.ParsePair(c.Pair)
	if err != nil {
		return Config{}, err
	}

	conf := Config{
		Platform:          c.Platform,
		Pair:              pair,
		PollPriceInterval: c.PollPriceInterval,
		CycleTimeout:      c.CycleTimeout,
		RestartOnClose:    c.RestartOnClose,
		SimulateBalance:   defaultSimulateBalance,
		Strategy:          domain.DefaultStrategyConfig(),
	}
	if conf.PollPriceInterval <= 0 {
		conf.PollPriceInterval = defaultPollPriceInterval
	}
	if conf.CycleTimeout <= 0 {
		conf.CycleTimeout = defaultCycleTimeout
	}

	if c.SimulateBalance != "" {
		v, err := decimal.NewFromString(c.SimulateBalance)
		if err != nil || v.IsNegative() {
			return Config{}, errors.Wrapf(domain.ErrConfiguration, "incorrect 'simulate_balance' param %q (must be a non-negative decimal)", c.SimulateBalance)
		}
		conf.SimulateBalance = v
	}

	s := &conf.Strategy
	fields := []struct {
		name  string
		value string
		dst   *decimal.Decimal
	}{
		{"base_order_size", c.BaseOrderSize, &s.BaseOrderSize},
		{"safety_order_size", c.SafetyOrderSize, &s.SafetyOrderSize},
		{"take_profit_percentage", c.TakeProfitPercentage, &s.TakeProfitPercentage},
		{"initial_stop_loss_percentage", c.InitialStopLossPercentage, &s.InitialStopLossPercentage},
		{"trailing_deviation", c.TrailingDeviation, &s.TrailingDeviation},
		{"take_profit_increment_factor", c.TakeProfitIncrementFactor, &s.TakeProfitIncrementFactor},
		{"safety_order_size_scale", c.SafetyOrderSizeScale, &s.SafetyOrderSizeScale},
		{"safety_order_step_scale", c.SafetyOrderStepScale, &s.SafetyOrderStepScale},
		{"activation_percentage", c.ActivationPercentage, &s.ActivationPercentage},
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		v, err := decimal.NewFromString(f.value)
		if err != nil {
			return Config{}, errors.Wrapf(domain.ErrConfiguration, "incorrect '%s' param %q (must be a decimal)", f.name, f.value)
		}
		*f.dst = v
	}

	if c.MaxSafetyOrders != "" {
		n, err := strconv.Atoi(c.MaxSafetyOrders)
		if err != nil {
			return Config{}, errors.Wrapf(domain.ErrConfiguration, "incorrect 'max_safety_orders' param %q (must be an integer)", c.MaxSafetyOrders)
		}
		s.MaxSafetyOrders = n
	}

	if err := s.Validate(); err != nil {
		return Config{}, errors.Wrapf(err, "pair %s", pair.String())
	}

	return conf, nil
}

// Template converts a Config back into its yaml form.
func Template(conf Config) ConfigTmp {
	s := conf.Strategy
	return ConfigTmp{
		Platform:                  conf.Platform,
		Pair:                      conf.Pair.String(),
		PollPriceInterval:         conf.PollPriceInterval,
		CycleTimeout:              conf.CycleTimeout,
		RestartOnClose:            conf.RestartOnClose,
		SimulateBalance:           conf.SimulateBalance.String(),
		BaseOrderSize:             s.BaseOrderSize.String(),
		SafetyOrderSize:           s.SafetyOrderSize.String(),
		TakeProfitPercentage:      s.TakeProfitPercentage.String(),
		InitialStopLossPercentage: s.InitialStopLossPercentage.String(),
		TrailingDeviation:         s.TrailingDeviation.String(),
		TakeProfitIncrementFactor: s.TakeProfitIncrementFactor.String(),
		MaxSafetyOrders:           strconv.Itoa(s.MaxSafetyOrders),
		SafetyOrderSizeScale:      s.SafetyOrderSizeScale.String(),
		SafetyOrderStepScale:      s.SafetyOrderStepScale.String(),
		ActivationPercentage:      s.ActivationPercentage.String(),
	}
}
