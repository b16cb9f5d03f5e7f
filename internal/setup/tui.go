// Package setup runs the interactive wizard that writes a bot config file.
package setup

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/vadiminshakov/ladderbot/config"
	"github.com/vadiminshakov/ladderbot/internal/domain"
)

// DefaultConfigPath is where the wizard saves the config unless told otherwise.
const DefaultConfigPath = "config.yaml"

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1).
			MarginBottom(0)
)

// answers holds the raw wizard input.
type answers struct {
	platform          string
	pair              string
	pollInterval      string
	restartOnClose    bool
	simulateBalance   string
	baseOrderSize     string
	safetyOrderSize   string
	maxSafetyOrders   string
	takeProfit        string
	stopLoss          string
	trailingDeviation string
	sizeScale         string
	stepScale         string
}

func defaultAnswers() answers {
	def := domain.DefaultStrategyConfig()
	return answers{
		platform:          config.PlatformSimulate,
		pair:              "BTC_USDT",
		pollInterval:      "1m",
		simulateBalance:   "1000",
		baseOrderSize:     def.BaseOrderSize.String(),
		safetyOrderSize:   def.SafetyOrderSize.String(),
		maxSafetyOrders:   fmt.Sprint(def.MaxSafetyOrders),
		takeProfit:        def.TakeProfitPercentage.String(),
		stopLoss:          def.InitialStopLossPercentage.String(),
		trailingDeviation: def.TrailingDeviation.String(),
		sizeScale:         def.SafetyOrderSizeScale.String(),
		stepScale:         def.SafetyOrderStepScale.String(),
	}
}

func step(title string) {
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("LADDERBOT CONFIG WIZARD"))
	fmt.Println(stepStyle.Render(title))
}

// RunTUI asks for one bot's settings and saves them to path. It returns the
// path written.
func RunTUI(path string) (string, error) {
	if path == "" {
		path = DefaultConfigPath
	}
	a := defaultAnswers()

	step("STEP 1: PLATFORM")
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Simulation trades on paper against live Binance prices.\n"))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Select Exchange Platform").
				Options(
					huh.NewOption("Simulation", config.PlatformSimulate),
					huh.NewOption("Binance", config.PlatformBinance),
					huh.NewOption("Bybit", config.PlatformBybit),
				).
				Value(&a.platform),
		),
	).Run()
	if err != nil {
		return "", err
	}

	step("STEP 2: ASSET")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Trading Pair").
				Description("BASE_QUOTE, e.g. BTC_USDT").
				Value(&a.pair).
				Validate(func(s string) error {
					_, err := domain.ParsePair(s)
					return err
				}),
			huh.NewInput().
				Title("Poll Price Interval").
				Description("Duration string (e.g. 30s, 1m, 5m)").
				Value(&a.pollInterval).
				Validate(func(s string) error {
					_, err := time.ParseDuration(s)
					return err
				}),
			huh.NewConfirm().
				Title("Start a new deal after take profit or stop loss?").
				Value(&a.restartOnClose),
		),
	).Run()
	if err != nil {
		return "", err
	}

	step("STEP 3: LADDER")
	fields := []huh.Field{
		huh.NewInput().Title("Base order size").Description("Quote currency").Value(&a.baseOrderSize).Validate(positive),
		huh.NewInput().Title("First safety order size").Description("Quote currency").Value(&a.safetyOrderSize).Validate(positive),
		huh.NewInput().Title("Max safety orders").Value(&a.maxSafetyOrders),
		huh.NewInput().Title("Safety order size scale").Description("Each rung is this many times the previous").Value(&a.sizeScale).Validate(positive),
		huh.NewInput().Title("Safety order step scale").Description("Percent drop to the first rung, scaled for the next").Value(&a.stepScale).Validate(positive),
	}
	if a.platform == config.PlatformSimulate {
		fields = append(fields, huh.NewInput().Title("Paper balance").Description("Quote currency").Value(&a.simulateBalance).Validate(positive))
	}
	if err := huh.NewForm(huh.NewGroup(fields...)).Run(); err != nil {
		return "", err
	}

	step("STEP 4: EXITS")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Take profit").Description("Fraction of base price, 0.03 is 3%").Value(&a.takeProfit).Validate(fraction),
			huh.NewInput().Title("Initial stop loss").Description("Fraction of base price").Value(&a.stopLoss).Validate(fraction),
			huh.NewInput().Title("Trailing deviation").Description("Fraction, how far stops trail the price").Value(&a.trailingDeviation).Validate(fraction),
		),
	).Run()
	if err != nil {
		return "", err
	}

	tmp, err := buildConfig(a)
	if err != nil {
		return "", err
	}

	step("FINAL CONFIRMATION")
	fmt.Println(lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(1).Render(summary(tmp)))

	var confirm bool
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save Configuration?").
				Affirmative("Yes, save and start").
				Negative("No, exit").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return "", err
	}
	if !confirm {
		return "", errors.New("setup cancelled by user")
	}

	if err := writeConfig(path, tmp); err != nil {
		return "", err
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render(fmt.Sprintf("\nConfiguration saved to %s\nStarting bot...", path)))
	time.Sleep(1500 * time.Millisecond)
	return path, nil
}

// buildConfig turns wizard input into a yaml entry, rejecting anything the
// config loader would reject.
func buildConfig(a answers) (config.ConfigTmp, error) {
	poll, err := time.ParseDuration(a.pollInterval)
	if err != nil {
		return config.ConfigTmp{}, errors.Wrapf(domain.ErrConfiguration, "poll interval %q: %v", a.pollInterval, err)
	}

	tmp := config.ConfigTmp{
		Platform:                  a.platform,
		Pair:                      strings.ToUpper(strings.TrimSpace(a.pair)),
		PollPriceInterval:         poll,
		RestartOnClose:            a.restartOnClose,
		BaseOrderSize:             a.baseOrderSize,
		SafetyOrderSize:           a.safetyOrderSize,
		MaxSafetyOrders:           a.maxSafetyOrders,
		TakeProfitPercentage:      a.takeProfit,
		InitialStopLossPercentage: a.stopLoss,
		TrailingDeviation:         a.trailingDeviation,
		SafetyOrderSizeScale:      a.sizeScale,
		SafetyOrderStepScale:      a.stepScale,
	}
	if a.platform == config.PlatformSimulate {
		tmp.SimulateBalance = a.simulateBalance
	}

	if _, err := tmp.Config(); err != nil {
		return config.ConfigTmp{}, err
	}
	return tmp, nil
}

func writeConfig(path string, tmp config.ConfigTmp) error {
	data, err := yaml.Marshal([]config.ConfigTmp{tmp})
	if err != nil {
		return errors.Wrap(err, "failed to generate yaml")
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.Wrap(err, "failed to save config file")
	}
	return nil
}

func summary(tmp config.ConfigTmp) string {
	return fmt.Sprintf(
		"Platform: %s\nPair: %s\nInterval: %s\nBase / safety: %s / %s x%s\nTake profit: %s\nStop loss: %s\nTrailing: %s\n",
		tmp.Platform, tmp.Pair, tmp.PollPriceInterval,
		tmp.BaseOrderSize, tmp.SafetyOrderSize, tmp.MaxSafetyOrders,
		tmp.TakeProfitPercentage, tmp.InitialStopLossPercentage, tmp.TrailingDeviation,
	)
}

func positive(s string) error {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return errors.New("must be a valid number")
	}
	if !d.IsPositive() {
		return errors.New("must be greater than zero")
	}
	return nil
}

func fraction(s string) error {
	if err := positive(s); err != nil {
		return err
	}
	if d, _ := decimal.NewFromString(s); d.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return errors.New("must be below 1")
	}
	return nil
}
