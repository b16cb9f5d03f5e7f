package internal

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/ladderbot/config"
	"github.com/vadiminshakov/ladderbot/internal/services/strategy/ladder"
)

// NewBot wires a trading bot for conf on top of client, which is one of the
// values returned by clients.ForPlatform.
func NewBot(l *zap.Logger, conf config.Config, client any, opts ...BotOption) (*TradingBot, error) {
	l = l.With(zap.String("pair", conf.Pair.String()), zap.String("platform", conf.Platform))

	provider, err := newServiceProvider(client, l)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create service provider")
	}

	exchange, err := provider.Exchange(conf.Pair, conf.SimulateBalance)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create %s exchange", conf.Platform)
	}

	engine, err := ladder.NewEngine(l, conf.Pair, conf.Strategy, exchange)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create ladder engine")
	}

	return NewTradingBot(l, conf, engine, opts...), nil
}
