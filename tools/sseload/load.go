package main

import (
	"bufio"
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

type loadConfig struct {
	url         string
	connections int
	rampUp      time.Duration
	report      time.Duration
}

// counters are updated by every stream reader.
type counters struct {
	connected   atomic.Int64
	connectErrs atomic.Int64
	streamErrs  atomic.Int64
	statuses    atomic.Int64
	orders      atomic.Int64
	other       atomic.Int64
}

func (c *counters) fields() []zap.Field {
	return []zap.Field{
		zap.Int64("connected", c.connected.Load()),
		zap.Int64("connect_errs", c.connectErrs.Load()),
		zap.Int64("stream_errs", c.streamErrs.Load()),
		zap.Int64("status_events", c.statuses.Load()),
		zap.Int64("order_events", c.orders.Load()),
		zap.Int64("other_events", c.other.Load()),
	}
}

func newClient(connections int) *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			MaxConnsPerHost:     connections + 100,
			MaxIdleConns:        connections + 100,
			MaxIdleConnsPerHost: connections + 100,
			DisableCompression:  true,
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
		},
	}
}

// runLoad keeps cfg.connections streams open against cfg.url until ctx is done.
func runLoad(ctx context.Context, l *zap.Logger, cfg loadConfig) *counters {
	c := &counters{}
	client := newClient(cfg.connections)

	var interval time.Duration
	if cfg.rampUp > 0 {
		interval = cfg.rampUp / time.Duration(cfg.connections)
	}

	if cfg.report > 0 {
		go func() {
			ticker := time.NewTicker(cfg.report)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					l.Info("status", c.fields()...)
				}
			}
		}()
	}

	var wg sync.WaitGroup
	for i := 0; i < cfg.connections; i++ {
		if i > 0 && interval > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(interval):
			}
		}
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			stream(ctx, client, cfg.url, c)
		}()
	}
	wg.Wait()

	return c
}

func stream(ctx context.Context, client *http.Client, url string, c *counters) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		c.connectErrs.Add(1)
		return
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := client.Do(req)
	if err != nil {
		c.connectErrs.Add(1)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.connectErrs.Add(1)
		return
	}
	c.connected.Add(1)

	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		name, ok := strings.CutPrefix(sc.Text(), "event: ")
		if !ok {
			continue
		}
		switch name {
		case "status":
			c.statuses.Add(1)
		case "order":
			c.orders.Add(1)
		default:
			c.other.Add(1)
		}
	}
	if ctx.Err() == nil {
		c.streamErrs.Add(1)
	}
}
