// Package console prints bot status tables to a terminal.
package console

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/ladderbot/internal/domain"
)

type snapshotSource interface {
	Latest() []domain.StatusSnapshot
}

// Render writes one row per snapshot.
func Render(w io.Writer, snapshots []domain.StatusSnapshot) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("LADDERBOT STATUS")
	t.SetStyle(table.StyleRounded)

	t.AppendHeader(table.Row{"Pair", "Phase", "Price", "Position", "Avg entry", "Safety", "Take profit", "Stop loss", "Updated"})
	for _, s := range snapshots {
		phase := string(s.Phase)
		if s.StopReason != "" {
			phase = fmt.Sprintf("%s (%s)", phase, s.StopReason)
		}

		t.AppendRow(table.Row{
			s.Pair,
			phase,
			s.LastPrice.String(),
			s.PositionSize.String(),
			s.AverageEntryPrice.StringFixed(2),
			strconv.Itoa(len(s.FilledSafetyOrders)) + "/" + strconv.Itoa(len(s.FilledSafetyOrders)+len(s.RemainingLadder)),
			optional(s.TakeProfitPrice),
			optional(s.StopLossPrice),
			s.Timestamp.Format(time.TimeOnly),
		})
	}
	if len(snapshots) == 0 {
		t.AppendRow(table.Row{"-", "waiting for the first cycle"})
	}

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 10, Align: text.AlignLeft},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignCenter},
		{Number: 7, Align: text.AlignRight, Colors: text.Colors{text.FgGreen}},
		{Number: 8, Align: text.AlignRight, Colors: text.Colors{text.FgRed}},
	})

	t.Render()
}

// Run renders the latest snapshots every interval until ctx is done.
func Run(ctx context.Context, w io.Writer, source snapshotSource, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			Render(w, source.Latest())
		}
	}
}

func optional(d *decimal.Decimal) string {
	if d == nil {
		return "-"
	}
	return d.String()
}
