// Package report exports the order journal to spreadsheets.
package report

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/vadiminshakov/ladderbot/internal/domain"
)

const (
	ordersSheet  = "Orders"
	summarySheet = "Summary"
)

var orderHeaders = []string{"Index", "Time", "Pair", "Kind", "Role", "Rung", "Order ID", "Side", "Price", "Size", "Notional", "Status", "Error"}

var summaryHeaders = []string{"Pair", "Placed", "Cancelled", "Failed", "Buy notional", "Sell notional"}

type pairSummary struct {
	placed, cancelled, failed int
	buy, sell                 decimal.Decimal
}

// WriteOrdersXLSX writes records to path: one row per command on the Orders
// sheet and per-pair totals on the Summary sheet.
func WriteOrdersXLSX(records []domain.CommandRecord, path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create directory %s", dir)
		}
	}

	fx := excelize.NewFile()
	defer fx.Close()

	if err := fx.SetSheetName(fx.GetSheetName(0), ordersSheet); err != nil {
		return errors.Wrap(err, "rename default sheet")
	}
	if _, err := fx.NewSheet(summarySheet); err != nil {
		return errors.Wrap(err, "create summary sheet")
	}

	header, err := fx.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"2F4F4F"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return errors.Wrap(err, "create header style")
	}
	failed, err := fx.NewStyle(&excelize.Style{Font: &excelize.Font{Color: "B3261E"}})
	if err != nil {
		return errors.Wrap(err, "create error style")
	}

	if err := writeHeader(fx, ordersSheet, orderHeaders, header); err != nil {
		return err
	}
	if err := writeHeader(fx, summarySheet, summaryHeaders, header); err != nil {
		return err
	}

	summaries := make(map[string]*pairSummary)
	for i, rec := range records {
		c := rec.Command
		row := i + 2
		notional := c.Price.Mul(c.Size)

		cell, _ := excelize.CoordinatesToCellName(1, row)
		values := []any{
			rec.Index,
			c.Time.UTC().Format("2006-01-02 15:04:05"),
			c.Pair,
			string(c.Kind),
			string(c.Role),
			c.RungIndex,
			c.OrderID,
			string(c.Side),
			c.Price.InexactFloat64(),
			c.Size.InexactFloat64(),
			notional.InexactFloat64(),
			string(c.Status),
			c.Err,
		}
		if err := fx.SetSheetRow(ordersSheet, cell, &values); err != nil {
			return errors.Wrapf(err, "write journal record %d", rec.Index)
		}
		if !c.Succeeded() {
			last, _ := excelize.CoordinatesToCellName(len(values), row)
			if err := fx.SetCellStyle(ordersSheet, cell, last, failed); err != nil {
				return errors.Wrap(err, "style failed command")
			}
		}

		s, ok := summaries[c.Pair]
		if !ok {
			s = &pairSummary{}
			summaries[c.Pair] = s
		}
		switch {
		case !c.Succeeded():
			s.failed++
		case c.Kind == domain.CommandCancel || c.Kind == domain.CommandCancelAll:
			s.cancelled++
		case c.Kind == domain.CommandPlaceBuy:
			s.placed++
			s.buy = s.buy.Add(notional)
		case c.Kind == domain.CommandPlaceSell:
			s.placed++
			s.sell = s.sell.Add(notional)
		}
	}

	pairs := make([]string, 0, len(summaries))
	for p := range summaries {
		pairs = append(pairs, p)
	}
	sort.Strings(pairs)

	for i, p := range pairs {
		s := summaries[p]
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		values := []any{p, s.placed, s.cancelled, s.failed, s.buy.InexactFloat64(), s.sell.InexactFloat64()}
		if err := fx.SetSheetRow(summarySheet, cell, &values); err != nil {
			return errors.Wrapf(err, "write summary for %s", p)
		}
	}

	if err := fx.SetColWidth(ordersSheet, "B", "B", 20); err != nil {
		return errors.Wrap(err, "set column width")
	}
	if err := fx.SetColWidth(ordersSheet, "G", "G", 38); err != nil {
		return errors.Wrap(err, "set column width")
	}
	if err := fx.SetColWidth(ordersSheet, "M", "M", 60); err != nil {
		return errors.Wrap(err, "set column width")
	}

	return errors.Wrapf(fx.SaveAs(path), "save %s", path)
}

func writeHeader(fx *excelize.File, sheet string, headers []string, style int) error {
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := fx.SetCellValue(sheet, cell, h); err != nil {
			return errors.Wrapf(err, "write %s header", sheet)
		}
	}

	first, _ := excelize.CoordinatesToCellName(1, 1)
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	return errors.Wrapf(fx.SetCellStyle(sheet, first, last, style), "style %s header", sheet)
}
