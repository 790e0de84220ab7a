// Package report renders scan and risk results for the terminal.
package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"BreakoutScanner/internal/model"
	"BreakoutScanner/internal/scanner"
)

var (
	amountStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	stopStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	titleStyle  = lipgloss.NewStyle().Bold(true)
	targetStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
)

// Round2 formats v with two decimals, rounding half away from zero.
func Round2(v float64) string {
	return decimal.NewFromFloat(v).Round(2).StringFixed(2)
}

func paint(colored bool, style lipgloss.Style, s string) string {
	if !colored {
		return s
	}
	return style.Render(s)
}

// Risk renders a sizing result. Without a price only the share count is known.
func Risk(res *model.RiskResult, colored bool) string {
	shares := Round2(res.ShareCount)
	if !res.HasPrice() {
		return paint(colored, stopStyle, fmt.Sprintf("Ticker is not valid, but buy: %s shares!", shares))
	}

	var b strings.Builder
	b.WriteString("You'll need to buy ")
	b.WriteString(paint(colored, amountStyle, shares))
	b.WriteString(" shares ")
	b.WriteString(paint(colored, amountStyle, "@"+Round2(*res.CurrentPrice)+"$"))
	b.WriteString(" in the total cost of ")
	b.WriteString(paint(colored, amountStyle, Round2(*res.TransactionSize)+"$"))
	b.WriteString("\n")
	b.WriteString(paint(colored, stopStyle, "Stop loss @"+Round2(*res.StopLoss)))
	b.WriteString("\n")
	b.WriteString(paint(colored, titleStyle, "Possible stops:"))
	for i, target := range res.ProfitTargets {
		gain := res.RiskDollars * float64(i+1)
		line := fmt.Sprintf("    Sell in @%s$ for a %s$ gain (x%d the risk)", Round2(target), Round2(gain), i+1)
		b.WriteString("\n")
		b.WriteString(paint(colored, targetStyle, line))
	}
	return b.String()
}

// RiskHeader summarizes the ticker, direction and where the risk candle came from.
func RiskHeader(res *model.RiskResult) string {
	return fmt.Sprintf("%s %s | risk candle %s (%s) | risk %s$",
		res.Ticker, res.Direction, Round2(res.RiskCandle), strings.ToLower(string(res.Source)), Round2(res.RiskDollars))
}

// SourceNotice explains a gap-based risk candle; other sources need no notice.
func SourceNotice(res *model.RiskResult) string {
	if res.Source != model.SourceGap {
		return ""
	}
	return "Risk candle is based on the gap: the first candle of the session is not available yet."
}

// Scan renders ranked rows as a fixed-width table.
func Scan(rows []scanner.Row, colored bool) string {
	var b strings.Builder
	header := fmt.Sprintf("%-4s %-8s %7s %9s  %-5s %-5s", "#", "TICKER", "SCORE", "CHANGE", "CONS", "BREAK")
	b.WriteString(paint(colored, titleStyle, header))
	for i, r := range rows {
		b.WriteString("\n")
		if r.Score == nil {
			msg := "n/a"
			if r.Err != nil {
				msg = r.Err.Error()
			}
			line := fmt.Sprintf("%-4d %-8s %s", i+1, r.Ticker, msg)
			b.WriteString(paint(colored, mutedStyle, line))
			continue
		}
		change := "n/a"
		if r.LastDayChange != nil {
			change = Round2(*r.LastDayChange) + "%"
		}
		line := fmt.Sprintf("%-4d %-8s %7s %9s  %-5s %-5s",
			i+1, r.Ticker, Round2(r.Score.Value), change, yesNo(r.Consolidating), yesNo(r.Breaking))
		if r.Breaking {
			line = paint(colored, targetStyle, line)
		}
		b.WriteString(line)
	}
	return b.String()
}

// Detail renders the SMA listing of one ticker.
func Detail(d *scanner.Detail, colored bool) string {
	var b strings.Builder
	b.WriteString(paint(colored, titleStyle, fmt.Sprintf("%s @%s$", d.Ticker, Round2(d.LastClose))))

	periods := make([]int, 0, len(d.SMAs))
	for p := range d.SMAs {
		periods = append(periods, p)
	}
	sort.Ints(periods)
	for _, p := range periods {
		fmt.Fprintf(&b, "\nSMA%d: %s", p, Round2(d.SMAs[p]))
	}

	if d.LastDayChange != nil {
		fmt.Fprintf(&b, "\nLast day change: %s%%", Round2(*d.LastDayChange))
	} else {
		b.WriteString("\n" + paint(colored, errorStyle, "Last day change: n/a"))
	}
	return b.String()
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
