package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"BreakoutScanner/internal/model"
	"BreakoutScanner/internal/report"
	"BreakoutScanner/internal/scanner"
)

// maxScanRows caps the ranked list in one message.
const maxScanRows = 30

// FormatScanReport formats a ranked scan into a Telegram message.
func FormatScanReport(rows []scanner.Row, day time.Time) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📊 <b>Breakout scan</b> | %s\n\n", day.Format("2006-01-02")))

	var breaking, consolidating []string
	skipped := 0
	shown := 0
	for _, r := range rows {
		if r.Score == nil {
			skipped++
			continue
		}
		if r.Breaking {
			breaking = append(breaking, r.Ticker)
		}
		if r.Consolidating {
			consolidating = append(consolidating, r.Ticker)
		}
		if shown >= maxScanRows {
			continue
		}
		shown++
		change := "n/a"
		if r.LastDayChange != nil {
			change = report.Round2(*r.LastDayChange) + "%"
		}
		b.WriteString(fmt.Sprintf("%d. <b>%s</b> %s (%s)\n", shown, html.EscapeString(r.Ticker), report.Round2(r.Score.Value), change))
	}

	if len(breaking) > 0 {
		b.WriteString(fmt.Sprintf("\n🚀 <b>Breaking out:</b> %s\n", html.EscapeString(strings.Join(breaking, ", "))))
	}
	if len(consolidating) > 0 {
		b.WriteString(fmt.Sprintf("📦 <b>Consolidating:</b> %s\n", html.EscapeString(strings.Join(consolidating, ", "))))
	}
	if skipped > 0 {
		b.WriteString(fmt.Sprintf("\n⚠️ %d ticker(s) not scored\n", skipped))
	}
	return b.String()
}

// FormatRiskReport formats a position sizing result.
func FormatRiskReport(res *model.RiskResult) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🎯 <b>%s</b> %s\n", html.EscapeString(res.Ticker), res.Direction))
	b.WriteString(fmt.Sprintf("Risk candle: %s (%s)\n", report.Round2(res.RiskCandle), strings.ToLower(string(res.Source))))
	if !res.HasPrice() {
		b.WriteString(fmt.Sprintf("Ticker is not valid, but buy: %s shares!", report.Round2(res.ShareCount)))
		return b.String()
	}
	b.WriteString(fmt.Sprintf("Buy %s shares @%s$ (total %s$)\n",
		report.Round2(res.ShareCount), report.Round2(*res.CurrentPrice), report.Round2(*res.TransactionSize)))
	b.WriteString(fmt.Sprintf("Stop loss: %s\n", report.Round2(*res.StopLoss)))
	for i, target := range res.ProfitTargets {
		b.WriteString(fmt.Sprintf("  Sell @%s$ → +%s$ (x%d)\n", report.Round2(target), report.Round2(res.RiskDollars*float64(i+1)), i+1))
	}
	return b.String()
}

// FormatError formats a failed command.
func FormatError(action string, err error) string {
	return fmt.Sprintf("❌ %s failed: %s", action, html.EscapeString(err.Error()))
}

// FormatHelp lists the supported commands.
func FormatHelp() string {
	return "Available commands:\n• /scan\n• /risk TICKER DOLLARS"
}
