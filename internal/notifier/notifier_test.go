package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"BreakoutScanner/internal/model"
	"BreakoutScanner/internal/scanner"
)

type fakeBot struct {
	mu       sync.Mutex
	sent     []map[string]string
	failures atomic.Int32
}

func (f *fakeBot) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/botTOKEN/sendMessage":
			if f.failures.Load() > 0 {
				f.failures.Add(-1)
				http.Error(w, `{"ok":false}`, http.StatusTooManyRequests)
				return
			}
			var payload map[string]string
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			f.mu.Lock()
			f.sent = append(f.sent, payload)
			f.mu.Unlock()
			w.Write([]byte(`{"ok":true}`))
		default:
			http.NotFound(w, r)
		}
	}
}

func (f *fakeBot) messages() []map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]string(nil), f.sent...)
}

func newTestNotifier(t *testing.T) (*TelegramNotifier, *fakeBot) {
	bot := &fakeBot{}
	srv := httptest.NewServer(bot.handler(t))
	t.Cleanup(srv.Close)
	n := NewTelegramNotifier("TOKEN", "42", "", zap.NewNop())
	n.APIURL = srv.URL
	return n, bot
}

func TestSend(t *testing.T) {
	n, bot := newTestNotifier(t)
	require.NoError(t, n.Send(context.Background(), "<b>hi</b>"))

	msgs := bot.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "42", msgs[0]["chat_id"])
	assert.Equal(t, "HTML", msgs[0]["parse_mode"])
	assert.Equal(t, "<b>hi</b>", msgs[0]["text"])
}

func TestSendWithBackoff(t *testing.T) {
	n, bot := newTestNotifier(t)
	bot.failures.Store(2)
	require.NoError(t, n.sendWithBackoff(context.Background(), "retry me", 3, time.Millisecond))
	assert.Len(t, bot.messages(), 1)

	bot.failures.Store(10)
	err := n.sendWithBackoff(context.Background(), "give up", 1, time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 2 attempts failed")
}

func TestDispatch(t *testing.T) {
	n, bot := newTestNotifier(t)
	var got []string
	handler := func(_ context.Context, cmd string) string {
		got = append(got, cmd)
		if cmd == "/quiet" {
			return ""
		}
		return "reply to " + cmd
	}
	updates := []telegramUpdate{{UpdateID: 7}, {UpdateID: 8}, {UpdateID: 9}}
	updates[1].Message = &struct {
		Text string `json:"text"`
	}{Text: "  /scan "}
	updates[2].Message = &struct {
		Text string `json:"text"`
	}{Text: "/quiet"}

	next := n.dispatch(context.Background(), updates, 0, handler)
	assert.Equal(t, 10, next)
	assert.Equal(t, []string{"/scan", "/quiet"}, got)
	msgs := bot.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "reply to /scan", msgs[0]["text"])
}

func TestFormatScanReport(t *testing.T) {
	chg := 1.5
	rows := []scanner.Row{
		{Ticker: "UP", Score: &model.Score{Value: 100}, LastDayChange: &chg, Breaking: true},
		{Ticker: "FLAT", Score: &model.Score{Value: 80}, Consolidating: true},
		{Ticker: "NEW", Err: errors.New("insufficient history")},
	}
	out := FormatScanReport(rows, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC))
	assert.Contains(t, out, "2024-03-04")
	assert.Contains(t, out, "1. <b>UP</b> 100.00 (1.50%)")
	assert.Contains(t, out, "2. <b>FLAT</b> 80.00 (n/a)")
	assert.Contains(t, out, "Breaking out:</b> UP")
	assert.Contains(t, out, "Consolidating:</b> FLAT")
	assert.Contains(t, out, "1 ticker(s) not scored")
}

func TestFormatRiskReport(t *testing.T) {
	price, size, stop := 50.0, 10000.0, 47.5
	res := &model.RiskResult{
		Ticker: "NFLX", Source: model.SourceGap, RiskCandle: -2.5, RiskDollars: 500,
		ShareCount: 200, Direction: model.Short,
		CurrentPrice: &price, TransactionSize: &size, StopLoss: &stop,
		ProfitTargets: &[3]float64{47.5, 45, 42.5},
	}
	out := FormatRiskReport(res)
	assert.Contains(t, out, "<b>NFLX</b> SHORT")
	assert.Contains(t, out, "Risk candle: -2.50 (gap)")
	assert.Contains(t, out, "Buy 200.00 shares @50.00$ (total 10000.00$)")
	assert.Contains(t, out, "Sell @42.50$ → +1500.00$ (x3)")

	res.CurrentPrice = nil
	assert.Contains(t, FormatRiskReport(res), "Ticker is not valid, but buy: 200.00 shares!")
}

func TestFormatError(t *testing.T) {
	assert.Equal(t, "❌ scan failed: a &lt; b", FormatError("scan", errors.New("a < b")))
}
