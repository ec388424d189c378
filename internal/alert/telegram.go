package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultTelegramAPIBase = "https://api.telegram.org"

// TelegramSink sends alerts to Telegram chats.
// Implements the Sink interface.
type TelegramSink struct {
	logger   *zap.Logger
	botToken string
	apiBase  string
	client   *http.Client
}

// NewTelegramSink creates a Telegram sink. An empty apiBase uses the
// public Bot API endpoint.
func NewTelegramSink(logger *zap.Logger, botToken, apiBase string) *TelegramSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	if apiBase == "" {
		apiBase = defaultTelegramAPIBase
	}

	if botToken == "" {
		logger.Warn("telegram bot token not set, alerts disabled")
	}

	return &TelegramSink{
		logger:   logger,
		botToken: botToken,
		apiBase:  apiBase,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

var _ Sink = (*TelegramSink)(nil)

// Deliver sends one alert, as a photo caption when media is attached and
// a plain message otherwise.
func (s *TelegramSink) Deliver(ctx context.Context, a Alert) error {
	if s.botToken == "" {
		s.logger.Warn("telegram not configured, skipping alert",
			zap.String("mint", a.Mint),
			zap.String("signature", a.Signature),
		)
		return nil
	}

	text := buildAlertText(a)
	markup := buildKeyboard(a)

	payload := map[string]interface{}{
		"chat_id":      a.ChatID,
		"parse_mode":   "Markdown",
		"reply_markup": markup,
	}

	method := "sendMessage"
	if a.MediaFileID != "" {
		method = "sendPhoto"
		payload["photo"] = a.MediaFileID
		payload["caption"] = text
	} else {
		payload["text"] = text
	}

	if err := s.call(ctx, method, payload); err != nil {
		return err
	}

	s.logger.Info("sent trade alert",
		zap.Int64("chatID", a.ChatID),
		zap.String("mint", a.Mint),
		zap.String("direction", a.Direction.String()),
		zap.Float64("usd", a.USDValue),
	)
	return nil
}

func (s *TelegramSink) call(ctx context.Context, method string, payload map[string]interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/%s", s.apiBase, s.botToken, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API returned status %d", resp.StatusCode)
	}
	return nil
}

func buildAlertText(a Alert) string {
	var sb strings.Builder

	symbol := a.Symbol
	if symbol == "" {
		symbol = shortAddress(a.Mint)
	}

	if a.Direction == "sell" {
		sb.WriteString(fmt.Sprintf("🔴 *%s Sell!*\n\n", escapeMarkdown(symbol)))
	} else {
		sb.WriteString(fmt.Sprintf("🟢 *%s Buy!*\n\n", escapeMarkdown(symbol)))
	}

	sb.WriteString(fmt.Sprintf("*Amount:* %s %s\n", formatAmount(a.Amount), escapeMarkdown(symbol)))
	sb.WriteString(fmt.Sprintf("*Value:* %s\n", formatUSD(a.USDValue)))
	if a.MarketCapUSD > 0 {
		sb.WriteString(fmt.Sprintf("*Market Cap:* %s\n", formatUSD(a.MarketCapUSD)))
	}
	if a.CounterParty != "" {
		sb.WriteString(fmt.Sprintf("*Wallet:* `%s`\n", shortAddress(a.CounterParty)))
	}
	sb.WriteString(fmt.Sprintf("\n[View Transaction](https://solscan.io/tx/%s)", a.Signature))

	return sb.String()
}

// buildKeyboard returns the inline button rows: buy link plus the chart
// when the token has a pool.
func buildKeyboard(a Alert) map[string]interface{} {
	buttons := []map[string]string{
		{
			"text": "Buy",
			"url":  fmt.Sprintf("https://jup.ag/swap/SOL-%s", a.Mint),
		},
	}
	if a.PairAddress != "" {
		buttons = append(buttons, map[string]string{
			"text": "Chart",
			"url":  fmt.Sprintf("https://dexscreener.com/solana/%s", a.PairAddress),
		})
	}
	return map[string]interface{}{
		"inline_keyboard": [][]map[string]string{buttons},
	}
}

func formatUSD(v float64) string {
	switch {
	case v >= 1_000_000_000:
		return fmt.Sprintf("$%.2fB", v/1_000_000_000)
	case v >= 1_000_000:
		return fmt.Sprintf("$%.2fM", v/1_000_000)
	case v >= 1_000:
		return fmt.Sprintf("$%.1fK", v/1_000)
	default:
		return fmt.Sprintf("$%.2f", v)
	}
}

func formatAmount(v float64) string {
	switch {
	case v >= 1_000_000:
		return fmt.Sprintf("%.2fM", v/1_000_000)
	case v >= 1_000:
		return fmt.Sprintf("%.2fK", v/1_000)
	case v >= 1:
		return fmt.Sprintf("%.2f", v)
	default:
		return fmt.Sprintf("%.6f", v)
	}
}

func shortAddress(addr string) string {
	if len(addr) <= 14 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-6:]
}

// escapeMarkdown escapes special characters for Telegram Markdown.
func escapeMarkdown(s string) string {
	replacer := strings.NewReplacer(
		"_", "\\_",
		"*", "\\*",
		"[", "\\[",
		"]", "\\]",
		"`", "\\`",
	)
	return replacer.Replace(s)
}
