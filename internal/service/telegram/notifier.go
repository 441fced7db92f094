package telegram

import (
	"context"
	"fmt"
	"strings"

	"github.com/Harqheem/sol-usdt-trader-app-sub002/internal/domain/models"
	drepo "github.com/Harqheem/sol-usdt-trader-app-sub002/internal/domain/repository"
	apphttp "github.com/Harqheem/sol-usdt-trader-app-sub002/pkg/http"
)

// Notifier delivers alerts to a Telegram chat via the bot API.
type Notifier struct {
	baseURL string
	token   string
	chatID  string
	client  *apphttp.Client
}

// NewNotifier creates a Telegram notifier.
func NewNotifier(baseURL, token, chatID string, client *apphttp.Client) drepo.Notifier {
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}
	return &Notifier{baseURL: baseURL, token: token, chatID: chatID, client: client}
}

type sendMessageReq struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type sendMessageResp struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Send posts one alert message. Fire and forget; the caller decides what a
// failure means.
func (n *Notifier) Send(ctx context.Context, a *models.Alert) error {
	req := &sendMessageReq{
		ChatID:    n.chatID,
		Text:      formatAlert(a),
		ParseMode: "HTML",
	}
	opts := &apphttp.RequestOptions{
		Method: apphttp.MethodPost,
		URL:    fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.token),
		Body:   req,
	}
	var resp sendMessageResp
	if err := n.client.SendAndParse(ctx, opts, &resp); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	if !resp.OK {
		return fmt.Errorf("telegram send: %s", resp.Description)
	}
	return nil
}

// formatAlert renders the short actionable summary plus the detail block.
func formatAlert(a *models.Alert) string {
	var b strings.Builder
	arrow := "🟢 LONG"
	if a.Direction == models.Short {
		arrow = "🔴 SHORT"
	}
	fmt.Fprintf(&b, "<b>%s %s</b> [%s]\n", arrow, a.Symbol, a.Urgency)
	fmt.Fprintf(&b, "Entry: %v\n", a.Entry)
	fmt.Fprintf(&b, "TP1: %v  TP2: %v\n", a.TakeProfit[0], a.TakeProfit[1])
	fmt.Fprintf(&b, "Stop: %v", a.Stop)
	if a.Clamped {
		b.WriteString(" (clamped)")
	}
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Type: %s\n", a.Type)
	fmt.Fprintf(&b, "Confidence: %.0f  Size: %.2fx  Risk: %.2f%%\n", a.Confidence, a.SizeFactor, a.RiskPct)
	fmt.Fprintf(&b, "%s", a.Rationale)
	return b.String()
}
