// Package notify sends recommendation sheets to a Telegram chat.
package notify

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hklotto/marksix/models"
)

// StrategySheet is one strategy's recommendation for an issue.
type StrategySheet struct {
	Strategy string
	Mains    []int
	Special  int
	Pool20   []int
}

// Notifier sends messages through a Telegram bot.
type Notifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger zerolog.Logger
}

// New initializes the Telegram bot. Token and chat id come from the
// environment configuration.
func New(token string, chatID int64) (*Notifier, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram token not configured")
	}
	if chatID == 0 {
		return nil, fmt.Errorf("telegram chat id not configured")
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("initializing telegram bot: %w", err)
	}
	return &Notifier{
		bot:    bot,
		chatID: chatID,
		logger: log.With().Str("component", "notify").Logger(),
	}, nil
}

// SendRecommendations formats and sends the sheet for one issue.
func (n *Notifier) SendRecommendations(issue string, sheets []StrategySheet) error {
	msg := tgbotapi.NewMessage(n.chatID, FormatSheet(issue, sheets))
	msg.ParseMode = "Markdown"
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("sending recommendations: %w", err)
	}
	n.logger.Info().Str("issue", issue).Int("strategies", len(sheets)).Msg("Recommendations sent")
	return nil
}

// FormatSheet renders the recommendation sheet as Markdown text.
func FormatSheet(issue string, sheets []StrategySheet) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*Mark Six picks for %s*\n", issue)
	for _, sheet := range sheets {
		fmt.Fprintf(&b, "\n*%s*\n", models.StrategyLabel(sheet.Strategy))
		fmt.Fprintf(&b, "mains: %s\n", joinNumbers(sheet.Mains))
		if sheet.Special > 0 {
			fmt.Fprintf(&b, "special: %02d\n", sheet.Special)
		}
		if len(sheet.Pool20) > 0 {
			fmt.Fprintf(&b, "pool20: %s\n", joinNumbers(sheet.Pool20))
		}
	}
	return b.String()
}

func joinNumbers(numbers []int) string {
	parts := make([]string, len(numbers))
	for i, n := range numbers {
		parts[i] = fmt.Sprintf("%02d", n)
	}
	return strings.Join(parts, " ")
}
