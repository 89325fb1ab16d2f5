// Package telegram provides a client for sending notifications via Telegram Bot API.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"stocksleuth/internal/models"
)

// Client handles Telegram notifications.
type Client struct {
	bot            *tgbotapi.BotAPI
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
}

// NewClient creates a new Telegram client.
func NewClient(botToken, chatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}

	return &Client{
		bot:            bot,
		chatID:         chatIDInt,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}, nil
}

// ListenForCommands starts a goroutine that polls for Telegram updates and handles bot commands.
// It returns immediately; the goroutine stops when ctx is cancelled.
func (c *Client) ListenForCommands(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := c.bot.GetUpdatesChan(u)

	go func() {
		for {
			select {
			case <-ctx.Done():
				c.bot.StopReceivingUpdates()
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				if update.Message != nil && update.Message.IsCommand() {
					c.handleCommand(update.Message)
				}
			}
		}
	}()
}

func (c *Client) handleCommand(msg *tgbotapi.Message) {
	switch msg.Command() {
	case "ping":
		reply := tgbotapi.NewMessage(msg.Chat.ID, "Pong")
		c.bot.Send(reply) //nolint:errcheck
	}
}

// sendMarkdownV2 sends a MarkdownV2 message with linear-backoff retry.
func (c *Client) sendMarkdownV2(text string) error {
	msg := tgbotapi.NewMessage(c.chatID, text)
	msg.ParseMode = "MarkdownV2"

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		if _, err := c.bot.Send(msg); err == nil {
			return nil
		} else {
			lastErr = err
		}
		time.Sleep(c.retryDelayBase * time.Duration(i+1))
	}
	return fmt.Errorf("failed after %d retries: %w", c.maxRetries, lastErr)
}

// SendError sends a monitoring error notification.
// Call this only on the first occurrence of a consecutive error sequence.
func (c *Client) SendError(cycleErr error) error {
	text := fmt.Sprintf("⚠️ *Monitoring error*\n`%s`", escapeMarkdownV2(cycleErr.Error()))
	return c.sendMarkdownV2(text)
}

// SendRecovery sends a recovery notification after consecutive failures.
func (c *Client) SendRecovery(failureCount int) error {
	text := fmt.Sprintf("✅ *Monitoring recovered* after %d consecutive failure\\(s\\)", failureCount)
	return c.sendMarkdownV2(text)
}

// SendReport sends the outcome of a completed investigation.
func (c *Client) SendReport(state *models.InvestigationState) error {
	return c.sendMarkdownV2(c.formatReport(state))
}

// formatReport formats an investigation outcome as a MarkdownV2 message.
func (c *Client) formatReport(state *models.InvestigationState) string {
	if state == nil || state.Anomaly == nil {
		return escapeMarkdownV2("Investigation finished with no data.")
	}

	var sb strings.Builder

	directionEmoji := "📉"
	if state.Anomaly.PercentChange > 0 {
		directionEmoji = "📈"
	}
	fmt.Fprintf(&sb, "%s *%s anomaly investigated*\n\n", directionEmoji, escapeMarkdownV2(state.Anomaly.Ticker))
	fmt.Fprintf(&sb, "%s\n\n", escapeMarkdownV2(state.Anomaly.Describe()))

	ev := state.Evaluation
	if ev == nil {
		sb.WriteString("⚠️ Investigation ended without an evaluation\\.\n")
		return sb.String()
	}

	if ev.ExplanationFound {
		sb.WriteString("✅ *SOLVED*\n")
	} else {
		sb.WriteString("⚠️ *UNSOLVED*\n")
	}
	fmt.Fprintf(&sb, "Cause: %s\n", escapeMarkdownV2(ev.RootCause))
	fmt.Fprintf(&sb, "Confidence: %s\n", escapeMarkdownV2(fmt.Sprintf("%.0f%%", ev.Confidence*100)))
	fmt.Fprintf(&sb, "Quality: %s\n", escapeMarkdownV2(ev.ExplanationQuality))
	fmt.Fprintf(&sb, "Iterations: %d\n", state.Iteration+1)

	return sb.String()
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2.
func escapeMarkdownV2(text string) string {
	var b strings.Builder
	b.Grow(len(text) + len(text)/4) // pre-allocate with room for escapes
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
