package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"estate_crm_backend/internal/domain"
	"estate_crm_backend/platform/config"
)

// TelegramProvider delivers outreach through the Telegram Bot API. The
// recipient is the lead's Telegram chat id (stored as their phone-channel
// handle for this channel).
type TelegramProvider struct {
	apiBase string
	token   string
	http    *http.Client
}

type telegramRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type telegramResponse struct {
	OK     bool `json:"ok"`
	Result struct {
		MessageID int64 `json:"message_id"`
	} `json:"result"`
	Description string `json:"description"`
}

// NewTelegramProvider creates the Telegram bot provider. Returns nil when no
// bot token is configured.
func NewTelegramProvider(cfg config.TelegramConfig) *TelegramProvider {
	if cfg.GetTelegramBotToken() == "" {
		return nil
	}

	return &TelegramProvider{
		apiBase: strings.TrimRight(cfg.GetTelegramAPIBase(), "/"),
		token:   cfg.GetTelegramBotToken(),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *TelegramProvider) Channel() domain.Channel { return domain.ChannelTelegram }

func (p *TelegramProvider) Deliver(ctx context.Context, msg Message) (Result, error) {
	body, err := json.Marshal(telegramRequest{ChatID: msg.Recipient, Text: msg.Body})
	if err != nil {
		return Result{}, fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", p.apiBase, p.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("telegram request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, _ := io.ReadAll(resp.Body)

	var parsed telegramResponse
	if err := json.Unmarshal(data, &parsed); err != nil || !parsed.OK {
		if parsed.Description != "" {
			return Result{}, fmt.Errorf("telegram api: %s", parsed.Description)
		}
		return Result{}, fmt.Errorf("telegram api returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	return Result{ProviderMessageID: strconv.FormatInt(parsed.Result.MessageID, 10)}, nil
}
