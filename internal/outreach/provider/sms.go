package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"estate_crm_backend/internal/domain"
	"estate_crm_backend/platform/config"
	"estate_crm_backend/platform/phone"
)

// SMSProvider delivers outreach through a JSON SMS gateway.
type SMSProvider struct {
	baseURL  string
	apiKey   string
	senderID string
	http     *http.Client
}

type smsRequest struct {
	To     string `json:"to"`
	From   string `json:"from,omitempty"`
	Body   string `json:"body"`
}

type smsResponse struct {
	MessageID string `json:"messageId"`
}

// NewSMSProvider creates the SMS gateway provider. Returns nil when no
// gateway URL is configured.
func NewSMSProvider(cfg config.SMSConfig) *SMSProvider {
	if cfg.GetSMSGatewayURL() == "" {
		return nil
	}

	return &SMSProvider{
		baseURL:  strings.TrimRight(cfg.GetSMSGatewayURL(), "/"),
		apiKey:   cfg.GetSMSGatewayKey(),
		senderID: cfg.GetSMSSenderID(),
		http:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *SMSProvider) Channel() domain.Channel { return domain.ChannelSMS }

func (p *SMSProvider) Deliver(ctx context.Context, msg Message) (Result, error) {
	body, err := json.Marshal(smsRequest{
		To:   phone.NormalizeE164(msg.Recipient),
		From: p.senderID,
		Body: msg.Body,
	})
	if err != nil {
		return Result{}, fmt.Errorf("marshal sms payload: %w", err)
	}

	url := fmt.Sprintf("%s/messages", p.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return Result{}, err
	}

	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.http.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("sms request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		return Result{}, fmt.Errorf("sms gateway returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var parsed smsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Result{}, nil
	}

	return Result{ProviderMessageID: parsed.MessageID}, nil
}
