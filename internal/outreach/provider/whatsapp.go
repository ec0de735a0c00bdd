package provider

import (
	"bytes"
	"context"
	"encoding/base64"
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

// WhatsAppProvider delivers outreach through a gowa-compatible WhatsApp
// gateway.
type WhatsAppProvider struct {
	baseURL  string
	apiKey   string
	deviceID string
	http     *http.Client
}

type whatsAppRequest struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

type whatsAppResponse struct {
	Results struct {
		MessageID string `json:"message_id"`
	} `json:"results"`
}

// NewWhatsAppProvider creates the WhatsApp gateway provider. Returns nil
// when no gateway URL is configured.
func NewWhatsAppProvider(cfg config.WhatsAppConfig) *WhatsAppProvider {
	if cfg.GetWhatsAppURL() == "" {
		return nil
	}

	return &WhatsAppProvider{
		baseURL:  strings.TrimRight(cfg.GetWhatsAppURL(), "/"),
		apiKey:   cfg.GetWhatsAppKey(),
		deviceID: cfg.GetWhatsAppDeviceID(),
		http:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *WhatsAppProvider) Channel() domain.Channel { return domain.ChannelWhatsApp }

func (p *WhatsAppProvider) Deliver(ctx context.Context, msg Message) (Result, error) {
	normalized := strings.TrimPrefix(phone.NormalizeE164(msg.Recipient), "+")

	body, err := json.Marshal(whatsAppRequest{Phone: normalized, Message: msg.Body})
	if err != nil {
		return Result{}, fmt.Errorf("marshal whatsapp payload: %w", err)
	}

	url := fmt.Sprintf("%s/send/message", p.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return Result{}, err
	}

	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", basicAuthHeader(p.apiKey))
	}
	if p.deviceID != "" {
		req.Header.Set("X-Device-Id", p.deviceID)
	}

	resp, err := p.http.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("whatsapp request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		return Result{}, fmt.Errorf("whatsapp gateway returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var parsed whatsAppResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		// Gateway accepted the message; a missing id only degrades callback matching.
		return Result{}, nil
	}

	return Result{ProviderMessageID: parsed.Results.MessageID}, nil
}

func basicAuthHeader(apiKey string) string {
	if strings.HasPrefix(strings.ToLower(apiKey), "basic ") {
		return apiKey
	}

	encoded := base64.StdEncoding.EncodeToString([]byte(apiKey))
	return "Basic " + encoded
}
