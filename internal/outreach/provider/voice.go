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

// VoiceProvider places outbound calls through a telephony gateway. The
// message body is spoken to the callee via the gateway's text-to-speech.
type VoiceProvider struct {
	baseURL  string
	apiKey   string
	callerID string
	http     *http.Client
}

type voiceRequest struct {
	To       string `json:"to"`
	CallerID string `json:"callerId,omitempty"`
	Say      string `json:"say"`
}

type voiceResponse struct {
	CallID string `json:"callId"`
}

// NewVoiceProvider creates the voice call provider. Returns nil when no
// gateway URL is configured.
func NewVoiceProvider(cfg config.VoiceConfig) *VoiceProvider {
	if cfg.GetVoiceGatewayURL() == "" {
		return nil
	}

	return &VoiceProvider{
		baseURL:  strings.TrimRight(cfg.GetVoiceGatewayURL(), "/"),
		apiKey:   cfg.GetVoiceGatewayKey(),
		callerID: cfg.GetVoiceCallerID(),
		http:     &http.Client{Timeout: 30 * time.Second},
	}
}

func (p *VoiceProvider) Channel() domain.Channel { return domain.ChannelCall }

func (p *VoiceProvider) Deliver(ctx context.Context, msg Message) (Result, error) {
	body, err := json.Marshal(voiceRequest{
		To:       phone.NormalizeE164(msg.Recipient),
		CallerID: p.callerID,
		Say:      msg.Body,
	})
	if err != nil {
		return Result{}, fmt.Errorf("marshal voice payload: %w", err)
	}

	url := fmt.Sprintf("%s/calls", p.baseURL)
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
		return Result{}, fmt.Errorf("voice request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		return Result{}, fmt.Errorf("voice gateway returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var parsed voiceResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Result{}, nil
	}

	return Result{ProviderMessageID: parsed.CallID}, nil
}
