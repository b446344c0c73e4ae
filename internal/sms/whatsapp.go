package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// WhatsApp sends through a self-hosted go-whatsapp-web-multidevice gateway.
type WhatsApp struct {
	baseURL  string
	deviceID string
	username string
	password string
	http     *http.Client
}

type gowaRequest struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

type gowaResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Results struct {
		MessageID string `json:"message_id"`
	} `json:"results"`
}

func NewWhatsApp(baseURL, deviceID, username, password string) *WhatsApp {
	return &WhatsApp{
		baseURL:  strings.TrimRight(baseURL, "/"),
		deviceID: deviceID,
		username: username,
		password: password,
		http:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (w *WhatsApp) Name() string { return "whatsapp" }

func (w *WhatsApp) Send(ctx context.Context, to, body string) (string, error) {
	payload, err := json.Marshal(gowaRequest{
		Phone:   strings.TrimPrefix(to, "+") + "@s.whatsapp.net",
		Message: body,
	})
	if err != nil {
		return "", fmt.Errorf("marshal whatsapp payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.baseURL+"/send/message", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if w.username != "" {
		req.SetBasicAuth(w.username, w.password)
	}
	if w.deviceID != "" {
		req.Header.Set("X-Device-Id", w.deviceID)
	}

	resp, err := w.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("whatsapp request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("whatsapp service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var out gowaResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("decode whatsapp response: %w", err)
	}
	return out.Results.MessageID, nil
}
