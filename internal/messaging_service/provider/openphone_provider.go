package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// OpenPhoneProvider sends SMS through the OpenPhone-style masked-number
// REST API. Authentication is a bearer API key.
type OpenPhoneProvider struct {
	logger     *slog.Logger
	httpClient *http.Client
	apiURL     string
	apiKey     string
}

func NewOpenPhoneProvider(logger *slog.Logger, apiURL, apiKey string, httpClient *http.Client) *OpenPhoneProvider {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &OpenPhoneProvider{
		logger:     logger.With("provider", "openphone"),
		httpClient: httpClient,
		apiURL:     apiURL,
		apiKey:     apiKey,
	}
}

type openPhoneSendRequest struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Content string `json:"content"`
}

type openPhoneSendResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type openPhoneErrorResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

func (p *OpenPhoneProvider) GetName() string { return "openphone" }

func (p *OpenPhoneProvider) Send(ctx context.Context, details SendRequestDetails) (*SendResponseDetails, error) {
	p.logger.InfoContext(ctx, "OpenPhoneProvider: Send called",
		"from", details.From, "to", details.To, "internal_message_id", details.InternalMessageID)

	reqBody := openPhoneSendRequest{
		From:    details.From,
		To:      details.To,
		Content: details.Body,
	}
	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request for OpenPhone: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewBuffer(reqBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request for OpenPhone: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		p.logger.ErrorContext(ctx, "Failed to send request to OpenPhone", "error", err, "internal_message_id", details.InternalMessageID)
		return nil, fmt.Errorf("failed to send request to OpenPhone: %w", err)
	}
	defer httpResp.Body.Close()

	respBytes, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read OpenPhone response body: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		var errResp openPhoneErrorResponse
		errMsg := string(respBytes)
		if jsonErr := json.Unmarshal(respBytes, &errResp); jsonErr == nil && errResp.Message != "" {
			errMsg = errResp.Message
		}
		p.logger.ErrorContext(ctx, "OpenPhone rejected send",
			"status_code", httpResp.StatusCode, "error", errMsg, "internal_message_id", details.InternalMessageID)
		return &SendResponseDetails{
			IsSuccess:      false,
			ProviderStatus: fmt.Sprintf("HTTP_%d", httpResp.StatusCode),
			ErrorMessage:   errMsg,
		}, fmt.Errorf("OpenPhone send failed with status %d: %s", httpResp.StatusCode, errMsg)
	}

	var okResp openPhoneSendResponse
	if err := json.Unmarshal(respBytes, &okResp); err != nil {
		return nil, fmt.Errorf("failed to decode OpenPhone response: %w", err)
	}
	if okResp.ID == "" {
		return nil, fmt.Errorf("OpenPhone response missing message id")
	}

	p.logger.InfoContext(ctx, "OpenPhone accepted send",
		"provider_message_id", okResp.ID, "provider_status", okResp.Status, "internal_message_id", details.InternalMessageID)

	return &SendResponseDetails{
		ProviderMessageID: okResp.ID,
		IsSuccess:         true,
		ProviderStatus:    okResp.Status,
	}, nil
}
