// Package chat proxies user messages to a hosted text-generation model.
// It is glue around the core: no state, no log interaction.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/kodbank/internal/common"
)

const fallbackReply = "I'm sorry, I couldn't process your request."

// Client calls a HuggingFace-style inference endpoint.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

func NewClient(endpoint, apiKey string, timeout time.Duration) *Client {
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: timeout},
	}
}

type inferenceRequest struct {
	Inputs string `json:"inputs"`
}

type inferenceResult struct {
	GeneratedText string `json:"generated_text"`
}

// Complete sends the message upstream and returns the generated reply with
// the echoed prompt stripped. Upstream failures wrap common.ErrorTransport.
func (c *Client) Complete(ctx context.Context, message string) (string, error) {
	if message == "" {
		return "", fmt.Errorf("%w: message is required", common.ErrorValidation)
	}

	body, err := json.Marshal(inferenceRequest{Inputs: message})
	if err != nil {
		return "", common.ErrorInternal
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", common.ErrorInternal
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: inference call: %v", common.ErrorTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: inference status %s: %s", common.ErrorTransport, resp.Status, b)
	}

	var results []inferenceResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return "", fmt.Errorf("%w: inference response: %v", common.ErrorTransport, err)
	}

	if len(results) == 0 || results[0].GeneratedText == "" {
		return fallbackReply, nil
	}

	generated := results[0].GeneratedText
	// the model echoes the prompt at the start of the completion
	if strings.HasPrefix(generated, message) {
		generated = strings.TrimSpace(generated[len(message):])
	}
	return generated, nil
}
