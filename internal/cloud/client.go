// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cloud provides a minimal OpenAI-compatible chat completion client.
//
// The agent service handles the main conversation; this client serves the
// local auxiliary calls: conversation summarization for the memory prompt
// and session title generation. Any endpoint speaking the /chat/completions
// dialect works.
package cloud

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/tls"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/morganforge/fishchat-tui/internal/retry"
)

// Configuration constants for the completion API.
const (
	// DefaultBaseURL points at the OpenAI public endpoint.
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultModel is a cheap model suited to summarization work.
	DefaultModel = "gpt-4o-mini"

	// DefaultTimeout bounds a single completion request.
	DefaultTimeout = 60 * time.Second

	// maxResponseSize caps response bodies.
	maxResponseSize = 10 * 1024 * 1024
)

// sharedHTTPClient pools connections across all completion requests.
var sharedHTTPClient = &http.Client{
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	},
	Timeout: DefaultTimeout,
}

// ErrNotConfigured means no API key is set; summarization features are
// silently disabled in that case.
var ErrNotConfigured = errors.New("cloud: API key not configured")

// APIError is a non-200 response from the completion endpoint.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("completion API error (status %d): %s", e.StatusCode, e.Message)
}

// HTTPStatus implements the status interface used by the retry layer.
func (e *APIError) HTTPStatus() int { return e.StatusCode }

// ChatMessage is one message in an OpenAI-style conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func NewSystemMessage(content string) ChatMessage {
	return ChatMessage{Role: "system", Content: content}
}

func NewUserMessage(content string) ChatMessage {
	return ChatMessage{Role: "user", Content: content}
}

func NewAssistantMessage(content string) ChatMessage {
	return ChatMessage{Role: "assistant", Content: content}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Stream      bool          `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Client calls an OpenAI-compatible completion endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewClient creates a completion client. An empty apiKey yields a client
// whose calls fail with ErrNotConfigured.
func NewClient(apiKey string) *Client {
	return &Client{
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		model:      DefaultModel,
		httpClient: sharedHTTPClient,
	}
}

// WithBaseURL points the client at a different compatible endpoint.
func (c *Client) WithBaseURL(url string) *Client {
	if url != "" {
		c.baseURL = strings.TrimSuffix(url, "/")
	}
	return c
}

// WithModel selects the completion model.
func (c *Client) WithModel(model string) *Client {
	if model != "" {
		c.model = model
	}
	return c
}

// WithHTTPClient overrides the HTTP client. Intended for tests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// IsConfigured reports whether an API key is present.
func (c *Client) IsConfigured() bool {
	return c.apiKey != ""
}

// APIKeyMasked returns a log-safe form of the key.
func (c *Client) APIKeyMasked() string {
	if c.apiKey == "" {
		return "(not set)"
	}
	if len(c.apiKey) <= 8 {
		return "****"
	}
	return c.apiKey[:4] + "..." + c.apiKey[len(c.apiKey)-4:]
}

// KeyFingerprint returns a short hash of the key for correlating log lines
// without exposing the key itself.
func (c *Client) KeyFingerprint() string {
	if c.apiKey == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(c.apiKey))
	return hex.EncodeToString(sum[:4])
}

// Chat sends the conversation and returns the assistant's reply text.
// Transient failures are retried with backoff.
func (c *Client) Chat(ctx context.Context, messages []ChatMessage, maxTokens int) (string, error) {
	if !c.IsConfigured() {
		return "", ErrNotConfigured
	}

	var reply string
	result := retry.Do(ctx, func(ctx context.Context) error {
		var err error
		reply, err = c.doChat(ctx, messages, maxTokens)
		return err
	}, retry.Quick)

	if !result.Success {
		return "", result.Err
	}
	return reply, nil
}

func (c *Client) doChat(ctx context.Context, messages []ChatMessage, maxTokens int) (string, error) {
	reqBody := chatRequest{
		Model:     c.model,
		Messages:  messages,
		MaxTokens: maxTokens,
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("create completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", fmt.Errorf("read completion response: %w", err)
	}
	log.Printf("cloud: completion %s in %v, status %d, key %s",
		c.model, time.Since(start).Round(time.Millisecond), resp.StatusCode, c.KeyFingerprint())

	if resp.StatusCode != http.StatusOK {
		msg := http.StatusText(resp.StatusCode)
		var errResp chatResponse
		if json.Unmarshal(body, &errResp) == nil && errResp.Error != nil {
			msg = errResp.Error.Message
		}
		return "", &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	var out chatResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("decode completion response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", errors.New("completion response has no choices")
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}
