// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Configuration constants for the agent service API.
const (
	// basePath is the URL prefix of every agent endpoint.
	basePath = "/flask/agent"

	// DefaultStatusTimeout bounds the lightweight session status check.
	// Chat calls rely on the per-message cancel handle instead.
	DefaultStatusTimeout = 5 * time.Second

	// maxResponseSize caps non-streaming response bodies.
	maxResponseSize = 4 * 1024 * 1024
)

var (
	// sharedHTTPClient serves the short JSON endpoints. Connection pooling
	// avoids per-call TCP handshakes.
	sharedHTTPClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
		Timeout: 60 * time.Second,
	}

	// sharedStreamingClient serves chat streams: no timeout, cancellation
	// comes from the request context.
	sharedStreamingClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}
)

// Client talks to the remote agent service.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	streamClient  *http.Client
	statusTimeout time.Duration
	limiter       *rate.Limiter
}

// NewClient creates a client for the agent service rooted at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:       strings.TrimSuffix(baseURL, "/"),
		httpClient:    sharedHTTPClient,
		streamClient:  sharedStreamingClient,
		statusTimeout: DefaultStatusTimeout,
	}
}

// WithStatusTimeout sets the session status check timeout.
func (c *Client) WithStatusTimeout(d time.Duration) *Client {
	if d > 0 {
		c.statusTimeout = d
	}
	return c
}

// WithRateLimit throttles outgoing chat requests to rps per second.
// Zero disables the limiter.
func (c *Client) WithRateLimit(rps float64) *Client {
	if rps > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	} else {
		c.limiter = nil
	}
	return c
}

// WithHTTPClient overrides both HTTP clients. Intended for tests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	c.streamClient = hc
	return c
}

func (c *Client) endpoint(parts ...string) string {
	return c.baseURL + basePath + "/" + strings.Join(parts, "/")
}

// =============================================================================
// SESSION LIFECYCLE
// =============================================================================

// ValidateSession checks whether the backend still knows the session.
// Any transport failure, non-200 status, or a payload denying existence is
// reported as invalid; the caller clears its cached id on false.
func (c *Client) ValidateSession(ctx context.Context, sessionID string) bool {
	ctx, cancel := context.WithTimeout(ctx, c.statusTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("session", sessionID, "status"), nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("agent: session validation failed, will reinitialize: %v", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("agent: session validation failed, status %d", resp.StatusCode)
		return false
	}

	var status statusResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&status); err != nil {
		log.Printf("agent: session validation failed, bad payload: %v", err)
		return false
	}
	if !status.Success || !status.Exists {
		log.Printf("agent: session %s no longer exists", sessionID)
		return false
	}
	return true
}

// Ping checks that the agent service is reachable. It probes the status
// endpoint with a throwaway id; any well-formed HTTP response counts as
// reachable, only transport failures are errors.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.statusTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("session", "ping", "status"), nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("agent unreachable: %w", err)
	}
	resp.Body.Close()
	return nil
}

// RecoverSession asks the backend to revive a lost session. On success the
// returned id (possibly new) should be adopted. recovered reports whether
// the old state was found.
func (c *Client) RecoverSession(ctx context.Context, key SessionKey, oldSessionID string) (sessionID string, recovered bool, err error) {
	body := recoverRequest{
		UserID:      key.UserID,
		MaskID:      orDefault(key.MaskID, "default"),
		AgentType:   orDefault(key.AgentType, "general"),
		SessionID:   oldSessionID,
		SessionUUID: key.SessionUUID,
	}

	var out recoverResponse
	if err := c.postJSON(ctx, "recover", c.endpoint("recover"), body, &out); err != nil {
		return "", false, err
	}
	if !out.Success || out.SessionID == "" {
		return "", false, &APIError{Op: "recover", Status: http.StatusOK, Message: "recovery rejected"}
	}
	return out.SessionID, out.Recovered, nil
}

// InitSession creates a fresh remote session and returns its id.
// Failure is fatal for the turn.
func (c *Client) InitSession(ctx context.Context, key SessionKey, forceNew bool) (string, error) {
	body := initRequest{
		UserID:      key.UserID,
		MaskID:      orDefault(key.MaskID, "default"),
		AgentType:   orDefault(key.AgentType, "general"),
		SessionUUID: key.SessionUUID,
		ForceNew:    forceNew,
	}

	var out initResponse
	if err := c.postJSON(ctx, "init", c.endpoint("init"), body, &out); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInitFailed, err)
	}
	if out.SessionID == "" {
		return "", ErrInitFailed
	}
	return out.SessionID, nil
}

// EnsureSession returns a usable remote session id for key.
//
// With a cached id and isRetry=false it validates first; an invalidated id
// triggers one recovery attempt with the old id before falling back to
// init. With isRetry=true validation and recovery are skipped and a fresh
// session is always initialized.
func (c *Client) EnsureSession(ctx context.Context, key SessionKey, cachedID string, isRetry bool) (string, error) {
	if cachedID != "" && !isRetry {
		if c.ValidateSession(ctx, cachedID) {
			return cachedID, nil
		}

		// The backend lost the session; try to revive it before creating
		// a new one.
		if id, recovered, err := c.RecoverSession(ctx, key, cachedID); err == nil {
			if recovered {
				log.Printf("agent: session recovery successful: %s", id)
			} else {
				log.Printf("agent: session recovery created new: %s", id)
			}
			return id, nil
		} else {
			log.Printf("agent: session recovery failed, will create new session: %v", err)
		}
	}

	forceNew := key.SessionUUID != ""
	return c.InitSession(ctx, key, forceNew)
}

// ClearSession asks the backend to drop the session's history. Best-effort:
// failures are logged, never returned.
func (c *Client) ClearSession(ctx context.Context, sessionID string) {
	err := c.postJSON(ctx, "clear", c.endpoint("clear", sessionID), struct{}{}, nil)
	if err != nil {
		log.Printf("agent: clear session %s failed: %v", sessionID, err)
		return
	}
	log.Printf("agent: cleared remote session %s", sessionID)
}

// RemoveSession asks the backend to release the session entirely.
// Best-effort: failures are logged, never returned.
func (c *Client) RemoveSession(ctx context.Context, sessionID string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.endpoint("remove", sessionID), nil)
	if err != nil {
		log.Printf("agent: remove session %s failed: %v", sessionID, err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("agent: remove session %s failed: %v", sessionID, err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Printf("agent: remove session %s failed, status %d", sessionID, resp.StatusCode)
		return
	}
	log.Printf("agent: removed remote session %s", sessionID)
}

// =============================================================================
// CHAT
// =============================================================================

// OpenChat posts a chat request and returns the event stream.
//
// A 404 is surfaced as *APIError with that status so the caller can clear
// the cached session id and re-initialize. A 500 maps to a retryable
// server-busy error; other failures report the status code.
func (c *Client) OpenChat(ctx context.Context, req ChatRequest) (*StreamReader, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	if req.FilePaths == nil {
		req.FilePaths = []string{}
	}

	bodyBytes, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("chat"), bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("create chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	log.Printf("agent: chat request, session %s", req.SessionID)

	resp, err := c.streamClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("chat request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		switch resp.StatusCode {
		case http.StatusNotFound:
			return nil, &APIError{Op: "chat", Status: http.StatusNotFound, Message: "session not found"}
		case http.StatusInternalServerError:
			return nil, &APIError{Op: "chat", Status: resp.StatusCode, Message: "internal server error, please retry later"}
		default:
			return nil, &APIError{Op: "chat", Status: resp.StatusCode, Message: "connection failed, check the network"}
		}
	}

	return NewStreamReader(resp.Body), nil
}

// =============================================================================
// SUGGESTED QUESTIONS
// =============================================================================

// SuggestedQuestions fetches follow-up prompts for a session. For
// QuestionsRelated, userMessage is the query the suggestions relate to.
func (c *Client) SuggestedQuestions(ctx context.Context, sessionID string, kind QuestionKind, userMessage string) ([]Question, error) {
	body := questionsRequest{
		SessionID:   sessionID,
		Type:        string(kind),
		UserMessage: userMessage,
	}

	var out questionsResponse
	if err := c.postJSON(ctx, "suggested-questions", c.endpoint("suggested-questions"), body, &out); err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, &APIError{Op: "suggested-questions", Status: http.StatusOK, Message: orDefault(out.Error, "request rejected")}
	}
	return out.Questions, nil
}

// =============================================================================
// HELPERS
// =============================================================================

// postJSON posts body as JSON and decodes the response into out (nil out
// discards the body). Non-200 responses become *APIError.
func (c *Client) postJSON(ctx context.Context, op, url string, body, out any) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("create %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s request: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &APIError{Op: op, Status: resp.StatusCode}
	}

	if out == nil {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", op, err)
	}
	return nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// IsSessionNotFound reports whether err is a chat 404.
func IsSessionNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}
