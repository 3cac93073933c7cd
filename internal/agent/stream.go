// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package agent

import (
	"bufio"
	"encoding/json"
	"io"
	"log"
	"strings"
)

// streamBufferSize allows single events up to 1MB. Agent chunks are
// normally small but tool results can carry large payloads.
const streamBufferSize = 1024 * 1024

// StreamReader decodes the server-sent event stream of a chat response.
// Each payload line has the form "data: <json>"; anything else is framing
// noise and is skipped. Lines that fail to decode are logged and dropped
// so one corrupt event cannot kill the stream.
type StreamReader struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	done    bool
}

// NewStreamReader wraps a chat response body.
func NewStreamReader(body io.ReadCloser) *StreamReader {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), streamBufferSize)
	return &StreamReader{body: body, scanner: scanner}
}

// Next returns the next decoded event. io.EOF signals a cleanly finished
// stream, either a done event or the server closing the connection.
func (r *StreamReader) Next() (Event, error) {
	if r.done {
		return Event{}, io.EOF
	}

	for r.scanner.Scan() {
		line := strings.TrimSpace(r.scanner.Text())
		if line == "" {
			continue
		}
		payload, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			// Comment or other SSE framing.
			continue
		}
		if payload == "[DONE]" {
			r.done = true
			return Event{Type: EventDone}, nil
		}

		var ev Event
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			log.Printf("agent: skipping malformed stream event: %v", err)
			continue
		}
		if ev.Type == EventDone {
			r.done = true
		}
		return ev, nil
	}

	r.done = true
	if err := r.scanner.Err(); err != nil {
		return Event{}, err
	}
	return Event{}, io.EOF
}

// Close releases the underlying response body. Safe to call more than once.
func (r *StreamReader) Close() error {
	r.done = true
	return r.body.Close()
}
