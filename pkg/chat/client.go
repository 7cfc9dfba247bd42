package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/parley-chat/parley/pkg/logger"
	"github.com/parley-chat/parley/pkg/stream"
)

// ChatRequest is the POST /api/chat body.
type ChatRequest struct {
	Prompt         string `json:"prompt"`
	User           string `json:"user"`
	ConversationID string `json:"conversationId"`
}

// FrameHandler consumes extracted frames. Done reports whether a terminal
// event has been seen, which stops the read loop.
type FrameHandler interface {
	Dispatch(frame string)
	Done() bool
}

// StreamClient issues the streaming chat exchange against the server.
type StreamClient struct {
	baseURL     string
	httpClient  *http.Client
	idleTimeout time.Duration
	maxBuffer   int
}

// NewStreamClient creates a streaming client with default limits. The
// underlying http.Client carries no overall timeout: the response body stays
// open for the whole streamed reply, bounded instead by the idle watchdog.
func NewStreamClient(baseURL string) *StreamClient {
	return NewStreamClientWithLimits(baseURL, 60*time.Second, stream.DefaultMaxBuffer)
}

// NewStreamClientWithLimits creates a streaming client with an explicit
// per-chunk idle timeout and buffer cap.
func NewStreamClientWithLimits(baseURL string, idleTimeout time.Duration, maxBuffer int) *StreamClient {
	if idleTimeout <= 0 {
		idleTimeout = 60 * time.Second
	}
	return &StreamClient{
		baseURL:     baseURL,
		httpClient:  &http.Client{},
		idleTimeout: idleTimeout,
		maxBuffer:   maxBuffer,
	}
}

// Stream opens the chat exchange and feeds every extracted frame to handler
// in arrival order, until a terminal event, cancellation, or stream closure.
// A nil return means the stream ended without a transport fault; whether a
// terminal event arrived is the handler's to report.
func (c *StreamClient) Stream(ctx context.Context, req ChatRequest, handler FrameHandler) error {
	reqBody, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	// The watchdog cancels the exchange if no chunk arrives within the idle
	// window, so a stalled server can't leave the conversation stuck.
	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	var timedOut atomic.Bool
	watchdog := time.AfterFunc(c.idleTimeout, func() {
		timedOut.Store(true)
		cancel()
	})
	defer watchdog.Stop()

	url := fmt.Sprintf("%s/api/chat", c.baseURL)
	httpReq, err := http.NewRequestWithContext(watchCtx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("chat request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errorBody, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return fmt.Errorf("chat request failed with status %d (failed to read error response: %w)", resp.StatusCode, readErr)
		}
		return fmt.Errorf("chat request failed with status %d: %s", resp.StatusCode, string(errorBody))
	}

	streamID := uuid.NewString()
	logger.Debug("chat: stream %s opened for conversation %q", streamID, req.ConversationID)

	acc := stream.NewAccumulator(c.maxBuffer)
	buf := make([]byte, 4096)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			watchdog.Reset(c.idleTimeout)
			if err := acc.Append(buf[:n]); err != nil {
				return fmt.Errorf("stream %s aborted: %w", streamID, err)
			}
			for _, frame := range acc.Frames() {
				handler.Dispatch(frame)
			}
			if handler.Done() {
				logger.Debug("chat: stream %s finished after %d chunks", streamID, acc.ChunkCount())
				return nil
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				logger.Debug("chat: stream %s closed by server after %d chunks", streamID, acc.ChunkCount())
				return nil
			}
			if handler.Done() {
				// Reader torn down by the terminal-event cancel.
				return nil
			}
			if timedOut.Load() {
				return fmt.Errorf("stream %s idle for more than %s: %w", streamID, c.idleTimeout, readErr)
			}
			if ctx.Err() != nil {
				return fmt.Errorf("stream %s cancelled: %w", streamID, ctx.Err())
			}
			return fmt.Errorf("stream %s read failed: %w", streamID, readErr)
		}
	}
}
