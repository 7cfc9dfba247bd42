package feedback

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/parley-chat/parley/pkg/auth"
	"github.com/parley-chat/parley/pkg/chat"
	"github.com/parley-chat/parley/pkg/logger"
)

// Rating is the thumbs direction attached to a finished message.
type Rating string

const (
	RatingUp   Rating = "up"
	RatingDown Rating = "down"
)

var (
	// ErrNoTarget means a submission was attempted with no recorded
	// message. State is unchanged so the user may retry.
	ErrNoTarget = errors.New("no message selected for rating")

	// ErrEmptyFeedback rejects blank feedback text; the collection state
	// stays open.
	ErrEmptyFeedback = errors.New("feedback text cannot be empty")

	// ErrNotRatable rejects rating a message that is still streaming.
	ErrNotRatable = errors.New("message has not finished streaming")
)

// NoticeKind classifies workflow notices for rendering.
type NoticeKind string

const (
	NoticeInfo       NoticeKind = "info"
	NoticeError      NoticeKind = "error"
	NoticeValidation NoticeKind = "validation"
)

// Notice is user-facing workflow feedback, rendered outside this package.
type Notice struct {
	Kind NoticeKind
	Text string
}

// Request is the POST /api/feedback body. Ephemeral: built at submission
// time, never stored.
type Request struct {
	Rating         Rating `json:"rating"`
	FeedbackText   string `json:"feedbackText,omitempty"`
	MessageID      string `json:"messageId"`
	ConversationID string `json:"conversationId"`
	User           string `json:"user"`
}

// Workflow associates a rating with a specific finished message and performs
// the submission. A thumbs-up submits immediately; a thumbs-down opens a
// feedback-collection state awaiting free text.
type Workflow struct {
	baseURL    string
	httpClient *http.Client
	conv       *chat.Conversation
	session    func() auth.Session
	notify     func(Notice)

	target     *chat.Message
	collecting bool
}

// NewWorkflow creates a workflow bound to the live conversation and the
// session accessor supplying the submitting user.
func NewWorkflow(baseURL string, conv *chat.Conversation, session func() auth.Session) *Workflow {
	return &Workflow{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		conv:    conv,
		session: session,
	}
}

// OnNotice registers the renderer for workflow notices.
func (w *Workflow) OnNotice(fn func(Notice)) {
	w.notify = fn
}

// Collecting reports whether the workflow is waiting for feedback text.
func (w *Workflow) Collecting() bool {
	return w.collecting
}

// Rate records msg as the rating target. Up submits immediately; down opens
// the feedback-collection state without submitting.
func (w *Workflow) Rate(ctx context.Context, rating Rating, msg *chat.Message) error {
	if msg == nil || !msg.Terminal() {
		return ErrNotRatable
	}

	w.target = msg
	if rating == RatingUp {
		return w.submit(ctx, Request{Rating: RatingUp})
	}

	w.collecting = true
	return nil
}

// SubmitFeedback submits the recorded thumbs-down with the given free text.
// Blank text surfaces a validation notice and leaves the collection state
// open.
func (w *Workflow) SubmitFeedback(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		w.emit(NoticeValidation, "Please enter some feedback before submitting.")
		return ErrEmptyFeedback
	}

	if err := w.submit(ctx, Request{Rating: RatingDown, FeedbackText: text}); err != nil {
		return err
	}

	w.collecting = false
	return nil
}

// Reset drops any rating target and feedback collection in progress.
func (w *Workflow) Reset() {
	w.target = nil
	w.collecting = false
}

// submit fills in the identity fields and performs the POST. Failure keeps
// the target and collection state so the user may retry.
func (w *Workflow) submit(ctx context.Context, req Request) error {
	if w.target == nil {
		w.emit(NoticeError, "There is no message to rate.")
		return ErrNoTarget
	}

	req.MessageID = w.target.ID
	req.ConversationID = w.conv.ID
	req.User = w.session().UserID

	if err := w.post(ctx, req); err != nil {
		logger.Error("feedback: submission failed: %v", err)
		w.emit(NoticeError, "Failed to submit your feedback. Please try again.")
		return err
	}

	logger.Info("feedback: submitted %s rating for message %q", req.Rating, req.MessageID)
	w.emit(NoticeInfo, "Thanks for your feedback!")
	w.target = nil
	return nil
}

func (w *Workflow) post(ctx context.Context, req Request) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to encode feedback: %w", err)
	}

	url := fmt.Sprintf("%s/api/feedback", w.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("feedback request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("feedback request failed with status %d", resp.StatusCode)
	}

	return nil
}

func (w *Workflow) emit(kind NoticeKind, text string) {
	if w.notify != nil {
		w.notify(Notice{Kind: kind, Text: text})
	}
}
