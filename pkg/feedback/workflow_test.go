package feedback

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parley-chat/parley/pkg/auth"
	"github.com/parley-chat/parley/pkg/chat"
)

type submissionRecorder struct {
	requests []Request
	status   int
}

func (sr *submissionRecorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req Request
	_ = json.NewDecoder(r.Body).Decode(&req)
	sr.requests = append(sr.requests, req)
	if sr.status != 0 {
		w.WriteHeader(sr.status)
	}
}

func newWorkflowFixture(t *testing.T, status int) (*Workflow, *chat.Message, *submissionRecorder, *[]Notice) {
	t.Helper()
	recorder := &submissionRecorder{status: status}
	mux := http.NewServeMux()
	mux.Handle("/api/feedback", recorder)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	conv := chat.NewConversation("greeting")
	conv.AdoptID("c1")
	msg := chat.NewPendingMessage("hi")
	msg.ID = "m1"
	msg.AppendAnswer("answer")
	msg.Finalize()
	conv.Append(msg)

	w := NewWorkflow(srv.URL, conv, func() auth.Session {
		return auth.Session{UserID: "u1", Authenticated: true}
	})

	var notices []Notice
	w.OnNotice(func(n Notice) { notices = append(notices, n) })

	return w, msg, recorder, &notices
}

func TestRateUpSubmitsImmediately(t *testing.T) {
	w, msg, recorder, notices := newWorkflowFixture(t, 0)

	require.NoError(t, w.Rate(context.Background(), RatingUp, msg))

	require.Len(t, recorder.requests, 1)
	sent := recorder.requests[0]
	assert.Equal(t, RatingUp, sent.Rating)
	assert.Empty(t, sent.FeedbackText)
	assert.Equal(t, "m1", sent.MessageID)
	assert.Equal(t, "c1", sent.ConversationID)
	assert.Equal(t, "u1", sent.User)
	assert.False(t, w.Collecting())

	require.Len(t, *notices, 1)
	assert.Equal(t, NoticeInfo, (*notices)[0].Kind)
}

func TestRateDownOpensCollectionWithoutSubmitting(t *testing.T) {
	w, msg, recorder, _ := newWorkflowFixture(t, 0)

	require.NoError(t, w.Rate(context.Background(), RatingDown, msg))

	assert.True(t, w.Collecting())
	assert.Empty(t, recorder.requests)
}

func TestSubmitFeedbackEmptyTextKeepsCollectionOpen(t *testing.T) {
	w, msg, recorder, notices := newWorkflowFixture(t, 0)
	require.NoError(t, w.Rate(context.Background(), RatingDown, msg))

	err := w.SubmitFeedback(context.Background(), "   ")

	assert.ErrorIs(t, err, ErrEmptyFeedback)
	assert.True(t, w.Collecting(), "collection state must stay open")
	assert.Empty(t, recorder.requests, "nothing may be submitted")
	require.Len(t, *notices, 1)
	assert.Equal(t, NoticeValidation, (*notices)[0].Kind)
}

func TestSubmitFeedbackSendsDownRating(t *testing.T) {
	w, msg, recorder, _ := newWorkflowFixture(t, 0)
	require.NoError(t, w.Rate(context.Background(), RatingDown, msg))

	require.NoError(t, w.SubmitFeedback(context.Background(), "too vague"))

	require.Len(t, recorder.requests, 1)
	sent := recorder.requests[0]
	assert.Equal(t, RatingDown, sent.Rating)
	assert.Equal(t, "too vague", sent.FeedbackText)
	assert.Equal(t, "m1", sent.MessageID)
	assert.False(t, w.Collecting(), "collection state closes on success")
}

func TestSubmitFailurePreservesStateForRetry(t *testing.T) {
	w, msg, recorder, notices := newWorkflowFixture(t, http.StatusInternalServerError)
	require.NoError(t, w.Rate(context.Background(), RatingDown, msg))

	err := w.SubmitFeedback(context.Background(), "broken answer")

	require.Error(t, err)
	assert.True(t, w.Collecting(), "state preserved so the user may retry")
	require.Len(t, recorder.requests, 1)
	require.Len(t, *notices, 1)
	assert.Equal(t, NoticeError, (*notices)[0].Kind)

	// Retry against the same target still carries the message id.
	recorder.status = 0
	require.NoError(t, w.SubmitFeedback(context.Background(), "broken answer"))
	require.Len(t, recorder.requests, 2)
	assert.Equal(t, "m1", recorder.requests[1].MessageID)
}

func TestSubmitWithoutTargetSurfacesError(t *testing.T) {
	w, _, recorder, notices := newWorkflowFixture(t, 0)

	err := w.SubmitFeedback(context.Background(), "text without a rating first")

	assert.ErrorIs(t, err, ErrNoTarget)
	assert.Empty(t, recorder.requests)
	require.Len(t, *notices, 1)
	assert.Equal(t, NoticeError, (*notices)[0].Kind)
}

func TestRateRejectsStreamingMessage(t *testing.T) {
	w, _, recorder, _ := newWorkflowFixture(t, 0)
	streaming := chat.NewPendingMessage("hi")
	streaming.AppendAnswer("part")

	err := w.Rate(context.Background(), RatingUp, streaming)

	assert.ErrorIs(t, err, ErrNotRatable)
	assert.Empty(t, recorder.requests)
}

func TestResetDropsCollectionState(t *testing.T) {
	w, msg, _, _ := newWorkflowFixture(t, 0)
	require.NoError(t, w.Rate(context.Background(), RatingDown, msg))

	w.Reset()

	assert.False(t, w.Collecting())
	assert.ErrorIs(t, w.SubmitFeedback(context.Background(), "text"), ErrNoTarget)
}
