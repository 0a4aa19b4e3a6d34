package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"dogenews/internal/format"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	tb "gopkg.in/tucnak/telebot.v2"
)

// fakeAPI serves the handful of Bot API methods the client uses.
type fakeAPI struct {
	mu       sync.Mutex
	sent     []map[string]any
	failWith map[string]string // chat_id -> raw error response
	delay    time.Duration
}

func (f *fakeAPI) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/getMe"):
			_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"Doge","username":"dogebot"}}`))
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			if f.delay > 0 {
				time.Sleep(f.delay)
			}
			f.mu.Lock()
			f.sent = append(f.sent, body)
			resp, fail := f.failWith[body["chat_id"].(string)]
			f.mu.Unlock()
			if fail {
				_, _ = w.Write([]byte(resp))
				return
			}
			_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":42,"type":"private"},"text":"ok"}}`))
		default:
			_, _ = w.Write([]byte(`{"ok":true,"result":true}`))
		}
	}
}

func newTestClient(t *testing.T, api *fakeAPI) *Client {
	srv := httptest.NewServer(api.handler(t))
	t.Cleanup(srv.Close)

	c, err := New(Options{Token: "test-token", APIURL: srv.URL, Timeout: 5 * time.Second}, zaptest.NewLogger(t))
	require.NoError(t, err)
	return c
}

func TestSendMarkdown(t *testing.T) {
	api := &fakeAPI{}
	c := newTestClient(t, api)

	err := c.Send(context.Background(), 42, format.Message{Text: "*hi*", Markdown: true, DisablePreview: true})
	require.NoError(t, err)

	require.Len(t, api.sent, 1)
	got := api.sent[0]
	assert.Equal(t, "42", got["chat_id"])
	assert.Equal(t, "*hi*", got["text"])
	assert.Equal(t, string(tb.ModeMarkdown), got["parse_mode"])
}

func TestSendPlainHasNoParseMode(t *testing.T) {
	api := &fakeAPI{}
	c := newTestClient(t, api)

	require.NoError(t, c.Send(context.Background(), 42, format.Plain("hello_world")))

	require.Len(t, api.sent, 1)
	_, hasMode := api.sent[0]["parse_mode"]
	assert.False(t, hasMode)
}

func TestSendBlockedIsRecipientGone(t *testing.T) {
	api := &fakeAPI{failWith: map[string]string{
		"13": `{"ok":false,"error_code":403,"description":"Forbidden: bot was blocked by the user"}`,
	}}
	c := newTestClient(t, api)

	err := c.Send(context.Background(), 13, format.Plain("hi"))
	require.Error(t, err)
	assert.True(t, IsRecipientGone(err))
}

func TestSendRateLimitIsTransient(t *testing.T) {
	api := &fakeAPI{failWith: map[string]string{
		"13": `{"ok":false,"error_code":429,"description":"Too Many Requests: retry after 5","parameters":{"retry_after":5}}`,
	}}
	c := newTestClient(t, api)

	err := c.Send(context.Background(), 13, format.Plain("hi"))
	require.Error(t, err)
	assert.False(t, IsRecipientGone(err))
}

func TestSendHonoursContext(t *testing.T) {
	api := &fakeAPI{delay: 500 * time.Millisecond}
	c := newTestClient(t, api)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := c.Send(ctx, 42, format.Plain("slow"))
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, IsRecipientGone(err))
}

func TestReplierTargetsChat(t *testing.T) {
	api := &fakeAPI{}
	c := newTestClient(t, api)

	r := chatReplier{client: c, chatID: 99, timeout: time.Second}
	require.NoError(t, r.Reply(context.Background(), format.Plain("pong")))

	require.Len(t, api.sent, 1)
	assert.Equal(t, "99", api.sent[0]["chat_id"])
}

func TestNewRejectsBadToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":401,"description":"Unauthorized"}`))
	}))
	defer srv.Close()

	_, err := New(Options{Token: "bad", APIURL: srv.URL}, zaptest.NewLogger(t))
	require.Error(t, err)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		gone bool
	}{
		{"nil", nil, false},
		{"blocked sentinel", tb.ErrBlockedByUser, true},
		{"chat not found sentinel", tb.ErrChatNotFound, true},
		{"deactivated", errors.New("telegram unknown: Forbidden: user is deactivated (403)"), true},
		{"kicked", errors.New("telegram unknown: Forbidden: bot was kicked from the group chat (403)"), true},
		{"never started", errors.New("Forbidden: bot can't initiate conversation with a user"), true},
		{"timeout", context.DeadlineExceeded, false},
		{"server error", errors.New("telegram unknown: Internal Server Error (500)"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err)
			if tt.err == nil {
				assert.NoError(t, got)
				return
			}
			assert.Equal(t, tt.gone, IsRecipientGone(got))
			assert.ErrorContains(t, got, tt.err.Error())
		})
	}
}
