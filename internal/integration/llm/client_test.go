package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	cflog "github.com/gazolla/cafeflow/internal/log"
	"github.com/gazolla/cafeflow/internal/protect"
	"github.com/gazolla/cafeflow/internal/transport"
)

type mockChatClient struct {
	mock.Mock
}

func (m *mockChatClient) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(openai.ChatCompletionResponse), args.Error(1)
}

func reply(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content},
		}},
	}
}

func newMockClient(t *testing.T, provider Provider) (*Client, *mockChatClient) {
	t.Helper()
	chat := &mockChatClient{}
	client, err := New(Config{Provider: provider, APIKey: "key", Chat: chat, RequestDelay: 10 * time.Millisecond},
		protect.New(cflog.Discard()), cflog.Discard())
	require.NoError(t, err)
	return client, chat
}

func TestNew_ProviderDefaults(t *testing.T) {
	client, _ := newMockClient(t, ProviderGroq)
	assert.Equal(t, ProviderGroq, client.Provider())
	assert.Equal(t, "llama-3.3-70b-versatile", client.Model())

	client, _ = newMockClient(t, ProviderGemini)
	assert.Equal(t, "gemini-2.0-flash", client.Model())

	_, err := New(Config{Provider: "openai"}, nil, nil)
	assert.Error(t, err)
}

func TestComplete(t *testing.T) {
	client, chat := newMockClient(t, ProviderGroq)
	chat.On("CreateChatCompletion", mock.Anything, mock.MatchedBy(func(req openai.ChatCompletionRequest) bool {
		return req.Model == "llama-3.3-70b-versatile" &&
			len(req.Messages) == 1 &&
			req.Messages[0].Role == openai.ChatMessageRoleUser &&
			req.Messages[0].Content == "ping"
	})).Return(reply("  pong \n"), nil).Once()

	out, err := client.Complete(context.Background(), "ping")
	require.NoError(t, err)
	assert.Equal(t, "pong", out)
	chat.AssertExpectations(t)
}

func TestSummarize_SendsWordLimit(t *testing.T) {
	client, chat := newMockClient(t, ProviderGemini)
	chat.On("CreateChatCompletion", mock.Anything, mock.MatchedBy(func(req openai.ChatCompletionRequest) bool {
		return len(req.Messages) == 2 &&
			req.Messages[0].Role == openai.ChatMessageRoleSystem &&
			strings.Contains(req.Messages[0].Content, "at most 50 words")
	})).Return(reply("short summary"), nil)

	out, err := client.Summarize(context.Background(), "long post body", 50)
	require.NoError(t, err)
	assert.Equal(t, "short summary", out)
}

func TestSummarizeEach_PausesBetweenCallsAndStopsOnError(t *testing.T) {
	client, chat := newMockClient(t, ProviderGroq)
	chat.On("CreateChatCompletion", mock.Anything, mock.MatchedBy(func(req openai.ChatCompletionRequest) bool {
		return req.Messages[1].Content != "bad"
	})).Return(reply("ok"), nil)
	chat.On("CreateChatCompletion", mock.Anything, mock.MatchedBy(func(req openai.ChatCompletionRequest) bool {
		return req.Messages[1].Content == "bad"
	})).Return(openai.ChatCompletionResponse{}, &openai.APIError{HTTPStatusCode: 500, Message: "upstream"})

	start := time.Now()
	out, err := client.SummarizeEach(context.Background(), []string{"a", "b", "c"}, 20)
	require.NoError(t, err)
	assert.Equal(t, []string{"ok", "ok", "ok"}, out)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond, "three calls need two delays")

	out, err = client.SummarizeEach(context.Background(), []string{"a", "bad", "c"}, 20)
	require.Error(t, err)
	assert.Equal(t, []string{"ok"}, out)
}

func TestSummarizeEach_DelayFollowsSlowCalls(t *testing.T) {
	client, chat := newMockClient(t, ProviderGroq)
	var starts, ends []time.Time
	chat.On("CreateChatCompletion", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		starts = append(starts, time.Now())
		time.Sleep(30 * time.Millisecond)
		ends = append(ends, time.Now())
	}).Return(reply("ok"), nil)

	_, err := client.SummarizeEach(context.Background(), []string{"a", "b"}, 20)
	require.NoError(t, err)
	require.Len(t, starts, 2)
	assert.GreaterOrEqual(t, starts[1].Sub(ends[0]), 10*time.Millisecond)
}

func TestSummarizeEach_CancelledDuringPause(t *testing.T) {
	chat := &mockChatClient{}
	client, err := New(Config{Provider: ProviderGroq, APIKey: "key", Chat: chat, RequestDelay: time.Hour},
		protect.New(cflog.Discard()), cflog.Discard())
	require.NoError(t, err)
	chat.On("CreateChatCompletion", mock.Anything, mock.Anything).Return(reply("ok"), nil).Once()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	out, err := client.SummarizeEach(ctx, []string{"a", "b"}, 20)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, []string{"ok"}, out)
	chat.AssertExpectations(t)
}

func TestClassify_LogsProvider(t *testing.T) {
	var buf bytes.Buffer
	chat := &mockChatClient{}
	client, err := New(Config{Provider: ProviderGemini, APIKey: "key", Chat: chat},
		protect.New(cflog.Discard()), cflog.New(&cflog.Config{Level: "warn", Format: cflog.FormatJSON, Output: &buf}))
	require.NoError(t, err)
	chat.On("CreateChatCompletion", mock.Anything, mock.Anything).Return(reply(`{"label": "spam"}`), nil)

	got, err := client.Classify(context.Background(), "hello", []string{"question", "news"})
	require.NoError(t, err)
	assert.Equal(t, UnknownLabel, got.Label)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, ServiceName, entry[cflog.ServiceKey])
	assert.Equal(t, "gemini", entry[cflog.ProviderKey])
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  Classification
	}{
		{
			name:  "json in prose",
			reply: "Sure! Here you go:\n```json\n{\"label\": \"Question\", \"confidence\": 0.9, \"reason\": \"asks how\"}\n```",
			want:  Classification{Label: "question", Confidence: 0.9, Reason: "asks how"},
		},
		{
			name:  "no json",
			reply: "I think it is a question",
			want:  Classification{Label: UnknownLabel},
		},
		{
			name:  "label outside the set",
			reply: `{"label": "rant", "confidence": 0.8}`,
			want:  Classification{Label: UnknownLabel},
		},
		{
			name:  "malformed json",
			reply: `{"label": question}`,
			want:  Classification{Label: UnknownLabel},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, chat := newMockClient(t, ProviderGroq)
			chat.On("CreateChatCompletion", mock.Anything, mock.Anything).Return(reply(tt.reply), nil)

			got, err := client.Classify(context.Background(), "How do I use generics?", []string{"question", "news", "showcase"})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassify_RequiresLabels(t *testing.T) {
	client, chat := newMockClient(t, ProviderGroq)

	_, err := client.Classify(context.Background(), "text", nil)
	assert.Error(t, err)
	chat.AssertNotCalled(t, "CreateChatCompletion", mock.Anything, mock.Anything)
}

func TestComplete_ErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantType  transport.ErrorType
		retryable bool
	}{
		{name: "rate limited", err: &openai.APIError{HTTPStatusCode: 429, Message: "slow down"}, wantType: transport.ErrorTypeRateLimit, retryable: true},
		{name: "bad key", err: &openai.APIError{HTTPStatusCode: 401, Message: "invalid api key"}, wantType: transport.ErrorTypeAuth},
		{name: "request error", err: &openai.RequestError{HTTPStatusCode: 503, Err: errors.New("unavailable")}, wantType: transport.ErrorTypeServer, retryable: true},
		{name: "network", err: errors.New("dial tcp: no route to host"), wantType: transport.ErrorTypeConnection, retryable: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, chat := newMockClient(t, ProviderGroq)
			chat.On("CreateChatCompletion", mock.Anything, mock.Anything).Return(openai.ChatCompletionResponse{}, tt.err)

			_, err := client.Complete(context.Background(), "ping")
			require.Error(t, err)

			pErr, ok := protect.As(err)
			require.True(t, ok)
			assert.Equal(t, ServiceName, pErr.Service)
			assert.Equal(t, "complete", pErr.Operation)

			var tErr *transport.TransportError
			require.True(t, errors.As(err, &tErr))
			assert.Equal(t, tt.wantType, tErr.Type)
			assert.Equal(t, tt.retryable, tErr.IsRetryable())
		})
	}
}

func TestComplete_NoChoices(t *testing.T) {
	client, chat := newMockClient(t, ProviderGroq)
	chat.On("CreateChatCompletion", mock.Anything, mock.Anything).Return(openai.ChatCompletionResponse{}, nil)

	_, err := client.Complete(context.Background(), "ping")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestComplete_OpenAICompatibleEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/openai/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer gsk_test", r.Header.Get("Authorization"))

		var req openai.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama-3.1-8b-instant", req.Model)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(reply("from groq"))
	}))
	defer server.Close()

	client, err := New(Config{
		Provider:   ProviderGroq,
		APIKey:     "gsk_test",
		Model:      "llama-3.1-8b-instant",
		BaseURL:    server.URL + "/openai/v1/",
		HTTPClient: server.Client(),
	}, protect.New(cflog.Discard()), cflog.Discard())
	require.NoError(t, err)

	out, err := client.Complete(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "from groq", out)
}
