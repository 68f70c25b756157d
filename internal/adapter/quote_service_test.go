package adapter

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketpulse/internal/domain"
)

func TestParseQuote(t *testing.T) {
	tests := []struct {
		name       string
		in         string
		wantQuote  string
		wantAuthor string
		wantErr    bool
	}{
		{name: "plain dash", in: "Kiên nhẫn là sức mạnh - Lão Tử", wantQuote: "Kiên nhẫn là sức mạnh", wantAuthor: "Lão Tử"},
		{name: "quoted em dash", in: "\"Stay the course\" — John Bogle", wantQuote: "Stay the course", wantAuthor: "John Bogle"},
		{name: "hyphen inside quote", in: "Long-term wins - Anon", wantQuote: "Long-term wins", wantAuthor: "Anon"},
		{name: "no author", in: "Just breathe", wantQuote: "Just breathe"},
		{name: "empty", in: "  ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := ParseQuote(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, domain.ErrQuoteUnavailable))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantQuote, q.Content)
			assert.Equal(t, tt.wantAuthor, q.Author)
		})
	}
}

func TestOpenAIQuoteService_GetQuote(t *testing.T) {
	var got chatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Giữ kỷ luật - Warren Buffett"}}]}`))
	}))
	defer srv.Close()

	svc := NewOpenAIQuoteService(QuoteConfig{
		APIKey:      "sk-test",
		BaseURL:     srv.URL,
		Model:       "gpt-3.5-turbo",
		Temperature: 0.8,
		MaxTokens:   200,
		Timeout:     time.Second,
	})

	q, err := svc.GetQuote(context.Background(), "RISK_OFF")
	require.NoError(t, err)
	assert.Equal(t, "Giữ kỷ luật", q.Content)
	assert.Equal(t, "Warren Buffett", q.Author)
	assert.Equal(t, "gpt-3.5-turbo", got.Model)
	assert.Equal(t, 200, got.MaxTokens)
	require.Len(t, got.Messages, 2)
	assert.Contains(t, got.Messages[1].Content, "RISK_OFF")
}

func TestOpenAIQuoteService_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer srv.Close()

	svc := NewOpenAIQuoteService(QuoteConfig{APIKey: "k", BaseURL: srv.URL, Timeout: time.Second})
	_, err := svc.GetQuote(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")

	_, err = NewOpenAIQuoteService(QuoteConfig{}).GetQuote(context.Background(), "")
	assert.True(t, errors.Is(err, domain.ErrQuoteUnavailable))
}
