package telegram

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketpulse/internal/domain"
)

func TestChannel_Send(t *testing.T) {
	tests := []struct {
		name          string
		plain         bool
		status        int
		body          string
		wantErr       bool
		wantStatus    int
		wantDesc      string
		wantParseMode string
	}{
		{
			name:          "html ok",
			status:        http.StatusOK,
			body:          `{"ok":true}`,
			wantParseMode: "HTML",
		},
		{
			name:          "plain ok",
			plain:         true,
			status:        http.StatusOK,
			body:          `{"ok":true}`,
			wantParseMode: "",
		},
		{
			name:          "markup rejected",
			status:        http.StatusBadRequest,
			body:          `{"ok":false,"error_code":400,"description":"Bad Request: can't parse entities"}`,
			wantErr:       true,
			wantStatus:    http.StatusBadRequest,
			wantDesc:      "Bad Request: can't parse entities",
			wantParseMode: "HTML",
		},
		{
			name:          "gateway error without json",
			status:        http.StatusBadGateway,
			body:          `<html>bad gateway</html>`,
			wantErr:       true,
			wantStatus:    http.StatusBadGateway,
			wantDesc:      `<html>bad gateway</html>`,
			wantParseMode: "HTML",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got telegramMessage
			var gotPath string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				raw, _ := io.ReadAll(r.Body)
				_ = json.Unmarshal(raw, &got)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			ch := NewChannel("TOKEN", srv.URL, time.Second)
			err := ch.Send(context.Background(), "123", "<b>hi</b>", tt.plain)

			assert.Equal(t, "/botTOKEN/sendMessage", gotPath)
			assert.Equal(t, "123", got.ChatID)
			assert.Equal(t, "<b>hi</b>", got.Text)
			assert.Equal(t, tt.wantParseMode, got.ParseMode)

			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			var chErr *domain.ChannelError
			require.True(t, errors.As(err, &chErr))
			assert.Equal(t, tt.wantStatus, chErr.StatusCode)
			assert.Equal(t, tt.wantDesc, chErr.Description)
		})
	}
}

func TestChannel_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	ch := NewChannel("TOKEN", url, time.Second)
	err := ch.Send(context.Background(), "1", "x", false)
	require.Error(t, err)

	var chErr *domain.ChannelError
	assert.False(t, errors.As(err, &chErr), "network failures are not channel errors")
	assert.Equal(t, MessageLimit, ch.Limit())
}
