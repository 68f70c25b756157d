package adapter

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"marketpulse/internal/domain"
)

const quoteSystemPrompt = "Bạn là người viết câu trích dẫn truyền cảm hứng ngắn gọn bằng tiếng Việt. " +
	"Trả lời đúng một dòng theo dạng: câu trích dẫn - tác giả."

// QuoteConfig holds the chat completion settings
type QuoteConfig struct {
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url" default:"https://api.openai.com/v1"`
	Model       string        `yaml:"model" default:"gpt-3.5-turbo"`
	Temperature float64       `yaml:"temperature" default:"0.8"`
	MaxTokens   int           `yaml:"max_tokens" default:"200"`
	Timeout     time.Duration `yaml:"timeout" default:"20s"`
}

// OpenAIQuoteService implements domain.QuoteService over the chat completions API
type OpenAIQuoteService struct {
	cfg        QuoteConfig
	httpClient *http.Client
}

// NewOpenAIQuoteService creates a new quote service
func NewOpenAIQuoteService(cfg QuoteConfig) *OpenAIQuoteService {
	return &OpenAIQuoteService{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// GetQuote asks the model for one quote suited to the market mood
func (s *OpenAIQuoteService) GetQuote(ctx context.Context, mood string) (*domain.Quote, error) {
	if s.cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: api key not configured", domain.ErrQuoteUnavailable)
	}

	prompt := "Viết một câu trích dẫn ngắn giúp nhà đầu tư giữ bình tĩnh và kỷ luật."
	if mood != "" {
		prompt += " Bối cảnh thị trường hôm nay: " + mood + "."
	}

	reqBody := chatCompletionRequest{
		Model: s.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: quoteSystemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: s.cfg.Temperature,
		MaxTokens:   s.cfg.MaxTokens,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/chat/completions", strings.TrimRight(s.cfg.BaseURL, "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call quote model: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return nil, fmt.Errorf("failed to decode response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := resp.Status
		if completion.Error != nil {
			msg = completion.Error.Message
		}
		return nil, fmt.Errorf("quote model returned error: status=%d, message=%s", resp.StatusCode, msg)
	}

	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty completion", domain.ErrQuoteUnavailable)
	}

	return ParseQuote(completion.Choices[0].Message.Content)
}

// ParseQuote splits "content - author" on the last dash separator
func ParseQuote(text string) (*domain.Quote, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty text", domain.ErrQuoteUnavailable)
	}

	content, author := text, ""
	for _, sep := range []string{" — ", " – ", " - "} {
		if i := strings.LastIndex(text, sep); i > 0 {
			content = text[:i]
			author = strings.TrimSpace(text[i+len(sep):])
			break
		}
	}

	content = strings.Trim(strings.TrimSpace(content), "\"“”")
	if content == "" {
		return nil, fmt.Errorf("%w: no quote text", domain.ErrQuoteUnavailable)
	}

	return &domain.Quote{Content: content, Author: author}, nil
}
