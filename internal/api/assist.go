package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

const (
	DefaultAssistBaseURL = "https://api.openai.com/v1"
	DefaultAssistModel   = "gpt-4o-mini"
)

// ErrNoAPIKey means the query assist was requested without OPENAI_API_KEY
var ErrNoAPIKey = errors.New("OPENAI_API_KEY is not set")

// Suggester turns a plain description into a GitHub search query using a
// chat completion endpoint.
type Suggester struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	logger     *log.Logger
}

// NewSuggester creates a query assist client. Empty baseURL or model
// select the defaults.
func NewSuggester(apiKey, baseURL, model string, timeout time.Duration, logger *log.Logger) *Suggester {
	if baseURL == "" {
		baseURL = DefaultAssistBaseURL
	}
	if model == "" {
		model = DefaultAssistModel
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Suggester{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     strings.TrimSpace(apiKey),
		model:      model,
		logger:     logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func suggestionPrompt(description string) string {
	return fmt.Sprintf("You are helping craft a concise GitHub search query to find repositories with releases. "+
		"Description: %q. Respond as JSON: {\"query\": \"...\"} with no extra text.", description)
}

// Suggest asks the model for a search query matching description
func (s *Suggester) Suggest(ctx context.Context, description string) (string, error) {
	if s.apiKey == "" {
		return "", ErrNoAPIKey
	}

	body, err := json.Marshal(chatRequest{
		Model:    s.model,
		Messages: []chatMessage{{Role: "user", Content: suggestionPrompt(description)}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := s.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	if s.logger != nil {
		s.logger.Info("POST chat completion", "endpoint", endpoint, "model", s.model)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", &TransportError{Method: http.MethodPost, URL: endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		httpErr := newHTTPError(resp)
		if s.logger != nil {
			s.logger.Error("Chat completion error", "status", resp.StatusCode, "response", httpErr.Body)
		}
		return "", fmt.Errorf("query assist failed: %w", httpErr)
	}

	var completion chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return "", &ParseError{What: "chat completion", Err: err}
	}
	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == nil {
		return "", errors.New("query assist returned empty content")
	}

	return ParseSuggestion(*completion.Choices[0].Message.Content)
}

// ParseSuggestion decodes {"query": "..."} from model output, tolerating a
// surrounding markdown code fence.
func ParseSuggestion(content string) (string, error) {
	var suggestion struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal([]byte(StripCodeFence(content)), &suggestion); err != nil {
		return "", &ParseError{What: "query suggestion", Err: err}
	}
	query := strings.TrimSpace(suggestion.Query)
	if query == "" {
		return "", errors.New("query assist returned an empty query")
	}
	return query, nil
}

// StripCodeFence removes a ``` fence, with or without a language tag
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		// single line: ```json{"query": "x"}```
		s = strings.TrimLeftFunc(s, func(r rune) bool {
			return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z'
		})
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
