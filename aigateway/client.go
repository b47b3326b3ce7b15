// Package aigateway implements the text_to_sql command: a thin HTTPS JSON client against an
// OpenAI-compatible chat-completions endpoint that turns a natural-language prompt plus a
// schema description into a single SQL statement.
package aigateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

// DefaultBaseURL is the Groq OpenAI-compatible chat-completions endpoint; Groq is used as the
// default provider because it's the one the text-to-SQL feature was originally built against.
const DefaultBaseURL = "https://api.groq.com/openai/v1/chat/completions"

// DefaultModel is the model used unless Client.Model overrides it.
const DefaultModel = "llama-3.3-70b-versatile"

// ErrQuotaExceeded is returned instead of a generic request error when the provider responds
// with HTTP 429, so callers can distinguish a rate/quota problem from any other API failure.
var ErrQuotaExceeded = errors.New("AI gateway quota exceeded")

// BearerAuthTransport is an http.RoundTripper that adds an Authorization: Bearer header to
// every request it forwards.
type BearerAuthTransport struct {
	http.RoundTripper

	APIKey string
}

// RoundTrip adds the bearer token and executes the request.
func (t *BearerAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("Authorization", "Bearer "+t.APIKey)
	return t.RoundTripper.RoundTrip(req)
}

// Client calls a chat-completions endpoint to generate SQL from natural language.
type Client struct {
	cfg    Config
	client http.Client
}

// Config holds the gateway's connection details.
type Config struct {
	APIKey  string
	BaseURL string // defaults to DefaultBaseURL if empty
	Model   string // defaults to DefaultModel if empty
}

// NewClient returns a Client that authenticates every request with cfg.APIKey.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	return &Client{
		cfg: cfg,
		client: http.Client{
			Transport: &BearerAuthTransport{RoundTripper: http.DefaultTransport, APIKey: cfg.APIKey},
		},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type apiErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// GenerateSQL asks the configured model to translate prompt into dbType SQL given
// schemaContext (a textual description of the tables/columns available), and returns the raw
// SQL string with any accidental markdown code fences stripped.
func (c *Client) GenerateSQL(ctx context.Context, prompt, schemaContext, dbType string) (string, error) {
	systemPrompt := "You are an expert " + dbType + " SQL query generator. " +
		"Given the database schema below, convert the user's natural language request into a valid SQL query.\n\n" +
		"RULES:\n" +
		"- Output ONLY the raw SQL query, nothing else\n" +
		"- No markdown formatting, no code fences, no explanations\n" +
		"- Use the exact table and column names from the schema\n" +
		"- Write syntactically correct " + dbType + " SQL\n\n" +
		"DATABASE SCHEMA:\n" + schemaContext

	reqBody := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.1,
		MaxTokens:   1024,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", errors.Wrap(err, "cannot encode AI gateway request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "cannot create AI gateway request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "cannot call AI gateway")
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return "", decodeAPIError(resp)
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", errors.Wrap(err, "cannot decode AI gateway response")
	}
	if len(decoded.Choices) == 0 {
		return "", errors.New("AI gateway returned no choices")
	}

	return stripCodeFences(decoded.Choices[0].Message.Content), nil
}

func decodeAPIError(resp *http.Response) error {
	var buf bytes.Buffer
	_, _ = io.Copy(&buf, &io.LimitedReader{R: resp.Body, N: 1 << 16})

	var parsed apiErrorResponse
	message := buf.String()
	if err := json.Unmarshal(buf.Bytes(), &parsed); err == nil && parsed.Error.Message != "" {
		message = parsed.Error.Message
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return errors.Wrap(ErrQuotaExceeded, message)
	}

	return errors.Errorf("AI gateway error (%d): %s", resp.StatusCode, strings.TrimSpace(message))
}

func stripCodeFences(sql string) string {
	s := strings.TrimSpace(sql)
	s = strings.TrimPrefix(s, "```sql")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
