// Package advisor wraps the external chat-assistant collaborator: a
// request/response call to an Anthropic-style messages endpoint with a
// poultry-husbandry system prompt. When no API key is configured the
// keyword fallback answers common questions locally.
package advisor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	apiURL     = "https://api.anthropic.com/v1/messages"
	apiVersion = "2023-06-01"
	model      = "claude-3-haiku-20240307"
	maxTokens  = 1024
)

const systemPrompt = `You are a poultry farming assistant. Answer questions ` +
	`about flock health, feed, egg production, vaccination schedules and ` +
	`general husbandry. Be concise and practical. For anything that sounds ` +
	`like a serious disease outbreak, recommend contacting a veterinarian.`

// Client answers free-form husbandry questions.
type Client interface {
	Ask(ctx context.Context, question string) (string, error)
}

type apiClient struct {
	httpClient *resty.Client
}

// NewClient creates a configured API-backed advisor.
func NewClient(apiKey string) Client {
	client := resty.New().
		SetHeader("x-api-key", apiKey).
		SetHeader("anthropic-version", apiVersion).
		SetHeader("content-type", "application/json").
		SetTimeout(15 * time.Second)

	return &apiClient{httpClient: client}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messageRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system"`
	Messages  []message `json:"messages"`
}

type messageResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

func (c *apiClient) Ask(ctx context.Context, question string) (string, error) {
	reqBody := messageRequest{
		Model:     model,
		MaxTokens: maxTokens,
		System:    systemPrompt,
		Messages:  []message{{Role: "user", Content: question}},
	}

	var respBody messageResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(reqBody).
		SetResult(&respBody).
		Post(apiURL)
	if err != nil {
		return "", fmt.Errorf("advisor api call: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("advisor api error: %s", resp.String())
	}
	if len(respBody.Content) == 0 {
		return "", fmt.Errorf("empty response from advisor")
	}

	return strings.TrimSpace(respBody.Content[0].Text), nil
}

// Fallback answers a handful of common topics without any external call.
type Fallback struct{}

func NewFallback() Client { return Fallback{} }

func (Fallback) Ask(_ context.Context, question string) (string, error) {
	q := strings.ToLower(question)

	switch {
	case containsAny(q, "eating", "feed", "appetite"):
		return "Loss of appetite can signal illness or heat stress. Check water availability and feed freshness, and isolate birds that stop eating for more than a day.", nil
	case containsAny(q, "sick", "ill", "disease"):
		return "Separate visibly sick birds from the flock immediately and watch for spreading symptoms. If several birds are affected, contact a veterinarian.", nil
	case containsAny(q, "vaccine", "vaccination"):
		return "Keep vaccinations on schedule and record each one against the batch. Mark a vaccination as done only after it has been administered.", nil
	case containsAny(q, "egg", "laying", "production"):
		return "A sudden drop in lay usually points to stress, lighting changes or feed quality. Compare the last few egg production records for the batch.", nil
	case containsAny(q, "mortality", "death", "dead"):
		return "Record every death with its cause so the batch counter stays accurate. Rising mortality over several days warrants a veterinary visit.", nil
	case containsAny(q, "hello", "hi", "hey"):
		return "Hello! Ask me about feed, egg production, vaccination or flock health.", nil
	default:
		return "I can help with feed, egg production, vaccination schedules and flock health. Could you give me a bit more detail?", nil
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
