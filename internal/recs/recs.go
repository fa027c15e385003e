// Package recs suggests tracks related to a set of seed tracks through an
// OpenAI-compatible chat completion API.
package recs

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"go.uber.org/zap"

	"melodex/internal/core"
)

const (
	defaultTemperature = 0.7
	maxTokens          = 1000
	defaultModel       = "grok-2-latest"
	defaultLimit       = 5
)

// Client calls a chat completion endpoint to generate track suggestions. It
// implements core.Recommender. Suggestions come back as title/artist pairs
// only; callers resolve them to playable tracks separately.
type Client struct {
	config *core.RecsConfig
	logger *zap.Logger
	client *openai.Client
}

type suggestionResponse struct {
	Suggestions []struct {
		Title  string `json:"title"`
		Artist string `json:"artist"`
	} `json:"suggestions"`
}

// New creates a recommendation client. An API key is required; the base URL
// defaults to the official endpoint when unset.
func New(config *core.RecsConfig, logger *zap.Logger) (*Client, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("recommendation API key is required")
	}

	opts := []option.RequestOption{option.WithAPIKey(config.APIKey)}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	client := openai.NewClient(opts...)

	return &Client{
		config: config,
		logger: logger,
		client: &client,
	}, nil
}

// Recommend suggests up to limit tracks similar to the seeds. The returned
// tracks carry only title and artist; they have no playable reference.
func (c *Client) Recommend(ctx context.Context, seeds []core.Track, limit int) ([]core.Track, error) {
	if len(seeds) == 0 {
		return nil, fmt.Errorf("at least one seed track is required")
	}
	if limit <= 0 {
		limit = defaultLimit
	}

	c.logger.Debug("requesting recommendations",
		zap.Int("seeds", len(seeds)),
		zap.Int("limit", limit),
		zap.String("model", c.config.Model))

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(buildPrompt(limit)),
			openai.UserMessage(seedList(seeds)),
		},
		Model:       c.model(),
		Temperature: openai.Float(defaultTemperature),
		MaxTokens:   openai.Int(maxTokens),
	})
	if err != nil {
		return nil, fmt.Errorf("recommendation API call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from recommendation API")
	}

	content := resp.Choices[0].Message.Content
	c.logger.Debug("recommendation response received", zap.String("content", content))

	var parsed suggestionResponse
	if err := json.Unmarshal([]byte(extractJSON(content)), &parsed); err != nil {
		return nil, fmt.Errorf("parse recommendation response: %w", err)
	}

	tracks := make([]core.Track, 0, len(parsed.Suggestions))
	for _, s := range parsed.Suggestions {
		if s.Title == "" || s.Artist == "" {
			continue
		}
		tracks = append(tracks, core.Track{
			Title:        s.Title,
			Artist:       s.Artist,
			ThumbnailURL: core.PlaceholderThumbnail,
			Source:       core.SourceUnknown,
		})
		if len(tracks) >= limit {
			break
		}
	}

	c.logger.Info("recommendations generated",
		zap.Int("suggested", len(parsed.Suggestions)),
		zap.Int("kept", len(tracks)))

	return tracks, nil
}

func (c *Client) model() shared.ChatModel {
	if c.config.Model != "" {
		return c.config.Model
	}
	return defaultModel
}

func buildPrompt(limit int) string {
	return fmt.Sprintf(`You are a music expert recommending songs.

The user will give you a list of songs they like. Suggest %d songs that are
similar in style, era, or mood. Do not repeat any song from the user's list.

Respond with a JSON object in this exact format:
{
  "suggestions": [
    {"title": "Song Title", "artist": "Artist Name"}
  ]
}

Rules:
1. Return real, well-known songs only
2. Every suggestion needs both title and artist
3. Do not include any text outside the JSON object`, limit)
}

func seedList(seeds []core.Track) string {
	var b strings.Builder
	for _, seed := range seeds {
		fmt.Fprintf(&b, "- %s by %s\n", seed.Title, seed.Artist)
	}
	return b.String()
}

// extractJSON strips markdown code fences some models wrap around JSON.
func extractJSON(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		if idx := strings.LastIndex(content, "```"); idx >= 0 {
			content = content[:idx]
		}
	}
	return strings.TrimSpace(content)
}
