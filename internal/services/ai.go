package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"
)

// TaskDraftGenerator turns free text into task drafts.
type TaskDraftGenerator interface {
	GenerateTaskDrafts(ctx context.Context, text string, now time.Time) ([]TaskDraft, error)
}

type AIService struct {
	client *openai.Client
}

// TaskDraft is a task suggested from free text. Drafts are not stored.
type TaskDraft struct {
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	DueDate        *time.Time `json:"due_date"`
	Priority       *int       `json:"priority"`
	EstimatedHours *float64   `json:"estimated_hours"`
	Category       string     `json:"category"`
}

func NewAIService(apiKey string) *AIService {
	return &AIService{
		client: openai.NewClient(apiKey),
	}
}

// GenerateTaskDrafts extracts task drafts from text using OpenAI GPT
func (s *AIService) GenerateTaskDrafts(ctx context.Context, text string, now time.Time) ([]TaskDraft, error) {
	if s.client == nil {
		return nil, fmt.Errorf("OpenAI client not initialized")
	}

	prompt := fmt.Sprintf(`You extract actionable tasks from notes.

Current time (UTC): %s

Notes:
%s

Return a JSON array of tasks in this shape:
[
  {
    "title": "short task title",
    "description": "details",
    "due_date": "RFC3339 timestamp, e.g. 2025-10-28T23:59:59Z, or null when no deadline is stated",
    "priority": 1-5 where 1 is most urgent, or null,
    "estimated_hours": estimated effort in hours, or null,
    "category": "one upper-case word such as WORK or PERSONAL, or empty"
  }
]

Rules:
- Return [] when there are no tasks
- Convert relative deadlines ("tomorrow", "next week") into absolute timestamps
- Return JSON only, no prose`, now.UTC().Format(time.RFC3339), text)

	resp, err := s.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: openai.GPT4o,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			Temperature: 0.3,
		},
	)

	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI")
	}

	content := resp.Choices[0].Message.Content

	var drafts []TaskDraft
	if err := json.Unmarshal([]byte(content), &drafts); err != nil {
		return nil, fmt.Errorf("failed to parse AI response: %w (response: %s)", err, content)
	}

	return drafts, nil
}
