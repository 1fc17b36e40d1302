// Package planner generates 21-day task plans from a goal description. Any
// failure talking to the text model or parsing its output degrades to the
// static per-category template, never to an error.
package planner

import (
	"context"
	"log"

	"github.com/ituby/GenieAI-sub000/internal/ai"
	"github.com/ituby/GenieAI-sub000/internal/models"
)

// Completer produces free text for a prompt. The server's OpenAI client
// satisfies it; tests use a stub.
type Completer interface {
	Complete(ctx context.Context, model, prompt string) (string, error)
}

type Goal struct {
	Title       string
	Description string
	Category    string
}

type Task struct {
	Day         int    `json:"day"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type Client struct {
	Completer Completer
	Model     string
}

func New(completer Completer, model string) *Client {
	return &Client{Completer: completer, Model: model}
}

// Generate returns exactly one task per plan day. The model's output is
// stripped of code fences and parsed as a JSON array; short or broken output
// is padded from the category template.
func (c *Client) Generate(ctx context.Context, goal Goal) []Task {
	plan := c.complete(ctx, goal)
	return toTasks(ai.NormalizePlan(plan, goal.Category, models.PlanDays))
}

func (c *Client) complete(ctx context.Context, goal Goal) []ai.PlanTask {
	if c.Completer == nil {
		return ai.FallbackPlan(goal.Category)
	}

	prompt := ai.BuildPlanPrompt(goal.Title, goal.Description, goal.Category)
	text, err := c.Completer.Complete(ctx, c.Model, prompt)
	if err != nil {
		log.Printf("planner: completion failed, using template plan: %v", err)
		return ai.FallbackPlan(goal.Category)
	}

	plan, err := ai.ParsePlanResponse(text)
	if err != nil {
		log.Printf("planner: unparseable completion, using template plan: %v", err)
		return ai.FallbackPlan(goal.Category)
	}
	return plan
}

func toTasks(plan []ai.PlanTask) []Task {
	tasks := make([]Task, 0, len(plan))
	for _, t := range plan {
		tasks = append(tasks, Task{Day: t.Day, Title: t.Title, Description: t.Description})
	}
	return tasks
}
