package ai

import (
	"encoding/json"
	"errors"
	"strings"
)

var ErrNoPlan = errors.New("response contains no task array")

// ParsePlanResponse extracts the task array from a model response. Markdown
// code fences are stripped first; anything before the first '[' or after the
// last ']' is ignored so chatty preambles do not break parsing.
func ParsePlanResponse(text string) ([]PlanTask, error) {
	cleaned := StripCodeFences(text)

	start := strings.Index(cleaned, "[")
	end := strings.LastIndex(cleaned, "]")
	if start < 0 || end < start {
		return nil, ErrNoPlan
	}

	var tasks []PlanTask
	if err := json.Unmarshal([]byte(cleaned[start:end+1]), &tasks); err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, ErrNoPlan
	}

	for i := range tasks {
		if tasks[i].Day == 0 {
			tasks[i].Day = i + 1
		}
		tasks[i].Title = strings.TrimSpace(tasks[i].Title)
		if tasks[i].Title == "" {
			return nil, errors.New("task with empty title")
		}
	}
	return tasks, nil
}

// StripCodeFences removes a surrounding ```json ... ``` block if present.
func StripCodeFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.Index(trimmed, "\n"); idx >= 0 {
		// drop the language tag line ("json", "JSON", or empty)
		trimmed = trimmed[idx+1:]
	}
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}

// NormalizePlan clamps a parsed plan to exactly PlanDays entries. Extra days
// are dropped; missing days are filled from the category fallback so that a
// short model response still produces a complete plan.
func NormalizePlan(tasks []PlanTask, category string, planDays int) []PlanTask {
	if len(tasks) > planDays {
		tasks = tasks[:planDays]
	}
	if len(tasks) < planDays {
		fallback := FallbackPlan(category)
		for day := len(tasks) + 1; day <= planDays; day++ {
			t := fallback[day-1]
			t.Day = day
			tasks = append(tasks, t)
		}
	}
	for i := range tasks {
		tasks[i].Day = i + 1
	}
	return tasks
}
