// Package ai holds the plan-generation prompt, the response parser and the
// static fallback plans. Both the server-side plan service and the client SDK
// planner work with these so a degraded generation always yields a usable
// 21-day plan.
package ai

import (
	"fmt"
	"strings"
)

// PlanTask is one day of a generated plan.
type PlanTask struct {
	Day         int    `json:"day"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// BuildPlanPrompt renders the prompt sent to the text-generation endpoint.
// The model is asked for a bare JSON array; in practice responses often arrive
// wrapped in Markdown code fences, which ParsePlanResponse strips.
func BuildPlanPrompt(title, description, category string) string {
	var b strings.Builder
	b.WriteString("You are a habit coach. Break the following goal into a 21-day plan ")
	b.WriteString("of small daily tasks, one task per day.\n\n")
	fmt.Fprintf(&b, "Goal: %s\n", strings.TrimSpace(title))
	if d := strings.TrimSpace(description); d != "" {
		fmt.Fprintf(&b, "Details: %s\n", d)
	}
	if c := strings.TrimSpace(category); c != "" {
		fmt.Fprintf(&b, "Category: %s\n", c)
	}
	b.WriteString("\nRespond with a JSON array of exactly 21 objects, each with ")
	b.WriteString(`"day" (1-21), "title" and "description" fields. `)
	b.WriteString("Do not include any text outside the JSON array.")
	return b.String()
}
