package ai

import "strings"

// FallbackPlan returns the static 21-day template for a category. It is used
// whenever generation fails or returns something unparseable; the app degrades
// to a generic plan instead of surfacing an error to the user.
func FallbackPlan(category string) []PlanTask {
	titles, ok := fallbackTitles[strings.ToLower(strings.TrimSpace(category))]
	if !ok {
		titles = fallbackTitles["general"]
	}
	tasks := make([]PlanTask, len(titles))
	for i, title := range titles {
		tasks[i] = PlanTask{Day: i + 1, Title: title}
	}
	return tasks
}

var fallbackTitles = map[string][21]string{
	"fitness": {
		"Take a 15-minute walk",
		"Do 10 squats and 10 push-ups",
		"Stretch for 10 minutes before bed",
		"Take a 20-minute walk",
		"Do two rounds of squats and push-ups",
		"Try a 10-minute beginner workout video",
		"Rest day: plan next week's workouts",
		"Take a 25-minute brisk walk",
		"Add 10 lunges to your routine",
		"Do a 15-minute core workout",
		"Take the stairs all day",
		"Do three rounds of your basic circuit",
		"Try a new activity for 20 minutes",
		"Rest day: light stretching only",
		"Take a 30-minute walk or slow jog",
		"Increase each exercise by five reps",
		"Do a 20-minute full-body workout",
		"Walk or cycle instead of driving once",
		"Do your longest session so far",
		"Active recovery: stretch and hydrate",
		"Complete a full workout and note your progress",
	},
	"learning": {
		"Spend 15 minutes on your topic",
		"Write down three things you learned yesterday",
		"Watch one short tutorial and take notes",
		"Practice the basics for 20 minutes",
		"Explain what you know to someone (or a notebook)",
		"Do one small exercise from start to finish",
		"Review the week's notes",
		"Study 20 minutes of new material",
		"Redo an exercise without looking at notes",
		"Find one real example of the concept",
		"Practice for 25 minutes",
		"Summarize a chapter in five sentences",
		"Teach the hardest idea so far out loud",
		"Rest day: skim something fun about the topic",
		"Start a tiny project using what you know",
		"Work 25 minutes on the project",
		"Look up one thing that confused you",
		"Work 30 minutes on the project",
		"Get feedback from one person",
		"Fix one thing the feedback surfaced",
		"Finish the project and write what you'd do next",
	},
	"wellness": {
		"Sleep before 11pm tonight",
		"Drink a glass of water when you wake up",
		"Write three lines in a journal",
		"Take five deep breaths before each meal",
		"Spend 10 minutes outside",
		"No screens for the last 30 minutes of the day",
		"Call or message someone you care about",
		"Try a 5-minute guided meditation",
		"Eat one meal without distractions",
		"Write down three things you're grateful for",
		"Take a 15-minute walk without your phone",
		"Do a 10-minute body scan before bed",
		"Declutter one small surface",
		"Rest day: do one thing purely for fun",
		"Try a 10-minute meditation",
		"Prepare tomorrow's morning the night before",
		"Spend 20 minutes outside",
		"Write about one thing that stressed you and why",
		"Do your longest meditation so far",
		"Plan one small weekly ritual to keep",
		"Review the three weeks and pick habits to continue",
	},
	"career": {
		"Write down your goal in one sentence",
		"List five skills your next step requires",
		"Update one section of your resume",
		"Read one article about your field",
		"Reach out to one person in your network",
		"Spend 20 minutes on the most lacking skill",
		"Review the week and adjust the plan",
		"Update your profile headline",
		"Practice the skill for 25 minutes",
		"Draft a short summary of your achievements",
		"Research three companies or roles",
		"Ask someone for honest feedback",
		"Practice the skill for 30 minutes",
		"Rest day: read something inspiring",
		"Apply or pitch to one opportunity",
		"Prepare answers to three common questions",
		"Do a mock conversation or interview",
		"Follow up on the opportunity",
		"Practice the skill for 30 minutes",
		"Write down what changed in three weeks",
		"Set the next 21-day goal",
	},
	"general": {
		"Write down exactly what you want to achieve",
		"Break the goal into three milestones",
		"Spend 15 minutes on the first milestone",
		"Spend 20 minutes on the first milestone",
		"Tell one person about your goal",
		"Spend 20 minutes of focused work",
		"Review the week: what worked, what didn't",
		"Spend 20 minutes on the next step",
		"Remove one obstacle that slowed you down",
		"Spend 25 minutes of focused work",
		"Celebrate a small win from the last ten days",
		"Spend 25 minutes of focused work",
		"Ask someone for feedback or help",
		"Rest day: review your progress notes",
		"Spend 30 minutes on the second milestone",
		"Spend 30 minutes of focused work",
		"Write down what you'd tell your day-1 self",
		"Spend 30 minutes of focused work",
		"Push through the hardest remaining piece",
		"Finish the final milestone",
		"Write a short review and set the next goal",
	},
}
