package telegram

import (
	"strings"
	"testing"

	"wellness-companion/internal/backend"
	"wellness-companion/internal/checkin"
)

func TestFormatQuestion(t *testing.T) {
	q := checkin.Question{QID: "q1", Text: "I dread going to work each day. (1=Disagree, 5=Agree)"}
	out := formatQuestion(q)

	if !strings.Contains(out, "I dread going to work each day.") {
		t.Error("Missing question text")
	}
	if !strings.Contains(out, "1 to 5") {
		t.Error("Missing answer instructions")
	}
}

func TestFinishedPlanningText(t *testing.T) {
	t.Run("LoginURLWins", func(t *testing.T) {
		out := finishedPlanningText(backend.PlanningResult{
			Finished: true,
			Message:  "ignored",
			LoginURL: "https://auth.test/start",
		})
		if !strings.Contains(out, "https://auth.test/start") {
			t.Errorf("Expected the authorization link, got %q", out)
		}
	})

	t.Run("BackendMessage", func(t *testing.T) {
		out := finishedPlanningText(backend.PlanningResult{
			Finished: true,
			Message:  "Enjoy your free week!",
		})
		if out != "Enjoy your free week!" {
			t.Errorf("Expected the backend message, got %q", out)
		}
	})

	t.Run("RawTextAnalysisPreserved", func(t *testing.T) {
		out := finishedPlanningText(backend.PlanningResult{
			Finished: true,
			RawText:  "Your calendar is already full, so I have no suggestions this week.",
		})
		if !strings.Contains(out, "already full") {
			t.Errorf("Expected the raw planning prose, got %q", out)
		}
	})

	t.Run("Fallback", func(t *testing.T) {
		out := finishedPlanningText(backend.PlanningResult{Finished: true})
		if out != "Nothing to plan right now." {
			t.Errorf("Expected the generic fallback, got %q", out)
		}
	})
}
