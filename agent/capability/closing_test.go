package capability

import (
	"strings"
	"testing"

	statex "github.com/Dispatch-AI-com/AI/agent/state"
)

func TestClosingMessagePerIntent(t *testing.T) {
	t.Parallel()

	opportunity := ClosingMessage("Jane", statex.IntentOpportunity)
	if !strings.Contains(opportunity, ", Jane.") {
		t.Fatalf("opportunity closing must address the caller: %q", opportunity)
	}
	if !strings.Contains(opportunity, "opportunity") {
		t.Fatalf("opportunity closing must mention the opportunity: %q", opportunity)
	}

	other := ClosingMessage("Jane", statex.IntentOther)
	if !strings.Contains(other, "recorded your inquiry") {
		t.Fatalf("unexpected other closing: %q", other)
	}

	fallback := ClosingMessage("Jane", statex.IntentType("unclassified"))
	if !strings.Contains(fallback, "Thank you for your call, Jane.") {
		t.Fatalf("unexpected default closing: %q", fallback)
	}
}

func TestClosingMessageSkipsMissingName(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"", "   ", statex.NotProvided} {
		msg := ClosingMessage(name, statex.IntentOther)
		if strings.Contains(msg, ",") && strings.Contains(msg, statex.NotProvided) {
			t.Fatalf("closing leaked the sentinel: %q", msg)
		}
		if !strings.HasPrefix(msg, "Thank you for calling.") {
			t.Fatalf("expected nameless greeting, got %q", msg)
		}
	}
}

func TestFallbackQuestionPerStep(t *testing.T) {
	t.Parallel()

	cases := map[statex.Step]string{
		statex.StepName:           "May I have your name, please?",
		statex.StepBackground:     "Thank you. What brings you to call us today?",
		statex.StepAdditionalInfo: "Is there anything else you'd like to share? What's the best way to contact you?",
	}
	for step, want := range cases {
		if got := FallbackQuestion(step); got != want {
			t.Fatalf("FallbackQuestion(%s) = %q, want %q", step, got, want)
		}
	}
	if FallbackQuestion(statex.StepCompleted) == "" {
		t.Fatal("unknown step still needs a safe question")
	}
}
