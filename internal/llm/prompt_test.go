package llm

import (
	"strings"
	"testing"
)

func TestFormatTemplate(t *testing.T) {
	req := Request{
		Question:        "Name the capital of France.",
		ReferenceAnswer: "Paris",
		StudentAnswer:   "Paris, of course",
		Criteria: map[string]float64{
			"factual_correctness": 40,
			"completeness":        30,
		},
	}
	vars := promptVars(req)

	t.Run("all variables resolve", func(t *testing.T) {
		tmpl := "Q: {question}\nRef: {reference_answer}\nA: {student_answer}\nMax: {max_factual_correctness}/{max_completeness}"
		out, err := formatTemplate(tmpl, vars)
		if err != nil {
			t.Fatalf("formatTemplate() error: %v", err)
		}
		for _, want := range []string{"Name the capital", "Paris, of course", "40", "30"} {
			if !strings.Contains(out, want) {
				t.Errorf("output missing %q", want)
			}
		}
	})

	t.Run("short alias resolves", func(t *testing.T) {
		out, err := formatTemplate("worth {max_factual} points", vars)
		if err != nil {
			t.Fatalf("formatTemplate() error: %v", err)
		}
		if !strings.Contains(out, "worth 40 points") {
			t.Errorf("alias not substituted: %q", out)
		}
	})

	t.Run("missing variable fails closed", func(t *testing.T) {
		_, err := formatTemplate("score out of {max_style}", vars)
		if err == nil {
			t.Fatal("expected error for unknown variable")
		}
		if !strings.Contains(err.Error(), "max_style") {
			t.Errorf("error should name the missing variable, got %v", err)
		}
	})
}

func TestPromptVarsAmbiguousAliasSkipped(t *testing.T) {
	req := Request{
		Criteria: map[string]float64{
			"code_quality": 50,
			"code_style":   50,
		},
	}
	vars := promptVars(req)

	if _, ok := vars["max_code"]; ok {
		t.Error("ambiguous alias max_code should not be registered")
	}
	if vars["max_code_quality"] != "50" {
		t.Errorf("max_code_quality = %q, want 50", vars["max_code_quality"])
	}
}

func TestBuildDefaultPrompt(t *testing.T) {
	req := Request{
		Question:        "Explain photosynthesis.",
		ReferenceAnswer: "Plants convert light to chemical energy.",
		StudentAnswer:   "Plants eat sunlight.",
		Criteria:        map[string]float64{"completeness": 60, "accuracy": 40},
		Context: map[string]interface{}{
			"aiCheckEnabled":  true,
			"awayTimeSeconds": 42,
		},
	}

	prompt := buildDefaultPrompt(req)

	for _, want := range []string{
		"Explain photosynthesis.",
		"Plants eat sunlight.",
		"completeness: 60",
		"accuracy: 40",
		"awayTimeSeconds: 42",
		"integrity_score",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("default prompt missing %q", want)
		}
	}
}

func TestBuildDefaultPromptWithoutContext(t *testing.T) {
	prompt := buildDefaultPrompt(Request{Question: "Q", StudentAnswer: "A"})

	if strings.Contains(prompt, "BEHAVIORAL CONTEXT") {
		t.Error("prompt should not carry a context section when none is supplied")
	}
	if strings.Contains(prompt, "integrity_score") {
		t.Error("prompt should not request integrity fields without anti-cheat context")
	}
}
