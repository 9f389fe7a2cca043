package llm

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

var placeholderRegex = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// promptVars builds the variable map available to prompt templates:
// question, reference_answer, student_answer, plus max_<criterion> for every
// criterion and a max_<head> short alias when the head word is unambiguous.
func promptVars(req Request) map[string]string {
	vars := map[string]string{
		"question":         req.Question,
		"reference_answer": req.ReferenceAnswer,
		"student_answer":   req.StudentAnswer,
	}

	heads := map[string]int{}
	for name := range req.Criteria {
		if head, _, found := strings.Cut(name, "_"); found {
			heads[head]++
		}
	}
	for name, points := range req.Criteria {
		vars["max_"+name] = fmt.Sprintf("%g", points)
		if head, _, found := strings.Cut(name, "_"); found && heads[head] == 1 {
			vars["max_"+head] = fmt.Sprintf("%g", points)
		}
	}
	return vars
}

// formatTemplate substitutes {name} placeholders from vars. A placeholder
// with no registered variable is a configuration error and fails closed.
func formatTemplate(tmpl string, vars map[string]string) (string, error) {
	var missing []string
	out := placeholderRegex.ReplaceAllStringFunc(tmpl, func(m string) string {
		key := m[1 : len(m)-1]
		v, ok := vars[key]
		if !ok {
			missing = append(missing, key)
			return m
		}
		return v
	})
	if len(missing) > 0 {
		sort.Strings(missing)
		return "", fmt.Errorf("prompt template references unknown variables: %s", strings.Join(missing, ", "))
	}
	return out, nil
}

// buildDefaultPrompt produces the built-in grading prompt used when no
// template is configured. It instructs strict JSON output keyed per criterion.
func buildDefaultPrompt(req Request) string {
	var sb strings.Builder
	sb.WriteString("You are a strict exam grader. Grade the student's answer to the following question.\n\n")
	sb.WriteString("QUESTION: " + req.Question + "\n\n")
	if req.ReferenceAnswer != "" {
		sb.WriteString("REFERENCE ANSWER (not shown to student):\n" + req.ReferenceAnswer + "\n\n")
	}
	sb.WriteString("STUDENT ANSWER:\n" + req.StudentAnswer + "\n\n")

	if len(req.Criteria) > 0 {
		sb.WriteString("SCORING CRITERIA (criterion: max points):\n")
		names := make([]string, 0, len(req.Criteria))
		for name := range req.Criteria {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			sb.WriteString(fmt.Sprintf("- %s: %g\n", name, req.Criteria[name]))
		}
		sb.WriteString("\n")
	}

	writeContextSection(&sb, req.Context)

	sb.WriteString("Respond ONLY with a JSON object of this shape:\n")
	sb.WriteString(`{"criteria_scores": {"<criterion>": <points>}, "total_score": <0-100>, "feedback": "<brief feedback>"}`)
	sb.WriteString("\n")
	if wantsIntegrity(req.Context) {
		sb.WriteString("Additionally include \"integrity_score\" (0-100), \"integrity_feedback\", ")
		sb.WriteString("\"ai_probability\" (0-1), \"plagiarism_found\" (true/false) and \"penalty_note\" ")
		sb.WriteString("based on the behavioral context above.\n")
	}
	return sb.String()
}

// writeContextSection renders anti-cheat context into the prompt
func writeContextSection(sb *strings.Builder, ctx map[string]interface{}) {
	if len(ctx) == 0 {
		return
	}
	sb.WriteString("BEHAVIORAL CONTEXT (collected during the attempt):\n")
	keys := make([]string, 0, len(ctx))
	for k := range ctx {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		sb.WriteString(fmt.Sprintf("- %s: %v\n", k, ctx[k]))
	}
	sb.WriteString("\n")
}

func wantsIntegrity(ctx map[string]interface{}) bool {
	if ctx == nil {
		return false
	}
	if v, ok := ctx["aiCheckEnabled"].(bool); ok && v {
		return true
	}
	_, hasEvents := ctx["eventLog"]
	_, hasPlagiarism := ctx["plagiarismScore"]
	return hasEvents || hasPlagiarism
}
