package reflection

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

const reflectionPromptCount = 3

const compatibilityStatCount = 4

func invalid(k Kind, format string, args ...any) error {
	return &ValidationError{Kind: k, Reason: fmt.Sprintf(format, args...)}
}

// stripFences removes a surrounding markdown code fence, which some models add
// even in JSON mode.
func stripFences(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// validateText accepts any non-empty free-form text.
func validateText(k Kind, text string) (string, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return "", invalid(k, "empty text")
	}
	return s, nil
}

// validatePrompts accepts a JSON array of strings, bare or under "prompts",
// with at least three non-empty entries. Only the first three are kept.
func validatePrompts(text string) ([]string, error) {
	body := []byte(stripFences(text))
	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		var wrapped struct {
			Prompts []json.RawMessage `json:"prompts"`
		}
		if err := json.Unmarshal(body, &wrapped); err != nil || wrapped.Prompts == nil {
			return nil, invalid(KindReflectionPrompts, "expected a JSON array of strings")
		}
		items = wrapped.Prompts
	}

	prompts := make([]string, 0, reflectionPromptCount)
	for _, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err != nil {
			return nil, invalid(KindReflectionPrompts, "prompt is not a string")
		}
		if s = strings.TrimSpace(s); s == "" {
			return nil, invalid(KindReflectionPrompts, "empty prompt")
		}
		prompts = append(prompts, s)
		if len(prompts) == reflectionPromptCount {
			break
		}
	}
	if len(prompts) < reflectionPromptCount {
		return nil, invalid(KindReflectionPrompts, "expected %d prompts, got %d", reflectionPromptCount, len(prompts))
	}
	return prompts, nil
}

// validateStructured requires all four reflection fields as non-empty strings.
func validateStructured(text string) (StructuredReflection, error) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(stripFences(text)), &raw); err != nil {
		return StructuredReflection{}, invalid(KindStructuredReflection, "expected a JSON object")
	}
	fields := []string{"iChingReflection", "tarotReflection", "synthesis", "reflectionPrompt"}
	values := make([]string, len(fields))
	var missing []string
	for i, name := range fields {
		s, _ := raw[name].(string)
		if strings.TrimSpace(s) == "" {
			missing = append(missing, name)
			continue
		}
		values[i] = strings.TrimSpace(s)
	}
	if len(missing) > 0 {
		return StructuredReflection{}, invalid(KindStructuredReflection, "missing fields: %s", strings.Join(missing, ", "))
	}
	return StructuredReflection{
		IChingReflection: values[0],
		TarotReflection:  values[1],
		Synthesis:        values[2],
		ReflectionPrompt: values[3],
	}, nil
}

type rawCompatibility struct {
	Score   *float64 `json:"score"`
	Title   *string  `json:"title"`
	Summary *string  `json:"summary"`
	Insight string   `json:"insight"`
	Stats   []struct {
		Label       *string  `json:"label"`
		Score       *float64 `json:"score"`
		Description *string  `json:"description"`
	} `json:"stats"`
}

// validateCompatibility requires score in [0,100], title, summary and exactly
// four stats, each with label, a score in [0,100] and description.
func validateCompatibility(text string) (CompatibilityReport, error) {
	k := KindCompatibilityReport
	var raw rawCompatibility
	if err := json.Unmarshal([]byte(stripFences(text)), &raw); err != nil {
		return CompatibilityReport{}, invalid(k, "expected a JSON object with numeric scores")
	}
	switch {
	case raw.Score == nil:
		return CompatibilityReport{}, invalid(k, "missing score")
	case !scoreInRange(*raw.Score):
		return CompatibilityReport{}, invalid(k, "score %v out of range", *raw.Score)
	case raw.Title == nil || blank(*raw.Title):
		return CompatibilityReport{}, invalid(k, "missing title")
	case raw.Summary == nil || blank(*raw.Summary):
		return CompatibilityReport{}, invalid(k, "missing summary")
	case len(raw.Stats) != compatibilityStatCount:
		return CompatibilityReport{}, invalid(k, "expected %d stats, got %d", compatibilityStatCount, len(raw.Stats))
	}

	report := CompatibilityReport{
		Score:   *raw.Score,
		Title:   strings.TrimSpace(*raw.Title),
		Summary: strings.TrimSpace(*raw.Summary),
		Insight: strings.TrimSpace(raw.Insight),
		Stats:   make([]CompatibilityStat, 0, compatibilityStatCount),
	}
	for i, st := range raw.Stats {
		if st.Label == nil || blank(*st.Label) || st.Score == nil || st.Description == nil || blank(*st.Description) {
			return CompatibilityReport{}, invalid(k, "stat %d incomplete", i)
		}
		if !scoreInRange(*st.Score) {
			return CompatibilityReport{}, invalid(k, "stat %d score %v out of range", i, *st.Score)
		}
		report.Stats = append(report.Stats, CompatibilityStat{
			Label:       strings.TrimSpace(*st.Label),
			Score:       *st.Score,
			Description: strings.TrimSpace(*st.Description),
		})
	}
	return report, nil
}

func scoreInRange(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 100
}

// ValidateResponse checks an already-built response against its kind's rules.
func ValidateResponse(resp Response) error {
	switch r := resp.(type) {
	case CardInterpretation:
		_, err := validateText(KindCardInterpretation, r.Interpretation)
		return err
	case PersonalizedGuidance:
		_, err := validateText(KindPersonalizedGuidance, r.Guidance)
		return err
	case NorthNodeInsight:
		_, err := validateText(KindNorthNodeInsight, r.Insight)
		return err
	case ReflectionPrompts:
		if len(r.Prompts) != reflectionPromptCount {
			return invalid(KindReflectionPrompts, "expected %d prompts, got %d", reflectionPromptCount, len(r.Prompts))
		}
		for _, p := range r.Prompts {
			if blank(p) {
				return invalid(KindReflectionPrompts, "empty prompt")
			}
		}
		return nil
	case StructuredReflection:
		body, err := json.Marshal(r)
		if err != nil {
			return invalid(KindStructuredReflection, "marshal: %v", err)
		}
		_, err = validateStructured(string(body))
		return err
	case CompatibilityReport:
		body, err := json.Marshal(r)
		if err != nil {
			return invalid(KindCompatibilityReport, "marshal: %v", err)
		}
		_, err = validateCompatibility(string(body))
		return err
	}
	return fmt.Errorf("reflection: unknown response type %T", resp)
}
