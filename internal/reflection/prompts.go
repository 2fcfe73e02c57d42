package reflection

import (
	"context"
	"fmt"
	"strings"

	"reflection-backend/internal/llm"
)

const (
	defaultPromptKeyword = "growth"
	defaultFocusArea     = "life"
)

func reflectionPromptsHandler() handler {
	return handler{
		decode: decodeAs[ReflectionPromptsPayload],
		generate: func(ctx context.Context, c *call, p Payload) (Response, error) {
			in := p.(ReflectionPromptsPayload)
			prompts, err := ask(ctx, c, llm.Request{
				System:      cardSystemPrompt,
				User:        reflectionPromptsPrompt(in),
				MaxTokens:   300,
				Temperature: 0.8,
				JSON:        true,
			}, validatePrompts)
			if err != nil {
				return nil, err
			}
			return ReflectionPrompts{Prompts: prompts, Timestamp: c.timestamp()}, nil
		},
		local: func(c *call, p Payload) Response {
			in := p.(ReflectionPromptsPayload)
			return ReflectionPrompts{Prompts: promptsFallback(in), Timestamp: c.timestamp()}
		},
	}
}

func reflectionPromptsPrompt(in ReflectionPromptsPayload) string {
	var b strings.Builder
	b.WriteString("Write exactly 3 open-ended journaling questions for today's reflection.\n")
	if in.CardName != "" {
		fmt.Fprintf(&b, "Tarot card: %s\n", in.CardName)
	}
	if len(in.CardKeywords) > 0 {
		fmt.Fprintf(&b, "Card keywords: %s\n", strings.Join(in.CardKeywords, ", "))
	}
	if in.HexagramName != "" {
		fmt.Fprintf(&b, "I Ching hexagram: %s\n", in.HexagramName)
	}
	if in.FocusArea != "" {
		fmt.Fprintf(&b, "Focus area: %s\n", in.FocusArea)
	}
	if in.Mood != "" {
		fmt.Fprintf(&b, "Current mood: %s\n", in.Mood)
	}
	b.WriteString(`Each question is one sentence. Respond with JSON only: {"prompts": ["...", "...", "..."]}`)
	return b.String()
}

func promptsFallback(in ReflectionPromptsPayload) []string {
	keyword := defaultPromptKeyword
	for _, k := range in.CardKeywords {
		if !blank(k) {
			keyword = strings.ToLower(strings.TrimSpace(k))
			break
		}
	}
	focus := defaultFocusArea
	if !blank(in.FocusArea) {
		focus = strings.ToLower(strings.TrimSpace(in.FocusArea))
	}
	return []string{
		fmt.Sprintf("Where is the energy of %s already showing up in your %s?", keyword, focus),
		fmt.Sprintf("What would it look like to welcome more %s into your %s this week?", keyword, focus),
		fmt.Sprintf("What is one small step toward %s you could take in your %s today?", keyword, focus),
	}
}
