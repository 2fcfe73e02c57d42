package reflection

import (
	"context"
	"fmt"
	"strings"

	"reflection-backend/internal/llm"
)

const guidanceFallback = "Trust the path you are on. Take one gentle step today toward what matters most to you, and let the rest unfold in its own time."

func personalizedGuidanceHandler() handler {
	return handler{
		decode: decodeAs[PersonalizedGuidancePayload],
		generate: func(ctx context.Context, c *call, p Payload) (Response, error) {
			in := p.(PersonalizedGuidancePayload)
			text, err := ask(ctx, c, llm.Request{
				System:      cardSystemPrompt,
				User:        guidancePrompt(in),
				MaxTokens:   200,
				Temperature: 0.7,
			}, func(s string) (string, error) { return validateText(KindPersonalizedGuidance, s) })
			if err != nil {
				return nil, err
			}
			return PersonalizedGuidance{Guidance: text, Timestamp: c.timestamp()}, nil
		},
		local: func(c *call, _ Payload) Response {
			return PersonalizedGuidance{Guidance: guidanceFallback, Timestamp: c.timestamp()}
		},
	}
}

func guidancePrompt(in PersonalizedGuidancePayload) string {
	var b strings.Builder
	b.WriteString("Write a short piece of personal guidance for today, between 50 and 80 words.\n")
	if in.CardName != "" {
		fmt.Fprintf(&b, "Tarot card: %s\n", in.CardName)
	}
	if in.HexagramName != "" {
		fmt.Fprintf(&b, "I Ching hexagram: %s\n", in.HexagramName)
	}
	if in.SunSign != "" {
		fmt.Fprintf(&b, "Sun sign: %s\n", in.SunSign)
	}
	if in.Intention != "" {
		fmt.Fprintf(&b, "Their intention: %s\n", in.Intention)
	}
	if in.Mood != "" {
		fmt.Fprintf(&b, "Current mood: %s\n", in.Mood)
	}
	if in.FocusArea != "" {
		fmt.Fprintf(&b, "Focus area: %s\n", in.FocusArea)
	}
	if len(in.RecentThemes) > 0 {
		fmt.Fprintf(&b, "Recent themes in their reflections: %s\n", strings.Join(in.RecentThemes, ", "))
	}
	b.WriteString("Address them as \"you\". Plain text, one paragraph.")
	return b.String()
}
