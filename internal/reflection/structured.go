package reflection

import (
	"context"
	"fmt"
	"strings"

	"reflection-backend/internal/llm"
)

func structuredReflectionHandler() handler {
	return handler{
		decode: decodeAs[StructuredReflectionPayload],
		generate: func(ctx context.Context, c *call, p Payload) (Response, error) {
			in := p.(StructuredReflectionPayload)
			out, err := ask(ctx, c, llm.Request{
				System:      cardSystemPrompt,
				User:        structuredReflectionPrompt(in),
				MaxTokens:   900,
				Temperature: 0.7,
				JSON:        true,
			}, validateStructured)
			if err != nil {
				return nil, err
			}
			out.Timestamp = c.timestamp()
			return out, nil
		},
		// Only installed when Options.StructuredReflectionFallback is set.
		local: func(c *call, p Payload) Response {
			in := p.(StructuredReflectionPayload)
			return StructuredReflection{
				IChingReflection: fmt.Sprintf("%s asks you to notice how change is moving through your situation right now.", in.HexagramName),
				TarotReflection:  fmt.Sprintf("%s mirrors a part of you that is ready to be seen and understood.", in.CardName),
				Synthesis:        fmt.Sprintf("Together, %s and %s point toward patient attention: meet what is shifting with curiosity rather than force.", in.CardName, in.HexagramName),
				ReflectionPrompt: "What is one thing you are ready to approach differently today?",
				Timestamp:        c.timestamp(),
			}
		},
	}
}

func structuredReflectionPrompt(in StructuredReflectionPayload) string {
	var b strings.Builder
	b.WriteString("Create a structured reflection that weaves together a tarot card and an I Ching hexagram.\n")
	card := in.CardName
	if in.IsReversed {
		card += " (reversed)"
	}
	fmt.Fprintf(&b, "Tarot card: %s\n", card)
	if len(in.CardKeywords) > 0 {
		fmt.Fprintf(&b, "Card keywords: %s\n", strings.Join(in.CardKeywords, ", "))
	}
	if in.HexagramNumber > 0 {
		fmt.Fprintf(&b, "Hexagram: %d. %s\n", in.HexagramNumber, in.HexagramName)
	} else {
		fmt.Fprintf(&b, "Hexagram: %s\n", in.HexagramName)
	}
	if len(in.ChangingLines) > 0 {
		lines := make([]string, len(in.ChangingLines))
		for i, l := range in.ChangingLines {
			lines[i] = fmt.Sprint(l)
		}
		fmt.Fprintf(&b, "Changing lines: %s\n", strings.Join(lines, ", "))
	}
	if in.Question != "" {
		fmt.Fprintf(&b, "Question: %q\n", in.Question)
	}
	if in.Intention != "" {
		fmt.Fprintf(&b, "Intention: %s\n", in.Intention)
	}
	b.WriteString(`Respond with a JSON object with exactly these string fields:
"iChingReflection" (2-3 sentences on the hexagram),
"tarotReflection" (2-3 sentences on the card),
"synthesis" (2-3 sentences joining both),
"reflectionPrompt" (one open question).`)
	return b.String()
}
