package reflection

import (
	"context"
	"fmt"
	"strings"

	"reflection-backend/internal/llm"
)

const cardSystemPrompt = `You are a thoughtful guide who blends tarot and the I Ching into gentle, grounded reflections.
Speak warmly and plainly. Never predict the future or give medical, legal or financial advice.`

func cardInterpretationHandler() handler {
	return handler{
		decode: decodeAs[CardInterpretationPayload],
		generate: func(ctx context.Context, c *call, p Payload) (Response, error) {
			in := p.(CardInterpretationPayload)
			text, err := ask(ctx, c, llm.Request{
				System:      cardSystemPrompt,
				User:        cardInterpretationPrompt(in),
				MaxTokens:   400,
				Temperature: 0.7,
			}, func(s string) (string, error) { return validateText(KindCardInterpretation, s) })
			if err != nil {
				return nil, err
			}
			return CardInterpretation{Interpretation: text, Timestamp: c.timestamp()}, nil
		},
		local: func(c *call, p Payload) Response {
			in := p.(CardInterpretationPayload)
			return CardInterpretation{Interpretation: cardFallback(in), Timestamp: c.timestamp()}
		},
	}
}

func cardInterpretationPrompt(in CardInterpretationPayload) string {
	var b strings.Builder
	card := in.CardName
	if in.IsReversed && card != "" {
		card += " (reversed)"
	}
	fmt.Fprintf(&b, "Offer a reflection on today's draw.\n")
	if card != "" {
		fmt.Fprintf(&b, "Tarot card: %s\n", card)
	}
	if len(in.CardKeywords) > 0 {
		fmt.Fprintf(&b, "Card keywords: %s\n", strings.Join(in.CardKeywords, ", "))
	}
	if in.HexagramName != "" {
		if in.HexagramNumber > 0 {
			fmt.Fprintf(&b, "I Ching hexagram: %d. %s\n", in.HexagramNumber, in.HexagramName)
		} else {
			fmt.Fprintf(&b, "I Ching hexagram: %s\n", in.HexagramName)
		}
	}
	if in.Question != "" {
		fmt.Fprintf(&b, "The person asked: %q\n", in.Question)
	}
	if in.UserContext != "" {
		fmt.Fprintf(&b, "Context they shared: %s\n", in.UserContext)
	}
	b.WriteString("Write two short paragraphs connecting the card and the hexagram to the person's day. Plain text, no headings.")
	return b.String()
}

func cardFallback(in CardInterpretationPayload) string {
	names := make([]string, 0, 2)
	if !blank(in.CardName) {
		names = append(names, strings.TrimSpace(in.CardName))
	}
	if !blank(in.HexagramName) {
		names = append(names, strings.TrimSpace(in.HexagramName))
	}
	subject := "Today's draw"
	verb := "invites"
	if len(names) > 0 {
		subject = strings.Join(names, " and ")
		if len(names) > 1 {
			verb = "invite"
		}
	}
	return fmt.Sprintf("%s %s you to pause and reflect. Notice where its themes already show up in your life, and what they might be asking of you today.", subject, verb)
}
