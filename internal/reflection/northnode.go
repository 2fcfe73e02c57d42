package reflection

import (
	"context"
	"fmt"
	"strings"

	"reflection-backend/internal/astrology"
	"reflection-backend/internal/llm"
)

const northNodeFallback = "We were unable to generate your North Node insight right now. Please try again in a little while."

func northNodeInsightHandler() handler {
	return handler{
		decode: decodeAs[NorthNodeInsightPayload],
		generate: func(ctx context.Context, c *call, p Payload) (Response, error) {
			in := withNodeSigns(p.(NorthNodeInsightPayload))
			text, err := ask(ctx, c, llm.Request{
				System:      astrologySystemPrompt,
				User:        northNodePrompt(in),
				MaxTokens:   500,
				Temperature: 0.7,
			}, func(s string) (string, error) { return validateText(KindNorthNodeInsight, s) })
			if err != nil {
				return nil, err
			}
			return NorthNodeInsight{
				Insight:       text,
				NorthNodeSign: in.NorthNodeSign,
				SouthNodeSign: in.SouthNodeSign,
				Timestamp:     c.timestamp(),
			}, nil
		},
		local: func(c *call, p Payload) Response {
			in := withNodeSigns(p.(NorthNodeInsightPayload))
			return NorthNodeInsight{
				Insight:       northNodeFallback,
				NorthNodeSign: in.NorthNodeSign,
				SouthNodeSign: in.SouthNodeSign,
				Timestamp:     c.timestamp(),
			}
		},
	}
}

const astrologySystemPrompt = `You are a warm, grounded astrologer. You describe tendencies and invitations, never fixed fate.
Keep language accessible to someone new to astrology.`

// withNodeSigns fills missing node signs from the birth data when it parses.
func withNodeSigns(in NorthNodeInsightPayload) NorthNodeInsightPayload {
	if !blank(in.NorthNodeSign) && !blank(in.SouthNodeSign) {
		return in
	}
	birth, err := astrology.ParseBirth(in.BirthDate, in.BirthTime, in.Latitude, in.Longitude)
	if err != nil {
		return in
	}
	north, south := astrology.Nodes(birth)
	if blank(in.NorthNodeSign) {
		in.NorthNodeSign = north.String()
	}
	if blank(in.SouthNodeSign) {
		in.SouthNodeSign = south.String()
	}
	return in
}

func northNodePrompt(in NorthNodeInsightPayload) string {
	var b strings.Builder
	b.WriteString("Explain what this North Node placement suggests about the person's path of growth.\n")
	if in.Name != "" {
		fmt.Fprintf(&b, "Name: %s\n", in.Name)
	}
	fmt.Fprintf(&b, "North Node: %s\n", in.NorthNodeSign)
	if in.SouthNodeSign != "" {
		fmt.Fprintf(&b, "South Node: %s\n", in.SouthNodeSign)
	}
	if in.NorthNodeHouse > 0 {
		fmt.Fprintf(&b, "North Node house: %d\n", in.NorthNodeHouse)
	}
	if in.Question != "" {
		fmt.Fprintf(&b, "Their question: %q\n", in.Question)
	}
	b.WriteString("Cover what to grow toward, what to release from the South Node, and one practical practice. Three short paragraphs, plain text.")
	return b.String()
}
