package reflection

import (
	"context"
	"fmt"
	"strings"
	"time"

	"reflection-backend/internal/astrology"
	"reflection-backend/internal/llm"
)

const (
	defaultReportType = "Romantic"

	fallbackScoreMin  = 65
	fallbackScoreSpan = 21 // scores land in [65, 85]
)

func compatibilityReportHandler() handler {
	return handler{
		decode: decodeAs[CompatibilityReportPayload],
		generate: func(ctx context.Context, c *call, p Payload) (Response, error) {
			in := p.(CompatibilityReportPayload)
			a, b := annotate(in.PersonA), annotate(in.PersonB)
			report, err := ask(ctx, c, llm.Request{
				System:      astrologySystemPrompt,
				User:        compatibilityPrompt(a, b, reportType(in)),
				MaxTokens:   1200,
				Temperature: 0.7,
				JSON:        true,
			}, validateCompatibility)
			if err != nil {
				return nil, err
			}
			if report.Insight == "" {
				report.Insight = compatibilityInsight(a, report.Score, c.now)
			}
			return finishReport(report, in, c), nil
		},
		local: func(c *call, p Payload) Response {
			return compatibilityFallback(c, p.(CompatibilityReportPayload))
		},
	}
}

func reportType(in CompatibilityReportPayload) string {
	if blank(in.ReportType) {
		return defaultReportType
	}
	return strings.TrimSpace(in.ReportType)
}

func finishReport(r CompatibilityReport, in CompatibilityReportPayload, c *call) CompatibilityReport {
	r.ReportType = reportType(in)
	r.PersonAName = strings.TrimSpace(in.PersonA.Name)
	r.PersonBName = strings.TrimSpace(in.PersonB.Name)
	r.GeneratedAt = c.timestamp()
	return r
}

// chartPerson is a participant annotated with computed placements.
type chartPerson struct {
	Person
	birth     *astrology.Birth
	sun       string
	northNode string
	southNode string
}

func annotate(p Person) chartPerson {
	out := chartPerson{Person: p, sun: strings.TrimSpace(p.SunSign)}
	birth, err := astrology.ParseBirth(p.BirthDate, p.BirthTime, p.Latitude, p.Longitude)
	if err != nil {
		return out
	}
	out.birth = &birth
	north, south := astrology.Nodes(birth)
	out.northNode, out.southNode = north.String(), south.String()
	if out.sun == "" {
		out.sun = astrology.SunSign(birth.Time).String()
	}
	return out
}

func compatibilityPrompt(a, b chartPerson, kind string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Write a %s compatibility report for two people.\n", strings.ToLower(kind))
	for _, p := range []chartPerson{a, b} {
		fmt.Fprintf(&sb, "- %s", p.Name)
		if p.birth != nil {
			fmt.Fprintf(&sb, ", born %s", p.birth.Time.Format("2006-01-02"))
		}
		if p.sun != "" {
			fmt.Fprintf(&sb, ", Sun in %s", p.sun)
		}
		if p.northNode != "" {
			fmt.Fprintf(&sb, ", North Node in %s, South Node in %s", p.northNode, p.southNode)
		}
		sb.WriteString("\n")
	}
	sb.WriteString(`Respond with a JSON object:
{"score": number 0-100, "title": string, "summary": string (2-3 sentences),
 "stats": [exactly 4 objects {"label": string, "score": number 0-100, "description": string}]}`)
	return sb.String()
}

type statTemplate struct {
	label  string
	karmic bool
	desc   string // formatted with the two names
}

var compatibilityStatPool = []statTemplate{
	{label: "Emotional Connection", desc: "%s and %s read each other's moods with unusual ease."},
	{label: "Communication", desc: "Conversations between %s and %s tend to open doors rather than close them."},
	{label: "Shared Values", desc: "%s and %s are guided by a similar sense of what truly matters."},
	{label: "Growth Potential", desc: "%s and %s encourage each other to stretch beyond old patterns."},
	{label: "Passion & Chemistry", desc: "There is a lively spark between %s and %s that keeps things warm."},
	{label: "Karmic Bond", karmic: true, desc: "The nodes suggest %s and %s have lessons to share with each other."},
	{label: "Soul Lessons", karmic: true, desc: "%s and %s mirror what each is learning to release and to embrace."},
}

func compatibilityFallback(c *call, in CompatibilityReportPayload) CompatibilityReport {
	rnd := c.rt.rnd
	a := annotate(in.PersonA)
	nameA, nameB := strings.TrimSpace(in.PersonA.Name), strings.TrimSpace(in.PersonB.Name)

	score := fallbackScoreMin + rnd.Intn(fallbackScoreSpan)
	picked := pickStats(rnd)
	stats := make([]CompatibilityStat, 0, compatibilityStatCount)
	for _, t := range picked {
		s := score - 10 + rnd.Intn(21)
		stats = append(stats, CompatibilityStat{
			Label:       t.label,
			Score:       float64(clampScore(s)),
			Description: fmt.Sprintf(t.desc, nameA, nameB),
		})
	}

	adjective := compatibilityAdjective(float64(score))
	report := CompatibilityReport{
		Score:   float64(score),
		Title:   fmt.Sprintf("%s & %s: %s", nameA, nameB, compatibilityTitle(float64(score))),
		Summary: fmt.Sprintf("%s and %s share a %s %s connection. Your charts point to real common ground, along with a few places where patience and honest conversation will serve you both.", nameA, nameB, adjective, strings.ToLower(reportType(in))),
		Stats:   stats,
		Insight: compatibilityInsight(a, float64(score), c.now),
	}
	return finishReport(report, in, c)
}

// pickStats draws four distinct stats. When none is karmic, a coin flip swaps
// the last pick for a karmic one.
func pickStats(rnd *lockedRand) []statTemplate {
	perm := rnd.Perm(len(compatibilityStatPool))
	picked := make([]statTemplate, 0, compatibilityStatCount)
	for _, i := range perm[:compatibilityStatCount] {
		picked = append(picked, compatibilityStatPool[i])
	}
	for _, t := range picked {
		if t.karmic {
			return picked
		}
	}
	if rnd.Float64() < 0.5 {
		var karmic []statTemplate
		for _, t := range compatibilityStatPool {
			if t.karmic {
				karmic = append(karmic, t)
			}
		}
		picked[len(picked)-1] = karmic[rnd.Intn(len(karmic))]
	}
	return picked
}

func compatibilityAdjective(score float64) string {
	switch {
	case score >= 80:
		return "exceptional"
	case score >= 70:
		return "strong"
	case score >= 60:
		return "promising"
	default:
		return "complex but meaningful"
	}
}

func compatibilityTitle(score float64) string {
	switch {
	case score >= 80:
		return "A Rare and Radiant Bond"
	case score >= 70:
		return "A Strong and Growing Connection"
	default:
		return "A Promising Path Together"
	}
}

var seasonQualities = map[string]string{
	"spring": "renewing",
	"summer": "radiant",
	"autumn": "reflective",
	"winter": "steady",
}

// compatibilityInsight derives a line from person A's birth season and the
// score. Without a birth date the current month is used.
func compatibilityInsight(a chartPerson, score float64, now time.Time) string {
	month := now.Month()
	if a.birth != nil {
		month = a.birth.Time.Month()
	}
	season := astrology.Season(month)
	return fmt.Sprintf("Born in %s, %s brings a %s energy to this bond, and together your compatibility is %s.",
		season, strings.TrimSpace(a.Name), seasonQualities[season], compatibilityAdjective(score))
}

func clampScore(s int) int {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}
