package reflection

import "strings"

// Payload is the decoded data record of a request. Each kind has exactly one
// payload type.
type Payload interface {
	Kind() Kind
	missing() []string
}

// CardInterpretationPayload asks for a reading of a tarot card and hexagram.
type CardInterpretationPayload struct {
	CardName       string   `json:"cardName"`
	CardKeywords   []string `json:"cardKeywords"`
	IsReversed     bool     `json:"isReversed"`
	HexagramName   string   `json:"hexagramName"`
	HexagramNumber int      `json:"hexagramNumber"`
	Question       string   `json:"question"`
	UserContext    string   `json:"userContext"`
}

func (CardInterpretationPayload) Kind() Kind { return KindCardInterpretation }

func (p CardInterpretationPayload) missing() []string {
	if blank(p.CardName) && blank(p.HexagramName) {
		return []string{"cardName"}
	}
	return nil
}

// ReflectionPromptsPayload asks for three journaling questions.
type ReflectionPromptsPayload struct {
	CardName     string   `json:"cardName"`
	CardKeywords []string `json:"cardKeywords"`
	HexagramName string   `json:"hexagramName"`
	FocusArea    string   `json:"focusArea"`
	Mood         string   `json:"mood"`
}

func (ReflectionPromptsPayload) Kind() Kind { return KindReflectionPrompts }

func (p ReflectionPromptsPayload) missing() []string {
	if blank(p.CardName) && blank(p.HexagramName) {
		return []string{"cardName"}
	}
	return nil
}

// PersonalizedGuidancePayload asks for a short piece of daily guidance.
type PersonalizedGuidancePayload struct {
	CardName     string   `json:"cardName"`
	HexagramName string   `json:"hexagramName"`
	Intention    string   `json:"intention"`
	Mood         string   `json:"mood"`
	FocusArea    string   `json:"focusArea"`
	RecentThemes []string `json:"recentThemes"`
	SunSign      string   `json:"sunSign"`
}

func (PersonalizedGuidancePayload) Kind() Kind { return KindPersonalizedGuidance }

func (PersonalizedGuidancePayload) missing() []string { return nil }

// NorthNodeInsightPayload asks for a reading of a North Node placement. The
// signs are computed from the birth data when not supplied.
type NorthNodeInsightPayload struct {
	Name           string  `json:"name"`
	NorthNodeSign  string  `json:"northNodeSign"`
	SouthNodeSign  string  `json:"southNodeSign"`
	NorthNodeHouse int     `json:"northNodeHouse"`
	BirthDate      string  `json:"birthDate"`
	BirthTime      string  `json:"birthTime"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	Question       string  `json:"question"`
}

func (NorthNodeInsightPayload) Kind() Kind { return KindNorthNodeInsight }

func (p NorthNodeInsightPayload) missing() []string {
	if blank(p.NorthNodeSign) && blank(p.BirthDate) {
		return []string{"northNodeSign"}
	}
	return nil
}

// Person is one participant of a compatibility report.
type Person struct {
	Name      string  `json:"name"`
	BirthDate string  `json:"birthDate"`
	BirthTime string  `json:"birthTime"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	SunSign   string  `json:"sunSign"`
}

// CompatibilityReportPayload asks for a report on two people.
type CompatibilityReportPayload struct {
	PersonA    Person `json:"personA"`
	PersonB    Person `json:"personB"`
	ReportType string `json:"reportType"`
}

func (CompatibilityReportPayload) Kind() Kind { return KindCompatibilityReport }

func (p CompatibilityReportPayload) missing() []string {
	var out []string
	if blank(p.PersonA.Name) {
		out = append(out, "personA.name")
	}
	if blank(p.PersonB.Name) {
		out = append(out, "personB.name")
	}
	return out
}

// StructuredReflectionPayload asks for a four-part combined reflection.
type StructuredReflectionPayload struct {
	CardName       string   `json:"cardName"`
	CardKeywords   []string `json:"cardKeywords"`
	IsReversed     bool     `json:"isReversed"`
	HexagramName   string   `json:"hexagramName"`
	HexagramNumber int      `json:"hexagramNumber"`
	ChangingLines  []int    `json:"changingLines"`
	Question       string   `json:"question"`
	Intention      string   `json:"intention"`
}

func (StructuredReflectionPayload) Kind() Kind { return KindStructuredReflection }

func (p StructuredReflectionPayload) missing() []string {
	var out []string
	if blank(p.CardName) {
		out = append(out, "cardName")
	}
	if blank(p.HexagramName) {
		out = append(out, "hexagramName")
	}
	return out
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }
