package reflection

// Response is the body returned for a successful request. Generated and
// fallback output share the same type per kind.
type Response interface {
	Kind() Kind
}

// CardInterpretation is the card-interpretation response.
type CardInterpretation struct {
	Interpretation string `json:"interpretation"`
	Timestamp      string `json:"timestamp"`
}

func (CardInterpretation) Kind() Kind { return KindCardInterpretation }

// ReflectionPrompts is the reflection-prompts response.
type ReflectionPrompts struct {
	Prompts   []string `json:"prompts"`
	Timestamp string   `json:"timestamp"`
}

func (ReflectionPrompts) Kind() Kind { return KindReflectionPrompts }

// PersonalizedGuidance is the personalized-guidance response.
type PersonalizedGuidance struct {
	Guidance  string `json:"guidance"`
	Timestamp string `json:"timestamp"`
}

func (PersonalizedGuidance) Kind() Kind { return KindPersonalizedGuidance }

// NorthNodeInsight is the north-node-insight response.
type NorthNodeInsight struct {
	Insight       string `json:"insight"`
	NorthNodeSign string `json:"northNodeSign,omitempty"`
	SouthNodeSign string `json:"southNodeSign,omitempty"`
	Timestamp     string `json:"timestamp"`
}

func (NorthNodeInsight) Kind() Kind { return KindNorthNodeInsight }

// StructuredReflection is the structured-reflection response.
type StructuredReflection struct {
	IChingReflection string `json:"iChingReflection"`
	TarotReflection  string `json:"tarotReflection"`
	Synthesis        string `json:"synthesis"`
	ReflectionPrompt string `json:"reflectionPrompt"`
	Timestamp        string `json:"timestamp"`
}

func (StructuredReflection) Kind() Kind { return KindStructuredReflection }

// CompatibilityStat is one scored dimension of a compatibility report.
type CompatibilityStat struct {
	Label       string  `json:"label"`
	Score       float64 `json:"score"`
	Description string  `json:"description"`
}

// CompatibilityReport is the compatibility-report response.
type CompatibilityReport struct {
	Score       float64             `json:"score"`
	Title       string              `json:"title"`
	Summary     string              `json:"summary"`
	Stats       []CompatibilityStat `json:"stats"`
	ReportType  string              `json:"reportType"`
	PersonAName string              `json:"personAName"`
	PersonBName string              `json:"personBName"`
	Insight     string              `json:"insight"`
	GeneratedAt string              `json:"generatedAt"`
}

func (CompatibilityReport) Kind() Kind { return KindCompatibilityReport }
