package reflection

import "strings"

// Kind is the closed set of generation request kinds.
type Kind int

const (
	KindCardInterpretation Kind = iota + 1
	KindReflectionPrompts
	KindPersonalizedGuidance
	KindNorthNodeInsight
	KindCompatibilityReport
	KindStructuredReflection
)

var kindTags = map[Kind]string{
	KindCardInterpretation:   "card-interpretation",
	KindReflectionPrompts:    "reflection-prompts",
	KindPersonalizedGuidance: "personalized-guidance",
	KindNorthNodeInsight:     "north-node-insight",
	KindCompatibilityReport:  "compatibility-report",
	KindStructuredReflection: "structured-reflection",
}

// Kinds lists every kind in declaration order.
func Kinds() []Kind {
	return []Kind{
		KindCardInterpretation,
		KindReflectionPrompts,
		KindPersonalizedGuidance,
		KindNorthNodeInsight,
		KindCompatibilityReport,
		KindStructuredReflection,
	}
}

// String returns the wire tag of k.
func (k Kind) String() string {
	if tag, ok := kindTags[k]; ok {
		return tag
	}
	return "unknown"
}

// ParseKind maps a wire tag to a Kind.
func ParseKind(tag string) (Kind, bool) {
	tag = strings.TrimSpace(tag)
	for k, t := range kindTags {
		if t == tag {
			return k, true
		}
	}
	return 0, false
}
