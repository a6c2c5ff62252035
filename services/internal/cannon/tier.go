package cannon

// Tier is a severity bucket for a consumption percentage.
type Tier string

const (
	TierGray   Tier = "gray"
	TierGreen  Tier = "green"
	TierYellow Tier = "yellow"
	TierOrange Tier = "orange"
	TierRed    Tier = "red"
)

var tierColors = map[Tier]string{
	TierGray:   "#cccccc",
	TierGreen:  "#2ecc71",
	TierYellow: "#f1c40f",
	TierOrange: "#e67e22",
	TierRed:    "#e74c3c",
}

// Color returns the hex marker color of the tier.
func (t Tier) Color() string {
	return tierColors[t]
}

// Comparison is the operator of a tier rule.
type Comparison string

const (
	Equal    Comparison = "=="
	LessThan Comparison = "<"
)

// TierRule assigns Tier to percentages satisfying Op against Bound.
type TierRule struct {
	Op    Comparison
	Bound int
	Tier  Tier
}

func (r TierRule) matches(percent int) bool {
	switch r.Op {
	case Equal:
		return percent == r.Bound
	case LessThan:
		return percent < r.Bound
	}
	return false
}

// tierRules are evaluated in order, first match wins; anything left is
// FallbackTier. There is no lower bound before the "< 34" rule, so negative
// percentages land in green.
var tierRules = []TierRule{
	{Op: Equal, Bound: 0, Tier: TierGray},
	{Op: LessThan, Bound: 34, Tier: TierGreen},
	{Op: LessThan, Bound: 67, Tier: TierYellow},
	{Op: LessThan, Bound: 100, Tier: TierOrange},
}

// FallbackTier applies to percentages no rule matched (>= 100).
const FallbackTier = TierRed

// TierRules returns a copy of the ordered classification rules.
func TierRules() []TierRule {
	out := make([]TierRule, len(tierRules))
	copy(out, tierRules)
	return out
}

// Classify maps a percentage to its tier.
func Classify(percent int) Tier {
	for _, r := range tierRules {
		if r.matches(percent) {
			return r.Tier
		}
	}
	return FallbackTier
}

// ColorExpression renders the classification as a map-style "case"
// expression reading the numeric feature property named prop.
func ColorExpression(prop string) []any {
	expr := []any{"case"}
	for _, r := range tierRules {
		expr = append(expr, []any{string(r.Op), []any{"get", prop}, r.Bound}, r.Tier.Color())
	}
	return append(expr, FallbackTier.Color())
}
