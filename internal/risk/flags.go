package risk

import (
	"context"
	"regexp"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/serenity-health/risk-api/pkg/logging"
)

var matcherTracer = otel.Tracer("serenity/pattern-matcher")

// Flag is a rule-based safety signal derived from lexical pattern matching,
// independent of the statistical classifier.
type Flag string

const (
	FlagIntent Flag = "intent"
	FlagTime   Flag = "time"
	FlagPlan   Flag = "plan"
	FlagMeans  Flag = "means"
)

// Flags is the set of safety flags matched in a single input. Order follows
// the fixed intent/time/plan/means sequence; each flag appears at most once.
type Flags []Flag

// Has reports whether f contains the given flag.
func (f Flags) Has(flag Flag) bool {
	for _, v := range f {
		if v == flag {
			return true
		}
	}
	return false
}

// Strings returns the flags as plain strings for serialization.
func (f Flags) Strings() []string {
	out := make([]string, len(f))
	for i, v := range f {
		out[i] = string(v)
	}
	return out
}

// PatternMatcher evaluates input text against the crisis pattern groups.
// Matching is case-insensitive lexical matching only, no stemming: the
// tradeoff is simplicity over recall.
type PatternMatcher struct {
	logger *logging.Logger
	groups []patternGroup
}

type patternGroup struct {
	flag     Flag
	patterns []*regexp.Regexp
}

// NewPatternMatcher creates a matcher with the built-in crisis pattern groups.
func NewPatternMatcher(logger *logging.Logger) *PatternMatcher {
	if logger == nil {
		logger = logging.Default()
	}

	return &PatternMatcher{
		logger: logger,
		groups: []patternGroup{
			{
				flag: FlagIntent,
				patterns: []*regexp.Regexp{
					regexp.MustCompile(`(?i)\b(i (will|am going to|gonna))\b`),
					regexp.MustCompile(`(?i)\b(kill myself|end my life|suicide)\b`),
					regexp.MustCompile(`(?i)\b(i want to die|i don'?t want to live)\b`),
					regexp.MustCompile(`(?i)\b(can'?t go on|no reason to live)\b`),
				},
			},
			{
				flag: FlagTime,
				patterns: []*regexp.Regexp{
					regexp.MustCompile(`(?i)\b(today|tonight|now|right now|this evening)\b`),
				},
			},
			{
				flag: FlagPlan,
				patterns: []*regexp.Regexp{
					regexp.MustCompile(`(?i)\b(i have a plan|planned it|figured out how)\b`),
				},
			},
			{
				flag: FlagMeans,
				patterns: []*regexp.Regexp{
					regexp.MustCompile(`(?i)\b(pills|overdose|rope|knife|gun|poison)\b`),
				},
			},
		},
	}
}

// Match recomputes the safety flag set for text. It is a total function:
// empty or unmatched input yields an empty set, never an error.
func (m *PatternMatcher) Match(ctx context.Context, text string) Flags {
	_, span := matcherTracer.Start(ctx, "risk.match_flags")
	defer span.End()

	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var flags Flags
	for _, g := range m.groups {
		for _, p := range g.patterns {
			if p.MatchString(text) {
				flags = append(flags, g.flag)
				break
			}
		}
	}

	span.SetAttributes(
		attribute.Int("risk.flag_count", len(flags)),
		attribute.StringSlice("risk.flags", flags.Strings()),
	)

	if len(flags) > 0 {
		m.logger.Warn("safety flags detected", "flags", flags.Strings())
	}

	return flags
}
