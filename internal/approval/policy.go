package approval

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ConditionOp is a predicate evaluated against a request's arguments.
type ConditionOp string

const (
	OpSizeGT     ConditionOp = "size_gt"
	OpSizeLT     ConditionOp = "size_lt"
	OpPathPrefix ConditionOp = "path_prefix"
	OpEquals     ConditionOp = "equals"
	OpContains   ConditionOp = "contains"
)

// Condition is one clause of a Rule: does arguments[ArgumentKey] satisfy Op
// against Value.
type Condition struct {
	Op          ConditionOp `json:"op"`
	ArgumentKey string      `json:"argumentKey"`
	Value       any         `json:"value"`
}

// Rule matches a Kind and a subject pattern (glob for tool names, regex when
// the pattern is wrapped in "/.../"), optionally gated by Conditions over
// the request's arguments.
type Rule struct {
	Kind              Kind        `json:"kind"`
	SubjectPattern    string      `json:"subjectPattern"`
	Conditions        []Condition `json:"conditions,omitempty"`
	RequiresApproval  bool        `json:"requiresApproval"`
	Reason            string      `json:"reason,omitempty"`
}

// Policy is an ordered list of rules plus a default. The first matching
// rule wins; if none match, DefaultRequiresApproval applies.
type Policy struct {
	Enabled                 bool   `json:"enabled"`
	DefaultRequiresApproval bool   `json:"defaultRequiresApproval"`
	Rules                   []Rule `json:"rules"`
}

// DefaultPolicy asks for everything, matching the teacher's "ask" default
// for agent permissions.
func DefaultPolicy() Policy {
	return Policy{
		Enabled:                 true,
		DefaultRequiresApproval: true,
		Rules:                   nil,
	}
}

// ShouldRequireApproval evaluates the policy for a (kind, subject,
// arguments) triple and returns whether approval is required and why.
func (p Policy) ShouldRequireApproval(kind Kind, subject string, arguments map[string]any) (bool, string) {
	if !p.Enabled {
		return false, ""
	}

	for _, rule := range p.Rules {
		if rule.Kind != kind {
			continue
		}
		if !matchSubject(rule.SubjectPattern, subject) {
			continue
		}
		if !allConditionsHold(rule.Conditions, arguments) {
			continue
		}
		return rule.RequiresApproval, rule.Reason
	}

	return p.DefaultRequiresApproval, ""
}

func matchSubject(pattern, subject string) bool {
	if pattern == "" || pattern == "*" {
		return true
	}
	if strings.HasPrefix(pattern, "/") && strings.HasSuffix(pattern, "/") && len(pattern) > 1 {
		expr := pattern[1 : len(pattern)-1]
		re, err := regexp.Compile(expr)
		if err != nil {
			return false
		}
		return re.MatchString(subject)
	}
	ok, err := doublestar.Match(pattern, subject)
	if err != nil {
		return pattern == subject
	}
	return ok
}

func allConditionsHold(conditions []Condition, arguments map[string]any) bool {
	for _, c := range conditions {
		if !conditionHolds(c, arguments) {
			return false
		}
	}
	return true
}

func conditionHolds(c Condition, arguments map[string]any) bool {
	actual, present := arguments[c.ArgumentKey]

	switch c.Op {
	case OpSizeGT, OpSizeLT:
		actualNum, ok := toFloat(actual)
		wantNum, wantOK := toFloat(c.Value)
		if !ok || !wantOK {
			return false
		}
		if c.Op == OpSizeGT {
			return actualNum > wantNum
		}
		return actualNum < wantNum
	case OpPathPrefix:
		actualStr, ok := actual.(string)
		wantStr, wantOK := c.Value.(string)
		if !ok || !wantOK {
			return false
		}
		return strings.HasPrefix(actualStr, wantStr)
	case OpEquals:
		return present && fmt.Sprintf("%v", actual) == fmt.Sprintf("%v", c.Value)
	case OpContains:
		actualStr, ok := actual.(string)
		wantStr, wantOK := c.Value.(string)
		if !ok || !wantOK {
			return false
		}
		return strings.Contains(actualStr, wantStr)
	default:
		return false
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
