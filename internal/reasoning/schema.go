package reasoning

import (
	"fmt"
	"strings"

	"github.com/thirdop-reasoning-server/internal/domain"
)

// EnforceNephrology coerces an already-parsed model reply into the
// nephrology result shape. Unknown keys are discarded, concerns missing
// both a title and a reason are dropped, and question lists are capped at
// three entries. It never fails: a reply with no usable concerns yields
// an empty (non-nil) concern list.
func EnforceNephrology(parsed map[string]interface{}) *domain.ReasoningResult {
	return &domain.ReasoningResult{Concerns: extractConcerns(parsed)}
}

// EnforceAnyReport coerces an already-parsed model reply into the
// any-report result shape. recommendedDepartment defaults to the empty
// string and precautions to an empty list when absent or malformed;
// precautions are capped at three entries after filtering.
func EnforceAnyReport(parsed map[string]interface{}) *domain.AnyReportResult {
	result := &domain.AnyReportResult{
		Concerns:    extractConcerns(parsed),
		Precautions: []string{},
	}

	if dept, ok := parsed["recommendedDepartment"].(string); ok {
		result.RecommendedDepartment = strings.TrimSpace(dept)
	}

	if raw, ok := parsed["precautions"].([]interface{}); ok {
		for _, p := range raw {
			if p == nil {
				continue
			}
			s := strings.TrimSpace(stringify(p))
			if s == "" {
				continue
			}
			result.Precautions = append(result.Precautions, s)
			if len(result.Precautions) == 3 {
				break
			}
		}
	}

	return result
}

func extractConcerns(parsed map[string]interface{}) []domain.Concern {
	concerns := []domain.Concern{}
	raw, ok := parsed["concerns"].([]interface{})
	if !ok {
		return concerns
	}
	for _, item := range raw {
		if c, ok := normalizeConcern(item); ok {
			concerns = append(concerns, c)
		}
	}
	return concerns
}

// normalizeConcern validates a single concern entry. Entries that are not
// objects, or that carry neither a title nor a reason, are dropped rather
// than surfaced as errors.
func normalizeConcern(v interface{}) (domain.Concern, bool) {
	m, ok := v.(map[string]interface{})
	if !ok || len(m) == 0 {
		return domain.Concern{}, false
	}

	title := m["title"]
	reason := m["reason"]
	if title == nil && reason == nil {
		return domain.Concern{}, false
	}

	// An absent or empty questionsToAskDoctor falls back to the
	// doctorQuestions key some model revisions emit instead.
	questions := m["questionsToAskDoctor"]
	if !truthy(questions) {
		questions = m["doctorQuestions"]
	}

	concern := domain.Concern{DoctorQuestions: coerceQuestions(questions)}
	if title != nil {
		concern.Title = strings.TrimSpace(stringify(title))
	}
	if reason != nil {
		concern.Reason = strings.TrimSpace(stringify(reason))
	}
	if concern.Title == "" && concern.Reason == "" {
		return domain.Concern{}, false
	}
	return concern, true
}

// coerceQuestions takes the first three raw entries, then stringifies and
// trims each, discarding nulls and blanks. Truncation happens before
// filtering, so a blank among the first three is not replaced by a later
// entry.
func coerceQuestions(v interface{}) []string {
	list, ok := v.([]interface{})
	if !ok {
		return []string{}
	}
	if len(list) > 3 {
		list = list[:3]
	}
	out := make([]string, 0, len(list))
	for _, q := range list {
		if q == nil {
			continue
		}
		s := strings.TrimSpace(stringify(q))
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}

func stringify(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// truthy mirrors JSON-level emptiness: null, false, zero, the empty
// string, and empty collections are all treated as absent.
func truthy(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	case []interface{}:
		return len(t) > 0
	case map[string]interface{}:
		return len(t) > 0
	default:
		return true
	}
}
