package provider

import (
	"os"
	"path/filepath"
)

// MatchPatterns evaluates a provider's detection patterns against a candidate
// root and produces a confidence score.
//
// Each matched pattern contributes its weight; the confidence is the matched
// weight as a share of the total weight, scaled to 0-100. A missing required
// pattern forces CanHandle:false with confidence 0 regardless of what else
// matched. The function never fails: unreadable paths simply match nothing.
func MatchPatterns(root string, patterns []DetectionPattern) DetectionScore {
	score := DetectionScore{
		MatchedPatterns: []string{},
		MissingPatterns: []string{},
	}

	totalWeight := 0
	matchedWeight := 0
	requiredMissing := false

	for _, p := range patterns {
		totalWeight += p.Weight
		if patternMatches(root, p) {
			matchedWeight += p.Weight
			score.MatchedPatterns = append(score.MatchedPatterns, p.Pattern)
		} else {
			score.MissingPatterns = append(score.MissingPatterns, p.Pattern)
			if p.Required {
				requiredMissing = true
			}
		}
	}

	if requiredMissing || totalWeight == 0 || matchedWeight == 0 {
		return score
	}

	score.CanHandle = true
	score.Confidence = matchedWeight * 100 / totalWeight
	return score
}

func patternMatches(root string, p DetectionPattern) bool {
	matches, err := filepath.Glob(filepath.Join(root, p.Pattern))
	if err != nil {
		return false
	}
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil {
			continue
		}
		switch p.Type {
		case PatternDirectory:
			if info.IsDir() {
				return true
			}
		default:
			if !info.IsDir() {
				return true
			}
		}
	}
	return false
}

// ValidateWithPatterns is the shared structural validation: every required
// pattern must be present. It returns isValid:false with confidence 0 and an
// INVALID_FORMAT error when the layout does not match.
func ValidateWithPatterns(root string, patterns []DetectionPattern) ValidationResult {
	res := ValidationResult{Errors: []string{}, Warnings: []string{}}

	if _, err := os.Stat(root); err != nil {
		res.Errors = append(res.Errors, string(CodePathNotFound)+": "+root)
		return res
	}

	score := MatchPatterns(root, patterns)
	if !score.CanHandle {
		for _, missing := range score.MissingPatterns {
			res.Errors = append(res.Errors, string(CodeInvalidFormat)+": missing "+missing)
		}
		if len(res.Errors) == 0 {
			res.Errors = append(res.Errors, string(CodeInvalidFormat)+": no detection pattern matched")
		}
		return res
	}

	for _, missing := range score.MissingPatterns {
		res.Warnings = append(res.Warnings, "optional pattern not matched: "+missing)
	}

	res.IsValid = true
	res.Confidence = score.Confidence
	return res
}
