package cvparse

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jonathan/cv-tailor/internal/artifact"
	"github.com/jonathan/cv-tailor/internal/pipeline"
)

var monthNumbers = map[string]string{
	"january": "01", "jan": "01",
	"february": "02", "feb": "02",
	"march": "03", "mar": "03",
	"april": "04", "apr": "04",
	"may":  "05",
	"june": "06", "jun": "06",
	"july": "07", "jul": "07",
	"august": "08", "aug": "08",
	"september": "09", "sep": "09", "sept": "09",
	"october": "10", "oct": "10",
	"november": "11", "nov": "11",
	"december": "12", "dec": "12",
}

var (
	monthYearRe   = regexp.MustCompile(`^([A-Za-z]+)\.?\s+(\d{4})$`)
	isoYearMonth  = regexp.MustCompile(`^(\d{4})-(\d{1,2})$`)
	dashMonthYear = regexp.MustCompile(`^(\d{1,2})-(\d{4})$`)
	slashDate     = regexp.MustCompile(`^\d{2}/\d{4}$`)
	bareYearRe    = regexp.MustCompile(`^\d{4}$`)
)

// NormalizeDate converts resume date spellings to the canonical MM/YYYY
// form. Already-canonical dates and open-ended markers (Present, Current,
// Now) pass through unchanged, so the function is idempotent. Unrecognized
// spellings are returned as-is rather than guessed at.
func NormalizeDate(date string) string {
	date = strings.TrimSpace(date)
	if date == "" {
		return date
	}

	switch strings.ToLower(date) {
	case "present", "current", "now":
		return date
	}

	if slashDate.MatchString(date) {
		return date
	}

	if m := monthYearRe.FindStringSubmatch(date); m != nil {
		if num, ok := monthNumbers[strings.ToLower(m[1])]; ok {
			return num + "/" + m[2]
		}
		return date
	}

	if m := isoYearMonth.FindStringSubmatch(date); m != nil {
		return pad2(m[2]) + "/" + m[1]
	}

	if m := dashMonthYear.FindStringSubmatch(date); m != nil {
		return pad2(m[1]) + "/" + m[2]
	}

	if bareYearRe.MatchString(date) {
		return "01/" + date
	}

	return date
}

func pad2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}

// validationWarnings surfaces quality issues in the structured CV that are
// worth flagging but never fatal.
func validationWarnings(cv map[string]any) []string {
	var warnings []string
	get := func(key string) string {
		s, _ := cv[key].(string)
		return strings.TrimSpace(s)
	}

	if get("name") == "" {
		warnings = append(warnings, "cv has no name")
	}
	if get("email") == "" {
		warnings = append(warnings, "cv has no email address")
	}
	if get("phone") == "" {
		warnings = append(warnings, "cv has no phone number")
	}

	exp, _ := cv["experience"].([]any)
	if len(exp) == 0 {
		warnings = append(warnings, "cv has no work experience")
	}
	for i, e := range exp {
		entry, ok := e.(map[string]any)
		if !ok {
			continue
		}
		company, _ := entry["company"].(string)
		start, _ := entry["start_date"].(string)
		if strings.TrimSpace(start) == "" {
			warnings = append(warnings, fmt.Sprintf("experience %d (%s) has no start date", i+1, company))
		}
		bullets, _ := entry["bullets"].([]any)
		if len(bullets) == 0 {
			warnings = append(warnings, fmt.Sprintf("experience %d (%s) has no bullets", i+1, company))
		}
	}

	skills, _ := cv["skills"].([]any)
	if len(skills) == 0 {
		warnings = append(warnings, "cv has no skills listed")
	}

	return warnings
}

// normalizeCV returns a cleaned copy of the structured CV: dates in
// canonical form, whitespace collapsed, empty bullets dropped. The input
// map is never mutated.
func normalizeCV(cv map[string]any) map[string]any {
	out := make(map[string]any, len(cv))
	for k, v := range cv {
		out[k] = v
	}

	for _, key := range []string{"name", "email", "phone", "location", "summary"} {
		if s, ok := out[key].(string); ok {
			out[key] = strings.TrimSpace(s)
		}
	}

	exp, _ := cv["experience"].([]any)
	cleanedExp := make([]any, 0, len(exp))
	for _, e := range exp {
		entry, ok := e.(map[string]any)
		if !ok {
			continue
		}
		cleaned := make(map[string]any, len(entry))
		for k, v := range entry {
			cleaned[k] = v
		}
		for _, key := range []string{"company", "role"} {
			if s, ok := cleaned[key].(string); ok {
				cleaned[key] = strings.TrimSpace(s)
			}
		}
		for _, key := range []string{"start_date", "end_date"} {
			if s, ok := cleaned[key].(string); ok {
				cleaned[key] = NormalizeDate(s)
			}
		}
		bullets, _ := cleaned["bullets"].([]any)
		kept := make([]any, 0, len(bullets))
		for _, b := range bullets {
			s, ok := b.(string)
			if !ok {
				continue
			}
			if s = strings.TrimSpace(s); s != "" {
				kept = append(kept, s)
			}
		}
		cleaned["bullets"] = kept
		cleanedExp = append(cleanedExp, cleaned)
	}
	out["experience"] = cleanedExp

	edu, _ := cv["education"].([]any)
	cleanedEdu := make([]any, 0, len(edu))
	for _, e := range edu {
		entry, ok := e.(map[string]any)
		if !ok {
			continue
		}
		cleaned := make(map[string]any, len(entry))
		for k, v := range entry {
			cleaned[k] = v
		}
		for _, key := range []string{"institution", "degree"} {
			if s, ok := cleaned[key].(string); ok {
				cleaned[key] = strings.TrimSpace(s)
			}
		}
		for _, key := range []string{"start_date", "end_date"} {
			if s, ok := cleaned[key].(string); ok {
				cleaned[key] = NormalizeDate(s)
			}
		}
		cleanedEdu = append(cleanedEdu, cleaned)
	}
	out["education"] = cleanedEdu

	skills, _ := cv["skills"].([]any)
	cleanedSkills := make([]any, 0, len(skills))
	for _, s := range skills {
		str, ok := s.(string)
		if !ok {
			continue
		}
		if str = strings.TrimSpace(str); str != "" {
			cleanedSkills = append(cleanedSkills, str)
		}
	}
	out["skills"] = cleanedSkills

	return out
}

// ValidateStage returns the pure local stage that normalizes the structured
// CV in place on the artifact and reports quality warnings. It makes no
// provider call.
func ValidateStage() pipeline.Stage {
	return &pipeline.LocalStage{
		StageName: "validate_cv",
		Sources:   []string{"master_cv"},
		Func: func(in artifact.Artifact) (artifact.Artifact, []string) {
			cleaned := normalizeCV(in.Map("master_cv"))
			return artifact.Artifact{"master_cv": cleaned}, validationWarnings(cleaned)
		},
	}
}
