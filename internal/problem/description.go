package problem

import (
	"fmt"
	"regexp"
	"strings"
)

// Example is one worked example from a problem description.
type Example struct {
	ID          string
	Title       string
	Text        string
	Input       string
	Output      string
	Explanation string
}

// Content is a problem description split into prose, examples and constraints.
type Content struct {
	Description string
	Examples    []Example
	Constraints []string
}

var (
	constraintsLabel = regexp.MustCompile(`(?i)(?:\*\*|__)?Constraints:(?:\*\*|__)?`)
	exampleLabel     = regexp.MustCompile(`(?i)(?:\*\*|__)?Example \d+:(?:\*\*|__)?`)
	inputLabel       = regexp.MustCompile(`(?i)(?:\*\*|__)?Input:(?:\*\*|__)?`)
	outputLabel      = regexp.MustCompile(`(?i)(?:\*\*|__)?Output:(?:\*\*|__)?`)
	explanationLabel = regexp.MustCompile(`(?i)(?:\*\*|__)?Explanation:(?:\*\*|__)?`)
	listMarker       = regexp.MustCompile(`^(?:-|\*|<li>)\s*`)
)

// ParseDescription splits markdown problem text. Everything after the first
// "Constraints:" label is read as one constraint per line; "Example N:" labels
// before it start examples with optional Input, Output and Explanation fields.
func ParseDescription(text string) Content {
	out := Content{Examples: []Example{}, Constraints: []string{}}
	if strings.TrimSpace(text) == "" {
		return out
	}

	main := text
	if loc := constraintsLabel.FindStringIndex(text); loc != nil {
		main = text[:loc[0]]
		out.Constraints = parseConstraints(constraintsLabel.ReplaceAllString(text[loc[1]:], "Constraints:"))
	}

	labels := exampleLabel.FindAllStringIndex(main, -1)
	if len(labels) == 0 {
		out.Description = strings.TrimSpace(main)
		return out
	}
	out.Description = strings.TrimSpace(main[:labels[0][0]])
	for i, loc := range labels {
		end := len(main)
		if i+1 < len(labels) {
			end = labels[i+1][0]
		}
		body := strings.TrimSpace(main[loc[1]:end])
		title := strings.TrimSpace(strings.NewReplacer("*", "", "_", "").Replace(main[loc[0]:loc[1]]))
		title = strings.TrimSuffix(title, ":")
		ex := Example{
			ID:    fmt.Sprintf("example-%d", i+1),
			Title: title,
			Text:  body,
		}
		ex.Input = section(body, inputLabel, outputLabel)
		ex.Output = section(body, outputLabel, explanationLabel)
		ex.Explanation = section(body, explanationLabel, nil)
		out.Examples = append(out.Examples, ex)
	}
	return out
}

// section returns the text after start up to the next stop label or the end.
func section(body string, start, stop *regexp.Regexp) string {
	loc := start.FindStringIndex(body)
	if loc == nil {
		return ""
	}
	rest := body[loc[1]:]
	if stop != nil {
		if end := stop.FindStringIndex(rest); end != nil {
			rest = rest[:end[0]]
		}
	}
	return strings.TrimSpace(rest)
}

func parseConstraints(block string) []string {
	out := []string{}
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(line)
		line = listMarker.ReplaceAllString(line, "")
		line = strings.TrimSpace(strings.TrimSuffix(line, "</li>"))
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
