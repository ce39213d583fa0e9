// Package parser extracts the labeled sections some text providers are
// prompted to emit ("Title:", "Message:", "Quote:"). The grammar is ordered
// labeled sections, every label optional; malformed output degrades to a
// plain message instead of erroring.
package parser

import "strings"

type Reply struct {
	Title   *string `json:"title,omitempty"`
	Message string  `json:"message"`
	Quote   *string `json:"quote,omitempty"`
}

var labels = []string{"title", "message", "quote"}

// Parse splits raw provider output into labeled sections. Text before any
// label, or the whole input when no label matches, becomes the message.
func Parse(raw string) Reply {
	sections := map[string][]string{}
	current := "message"

	for _, line := range strings.Split(raw, "\n") {
		if label, rest, ok := matchLabel(line); ok {
			current = label
			if rest != "" {
				sections[current] = append(sections[current], rest)
			}
			continue
		}
		sections[current] = append(sections[current], line)
	}

	out := Reply{Message: joinSection(sections["message"])}
	if t := joinSection(sections["title"]); t != "" {
		out.Title = &t
	}
	if q := joinSection(sections["quote"]); q != "" {
		out.Quote = &q
	}

	return out
}

func matchLabel(line string) (label, rest string, ok bool) {
	trimmed := strings.TrimSpace(line)
	lower := strings.ToLower(trimmed)
	for _, l := range labels {
		if strings.HasPrefix(lower, l+":") {
			return l, strings.TrimSpace(trimmed[len(l)+1:]), true
		}
	}
	return "", "", false
}

func joinSection(lines []string) string {
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
