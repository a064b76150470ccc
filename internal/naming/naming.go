// Package naming derives a human-facing label for a map asset. Labels
// come from several sources of uneven quality (operator-entered names,
// serial numbers, the bare type tag), so each candidate is scored and the
// best one wins.
package naming

import (
	"strings"

	"darayyaconnect/infra-core/internal/infragraph"
)

// Candidate is one possible label for an asset.
type Candidate struct {
	Name   string
	Source string
}

type normalizedCandidate struct {
	Source      string
	StoredName  string
	DisplayName string
	Score       int
}

// NormalizeCandidate cleans a raw candidate and scores it. Candidates
// below the score floor come back with ok=false.
func NormalizeCandidate(source, rawName string) (storedName string, displayName string, score int, ok bool) {
	source = strings.ToLower(strings.TrimSpace(source))
	name := strings.TrimSpace(rawName)
	if name == "" {
		return "", "", 0, false
	}

	stored := name
	if source == "type" {
		stored = strings.ToLower(stored)
	}

	display := stored
	if source == "type" {
		display = humanizeTypeTag(display)
	}

	s := scoreCandidate(source, stored)
	if s < 0 {
		return stored, display, s, false
	}

	return stored, display, s, true
}

// ChooseBestDisplayName picks the highest-scoring candidate, if any
// clears the quality floor.
func ChooseBestDisplayName(candidates []Candidate) (string, bool) {
	best := normalizedCandidate{Score: -1_000_000}

	for _, c := range candidates {
		stored, display, score, ok := NormalizeCandidate(c.Source, c.Name)
		if !ok {
			continue
		}
		next := normalizedCandidate{
			Source:      c.Source,
			StoredName:  stored,
			DisplayName: display,
			Score:       score,
		}
		if betterCandidate(next, best) {
			best = next
		}
	}

	if best.Score < 0 || strings.TrimSpace(best.DisplayName) == "" {
		return "", false
	}
	return best.DisplayName, true
}

// NodeLabel builds the label for a node from its operator name, serial
// number and type tag, in that order of preference.
func NodeLabel(n infragraph.Node) string {
	candidates := []Candidate{
		{Name: n.Type, Source: "type"},
	}
	if n.SerialNumber != nil {
		candidates = append(candidates, Candidate{Name: *n.SerialNumber, Source: "serial"})
	}
	if n.Meta != nil {
		if name, _ := n.Meta["name"].(string); name != "" {
			candidates = append(candidates, Candidate{Name: name, Source: "operator"})
		}
	}

	if label, ok := ChooseBestDisplayName(candidates); ok {
		return label
	}
	return humanizeTypeTag(n.Type)
}

// LineLabel builds the label for a line from its type tag.
func LineLabel(l infragraph.Line) string {
	return humanizeTypeTag(l.Type)
}

func betterCandidate(a, b normalizedCandidate) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	// Prefer shorter names after scoring.
	if len(a.DisplayName) != len(b.DisplayName) {
		return len(a.DisplayName) < len(b.DisplayName)
	}
	// Stable tie-breaker.
	if a.DisplayName != b.DisplayName {
		return a.DisplayName < b.DisplayName
	}
	return a.StoredName < b.StoredName
}

func scoreCandidate(source, stored string) int {
	if looksGarbage(strings.ToLower(stored)) {
		return -1
	}

	base := 50
	switch source {
	case "operator":
		base = 95
	case "serial":
		base = 85
	case "type":
		base = 60
	}

	// Very long names tend to be pasted identifiers, not labels.
	if len(stored) > 48 {
		base -= 20
	}
	return base
}

func looksGarbage(name string) bool {
	if name == "" {
		return true
	}
	if strings.HasPrefix(name, "_") {
		return true
	}
	// All-punctuation or all-digit strings carry no meaning on a map.
	hasLetter := false
	for _, r := range name {
		if r >= 'a' && r <= 'z' {
			hasLetter = true
			break
		}
	}
	return !hasLetter
}

func humanizeTypeTag(tag string) string {
	parts := strings.Split(infragraph.NormalizeTag(tag), "_")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}
