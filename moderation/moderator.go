// Package moderation censors forbidden words in user written event text before
// it is fanned out. Matching ignores case, punctuation and common leet speak.
package moderation

import (
	"community-pulse/domain/event"
	"log/slog"
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

// Moderator is safe for concurrent use once built. A nil Moderator censors nothing.
type Moderator struct {
	log          *slog.Logger
	matcher      *goahocorasick.Machine
	censoredChar rune
}

type textMapping struct {
	normalized []rune
	origIdx    []int
}

// NewModerator builds the Aho-Corasick automaton over the normalized dictionary.
// Blank entries are skipped; an empty dictionary gives a pass-through moderator.
func NewModerator(log *slog.Logger, censoredWords []string, censoredChar rune) (*Moderator, error) {
	patterns := make([][]rune, 0, len(censoredWords))
	for _, word := range censoredWords {
		if normalized := normalizeRunes([]rune(word)); len(normalized) > 0 {
			patterns = append(patterns, normalized)
		}
	}
	m := &Moderator{log: log, censoredChar: censoredChar}
	if len(patterns) == 0 {
		return m, nil
	}

	m.matcher = new(goahocorasick.Machine)
	if err := m.matcher.Build(patterns); err != nil {
		return nil, err
	}
	return m, nil
}

// Moderate returns evt with its free text censored. Only messages and
// announcements carry user written text; other events are returned as is.
func (m *Moderator) Moderate(evt event.DomainEvent) event.DomainEvent {
	if m == nil || m.matcher == nil {
		return evt
	}
	censored := false
	switch p := evt.Payload.(type) {
	case event.MessageReceived:
		p.Preview, censored = m.Censor(p.Preview)
		evt.Payload = p
	case event.AnnouncementReceived:
		p.Title, censored = m.Censor(p.Title)
		evt.Payload = p
	}
	if censored {
		m.log.Info("Event text censored", "type", evt.Type, "scope", evt.Scope.Kind)
	}
	return evt
}

// Censor replaces every matched span with the censored character, keeping the
// original spacing. changed reports whether anything was replaced.
func (m *Moderator) Censor(original string) (censored string, changed bool) {
	if m == nil || m.matcher == nil {
		return original, false
	}
	mapping := normalize(original)
	if len(mapping.normalized) == 0 {
		return original, false
	}
	spans := m.matcher.MultiPatternSearch(mapping.normalized, false)
	if len(spans) == 0 {
		return original, false
	}

	origRunes := []rune(original)
	for _, span := range spans {
		normStart := span.Pos
		normEnd := normStart + len(span.Word)
		if normStart < 0 || normEnd > len(mapping.origIdx) {
			continue
		}
		for i := mapping.origIdx[normStart]; i <= mapping.origIdx[normEnd-1]; i++ {
			origRunes[i] = m.censoredChar
		}
	}
	return string(origRunes), true
}

// normalize lowercases, simplifies and drops noise while remembering where each
// kept rune came from.
func normalize(input string) textMapping {
	origRunes := []rune(input)
	mapping := textMapping{
		normalized: make([]rune, 0, len(origRunes)),
		origIdx:    make([]int, 0, len(origRunes)),
	}
	for i, r := range origRunes {
		clean := simplifyRune(r)
		if isNoise(clean) {
			continue
		}
		mapping.normalized = append(mapping.normalized, unicode.ToLower(clean))
		mapping.origIdx = append(mapping.origIdx, i)
	}
	return mapping
}

func normalizeRunes(input []rune) []rune {
	return normalize(string(input)).normalized
}

// simplifyRune maps common leet speak characters back to letters.
func simplifyRune(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3', '€':
		return 'e'
	case '1', '!', '|':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	default:
		return r
	}
}

func isNoise(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r)
}
