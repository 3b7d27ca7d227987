package core

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	maxNameWords  = 2
	maxPlaceWords = 3
)

// Entities are the people and the place named in an utterance. Spans
// include the marker words, so "с Иваном" covers two tokens.
type Entities struct {
	People       []string
	PersonSpans  [][2]int
	Location     string
	LocationSpan [2]int
}

func (e Entities) coversPerson(i int) bool {
	for _, s := range e.PersonSpans {
		if i >= s[0] && i < s[1] {
			return true
		}
	}
	return false
}

func (e Entities) coversLocation(i int) bool {
	return e.Location != "" && i >= e.LocationSpan[0] && i < e.LocationSpan[1]
}

// ExtractEntities reads people and the first place from marker phrases
// such as "с Иваном" or "в офисе". A name is a run of capitalised words
// that does not open the utterance; a place is a listed place word or a
// capitalised run. Tokens claimed by the action cue, the time phrase or an
// urgency marker are never part of an entity.
func ExtractEntities(s Signals) Entities {
	var e Entities
	lex := s.Analysis.lex
	if lex == nil {
		return e
	}
	toks := s.Analysis.Tokens
	free := func(i int) bool { return i < len(toks) && !s.claimed(i) }

	for i := 0; i < len(toks); {
		if end, ok := markerAt(toks, i, lex.personMarkers, free); ok {
			if n := capitalisedRun(toks, end, maxNameWords, free); n > 0 {
				e.People = append(e.People, joinSurfaces(toks[end:end+n]))
				e.PersonSpans = append(e.PersonSpans, [2]int{i, end + n})
				i = end + n
				continue
			}
		}
		if e.Location == "" {
			if end, ok := markerAt(toks, i, lex.locationMarkers, free); ok {
				var n int
				if free(end) && lex.places.has(toks[end].Text) {
					n = 1
				} else {
					n = capitalisedRun(toks, end, maxPlaceWords, free)
				}
				if n > 0 {
					e.Location = joinSurfaces(toks[end : end+n])
					e.LocationSpan = [2]int{i, end + n}
					i = end + n
					continue
				}
			}
		}
		i++
	}
	return e
}

// markerAt matches the longest free marker phrase starting at token i and
// returns the index after it.
func markerAt(toks []Token, i int, markers [][]string, free func(int) bool) (int, bool) {
	for _, m := range markers {
		if !matchWords(toks, i, m) {
			continue
		}
		ok := true
		for k := i; k < i+len(m); k++ {
			if !free(k) {
				ok = false
				break
			}
		}
		if ok {
			return i + len(m), true
		}
	}
	return 0, false
}

func capitalisedRun(toks []Token, i, limit int, free func(int) bool) int {
	n := 0
	for n < limit && free(i+n) && capitalised(toks[i+n]) {
		n++
	}
	return n
}

// capitalised reports whether a token starts with an upper-case letter
// somewhere other than the start of the utterance.
func capitalised(t Token) bool {
	if t.Index == 0 {
		return false
	}
	r, _ := utf8.DecodeRuneInString(t.Surface)
	return unicode.IsUpper(r)
}

func joinSurfaces(toks []Token) string {
	words := make([]string, len(toks))
	for i, t := range toks {
		words[i] = t.Surface
	}
	return strings.Join(words, " ")
}
