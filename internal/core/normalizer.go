package core

import (
	"maps"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/valter-silva-au/schedy/pkg/models"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Token is one normalized word of an utterance.
type Token struct {
	Index    int
	Surface  string // as written, enclosing punctuation stripped
	Lower    string // case-folded surface
	Text     string // Lower with ё folded into е; the lookup key
	Lemma    string
	Stem     string
	POS      string
	Features map[string]string
	Action   bool
	Temporal bool
}

// Analysis is the Normalizer's view of one utterance.
type Analysis struct {
	Source   string
	Clean    string
	Locale   string
	Tokens   []Token
	Fallback bool
	Question bool
	Warnings []models.Reason

	lex *Lexicon
}

// Lexicon returns the lexicon the tokens were tagged with, or nil for a
// fallback analysis.
func (a Analysis) Lexicon() *Lexicon { return a.lex }

// Normalizer turns raw utterance text into tagged tokens.
type Normalizer interface {
	Normalize(text, locale string) Analysis
}

type lexiconNormalizer struct {
	lexicons *LexiconSet
	maxRunes int
}

// NewNormalizer creates a Normalizer backed by the given lexicons. Text
// longer than maxRunes is truncated.
func NewNormalizer(lexicons *LexiconSet, maxRunes int) Normalizer {
	return &lexiconNormalizer{lexicons: lexicons, maxRunes: maxRunes}
}

var repeatedPunct = regexp.MustCompile(`([.!?])[.!?]+`)

// cleanText collapses whitespace and runs of sentence punctuation and
// truncates the result to maxRunes.
func cleanText(text string, maxRunes int) (string, bool) {
	clean := strings.Join(strings.Fields(norm.NFC.String(text)), " ")
	clean = repeatedPunct.ReplaceAllString(clean, "$1")
	if maxRunes > 0 && utf8.RuneCountInString(clean) > maxRunes {
		return string([]rune(clean)[:maxRunes]), true
	}
	return clean, false
}

func isSeparator(r rune) bool {
	return unicode.IsSpace(r) || strings.ContainsRune(`,;!?«»"()[]{}…`, r)
}

func isEnclosingPunct(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSymbol(r)
}

// segment splits text into words, keeping intra-word ':' '-' and '''.
func segment(text string) []string {
	var words []string
	for _, f := range strings.FieldsFunc(text, isSeparator) {
		if w := strings.TrimFunc(f, isEnclosingPunct); w != "" {
			words = append(words, w)
		}
	}
	return words
}

func (n *lexiconNormalizer) Normalize(text, locale string) Analysis {
	clean, truncated := cleanText(text, n.maxRunes)
	a := Analysis{
		Source:   text,
		Clean:    clean,
		Question: strings.HasSuffix(clean, "?"),
	}
	if truncated {
		a.Warnings = append(a.Warnings, models.ReasonTextTruncated)
	}

	if locale == "" {
		locale = n.lexicons.Detect(clean)
	}
	lex, ok := n.lexicons.Lookup(locale)
	if !ok {
		return fallbackAnalysis(a, locale)
	}

	a.Locale = lex.locale
	a.lex = lex
	lower := cases.Lower(lex.tag)
	for i, w := range segment(clean) {
		a.Tokens = append(a.Tokens, lex.tagToken(i, w, lower.String(w)))
	}
	if len(a.Tokens) > 0 && lex.questionWords.has(a.Tokens[0].Text) {
		a.Question = true
	}
	return a
}

// fallbackAnalysis segments on whitespace and punctuation only. It is used
// when no lexicon covers the locale or script.
func fallbackAnalysis(a Analysis, locale string) Analysis {
	if locale == "" {
		locale = language.Und.String()
	}
	a.Locale = locale
	a.Fallback = true
	a.Warnings = append(a.Warnings, models.ReasonParseFailure)
	lower := cases.Lower(language.Und)
	for i, w := range segment(a.Clean) {
		l := lower.String(w)
		text := foldYo(l)
		a.Tokens = append(a.Tokens, Token{Index: i, Surface: w, Lower: l, Text: text, Lemma: text, Stem: text})
	}
	return a
}

// tagToken builds a fully tagged token from one segmented word.
func (l *Lexicon) tagToken(index int, surface, lower string) Token {
	tok := Token{Index: index, Surface: surface, Lower: lower, Text: foldYo(lower)}
	tok.Lemma = tok.Text

	if entry, ok := l.lemmas[tok.Text]; ok {
		tok.Lemma = entry.Lemma
		tok.POS = entry.POS
		tok.Features = maps.Clone(entry.Features)
	}
	if ref, ok := l.actionForms[tok.Text]; ok {
		tok.Lemma = ref.lemma
		tok.Action = true
		if tok.POS == "" {
			tok.POS = "VERB"
		}
	} else if _, ok := l.actionLemmas[tok.Lemma]; ok {
		tok.Action = true
	}
	if tok.POS == "" {
		if _, err := strconv.Atoi(tok.Text); err == nil {
			tok.POS = "NUM"
		}
	}
	tok.Stem = l.stem(tok.Text)
	tok.Temporal = l.isTemporalWord(tok.Text)
	return tok
}

func (l *Lexicon) isTemporalWord(w string) bool {
	if clockToken.MatchString(w) || rangeToken.MatchString(w) {
		return true
	}
	if _, ok := l.relativeDays[w]; ok {
		return true
	}
	if _, ok := l.weekdays[w]; ok {
		return true
	}
	if _, ok := l.months[w]; ok {
		return true
	}
	if _, ok := l.partsOfDay[w]; ok {
		return true
	}
	if _, ok := l.fixedTimes[w]; ok {
		return true
	}
	if _, ok := l.meridiem[w]; ok {
		return true
	}
	if _, ok := l.units[w]; ok {
		return true
	}
	if _, ok := l.frequencies[w]; ok {
		return true
	}
	if _, ok := l.daySets[w]; ok {
		return true
	}
	return l.vague.has(w) || l.every.has(w) || l.hourWords.has(w)
}
