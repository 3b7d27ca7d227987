package core

import (
	"sort"
	"strings"

	"github.com/valter-silva-au/schedy/pkg/models"
)

// ReferenceMatcher ranks known tasks by how well their titles and aliases
// match the residual words of an utterance.
type ReferenceMatcher interface {
	Match(residual []Token, known []models.KnownTask) []models.TaskCandidate
}

type fuzzyMatcher struct {
	normalizer     Normalizer
	topK           int
	minScore       float64
	residualWeight float64
	softFloor      float64
}

// NewReferenceMatcher creates a matcher that normalizes task names with
// the given Normalizer, so inflected forms compare by lemma and stem.
func NewReferenceMatcher(normalizer Normalizer, cfg models.PipelineConfig) ReferenceMatcher {
	return &fuzzyMatcher{
		normalizer:     normalizer,
		topK:           cfg.TopK,
		minScore:       cfg.MinCandidateScore,
		residualWeight: cfg.ResidualWeight,
		softFloor:      cfg.SoftTokenFloor,
	}
}

func (m *fuzzyMatcher) Match(residual []Token, known []models.KnownTask) []models.TaskCandidate {
	if len(residual) == 0 || len(known) == 0 {
		return nil
	}

	var out []models.TaskCandidate
	for _, task := range known {
		best := 0.0
		for _, name := range append([]string{task.Title}, task.Aliases...) {
			if s := m.score(residual, m.nameTokens(name)); s > best {
				best = s
			}
		}
		best = round4(best)
		if best < m.minScore || best == 0 {
			continue
		}
		out = append(out, models.TaskCandidate{TaskID: task.ID, Title: task.Title, Score: best})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].TaskID < out[j].TaskID
	})
	if len(out) > m.topK {
		out = out[:m.topK]
	}
	return out
}

// nameTokens normalizes a task title or alias in whatever locale its
// script suggests and drops filler words.
func (m *fuzzyMatcher) nameTokens(name string) []Token {
	a := m.normalizer.Normalize(name, "")
	var out []Token
	for _, t := range a.Tokens {
		if a.lex != nil && a.lex.fillers.has(t.Text) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// score blends how much of the residual the name explains with how much
// of the name the residual mentions, and never drops below the
// whole-string similarity when that clears the soft floor.
func (m *fuzzyMatcher) score(residual, name []Token) float64 {
	if len(name) == 0 {
		return 0
	}
	w := m.residualWeight
	s := w*m.coverage(residual, name) + (1-w)*m.coverage(name, residual)
	if whole := similarity(joinText(residual), joinText(name)); whole >= m.softFloor && whole > s {
		s = whole
	}
	return clamp01(s)
}

func (m *fuzzyMatcher) coverage(from, to []Token) float64 {
	total := 0.0
	for _, a := range from {
		best := 0.0
		for _, b := range to {
			if s := m.tokenSimilarity(a, b); s > best {
				best = s
			}
		}
		total += best
	}
	return total / float64(len(from))
}

func (m *fuzzyMatcher) tokenSimilarity(a, b Token) float64 {
	if a.Lemma == b.Lemma || a.Stem == b.Stem {
		return 1
	}
	s := max(similarity(a.Stem, b.Stem), similarity(a.Text, b.Text))
	if s < m.softFloor {
		return 0
	}
	return s
}

func joinText(toks []Token) string {
	words := make([]string, len(toks))
	for i, t := range toks {
		words[i] = t.Text
	}
	return strings.Join(words, " ")
}
