package core

import (
	"sort"
	"strconv"
	"unicode/utf8"

	"github.com/valter-silva-au/schedy/pkg/models"
)

// IntentResult is the classifier's label plus the token span of the cue
// that produced it.
type IntentResult struct {
	models.IntentLabel
	CueStart int
	CueEnd   int
	Conflict bool
	Fuzzy    bool
}

// HasCue reports whether a lexical cue was found.
func (r IntentResult) HasCue() bool { return r.CueEnd > r.CueStart }

// Covers reports whether token i belongs to the action cue.
func (r IntentResult) Covers(i int) bool { return i >= r.CueStart && i < r.CueEnd }

// IntentClassifier maps an analysis to an intent label.
type IntentClassifier interface {
	Classify(a Analysis) IntentResult
}

type lexiconClassifier struct {
	conflictPenalty float64
	fuzzyFloor      float64
	stemConfidence  float64
	questionConf    float64
}

// NewIntentClassifier creates a classifier that scores exact lexicon hits
// at 1.0 and fuzzy hits by their similarity.
func NewIntentClassifier(cfg models.PipelineConfig) IntentClassifier {
	return &lexiconClassifier{
		conflictPenalty: cfg.ConflictPenalty,
		fuzzyFloor:      cfg.FuzzyFloor,
		stemConfidence:  cfg.StemMatchConfidence,
		questionConf:    cfg.QuestionConfidence,
	}
}

type cue struct {
	start, end int
	intent     models.Intent
	score      float64
}

// minFuzzyRunes keeps short function words out of fuzzy matching.
const minFuzzyRunes = 4

func (c *lexiconClassifier) Classify(a Analysis) IntentResult {
	res := IntentResult{
		IntentLabel: models.IntentLabel{Intent: models.IntentUnknown},
		CueStart:    -1,
		CueEnd:      -1,
	}
	if a.lex == nil {
		return res
	}

	cues := c.exactCues(a)
	fuzzy := false
	if len(cues) == 0 {
		cues = c.fuzzyCues(a)
		fuzzy = len(cues) > 0
	}
	if len(cues) == 0 {
		if a.Question {
			res.Intent = models.IntentQuery
			res.Confidence = c.questionConf
		}
		return res
	}

	first := cues[0]
	res.Intent = first.intent
	res.Confidence = first.score
	res.CueStart, res.CueEnd = first.start, first.end
	res.Fuzzy = fuzzy
	for _, other := range cues[1:] {
		if other.intent != first.intent {
			res.Conflict = true
			res.Confidence = clamp01(res.Confidence - c.conflictPenalty)
			break
		}
	}
	res.Confidence = round4(res.Confidence)
	return res
}

func (c *lexiconClassifier) negated(a Analysis, i int) bool {
	return i > 0 && a.lex.negations.has(a.Tokens[i-1].Text)
}

// exactCues finds phrase cues and tokens whose form or lemma is an action
// in the lexicon, in token order.
func (c *lexiconClassifier) exactCues(a Analysis) []cue {
	var cues []cue
	toks := a.Tokens
	for i := 0; i < len(toks); {
		if p, ok := matchPhrase(a.lex.phrases, toks, i); ok {
			if !c.negated(a, i) {
				cues = append(cues, cue{start: i, end: i + len(p.tokens), intent: p.intent, score: 1})
			}
			i += len(p.tokens)
			continue
		}
		if toks[i].Action && !c.negated(a, i) {
			ref, ok := a.lex.actionForms[toks[i].Text]
			if !ok {
				ref = a.lex.actionLemmas[toks[i].Lemma]
			}
			cues = append(cues, cue{start: i, end: i + 1, intent: ref.intent, score: 1})
		}
		i++
	}
	return cues
}

func matchPhrase(phrases []phrase, toks []Token, i int) (phrase, bool) {
	for _, p := range phrases {
		if i+len(p.tokens) > len(toks) {
			continue
		}
		ok := true
		for k, w := range p.tokens {
			if toks[i+k].Text != w {
				ok = false
				break
			}
		}
		if ok {
			return p, true
		}
	}
	return phrase{}, false
}

// fuzzyCues scores tokens against every action form: a shared stem counts
// at least stemConfidence, otherwise the edit similarity must clear the
// fuzzy floor. Words the morphology table already knows are never cues.
func (c *lexiconClassifier) fuzzyCues(a Analysis) []cue {
	var cues []cue
	for i, tok := range a.Tokens {
		if tok.Temporal || tok.POS != "" || a.lex.fillers.has(tok.Text) ||
			utf8.RuneCountInString(tok.Text) < minFuzzyRunes || c.negated(a, i) {
			continue
		}
		if _, err := strconv.Atoi(tok.Text); err == nil {
			continue
		}
		best := cue{score: 0}
		for _, sc := range a.lex.actionStems {
			score := similarity(tok.Text, sc.form)
			if sc.stem == tok.Stem {
				score = max(score, c.stemConfidence)
			} else if score < c.fuzzyFloor {
				continue
			}
			if score > best.score {
				best = cue{start: i, end: i + 1, intent: sc.intent, score: score}
			}
		}
		if best.score > 0 {
			cues = append(cues, best)
		}
	}
	sort.SliceStable(cues, func(i, j int) bool { return cues[i].start < cues[j].start })
	return cues
}
