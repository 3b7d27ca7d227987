package core

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/kljensen/snowball/english"
	"github.com/kljensen/snowball/russian"
	"github.com/valter-silva-au/schedy/pkg/models"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed lexicons/*.yaml
var lexiconFS embed.FS

// ActionCue maps the inflected forms of one action verb to an intent.
type ActionCue struct {
	Intent models.Intent `yaml:"intent"`
	Lemma  string        `yaml:"lemma"`
	Forms  []string      `yaml:"forms"`
}

// PhraseCue is a multi-token action cue such as "what do i have".
type PhraseCue struct {
	Intent models.Intent `yaml:"intent"`
	Tokens []string      `yaml:"tokens"`
}

// UrgencyMarker maps a token sequence to a task priority.
type UrgencyMarker struct {
	Tokens   []string        `yaml:"tokens"`
	Priority models.Priority `yaml:"priority"`
}

// LemmaEntry is one dictionary row of the morphology table.
type LemmaEntry struct {
	Lemma    string            `yaml:"lemma"`
	POS      string            `yaml:"pos"`
	Features map[string]string `yaml:"features,omitempty"`
}

// DayRange is a clock range given as "HH:MM" strings. A standalone part
// of day needs no preposition or date before it ("утром" but not
// "morning").
type DayRange struct {
	Start      string `yaml:"start"`
	End        string `yaml:"end"`
	Standalone bool   `yaml:"standalone"`
}

// TemporalConfidence holds the confidence assigned to each kind of
// temporal evidence.
type TemporalConfidence struct {
	Explicit  float64 `yaml:"explicit"`
	BareHour  float64 `yaml:"bare_hour"`
	PartOfDay float64 `yaml:"part_of_day"`
}

// TemporalTables is the per-locale vocabulary of the temporal grammar.
type TemporalTables struct {
	Prepositions  []string                    `yaml:"prepositions"`
	RelativeDays  map[string]int              `yaml:"relative_days"`
	Weekdays      map[string]time.Weekday     `yaml:"weekdays"`
	Months        map[string]time.Month       `yaml:"months"`
	PartsOfDay    map[string]DayRange         `yaml:"parts_of_day"`
	FixedTimes    map[string]string           `yaml:"fixed_times"`
	Meridiem      map[string]string           `yaml:"meridiem"`
	HourWords     []string                    `yaml:"hour_words"`
	MinuteWords   []string                    `yaml:"minute_words"`
	Units         map[string]int              `yaml:"units"`
	UnitArticles  []string                    `yaml:"unit_articles"`
	OffsetMarkers []string                    `yaml:"offset_markers"`
	Numbers       map[string]int              `yaml:"numbers"`
	Every         []string                    `yaml:"every"`
	Frequencies   map[string]models.Frequency `yaml:"frequencies"`
	EveryUnits    map[string]models.Frequency `yaml:"every_units"`
	DaySetMarkers []string                    `yaml:"day_set_markers"`
	DaySets       map[string][]time.Weekday   `yaml:"day_sets"`
	Vague         []string                    `yaml:"vague"`
	RangeFrom     []string                    `yaml:"range_from"`
	RangeTo       []string                    `yaml:"range_to"`
	Confidence    TemporalConfidence          `yaml:"confidence"`
}

// EntityTables lists the phrases that introduce a person ("с Иваном") or a
// place ("в офисе"). PersonTitle is a format with one %s used as the title
// when a task names nothing but a person.
type EntityTables struct {
	PersonMarkers   [][]string `yaml:"person_markers"`
	LocationMarkers [][]string `yaml:"location_markers"`
	Places          []string   `yaml:"places"`
	PersonTitle     string     `yaml:"person_title"`
}

// LexiconFile is the on-disk YAML form of a locale lexicon.
type LexiconFile struct {
	Locale        string                `yaml:"locale"`
	Script        string                `yaml:"script"`
	Stemmer       string                `yaml:"stemmer"`
	DefaultTitle  string                `yaml:"default_title"`
	Actions       []ActionCue           `yaml:"actions"`
	Phrases       []PhraseCue           `yaml:"phrases"`
	QuestionWords []string              `yaml:"question_words"`
	Negations     []string              `yaml:"negations"`
	Fillers       []string              `yaml:"fillers"`
	Urgency       []UrgencyMarker       `yaml:"urgency"`
	Lemmas        map[string]LemmaEntry `yaml:"lemmas"`
	Temporal      TemporalTables        `yaml:"temporal"`
	Entities      EntityTables          `yaml:"entities"`
}

type wordSet map[string]struct{}

func newWordSet(words []string, fold func(string) string) wordSet {
	s := make(wordSet, len(words))
	for _, w := range words {
		s[fold(w)] = struct{}{}
	}
	return s
}

func (s wordSet) has(w string) bool {
	_, ok := s[w]
	return ok
}

type actionRef struct {
	intent models.Intent
	lemma  string
}

type stemCue struct {
	form   string
	stem   string
	intent models.Intent
	lemma  string
}

type phrase struct {
	tokens []string
	intent models.Intent
}

type urgencyRule struct {
	tokens   []string
	priority models.Priority
}

// clockRange is a range of minutes since midnight. end < start wraps past
// midnight.
type clockRange struct {
	start, end int
}

// Lexicon is the compiled, read-only vocabulary of one locale. It is built
// once at startup and shared by every pipeline invocation.
type Lexicon struct {
	locale       string
	tag          language.Tag
	script       *unicode.RangeTable
	stemmer      func(string) string
	defaultTitle string

	lemmas        map[string]LemmaEntry
	actionForms   map[string]actionRef
	actionLemmas  map[string]actionRef
	actionStems   []stemCue
	phrases       []phrase
	questionWords wordSet
	negations     wordSet
	fillers       wordSet
	urgency       []urgencyRule

	prepositions  wordSet
	relativeDays  map[string]int
	weekdays      map[string]time.Weekday
	months        map[string]time.Month
	partsOfDay    map[string]clockRange
	standalonePOD wordSet
	fixedTimes    map[string]int
	meridiem      map[string]string
	hourWords     wordSet
	minuteWords   wordSet
	units         map[string]int
	unitArticles  wordSet
	offsetMarkers wordSet
	numbers       map[string]int
	every         wordSet
	frequencies   map[string]models.Frequency
	everyUnits    map[string]models.Frequency
	daySetMarkers wordSet
	daySets       map[string][]time.Weekday
	vague         wordSet
	rangeFrom     wordSet
	rangeTo       wordSet
	confidence    TemporalConfidence

	personMarkers   [][]string
	locationMarkers [][]string
	places          wordSet
	personTitle     string
}

// Locale returns the locale code of the lexicon, e.g. "ru".
func (l *Lexicon) Locale() string { return l.locale }

// DefaultTitle returns the title used when nothing of an utterance remains.
func (l *Lexicon) DefaultTitle() string { return l.defaultTitle }

// fold lowercases s with the lexicon's language rules and folds ё into е.
// A Caser carries state, so a fresh one is built per call.
func (l *Lexicon) fold(s string) string {
	return foldYo(cases.Lower(l.tag).String(s))
}

func (l *Lexicon) stem(word string) string {
	if l.stemmer == nil || strings.IndexFunc(word, unicode.IsDigit) >= 0 {
		return word
	}
	return l.stemmer(word)
}

func foldYo(s string) string {
	return strings.NewReplacer("ё", "е", "Ё", "Е").Replace(s)
}

func stemmerFor(name string) (func(string) string, error) {
	switch name {
	case "russian":
		return func(w string) string { return russian.Stem(w, false) }, nil
	case "english":
		return func(w string) string { return english.Stem(w, false) }, nil
	case "", "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown stemmer %q", name)
	}
}

func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("parsing clock %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// compileLexicon validates a LexiconFile and builds its lookup tables.
func compileLexicon(f LexiconFile) (*Lexicon, error) {
	if f.Locale == "" {
		return nil, fmt.Errorf("lexicon locale must not be empty")
	}
	tag, err := language.Parse(f.Locale)
	if err != nil {
		return nil, fmt.Errorf("parsing lexicon locale %q: %w", f.Locale, err)
	}
	stemmer, err := stemmerFor(f.Stemmer)
	if err != nil {
		return nil, fmt.Errorf("lexicon %s: %w", f.Locale, err)
	}
	script, ok := unicode.Scripts[f.Script]
	if !ok {
		return nil, fmt.Errorf("lexicon %s: unknown script %q", f.Locale, f.Script)
	}
	if len(f.Actions) == 0 {
		return nil, fmt.Errorf("lexicon %s: no action cues", f.Locale)
	}

	l := &Lexicon{
		locale:       f.Locale,
		tag:          tag,
		script:       script,
		stemmer:      stemmer,
		defaultTitle: f.DefaultTitle,
		lemmas:       make(map[string]LemmaEntry, len(f.Lemmas)),
		actionForms:  make(map[string]actionRef),
		actionLemmas: make(map[string]actionRef),
	}
	fold := l.fold

	for word, entry := range f.Lemmas {
		entry.Lemma = fold(entry.Lemma)
		l.lemmas[fold(word)] = entry
	}

	for _, a := range f.Actions {
		if !validIntents[a.Intent] || a.Intent == models.IntentUnknown {
			return nil, fmt.Errorf("lexicon %s: action %q has invalid intent %q", f.Locale, a.Lemma, a.Intent)
		}
		ref := actionRef{intent: a.Intent, lemma: fold(a.Lemma)}
		l.actionLemmas[ref.lemma] = ref
		for _, form := range append([]string{a.Lemma}, a.Forms...) {
			form = fold(form)
			l.actionForms[form] = ref
			l.actionStems = append(l.actionStems, stemCue{form: form, stem: l.stem(form), intent: a.Intent, lemma: ref.lemma})
		}
	}
	sort.Slice(l.actionStems, func(i, j int) bool { return l.actionStems[i].form < l.actionStems[j].form })

	for _, p := range f.Phrases {
		if len(p.Tokens) == 0 || !validIntents[p.Intent] {
			return nil, fmt.Errorf("lexicon %s: invalid phrase cue %v", f.Locale, p.Tokens)
		}
		l.phrases = append(l.phrases, phrase{tokens: foldAll(p.Tokens, fold), intent: p.Intent})
	}
	sort.SliceStable(l.phrases, func(i, j int) bool { return len(l.phrases[i].tokens) > len(l.phrases[j].tokens) })

	for _, u := range f.Urgency {
		if len(u.Tokens) == 0 || !validPriorities[u.Priority] {
			return nil, fmt.Errorf("lexicon %s: invalid urgency marker %v", f.Locale, u.Tokens)
		}
		l.urgency = append(l.urgency, urgencyRule{tokens: foldAll(u.Tokens, fold), priority: u.Priority})
	}
	// Longest first so "не срочно" wins over "срочно".
	sort.SliceStable(l.urgency, func(i, j int) bool { return len(l.urgency[i].tokens) > len(l.urgency[j].tokens) })

	l.questionWords = newWordSet(f.QuestionWords, fold)
	l.negations = newWordSet(f.Negations, fold)
	l.fillers = newWordSet(f.Fillers, fold)

	if err := l.compileTemporal(f.Temporal); err != nil {
		return nil, fmt.Errorf("lexicon %s: %w", f.Locale, err)
	}
	if err := l.compileEntities(f.Entities); err != nil {
		return nil, fmt.Errorf("lexicon %s: %w", f.Locale, err)
	}
	return l, nil
}

func (l *Lexicon) compileEntities(e EntityTables) error {
	var err error
	if l.personMarkers, err = compileMarkers(e.PersonMarkers, l.fold); err != nil {
		return fmt.Errorf("person markers: %w", err)
	}
	if l.locationMarkers, err = compileMarkers(e.LocationMarkers, l.fold); err != nil {
		return fmt.Errorf("location markers: %w", err)
	}
	if e.PersonTitle != "" && strings.Count(e.PersonTitle, "%s") != 1 {
		return fmt.Errorf("person title %q must contain exactly one %%s", e.PersonTitle)
	}
	l.places = newWordSet(e.Places, l.fold)
	l.personTitle = e.PersonTitle
	return nil
}

// compileMarkers folds marker phrases and orders them longest first.
func compileMarkers(markers [][]string, fold func(string) string) ([][]string, error) {
	out := make([][]string, 0, len(markers))
	for _, m := range markers {
		if len(m) == 0 {
			return nil, fmt.Errorf("empty marker")
		}
		out = append(out, foldAll(m, fold))
	}
	sort.SliceStable(out, func(i, j int) bool { return len(out[i]) > len(out[j]) })
	return out, nil
}

func (l *Lexicon) compileTemporal(t TemporalTables) error {
	fold := l.fold
	l.prepositions = newWordSet(t.Prepositions, fold)
	l.hourWords = newWordSet(t.HourWords, fold)
	l.minuteWords = newWordSet(t.MinuteWords, fold)
	l.unitArticles = newWordSet(t.UnitArticles, fold)
	l.offsetMarkers = newWordSet(t.OffsetMarkers, fold)
	l.every = newWordSet(t.Every, fold)
	l.daySetMarkers = newWordSet(t.DaySetMarkers, fold)
	l.vague = newWordSet(t.Vague, fold)
	l.rangeFrom = newWordSet(t.RangeFrom, fold)
	l.rangeTo = newWordSet(t.RangeTo, fold)
	l.relativeDays = foldKeys(t.RelativeDays, fold)
	l.weekdays = foldKeys(t.Weekdays, fold)
	l.months = foldKeys(t.Months, fold)
	l.meridiem = foldKeys(t.Meridiem, fold)
	l.units = foldKeys(t.Units, fold)
	l.numbers = foldKeys(t.Numbers, fold)
	l.frequencies = foldKeys(t.Frequencies, fold)
	l.everyUnits = foldKeys(t.EveryUnits, fold)
	l.daySets = foldKeys(t.DaySets, fold)

	for word, m := range l.meridiem {
		if m != "am" && m != "pm" && m != "night" {
			return fmt.Errorf("meridiem %q: unknown kind %q", word, m)
		}
	}

	l.partsOfDay = make(map[string]clockRange, len(t.PartsOfDay))
	l.standalonePOD = make(wordSet)
	for word, r := range t.PartsOfDay {
		start, err := parseClock(r.Start)
		if err != nil {
			return fmt.Errorf("part of day %q: %w", word, err)
		}
		end, err := parseClock(r.End)
		if err != nil {
			return fmt.Errorf("part of day %q: %w", word, err)
		}
		l.partsOfDay[fold(word)] = clockRange{start: start, end: end}
		if r.Standalone {
			l.standalonePOD[fold(word)] = struct{}{}
		}
	}

	l.fixedTimes = make(map[string]int, len(t.FixedTimes))
	for word, c := range t.FixedTimes {
		m, err := parseClock(c)
		if err != nil {
			return fmt.Errorf("fixed time %q: %w", word, err)
		}
		l.fixedTimes[fold(word)] = m
	}

	l.confidence = t.Confidence
	if l.confidence == (TemporalConfidence{}) {
		l.confidence = TemporalConfidence{Explicit: 1.0, BareHour: 0.9, PartOfDay: 0.8}
	}
	return nil
}

func foldAll(words []string, fold func(string) string) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = fold(w)
	}
	return out
}

func foldKeys[V any](m map[string]V, fold func(string) string) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[fold(k)] = v
	}
	return out
}

var validIntents = map[models.Intent]bool{
	models.IntentCreate:     true,
	models.IntentComplete:   true,
	models.IntentDelete:     true,
	models.IntentReschedule: true,
	models.IntentQuery:      true,
	models.IntentUnknown:    true,
}

var validPriorities = map[models.Priority]bool{
	models.PriorityLow:    true,
	models.PriorityMedium: true,
	models.PriorityHigh:   true,
}

// LexiconSet holds the compiled lexicons of every supported locale.
type LexiconSet struct {
	byLocale map[string]*Lexicon
	locales  []string
}

// LoadLexiconSet compiles the embedded lexicons and then applies overrides
// from dir, where a file named <locale>.yaml replaces the embedded lexicon
// of that locale or adds a new one. An empty dir means embedded only.
func LoadLexiconSet(dir string) (*LexiconSet, error) {
	files := make(map[string][]byte)

	entries, err := lexiconFS.ReadDir("lexicons")
	if err != nil {
		return nil, fmt.Errorf("reading embedded lexicons: %w", err)
	}
	for _, e := range entries {
		data, err := lexiconFS.ReadFile("lexicons/" + e.Name())
		if err != nil {
			return nil, fmt.Errorf("reading embedded lexicon %s: %w", e.Name(), err)
		}
		files[strings.TrimSuffix(e.Name(), ".yaml")] = data
	}

	if dir != "" {
		overrides, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
		if err != nil {
			return nil, fmt.Errorf("listing lexicon overrides: %w", err)
		}
		for _, path := range overrides {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("reading lexicon override %s: %w", path, err)
			}
			files[strings.TrimSuffix(filepath.Base(path), ".yaml")] = data
		}
	}

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	set := &LexiconSet{byLocale: make(map[string]*Lexicon, len(files))}
	source := make(map[string]string, len(files))
	for _, name := range names {
		data := files[name]
		var f LexiconFile
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parsing lexicon %s: %w", name, err)
		}
		lex, err := compileLexicon(f)
		if err != nil {
			return nil, fmt.Errorf("compiling lexicon %s: %w", name, err)
		}
		if prev, ok := source[lex.locale]; ok {
			return nil, fmt.Errorf("lexicons %s and %s both declare locale %q", prev, name, lex.locale)
		}
		source[lex.locale] = name
		set.byLocale[lex.locale] = lex
		set.locales = append(set.locales, lex.locale)
	}
	sort.Strings(set.locales)
	return set, nil
}

// Locales returns the supported locale codes in sorted order.
func (s *LexiconSet) Locales() []string {
	return append([]string(nil), s.locales...)
}

// Lookup returns the lexicon for a locale tag such as "ru" or "ru-RU".
func (s *LexiconSet) Lookup(locale string) (*Lexicon, bool) {
	if locale == "" {
		return nil, false
	}
	if lex, ok := s.byLocale[strings.ToLower(locale)]; ok {
		return lex, true
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, false
	}
	base, _ := tag.Base()
	lex, ok := s.byLocale[base.String()]
	return lex, ok
}

// Detect picks the locale whose script covers most letters of text. It
// returns "" when no lexicon's script matches.
func (s *LexiconSet) Detect(text string) string {
	best, bestCount := "", 0
	for _, loc := range s.locales {
		lex := s.byLocale[loc]
		n := 0
		for _, r := range text {
			if unicode.Is(lex.script, r) {
				n++
			}
		}
		if n > bestCount {
			best, bestCount = loc, n
		}
	}
	return best
}
