package plagiarism

import (
	"context"
	"math"
	"math/rand"
	"regexp"
	"sort"
	"strings"

	"github.com/Patrickjoshanedez/CMS-V2-sub000/models"
)

// Result is the outcome contract every comparison strategy must honor.
type Result struct {
	OriginalityScore int
	MatchedSources   []models.MatchedSource
}

// Strategy identifies which comparison path produced a result. The selection
// is made once per call from the available inputs, never inferred from a
// caught error.
type Strategy int

const (
	StrategyProvider Strategy = iota
	StrategyCorpus
	StrategyMock
)

func (s Strategy) String() string {
	switch s {
	case StrategyProvider:
		return "provider"
	case StrategyCorpus:
		return "corpus"
	default:
		return "mock"
	}
}

// Provider is the adapter point for an external detection service. None is
// integrated; StubProvider reports unconfigured so the engine falls through
// to the internal corpus comparison.
type Provider interface {
	Name() string
	Configured() bool
	Check(ctx context.Context, text string) (*Result, error)
}

// StubProvider is the permanent placeholder adapter.
type StubProvider struct{}

func (StubProvider) Name() string     { return "stub" }
func (StubProvider) Configured() bool { return false }
func (StubProvider) Check(ctx context.Context, text string) (*Result, error) {
	return nil, nil
}

// Engine computes lexical n-gram overlap scores. All comparison methods are
// deterministic and free of I/O; the mock path is the only source of
// randomness.
type Engine struct {
	shingleSize int
	noiseFloor  int // match percentages at or below this are dropped
	maxMatches  int
	provider    Provider
}

func NewEngine(shingleSize, noiseFloor, maxMatches int, provider Provider) *Engine {
	if shingleSize <= 0 {
		shingleSize = 3
	}
	if maxMatches <= 0 {
		maxMatches = 10
	}
	return &Engine{
		shingleSize: shingleSize,
		noiseFloor:  noiseFloor,
		maxMatches:  maxMatches,
		provider:    provider,
	}
}

var nonWord = regexp.MustCompile(`\W+`)

// Tokenize lowercases the text, collapses every run of non-word characters to
// a single space, splits on whitespace and drops tokens shorter than 3
// characters.
func Tokenize(text string) []string {
	normalized := nonWord.ReplaceAllString(strings.ToLower(text), " ")
	fields := strings.Fields(normalized)
	tokens := make([]string, 0, len(fields))
	for _, tok := range fields {
		if len(tok) >= 3 {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

// BuildShingles returns the set of contiguous n-token windows, each joined by
// a single space. An input shorter than n tokens yields an empty set.
func BuildShingles(tokens []string, n int) map[string]struct{} {
	shingles := make(map[string]struct{})
	if n <= 0 || len(tokens) < n {
		return shingles
	}
	for i := 0; i+n <= len(tokens); i++ {
		shingles[strings.Join(tokens[i:i+n], " ")] = struct{}{}
	}
	return shingles
}

// JaccardSimilarity is intersection over union of two shingle sets. Two empty
// sets compare as identical (1.0); exactly one empty set compares as fully
// disjoint (0.0).
func JaccardSimilarity(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	intersection := 0
	for s := range a {
		if _, ok := b[s]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

// CompareAgainstCorpus scores the text against every corpus document. An
// empty corpus means there is nothing to bound the text against, which is
// reported as full originality.
//
// The final score blends the single worst overlap with the mean of all
// recorded matches: blended = 0.7*maxSim + 0.3*avgSimFrac, and
// originality = round((1-blended)*100) clamped to [0,100].
func (e *Engine) CompareAgainstCorpus(text string, corpus []models.CorpusDocument) *Result {
	if len(corpus) == 0 {
		return &Result{OriginalityScore: 100, MatchedSources: []models.MatchedSource{}}
	}

	submitted := BuildShingles(Tokenize(text), e.shingleSize)

	var matches []models.MatchedSource
	maxSim := 0.0
	for _, doc := range corpus {
		if strings.TrimSpace(doc.Text) == "" {
			continue
		}
		sim := JaccardSimilarity(submitted, BuildShingles(Tokenize(doc.Text), e.shingleSize))
		if sim > maxSim {
			maxSim = sim
		}
		pct := int(math.Round(sim * 100))
		if pct > e.noiseFloor {
			matches = append(matches, models.MatchedSource{
				SourceID:        doc.ID,
				Title:           doc.Title,
				Chapter:         doc.Chapter,
				MatchPercentage: pct,
			})
		}
	}

	avgSimFrac := 0.0
	if len(matches) > 0 {
		sum := 0
		for _, m := range matches {
			sum += m.MatchPercentage
		}
		avgSimFrac = float64(sum) / float64(len(matches)) / 100.0
	}

	blended := 0.7*maxSim + 0.3*avgSimFrac
	score := int(math.Round((1 - blended) * 100))
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].MatchPercentage > matches[j].MatchPercentage
	})
	if len(matches) > e.maxMatches {
		matches = matches[:e.maxMatches]
	}
	if matches == nil {
		matches = []models.MatchedSource{}
	}

	return &Result{OriginalityScore: score, MatchedSources: matches}
}

// MockResult returns a uniformly random score in [70,100] with no matches.
// Used only when neither a provider nor a corpus is available; callers must
// treat it as non-authoritative.
func (e *Engine) MockResult() *Result {
	return &Result{
		OriginalityScore: 70 + rand.Intn(31),
		MatchedSources:   []models.MatchedSource{},
	}
}

// ChooseStrategy picks the comparison path once per call: a configured
// external provider wins, then the internal corpus, then the mock.
func (e *Engine) ChooseStrategy(corpus []models.CorpusDocument) Strategy {
	if e.provider != nil && e.provider.Configured() {
		return StrategyProvider
	}
	if len(corpus) > 0 {
		return StrategyCorpus
	}
	return StrategyMock
}

// CheckOriginality runs the selected strategy. A provider failure falls back
// to the corpus comparison so a misbehaving external service can never block
// a check.
func (e *Engine) CheckOriginality(ctx context.Context, text string, corpus []models.CorpusDocument) (*Result, Strategy) {
	strategy := e.ChooseStrategy(corpus)
	if strategy == StrategyProvider {
		if res, err := e.provider.Check(ctx, text); err == nil && res != nil {
			return res, StrategyProvider
		}
		if len(corpus) > 0 {
			strategy = StrategyCorpus
		} else {
			strategy = StrategyMock
		}
	}
	if strategy == StrategyCorpus {
		return e.CompareAgainstCorpus(text, corpus), StrategyCorpus
	}
	return e.MockResult(), StrategyMock
}
