package classifier

import (
	"errors"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/sells-group/analysis-core/internal/model"
)

// ErrInsufficientData is returned when both the column list and the question
// text are empty. It is the only hard failure Classify can produce.
var ErrInsufficientData = errors.New("classifier: no columns and no question text")

// Config controls classification behavior.
type Config struct {
	// ConfidenceThreshold is the minimum winning score required to return a
	// specific industry. Below it, classification degrades to "general" with
	// the computed score. Default: 0.7.
	ConfidenceThreshold float64

	// ReinforceAlpha is the EMA smoothing factor for weight reinforcement.
	// Default: 0.2.
	ReinforceAlpha float64

	// ReinforceRate caps reinforcement applications per second. Default: 10.
	ReinforceRate float64
}

// DefaultConfig returns production classification settings.
func DefaultConfig() Config {
	return Config{
		ConfidenceThreshold: 0.7,
		ReinforceAlpha:      0.2,
		ReinforceRate:       10,
	}
}

func (c Config) withDefaults() Config {
	if c.ConfidenceThreshold <= 0 {
		c.ConfidenceThreshold = 0.7
	}
	if c.ReinforceAlpha <= 0 || c.ReinforceAlpha > 1 {
		c.ReinforceAlpha = 0.2
	}
	if c.ReinforceRate <= 0 {
		c.ReinforceRate = 10
	}
	return c
}

// Classifier scores dataset/question pairs against the weighted indicator
// registry. The registry structure is immutable after construction; the only
// mutable state is the indicator weight table, written exclusively by the
// reinforcement goroutine and read under lock by Classify.
type Classifier struct {
	cfg      Config
	registry Registry

	mu      sync.RWMutex
	weights map[string]map[string]float64 // industry -> indicator token -> weight

	reinforceCh chan reinforcement
	closeOnce   sync.Once
	done        chan struct{}
}

// New builds a Classifier over the given registry. A nil registry uses the
// compiled-in defaults.
func New(reg Registry, cfg Config) *Classifier {
	if reg == nil {
		reg = DefaultRegistry()
	}
	cfg = cfg.withDefaults()

	weights := make(map[string]map[string]float64, len(reg))
	for industry, profile := range reg {
		w := make(map[string]float64, len(profile.Indicators))
		for _, ind := range profile.Indicators {
			w[ind.Token] = ind.Weight
		}
		weights[industry] = w
	}

	c := &Classifier{
		cfg:         cfg,
		registry:    reg,
		weights:     weights,
		reinforceCh: make(chan reinforcement, reinforceQueueDepth),
		done:        make(chan struct{}),
	}
	go c.reinforceLoop()
	return c
}

// Classify scores the request against every industry and returns the winner,
// or "general" when no industry clears the confidence threshold. It fails
// only when both inputs are empty.
func (c *Classifier) Classify(columns []string, questionText string) (model.Classification, error) {
	if len(columns) == 0 && strings.TrimSpace(questionText) == "" {
		return model.Classification{}, ErrInsufficientData
	}

	tokens := Tokenize(append(append([]string{}, columns...), questionText)...)

	type scored struct {
		industry string
		score    float64
		matched  []string
	}

	// Deterministic iteration: sorted industry names make lexicographic
	// tie-breaking reproducible across runs.
	names := make([]string, 0, len(c.registry))
	for name := range c.registry {
		names = append(names, name)
	}
	sort.Strings(names)

	c.mu.RLock()
	results := make([]scored, 0, len(names))
	for _, industry := range names {
		weights := c.weights[industry]

		var total, matched float64
		var matchedTokens []string
		for token, weight := range weights {
			total += weight
			if tokens[token] {
				matched += weight
				matchedTokens = append(matchedTokens, token)
			}
		}

		score := 0.0
		if total > 0 {
			score = matched / total
		}
		if score > 1 {
			score = 1
		}
		sort.Strings(matchedTokens)
		results = append(results, scored{industry: industry, score: score, matched: matchedTokens})
	}
	c.mu.RUnlock()

	if len(results) == 0 {
		// An empty registry can score nothing; fall through to the
		// general bucket rather than fail the job.
		return model.Classification{
			Industry:          model.IndustryGeneral,
			SuggestedAnalyses: append([]string{}, generalAnalyses...),
		}, nil
	}

	best := results[0]
	for _, r := range results[1:] {
		if r.score > best.score {
			best = r
			continue
		}
		if r.score == best.score {
			// Tie-break: more matched indicators, then lexicographic name.
			// Results are already in lexicographic order, so only a strictly
			// greater match count displaces the current best.
			if len(r.matched) > len(best.matched) {
				best = r
			}
		}
	}

	cls := model.Classification{
		Industry:          best.industry,
		Confidence:        best.score,
		MatchedIndicators: best.matched,
	}

	if best.score < c.cfg.ConfidenceThreshold {
		zap.L().Debug("classifier: below confidence threshold, degrading to general",
			zap.String("best_industry", best.industry),
			zap.Float64("score", best.score),
			zap.Float64("threshold", c.cfg.ConfidenceThreshold),
		)
		cls.Industry = model.IndustryGeneral
		cls.Subtype = ""
		cls.MatchedIndicators = best.matched
		cls.SuggestedAnalyses = append([]string{}, generalAnalyses...)
		return cls, nil
	}

	profile := c.registry[best.industry]
	cls.Subtype = determineSubtype(profile, tokens)
	cls.SuggestedAnalyses = append([]string{}, profile.SuggestedAnalyses...)
	return cls, nil
}

// Industries returns the sorted list of industries the classifier knows.
func (c *Classifier) Industries() []string {
	names := make([]string, 0, len(c.registry))
	for name := range c.registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Weights returns a copy of the current weight table for one industry.
func (c *Classifier) Weights(industry string) map[string]float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	src, ok := c.weights[industry]
	if !ok {
		return nil
	}
	out := make(map[string]float64, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

// determineSubtype picks the subtype whose keyword group overlaps the token
// set the most. Groups are evaluated in sorted order for determinism.
func determineSubtype(profile IndustryProfile, tokens map[string]bool) string {
	if len(profile.Subtypes) == 0 {
		return ""
	}

	names := make([]string, 0, len(profile.Subtypes))
	for name := range profile.Subtypes {
		names = append(names, name)
	}
	sort.Strings(names)

	best := ""
	bestCount := 0
	for _, name := range names {
		count := 0
		for _, kw := range profile.Subtypes[name] {
			if tokens[normalizeToken(kw)] {
				count++
			}
		}
		if count > bestCount {
			best = name
			bestCount = count
		}
	}
	return best
}

// Tokenize splits the inputs on non-alphanumeric boundaries, lowercases
// them, and indexes both the raw and singular-stripped form of each token so
// that indicator tokens stored in singular match plural column names.
func Tokenize(inputs ...string) map[string]bool {
	tokens := make(map[string]bool)
	for _, input := range inputs {
		fields := strings.FieldsFunc(strings.ToLower(input), func(r rune) bool {
			return !isAlphanumeric(r)
		})
		for _, f := range fields {
			tokens[f] = true
			if stripped := normalizeToken(f); stripped != f {
				tokens[stripped] = true
			}
		}
	}
	return tokens
}

// normalizeToken strips a naive plural suffix: a single trailing "s" on
// tokens longer than three runes, unless the token ends in "ss".
func normalizeToken(token string) string {
	if len(token) > 3 && strings.HasSuffix(token, "s") && !strings.HasSuffix(token, "ss") {
		return token[:len(token)-1]
	}
	return token
}

func isAlphanumeric(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
}
