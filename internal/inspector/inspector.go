package inspector

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strings"

	"github.com/agext/levenshtein"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/analysis-core/internal/model"
	"github.com/sells-group/analysis-core/internal/resilience"
)

// maxRenameDistance is the largest edit distance at which a misnamed column
// is considered a near-miss worth an automatic rename.
const maxRenameDistance = 2

// Context describes the dataset the failing task was operating on. The
// inspector uses the field set both to propose column renames and to scope
// cache entries: a changed field set produces a different cache key, so
// stale analyses are never served.
type Context struct {
	Fields []string
	Types  map[string]string
}

// Inspector classifies failures and proposes structured remediations.
// Analyses are cached in a bounded LRU.
type Inspector struct {
	cache *lru.Cache[string, model.ErrorAnalysis]
}

// New creates an Inspector with the given LRU capacity (default 256).
func New(cacheSize int) (*Inspector, error) {
	if cacheSize <= 0 {
		cacheSize = 256
	}
	cache, err := lru.New[string, model.ErrorAnalysis](cacheSize)
	if err != nil {
		return nil, eris.Wrap(err, "inspector: create cache")
	}
	return &Inspector{cache: cache}, nil
}

// Analyze classifies err against the ordered category taxonomy and, where
// possible, proposes a machine-applicable fix. A cache hit returns the
// stored analysis without recomputation.
func (i *Inspector) Analyze(err error, ctx Context) model.ErrorAnalysis {
	if err == nil {
		return model.ErrorAnalysis{Category: model.CategoryTransient}
	}

	category, signature := i.categorize(err)
	key := cacheKey(category, signature, ctx.Fields)

	if cached, ok := i.cache.Get(key); ok {
		zap.L().Debug("inspector: cache hit", zap.String("key", key))
		return cached
	}

	analysis := model.ErrorAnalysis{
		Category: category,
		CacheKey: key,
	}
	switch category {
	case model.CategoryDataSchema:
		analysis.Fix = i.proposeRename(signature, ctx)
	case model.CategoryTypeMismatch:
		analysis.Fix = i.proposeCoercion(err.Error(), ctx)
	}

	i.cache.Add(key, analysis)
	return analysis
}

// categorize applies the taxonomy in specificity order and returns the
// category plus the signature driving fix computation (missing column name
// for schema errors, empty otherwise). Explicitly categorized errors keep
// their category; heuristics only fill in the gaps.
func (i *Inspector) categorize(err error) (model.ErrorCategory, string) {
	msg := err.Error()

	if cat, ok := resilience.CategoryOf(err); ok {
		sig := ""
		if cat == model.CategoryDataSchema {
			sig = extractMissingColumn(msg)
		}
		return cat, sig
	}

	if col := extractMissingColumn(msg); col != "" {
		return model.CategoryDataSchema, col
	}
	if looksLikeTypeMismatch(msg) {
		return model.CategoryTypeMismatch, ""
	}
	// Non-recoverable structural signatures are checked before the transient
	// residual: an empty-dataset failure must never become retry-eligible.
	if looksNonRecoverable(msg) {
		return model.CategoryNonRecoverable, ""
	}
	return model.CategoryTransient, ""
}

// proposeRename finds the closest known field to the missing column. A fix
// is proposed for a near-miss: edit distance <= 2, or an abbreviated form of
// a known field (every character present, in order, with a shared prefix),
// which catches the common sales_amt -> sales_amount class of misnamings
// that plain edit distance scores too harshly.
func (i *Inspector) proposeRename(missing string, ctx Context) *model.Fix {
	if missing == "" || len(ctx.Fields) == 0 {
		return nil
	}

	best := ""
	bestDist := -1
	for _, field := range ctx.Fields {
		if field == missing {
			continue
		}
		d := levenshtein.Distance(missing, field, nil)
		if d > maxRenameDistance && !isAbbreviationOf(missing, field) {
			continue
		}
		if bestDist < 0 || d < bestDist {
			best = field
			bestDist = d
		}
	}
	if best == "" {
		return nil
	}

	zap.L().Debug("inspector: proposing column rename",
		zap.String("from", missing),
		zap.String("to", best),
		zap.Int("distance", bestDist),
	)
	return &model.Fix{
		Kind:    model.FixColumnRename,
		Payload: map[string]string{"from": missing, "to": best},
	}
}

// proposeCoercion proposes a type coercion when the offending value has a
// safe target representation (currently: numeric-looking strings).
func (i *Inspector) proposeCoercion(msg string, ctx Context) *model.Fix {
	value, column, expected := extractTypeConflict(msg)
	if column == "" {
		return nil
	}

	target := expected
	if target == "" {
		target = inferNumericType(value)
	}
	if !safeCoercion(value, target) {
		return nil
	}

	return &model.Fix{
		Kind:    model.FixTypeCoercion,
		Payload: map[string]string{"column": column, "to_type": target},
	}
}

// cacheKey combines the category, failure signature, and a hash of the
// sorted field set. Any change to the field set changes the key, which is
// what invalidates analyses computed against an older schema.
func cacheKey(category model.ErrorCategory, signature string, fields []string) string {
	sorted := append([]string{}, fields...)
	sort.Strings(sorted)

	h := fnv.New64a()
	for _, f := range sorted {
		h.Write([]byte(f))
		h.Write([]byte{0})
	}
	return fmt.Sprintf("%s|%s|%x", category, signature, h.Sum64())
}

// CacheLen reports the number of cached analyses.
func (i *Inspector) CacheLen() int {
	return i.cache.Len()
}

// isAbbreviationOf reports whether short is an ordered-subsequence
// abbreviation of full, anchored by a common prefix of at least three
// characters.
func isAbbreviationOf(short, full string) bool {
	if len(short) >= len(full) || len(short) < 3 {
		return false
	}
	if short[:3] != full[:3] {
		return false
	}
	j := 0
	for i := 0; i < len(full) && j < len(short); i++ {
		if full[i] == short[j] {
			j++
		}
	}
	return j == len(short)
}

func looksLikeTypeMismatch(msg string) bool {
	lower := strings.ToLower(msg)
	for _, p := range []string{
		"cannot convert",
		"cannot coerce",
		"cannot parse",
		"type mismatch",
		"invalid type",
		"expected numeric",
		"not a number",
	} {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

func looksNonRecoverable(msg string) bool {
	lower := strings.ToLower(msg)
	for _, p := range []string{
		"empty dataset",
		"dataset is empty",
		"no rows",
		"contradictory",
		"conflicting inputs",
	} {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
