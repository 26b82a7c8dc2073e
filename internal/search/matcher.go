package search

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"bsfilter-bot/internal/model"
)

// ErrQueryTooShort is returned for queries under two characters.
var ErrQueryTooShort = errors.New("search: query too short")

// Kind distinguishes "nothing indexed yet" from "nothing matched" so
// callers can show the right message.
type Kind int

const (
	// KindMatches means Files holds at least one direct match.
	KindMatches Kind = iota
	// KindNoData means the corpus was empty.
	KindNoData
	// KindNoMatch means no direct match; Suggestions may offer spellings.
	KindNoMatch
)

// Result is the outcome of one search over the corpus.
type Result struct {
	Kind        Kind
	Files       []model.FileRecord
	Suggestions []string
}

// Suggester is an optional external source of title suggestions, e.g. a
// movie metadata API. It is best-effort: errors degrade to local-only
// suggestions and never fail the search.
type Suggester interface {
	Suggest(ctx context.Context, query string) ([]string, error)
}

// Matcher runs the tiered search strategy over an in-memory corpus:
// clean-substring, then all-words, then fuzzy/external suggestions.
type Matcher struct {
	norm           *Normalizer
	suggester      Suggester
	minScore       int
	maxSuggestions int
	suggestTimeout time.Duration
	logger         *slog.Logger
}

// NewMatcher builds a matcher. suggester may be nil.
func NewMatcher(norm *Normalizer, suggester Suggester, logger *slog.Logger) *Matcher {
	return &Matcher{
		norm:           norm,
		suggester:      suggester,
		minScore:       50,
		maxSuggestions: 6,
		suggestTimeout: 4 * time.Second,
		logger:         logger.With(slog.String("component", "matcher")),
	}
}

// BaseTitle exposes the normalizer's lowercase year-stripped form, used
// by callers that need a clean lookup key for external metadata APIs.
func (m *Matcher) BaseTitle(s string) string {
	return m.norm.BaseTitle(s)
}

// Search matches query against corpus. Tiers short-circuit: the first tier
// with at least one hit wins and preserves corpus order. Zero direct hits
// produce suggestions instead of files.
func (m *Matcher) Search(ctx context.Context, query string, corpus []model.FileRecord) (Result, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < 2 {
		return Result{}, ErrQueryTooShort
	}
	if len(corpus) == 0 {
		return Result{Kind: KindNoData}, nil
	}

	cleanQuery := foldKey(m.norm.Normalize(query))
	rawWords := strings.Fields(strings.ToLower(query))

	var files []model.FileRecord
	if cleanQuery != "" {
		for _, rec := range corpus {
			if strings.Contains(foldKey(m.norm.Normalize(rec.FileName)), cleanQuery) ||
				strings.Contains(foldKey(m.norm.Normalize(rec.Caption)), cleanQuery) {
				files = append(files, rec)
			}
		}
	}
	if len(files) == 0 {
		for _, rec := range corpus {
			if allWordsIn(strings.ToLower(rec.FileName), rawWords) {
				files = append(files, rec)
			}
		}
	}
	if len(files) > 0 {
		return Result{Kind: KindMatches, Files: files}, nil
	}

	return Result{Kind: KindNoMatch, Suggestions: m.suggest(ctx, query, corpus)}, nil
}

// suggest builds the fallback suggestion list: deduplicated corpus titles
// ranked by fuzzy similarity, optionally merged with external lookups.
func (m *Matcher) suggest(ctx context.Context, query string, corpus []model.FileRecord) []string {
	type candidate struct {
		title string
		score int
	}

	seen := make(map[string]bool)
	var candidates []candidate
	for _, rec := range corpus {
		title := m.norm.Normalize(rec.FileName)
		base := m.norm.BaseTitle(title)
		if base == "" || seen[base] {
			continue
		}
		seen[base] = true
		// Score against the year-stripped base: queries rarely carry the year.
		if score := fuzzyScore(strings.ToLower(query), base); score >= m.minScore {
			candidates = append(candidates, candidate{title: title, score: score})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
	if len(candidates) > m.maxSuggestions {
		candidates = candidates[:m.maxSuggestions]
	}

	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.title)
	}

	if m.suggester != nil {
		sctx, cancel := context.WithTimeout(ctx, m.suggestTimeout)
		defer cancel()
		external, err := m.suggester.Suggest(sctx, query)
		if err != nil {
			m.logger.Warn("external suggestion lookup failed", slog.Any("error", err))
		}
		for _, title := range external {
			base := m.norm.BaseTitle(title)
			if base == "" || seen[base] {
				continue
			}
			seen[base] = true
			out = append(out, title)
		}
	}
	if len(out) > m.maxSuggestions {
		out = out[:m.maxSuggestions]
	}
	return out
}

// foldKey reduces a normalized title to its comparable core: lowercase
// alphanumerics only, matching how queries are typed.
func foldKey(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func allWordsIn(haystack string, words []string) bool {
	if len(words) == 0 {
		return false
	}
	for _, w := range words {
		if !strings.Contains(haystack, w) {
			return false
		}
	}
	return true
}

// fuzzyScore rates the similarity of two lowercase strings on a 0-100
// scale, taking the best of a character-level edit ratio, the same ratio
// over sorted tokens, and a token-overlap ratio.
func fuzzyScore(a, b string) int {
	if a == b {
		return 100
	}
	if a == "" || b == "" {
		return 0
	}

	best := levenshteinRatio(a, b)

	aw := strings.Fields(a)
	bw := strings.Fields(b)
	sortedA := strings.Join(sortedCopy(aw), " ")
	sortedB := strings.Join(sortedCopy(bw), " ")
	if r := levenshteinRatio(sortedA, sortedB); r > best {
		best = r
	}

	if r := tokenOverlapRatio(aw, bw); r > best {
		best = r
	}
	return best
}

func sortedCopy(words []string) []string {
	out := make([]string, len(words))
	copy(out, words)
	sort.Strings(out)
	return out
}

func tokenOverlapRatio(aw, bw []string) int {
	if len(aw) == 0 || len(bw) == 0 {
		return 0
	}
	set := make(map[string]bool, len(aw))
	for _, w := range aw {
		set[w] = true
	}
	inter := 0
	seen := make(map[string]bool, len(bw))
	for _, w := range bw {
		if set[w] && !seen[w] {
			inter++
			seen[w] = true
		}
	}
	return 200 * inter / (len(aw) + len(bw))
}

func levenshteinRatio(a, b string) int {
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 100
	}
	return 100 * (maxLen - levenshtein(a, b)) / maxLen
}

func levenshtein(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = minInt(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func minInt(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
