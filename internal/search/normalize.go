// Package search turns noisy uploaded filenames into comparable titles and
// matches them against free-text queries.
package search

import (
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultJunkTokens is the marker vocabulary stripped from release names.
// It is data, not code: tests and deployments can supply their own list.
var DefaultJunkTokens = []string{
	// resolution
	"480p", "720p", "1080p", "2160p", "4k", "uhd",
	// source / rip
	"bluray", "blu ray", "bdrip", "brrip", "webdl", "web dl", "webrip",
	"web rip", "dvdrip", "dvdscr", "hdtv", "hdcam", "camrip", "hdrip",
	"hdts", "predvd",
	// codec / audio
	"x264", "x265", "h264", "h265", "hevc", "avc", "av1", "aac", "ac3",
	"eac3", "dts", "ddp", "atmos", "10bit", "8bit",
	// language / subs
	"hindi", "tamil", "telugu", "malayalam", "kannada", "english", "eng",
	"dual", "multi", "esub", "esubs", "msubs", "subbed", "dubbed", "hq",
	// release tags
	"proper", "repack", "remastered", "extended", "unrated", "uncut",
	// container leftovers
	"mkv", "mp4", "avi", "webm", "m4v", "mov", "wmv", "flv", "mpg", "mpeg",
}

var mediaExtensions = map[string]bool{
	".mkv": true, ".mp4": true, ".avi": true, ".mov": true, ".wmv": true,
	".flv": true, ".webm": true, ".m4v": true, ".mpg": true, ".mpeg": true,
	".ts": true, ".m2ts": true, ".3gp": true,
}

var (
	bracketRe    = regexp.MustCompile(`\[[^\]]*\]|\{[^}]*\}`)
	handleRe     = regexp.MustCompile(`@\w+`)
	seasonEpRe   = regexp.MustCompile(`(?i)\b(s\d{1,2}(?:e\d{1,3})?|e\d{1,3}|ep\d{1,3}|season\s*\d+|episode\s*\d+|\d{1,2}x\d{1,3})\b`)
	yearRe       = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	emptyParens  = regexp.MustCompile(`\(\s*\)`)
	separatorRep = strings.NewReplacer(".", " ", "_", " ", "-", " ")
)

// maxTitleWords is the point past which a cleaned name is treated as
// unparseable and the lightly-cleaned raw text is returned instead.
const maxTitleWords = 10

// Normalizer converts raw filenames and free-text queries into clean,
// comparable titles. It is a pure function of its input and configuration.
type Normalizer struct {
	junkRe *regexp.Regexp
	caser  cases.Caser
}

// NewNormalizer builds a normalizer for the given junk-token list.
// Passing nil uses DefaultJunkTokens.
func NewNormalizer(junkTokens []string) *Normalizer {
	if junkTokens == nil {
		junkTokens = DefaultJunkTokens
	}
	alts := make([]string, 0, len(junkTokens))
	for _, tok := range junkTokens {
		tok = strings.ToLower(strings.TrimSpace(tok))
		if tok == "" {
			continue
		}
		alts = append(alts, strings.ReplaceAll(regexp.QuoteMeta(tok), `\ `, `\s+`))
	}
	return &Normalizer{
		junkRe: regexp.MustCompile(`(?i)\b(` + strings.Join(alts, "|") + `)\b`),
		caser:  cases.Title(language.English),
	}
}

// Normalize turns a raw filename or query into a human-readable title,
// with a trailing " (YYYY)" when a standalone year is present.
// Idempotent: Normalize(Normalize(x)) == Normalize(x).
func (n *Normalizer) Normalize(text string) string {
	raw := strings.TrimSpace(text)
	if raw == "" {
		return ""
	}

	s := stripExtension(raw)
	s = bracketRe.ReplaceAllString(s, " ")
	s = handleRe.ReplaceAllString(s, " ")
	s = separatorRep.Replace(s)

	s = n.junkRe.ReplaceAllString(s, " ")
	s = seasonEpRe.ReplaceAllString(s, " ")

	year, yearIdx := lastYear(s)
	if year != "" {
		// Drop only the release-year occurrence; earlier years can be part
		// of the title ("Blade Runner 2049").
		s = s[:yearIdx[0]] + " " + s[yearIdx[1]:]
		s = emptyParens.ReplaceAllString(s, " ")
	}

	s = collapse(s)
	if s == "" || len(strings.Fields(s)) > maxTitleWords {
		return lightClean(raw)
	}

	s = n.caser.String(s)
	if year != "" {
		s += " (" + year + ")"
	}
	return s
}

// BaseTitle strips a trailing year suffix and lowercases, for deduplication
// of suggestion candidates.
func (n *Normalizer) BaseTitle(title string) string {
	t := strings.TrimSpace(strings.ToLower(title))
	t = yearRe.ReplaceAllString(t, " ")
	t = emptyParens.ReplaceAllString(t, " ")
	return collapse(t)
}

// lightClean is the unparseable-name fallback: separators and bracket junk
// removed, nothing else touched.
func lightClean(raw string) string {
	s := stripExtension(raw)
	s = bracketRe.ReplaceAllString(s, " ")
	s = handleRe.ReplaceAllString(s, " ")
	s = separatorRep.Replace(s)
	s = collapse(s)
	if s == "" {
		return strings.TrimSpace(raw)
	}
	return s
}

func stripExtension(name string) string {
	if mediaExtensions[strings.ToLower(filepath.Ext(name))] {
		return strings.TrimSuffix(name, filepath.Ext(name))
	}
	return name
}

// lastYear returns the last standalone 4-digit year in s and its position.
// Release names list the title first, so a later year is the release year,
// not a title word ("Blade Runner 2049 2017" -> "2017").
func lastYear(s string) (string, []int) {
	idx := yearRe.FindAllStringIndex(s, -1)
	if len(idx) == 0 {
		return "", nil
	}
	last := idx[len(idx)-1]
	return s[last[0]:last[1]], last
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
