// FILE: src/internal/timestamp/dateparser.go
package timestamp

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// Result is the full outcome of a parse: the extracted time (nil when
// nothing parsed), the format tag that matched and the parser's confidence
// in it.
type Result struct {
	Time       *time.Time
	Format     string
	Confidence float64
}

type pattern struct {
	re         *regexp.Regexp
	format     string
	confidence float64
}

// Parser extracts timestamps from free text using an ordered pattern
// ladder with a fuzzy fallback. Results are memoized by (text, context);
// the cache is unbounded and grows with distinct inputs until ClearCache.
// Not safe for uncoordinated concurrent writers: parallel pipelines use
// one Parser each.
type Parser struct {
	patterns []pattern
	cache    map[string]Result

	// Matcher invocations, observable by tests to verify cache hits
	matchCalls uint64
}

// New creates a parser with the fixed pattern ladder: iso8601 0.95, syslog
// 0.85, apache 0.85, simple 0.75, unix_seconds 0.70, unix_millis 0.70. The
// first matching pattern wins.
func New() *Parser {
	return &Parser{
		patterns: []pattern{
			{
				re: regexp.MustCompile(
					`(\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}:\d{2}(?:\.\d+)?(?:Z|[+-]\d{2}:?\d{2})?)`),
				format:     "iso8601",
				confidence: 0.95,
			},
			{
				// Syslog: "Mon DD HH:MM:SS", year assumed current
				re:         regexp.MustCompile(`([A-Z][a-z]{2}\s+\d{1,2}\s+\d{2}:\d{2}:\d{2})`),
				format:     "syslog",
				confidence: 0.85,
			},
			{
				// Apache / Nginx bracket format with numeric offset
				re:         regexp.MustCompile(`(\d{2}/[A-Z][a-z]{2}/\d{4}:\d{2}:\d{2}:\d{2}\s+[+-]\d{4})`),
				format:     "apache",
				confidence: 0.85,
			},
			{
				re:         regexp.MustCompile(`(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2})`),
				format:     "simple",
				confidence: 0.75,
			},
			{
				re:         regexp.MustCompile(`\b(\d{10})\b`),
				format:     "unix_seconds",
				confidence: 0.7,
			},
			{
				re:         regexp.MustCompile(`\b(\d{13})\b`),
				format:     "unix_millis",
				confidence: 0.7,
			},
		},
		cache: make(map[string]Result),
	}
}

// Parse extracts a timestamp from text. Context participates only in the
// cache key; identical (text, context) pairs return the cached result
// without rematching.
func (p *Parser) Parse(text, context string) Result {
	key := text + "|" + context
	if r, ok := p.cache[key]; ok {
		return r
	}

	r := p.parse(text)
	p.cache[key] = r
	return r
}

func (p *Parser) parse(text string) Result {
	for _, pat := range p.patterns {
		p.matchCalls++
		m := pat.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}

		if t, err := parseSpecific(m[1], pat.format); err == nil {
			return Result{Time: &t, Format: pat.format, Confidence: pat.confidence}
		}
	}

	// Fuzzy best-effort fallback
	if t, err := dateparse.ParseAny(text); err == nil {
		return Result{Time: &t, Format: "fuzzy", Confidence: 0.4}
	}

	return Result{Format: "unknown", Confidence: 0.0}
}

// ClearCache drops all memoized results.
func (p *Parser) ClearCache() {
	p.cache = make(map[string]Result)
}

// MatchCalls returns how many pattern matcher invocations have run.
func (p *Parser) MatchCalls() uint64 { return p.matchCalls }

func parseSpecific(value, format string) (time.Time, error) {
	switch format {
	case "iso8601":
		normalized := strings.Replace(value, " ", "T", 1)
		if strings.HasSuffix(normalized, "Z") {
			normalized = strings.TrimSuffix(normalized, "Z") + "+00:00"
		}
		// Insert the colon into a colonless numeric offset
		if n := len(normalized); n >= 5 {
			tail := normalized[n-5:]
			if (tail[0] == '+' || tail[0] == '-') && !strings.Contains(tail, ":") {
				normalized = normalized[:n-2] + ":" + normalized[n-2:]
			}
		}
		for _, layout := range []string{
			"2006-01-02T15:04:05.999999999-07:00",
			"2006-01-02T15:04:05-07:00",
			"2006-01-02T15:04:05.999999999",
			"2006-01-02T15:04:05",
		} {
			if t, err := time.Parse(layout, normalized); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("unparseable iso8601 value: %s", value)

	case "syslog":
		year := time.Now().Year()
		fields := strings.Fields(value)
		joined := strconv.Itoa(year) + " " + strings.Join(fields, " ")
		return time.Parse("2006 Jan 2 15:04:05", joined)

	case "apache":
		return time.Parse("02/Jan/2006:15:04:05 -0700", value)

	case "simple":
		return time.Parse("2006-01-02 15:04:05", value)

	case "unix_seconds":
		sec, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return time.Time{}, err
		}
		return time.Unix(sec, 0).UTC(), nil

	case "unix_millis":
		ms, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return time.Time{}, err
		}
		return time.UnixMilli(ms).UTC(), nil
	}

	return time.Time{}, fmt.Errorf("unknown timestamp format: %s", format)
}
