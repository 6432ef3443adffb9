package nlparse

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/Tiliavir/timescribe/internal/model"
	"github.com/Tiliavir/timescribe/internal/timecalc"
)

var (
	spaceRe    = regexp.MustCompile(`\s+`)
	breakRe    = regexp.MustCompile(`(?i)\b(?:break|lunch)\b`)
	isoDateRe  = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`)
	relativeRe = map[string]*regexp.Regexp{
		"yesterday": regexp.MustCompile(`(?i)\byesterday\b`),
		"today":     regexp.MustCompile(`(?i)\btoday\b`),
		"tomorrow":  regexp.MustCompile(`(?i)\btomorrow\b`),
	}
)

// normalize collapses whitespace runs and trims the ends.
func normalize(text string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(text, " "))
}

func detectCategory(text string) model.Category {
	if breakRe.MatchString(text) {
		return model.Break
	}
	return model.Work
}

// relativeDay maps yesterday/today/tomorrow to an offset in days.
func relativeDay(word string) (int, bool) {
	switch strings.ToLower(strings.TrimSpace(word)) {
	case "yesterday":
		return -1, true
	case "today":
		return 0, true
	case "tomorrow":
		return 1, true
	}
	return 0, false
}

// detectDate resolves the calendar day. A nil return means the date is
// unresolved.
func detectDate(text string, now time.Time, override string) *time.Time {
	today := timecalc.StartOfDay(now)
	if override != "" {
		if off, ok := relativeDay(override); ok {
			d := today.AddDate(0, 0, off)
			return &d
		}
		d, err := timecalc.ParseDate(override, now.Location())
		if err != nil {
			return nil
		}
		return &d
	}

	for _, word := range []string{"yesterday", "today", "tomorrow"} {
		if relativeRe[word].MatchString(text) {
			off, _ := relativeDay(word)
			d := today.AddDate(0, 0, off)
			return &d
		}
	}

	if m := isoDateRe.FindStringSubmatch(text); m != nil {
		d, err := timecalc.ParseDate(m[1], now.Location())
		if err != nil {
			return nil
		}
		return &d
	}
	return &today
}

const clockToken = `([0-9]{1,2}(?::[0-9]{2})?\s*(?:am|pm)?)`

var (
	fromRe  = regexp.MustCompile(`(?i)\bfrom\s+` + clockToken + `\b`)
	rangeRe = regexp.MustCompile(`(?i)\b` + clockToken + `\s*-\s*` + clockToken + `\b`)
	atRe    = regexp.MustCompile(`(?i)\bat\s+` + clockToken + `\b`)
	toRe    = regexp.MustCompile(`(?i)\bto\s+` + clockToken + `\b`)
)

// clockText removes embedded ISO dates so "2026-02-20" is not read as the
// range "02-20".
func clockText(text string) string {
	return isoDateRe.ReplaceAllString(text, " ")
}

func firstGroup(re *regexp.Regexp, text string, group int) string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[group])
}

// detectStart looks for "from X", then "X - Y", then "at X".
func detectStart(text string) string {
	text = clockText(text)
	if s := firstGroup(fromRe, text, 1); s != "" {
		return s
	}
	if s := firstGroup(rangeRe, text, 1); s != "" {
		return s
	}
	return firstGroup(atRe, text, 1)
}

// detectEnd looks for "to Y", then "X - Y".
func detectEnd(text string) string {
	text = clockText(text)
	if s := firstGroup(toRe, text, 1); s != "" {
		return s
	}
	return firstGroup(rangeRe, text, 2)
}

var (
	colonDurationRe = regexp.MustCompile(`(?i)\bfor\s+(\d{1,2}):(\d{2})\b`)
	bareColonRe     = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)
	unitRe          = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(hours|hour|hrs|hr|h|minutes|minute|mins|min|m|seconds|second|secs|sec|s)`)
)

func unitSeconds(unit string) float64 {
	switch strings.ToLower(unit) {
	case "hours", "hour", "hrs", "hr", "h":
		return 3600
	case "minutes", "minute", "mins", "min", "m":
		return 60
	}
	return 1
}

func isWordByte(b byte) bool {
	return b < unicode.MaxASCII && (unicode.IsLetter(rune(b)) || unicode.IsDigit(rune(b)) || b == '_')
}

// parseDuration returns the total number of seconds mentioned in text, or nil
// when no duration token is present. "for H:MM" wins over unit tokens; unit
// tokens are summed.
func parseDuration(text string) *int64 {
	if m := colonDurationRe.FindStringSubmatch(text); m != nil {
		return colonSeconds(m[1], m[2])
	}

	var (
		total   float64
		found   bool
		lastEnd = -1
	)
	for _, idx := range unitRe.FindAllStringSubmatchIndex(text, -1) {
		start, end := idx[0], idx[1]
		if start > 0 && start != lastEnd {
			prev := text[start-1]
			if isWordByte(prev) || prev == '.' || prev == ':' {
				continue
			}
		}
		// "1h30m" is one compound token; "5 sessions" is not a duration.
		if end < len(text) && unicode.IsLetter(rune(text[end])) {
			continue
		}
		value, err := strconv.ParseFloat(text[idx[2]:idx[3]], 64)
		if err != nil {
			continue
		}
		total += value * unitSeconds(text[idx[4]:idx[5]])
		found = true
		lastEnd = end
	}
	if !found {
		return nil
	}
	secs := int64(math.Round(total))
	return &secs
}

// parseDurationOverride accepts everything parseDuration does plus a bare "H:MM".
func parseDurationOverride(value string) *int64 {
	value = strings.TrimSpace(value)
	if m := bareColonRe.FindStringSubmatch(value); m != nil {
		return colonSeconds(m[1], m[2])
	}
	return parseDuration(value)
}

func colonSeconds(h, m string) *int64 {
	hours, _ := strconv.Atoi(h)
	minutes, _ := strconv.Atoi(m)
	secs := int64(hours*3600 + minutes*60)
	return &secs
}

var (
	projectQuotedRe = regexp.MustCompile(`(?i)\b(?:worked on|working on|on|for)\s+"([^"]{2,100})"`)
	projectPlainRe  = regexp.MustCompile(`(?i)\b(?:worked on|working on|on|for)\s+([A-Za-z0-9][^,.!?]{1,80}?)(?:\s+for\b|\s+from\b|\s+at\b|$)`)
)

// guessProject extracts a best-effort project name, preferring a quoted phrase.
func guessProject(text string) string {
	if s := firstGroup(projectQuotedRe, text, 1); s != "" {
		return s
	}
	return firstGroup(projectPlainRe, text, 1)
}
