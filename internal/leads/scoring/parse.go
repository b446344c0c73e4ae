package scoring

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	budgetStrip  = regexp.MustCompile(`[^0-9.km]`)
	leadingFloat = regexp.MustCompile(`^(\d+\.?\d*|\.\d+)`)

	daysPattern   = regexp.MustCompile(`(\d+)\s*days?\b`)
	weeksPattern  = regexp.MustCompile(`(\d+)\s*weeks?\b`)
	monthsPattern = regexp.MustCompile(`(\d+)\s*months?\b`)
)

// ParseBudget turns free text such as "$5,000", "5k" or "1.2M" into a
// number. Currency symbols and separators are ignored; a trailing k or m
// multiplies. ok is false when no number can be read.
func ParseBudget(raw string) (value float64, ok bool) {
	cleaned := budgetStrip.ReplaceAllString(strings.ToLower(raw), "")
	if cleaned == "" {
		return 0, false
	}

	multiplier := 1.0
	switch {
	case strings.HasSuffix(cleaned, "m"):
		multiplier = 1_000_000
		cleaned = strings.TrimSuffix(cleaned, "m")
	case strings.HasSuffix(cleaned, "k"):
		multiplier = 1_000
		cleaned = strings.TrimSuffix(cleaned, "k")
	}

	num := leadingFloat.FindString(cleaned)
	if num == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, false
	}
	return v * multiplier, true
}

type timelineKeywords struct {
	days    int
	phrases []*regexp.Regexp
}

func phrases(words ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(words))
	for _, w := range words {
		out = append(out, regexp.MustCompile(`\b`+regexp.QuoteMeta(w)+`\b`))
	}
	return out
}

// Checked in order; the first group with a matching phrase wins.
var timelineGroups = []timelineKeywords{
	{1, phrases("asap", "immediately", "today", "now", "urgent", "tomorrow")},
	{5, phrases("this week", "next few days", "within a week")},
	{7, phrases("next week")},
	{14, phrases("this month", "2 weeks", "two weeks", "couple weeks", "couple of weeks")},
	{30, phrases("next month", "1 month", "one month", "a month")},
	{60, phrases("2 months", "two months", "couple months", "couple of months")},
	{90, phrases("3 months", "three months", "few months")},
}

// ParseTimelineDays estimates how many days away a free-text booking
// timeline is. Keywords are tried first, then "N days|weeks|months".
func ParseTimelineDays(raw string) (days int, ok bool) {
	lower := strings.ToLower(strings.TrimSpace(raw))
	if lower == "" {
		return 0, false
	}

	for _, group := range timelineGroups {
		for _, re := range group.phrases {
			if re.MatchString(lower) {
				return group.days, true
			}
		}
	}

	for _, p := range []struct {
		re     *regexp.Regexp
		factor int
	}{{daysPattern, 1}, {weeksPattern, 7}, {monthsPattern, 30}} {
		if m := p.re.FindStringSubmatch(lower); m != nil {
			n, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			return n * p.factor, true
		}
	}
	return 0, false
}
