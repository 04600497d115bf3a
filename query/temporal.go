package query

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	countTemporalRe = regexp.MustCompile(`(?i)\b(last|past|previous|latest|first|top|next)\s+(\d+)\s+([\p{L}_]+)`)

	relativeTemporalRe = regexp.MustCompile(`(?i)\b(last|past|previous|this|current|next)\s+(day|week|month|year)s?\b`)
	daysAgoRe          = regexp.MustCompile(`(?i)\b(\d+)\s+(day|week|month|year)s?\s+ago\b`)

	quarterShortRe = regexp.MustCompile(`(?i)\bq([1-4])\s*(\d{4})?\b`)
	quarterLongRe  = regexp.MustCompile(`(?i)\b(first|second|third|fourth|1st|2nd|3rd|4th)\s+quarter(?:\s+of)?\s*(\d{4})?\b`)
	quarterRelRe   = regexp.MustCompile(`(?i)\b(last|previous|this|current)\s+quarter\b`)

	rangeTemporalRe = regexp.MustCompile(`(?i)\b(?:from|between)\s+(.+?)\s+(?:to|and|until)\s+(.+?)(?:$|[,.])`)

	fiscalYearRe = regexp.MustCompile(`(?i)\b(?:fiscal|tax)\s+year\s*(\d{4})?\b`)

	seasonRe = regexp.MustCompile(`(?i)\b(spring|summer|fall|autumn|winter)\s*(?:of\s+)?(\d{4})?\b`)

	numericDateRe = regexp.MustCompile(`\b(\d{1,4})[/.-](\d{1,2})[/.-](\d{2,4})\b`)
	bareYearRe    = regexp.MustCompile(`\b(\d{4})\b`)
	writtenDateRe = regexp.MustCompile(`(?i)\b(?:(\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?)?(january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sep|oct|nov|dec)\.?\s*(\d{1,2})?(?:st|nd|rd|th)?,?\s*(\d{4})?\b`)
)

var monthNames = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may":  time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sep": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
	// Hebrew month names
	"ינואר": time.January, "פברואר": time.February, "מרץ": time.March,
	"אפריל": time.April, "מאי": time.May, "יוני": time.June,
	"יולי": time.July, "אוגוסט": time.August, "ספטמבר": time.September,
	"אוקטובר": time.October, "נובמבר": time.November, "דצמבר": time.December,
}

var temporalUnits = map[string]string{
	"day": "day", "days": "day",
	"week": "week", "weeks": "week",
	"month": "month", "months": "month",
	"year": "year", "years": "year",
}

// TemporalParser extracts time constraints from query text. Parsing is
// deterministic relative to the reference time, which defaults to the
// wall clock and can be pinned for tests.
type TemporalParser struct {
	now    func() time.Time
	logger *slog.Logger
}

// TemporalOption configures a TemporalParser.
type TemporalOption func(*TemporalParser)

// WithReferenceTime pins the parser's notion of "now".
func WithReferenceTime(ref time.Time) TemporalOption {
	return func(p *TemporalParser) {
		p.now = func() time.Time { return ref }
	}
}

// WithTemporalLogger sets a custom logger.
func WithTemporalLogger(logger *slog.Logger) TemporalOption {
	return func(p *TemporalParser) {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
	}
}

// NewTemporalParser creates a parser with the given options.
func NewTemporalParser(opts ...TemporalOption) *TemporalParser {
	p := &TemporalParser{
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse extracts the first temporal expression found in the text, trying
// each recognizer in fixed precedence order. Returns nil when the text
// carries no time constraint.
func (p *TemporalParser) Parse(text string) *TemporalExpression {
	ref := p.now()
	branches := []func(string, time.Time) *TemporalExpression{
		parseCountExpression,
		parseRelativeExpression,
		parseQuarterExpression,
		p.parseExplicitRange,
		parseFiscalYear,
		parseSeason,
		parseAbsoluteDate,
		parseMonthYear,
	}
	for _, branch := range branches {
		if expr := branch(text, ref); expr != nil {
			return expr
		}
	}
	return nil
}

// parseCountExpression recognizes "last N <unit|type>" forms. The third
// word decides the meaning: a time unit yields a count-of-unit window,
// a known document type yields a count-of-documents request.
func parseCountExpression(text string, ref time.Time) *TemporalExpression {
	m := countTemporalRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	count, err := strconv.Atoi(m[2])
	if err != nil || count <= 0 {
		return nil
	}

	direction := DirectionPast
	if strings.EqualFold(m[1], "next") {
		direction = DirectionFuture
	}

	expr := &TemporalExpression{
		Kind:      TemporalCount,
		Count:     count,
		Direction: direction,
	}

	word := strings.ToLower(m[3])
	if unit, ok := temporalUnits[word]; ok {
		expr.Unit = unit
		start, end := countWindow(ref, count, unit, direction)
		expr.Start, expr.End = &start, &end
		return expr
	}
	if docType := NormalizeDocumentType(word); docType != "" {
		expr.DocumentType = docType
		return expr
	}
	return nil
}

// countWindow computes the concrete window covered by N units from the
// reference time.
func countWindow(ref time.Time, count int, unit string, direction Direction) (time.Time, time.Time) {
	n := count
	if direction == DirectionPast {
		n = -count
	}
	var other time.Time
	switch unit {
	case "day":
		other = ref.AddDate(0, 0, n)
	case "week":
		other = ref.AddDate(0, 0, n*7)
	case "month":
		other = ref.AddDate(0, n, 0)
	case "year":
		other = ref.AddDate(n, 0, 0)
	default:
		other = ref
	}
	if direction == DirectionFuture {
		return ref, other
	}
	return other, ref
}

// parseRelativeExpression recognizes calendar-relative forms: "last
// month", "this week", "next week", "yesterday", "tomorrow", "N days
// ago". Bare "last <unit>" means the previous complete calendar unit
// and "next <unit>" the following one. Quarters are handled separately.
func parseRelativeExpression(text string, ref time.Time) *TemporalExpression {
	lower := strings.ToLower(text)

	switch {
	case strings.Contains(lower, "yesterday") || strings.Contains(lower, "אתמול"):
		day := ref.AddDate(0, 0, -1)
		start, end := startOfDay(day), endOfDay(day)
		return &TemporalExpression{Kind: TemporalRelative, Start: &start, End: &end}
	case strings.Contains(lower, "today") || strings.Contains(lower, "היום"):
		start, end := startOfDay(ref), endOfDay(ref)
		return &TemporalExpression{Kind: TemporalRelative, Start: &start, End: &end}
	case strings.Contains(lower, "tomorrow") || strings.Contains(lower, "מחר"):
		day := ref.AddDate(0, 0, 1)
		start, end := startOfDay(day), endOfDay(day)
		return &TemporalExpression{Kind: TemporalRelative, Start: &start, End: &end}
	}

	if m := daysAgoRe.FindStringSubmatch(text); m != nil {
		count, err := strconv.Atoi(m[1])
		if err == nil && count > 0 {
			windowStart, _ := countWindow(ref, count, temporalUnits[strings.ToLower(m[2])], DirectionPast)
			start, end := startOfDay(windowStart), endOfDay(ref)
			return &TemporalExpression{Kind: TemporalRelative, Start: &start, End: &end}
		}
	}

	m := relativeTemporalRe.FindStringSubmatch(text)
	if m == nil {
		// Hebrew: שבוע שעבר (last week), חודש שעבר (last month), שנה שעברה (last year)
		switch {
		case strings.Contains(lower, "שבוע שעבר"):
			m = []string{"", "last", "week"}
		case strings.Contains(lower, "חודש שעבר"):
			m = []string{"", "last", "month"}
		case strings.Contains(lower, "שנה שעברה"):
			m = []string{"", "last", "year"}
		default:
			return nil
		}
	}

	// Offset in calendar units: -1 for last/past/previous, 0 for
	// this/current, +1 for next.
	offset := -1
	switch strings.ToLower(m[1]) {
	case "this", "current":
		offset = 0
	case "next":
		offset = 1
	}

	var start, end time.Time
	switch strings.ToLower(m[2]) {
	case "day":
		day := ref.AddDate(0, 0, offset)
		start, end = startOfDay(day), endOfDay(day)
	case "week":
		weekStart := startOfWeek(ref).AddDate(0, 0, offset*7)
		start, end = weekStart, endOfDay(weekStart.AddDate(0, 0, 6))
	case "month":
		y, mo, _ := ref.Date()
		monthStart := time.Date(y, mo, 1, 0, 0, 0, 0, ref.Location()).AddDate(0, offset, 0)
		start, end = monthStart, monthStart.AddDate(0, 1, 0).Add(-time.Nanosecond)
	case "year":
		y := ref.Year() + offset
		start = time.Date(y, time.January, 1, 0, 0, 0, 0, ref.Location())
		end = time.Date(y, time.December, 31, 23, 59, 59, 999999999, ref.Location())
	default:
		return nil
	}
	return &TemporalExpression{Kind: TemporalRelative, Start: &start, End: &end}
}

// parseQuarterExpression recognizes "Q3 2024", "second quarter of 2023",
// and "last quarter" relative to the reference time.
func parseQuarterExpression(text string, ref time.Time) *TemporalExpression {
	quarterOf := func(t time.Time) int { return (int(t.Month())-1)/3 + 1 }

	if m := quarterRelRe.FindStringSubmatch(text); m != nil {
		q, year := quarterOf(ref), ref.Year()
		if w := strings.ToLower(m[1]); w == "last" || w == "previous" {
			q--
			if q == 0 {
				q, year = 4, year-1
			}
		}
		return quarterExpression(q, year, ref.Location())
	}

	var quarter, year int
	if m := quarterShortRe.FindStringSubmatch(text); m != nil {
		quarter, _ = strconv.Atoi(m[1])
		if m[2] != "" {
			year, _ = strconv.Atoi(m[2])
		}
	} else if m := quarterLongRe.FindStringSubmatch(text); m != nil {
		switch strings.ToLower(m[1]) {
		case "first", "1st":
			quarter = 1
		case "second", "2nd":
			quarter = 2
		case "third", "3rd":
			quarter = 3
		case "fourth", "4th":
			quarter = 4
		}
		if m[2] != "" {
			year, _ = strconv.Atoi(m[2])
		}
	} else {
		return nil
	}
	if year == 0 {
		year = ref.Year()
	}
	return quarterExpression(quarter, year, ref.Location())
}

func quarterExpression(quarter, year int, loc *time.Location) *TemporalExpression {
	startMonth := time.Month((quarter-1)*3 + 1)
	start := time.Date(year, startMonth, 1, 0, 0, 0, 0, loc)
	end := start.AddDate(0, 3, 0).Add(-time.Nanosecond)
	return &TemporalExpression{Kind: TemporalQuarter, Start: &start, End: &end}
}

// parseExplicitRange recognizes "from X to Y" and "between X and Y"
// where both sides parse as dates. Bounds are swapped when inverted.
func (p *TemporalParser) parseExplicitRange(text string, ref time.Time) *TemporalExpression {
	m := rangeTemporalRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	from := parseSingleDate(m[1], ref)
	to := parseSingleDate(m[2], ref)
	if from == nil || to == nil {
		return nil
	}
	start, end := startOfDay(*from), endOfDay(*to)
	if start.After(end) {
		start, end = startOfDay(*to), endOfDay(*from)
	}
	return &TemporalExpression{Kind: TemporalRange, Start: &start, End: &end}
}

// parseFiscalYear recognizes "fiscal year 2023" / "tax year 2023",
// running April 1st through March 31st of the following year.
func parseFiscalYear(text string, ref time.Time) *TemporalExpression {
	m := fiscalYearRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	year := ref.Year()
	if m[1] != "" {
		year, _ = strconv.Atoi(m[1])
	}
	start := time.Date(year, time.April, 1, 0, 0, 0, 0, ref.Location())
	end := time.Date(year+1, time.March, 31, 23, 59, 59, 999999999, ref.Location())
	return &TemporalExpression{Kind: TemporalFiscal, Start: &start, End: &end}
}

// parseSeason maps a named season, with an optional year, to its
// astronomical date window. Winter belongs to the year it ends in.
func parseSeason(text string, ref time.Time) *TemporalExpression {
	m := seasonRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	year := ref.Year()
	if m[2] != "" {
		year, _ = strconv.Atoi(m[2])
	}
	loc := ref.Location()

	var start, end time.Time
	switch strings.ToLower(m[1]) {
	case "spring":
		start = time.Date(year, time.March, 20, 0, 0, 0, 0, loc)
		end = time.Date(year, time.June, 20, 23, 59, 59, 999999999, loc)
	case "summer":
		start = time.Date(year, time.June, 21, 0, 0, 0, 0, loc)
		end = time.Date(year, time.September, 22, 23, 59, 59, 999999999, loc)
	case "fall", "autumn":
		start = time.Date(year, time.September, 23, 0, 0, 0, 0, loc)
		end = time.Date(year, time.December, 20, 23, 59, 59, 999999999, loc)
	case "winter":
		start = time.Date(year-1, time.December, 21, 0, 0, 0, 0, loc)
		end = time.Date(year, time.March, 19, 23, 59, 59, 999999999, loc)
	default:
		return nil
	}
	return &TemporalExpression{Kind: TemporalRange, Start: &start, End: &end}
}

// parseAbsoluteDate recognizes a single concrete date, numeric or
// written. The window covers the whole day.
func parseAbsoluteDate(text string, ref time.Time) *TemporalExpression {
	date := parseSingleDate(text, ref)
	if date == nil {
		return nil
	}
	start, end := startOfDay(*date), endOfDay(*date)
	return &TemporalExpression{Kind: TemporalAbsolute, Start: &start, End: &end}
}

// parseMonthYear recognizes a bare month name, optionally with a year.
// Without a year the reference year is assumed.
func parseMonthYear(text string, ref time.Time) *TemporalExpression {
	for _, token := range tokenize(text) {
		month, ok := monthNames[strings.ToLower(token)]
		if !ok {
			continue
		}
		year := ref.Year()
		if m := bareYearRe.FindStringSubmatch(text); m != nil {
			year, _ = strconv.Atoi(m[1])
		}
		start := time.Date(year, month, 1, 0, 0, 0, 0, ref.Location())
		end := start.AddDate(0, 1, 0).Add(-time.Nanosecond)
		return &TemporalExpression{Kind: TemporalRange, Start: &start, End: &end}
	}
	return nil
}

// parseSingleDate parses one concrete date out of the text. Numeric
// forms are day-first when the first component exceeds 12 and the form
// is not ISO (year-first); two-digit years below 30 land in the 2000s.
func parseSingleDate(text string, ref time.Time) *time.Time {
	if m := numericDateRe.FindStringSubmatch(text); m != nil {
		a, _ := strconv.Atoi(m[1])
		b, _ := strconv.Atoi(m[2])
		c, _ := strconv.Atoi(m[3])

		var year, day int
		var month time.Month
		switch {
		case a > 999: // ISO year-first: 2023-05-12
			year, month, day = a, time.Month(b), c
		case a > 12: // day-first: 25/12/2023
			day, month, year = a, time.Month(b), c
		default: // month-first: 12/25/2023
			month, day, year = time.Month(a), b, c
		}
		year = expandYear(year)
		if month < 1 || month > 12 || day < 1 || day > 31 {
			return nil
		}
		t := time.Date(year, month, day, 0, 0, 0, 0, ref.Location())
		return &t
	}

	if m := writtenDateRe.FindStringSubmatch(text); m != nil {
		month := monthNames[strings.ToLower(m[2])]
		day := 0
		if m[1] != "" {
			day, _ = strconv.Atoi(m[1])
		} else if m[3] != "" {
			day, _ = strconv.Atoi(m[3])
		}
		if day == 0 {
			return nil // bare month is handled by parseMonthYear
		}
		year := ref.Year()
		if m[4] != "" {
			year, _ = strconv.Atoi(m[4])
		}
		if day > 31 {
			return nil
		}
		t := time.Date(year, month, day, 0, 0, 0, 0, ref.Location())
		return &t
	}
	return nil
}

// expandYear widens a two-digit year: below 30 is 2000s, else 1900s.
func expandYear(year int) int {
	if year >= 100 {
		return year
	}
	if year < 30 {
		return 2000 + year
	}
	return 1900 + year
}

// Combine merges two temporal expressions into their intersection.
// The combined window takes the later start and the earlier end; when
// the intersection is empty the count-shaped operand wins, falling back
// to the first. Count, unit, type and direction prefer the refinement.
func Combine(a, b *TemporalExpression) *TemporalExpression {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}

	start := laterTime(a.Start, b.Start)
	end := earlierTime(a.End, b.End)
	if start != nil && end != nil && start.After(*end) {
		if b.Kind == TemporalCount {
			return b
		}
		return a
	}

	merged := &TemporalExpression{
		Kind:         TemporalRange,
		Start:        start,
		End:          end,
		Count:        a.Count,
		Unit:         a.Unit,
		DocumentType: a.DocumentType,
		Direction:    a.Direction,
	}
	if b.Count != 0 {
		merged.Count = b.Count
	}
	if b.Unit != "" {
		merged.Unit = b.Unit
	}
	if b.DocumentType != "" {
		merged.DocumentType = b.DocumentType
	}
	if b.Direction != "" {
		merged.Direction = b.Direction
	}
	return merged
}

func laterTime(a, b *time.Time) *time.Time {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if b.After(*a) {
		return b
	}
	return a
}

func earlierTime(a, b *time.Time) *time.Time {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if b.Before(*a) {
		return b
	}
	return a
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, 999999999, t.Location())
}

// startOfWeek returns midnight Monday of the week containing t.
func startOfWeek(t time.Time) time.Time {
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday counts as the last day
	}
	return startOfDay(t.AddDate(0, 0, -(weekday - 1)))
}
