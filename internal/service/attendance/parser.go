package attendance

import (
	"encoding/csv"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/pkg/textnorm"
)

// ParsedEntry is one reported day from a time-clock export.
type ParsedEntry struct {
	EmployeeCode string
	EmployeeName string
	Date         time.Time
	CheckIn      string
	CheckOut     string
}

type parserState int

const (
	stateSeekingHeader parserState = iota
	stateSeekingTable
	stateReadingRows
)

func (s parserState) String() string {
	switch s {
	case stateSeekingHeader:
		return "seeking_header"
	case stateSeekingTable:
		return "seeking_table"
	case stateReadingRows:
		return "reading_rows"
	}
	return "unknown"
}

const defaultLookback = 5

var (
	codeTokenRegex  = regexp.MustCompile(`(?:^|[^0-9])([0-9]{5})(?:[^0-9]|$)`)
	dateFieldRegex  = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
	mangledDayRegex = regexp.MustCompile(`^ng.{0,3}y`)
	shortCodeRegex  = regexp.MustCompile(`\bnv\b`)
	nonDigitRegex   = regexp.MustCompile(`[^0-9]`)
)

var headerKeywords = []string{"ma nv", "manv", "ma nhan vien", "nhan vien", "employee", "code", "ma so"}

// Parser turns a vendor attendance export into flat entries. It never fails:
// lines it cannot make sense of are skipped.
type Parser struct {
	orgCode  string
	loc      *time.Location
	lookback int
}

// NewParser creates a parser that prefixes codes with orgCode and places
// dates at midnight in loc.
func NewParser(orgCode string, loc *time.Location) *Parser {
	if loc == nil {
		loc = time.UTC
	}
	return &Parser{orgCode: orgCode, loc: loc, lookback: defaultLookback}
}

type employeeContext struct {
	code string
	name string
}

// Parse walks the export line by line.
//
//	seeking_header --header--> seeking_table --table start--> reading_rows
//	reading_rows   --date row--> reading_rows (emit)
//	reading_rows   --header--> seeking_table
//	reading_rows   --other--> seeking_table (context kept)
func (p *Parser) Parse(content string) []ParsedEntry {
	lines := splitLines(content)
	entries := make([]ParsedEntry, 0, len(lines))

	state := stateSeekingHeader
	var current *employeeContext

	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		switch state {
		case stateSeekingHeader:
			if ctx, ok := p.parseHeader(line); ok {
				current = ctx
				state = stateSeekingTable
				continue
			}
			if _, ok := p.dateRow(line); ok {
				// Rows with no employee in sight: look back for a code.
				if ctx, ok := p.recoverContext(lines, i); ok {
					current = ctx
					state = stateReadingRows
					entries = p.appendRow(entries, current, line)
				}
			}

		case stateSeekingTable:
			if ctx, ok := p.parseHeader(line); ok {
				current = ctx
				continue
			}
			if isTableStart(line) {
				state = stateReadingRows
				continue
			}
			if _, ok := p.dateRow(line); ok {
				state = stateReadingRows
				entries = p.appendRow(entries, current, line)
			}

		case stateReadingRows:
			if _, ok := p.dateRow(line); ok {
				entries = p.appendRow(entries, current, line)
				continue
			}
			if ctx, ok := p.parseHeader(line); ok {
				current = ctx
				state = stateSeekingTable
				continue
			}
			if isTableStart(line) {
				continue
			}
			state = stateSeekingTable
		}
	}

	return entries
}

func (p *Parser) appendRow(entries []ParsedEntry, ctx *employeeContext, line string) []ParsedEntry {
	if ctx == nil {
		return entries
	}
	row, ok := p.dateRow(line)
	if !ok {
		return entries
	}

	checkIn := cleanTimeField(row.fields, 2)
	checkOut := cleanTimeField(row.fields, 3)
	if checkIn == "" && checkOut == "" {
		return entries
	}

	return append(entries, ParsedEntry{
		EmployeeCode: ctx.code,
		EmployeeName: ctx.name,
		Date:         row.date,
		CheckIn:      checkIn,
		CheckOut:     checkOut,
	})
}

type dateRow struct {
	date   time.Time
	fields []string
}

// dateRow reports whether the first field is a valid D/M/YYYY date.
func (p *Parser) dateRow(line string) (dateRow, bool) {
	fields := splitFields(line)
	if len(fields) == 0 {
		return dateRow{}, false
	}
	m := dateFieldRegex.FindStringSubmatch(fields[0])
	if m == nil {
		return dateRow{}, false
	}

	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, p.loc)
	if date.Day() != day || int(date.Month()) != month || date.Year() != year {
		return dateRow{}, false
	}
	return dateRow{date: date, fields: fields}, true
}

// parseHeader recognizes an employee header: a 5-digit code plus either an
// employee keyword or at least two colon separated fields.
func (p *Parser) parseHeader(line string) (*employeeContext, bool) {
	m := codeTokenRegex.FindStringSubmatch(line)
	if m == nil {
		return nil, false
	}

	folded := textnorm.Fold(line)
	keyword := textnorm.ContainsAny(folded, headerKeywords...) || shortCodeRegex.MatchString(folded)
	if !keyword && strings.Count(line, ":") < 2 {
		return nil, false
	}

	return &employeeContext{
		code: NormalizeEmployeeCode(m[1], p.orgCode),
		name: headerName(line),
	}, true
}

func (p *Parser) recoverContext(lines []string, at int) (*employeeContext, bool) {
	for i := at - 1; i >= 0 && i >= at-p.lookback; i-- {
		if m := codeTokenRegex.FindStringSubmatch(lines[i]); m != nil {
			return &employeeContext{
				code: NormalizeEmployeeCode(m[1], p.orgCode),
				name: headerName(lines[i]),
			}, true
		}
	}
	return nil, false
}

// headerName picks the value of a "Ten:"/"Name:" segment, if any.
func headerName(line string) string {
	for _, seg := range strings.FieldsFunc(line, func(r rune) bool { return r == ',' || r == ';' || r == '\t' }) {
		key, value, found := strings.Cut(seg, ":")
		if !found {
			continue
		}
		if textnorm.ContainsAny(key, "ten", "name") {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func isTableStart(line string) bool {
	if textnorm.HasPrefixAny(line, "ngay", "date") {
		return true
	}
	// Encodings that drop the accented letter entirely, e.g. "Ng?y".
	return mangledDayRegex.MatchString(strings.ToLower(line))
}

// NormalizeEmployeeCode keeps the digits of raw, left-pads them to five and
// prefixes the organization code: "12" -> "NV00012". Already normalized
// codes come back unchanged.
func NormalizeEmployeeCode(raw, prefix string) string {
	digits := nonDigitRegex.ReplaceAllString(raw, "")
	if len(digits) < 5 {
		digits = strings.Repeat("0", 5-len(digits)) + digits
	}
	return prefix + digits
}

func cleanTimeField(fields []string, idx int) string {
	if idx >= len(fields) {
		return ""
	}
	v := strings.TrimSpace(fields[idx])
	if v == "-" {
		return ""
	}
	return v
}

func splitLines(content string) []string {
	content = strings.TrimPrefix(content, "\ufeff")
	content = strings.ReplaceAll(content, "\r\n", "\n")
	return strings.Split(strings.ReplaceAll(content, "\r", "\n"), "\n")
}

// splitFields splits one CSV line, honouring quotes when they are well
// formed and falling back to a plain split when they are not.
func splitFields(line string) []string {
	r := csv.NewReader(strings.NewReader(line))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	fields, err := r.Read()
	if err != nil {
		fields = strings.Split(line, ",")
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return fields
}
