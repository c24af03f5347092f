package fields

import (
	"regexp"
	"strings"
)

// Extract runs the heuristic battery over recognized text and returns
// whatever it found. Pure and deterministic: identical text yields an
// identical record. Each heuristic is independent and unconditional: a
// miss on one never blocks another, and none of them can fail.
func Extract(text string) Fields {
	d := newDoc(text)
	var f Fields
	for _, r := range rules {
		r.apply(d, &f)
	}
	return f
}

// doc is the shared view each rule reads: full text, a lowercased copy
// for case-insensitive containment checks, and the original lines for
// verbatim storage.
type doc struct {
	text  string
	lower string
	lines []string
}

func newDoc(text string) *doc {
	return &doc{
		text:  text,
		lower: strings.ToLower(text),
		lines: strings.Split(text, "\n"),
	}
}

// rule contributes at most one field (dates contribute two) and
// short-circuits on its first match.
type rule struct {
	name  string
	apply func(*doc, *Fields)
}

var rules = []rule{
	{"amount", applyAmount},
	{"dates", applyDates},
	{"ticket_number", applyTicketNumber},
	{"location", applyLocation},
	{"violation_type", applyViolationType},
	{"vehicle_info", applyVehicleInfo},
	{"authority", applyAuthority},
}

// Currency symbol followed by digits with an optional decimal, or digits
// followed by a currency word or symbol. The raw matched substring is
// stored as-is; no parsing or sanity checks.
var reAmount = regexp.MustCompile(`(?i)[$€£]\s*\d[\d,]*(?:\.\d{1,2})?|\d[\d,]*(?:\.\d{1,2})?\s*(?:dollars?|usd|eur|gbp|[$€£])`)

func applyAmount(d *doc, f *Fields) {
	if m := reAmount.FindString(d.text); m != "" {
		f.Amount = m
	}
}

// Date patterns in fixed order: slash-delimited, hyphen-delimited,
// month name + day + year.
var reDates = []*regexp.Regexp{
	regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{2,4}\b`),
	regexp.MustCompile(`\b\d{1,2}-\d{1,2}-\d{2,4}\b`),
	regexp.MustCompile(`(?i)\b(?:january|february|march|april|may|june|july|august|september|october|november|december)\.?\s+\d{1,2},?\s+\d{4}`),
}

// The first match across the patterns becomes the issue date; the first
// later distinct match becomes the due date. Once set, the issue date is
// never overwritten by a later pattern.
func applyDates(d *doc, f *Fields) {
	for _, re := range reDates {
		for _, m := range re.FindAllString(d.text, -1) {
			switch {
			case f.IssueDate == "":
				f.IssueDate = m
			case f.DueDate == "" && m != f.IssueDate:
				f.DueDate = m
			}
		}
		if f.IssueDate != "" && f.DueDate != "" {
			return
		}
	}
}

// A reference label followed by an optional separator and an alphanumeric
// token of at least six characters. The whole label+token match is kept,
// not just the token.
var reTicket = regexp.MustCompile(`(?i)\b(?:ticket|citation|case|ref)\s*[:#.]?\s*[A-Za-z0-9]{6,}`)

func applyTicketNumber(d *doc, f *Fields) {
	if m := reTicket.FindString(d.text); m != "" {
		f.TicketNumber = m
	}
}

// Matched by bare substring containment, so "way" also hits "highway"
// and "parkway". The first line containing any keyword is stored verbatim.
var streetKeywords = []string{"street", "avenue", "road", "blvd", "drive", "lane", "way"}

func applyLocation(d *doc, f *Fields) {
	for _, line := range d.lines {
		lower := strings.ToLower(line)
		for _, kw := range streetKeywords {
			if strings.Contains(lower, kw) {
				f.Location = strings.TrimSpace(line)
				return
			}
		}
	}
}

// Ordered by priority; the first keyword present anywhere in the text
// wins.
var violationKeywords = []string{
	"parking",
	"speeding",
	"overtime",
	"expired meter",
	"no parking",
	"handicap",
	"fire hydrant",
	"loading zone",
	"residential permit",
}

func applyViolationType(d *doc, f *Fields) {
	for _, kw := range violationKeywords {
		if strings.Contains(d.lower, kw) {
			f.ViolationType = strings.ToUpper(kw[:1]) + kw[1:]
			return
		}
	}
}

// A license/plate label followed by a 3-8 character alphanumeric token;
// full label+token stored.
var reVehicle = regexp.MustCompile(`(?i)\b(license|plate)\s*[:#.]?\s*([A-Za-z0-9]{3,8})\b`)

func applyVehicleInfo(d *doc, f *Fields) {
	// in "License Plate: XYZ123" the second label is not the token; resume
	// the scan at it so the real token is found
	offset := 0
	for offset < len(d.text) {
		loc := reVehicle.FindStringSubmatchIndex(d.text[offset:])
		if loc == nil {
			return
		}
		start, end := offset+loc[0], offset+loc[1]
		tokStart := offset + loc[4]
		token := strings.ToLower(d.text[tokStart:end])
		if token == "license" || token == "plate" {
			offset = tokStart
			continue
		}
		f.VehicleInfo = d.text[start:end]
		return
	}
}

var authorityKeywords = []string{"city", "county", "police", "department", "authority", "agency"}

// authorityLineMax keeps paragraph-length lines from being mistaken for a
// letterhead. The bound is exclusive: a matching line must be strictly
// shorter than this.
const authorityLineMax = 50

func applyAuthority(d *doc, f *Fields) {
	for _, line := range d.lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || len(trimmed) >= authorityLineMax {
			continue
		}
		lower := strings.ToLower(trimmed)
		for _, kw := range authorityKeywords {
			if strings.Contains(lower, kw) {
				f.Authority = trimmed
				return
			}
		}
	}
}
