package roster

import (
	"regexp"
	"strings"
	"time"

	"github.com/AkaBlas/akadressen-utils/pkg/contacts"
	"github.com/AkaBlas/akadressen-utils/pkg/errors"
)

// The roster export comes out of a PDF-to-CSV conversion that sometimes
// injects a stray space into a word ("M ax", "Ma x"). The two patterns glue a
// single separated leading or trailing letter back on.
var (
	leadingSpaceRe  = regexp.MustCompile(`\b(\w) (\w)`)
	trailingSpaceRe = regexp.MustCompile(`(\w) ([^\d\W])\b`)
)

func repairWhitespace(s string) string {
	s = strings.TrimSpace(s)
	s = leadingSpaceRe.ReplaceAllString(s, "$1$2")
	return trailingSpaceRe.ReplaceAllString(s, "$1$2")
}

// expandBrunswick expands the roster's "BS" shorthand for Braunschweig.
func expandBrunswick(s string) string {
	return strings.ReplaceAll(s, "BS", "Braunschweig")
}

// localPhone guesses the Braunschweig area code for numbers written without
// one. A number starting with a non-zero digit cannot carry a trunk or
// country prefix, so it must be a local one.
func localPhone(s string) string {
	if s == "" {
		return s
	}
	if c := s[0]; c >= '1' && c <= '9' {
		return "0531/" + s
	}
	return s
}

// germanMonths lists the German month-name spellings that differ from the
// English ones dates are parsed with. Long forms come before the short forms
// they contain ("Oktober" before "Okt"), otherwise the short replacement
// would turn "Oktober" into "October" and no layout would match.
var germanMonths = []struct {
	german, english string
}{
	{"Januar", "Jan"},
	{"Februar", "Feb"},
	{"März", "Mar"}, {"Mrz", "Mar"},
	{"April", "Apr"},
	{"Mai", "May"},
	{"Juni", "Jun"},
	{"Juli", "Jul"},
	{"August", "Aug"},
	{"September", "Sep"},
	{"Oktober", "Oct"}, {"Okt", "Oct"},
	{"November", "Nov"},
	{"Dezember", "Dec"}, {"Dez", "Dec"},
}

var dateLayouts = []string{
	"2.1.2006",
	"2.1.06",
	"2. Jan 06",
	"2. Jan 2006",
	"2 Jan 06",
	"2 Jan 2006",
	"Jan 06",
	"2006-01-02",
}

// parseDate parses the roster's date forms, including German month names and
// two-digit years. The roster is a historical document: a parsed year in the
// future (or the current year) means the two-digit year landed in the wrong
// century and is moved back by 100.
func parseDate(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, &errors.NormalizationError{Field: "date", Value: s, Message: "empty date"}
	}
	for _, m := range germanMonths {
		s = strings.ReplaceAll(s, m.german, m.english)
	}
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		if t.Year() >= now.Year() {
			t = t.AddDate(-100, 0, 0)
		}
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	return time.Time{}, &errors.NormalizationError{Field: "date", Value: s, Message: "unrecognized date format"}
}

// addressRe matches "street number" or "number street", an optional
// additional-info segment, a five-digit postal code with the city, and an
// optional trailing state or country.
var addressRe = regexp.MustCompile(
	`^((?P<street>[^,\d]*[^,\d ]) +(?P<number>\d[^,]*)` +
		`|(?P<number2>\d[^, ]*) +(?P<street2>[^,\d]+)), *` +
		`((?P<additional>[^,]+), *)?` +
		`(?P<zip>\d{5}) *(?P<city>[^,]+)` +
		`(, *(?P<state>.*))?`)

// parseAddress parses a full roster address line. When the strict pattern
// does not match it degrades to comma-splitting, and as a last resort keeps
// the whole line as the street, so that no address data is silently lost.
func parseAddress(s string) *contacts.Address {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	if m := addressRe.FindStringSubmatch(s); m != nil {
		get := func(name string) string {
			return strings.TrimSpace(m[addressRe.SubexpIndex(name)])
		}
		street, number := get("street"), get("number")
		if street == "" {
			street, number = get("street2"), get("number2")
		}
		return &contacts.Address{
			Street:      street,
			HouseNumber: number,
			Extra:       get("additional"),
			PostalCode:  get("zip"),
			City:        expandBrunswick(get("city")),
			Country:     get("state"),
		}
	}

	parts := strings.SplitN(s, ",", 3)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	addr := &contacts.Address{Street: parts[0]}
	if len(parts) >= 2 {
		addr.City = expandBrunswick(parts[1])
	}
	if len(parts) >= 3 {
		addr.Country = parts[2]
	}
	return addr
}

// instruments maps the roster's three-letter instrument codes to full names.
var instruments = map[string]string{
	"flö": "Flöte",
	"kla": "Klarinette",
	"obe": "Oboe",
	"hlz": "Holz",
	"sax": "Saxophon",
	"asx": "Altsaxophon",
	"tsx": "Tenorsaxophon",
	"fag": "Fagott",
	"trp": "Trompete",
	"flü": "Flügelhorn",
	"teh": "Tenorhorn",
	"hrn": "Horn",
	"pos": "Posaune",
	"tub": "Tuba",
	"tpd": "Topfdeckel",
	"git": "Gitarre",
	"bss": "E-Bass",
}

// instrumentName expands an instrument code. Unknown values pass through,
// the roster occasionally spells an instrument out.
func instrumentName(s string) string {
	if full, ok := instruments[s]; ok {
		return full
	}
	if full, ok := instruments[strings.ToLower(s)]; ok {
		return full
	}
	return s
}
