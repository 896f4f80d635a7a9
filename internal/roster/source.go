// Package roster downloads and parses the AkaDressen, the authoritative
// member roster published as a CSV export of the printed directory. The
// conversion from print is lossy, so parsing is defensive: the layout must
// match exactly, but individual fields get repaired or, failing that, the row
// is skipped and reported rather than aborting the run.
package roster

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/AkaBlas/akadressen-utils/internal/transport"
	"github.com/AkaBlas/akadressen-utils/pkg/contacts"
	"github.com/AkaBlas/akadressen-utils/pkg/errors"
	"github.com/AkaBlas/akadressen-utils/pkg/logging"
)

// FileName is the roster file published on the homepage. The "latest_"
// prefix always points at the current export.
const FileName = "latest_Akadressen_CSV.csv"

// columnCount is the fixed layout of the export:
// family;given;nickname;born;street;zip;city;landline;mobile;mail;instrument;joined
const columnCount = 12

// Skipped is a roster row that failed normalization and was left out.
type Skipped struct {
	Name string
	Err  error
}

// Result is the outcome of parsing a roster file.
type Result struct {
	Records []contacts.RosterRecord
	Skipped []Skipped
}

// Source fetches and parses the roster.
type Source struct {
	transport *transport.Client
	baseURL   string
	logger    *zerolog.Logger
	now       func() time.Time
}

// Option configures a Source.
type Option func(*Source)

// WithLogger sets the logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(s *Source) {
		s.logger = logger
	}
}

// WithNow overrides the clock used for the two-digit-year century decision.
func WithNow(now func() time.Time) Option {
	return func(s *Source) {
		s.now = now
	}
}

// New creates a Source downloading from baseURL with the given credentials.
func New(baseURL string, auth transport.Authenticator, opts ...Option) *Source {
	s := &Source{
		transport: transport.New(auth),
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		logger:    logging.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fetch downloads the current roster export and parses it.
func (s *Source) Fetch(ctx context.Context) (*Result, error) {
	url := s.baseURL + "/" + FileName
	s.logger.Debug().Str("url", url).Msg("downloading roster")

	resp, err := s.transport.Get(ctx, url)
	if err != nil {
		return nil, errors.WrapAPI("akadressen", 0, err)
	}
	body, err := transport.ReadBody(resp, "akadressen")
	if err != nil {
		return nil, err
	}
	return s.Parse(strings.NewReader(string(body)))
}

// ParseFile parses a local roster export.
func (s *Source) ParseFile(path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WrapIO("open", path, err)
	}
	defer func() { _ = f.Close() }()
	return s.Parse(f)
}

// Parse reads the semicolon-separated export. A header row is expected and
// checked only for its column count; the column order is fixed. Layout
// problems are fatal, they mean the export format changed and every row
// would be misread.
func (s *Source) Parse(r io.Reader) (*Result, error) {
	reader := csv.NewReader(r)
	reader.Comma = ';'
	reader.FieldsPerRecord = columnCount

	if _, err := reader.Read(); err != nil {
		return nil, errors.WrapParse("csv", "roster header", err)
	}

	result := &Result{}
	line := 1
	for {
		line++
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &errors.ParseError{
				Format:  "csv",
				Source:  "roster",
				Line:    line,
				Message: "unexpected row layout",
				Err:     err,
			}
		}

		rec, err := s.parseRow(row)
		if err != nil {
			name := repairWhitespace(row[1]) + " " + repairWhitespace(row[0])
			s.logger.Warn().Err(err).Str("name", name).Int("line", line).Msg("skipping roster row")
			result.Skipped = append(result.Skipped, Skipped{Name: strings.TrimSpace(name), Err: err})
			continue
		}
		result.Records = append(result.Records, rec)
	}

	s.logger.Info().
		Int("records", len(result.Records)).
		Int("skipped", len(result.Skipped)).
		Msg("parsed roster")
	return result, nil
}

func (s *Source) parseRow(row []string) (contacts.RosterRecord, error) {
	rec := contacts.RosterRecord{
		FamilyName: repairWhitespace(row[0]),
		GivenName:  repairWhitespace(row[1]),
		Nickname:   repairWhitespace(row[2]),
		Email:      strings.TrimSpace(row[9]),
		Instrument: instrumentName(repairWhitespace(row[10])),
	}
	if rec.FamilyName == "" && rec.GivenName == "" {
		return rec, &errors.NormalizationError{Field: "name", Value: "", Message: "row without a name"}
	}

	now := s.now()
	if born := strings.TrimSpace(row[3]); born != "" {
		t, err := parseDate(born, now)
		if err != nil {
			return rec, err
		}
		rec.Birthday = &t
	}

	rec.Address = s.parseAddressColumns(row[4], row[5], row[6])

	if landline := strings.TrimSpace(row[7]); landline != "" {
		rec.Phones = append(rec.Phones, contacts.Phone{
			Number: localPhone(landline),
			Type:   contacts.PhoneLandline,
		})
	}
	if mobile := repairWhitespace(row[8]); mobile != "" {
		rec.Phones = append(rec.Phones, contacts.Phone{
			Number: mobile,
			Type:   contacts.PhoneMobile,
		})
	}

	if joined := repairWhitespace(row[11]); joined != "" {
		t, err := parseDate(joined, now)
		if err != nil {
			return rec, err
		}
		rec.Joined = t.Year()
	}

	return rec, nil
}

// parseAddressColumns reassembles the export's street, postal code and city
// columns into one line and parses that, so that swapped street orders and
// extra address segments are handled the same way everywhere.
func (s *Source) parseAddressColumns(street, zip, city string) *contacts.Address {
	street = repairWhitespace(street)
	zip = strings.TrimSpace(zip)
	city = expandBrunswick(repairWhitespace(city))
	if street == "" && city == "" {
		return nil
	}

	var parts []string
	if street != "" {
		parts = append(parts, street)
	}
	tail := strings.TrimSpace(fmt.Sprintf("%s %s", zip, city))
	if tail != "" {
		parts = append(parts, tail)
	}
	return parseAddress(strings.Join(parts, ", "))
}
