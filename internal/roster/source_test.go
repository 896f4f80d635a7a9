package roster

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AkaBlas/akadressen-utils/internal/transport"
	"github.com/AkaBlas/akadressen-utils/pkg/contacts"
	"github.com/AkaBlas/akadressen-utils/pkg/errors"
)

func fixedNow() time.Time {
	return time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
}

func testSource(t *testing.T) *Source {
	t.Helper()
	return New("http://unused", &transport.NoAuth{}, WithNow(fixedNow))
}

func TestParseFixture(t *testing.T) {
	result, err := testSource(t).ParseFile("testdata/akadressen.csv")
	require.NoError(t, err)

	require.Len(t, result.Records, 3)
	require.Len(t, result.Skipped, 2)

	john := result.Records[0]
	assert.Equal(t, "John", john.GivenName)
	assert.Equal(t, "Doe", john.FamilyName)
	assert.Equal(t, "Jo", john.Nickname)
	require.NotNil(t, john.Birthday)
	assert.Equal(t, time.Date(1990, 7, 12, 0, 0, 0, 0, time.UTC), *john.Birthday)
	require.NotNil(t, john.Address)
	assert.Equal(t, "Musterweg", john.Address.Street)
	assert.Equal(t, "5", john.Address.HouseNumber)
	assert.Equal(t, "38106", john.Address.PostalCode)
	assert.Equal(t, "Braunschweig", john.Address.City)
	require.Len(t, john.Phones, 2)
	assert.Equal(t, contacts.Phone{Number: "0531/987654", Type: contacts.PhoneLandline}, john.Phones[0])
	assert.Equal(t, contacts.Phone{Number: "+49 151 1234567", Type: contacts.PhoneMobile}, john.Phones[1])
	assert.Equal(t, "john@example.org", john.Email)
	assert.Equal(t, "Tuba", john.Instrument)
	assert.Equal(t, 2010, john.Joined)

	erika := result.Records[1]
	require.NotNil(t, erika.Birthday)
	assert.Equal(t, time.Date(1985, 3, 2, 0, 0, 0, 0, time.UTC), *erika.Birthday)
	require.NotNil(t, erika.Address)
	assert.Equal(t, "Hauptstraße", erika.Address.Street)
	assert.Equal(t, "12a", erika.Address.HouseNumber)
	assert.Equal(t, "Zimmer 3", erika.Address.Extra)
	assert.Equal(t, "Klarinette", erika.Instrument)
	assert.Equal(t, 2005, erika.Joined)

	anna := result.Records[2]
	assert.Equal(t, "Anna", anna.GivenName)
	assert.Equal(t, "Schmidt", anna.FamilyName)
	assert.Nil(t, anna.Birthday)
	require.NotNil(t, anna.Address)
	assert.Equal(t, "17 Rue de la Paix", anna.Address.Street)
	assert.Equal(t, "Paris", anna.Address.City)
	assert.Equal(t, "Frankreich", anna.Address.Country)
	assert.Equal(t, "Posaune", anna.Instrument)

	assert.Equal(t, "Zeile Kaputt", result.Skipped[0].Name)
	assert.True(t, errors.IsNormalization(result.Skipped[0].Err))
	assert.True(t, errors.IsNormalization(result.Skipped[1].Err))
}

func TestParseBadLayoutFatal(t *testing.T) {
	const malformed = "a;b;c\nx;y;z\n"
	_, err := testSource(t).Parse(strings.NewReader(malformed))
	require.Error(t, err)
	assert.True(t, errors.IsParse(err))
}

func TestFetch(t *testing.T) {
	fixture, err := os.ReadFile("testdata/akadressen.csv")
	require.NoError(t, err)

	var gotPath string
	var gotUser string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUser, _, _ = r.BasicAuth()
		_, _ = w.Write(fixture)
	}))
	defer server.Close()

	source := New(server.URL+"/intern", &transport.BasicAuth{Username: "member", Password: "pw"}, WithNow(fixedNow))
	result, err := source.Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "/intern/latest_Akadressen_CSV.csv", gotPath)
	assert.Equal(t, "member", gotUser)
	assert.Len(t, result.Records, 3)
}

func TestRepairWhitespace(t *testing.T) {
	cases := map[string]string{
		"S chmidt":  "Schmidt",
		"Schmid t":  "Schmidt",
		"A nna":     "Anna",
		"Max":       "Max",
		"Anna Lena": "Anna Lena",
	}
	for in, want := range cases {
		assert.Equal(t, want, repairWhitespace(in), in)
	}
}

func TestParseDateCenturyFixup(t *testing.T) {
	now := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)

	t1, err := parseDate("1.1.2026", now)
	require.NoError(t, err)
	assert.Equal(t, 1926, t1.Year())

	t2, err := parseDate("24. Dez 99", now)
	require.NoError(t, err)
	assert.Equal(t, 1999, t2.Year())

	_, err = parseDate("am Dienstag", now)
	require.Error(t, err)
	assert.True(t, errors.IsNormalization(err))
}

// Spelled-out month names contain their abbreviations, so the long forms
// must be translated first or "Oktober" ends up as the unparseable
// "October".
func TestParseDateSpelledOutMonths(t *testing.T) {
	now := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		in   string
		want time.Time
	}{
		{"2. Oktober 05", time.Date(2005, 10, 2, 0, 0, 0, 0, time.UTC)},
		{"24. Dezember 99", time.Date(1999, 12, 24, 0, 0, 0, 0, time.UTC)},
		{"1. März 85", time.Date(1985, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"September 03", time.Date(2003, 9, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		got, err := parseDate(tc.in, now)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestParseAddressSwappedOrder(t *testing.T) {
	addr := parseAddress("5 Musterweg, 38106 Braunschweig")
	require.NotNil(t, addr)
	assert.Equal(t, "Musterweg", addr.Street)
	assert.Equal(t, "5", addr.HouseNumber)
	assert.Equal(t, "38106", addr.PostalCode)
	assert.Equal(t, "Braunschweig", addr.City)
}

func TestLocalPhoneGuess(t *testing.T) {
	assert.Equal(t, "0531/987654", localPhone("987654"))
	assert.Equal(t, "0531/123456", localPhone("0531/123456"))
	assert.Equal(t, "+49 151 1", localPhone("+49 151 1"))
}
