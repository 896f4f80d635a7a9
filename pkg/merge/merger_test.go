package merge_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AkaBlas/akadressen-utils/pkg/contacts"
	"github.com/AkaBlas/akadressen-utils/pkg/merge"
)

var runDate = time.Date(2026, time.August, 29, 12, 0, 0, 0, time.UTC)

func newMerger() *merge.Merger {
	return merge.New("49", runDate)
}

func existingContact() contacts.ContactRecord {
	return contacts.ContactRecord{
		UID:  "uid-1",
		Rev:  `"etag-7"`,
		Name: contacts.Name{Given: "Jon", Family: "Doe"},
		Phones: []contacts.Phone{
			{Number: "0151-1111111", Type: contacts.PhoneMobile},
		},
		Addresses: []contacts.Address{
			{Street: "Altewiekring", HouseNumber: "20", PostalCode: "38102", City: "Braunschweig"},
		},
		Notes: []string{"handgepflegte Notiz"},
	}
}

// Matched via phone, new address appended, name untouched.
func TestMergeAppendsNewAddress(t *testing.T) {
	rec := contacts.RosterRecord{
		GivenName:  "John",
		FamilyName: "Doe",
		Phones:     []contacts.Phone{{Number: "+491511111111", Type: contacts.PhoneMobile}},
		Address:    &contacts.Address{Street: "Neue Straße", HouseNumber: "1", PostalCode: "38100", City: "Braunschweig"},
	}

	out := newMerger().Merge(existingContact(), rec, nil)

	assert.Equal(t, "uid-1", out.Contact.UID)
	assert.Equal(t, `"etag-7"`, out.Contact.Rev)
	assert.Equal(t, "Jon", out.Contact.Name.Given, "existing name stays")
	require.Len(t, out.Contact.Addresses, 2)
	assert.Equal(t, "Altewiekring", out.Contact.Addresses[0].Street)

	added := out.Added()
	require.Len(t, added, 2) // the address plus the import marker
	assert.Equal(t, contacts.FieldAddress, added[0].Kind)
	assert.Equal(t, contacts.FieldNote, added[1].Kind)
}

func TestMergePhonesAsSet(t *testing.T) {
	rec := contacts.RosterRecord{
		GivenName:  "Jon",
		FamilyName: "Doe",
		Phones: []contacts.Phone{
			{Number: "+491511111111", Type: contacts.PhoneMobile}, // same line, other spelling
			{Number: "0531/44444", Type: contacts.PhoneLandline},  // new
		},
	}

	out := newMerger().Merge(existingContact(), rec, nil)

	require.Len(t, out.Contact.Phones, 2)
	assert.Equal(t, "0151-1111111", out.Contact.Phones[0].Number, "existing spelling kept")
	assert.Equal(t, "0531/44444", out.Contact.Phones[1].Number)
	assert.Equal(t, contacts.PhoneLandline, out.Contact.Phones[1].Type)
}

// No existing value may be lost or replaced by a merge.
func TestMergeNoOverwrite(t *testing.T) {
	before := existingContact()
	bday := time.Date(1990, time.May, 1, 0, 0, 0, 0, time.UTC)
	before.Birthday = &bday
	before.Emails = []string{"jon@example.org"}

	other := time.Date(1991, time.June, 2, 0, 0, 0, 0, time.UTC)
	rec := contacts.RosterRecord{
		GivenName:  "John",
		FamilyName: "Doe",
		Birthday:   &other,
		Email:      "john.doe@akablas.de",
		Phones:     []contacts.Phone{{Number: "0151-1111111"}},
	}

	out := newMerger().Merge(before, rec, nil)

	assert.Equal(t, before.Name, out.Contact.Name)
	assert.Equal(t, bday, *out.Contact.Birthday, "stored birthday never replaced")
	assert.Contains(t, out.Contact.Emails, "jon@example.org")
	assert.Contains(t, out.Contact.Emails, "john.doe@akablas.de")
	assert.Contains(t, out.Contact.Notes, "handgepflegte Notiz")
	for _, ch := range out.Changes {
		assert.NotEqual(t, merge.Status("removed"), ch.Status)
	}
}

// Merging the same record twice yields the identical contact and no added
// tags on the second pass.
func TestMergeIdempotence(t *testing.T) {
	rec := contacts.RosterRecord{
		GivenName:  "John",
		FamilyName: "Doe",
		Phones:     []contacts.Phone{{Number: "+491511111111"}, {Number: "0531/44444"}},
		Address:    &contacts.Address{Street: "Neue Straße", HouseNumber: "1", PostalCode: "38100", City: "Braunschweig"},
		Email:      "john.doe@akablas.de",
	}

	m := newMerger()
	first := m.Merge(existingContact(), rec, nil)
	require.True(t, first.HasChanges())

	second := m.Merge(first.Contact, rec, nil)
	assert.False(t, second.HasChanges(), "second pass must add nothing")
	assert.Equal(t, first.Contact, second.Contact)
}

func TestMergePhotoOnlyWhenAbsent(t *testing.T) {
	photo := &contacts.Photo{Data: []byte{0xff, 0xd8}, Subtype: "jpeg"}

	t.Run("attached when absent", func(t *testing.T) {
		out := newMerger().Merge(existingContact(), contacts.RosterRecord{}, photo)
		require.NotNil(t, out.Contact.Photo)
		assert.Equal(t, "jpeg", out.Contact.Photo.Subtype)

		added := out.Added()
		require.NotEmpty(t, added)
		assert.Equal(t, contacts.FieldPhoto, added[0].Kind)
	})

	t.Run("existing photo kept", func(t *testing.T) {
		c := existingContact()
		c.Photo = &contacts.Photo{Data: []byte{0x89, 0x50}, Subtype: "png"}

		out := newMerger().Merge(c, contacts.RosterRecord{}, photo)
		assert.Equal(t, "png", out.Contact.Photo.Subtype, "stored photo never replaced")
		assert.False(t, out.HasChanges())
	})

	t.Run("none resolved leaves field absent", func(t *testing.T) {
		out := newMerger().Merge(existingContact(), contacts.RosterRecord{}, nil)
		assert.Nil(t, out.Contact.Photo)
	})
}

func TestMergeMarkerOnlyWithChanges(t *testing.T) {
	t.Run("marker on change", func(t *testing.T) {
		rec := contacts.RosterRecord{Email: "new@akablas.de"}
		out := newMerger().Merge(existingContact(), rec, nil)
		require.Len(t, out.Contact.Notes, 2)
		assert.Equal(t, "X-AKADRESSEN: roster import 2026-08-29", out.Contact.Notes[1])
	})

	t.Run("no marker without change", func(t *testing.T) {
		rec := contacts.RosterRecord{GivenName: "Jon", FamilyName: "Doe"}
		out := newMerger().Merge(existingContact(), rec, nil)
		assert.Equal(t, []string{"handgepflegte Notiz"}, out.Contact.Notes)
	})
}

func TestNewContact(t *testing.T) {
	bday := time.Date(1985, time.March, 3, 0, 0, 0, 0, time.UTC)
	rec := contacts.RosterRecord{
		GivenName:  "Erika",
		FamilyName: "Mustermann",
		Nickname:   "Eri",
		Birthday:   &bday,
		Address:    &contacts.Address{Street: "Musterweg", HouseNumber: "5", PostalCode: "38106", City: "Braunschweig"},
		Phones:     []contacts.Phone{{Number: "0151-9999999", Type: contacts.PhoneMobile}},
		Email:      "erika@example.org",
		Instrument: "Posaune",
		Joined:     2003,
	}

	out := newMerger().NewContact(rec)

	assert.True(t, out.Created)
	assert.NotEmpty(t, out.Contact.UID)
	assert.Empty(t, out.Contact.Rev)
	assert.Equal(t, "Erika", out.Contact.Name.Given)
	assert.Equal(t, []string{"Eri"}, out.Contact.Nicknames)
	assert.Equal(t, []string{"AkaBlas e.V.", "Posaune"}, out.Contact.Org)
	assert.Nil(t, out.Contact.Photo, "new contacts carry no photo")
	assert.Contains(t, out.Contact.Notes, "Bei AkaBlas seit 2003. Spielt Posaune.")

	// Every populated field is tagged added.
	kinds := map[contacts.FieldKind]bool{}
	for _, ch := range out.Added() {
		kinds[ch.Kind] = true
	}
	for _, kind := range []contacts.FieldKind{
		contacts.FieldName, contacts.FieldNickname, contacts.FieldBirthday,
		contacts.FieldAddress, contacts.FieldPhone, contacts.FieldEmail,
		contacts.FieldOrg, contacts.FieldNote,
	} {
		assert.True(t, kinds[kind], "missing added tag for %s", kind)
	}

	// Two synthesized contacts never share a UID.
	other := newMerger().NewContact(rec)
	assert.NotEqual(t, out.Contact.UID, other.Contact.UID)
}

func TestMembershipNoteVariants(t *testing.T) {
	tests := []struct {
		name       string
		instrument string
		joined     int
		want       string
	}{
		{"both", "Tuba", 1999, "Bei AkaBlas seit 1999. Spielt Tuba."},
		{"joined only", "", 2010, "Bei AkaBlas seit 2010"},
		{"instrument only", "Horn", 0, "Spielt Horn bei AkaBlas."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := contacts.RosterRecord{
				GivenName: "A", FamilyName: "B",
				Instrument: tt.instrument, Joined: tt.joined,
			}
			out := newMerger().NewContact(rec)
			assert.Contains(t, out.Contact.Notes, tt.want)
		})
	}
}
