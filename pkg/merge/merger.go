package merge

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/AkaBlas/akadressen-utils/pkg/contacts"
	"github.com/AkaBlas/akadressen-utils/pkg/normalize"
)

// Org is the organization entry stamped onto contacts created from the
// roster.
const Org = "AkaBlas e.V."

// markerPrefix starts the machine-readable note line recording a roster
// import. Prior note content is never touched.
const markerPrefix = "X-AKADRESSEN:"

// Merger merges roster records into contact records. The zero value is not
// usable; construct with New.
type Merger struct {
	countryCode string
	runDate     time.Time
}

// New creates a Merger. countryCode is the default country code for phone
// equality, runDate the date stamped into import markers.
func New(countryCode string, runDate time.Time) *Merger {
	if countryCode == "" {
		countryCode = normalize.DefaultCountryCode
	}
	return &Merger{countryCode: countryCode, runDate: runDate}
}

// Merge produces the updated contact for a matched pair. The input contact
// is not mutated; the returned record keeps its UID and revision marker
// verbatim and contains every existing value unchanged. photo may be nil.
func (m *Merger) Merge(c contacts.ContactRecord, rec contacts.RosterRecord, photo *contacts.Photo) Merged {
	out := Merged{Contact: c.Clone()}

	m.mergeName(&out, rec)
	m.mergeNickname(&out, rec)
	m.mergeBirthday(&out, rec)
	m.mergeAddress(&out, rec)
	m.mergePhones(&out, rec)
	m.mergeEmail(&out, rec)
	m.mergePhoto(&out, photo)
	m.stampMarker(&out)

	return out
}

// NewContact synthesizes a brand-new contact from an unmatched roster
// record, with a freshly allocated UID and all roster fields populated. It
// carries no photo; a later run resolves one through the regular merge path.
func (m *Merger) NewContact(rec contacts.RosterRecord) Merged {
	out := Merged{
		Created: true,
		Contact: contacts.ContactRecord{UID: uuid.NewString()},
	}

	m.mergeName(&out, rec)
	m.mergeNickname(&out, rec)
	m.mergeBirthday(&out, rec)
	m.mergeAddress(&out, rec)
	m.mergePhones(&out, rec)
	m.mergeEmail(&out, rec)
	m.mergeOrg(&out, rec)

	if note := membershipNote(rec); note != "" {
		out.Contact.Notes = append(out.Contact.Notes, note)
		out.tag(contacts.FieldNote, note, StatusAdded)
	}
	m.stampMarker(&out)

	return out
}

func (m *Merger) mergeName(out *Merged, rec contacts.RosterRecord) {
	name := rec.Name()
	if name.IsZero() {
		return
	}
	if out.Contact.Name.IsZero() {
		out.Contact.Name = name
		out.tag(contacts.FieldName, name.String(), StatusAdded)
		return
	}
	// An existing name is user-curated and stays, even when the roster
	// spells it differently; the matcher surfaces the divergence.
	out.tag(contacts.FieldName, name.String(), StatusUnchanged)
}

func (m *Merger) mergeNickname(out *Merged, rec contacts.RosterRecord) {
	if rec.Nickname == "" {
		return
	}
	for _, existing := range out.Contact.Nicknames {
		if normalize.Name(existing) == normalize.Name(rec.Nickname) {
			out.tag(contacts.FieldNickname, rec.Nickname, StatusUnchanged)
			return
		}
	}
	out.Contact.Nicknames = append(out.Contact.Nicknames, rec.Nickname)
	out.tag(contacts.FieldNickname, rec.Nickname, StatusAdded)
}

func (m *Merger) mergeBirthday(out *Merged, rec contacts.RosterRecord) {
	if rec.Birthday == nil {
		return
	}
	if out.Contact.Birthday != nil {
		// Single-valued field: a differing roster birthday cannot be
		// appended and must never replace the stored one.
		out.tag(contacts.FieldBirthday, rec.Birthday.Format(time.DateOnly), StatusUnchanged)
		return
	}
	b := *rec.Birthday
	out.Contact.Birthday = &b
	out.tag(contacts.FieldBirthday, b.Format(time.DateOnly), StatusAdded)
}

func (m *Merger) mergeAddress(out *Merged, rec contacts.RosterRecord) {
	if rec.Address == nil || rec.Address.IsZero() {
		return
	}
	label := addressLabel(*rec.Address)
	for _, existing := range out.Contact.Addresses {
		if sameAddress(existing, *rec.Address) {
			out.tag(contacts.FieldAddress, label, StatusUnchanged)
			return
		}
	}
	// A second address is appended as an additional value, never a
	// replacement of the first.
	out.Contact.Addresses = append(out.Contact.Addresses, *rec.Address)
	out.tag(contacts.FieldAddress, label, StatusAdded)
}

func (m *Merger) mergePhones(out *Merged, rec contacts.RosterRecord) {
	for _, phone := range rec.Phones {
		canonical, err := normalize.Phone(phone.Number, m.countryCode)
		if err != nil {
			// Unnormalizable roster numbers were already reported by the
			// parser; nothing to merge here.
			continue
		}
		if m.hasPhone(out.Contact.Phones, canonical) {
			out.tag(contacts.FieldPhone, phone.Number, StatusUnchanged)
			continue
		}
		out.Contact.Phones = append(out.Contact.Phones, phone)
		out.tag(contacts.FieldPhone, phone.Number, StatusAdded)
	}
}

func (m *Merger) hasPhone(phones []contacts.Phone, canonical string) bool {
	for _, p := range phones {
		existing, err := normalize.Phone(p.Number, m.countryCode)
		if err != nil {
			continue
		}
		if existing == canonical {
			return true
		}
	}
	return false
}

func (m *Merger) mergeEmail(out *Merged, rec contacts.RosterRecord) {
	if rec.Email == "" {
		return
	}
	needle := strings.ToLower(strings.TrimSpace(rec.Email))
	for _, existing := range out.Contact.Emails {
		if strings.ToLower(strings.TrimSpace(existing)) == needle {
			out.tag(contacts.FieldEmail, rec.Email, StatusUnchanged)
			return
		}
	}
	out.Contact.Emails = append(out.Contact.Emails, rec.Email)
	out.tag(contacts.FieldEmail, rec.Email, StatusAdded)
}

// mergeOrg stamps the organization onto freshly created contacts. Existing
// contacts keep their org untouched; the merge path never visits it.
func (m *Merger) mergeOrg(out *Merged, rec contacts.RosterRecord) {
	org := []string{Org}
	if rec.Instrument != "" {
		org = append(org, rec.Instrument)
	}
	out.Contact.Org = org
	out.tag(contacts.FieldOrg, strings.Join(org, "; "), StatusAdded)
}

func (m *Merger) mergePhoto(out *Merged, photo *contacts.Photo) {
	if out.Contact.Photo != nil {
		// A stored photo is never replaced.
		out.tag(contacts.FieldPhoto, "present", StatusUnchanged)
		return
	}
	if photo == nil {
		return
	}
	p := contacts.Photo{Data: append([]byte(nil), photo.Data...), Subtype: photo.Subtype}
	out.Contact.Photo = &p
	out.tag(contacts.FieldPhoto, fmt.Sprintf("%s, %d bytes", p.Subtype, len(p.Data)), StatusAdded)
}

// stampMarker appends the import marker note, but only when this merge added
// something. Re-running against unchanged inputs therefore changes nothing
// at all, marker included.
func (m *Merger) stampMarker(out *Merged) {
	if !out.HasChanges() {
		return
	}
	marker := fmt.Sprintf("%s roster import %s", markerPrefix, m.runDate.Format(time.DateOnly))
	out.Contact.Notes = append(out.Contact.Notes, marker)
	out.tag(contacts.FieldNote, marker, StatusAdded)
}

func (out *Merged) tag(kind contacts.FieldKind, value string, status Status) {
	out.Changes = append(out.Changes, Change{Kind: kind, Value: value, Status: status})
}

// membershipNote builds the human note for freshly created contacts,
// matching the wording of earlier imports.
func membershipNote(rec contacts.RosterRecord) string {
	switch {
	case rec.Instrument != "" && rec.Joined > 0:
		return fmt.Sprintf("Bei AkaBlas seit %d. Spielt %s.", rec.Joined, rec.Instrument)
	case rec.Joined > 0:
		return fmt.Sprintf("Bei AkaBlas seit %d", rec.Joined)
	case rec.Instrument != "":
		return fmt.Sprintf("Spielt %s bei AkaBlas.", rec.Instrument)
	default:
		return ""
	}
}

// sameAddress compares two addresses by normalized component equality.
func sameAddress(a, b contacts.Address) bool {
	return normalize.Name(a.Street) == normalize.Name(b.Street) &&
		normalize.Name(a.HouseNumber) == normalize.Name(b.HouseNumber) &&
		strings.TrimSpace(a.PostalCode) == strings.TrimSpace(b.PostalCode) &&
		normalize.Name(a.City) == normalize.Name(b.City)
}

// addressLabel renders an address for the change report.
func addressLabel(a contacts.Address) string {
	parts := make([]string, 0, 4)
	if a.Street != "" {
		street := a.Street
		if a.HouseNumber != "" {
			street += " " + a.HouseNumber
		}
		parts = append(parts, street)
	}
	if a.Extra != "" {
		parts = append(parts, a.Extra)
	}
	if a.PostalCode != "" || a.City != "" {
		parts = append(parts, strings.TrimSpace(a.PostalCode+" "+a.City))
	}
	if a.Country != "" {
		parts = append(parts, a.Country)
	}
	return strings.Join(parts, ", ")
}
