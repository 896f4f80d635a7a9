// Package contacts defines the typed records the reconciliation engine works
// on: contacts from the address-book store and rows from the member roster.
// Field kinds are a small closed set so that the append-only merge policy is
// checkable per kind instead of over an open-ended property bag.
package contacts

import (
	"time"
)

// FieldKind identifies one of the merge-relevant field kinds of a contact.
type FieldKind string

// The closed set of field kinds.
const (
	FieldName     FieldKind = "name"
	FieldNickname FieldKind = "nickname"
	FieldAddress  FieldKind = "address"
	FieldPhone    FieldKind = "phone"
	FieldEmail    FieldKind = "email"
	FieldBirthday FieldKind = "birthday"
	FieldOrg      FieldKind = "org"
	FieldPhoto    FieldKind = "photo"
	FieldNote     FieldKind = "note"
)

// String returns the string representation of a field kind.
func (k FieldKind) String() string {
	return string(k)
}

// Name is the structured name of a person.
type Name struct {
	Given  string
	Family string
}

// IsZero reports whether no name component is set.
func (n Name) IsZero() bool {
	return n.Given == "" && n.Family == ""
}

// String returns the display form "Given Family".
func (n Name) String() string {
	switch {
	case n.Given == "":
		return n.Family
	case n.Family == "":
		return n.Given
	default:
		return n.Given + " " + n.Family
	}
}

// Address is a postal address.
type Address struct {
	Street      string
	HouseNumber string
	Extra       string // additional delivery info, e.g. a room number
	PostalCode  string
	City        string
	Country     string
}

// IsZero reports whether no address component is set.
func (a Address) IsZero() bool {
	return a == Address{}
}

// PhoneType distinguishes the typed phone numbers of the roster.
type PhoneType string

// Phone number types.
const (
	PhoneMobile   PhoneType = "mobile"
	PhoneLandline PhoneType = "landline"
	PhoneOther    PhoneType = "other"
)

// Phone is a phone number as found in either source, with its original
// formatting preserved. Equality is decided on canonical digit strings by
// pkg/normalize, never on the raw value.
type Phone struct {
	Number string
	Type   PhoneType
}

// Photo is a profile image, either embedded binary data or an external
// reference kept verbatim. Either form counts as "photo present" for the
// merge policy.
type Photo struct {
	Data []byte
	// Subtype is the image media subtype, e.g. "jpeg" or "png".
	Subtype string
	// URI is set instead of Data when the store entry references the image
	// by URL. It round-trips untouched.
	URI string
}

// ContactRecord is one entry of the existing address book. The UID is opaque
// and never reassigned; it is the sole join key back to the store. Rev is the
// store's revision marker (the CardDAV etag) guarding uploads.
type ContactRecord struct {
	UID string
	Rev string

	Name      Name
	Nicknames []string
	Addresses []Address
	Phones    []Phone
	Emails    []string
	Birthday  *time.Time
	Org       []string
	Photo     *Photo
	Notes     []string
}

// Clone returns a deep copy. The merger works on copies so that the fetched
// records stay untouched for comparison and reporting.
func (c ContactRecord) Clone() ContactRecord {
	out := c
	out.Nicknames = append([]string(nil), c.Nicknames...)
	out.Addresses = append([]Address(nil), c.Addresses...)
	out.Phones = append([]Phone(nil), c.Phones...)
	out.Emails = append([]string(nil), c.Emails...)
	out.Org = append([]string(nil), c.Org...)
	out.Notes = append([]string(nil), c.Notes...)
	if c.Birthday != nil {
		b := *c.Birthday
		out.Birthday = &b
	}
	if c.Photo != nil {
		p := *c.Photo
		p.Data = append([]byte(nil), c.Photo.Data...)
		out.Photo = &p
	}
	return out
}
