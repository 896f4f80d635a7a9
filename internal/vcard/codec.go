// Package vcard converts between contact records and the vCard wire format
// the address-book store speaks. Encoding always emits vCard 4.0; decoding
// accepts both 3.0 and 4.0 payloads since stores keep whatever version the
// contact was first created with.
package vcard

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
	"time"

	govcard "github.com/emersion/go-vcard"

	"github.com/AkaBlas/akadressen-utils/pkg/contacts"
	"github.com/AkaBlas/akadressen-utils/pkg/errors"
)

// birthdayLayouts are the BDAY forms seen in the wild. Year-less forms
// ("--MM-DD") are intentionally absent; the roster always carries full dates
// and store entries without a year are kept as-is on upload.
var birthdayLayouts = []string{
	"20060102",
	"2006-01-02",
	"20060102T150405Z",
	time.RFC3339,
}

// Decode parses a single vCard payload into a contact record. The revision
// marker is not part of the payload and must be set by the caller.
func Decode(r io.Reader) (contacts.ContactRecord, error) {
	card, err := govcard.NewDecoder(r).Decode()
	if err != nil {
		return contacts.ContactRecord{}, errors.WrapParse("vcard", "card", err)
	}
	return fromCard(card)
}

// DecodeAll parses a reader containing any number of concatenated vCards.
func DecodeAll(r io.Reader) ([]contacts.ContactRecord, error) {
	dec := govcard.NewDecoder(r)
	var out []contacts.ContactRecord
	for {
		card, err := dec.Decode()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, errors.WrapParse("vcard", "card", err)
		}
		rec, err := fromCard(card)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
}

// Encode serializes a contact record as a vCard 4.0 payload.
func Encode(w io.Writer, rec contacts.ContactRecord) error {
	card := toCard(rec)
	if err := govcard.NewEncoder(w).Encode(card); err != nil {
		return errors.WrapIO("encode", "vcard", err)
	}
	return nil
}

// EncodeBytes is Encode into a byte slice.
func EncodeBytes(rec contacts.ContactRecord) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, rec); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func fromCard(card govcard.Card) (contacts.ContactRecord, error) {
	rec := contacts.ContactRecord{
		UID: card.Value(govcard.FieldUID),
	}

	if name := card.Name(); name != nil {
		rec.Name = contacts.Name{
			Given:  name.GivenName,
			Family: name.FamilyName,
		}
	}
	if rec.Name.IsZero() {
		// Some producers write only FN. Split on the last space so that
		// multi-part given names survive.
		fn := card.Value(govcard.FieldFormattedName)
		if idx := strings.LastIndex(fn, " "); idx > 0 {
			rec.Name = contacts.Name{Given: fn[:idx], Family: fn[idx+1:]}
		} else if fn != "" {
			rec.Name = contacts.Name{Given: fn}
		}
	}

	for _, f := range card[govcard.FieldNickname] {
		if f.Value != "" {
			rec.Nicknames = append(rec.Nicknames, f.Value)
		}
	}

	for _, addr := range card.Addresses() {
		rec.Addresses = append(rec.Addresses, fromAddress(addr))
	}

	for _, f := range card[govcard.FieldTelephone] {
		if f.Value == "" {
			continue
		}
		rec.Phones = append(rec.Phones, contacts.Phone{
			Number: f.Value,
			Type:   phoneTypeOf(f),
		})
	}

	for _, f := range card[govcard.FieldEmail] {
		if f.Value != "" {
			rec.Emails = append(rec.Emails, f.Value)
		}
	}

	if bday := card.Value(govcard.FieldBirthday); bday != "" {
		t, err := parseBirthday(bday)
		if err != nil {
			return contacts.ContactRecord{}, err
		}
		rec.Birthday = &t
	}

	if org := card.Value(govcard.FieldOrganization); org != "" {
		for _, part := range strings.Split(org, ";") {
			if part = strings.TrimSpace(part); part != "" {
				rec.Org = append(rec.Org, part)
			}
		}
	}

	for _, f := range card[govcard.FieldNote] {
		if f.Value != "" {
			rec.Notes = append(rec.Notes, f.Value)
		}
	}

	if photo := card.Get(govcard.FieldPhoto); photo != nil {
		p, err := fromPhoto(photo)
		if err != nil {
			return contacts.ContactRecord{}, err
		}
		rec.Photo = p
	}

	return rec, nil
}

func toCard(rec contacts.ContactRecord) govcard.Card {
	card := make(govcard.Card)

	if rec.UID != "" {
		card.SetValue(govcard.FieldUID, rec.UID)
	}

	card.SetName(&govcard.Name{
		GivenName:  rec.Name.Given,
		FamilyName: rec.Name.Family,
	})
	card.SetValue(govcard.FieldFormattedName, rec.Name.String())

	for _, nick := range rec.Nicknames {
		card.AddValue(govcard.FieldNickname, nick)
	}

	for _, addr := range rec.Addresses {
		card.AddAddress(toAddress(addr))
	}

	for _, phone := range rec.Phones {
		f := &govcard.Field{Value: phone.Number, Params: make(govcard.Params)}
		switch phone.Type {
		case contacts.PhoneMobile:
			f.Params.Set(govcard.ParamType, govcard.TypeCell)
		case contacts.PhoneLandline:
			f.Params.Set(govcard.ParamType, govcard.TypeHome)
		}
		card.Add(govcard.FieldTelephone, f)
	}

	for _, email := range rec.Emails {
		card.AddValue(govcard.FieldEmail, email)
	}

	if rec.Birthday != nil {
		card.SetValue(govcard.FieldBirthday, rec.Birthday.Format("20060102"))
	}

	if len(rec.Org) > 0 {
		card.SetValue(govcard.FieldOrganization, strings.Join(rec.Org, ";"))
	}

	for _, note := range rec.Notes {
		card.AddValue(govcard.FieldNote, note)
	}

	if rec.Photo != nil {
		card.SetValue(govcard.FieldPhoto, photoDataURI(rec.Photo))
	}

	govcard.ToV4(card)
	return card
}

func fromAddress(addr *govcard.Address) contacts.Address {
	street, houseNumber := splitStreet(addr.StreetAddress)
	return contacts.Address{
		Street:      street,
		HouseNumber: houseNumber,
		Extra:       addr.ExtendedAddress,
		PostalCode:  addr.PostalCode,
		City:        addr.Locality,
		Country:     addr.Country,
	}
}

func toAddress(addr contacts.Address) *govcard.Address {
	street := addr.Street
	if addr.HouseNumber != "" {
		street += " " + addr.HouseNumber
	}
	return &govcard.Address{
		StreetAddress:   street,
		ExtendedAddress: addr.Extra,
		PostalCode:      addr.PostalCode,
		Locality:        addr.City,
		Country:         addr.Country,
	}
}

// splitStreet separates a trailing house number (optionally with a letter
// suffix, "12a") from the street name. Addresses without one stay whole.
func splitStreet(s string) (street, houseNumber string) {
	s = strings.TrimSpace(s)
	idx := strings.LastIndex(s, " ")
	if idx < 0 {
		return s, ""
	}
	tail := s[idx+1:]
	if tail == "" || tail[0] < '0' || tail[0] > '9' {
		return s, ""
	}
	return s[:idx], tail
}

func phoneTypeOf(f *govcard.Field) contacts.PhoneType {
	for _, typ := range f.Params.Types() {
		switch strings.ToLower(typ) {
		case strings.ToLower(govcard.TypeCell):
			return contacts.PhoneMobile
		case strings.ToLower(govcard.TypeHome):
			return contacts.PhoneLandline
		}
	}
	return contacts.PhoneOther
}

func parseBirthday(value string) (time.Time, error) {
	for _, layout := range birthdayLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, &errors.NormalizationError{
		Field:   "birthday",
		Value:   value,
		Message: "unrecognized BDAY format",
	}
}

func fromPhoto(f *govcard.Field) (*contacts.Photo, error) {
	value := f.Value
	if value == "" {
		return nil, nil
	}

	// vCard 4.0 embeds the image as a data URI.
	if strings.HasPrefix(value, "data:") {
		rest := strings.TrimPrefix(value, "data:")
		mediaType, data, ok := strings.Cut(rest, ",")
		if !ok {
			return nil, &errors.NormalizationError{Field: "photo", Value: "data:...", Message: "malformed data URI"}
		}
		subtype := "jpeg"
		if mt := strings.TrimSuffix(mediaType, ";base64"); strings.HasPrefix(mt, "image/") {
			subtype = strings.TrimPrefix(mt, "image/")
		}
		raw, err := base64.StdEncoding.DecodeString(data)
		if err != nil {
			return nil, errors.WrapParse("base64", "photo", err)
		}
		return &contacts.Photo{Data: raw, Subtype: subtype}, nil
	}

	// vCard 3.0 uses ENCODING=b with a TYPE parameter.
	if strings.EqualFold(f.Params.Get("ENCODING"), "b") {
		raw, err := base64.StdEncoding.DecodeString(value)
		if err != nil {
			return nil, errors.WrapParse("base64", "photo", err)
		}
		subtype := strings.ToLower(f.Params.Get(govcard.ParamType))
		if subtype == "" {
			subtype = "jpeg"
		}
		return &contacts.Photo{Data: raw, Subtype: subtype}, nil
	}

	// External URL photo. Kept as an opaque reference so that it counts as
	// present and round-trips unchanged.
	return &contacts.Photo{URI: value}, nil
}

func photoDataURI(p *contacts.Photo) string {
	if p.URI != "" {
		return p.URI
	}
	subtype := p.Subtype
	if subtype == "" {
		subtype = "jpeg"
	}
	return fmt.Sprintf("data:image/%s;base64,%s", subtype, base64.StdEncoding.EncodeToString(p.Data))
}
