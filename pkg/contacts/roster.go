package contacts

import "time"

// RosterRecord is one row of the AkaDressen roster. Records are produced
// fresh on every run and immutable once parsed.
type RosterRecord struct {
	GivenName  string
	FamilyName string
	Nickname   string

	Birthday *time.Time
	Address  *Address
	Phones   []Phone
	Email    string

	// Instrument is the spelled-out instrument the member plays.
	Instrument string
	// Joined is the year of joining, zero when unknown.
	Joined int
}

// Name returns the roster row's name as a structured name.
func (r RosterRecord) Name() Name {
	return Name{Given: r.GivenName, Family: r.FamilyName}
}

// DisplayName returns the full display name including a nickname when
// present, e.g. `John (Jo) Doe`.
func (r RosterRecord) DisplayName() string {
	if r.Nickname == "" {
		return r.Name().String()
	}
	return r.GivenName + " (" + r.Nickname + ") " + r.FamilyName
}
