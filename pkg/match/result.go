// Package match pairs roster records with the existing contacts they denote.
// Matching goes through normalized name and phone keys; every roster record
// ends up in exactly one of the three outcomes, and ambiguous ones are never
// guessed among.
package match

import (
	"github.com/AkaBlas/akadressen-utils/pkg/contacts"
)

// Kind is the outcome variant of matching one roster record.
type Kind string

// The three outcomes. They partition the roster input.
const (
	// KindMatched means exactly one existing contact denotes the record.
	KindMatched Kind = "matched"
	// KindUnmatched means no existing contact denotes the record.
	KindUnmatched Kind = "unmatched"
	// KindAmbiguous means several contacts could denote the record and the
	// engine refuses to choose.
	KindAmbiguous Kind = "ambiguous"
)

// Confidence grades a Matched outcome.
type Confidence string

// Confidence grades.
const (
	// ConfidenceHigh means both name and phone pointed at the contact.
	ConfidenceHigh Confidence = "high"
	// ConfidenceMedium means only one of the two signals matched.
	ConfidenceMedium Confidence = "medium"
)

// Result is the outcome of matching one roster record. Kind selects which of
// the remaining fields are meaningful; consumers must switch exhaustively on
// it and treat unknown kinds as an error rather than merging anyway.
type Result struct {
	Kind   Kind
	Record contacts.RosterRecord

	// Contact is the matched contact. Set iff Kind is KindMatched.
	Contact *contacts.ContactRecord
	// Confidence grades the match. Set iff Kind is KindMatched.
	Confidence Confidence
	// NameDiverged is set when the match was decided by phone number while
	// the roster name points elsewhere, for manual review in the report.
	NameDiverged bool

	// Candidates holds all contenders. Set iff Kind is KindAmbiguous.
	Candidates []*contacts.ContactRecord
}
