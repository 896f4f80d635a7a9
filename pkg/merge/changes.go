// Package merge produces updated contact records from matched roster data
// under a strict append-only policy: values already present on a contact are
// never deleted or replaced, new values are appended by normalized equality,
// and every visited field carries a change tag for the audit report.
package merge

import (
	"github.com/AkaBlas/akadressen-utils/pkg/contacts"
)

// Status tags the outcome of visiting one field value. There is no
// "removed": the merger cannot express deletion.
type Status string

// Change statuses.
const (
	// StatusAdded means the value was appended to the contact.
	StatusAdded Status = "added"
	// StatusUnchanged means an equal value was already present.
	StatusUnchanged Status = "unchanged"
)

// Change records the outcome for one field value visited during a merge.
type Change struct {
	Kind   contacts.FieldKind `yaml:"field"`
	Value  string             `yaml:"value"`
	Status Status             `yaml:"status"`
}

// Merged is a contact after merging, together with the audit trail of the
// merge. The UID is preserved verbatim from the input contact, or freshly
// allocated when the contact was created from an unmatched roster record.
type Merged struct {
	Contact contacts.ContactRecord
	// Created is set when the contact did not exist before this run.
	Created bool
	Changes []Change
}

// Added returns the changes tagged as added.
func (m Merged) Added() []Change {
	var out []Change
	for _, ch := range m.Changes {
		if ch.Status == StatusAdded {
			out = append(out, ch)
		}
	}
	return out
}

// HasChanges reports whether the merge added anything.
func (m Merged) HasChanges() bool {
	for _, ch := range m.Changes {
		if ch.Status == StatusAdded {
			return true
		}
	}
	return false
}
