// Package report renders the auditable outcome of a reconciliation run. The
// report is a first-class output, not a log side effect: every roster record
// shows up with its match outcome, every merged contact with its added
// fields, and the ambiguous and unmatched leftovers are listed for manual
// review before the next upload.
package report

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/agentstation/utc"
	"github.com/goccy/go-yaml"

	"github.com/AkaBlas/akadressen-utils/pkg/contacts"
	"github.com/AkaBlas/akadressen-utils/pkg/errors"
	"github.com/AkaBlas/akadressen-utils/pkg/match"
	"github.com/AkaBlas/akadressen-utils/pkg/merge"
)

// ContactEntry is one matched or created contact with its change tags.
type ContactEntry struct {
	UID          string           `yaml:"uid"`
	Name         string           `yaml:"name"`
	Outcome      match.Kind       `yaml:"outcome"`
	Confidence   match.Confidence `yaml:"confidence,omitempty"`
	NameDiverged bool             `yaml:"name_diverged,omitempty"`
	Created      bool             `yaml:"created,omitempty"`
	Changes      []merge.Change   `yaml:"changes,omitempty"`
}

// ReviewEntry is a roster record that needs manual action: an ambiguity
// (with all candidates) or a record skipped over a bad field.
type ReviewEntry struct {
	Name       string   `yaml:"name"`
	Reason     string   `yaml:"reason"`
	Candidates []string `yaml:"candidates,omitempty"`
}

// UploadFailure is a record the store rejected.
type UploadFailure struct {
	UID   string `yaml:"uid"`
	Name  string `yaml:"name"`
	Error string `yaml:"error"`
}

// Summary carries the run statistics.
type Summary struct {
	RosterRecords int `yaml:"roster_records"`
	Existing      int `yaml:"existing_contacts"`
	Matched       int `yaml:"matched"`
	Created       int `yaml:"created"`
	Ambiguous     int `yaml:"ambiguous"`
	Skipped       int `yaml:"skipped"`
	FieldsAdded   int `yaml:"fields_added"`
	PhotosAdded   int `yaml:"photos_added"`
	Uploaded      int `yaml:"uploaded"`
	UploadErrors  int `yaml:"upload_errors"`
}

// Report is the full outcome of one reconciliation run.
type Report struct {
	RunDate utc.Time `yaml:"run_date"`
	Summary Summary  `yaml:"summary"`

	Contacts  []ContactEntry  `yaml:"contacts,omitempty"`
	Ambiguous []ReviewEntry   `yaml:"ambiguous,omitempty"`
	Skipped   []ReviewEntry   `yaml:"skipped,omitempty"`
	Uploads   []UploadFailure `yaml:"upload_failures,omitempty"`
}

// New creates an empty report stamped with the run date.
func New(runDate utc.Time) *Report {
	return &Report{RunDate: runDate}
}

// AddMerged records a merged (or created) contact.
func (r *Report) AddMerged(res match.Result, merged merge.Merged) {
	entry := ContactEntry{
		UID:          merged.Contact.UID,
		Name:         merged.Contact.Name.String(),
		Outcome:      res.Kind,
		Confidence:   res.Confidence,
		NameDiverged: res.NameDiverged,
		Created:      merged.Created,
		Changes:      merged.Changes,
	}
	r.Contacts = append(r.Contacts, entry)

	if merged.Created {
		r.Summary.Created++
	} else {
		r.Summary.Matched++
	}
	for _, ch := range merged.Added() {
		r.Summary.FieldsAdded++
		if ch.Kind == contacts.FieldPhoto {
			r.Summary.PhotosAdded++
		}
	}
}

// AddAmbiguous records an ambiguous match for manual review.
func (r *Report) AddAmbiguous(res match.Result) {
	entry := ReviewEntry{
		Name:   res.Record.DisplayName(),
		Reason: "several existing contacts match; resolve manually",
	}
	for _, c := range res.Candidates {
		entry.Candidates = append(entry.Candidates, fmt.Sprintf("%s (%s)", c.Name.String(), c.UID))
	}
	r.Ambiguous = append(r.Ambiguous, entry)
	r.Summary.Ambiguous++
}

// AddSkipped records a roster record dropped over a malformed field.
func (r *Report) AddSkipped(name string, err error) {
	r.Skipped = append(r.Skipped, ReviewEntry{Name: name, Reason: err.Error()})
	r.Summary.Skipped++
}

// AddUploadFailure records a store rejection.
func (r *Report) AddUploadFailure(uid, name string, err error) {
	r.Uploads = append(r.Uploads, UploadFailure{UID: uid, Name: name, Error: err.Error()})
	r.Summary.UploadErrors++
}

// HasChanges reports whether the run added anything anywhere.
func (r *Report) HasChanges() bool {
	return r.Summary.FieldsAdded > 0
}

// NeedsReview reports whether manual action is required before the next
// upload.
func (r *Report) NeedsReview() bool {
	return r.Summary.Ambiguous > 0 || r.Summary.Skipped > 0 || r.Summary.UploadErrors > 0
}

// String returns a one-line summary.
func (r *Report) String() string {
	s := r.Summary
	if !r.HasChanges() && !r.NeedsReview() {
		return "No changes detected"
	}
	parts := []string{
		fmt.Sprintf("%d matched", s.Matched),
		fmt.Sprintf("%d created", s.Created),
		fmt.Sprintf("%d fields added", s.FieldsAdded),
	}
	if s.Ambiguous > 0 {
		parts = append(parts, fmt.Sprintf("%d ambiguous", s.Ambiguous))
	}
	if s.Skipped > 0 {
		parts = append(parts, fmt.Sprintf("%d skipped", s.Skipped))
	}
	if s.UploadErrors > 0 {
		parts = append(parts, fmt.Sprintf("%d upload failures", s.UploadErrors))
	}
	return fmt.Sprintf("Run %s: %s", r.RunDate.Format("2006-01-02"), strings.Join(parts, ", "))
}

// Print writes a detailed human-readable view to w (os.Stdout when nil).
func (r *Report) Print(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}

	fmt.Fprintln(w, r.String())
	fmt.Fprintln(w, strings.Repeat("─", 72))

	var changed []ContactEntry
	for _, entry := range r.Contacts {
		if len(filterAdded(entry.Changes)) > 0 {
			changed = append(changed, entry)
		}
	}

	if len(changed) > 0 {
		fmt.Fprintf(w, "\nUpdated contacts (%d):\n", len(changed))
		for _, entry := range changed {
			marker := ""
			if entry.Created {
				marker = " [new]"
			}
			if entry.NameDiverged {
				marker += " [name diverged]"
			}
			fmt.Fprintf(w, "  • %s%s\n", entry.Name, marker)
			for _, ch := range filterAdded(entry.Changes) {
				fmt.Fprintf(w, "    + %s: %s\n", ch.Kind, ch.Value)
			}
		}
	}

	if len(r.Ambiguous) > 0 {
		fmt.Fprintf(w, "\nAmbiguous (%d, manual review required):\n", len(r.Ambiguous))
		for _, entry := range r.Ambiguous {
			fmt.Fprintf(w, "  • %s\n", entry.Name)
			for _, c := range entry.Candidates {
				fmt.Fprintf(w, "    ? %s\n", c)
			}
		}
	}

	if len(r.Skipped) > 0 {
		fmt.Fprintf(w, "\nSkipped (%d):\n", len(r.Skipped))
		for _, entry := range r.Skipped {
			fmt.Fprintf(w, "  • %s: %s\n", entry.Name, entry.Reason)
		}
	}

	if len(r.Uploads) > 0 {
		fmt.Fprintf(w, "\nUpload failures (%d):\n", len(r.Uploads))
		for _, f := range r.Uploads {
			fmt.Fprintf(w, "  • %s (%s): %s\n", f.Name, f.UID, f.Error)
		}
	}
}

// WriteYAML persists the report.
func (r *Report) WriteYAML(path string) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return errors.WrapParse("yaml", path, err)
	}
	return errors.WrapIO("write", path, os.WriteFile(path, data, 0o644))
}

func filterAdded(changes []merge.Change) []merge.Change {
	var out []merge.Change
	for _, ch := range changes {
		if ch.Status == merge.StatusAdded {
			out = append(out, ch)
		}
	}
	return out
}
