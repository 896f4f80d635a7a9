package match

import (
	"sort"

	"github.com/AkaBlas/akadressen-utils/pkg/contacts"
	"github.com/AkaBlas/akadressen-utils/pkg/normalize"
)

// Index holds the lookup structures over the existing contacts. It is
// rebuilt from scratch every run; nothing survives between runs.
type Index struct {
	countryCode string
	byName      map[normalize.Key][]*contacts.ContactRecord
	byPhone     map[string][]*contacts.ContactRecord
}

// NewIndex builds an index over the existing contacts, keyed by normalized
// name and by every normalizable phone number. Contact phone numbers that
// cannot be normalized are left out of the phone index; the contact stays
// reachable by name.
func NewIndex(existing []contacts.ContactRecord, countryCode string) *Index {
	ix := &Index{
		countryCode: countryCode,
		byName:      make(map[normalize.Key][]*contacts.ContactRecord, len(existing)),
		byPhone:     make(map[string][]*contacts.ContactRecord),
	}

	for i := range existing {
		c := &existing[i]
		if key := normalize.NameKey(c.Name.Given, c.Name.Family); !key.IsZero() {
			ix.byName[key] = append(ix.byName[key], c)
		}
		for _, phone := range c.Phones {
			canonical, err := normalize.Phone(phone.Number, countryCode)
			if err != nil {
				continue
			}
			ix.byPhone[canonical] = appendUnique(ix.byPhone[canonical], c)
		}
	}

	return ix
}

// Match finds the contact(s) a roster record denotes. The phone number is
// the stronger identity signal: when name and phone point at different
// contacts and the phone side names exactly one, that one wins and the
// divergence is flagged instead of reporting an ambiguity.
func (ix *Index) Match(rec contacts.RosterRecord) Result {
	nameSet := ix.byName[normalize.NameKey(rec.GivenName, rec.FamilyName)]

	var phoneSet []*contacts.ContactRecord
	for _, phone := range rec.Phones {
		canonical, err := normalize.Phone(phone.Number, ix.countryCode)
		if err != nil {
			continue
		}
		for _, c := range ix.byPhone[canonical] {
			phoneSet = appendUnique(phoneSet, c)
		}
	}

	union := append([]*contacts.ContactRecord(nil), nameSet...)
	for _, c := range phoneSet {
		union = appendUnique(union, c)
	}

	switch {
	case len(union) == 0:
		return Result{Kind: KindUnmatched, Record: rec}

	case len(union) == 1:
		c := union[0]
		byName := containsUID(nameSet, c.UID)
		byPhone := containsUID(phoneSet, c.UID)
		confidence := ConfidenceMedium
		if byName && byPhone {
			confidence = ConfidenceHigh
		}
		return Result{
			Kind:         KindMatched,
			Record:       rec,
			Contact:      c,
			Confidence:   confidence,
			NameDiverged: byPhone && !byName && len(nameSet) == 0 && rec.Name().String() != "",
		}

	case len(phoneSet) == 1:
		// The candidates disagree but the phone names a single contact. The
		// name only diverged when that contact is not among the name hits.
		return Result{
			Kind:         KindMatched,
			Record:       rec,
			Contact:      phoneSet[0],
			Confidence:   ConfidenceMedium,
			NameDiverged: !containsUID(nameSet, phoneSet[0].UID),
		}

	default:
		sort.Slice(union, func(i, j int) bool { return union[i].UID < union[j].UID })
		return Result{Kind: KindAmbiguous, Record: rec, Candidates: union}
	}
}

// MatchAll matches every roster record. The returned slice partitions the
// input: one result per record, in input order.
func (ix *Index) MatchAll(records []contacts.RosterRecord) []Result {
	results := make([]Result, 0, len(records))
	for _, rec := range records {
		results = append(results, ix.Match(rec))
	}
	return results
}

func appendUnique(set []*contacts.ContactRecord, c *contacts.ContactRecord) []*contacts.ContactRecord {
	if containsUID(set, c.UID) {
		return set
	}
	return append(set, c)
}

func containsUID(set []*contacts.ContactRecord, uid string) bool {
	for _, c := range set {
		if c.UID == uid {
			return true
		}
	}
	return false
}
