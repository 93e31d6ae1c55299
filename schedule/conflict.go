package schedule

import (
	"sort"
)

// =============================================================================
// CONFLICT DETECTION - Overlapping sessions on a shared resource
// =============================================================================

// ConflictPair is an unordered pair of occurrence ids whose intervals
// overlap on the same resource. A is always the lexically smaller id so
// pairs compare and deduplicate cleanly.
type ConflictPair struct {
	A SessionID
	B SessionID
}

func newConflictPair(a, b SessionID) ConflictPair {
	if b < a {
		a, b = b, a
	}
	return ConflictPair{A: a, B: b}
}

// ConflictReport lists every conflicting pair found in one detection pass.
// Purely advisory: the engine never rejects or cancels on its own, since
// the embedding application may allow intentional double-booking (group
// sessions).
type ConflictReport struct {
	Pairs []ConflictPair
}

func (r ConflictReport) HasConflicts() bool { return len(r.Pairs) > 0 }

// Involves reports whether the given occurrence appears in any pair.
func (r ConflictReport) Involves(id SessionID) bool {
	for _, p := range r.Pairs {
		if p.A == id || p.B == id {
			return true
		}
	}
	return false
}

// Detect finds all pairs of occurrences that overlap while sharing a
// resource. Occurrences are grouped by resource, sorted by start, and
// swept once: each occurrence is compared against its successors only
// while their intervals can still overlap, O(n log n) per resource plus
// output size.
func Detect(occurrences []SessionOccurrence) ConflictReport {
	byResource := make(map[ResourceID][]SessionOccurrence)
	for _, o := range occurrences {
		byResource[o.ResourceID] = append(byResource[o.ResourceID], o)
	}

	var report ConflictReport
	for _, group := range byResource {
		sort.Slice(group, func(i, j int) bool {
			return group[i].Interval.Start().Before(group[j].Interval.Start())
		})
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				if !group[j].Interval.Start().Before(group[i].Interval.End()) {
					// Sorted by start: nothing further can overlap i.
					break
				}
				report.Pairs = append(report.Pairs, newConflictPair(group[i].ID, group[j].ID))
			}
		}
	}

	sort.Slice(report.Pairs, func(i, j int) bool {
		if report.Pairs[i].A != report.Pairs[j].A {
			return report.Pairs[i].A < report.Pairs[j].A
		}
		return report.Pairs[i].B < report.Pairs[j].B
	})
	return report
}

// CheckProposed inserts a proposed occurrence into the relevant resource
// group and reports only the conflicts involving it. The caller decides
// whether a reported conflict blocks creation.
func CheckProposed(existing []SessionOccurrence, proposed SessionOccurrence) ConflictReport {
	pool := make([]SessionOccurrence, 0, len(existing)+1)
	for _, o := range existing {
		if o.ResourceID == proposed.ResourceID {
			pool = append(pool, o)
		}
	}
	pool = append(pool, proposed)

	full := Detect(pool)
	var report ConflictReport
	for _, p := range full.Pairs {
		if p.A == proposed.ID || p.B == proposed.ID {
			report.Pairs = append(report.Pairs, p)
		}
	}
	return report
}
