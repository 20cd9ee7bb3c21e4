// Package party defines the participant identifier set shared by every
// protocol in the core.
package party

import "sort"

// ID identifies a participant among {0, ..., N-1}.
type ID uint32

// Point returns the value used when evaluating a degree-t polynomial at
// this party's point, which is always i+1 so that no party is ever
// evaluated at the sharing's secret point 0.
func (id ID) Point() uint64 {
	return uint64(id) + 1
}

// IDSlice is a set of participant identifiers kept sorted for
// deterministic iteration (used wherever a QUAL or SIGNERS set needs
// stable ordering across parties).
type IDSlice []ID

// NewIDSlice returns a sorted copy of ids with duplicates removed.
func NewIDSlice(ids []ID) IDSlice {
	out := make(IDSlice, len(ids))
	copy(out, ids)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	dedup := out[:0]
	var last ID
	for i, id := range out {
		if i == 0 || id != last {
			dedup = append(dedup, id)
		}
		last = id
	}
	return dedup
}

// Contains reports whether id is a member of the set.
func (s IDSlice) Contains(id ID) bool {
	for _, x := range s {
		if x == id {
			return true
		}
	}
	return false
}

// Remove returns a new set with id removed, preserving order.
func (s IDSlice) Remove(id ID) IDSlice {
	out := make(IDSlice, 0, len(s))
	for _, x := range s {
		if x != id {
			out = append(out, x)
		}
	}
	return out
}

// Len is the set's cardinality.
func (s IDSlice) Len() int { return len(s) }

// Other returns every ID in the set except self.
func (s IDSlice) Other(self ID) IDSlice {
	return s.Remove(self)
}
