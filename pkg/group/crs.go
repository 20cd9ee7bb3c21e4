package group

import (
	"fmt"
	"strings"

	"github.com/luxfi/tmcgcore/pkg/bigint"
)

// crsRadix is the base used to encode integers in the CRS record;
// configurable, but the encoder and decoder must agree.
const crsRadix = 36

// EncodeCRS renders the group's (p, q, g, k) as the fixed `|`-delimited
// fixed ASCII record:
//
//	crs|<p>|<q>|<g>|<k>|
func (grp *Group) EncodeCRS() string {
	var b strings.Builder
	b.WriteString("crs|")
	b.WriteString(grp.P.Text(crsRadix))
	b.WriteString("|")
	b.WriteString(grp.Q.Text(crsRadix))
	b.WriteString("|")
	b.WriteString(grp.G.Text(crsRadix))
	b.WriteString("|")
	b.WriteString(grp.K.Text(crsRadix))
	b.WriteString("|")
	return b.String()
}

// DecodeCRS parses a record produced by EncodeCRS. Parsing is strict:
// any field with non-digit characters (in the configured radix), a
// missing separator, or k <= 1 is rejected.
func DecodeCRS(record string) (*Group, error) {
	fields := strings.Split(record, "|")
	// "crs|p|q|g|k|" splits into ["crs","p","q","g","k",""]
	if len(fields) != 6 || fields[0] != "crs" || fields[5] != "" {
		return nil, fmt.Errorf("group: malformed CRS record")
	}
	p, err := bigint.FromString(fields[1], crsRadix)
	if err != nil {
		return nil, fmt.Errorf("group: bad p: %w", err)
	}
	q, err := bigint.FromString(fields[2], crsRadix)
	if err != nil {
		return nil, fmt.Errorf("group: bad q: %w", err)
	}
	g, err := bigint.FromString(fields[3], crsRadix)
	if err != nil {
		return nil, fmt.Errorf("group: bad g: %w", err)
	}
	k, err := bigint.FromString(fields[4], crsRadix)
	if err != nil {
		return nil, fmt.Errorf("group: bad k: %w", err)
	}
	if k.Cmp(bigint.NewInt(1)) <= 0 {
		return nil, fmt.Errorf("group: k must be > 1, got %s", k.Text(10))
	}
	return &Group{P: p, Q: q, G: g, K: k}, nil
}
