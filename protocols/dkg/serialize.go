package dkg

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/luxfi/tmcgcore/pkg/bigint"
	"github.com/luxfi/tmcgcore/pkg/group"
	"github.com/luxfi/tmcgcore/pkg/party"
)

// serializationVersion is the first line of every exported Config,
// allowing future format changes to be rejected cleanly rather than
// silently misparsed.
const serializationVersion = "tmcgcore-dkg-v2"

// Export serializes (p, q, g, h, n, t, i, QUAL, x_i, x'_i, y, [y_j],
// [C_{j,k}], [A_{j,k}]) as ASCII-decimal integers in the fixed order
// names, one field per line.
func (c *Config) Export(w io.Writer) error {
	bw := bufio.NewWriter(w)
	writeLine := func(s string) error {
		_, err := bw.WriteString(s + "\n")
		return err
	}
	writeInt := func(x *bigint.Int) error { return writeLine(x.Text(10)) }

	if err := writeLine(serializationVersion); err != nil {
		return err
	}
	for _, x := range []*bigint.Int{c.Grp.P, c.Grp.Q, c.Grp.G, c.Grp.H} {
		if err := writeInt(x); err != nil {
			return err
		}
	}
	if err := writeLine(strconv.Itoa(c.N)); err != nil {
		return err
	}
	if err := writeLine(strconv.Itoa(c.T)); err != nil {
		return err
	}
	if err := writeLine(strconv.FormatUint(uint64(c.Self), 10)); err != nil {
		return err
	}
	if err := writeLine(strconv.Itoa(c.QUAL.Len())); err != nil {
		return err
	}
	for _, j := range c.QUAL {
		if err := writeLine(strconv.FormatUint(uint64(j), 10)); err != nil {
			return err
		}
	}
	if err := writeInt(c.X); err != nil {
		return err
	}
	if err := writeInt(c.Xp); err != nil {
		return err
	}
	if err := writeInt(c.Y); err != nil {
		return err
	}
	for _, j := range c.QUAL {
		if err := writeInt(c.Yj[j]); err != nil {
			return err
		}
	}
	for _, j := range c.QUAL {
		commits := c.Commitments[j]
		if err := writeLine(strconv.Itoa(len(commits))); err != nil {
			return err
		}
		for _, cjk := range commits {
			if err := writeInt(cjk); err != nil {
				return err
			}
		}
	}
	for _, j := range c.QUAL {
		feldman := c.FeldmanCommitments[j]
		if err := writeLine(strconv.Itoa(len(feldman))); err != nil {
			return err
		}
		for _, ajk := range feldman {
			if err := writeInt(ajk); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

// Import parses a Config previously written by Export. Parsing is
// strict: any non-decimal field, any missing field, or any trailing
// data after the last expected field aborts with an error (
// "parsing is strict, extra or missing fields abort").
func Import(r io.Reader) (*Config, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	next := func(what string) (string, error) {
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return "", fmt.Errorf("dkg: import: reading %s: %w", what, err)
			}
			return "", fmt.Errorf("dkg: import: missing field %s", what)
		}
		return strings.TrimSpace(sc.Text()), nil
	}
	nextInt := func(what string) (*bigint.Int, error) {
		s, err := next(what)
		if err != nil {
			return nil, err
		}
		v, perr := bigint.FromString(s, 10)
		if perr != nil {
			return nil, fmt.Errorf("dkg: import: field %s is not a decimal integer: %q", what, s)
		}
		return v, nil
	}
	nextUint := func(what string) (uint64, error) {
		s, err := next(what)
		if err != nil {
			return 0, err
		}
		v, perr := strconv.ParseUint(s, 10, 64)
		if perr != nil {
			return 0, fmt.Errorf("dkg: import: field %s is not an unsigned integer: %q", what, s)
		}
		return v, nil
	}

	version, err := next("version")
	if err != nil {
		return nil, err
	}
	if version != serializationVersion {
		return nil, fmt.Errorf("dkg: import: unsupported format version %q", version)
	}

	p, err := nextInt("p")
	if err != nil {
		return nil, err
	}
	q, err := nextInt("q")
	if err != nil {
		return nil, err
	}
	g, err := nextInt("g")
	if err != nil {
		return nil, err
	}
	h, err := nextInt("h")
	if err != nil {
		return nil, err
	}
	n64, err := nextUint("n")
	if err != nil {
		return nil, err
	}
	t64, err := nextUint("t")
	if err != nil {
		return nil, err
	}
	self, err := nextUint("i")
	if err != nil {
		return nil, err
	}
	qualLen, err := nextUint("|QUAL|")
	if err != nil {
		return nil, err
	}
	qual := make(party.IDSlice, qualLen)
	for idx := range qual {
		id, err := nextUint(fmt.Sprintf("QUAL[%d]", idx))
		if err != nil {
			return nil, err
		}
		qual[idx] = party.ID(id)
	}
	x, err := nextInt("x_i")
	if err != nil {
		return nil, err
	}
	xp, err := nextInt("x'_i")
	if err != nil {
		return nil, err
	}
	y, err := nextInt("y")
	if err != nil {
		return nil, err
	}
	yj := make(map[party.ID]*bigint.Int, qualLen)
	for _, j := range qual {
		v, err := nextInt(fmt.Sprintf("y_%d", j))
		if err != nil {
			return nil, err
		}
		yj[j] = v
	}
	commitments := make(map[party.ID][]*bigint.Int, qualLen)
	for _, j := range qual {
		cnt, err := nextUint(fmt.Sprintf("|C_%d|", j))
		if err != nil {
			return nil, err
		}
		cs := make([]*bigint.Int, cnt)
		for k := range cs {
			v, err := nextInt(fmt.Sprintf("C_%d,%d", j, k))
			if err != nil {
				return nil, err
			}
			cs[k] = v
		}
		commitments[j] = cs
	}
	feldman := make(map[party.ID][]*bigint.Int, qualLen)
	for _, j := range qual {
		cnt, err := nextUint(fmt.Sprintf("|A_%d|", j))
		if err != nil {
			return nil, err
		}
		as := make([]*bigint.Int, cnt)
		for k := range as {
			v, err := nextInt(fmt.Sprintf("A_%d,%d", j, k))
			if err != nil {
				return nil, err
			}
			as[k] = v
		}
		feldman[j] = as
	}

	if sc.Scan() {
		return nil, fmt.Errorf("dkg: import: trailing data after last expected field")
	}

	grp := &group.Group{P: p, Q: q, G: g, H: h, K: bigint.NewInt(2)}
	return &Config{
		Grp:                grp,
		N:                  int(n64),
		T:                  int(t64),
		Self:               party.ID(self),
		QUAL:               qual,
		X:                  x,
		Xp:                 xp,
		Y:                  y,
		Yj:                 yj,
		Commitments:        commitments,
		FeldmanCommitments: feldman,
	}, nil
}
