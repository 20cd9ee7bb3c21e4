package vss

// commitMsg carries one dealer's Pedersen commitments to its two
// polynomials' coefficients, broadcast via RBC so every party agrees
// on the same commitment set (step 1).
type commitMsg struct {
	C [][]byte // C_{j,k} for k = 0..t, big-endian
}

// shareMsg carries one dealer's private share pair to a single
// recipient, sent over AIOU (step 1).
type shareMsg struct {
	S  []byte
	Sp []byte
}

// complaintMsg is broadcast by a recipient whose verification equation
// failed for a given dealer (step 2).
type complaintMsg struct {
	Against uint32
}

// defenseMsg is broadcast by an accused dealer, revealing the shares it
// sent to each complaining party so every party can re-verify in public
// (step 3).
type defenseMsg struct {
	For []uint32
	S   [][]byte
	Sp  [][]byte
}
