package txintent

import mapset "github.com/deckarep/golang-set/v2"

// Input is an ordered sequence of intents plus the positions, within the
// *parent* Input's sequence, of intents the parent's observed pool still
// contains and that must therefore be re-sent verbatim to recreate that
// pool state (spec.md §3).
//
// An empty Sequence denotes the initial seed.
type Input struct {
	Sequence      []Intent
	ResendIndices mapset.Set[int]
}

// Empty returns the zero-value Input representing the fuzzer's starting
// point: no transactions, nothing to resend.
func Empty() Input {
	return Input{ResendIndices: mapset.NewThreadUnsafeSet[int]()}
}

// New builds an Input, defaulting a nil resend set to empty rather than nil
// so callers can range over it unconditionally.
func New(sequence []Intent, resend mapset.Set[int]) Input {
	if resend == nil {
		resend = mapset.NewThreadUnsafeSet[int]()
	}
	return Input{Sequence: sequence, ResendIndices: resend}
}

// Clone deep-copies the sequence (Intents are value types, so a slice copy
// suffices) so a mutation strategy can append without aliasing the parent's
// backing array.
func (in Input) Clone() []Intent {
	out := make([]Intent, len(in.Sequence))
	copy(out, in.Sequence)
	return out
}

// NonceZeroIntents returns every intent in the sequence whose Nonce is zero,
// in sequence order (their positions are not returned) — the "price ladder"
// of nonce-0 (parent)
// intents used by the price-laddering mutations (spec.md §4.5).
func (in Input) NonceZeroIntents() []Intent {
	var out []Intent
	for _, i := range in.Sequence {
		if i.Nonce == 0 {
			out = append(out, i)
		}
	}
	return out
}
