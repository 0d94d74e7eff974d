package ledger

import (
	"github.com/pkg/errors"
)

// Submissions fail with one of these, possibly wrapped; test with
// errors.Is.
var (
	ErrInvalidTransaction = errors.New("invalid transaction")
	ErrInvalidSignature   = errors.New("invalid signature")
	ErrPayerMismatch      = errors.New("public key does not match payer")
	ErrInvalidLinkage     = errors.New("block does not link to chain head")
	ErrMiningExhausted    = errors.New("mining iteration limit reached")
	ErrCorruptChain       = errors.New("corrupt chain")
)

// Kind returns the short name of the sentinel err wraps, or "" if
// none.  Transports use it to carry the error kind across a wire.
func Kind(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return ""
}

// FromKind returns the sentinel named by kind, or nil.
func FromKind(kind string) error {
	for _, k := range kinds {
		if k.name == kind {
			return k.err
		}
	}
	return nil
}

var kinds = []struct {
	name string
	err  error
}{
	{"InvalidTransaction", ErrInvalidTransaction},
	{"InvalidSignature", ErrInvalidSignature},
	{"PayerMismatch", ErrPayerMismatch},
	{"InvalidLinkage", ErrInvalidLinkage},
	{"MiningExhausted", ErrMiningExhausted},
	{"CorruptChain", ErrCorruptChain},
}
