package ledger

import (
	"strings"

	"github.com/pkg/errors"
)

// SignatureVerifier checks sig over msg against pub.  Malformed input
// is a false result, never a panic.
type SignatureVerifier interface {
	Verify(pub, msg, sig []byte) bool
}

// VerifierFunc adapts a function to SignatureVerifier.
type VerifierFunc func(pub, msg, sig []byte) bool

func (f VerifierFunc) Verify(pub, msg, sig []byte) bool {
	return f(pub, msg, sig)
}

// ChainStore loads and saves the whole ordered block sequence.
type ChainStore interface {
	Load() ([]Block, error)
	Save(blocks []Block) error
}

// Appender is implemented by stores that can add one block without
// rewriting the chain.
type Appender interface {
	Append(b Block) error
}

// PeerBroadcaster is told about every appended block.
type PeerBroadcaster interface {
	Announce(b Block) error
}

// Peers announces to each of its members in turn.
type Peers []PeerBroadcaster

func (peers Peers) Announce(b Block) (err error) {
	var msgs []string
	for _, peer := range peers {
		if peer == nil {
			continue
		}
		e := peer.Announce(b)
		if e != nil {
			msgs = append(msgs, e.Error())
		}
	}
	if len(msgs) > 0 {
		err = errors.Errorf("announce: %s", strings.Join(msgs, "; "))
	}
	return
}

// MemStore is a ChainStore that keeps a copy of the chain in memory.
type MemStore struct {
	blocks []Block
}

func (s *MemStore) Load() ([]Block, error) {
	return append([]Block(nil), s.blocks...), nil
}

func (s *MemStore) Save(blocks []Block) error {
	s.blocks = append([]Block(nil), blocks...)
	return nil
}
