package ledger

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Ledger owns the chain.  Submit is its only mutator; submissions are
// serialized, and readers only ever see mined, appended blocks.
type Ledger struct {
	cfg      Config
	verifier SignatureVerifier
	store    ChainStore
	peers    PeerBroadcaster

	// held for the whole of a submission
	submitMu sync.Mutex

	// guards blocks
	mu     sync.RWMutex
	blocks []Block
}

// New returns a ledger backed by store.  A chain loaded from store is
// verified before use; an empty store gets a freshly mined genesis
// block.  store and peers may be nil.
func New(ctx context.Context, cfg Config, verifier SignatureVerifier, store ChainStore, peers PeerBroadcaster) (l *Ledger, err error) {
	if verifier == nil {
		return nil, errors.New("nil signature verifier")
	}
	cfg, err = cfg.check()
	if err != nil {
		return
	}
	l = &Ledger{
		cfg:      cfg,
		verifier: verifier,
		store:    store,
		peers:    peers,
	}

	if store != nil {
		var blocks []Block
		blocks, err = store.Load()
		if err != nil {
			return nil, errors.Wrap(err, "load chain")
		}
		if len(blocks) > 0 {
			err = VerifyChain(blocks, cfg.Difficulty)
			if err != nil {
				return nil, err
			}
			l.blocks = blocks
			log.Debugf("loaded %d blocks, head %s", len(blocks), blocks[len(blocks)-1].Hash())
			return l, nil
		}
	}

	u := NewUnminedBlock("", GenesisTransaction(cfg.GenesisHolder), l.now())
	genesis, err := u.Mine(ctx, cfg.Difficulty, cfg.MaxIterations)
	if err != nil {
		return nil, err
	}
	l.submitMu.Lock()
	defer l.submitMu.Unlock()
	err = l.append(genesis)
	if err != nil {
		return nil, err
	}
	return l, nil
}

// Config returns the ledger's effective configuration.
func (l *Ledger) Config() Config {
	return l.cfg
}

// Submit admits tx: it checks that tx has a canonical encoding, that
// pub belongs to the payer, and the payer's signature over the
// transaction's canonical bytes, then mines a block linked to the
// current head and appends it.  On any error
// the chain is unchanged.
func (l *Ledger) Submit(ctx context.Context, tx Transaction, pub, signature []byte) (b Block, err error) {
	err = tx.Check()
	if err != nil {
		log.Debugf("rejected submission: malformed transaction")
		return Block{}, err
	}
	if !l.cfg.AllowUnboundPayer && KeyID(pub) != tx.Payer {
		log.Debugf("rejected submission: payer binding")
		return Block{}, ErrPayerMismatch
	}
	if !l.verify(pub, tx.CanonicalBytes(), signature) {
		log.Debugf("rejected submission: signature")
		return Block{}, ErrInvalidSignature
	}

	l.submitMu.Lock()
	defer l.submitMu.Unlock()

	head := l.LastBlock()
	ts := l.now()
	if ts < head.Timestamp() {
		ts = head.Timestamp()
	}
	u := NewUnminedBlock(head.Hash(), tx, ts)
	b, err = u.Mine(ctx, l.cfg.Difficulty, l.cfg.MaxIterations)
	if err != nil {
		return Block{}, err
	}

	err = l.append(b)
	if err != nil {
		return Block{}, err
	}

	if l.peers != nil {
		err := l.peers.Announce(b)
		if err != nil {
			log.Warnf("block %s: %v", b.Hash(), err)
		}
	}
	return b, nil
}

// append stores b and adds it to the chain.  Caller holds submitMu.
func (l *Ledger) append(b Block) (err error) {
	l.mu.RLock()
	blocks := l.blocks
	l.mu.RUnlock()

	switch {
	case len(blocks) == 0 && !b.IsGenesis():
		return errors.Wrap(ErrInvalidLinkage, "first block must be genesis")
	case len(blocks) > 0 && b.PrevHash() != blocks[len(blocks)-1].Hash():
		return errors.Wrapf(ErrInvalidLinkage, "prevHash %s, head %s", b.PrevHash(), blocks[len(blocks)-1].Hash())
	}

	if l.store != nil {
		if appender, ok := l.store.(Appender); ok {
			err = appender.Append(b)
		} else {
			all := make([]Block, len(blocks), len(blocks)+1)
			copy(all, blocks)
			err = l.store.Save(append(all, b))
		}
		if err != nil {
			return errors.Wrap(err, "store block")
		}
	}

	l.mu.Lock()
	l.blocks = append(l.blocks, b)
	height := len(l.blocks) - 1
	l.mu.Unlock()

	log.Infof("appended block %d %.12s", height, b.Hash())
	return
}

func (l *Ledger) verify(pub, msg, signature []byte) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Warnf("signature verifier panic: %v", r)
			ok = false
		}
	}()
	return l.verifier.Verify(pub, msg, signature)
}

func (l *Ledger) now() int64 {
	return l.cfg.Now().UnixMilli()
}

// LastBlock returns the most recently appended block.
func (l *Ledger) LastBlock() Block {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.blocks[len(l.blocks)-1]
}

// AllBlocks returns a snapshot of the chain, genesis first.
func (l *Ledger) AllBlocks() []Block {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Block, len(l.blocks))
	copy(out, l.blocks)
	return out
}

// Block returns the block at height.
func (l *Ledger) Block(height int) (b Block, ok bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if height < 0 || height >= len(l.blocks) {
		return
	}
	return l.blocks[height], true
}

func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.blocks)
}

// Verify re-checks the whole chain.
func (l *Ledger) Verify() error {
	return VerifyChain(l.AllBlocks(), l.cfg.Difficulty)
}

// VerifyChain checks that blocks start with a genesis block, that
// every block links to its predecessor, and that every block carries
// a valid proof of work for target.
func VerifyChain(blocks []Block, target string) error {
	if len(blocks) == 0 {
		return errors.Wrap(ErrCorruptChain, "no blocks")
	}
	for i, b := range blocks {
		tx := b.Transaction()
		if i == 0 {
			if !b.IsGenesis() || !tx.IsGenesis() || tx.Amount != GenesisAmount {
				return errors.Wrapf(ErrCorruptChain, "block 0 is not a genesis block: %s", b)
			}
		} else if b.PrevHash() != blocks[i-1].Hash() {
			return errors.Wrapf(ErrCorruptChain, "block %d: prevHash %s does not match %s", i, b.PrevHash(), blocks[i-1].Hash())
		}
		if !b.CheckWork(target) {
			return errors.Wrapf(ErrCorruptChain, "block %d: nonce %d does not meet difficulty %q", i, b.Nonce(), target)
		}
	}
	return nil
}

// Balances folds the transfers in blocks into per-key totals.  It is
// informational; admission does not consult it.
func Balances(blocks []Block) map[string]float64 {
	bal := make(map[string]float64)
	for _, b := range blocks {
		tx := b.Transaction()
		if !tx.IsGenesis() {
			bal[tx.Payer] -= tx.Amount
		}
		bal[tx.Payee] += tx.Amount
	}
	return bal
}
