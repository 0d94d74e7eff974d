package db

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/t7a/pitledger/ledger"
)

// ChainLabel is the stream label a ledger chain lives under.
const ChainLabel = "chain"

// Chain is a ledger.ChainStore and ledger.Appender backed by a stream.
type Chain struct {
	Db    *Db
	Label string
}

// Chain returns the store for the db's ledger chain.
func (db *Db) Chain() *Chain {
	return &Chain{Db: db, Label: ChainLabel}
}

func (c *Chain) linkPath() string {
	return filepath.Join(c.Db.Dir, "stream", c.Label)
}

// open returns the stream, or nil if nothing has been stored yet.
func (c *Chain) open() (stream *Stream, err error) {
	if !exists(c.linkPath()) {
		return nil, nil
	}
	return c.Db.OpenStream(c.Label)
}

// Load walks the trees back from the head and returns the blocks,
// genesis first.
func (c *Chain) Load() (blocks []ledger.Block, err error) {
	stream, err := c.open()
	if err != nil || stream == nil {
		return
	}
	tree := stream.Head
	for tree != nil {
		var prev *Tree
		var b ledger.Block
		b, prev, err = c.step(tree)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
		tree = prev
	}
	for i, j := 0, len(blocks)-1; i < j; i, j = i+1, j-1 {
		blocks[i], blocks[j] = blocks[j], blocks[i]
	}
	if !blocks[0].IsGenesis() {
		return nil, errors.Wrapf(ledger.ErrCorruptChain, "first stored block has prevHash %s", blocks[0].PrevHash())
	}
	for i := 1; i < len(blocks); i++ {
		if blocks[i].PrevHash() != blocks[i-1].Hash() {
			return nil, errors.Wrapf(ledger.ErrCorruptChain, "block %d does not link to block %d", i, i-1)
		}
	}
	return
}

// step decodes the block a tree adds and opens the tree before it.
// A first tree has no predecessor.  Both files are rehashed, so an
// edit on disk shows up as ErrCorruptChain.
func (c *Chain) step(tree *Tree) (b ledger.Block, prev *Tree, err error) {
	canon := tree.Path.Canon
	err = tree.Verify()
	if err != nil {
		return b, nil, errors.Wrapf(ledger.ErrCorruptChain, "%v", err)
	}
	entries, err := tree.Entries()
	if err != nil {
		return b, nil, errors.Wrapf(ledger.ErrCorruptChain, "%s: %v", canon, err)
	}
	var blobPath *Path
	switch len(entries) {
	case 1:
		blobPath = entries[0]
	case 2:
		blobPath = entries[1]
		prev, err = c.Db.GetTree(entries[0])
		if err != nil {
			return b, nil, errors.Wrapf(ledger.ErrCorruptChain, "%s: %v", canon, err)
		}
	default:
		return b, nil, errors.Wrapf(ledger.ErrCorruptChain, "%s: %d entries", canon, len(entries))
	}
	if blobPath.Class != "block" {
		return b, nil, errors.Wrapf(ledger.ErrCorruptChain, "%s: not a block: %s", canon, blobPath.Canon)
	}
	buf, err := c.Db.GetBlob(blobPath)
	if err != nil {
		return b, nil, errors.Wrapf(ledger.ErrCorruptChain, "%s: %v", blobPath.Canon, err)
	}
	b, err = ledger.ParseBlock(buf)
	if err != nil {
		return b, nil, errors.Wrapf(err, "%s", blobPath.Canon)
	}
	return
}

// Head returns the newest stored block.
func (c *Chain) Head() (b ledger.Block, ok bool, err error) {
	stream, err := c.open()
	if err != nil || stream == nil {
		return
	}
	b, _, err = c.step(stream.Head)
	return b, err == nil, err
}

// Append stores b on top of the current head.  b must link to it.
func (c *Chain) Append(b ledger.Block) (err error) {
	stream, err := c.open()
	if err != nil {
		return
	}
	if stream == nil {
		if !b.IsGenesis() {
			return errors.Wrap(ledger.ErrInvalidLinkage, "empty chain needs a genesis block")
		}
		stream, err = Stream{}.New(c.Db, c.Label, nil)
		if err != nil {
			return
		}
	} else {
		head, _, err := c.step(stream.Head)
		if err != nil {
			return err
		}
		if b.PrevHash() != head.Hash() {
			return errors.Wrapf(ledger.ErrInvalidLinkage, "prevHash %s, stored head %s", b.PrevHash(), head.Hash())
		}
	}
	err = stream.AppendBlob(c.Db.Algo, b.CanonicalBytes())
	if err != nil {
		return
	}
	log.Debugf("stored %.12s at %s", b.Hash(), stream.Head.Path.Canon)
	return
}

// Save replaces the stored chain with blocks.  Files from the old
// chain stay on disk; only the label moves.
func (c *Chain) Save(blocks []ledger.Block) (err error) {
	if len(blocks) == 0 {
		err = os.Remove(c.linkPath())
		if os.IsNotExist(err) {
			err = nil
		}
		return
	}
	var head *Tree
	for _, b := range blocks {
		blob, err := c.Db.PutBlob(c.Db.Algo, b.CanonicalBytes())
		if err != nil {
			return err
		}
		if head == nil {
			head, err = c.Db.PutTree(c.Db.Algo, blob)
		} else {
			head, err = c.Db.PutTree(c.Db.Algo, head, blob)
		}
		if err != nil {
			return err
		}
	}
	_, err = head.LinkStream(c.Label)
	return
}
