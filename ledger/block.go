package ledger

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
)

// seeds are below 1e9
const seedModulus = 1000000000

// UnminedBlock is a block without a proof-of-work solution.  It has
// no hash; Mine turns it into a Block.
type UnminedBlock struct {
	prevHash  string
	tx        Transaction
	timestamp int64
}

// NewUnminedBlock starts a block after prevHash; an empty prevHash
// starts a genesis block.  timestamp is in milliseconds.
func NewUnminedBlock(prevHash string, tx Transaction, timestamp int64) UnminedBlock {
	return UnminedBlock{prevHash: prevHash, tx: tx, timestamp: timestamp}
}

// Seed derives the puzzle seed from the block's content.
func (u UnminedBlock) Seed() uint64 {
	var buf bytes.Buffer
	encodeHeader(&buf, u.prevHash, u.tx, u.timestamp)
	sum := sha256.Sum256(buf.Bytes())
	return binary.BigEndian.Uint64(sum[:8]) % seedModulus
}

// Mine solves the block's puzzle and returns the finished block.
func (u UnminedBlock) Mine(ctx context.Context, target string, maxIterations uint64) (b Block, err error) {
	solution, err := Mine(ctx, u.Seed(), target, maxIterations)
	if err != nil {
		return
	}
	return u.WithNonce(solution), nil
}

// WithNonce returns the block with nonce as its solution, whether or
// not it solves the puzzle.
func (u UnminedBlock) WithNonce(nonce uint64) Block {
	return Block{
		prevHash:  u.prevHash,
		tx:        u.tx,
		timestamp: u.timestamp,
		nonce:     nonce,
	}
}

// Block is a mined block.  Its fields are fixed; Hash is computed on
// every call.
type Block struct {
	prevHash  string
	tx        Transaction
	timestamp int64
	nonce     uint64
}

// PrevHash returns the hash of the preceding block, or "" for a
// genesis block.
func (b Block) PrevHash() string {
	return b.prevHash
}

func (b Block) IsGenesis() bool {
	return b.prevHash == ""
}

func (b Block) Transaction() Transaction {
	return b.tx
}

// Timestamp is in milliseconds since the Unix epoch.
func (b Block) Timestamp() int64 {
	return b.timestamp
}

func (b Block) Time() time.Time {
	return time.UnixMilli(b.timestamp)
}

func (b Block) Nonce() uint64 {
	return b.nonce
}

func (b Block) Seed() uint64 {
	return NewUnminedBlock(b.prevHash, b.tx, b.timestamp).Seed()
}

// CheckWork reports whether the block's nonce solves its puzzle for
// target.
func (b Block) CheckWork(target string) bool {
	return VerifyWork(b.Seed(), b.nonce, target)
}

func (b Block) CanonicalBytes() []byte {
	var buf bytes.Buffer
	encodeHeader(&buf, b.prevHash, b.tx, b.timestamp)
	// reopen the header object to add the nonce
	buf.Truncate(buf.Len() - 1)
	buf.WriteString(`,"nonce":`)
	encodeUint(&buf, b.nonce)
	buf.WriteByte('}')
	return buf.Bytes()
}

// Hash is the lowercase hex SHA-256 of the canonical bytes.
func (b Block) Hash() string {
	sum := sha256.Sum256(b.CanonicalBytes())
	return hex.EncodeToString(sum[:])
}

func (b Block) String() string {
	return fmt.Sprintf("%s %s", b.Hash(), b.tx)
}

func encodeHeader(buf *bytes.Buffer, prevHash string, tx Transaction, timestamp int64) {
	buf.WriteString(`{"prevHash":`)
	if prevHash == "" {
		buf.WriteString("null")
	} else {
		encodeString(buf, prevHash)
	}
	buf.WriteString(`,"transaction":`)
	tx.encode(buf)
	buf.WriteString(`,"timestamp":`)
	encodeInt(buf, timestamp)
	buf.WriteByte('}')
}

// BlockView is the exported form of a Block, for JSON, msgpack and
// display.
type BlockView struct {
	PrevHash    *string     `json:"prevHash" msgpack:"prevHash"`
	Transaction Transaction `json:"transaction" msgpack:"transaction"`
	Timestamp   int64       `json:"timestamp" msgpack:"timestamp"`
	Nonce       uint64      `json:"nonce" msgpack:"nonce"`
	Hash        string      `json:"hash,omitempty" msgpack:"hash"`
}

func (b Block) View() BlockView {
	v := BlockView{
		Transaction: b.tx,
		Timestamp:   b.timestamp,
		Nonce:       b.nonce,
		Hash:        b.Hash(),
	}
	if b.prevHash != "" {
		prev := b.prevHash
		v.PrevHash = &prev
	}
	return v
}

// Views returns the views of blocks, in order.
func Views(blocks []Block) (views []BlockView) {
	views = make([]BlockView, len(blocks))
	for i, b := range blocks {
		views[i] = b.View()
	}
	return
}

// DecodeBlock rebuilds a Block from a view.  A non-empty v.Hash must
// match the rebuilt block.
func DecodeBlock(v BlockView) (b Block, err error) {
	if v.PrevHash != nil && *v.PrevHash == "" {
		return Block{}, errors.Wrap(ErrCorruptChain, "empty prevHash")
	}
	var prev string
	if v.PrevHash != nil {
		prev = *v.PrevHash
	}
	b = NewUnminedBlock(prev, v.Transaction, v.Timestamp).WithNonce(v.Nonce)
	if v.Hash != "" && v.Hash != b.Hash() {
		return Block{}, errors.Wrapf(ErrCorruptChain, "hash mismatch: have %s, computed %s", v.Hash, b.Hash())
	}
	return
}

// ParseBlock decodes canonical block bytes.  Input that does not
// re-encode to exactly the same bytes is rejected.
func ParseBlock(buf []byte) (b Block, err error) {
	var v BlockView
	err = json.Unmarshal(buf, &v)
	if err != nil {
		return Block{}, errors.Wrapf(ErrCorruptChain, "parse block: %v", err)
	}
	v.Hash = ""
	b, err = DecodeBlock(v)
	if err != nil {
		return
	}
	if !bytes.Equal(buf, b.CanonicalBytes()) {
		return Block{}, errors.Wrapf(ErrCorruptChain, "not canonical: %q", buf)
	}
	return
}
