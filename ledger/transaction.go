package ledger

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"math"
	"strconv"
	"unicode/utf8"

	"github.com/pkg/errors"
	. "github.com/stevegt/goadapt"
)

const (
	GenesisPayer  = "genesis"
	GenesisAmount = 100.0
)

// Transaction is a transfer of Amount from Payer to Payee.  It is a
// value: a Block keeps its own copy.
type Transaction struct {
	Amount float64 `json:"amount" msgpack:"amount"`
	Payer  string  `json:"payer" msgpack:"payer"`
	Payee  string  `json:"payee" msgpack:"payee"`
}

func NewTransaction(amount float64, payer, payee string) Transaction {
	return Transaction{Amount: amount, Payer: payer, Payee: payee}
}

// GenesisTransaction returns the fixed transaction carried by block 0.
func GenesisTransaction(holder string) Transaction {
	return NewTransaction(GenesisAmount, GenesisPayer, holder)
}

func (tx Transaction) IsGenesis() bool {
	return tx.Payer == GenesisPayer
}

// CanonicalBytes returns the bytes a payer signs and a block hashes.
func (tx Transaction) CanonicalBytes() []byte {
	var buf bytes.Buffer
	tx.encode(&buf)
	return buf.Bytes()
}

// Check reports whether tx has a canonical encoding that decodes back
// to tx: the amount must be finite and both ids valid UTF-8.
func (tx Transaction) Check() error {
	if math.IsNaN(tx.Amount) || math.IsInf(tx.Amount, 0) {
		return errors.Wrapf(ErrInvalidTransaction, "amount %v is not finite", tx.Amount)
	}
	if !utf8.ValidString(tx.Payer) {
		return errors.Wrapf(ErrInvalidTransaction, "payer %q is not UTF-8", tx.Payer)
	}
	if !utf8.ValidString(tx.Payee) {
		return errors.Wrapf(ErrInvalidTransaction, "payee %q is not UTF-8", tx.Payee)
	}
	return nil
}

func (tx Transaction) String() string {
	return string(tx.CanonicalBytes())
}

func (tx Transaction) encode(buf *bytes.Buffer) {
	buf.WriteString(`{"amount":`)
	encodeNumber(buf, tx.Amount)
	buf.WriteString(`,"payer":`)
	encodeString(buf, tx.Payer)
	buf.WriteString(`,"payee":`)
	encodeString(buf, tx.Payee)
	buf.WriteByte('}')
}

// KeyID returns the identifier a transaction uses for the holder of
// pub.
func KeyID(pub []byte) string {
	return hex.EncodeToString(pub)
}

const hexDigits = "0123456789abcdef"

// encodeString quotes s the way JSON.stringify does: only the quote,
// backslash and control characters are escaped.  encoding/json would
// also escape U+2028 and U+2029.
func encodeString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			if c < 0x20 {
				buf.WriteString(`\u00`)
				buf.WriteByte(hexDigits[c>>4])
				buf.WriteByte(hexDigits[c&0xf])
			} else {
				buf.WriteByte(c)
			}
		}
	}
	buf.WriteByte('"')
}

// encodeNumber writes NaN and Inf as null.  Check keeps them out of
// the chain, since null decodes as 0.
func encodeNumber(buf *bytes.Buffer, f float64) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		buf.WriteString("null")
		return
	}
	if f == 0 {
		// -0 becomes 0
		f = 0
	}
	b, err := json.Marshal(f)
	Ck(err)
	buf.Write(b)
}

func encodeInt(buf *bytes.Buffer, n int64) {
	buf.WriteString(strconv.FormatInt(n, 10))
}

func encodeUint(buf *bytes.Buffer, n uint64) {
	buf.WriteString(strconv.FormatUint(n, 10))
}
