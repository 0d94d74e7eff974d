/*

Package ledger is a single-writer, append-only chain of blocks, each
carrying one signed transfer and a proof-of-work solution.

Vocabulary:

- transaction: amount, payer key id, payee key id; signed by the payer
- key id: lowercase hex of the payer's public key bytes
- block: prevHash, transaction, timestamp, nonce
- genesis: block 0; prevHash is null and the transaction is
  {100, "genesis", holder}; never signed
- seed: puzzle input derived from an unmined block
- solution: the nonce; the smallest positive integer n such that the
  lowercase hex MD5 of the decimal string of seed+n starts with the
  difficulty target

Canonical encoding:

Everything that is hashed or signed is compact JSON with a fixed key
order and no whitespace, so a verifier in any language that follows
JSON.stringify rules produces the same bytes:

	transaction: {"amount":<number>,"payer":<string>,"payee":<string>}
	block:       {"prevHash":<null|string>,"transaction":<transaction>,"timestamp":<int>,"nonce":<int>}
	seed input:  {"prevHash":<null|string>,"transaction":<transaction>,"timestamp":<int>}

Numbers use the shortest round-trip decimal form (no exponent between
1e-6 and 1e21) and -0 is written as 0.  Strings escape only the quote,
the backslash and control characters below 0x20; everything else,
U+2028 and U+2029 included, is written as is.  Timestamps are
milliseconds since the Unix epoch.

JSON has no NaN or Inf, and a string that is not UTF-8 cannot be
written the way JSON.stringify would.  Submit rejects both with
ErrInvalidTransaction, so neither ever reaches a block.

Hashes:

- block hash: lowercase hex SHA-256 of the canonical block bytes
- seed: first 8 bytes of SHA-256 of the seed input, big endian, mod 1e9
- puzzle hash: lowercase hex MD5 of the decimal string of seed+solution

XXX signatures are not stored in blocks, so Verify can only re-check
linkage and work, not authorship.

*/

package ledger
