package ledger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/t7a/pitledger/sig"
)

// test boolean condition
func tassert(t *testing.T, cond bool, txt string, args ...interface{}) {
	t.Helper() // cause file:line info to show caller
	if !cond {
		t.Fatalf(txt, args...)
	}
}

type party struct {
	pub, priv []byte
}

func (p party) id() string {
	return KeyID(p.pub)
}

func (p party) sign(t *testing.T, scheme sig.Scheme, tx Transaction) []byte {
	t.Helper()
	s, err := scheme.Sign(p.priv, tx.CanonicalBytes())
	tassert(t, err == nil, "sign: %v", err)
	return s
}

func mkparty(t *testing.T, scheme sig.Scheme) party {
	t.Helper()
	pub, priv, err := scheme.GenerateKey()
	tassert(t, err == nil, "keygen: %v", err)
	return party{pub: pub, priv: priv}
}

func setup(t *testing.T, cfg Config, store ChainStore, peers PeerBroadcaster) (l *Ledger, scheme sig.Scheme) {
	t.Helper()
	scheme, err := sig.Lookup("ed25519")
	tassert(t, err == nil, "%v", err)
	if cfg.Difficulty == "" {
		cfg.Difficulty = "00"
	}
	l, err = New(context.Background(), cfg, scheme, store, peers)
	tassert(t, err == nil, "New: %v", err)
	return
}

func hashes(blocks []Block) (out []string) {
	for _, b := range blocks {
		out = append(out, b.Hash())
	}
	return
}

func TestTransactionCanonicalBytes(t *testing.T) {
	cases := []struct {
		tx     Transaction
		expect string
	}{
		{NewTransaction(20, "alice", "bob"), `{"amount":20,"payer":"alice","payee":"bob"}`},
		{NewTransaction(0.1, "a", "b"), `{"amount":0.1,"payer":"a","payee":"b"}`},
		{NewTransaction(math.Copysign(0, -1), "a", "b"), `{"amount":0,"payer":"a","payee":"b"}`},
		{NewTransaction(1e21, "a", "b"), `{"amount":1e+21,"payer":"a","payee":"b"}`},
		{NewTransaction(1.5e-7, "a", "b"), `{"amount":1.5e-7,"payer":"a","payee":"b"}`},
		{NewTransaction(math.NaN(), "a", "b"), `{"amount":null,"payer":"a","payee":"b"}`},
		{NewTransaction(1, `a<b"c`, "d&e"), `{"amount":1,"payer":"a<b\"c","payee":"d&e"}`},
		{NewTransaction(1, "a\u2028b\u2029c", "é"), "{\"amount\":1,\"payer\":\"a\u2028b\u2029c\",\"payee\":\"é\"}"},
		{NewTransaction(1, "a\\b\n\t\x01\x1f\x7f", "b"), `{"amount":1,"payer":"a\\b\n\t\u0001\u001f` + "\x7f" + `","payee":"b"}`},
		{GenesisTransaction("founder"), `{"amount":100,"payer":"genesis","payee":"founder"}`},
	}
	for _, c := range cases {
		got := string(c.tx.CanonicalBytes())
		tassert(t, got == c.expect, "expected %s got %s", c.expect, got)
		// repeated calls agree
		tassert(t, got == string(c.tx.CanonicalBytes()), "not deterministic: %s", got)
	}
}

func TestBlockCanonicalBytes(t *testing.T) {
	tx := GenesisTransaction("founder")
	genesis := NewUnminedBlock("", tx, 1700000000000).WithNonce(42)
	expect := `{"prevHash":null,"transaction":{"amount":100,"payer":"genesis","payee":"founder"},"timestamp":1700000000000,"nonce":42}`
	got := string(genesis.CanonicalBytes())
	tassert(t, got == expect, "expected %s got %s", expect, got)

	sum := sha256.Sum256([]byte(expect))
	tassert(t, genesis.Hash() == hex.EncodeToString(sum[:]), "hash %s", genesis.Hash())
	tassert(t, genesis.Hash() == genesis.Hash(), "hash not stable")

	next := NewUnminedBlock(genesis.Hash(), NewTransaction(20, "alice", "bob"), 1700000000001).WithNonce(7)
	expect = fmt.Sprintf(`{"prevHash":"%s","transaction":{"amount":20,"payer":"alice","payee":"bob"},"timestamp":1700000000001,"nonce":7}`, genesis.Hash())
	got = string(next.CanonicalBytes())
	tassert(t, got == expect, "expected %s got %s", expect, got)

	// the nonce is part of the hash, the seed ignores it
	other := NewUnminedBlock("", tx, 1700000000000).WithNonce(43)
	tassert(t, other.Hash() != genesis.Hash(), "nonce not hashed")
	tassert(t, other.Seed() == genesis.Seed(), "seed depends on nonce")
	tassert(t, genesis.Seed() < seedModulus, "seed %d", genesis.Seed())
}

func TestPuzzleHash(t *testing.T) {
	// md5("1")
	got := PuzzleHash(0, 1)
	tassert(t, got == "c4ca4238a0b923820dcc509a6f75849b", "got %s", got)
	tassert(t, PuzzleHash(5, 7) == PuzzleHash(7, 5), "seed+solution is a sum")
}

func TestMine(t *testing.T) {
	seed := uint64(123456789)
	solution, err := Mine(context.Background(), seed, "00", 0)
	tassert(t, err == nil, "%v", err)
	tassert(t, VerifyWork(seed, solution, "00"), "solution %d does not verify", solution)
	tassert(t, strings.HasPrefix(PuzzleHash(seed, solution), "00"), "puzzle hash %s", PuzzleHash(seed, solution))
	// first solution wins
	for n := uint64(1); n < solution; n++ {
		tassert(t, !VerifyWork(seed, n, "00"), "%d solves but %d was returned", n, solution)
	}
	again, err := Mine(context.Background(), seed, "00", 0)
	tassert(t, err == nil, "%v", err)
	tassert(t, again == solution, "not deterministic: %d vs %d", solution, again)
	tassert(t, !VerifyWork(seed, 0, ""), "zero solution accepted")
}

func TestMiningExhausted(t *testing.T) {
	_, err := Mine(context.Background(), 1, "ffffffff", 10)
	tassert(t, errors.Is(err, ErrMiningExhausted), "expected ErrMiningExhausted, got %v", err)
	tassert(t, Kind(err) == "MiningExhausted", "kind %q", Kind(err))
}

func TestMineCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Mine(ctx, 1, "ffffffffffffffff", 0)
	tassert(t, errors.Is(err, context.Canceled), "expected context.Canceled, got %v", err)
}

func TestGenesis(t *testing.T) {
	l, _ := setup(t, Config{GenesisHolder: "holder"}, nil, nil)
	blocks := l.AllBlocks()
	tassert(t, len(blocks) == 1, "len %d", len(blocks))
	g := blocks[0]
	tassert(t, g.PrevHash() == "" && g.IsGenesis(), "prevHash %q", g.PrevHash())
	tassert(t, g.View().PrevHash == nil, "view prevHash not null")
	tassert(t, g.Transaction() == NewTransaction(100, "genesis", "holder"), "tx %v", g.Transaction())
	tassert(t, g.CheckWork("00"), "genesis not mined")
	tassert(t, l.LastBlock().Hash() == g.Hash(), "last block is not genesis")

	// defaults
	l, _ = setup(t, Config{}, nil, nil)
	tassert(t, l.LastBlock().Transaction().Payee == DefaultGenesisHolder, "holder %q", l.LastBlock().Transaction().Payee)
}

func TestBadDifficulty(t *testing.T) {
	scheme, _ := sig.Lookup("ed25519")
	_, err := New(context.Background(), Config{Difficulty: "zz"}, scheme, nil, nil)
	tassert(t, err != nil, "expected error")
	_, err = New(context.Background(), Config{}, nil, nil, nil)
	tassert(t, err != nil, "expected error")
}

// Alice pays Bob 20 under the default difficulty.
func TestSubmit(t *testing.T) {
	l, scheme := setup(t, Config{Difficulty: "0000"}, nil, nil)
	alice := mkparty(t, scheme)
	bob := mkparty(t, scheme)

	before := l.LastBlock()
	n := l.Len()
	tx := NewTransaction(20, alice.id(), bob.id())
	b, err := l.Submit(context.Background(), tx, alice.pub, alice.sign(t, scheme, tx))
	tassert(t, err == nil, "%v", err)

	tassert(t, l.Len() == n+1, "len %d", l.Len())
	last := l.LastBlock()
	tassert(t, last.Hash() == b.Hash(), "returned block is not last")
	tassert(t, last.PrevHash() == before.Hash(), "prevHash %s expected %s", last.PrevHash(), before.Hash())
	tassert(t, last.Transaction() == tx, "tx %v", last.Transaction())
	tassert(t, strings.HasPrefix(PuzzleHash(last.Seed(), last.Nonce()), "0000"), "puzzle %s", PuzzleHash(last.Seed(), last.Nonce()))
	tassert(t, last.Timestamp() >= before.Timestamp(), "timestamp went backwards")
	tassert(t, l.Verify() == nil, "%v", l.Verify())

	got, ok := l.Block(1)
	tassert(t, ok && got.Hash() == b.Hash(), "Block(1) %v %v", got, ok)
	_, ok = l.Block(2)
	tassert(t, !ok, "Block(2) exists")
}

// Carol signs a transfer that claims Alice's key.
func TestForgedSignature(t *testing.T) {
	l, scheme := setup(t, Config{}, nil, nil)
	alice := mkparty(t, scheme)
	bob := mkparty(t, scheme)
	carol := mkparty(t, scheme)

	before := hashes(l.AllBlocks())
	tx := NewTransaction(20, alice.id(), bob.id())
	_, err := l.Submit(context.Background(), tx, alice.pub, carol.sign(t, scheme, tx))
	tassert(t, errors.Is(err, ErrInvalidSignature), "expected ErrInvalidSignature, got %v", err)
	after := hashes(l.AllBlocks())
	tassert(t, fmt.Sprint(before) == fmt.Sprint(after), "chain changed")

	// signature over different bytes
	good := alice.sign(t, scheme, tx)
	tx.Amount = 2000
	_, err = l.Submit(context.Background(), tx, alice.pub, good)
	tassert(t, errors.Is(err, ErrInvalidSignature), "expected ErrInvalidSignature, got %v", err)

	// garbage
	_, err = l.Submit(context.Background(), tx, alice.pub, []byte("garbage"))
	tassert(t, errors.Is(err, ErrInvalidSignature), "expected ErrInvalidSignature, got %v", err)
	tassert(t, l.Len() == 1, "len %d", l.Len())
}

// Carol signs with her own key but names Alice as payer.
func TestPayerMismatch(t *testing.T) {
	l, scheme := setup(t, Config{}, nil, nil)
	alice := mkparty(t, scheme)
	carol := mkparty(t, scheme)

	tx := NewTransaction(5, alice.id(), carol.id())
	_, err := l.Submit(context.Background(), tx, carol.pub, carol.sign(t, scheme, tx))
	tassert(t, errors.Is(err, ErrPayerMismatch), "expected ErrPayerMismatch, got %v", err)
	tassert(t, l.Len() == 1, "len %d", l.Len())

	// the genesis payer cannot be claimed
	tx = NewTransaction(5, GenesisPayer, carol.id())
	_, err = l.Submit(context.Background(), tx, carol.pub, carol.sign(t, scheme, tx))
	tassert(t, errors.Is(err, ErrPayerMismatch), "expected ErrPayerMismatch, got %v", err)

	// with binding off, any good signature is enough
	l, scheme = setup(t, Config{AllowUnboundPayer: true}, nil, nil)
	tx = NewTransaction(5, alice.id(), carol.id())
	_, err = l.Submit(context.Background(), tx, carol.pub, carol.sign(t, scheme, tx))
	tassert(t, err == nil, "%v", err)
	tassert(t, l.Len() == 2, "len %d", l.Len())
}

func TestConcurrentSubmit(t *testing.T) {
	l, scheme := setup(t, Config{}, &MemStore{}, nil)
	payee := mkparty(t, scheme)

	n := 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		p := mkparty(t, scheme)
		tx := NewTransaction(float64(i+1), p.id(), payee.id())
		s := p.sign(t, scheme, tx)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.Submit(context.Background(), tx, p.pub, s)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		tassert(t, err == nil, "%v", err)
	}

	blocks := l.AllBlocks()
	tassert(t, len(blocks) == n+1, "len %d", len(blocks))
	seen := make(map[string]bool)
	for i, b := range blocks[1:] {
		tassert(t, !seen[b.PrevHash()], "block %d shares prevHash %s", i+1, b.PrevHash())
		seen[b.PrevHash()] = true
		tassert(t, b.PrevHash() == blocks[i].Hash(), "block %d not linked", i+1)
	}
	tassert(t, VerifyChain(blocks, "00") == nil, "%v", VerifyChain(blocks, "00"))
}

func TestReaderDuringSubmit(t *testing.T) {
	l, scheme := setup(t, Config{}, nil, nil)
	alice := mkparty(t, scheme)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 5; i++ {
			tx := NewTransaction(1, alice.id(), "bob")
			_, err := l.Submit(context.Background(), tx, alice.pub, alice.sign(t, scheme, tx))
			if err != nil {
				panic(err)
			}
		}
	}()
	for {
		select {
		case <-done:
			tassert(t, l.Len() == 6, "len %d", l.Len())
			return
		default:
			// every visible block is mined and linked
			err := VerifyChain(l.AllBlocks(), "00")
			tassert(t, err == nil, "%v", err)
		}
	}
}

func TestReload(t *testing.T) {
	store := &MemStore{}
	l, scheme := setup(t, Config{}, store, nil)
	alice := mkparty(t, scheme)
	for i := 0; i < 2; i++ {
		tx := NewTransaction(float64(i), alice.id(), "bob")
		_, err := l.Submit(context.Background(), tx, alice.pub, alice.sign(t, scheme, tx))
		tassert(t, err == nil, "%v", err)
	}

	l2, _ := setup(t, Config{}, store, nil)
	tassert(t, fmt.Sprint(hashes(l2.AllBlocks())) == fmt.Sprint(hashes(l.AllBlocks())), "reloaded chain differs")

	// a tampered block is refused
	blocks := l.AllBlocks()
	b := blocks[1]
	blocks[1] = NewUnminedBlock(b.PrevHash(), NewTransaction(999, b.Transaction().Payer, b.Transaction().Payee), b.Timestamp()).WithNonce(b.Nonce())
	err := store.Save(blocks)
	tassert(t, err == nil, "%v", err)
	_, err = New(context.Background(), Config{Difficulty: "00"}, scheme, store, nil)
	tassert(t, errors.Is(err, ErrCorruptChain), "expected ErrCorruptChain, got %v", err)
}

type failStore struct {
	MemStore
	fail bool
}

func (s *failStore) Save(blocks []Block) error {
	if s.fail {
		return errors.New("disk full")
	}
	return s.MemStore.Save(blocks)
}

func TestStoreFailure(t *testing.T) {
	store := &failStore{}
	l, scheme := setup(t, Config{}, store, nil)
	alice := mkparty(t, scheme)

	store.fail = true
	tx := NewTransaction(1, alice.id(), "bob")
	_, err := l.Submit(context.Background(), tx, alice.pub, alice.sign(t, scheme, tx))
	tassert(t, err != nil, "expected error")
	tassert(t, l.Len() == 1, "len %d", l.Len())

	store.fail = false
	_, err = l.Submit(context.Background(), tx, alice.pub, alice.sign(t, scheme, tx))
	tassert(t, err == nil, "%v", err)
	tassert(t, l.Len() == 2, "len %d", l.Len())
}

func TestSubmitExhausted(t *testing.T) {
	l, scheme := setup(t, Config{}, nil, nil)
	// raise the bar after genesis
	l.cfg.Difficulty = "ffffffff"
	l.cfg.MaxIterations = 100
	alice := mkparty(t, scheme)
	tx := NewTransaction(1, alice.id(), "bob")
	_, err := l.Submit(context.Background(), tx, alice.pub, alice.sign(t, scheme, tx))
	tassert(t, errors.Is(err, ErrMiningExhausted), "expected ErrMiningExhausted, got %v", err)
	tassert(t, l.Len() == 1, "len %d", l.Len())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	l.cfg.MaxIterations = 0
	_, err = l.Submit(ctx, tx, alice.pub, alice.sign(t, scheme, tx))
	tassert(t, errors.Is(err, context.Canceled), "expected context.Canceled, got %v", err)
	tassert(t, l.Len() == 1, "len %d", l.Len())
}

type recorder struct {
	mu     sync.Mutex
	blocks []Block
	err    error
}

func (r *recorder) Announce(b Block) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.blocks = append(r.blocks, b)
	return r.err
}

func TestPeers(t *testing.T) {
	good := &recorder{}
	bad := &recorder{err: errors.New("peer down")}
	l, scheme := setup(t, Config{}, nil, Peers{good, nil, bad})
	alice := mkparty(t, scheme)

	tx := NewTransaction(3, alice.id(), "bob")
	b, err := l.Submit(context.Background(), tx, alice.pub, alice.sign(t, scheme, tx))
	tassert(t, err == nil, "a failing peer failed the submission: %v", err)
	tassert(t, len(good.blocks) == 1 && good.blocks[0].Hash() == b.Hash(), "good peer got %v", good.blocks)
	tassert(t, len(bad.blocks) == 1, "bad peer got %v", bad.blocks)

	// rejected submissions are not announced
	_, err = l.Submit(context.Background(), tx, alice.pub, nil)
	tassert(t, err != nil, "expected error")
	tassert(t, len(good.blocks) == 1, "rejection announced")
}

func TestClock(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	clock := func() time.Time { return now }
	l, scheme := setup(t, Config{Now: clock}, nil, nil)
	tassert(t, l.LastBlock().Timestamp() == 1700000000000, "ts %d", l.LastBlock().Timestamp())
	tassert(t, l.LastBlock().Time().Equal(now), "time %v", l.LastBlock().Time())

	// clock goes backwards; the block keeps the head's time
	now = now.Add(-time.Hour)
	alice := mkparty(t, scheme)
	tx := NewTransaction(1, alice.id(), "bob")
	b, err := l.Submit(context.Background(), tx, alice.pub, alice.sign(t, scheme, tx))
	tassert(t, err == nil, "%v", err)
	tassert(t, b.Timestamp() == 1700000000000, "ts %d", b.Timestamp())
}

func TestParseBlock(t *testing.T) {
	l, scheme := setup(t, Config{}, nil, nil)
	alice := mkparty(t, scheme)
	tx := NewTransaction(2.5, alice.id(), "bob")
	_, err := l.Submit(context.Background(), tx, alice.pub, alice.sign(t, scheme, tx))
	tassert(t, err == nil, "%v", err)

	for _, b := range l.AllBlocks() {
		got, err := ParseBlock(b.CanonicalBytes())
		tassert(t, err == nil, "%v", err)
		tassert(t, got == b, "expected %v got %v", b, got)

		got, err = DecodeBlock(b.View())
		tassert(t, err == nil, "%v", err)
		tassert(t, got == b, "expected %v got %v", b, got)
	}

	_, err = ParseBlock([]byte(`{ "prevHash":null,"transaction":{"amount":1,"payer":"a","payee":"b"},"timestamp":1,"nonce":1}`))
	tassert(t, errors.Is(err, ErrCorruptChain), "expected ErrCorruptChain, got %v", err)
	_, err = ParseBlock([]byte(`not json`))
	tassert(t, errors.Is(err, ErrCorruptChain), "expected ErrCorruptChain, got %v", err)

	v := l.LastBlock().View()
	v.Nonce++
	_, err = DecodeBlock(v)
	tassert(t, errors.Is(err, ErrCorruptChain), "expected ErrCorruptChain, got %v", err)
	empty := ""
	v = l.LastBlock().View()
	v.PrevHash = &empty
	_, err = DecodeBlock(v)
	tassert(t, errors.Is(err, ErrCorruptChain), "expected ErrCorruptChain, got %v", err)
}

// Strings that encoding/json would escape differently still round-trip
// through storage.
func TestParseBlockStrings(t *testing.T) {
	for _, payee := range []string{"a\u2028b", "line\nbreak", "tab\tand\x00nul", `back\slash "quoted"`, "<&>"} {
		b := NewUnminedBlock("", GenesisTransaction(payee), 1).WithNonce(1)
		got, err := ParseBlock(b.CanonicalBytes())
		tassert(t, err == nil, "%q: %v", payee, err)
		tassert(t, got == b, "%q: expected %v got %v", payee, b, got)
	}
}

func TestInvalidTransaction(t *testing.T) {
	var calls int
	verifier := VerifierFunc(func(pub, msg, sig []byte) bool {
		calls++
		return true
	})
	store := &MemStore{}
	l, err := New(context.Background(), Config{Difficulty: "0"}, verifier, store, nil)
	tassert(t, err == nil, "%v", err)

	bad := []Transaction{
		NewTransaction(math.NaN(), "alice", "bob"),
		NewTransaction(math.Inf(1), "alice", "bob"),
		NewTransaction(math.Inf(-1), "alice", "bob"),
		NewTransaction(1, "alice", "b\xffob"),
		NewTransaction(1, "al\xc3ice", "bob"),
	}
	for _, tx := range bad {
		_, err := l.Submit(context.Background(), tx, []byte("alice"), []byte("sig"))
		tassert(t, errors.Is(err, ErrInvalidTransaction), "%v: expected ErrInvalidTransaction, got %v", tx, err)
		tassert(t, Kind(err) == "InvalidTransaction", "kind %q", Kind(err))
	}
	tassert(t, calls == 0, "verifier called %d times", calls)
	tassert(t, l.Len() == 1, "len %d", l.Len())

	// the stored chain still reloads
	tx := NewTransaction(1, KeyID([]byte("alice")), "bob")
	_, err = l.Submit(context.Background(), tx, []byte("alice"), []byte("sig"))
	tassert(t, err == nil, "%v", err)
	tassert(t, calls == 1, "verifier called %d times", calls)
	l2, err := New(context.Background(), Config{Difficulty: "0"}, verifier, store, nil)
	tassert(t, err == nil, "reload: %v", err)
	tassert(t, l2.Len() == 2, "len %d", l2.Len())

	_, err = New(context.Background(), Config{GenesisHolder: "\xff"}, verifier, nil, nil)
	tassert(t, err != nil, "accepted a non-UTF-8 genesis holder")
}

func TestVerifyChain(t *testing.T) {
	l, scheme := setup(t, Config{}, nil, nil)
	alice := mkparty(t, scheme)
	tx := NewTransaction(1, alice.id(), "bob")
	_, err := l.Submit(context.Background(), tx, alice.pub, alice.sign(t, scheme, tx))
	tassert(t, err == nil, "%v", err)
	blocks := l.AllBlocks()
	tassert(t, VerifyChain(blocks, "00") == nil, "%v", VerifyChain(blocks, "00"))

	err = VerifyChain(nil, "00")
	tassert(t, errors.Is(err, ErrCorruptChain), "%v", err)
	err = VerifyChain(blocks[1:], "00")
	tassert(t, errors.Is(err, ErrCorruptChain), "%v", err)
	err = VerifyChain([]Block{blocks[1], blocks[0]}, "00")
	tassert(t, errors.Is(err, ErrCorruptChain), "%v", err)
}

func TestKind(t *testing.T) {
	err := errors.Wrap(ErrInvalidSignature, "context")
	tassert(t, Kind(err) == "InvalidSignature", "kind %q", Kind(err))
	tassert(t, FromKind("InvalidSignature") == ErrInvalidSignature, "FromKind")
	tassert(t, FromKind("nope") == nil, "FromKind")
	tassert(t, Kind(errors.New("other")) == "", "kind of plain error")
}

func TestBalances(t *testing.T) {
	g := NewUnminedBlock("", GenesisTransaction("a"), 1).WithNonce(1)
	b1 := NewUnminedBlock(g.Hash(), NewTransaction(30, "a", "b"), 2).WithNonce(1)
	b2 := NewUnminedBlock(b1.Hash(), NewTransaction(10, "b", "c"), 3).WithNonce(1)
	bal := Balances([]Block{g, b1, b2})
	tassert(t, bal["a"] == 70 && bal["b"] == 20 && bal["c"] == 10, "balances %v", bal)
	_, ok := bal[GenesisPayer]
	tassert(t, !ok, "genesis has a balance")
}
