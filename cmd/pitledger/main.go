package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/alessio/shellescape"
	"github.com/docopt/docopt-go"
	"github.com/google/shlex"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/t7a/pitledger/client"
	"github.com/t7a/pitledger/db"
	"github.com/t7a/pitledger/ledger"
	"github.com/t7a/pitledger/logutil"
	"github.com/t7a/pitledger/sig"
	"github.com/t7a/pitledger/wallet"
)

func init() {
	logutil.Setup()
}

const usage = `pitledger

Usage:
  pitledger init [--holder=<name>] [--difficulty=<target>] [--scheme=<scheme>] [--max-iterations=<n>]
  pitledger keygen [--scheme=<scheme>] <name>
  pitledger pubkey <name>
  pitledger wallets
  pitledger send [--signer=<name>] [--sock=<path>] <from> <to> <amount>
  pitledger batch [--sock=<path>] <filename>
  pitledger last [--sock=<path>]
  pitledger show [--sock=<path>]
  pitledger balance [--sock=<path>]
  pitledger verify
  pitledger watch [--sock=<path>] [--from=<height>]

Options:
  -h --help     Show this screen.
  --version     Show version.

The ledger lives in $DBDIR, or the current directory.  Wallets live
in $WALLETDIR, or $DBDIR/wallet.
`

type Opts struct {
	Init          bool
	Keygen        bool
	Pubkey        bool
	Wallets       bool
	Send          bool
	Batch         bool
	Last          bool
	Show          bool
	Balance       bool
	Verify        bool
	Watch         bool
	Holder        string `docopt:"--holder"`
	Difficulty    string `docopt:"--difficulty"`
	Scheme        string `docopt:"--scheme"`
	MaxIterations string `docopt:"--max-iterations"`
	Signer        string `docopt:"--signer"`
	Sock          string `docopt:"--sock"`
	From          string `docopt:"--from"`
	Name          string `docopt:"<name>"`
	Payer         string `docopt:"<from>"`
	Payee         string `docopt:"<to>"`
	Amount        string `docopt:"<amount>"`
	Filename      string `docopt:"<filename>"`
}

func main() {
	// see https://github.com/google/go-cmdtest
	os.Exit(run())
}

func run() (rc int) {
	parser := &docopt.Parser{HelpHandler: docopt.PrintHelpOnly}
	o, err := parser.ParseArgs(usage, os.Args[1:], "0.0")
	if err != nil {
		return 22
	}
	var opts Opts
	err = o.Bind(&opts)
	if err != nil {
		log.Error(err)
		return 22
	}
	log.Debug(opts)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	switch true {
	case opts.Init:
		err = create(ctx, opts)
	case opts.Keygen:
		err = keygen(opts.Name, opts.Scheme)
	case opts.Pubkey:
		err = pubkey(opts.Name)
	case opts.Wallets:
		err = wallets()
	case opts.Send:
		err = withBackend(opts.Sock, func(be backend) error {
			return send(be, opts.Payer, opts.Payee, opts.Amount, opts.Signer)
		})
	case opts.Batch:
		err = withBackend(opts.Sock, func(be backend) error {
			return batch(be, opts.Filename)
		})
	case opts.Last:
		err = withReader(opts.Sock, last)
	case opts.Show:
		err = withReader(opts.Sock, show)
	case opts.Balance:
		err = withReader(opts.Sock, balance)
	case opts.Verify:
		err = verify()
	case opts.Watch:
		err = watch(ctx, opts.Sock, opts.From)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "pitledger: %v\n", err)
		return 1
	}
	return 0
}

func dbdir() (dir string) {
	dir = os.Getenv("DBDIR")
	if dir == "" {
		var err error
		dir, err = os.Getwd()
		if err != nil {
			panic("can't get current directory")
		}
	}
	return
}

func walletdir() string {
	dir := os.Getenv("WALLETDIR")
	if dir == "" {
		dir = filepath.Join(dbdir(), "wallet")
	}
	return dir
}

func keystore() wallet.Keystore {
	return wallet.Keystore{Dir: walletdir()}
}

func create(ctx context.Context, opts Opts) (err error) {
	cfg := ledger.Config{Difficulty: opts.Difficulty}
	if opts.Holder != "" {
		cfg.GenesisHolder = keystore().Resolve(opts.Holder)
	}
	if opts.MaxIterations != "" {
		cfg.MaxIterations, err = strconv.ParseUint(opts.MaxIterations, 10, 64)
		if err != nil {
			return errors.Errorf("invalid iteration limit %q", opts.MaxIterations)
		}
	}
	d, err := db.Db{Dir: dbdir(), Scheme: opts.Scheme, Ledger: cfg}.Create()
	if err != nil {
		return
	}
	// mine and store genesis now, so every later open agrees on it
	be, err := openLocal(ctx, d)
	if err != nil {
		return
	}
	defer be.Close()
	fmt.Printf("Initialized ledger in %s\n", d.Dir)
	return
}

func keygen(name, scheme string) (err error) {
	if scheme == "" {
		scheme = sig.Default
		if d, err := db.Open(dbdir()); err == nil {
			scheme = d.Scheme
		}
	}
	w, err := wallet.New(name, scheme)
	if err != nil {
		return
	}
	err = keystore().Save(w)
	if err != nil {
		return
	}
	fmt.Printf("created %s wallet %s\n", w.Scheme, w.Name)
	return
}

func pubkey(name string) (err error) {
	w, err := keystore().Load(name)
	if err != nil {
		return
	}
	fmt.Println(w.KeyID())
	return
}

func wallets() (err error) {
	ks := keystore()
	names, err := ks.List()
	if err != nil {
		return
	}
	for _, name := range names {
		w, err := ks.Load(name)
		if err != nil {
			return err
		}
		fmt.Println(w)
	}
	return
}

func parseAmount(s string) (amount float64, err error) {
	amount, err = strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, errors.Errorf("invalid amount %q", s)
	}
	return
}

func formatAmount(amount float64) string {
	return strconv.FormatFloat(amount, 'f', -1, 64)
}

// send pays amount from payer to payee.  The signer defaults to the
// payer's own wallet.
func send(be backend, payer, payee, amountTxt, signer string) (err error) {
	amount, err := parseAmount(amountTxt)
	if err != nil {
		return
	}
	if signer == "" {
		signer = payer
	}
	ks := keystore()
	w, err := ks.Load(signer)
	if err != nil {
		return
	}
	tx := ledger.NewTransaction(amount, ks.Resolve(payer), ks.Resolve(payee))
	signature, err := w.Sign(tx)
	if err != nil {
		return
	}
	b, err := be.Submit(tx, w.Public, signature)
	if err != nil {
		return
	}
	log.Debugf("block %s", b.Hash())
	fmt.Printf("sent %s from %s to %s\n", formatAmount(amount), payer, payee)
	return
}

// batch sends one payment per line of fn: "<from> <to> <amount>
// [<signer>]", shell-quoted.  Blank lines and # comments are skipped.
// A bad line is reported and the rest still run.
func batch(be backend, fn string) (err error) {
	fh, err := os.Open(fn)
	if err != nil {
		return
	}
	defer fh.Close()
	var failed int
	scanner := bufio.NewScanner(fh)
	for n := 1; scanner.Scan(); n++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		args, err := shlex.Split(line)
		if err == nil && (len(args) < 3 || len(args) > 4) {
			err = errors.Errorf("want <from> <to> <amount> [<signer>]")
		}
		if err == nil {
			var signer string
			if len(args) == 4 {
				signer = args[3]
			}
			err = send(be, args[0], args[1], args[2], signer)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "pitledger: line %d: %s: %v\n", n, shellescape.QuoteCommand(args), err)
			failed++
		}
	}
	err = scanner.Err()
	if err != nil {
		return
	}
	if failed > 0 {
		return errors.Errorf("%d of the payments in %s failed", failed, fn)
	}
	return
}

func last(rd reader) (err error) {
	b, err := rd.Last()
	if err != nil {
		return
	}
	buf, err := json.MarshalIndent(b.View(), "", "  ")
	if err != nil {
		return
	}
	fmt.Println(string(buf))
	return
}

// verify re-checks the stored chain without opening it for writing.
func verify() (err error) {
	d, err := db.Open(dbdir())
	if err != nil {
		return
	}
	blocks, err := d.Chain().Load()
	if err != nil {
		return
	}
	// dbs created before config.json held the defaults
	err = ledger.VerifyChain(blocks, d.Ledger.WithDefaults().Difficulty)
	if err != nil {
		return
	}
	fmt.Printf("ok: %d blocks\n", len(blocks))
	return
}

// watch prints blocks as they are appended, until interrupted.
func watch(ctx context.Context, sock, fromTxt string) (err error) {
	var from int
	if fromTxt != "" {
		from, err = strconv.Atoi(fromTxt)
		if err != nil {
			return errors.Errorf("invalid height %q", fromTxt)
		}
	}
	names := nameMap(keystore())
	fn := func(height int, b ledger.Block) error {
		fmt.Println(row(names, height, b))
		return nil
	}
	if sock != "" {
		c, err := client.Dial(sock)
		if err != nil {
			return err
		}
		err = c.Subscribe(ctx, from, fn)
	} else {
		var d *db.Db
		d, err = db.Open(dbdir())
		if err != nil {
			return
		}
		err = d.Chain().Follow(ctx, from, fn)
	}
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	return
}
