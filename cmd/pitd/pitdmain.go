package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/docopt/docopt-go"
	gofuse "github.com/hanwen/go-fuse/v2/fuse"
	log "github.com/sirupsen/logrus"
	. "github.com/stevegt/goadapt"

	"github.com/t7a/pitledger/api"
	"github.com/t7a/pitledger/db"
	"github.com/t7a/pitledger/fuse"
	"github.com/t7a/pitledger/ledger"
	"github.com/t7a/pitledger/logutil"
	"github.com/t7a/pitledger/server"
	"github.com/t7a/pitledger/sig"
)

func init() {
	logutil.Setup()
}

const usage = `pitd

Usage:
  pitd init [--difficulty=<target>] [--holder=<keyid>] <dbdir>
  pitd serve [--sock=<path>] [--http=<addr>] [--mount=<dir>] <dbdir>

Options:
  -h --help     Show this screen.
  --version     Show version.
  --sock=<path>  Socket to listen on; <dbdir>/pitd.sock if not given.
  --http=<addr>  Also serve the HTTP API on addr, e.g. :8080.
  --mount=<dir>  Also mount a read-only view of the chain on dir.
`

type Opts struct {
	Init       bool
	Serve      bool
	Difficulty string `docopt:"--difficulty"`
	Holder     string `docopt:"--holder"`
	Sock       string `docopt:"--sock"`
	Http       string `docopt:"--http"`
	Mount      string `docopt:"--mount"`
	Dbdir      string `docopt:"<dbdir>"`
}

func main() {
	rc, msg := Run()
	if len(msg) > 0 {
		fmt.Fprintf(os.Stderr, msg+"\n")
	}
	os.Exit(rc)
}

func Run() (rc int, msg string) {
	defer Halt(&rc, &msg)

	parser := &docopt.Parser{HelpHandler: docopt.PrintHelpOnly}
	o, err := parser.ParseArgs(usage, os.Args[1:], "0.0")
	Ck(err)
	var opts Opts
	err = o.Bind(&opts)
	Ck(err)

	if opts.Init {
		cfg := ledger.Config{Difficulty: opts.Difficulty, GenesisHolder: opts.Holder}
		d, err := create(context.Background(), opts.Dbdir, cfg)
		Ck(err)
		fmt.Printf("Initialized ledger in %s\n", d.Dir)
	}

	if opts.Serve {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		err := serve(ctx, daemon{Dir: opts.Dbdir, Sock: opts.Sock, HTTP: opts.Http, Mount: opts.Mount}, nil)
		Ck(err)
	}

	return
}

// create initializes a db and stores its genesis block.
func create(ctx context.Context, dir string, cfg ledger.Config) (d *db.Db, err error) {
	d, err = db.Db{Dir: dir, Ledger: cfg}.Create()
	if err != nil {
		return
	}
	unlock, err := d.Lock()
	if err != nil {
		return
	}
	defer unlock()
	_, err = open(ctx, d, nil)
	return
}

func open(ctx context.Context, d *db.Db, peers ledger.PeerBroadcaster) (l *ledger.Ledger, err error) {
	defer Return(&err)
	scheme, err := sig.Lookup(d.Scheme)
	Ck(err)
	l, err = ledger.New(ctx, d.Ledger, scheme, d.Chain(), peers)
	Ck(err)
	return
}

type daemon struct {
	Dir   string
	Sock  string
	HTTP  string
	Mount string
}

// serve runs the daemon until ctx is done.  ready, if not nil, is
// called once every listener is up.
func serve(ctx context.Context, dm daemon, ready func()) (err error) {
	defer Return(&err)

	d, err := db.Open(dm.Dir)
	Ck(err)
	unlock, err := d.Lock()
	Ck(err)
	defer unlock()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	srv := server.New()
	hub := api.NewHub()
	l, err := open(ctx, d, ledger.Peers{srv, hub})
	Ck(err)
	srv.Ledger = l
	go hub.Run(ctx)

	sock := dm.Sock
	if sock == "" {
		sock = filepath.Join(d.Dir, "pitd.sock")
	}
	listener, err := server.Listen(sock)
	Ck(err)
	defer os.Remove(sock)
	errc := make(chan error, 2)
	go func() {
		errc <- srv.Serve(ctx, listener)
	}()
	log.Infof("listening on %s", sock)

	if dm.HTTP != "" {
		hs := &http.Server{Addr: dm.HTTP, Handler: api.Handler(l, hub)}
		go func() {
			err := hs.ListenAndServe()
			if err == http.ErrServerClosed {
				err = nil
			}
			errc <- err
		}()
		defer func() {
			sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer scancel()
			hs.Shutdown(sctx)
		}()
		log.Infof("serving http on %s", dm.HTTP)
	}

	if dm.Mount != "" {
		var mnt *gofuse.Server
		mnt, err = fuse.Mount(l, dm.Mount)
		Ck(err)
		defer umount(mnt)
		log.Infof("mounted on %s", dm.Mount)
	}

	if ready != nil {
		ready()
	}

	select {
	case <-ctx.Done():
	case err = <-errc:
		Ck(err)
	}
	log.Info("shutting down")
	return
}

func umount(server *gofuse.Server) {
	if server != nil {
		err := server.Unmount()
		if err != nil {
			log.Error(err)
		}
	}
}
