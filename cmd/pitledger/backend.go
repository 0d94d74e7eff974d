package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/t7a/pitledger/client"
	"github.com/t7a/pitledger/db"
	"github.com/t7a/pitledger/ledger"
	"github.com/t7a/pitledger/sig"
)

type reader interface {
	Last() (ledger.Block, error)
	All() ([]ledger.Block, error)
}

// backend is either a ledger opened in this process or a pitd.
type backend interface {
	reader
	Submit(tx ledger.Transaction, pub, signature []byte) (ledger.Block, error)
	Close() error
}

type local struct {
	ctx    context.Context
	ledger *ledger.Ledger
	unlock func() error
}

func (l *local) Submit(tx ledger.Transaction, pub, signature []byte) (ledger.Block, error) {
	return l.ledger.Submit(l.ctx, tx, pub, signature)
}

func (l *local) Last() (ledger.Block, error) {
	return l.ledger.LastBlock(), nil
}

func (l *local) All() ([]ledger.Block, error) {
	return l.ledger.AllBlocks(), nil
}

func (l *local) Close() error {
	return l.unlock()
}

// openLocal takes the db lock and opens the ledger on the db's chain.
func openLocal(ctx context.Context, d *db.Db) (be *local, err error) {
	scheme, err := sig.Lookup(d.Scheme)
	if err != nil {
		return
	}
	unlock, err := d.Lock()
	if _, ok := err.(*db.LockedError); ok {
		return nil, errors.Wrap(err, "use --sock to reach the running daemon")
	}
	if err != nil {
		return
	}
	l, err := ledger.New(ctx, d.Ledger, scheme, d.Chain(), nil)
	if err != nil {
		unlock()
		return
	}
	return &local{ctx: ctx, ledger: l, unlock: unlock}, nil
}

func withBackend(sock string, fn func(be backend) error) (err error) {
	var be backend
	if sock != "" {
		be, err = client.Dial(sock)
	} else {
		var d *db.Db
		d, err = db.Open(dbdir())
		if err != nil {
			return
		}
		be, err = openLocal(context.Background(), d)
	}
	if err != nil {
		return
	}
	defer be.Close()
	return fn(be)
}

// stored reads the chain straight from disk, without the lock.
type stored struct {
	chain *db.Chain
}

func (s stored) All() ([]ledger.Block, error) {
	return s.chain.Load()
}

func (s stored) Last() (b ledger.Block, err error) {
	b, ok, err := s.chain.Head()
	if err == nil && !ok {
		err = errors.New("empty chain")
	}
	return
}

func withReader(sock string, fn func(rd reader) error) (err error) {
	if sock != "" {
		c, err := client.Dial(sock)
		if err != nil {
			return err
		}
		defer c.Close()
		return fn(c)
	}
	d, err := db.Open(dbdir())
	if err != nil {
		return
	}
	return fn(stored{chain: d.Chain()})
}
