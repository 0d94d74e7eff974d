package server

import (
	"context"

	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack"

	"github.com/t7a/pitledger/ledger"
)

// subscriber queue depth; a subscriber further behind than this is
// dropped
const backlog = 64

// Announce hands b to every subscriber.  It never blocks.
func (srv *Server) Announce(b ledger.Block) (err error) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	var dropped int
	for ch := range srv.subs {
		select {
		case ch <- b:
		default:
			delete(srv.subs, ch)
			close(ch)
			dropped++
		}
	}
	if dropped > 0 {
		err = errors.Errorf("dropped %d slow subscribers", dropped)
	}
	return
}

func (srv *Server) addSub() chan ledger.Block {
	ch := make(chan ledger.Block, backlog)
	srv.mu.Lock()
	srv.subs[ch] = true
	srv.mu.Unlock()
	return ch
}

func (srv *Server) dropSub(ch chan ledger.Block) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if srv.subs[ch] {
		delete(srv.subs, ch)
		close(ch)
	}
}

// subscribe sends every block at req.Height or above, one response
// each, then every block appended after that.
func (srv *Server) subscribe(ctx context.Context, encoder *msgpack.Encoder, req *Request) (err error) {
	ch := srv.addSub()
	defer srv.dropSub(ch)

	// blocks appended between addSub and the snapshot arrive twice
	snapshot := srv.Ledger.AllBlocks()
	seen := make(map[string]bool, len(snapshot))
	next := len(snapshot)
	for i, b := range snapshot {
		seen[b.Hash()] = true
		if i < req.Height {
			continue
		}
		err = encoder.Encode(&Response{Blocks: []ledger.BlockView{b.View()}})
		if err != nil {
			return
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case b, ok := <-ch:
			if !ok {
				return errors.New("subscriber too slow")
			}
			if seen[b.Hash()] {
				continue
			}
			height := next
			next++
			if height < req.Height {
				continue
			}
			err = encoder.Encode(&Response{Blocks: []ledger.BlockView{b.View()}})
			if err != nil {
				return
			}
		}
	}
}
