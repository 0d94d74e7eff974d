// Package client talks to a ledger server over its UNIX domain socket.
package client

import (
	"context"
	"net"
	"sync"

	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack"

	"github.com/t7a/pitledger/ledger"
	"github.com/t7a/pitledger/server"
)

// Client holds one connection.  Calls are serialized.
type Client struct {
	mu      sync.Mutex
	conn    net.Conn
	encoder *msgpack.Encoder
	decoder *msgpack.Decoder
}

// Dial connects to the socket at fn.
func Dial(fn string) (c *Client, err error) {
	conn, err := net.Dial("unix", fn)
	if err != nil {
		return
	}
	c = &Client{
		conn:    conn,
		encoder: msgpack.NewEncoder(conn),
		decoder: msgpack.NewDecoder(conn),
	}
	return
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) call(req *server.Request) (blocks []ledger.Block, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	err = c.encoder.Encode(req)
	if err != nil {
		return
	}
	var res server.Response
	err = c.decoder.Decode(&res)
	if err != nil {
		return
	}
	return decode(&res)
}

func decode(res *server.Response) (blocks []ledger.Block, err error) {
	err = res.Error()
	if err != nil {
		return
	}
	for _, v := range res.Blocks {
		b, err := ledger.DecodeBlock(v)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
	}
	return
}

func one(blocks []ledger.Block, err error) (ledger.Block, error) {
	if err != nil {
		return ledger.Block{}, err
	}
	if len(blocks) != 1 {
		return ledger.Block{}, errors.Errorf("expected one block, got %d", len(blocks))
	}
	return blocks[0], nil
}

// Submit asks the server to append tx.  Errors match the ledger
// sentinels under errors.Is.
func (c *Client) Submit(tx ledger.Transaction, pub, signature []byte) (ledger.Block, error) {
	return one(c.call(&server.Request{Op: server.OpSubmit, Tx: &tx, PublicKey: pub, Signature: signature}))
}

func (c *Client) Last() (ledger.Block, error) {
	return one(c.call(&server.Request{Op: server.OpLast}))
}

func (c *Client) All() ([]ledger.Block, error) {
	return c.call(&server.Request{Op: server.OpAll})
}

// Block returns the block at height; server.ErrNotFound if there is
// none.
func (c *Client) Block(height int) (ledger.Block, error) {
	return one(c.call(&server.Request{Op: server.OpBlock, Height: height}))
}

// Subscribe calls fn for each block at height from or above, then for
// each block appended later, until ctx is done, fn fails, or the
// server hangs up.  The connection is closed on return.
func (c *Client) Subscribe(ctx context.Context, from int, fn func(height int, b ledger.Block) error) (err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			c.conn.Close()
		case <-done:
		}
	}()

	err = c.encoder.Encode(&server.Request{Op: server.OpSubscribe, Height: from})
	if err != nil {
		return
	}
	height := from
	if height < 0 {
		height = 0
	}
	for {
		var res server.Response
		err = c.decoder.Decode(&res)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return
		}
		blocks, err := decode(&res)
		if err != nil {
			return err
		}
		for _, b := range blocks {
			err = fn(height, b)
			if err != nil {
				return err
			}
			height++
		}
	}
}
