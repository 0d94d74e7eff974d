// Package server exposes a ledger on a UNIX domain socket.  Requests
// and responses are msgpack messages; one response per request, except
// that a subscribe request turns the connection into a stream of
// appended blocks.
package server

import (
	"context"
	"io"
	"net"
	"os"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	. "github.com/stevegt/goadapt"
	"github.com/vmihailenco/msgpack"

	"github.com/t7a/pitledger/ledger"
)

type Op string

const (
	OpSubmit    Op = "submit"
	OpLast      Op = "last"
	OpAll       Op = "all"
	OpBlock     Op = "block"
	OpSubscribe Op = "subscribe"
)

// Error kinds the server adds to the ledger's own.
const (
	KindBadRequest = "BadRequest"
	KindNotFound   = "NotFound"
)

var (
	ErrBadRequest = errors.New("bad request")
	ErrNotFound   = errors.New("not found")
)

type Request struct {
	Op        Op                  `msgpack:"op"`
	Tx        *ledger.Transaction `msgpack:"tx"`
	PublicKey []byte              `msgpack:"publicKey"`
	Signature []byte              `msgpack:"signature"`
	Height    int                 `msgpack:"height"`
}

type Response struct {
	Kind   string             `msgpack:"kind"`
	Err    string             `msgpack:"err"`
	Blocks []ledger.BlockView `msgpack:"blocks"`
}

// Fail builds the response for err.
func Fail(err error) Response {
	kind := ledger.Kind(err)
	switch {
	case kind != "":
	case errors.Is(err, ErrBadRequest):
		kind = KindBadRequest
	case errors.Is(err, ErrNotFound):
		kind = KindNotFound
	}
	return Response{Kind: kind, Err: err.Error()}
}

// Error turns a failed response back into an error that matches the
// sentinel it was built from.
func (res *Response) Error() error {
	if res.Err == "" && res.Kind == "" {
		return nil
	}
	sentinel := ledger.FromKind(res.Kind)
	switch res.Kind {
	case KindBadRequest:
		sentinel = ErrBadRequest
	case KindNotFound:
		sentinel = ErrNotFound
	}
	if sentinel == nil {
		return errors.New(res.Err)
	}
	return &remoteError{msg: res.Err, sentinel: sentinel}
}

type remoteError struct {
	msg      string
	sentinel error
}

func (e *remoteError) Error() string { return e.msg }
func (e *remoteError) Unwrap() error { return e.sentinel }

type Handler func(ctx context.Context, req *Request) Response

type Dispatcher struct {
	handlers map[Op]Handler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[Op]Handler)}
}

// Register records handler as the function Dispatch() will call for
// op.  A later registration replaces an earlier one.
func (dp *Dispatcher) Register(handler Handler, op Op) {
	dp.handlers[op] = handler
}

// Dispatch calls the handler registered for req.Op.
func (dp *Dispatcher) Dispatch(ctx context.Context, req *Request) Response {
	handler, ok := dp.handlers[req.Op]
	if !ok {
		return Fail(errors.Wrapf(ErrBadRequest, "unknown op %q", req.Op))
	}
	return handler(ctx, req)
}

// Server answers requests against Ledger.  Server is also a
// ledger.PeerBroadcaster, so it can be handed to ledger.New before
// Ledger is set.
type Server struct {
	Ledger *ledger.Ledger
	dp     *Dispatcher

	mu   sync.Mutex
	subs map[chan ledger.Block]bool
}

func New() *Server {
	srv := &Server{
		dp:   NewDispatcher(),
		subs: make(map[chan ledger.Block]bool),
	}
	srv.dp.Register(srv.submit, OpSubmit)
	srv.dp.Register(srv.last, OpLast)
	srv.dp.Register(srv.all, OpAll)
	srv.dp.Register(srv.block, OpBlock)
	return srv
}

// Listen on a new UNIX domain socket at fn, replacing a stale one.
func Listen(fn string) (listener net.Listener, err error) {
	defer Return(&err)
	fi, err := os.Lstat(fn)
	if err == nil && fi.Mode()&os.ModeSocket != 0 {
		err = os.Remove(fn)
		Ck(err)
	}
	listener, err = net.Listen("unix", fn)
	Ck(err)
	return
}

// Serve accepts connections on listener until ctx is done.
func (srv *Server) Serve(ctx context.Context, listener net.Listener) (err error) {
	Assert(srv.Ledger != nil, "server has no ledger")
	go func() {
		<-ctx.Done()
		listener.Close()
	}()
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		go srv.handle(ctx, conn)
	}
}

// handle a single connection from a client
func (srv *Server) handle(ctx context.Context, conn net.Conn) {
	done := make(chan struct{})
	defer close(done)
	defer conn.Close()
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	decoder := msgpack.NewDecoder(conn)
	encoder := msgpack.NewEncoder(conn)
	for {
		var req Request
		err := decoder.Decode(&req)
		if err == io.EOF {
			return
		}
		if err != nil {
			log.Debugf("decode: %v", err)
			return
		}
		if req.Op == OpSubscribe {
			// the client only ever hangs up from here on
			subctx, cancel := context.WithCancel(ctx)
			go func() {
				io.Copy(io.Discard, conn)
				cancel()
			}()
			err = srv.subscribe(subctx, encoder, &req)
			cancel()
			log.Debugf("subscriber gone: %v", err)
			return
		}
		res := srv.dp.Dispatch(ctx, &req)
		err = encoder.Encode(&res)
		if err != nil {
			log.Debugf("encode: %v", err)
			return
		}
	}
}

func (srv *Server) submit(ctx context.Context, req *Request) Response {
	if req.Tx == nil {
		return Fail(errors.Wrap(ErrBadRequest, "missing transaction"))
	}
	b, err := srv.Ledger.Submit(ctx, *req.Tx, req.PublicKey, req.Signature)
	if err != nil {
		return Fail(err)
	}
	return Response{Blocks: []ledger.BlockView{b.View()}}
}

func (srv *Server) last(ctx context.Context, req *Request) Response {
	return Response{Blocks: []ledger.BlockView{srv.Ledger.LastBlock().View()}}
}

func (srv *Server) all(ctx context.Context, req *Request) Response {
	return Response{Blocks: ledger.Views(srv.Ledger.AllBlocks())}
}

func (srv *Server) block(ctx context.Context, req *Request) Response {
	b, ok := srv.Ledger.Block(req.Height)
	if !ok {
		return Fail(errors.Wrapf(ErrNotFound, "no block at height %d", req.Height))
	}
	return Response{Blocks: []ledger.BlockView{b.View()}}
}
