// Package api serves a ledger over HTTP.
//
//	GET  /blocks          all blocks, genesis first
//	GET  /blocks/last     the newest block
//	GET  /blocks/{height} one block
//	GET  /blocks/stream   websocket; one JSON block per append
//	GET  /balances        key id -> balance
//	POST /transactions    {"transaction":{...},"publicKey":hex,"signature":hex}
package api

import (
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/t7a/pitledger/ledger"
)

type Submission struct {
	Transaction *ledger.Transaction `json:"transaction"`
	PublicKey   string              `json:"publicKey"`
	Signature   string              `json:"signature"`
}

type ErrorBody struct {
	Kind  string `json:"kind,omitempty"`
	Error string `json:"error"`
}

var errBadBody = errors.New("malformed request body")

type api struct {
	ledger *ledger.Ledger
}

// Handler routes requests to l.  hub may be nil, in which case the
// stream endpoint is not offered.
func Handler(l *ledger.Ledger, hub *Hub) http.Handler {
	a := &api{ledger: l}
	r := mux.NewRouter()
	r.HandleFunc("/blocks", a.blocks).Methods("GET")
	r.HandleFunc("/blocks/last", a.last).Methods("GET")
	if hub != nil {
		r.HandleFunc("/blocks/stream", hub.serveWs).Methods("GET")
	}
	r.HandleFunc("/blocks/{height:[0-9]+}", a.block).Methods("GET")
	r.HandleFunc("/balances", a.balances).Methods("GET")
	r.HandleFunc("/transactions", a.submit).Methods("POST")
	return r
}

// Status returns the HTTP status for a submission error.
func Status(err error) int {
	switch {
	case errors.Is(err, ledger.ErrInvalidSignature), errors.Is(err, ledger.ErrPayerMismatch):
		return http.StatusForbidden
	case errors.Is(err, ledger.ErrMiningExhausted):
		return http.StatusServiceUnavailable
	case errors.Is(err, errBadBody), errors.Is(err, ledger.ErrInvalidTransaction):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func reply(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		log.Debugf("reply: %v", err)
	}
}

func fail(w http.ResponseWriter, status int, err error) {
	reply(w, status, ErrorBody{Kind: ledger.Kind(err), Error: err.Error()})
}

func (a *api) blocks(w http.ResponseWriter, r *http.Request) {
	reply(w, http.StatusOK, ledger.Views(a.ledger.AllBlocks()))
}

func (a *api) last(w http.ResponseWriter, r *http.Request) {
	reply(w, http.StatusOK, a.ledger.LastBlock().View())
}

func (a *api) block(w http.ResponseWriter, r *http.Request) {
	height, err := strconv.Atoi(mux.Vars(r)["height"])
	if err != nil {
		fail(w, http.StatusNotFound, err)
		return
	}
	b, ok := a.ledger.Block(height)
	if !ok {
		fail(w, http.StatusNotFound, errors.Errorf("no block at height %d", height))
		return
	}
	reply(w, http.StatusOK, b.View())
}

func (a *api) balances(w http.ResponseWriter, r *http.Request) {
	reply(w, http.StatusOK, ledger.Balances(a.ledger.AllBlocks()))
}

func (a *api) submit(w http.ResponseWriter, r *http.Request) {
	sub, pub, signature, err := decodeSubmission(r)
	if err != nil {
		fail(w, Status(err), err)
		return
	}
	b, err := a.ledger.Submit(r.Context(), *sub.Transaction, pub, signature)
	if err != nil {
		fail(w, Status(err), err)
		return
	}
	reply(w, http.StatusCreated, b.View())
}

func decodeSubmission(r *http.Request) (sub Submission, pub, signature []byte, err error) {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	err = dec.Decode(&sub)
	if err != nil {
		err = errors.Wrap(errBadBody, err.Error())
		return
	}
	if sub.Transaction == nil {
		err = errors.Wrap(errBadBody, "missing transaction")
		return
	}
	err = sub.Transaction.Check()
	if err != nil {
		return
	}
	pub, err = hex.DecodeString(sub.PublicKey)
	if err != nil {
		err = errors.Wrapf(errBadBody, "publicKey: %v", err)
		return
	}
	signature, err = hex.DecodeString(sub.Signature)
	if err != nil {
		err = errors.Wrapf(errBadBody, "signature: %v", err)
	}
	return
}
