// Package wallet holds named key pairs and signs transactions with
// them.
package wallet

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/google/renameio"
	. "github.com/stevegt/goadapt"

	"github.com/t7a/pitledger/ledger"
	"github.com/t7a/pitledger/sig"
)

type Wallet struct {
	Name    string
	Scheme  string
	Public  []byte
	Private []byte
}

// New generates a fresh key pair under scheme.
func New(name, scheme string) (w *Wallet, err error) {
	defer Return(&err)
	ErrnoIf(!validName(name), syscall.EINVAL, "invalid wallet name: %q", name)
	s, err := sig.Lookup(scheme)
	Ck(err)
	pub, priv, err := s.GenerateKey()
	Ck(err)
	return &Wallet{Name: name, Scheme: s.Name(), Public: pub, Private: priv}, nil
}

func validName(name string) bool {
	return name != "" && !strings.HasPrefix(name, ".") && !strings.ContainsAny(name, "/\x00")
}

// KeyID is the identifier other parties pay to.
func (w *Wallet) KeyID() string {
	return ledger.KeyID(w.Public)
}

// Sign signs the canonical bytes of tx.
func (w *Wallet) Sign(tx ledger.Transaction) (signature []byte, err error) {
	s, err := sig.Lookup(w.Scheme)
	if err != nil {
		return
	}
	return s.Sign(w.Private, tx.CanonicalBytes())
}

// Verifier returns the scheme that checks this wallet's signatures.
func (w *Wallet) Verifier() (ledger.SignatureVerifier, error) {
	return sig.Lookup(w.Scheme)
}

// Pay builds a transfer from this wallet to payee and signs it.
func (w *Wallet) Pay(amount float64, payee string) (tx ledger.Transaction, signature []byte, err error) {
	tx = ledger.NewTransaction(amount, w.KeyID(), payee)
	signature, err = w.Sign(tx)
	return
}

func (w *Wallet) String() string {
	return fmt.Sprintf("%s %s %s", w.Name, w.Scheme, w.KeyID())
}

// Keystore is a directory of wallet files.
type Keystore struct {
	Dir string
}

func (ks Keystore) path(name string) string {
	return filepath.Join(ks.Dir, name+".json")
}

// Save writes w atomically, readable by the owner only.  An existing
// wallet of the same name is not replaced.
func (ks Keystore) Save(w *Wallet) (err error) {
	defer Return(&err)
	ErrnoIf(!validName(w.Name), syscall.EINVAL, "invalid wallet name: %q", w.Name)
	err = os.MkdirAll(ks.Dir, 0700)
	Ck(err)
	fn := ks.path(w.Name)
	ErrnoIf(exists(fn), syscall.EEXIST, "wallet exists: %s", w.Name)
	buf, err := json.MarshalIndent(w, "", "  ")
	Ck(err)
	err = renameio.WriteFile(fn, buf, 0600)
	Ck(err)
	return
}

func (ks Keystore) Load(name string) (w *Wallet, err error) {
	defer Return(&err)
	ErrnoIf(!validName(name), syscall.EINVAL, "invalid wallet name: %q", name)
	fn := ks.path(name)
	ErrnoIf(!exists(fn), syscall.ENOENT, "no such wallet: %s", name)
	buf, err := ioutil.ReadFile(fn)
	Ck(err)
	w = &Wallet{}
	err = json.Unmarshal(buf, w)
	Ck(err)
	_, err = sig.Lookup(w.Scheme)
	Ck(err)
	return
}

// List returns the wallet names in the keystore, sorted.
func (ks Keystore) List() (names []string, err error) {
	infos, err := ioutil.ReadDir(ks.Dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return
	}
	for _, info := range infos {
		name := info.Name()
		if info.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(names)
	return
}

// Resolve returns the key id for ref, which is either a wallet name
// in the keystore or already a key id.
func (ks Keystore) Resolve(ref string) string {
	if validName(ref) {
		w, err := ks.Load(ref)
		if err == nil {
			return w.KeyID()
		}
	}
	return ref
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
