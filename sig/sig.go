// Package sig provides the signature schemes a ledger can be run with.
// All schemes exchange keys and signatures as plain byte slices.
package sig

import (
	"fmt"
	"sort"
	"syscall"

	log "github.com/sirupsen/logrus"
)

const Default = "ed25519"

// Scheme signs and verifies messages.  Verify never panics; malformed
// keys or signatures verify as false.
type Scheme interface {
	Name() string
	GenerateKey() (pub, priv []byte, err error)
	Sign(priv, msg []byte) (sig []byte, err error)
	Verify(pub, msg, sig []byte) bool
}

var registry = map[string]Scheme{}

func register(s Scheme) {
	registry[s.Name()] = s
}

func init() {
	register(rsaScheme{bits: 2048})
	register(ed25519Scheme())
	register(dilithium3Scheme())
	register(schnorrScheme{})
}

// Lookup returns the scheme registered under name.
func Lookup(name string) (s Scheme, err error) {
	s, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: signature scheme %q", syscall.ENOSYS, name)
	}
	return
}

// Names lists the registered schemes.
func Names() (names []string) {
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return
}

// safely runs a verification, turning a panic into false.
func safely(name string, verify func() bool) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Debugf("%s verify: %v", name, r)
			ok = false
		}
	}()
	return verify()
}
