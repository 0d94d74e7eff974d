package sig

import (
	"syscall"

	"github.com/cloudflare/circl/sign"
	"github.com/cloudflare/circl/sign/dilithium/mode3"
	"github.com/cloudflare/circl/sign/ed25519"
	. "github.com/stevegt/goadapt"
)

// circlScheme runs any circl sign.Scheme with keys and signatures as
// the scheme's binary encodings.  dilithium3 is the post-quantum
// option; its keys and signatures are several kilobytes.
type circlScheme struct {
	name   string
	scheme sign.Scheme
}

func (s circlScheme) Name() string { return s.name }

func (s circlScheme) GenerateKey() (pub, priv []byte, err error) {
	defer Return(&err)
	pk, sk, err := s.scheme.GenerateKey()
	Ck(err)
	pub, err = pk.MarshalBinary()
	Ck(err)
	priv, err = sk.MarshalBinary()
	Ck(err)
	return
}

func (s circlScheme) Sign(priv, msg []byte) (sig []byte, err error) {
	defer Return(&err)
	ErrnoIf(len(priv) != s.scheme.PrivateKeySize(), syscall.EINVAL, "%s private key is %d bytes", s.name, len(priv))
	sk, err := s.scheme.UnmarshalBinaryPrivateKey(priv)
	Ck(err)
	return s.scheme.Sign(sk, msg, nil), nil
}

func (s circlScheme) Verify(pub, msg, sig []byte) bool {
	return safely(s.name, func() bool {
		if len(pub) != s.scheme.PublicKeySize() || len(sig) != s.scheme.SignatureSize() {
			return false
		}
		pk, err := s.scheme.UnmarshalBinaryPublicKey(pub)
		if err != nil {
			return false
		}
		return s.scheme.Verify(pk, msg, sig, nil)
	})
}

func ed25519Scheme() Scheme {
	return circlScheme{name: "ed25519", scheme: ed25519.Scheme()}
}

func dilithium3Scheme() Scheme {
	return circlScheme{name: "dilithium3", scheme: mode3.Scheme()}
}
