package sig

import (
	. "github.com/stevegt/goadapt"
	"go.dedis.ch/kyber/v4/sign/schnorr"
	"go.dedis.ch/kyber/v4/suites"
)

var edwards = suites.MustFind("Ed25519")

// schnorrScheme signs with Schnorr over the Ed25519 group.
type schnorrScheme struct{}

func (schnorrScheme) Name() string { return "schnorr-ed25519" }

func (schnorrScheme) GenerateKey() (pub, priv []byte, err error) {
	defer Return(&err)
	x := edwards.Scalar().Pick(edwards.RandomStream())
	X := edwards.Point().Mul(x, nil)
	pub, err = X.MarshalBinary()
	Ck(err)
	priv, err = x.MarshalBinary()
	Ck(err)
	return
}

func (schnorrScheme) Sign(priv, msg []byte) (sig []byte, err error) {
	defer Return(&err)
	x := edwards.Scalar()
	err = x.UnmarshalBinary(priv)
	Ck(err)
	sig, err = schnorr.Sign(edwards, x, msg)
	Ck(err)
	return
}

func (s schnorrScheme) Verify(pub, msg, sig []byte) bool {
	return safely(s.Name(), func() bool {
		X := edwards.Point()
		if X.UnmarshalBinary(pub) != nil {
			return false
		}
		return schnorr.Verify(edwards, X, msg, sig) == nil
	})
}
