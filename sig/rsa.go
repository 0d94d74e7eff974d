package sig

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"syscall"

	. "github.com/stevegt/goadapt"
)

// rsaScheme is RSA PKCS#1 v1.5 over SHA-256.  Public keys are PKIX
// DER, private keys PKCS#8 DER.
type rsaScheme struct {
	bits int
}

func (rsaScheme) Name() string { return "rsa-sha256" }

func (s rsaScheme) GenerateKey() (pub, priv []byte, err error) {
	defer Return(&err)
	key, err := rsa.GenerateKey(rand.Reader, s.bits)
	Ck(err)
	pub, err = x509.MarshalPKIXPublicKey(&key.PublicKey)
	Ck(err)
	priv, err = x509.MarshalPKCS8PrivateKey(key)
	Ck(err)
	return
}

func (s rsaScheme) Sign(priv, msg []byte) (sig []byte, err error) {
	defer Return(&err)
	parsed, err := x509.ParsePKCS8PrivateKey(priv)
	Ck(err)
	key, ok := parsed.(*rsa.PrivateKey)
	ErrnoIf(!ok, syscall.EINVAL, "%s: not an RSA private key", s.Name())
	digest := sha256.Sum256(msg)
	sig, err = rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, digest[:])
	Ck(err)
	return
}

func (s rsaScheme) Verify(pub, msg, sig []byte) bool {
	return safely(s.Name(), func() bool {
		parsed, err := x509.ParsePKIXPublicKey(pub)
		if err != nil {
			return false
		}
		key, ok := parsed.(*rsa.PublicKey)
		if !ok {
			return false
		}
		digest := sha256.Sum256(msg)
		return rsa.VerifyPKCS1v15(key, crypto.SHA256, digest[:], sig) == nil
	})
}
