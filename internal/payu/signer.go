package payu

import (
	"crypto/sha512"
	"encoding/hex"
)

// Credentials identify the merchant to the gateway. Salt is the shared secret.
type Credentials struct {
	Key  string
	Salt string
}

type Signer struct {
	creds Credentials
}

func NewSigner(c Credentials) *Signer { return &Signer{creds: c} }

// Key is the merchant key that goes into every outbound request.
func (s *Signer) Key() string { return s.creds.Key }

// Sign returns hex(sha512(ForwardString(p) + "|" + salt)).
func (s *Signer) Sign(p Params) string {
	return digest(ForwardString(p) + sep + s.creds.Salt)
}

func digest(s string) string {
	sum := sha512.Sum512([]byte(s))
	return hex.EncodeToString(sum[:])
}
