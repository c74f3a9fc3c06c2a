package payu

import (
	"crypto/subtle"
	"strings"
)

var requiredCallbackFields = []string{
	"txnid", "status", "amount", "hash", "email", "firstname", "productinfo",
}

type Verifier struct {
	creds Credentials
}

func NewVerifier(c Credentials) *Verifier { return &Verifier{creds: c} }

// CallbackHash is the digest the gateway is expected to attach to a
// callback carrying p.
func (v *Verifier) CallbackHash(p Params) (string, error) {
	s, err := ReverseString(v.creds.Salt, p)
	if err != nil {
		return "", err
	}
	return digest(s), nil
}

// Verify reports whether fields carry a hash that only a holder of the
// salt could have produced. Missing fields, a foreign merchant key or a
// non-numeric amount all fail verification. A callback without key is
// hashed with our own merchant key.
func (v *Verifier) Verify(fields map[string]string) bool {
	for _, f := range requiredCallbackFields {
		if strings.TrimSpace(fields[f]) == "" {
			return false
		}
	}
	p := ParamsFromCallback(fields)
	if p.Key == "" {
		p.Key = v.creds.Key
	} else if p.Key != v.creds.Key {
		return false
	}
	expected, err := v.CallbackHash(p)
	if err != nil {
		return false
	}
	got := strings.ToLower(strings.TrimSpace(fields["hash"]))
	return subtle.ConstantTimeCompare([]byte(expected), []byte(got)) == 1
}
