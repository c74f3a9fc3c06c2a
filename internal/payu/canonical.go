// Package payu implements the PayU hash protocol: the canonical pipe
// separated strings, outbound request signing and callback verification.
package payu

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const sep = "|"

// populatedUDFs is how many of the ten user defined fields this service
// ever fills. The rest always hash as empty strings.
const populatedUDFs = 5

var ErrInvalidAmount = errors.New("payu: invalid amount")

// Params are the fields that take part in a PayU hash.
type Params struct {
	Key         string
	TxnID       string
	Amount      string
	ProductInfo string
	FirstName   string
	Email       string
	Status      string // callback only
	UDF         [10]string
}

// ForwardString builds key|txnid|amount|productinfo|firstname|email|udf1..udf10.
// Amount is used exactly as the caller supplied it.
func ForwardString(p Params) string {
	parts := make([]string, 0, 6+len(p.UDF))
	parts = append(parts, p.Key, p.TxnID, p.Amount, p.ProductInfo, p.FirstName, p.Email)
	parts = append(parts, p.UDF[:]...)
	return strings.Join(parts, sep)
}

// ReverseString builds salt|status|udf10..udf1|email|firstname|productinfo|amount|txnid|key.
// Email, first name and product info are trimmed and the amount is
// rewritten with exactly two fractional digits.
func ReverseString(salt string, p Params) (string, error) {
	amount, err := FormatAmount(p.Amount)
	if err != nil {
		return "", err
	}
	parts := make([]string, 0, 8+len(p.UDF))
	parts = append(parts, salt, p.Status)
	for i := len(p.UDF) - 1; i >= 0; i-- {
		parts = append(parts, p.UDF[i])
	}
	parts = append(parts,
		strings.TrimSpace(p.Email),
		strings.TrimSpace(p.FirstName),
		strings.TrimSpace(p.ProductInfo),
		amount,
		p.TxnID,
		p.Key,
	)
	return strings.Join(parts, sep), nil
}

// FormatAmount parses a decimal amount and renders it with two fractional digits.
func FormatAmount(s string) (string, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return d.StringFixed(2), nil
}

// ParamsFromCallback maps the gateway's callback form fields onto Params.
func ParamsFromCallback(fields map[string]string) Params {
	p := Params{
		Key:         fields["key"],
		TxnID:       fields["txnid"],
		Amount:      fields["amount"],
		ProductInfo: fields["productinfo"],
		FirstName:   fields["firstname"],
		Email:       fields["email"],
		Status:      fields["status"],
	}
	for i := 0; i < populatedUDFs; i++ {
		p.UDF[i] = fields[fmt.Sprintf("udf%d", i+1)]
	}
	return p
}
