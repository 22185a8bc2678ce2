package valueobject

import "fmt"

// PaymentType distinguishes cash sales from financed (installment) sales.
type PaymentType struct {
	value string
}

const (
	paymentTypeCash     = "cash"
	paymentTypeFinanced = "financed"
)

var (
	PaymentTypeCash     = PaymentType{value: paymentTypeCash}
	PaymentTypeFinanced = PaymentType{value: paymentTypeFinanced}
)

var validPaymentTypes = map[string]PaymentType{
	paymentTypeCash:     PaymentTypeCash,
	paymentTypeFinanced: PaymentTypeFinanced,
}

// NewPaymentType creates a PaymentType from a raw string.
func NewPaymentType(s string) (PaymentType, error) {
	v, ok := validPaymentTypes[s]
	if !ok {
		return PaymentType{}, fmt.Errorf("invalid payment type: %q", s)
	}
	return v, nil
}

func (p PaymentType) String() string { return p.value }

func (p PaymentType) IsFinanced() bool { return p.value == paymentTypeFinanced }

func (p PaymentType) Equal(other PaymentType) bool { return p.value == other.value }
