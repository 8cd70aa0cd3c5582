package enums

import "fmt"

// PaymentTermsType describes when a supplier expects payment.
type PaymentTermsType string

const (
	PaymentTermsImmediate  PaymentTermsType = "immediate"
	PaymentTermsNet        PaymentTermsType = "net"
	PaymentTermsEndOfMonth PaymentTermsType = "end_of_month"
)

var validPaymentTermsTypes = []PaymentTermsType{
	PaymentTermsImmediate,
	PaymentTermsNet,
	PaymentTermsEndOfMonth,
}

// String implements fmt.Stringer.
func (p PaymentTermsType) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentTermsType.
func (p PaymentTermsType) IsValid() bool {
	for _, candidate := range validPaymentTermsTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentTermsType converts raw input into a PaymentTermsType.
func ParsePaymentTermsType(value string) (PaymentTermsType, error) {
	for _, candidate := range validPaymentTermsTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment terms type %q", value)
}
