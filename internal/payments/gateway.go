package payments

import (
	"context"
	"net/url"

	"github.com/shopspring/decimal"
)

// PaymentRequest asks the gateway for a hosted payment page.
type PaymentRequest struct {
	OrderID   string
	Amount    decimal.Decimal
	Currency  string
	ReturnURL string
	ClientIP  string
}

// CallbackResult is the gateway's verdict on an asynchronous callback.
// SignatureValid false means the payload cannot be trusted at all; Success
// reflects the payment outcome only when the signature checks out.
type CallbackResult struct {
	OrderID        string
	Amount         decimal.Decimal
	Success        bool
	SignatureValid bool
}

// Gateway is the narrow contract the reservation engine depends on. The core
// never constructs gateway-specific signing logic outside an implementation
// of this interface.
type Gateway interface {
	BuildRedirectURL(ctx context.Context, req PaymentRequest) (string, error)
	VerifyCallback(values url.Values) (*CallbackResult, error)
}
