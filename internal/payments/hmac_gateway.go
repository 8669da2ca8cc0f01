package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"ticketly/pkg/apperrors"

	"github.com/shopspring/decimal"
)

// Config for the signed-redirect gateway.
type Config struct {
	GatewayURL   string
	MerchantCode string
	SecretKey    string
	Currency     string
}

// HMACGateway implements Gateway against a hosted-page provider that signs
// every request and callback with HMAC-SHA512 over the sorted query string.
type HMACGateway struct {
	config Config
}

func NewHMACGateway(config Config) *HMACGateway {
	return &HMACGateway{config: config}
}

// BuildRedirectURL assembles the signed payment-page URL for an order.
func (g *HMACGateway) BuildRedirectURL(_ context.Context, req PaymentRequest) (string, error) {
	if g.config.MerchantCode == "" || g.config.SecretKey == "" {
		return "", fmt.Errorf("%w: gateway credentials not configured", apperrors.ErrPaymentGateway)
	}
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return "", fmt.Errorf("%w: amount must be positive", apperrors.ErrPaymentGateway)
	}

	currency := req.Currency
	if currency == "" {
		currency = g.config.Currency
	}

	params := url.Values{}
	params.Set("pay_merchant", g.config.MerchantCode)
	params.Set("pay_order_ref", req.OrderID)
	params.Set("pay_amount", req.Amount.StringFixed(2))
	params.Set("pay_currency", currency)
	params.Set("pay_return_url", req.ReturnURL)
	params.Set("pay_client_ip", req.ClientIP)
	params.Set("pay_timestamp", strconv.FormatInt(time.Now().Unix(), 10))
	params.Set("pay_signature", g.sign(params))

	return g.config.GatewayURL + "?" + params.Encode(), nil
}

// VerifyCallback recomputes the signature over the callback parameters and
// reads out the order reference, amount and outcome. It never errors on a bad
// signature; that verdict belongs in the result so the caller can cancel the
// order rather than retry.
func (g *HMACGateway) VerifyCallback(values url.Values) (*CallbackResult, error) {
	orderRef := values.Get("pay_order_ref")
	if orderRef == "" {
		return nil, fmt.Errorf("%w: callback missing order reference", apperrors.ErrPaymentGateway)
	}

	amount, err := decimal.NewFromString(values.Get("pay_amount"))
	if err != nil {
		return nil, fmt.Errorf("%w: callback has malformed amount: %v", apperrors.ErrPaymentGateway, err)
	}

	received := values.Get("pay_signature")
	unsigned := url.Values{}
	for key := range values {
		if key != "pay_signature" && strings.HasPrefix(key, "pay_") {
			unsigned.Set(key, values.Get(key))
		}
	}

	signatureValid := received != "" && hmac.Equal([]byte(received), []byte(g.sign(unsigned)))

	return &CallbackResult{
		OrderID:        orderRef,
		Amount:         amount,
		Success:        signatureValid && values.Get("pay_status") == "00",
		SignatureValid: signatureValid,
	}, nil
}

// sign computes HMAC-SHA512 over the key-sorted parameter string.
func (g *HMACGateway) sign(params url.Values) string {
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var builder strings.Builder
	for i, key := range keys {
		if i > 0 {
			builder.WriteByte('&')
		}
		builder.WriteString(key)
		builder.WriteByte('=')
		builder.WriteString(params.Get(key))
	}

	mac := hmac.New(sha512.New, []byte(g.config.SecretKey))
	mac.Write([]byte(builder.String()))
	return hex.EncodeToString(mac.Sum(nil))
}
