package payments

import (
	"context"
	"net/url"
	"testing"

	"ticketly/pkg/apperrors"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGateway() *HMACGateway {
	return NewHMACGateway(Config{
		GatewayURL:   "https://sandbox.gateway.example/pay",
		MerchantCode: "MERCHANT01",
		SecretKey:    "super-secret-key",
		Currency:     "USD",
	})
}

func TestBuildRedirectURL(t *testing.T) {
	gw := testGateway()

	redirect, err := gw.BuildRedirectURL(context.Background(), PaymentRequest{
		OrderID:   "order-123",
		Amount:    decimal.NewFromFloat(90),
		ReturnURL: "http://localhost:8080/api/v1/payments/callback",
		ClientIP:  "10.0.0.1",
	})
	require.NoError(t, err)

	parsed, err := url.Parse(redirect)
	require.NoError(t, err)
	params := parsed.Query()

	assert.Equal(t, "MERCHANT01", params.Get("pay_merchant"))
	assert.Equal(t, "order-123", params.Get("pay_order_ref"))
	assert.Equal(t, "90.00", params.Get("pay_amount"), "amounts are fixed to two decimals")
	assert.Equal(t, "USD", params.Get("pay_currency"))
	assert.NotEmpty(t, params.Get("pay_signature"))
	assert.NotEmpty(t, params.Get("pay_timestamp"))
}

func TestBuildRedirectURL_Rejections(t *testing.T) {
	t.Run("missing credentials", func(t *testing.T) {
		gw := NewHMACGateway(Config{GatewayURL: "https://x.example"})
		_, err := gw.BuildRedirectURL(context.Background(), PaymentRequest{
			OrderID: "order-123",
			Amount:  decimal.NewFromFloat(10),
		})
		assert.ErrorIs(t, err, apperrors.ErrPaymentGateway)
	})

	t.Run("non-positive amount", func(t *testing.T) {
		_, err := testGateway().BuildRedirectURL(context.Background(), PaymentRequest{
			OrderID: "order-123",
			Amount:  decimal.Zero,
		})
		assert.ErrorIs(t, err, apperrors.ErrPaymentGateway)
	})
}

// callback builds a gateway-signed callback the way the provider would: the
// same HMAC over the sorted pay_ parameters.
func callback(gw *HMACGateway, orderRef, amount, status string) url.Values {
	values := url.Values{}
	values.Set("pay_order_ref", orderRef)
	values.Set("pay_amount", amount)
	values.Set("pay_status", status)
	values.Set("pay_merchant", "MERCHANT01")
	values.Set("pay_signature", gw.sign(values))
	return values
}

func TestVerifyCallback_RoundTrip(t *testing.T) {
	gw := testGateway()

	result, err := gw.VerifyCallback(callback(gw, "order-123", "90.00", "00"))
	require.NoError(t, err)

	assert.Equal(t, "order-123", result.OrderID)
	assert.True(t, result.SignatureValid)
	assert.True(t, result.Success)
	assert.True(t, result.Amount.Equal(decimal.NewFromFloat(90)))
}

func TestVerifyCallback_DeniedPayment(t *testing.T) {
	gw := testGateway()

	result, err := gw.VerifyCallback(callback(gw, "order-123", "90.00", "05"))
	require.NoError(t, err)

	assert.True(t, result.SignatureValid, "a denial is still an authentic callback")
	assert.False(t, result.Success)
}

func TestVerifyCallback_TamperedPayload(t *testing.T) {
	gw := testGateway()

	t.Run("amount changed after signing", func(t *testing.T) {
		values := callback(gw, "order-123", "90.00", "00")
		values.Set("pay_amount", "0.01")

		result, err := gw.VerifyCallback(values)
		require.NoError(t, err)
		assert.False(t, result.SignatureValid)
		assert.False(t, result.Success, "success never survives a broken signature")
	})

	t.Run("missing signature", func(t *testing.T) {
		values := callback(gw, "order-123", "90.00", "00")
		values.Del("pay_signature")

		result, err := gw.VerifyCallback(values)
		require.NoError(t, err)
		assert.False(t, result.SignatureValid)
		assert.False(t, result.Success)
	})

	t.Run("signed with wrong secret", func(t *testing.T) {
		forger := NewHMACGateway(Config{
			GatewayURL:   "https://sandbox.gateway.example/pay",
			MerchantCode: "MERCHANT01",
			SecretKey:    "guessed-key",
			Currency:     "USD",
		})
		values := callback(forger, "order-123", "90.00", "00")

		result, err := gw.VerifyCallback(values)
		require.NoError(t, err)
		assert.False(t, result.SignatureValid)
	})
}

func TestVerifyCallback_MalformedPayload(t *testing.T) {
	gw := testGateway()

	t.Run("missing order reference", func(t *testing.T) {
		values := url.Values{"pay_amount": {"10.00"}}
		_, err := gw.VerifyCallback(values)
		assert.ErrorIs(t, err, apperrors.ErrPaymentGateway)
	})

	t.Run("unparseable amount", func(t *testing.T) {
		values := url.Values{
			"pay_order_ref": {"order-123"},
			"pay_amount":    {"ninety"},
		}
		_, err := gw.VerifyCallback(values)
		assert.ErrorIs(t, err, apperrors.ErrPaymentGateway)
	})
}

func TestSignIsDeterministicAndOrderIndependent(t *testing.T) {
	gw := testGateway()

	a := url.Values{}
	a.Set("pay_order_ref", "order-123")
	a.Set("pay_amount", "90.00")

	b := url.Values{}
	b.Set("pay_amount", "90.00")
	b.Set("pay_order_ref", "order-123")

	assert.Equal(t, gw.sign(a), gw.sign(b), "signature covers key-sorted parameters")
}
