package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/mstgnz/vrpay/provider"
	"github.com/mstgnz/vrpay/provider/normalize"
	"github.com/mstgnz/vrpay/provider/resultcode"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "data", "vrpay.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newPayment(mtid string) *provider.Payment {
	return &provider.Payment{
		EntityID:              "8a8294174e735d0c014e78cf26461790",
		Amount:                decimal.RequireFromString("92.00"),
		TaxAmount:             decimal.RequireFromString("14.69"),
		Currency:              "EUR",
		PaymentType:           provider.TypeDebit,
		MerchantTransactionID: mtid,
		Sandbox:               true,
	}
}

func parseRecord(t *testing.T, body string) normalize.Response {
	t.Helper()
	rec, err := normalize.Parse([]byte(body))
	require.NoError(t, err)
	return rec
}

func TestSQLStore_PaymentLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := newPayment("order-00012345")
	require.NoError(t, s.CreatePayment(ctx, p))
	assert.NotZero(t, p.ID)
	assert.False(t, p.CreatedAt.IsZero())

	got, err := s.GetPayment(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "order-00012345", got.MerchantTransactionID)
	assert.True(t, got.Amount.Equal(decimal.RequireFromString("92")))
	assert.True(t, got.TaxAmount.Equal(decimal.RequireFromString("14.69")))
	assert.Equal(t, provider.TypeDebit, got.PaymentType)
	assert.True(t, got.Sandbox)
	assert.WithinDuration(t, p.CreatedAt, got.CreatedAt, time.Second)

	got.CheckoutID = "CHK-1"
	got.ResourcePath = "/v1/checkouts/CHK-1/payment"
	require.NoError(t, s.UpdatePayment(ctx, got))

	byCheckout, err := s.GetPaymentByCheckoutID(ctx, "CHK-1")
	require.NoError(t, err)
	assert.Equal(t, p.ID, byCheckout.ID)
	assert.Equal(t, "/v1/checkouts/CHK-1/payment", byCheckout.ResourcePath)

	byTx, err := s.GetPaymentByMerchantTransactionID(ctx, "order-00012345")
	require.NoError(t, err)
	assert.Equal(t, p.ID, byTx.ID)
}

func TestSQLStore_PaymentErrors(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreatePayment(ctx, newPayment("order-00012345")))
	err := s.CreatePayment(ctx, newPayment("order-00012345"))
	assert.ErrorIs(t, err, provider.ErrDuplicateTransaction)

	_, err = s.GetPayment(ctx, 999)
	assert.ErrorIs(t, err, provider.ErrPaymentNotFound)

	_, err = s.GetPaymentByCheckoutID(ctx, "")
	assert.ErrorIs(t, err, provider.ErrPaymentNotFound)

	err = s.UpdatePayment(ctx, &provider.Payment{ID: 999})
	assert.ErrorIs(t, err, provider.ErrPaymentNotFound)
}

func TestSQLStore_FindPayments(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := newPayment("order-aaaaaaaa")
	a.CheckoutID = "CHK-A"
	require.NoError(t, s.CreatePayment(ctx, a))

	b := newPayment("order-bbbbbbbb")
	b.CheckoutID = "CHK-B"
	b.GatewayPaymentID = "8ac7a4a1"
	require.NoError(t, s.CreatePayment(ctx, b))

	tests := []struct {
		name  string
		key   provider.OwnerKey
		value string
		want  []int64
	}{
		{"checkout_id", provider.OwnerByGatewayID, "CHK-A", []int64{a.ID}},
		{"payment_id", provider.OwnerByGatewayID, "8ac7a4a1", []int64{b.ID}},
		{"merchant_transaction_id", provider.OwnerByMerchantTransactionID, "order-bbbbbbbb", []int64{b.ID}},
		{"referenced_id", provider.OwnerByReferencedID, "8ac7a4a1", []int64{b.ID}},
		{"referenced_id_ignores_checkout", provider.OwnerByReferencedID, "CHK-A", nil},
		{"blank_value", provider.OwnerByGatewayID, "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			found, err := s.FindPayments(ctx, tt.key, tt.value)
			require.NoError(t, err)
			var ids []int64
			for _, p := range found {
				ids = append(ids, p.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}

	_, err := s.FindPayments(ctx, provider.OwnerKey("email"), "x")
	assert.Error(t, err)
}

func TestSQLStore_Responses(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := newPayment("order-00012345")
	require.NoError(t, s.CreatePayment(ctx, p))

	save := func(kind provider.ResponseKind, body string) *provider.GatewayResponse {
		rec := parseRecord(t, body)
		r := &provider.GatewayResponse{
			OwnerID:        &p.ID,
			Kind:           kind,
			HTTPStatusCode: 200,
			URL:            "https://test.vr-pay-ecommerce.de/v1/query",
			Headers:        map[string]string{"Content-Type": "application/json"},
			RawContent:     []byte(body),
			Record:         rec,
			Classification: rec.Classification(),
		}
		require.NoError(t, s.SaveResponse(ctx, r))
		return r
	}

	checkout := save(provider.KindCheckout, `{"id":"CHK-1","result":{"code":"000.200.100","description":"successfully created checkout"}}`)
	pending := save(provider.KindStatus, `{"id":"8ac7a4a1","result":{"code":"000.200.000"}}`)
	success := save(provider.KindStatus, `{"id":"8ac7a4a1","amount":"92.00","currency":"EUR","result":{"code":"000.100.110"},"card":{"bin":"420000"}}`)
	unknown := save(provider.KindStatus, `{"result":{"code":"123.456.789"}}`)

	all, err := s.ListResponses(ctx, provider.ResponseFilter{PaymentID: p.ID})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, unknown.ID, all[0].ID, "newest first")
	assert.Equal(t, checkout.ID, all[3].ID)

	latest, err := s.ListResponses(ctx, provider.ResponseFilter{PaymentID: p.ID, Kind: provider.KindStatus, Limit: 1})
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, unknown.ID, latest[0].ID)

	successful, err := s.ListResponses(ctx, provider.ResponseFilter{PaymentID: p.ID, Any: resultcode.OutcomeSuccessful.Mask()})
	require.NoError(t, err)
	require.Len(t, successful, 1)
	got := successful[0]
	assert.Equal(t, success.ID, got.ID)
	assert.Equal(t, "000.100.110", got.ResultCode())
	assert.Equal(t, resultcode.OutcomeSuccessful, got.Outcome())
	assert.Equal(t, p.ID, *got.OwnerID)
	assert.Nil(t, got.WebhookID)
	assert.Equal(t, "application/json", got.Headers["Content-Type"])
	assert.True(t, got.Record.Amount.Valid)
	assert.Equal(t, "420000", *got.Record.Card.Bin)
	assert.NotNil(t, got.Record.Raw)
	assert.JSONEq(t, string(success.RawContent), string(got.RawContent))

	pendingOnly, err := s.ListResponses(ctx, provider.ResponseFilter{PaymentID: p.ID, Any: resultcode.OutcomePending.Mask()})
	require.NoError(t, err)
	var ids []int64
	for _, r := range pendingOnly {
		ids = append(ids, r.ID)
	}
	assert.Contains(t, ids, pending.ID)
	assert.Contains(t, ids, checkout.ID)

	known := resultcode.OutcomeSuccessful.Mask() | resultcode.OutcomeRejected.Mask() | resultcode.OutcomePending.Mask()
	unclassified, err := s.ListResponses(ctx, provider.ResponseFilter{PaymentID: p.ID, None: known})
	require.NoError(t, err)
	require.Len(t, unclassified, 1)
	assert.Equal(t, unknown.ID, unclassified[0].ID)
}

func TestSQLStore_Webhooks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	w := &provider.Webhook{
		Headers:       map[string]string{"X-Initialization-Vector": "00"},
		Type:          "PAYMENT",
		Action:        "CREATED",
		DecryptedBody: []byte(`{"type":"PAYMENT","payload":{"id":"8ac7a4a1"}}`),
		Fingerprint:   "f00d",
	}
	exists, err := s.WebhookExists(ctx, "f00d")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, s.SaveWebhook(ctx, w))
	assert.NotZero(t, w.ID)

	exists, err = s.WebhookExists(ctx, "f00d")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = s.WebhookExists(ctx, "beef")
	require.NoError(t, err)
	assert.False(t, exists)

	rec := parseRecord(t, `{"id":"8ac7a4a1","result":{"code":"000.000.000"}}`)
	r := &provider.GatewayResponse{
		WebhookID:      &w.ID,
		Kind:           provider.KindWebhook,
		RawContent:     []byte(`{"id":"8ac7a4a1","result":{"code":"000.000.000"}}`),
		Record:         rec,
		Classification: rec.Classification(),
	}
	require.NoError(t, s.SaveResponse(ctx, r))

	responses, err := s.ListResponses(ctx, provider.ResponseFilter{Kind: provider.KindWebhook})
	require.NoError(t, err)
	require.Len(t, responses, 1)
	assert.Nil(t, responses[0].OwnerID, "unowned webhook responses are kept")
	assert.Equal(t, w.ID, *responses[0].WebhookID)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats["webhooks"])
	assert.Equal(t, int64(1), stats["gateway_responses"])
	assert.Equal(t, int64(0), stats["payments"])
}

func TestSQLStore_Ping(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.Ping(context.Background()))
}

func TestRebind(t *testing.T) {
	pg := &SQLStore{driver: DriverPostgres}
	assert.Equal(t, "SELECT 1 WHERE a = $1 AND b = $2", pg.rebind("SELECT 1 WHERE a = ? AND b = ?"))

	lite := &SQLStore{driver: DriverSQLite}
	assert.Equal(t, "a = ?", lite.rebind("a = ?"))
}
