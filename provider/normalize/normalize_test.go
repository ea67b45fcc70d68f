package normalize

import (
	"encoding/json"
	"testing"

	"github.com/mstgnz/vrpay/provider/resultcode"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const statusBody = `{
	"id": "8ac7a4a18f1e2b3c018f1e5d7c8a1234",
	"paymentType": "DB",
	"paymentBrand": "VISA",
	"amount": "92.00",
	"currency": "EUR",
	"descriptor": "1234.5678.9012 Shop",
	"merchantTransactionId": "order-00012345",
	"result": {
		"code": "000.100.110",
		"description": "Request successfully processed in 'Merchant in Integrator Test Mode'",
		"avsResponse": "F",
		"randomField": "x"
	},
	"resultDetails": {
		"ConnectorTxID1": "8ac7a4a18f1e",
		"AcquirerResponse": "00"
	},
	"card": {
		"bin": "420000",
		"holder": "Jane Jones",
		"expiryMonth": "05",
		"expiryYear": "2034",
		"last4Digits": "0000"
	},
	"merchant": {
		"name": "Shop",
		"bankAccount": {
			"holder": "Shop GmbH",
			"number": "DE89370400440532013000",
			"bic": "COBADEFFXXX",
			"country": "DE",
			"bankName": "Commerzbank"
		}
	},
	"risk": {"score": 0},
	"customer": {"email": "jane@example.com"},
	"buildNumber": "b6e1d7d8@2024-05-01",
	"timestamp": "2024-05-02 10:11:12+0000",
	"ndc": "8a8294174e735d0c014e78beb6b9154b_ab12"
}`

func TestParse_FullResponse(t *testing.T) {
	r, err := Parse([]byte(statusBody))
	require.NoError(t, err)

	require.NotNil(t, r.ID)
	assert.Equal(t, "8ac7a4a18f1e2b3c018f1e5d7c8a1234", *r.ID)
	assert.Equal(t, "DB", *r.PaymentType)
	assert.Equal(t, "VISA", *r.PaymentBrand)
	assert.True(t, r.Amount.Valid)
	assert.True(t, decimal.RequireFromString("92").Equal(r.Amount.Decimal))
	assert.Equal(t, "EUR", *r.Currency)
	assert.Equal(t, "order-00012345", *r.MerchantTransactionID)
	assert.Nil(t, r.ReferencedID)
	assert.Nil(t, r.MerchantInvoiceID)

	assert.Equal(t, "000.100.110", r.ResultCode())
	assert.Equal(t, "F", *r.Result.AVSResponse)
	assert.Nil(t, r.Result.CVVResponse)
	assert.True(t, r.Classification().IsSuccessful())

	require.NotNil(t, r.ResultDetails)
	assert.Equal(t, "00", r.ResultDetails.AcquirerResponse)
	assert.Equal(t, "8ac7a4a18f1e", r.ResultDetails.Values["ConnectorTxID1"])

	require.NotNil(t, r.Card)
	assert.Equal(t, "420000", *r.Card.Bin)
	assert.Equal(t, "Jane Jones", *r.Card.Holder)
	assert.Equal(t, "05", *r.Card.ExpiryMonth)
	assert.Equal(t, "2034", *r.Card.ExpiryYear)

	require.NotNil(t, r.BankAccount)
	assert.Equal(t, "DE89370400440532013000", *r.BankAccount.Number)
	assert.Equal(t, "COBADEFFXXX", *r.BankAccount.BIC)

	require.NotNil(t, r.Risk)
	require.NotNil(t, r.Risk.Score)
	assert.Equal(t, 0, *r.Risk.Score)

	assert.Equal(t, map[string]any{"email": "jane@example.com"}, r.Other["customer"])
	assert.Equal(t, map[string]any{"randomField": "x"}, r.Other["result"])
	assert.Equal(t, map[string]any{"last4Digits": "0000"}, r.Other["card"])
	assert.Equal(t, map[string]any{
		"name":        "Shop",
		"bankAccount": map[string]any{"bankName": "Commerzbank"},
	}, r.Other["merchant"])
	assert.NotContains(t, r.Other, "resultDetails")
	assert.NotContains(t, r.Other, "id")
	assert.Contains(t, r.Raw, "card")
}

func TestParse_LiftsSinglePayment(t *testing.T) {
	r, err := Parse([]byte(`{"payments":[{"result":{"code":"000.000.1"}}]}`))
	require.NoError(t, err)
	assert.Equal(t, "000.000.1", r.ResultCode())
	assert.NotContains(t, r.Other, "payments")
	assert.Contains(t, r.Raw, "payments")
}

func TestParse_PaymentOverridesTopLevel(t *testing.T) {
	body := `{
		"buildNumber": "b1",
		"result": {"code": "000.000.100", "description": "query ok"},
		"payments": [{"id": "p1", "result": {"code": "800.100.100"}}]
	}`
	r, err := Parse([]byte(body))
	require.NoError(t, err)
	assert.Equal(t, "p1", *r.ID)
	assert.Equal(t, "b1", *r.BuildNumber)
	assert.Equal(t, "800.100.100", r.ResultCode())
	assert.Nil(t, r.Result.Description)
	assert.True(t, r.Classification().IsRejected())
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want error
	}{
		{"two payments", `{"payments":[{"id":"a"},{"id":"b"}]}`, ErrAmbiguousResponse},
		{"no payments", `{"payments":[]}`, ErrAmbiguousResponse},
		{"payments not array", `{"payments":{"id":"a"}}`, ErrPayloadFormat},
		{"payment not object", `{"payments":["a"]}`, ErrPayloadFormat},
		{"not json", `<html>502</html>`, ErrPayloadFormat},
		{"array body", `[{"id":"a"}]`, ErrPayloadFormat},
		{"null body", `null`, ErrPayloadFormat},
		{"trailing data", `{"id":"a"}{"id":"b"}`, ErrPayloadFormat},
		{"trailing bracket", `{"id":"a"}]`, ErrPayloadFormat},
		{"trailing brace", `{"id":"a"}}`, ErrPayloadFormat},
		{"trailing scalar", `{"id":"a"} 1`, ErrPayloadFormat},
		{"empty body", ``, ErrPayloadFormat},
		{"bad amount", `{"amount":"ninety"}`, ErrPayloadFormat},
		{"bad risk score", `{"risk":{"score":"high"}}`, ErrPayloadFormat},
		{"card not object", `{"card":"4200"}`, ErrPayloadFormat},
		{"id is object", `{"id":{"x":1}}`, ErrPayloadFormat},
		{"nested bank field is array", `{"merchant":{"bankAccount":{"bic":[1]}}}`, ErrPayloadFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.body))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNormalize_MissingGroupsAreUnset(t *testing.T) {
	r, err := Parse([]byte(`{"id":"abc","result":{"code":"000.200.000"}}`))
	require.NoError(t, err)

	assert.Nil(t, r.Card)
	assert.Nil(t, r.BankAccount)
	assert.Nil(t, r.Risk)
	assert.Nil(t, r.ResultDetails)
	assert.False(t, r.Amount.Valid)
	assert.Empty(t, r.Other)
	assert.True(t, r.Classification().IsPending())
}

func TestNormalize_MissingResult(t *testing.T) {
	r, err := Parse([]byte(`{"id":"abc"}`))
	require.NoError(t, err)
	assert.Nil(t, r.Result)
	assert.Equal(t, "", r.ResultCode())
	assert.True(t, r.Classification().Empty())
}

func TestNormalize_MerchantWithoutBankAccount(t *testing.T) {
	r, err := Parse([]byte(`{"merchant":{"name":"Shop"}}`))
	require.NoError(t, err)
	assert.Nil(t, r.BankAccount)
	assert.Equal(t, map[string]any{"name": "Shop"}, r.Other["merchant"])
}

func TestNormalize_NullValuesAreUnset(t *testing.T) {
	r, err := Parse([]byte(`{"id":null,"card":null,"amount":null}`))
	require.NoError(t, err)
	assert.Nil(t, r.ID)
	assert.Nil(t, r.Card)
	assert.False(t, r.Amount.Valid)
}

func TestNormalize_NumericStrings(t *testing.T) {
	r, err := Parse([]byte(`{"amount":10.5,"card":{"expiryYear":2030},"risk":{"score":-250}}`))
	require.NoError(t, err)
	assert.Equal(t, "10.5", r.Amount.Decimal.String())
	assert.Equal(t, "2030", *r.Card.ExpiryYear)
	assert.Equal(t, -250, *r.Risk.Score)
}

func TestResponse_JSON(t *testing.T) {
	r, err := Parse([]byte(statusBody))
	require.NoError(t, err)

	data, err := json.Marshal(r)
	require.NoError(t, err)

	var back Response
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, r.ResultCode(), back.ResultCode())
	assert.True(t, r.Amount.Decimal.Equal(back.Amount.Decimal))
	assert.Equal(t, *r.Card.Bin, *back.Card.Bin)
	assert.Nil(t, back.Raw)
	assert.Equal(t, resultcode.Classify("000.100.110"), back.Classification())
}
