// Package normalize flattens VR Payment JSON responses into a Response record.
//
// The gateway answers checkout, status and query calls, and delivers webhook
// payloads, in the same nested shape. Every nested group is optional: a
// missing parent leaves its whole group unset. Keys the schema does not know
// are kept verbatim in Response.Other.
package normalize

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/mstgnz/vrpay/provider/resultcode"
	"github.com/shopspring/decimal"
)

var (
	// ErrAmbiguousResponse is returned when a payments array does not hold exactly one element.
	ErrAmbiguousResponse = errors.New("normalize: ambiguous multi-payment response")
	// ErrPayloadFormat is returned for bodies that are not the expected JSON shape.
	ErrPayloadFormat = errors.New("normalize: invalid payload format")
)

// Result is the result group of a response.
type Result struct {
	Code        *string `json:"code,omitempty"`
	Description *string `json:"description,omitempty"`
	AVSResponse *string `json:"avsResponse,omitempty"`
	CVVResponse *string `json:"cvvResponse,omitempty"`
}

// Card is the card group of a response.
type Card struct {
	Bin         *string `json:"bin,omitempty"`
	Holder      *string `json:"holder,omitempty"`
	ExpiryMonth *string `json:"expiryMonth,omitempty"`
	ExpiryYear  *string `json:"expiryYear,omitempty"`
}

// BankAccount is the merchant.bankAccount group of a response.
type BankAccount struct {
	Holder  *string `json:"holder,omitempty"`
	Number  *string `json:"number,omitempty"`
	BIC     *string `json:"bic,omitempty"`
	Country *string `json:"country,omitempty"`
}

// Risk is the risk group of a response.
type Risk struct {
	Score *int `json:"score,omitempty"`
}

// ResultDetails is the resultDetails group. Values are bank specific, so the
// whole map is kept alongside the acquirer response.
type ResultDetails struct {
	AcquirerResponse any            `json:"acquirerResponse,omitempty"`
	Values           map[string]any `json:"values,omitempty"`
}

// Response is the flat record built from one gateway response. A nil field
// means the gateway did not send it.
type Response struct {
	ID                    *string             `json:"id,omitempty"`
	ReferencedID          *string             `json:"referencedId,omitempty"`
	PaymentType           *string             `json:"paymentType,omitempty"`
	PaymentBrand          *string             `json:"paymentBrand,omitempty"`
	Amount                decimal.NullDecimal `json:"amount"`
	Currency              *string             `json:"currency,omitempty"`
	Descriptor            *string             `json:"descriptor,omitempty"`
	MerchantTransactionID *string             `json:"merchantTransactionId,omitempty"`
	MerchantInvoiceID     *string             `json:"merchantInvoiceId,omitempty"`
	BuildNumber           *string             `json:"buildNumber,omitempty"`
	NDC                   *string             `json:"ndc,omitempty"`
	Timestamp             *string             `json:"timestamp,omitempty"`

	Result        *Result        `json:"result,omitempty"`
	ResultDetails *ResultDetails `json:"resultDetails,omitempty"`
	Card          *Card          `json:"card,omitempty"`
	BankAccount   *BankAccount   `json:"bankAccount,omitempty"`
	Risk          *Risk          `json:"risk,omitempty"`

	Other map[string]any `json:"other,omitempty"`

	// Raw is the object as received, before any payments lifting.
	Raw map[string]any `json:"-"`
}

// ResultCode returns result.code or "" when unset.
func (r Response) ResultCode() string {
	if r.Result == nil || r.Result.Code == nil {
		return ""
	}
	return *r.Result.Code
}

// Classification classifies the result code.
func (r Response) Classification() resultcode.Set {
	return resultcode.Classify(r.ResultCode())
}

// Parse decodes body and normalizes it.
func Parse(body []byte) (Response, error) {
	obj, err := Decode(body)
	if err != nil {
		return Response{}, err
	}
	return Normalize(obj)
}

// Decode reads body as a single JSON object. Numbers are kept as json.Number.
func Decode(body []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPayloadFormat, err)
	}
	if obj == nil {
		return nil, fmt.Errorf("%w: body is not a JSON object", ErrPayloadFormat)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after JSON object", ErrPayloadFormat)
	}
	return obj, nil
}

// Normalize builds a Response from a decoded object.
func Normalize(obj map[string]any) (Response, error) {
	flat, err := liftPayments(obj)
	if err != nil {
		return Response{}, err
	}

	r := Response{Raw: obj}
	rd := reader{src: flat, seen: map[string]bool{}}

	r.ID = rd.str("id")
	r.ReferencedID = rd.str("referencedId")
	r.PaymentType = rd.str("paymentType")
	r.PaymentBrand = rd.str("paymentBrand")
	r.Amount = rd.amount("amount")
	r.Currency = rd.str("currency")
	r.Descriptor = rd.str("descriptor")
	r.MerchantTransactionID = rd.str("merchantTransactionId")
	r.MerchantInvoiceID = rd.str("merchantInvoiceId")
	r.BuildNumber = rd.str("buildNumber")
	r.NDC = rd.str("ndc")
	r.Timestamp = rd.str("timestamp")

	if g := rd.group("result"); g != nil {
		r.Result = &Result{
			Code:        g.str("code"),
			Description: g.str("description"),
			AVSResponse: g.str("avsResponse"),
			CVVResponse: g.str("cvvResponse"),
		}
		rd.keepRest("result", g)
	}

	if g := rd.group("resultDetails"); g != nil {
		r.ResultDetails = &ResultDetails{
			AcquirerResponse: g.src["AcquirerResponse"],
			Values:           g.src,
		}
	}

	if g := rd.group("card"); g != nil {
		r.Card = &Card{
			Bin:         g.str("bin"),
			Holder:      g.str("holder"),
			ExpiryMonth: g.str("expiryMonth"),
			ExpiryYear:  g.str("expiryYear"),
		}
		rd.keepRest("card", g)
	}

	if m := rd.group("merchant"); m != nil {
		if b := m.group("bankAccount"); b != nil {
			r.BankAccount = &BankAccount{
				Holder:  b.str("holder"),
				Number:  b.str("number"),
				BIC:     b.str("bic"),
				Country: b.str("country"),
			}
			m.keepRest("bankAccount", b)
		}
		rd.keepRest("merchant", m)
	}

	if g := rd.group("risk"); g != nil {
		r.Risk = &Risk{Score: g.integer("score")}
		rd.keepRest("risk", g)
	}

	if rd.err != nil {
		return Response{}, rd.err
	}

	for k, v := range flat {
		if !rd.seen[k] {
			rd.other()[k] = v
		}
	}
	r.Other = rd.rest
	return r, nil
}

// liftPayments merges the single element of a payments array into the top level.
func liftPayments(obj map[string]any) (map[string]any, error) {
	raw, ok := obj["payments"]
	if !ok {
		return obj, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: payments is %T, want array", ErrPayloadFormat, raw)
	}
	if len(list) != 1 {
		return nil, fmt.Errorf("%w: %d payments", ErrAmbiguousResponse, len(list))
	}
	payment, ok := list[0].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: payments[0] is %T, want object", ErrPayloadFormat, list[0])
	}

	flat := make(map[string]any, len(obj)+len(payment))
	for k, v := range obj {
		if k != "payments" {
			flat[k] = v
		}
	}
	for k, v := range payment {
		flat[k] = v
	}
	return flat, nil
}

// reader tracks which keys of src were consumed. The first type error is
// kept in err and later reads become no-ops.
type reader struct {
	src  map[string]any
	seen map[string]bool
	rest map[string]any
	err  error
	path string
}

func (rd *reader) fail(key string, format string, args ...any) {
	if rd.err == nil {
		rd.err = fmt.Errorf("%w: %s%s: %s", ErrPayloadFormat, rd.path, key, fmt.Sprintf(format, args...))
	}
}

func (rd *reader) other() map[string]any {
	if rd.rest == nil {
		rd.rest = map[string]any{}
	}
	return rd.rest
}

func (rd *reader) str(key string) *string {
	rd.seen[key] = true
	v, ok := rd.src[key]
	if !ok || v == nil || rd.err != nil {
		return nil
	}
	switch t := v.(type) {
	case string:
		return &t
	case json.Number:
		s := t.String()
		return &s
	case bool:
		s := strconv.FormatBool(t)
		return &s
	default:
		rd.fail(key, "unexpected %T", v)
		return nil
	}
}

func (rd *reader) amount(key string) decimal.NullDecimal {
	s := rd.str(key)
	if s == nil {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		rd.fail(key, "invalid amount %q", *s)
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

func (rd *reader) integer(key string) *int {
	s := rd.str(key)
	if s == nil {
		return nil
	}
	n, err := strconv.Atoi(*s)
	if err != nil {
		rd.fail(key, "invalid integer %q", *s)
		return nil
	}
	return &n
}

// group returns a reader for a nested object, or nil when the key is absent.
func (rd *reader) group(key string) *reader {
	rd.seen[key] = true
	v, ok := rd.src[key]
	if !ok || v == nil || rd.err != nil {
		return nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		rd.fail(key, "unexpected %T, want object", v)
		return nil
	}
	return &reader{src: m, seen: map[string]bool{}, path: rd.path + key + "."}
}

// keepRest copies unknown keys of a nested group into rd's other bucket
// under the group's own key, and carries up any error.
func (rd *reader) keepRest(key string, g *reader) {
	if g.err != nil && rd.err == nil {
		rd.err = g.err
	}
	rest := g.rest
	for k, v := range g.src {
		if !g.seen[k] {
			if rest == nil {
				rest = map[string]any{}
			}
			rest[k] = v
		}
	}
	if len(rest) > 0 {
		rd.other()[key] = rest
	}
}
