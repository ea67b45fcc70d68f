package webhook

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/mstgnz/vrpay/provider/normalize"
)

const (
	HeaderInitializationVector = "X-Initialization-Vector"
	HeaderAuthenticationTag    = "X-Authentication-Tag"

	maxBodySize = 1 << 20
)

// Envelope is one inbound delivery, exactly as received.
type Envelope struct {
	Headers map[string]string
	IV      string
	Tag     string
	Body    string
}

// EnvelopeFromRequest reads the headers and hex body of a webhook request.
func EnvelopeFromRequest(r *http.Request) (Envelope, error) {
	headers := make(map[string]string, len(r.Header))
	for key, values := range r.Header {
		if len(values) > 0 {
			headers[key] = values[0]
		}
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		return Envelope{}, fmt.Errorf("%w: reading body: %v", ErrMalformedInput, err)
	}
	if len(body) > maxBodySize {
		return Envelope{}, fmt.Errorf("%w: body exceeds %d bytes", ErrMalformedInput, maxBodySize)
	}

	env := Envelope{
		Headers: headers,
		IV:      strings.TrimSpace(r.Header.Get(HeaderInitializationVector)),
		Tag:     strings.TrimSpace(r.Header.Get(HeaderAuthenticationTag)),
		Body:    strings.TrimSpace(string(body)),
	}
	if env.IV == "" {
		return env, fmt.Errorf("%w: missing %s header", ErrMalformedInput, HeaderInitializationVector)
	}
	if env.Tag == "" {
		return env, fmt.Errorf("%w: missing %s header", ErrMalformedInput, HeaderAuthenticationTag)
	}
	if env.Body == "" {
		return env, fmt.Errorf("%w: empty body", ErrMalformedInput)
	}
	return env, nil
}

// Open decrypts the envelope with keyHex.
func (e Envelope) Open(keyHex string) ([]byte, error) {
	return Decrypt(keyHex, e.IV, e.Tag, e.Body)
}

// Fingerprint identifies a delivery for duplicate lookup. Retries of the
// same notification carry identical IV, tag and body.
func (e Envelope) Fingerprint() string {
	h := sha256.New()
	for _, part := range []string{e.IV, e.Tag, e.Body} {
		h.Write([]byte(strings.ToLower(part)))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Type values the gateway sends.
const (
	TypePayment      = "PAYMENT"
	TypeRegistration = "REGISTRATION"
	TypeRisk         = "RISK"
	TypeTest         = "test"
)

// Notification is the decrypted webhook body.
type Notification struct {
	Type    string          `json:"type"`
	Action  string          `json:"action,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

// IsPayment reports whether the notification carries a payment payload.
func (n Notification) IsPayment() bool {
	return strings.EqualFold(n.Type, TypePayment)
}

// ParseNotification decodes decrypted plaintext.
func ParseNotification(plain []byte) (Notification, error) {
	var n Notification
	if err := json.Unmarshal(plain, &n); err != nil {
		return Notification{}, fmt.Errorf("%w: %v", normalize.ErrPayloadFormat, err)
	}
	if strings.TrimSpace(n.Type) == "" {
		return Notification{}, fmt.Errorf("%w: notification without type", normalize.ErrPayloadFormat)
	}
	return n, nil
}

// PaymentRecord normalizes the payload of a payment notification.
func (n Notification) PaymentRecord() (normalize.Response, error) {
	if len(n.Payload) == 0 {
		return normalize.Response{}, fmt.Errorf("%w: payment notification without payload", normalize.ErrPayloadFormat)
	}
	return normalize.Parse(n.Payload)
}
