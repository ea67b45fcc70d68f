package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mstgnz/vrpay/provider"
	"github.com/mstgnz/vrpay/provider/normalize"
	"github.com/mstgnz/vrpay/provider/resultcode"
)

const responseColumns = `id, payment_id, webhook_id, kind, http_status_code, url, headers, raw_content,
	record, classification, created_at`

// SaveResponse stores r with its indexed record fields and sets ID and CreatedAt
func (s *SQLStore) SaveResponse(ctx context.Context, r *provider.GatewayResponse) error {
	headers, err := marshalHeaders(r.Headers)
	if err != nil {
		return err
	}
	record, err := json.Marshal(r.Record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	raw := string(r.RawContent)
	if raw == "" {
		raw = "{}"
	}
	r.CreatedAt = s.now().UTC()

	query := s.rebind(`
		INSERT INTO gateway_responses (payment_id, webhook_id, kind, http_status_code, url, headers, raw_content,
			gateway_id, referenced_id, merchant_transaction_id, result_code, record, classification, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`)

	return s.write(ctx, func() error {
		err := s.db.QueryRowContext(ctx, query,
			nullInt64(r.OwnerID), nullInt64(r.WebhookID), string(r.Kind), r.HTTPStatusCode, r.URL, headers, raw,
			deref(r.Record.ID), deref(r.Record.ReferencedID), deref(r.Record.MerchantTransactionID),
			r.ResultCode(), string(record), int64(r.Classification), r.CreatedAt,
		).Scan(&r.ID)
		if err != nil {
			return fmt.Errorf("failed to save response: %w", err)
		}
		return nil
	})
}

// ListResponses returns the responses matching filter, newest first
func (s *SQLStore) ListResponses(ctx context.Context, filter provider.ResponseFilter) ([]provider.GatewayResponse, error) {
	var where []string
	var args []any

	if filter.PaymentID != 0 {
		where = append(where, "payment_id = ?")
		args = append(args, filter.PaymentID)
	}
	if filter.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, string(filter.Kind))
	}
	if filter.Any != 0 {
		where = append(where, "(classification & ?) <> 0")
		args = append(args, int64(filter.Any))
	}
	if filter.None != 0 {
		where = append(where, "(classification & ?) = 0")
		args = append(args, int64(filter.None))
	}

	query := "SELECT " + responseColumns + " FROM gateway_responses"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query responses: %w", err)
	}
	defer rows.Close()

	var responses []provider.GatewayResponse
	for rows.Next() {
		r, err := scanResponse(rows)
		if err != nil {
			return nil, err
		}
		responses = append(responses, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating response rows: %w", err)
	}
	return responses, nil
}

func scanResponse(row rowScanner) (*provider.GatewayResponse, error) {
	var r provider.GatewayResponse
	var owner, webhook sql.NullInt64
	var kind, headers, raw, record string
	var classification int64

	err := row.Scan(&r.ID, &owner, &webhook, &kind, &r.HTTPStatusCode, &r.URL, &headers, &raw,
		&record, &classification, &r.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan response: %w", err)
	}

	r.Kind = provider.ResponseKind(kind)
	r.Classification = resultcode.Set(classification)
	r.RawContent = json.RawMessage(raw)
	if owner.Valid {
		r.OwnerID = &owner.Int64
	}
	if webhook.Valid {
		r.WebhookID = &webhook.Int64
	}
	if err := json.Unmarshal([]byte(headers), &r.Headers); err != nil {
		return nil, fmt.Errorf("failed to unmarshal headers: %w", err)
	}
	if err := json.Unmarshal([]byte(record), &r.Record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %w", err)
	}
	if obj, err := normalize.Decode(r.RawContent); err == nil {
		r.Record.Raw = obj
	}
	return &r, nil
}

// SaveWebhook stores w and sets its ID and CreatedAt
func (s *SQLStore) SaveWebhook(ctx context.Context, w *provider.Webhook) error {
	headers, err := marshalHeaders(w.Headers)
	if err != nil {
		return err
	}
	w.CreatedAt = s.now().UTC()

	query := s.rebind(`
		INSERT INTO webhooks (headers, type, action, decrypted_body, fingerprint, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id`)

	return s.write(ctx, func() error {
		err := s.db.QueryRowContext(ctx, query,
			headers, w.Type, w.Action, string(w.DecryptedBody), w.Fingerprint, w.CreatedAt,
		).Scan(&w.ID)
		if err != nil {
			return fmt.Errorf("failed to save webhook: %w", err)
		}
		return nil
	})
}

// WebhookExists reports whether a webhook with fingerprint was stored
func (s *SQLStore) WebhookExists(ctx context.Context, fingerprint string) (bool, error) {
	var n int
	query := s.rebind(`SELECT COUNT(1) FROM webhooks WHERE fingerprint = ?`)
	if err := s.db.QueryRowContext(ctx, query, fingerprint).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to look up webhook: %w", err)
	}
	return n > 0, nil
}

func marshalHeaders(h map[string]string) (string, error) {
	if h == nil {
		return "{}", nil
	}
	b, err := json.Marshal(h)
	if err != nil {
		return "", fmt.Errorf("failed to marshal headers: %w", err)
	}
	return string(b), nil
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
