package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mstgnz/vrpay/provider"
)

const paymentColumns = `id, entity_id, amount, tax_amount, currency, payment_brand, payment_type, descriptor,
	merchant_transaction_id, merchant_invoice_id, merchant_memo, transaction_category, sandbox,
	resource_path, checkout_id, payment_id, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPayment(row rowScanner) (*provider.Payment, error) {
	var p provider.Payment
	var paymentType string
	err := row.Scan(
		&p.ID, &p.EntityID, &p.Amount, &p.TaxAmount, &p.Currency, &p.PaymentBrand, &paymentType, &p.Descriptor,
		&p.MerchantTransactionID, &p.MerchantInvoiceID, &p.MerchantMemo, &p.TransactionCategory, &p.Sandbox,
		&p.ResourcePath, &p.CheckoutID, &p.GatewayPaymentID, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.PaymentType = provider.PaymentType(paymentType)
	return &p, nil
}

// CreatePayment inserts p and sets its ID and timestamps
func (s *SQLStore) CreatePayment(ctx context.Context, p *provider.Payment) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now().UTC()
	}
	p.UpdatedAt = p.CreatedAt

	query := s.rebind(`
		INSERT INTO payments (entity_id, amount, tax_amount, currency, payment_brand, payment_type, descriptor,
			merchant_transaction_id, merchant_invoice_id, merchant_memo, transaction_category, sandbox,
			resource_path, checkout_id, payment_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`)

	return s.write(ctx, func() error {
		err := s.db.QueryRowContext(ctx, query,
			p.EntityID, p.Amount, p.TaxAmount, p.Currency, p.PaymentBrand, string(p.PaymentType), p.Descriptor,
			p.MerchantTransactionID, p.MerchantInvoiceID, p.MerchantMemo, p.TransactionCategory, p.Sandbox,
			p.ResourcePath, p.CheckoutID, p.GatewayPaymentID, p.CreatedAt, p.UpdatedAt,
		).Scan(&p.ID)
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", provider.ErrDuplicateTransaction, p.MerchantTransactionID)
		}
		if err != nil {
			return fmt.Errorf("failed to create payment: %w", err)
		}
		return nil
	})
}

// UpdatePayment writes every mutable column of p
func (s *SQLStore) UpdatePayment(ctx context.Context, p *provider.Payment) error {
	p.UpdatedAt = s.now().UTC()

	query := s.rebind(`
		UPDATE payments SET
			payment_brand = ?, descriptor = ?, merchant_invoice_id = ?, merchant_memo = ?,
			transaction_category = ?, resource_path = ?, checkout_id = ?, payment_id = ?, updated_at = ?
		WHERE id = ?`)

	return s.write(ctx, func() error {
		result, err := s.db.ExecContext(ctx, query,
			p.PaymentBrand, p.Descriptor, p.MerchantInvoiceID, p.MerchantMemo,
			p.TransactionCategory, p.ResourcePath, p.CheckoutID, p.GatewayPaymentID, p.UpdatedAt,
			p.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update payment: %w", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return fmt.Errorf("%w: id %d", provider.ErrPaymentNotFound, p.ID)
		}
		return nil
	})
}

func (s *SQLStore) getPayment(ctx context.Context, where string, arg any) (*provider.Payment, error) {
	query := s.rebind("SELECT " + paymentColumns + " FROM payments WHERE " + where)
	p, err := scanPayment(s.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %v", provider.ErrPaymentNotFound, arg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load payment: %w", err)
	}
	return p, nil
}

// GetPayment loads a payment by its row id
func (s *SQLStore) GetPayment(ctx context.Context, id int64) (*provider.Payment, error) {
	return s.getPayment(ctx, "id = ?", id)
}

// GetPaymentByMerchantTransactionID loads a payment by merchant transaction id
func (s *SQLStore) GetPaymentByMerchantTransactionID(ctx context.Context, merchantTransactionID string) (*provider.Payment, error) {
	return s.getPayment(ctx, "merchant_transaction_id = ?", merchantTransactionID)
}

// GetPaymentByCheckoutID loads the payment a checkout was created for
func (s *SQLStore) GetPaymentByCheckoutID(ctx context.Context, checkoutID string) (*provider.Payment, error) {
	if checkoutID == "" {
		return nil, provider.ErrPaymentNotFound
	}
	return s.getPayment(ctx, "checkout_id = ? ORDER BY id DESC LIMIT 1", checkoutID)
}

// FindPayments returns the payments whose key column equals value
func (s *SQLStore) FindPayments(ctx context.Context, key provider.OwnerKey, value string) ([]provider.Payment, error) {
	if value == "" {
		return nil, nil
	}

	var where string
	args := []any{value}
	switch key {
	case provider.OwnerByGatewayID:
		where = "payment_id = ? OR checkout_id = ?"
		args = append(args, value)
	case provider.OwnerByMerchantTransactionID:
		where = "merchant_transaction_id = ?"
	case provider.OwnerByReferencedID:
		where = "payment_id = ?"
	default:
		return nil, fmt.Errorf("unknown owner key %q", key)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind("SELECT "+paymentColumns+" FROM payments WHERE "+where+" ORDER BY id"), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var payments []provider.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating payment rows: %w", err)
	}
	return payments, nil
}
