package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/mstgnz/vrpay/provider/normalize"
)

// OwnerFinder looks up payments by one identifying column
type OwnerFinder interface {
	FindPayments(ctx context.Context, key OwnerKey, value string) ([]Payment, error)
}

type ownerLookup struct {
	key   OwnerKey
	value *string
}

// ResolveOwner finds the payment a response belongs to. It tries the
// gateway id, then the merchant transaction id, then the referenced id.
// A lookup matching several payments is narrowed by merchant transaction id
// alone. When nothing resolves the error wraps ErrUnownedResponse.
func ResolveOwner(ctx context.Context, finder OwnerFinder, rec normalize.Response) (*Payment, error) {
	lookups := []ownerLookup{
		{OwnerByGatewayID, rec.ID},
		{OwnerByMerchantTransactionID, rec.MerchantTransactionID},
		{OwnerByReferencedID, rec.ReferencedID},
	}

	for _, l := range lookups {
		if l.value == nil || strings.TrimSpace(*l.value) == "" {
			continue
		}

		matches, err := finder.FindPayments(ctx, l.key, *l.value)
		if err != nil {
			return nil, fmt.Errorf("finding payment by %s: %w", l.key, err)
		}

		switch len(matches) {
		case 0:
			continue
		case 1:
			return &matches[0], nil
		default:
			return narrowByMerchantTransactionID(ctx, finder, rec, l.key, len(matches))
		}
	}

	return nil, fmt.Errorf("%w: id=%s merchantTransactionId=%s referencedId=%s",
		ErrUnownedResponse, deref(rec.ID), deref(rec.MerchantTransactionID), deref(rec.ReferencedID))
}

func narrowByMerchantTransactionID(ctx context.Context, finder OwnerFinder, rec normalize.Response, key OwnerKey, n int) (*Payment, error) {
	if rec.MerchantTransactionID == nil || *rec.MerchantTransactionID == "" {
		return nil, fmt.Errorf("%w: %d payments match %s and no merchant transaction id to narrow by", ErrUnownedResponse, n, key)
	}

	matches, err := finder.FindPayments(ctx, OwnerByMerchantTransactionID, *rec.MerchantTransactionID)
	if err != nil {
		return nil, fmt.Errorf("finding payment by %s: %w", OwnerByMerchantTransactionID, err)
	}
	if len(matches) != 1 {
		return nil, fmt.Errorf("%w: %d payments match %s and %d match merchant transaction id %s",
			ErrUnownedResponse, n, key, len(matches), *rec.MerchantTransactionID)
	}
	return &matches[0], nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
