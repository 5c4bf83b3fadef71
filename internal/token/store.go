package token

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flexy-hms/payments-api/internal/common"
)

// Record is one stored gateway token scoped to a property.
type Record struct {
	ID         int64     `json:"id"`
	CustomerID int64     `json:"customerId"`
	TokenID    string    `json:"tokenId"`
	Name       string    `json:"name"`
	ImagePath  string    `json:"imagePath"`
	PropertyID string    `json:"propertyId"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Store persists token records in customer_gateway_tokens.
type Store struct {
	Pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{Pool: pool}
}

// Save upserts on (token_id, property_id): re-tokenizing the same instrument
// refreshes its display details instead of duplicating the row.
func (s *Store) Save(ctx context.Context, rec Record) error {
	const q = `
		INSERT INTO customer_gateway_tokens (customer_id, token_id, name, image_path, property_id, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (token_id, property_id)
		DO UPDATE SET customer_id = EXCLUDED.customer_id,
		              name = EXCLUDED.name,
		              image_path = EXCLUDED.image_path`
	if _, err := s.Pool.Exec(ctx, q, rec.CustomerID, rec.TokenID, rec.Name, rec.ImagePath, rec.PropertyID); err != nil {
		return common.NewPersistence("TOKEN_SAVE_FAILED", "failed to store token", err)
	}
	return nil
}

// ListByCustomer returns the customer's tokens within the property scope,
// newest first.
func (s *Store) ListByCustomer(ctx context.Context, customerID int64, propertyID string) ([]Record, error) {
	const q = `
		SELECT id, customer_id, token_id, name, image_path, property_id, created_at
		FROM customer_gateway_tokens
		WHERE customer_id = $1 AND property_id = $2
		ORDER BY created_at DESC, id DESC`
	rows, err := s.Pool.Query(ctx, q, customerID, propertyID)
	if err != nil {
		return nil, common.NewPersistence("TOKEN_LIST_FAILED", "failed to list tokens", err)
	}
	defer rows.Close()

	out := make([]Record, 0)
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.CustomerID, &rec.TokenID, &rec.Name, &rec.ImagePath, &rec.PropertyID, &rec.CreatedAt); err != nil {
			return nil, common.NewPersistence("TOKEN_LIST_FAILED", "failed to scan token row", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewPersistence("TOKEN_LIST_FAILED", "failed to read token rows", err)
	}
	return out, nil
}

// Delete removes one token row and reports whether it existed.
func (s *Store) Delete(ctx context.Context, tokenID, propertyID string) (bool, error) {
	const q = `DELETE FROM customer_gateway_tokens WHERE token_id = $1 AND property_id = $2`
	tag, err := s.Pool.Exec(ctx, q, tokenID, propertyID)
	if err != nil {
		return false, common.NewPersistence("TOKEN_DELETE_FAILED", "failed to delete token", err)
	}
	return tag.RowsAffected() > 0, nil
}
