package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// lockUserPairForUpdate row-locks both users in id order so two transactions
// touching the same pair cannot deadlock. It returns pgx.ErrNoRows when either
// user is missing.
func lockUserPairForUpdate(ctx context.Context, q DBConn, userA, userB uuid.UUID) error {
	ids := []string{userA.String()}
	if userA != userB {
		ids = append(ids, userB.String())
	}

	rows, err := q.Query(ctx,
		`SELECT id FROM users WHERE id = ANY($1::uuid[]) ORDER BY id FOR UPDATE`,
		ids,
	)
	if err != nil {
		return fmt.Errorf("lock users: %w", err)
	}
	defer rows.Close()

	locked := 0
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("lock users: %w", err)
		}
		locked++
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("lock users: %w", err)
	}
	if locked != len(ids) {
		return pgx.ErrNoRows
	}
	return nil
}
