package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/HammerMeetNail/socialgraph/internal/models"
)

var ErrFriendRequestNotFound = errors.New("friend request not found")

// FriendRequestStore persists directed friend requests. Implementations must
// make CreateIfAbsent and Transition atomic with respect to concurrent callers.
type FriendRequestStore interface {
	// CreateIfAbsent inserts a pending request unless one already exists for
	// the exact (sender, receiver) direction, in which case the existing row
	// is returned with created=false.
	CreateIfAbsent(ctx context.Context, senderID, receiverID uuid.UUID) (*models.FriendRequest, bool, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.FriendRequest, error)
	// Transition moves a request owned by receiverID from one status to
	// another. Any mismatch is reported as ErrFriendRequestNotFound.
	Transition(ctx context.Context, id, receiverID uuid.UUID, from, to models.FriendRequestStatus) (*models.FriendRequest, error)
	ListAcceptedFor(ctx context.Context, userID uuid.UUID) ([]models.FriendRequest, error)
	ListPendingReceivedBy(ctx context.Context, userID uuid.UUID) ([]models.FriendRequest, error)
}

const friendRequestColumns = `id, sender_id, receiver_id, status, created_at, responded_at`

const createAttempts = 3

type PostgresFriendRequestStore struct {
	db DB
}

func NewPostgresFriendRequestStore(db DB) *PostgresFriendRequestStore {
	return &PostgresFriendRequestStore{db: db}
}

func scanFriendRequest(row Row) (*models.FriendRequest, error) {
	req := &models.FriendRequest{}
	if err := row.Scan(&req.ID, &req.SenderID, &req.ReceiverID, &req.Status, &req.CreatedAt, &req.RespondedAt); err != nil {
		return nil, err
	}
	return req, nil
}

func (s *PostgresFriendRequestStore) CreateIfAbsent(ctx context.Context, senderID, receiverID uuid.UUID) (*models.FriendRequest, bool, error) {
	var (
		req     *models.FriendRequest
		created bool
	)
	err := runInTx(ctx, s.db, func(tx Tx) error {
		// Serializes concurrent sends between the same two users and confirms
		// both still exist.
		if err := lockUserPairForUpdate(ctx, tx, senderID, receiverID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrUserNotFound
			}
			return storeError("create friend request", err)
		}

		// The conflicting pending row can be resolved by its receiver between
		// the insert and the select. The next insert then no longer conflicts.
		for attempt := 1; attempt <= createAttempts; attempt++ {
			inserted, err := scanFriendRequest(tx.QueryRow(ctx,
				`INSERT INTO friend_requests (sender_id, receiver_id, status)
				 VALUES ($1, $2, 'pending')
				 ON CONFLICT (sender_id, receiver_id) WHERE status = 'pending' DO NOTHING
				 RETURNING `+friendRequestColumns,
				senderID, receiverID,
			))
			if err == nil {
				req, created = inserted, true
				return nil
			}
			if !errors.Is(err, pgx.ErrNoRows) {
				switch code, _ := pgErrorCode(err); code {
				case pgForeignKeyViolation:
					return ErrUserNotFound
				case pgCheckViolation:
					return ErrCannotFriendSelf
				}
				return storeError("insert friend request", err)
			}

			existing, err := scanFriendRequest(tx.QueryRow(ctx,
				`SELECT `+friendRequestColumns+`
				 FROM friend_requests
				 WHERE sender_id = $1 AND receiver_id = $2 AND status = 'pending'`,
				senderID, receiverID,
			))
			if err == nil {
				req = existing
				return nil
			}
			if !errors.Is(err, pgx.ErrNoRows) {
				return storeError("load pending friend request", err)
			}
		}
		return fmt.Errorf("create friend request: %w: pending request kept changing", ErrStoreUnavailable)
	})
	if err != nil {
		return nil, false, err
	}
	return req, created, nil
}

func (s *PostgresFriendRequestStore) FindByID(ctx context.Context, id uuid.UUID) (*models.FriendRequest, error) {
	req, err := scanFriendRequest(s.db.QueryRow(ctx,
		`SELECT `+friendRequestColumns+` FROM friend_requests WHERE id = $1`,
		id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrFriendRequestNotFound
	}
	if err != nil {
		return nil, storeError("get friend request", err)
	}
	return req, nil
}

func (s *PostgresFriendRequestStore) Transition(ctx context.Context, id, receiverID uuid.UUID, from, to models.FriendRequestStatus) (*models.FriendRequest, error) {
	if !from.CanTransitionTo(to) {
		return nil, fmt.Errorf("illegal friend request transition %s -> %s", from, to)
	}

	req, err := scanFriendRequest(s.db.QueryRow(ctx,
		`UPDATE friend_requests
		 SET status = $4, responded_at = NOW()
		 WHERE id = $1 AND receiver_id = $2 AND status = $3
		 RETURNING `+friendRequestColumns,
		id, receiverID, string(from), string(to),
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrFriendRequestNotFound
	}
	if err != nil {
		return nil, storeError("update friend request", err)
	}
	return req, nil
}

func (s *PostgresFriendRequestStore) ListAcceptedFor(ctx context.Context, userID uuid.UUID) ([]models.FriendRequest, error) {
	return s.list(ctx, "list accepted friend requests",
		`SELECT `+friendRequestColumns+`
		 FROM friend_requests
		 WHERE (sender_id = $1 OR receiver_id = $1) AND status = 'accepted'
		 ORDER BY created_at, id`,
		userID,
	)
}

func (s *PostgresFriendRequestStore) ListPendingReceivedBy(ctx context.Context, userID uuid.UUID) ([]models.FriendRequest, error) {
	return s.list(ctx, "list pending friend requests",
		`SELECT `+friendRequestColumns+`
		 FROM friend_requests
		 WHERE receiver_id = $1 AND status = 'pending'
		 ORDER BY created_at, id`,
		userID,
	)
}

func (s *PostgresFriendRequestStore) list(ctx context.Context, op, sql string, userID uuid.UUID) ([]models.FriendRequest, error) {
	rows, err := s.db.Query(ctx, sql, userID)
	if err != nil {
		return nil, storeError(op, err)
	}
	defer rows.Close()

	requests := []models.FriendRequest{}
	for rows.Next() {
		req, err := scanFriendRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan friend request: %w", err)
		}
		requests = append(requests, *req)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError(op, err)
	}
	return requests, nil
}
