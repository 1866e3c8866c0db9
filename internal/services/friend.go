package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/socialgraph/internal/logging"
	"github.com/HammerMeetNail/socialgraph/internal/models"
)

var (
	ErrCannotFriendSelf    = errors.New("cannot send friend request to yourself")
	ErrFriendRequestExists = errors.New("friend request already exists")
)

const (
	DefaultStoreTimeout = 5 * time.Second
	readAttempts        = 2
)

// UserDirectory resolves user ids for the friend service.
type UserDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.User, error)
}

type FriendService struct {
	store        FriendRequestStore
	users        UserDirectory
	storeTimeout time.Duration
}

func NewFriendService(store FriendRequestStore, users UserDirectory) *FriendService {
	return &FriendService{
		store:        store,
		users:        users,
		storeTimeout: DefaultStoreTimeout,
	}
}

// SetStoreTimeout bounds every store call. Zero disables the bound.
func (s *FriendService) SetStoreTimeout(timeout time.Duration) {
	s.storeTimeout = timeout
}

func (s *FriendService) SendRequest(ctx context.Context, senderID, receiverID uuid.UUID) (*models.FriendRequest, error) {
	if senderID == receiverID {
		return nil, ErrCannotFriendSelf
	}

	lookupCtx, cancel := s.storeContext(ctx)
	_, err := s.users.GetByID(lookupCtx, receiverID)
	cancel()
	if err != nil {
		return nil, asUnavailable(err)
	}

	createCtx, cancel := s.storeContext(ctx)
	defer cancel()
	req, created, err := s.store.CreateIfAbsent(createCtx, senderID, receiverID)
	if err != nil {
		return nil, asUnavailable(err)
	}
	if !created {
		return nil, ErrFriendRequestExists
	}

	logging.Debug("Friend request sent", map[string]interface{}{
		"request_id":  req.ID.String(),
		"sender_id":   senderID.String(),
		"receiver_id": receiverID.String(),
	})
	return req, nil
}

// AcceptRequest resolves a pending request addressed to callerID. Requests
// that are missing, addressed to someone else or no longer pending all report
// ErrFriendRequestNotFound.
func (s *FriendService) AcceptRequest(ctx context.Context, callerID, requestID uuid.UUID) (*models.FriendRequest, error) {
	return s.resolve(ctx, callerID, requestID, models.FriendRequestStatusAccepted)
}

// RejectRequest mirrors AcceptRequest: only pending requests can be rejected,
// so an accepted friendship is never downgraded.
func (s *FriendService) RejectRequest(ctx context.Context, callerID, requestID uuid.UUID) (*models.FriendRequest, error) {
	return s.resolve(ctx, callerID, requestID, models.FriendRequestStatusRejected)
}

func (s *FriendService) resolve(ctx context.Context, callerID, requestID uuid.UUID, to models.FriendRequestStatus) (*models.FriendRequest, error) {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	req, err := s.store.Transition(storeCtx, requestID, callerID, models.FriendRequestStatusPending, to)
	if err != nil {
		return nil, asUnavailable(err)
	}

	logging.Debug("Friend request resolved", map[string]interface{}{
		"request_id": req.ID.String(),
		"status":     string(req.Status),
	})
	return req, nil
}

// ListFriends returns every user sharing an accepted request with userID, in
// the order the friendships were first created. A pair that accepted requests
// in both directions is listed once.
func (s *FriendService) ListFriends(ctx context.Context, userID uuid.UUID) ([]models.User, error) {
	accepted, err := s.readWithRetry(ctx, "list accepted", func(ctx context.Context) ([]models.FriendRequest, error) {
		return s.store.ListAcceptedFor(ctx, userID)
	})
	if err != nil {
		return nil, err
	}

	seen := make(map[uuid.UUID]bool, len(accepted))
	ids := make([]uuid.UUID, 0, len(accepted))
	for i := range accepted {
		other := accepted[i].OtherParty(userID)
		if seen[other] {
			continue
		}
		seen[other] = true
		ids = append(ids, other)
	}

	return s.resolveUsers(ctx, ids)
}

// ListPending returns the pending requests addressed to userID together with
// their senders, oldest first.
func (s *FriendService) ListPending(ctx context.Context, userID uuid.UUID) ([]models.PendingFriendRequest, error) {
	pending, err := s.readWithRetry(ctx, "list pending", func(ctx context.Context) ([]models.FriendRequest, error) {
		return s.store.ListPendingReceivedBy(ctx, userID)
	})
	if err != nil {
		return nil, err
	}

	senderIDs := make([]uuid.UUID, 0, len(pending))
	for i := range pending {
		senderIDs = append(senderIDs, pending[i].SenderID)
	}

	lookupCtx, cancel := s.storeContext(ctx)
	defer cancel()
	senders, err := s.users.GetByIDs(lookupCtx, senderIDs)
	if err != nil {
		return nil, asUnavailable(err)
	}

	result := make([]models.PendingFriendRequest, 0, len(pending))
	for i := range pending {
		sender, ok := senders[pending[i].SenderID]
		if !ok {
			continue
		}
		result = append(result, models.PendingFriendRequest{Request: pending[i], Sender: *sender})
	}
	return result, nil
}

// AreFriends reports whether an accepted request links a and b.
func (s *FriendService) AreFriends(ctx context.Context, a, b uuid.UUID) (bool, error) {
	accepted, err := s.readWithRetry(ctx, "list accepted", func(ctx context.Context) ([]models.FriendRequest, error) {
		return s.store.ListAcceptedFor(ctx, a)
	})
	if err != nil {
		return false, err
	}
	for i := range accepted {
		if accepted[i].Involves(b) && a != b {
			return true, nil
		}
	}
	return false, nil
}

func (s *FriendService) resolveUsers(ctx context.Context, ids []uuid.UUID) ([]models.User, error) {
	users := make([]models.User, 0, len(ids))
	if len(ids) == 0 {
		return users, nil
	}

	lookupCtx, cancel := s.storeContext(ctx)
	defer cancel()
	byID, err := s.users.GetByIDs(lookupCtx, ids)
	if err != nil {
		return nil, asUnavailable(err)
	}
	for _, id := range ids {
		if user, ok := byID[id]; ok {
			users = append(users, *user)
		}
	}
	return users, nil
}

// readWithRetry repeats idempotent reads once when the store is unavailable.
// Writes are never retried here.
func (s *FriendService) readWithRetry(ctx context.Context, op string, read func(ctx context.Context) ([]models.FriendRequest, error)) ([]models.FriendRequest, error) {
	var lastErr error
	for attempt := 1; attempt <= readAttempts; attempt++ {
		storeCtx, cancel := s.storeContext(ctx)
		requests, err := read(storeCtx)
		cancel()
		if err == nil {
			return requests, nil
		}
		lastErr = asUnavailable(err)
		if !errors.Is(lastErr, ErrStoreUnavailable) || ctx.Err() != nil {
			return nil, lastErr
		}
		logging.Warn("Friend store read failed", map[string]interface{}{
			"op":      op,
			"attempt": attempt,
			"error":   err.Error(),
		})
	}
	return nil, lastErr
}

func (s *FriendService) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.storeTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.storeTimeout)
}

// asUnavailable tags bare deadline errors from stores that do not classify
// their own failures.
func asUnavailable(err error) error {
	if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, ErrStoreUnavailable) {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return err
}
