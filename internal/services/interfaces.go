package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/socialgraph/internal/models"
)

// Interfaces consumed by the HTTP layer. Handlers depend on these so tests
// can substitute mocks.

type UserServiceInterface interface {
	Create(ctx context.Context, params models.CreateUserParams) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Search(ctx context.Context, query string, page int) (*models.UserSearchPage, error)
}

type AuthServiceInterface interface {
	HashPassword(password string) (string, error)
	VerifyPassword(hash, password string) bool
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
	IssueTokens(ctx context.Context, user *models.User) (*TokenPair, error)
	ParseAccessToken(token string) (uuid.UUID, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
}

type FriendServiceInterface interface {
	SendRequest(ctx context.Context, senderID, receiverID uuid.UUID) (*models.FriendRequest, error)
	AcceptRequest(ctx context.Context, callerID, requestID uuid.UUID) (*models.FriendRequest, error)
	RejectRequest(ctx context.Context, callerID, requestID uuid.UUID) (*models.FriendRequest, error)
	ListFriends(ctx context.Context, userID uuid.UUID) ([]models.User, error)
	ListPending(ctx context.Context, userID uuid.UUID) ([]models.PendingFriendRequest, error)
	AreFriends(ctx context.Context, a, b uuid.UUID) (bool, error)
}

var (
	_ UserServiceInterface   = (*UserService)(nil)
	_ AuthServiceInterface   = (*AuthService)(nil)
	_ FriendServiceInterface = (*FriendService)(nil)
	_ UserDirectory          = (*UserService)(nil)
	_ FriendRequestStore     = (*PostgresFriendRequestStore)(nil)
)
