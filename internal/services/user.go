package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/HammerMeetNail/socialgraph/internal/models"
)

var (
	ErrUserNotFound          = errors.New("user not found")
	ErrEmailAlreadyExists    = errors.New("email already exists")
	ErrUsernameAlreadyExists = errors.New("username already taken")
	ErrInvalidPage           = errors.New("invalid page")
)

const SearchPageSize = 10

const userColumns = `id, email, username, password_hash, created_at`

type UserService struct {
	db DBConn
}

func NewUserService(db DBConn) *UserService {
	return &UserService{db: db}
}

func scanUser(row Row) (*models.User, error) {
	user := &models.User{}
	if err := row.Scan(&user.ID, &user.Email, &user.Username, &user.PasswordHash, &user.CreatedAt); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) Create(ctx context.Context, params models.CreateUserParams) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(params.Email))
	username := strings.TrimSpace(params.Username)

	var exists bool
	err := s.db.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM users WHERE LOWER(email) = $1)", email).Scan(&exists)
	if err != nil {
		return nil, storeError("checking email existence", err)
	}
	if exists {
		return nil, ErrEmailAlreadyExists
	}

	err = s.db.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM users WHERE LOWER(username) = LOWER($1))", username).Scan(&exists)
	if err != nil {
		return nil, storeError("checking username existence", err)
	}
	if exists {
		return nil, ErrUsernameAlreadyExists
	}

	user, err := scanUser(s.db.QueryRow(ctx,
		`INSERT INTO users (email, username, password_hash)
		 VALUES ($1, $2, $3)
		 RETURNING `+userColumns,
		email, username, params.PasswordHash,
	))
	if err != nil {
		// A concurrent signup can slip past the EXISTS checks; the unique
		// indexes have the final word.
		if code, constraint := pgErrorCode(err); code == pgUniqueViolation {
			if strings.Contains(constraint, "username") {
				return nil, ErrUsernameAlreadyExists
			}
			return nil, ErrEmailAlreadyExists
		}
		return nil, storeError("creating user", err)
	}

	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := scanUser(s.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`,
		id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, storeError("getting user by id", err)
	}
	return user, nil
}

// GetByIDs resolves a batch of ids. Unknown ids are absent from the result.
func (s *UserService) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.User, error) {
	users := make(map[uuid.UUID]*models.User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}

	idStrings := make([]string, len(ids))
	for i, id := range ids {
		idStrings[i] = id.String()
	}

	rows, err := s.db.Query(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ANY($1::uuid[])`,
		idStrings,
	)
	if err != nil {
		return nil, storeError("getting users by id", err)
	}
	defer rows.Close()

	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users[user.ID] = user
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("iterating users", err)
	}
	return users, nil
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := scanUser(s.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`,
		strings.TrimSpace(email),
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, storeError("getting user by email", err)
	}
	return user, nil
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	user, err := scanUser(s.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE LOWER(username) = LOWER($1)`,
		strings.TrimSpace(username),
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, storeError("getting user by username", err)
	}
	return user, nil
}

// Search matches the exact email or any username containing query, both
// case-insensitively. Pages are 1-based.
func (s *UserService) Search(ctx context.Context, query string, page int) (*models.UserSearchPage, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if page < 1 {
		return nil, ErrInvalidPage
	}
	pattern := "%" + escapeLike(q) + "%"

	var count int
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM users WHERE LOWER(email) = $1 OR username ILIKE $2`,
		q, pattern,
	).Scan(&count)
	if err != nil {
		return nil, storeError("counting search results", err)
	}

	offset := (page - 1) * SearchPageSize
	if page > 1 && offset >= count {
		return nil, ErrInvalidPage
	}

	rows, err := s.db.Query(ctx,
		`SELECT `+userColumns+`
		 FROM users
		 WHERE LOWER(email) = $1 OR username ILIKE $2
		 ORDER BY LOWER(username), id
		 LIMIT $3 OFFSET $4`,
		q, pattern, SearchPageSize, offset,
	)
	if err != nil {
		return nil, storeError("searching users", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("iterating search results", err)
	}

	return &models.UserSearchPage{
		Count:    count,
		Page:     page,
		PageSize: SearchPageSize,
		Users:    users,
	}, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
