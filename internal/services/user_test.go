package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/HammerMeetNail/socialgraph/internal/models"
)

func userRow(id uuid.UUID, email, username string) []any {
	return []any{id, email, username, "hash", time.Now()}
}

func TestUserService_Create_Success(t *testing.T) {
	id := uuid.New()
	var insertArgs []any
	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			switch {
			case strings.Contains(sql, "EXISTS"):
				return rowFromValues(false)
			case strings.Contains(sql, "INSERT INTO users"):
				insertArgs = args
				return rowFromValues(userRow(id, args[0].(string), args[1].(string))...)
			}
			t.Fatalf("unexpected query: %s", sql)
			return nil
		},
	}

	user, err := NewUserService(db).Create(context.Background(), models.CreateUserParams{
		Email:        "  Alice@Example.COM ",
		Username:     "alice",
		PasswordHash: "hash",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.ID != id {
		t.Fatalf("expected id %s, got %s", id, user.ID)
	}
	if insertArgs[0] != "alice@example.com" {
		t.Fatalf("expected lower-cased email, got %v", insertArgs[0])
	}
}

func TestUserService_Create_Duplicates(t *testing.T) {
	tests := []struct {
		name      string
		emailHit  bool
		userHit   bool
		wantError error
	}{
		{name: "email", emailHit: true, wantError: ErrEmailAlreadyExists},
		{name: "username", userHit: true, wantError: ErrUsernameAlreadyExists},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := &fakeDB{
				QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
					switch {
					case strings.Contains(sql, "LOWER(email)"):
						return rowFromValues(tt.emailHit)
					case strings.Contains(sql, "LOWER(username)"):
						return rowFromValues(tt.userHit)
					}
					t.Fatalf("unexpected query: %s", sql)
					return nil
				},
			}
			_, err := NewUserService(db).Create(context.Background(), models.CreateUserParams{
				Email: "a@example.com", Username: "a", PasswordHash: "h",
			})
			if !errors.Is(err, tt.wantError) {
				t.Fatalf("expected %v, got %v", tt.wantError, err)
			}
		})
	}
}

func TestUserService_Create_UniqueViolationRace(t *testing.T) {
	tests := []struct {
		constraint string
		want       error
	}{
		{constraint: "users_username_lower_key", want: ErrUsernameAlreadyExists},
		{constraint: "users_email_lower_key", want: ErrEmailAlreadyExists},
	}
	for _, tt := range tests {
		t.Run(tt.constraint, func(t *testing.T) {
			db := &fakeDB{
				QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
					if strings.Contains(sql, "EXISTS") {
						return rowFromValues(false)
					}
					return rowWithError(&pgconn.PgError{Code: pgUniqueViolation, ConstraintName: tt.constraint})
				},
			}
			_, err := NewUserService(db).Create(context.Background(), models.CreateUserParams{
				Email: "a@example.com", Username: "a", PasswordHash: "h",
			})
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestUserService_GetByID_NotFound(t *testing.T) {
	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			return rowWithError(pgx.ErrNoRows)
		},
	}
	if _, err := NewUserService(db).GetByID(context.Background(), uuid.New()); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserService_GetByEmail_CaseInsensitive(t *testing.T) {
	id := uuid.New()
	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			if !strings.Contains(sql, "LOWER(email) = LOWER($1)") {
				t.Fatalf("expected case-insensitive lookup, got %s", sql)
			}
			return rowFromValues(userRow(id, "bob@example.com", "bob")...)
		},
	}
	user, err := NewUserService(db).GetByEmail(context.Background(), "BOB@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.ID != id {
		t.Fatalf("unexpected user %+v", user)
	}
}

func TestUserService_GetByIDs(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	svc := NewUserService(&fakeDB{
		QueryFunc: func(ctx context.Context, sql string, args ...any) (Rows, error) {
			ids := args[0].([]string)
			if len(ids) != 2 {
				t.Fatalf("expected 2 ids, got %v", ids)
			}
			return &fakeRows{rows: [][]any{userRow(a, "a@x.io", "a")}}, nil
		},
	})

	users, err := svc.GetByIDs(context.Background(), []uuid.UUID{a, b})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := users[a]; !ok {
		t.Fatal("expected a to resolve")
	}
	if _, ok := users[b]; ok {
		t.Fatal("expected unknown id to be absent")
	}

	empty, err := NewUserService(&fakeDB{
		QueryFunc: func(ctx context.Context, sql string, args ...any) (Rows, error) {
			t.Fatal("no query expected for empty batch")
			return nil, nil
		},
	}).GetByIDs(context.Background(), nil)
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected empty map, got %v %v", empty, err)
	}
}

func TestUserService_Search(t *testing.T) {
	id := uuid.New()
	var searchArgs []any
	svc := NewUserService(&fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			if args[1] != `%al\_i%` {
				t.Fatalf("expected escaped pattern, got %v", args[1])
			}
			return rowFromValues(11)
		},
		QueryFunc: func(ctx context.Context, sql string, args ...any) (Rows, error) {
			searchArgs = args
			return &fakeRows{rows: [][]any{userRow(id, "al_i@x.io", "al_i")}}, nil
		},
	})

	page, err := svc.Search(context.Background(), " AL_I ", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Count != 11 || len(page.Users) != 1 {
		t.Fatalf("unexpected page: %+v", page)
	}
	if searchArgs[0] != "al_i" || searchArgs[2] != SearchPageSize || searchArgs[3] != SearchPageSize {
		t.Fatalf("unexpected search args: %v", searchArgs)
	}
	if page.HasNext() || !page.HasPrevious() {
		t.Fatalf("expected last page with previous, got %+v", page)
	}
}

func TestUserService_Search_InvalidPage(t *testing.T) {
	svc := NewUserService(&fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			return rowFromValues(3)
		},
	})

	if _, err := svc.Search(context.Background(), "bob", 0); !errors.Is(err, ErrInvalidPage) {
		t.Fatalf("expected ErrInvalidPage for page 0, got %v", err)
	}
	if _, err := svc.Search(context.Background(), "bob", 2); !errors.Is(err, ErrInvalidPage) {
		t.Fatalf("expected ErrInvalidPage beyond last page, got %v", err)
	}
}

func TestUserService_Search_EmptyFirstPage(t *testing.T) {
	svc := NewUserService(&fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			return rowFromValues(0)
		},
	})

	page, err := svc.Search(context.Background(), "nobody", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Count != 0 || len(page.Users) != 0 {
		t.Fatalf("expected empty page, got %+v", page)
	}
}
