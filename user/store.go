package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"lovelink/ws"
)

var ErrUserNotFound = errors.New("user not found")

// Store is the SQL access layer for user accounts.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Create inserts a new account and returns it with a fresh id.
func (s *Store) Create(ctx context.Context, u User) (User, error) {
	u.ID = uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, email, password, first_name, last_name,
			gender, sexuality, connection_code,
			has_accepted_terms_and_conditions, has_accepted_privacy_policy)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.Email, u.Password, u.FirstName, u.LastName,
		nullable(string(u.Gender)), nullable(string(u.Sexuality)), u.ConnectionCode,
		u.AcceptedTerms, u.AcceptedPolicy)
	if err != nil {
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

func (s *Store) GetByID(ctx context.Context, id string) (User, error) {
	return s.get(ctx, "id = ?", id)
}

func (s *Store) GetByEmail(ctx context.Context, email string) (User, error) {
	return s.get(ctx, "email = ?", email)
}

func (s *Store) GetByConnectionCode(ctx context.Context, code string) (User, error) {
	return s.get(ctx, "connection_code = ?", code)
}

func (s *Store) get(ctx context.Context, where string, arg any) (User, error) {
	var u User
	var gender, sexuality sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, email, password, first_name, last_name,
			gender, sexuality, connection_code,
			has_accepted_terms_and_conditions, has_accepted_privacy_policy, created_at
		FROM users WHERE `+where, arg).Scan(
		&u.ID, &u.Username, &u.Email, &u.Password, &u.FirstName, &u.LastName,
		&gender, &sexuality, &u.ConnectionCode,
		&u.AcceptedTerms, &u.AcceptedPolicy, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("query user: %w", err)
	}
	u.Gender = Gender(gender.String)
	u.Sexuality = Sexuality(sexuality.String)
	return u, nil
}

// Delete removes the account. Requests, relationships, chats, messages
// and privacy settings cascade at the schema level.
func (s *Store) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// CountByFilter counts accounts matching the given username and/or
// email.
func (s *Store) CountByFilter(ctx context.Context, username, email string) (int, error) {
	query := "SELECT COUNT(*) FROM users WHERE "
	var args []any
	switch {
	case username != "" && email != "":
		query += "username = ? AND email = ?"
		args = append(args, username, email)
	case username != "":
		query += "username = ?"
		args = append(args, username)
	default:
		query += "email = ?"
		args = append(args, email)
	}

	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}

// ResolveUser satisfies the socket authenticator's resolver interface.
func (s *Store) ResolveUser(ctx context.Context, userID string) (ws.Identity, error) {
	u, err := s.GetByID(ctx, userID)
	if err != nil {
		return ws.Anonymous, err
	}
	return ws.Identity{UserID: u.ID, FirstName: u.FirstName}, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
