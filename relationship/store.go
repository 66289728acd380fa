package relationship

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var (
	ErrRequestNotFound      = errors.New("relationship request not found")
	ErrRelationshipNotFound = errors.New("relationship not found")
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateRequest inserts a PENDING request. The requester/receiver pair
// is unique, so a duplicate request fails at the schema level.
func (s *Store) CreateRequest(ctx context.Context, requesterID, receiverID string) (Request, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO relationship_requests (status, requester_id, receiver_id)
		VALUES (?, ?, ?)`, StatusPending, requesterID, receiverID)
	if err != nil {
		return Request{}, fmt.Errorf("insert relationship request: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return Request{}, fmt.Errorf("request id: %w", err)
	}
	return Request{ID: id, Status: StatusPending, RequesterID: requesterID, ReceiverID: receiverID}, nil
}

func (s *Store) GetRequest(ctx context.Context, id int64) (Request, error) {
	var req Request
	err := s.db.QueryRowContext(ctx, `
		SELECT id, status, requester_id, receiver_id
		FROM relationship_requests WHERE id = ?`, id).Scan(
		&req.ID, &req.Status, &req.RequesterID, &req.ReceiverID)
	if errors.Is(err, sql.ErrNoRows) {
		return Request{}, ErrRequestNotFound
	}
	if err != nil {
		return Request{}, fmt.Errorf("query relationship request: %w", err)
	}
	return req, nil
}

func (s *Store) UpdateRequestStatus(ctx context.Context, id int64, status string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE relationship_requests SET status = ? WHERE id = ?", status, id)
	if err != nil {
		return fmt.Errorf("update request status: %w", err)
	}
	return nil
}

// CreateRelationship pairs the two users. The pair is unique, so a
// second relationship for either ordering fails at the schema level.
func (s *Store) CreateRelationship(ctx context.Context, userOneID, userTwoID string, startDate time.Time) (Relationship, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO relationships (user_one_id, user_two_id, relationship_start_date)
		VALUES (?, ?, ?)`, userOneID, userTwoID, startDate.Format("2006-01-02"))
	if err != nil {
		return Relationship{}, fmt.Errorf("insert relationship: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return Relationship{}, fmt.Errorf("relationship id: %w", err)
	}
	return Relationship{ID: id, UserOneID: userOneID, UserTwoID: userTwoID, StartDate: &startDate}, nil
}

// GetForUser returns the relationship the user is part of, on either
// side.
func (s *Store) GetForUser(ctx context.Context, userID string) (Relationship, error) {
	var rel Relationship
	var startDate sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_one_id, user_two_id, relationship_start_date
		FROM relationships WHERE user_one_id = ? OR user_two_id = ?`,
		userID, userID).Scan(&rel.ID, &rel.UserOneID, &rel.UserTwoID, &startDate)
	if errors.Is(err, sql.ErrNoRows) {
		return Relationship{}, ErrRelationshipNotFound
	}
	if err != nil {
		return Relationship{}, fmt.Errorf("query relationship: %w", err)
	}
	if startDate.Valid {
		rel.StartDate = &startDate.Time
	}
	return rel, nil
}

// DeleteForUser removes the user's relationship. Returns
// ErrRelationshipNotFound when there is nothing to terminate.
func (s *Store) DeleteForUser(ctx context.Context, userID string) error {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM relationships WHERE user_one_id = ? OR user_two_id = ?",
		userID, userID)
	if err != nil {
		return fmt.Errorf("delete relationship: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrRelationshipNotFound
	}
	return nil
}

// HasRelationship reports whether the user is already paired.
func (s *Store) HasRelationship(ctx context.Context, userID string) (bool, error) {
	_, err := s.GetForUser(ctx, userID)
	if errors.Is(err, ErrRelationshipNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
