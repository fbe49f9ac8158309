package repository

import (
	"database/sql"
	"fmt"
	"time"

	"audiopub/model"
)

// CommentRepository defines the interface for comment data operations.
type CommentRepository interface {
	CreateComment(comment *model.Comment) error
	GetCommentByID(id string) (*model.Comment, error)
	ListByAudio(audioID string) ([]*model.Comment, error)
	UpdateContent(id string, content string) error
	DeleteComment(id string) error
}

// mysqlCommentRepository implements CommentRepository for MySQL.
type mysqlCommentRepository struct {
	db *sql.DB
}

// NewMySQLCommentRepository creates a new mysqlCommentRepository.
func NewMySQLCommentRepository(db *sql.DB) CommentRepository {
	return &mysqlCommentRepository{db: db}
}

// CreateComment inserts a new comment.
func (r *mysqlCommentRepository) CreateComment(comment *model.Comment) error {
	query := `INSERT INTO comments (id, audio_id, user_id, content, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`
	stmt, err := r.db.Prepare(query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement for CreateComment: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	comment.CreatedAt = now
	comment.UpdatedAt = now
	_, err = stmt.Exec(comment.ID, comment.AudioID, comment.UserID, comment.Content, now, now)
	if err != nil {
		return fmt.Errorf("failed to execute CreateComment: %w", err)
	}
	return nil
}

// GetCommentByID retrieves a comment by its ID, with the author joined.
func (r *mysqlCommentRepository) GetCommentByID(id string) (*model.Comment, error) {
	query := `SELECT c.id, c.audio_id, c.user_id, c.content, c.created_at, c.updated_at,
	                 u.id, u.username, u.is_admin, u.is_trusted
	           FROM comments c JOIN users u ON u.id = c.user_id WHERE c.id = ?`
	row := r.db.QueryRow(query, id)

	comment := &model.Comment{}
	user := &model.User{}
	err := row.Scan(&comment.ID, &comment.AudioID, &comment.UserID, &comment.Content,
		&comment.CreatedAt, &comment.UpdatedAt,
		&user.ID, &user.Username, &user.IsAdmin, &user.IsTrusted)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Comment not found
		}
		return nil, fmt.Errorf("failed to scan comment by ID %s: %w", id, err)
	}
	comment.User = user
	return comment, nil
}

// ListByAudio returns all comments on an audio ordered by creation time,
// oldest first.
func (r *mysqlCommentRepository) ListByAudio(audioID string) ([]*model.Comment, error) {
	query := `SELECT c.id, c.audio_id, c.user_id, c.content, c.created_at, c.updated_at,
	                 u.id, u.username, u.is_admin, u.is_trusted
	           FROM comments c JOIN users u ON u.id = c.user_id
	           WHERE c.audio_id = ? ORDER BY c.created_at ASC`
	rows, err := r.db.Query(query, audioID)
	if err != nil {
		return nil, fmt.Errorf("failed to query comments for audio ID %s: %w", audioID, err)
	}
	defer rows.Close()

	comments := make([]*model.Comment, 0)
	for rows.Next() {
		comment := &model.Comment{}
		user := &model.User{}
		err := rows.Scan(&comment.ID, &comment.AudioID, &comment.UserID, &comment.Content,
			&comment.CreatedAt, &comment.UpdatedAt,
			&user.ID, &user.Username, &user.IsAdmin, &user.IsTrusted)
		if err != nil {
			return nil, fmt.Errorf("failed to scan comment in ListByAudio: %w", err)
		}
		comment.User = user
		comments = append(comments, comment)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration in ListByAudio: %w", err)
	}

	return comments, nil
}

// UpdateContent replaces the content of a comment.
func (r *mysqlCommentRepository) UpdateContent(id string, content string) error {
	query := `UPDATE comments SET content = ?, updated_at = ? WHERE id = ?`
	_, err := r.db.Exec(query, content, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to execute UpdateContent for comment ID %s: %w", id, err)
	}
	return nil
}

// DeleteComment removes a comment.
func (r *mysqlCommentRepository) DeleteComment(id string) error {
	_, err := r.db.Exec("DELETE FROM comments WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to execute DeleteComment for comment ID %s: %w", id, err)
	}
	return nil
}
