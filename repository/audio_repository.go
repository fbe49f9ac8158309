package repository

import (
	"database/sql"
	"fmt"
	"time"

	"audiopub/model"
)

// AudioRepository defines the interface for audio data operations.
type AudioRepository interface {
	CreateAudio(audio *model.Audio) error
	GetAudioByID(id string) (*model.Audio, error)
	CountByUserID(userID int64) (int64, error)
	UpdateDescription(id string, description string) error
	UpdateMimeType(id string, mimeType string) error
	DeleteAudio(id string) error
	ListRecent(limit int) ([]*model.Audio, error)
}

// mysqlAudioRepository implements AudioRepository for MySQL.
type mysqlAudioRepository struct {
	db *sql.DB
}

// NewMySQLAudioRepository creates a new mysqlAudioRepository.
func NewMySQLAudioRepository(db *sql.DB) AudioRepository {
	return &mysqlAudioRepository{db: db}
}

const audioColumns = "id, user_id, title, description, extension, language, has_file, mime_type, created_at, updated_at"

// CreateAudio inserts a new audio record.
func (r *mysqlAudioRepository) CreateAudio(audio *model.Audio) error {
	query := `INSERT INTO audios (id, user_id, title, description, extension, language, has_file, mime_type, created_at, updated_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	stmt, err := r.db.Prepare(query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement for CreateAudio: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	audio.CreatedAt = now
	audio.UpdatedAt = now
	_, err = stmt.Exec(audio.ID, audio.UserID, audio.Title, audio.Description,
		audio.Extension, audio.Language, audio.HasFile, audio.MimeType, now, now)
	if err != nil {
		return fmt.Errorf("failed to execute CreateAudio: %w", err)
	}
	return nil
}

// GetAudioByID retrieves an audio by its ID, with the owning user joined.
func (r *mysqlAudioRepository) GetAudioByID(id string) (*model.Audio, error) {
	query := `SELECT a.id, a.user_id, a.title, a.description, a.extension, a.language, a.has_file, a.mime_type, a.created_at, a.updated_at,
	                 u.id, u.username, u.is_admin, u.is_verified, u.is_trusted, u.is_banned
	           FROM audios a JOIN users u ON u.id = a.user_id WHERE a.id = ?`
	row := r.db.QueryRow(query, id)

	audio := &model.Audio{}
	user := &model.User{}
	var description, mimeType sql.NullString
	err := row.Scan(&audio.ID, &audio.UserID, &audio.Title, &description,
		&audio.Extension, &audio.Language, &audio.HasFile, &mimeType,
		&audio.CreatedAt, &audio.UpdatedAt,
		&user.ID, &user.Username, &user.IsAdmin, &user.IsVerified, &user.IsTrusted, &user.IsBanned)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Audio not found
		}
		return nil, fmt.Errorf("failed to scan audio by ID %s: %w", id, err)
	}
	audio.Description = description.String
	audio.MimeType = mimeType.String
	audio.User = user
	return audio, nil
}

// CountByUserID returns how many audios a user has published.
func (r *mysqlAudioRepository) CountByUserID(userID int64) (int64, error) {
	var count int64
	err := r.db.QueryRow("SELECT COUNT(*) FROM audios WHERE user_id = ?", userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count audios for user ID %d: %w", userID, err)
	}
	return count, nil
}

// UpdateDescription updates the description of an audio.
func (r *mysqlAudioRepository) UpdateDescription(id string, description string) error {
	query := `UPDATE audios SET description = ?, updated_at = ? WHERE id = ?`
	_, err := r.db.Exec(query, description, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to execute UpdateDescription for audio ID %s: %w", id, err)
	}
	return nil
}

// UpdateMimeType records the detected content type of the backing file.
func (r *mysqlAudioRepository) UpdateMimeType(id string, mimeType string) error {
	query := `UPDATE audios SET mime_type = ?, updated_at = ? WHERE id = ?`
	_, err := r.db.Exec(query, mimeType, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to execute UpdateMimeType for audio ID %s: %w", id, err)
	}
	return nil
}

// DeleteAudio removes an audio record. Comments cascade at the schema level.
func (r *mysqlAudioRepository) DeleteAudio(id string) error {
	_, err := r.db.Exec("DELETE FROM audios WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to execute DeleteAudio for audio ID %s: %w", id, err)
	}
	return nil
}

// ListRecent returns the most recently published audios.
func (r *mysqlAudioRepository) ListRecent(limit int) ([]*model.Audio, error) {
	query := `SELECT ` + audioColumns + ` FROM audios ORDER BY created_at DESC LIMIT ?`
	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent audios: %w", err)
	}
	defer rows.Close()

	audios := make([]*model.Audio, 0)
	for rows.Next() {
		audio := &model.Audio{}
		var description, mimeType sql.NullString
		err := rows.Scan(&audio.ID, &audio.UserID, &audio.Title, &description,
			&audio.Extension, &audio.Language, &audio.HasFile, &mimeType,
			&audio.CreatedAt, &audio.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audio in ListRecent: %w", err)
		}
		audio.Description = description.String
		audio.MimeType = mimeType.String
		audios = append(audios, audio)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration in ListRecent: %w", err)
	}

	return audios, nil
}
