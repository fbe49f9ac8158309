package repository

import (
	"database/sql"
	"fmt"

	"audiopub/model"
)

// UserRepository defines the interface for user data operations.
type UserRepository interface {
	CreateUser(user *model.User) (int64, error)
	GetUserByID(id int64) (*model.User, error)
	GetUserByUsername(username string) (*model.User, error)
	GetUserByEmail(email string) (*model.User, error)
}

// mysqlUserRepository implements UserRepository for MySQL.
type mysqlUserRepository struct {
	db *sql.DB
}

// NewMySQLUserRepository creates a new mysqlUserRepository.
func NewMySQLUserRepository(db *sql.DB) UserRepository {
	return &mysqlUserRepository{db: db}
}

const userColumns = "id, username, email, password_hash, is_admin, is_verified, is_trusted, is_banned, created_at, updated_at"

func scanUser(row *sql.Row) (*model.User, error) {
	user := &model.User{}
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&user.IsAdmin, &user.IsVerified, &user.IsTrusted, &user.IsBanned,
		&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // User not found
		}
		return nil, err
	}
	return user, nil
}

// CreateUser adds a new user to the database.
func (r *mysqlUserRepository) CreateUser(user *model.User) (int64, error) {
	query := "INSERT INTO users (username, email, password_hash, is_admin, is_verified, is_trusted, is_banned) VALUES (?, ?, ?, ?, ?, ?, ?)"
	stmt, err := r.db.Prepare(query)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare create user statement: %w", err)
	}
	defer stmt.Close()

	res, err := stmt.Exec(user.Username, user.Email, user.PasswordHash, user.IsAdmin, user.IsVerified, user.IsTrusted, user.IsBanned)
	if err != nil {
		return 0, fmt.Errorf("failed to execute create user statement: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for user: %w", err)
	}
	return id, nil
}

// GetUserByID retrieves a user by their ID.
func (r *mysqlUserRepository) GetUserByID(id int64) (*model.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE id = ?"
	user, err := scanUser(r.db.QueryRow(query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to scan user row for ID %d: %w", id, err)
	}
	return user, nil
}

// GetUserByUsername retrieves a user by username. The match is
// case-insensitive so that mention tokens resolve regardless of casing.
func (r *mysqlUserRepository) GetUserByUsername(username string) (*model.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE LOWER(username) = LOWER(?)"
	user, err := scanUser(r.db.QueryRow(query, username))
	if err != nil {
		return nil, fmt.Errorf("failed to scan user row for username %s: %w", username, err)
	}
	return user, nil
}

// GetUserByEmail retrieves a user by their email address.
func (r *mysqlUserRepository) GetUserByEmail(email string) (*model.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE email = ?"
	user, err := scanUser(r.db.QueryRow(query, email))
	if err != nil {
		return nil, fmt.Errorf("failed to scan user row for email %s: %w", email, err)
	}
	return user, nil
}
