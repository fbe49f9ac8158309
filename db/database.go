package db

import (
	"database/sql"
	"fmt"
	"log"

	"audiopub/config"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
)

var DB *sql.DB

// ConnectDB establishes a connection to the database.
func ConnectDB(cfg *config.Config) error {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)

	var err error
	DB, err = sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	if err = DB.Ping(); err != nil {
		DB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Successfully connected to the database.")
	return nil
}

// InitDB initializes the database schema, creating tables if they don't exist.
// The follow/favorite/notification tables are managed by GORM (see gorm.go).
func InitDB() error {
	if err := createUsersTable(); err != nil {
		return err
	}
	if err := createAudiosTable(); err != nil {
		return err
	}
	if err := createCommentsTable(); err != nil {
		return err
	}

	log.Println("Database initialization completed.")
	return nil
}

func createUsersTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS users (
		id INT AUTO_INCREMENT PRIMARY KEY,
		username VARCHAR(100) NOT NULL UNIQUE,
		email VARCHAR(255) NOT NULL UNIQUE,
		password_hash VARCHAR(255) NOT NULL,
		is_admin BOOLEAN NOT NULL DEFAULT FALSE,
		is_verified BOOLEAN NOT NULL DEFAULT FALSE,
		is_trusted BOOLEAN NOT NULL DEFAULT FALSE,
		is_banned BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
	);
	`
	_, err := DB.Exec(query)
	if err != nil {
		return fmt.Errorf("failed to create users table: %w", err)
	}
	log.Println("Users table initialized successfully (or already exists).")
	return nil
}

func createAudiosTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS audios (
		id CHAR(36) PRIMARY KEY,
		user_id INT NOT NULL,
		title VARCHAR(120) NOT NULL,
		description TEXT,
		extension VARCHAR(16) NOT NULL,
		language VARCHAR(16) NOT NULL DEFAULT 'und',
		has_file BOOLEAN NOT NULL DEFAULT FALSE,
		mime_type VARCHAR(100),
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		CONSTRAINT fk_user_audios FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);
	`
	_, err := DB.Exec(query)
	if err != nil {
		return fmt.Errorf("failed to create audios table: %w", err)
	}
	log.Println("Audios table initialized successfully (or already exists).")
	return nil
}

func createCommentsTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS comments (
		id CHAR(36) PRIMARY KEY,
		audio_id CHAR(36) NOT NULL,
		user_id INT NOT NULL,
		content TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		CONSTRAINT fk_audio_comments FOREIGN KEY (audio_id) REFERENCES audios(id) ON DELETE CASCADE,
		CONSTRAINT fk_user_comments FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);
	`
	_, err := DB.Exec(query)
	if err != nil {
		return fmt.Errorf("failed to create comments table: %w", err)
	}
	log.Println("Comments table initialized successfully (or already exists).")
	return nil
}
