package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"chats/internal/models"
	"chats/internal/service"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS users (
	id SERIAL PRIMARY KEY,
	username VARCHAR(255) NOT NULL UNIQUE,
	created_at TIMESTAMPTZ DEFAULT NOW(),
	updated_at TIMESTAMPTZ DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS messages (
	id VARCHAR(36) PRIMARY KEY,
	text TEXT NOT NULL,
	user_id INTEGER NOT NULL REFERENCES users(id),
	expiration_date TIMESTAMPTZ NOT NULL,
	created_at TIMESTAMPTZ DEFAULT NOW(),
	updated_at TIMESTAMPTZ DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_messages_user_expiration ON messages (user_id, expiration_date);
`

// PostgresRepo is the database/sql store used when DB_DRIVER=postgres.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(connStr string) (*PostgresRepo, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if _, err = db.Exec(postgresSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ensure chat tables exist: %w", err)
	}
	return &PostgresRepo{db: db}, nil
}

var _ service.MessageStore = (*PostgresRepo)(nil)

func (r *PostgresRepo) FindOrCreateUser(ctx context.Context, username string) (*models.User, bool, error) {
	user := models.User{Username: username}
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO users (username) VALUES ($1)
		 ON CONFLICT (username) DO NOTHING
		 RETURNING id, created_at;`, username).Scan(&user.ID, &user.CreatedAt)
	if err == nil {
		user.UpdatedAt = user.CreatedAt
		return &user, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, err
	}

	err = r.db.QueryRowContext(ctx,
		`SELECT id, created_at, updated_at FROM users WHERE username=$1;`, username).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, false, err
	}
	return &user, false, nil
}

func (r *PostgresRepo) FindUserByUsername(ctx context.Context, username string, activeAt time.Time) (*models.User, error) {
	var user models.User
	err := r.db.QueryRowContext(ctx,
		`SELECT id, username, created_at, updated_at FROM users WHERE username=$1;`, username).
		Scan(&user.ID, &user.Username, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	query := `SELECT id, text, expiration_date, created_at, updated_at
	          FROM messages
	          WHERE user_id=$1 AND expiration_date >= $2
	          ORDER BY created_at ASC, id ASC;`
	rows, err := r.db.QueryContext(ctx, query, user.ID, activeAt)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	user.Messages = []models.Message{}
	for rows.Next() {
		msg := models.Message{UserID: user.ID}
		if err := rows.Scan(&msg.ID, &msg.Text, &msg.ExpirationDate, &msg.CreatedAt, &msg.UpdatedAt); err != nil {
			return nil, err
		}
		user.Messages = append(user.Messages, msg)
	}
	return &user, rows.Err()
}

func (r *PostgresRepo) FindMessageByID(ctx context.Context, id string) (*models.Message, error) {
	query := `SELECT m.id, m.text, m.user_id, m.expiration_date, m.created_at, m.updated_at, u.username
	          FROM messages m
	          JOIN users u ON u.id = m.user_id
	          WHERE m.id=$1;`
	var msg models.Message
	var username string
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&msg.ID, &msg.Text, &msg.UserID, &msg.ExpirationDate, &msg.CreatedAt, &msg.UpdatedAt, &username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	msg.Owner = &models.User{ID: msg.UserID, Username: username}
	return &msg, nil
}

func (r *PostgresRepo) CreateMessage(ctx context.Context, msg *models.Message) error {
	query := `INSERT INTO messages (id, text, user_id, expiration_date, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $5);`
	_, err := r.db.ExecContext(ctx, query, msg.ID, msg.Text, msg.UserID, msg.ExpirationDate, msg.CreatedAt)
	return err
}

// SetExpiration only ever moves expiration dates backwards.
func (r *PostgresRepo) SetExpiration(ctx context.Context, ids []string, at time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query := `UPDATE messages
	          SET expiration_date=$1, updated_at=$1
	          WHERE id = ANY($2) AND expiration_date > $1;`
	res, err := r.db.ExecContext(ctx, query, at, pq.Array(ids))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *PostgresRepo) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM messages WHERE expiration_date < $1;`, before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *PostgresRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *PostgresRepo) Close() error {
	return r.db.Close()
}
