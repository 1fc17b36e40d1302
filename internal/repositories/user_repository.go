package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/ituby/GenieAI-sub000/internal/models"
)

type UserRepository struct {
	DB *sql.DB
}

func (r *UserRepository) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	err := r.DB.QueryRowContext(ctx, `
INSERT INTO users (email, name, password, created_at)
VALUES ($1, $2, $3, NOW())
RETURNING id, created_at`,
		user.Email, user.Name, user.Password,
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		return models.User{}, err
	}
	user.Password = ""
	return user, nil
}

func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	err := r.DB.QueryRowContext(ctx, `
SELECT id, email, name, password, avatar_path, premium, token_balance, created_at, updated_at
FROM users WHERE email = $1`, email).Scan(
		&user.ID, &user.Email, &user.Name, &user.Password, &user.AvatarPath,
		&user.Premium, &user.TokenBalance, &user.CreatedAt, &user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, models.ErrUserNotFound
	}
	return user, err
}

func (r *UserRepository) GetUserByID(ctx context.Context, id int) (models.User, error) {
	var user models.User
	err := r.DB.QueryRowContext(ctx, `
SELECT id, email, name, avatar_path, premium, token_balance, created_at, updated_at
FROM users WHERE id = $1`, id).Scan(
		&user.ID, &user.Email, &user.Name, &user.AvatarPath,
		&user.Premium, &user.TokenBalance, &user.CreatedAt, &user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, models.ErrUserNotFound
	}
	return user, err
}

func (r *UserRepository) UpdateUser(ctx context.Context, user models.User) (models.User, error) {
	err := r.DB.QueryRowContext(ctx, `
UPDATE users SET name = $1, avatar_path = $2, updated_at = NOW()
WHERE id = $3
RETURNING email, premium, token_balance, created_at, updated_at`,
		user.Name, user.AvatarPath, user.ID,
	).Scan(&user.Email, &user.Premium, &user.TokenBalance, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, models.ErrUserNotFound
	}
	return user, err
}

func (r *UserRepository) SetAvatarPath(ctx context.Context, userID int, path string) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE users SET avatar_path = $1, updated_at = NOW() WHERE id = $2`, path, userID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return models.ErrUserNotFound
	}
	return err
}

func (r *UserRepository) SetPremium(ctx context.Context, userID int, premium bool) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE users SET premium = $1, updated_at = NOW() WHERE id = $2`, premium, userID)
	return err
}

func (r *UserRepository) CreateSession(ctx context.Context, session models.Session) error {
	_, err := r.DB.ExecContext(ctx, `
INSERT INTO sessions (user_id, refresh_token, expires_at, created_at)
VALUES ($1, $2, $3, NOW())`,
		session.UserID, session.RefreshToken, session.ExpiresAt)
	return err
}

func (r *UserRepository) GetSessionByToken(ctx context.Context, token string) (models.Session, error) {
	var s models.Session
	err := r.DB.QueryRowContext(ctx, `
SELECT id, user_id, refresh_token, expires_at, created_at
FROM sessions WHERE refresh_token = $1`, token).Scan(
		&s.ID, &s.UserID, &s.RefreshToken, &s.ExpiresAt, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Session{}, nil
	}
	return s, err
}

// RotateSession replaces an old refresh token with a new one atomically.
func (r *UserRepository) RotateSession(ctx context.Context, oldToken, newToken string, expiresAt time.Time) error {
	res, err := r.DB.ExecContext(ctx, `
UPDATE sessions SET refresh_token = $1, expires_at = $2 WHERE refresh_token = $3`,
		newToken, expiresAt, oldToken)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return models.ErrForbidden
	}
	return err
}

func (r *UserRepository) DeleteSessionsByUser(ctx context.Context, userID int) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	return err
}
