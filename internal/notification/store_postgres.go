package notification

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository persists notification channels in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// CreateDesktop registers a web-push subscription.
func (r *Repository) CreateDesktop(ctx context.Context, ch DesktopChannel) (DesktopChannel, error) {
	if ch.ID == "" {
		ch.ID = uuid.NewString()
	}
	if ch.CreatedAt.IsZero() {
		ch.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO desktop_channels (id, user_id, endpoint, p256dh, auth, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, ch.ID, ch.UserID, ch.Endpoint, ch.P256dh, ch.Auth, ch.CreatedAt)
	if err != nil {
		return DesktopChannel{}, err
	}
	return ch, nil
}

// DeleteDesktop removes a stale subscription.
func (r *Repository) DeleteDesktop(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM desktop_channels WHERE id = $1`, id)
	return err
}

// ListDesktopByUser returns all desktop channels owned by a user.
func (r *Repository) ListDesktopByUser(ctx context.Context, userID string) ([]DesktopChannel, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, endpoint, p256dh, auth, created_at
		FROM desktop_channels WHERE user_id = $1
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []DesktopChannel
	for rows.Next() {
		var ch DesktopChannel
		if err := rows.Scan(&ch.ID, &ch.UserID, &ch.Endpoint, &ch.P256dh, &ch.Auth, &ch.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, ch)
	}
	return res, rows.Err()
}

// CreatePhone registers a phone number, unverified by default.
func (r *Repository) CreatePhone(ctx context.Context, ch PhoneChannel) (PhoneChannel, error) {
	if ch.ID == "" {
		ch.ID = uuid.NewString()
	}
	if ch.CreatedAt.IsZero() {
		ch.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO phone_channels (id, user_id, phone_number, verified, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, ch.ID, ch.UserID, ch.PhoneNumber, ch.Verified, ch.CreatedAt)
	if err != nil {
		return PhoneChannel{}, err
	}
	return ch, nil
}

// FindPhoneByNumber looks up the channel for an inbound SMS sender.
func (r *Repository) FindPhoneByNumber(ctx context.Context, number string) (PhoneChannel, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, phone_number, verified, created_at
		FROM phone_channels WHERE phone_number = $1
	`, number)
	var ch PhoneChannel
	err := row.Scan(&ch.ID, &ch.UserID, &ch.PhoneNumber, &ch.Verified, &ch.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return PhoneChannel{}, ErrNotFound
	}
	return ch, err
}

// SetPhoneVerified flips the verification gate for a channel.
func (r *Repository) SetPhoneVerified(ctx context.Context, id string, verified bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE phone_channels SET verified = $2 WHERE id = $1`, id, verified)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeletePhone removes a phone channel (opt-out).
func (r *Repository) DeletePhone(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM phone_channels WHERE id = $1`, id)
	return err
}

// ListPhoneByUser returns all phone channels owned by a user.
func (r *Repository) ListPhoneByUser(ctx context.Context, userID string) ([]PhoneChannel, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, phone_number, verified, created_at
		FROM phone_channels WHERE user_id = $1
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []PhoneChannel
	for rows.Next() {
		var ch PhoneChannel
		if err := rows.Scan(&ch.ID, &ch.UserID, &ch.PhoneNumber, &ch.Verified, &ch.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, ch)
	}
	return res, rows.Err()
}
