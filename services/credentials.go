package services

import (
	"context"
	"errors"

	"foodies-telegram/db"

	"github.com/jackc/pgx/v5"
)

// CredentialStore keeps the backend bearer token of each Telegram user.
type CredentialStore interface {
	Token(ctx context.Context, tgUserID int64) (string, error)
	SaveToken(ctx context.Context, tgUserID int64, token string) error
	DeleteToken(ctx context.Context, tgUserID int64) error
}

// GetCustomerToken returns the stored token for the customer. Empty string and false if none is stored.
func GetCustomerToken(ctx context.Context, tgUserID int64) (token string, ok bool, err error) {
	err = db.Pool.QueryRow(ctx, `SELECT token FROM customer_sessions WHERE tg_user_id = $1`, tgUserID).Scan(&token)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return token, true, nil
}

// SaveCustomerToken stores (or replaces) the customer's token.
func SaveCustomerToken(ctx context.Context, tgUserID int64, token string) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO customer_sessions (tg_user_id, token, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (tg_user_id) DO UPDATE SET token = EXCLUDED.token, updated_at = now()`,
		tgUserID, token,
	)
	return err
}

func DeleteCustomerToken(ctx context.Context, tgUserID int64) error {
	_, err := db.Pool.Exec(ctx, `DELETE FROM customer_sessions WHERE tg_user_id = $1`, tgUserID)
	return err
}

// DBCredentials is the Postgres-backed CredentialStore.
type DBCredentials struct{}

func (DBCredentials) Token(ctx context.Context, tgUserID int64) (string, error) {
	token, _, err := GetCustomerToken(ctx, tgUserID)
	return token, err
}

func (DBCredentials) SaveToken(ctx context.Context, tgUserID int64, token string) error {
	return SaveCustomerToken(ctx, tgUserID, token)
}

func (DBCredentials) DeleteToken(ctx context.Context, tgUserID int64) error {
	return DeleteCustomerToken(ctx, tgUserID)
}
