package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"signet/internal/identity/models"
	id "signet/pkg/domain"
	"signet/pkg/platform/sentinel"
)

// Postgres implements UserStore on PostgreSQL.
//
// Schema:
//
//	CREATE TABLE users (
//	    id                     UUID PRIMARY KEY,
//	    email                  TEXT UNIQUE,
//	    phone                  TEXT,
//	    password_hash          TEXT,
//	    external_id            TEXT UNIQUE,
//	    external_access_token  TEXT,
//	    external_refresh_token TEXT,
//	    shop_domain            TEXT,
//	    first_name             TEXT,
//	    last_name              TEXT,
//	    profile_photo          TEXT,
//	    email_verified         BOOLEAN NOT NULL DEFAULT FALSE,
//	    phone_verified         BOOLEAN NOT NULL DEFAULT FALSE,
//	    active                 BOOLEAN NOT NULL DEFAULT TRUE,
//	    email_notifications    BOOLEAN NOT NULL DEFAULT TRUE,
//	    sms_notifications      BOOLEAN NOT NULL DEFAULT FALSE,
//	    last_login_at          TIMESTAMPTZ,
//	    created_at             TIMESTAMPTZ NOT NULL,
//	    updated_at             TIMESTAMPTZ NOT NULL
//	);
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// uniqueViolation is the Postgres error code for unique-constraint failures.
const uniqueViolation = "23505"

func (s *Postgres) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (
			id, email, phone, password_hash,
			external_id, external_access_token, external_refresh_token, shop_domain,
			first_name, last_name, profile_photo,
			email_verified, phone_verified, active,
			email_notifications, sms_notifications,
			last_login_at, created_at, updated_at
		)
		VALUES ($1, NULLIF($2, ''), $3, $4, NULLIF($5, ''), $6, $7, $8,
		        $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(user.ID), user.Email, user.Phone, user.PasswordHash,
		user.ExternalID, user.ExternalAccessToken, user.ExternalRefreshToken, user.ShopDomain,
		user.FirstName, user.LastName, user.ProfilePhoto,
		user.EmailVerified, user.PhoneVerified, user.Active,
		user.Preferences.EmailNotifications, user.Preferences.SMSNotifications,
		nullTime(user.LastLoginAt), user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	return s.findOne(ctx, `WHERE id = $1`, uuid.UUID(userID))
}

func (s *Postgres) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, `WHERE lower(email) = lower($1)`, email)
}

func (s *Postgres) FindByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	return s.findOne(ctx, `WHERE external_id = $1`, externalID)
}

func (s *Postgres) FindByShopDomain(ctx context.Context, shopDomain string) (*models.User, error) {
	return s.findOne(ctx, `WHERE lower(shop_domain) = lower($1)`, shopDomain)
}

func (s *Postgres) Update(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users SET
			email = NULLIF($2, ''), phone = $3, password_hash = $4,
			external_id = NULLIF($5, ''), external_access_token = $6,
			external_refresh_token = $7, shop_domain = $8,
			first_name = $9, last_name = $10, profile_photo = $11,
			email_verified = $12, phone_verified = $13, active = $14,
			email_notifications = $15, sms_notifications = $16,
			last_login_at = $17, updated_at = $18
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query,
		uuid.UUID(user.ID), user.Email, user.Phone, user.PasswordHash,
		user.ExternalID, user.ExternalAccessToken, user.ExternalRefreshToken, user.ShopDomain,
		user.FirstName, user.LastName, user.ProfilePhoto,
		user.EmailVerified, user.PhoneVerified, user.Active,
		user.Preferences.EmailNotifications, user.Preferences.SMSNotifications,
		nullTime(user.LastLoginAt), user.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("update user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

const selectUser = `
	SELECT id, COALESCE(email, ''), phone, password_hash,
	       COALESCE(external_id, ''), external_access_token, external_refresh_token, shop_domain,
	       first_name, last_name, profile_photo,
	       email_verified, phone_verified, active,
	       email_notifications, sms_notifications,
	       last_login_at, created_at, updated_at
	FROM users
`

func (s *Postgres) findOne(ctx context.Context, where string, arg any) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, selectUser+where, arg)

	var (
		user      models.User
		userID    uuid.UUID
		lastLogin sql.NullTime
	)
	err := row.Scan(
		&userID, &user.Email, &user.Phone, &user.PasswordHash,
		&user.ExternalID, &user.ExternalAccessToken, &user.ExternalRefreshToken, &user.ShopDomain,
		&user.FirstName, &user.LastName, &user.ProfilePhoto,
		&user.EmailVerified, &user.PhoneVerified, &user.Active,
		&user.Preferences.EmailNotifications, &user.Preferences.SMSNotifications,
		&lastLogin, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	user.ID = id.UserID(userID)
	if lastLogin.Valid {
		user.LastLoginAt = lastLogin.Time
	}
	return &user, nil
}

// nullTime maps the zero time to SQL NULL so "never logged in" stays NULL.
func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
