package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/magabrotheeeer/silver-circles/internal/models"
)

const userColumns = `id, username, email, password_hash, full_name, about_me, profile_image,
	is_verified, verification_token, verification_token_expiry,
	password_reset_token, password_reset_expiry,
	is_premium, premium_until, billing_customer_id, billing_subscription_id,
	is_admin, created_at`

// lookupColumns — поля, по которым допустим поиск пользователя.
var lookupColumns = map[models.UserKey]string{
	models.KeyUsername:            "username",
	models.KeyEmail:               "email",
	models.KeyVerificationToken:   "verification_token",
	models.KeyPasswordResetToken:  "password_reset_token",
	models.KeyBillingSubscription: "billing_subscription_id",
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	var verificationToken, resetToken, billingCustomerID, billingSubscription sql.NullString
	var verificationExpiry, resetExpiry, premiumUntil sql.NullTime
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.FullName,
		&u.AboutMe, &u.ProfileImage, &u.IsVerified,
		&verificationToken, &verificationExpiry, &resetToken, &resetExpiry,
		&u.IsPremium, &premiumUntil, &billingCustomerID, &billingSubscription,
		&u.IsAdmin, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.VerificationToken = nullString(verificationToken)
	u.VerificationTokenExpiry = nullTime(verificationExpiry)
	u.PasswordResetToken = nullString(resetToken)
	u.PasswordResetExpiry = nullTime(resetExpiry)
	u.PremiumUntil = nullTime(premiumUntil)
	u.BillingCustomerID = nullString(billingCustomerID)
	u.BillingSubscriptionID = nullString(billingSubscription)
	return &u, nil
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullTime(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}

// CreateUser сохраняет нового пользователя и возвращает его с присвоенным ID.
func (s *Storage) CreateUser(ctx context.Context, user models.User) (*models.User, error) {
	const op = "storage.CreateUser"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `INSERT INTO users (username, email, password_hash, full_name, about_me, profile_image,
			      is_verified, verification_token, verification_token_expiry, is_admin)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			  RETURNING ` + userColumns
	created, err := scanUser(s.DB.QueryRowContext(ctx, query,
		user.Username, user.Email, user.PasswordHash, user.FullName, user.AboutMe, user.ProfileImage,
		user.IsVerified, user.VerificationToken, user.VerificationTokenExpiry, user.IsAdmin))
	if err != nil {
		return nil, mapError(op, err)
	}
	return created, nil
}

// GetUser возвращает пользователя по ID.
func (s *Storage) GetUser(ctx context.Context, id int64) (*models.User, error) {
	const op = "storage.GetUser"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	u, err := scanUser(s.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, mapError(op, err)
	}
	return u, nil
}

// GetUserByKey возвращает пользователя по значению уникального поля.
func (s *Storage) GetUserByKey(ctx context.Context, key models.UserKey, value string) (*models.User, error) {
	const op = "storage.GetUserByKey"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	column, ok := lookupColumns[key]
	if !ok {
		return nil, fmt.Errorf("%s: unsupported key %q", op, key)
	}

	u, err := scanUser(s.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+column+` = $1`, value))
	if err != nil {
		return nil, mapError(op, err)
	}
	return u, nil
}

// UpdateUser применяет частичное обновление и возвращает итоговую запись.
// Пара токен+срок действия всегда пишется одним оператором.
func (s *Storage) UpdateUser(ctx context.Context, id int64, patch models.UserPatch) (*models.User, error) {
	const op = "storage.UpdateUser"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return s.GetUser(ctx, id)
	}

	set := make([]string, 0, 14)
	args := make([]any, 0, 15)
	add := func(column string, value any) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	addToken := func(tokenColumn, expiryColumn string, p *models.TokenPatch) {
		if p.Token == "" {
			add(tokenColumn, nil)
			add(expiryColumn, nil)
			return
		}
		add(tokenColumn, p.Token)
		add(expiryColumn, p.Expiry)
	}

	if patch.PasswordHash != nil {
		add("password_hash", *patch.PasswordHash)
	}
	if patch.FullName != nil {
		add("full_name", *patch.FullName)
	}
	if patch.AboutMe != nil {
		add("about_me", *patch.AboutMe)
	}
	if patch.ProfileImage != nil {
		add("profile_image", *patch.ProfileImage)
	}
	if patch.IsVerified != nil {
		add("is_verified", *patch.IsVerified)
	}
	if patch.Verification != nil {
		addToken("verification_token", "verification_token_expiry", patch.Verification)
	}
	if patch.PasswordReset != nil {
		addToken("password_reset_token", "password_reset_expiry", patch.PasswordReset)
	}
	if patch.IsPremium != nil {
		add("is_premium", *patch.IsPremium)
	}
	if patch.PremiumUntil != nil {
		add("premium_until", patch.PremiumUntil.Value)
	}
	if patch.BillingCustomerID != nil {
		add("billing_customer_id", *patch.BillingCustomerID)
	}
	if patch.BillingSubscriptionID != nil {
		add("billing_subscription_id", *patch.BillingSubscriptionID)
	}
	if patch.IsAdmin != nil {
		add("is_admin", *patch.IsAdmin)
	}

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE users SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(set, ", "), len(args), userColumns)
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, mapError(op, err)
	}
	return u, nil
}

// ListUsers возвращает страницу пользователей в порядке регистрации.
func (s *Storage) ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error) {
	const op = "storage.ListUsers"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	return s.queryUsers(ctx, op,
		`SELECT `+userColumns+` FROM users ORDER BY id LIMIT $1 OFFSET $2`, limit, offset)
}

// FindPremiumExpired находит пользователей с флагом премиума, срок которого
// истёк к моменту now. Страницы идут по возрастанию ID начиная после afterID.
func (s *Storage) FindPremiumExpired(ctx context.Context, now time.Time, afterID int64, limit int) ([]*models.User, error) {
	const op = "storage.FindPremiumExpired"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	return s.queryUsers(ctx, op,
		`SELECT `+userColumns+` FROM users
		 WHERE is_premium AND premium_until IS NOT NULL AND premium_until <= $1 AND id > $2
		 ORDER BY id LIMIT $3`, now, afterID, limit)
}

func (s *Storage) queryUsers(ctx context.Context, op, query string, args ...any) ([]*models.User, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
