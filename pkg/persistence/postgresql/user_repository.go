package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ChrisMoss87/vrtx-sub009/pkg/models"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/protocol"
)

// UserRepository handles users, role membership and notifications.
type UserRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewUserRepository(db *sql.DB, logger *slog.Logger) *UserRepository {
	return &UserRepository{db: db, logger: logger}
}

func (r *UserRepository) FindUser(ctx context.Context, id int64) (*models.User, error) {
	var user models.User

	err := r.db.QueryRowContext(ctx, `SELECT id, name, email, is_active FROM users WHERE id = $1`, id).
		Scan(&user.ID, &user.Name, &user.Email, &user.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %d", protocol.ErrUserNotFound, id)
		}

		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	return &user, nil
}

func (r *UserRepository) SaveUser(ctx context.Context, user *models.User) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO users (name, email, is_active) VALUES ($1, $2, $3) RETURNING id
	`, user.Name, user.Email, user.Active).Scan(&user.ID)
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}

	return nil
}

// AddRoleMembers puts userIDs in roleID. Existing memberships are kept.
func (r *UserRepository) AddRoleMembers(ctx context.Context, roleID int64, userIDs ...int64) error {
	for _, userID := range userIDs {
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO user_roles (role_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING
		`, roleID, userID)
		if err != nil {
			if isPQError(err, foreignKeyViolation) {
				return fmt.Errorf("%w: %d", protocol.ErrUserNotFound, userID)
			}

			return fmt.Errorf("failed to add user %d to role %d: %w", userID, roleID, err)
		}
	}

	return nil
}

func (r *UserRepository) ExpandRole(ctx context.Context, roleID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT u.id
		FROM user_roles ur
		JOIN users u ON u.id = ur.user_id
		WHERE ur.role_id = $1 AND u.is_active
		ORDER BY u.id
	`, roleID)
	if err != nil {
		return nil, fmt.Errorf("failed to query role %d members: %w", roleID, err)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", closeErr)
		}
	}()

	ids := make([]int64, 0)

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan role member: %w", err)
		}

		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating role members: %w", err)
	}

	return ids, nil
}

func (r *UserRepository) Notify(ctx context.Context, notification models.Notification) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO notifications (user_id, title, message, type, record_id, module_api_name)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''))
	`, notification.UserID, notification.Title, notification.Message, notification.Type, notification.RecordID, notification.ModuleAPIName)
	if err != nil {
		if isPQError(err, foreignKeyViolation) {
			return fmt.Errorf("%w: %d", protocol.ErrUserNotFound, notification.UserID)
		}

		return fmt.Errorf("failed to store notification: %w", err)
	}

	return nil
}

// Notifications returns the notifications of userID, oldest first.
func (r *UserRepository) Notifications(ctx context.Context, userID int64) ([]models.Notification, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, title, message, type, record_id, COALESCE(module_api_name, '')
		FROM notifications WHERE user_id = $1 ORDER BY id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", closeErr)
		}
	}()

	out := make([]models.Notification, 0)

	for rows.Next() {
		var (
			n        models.Notification
			recordID sql.NullInt64
		)

		if err := rows.Scan(&n.UserID, &n.Title, &n.Message, &n.Type, &recordID, &n.ModuleAPIName); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}

		n.RecordID = nullInt64Ptr(recordID)
		out = append(out, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notifications: %w", err)
	}

	return out, nil
}
