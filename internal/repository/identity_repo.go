package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hourglass-hq/timesheet-approvals/internal/domain/approval"
	"github.com/hourglass-hq/timesheet-approvals/pkg/database"
	"go.uber.org/zap"
)

// IdentityRepository resolves actors from the users and scope_roles tables.
// It is a read model over directory data the surrounding product maintains.
type IdentityRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewIdentityRepository creates a new identity repository
func NewIdentityRepository(db *database.DB, logger *zap.Logger) *IdentityRepository {
	return &IdentityRepository{
		db:     db,
		logger: logger,
	}
}

// Resolve returns the actor's system role and scope-local roles
func (r *IdentityRepository) Resolve(ctx context.Context, actorID string) (approval.Actor, error) {
	actor := approval.Actor{ID: actorID}

	var role string
	err := r.db.Conn(ctx).QueryRowContext(ctx,
		`SELECT role FROM users WHERE id = ?`, actorID).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return actor, fmt.Errorf("%w: user %s", approval.ErrNotFound, actorID)
	}
	if err != nil {
		r.logger.Error("Failed to resolve user", zap.String("actor_id", actorID), zap.Error(err))
		return actor, fmt.Errorf("failed to resolve user: %w", err)
	}
	actor.Role = approval.Role(role)

	rows, err := r.db.Conn(ctx).QueryContext(ctx,
		`SELECT scope_id, scope_role FROM scope_roles WHERE user_id = ?`, actorID)
	if err != nil {
		return actor, fmt.Errorf("failed to load scope roles: %w", err)
	}
	defer rows.Close()

	actor.ScopeRoles = make(map[string][]approval.ScopeRole)
	for rows.Next() {
		var scopeID, scopeRole string
		if err := rows.Scan(&scopeID, &scopeRole); err != nil {
			return actor, fmt.Errorf("failed to scan scope role: %w", err)
		}
		actor.ScopeRoles[scopeID] = append(actor.ScopeRoles[scopeID], approval.ScopeRole(scopeRole))
	}

	return actor, rows.Err()
}

// CreateUser inserts a directory entry. Used by seeding and tests.
func (r *IdentityRepository) CreateUser(ctx context.Context, id, displayName string, role approval.Role) error {
	_, err := r.db.Conn(ctx).ExecContext(ctx,
		`INSERT INTO users (id, display_name, role) VALUES (?, ?, ?)`,
		id, displayName, string(role))
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GrantScopeRole assigns a scope-local role to a user
func (r *IdentityRepository) GrantScopeRole(ctx context.Context, userID, scopeID string, scopeRole approval.ScopeRole) error {
	_, err := r.db.Conn(ctx).ExecContext(ctx,
		`INSERT INTO scope_roles (user_id, scope_id, scope_role) VALUES (?, ?, ?)`,
		userID, scopeID, string(scopeRole))
	if err != nil {
		return fmt.Errorf("failed to grant scope role: %w", err)
	}
	return nil
}
