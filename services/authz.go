package services

import (
	"context"
	"fmt"

	"cafe-ordering/database"
	"cafe-ordering/models"
)

// currentRole reads the role stored for login right now. Roles can change
// between login and use within one session, so callers never rely on the
// role captured in the Actor.
func currentRole(ctx context.Context, store *database.Store, login string) (models.UserRole, bool, error) {
	rs, err := store.ExecuteQuery(ctx, `SELECT type FROM users WHERE login = ?`, login)
	if err != nil {
		return "", false, err
	}
	if len(rs.Records) == 0 {
		return "", false, nil
	}
	return models.UserRole(rs.Records[0]["type"]), true, nil
}

// requireRole enforces that the actor currently holds one of the allowed roles
func (s *Service) requireRole(ctx context.Context, actor models.Actor, roles ...models.UserRole) (models.UserRole, error) {
	role, ok, err := currentRole(ctx, s.store, actor.Login)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: unknown user %q", ErrUnauthorized, actor.Login)
	}
	for _, r := range roles {
		if role == r {
			return role, nil
		}
	}
	s.log.WithField("login", actor.Login).WithField("role", role).Warn("Access denied.")
	return "", fmt.Errorf("%w: required role(s): %s", ErrUnauthorized, rolesString(roles))
}

func rolesString(roles []models.UserRole) string {
	s := ""
	for i, r := range roles {
		if i > 0 {
			s += ", "
		}
		s += string(r)
	}
	return s
}
