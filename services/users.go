package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cafe-ordering/database"
	"cafe-ordering/models"

	"golang.org/x/crypto/bcrypt"
)

const userColumns = `login, password_hash, phone_num, fav_items, type`

// UserField names a profile attribute that UpdateUserField can change.
type UserField string

const (
	UserFieldLogin    UserField = "login"
	UserFieldPhone    UserField = "phone"
	UserFieldPassword UserField = "password"
	UserFieldFavItems UserField = "favItems"
)

type registration struct {
	Login    string `validate:"required,max=50,excludesall= \t"`
	Password string `validate:"required,max=72"`
	Phone    string `validate:"max=16"`
}

func findUser(ctx context.Context, store *database.Store, login string) (models.User, bool, error) {
	var users []models.User
	if err := store.QueryInto(ctx, &users, `SELECT `+userColumns+` FROM users WHERE login = ?`, login); err != nil {
		return models.User{}, false, err
	}
	if len(users) == 0 {
		return models.User{}, false, nil
	}
	return users[0], true, nil
}

func userExists(ctx context.Context, store *database.Store, login string) (bool, error) {
	n, err := store.ExecuteScalarCount(ctx, `SELECT COUNT(*) FROM users WHERE login = ?`, login)
	return n > 0, err
}

// RegisterUser creates a Customer account with no favourite items.
func (s *Service) RegisterUser(ctx context.Context, login, password, phone string) (models.User, error) {
	in := registration{Login: strings.TrimSpace(login), Password: password, Phone: strings.TrimSpace(phone)}
	if err := s.validate.Struct(in); err != nil {
		return models.User{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	exists, err := userExists(ctx, s.store, in.Login)
	if err != nil {
		return models.User{}, err
	}
	if exists {
		return models.User{}, fmt.Errorf("%w: login %q is already taken", ErrConflict, in.Login)
	}

	hash, err := s.hash(in.Password)
	if err != nil {
		return models.User{}, err
	}
	user := models.User{
		Login:        in.Login,
		PasswordHash: hash,
		PhoneNum:     in.Phone,
		FavItems:     "",
		Role:         models.RoleCustomer,
	}
	_, err = s.store.ExecuteMutation(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?)`,
		user.Login, user.PasswordHash, user.PhoneNum, user.FavItems, string(user.Role))
	if database.IsDuplicate(err) {
		return models.User{}, fmt.Errorf("%w: login %q is already taken", ErrConflict, in.Login)
	}
	if err != nil {
		return models.User{}, err
	}
	s.log.WithField("login", user.Login).Info("User registered.")
	return user, nil
}

// Authenticate returns the user when login exists and password matches.
// The boolean is false for both an unknown login and a wrong password.
func (s *Service) Authenticate(ctx context.Context, login, password string) (models.User, bool, error) {
	user, ok, err := findUser(ctx, s.store, login)
	if err != nil || !ok {
		return models.User{}, false, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.log.WithField("login", login).Info("Rejected credentials.")
		return models.User{}, false, nil
	}
	return user, true, nil
}

// AuthenticateManager is Authenticate restricted to users who are currently
// Managers. Callers cannot tell which check failed.
func (s *Service) AuthenticateManager(ctx context.Context, login, password string) (models.User, bool, error) {
	user, ok, err := s.Authenticate(ctx, login, password)
	if err != nil || !ok || user.Role != models.RoleManager {
		return models.User{}, false, err
	}
	return user, true, nil
}

// UpdateUserField changes one attribute of the profile identified by login.
// The current password must be supplied again; session state alone is not
// enough to edit a profile.
func (s *Service) UpdateUserField(ctx context.Context, login, password string, field UserField, value string) (models.User, error) {
	if _, ok, err := s.Authenticate(ctx, login, password); err != nil {
		return models.User{}, err
	} else if !ok {
		return models.User{}, fmt.Errorf("%w: invalid login or password", ErrUnauthorized)
	}

	key := login
	switch field {
	case UserFieldLogin:
		newLogin := strings.TrimSpace(value)
		if err := s.validate.Var(newLogin, "required,max=50,excludesall= \t"); err != nil {
			return models.User{}, fmt.Errorf("%w: login: %v", ErrInvalidInput, err)
		}
		if newLogin != login {
			if err := s.renameUser(ctx, login, newLogin); err != nil {
				return models.User{}, err
			}
		}
		key = newLogin
	case UserFieldPhone:
		phone := strings.TrimSpace(value)
		if err := s.validate.Var(phone, "max=16"); err != nil {
			return models.User{}, fmt.Errorf("%w: phone: %v", ErrInvalidInput, err)
		}
		if _, err := s.store.ExecuteMutation(ctx, `UPDATE users SET phone_num = ? WHERE login = ?`, phone, login); err != nil {
			return models.User{}, err
		}
	case UserFieldPassword:
		if err := s.validate.Var(value, "required,max=72"); err != nil {
			return models.User{}, fmt.Errorf("%w: password: %v", ErrInvalidInput, err)
		}
		hash, err := s.hash(value)
		if err != nil {
			return models.User{}, err
		}
		if _, err := s.store.ExecuteMutation(ctx, `UPDATE users SET password_hash = ? WHERE login = ?`, hash, login); err != nil {
			return models.User{}, err
		}
	case UserFieldFavItems:
		if _, err := s.store.ExecuteMutation(ctx, `UPDATE users SET fav_items = ? WHERE login = ?`, value, login); err != nil {
			return models.User{}, err
		}
	default:
		return models.User{}, fmt.Errorf("%w: unknown profile field %q", ErrInvalidInput, field)
	}

	s.log.WithField("login", key).WithField("field", field).Info("Profile updated.")
	user, ok, err := findUser(ctx, s.store, key)
	if err != nil {
		return models.User{}, err
	}
	if !ok {
		return models.User{}, fmt.Errorf("user %q: %w", key, ErrNotFound)
	}
	return user, nil
}

// renameUser moves the account and every order it owns to newLogin.
func (s *Service) renameUser(ctx context.Context, oldLogin, newLogin string) error {
	err := s.store.Transaction(ctx, func(tx *database.Store) error {
		taken, err := userExists(ctx, tx, newLogin)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("%w: login %q is already taken", ErrConflict, newLogin)
		}
		if _, err := tx.ExecuteMutation(ctx, `UPDATE users SET login = ? WHERE login = ?`, newLogin, oldLogin); err != nil {
			return err
		}
		_, err = tx.ExecuteMutation(ctx, `UPDATE orders SET login = ? WHERE login = ?`, newLogin, oldLogin)
		return err
	})
	if database.IsDuplicate(err) {
		return fmt.Errorf("%w: login %q is already taken", ErrConflict, newLogin)
	}
	return err
}

// PromoteUserRole sets targetLogin's role. The actor's credentials are
// verified and the actor must currently be a Manager.
func (s *Service) PromoteUserRole(ctx context.Context, actorLogin, actorPassword, targetLogin string, newRole models.UserRole) (models.User, error) {
	actor, ok, err := s.Authenticate(ctx, actorLogin, actorPassword)
	if err != nil {
		return models.User{}, err
	}
	if !ok {
		return models.User{}, fmt.Errorf("%w: invalid login or password", ErrUnauthorized)
	}
	if _, err := s.requireRole(ctx, actor.Actor(), models.RoleManager); err != nil {
		return models.User{}, err
	}
	role, err := models.ParseRole(string(newRole))
	if err != nil {
		return models.User{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	n, err := s.store.ExecuteMutation(ctx, `UPDATE users SET type = ? WHERE login = ?`, string(role), targetLogin)
	if err != nil {
		return models.User{}, err
	}
	if n == 0 {
		return models.User{}, fmt.Errorf("user %q: %w", targetLogin, ErrNotFound)
	}
	s.log.WithField("actor", actorLogin).WithField("login", targetLogin).WithField("role", role).Info("Role changed.")

	user, _, err := findUser(ctx, s.store, targetLogin)
	return user, err
}

// DescribeUser returns the public columns of one profile as a table.
func (s *Service) DescribeUser(ctx context.Context, login string) (database.ResultSet, error) {
	return s.store.ExecuteQuery(ctx, `SELECT login, phone_num, fav_items, type FROM users WHERE login = ?`, login)
}

// EnsureManager creates or promotes a Manager account when the store has
// none, so the Manager-only features are reachable on a fresh database.
func (s *Service) EnsureManager(ctx context.Context, login, password string) error {
	if login == "" || password == "" {
		return nil
	}
	n, err := s.store.ExecuteScalarCount(ctx, `SELECT COUNT(*) FROM users WHERE type = ?`, string(models.RoleManager))
	if err != nil || n > 0 {
		return err
	}

	_, err = s.RegisterUser(ctx, login, password, "")
	if err != nil && !errors.Is(err, ErrConflict) {
		return err
	}
	if _, err := s.store.ExecuteMutation(ctx, `UPDATE users SET type = ? WHERE login = ?`, string(models.RoleManager), login); err != nil {
		return err
	}
	s.log.WithField("login", login).Warn("Seeded Manager account.")
	return nil
}
