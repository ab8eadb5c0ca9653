package session

import (
	"context"
	"fmt"

	"cafe-ordering/models"
	"cafe-ordering/services"
)

func createUser(ctx context.Context, m *Machine) error {
	login, err := m.term.ReadLine(ctx, "\tEnter user login: ")
	if err != nil {
		return err
	}
	password, err := m.term.ReadSecret(ctx, "\tEnter user password: ")
	if err != nil {
		return err
	}
	phone, err := m.term.ReadLine(ctx, "\tEnter user phone: ")
	if err != nil {
		return err
	}
	if _, err := m.ops.RegisterUser(ctx, login, password, phone); err != nil {
		return err
	}
	m.term.Success("User successfully created!")
	return nil
}

func logIn(ctx context.Context, m *Machine) error {
	login, err := m.term.ReadLine(ctx, "\tEnter user login: ")
	if err != nil {
		return err
	}
	password, err := m.term.ReadSecret(ctx, "\tEnter user password: ")
	if err != nil {
		return err
	}
	user, ok, err := m.ops.Authenticate(ctx, login, password)
	if err != nil {
		return err
	}
	if !ok {
		m.term.Failure("Invalid login or password.")
		return nil
	}
	actor := user.Actor()
	m.sess.Actor = &actor
	m.sess.push(LoggedIn)
	m.log.WithField("login", actor.Login).Info("Logged in.")
	return nil
}

// actor is the logged in user. Only reachable from states below LoggedIn.
func (m *Machine) actor() models.Actor {
	if m.sess.Actor == nil {
		return models.Actor{}
	}
	return *m.sess.Actor
}

func openProfile(ctx context.Context, m *Machine) error {
	m.term.Println("For your safety please enter your login and password again.")
	login, err := m.term.ReadLine(ctx, "\tEnter user login: ")
	if err != nil {
		return err
	}
	password, err := m.term.ReadSecret(ctx, "\tEnter user password: ")
	if err != nil {
		return err
	}
	if _, ok, err := m.ops.Authenticate(ctx, login, password); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("%w: invalid login or password", services.ErrUnauthorized)
	}
	m.sess.Credentials = &Credentials{Login: login, Password: password}
	m.sess.push(Profile)
	return nil
}

func updateProfile(field services.UserField, prompt string) Action {
	return func(ctx context.Context, m *Machine) error {
		creds := m.sess.Credentials
		var (
			value string
			err   error
		)
		if field == services.UserFieldPassword {
			value, err = m.term.ReadSecret(ctx, prompt)
		} else {
			value, err = m.term.ReadLine(ctx, prompt)
		}
		if err != nil {
			return err
		}
		user, err := m.ops.UpdateUserField(ctx, creds.Login, creds.Password, field, value)
		if err != nil {
			return err
		}

		switch field {
		case services.UserFieldLogin:
			if m.sess.Actor != nil && m.sess.Actor.Login == creds.Login {
				m.sess.Actor.Login = user.Login
			}
			creds.Login = user.Login
		case services.UserFieldPassword:
			creds.Password = value
		}
		m.term.Success("Updated Successfully!")
		return nil
	}
}

var roleChoices = []models.UserRole{models.RoleCustomer, models.RoleEmployee, models.RoleManager}

func changeRole(ctx context.Context, m *Machine) error {
	target, err := m.term.ReadLine(ctx, "\tEnter the login of the user to change: ")
	if err != nil {
		return err
	}
	options := make([]string, 0, len(roleChoices)+1)
	for i, r := range roleChoices {
		options = append(options, fmt.Sprintf("%d. %s", i+1, r))
	}
	options = append(options, fmt.Sprintf("%d. < EXIT", ExitChoice))
	n, err := m.pick(ctx, "NEW TYPE", options)
	if err != nil {
		return err
	}
	if n == ExitChoice {
		return nil
	}
	if n < 1 || n > len(roleChoices) {
		m.term.Println("Unrecognized choice!")
		return nil
	}

	creds := m.sess.Credentials
	user, err := m.ops.PromoteUserRole(ctx, creds.Login, creds.Password, target, roleChoices[n-1])
	if err != nil {
		return err
	}
	m.term.Success("Updated Successfully!")

	rs, err := m.ops.DescribeUser(ctx, user.Login)
	if err != nil {
		return err
	}
	m.term.Printf("total row(s): %d\n", m.term.Table(rs))
	return nil
}

// pick shows a one-shot submenu and returns the selection.
func (m *Machine) pick(ctx context.Context, title string, options []string) (int, error) {
	m.term.Menu(title, options)
	return m.term.ReadChoice(ctx)
}
