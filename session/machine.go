// Package session drives the interactive client. Navigation is an explicit
// table from state to numbered choices; the session value carries who is
// logged in and which nested menus are open.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"cafe-ordering/database"
	"cafe-ordering/models"
	"cafe-ordering/services"
	"cafe-ordering/terminal"

	"github.com/sirupsen/logrus"
)

// Operations is the set of domain operations the client drives.
type Operations interface {
	RegisterUser(ctx context.Context, login, password, phone string) (models.User, error)
	Authenticate(ctx context.Context, login, password string) (models.User, bool, error)
	AuthenticateManager(ctx context.Context, login, password string) (models.User, bool, error)
	UpdateUserField(ctx context.Context, login, password string, field services.UserField, value string) (models.User, error)
	PromoteUserRole(ctx context.Context, actorLogin, actorPassword, targetLogin string, role models.UserRole) (models.User, error)
	DescribeUser(ctx context.Context, login string) (database.ResultSet, error)

	ListMenu(ctx context.Context) ([]models.MenuItem, error)
	ListMenuByName(ctx context.Context, name string) ([]models.MenuItem, error)
	ListMenuByType(ctx context.Context, itemType string) ([]models.MenuItem, error)
	AddMenuItem(ctx context.Context, actor models.Actor, item models.MenuItem) (models.MenuItem, error)
	DeleteMenuItem(ctx context.Context, actor models.Actor, name string) error
	UpdateMenuItem(ctx context.Context, actor models.Actor, name string, field services.MenuField, value string) (models.MenuItem, error)

	PlaceOrder(ctx context.Context, actor models.Actor, lines []services.OrderLine) (models.Order, error)
	ViewOrder(ctx context.Context, actor models.Actor, orderID string) (models.Order, error)
	ListOrders(ctx context.Context, actor models.Actor) (database.ResultSet, error)
	UpdateOrderField(ctx context.Context, orderID string, field services.OrderField, value string, actor models.Actor) (models.Order, error)
}

// StateID identifies one menu of the client.
type StateID int

const (
	LoggedOut StateID = iota
	LoggedIn
	Menu
	Browse
	MenuEdit
	Profile
	OrderEdit
)

// ExitChoice pops back to the parent menu, or quits from the top.
const ExitChoice = 9

// Action performs one menu choice. Returning an error reports it and keeps
// the current menu open.
type Action func(ctx context.Context, m *Machine) error

type choice struct {
	Label string
	Run   Action
}

type state struct {
	Title     string
	ExitLabel string
	Choices   map[int]choice
	// OnExit clears whatever the state added to the session.
	OnExit func(s *Session)
}

func (st *state) lines() []string {
	keys := make([]int, 0, len(st.Choices))
	for k := range st.Choices {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	out := make([]string, 0, len(keys)+2)
	for _, k := range keys {
		out = append(out, fmt.Sprintf("%d. %s", k, st.Choices[k].Label))
	}
	out = append(out, ".........................", fmt.Sprintf("%d. %s", ExitChoice, st.ExitLabel))
	return out
}

type Machine struct {
	ops    Operations
	term   *terminal.Terminal
	log    *logrus.Logger
	states map[StateID]*state
	sess   Session
}

func New(ops Operations, term *terminal.Terminal, log *logrus.Logger) *Machine {
	return &Machine{
		ops:    ops,
		term:   term,
		log:    log,
		states: transitions(),
	}
}

// transitions is the authoritative navigation table.
func transitions() map[StateID]*state {
	return map[StateID]*state{
		LoggedOut: {
			Title:     "MAIN MENU",
			ExitLabel: "< EXIT",
			Choices: map[int]choice{
				1: {"Create user", createUser},
				2: {"Log in", logIn},
			},
		},
		LoggedIn: {
			Title:     "MAIN MENU",
			ExitLabel: "Log out",
			Choices: map[int]choice{
				1: {"Goto Menu", enter(Menu)},
				2: {"Update Profile", openProfile},
				3: {"Place a Order", placeOrder},
				4: {"Update a Order", openOrder},
				5: {"View Orders", viewOrders},
			},
			OnExit: func(s *Session) { s.Actor = nil },
		},
		Menu: {
			Title:     "MENU",
			ExitLabel: "< EXIT",
			Choices: map[int]choice{
				1: {"View Menu Items", enter(Browse)},
				2: {"Modify Menu Items", managerLogin},
			},
		},
		Browse: {
			Title:     "VIEW MENU",
			ExitLabel: "< EXIT",
			Choices: map[int]choice{
				1: {"Search by Item Name", searchByName},
				2: {"Search by Item Type", searchByType},
				3: {"Show Whole Menu", showMenu},
			},
		},
		MenuEdit: {
			Title:     "MODIFY MENU",
			ExitLabel: "< EXIT",
			Choices: map[int]choice{
				1: {"Add Items", addItem},
				2: {"Delete Items", deleteItem},
				3: {"Update Items", updateItem},
			},
			OnExit: func(s *Session) { s.Manager = nil },
		},
		Profile: {
			Title:     "PROFILE",
			ExitLabel: "Go back to MAIN MENU",
			Choices: map[int]choice{
				1: {"Update login", updateProfile(services.UserFieldLogin, "Enter new login: ")},
				2: {"Update phone number", updateProfile(services.UserFieldPhone, "Enter new phone number: ")},
				3: {"Update password", updateProfile(services.UserFieldPassword, "Enter new password: ")},
				4: {"Update fav. items", updateProfile(services.UserFieldFavItems, "Enter fav items: ")},
				5: {"Update type (manager only)", changeRole},
			},
			OnExit: func(s *Session) { s.Credentials = nil },
		},
		OrderEdit: {
			Title:     "UPDATE ORDER",
			ExitLabel: "< Exit",
			Choices: map[int]choice{
				1: {"OrderID (issue a new one)", reissueOrderID},
				2: {"Login (staff only)", updateOrder(services.OrderFieldLogin, "Enter new Login: ")},
				3: {"Paid (FOR MANAGERS/EMPLOYEES ONLY)", markPaid},
				4: {"Timestamp Received (staff only)", updateOrder(services.OrderFieldTimestamp, "Enter new Timestamp (YYYY-MM-DD HH:MM:SS): ")},
				5: {"Total (staff only)", updateOrder(services.OrderFieldTotal, "Enter new Total: ")},
			},
			OnExit: func(s *Session) { s.OrderID = "" },
		},
	}
}

func enter(next StateID) Action {
	return func(_ context.Context, m *Machine) error {
		m.sess.push(next)
		return nil
	}
}

// Session exposes the current session value, mostly for tests.
func (m *Machine) Session() Session {
	return m.sess
}

// Run drives the menus until the user exits from the top menu, input ends
// or ctx is cancelled.
func (m *Machine) Run(ctx context.Context) error {
	m.sess = Session{}
	m.sess.push(LoggedOut)
	for !m.sess.done() {
		if err := ctx.Err(); err != nil {
			return err
		}
		st := m.states[m.sess.current()]
		m.term.Menu(st.Title, st.lines())

		n, err := m.term.ReadChoice(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		if n == ExitChoice {
			m.pop()
			continue
		}
		c, ok := st.Choices[n]
		if !ok {
			m.term.Println("Unrecognized choice!")
			continue
		}
		if err := c.Run(ctx, m); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			m.report(err)
		}
	}
	return nil
}

func (m *Machine) pop() {
	id := m.sess.pop()
	if st := m.states[id]; st.OnExit != nil {
		st.OnExit(&m.sess)
	}
}

// report prints an action failure by kind. Failures never end the session.
func (m *Machine) report(err error) {
	var storageErr *database.StorageError
	switch {
	case errors.Is(err, services.ErrNotFound):
		m.term.Failure("Not found: %s", detail(err, services.ErrNotFound))
	case errors.Is(err, services.ErrConflict):
		m.term.Failure("Conflict: %s", detail(err, services.ErrConflict))
	case errors.Is(err, services.ErrUnauthorized):
		m.term.Failure("Not authorized: %s", detail(err, services.ErrUnauthorized))
	case errors.Is(err, services.ErrInvalidInput):
		m.term.Failure("Invalid input: %s", detail(err, services.ErrInvalidInput))
	case errors.As(err, &storageErr):
		m.log.WithError(err).Error("Storage failure during menu action.")
		m.term.Failure("Storage error: %v", err)
	default:
		m.log.WithError(err).Error("Menu action failed.")
		m.term.Failure("Error: %v", err)
	}
}

// detail drops the kind's own text from an error message, which is already
// printed as the prefix.
func detail(err, kind error) string {
	msg := err.Error()
	msg = strings.TrimPrefix(msg, kind.Error()+": ")
	msg = strings.TrimSuffix(msg, ": "+kind.Error())
	return msg
}
