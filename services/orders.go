package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"cafe-ordering/database"
	"cafe-ordering/models"
	"cafe-ordering/statemachine"
)

const orderColumns = `order_id, login, paid, timestamp_received, total`

// OrderField names an order attribute that UpdateOrderField can change.
type OrderField string

const (
	OrderFieldID        OrderField = "orderId"
	OrderFieldLogin     OrderField = "login"
	OrderFieldPaid      OrderField = "paid"
	OrderFieldTimestamp OrderField = "timestampReceived"
	OrderFieldTotal     OrderField = "total"
)

// OrderLine is one requested menu item and how many of it.
type OrderLine struct {
	ItemName string
	Quantity int
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q is not a timestamp (use YYYY-MM-DD HH:MM:SS)", ErrInvalidInput, s)
}

// PlaceOrder records a new unpaid order for the actor. The total is computed
// from the current menu prices; prices and names are copied onto the order
// items so later menu edits do not change past orders.
func (s *Service) PlaceOrder(ctx context.Context, actor models.Actor, lines []OrderLine) (models.Order, error) {
	if len(lines) == 0 {
		return models.Order{}, fmt.Errorf("%w: an order needs at least one item", ErrInvalidInput)
	}
	if _, err := s.requireRole(ctx, actor, models.RoleCustomer, models.RoleEmployee, models.RoleManager); err != nil {
		return models.Order{}, err
	}

	order := models.Order{
		OrderID:           s.newOrderID(),
		Login:             actor.Login,
		Paid:              false,
		TimestampReceived: s.now().Truncate(time.Second),
	}
	err := s.store.Transaction(ctx, func(tx *database.Store) error {
		var total float64
		for _, line := range lines {
			if line.Quantity < 1 {
				return fmt.Errorf("%w: quantity for %q must be at least 1", ErrInvalidInput, line.ItemName)
			}
			item, ok, err := findMenuItem(ctx, tx, strings.TrimSpace(line.ItemName))
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("menu item %q: %w", line.ItemName, ErrNotFound)
			}
			total += item.Price * float64(line.Quantity)
			order.Items = append(order.Items, models.OrderItem{
				OrderID:  order.OrderID,
				ItemName: item.ItemName,
				Price:    item.Price,
				Quantity: line.Quantity,
			})
		}
		order.Total = roundCents(total)

		_, err := tx.ExecuteMutation(ctx,
			`INSERT INTO orders (`+orderColumns+`) VALUES (?, ?, ?, ?, ?)`,
			order.OrderID, order.Login, order.Paid, order.TimestampReceived, order.Total)
		if err != nil {
			return err
		}
		for _, it := range order.Items {
			_, err := tx.ExecuteMutation(ctx,
				`INSERT INTO order_items (order_id, item_name, price, quantity) VALUES (?, ?, ?, ?)`,
				it.OrderID, it.ItemName, it.Price, it.Quantity)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return models.Order{}, err
	}
	s.log.WithField("login", actor.Login).WithField("order_id", order.OrderID).WithField("total", order.Total).Info("Order placed.")
	return order, nil
}

func findOrder(ctx context.Context, store *database.Store, orderID string) (models.Order, bool, error) {
	var orders []models.Order
	if err := store.QueryInto(ctx, &orders, `SELECT `+orderColumns+` FROM orders WHERE order_id = ?`, orderID); err != nil {
		return models.Order{}, false, err
	}
	if len(orders) == 0 {
		return models.Order{}, false, nil
	}
	return orders[0], true, nil
}

// GetOrder returns the order with its items.
func (s *Service) GetOrder(ctx context.Context, orderID string) (models.Order, error) {
	orderID = strings.TrimSpace(orderID)
	order, ok, err := findOrder(ctx, s.store, orderID)
	if err != nil {
		return models.Order{}, err
	}
	if !ok {
		return models.Order{}, fmt.Errorf("order %q: %w", orderID, ErrNotFound)
	}
	err = s.store.QueryInto(ctx, &order.Items,
		`SELECT id, order_id, item_name, price, quantity FROM order_items WHERE order_id = ? ORDER BY id`, orderID)
	if err != nil {
		return models.Order{}, err
	}
	return order, nil
}

// ViewOrder is GetOrder for an actor: Customers may only see their own
// orders, staff may see any.
func (s *Service) ViewOrder(ctx context.Context, actor models.Actor, orderID string) (models.Order, error) {
	role, err := s.requireRole(ctx, actor, models.RoleCustomer, models.RoleEmployee, models.RoleManager)
	if err != nil {
		return models.Order{}, err
	}
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return models.Order{}, err
	}
	if !role.IsStaff() && order.Login != actor.Login {
		return models.Order{}, fmt.Errorf("%w: order %q belongs to another user", ErrUnauthorized, order.OrderID)
	}
	return order, nil
}

// ListOrders shows a Customer their own orders, newest first. Employees and
// Managers get every unpaid order, oldest first, which is the queue they
// work from.
func (s *Service) ListOrders(ctx context.Context, actor models.Actor) (database.ResultSet, error) {
	role, err := s.requireRole(ctx, actor, models.RoleCustomer, models.RoleEmployee, models.RoleManager)
	if err != nil {
		return database.ResultSet{}, err
	}
	if role.IsStaff() {
		return s.store.ExecuteQuery(ctx,
			`SELECT `+orderColumns+` FROM orders WHERE paid = ? ORDER BY timestamp_received`, false)
	}
	return s.store.ExecuteQuery(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE login = ? ORDER BY timestamp_received DESC`, actor.Login)
}

// UpdateOrderField changes one field of an unpaid order.
//
// A paid order is immutable for every actor. The paid flag itself only moves
// from false to true, and only for Employees and Managers. Login, total and
// timestamp are staff fields; a Customer may only reissue the id of their own
// order. The order id is never rewritten in place: asking to change it issues
// a fresh id and the supplied value is ignored.
func (s *Service) UpdateOrderField(ctx context.Context, orderID string, field OrderField, value string, actor models.Actor) (models.Order, error) {
	orderID = strings.TrimSpace(orderID)
	order, ok, err := findOrder(ctx, s.store, orderID)
	if err != nil {
		return models.Order{}, err
	}
	if !ok {
		return models.Order{}, fmt.Errorf("order %q: %w", orderID, ErrNotFound)
	}
	if statemachine.IsTerminal(statemachine.StateOf(order.Paid)) {
		return models.Order{}, fmt.Errorf("%w: order %q is already paid", ErrConflict, orderID)
	}

	role, err := s.requireRole(ctx, actor, models.RoleCustomer, models.RoleEmployee, models.RoleManager)
	if err != nil {
		return models.Order{}, err
	}
	if !role.IsStaff() && field != OrderFieldPaid {
		if order.Login != actor.Login {
			return models.Order{}, fmt.Errorf("%w: order %q belongs to another user", ErrUnauthorized, orderID)
		}
		if field != OrderFieldID {
			return models.Order{}, fmt.Errorf("%w: only Employees and Managers may change %s", ErrUnauthorized, field)
		}
	}

	key := orderID
	var n int64
	switch field {
	case OrderFieldPaid:
		paid, perr := strconv.ParseBool(strings.TrimSpace(value))
		if perr != nil {
			return models.Order{}, fmt.Errorf("%w: paid must be true or false", ErrInvalidInput)
		}
		if err := statemachine.CanTransition(statemachine.Unpaid, statemachine.StateOf(paid), role); err != nil {
			return models.Order{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
		}
		n, err = s.store.ExecuteMutation(ctx,
			`UPDATE orders SET paid = ? WHERE order_id = ? AND paid = ?`, true, orderID, false)
	case OrderFieldID:
		key, err = s.reissueOrderID(ctx, orderID)
		n = 1
	case OrderFieldLogin:
		login := strings.TrimSpace(value)
		exists, uerr := userExists(ctx, s.store, login)
		if uerr != nil {
			return models.Order{}, uerr
		}
		if !exists {
			return models.Order{}, fmt.Errorf("user %q: %w", login, ErrNotFound)
		}
		n, err = s.store.ExecuteMutation(ctx,
			`UPDATE orders SET login = ? WHERE order_id = ? AND paid = ?`, login, orderID, false)
	case OrderFieldTimestamp:
		ts, terr := parseTimestamp(value)
		if terr != nil {
			return models.Order{}, terr
		}
		n, err = s.store.ExecuteMutation(ctx,
			`UPDATE orders SET timestamp_received = ? WHERE order_id = ? AND paid = ?`, ts, orderID, false)
	case OrderFieldTotal:
		total, perr := ParsePrice(value)
		if perr != nil {
			return models.Order{}, perr
		}
		n, err = s.store.ExecuteMutation(ctx,
			`UPDATE orders SET total = ? WHERE order_id = ? AND paid = ?`, total, orderID, false)
	default:
		return models.Order{}, fmt.Errorf("%w: unknown order field %q", ErrInvalidInput, field)
	}
	if err != nil {
		return models.Order{}, err
	}
	if n == 0 {
		return models.Order{}, fmt.Errorf("%w: order %q is already paid", ErrConflict, orderID)
	}

	s.log.WithField("actor", actor.Login).WithField("order_id", key).WithField("field", field).Info("Order updated.")
	return s.GetOrder(ctx, key)
}

// reissueOrderID moves an unpaid order and its items to a freshly generated
// id and returns it.
func (s *Service) reissueOrderID(ctx context.Context, orderID string) (string, error) {
	newID := s.newOrderID()
	err := s.store.Transaction(ctx, func(tx *database.Store) error {
		n, err := tx.ExecuteMutation(ctx,
			`INSERT INTO orders (`+orderColumns+`) SELECT CAST(? AS VARCHAR(36)), login, paid, timestamp_received, total FROM orders WHERE order_id = ? AND paid = ?`,
			newID, orderID, false)
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: order %q is already paid", ErrConflict, orderID)
		}
		if _, err := tx.ExecuteMutation(ctx, `UPDATE order_items SET order_id = ? WHERE order_id = ?`, newID, orderID); err != nil {
			return err
		}
		_, err = tx.ExecuteMutation(ctx, `DELETE FROM orders WHERE order_id = ?`, orderID)
		return err
	})
	if err != nil {
		return "", err
	}
	s.log.WithField("order_id", orderID).WithField("new_order_id", newID).Info("Order id reissued.")
	return newID, nil
}
