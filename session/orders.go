package session

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"cafe-ordering/models"
	"cafe-ordering/services"

	"github.com/dustin/go-humanize"
)

func (m *Machine) printOrder(o models.Order) {
	m.term.Printf("Order %s for %s\n", o.OrderID, o.Login)
	for _, it := range o.Items {
		m.term.Printf("\t%d x %s @ %s\n", it.Quantity, it.ItemName, money(it.Price))
	}
	paid := "unpaid"
	if o.Paid {
		paid = "paid"
	}
	m.term.Printf("Total %s, %s, received %s (%s)\n",
		money(o.Total), paid, o.TimestampReceived.Format("2006-01-02 15:04:05"), humanize.Time(o.TimestampReceived))
}

// placeOrder reads item lines until a blank item name and submits them as
// one order.
func placeOrder(ctx context.Context, m *Machine) error {
	var lines []services.OrderLine
	for {
		name, err := m.term.ReadLine(ctx, "\tEnter item name (empty to finish): ")
		if err != nil {
			return err
		}
		name = strings.TrimSpace(name)
		if name == "" {
			break
		}
		qty, err := m.term.ReadLine(ctx, "\tEnter quantity [1]: ")
		if err != nil {
			return err
		}
		n := 1
		if qty = strings.TrimSpace(qty); qty != "" {
			if n, err = strconv.Atoi(qty); err != nil {
				m.term.Println("Your input is invalid!")
				continue
			}
		}
		lines = append(lines, services.OrderLine{ItemName: name, Quantity: n})
	}
	if len(lines) == 0 {
		m.term.Println("Nothing ordered.")
		return nil
	}

	order, err := m.ops.PlaceOrder(ctx, m.actor(), lines)
	if err != nil {
		return err
	}
	m.term.Success("Order placed!")
	m.printOrder(order)
	return nil
}

func viewOrders(ctx context.Context, m *Machine) error {
	rs, err := m.ops.ListOrders(ctx, m.actor())
	if err != nil {
		return err
	}
	m.term.Printf("total row(s): %d\n", m.term.Table(rs))
	return nil
}

func openOrder(ctx context.Context, m *Machine) error {
	id, err := m.term.ReadLine(ctx, "\tEnter order ID: ")
	if err != nil {
		return err
	}
	order, err := m.ops.ViewOrder(ctx, m.actor(), id)
	if err != nil {
		return err
	}
	m.printOrder(order)
	if order.Paid {
		return fmt.Errorf("%w: order %q is already paid", services.ErrConflict, order.OrderID)
	}
	m.sess.OrderID = order.OrderID
	m.sess.push(OrderEdit)
	return nil
}

func reissueOrderID(ctx context.Context, m *Machine) error {
	order, err := m.ops.UpdateOrderField(ctx, m.sess.OrderID, services.OrderFieldID, "", m.actor())
	if err != nil {
		return err
	}
	m.sess.OrderID = order.OrderID
	m.term.Success("New order ID: %s", order.OrderID)
	return nil
}

func updateOrder(field services.OrderField, prompt string) Action {
	return func(ctx context.Context, m *Machine) error {
		value, err := m.term.ReadLine(ctx, "\t" + prompt)
		if err != nil {
			return err
		}
		order, err := m.ops.UpdateOrderField(ctx, m.sess.OrderID, field, value, m.actor())
		if err != nil {
			return err
		}
		m.term.Success("Updated Successfully!")
		m.printOrder(order)
		return nil
	}
}

// markPaid closes the order editor on success; a paid order cannot change.
func markPaid(ctx context.Context, m *Machine) error {
	order, err := m.ops.UpdateOrderField(ctx, m.sess.OrderID, services.OrderFieldPaid, "true", m.actor())
	if err != nil {
		return err
	}
	m.term.Success("Order %s marked as paid.", order.OrderID)
	m.pop()
	return nil
}
