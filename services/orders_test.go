package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"cafe-ordering/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaceOrder(t *testing.T) {
	received := time.Date(2026, 3, 14, 9, 30, 15, 0, time.Local)
	s := newTestService(t, WithClock(func() time.Time { return received.Add(400 * time.Millisecond) }))
	ctx := context.Background()
	boss := seedUser(t, s, "boss", models.RoleManager)
	alice := seedUser(t, s, "alice", models.RoleCustomer)
	seedItem(t, s, boss, "Latte", "Drinks", 3.5)
	seedItem(t, s, boss, "Bagel", "Food", 2.25)

	order, err := s.PlaceOrder(ctx, alice, []OrderLine{
		{ItemName: "Latte", Quantity: 2},
		{ItemName: "Bagel", Quantity: 1},
	})
	require.NoError(t, err)
	assert.Len(t, order.OrderID, 36)
	assert.Equal(t, "alice", order.Login)
	assert.False(t, order.Paid)
	assert.Equal(t, 9.25, order.Total)
	assert.Equal(t, received.Unix(), order.TimestampReceived.Unix())

	// later price changes leave the placed order alone
	_, err = s.UpdateMenuItem(ctx, boss, "Latte", MenuFieldPrice, "5")
	require.NoError(t, err)

	got, err := s.GetOrder(ctx, order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, 9.25, got.Total)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "Latte", got.Items[0].ItemName)
	assert.Equal(t, 3.5, got.Items[0].Price)
	assert.Equal(t, 2, got.Items[0].Quantity)
	assert.Equal(t, received.Unix(), got.TimestampReceived.Unix())
}

func TestOrderLifecycle(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	bob := seedUser(t, s, "bob", models.RoleManager)
	clerk := seedUser(t, s, "clerk", models.RoleEmployee)
	alice := seedUser(t, s, "alice", models.RoleCustomer)
	seedItem(t, s, bob, "Latte", "Drink", 3.5)

	order, err := s.PlaceOrder(ctx, alice, []OrderLine{{ItemName: "Latte", Quantity: 1}})
	require.NoError(t, err)
	assert.False(t, order.Paid)
	assert.Equal(t, 3.5, order.Total)

	_, err = s.UpdateOrderField(ctx, order.OrderID, OrderFieldPaid, "true", clerk)
	require.NoError(t, err)

	_, err = s.UpdateOrderField(ctx, order.OrderID, OrderFieldTotal, "0", alice)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestPlaceOrderRejects(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	boss := seedUser(t, s, "boss", models.RoleManager)
	alice := seedUser(t, s, "alice", models.RoleCustomer)
	seedItem(t, s, boss, "Latte", "Drinks", 3.5)

	_, err := s.PlaceOrder(ctx, alice, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = s.PlaceOrder(ctx, alice, []OrderLine{{ItemName: "Latte", Quantity: 0}})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = s.PlaceOrder(ctx, alice, []OrderLine{{ItemName: "Latte", Quantity: 1}, {ItemName: "Unicorn", Quantity: 1}})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.PlaceOrder(ctx, models.Actor{Login: "ghost"}, []OrderLine{{ItemName: "Latte", Quantity: 1}})
	assert.ErrorIs(t, err, ErrUnauthorized)

	// failed orders leave nothing behind
	n, err := s.store.ExecuteScalarCount(ctx, `SELECT COUNT(*) FROM orders`)
	require.NoError(t, err)
	assert.Zero(t, n)
	n, err = s.store.ExecuteScalarCount(ctx, `SELECT COUNT(*) FROM order_items`)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestListOrders(t *testing.T) {
	tick := time.Date(2026, 3, 14, 9, 0, 0, 0, time.Local)
	s := newTestService(t, WithClock(func() time.Time {
		tick = tick.Add(time.Minute)
		return tick
	}))
	ctx := context.Background()
	boss := seedUser(t, s, "boss", models.RoleManager)
	alice := seedUser(t, s, "alice", models.RoleCustomer)
	bob := seedUser(t, s, "bob", models.RoleCustomer)
	clerk := seedUser(t, s, "clerk", models.RoleEmployee)
	seedItem(t, s, boss, "Latte", "Drinks", 3.5)

	line := []OrderLine{{ItemName: "Latte", Quantity: 1}}
	first, err := s.PlaceOrder(ctx, alice, line)
	require.NoError(t, err)
	second, err := s.PlaceOrder(ctx, alice, line)
	require.NoError(t, err)
	third, err := s.PlaceOrder(ctx, bob, line)
	require.NoError(t, err)

	_, err = s.UpdateOrderField(ctx, third.OrderID, OrderFieldPaid, "true", clerk)
	require.NoError(t, err)

	rs, err := s.ListOrders(ctx, alice)
	require.NoError(t, err)
	require.Len(t, rs.Records, 2)
	assert.Equal(t, second.OrderID, rs.Records[0]["order_id"])
	assert.Equal(t, first.OrderID, rs.Records[1]["order_id"])

	rs, err = s.ListOrders(ctx, clerk)
	require.NoError(t, err)
	require.Len(t, rs.Records, 2)
	assert.Equal(t, first.OrderID, rs.Records[0]["order_id"])
	assert.Equal(t, second.OrderID, rs.Records[1]["order_id"])

	rs, err = s.ListOrders(ctx, bob)
	require.NoError(t, err)
	require.Len(t, rs.Records, 1)
	assert.Equal(t, third.OrderID, rs.Records[0]["order_id"])
}

func TestUpdateOrderPaid(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	boss := seedUser(t, s, "boss", models.RoleManager)
	alice := seedUser(t, s, "alice", models.RoleCustomer)
	clerk := seedUser(t, s, "clerk", models.RoleEmployee)
	seedItem(t, s, boss, "Latte", "Drinks", 3.5)

	order, err := s.PlaceOrder(ctx, alice, []OrderLine{{ItemName: "Latte", Quantity: 1}})
	require.NoError(t, err)

	_, err = s.UpdateOrderField(ctx, order.OrderID, OrderFieldPaid, "true", alice)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = s.UpdateOrderField(ctx, order.OrderID, OrderFieldPaid, "false", clerk)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = s.UpdateOrderField(ctx, order.OrderID, OrderFieldPaid, "maybe", clerk)
	assert.ErrorIs(t, err, ErrInvalidInput)

	paid, err := s.UpdateOrderField(ctx, order.OrderID, OrderFieldPaid, "true", clerk)
	require.NoError(t, err)
	assert.True(t, paid.Paid)

	// a paid order is frozen for everyone
	for _, f := range []OrderField{OrderFieldPaid, OrderFieldTotal, OrderFieldLogin, OrderFieldID} {
		_, err = s.UpdateOrderField(ctx, order.OrderID, f, "1", boss)
		assert.ErrorIs(t, err, ErrConflict, string(f))
	}
}

func TestUpdateOrderFields(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	boss := seedUser(t, s, "boss", models.RoleManager)
	alice := seedUser(t, s, "alice", models.RoleCustomer)
	bob := seedUser(t, s, "bob", models.RoleCustomer)
	seedItem(t, s, boss, "Latte", "Drinks", 3.5)

	order, err := s.PlaceOrder(ctx, alice, []OrderLine{{ItemName: "Latte", Quantity: 1}})
	require.NoError(t, err)

	_, err = s.UpdateOrderField(ctx, "no-such-order", OrderFieldTotal, "1", alice)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.UpdateOrderField(ctx, order.OrderID, OrderFieldTotal, "1", bob)
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = s.UpdateOrderField(ctx, order.OrderID, OrderFieldID, "", bob)
	assert.ErrorIs(t, err, ErrUnauthorized)

	// login, total and timestamp belong to staff even on the owner's order
	for _, f := range []OrderField{OrderFieldTotal, OrderFieldTimestamp, OrderFieldLogin} {
		_, err = s.UpdateOrderField(ctx, order.OrderID, f, "0.01", alice)
		assert.ErrorIs(t, err, ErrUnauthorized, string(f))
	}
	unchanged, err := s.GetOrder(ctx, order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, 3.5, unchanged.Total)
	assert.Equal(t, "alice", unchanged.Login)

	got, err := s.UpdateOrderField(ctx, order.OrderID, OrderFieldTotal, "4.10", boss)
	require.NoError(t, err)
	assert.Equal(t, 4.1, got.Total)

	_, err = s.UpdateOrderField(ctx, order.OrderID, OrderFieldTotal, "-2", boss)
	assert.ErrorIs(t, err, ErrInvalidInput)

	got, err = s.UpdateOrderField(ctx, order.OrderID, OrderFieldTimestamp, "2026-01-02 03:04:05", boss)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.Local).Unix(), got.TimestampReceived.Unix())

	_, err = s.UpdateOrderField(ctx, order.OrderID, OrderFieldTimestamp, "yesterday", boss)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = s.UpdateOrderField(ctx, order.OrderID, OrderFieldLogin, "nobody", boss)
	assert.ErrorIs(t, err, ErrNotFound)

	got, err = s.UpdateOrderField(ctx, order.OrderID, OrderFieldLogin, "bob", boss)
	require.NoError(t, err)
	assert.Equal(t, "bob", got.Login)

	_, err = s.UpdateOrderField(ctx, order.OrderID, OrderField("items"), "x", boss)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestViewOrder(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	boss := seedUser(t, s, "boss", models.RoleManager)
	clerk := seedUser(t, s, "clerk", models.RoleEmployee)
	alice := seedUser(t, s, "alice", models.RoleCustomer)
	bob := seedUser(t, s, "bob", models.RoleCustomer)
	seedItem(t, s, boss, "Latte", "Drinks", 3.5)

	order, err := s.PlaceOrder(ctx, alice, []OrderLine{{ItemName: "Latte", Quantity: 2}})
	require.NoError(t, err)

	for _, actor := range []models.Actor{alice, clerk, boss} {
		got, err := s.ViewOrder(ctx, actor, " "+order.OrderID+" ")
		require.NoError(t, err, actor.Login)
		assert.Equal(t, order.OrderID, got.OrderID)
		require.Len(t, got.Items, 1)
	}

	_, err = s.ViewOrder(ctx, bob, order.OrderID)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = s.ViewOrder(ctx, bob, "no-such-order")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.ViewOrder(ctx, models.Actor{Login: "ghost"}, order.OrderID)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestReissueOrderID(t *testing.T) {
	s := newTestService(t)
	ids := []string{"order-1", "order-2"}
	s.newOrderID = func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}
	ctx := context.Background()
	boss := seedUser(t, s, "boss", models.RoleManager)
	alice := seedUser(t, s, "alice", models.RoleCustomer)
	seedItem(t, s, boss, "Latte", "Drinks", 3.5)

	order, err := s.PlaceOrder(ctx, alice, []OrderLine{{ItemName: "Latte", Quantity: 3}})
	require.NoError(t, err)
	assert.Equal(t, "order-1", order.OrderID)

	got, err := s.UpdateOrderField(ctx, order.OrderID, OrderFieldID, "chosen-by-user", alice)
	require.NoError(t, err)
	assert.Equal(t, "order-2", got.OrderID)
	assert.Equal(t, 10.5, got.Total)
	require.Len(t, got.Items, 1)
	assert.Equal(t, 3, got.Items[0].Quantity)

	_, err = s.GetOrder(ctx, "order-1")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetOrder(ctx, "chosen-by-user")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateOrderIsScopedToOneOrder(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	boss := seedUser(t, s, "boss", models.RoleManager)
	alice := seedUser(t, s, "alice", models.RoleCustomer)
	seedItem(t, s, boss, "Latte", "Drinks", 3.5)

	var orders []models.Order
	for i := 0; i < 3; i++ {
		o, err := s.PlaceOrder(ctx, alice, []OrderLine{{ItemName: "Latte", Quantity: i + 1}})
		require.NoError(t, err, fmt.Sprint(i))
		orders = append(orders, o)
	}

	_, err := s.UpdateOrderField(ctx, orders[1].OrderID, OrderFieldTotal, "99", boss)
	require.NoError(t, err)

	for i, o := range orders {
		got, err := s.GetOrder(ctx, o.OrderID)
		require.NoError(t, err)
		if i == 1 {
			assert.Equal(t, 99.0, got.Total)
		} else {
			assert.Equal(t, o.Total, got.Total)
		}
	}
}
