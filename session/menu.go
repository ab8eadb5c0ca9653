package session

import (
	"context"
	"fmt"
	"strings"

	"cafe-ordering/database"
	"cafe-ordering/models"
	"cafe-ordering/services"

	"github.com/dustin/go-humanize"
)

func money(v float64) string {
	return "$" + humanize.FormatFloat("#,###.##", v)
}

func menuTable(items []models.MenuItem) database.ResultSet {
	rs := database.ResultSet{Columns: []string{"itemname", "type", "price", "description", "imageurl"}}
	for _, it := range items {
		rs.Records = append(rs.Records, database.Record{
			"itemname":    it.ItemName,
			"type":        it.Type,
			"price":       money(it.Price),
			"description": it.Description,
			"imageurl":    it.ImageURL,
		})
	}
	return rs
}

func (m *Machine) showItems(items []models.MenuItem) {
	if len(items) == 0 {
		m.term.Println("No matching items.")
		return
	}
	m.term.Table(menuTable(items))
}

func searchByName(ctx context.Context, m *Machine) error {
	name, err := m.term.ReadLine(ctx, "\tEnter item name: ")
	if err != nil {
		return err
	}
	items, err := m.ops.ListMenuByName(ctx, name)
	if err != nil {
		return err
	}
	m.showItems(items)
	return nil
}

func searchByType(ctx context.Context, m *Machine) error {
	itemType, err := m.term.ReadLine(ctx, "\tEnter item type: ")
	if err != nil {
		return err
	}
	items, err := m.ops.ListMenuByType(ctx, itemType)
	if err != nil {
		return err
	}
	m.showItems(items)
	return nil
}

func showMenu(ctx context.Context, m *Machine) error {
	items, err := m.ops.ListMenu(ctx)
	if err != nil {
		return err
	}
	m.showItems(items)
	return nil
}

func managerLogin(ctx context.Context, m *Machine) error {
	m.term.Println("FOR MANAGERS ONLY")
	login, err := m.term.ReadLine(ctx, "\tEnter manager login: ")
	if err != nil {
		return err
	}
	password, err := m.term.ReadSecret(ctx, "\tEnter manager password: ")
	if err != nil {
		return err
	}
	user, ok, err := m.ops.AuthenticateManager(ctx, login, password)
	if err != nil {
		return err
	}
	if !ok {
		m.term.Failure("You are not a manager.")
		return nil
	}
	manager := user.Actor()
	m.sess.Manager = &manager
	m.sess.push(MenuEdit)
	return nil
}

func addItem(ctx context.Context, m *Machine) error {
	var item models.MenuItem
	var err error
	if item.ItemName, err = m.term.ReadLine(ctx, "\tEnter item name: "); err != nil {
		return err
	}
	if item.Type, err = m.term.ReadLine(ctx, "\tEnter item type: "); err != nil {
		return err
	}
	price, err := m.term.ReadLine(ctx, "\tEnter item price: ")
	if err != nil {
		return err
	}
	if item.Price, err = services.ParsePrice(price); err != nil {
		return err
	}
	if item.Description, err = m.term.ReadLine(ctx, "\tEnter item description: "); err != nil {
		return err
	}
	if item.ImageURL, err = m.term.ReadLine(ctx, "\tEnter item image URL: "); err != nil {
		return err
	}

	if _, err := m.ops.AddMenuItem(ctx, *m.sess.Manager, item); err != nil {
		return err
	}
	m.term.Success("Item successfully added!")
	return nil
}

func deleteItem(ctx context.Context, m *Machine) error {
	name, err := m.term.ReadLine(ctx, "\tEnter item name: ")
	if err != nil {
		return err
	}
	if err := m.ops.DeleteMenuItem(ctx, *m.sess.Manager, name); err != nil {
		return err
	}
	m.term.Success("Item successfully deleted!")
	return nil
}

var menuFields = []struct {
	Label  string
	Field  services.MenuField
	Prompt string
}{
	{"Item Name", services.MenuFieldName, "\tEnter new item name: "},
	{"Type", services.MenuFieldType, "\tEnter new type: "},
	{"Price", services.MenuFieldPrice, "\tEnter new price: "},
	{"Description", services.MenuFieldDescription, "\tEnter new description: "},
	{"Image URL", services.MenuFieldImageURL, "\tEnter new image URL: "},
}

func updateItem(ctx context.Context, m *Machine) error {
	name, err := m.term.ReadLine(ctx, "\tEnter item name: ")
	if err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	items, err := m.ops.ListMenuByName(ctx, name)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return fmt.Errorf("menu item %q: %w", name, services.ErrNotFound)
	}

	options := make([]string, 0, len(menuFields)+1)
	for i, f := range menuFields {
		options = append(options, fmt.Sprintf("%d. %s", i+1, f.Label))
	}
	options = append(options, fmt.Sprintf("%d. < EXIT", ExitChoice))
	n, err := m.pick(ctx, "UPDATE ITEM", options)
	if err != nil {
		return err
	}
	if n == ExitChoice {
		return nil
	}
	if n < 1 || n > len(menuFields) {
		m.term.Println("Unrecognized choice!")
		return nil
	}

	f := menuFields[n-1]
	value, err := m.term.ReadLine(ctx, f.Prompt)
	if err != nil {
		return err
	}
	item, err := m.ops.UpdateMenuItem(ctx, *m.sess.Manager, name, f.Field, value)
	if err != nil {
		return err
	}
	m.term.Success("Item successfully updated!")
	m.term.Table(menuTable([]models.MenuItem{item}))
	return nil
}
