package services

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"cafe-ordering/database"
	"cafe-ordering/models"
)

const menuColumns = `item_name, type, price, description, image_url`

// MenuField names a menu item attribute that UpdateMenuItem can change.
type MenuField string

const (
	MenuFieldName        MenuField = "name"
	MenuFieldType        MenuField = "type"
	MenuFieldPrice       MenuField = "price"
	MenuFieldDescription MenuField = "description"
	MenuFieldImageURL    MenuField = "imageURL"
)

func findMenuItem(ctx context.Context, store *database.Store, name string) (models.MenuItem, bool, error) {
	var items []models.MenuItem
	if err := store.QueryInto(ctx, &items, `SELECT `+menuColumns+` FROM menu WHERE item_name = ?`, name); err != nil {
		return models.MenuItem{}, false, err
	}
	if len(items) == 0 {
		return models.MenuItem{}, false, nil
	}
	return items[0], true, nil
}

func menuItemExists(ctx context.Context, store *database.Store, name string) (bool, error) {
	n, err := store.ExecuteScalarCount(ctx, `SELECT COUNT(*) FROM menu WHERE item_name = ?`, name)
	return n > 0, err
}

// ListMenuByName returns the items whose name matches exactly.
func (s *Service) ListMenuByName(ctx context.Context, name string) ([]models.MenuItem, error) {
	var items []models.MenuItem
	err := s.store.QueryInto(ctx, &items, `SELECT `+menuColumns+` FROM menu WHERE item_name = ?`, strings.TrimSpace(name))
	return items, err
}

// ListMenuByType returns the items of one category ordered by name.
func (s *Service) ListMenuByType(ctx context.Context, itemType string) ([]models.MenuItem, error) {
	var items []models.MenuItem
	err := s.store.QueryInto(ctx, &items,
		`SELECT `+menuColumns+` FROM menu WHERE type = ? ORDER BY item_name`, strings.TrimSpace(itemType))
	return items, err
}

// ListMenu returns the whole menu grouped by type.
func (s *Service) ListMenu(ctx context.Context) ([]models.MenuItem, error) {
	var items []models.MenuItem
	err := s.store.QueryInto(ctx, &items, `SELECT `+menuColumns+` FROM menu ORDER BY type, item_name`)
	return items, err
}

// AddMenuItem inserts a new item. Managers only.
func (s *Service) AddMenuItem(ctx context.Context, actor models.Actor, item models.MenuItem) (models.MenuItem, error) {
	if _, err := s.requireRole(ctx, actor, models.RoleManager); err != nil {
		return models.MenuItem{}, err
	}

	item.ItemName = strings.TrimSpace(item.ItemName)
	item.Type = strings.TrimSpace(item.Type)
	item.ImageURL = strings.TrimSpace(item.ImageURL)
	item.Price = roundCents(item.Price)
	if err := s.validate.Struct(item); err != nil {
		return models.MenuItem{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	exists, err := menuItemExists(ctx, s.store, item.ItemName)
	if err != nil {
		return models.MenuItem{}, err
	}
	if exists {
		return models.MenuItem{}, fmt.Errorf("%w: menu item %q already exists", ErrConflict, item.ItemName)
	}

	_, err = s.store.ExecuteMutation(ctx,
		`INSERT INTO menu (`+menuColumns+`) VALUES (?, ?, ?, ?, ?)`,
		item.ItemName, item.Type, item.Price, item.Description, item.ImageURL)
	if database.IsDuplicate(err) {
		return models.MenuItem{}, fmt.Errorf("%w: menu item %q already exists", ErrConflict, item.ItemName)
	}
	if err != nil {
		return models.MenuItem{}, err
	}
	s.log.WithField("actor", actor.Login).WithField("item", item.ItemName).Info("Menu item added.")
	return item, nil
}

// DeleteMenuItem removes an item by name. Managers only.
func (s *Service) DeleteMenuItem(ctx context.Context, actor models.Actor, name string) error {
	if _, err := s.requireRole(ctx, actor, models.RoleManager); err != nil {
		return err
	}

	name = strings.TrimSpace(name)
	exists, err := menuItemExists(ctx, s.store, name)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("menu item %q: %w", name, ErrNotFound)
	}
	n, err := s.store.ExecuteMutation(ctx, `DELETE FROM menu WHERE item_name = ?`, name)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("menu item %q: %w", name, ErrNotFound)
	}
	s.log.WithField("actor", actor.Login).WithField("item", name).Info("Menu item deleted.")
	return nil
}

// UpdateMenuItem changes exactly one field of the named item and returns the
// item as stored afterwards. After a rename the returned ItemName is the key
// to use for further calls.
func (s *Service) UpdateMenuItem(ctx context.Context, actor models.Actor, name string, field MenuField, value string) (models.MenuItem, error) {
	if _, err := s.requireRole(ctx, actor, models.RoleManager); err != nil {
		return models.MenuItem{}, err
	}

	name = strings.TrimSpace(name)
	exists, err := menuItemExists(ctx, s.store, name)
	if err != nil {
		return models.MenuItem{}, err
	}
	if !exists {
		return models.MenuItem{}, fmt.Errorf("menu item %q: %w", name, ErrNotFound)
	}

	key := name
	switch field {
	case MenuFieldName:
		newName := strings.TrimSpace(value)
		if err := s.validate.Var(newName, "required,max=50"); err != nil {
			return models.MenuItem{}, fmt.Errorf("%w: name: %v", ErrInvalidInput, err)
		}
		if newName != name {
			taken, err := menuItemExists(ctx, s.store, newName)
			if err != nil {
				return models.MenuItem{}, err
			}
			if taken {
				return models.MenuItem{}, fmt.Errorf("%w: menu item %q already exists", ErrConflict, newName)
			}
			_, err = s.store.ExecuteMutation(ctx, `UPDATE menu SET item_name = ? WHERE item_name = ?`, newName, name)
			if database.IsDuplicate(err) {
				return models.MenuItem{}, fmt.Errorf("%w: menu item %q already exists", ErrConflict, newName)
			}
			if err != nil {
				return models.MenuItem{}, err
			}
		}
		key = newName
	case MenuFieldType:
		itemType := strings.TrimSpace(value)
		if err := s.validate.Var(itemType, "required,max=20"); err != nil {
			return models.MenuItem{}, fmt.Errorf("%w: type: %v", ErrInvalidInput, err)
		}
		if _, err := s.store.ExecuteMutation(ctx, `UPDATE menu SET type = ? WHERE item_name = ?`, itemType, name); err != nil {
			return models.MenuItem{}, err
		}
	case MenuFieldPrice:
		price, err := ParsePrice(value)
		if err != nil {
			return models.MenuItem{}, err
		}
		if _, err := s.store.ExecuteMutation(ctx, `UPDATE menu SET price = ? WHERE item_name = ?`, price, name); err != nil {
			return models.MenuItem{}, err
		}
	case MenuFieldDescription:
		if err := s.validate.Var(value, "max=400"); err != nil {
			return models.MenuItem{}, fmt.Errorf("%w: description: %v", ErrInvalidInput, err)
		}
		if _, err := s.store.ExecuteMutation(ctx, `UPDATE menu SET description = ? WHERE item_name = ?`, value, name); err != nil {
			return models.MenuItem{}, err
		}
	case MenuFieldImageURL:
		url := strings.TrimSpace(value)
		if err := s.validate.Var(url, "omitempty,url,max=256"); err != nil {
			return models.MenuItem{}, fmt.Errorf("%w: image URL: %v", ErrInvalidInput, err)
		}
		if _, err := s.store.ExecuteMutation(ctx, `UPDATE menu SET image_url = ? WHERE item_name = ?`, url, name); err != nil {
			return models.MenuItem{}, err
		}
	default:
		return models.MenuItem{}, fmt.Errorf("%w: unknown menu field %q", ErrInvalidInput, field)
	}

	s.log.WithField("actor", actor.Login).WithField("item", key).WithField("field", field).Info("Menu item updated.")
	item, ok, err := findMenuItem(ctx, s.store, key)
	if err != nil {
		return models.MenuItem{}, err
	}
	if !ok {
		return models.MenuItem{}, fmt.Errorf("menu item %q: %w", key, ErrNotFound)
	}
	return item, nil
}

// ParsePrice accepts a non-negative decimal with an optional leading '$'.
func ParsePrice(s string) (float64, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "$")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || v < 0 || v >= 1e8 {
		return 0, fmt.Errorf("%w: %q is not a valid amount", ErrInvalidInput, s)
	}
	return roundCents(v), nil
}
