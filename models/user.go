package models

import (
	"fmt"
	"strings"
)

// UserRole defines allowed roles in the system
type UserRole string

const (
	RoleCustomer UserRole = "Customer"
	RoleEmployee UserRole = "Employee"
	RoleManager  UserRole = "Manager"
)

// ParseRole accepts a role name in any letter case
func ParseRole(s string) (UserRole, error) {
	for _, r := range []UserRole{RoleCustomer, RoleEmployee, RoleManager} {
		if strings.EqualFold(strings.TrimSpace(s), string(r)) {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// IsStaff reports whether the role works behind the counter.
func (r UserRole) IsStaff() bool {
	return r == RoleEmployee || r == RoleManager
}

type User struct {
	Login        string   `gorm:"column:login;primaryKey;size:50"`
	PasswordHash string   `gorm:"column:password_hash;not null"`
	PhoneNum     string   `gorm:"column:phone_num;size:16"`
	FavItems     string   `gorm:"column:fav_items;type:text"`
	Role         UserRole `gorm:"column:type;size:8;not null;default:'Customer'"`
}

func (User) TableName() string { return "users" }

// Actor is the authenticated identity a session acts as. Role is the value
// seen at login and is only used for display; privileged operations re-read
// the role from the store.
type Actor struct {
	Login string
	Role  UserRole
}

func (u User) Actor() Actor {
	return Actor{Login: u.Login, Role: u.Role}
}
