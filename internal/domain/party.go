package domain

import (
	"strings"
	"time"
)

// Customer — покупатель, владелец заказов.
type Customer struct {
	ID        string
	Name      string
	City      string
	CreatedAt time.Time
}

// Validate проверяет обязательные поля покупателя.
func (c *Customer) Validate() []error {
	var errs []error
	if strings.TrimSpace(c.Name) == "" {
		errs = append(errs, ErrCustomerNameRequired)
	}
	return errs
}

// UserRole перечисляет роли сотрудников.
type UserRole string

const (
	UserRoleAdmin UserRole = "admin"
	UserRoleStaff UserRole = "staff"
)

// Valid проверяет, что роль относится к поддерживаемым значениям.
func (r UserRole) Valid() bool {
	return r == UserRoleAdmin || r == UserRoleStaff
}

// User — сотрудник; выступает актором складских операций.
// Выдача токенов и хранение паролей — вне зоны ответственности сервиса.
type User struct {
	ID        string
	Username  string
	Role      UserRole
	CreatedAt time.Time
}

// Validate проверяет обязательные поля пользователя.
func (u *User) Validate() []error {
	var errs []error
	if strings.TrimSpace(u.Username) == "" {
		errs = append(errs, ErrUsernameRequired)
	}
	if !u.Role.Valid() {
		errs = append(errs, ErrUserRoleInvalid)
	}
	return errs
}
