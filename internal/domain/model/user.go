// Пакет model — доменные модели File Portal.
package model

import "time"

// User — учётная запись портала.
// Хранится в таблице users.
type User struct {
	// ID — UUID пользователя
	ID string
	// Username — уникальное имя для входа
	Username string
	// Email — адрес электронной почты (опционально)
	Email *string
	// PasswordHash — bcrypt-хэш пароля
	PasswordHash string
	// Role — super, admin, user, country
	Role string
	// Countries — страновой scope (только для country)
	Countries []string
	// Active — false для деактивированных учётных записей
	Active bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserFilters — фильтры списка пользователей.
type UserFilters struct {
	Role   *string
	Active *bool
}

// UserUpdate — изменяемые super-ом поля. nil — без изменений.
type UserUpdate struct {
	Role      *string
	Countries *[]string
	Active    *bool
	Email     *string
}
