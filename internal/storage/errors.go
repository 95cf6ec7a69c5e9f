// Package storage объявляет ошибки хранилища, общие для всех его реализаций.
package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound — запись не найдена.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists — нарушено ограничение уникальности.
	ErrAlreadyExists = errors.New("already exists")
	// ErrUsernameTaken — имя пользователя уже занято.
	ErrUsernameTaken = fmt.Errorf("username %w", ErrAlreadyExists)
	// ErrEmailTaken — почта уже зарегистрирована.
	ErrEmailTaken = fmt.Errorf("email %w", ErrAlreadyExists)
)
