// Package random генерирует криптографически случайные URL-safe строки
// для токенов подтверждения почты и сброса пароля.
package random

import (
	"crypto/rand"
	"fmt"
)

// DefaultTokenLength — длина токена по умолчанию.
const DefaultTokenLength = 32

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

// Token возвращает строку длины n из URL-safe алфавита.
// Алфавит содержит ровно 64 символа, поэтому маска 6 бит не даёт смещения.
func Token(n int) (string, error) {
	const op = "random.Token"
	if n <= 0 {
		return "", fmt.Errorf("%s: invalid length %d", op, n)
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	for i, b := range buf {
		buf[i] = alphabet[b&63]
	}
	return string(buf), nil
}
