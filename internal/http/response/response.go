// Package response содержит вспомогательные типы и функции для формирования
// унифицированных JSON‑ответов HTTP‑обработчиков: успешных ответов, ошибок,
// отказов в доступе и ошибок валидации.
package response

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/silver-circles/internal/entitlement"
	"github.com/magabrotheeeer/silver-circles/internal/storage"
)

// Response описывает стандартную структуру JSON‑ответа сервера.
// Поле Status — статус запроса ("OK" или "Error").
// Поле Error — текст ошибки (при неуспехе).
// Поле Reason — машиночитаемый код отказа в доступе.
// Поле Fields — ошибки валидации по полям.
// Поле Data — данные ответа (при успехе).
type Response struct {
	Status string            `json:"status"`
	Error  string            `json:"error,omitempty"`
	Reason string            `json:"reason,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
	Data   any               `json:"data,omitempty"`
}

// ErrorResponse — структура ошибки для Swagger-документации.
type ErrorResponse struct {
	Status string `json:"status" example:"Error"`
	Error  string `json:"error" example:"invalid request body"`
	Reason string `json:"reason,omitempty" example:"premium_required"`
}

const (
	// StatusOK — значение статуса для успешного ответа.
	StatusOK = "OK"
	// StatusError — значение статуса для ответа с ошибкой.
	StatusError = "Error"
)

// OKWithData возвращает успешный Response с переданными данными.
func OKWithData(data any) Response {
	return Response{
		Status: StatusOK,
		Data:   data,
	}
}

// Error возвращает Response с ошибкой и переданным сообщением.
func Error(msg string) Response {
	return Response{
		Status: StatusError,
		Error:  msg,
	}
}

// WriteError записывает ошибку с HTTP-статусом.
func WriteError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, Error(msg))
}

// Internal записывает обобщенную ошибку 500 без подробностей.
func Internal(w http.ResponseWriter, r *http.Request) {
	WriteError(w, r, http.StatusInternalServerError, "internal error")
}

// DeniedStatus сопоставляет решение движка доступа с HTTP-статусом.
func DeniedStatus(d entitlement.Decision) int {
	switch d {
	case entitlement.DenyNotFound:
		return http.StatusNotFound
	case entitlement.DenyAuthRequired:
		return http.StatusUnauthorized
	default:
		return http.StatusForbidden
	}
}

// Denied записывает отказ в доступе с кодом причины.
func Denied(w http.ResponseWriter, r *http.Request, d entitlement.Decision) {
	render.Status(r, DeniedStatus(d))
	render.JSON(w, r, Response{
		Status: StatusError,
		Error:  d.Message(),
		Reason: d.Reason(),
	})
}

// ValidationError формирует Response с ошибками валидации по полям.
func ValidationError(errs validator.ValidationErrors) Response {
	fields := make(map[string]string, len(errs))
	for _, err := range errs {
		var msg string
		switch err.ActualTag() {
		case "required":
			msg = fmt.Sprintf("field %s is a required field", err.Field())
		case "email":
			msg = fmt.Sprintf("field %s must be a valid email address", err.Field())
		case "min":
			msg = fmt.Sprintf("field %s must be at least %s characters long", err.Field(), err.Param())
		case "max":
			msg = fmt.Sprintf("field %s must be at most %s characters long", err.Field(), err.Param())
		case "alphanum":
			msg = fmt.Sprintf("field %s can contain only numbers and letters", err.Field())
		case "url":
			msg = fmt.Sprintf("field %s must be a valid url", err.Field())
		case "gtfield":
			msg = fmt.Sprintf("field %s must be after %s", err.Field(), err.Param())
		default:
			msg = fmt.Sprintf("field %s is not valid", err.Field())
		}
		fields[err.Field()] = msg
	}
	return Response{
		Status: StatusError,
		Error:  "validation failed",
		Fields: fields,
	}
}

// Invalid записывает ошибку валидации со статусом 422.
func Invalid(w http.ResponseWriter, r *http.Request, err error) {
	render.Status(r, http.StatusUnprocessableEntity)
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		render.JSON(w, r, Error(err.Error()))
		return
	}
	render.JSON(w, r, ValidationError(verrs))
}

// ServiceError записывает ответ для ошибки сервиса. Отказ движка доступа
// отдается с кодом причины, отсутствие записи дает 404, остальное 500.
// Сбой хранилища никогда не превращается в отказ в доступе.
func ServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if d, ok := entitlement.AsDenied(err); ok {
		Denied(w, r, d)
		return
	}
	if errors.Is(err, storage.ErrNotFound) {
		WriteError(w, r, http.StatusNotFound, "not found")
		return
	}
	Internal(w, r)
}
