package dto

import (
	"github.com/Ibraz94/fleetbold-expenses/internal/apperr"

	"github.com/go-playground/validator/v10"
)

// Result is the uniform response envelope: {ok, data} on success,
// {ok:false, error_kind, message} on failure.
type Result struct {
	OK        bool   `json:"ok"`
	Data      any    `json:"data,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`
	Message   string `json:"message,omitempty"`
}

func OK(data any) Result {
	return Result{OK: true, Data: data}
}

func Fail(kind apperr.Kind, message string) Result {
	return Result{OK: false, ErrorKind: string(kind), Message: message}
}

// Pagination describes a total-count page of a list response.
type Pagination struct {
	Total   int `json:"total"`
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
}

var validate = validator.New()

// Validate checks struct tags on a request DTO.
func Validate(s any) error {
	return validate.Struct(s)
}
