package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidCredentials = errors.New("no active account found with the given credentials")
	ErrTokenInvalid       = errors.New("token is invalid or expired")
	ErrUserNotFound       = errors.New("user not found")
)

// PermissionError 403，Detail 原样返回给客户端
type PermissionError struct {
	Detail string
}

func (e *PermissionError) Error() string {
	return e.Detail
}

var (
	ErrPermissionDenied = &PermissionError{Detail: "You do not have permission to perform this action."}
	ErrNotSubscriber    = &PermissionError{Detail: "You cannot delete someone else's subscription."}
)

// NonFieldErrors 跨字段校验错误使用的 key
const NonFieldErrors = "non_field_errors"

// ValidationError 400，按字段组织的错误信息
type ValidationError struct {
	Fields map[string][]string
}

func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string][]string{field: {msg}}}
}

func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = map[string][]string{}
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, strings.Join(e.Fields[k], "; ")))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

func invalidPK(id uint64) string {
	return fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", id)
}
