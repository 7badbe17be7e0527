package pgerr

import (
	"errors"

	"github.com/lib/pq"
)

// Коды ошибок PostgreSQL, которые обрабатываются явно
const (
	CodeExclusionViolation   = pq.ErrorCode("23P01")
	CodeUniqueViolation      = pq.ErrorCode("23505")
	CodeCheckViolation       = pq.ErrorCode("23514")
	CodeSerializationFailure = pq.ErrorCode("40001")
	CodeDeadlockDetected     = pq.ErrorCode("40P01")
)

// Code возвращает код ошибки PostgreSQL или пустую строку
func Code(err error) pq.ErrorCode {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code
	}
	return ""
}

// IsExclusionViolation срабатывает на EXCLUDE constraint (пересечение интервалов)
func IsExclusionViolation(err error) bool {
	return Code(err) == CodeExclusionViolation
}

// IsCheckViolation срабатывает на нарушение CHECK constraint
func IsCheckViolation(err error) bool {
	return Code(err) == CodeCheckViolation
}
