package domain

import (
	"errors"
	"fmt"
)

// Общие доменные ошибки
var (
	ErrNotFound   = notFoundError("not found")
	ErrValidation = validationError("invalid data")
)

// Причины отказа операций маркетплейса. Сравнивать через errors.Is.
var (
	ErrNotOwner            = marketError("NotOwner")
	ErrNotApproved         = marketError("NotApproved")
	ErrAlreadyListed       = marketError("AlreadyListed")
	ErrNotListed           = marketError("NotListed")
	ErrNotSeller           = marketError("NotSeller")
	ErrInsufficientPayment = marketError("InsufficientPayment")
	ErrInvalidPrice        = marketError("InvalidPrice")
	ErrCollaboratorFailure = marketError("CollaboratorFailure")
	ErrReentrant           = marketError("Reentrant")
)

type notFoundError string

func (e notFoundError) Error() string { return string(e) }

type validationError string

func (e validationError) Error() string { return string(e) }

type marketError string

func (e marketError) Error() string { return string(e) }

// Code возвращает стабильное имя причины.
func (e marketError) Code() string { return string(e) }

// ListingError: отказ операции над конкретным активом.
// Err: одна из причин выше, Cause: исходная ошибка внешнего участника (реестра или леджера).
type ListingError struct {
	Op    string
	Key   AssetKey
	Err   error
	Cause error
}

func (e *ListingError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s %s: %v: %v", e.Op, e.Key, e.Err, e.Cause)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Key, e.Err)
}

// Unwrap отдаёт и причину, и исходную ошибку, чтобы errors.Is видел обе.
func (e *ListingError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Err, e.Cause}
	}
	return []error{e.Err}
}

// Code возвращает имя причины отказа либо пустую строку для чужих ошибок.
func Code(err error) string {
	var me marketError
	if errors.As(err, &me) {
		return me.Code()
	}
	return ""
}
