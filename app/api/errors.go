package api

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"ragserver/types"
)

func ErrorHandler(c *fiber.Ctx, err error) error {
	if apiError, ok := err.(Error); ok {
		return c.Status(apiError.Code).JSON(apiError)
	}
	if valError, ok := err.(ValidationError); ok {
		return c.Status(valError.Status).JSON(valError)
	}

	apiError := fromDomainError(err)
	return c.Status(apiError.Code).JSON(apiError)
}

// fromDomainError maps the domain taxonomy onto HTTP statuses: ingestion
// input problems are the client's fault, upstream service failures are
// gateway errors.
func fromDomainError(err error) Error {
	var extractionErr *types.ExtractionError
	var dimensionErr *types.DimensionMismatchError
	var embeddingErr *types.EmbeddingServiceError
	var generationErr *types.GenerationError

	switch {
	case errors.As(err, &extractionErr):
		return NewError(fiber.StatusUnprocessableEntity, extractionErr.Error())
	case errors.As(err, &dimensionErr):
		return NewError(fiber.StatusUnprocessableEntity, dimensionErr.Error())
	case errors.As(err, &embeddingErr):
		return NewError(fiber.StatusBadGateway, embeddingErr.Error())
	case errors.As(err, &generationErr):
		return NewError(fiber.StatusServiceUnavailable, generationErr.Error())
	}

	if fiberErr, ok := err.(*fiber.Error); ok {
		return NewError(fiberErr.Code, fiberErr.Message)
	}
	return NewError(fiber.StatusInternalServerError, err.Error())
}

type Error struct {
	Code    int    `json:"code"`
	Message string `json:"error"`
}

// Error implements the error interface
func (e Error) Error() string {
	return e.Message
}

func NewError(code int, err string) Error {
	return Error{
		Code:    code,
		Message: err,
	}
}

type ValidationError struct {
	Status int               `json:"status"`
	Errors map[string]string `json:"errors"`
}

func (e ValidationError) Error() string {
	return "validation failed"
}

func NewValidationError(errors map[string]string) ValidationError {
	return ValidationError{
		Status: fiber.StatusUnprocessableEntity,
		Errors: errors,
	}
}

func ErrBadRequest() Error {
	return Error{
		Code:    fiber.StatusBadRequest,
		Message: "invalid JSON request",
	}
}

func ErrInvalidID() Error {
	return Error{
		Code:    fiber.StatusBadRequest,
		Message: "invalid id given",
	}
}

func ErrNotFound[T any](arg T, resource string) Error {
	return Error{
		Code:    fiber.StatusNotFound,
		Message: fmt.Sprintf("%s with %v not found", resource, arg),
	}
}
