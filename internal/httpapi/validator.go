package httpapi

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/park285/gaia-game-search/pkg/searchdto"
)

var validate = validator.New()

const localBody = "validatedBody"

// validationMiddleware parses and validates request bodies ahead of the
// handlers; GET routes pass through.
func validationMiddleware(c *fiber.Ctx) error {
	if c.Method() != fiber.MethodPost {
		return c.Next()
	}

	var body any
	switch {
	case strings.HasSuffix(c.Path(), "/games"):
		body = &searchdto.Bundle{}
	default:
		return c.Next()
	}

	if err := c.BodyParser(body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(searchdto.ErrorResponse{
			Error:   "invalid request body",
			Code:    searchdto.ErrMalformedInput,
			Details: err.Error(),
		})
	}
	if err := validate.Struct(body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(searchdto.ErrorResponse{
			Error:   "validation failed",
			Code:    searchdto.ErrMalformedInput,
			Details: describe(err),
		})
	}

	c.Locals(localBody, body)
	return c.Next()
}

func describe(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	var details strings.Builder
	for _, e := range verrs {
		if details.Len() > 0 {
			details.WriteString("; ")
		}
		field := e.Namespace()
		switch e.Tag() {
		case "required":
			details.WriteString(fmt.Sprintf("%s is required", field))
		case "min":
			if e.Kind() == reflect.Slice {
				details.WriteString(fmt.Sprintf("%s must have at least %s entries", field, e.Param()))
			} else {
				details.WriteString(fmt.Sprintf("%s must be at least %s", field, e.Param()))
			}
		default:
			details.WriteString(fmt.Sprintf("%s failed %s validation", field, e.Tag()))
		}
	}
	return details.String()
}
