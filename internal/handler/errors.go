package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"catalog/internal/middleware"
	"catalog/pkg/apperror"
	"catalog/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

func init() {
	// Report binding failures under the JSON names clients send.
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return fld.Name
			}
			return name
		})
	}
}

// respondError writes the response envelope for err, choosing the status from
// the apperror sentinel it wraps.
func respondError(c *gin.Context, log *slog.Logger, err error) {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		c.JSON(http.StatusUnprocessableEntity, response.FieldErrors(http.StatusUnprocessableEntity, "The given data was invalid.", apperror.Fields(err)))
	case errors.Is(err, apperror.ErrConflict):
		c.JSON(http.StatusConflict, response.FieldErrors(http.StatusConflict, "The given data conflicts with an existing record.", apperror.Fields(err)))
	case errors.Is(err, apperror.ErrNotFound):
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
	case errors.Is(err, apperror.ErrProtectedResource):
		c.JSON(http.StatusForbidden, response.Error(http.StatusForbidden, err.Error()))
	case errors.Is(err, apperror.ErrForbidden):
		c.JSON(http.StatusForbidden, response.Error(http.StatusForbidden, "This action is unauthorized."))
	case errors.Is(err, apperror.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Unauthenticated."))
	case errors.Is(err, apperror.ErrStorage):
		log.Error("Storage failure", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "File storage is unavailable."))
	default:
		log.Error("Request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Internal server error."))
	}
}

// bindingError turns a body parsing failure into a field-level validation
// error when there is one. Malformed bodies stay a 400.
func bindingError(c *gin.Context, log *slog.Logger, err error) {
	if errors.Is(err, apperror.ErrValidation) {
		respondError(c, log, err)
		return
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload"))
		return
	}

	ve := &apperror.ValidationError{}
	for _, fe := range verrs {
		field := fe.Field()
		switch fe.Tag() {
		case "eqfield":
			field = strings.TrimSuffix(field, "_confirmation")
			ve.Add(field, fmt.Sprintf("The %s field confirmation does not match.", label(field)))
		default:
			ve.Add(field, fieldMessage(fe))
		}
	}
	respondError(c, log, ve)
}

func fieldMessage(fe validator.FieldError) string {
	name := label(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("The %s field is required.", name)
	case "email":
		return fmt.Sprintf("The %s field must be a valid email address.", name)
	case "min":
		return fmt.Sprintf("The %s field must be at least %s characters.", name, fe.Param())
	case "max":
		return fmt.Sprintf("The %s field must not be greater than %s characters.", name, fe.Param())
	}
	return fmt.Sprintf("The %s field is invalid.", name)
}

func label(field string) string {
	return strings.ReplaceAll(field, "_", " ")
}

// actor returns the authenticated caller, or 0 for anonymous requests.
func actor(c *gin.Context) uint {
	id, _ := middleware.CurrentUserID(c)
	return id
}

// pathID parses a numeric path parameter. A non-numeric id cannot name any
// record, so it is reported as not found.
func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, "not found"))
		return 0, false
	}
	return uint(id), true
}
