package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/suteetoe/cloudbook/internal/apperror"
	"github.com/suteetoe/cloudbook/pkg/logger"
	"go.uber.org/zap"
)

// HTTPErrorHandler renders every error as {success:false, message, error?}.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	body := echo.Map{"success": false}

	var httpErr *echo.HTTPError
	if appErr, ok := apperror.As(err); ok {
		status = appErr.Status()
		body["message"] = appErr.Message
		if appErr.Err != nil {
			body["error"] = appErr.Err.Error()
		}
		for k, v := range appErr.Data {
			body[k] = v
		}
	} else if errors.As(err, &httpErr) {
		status = httpErr.Code
		body["message"] = fmt.Sprint(httpErr.Message)
	} else {
		body["message"] = "Internal server error"
		body["error"] = err.Error()
	}

	if status >= http.StatusInternalServerError {
		logger.FromContext(c).Error("Request failed", zap.Int("status", status), zap.Error(err))
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, body)
	}
	if err != nil {
		logger.FromContext(c).Error("Failed to write error response", zap.Error(err))
	}
}

// Validator adapts go-playground/validator to echo.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	return &Validator{validate: validator.New()}
}

func (v *Validator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}
