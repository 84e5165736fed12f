package utils

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/timerenting/internal/models"
)

// Error writes err as a JSON error body. Typed domain errors keep their
// status and message; anything else is logged and reported as a 500.
func Error(c echo.Context, err error) error {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		if appErr.Code == models.CodePersistence {
			slog.Error("persistence failure", "path", c.Path(), "error", err)
		}
		return c.JSON(appErr.Status(), echo.Map{"error": appErr.Message, "code": appErr.Code})
	}
	slog.Error("unhandled error", "path", c.Path(), "error", err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

// BadRequest writes a 400 with message.
func BadRequest(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": message})
}
