package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/finpay/ledger/internal/apperr"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorHandler renders every error as {"error":{"code","message"}}. Domain
// errors keep their code and message; storage and unknown faults are
// logged with their cause and reported without it.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status, body := render(err)

		if status >= http.StatusInternalServerError {
			requestID, _ := c.Locals(requestIDHeader).(string)
			logger.Error("request failed",
				slog.String("method", c.Method()),
				slog.String("path", c.Path()),
				slog.String("request_id", requestID),
				slog.String("code", body.Error.Code),
				slog.Any("error", err),
			)
		}
		return c.Status(status).JSON(body)
	}
}

func render(err error) (int, errorBody) {
	if apperr.Known(err) {
		kind := apperr.KindOf(err)
		return apperr.HTTPStatus(kind), errorBody{Error: errorDetail{Code: string(kind), Message: apperr.PublicMessage(err)}}
	}

	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code, errorBody{Error: errorDetail{Code: codeForStatus(fe.Code), Message: fe.Message}}
	}

	return http.StatusInternalServerError, errorBody{Error: errorDetail{
		Code:    string(apperr.KindInternal),
		Message: apperr.PublicMessage(err),
	}}
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return string(apperr.KindValidation)
	case http.StatusUnauthorized:
		return string(apperr.KindUnauthorized)
	case http.StatusNotFound:
		return string(apperr.KindNotFound)
	case http.StatusConflict:
		return string(apperr.KindConflict)
	}
	if status >= http.StatusInternalServerError {
		return string(apperr.KindInternal)
	}
	return strings.ToUpper(strings.ReplaceAll(http.StatusText(status), " ", "_"))
}
