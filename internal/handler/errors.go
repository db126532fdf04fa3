package handler

import (
	"net/http"

	"marketplace/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// usecase.Errorの種類をHTTPステータスへ
func statusOf(k usecase.Kind) int {
	switch k {
	case usecase.KindInvalidArgument:
		return http.StatusBadRequest
	case usecase.KindNotFound:
		return http.StatusNotFound
	case usecase.KindConflict:
		return http.StatusConflict
	case usecase.KindUnauthenticated:
		return http.StatusUnauthorized
	case usecase.KindForbidden:
		return http.StatusForbidden
	case usecase.KindStorageUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}

	ue, ok := usecase.AsError(err)
	if !ok {
		c.Logger().Errorj(log.JSON{
			"msg":   "unhandled error",
			"path":  c.Path(),
			"error": err.Error(),
		})
		//500
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}

	status := statusOf(ue.Kind)
	if status >= http.StatusInternalServerError {
		c.Logger().Errorj(log.JSON{
			"msg":   ue.Message,
			"kind":  ue.Kind.String(),
			"path":  c.Path(),
			"error": err.Error(),
		})
	}
	return c.JSON(status, ErrorResponse{Error: ue.Message})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}
