package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/quillpost/internal/service"
	"go.uber.org/zap"
)

// renderError 将业务错误映射为对应的状态码与错误页。
func (a *API) renderError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "Something went wrong. Please try again later."

	switch {
	case errors.Is(err, service.ErrAuthorization):
		status = http.StatusForbidden
		message = "You are not allowed to do that."
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
		message = "The page you are looking for does not exist."
	default:
		a.log.Error("request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	}
	_ = c.Error(err)

	a.renderHTML(c, status, "error.html", gin.H{
		"title":   http.StatusText(status),
		"status":  status,
		"message": message,
	})
}

func validationFields(err error) map[string]string {
	var validationErr *service.ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Fields
	}
	return nil
}

func parsePositiveInt(value string, fallback int) int {
	num, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || num <= 0 {
		return fallback
	}
	return num
}

// parseOptionalUint 解析可选的正整数表单字段，空值或非法值返回 nil。
func parseOptionalUint(value string) *uint {
	parsed, err := strconv.ParseUint(strings.TrimSpace(value), 10, 32)
	if err != nil || parsed == 0 {
		return nil
	}
	id := uint(parsed)
	return &id
}
