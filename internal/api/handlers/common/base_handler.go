package common

import (
	"github.com/gin-gonic/gin"

	"dedupserver/server/middleware"
)

// BaseHandlerInterface интерфейс для базового обработчика
// Используется для разрыва циклических зависимостей
type BaseHandlerInterface interface {
	WriteJSONResponse(c *gin.Context, data any, statusCode int)
	WriteJSONError(c *gin.Context, message string, statusCode int)
	HandleHTTPError(c *gin.Context, err error)
}

// BaseHandlerImpl реализация BaseHandlerInterface через middleware
type BaseHandlerImpl struct{}

// NewBaseHandlerImpl создает новую реализацию BaseHandlerInterface
func NewBaseHandlerImpl() *BaseHandlerImpl {
	return &BaseHandlerImpl{}
}

func (h *BaseHandlerImpl) WriteJSONResponse(c *gin.Context, data any, statusCode int) {
	middleware.WriteJSONResponse(c, statusCode, data)
}

func (h *BaseHandlerImpl) WriteJSONError(c *gin.Context, message string, statusCode int) {
	middleware.WriteJSONError(c, message, statusCode)
}

func (h *BaseHandlerImpl) HandleHTTPError(c *gin.Context, err error) {
	middleware.HandleHTTPError(c, err)
}
