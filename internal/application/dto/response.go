// Package dto provides data transfer objects for the application layer.
package dto

import (
	"github.com/gin-gonic/gin"

	"github.com/turtacn/riskserve/pkg/errors"
)

// SendSuccess writes data as the JSON body.
func SendSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, data)
}

// SendError writes err as an errors.ErrorResponse with the HTTP status carried by
// the error, 500 for anything that is not an AppError.
// SendError 根据错误携带的状态码写入错误响应。
func SendError(c *gin.Context, err error) {
	c.JSON(errors.HTTPStatusOf(err), errors.ToErrorResponse(err))
}

// AbortWithError writes the error response and stops the handler chain.
func AbortWithError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(errors.HTTPStatusOf(err), errors.ToErrorResponse(err))
}

//Personal.AI order the ending
