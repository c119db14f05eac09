package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Health returns a handler reporting process and database liveness.
func Health(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		dbStatus := "ok"
		code := http.StatusOK

		if db == nil {
			dbStatus = "unconfigured"
			code = http.StatusServiceUnavailable
		} else if sqlDB, err := db.DB(); err != nil {
			dbStatus = "error"
			code = http.StatusServiceUnavailable
		} else if err := sqlDB.PingContext(requestContext(c)); err != nil {
			dbStatus = "error"
			code = http.StatusServiceUnavailable
		}

		c.JSON(code, gin.H{
			"status":   http.StatusText(code),
			"database": dbStatus,
		})
	}
}
