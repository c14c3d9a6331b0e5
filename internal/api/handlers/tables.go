package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/billiards/internal/game"
)

// ListTables describes every table variant.
func ListTables(catalog *game.Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"source": catalog.Source(),
			"tables": catalog.Describe(),
		})
	}
}

// GetTable describes one table variant.
func GetTable(catalog *game.Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		variant, err := game.ParseVariant(c.Param("variant"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		for _, info := range catalog.Describe() {
			if info.Variant == variant {
				c.JSON(http.StatusOK, info)
				return
			}
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "table not found"})
	}
}
