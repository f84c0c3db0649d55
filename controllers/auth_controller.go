package controllers

import (
	"crypto/subtle"
	"net/http"
	"os"

	"github.com/jkor2/lifeof/utils"

	"github.com/gin-gonic/gin"
)

// Login authenticates the single admin against ADMIN_PASSWORD and issues the
// JWT used for all mutating routes.
func Login(c *gin.Context) {
	var body struct {
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	expected := os.Getenv("ADMIN_PASSWORD")
	if expected == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server misconfigured: ADMIN_PASSWORD not set"})
		return
	}

	if subtle.ConstantTimeCompare([]byte(body.Password), []byte(expected)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid password"})
		return
	}

	token, err := utils.GenerateJWT()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}
