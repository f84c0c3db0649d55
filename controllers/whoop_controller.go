package controllers

import (
	"net/http"

	"github.com/jkor2/lifeof/services"

	"github.com/gin-gonic/gin"
)

type WhoopController struct {
	Auth   *services.WhoopAuthService
	Import *services.WhoopImportService
}

func NewWhoopController(auth *services.WhoopAuthService, imp *services.WhoopImportService) *WhoopController {
	return &WhoopController{Auth: auth, Import: imp}
}

// AuthRedirect returns the WHOOP authorization URL the frontend opens.
func (wc *WhoopController) AuthRedirect(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"auth_url": wc.Auth.AuthURL()})
}

// Callback exchanges the authorization code for the first token bundle.
func (wc *WhoopController) Callback(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing authorization code"})
		return
	}

	tok, err := wc.Auth.Exchange(c.Request.Context(), code)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":           "WHOOP connected successfully",
		"has_refresh_token": tok.RefreshToken != "",
	})
}

func (wc *WhoopController) Status(c *gin.Context) {
	c.JSON(http.StatusOK, wc.Auth.Status(c.Request.Context()))
}

// SyncLatest pulls the single newest record per entity type.
func (wc *WhoopController) SyncLatest(c *gin.Context) {
	results, err := wc.Import.SyncLatest(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "WHOOP latest data synced",
		"details": results,
	})
}

// SyncFull walks the whole WHOOP history and upserts it in chunks. Partial
// failures come back in the report instead of failing the request.
func (wc *WhoopController) SyncFull(c *gin.Context) {
	report, err := wc.Import.FullSync(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
