package controllers

import (
	"net/http"

	"github.com/jkor2/lifeof/services"

	"github.com/gin-gonic/gin"
)

type ChartsController struct {
	Svc *services.ChartsService
}

func NewChartsController(svc *services.ChartsService) *ChartsController {
	return &ChartsController{Svc: svc}
}

func (cc *ChartsController) Overview(c *gin.Context) {
	out, err := cc.Svc.Overview(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
