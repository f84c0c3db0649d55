package controllers

import (
	"net/http"

	"github.com/jkor2/lifeof/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AttributeDefinitionController struct {
	Svc *services.AttributeDefinitionService
}

func NewAttributeDefinitionController(svc *services.AttributeDefinitionService) *AttributeDefinitionController {
	return &AttributeDefinitionController{Svc: svc}
}

func (ac *AttributeDefinitionController) List(c *gin.Context) {
	defs, err := ac.Svc.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, defs)
}

func (ac *AttributeDefinitionController) Create(c *gin.Context) {
	var in services.AttributeDefinitionInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	def, err := ac.Svc.Create(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, def)
}

func (ac *AttributeDefinitionController) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid attribute id"})
		return
	}

	var in services.AttributeDefinitionInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	def, err := ac.Svc.Update(c.Request.Context(), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, def)
}

func (ac *AttributeDefinitionController) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid attribute id"})
		return
	}

	if err := ac.Svc.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}
