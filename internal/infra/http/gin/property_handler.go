package ginserver

import (
	"net/http"

	gin "github.com/gin-gonic/gin"

	"rentme/internal/app/commands"
	"rentme/internal/app/dto"
	propertyapp "rentme/internal/app/handlers/properties"
	"rentme/internal/app/queries"
)

type PropertyHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
}

func (h PropertyHandler) Create(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	var cmd propertyapp.CreatePropertyCommand
	if !bindJSON(c, &cmd) {
		return
	}
	cmd.HostID = p.ID
	result, err := commands.Dispatch[propertyapp.CreatePropertyCommand, dto.Property](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h PropertyHandler) Get(c *gin.Context) {
	query := propertyapp.GetPropertyQuery{PropertyID: c.Param("id")}
	result, err := queries.Ask[propertyapp.GetPropertyQuery, dto.Property](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h PropertyHandler) UpdatePricing(c *gin.Context) {
	var cmd propertyapp.UpdatePropertyPricingCommand
	if !bindJSON(c, &cmd) {
		return
	}
	cmd.PropertyID = c.Param("id")
	result, err := commands.Dispatch[propertyapp.UpdatePropertyPricingCommand, dto.Property](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ PropertyHTTP = PropertyHandler{}
