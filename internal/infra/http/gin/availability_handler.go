package ginserver

import (
	"net/http"

	gin "github.com/gin-gonic/gin"

	"rentme/internal/app/commands"
	"rentme/internal/app/dto"
	availabilityapp "rentme/internal/app/handlers/availability"
	"rentme/internal/app/queries"
)

type AvailabilityHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
}

func (h AvailabilityHandler) Calendar(c *gin.Context) {
	from, err := optionalDay("from", c.Query("from"))
	if err != nil {
		writeError(c, err)
		return
	}
	to, err := optionalDay("to", c.Query("to"))
	if err != nil {
		writeError(c, err)
		return
	}
	query := availabilityapp.GetCalendarQuery{PropertyID: c.Param("id"), From: from, To: to}
	result, err := queries.Ask[availabilityapp.GetCalendarQuery, dto.Calendar](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type blockRequest struct {
	stayRequest
	Reason string `json:"reason"`
}

func (h AvailabilityHandler) Block(c *gin.Context) {
	var req blockRequest
	if !bindJSON(c, &req) {
		return
	}
	in, out, err := req.days()
	if err != nil {
		writeError(c, err)
		return
	}
	cmd := availabilityapp.BlockDatesCommand{PropertyID: c.Param("id"), CheckIn: in, CheckOut: out, Reason: req.Reason}
	result, err := commands.Dispatch[availabilityapp.BlockDatesCommand, dto.BlockResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h AvailabilityHandler) Unblock(c *gin.Context) {
	cmd := availabilityapp.UnblockDatesCommand{PropertyID: c.Param("id"), BlockID: c.Param("blockId")}
	if _, err := commands.Dispatch[availabilityapp.UnblockDatesCommand, struct{}](c.Request.Context(), h.Commands, cmd); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h AvailabilityHandler) SyncFeed(c *gin.Context) {
	cmd := availabilityapp.SyncCalendarFeedCommand{PropertyID: c.Param("id")}
	result, err := commands.Dispatch[availabilityapp.SyncCalendarFeedCommand, dto.FeedSyncResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ AvailabilityHTTP = AvailabilityHandler{}
