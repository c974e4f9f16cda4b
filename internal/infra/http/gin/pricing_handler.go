package ginserver

import (
	"net/http"

	gin "github.com/gin-gonic/gin"

	"rentme/internal/app/commands"
	"rentme/internal/app/dto"
	pricingapp "rentme/internal/app/handlers/pricing"
	"rentme/internal/app/queries"
)

type PricingHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
}

// Quote prices a stay without reserving it.
func (h PricingHandler) Quote(c *gin.Context) {
	in, out, err := stayRequest{CheckIn: c.Query("check_in"), CheckOut: c.Query("check_out")}.days()
	if err != nil {
		writeError(c, err)
		return
	}
	guests, err := parseGuests(c.Query("guests"))
	if err != nil {
		writeError(c, err)
		return
	}
	query := pricingapp.GetQuoteQuery{PropertyID: c.Param("id"), CheckIn: in, CheckOut: out, Guests: guests}
	result, err := queries.Ask[pricingapp.GetQuoteQuery, dto.Quote](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h PricingHandler) ListRules(c *gin.Context) {
	query := pricingapp.ListSeasonalRulesQuery{PropertyID: c.Param("id")}
	result, err := queries.Ask[pricingapp.ListSeasonalRulesQuery, dto.SeasonalRuleCollection](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type addRuleRequest struct {
	Name       string `json:"name"`
	Start      string `json:"start"`
	End        string `json:"end"`
	Multiplier string `json:"multiplier"`
}

func (h PricingHandler) AddRule(c *gin.Context) {
	var req addRuleRequest
	if !bindJSON(c, &req) {
		return
	}
	start, err := parseDay("start", req.Start)
	if err != nil {
		writeError(c, err)
		return
	}
	end, err := parseDay("end", req.End)
	if err != nil {
		writeError(c, err)
		return
	}
	cmd := pricingapp.AddSeasonalRuleCommand{
		PropertyID: c.Param("id"),
		Name:       req.Name,
		Start:      start,
		End:        end,
		Multiplier: req.Multiplier,
	}
	result, err := commands.Dispatch[pricingapp.AddSeasonalRuleCommand, dto.SeasonalRule](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h PricingHandler) RemoveRule(c *gin.Context) {
	cmd := pricingapp.RemoveSeasonalRuleCommand{PropertyID: c.Param("id"), RuleID: c.Param("ruleId")}
	if _, err := commands.Dispatch[pricingapp.RemoveSeasonalRuleCommand, struct{}](c.Request.Context(), h.Commands, cmd); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

var _ PricingHTTP = PricingHandler{}
