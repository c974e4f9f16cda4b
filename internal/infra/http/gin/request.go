package ginserver

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	gin "github.com/gin-gonic/gin"
)

// parseDay accepts YYYY-MM-DD or RFC 3339 timestamps.
func parseDay(field, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("%w: %s is required", errInvalidRequest, field)
	}
	if t, err := time.Parse(time.DateOnly, value); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be a date (YYYY-MM-DD)", errInvalidRequest, field)
	}
	return t, nil
}

func optionalDay(field, value string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return time.Time{}, nil
	}
	return parseDay(field, value)
}

func parseGuests(value string) (int, error) {
	if strings.TrimSpace(value) == "" {
		return 1, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%w: guests must be an integer", errInvalidRequest)
	}
	return n, nil
}

func bindJSON(c *gin.Context, out any) bool {
	if err := c.ShouldBindJSON(out); err != nil {
		writeError(c, fmt.Errorf("%w: %v", errInvalidRequest, err))
		return false
	}
	return true
}

type stayRequest struct {
	CheckIn  string `json:"check_in"`
	CheckOut string `json:"check_out"`
}

func (r stayRequest) days() (time.Time, time.Time, error) {
	in, err := parseDay("check_in", r.CheckIn)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	out, err := parseDay("check_out", r.CheckOut)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return in, out, nil
}
