package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"line_supervisor/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	errFromInvalid = "invalid 'from' time; use RFC3339 or YYYY-MM-DD"
	errToInvalid   = "invalid 'to' time; use RFC3339 or YYYY-MM-DD"

	layoutDateTime = "2006-01-02 15:04:05"
	layoutDate     = "2006-01-02"
)

// isDateOnly reports whether the query string represents a date without time component.
func isDateOnly(s string) bool {
	return !strings.ContainsAny(s, "T ")
}

// @Summary      Command journal
// @Description  Filter by date (RFC3339, 'YYYY-MM-DD HH:MM:SS', or 'YYYY-MM-DD'). A date-only 'to' is inclusive of the whole day.
// @Tags         journal
// @Produce      json
// @Param        from  query     string  false  "Start of range"  example(2025-08-01)
// @Param        to    query     string  false  "End of range"    example(2025-08-31)
// @Param        type  query     string  false  "Event type"  Enums(START,STOP,RESTART,RESET_COUNTER,ALLOCATE,DEALLOCATE,ASSOCIATE,COMMAND)
// @Success      200   {object}  map[string]interface{}  "count, events"
// @Failure      400   {object}  errorResponse
// @Router       /api/v1/journal [get]
// @Security     BearerAuth
func (h *Handler) getJournal(c *gin.Context) {
	var (
		from, to time.Time
		err      error
	)
	if qs := c.Query("from"); qs != "" {
		if from, err = parseQueryTime(qs); err != nil {
			badRequest(c, errFromInvalid)
			return
		}
	}
	if qs := c.Query("to"); qs != "" {
		if to, err = parseQueryTime(qs); err != nil {
			badRequest(c, errToInvalid)
			return
		}
		if isDateOnly(qs) {
			to = to.Add(24*time.Hour - time.Nanosecond).UTC()
		}
	}
	events, err := h.services.ListJournal(c.Request.Context(), service.LogFilter{
		From: from,
		To:   to,
		Type: c.Query("type"),
	})
	if err != nil {
		h.respondError(c, "journal_list_failed", err, "from", from, "to", to)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":  len(events),
		"events": events,
	})
}

func parseQueryTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, layoutDateTime, layoutDate} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf(
		"invalid time format %q, expected one of: "+
			"RFC3339 (e.g. 2025-08-27T15:04:05Z), "+
			"'YYYY-MM-DD HH:MM:SS', "+
			"'YYYY-MM-DD'",
		s,
	)
}
