package aggregator

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// NoProjection is shown while the projection is undefined.
const NoProjection = "--"

// Projection estimates the total run time for target units from the observed rate.
// The result is floored to whole seconds and rendered like "1 h 2 min 3 s";
// the hours part is omitted when zero.
func Projection(current int, elapsed time.Duration, target int) string {
	if current <= 0 || elapsed <= 0 || target <= 0 {
		return NoProjection
	}
	perUnit := float64(elapsed.Milliseconds()) / float64(current)
	total := int64(math.Floor(perUnit * float64(target) / 1000))

	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d h %d min %d s", h, m, s)
	}
	return fmt.Sprintf("%d min %d s", m, s)
}

// ParseTarget converts a console-supplied target into a positive unit count.
func ParseTarget(raw any) (int, error) {
	var n int
	switch v := raw.(type) {
	case int:
		n = v
	case int64:
		n = int(v)
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("%w: %v", ErrInvalidTarget, v)
		}
		n = int(v)
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidTarget, v)
		}
		n = parsed
	default:
		return 0, fmt.Errorf("%w: %v", ErrInvalidTarget, raw)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidTarget, n)
	}
	return n, nil
}
