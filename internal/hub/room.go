package hub

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"line_supervisor/internal/models"
)

const (
	globalRoomName = "global"
	stationPrefix  = "posto:"
)

// Room identifies a broadcast group: one per station plus the global room.
type Room struct {
	station models.StationID
	global  bool
}

// GlobalRoom receives line-wide updates. Every client is a member.
var GlobalRoom = Room{global: true}

// StationRoom returns the room of one station.
func StationRoom(id models.StationID) Room { return Room{station: id} }

func (r Room) IsGlobal() bool { return r.global }

// Station returns the station of a station room.
func (r Room) Station() (models.StationID, bool) {
	if r.global {
		return 0, false
	}
	return r.station, true
}

func (r Room) String() string {
	if r.global {
		return globalRoomName
	}
	return stationPrefix + strconv.Itoa(int(r.station))
}

// Kind is used as a metric label.
func (r Room) Kind() string {
	if r.global {
		return "global"
	}
	return "station"
}

// ParseRoom accepts "global", "posto:<n>", "posto_<n>" or a bare index.
func ParseRoom(raw string) (Room, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == globalRoomName {
		return GlobalRoom, nil
	}
	s = strings.TrimPrefix(s, stationPrefix)
	s = strings.TrimPrefix(s, "posto_")
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return Room{}, fmt.Errorf("%w: %q", ErrUnknownRoom, raw)
	}
	return StationRoom(models.StationID(n)), nil
}

func (r Room) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// UnmarshalJSON accepts a room name or a numeric station index.
func (r *Room) UnmarshalJSON(b []byte) error {
	var n int
	if err := json.Unmarshal(b, &n); err == nil {
		if n < 0 {
			return fmt.Errorf("%w: %d", ErrUnknownRoom, n)
		}
		*r = StationRoom(models.StationID(n))
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("room must be a name or a station index: %w", err)
	}
	parsed, err := ParseRoom(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
