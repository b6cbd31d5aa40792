package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/roomrelay/internal/core"
	"github.com/vovakirdan/roomrelay/internal/proto"
)

// RoomHandlers serves read-only snapshots of the hub's rooms.
type RoomHandlers struct {
	hub *core.Hub
	log *zerolog.Logger
}

// NewRoomHandlers creates a new room handlers instance.
func NewRoomHandlers(hub *core.Hub, logger *zerolog.Logger) *RoomHandlers {
	return &RoomHandlers{hub: hub, log: logger}
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// RoomsResponse lists active rooms.
type RoomsResponse struct {
	Rooms       []core.RoomStat `json:"rooms"`
	Clients     int             `json:"clients"`
	Connections int             `json:"connections"`
}

// RoomResponse describes one room and its members.
type RoomResponse struct {
	Name    string          `json:"name"`
	Clients []proto.Profile `json:"clients"`
}

// ListRooms returns every active room with its member count.
// GET /api/rooms
func (h *RoomHandlers) ListRooms(c *gin.Context) {
	c.JSON(http.StatusOK, RoomsResponse{
		Rooms:       h.hub.RoomStats(),
		Clients:     h.hub.ClientCount(),
		Connections: h.hub.ConnectionCount(),
	})
}

// GetRoom returns the members of a single room.
// GET /api/rooms/:name
func (h *RoomHandlers) GetRoom(c *gin.Context) {
	name := c.Param("name")
	members := h.hub.RoomMembers(name)
	if len(members) == 0 {
		h.log.Debug().Str("room", name).Msg("room not found")
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "room not found"})
		return
	}
	c.JSON(http.StatusOK, RoomResponse{Name: name, Clients: profilesToProto(members)})
}
