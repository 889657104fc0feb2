package events

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/dineboard/restaurant-dashboard/utils"
)

// Event types pushed to connected dashboard clients.
const (
	EventTableCreate     = "table_create"
	EventTableUpdate     = "table_update"
	EventTableDelete     = "table_delete"
	EventBookingUpdate   = "booking_update"
	EventDashboardUpdate = "dashboard_update"
)

type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Hub holds every connected dashboard client. Any committed change to the
// tables or bookings collections is broadcast to all of them; clients react
// by refetching, so the payload only needs to say what changed.
type Hub struct {
	clients map[*websocket.Conn]struct{}
	mutex   sync.Mutex
}

var hub = Hub{
	clients: make(map[*websocket.Conn]struct{}),
}

// RegisterClient adds a connection to the broadcast set.
func RegisterClient(conn *websocket.Conn) {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()
	hub.clients[conn] = struct{}{}
}

// UnregisterClient removes a connection and closes it.
func UnregisterClient(conn *websocket.Conn) {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()
	delete(hub.clients, conn)
	conn.Close()
}

// BroadcastTableCreate announces a new table.
func BroadcastTableCreate(data interface{}) {
	broadcast(Message{Event: EventTableCreate, Data: data})
}

// BroadcastTableUpdate announces a table change (including derived status).
func BroadcastTableUpdate(data interface{}) {
	broadcast(Message{Event: EventTableUpdate, Data: data})
}

// BroadcastTableDelete announces a removed table.
func BroadcastTableDelete(data interface{}) {
	broadcast(Message{Event: EventTableDelete, Data: data})
}

// BroadcastBookingUpdate announces a booking insert or transition.
func BroadcastBookingUpdate(data interface{}) {
	broadcast(Message{Event: EventBookingUpdate, Data: data})
}

// BroadcastDashboardUpdate pushes fresh stats counters.
func BroadcastDashboardUpdate(data interface{}) {
	broadcast(Message{Event: EventDashboardUpdate, Data: data})
}

func broadcast(msg Message) {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()

	data, err := json.Marshal(msg)
	if err != nil {
		utils.ErrorLogger.Printf("Error marshaling message: %v", err)
		return
	}

	for conn := range hub.clients {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			utils.ErrorLogger.Printf("Error sending message to client: %v", err)
			continue
		}
	}
}
