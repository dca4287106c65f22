package handlers

// Responses served over plain HTTP next to the websocket endpoint.

// RosterResponse lists connected displays.
type RosterResponse struct {
	Count   int      `json:"count"`   // Number of live connections
	Clients []string `json:"clients"` // Assigned names in join order
}

// HealthResponse answers liveness probes.
type HealthResponse struct {
	Status string `json:"status"` // "ok"
}
