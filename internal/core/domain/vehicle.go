package domain

import "time"

// VehiclePosition is a real-time telemetry reading for the live fleet map.
type VehiclePosition struct {
	Time      time.Time      `json:"time"`
	VehicleID string         `json:"vehicle_id"`
	DriverID  string         `json:"driver_id,omitempty"`
	Location  GeoPoint       `json:"location"`
	Bearing   float64        `json:"bearing"`
	Speed     float64        `json:"speed"` // m/s
	Ignition  bool           `json:"ignition"`
	Odometer  float64        `json:"odometer,omitempty"` // km
	Metadata  map[string]any `json:"metadata,omitempty"`
}
