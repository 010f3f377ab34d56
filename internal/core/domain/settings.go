package domain

// TollProfile describes the vehicle parameters the routing provider needs to
// compute toll costs. Persisted per fleet through the settings store.
type TollProfile struct {
	VehicleType    string  `json:"vehicle_type"` // car, truck, bus
	EmissionClass  string  `json:"emission_class,omitempty"`
	AxleCount      int     `json:"axle_count,omitempty"`
	GrossWeightKg  int     `json:"gross_weight_kg,omitempty"`
	HeightCm       int     `json:"height_cm,omitempty"`
	TrailerCount   int     `json:"trailer_count,omitempty"`
	Currency       string  `json:"currency,omitempty"`
	FuelPricePerL  float64 `json:"fuel_price_per_l,omitempty"`
	ConsumptionL   float64 `json:"consumption_l_per_100km,omitempty"`
}
