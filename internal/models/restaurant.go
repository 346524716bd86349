package models

// Geolocation is a WGS84 coordinate pair.
type Geolocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// RestaurantResult is one restaurant candidate returned by the research API.
type RestaurantResult struct {
	Name          string      `json:"name"`
	Address       string      `json:"address"`
	Cuisine       string      `json:"cuisine"`
	Rating        float64     `json:"rating"`
	MatchScore    float64     `json:"match_score"`
	MatchCriteria []string    `json:"match_criteria"`
	PriceRange    string      `json:"price_range"`
	URL           string      `json:"url"`
	Phone         string      `json:"phone,omitempty"`
	Geolocation   Geolocation `json:"geolocation"`
}

// ResearchRequest asks for restaurants matching a free-form prompt.
type ResearchRequest struct {
	Prompt     string `json:"prompt"`
	NumResults int    `json:"num_results,omitempty"`
}

// ExtractRequest asks for structured dining requirements from a transcript.
type ExtractRequest struct {
	Transcript           string   `json:"transcript"`
	ExistingRequirements []string `json:"existing_requirements,omitempty"`
}

// ExtractResponse carries the extracted requirement strings.
type ExtractResponse struct {
	Requirements []string `json:"requirements"`
	Success      bool     `json:"success"`
	Error        string   `json:"error,omitempty"`
}

// BookingRequest asks for an outbound reservation call.
type BookingRequest struct {
	RestaurantName string `json:"restaurant_name"`
	PhoneNumber    string `json:"phone_number"`
}

// BookingResult reports the outcome of a triggered call.
type BookingResult struct {
	Status string `json:"status"`
	CallID string `json:"call_id,omitempty"`
}
