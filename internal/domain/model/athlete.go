package model

// Athlete carries the anthropometric inputs of the PFV model. Zero values
// mean "unknown" and are replaced by defaults downstream.
type Athlete struct {
	Name    string  `json:"name,omitempty"`
	Mass    float64 `json:"mass,omitempty"`    // kg
	Stature float64 `json:"stature,omitempty"` // m
}

// Conditions are the ambient conditions used by the air resistance term.
// Zero values mean "unknown".
type Conditions struct {
	Pressure    float64 `json:"pressure,omitempty"`    // mmHg
	Temperature float64 `json:"temperature,omitempty"` // °C
}

// Job is one trace submitted for analysis.
type Job struct {
	ID         string
	Title      string
	Trace      Trace
	Athlete    Athlete
	Conditions Conditions
	// EndOfAcceleration, when positive, refits the sprint up to this trace
	// time in seconds.
	EndOfAcceleration float64
}
