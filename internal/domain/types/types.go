// Package types contains common types used across the application
package types

// Entry represents a ranking entry: one analysed sprint ordered by relative
// maximal power.
type Entry struct {
	Rank   int     `json:"rank"`
	ID     string  `json:"id"`
	Title  string  `json:"title"`
	PmaxKg float64 `json:"pmax_kg"` // W/kg
	F0Kg   float64 `json:"f0_kg"`   // N/kg
	V0     float64 `json:"v0"`      // m/s
	VMax   float64 `json:"v_max"`   // m/s
	Signal string  `json:"signal"`
}

// Less orders entries by PmaxKg descending, then by title and id ascending.
func Less(a, b Entry) bool {
	if a.PmaxKg != b.PmaxKg {
		return a.PmaxKg > b.PmaxKg
	}
	if a.Title != b.Title {
		return a.Title < b.Title
	}
	return a.ID < b.ID
}
