package models

// Stats summarizes the result of the last cull.
type Stats struct {
	Visible int `json:"visible"`
	Culled  int `json:"culled"`
	Total   int `json:"total"`
}

// NewStats builds stats from the visible and total entity counts.
func NewStats(visible, total int) Stats {
	return Stats{
		Visible: visible,
		Culled:  total - visible,
		Total:   total,
	}
}
