package scenario

// BuiltIn returns predefined mission plans.
func BuiltIn() map[string]Plan {
	return map[string]Plan{
		"survey": {
			Name:        "survey",
			Description: "Lawnmower sweep over a rectangular area with a photo at every turn.",
			Pattern:     PatternGrid,
			Legs:        3,
			SpacingM:    120,
			Altitude:    60,
			Actions:     []string{"TAKE_PHOTO", "NONE"},
		},
		"perimeter": {
			Name:        "perimeter",
			Description: "Closed square around the origin, scanning each corner.",
			Pattern:     PatternSquare,
			SpacingM:    400,
			Altitude:    45,
			Actions:     []string{"SCAN"},
		},
		"delivery": {
			Name:        "delivery",
			Description: "Straight-line run that drops a payload at the far end.",
			Pattern:     PatternLine,
			Legs:        2,
			SpacingM:    500,
			Altitude:    40,
			Actions:     []string{"NONE", "DELIVER_PAYLOAD"},
		},
		"inspection": {
			Name:        "inspection",
			Description: "Slow orbit around a structure, loitering at every station.",
			Pattern:     PatternOrbit,
			Legs:        6,
			SpacingM:    150,
			Altitude:    80,
			Speed:       ptr(5),
			Actions:     []string{"LOITER"},
		},
	}
}

func ptr(f float64) *float64 { return &f }
