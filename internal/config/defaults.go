package config

// Default returns the built-in baseline: engine tunables plus a small fleet
// around San Francisco with a few seeded missions.
func Default() Config {
	return Config{
		ClusterID:    "cluster-sf",
		TickInterval: "1s",
		Engine: Engine{
			MinVisibleDrones:        8,
			ArrivalRadiusM:          50,
			RTLRadiusM:              10,
			RTLSpeedMPS:             8,
			ClimbRateMPS:            2,
			DefaultWaypointSpeedMPS: 10,
			PatrolRadiusM:           2000,
			LowBatteryPct:           5,
			LowGPSPct:               20,
			OfflineTimeoutSeconds:   30,
			MissionDrainPct:         0.2,
			IdleDrainPct:            0.05,
			ChargeRatePct:           0.5,
			TakeoffMinAltM:          30,
			TakeoffMaxAltM:          80,
		},
		Faults: Faults{
			OfflineBlipRate:    0.05,
			CommandFailureRate: 0.05,
			Seed:               1,
		},
		Drones: []Drone{
			{ID: "drone-001", Name: "Falcon", Model: "quad-x4", Status: "online", Battery: 92, GPSQuality: pct(96), Lat: 37.7749, Lng: -122.4194, Alt: 0},
			{ID: "drone-002", Name: "Hawk", Model: "quad-x4", Status: "online", Battery: 78, GPSQuality: pct(91), Lat: 37.7793, Lng: -122.4140, Alt: 0},
			{ID: "drone-003", Name: "Osprey", Model: "hexa-h6", Status: "in-mission", Battery: 64, GPSQuality: pct(88), Lat: 37.7680, Lng: -122.4270, Alt: 60},
			{ID: "drone-004", Name: "Kestrel", Model: "quad-x4", Status: "charging", Battery: 35, GPSQuality: pct(97), Lat: 37.7710, Lng: -122.4080, Alt: 0},
			{ID: "drone-005", Name: "Harrier", Model: "fixed-wing", Status: "offline", Battery: 51, GPSQuality: pct(40), Lat: 37.7820, Lng: -122.4310, Alt: 0},
			{ID: "drone-006", Name: "Merlin", Model: "hexa-h6", Status: "in-mission", Battery: 71, GPSQuality: pct(93), Lat: 37.7640, Lng: -122.4050, Alt: 45},
			{ID: "drone-007", Name: "Condor", Model: "fixed-wing", Status: "online", Battery: 85, GPSQuality: pct(90), Lat: 37.7870, Lng: -122.4000, Alt: 0},
			{ID: "drone-008", Name: "Swift", Model: "quad-x4", Status: "charging", Battery: 12, GPSQuality: pct(95), Lat: 37.7600, Lng: -122.4350, Alt: 0},
			{ID: "drone-009", Name: "Raven", Model: "quad-x4", Status: "online", Battery: 67, GPSQuality: pct(89), Lat: 37.7730, Lng: -122.4420, Alt: 0},
			{ID: "drone-010", Name: "Eagle", Model: "hexa-h6", Status: "offline", Battery: 88, GPSQuality: pct(94), Lat: 37.7905, Lng: -122.4205, Alt: 0},
		},
		Missions: []Mission{
			{
				ID: "mission-001", DroneID: "drone-003", Name: "Embarcadero survey", Status: "in-progress",
				Waypoints: []Waypoint{
					{Lat: 37.7695, Lng: -122.4255, Alt: 60, Order: 0, Action: "TAKE_PHOTO"},
					{Lat: 37.7720, Lng: -122.4230, Alt: 70, Order: 1},
					{Lat: 37.7745, Lng: -122.4205, Alt: 70, Order: 2, Action: "SCAN"},
					{Lat: 37.7770, Lng: -122.4180, Alt: 60, Order: 3},
					{Lat: 37.7795, Lng: -122.4155, Alt: 50, Order: 4, Action: "TAKE_PHOTO"},
				},
			},
			{
				ID: "mission-002", DroneID: "drone-006", Name: "Mission Bay delivery", Status: "in-progress",
				Waypoints: []Waypoint{
					{Lat: 37.7655, Lng: -122.4030, Alt: 50, Order: 0},
					{Lat: 37.7690, Lng: -122.3930, Alt: 40, Order: 1, Action: "DELIVER_PAYLOAD"},
					{Lat: 37.7645, Lng: -122.4045, Alt: 45, Order: 2},
				},
			},
			{
				ID: "mission-003", DroneID: "drone-001", Name: "Civic Center perimeter", Status: "pending",
				Waypoints: []Waypoint{
					{Lat: 37.7760, Lng: -122.4194, Alt: 40, Order: 0},
					{Lat: 37.7760, Lng: -122.4170, Alt: 40, Order: 1, Action: "LOITER"},
					{Lat: 37.7740, Lng: -122.4170, Alt: 40, Order: 2},
					{Lat: 37.7740, Lng: -122.4194, Alt: 40, Order: 3},
				},
			},
			{
				ID: "mission-004", DroneID: "drone-002", Name: "Bridge inspection", Status: "pending",
				Waypoints: []Waypoint{
					{Lat: 37.7810, Lng: -122.4120, Alt: 80, Order: 0, Action: "SCAN"},
					{Lat: 37.7830, Lng: -122.4100, Alt: 80, Order: 1, Action: "TAKE_PHOTO"},
				},
			},
			{
				ID: "mission-005", DroneID: "drone-004", Name: "Warehouse sweep", Status: "completed",
				Waypoints: []Waypoint{
					{Lat: 37.7715, Lng: -122.4075, Alt: 30, Order: 0},
				},
			},
		},
	}
}

func pct(v float64) *float64 { return &v }
