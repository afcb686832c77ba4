package telemetry

import "math"

// EarthRadiusM is the mean earth radius used by all geodesy helpers.
const EarthRadiusM = 6371000.0

func toRad(deg float64) float64 { return deg * math.Pi / 180 }
func toDeg(rad float64) float64 { return rad * 180 / math.Pi }

// DistanceMeters calculates the haversine distance between two lat/lng points.
func DistanceMeters(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusM * c
}

// Bearing returns the initial great-circle bearing in degrees [0,360) from
// point 1 to point 2 (forward azimuth).
func Bearing(lat1, lng1, lat2, lng2 float64) float64 {
	p1, p2 := toRad(lat1), toRad(lat2)
	dl := toRad(lng2 - lng1)
	y := math.Sin(dl) * math.Cos(p2)
	x := math.Cos(p1)*math.Sin(p2) - math.Sin(p1)*math.Cos(p2)*math.Cos(dl)
	return NormalizeHeading(toDeg(math.Atan2(y, x)))
}

// Destination moves distM meters from (lat, lng) along bearingDeg.
func Destination(lat, lng, bearingDeg, distM float64) (float64, float64) {
	ad := distM / EarthRadiusM
	th := toRad(bearingDeg)
	p1, l1 := toRad(lat), toRad(lng)
	p2 := math.Asin(math.Sin(p1)*math.Cos(ad) + math.Cos(p1)*math.Sin(ad)*math.Cos(th))
	l2 := l1 + math.Atan2(math.Sin(th)*math.Sin(ad)*math.Cos(p1), math.Cos(ad)-math.Sin(p1)*math.Sin(p2))
	lng2 := math.Mod(toDeg(l2)+540, 360) - 180
	return toDeg(p2), lng2
}

// NormalizeHeading wraps h into [0,360).
func NormalizeHeading(h float64) float64 {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	return h
}

// Approach moves current toward target by at most step and never overshoots.
// Values within snap of the target land exactly on it.
func Approach(current, target, step, snap float64) float64 {
	diff := target - current
	if math.Abs(diff) <= snap || math.Abs(diff) <= step {
		return target
	}
	if diff > 0 {
		return current + step
	}
	return current - step
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
