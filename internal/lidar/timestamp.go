package lidar

import "fmt"

const nanosPerSecond = 1_000_000_000

// Timestamp is the monotonic sensor clock carried on every raw point, split
// into whole seconds and a nanosecond remainder. Construction normalizes the
// carry so Nanos is always below one second.
type Timestamp struct {
	Seconds uint32
	Nanos   uint32
}

// NewTimestamp builds a timestamp, folding nanosecond overflow into seconds.
func NewTimestamp(seconds, nanos uint32) Timestamp {
	return Timestamp{
		Seconds: seconds + nanos/nanosPerSecond,
		Nanos:   nanos % nanosPerSecond,
	}
}

// Sub returns t - u in nanoseconds. The result is negative when t precedes u.
func (t Timestamp) Sub(u Timestamp) int64 {
	return (int64(t.Seconds)-int64(u.Seconds))*nanosPerSecond +
		int64(t.Nanos) - int64(u.Nanos)
}

// Before reports whether t precedes u on the sensor clock.
func (t Timestamp) Before(u Timestamp) bool {
	return t.Sub(u) < 0
}

func (t Timestamp) String() string {
	return fmt.Sprintf("%d.%09ds", t.Seconds, t.Nanos)
}

// LidarPoint is a raw scanner return: a position with its acquisition time
// and laser reflectivity. The timestamp drives frame windowing in the
// characterizer; reflectivity gates which returns are kept at all.
type LidarPoint struct {
	Point
	Timestamp    Timestamp
	Reflectivity uint8
}

// NewLidarPoint builds a raw return at the given clock reading.
func NewLidarPoint(ts Timestamp, reflectivity uint8, x, y, z float64) LidarPoint {
	return LidarPoint{
		Point:        NewPoint(x, y, z),
		Timestamp:    ts,
		Reflectivity: reflectivity,
	}
}
