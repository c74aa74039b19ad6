// Package scanner provides the point sources the characterizer consumes:
// replay backends that decode captured LiDAR data and push timestamped
// points through a callback, honouring pause at record boundaries.
package scanner

import (
	"errors"

	"github.com/banshee-data/anomaly.report/internal/lidar"
)

// Scanner is a push-source of timestamped LiDAR points.
//
// Scan delivers points through the callback on the caller's goroutine until
// one of three things happens: Pause is observed at a record boundary
// (Scan returns nil and a later Scan resumes where it left off), the input
// is exhausted (Scan returns io.EOF), or decoding fails. Stop releases the
// underlying resources; Scan must not be called again after Stop.
type Scanner interface {
	Init() error
	Scan() error
	Pause()
	Stop()
	SetCallback(func(lidar.LidarPoint))
}

// ErrNoCallback is returned by Scan when no callback was installed.
var ErrNoCallback = errors.New("scanner: no callback set")

// ErrStopped is returned by Scan after Stop has released the source.
var ErrStopped = errors.New("scanner: stopped")
