package scanner

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync/atomic"

	"github.com/banshee-data/anomaly.report/internal/lidar"
	"github.com/banshee-data/anomaly.report/internal/monitoring"
)

// csvFieldCount is the number of columns in a point record:
// seconds, nanoseconds, reflectivity, x, y, z.
const csvFieldCount = 6

// CSVScanner replays point-cloud CSV exports. Each record is one return:
//
//	seconds,nanoseconds,reflectivity,x_mm,y_mm,z_mm
//
// A header row is tolerated: a first record that does not parse as a point
// is skipped without being counted. Malformed records are counted, logged once at end of input, and
// skipped, matching the pipeline's policy of silently filtering per-point
// errors.
type CSVScanner struct {
	path     string
	file     *os.File
	reader   *csv.Reader
	callback func(lidar.LidarPoint)

	paused  atomic.Bool
	stopped atomic.Bool
	read    int
	skipped int
}

// NewCSVScanner creates a scanner over the CSV file at path. The file is
// opened by Init and held until Stop.
func NewCSVScanner(path string) *CSVScanner {
	return &CSVScanner{path: path}
}

// SetCallback installs the per-point callback.
func (s *CSVScanner) SetCallback(fn func(lidar.LidarPoint)) {
	s.callback = fn
}

// Init opens the capture file.
func (s *CSVScanner) Init() error {
	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("opening csv capture %s: %w", s.path, err)
	}
	s.file = f
	s.reader = csv.NewReader(f)
	s.reader.FieldsPerRecord = csvFieldCount
	s.reader.ReuseRecord = true
	return nil
}

// Scan reads records and delivers points until paused or the file ends.
func (s *CSVScanner) Scan() error {
	if s.callback == nil {
		return ErrNoCallback
	}
	if s.stopped.Load() || s.reader == nil {
		return ErrStopped
	}

	for {
		if s.paused.CompareAndSwap(true, false) {
			return nil
		}
		record, err := s.reader.Read()
		if err == io.EOF {
			if s.skipped > 0 {
				monitoring.Logf("csv scanner: skipped %d malformed records in %s", s.skipped, s.path)
			}
			return io.EOF
		}
		if err != nil {
			// Structurally broken rows (wrong field count) are per-point
			// noise, not a stream failure.
			if _, ok := err.(*csv.ParseError); ok {
				s.skipped++
				continue
			}
			return fmt.Errorf("reading csv capture: %w", err)
		}
		s.read++
		p, ok := parseCSVRecord(record)
		if !ok {
			// The first unparseable row is the header; anything later is a
			// malformed record.
			if s.read > 1 {
				s.skipped++
			}
			continue
		}
		s.callback(p)
	}
}

// Pause makes the running Scan return at the next record boundary.
func (s *CSVScanner) Pause() {
	s.paused.Store(true)
}

// Stop releases the capture file.
func (s *CSVScanner) Stop() {
	if s.stopped.CompareAndSwap(false, true) && s.file != nil {
		s.file.Close()
		s.file = nil
		s.reader = nil
	}
}

func parseCSVRecord(record []string) (lidar.LidarPoint, bool) {
	sec, err := strconv.ParseUint(record[0], 10, 32)
	if err != nil {
		return lidar.LidarPoint{}, false
	}
	nsec, err := strconv.ParseUint(record[1], 10, 32)
	if err != nil {
		return lidar.LidarPoint{}, false
	}
	refl, err := strconv.ParseUint(record[2], 10, 8)
	if err != nil {
		return lidar.LidarPoint{}, false
	}
	x, err := strconv.ParseFloat(record[3], 64)
	if err != nil {
		return lidar.LidarPoint{}, false
	}
	y, err := strconv.ParseFloat(record[4], 64)
	if err != nil {
		return lidar.LidarPoint{}, false
	}
	z, err := strconv.ParseFloat(record[5], 64)
	if err != nil {
		return lidar.LidarPoint{}, false
	}
	ts := lidar.NewTimestamp(uint32(sec), uint32(nsec))
	return lidar.NewLidarPoint(ts, uint8(refl), x, y, z), true
}

var _ Scanner = (*CSVScanner)(nil)
