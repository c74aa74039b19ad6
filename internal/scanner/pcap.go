package scanner

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"sync/atomic"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcap"

	"github.com/banshee-data/anomaly.report/internal/lidar"
	"github.com/banshee-data/anomaly.report/internal/monitoring"
)

// Point packet structure constants. Capture files hold the sensor's UDP
// stream; each payload carries one header followed by a run of fixed-size
// point records stamped relative to the packet's base time.
const (
	PACKET_PREAMBLE    = 0xFFEE // Marks the start of a point packet payload
	PACKET_HEADER_SIZE = 12     // Preamble (2) + point count (2) + base seconds (4) + base nanos (4)
	POINT_RECORD_SIZE  = 17     // Nanosecond offset (4) + reflectivity (1) + x, y, z float32 mm (12)
	MAX_POINTS_PACKET  = 1024   // Upper bound on the count field; larger values mean a corrupt header
)

// PCAPScanner replays binary point packets from a capture file via
// gopacket. Packets whose payload fails validation are counted and skipped;
// pause is honoured between packets.
type PCAPScanner struct {
	path     string
	handle   *pcap.Handle
	source   *gopacket.PacketSource
	callback func(lidar.LidarPoint)

	paused  atomic.Bool
	stopped atomic.Bool
	invalid int
}

// NewPCAPScanner creates a scanner over the capture file at path.
func NewPCAPScanner(path string) *PCAPScanner {
	return &PCAPScanner{path: path}
}

// SetCallback installs the per-point callback.
func (s *PCAPScanner) SetCallback(fn func(lidar.LidarPoint)) {
	s.callback = fn
}

// Init opens the capture file.
func (s *PCAPScanner) Init() error {
	handle, err := pcap.OpenOffline(s.path)
	if err != nil {
		return fmt.Errorf("opening pcap capture %s: %w", s.path, err)
	}
	s.handle = handle
	s.source = gopacket.NewPacketSource(handle, handle.LinkType())
	return nil
}

// Scan decodes packets and delivers their points until paused or the
// capture ends.
func (s *PCAPScanner) Scan() error {
	if s.callback == nil {
		return ErrNoCallback
	}
	if s.stopped.Load() || s.source == nil {
		return ErrStopped
	}

	for {
		if s.paused.CompareAndSwap(true, false) {
			return nil
		}
		packet, err := s.source.NextPacket()
		if errors.Is(err, io.EOF) {
			if s.invalid > 0 {
				monitoring.Logf("pcap scanner: skipped %d invalid packets in %s", s.invalid, s.path)
			}
			return io.EOF
		}
		if err != nil {
			return fmt.Errorf("reading pcap capture: %w", err)
		}
		app := packet.ApplicationLayer()
		if app == nil {
			s.invalid++
			continue
		}
		if !s.emitPacket(app.Payload()) {
			s.invalid++
		}
	}
}

// Pause makes the running Scan return before the next packet.
func (s *PCAPScanner) Pause() {
	s.paused.Store(true)
}

// Stop releases the capture handle.
func (s *PCAPScanner) Stop() {
	if s.stopped.CompareAndSwap(false, true) && s.handle != nil {
		s.handle.Close()
		s.handle = nil
		s.source = nil
	}
}

// emitPacket validates one payload and delivers its points. It reports
// false when the payload is not a well-formed point packet.
func (s *PCAPScanner) emitPacket(payload []byte) bool {
	if len(payload) < PACKET_HEADER_SIZE {
		return false
	}
	if binary.LittleEndian.Uint16(payload[0:2]) != PACKET_PREAMBLE {
		return false
	}
	count := int(binary.LittleEndian.Uint16(payload[2:4]))
	if count > MAX_POINTS_PACKET {
		return false
	}
	if len(payload) < PACKET_HEADER_SIZE+count*POINT_RECORD_SIZE {
		return false
	}
	baseSec := binary.LittleEndian.Uint32(payload[4:8])
	baseNsec := binary.LittleEndian.Uint32(payload[8:12])

	for i := 0; i < count; i++ {
		rec := payload[PACKET_HEADER_SIZE+i*POINT_RECORD_SIZE:]
		offsetNs := binary.LittleEndian.Uint32(rec[0:4])
		reflectivity := rec[4]
		x := math32(rec[5:9])
		y := math32(rec[9:13])
		z := math32(rec[13:17])

		ts := lidar.NewTimestamp(baseSec, baseNsec+offsetNs)
		s.callback(lidar.NewLidarPoint(ts, reflectivity, float64(x), float64(y), float64(z)))
	}
	return true
}

func math32(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

var _ Scanner = (*PCAPScanner)(nil)
