package lidar

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/banshee-data/anomaly.report/internal/monitoring"
)

// Characterizer phase errors.
var (
	// ErrNoObject means the object window produced no cluster above the
	// density threshold. Non-fatal; the caller may retry the window.
	ErrNoObject = errors.New("no object detected")
	// ErrEmptyBackground means DefineObject was called before any
	// background window had completed.
	ErrEmptyBackground = errors.New("background has not been captured")
	// ErrBusy means a phase was requested while another one is running.
	ErrBusy = errors.New("characterizer is not stopped")
)

// PointSource is the subset of a scanner the characterizer drives. Scan
// delivers decoded points through the callback on the source's own
// goroutine and blocks until the source is paused (nil), runs out of input
// (io.EOF), or fails. Pause is honoured at record boundaries.
type PointSource interface {
	Init() error
	Scan() error
	Pause()
	Stop()
	SetCallback(func(LidarPoint))
}

// Characterizer phases. The state variable is the only coordination between
// the caller's goroutine and the scanner callback: the callback loads it
// atomically to decide what to do with each point, and flips it back to
// stopped when a frame deadline passes.
const (
	stateStopped int32 = iota
	stateDefineBackground
	stateDefineObject
	stateDiscard
)

// Characterizer turns a live point stream into characterized objects. One
// goroutine (the scanner's) appends points; the caller's goroutine blocks in
// DefineBackground/DefineObject/Wait until the frame deadline passes, then
// runs the analysis synchronously. The two never touch the buffers at the
// same time: ingest happens only while the phase state is active, analysis
// only after it has flipped back to stopped.
type Characterizer struct {
	source PointSource
	params Params

	chrono          bool
	objFrameNanos   uint64
	backFrameNanos  uint64
	minReflectivity uint8
	backDistance    float64 // mm

	state atomic.Int32

	mu            sync.Mutex
	background    []Point
	object        []Point
	firstSet      bool
	first         Timestamp
	discardNanos  uint64
	frameDone     chan struct{}
	backgroundSet bool
	backTree      *Octree
}

// NewCharacterizer wires a characterizer to its point source. Frame
// durations are milliseconds; backDistance is metres and is stored in
// millimetres to match point coordinates.
func NewCharacterizer(source PointSource, objFrameMillis, backFrameMillis uint32, minReflectivity uint8, backDistanceMeters float64, chrono bool) *Characterizer {
	return &Characterizer{
		source:          source,
		params:          DefaultParams(),
		chrono:          chrono,
		objFrameNanos:   uint64(objFrameMillis) * 1_000_000,
		backFrameNanos:  uint64(backFrameMillis) * 1_000_000,
		minReflectivity: minReflectivity,
		backDistance:    backDistanceMeters * 1000,
	}
}

// Init installs the point callback and initializes the source.
func (c *Characterizer) Init() error {
	c.source.SetCallback(c.newPoint)
	if err := c.source.Init(); err != nil {
		return fmt.Errorf("initializing point source: %w", err)
	}
	return nil
}

// SetParams replaces the pipeline tuning. Only valid while stopped.
func (c *Characterizer) SetParams(p Params) {
	c.params = p
}

// SetObjFrame sets the object window duration in milliseconds.
func (c *Characterizer) SetObjFrame(millis uint32) {
	c.objFrameNanos = uint64(millis) * 1_000_000
}

// SetBackFrame sets the background window duration in milliseconds.
func (c *Characterizer) SetBackFrame(millis uint32) {
	c.backFrameNanos = uint64(millis) * 1_000_000
}

// SetMinReflectivity sets the reflectivity floor below which points are
// dropped on arrival.
func (c *Characterizer) SetMinReflectivity(r uint8) {
	c.minReflectivity = r
}

// SetBackDistance sets the background rejection distance in metres.
func (c *Characterizer) SetBackDistance(meters float64) {
	c.backDistance = meters * 1000
}

// SetChrono toggles phase duration logging.
func (c *Characterizer) SetChrono(chrono bool) {
	c.chrono = chrono
}

// DefineBackground captures one background window and freezes it into the
// spatial index used for background subtraction. It blocks until the window
// elapses on the sensor clock, or until the source runs out of input, in
// which case whatever was captured becomes the background.
func (c *Characterizer) DefineBackground() error {
	start := time.Now()

	c.mu.Lock()
	c.background = nil
	c.backTree = nil
	c.backgroundSet = false
	c.firstSet = false
	c.mu.Unlock()

	if err := c.runPhase(stateDefineBackground); err != nil {
		return err
	}

	c.mu.Lock()
	c.backTree = NewOctreeWithLimits(c.background, c.params.MaxPointsPerLeaf, c.params.MinNodeHalfExtent)
	c.backgroundSet = true
	count := len(c.background)
	c.mu.Unlock()

	if c.chrono {
		monitoring.Logf("background: %d points captured in %v", count, time.Since(start))
	}
	return nil
}

// DefineObject captures one object window, subtracting points that match
// the frozen background, and characterizes the result. It blocks until the
// window elapses. ErrNoObject means the window held no dense cluster;
// ErrEmptyBackground means no background window has completed yet.
func (c *Characterizer) DefineObject() (*CharacterizedObject, error) {
	c.mu.Lock()
	if !c.backgroundSet {
		c.mu.Unlock()
		return nil, ErrEmptyBackground
	}
	c.object = nil
	c.firstSet = false
	c.mu.Unlock()

	start := time.Now()
	if err := c.runPhase(stateDefineObject); err != nil {
		return nil, err
	}
	if c.chrono {
		monitoring.Logf("object window: %d points after background subtraction in %v", len(c.object), time.Since(start))
	}

	analysis := time.Now()
	obj, ok := Characterize(c.object, c.params)
	if !ok {
		return nil, ErrNoObject
	}
	if c.chrono {
		monitoring.Logf("object analysis: %d points, %d faces in %v", len(obj.Points), len(obj.Faces), time.Since(analysis))
	}
	return obj, nil
}

// Wait discards every incoming point for the given window, measured on the
// sensor clock like the other phases.
func (c *Characterizer) Wait(millis uint32) error {
	c.mu.Lock()
	c.discardNanos = uint64(millis) * 1_000_000
	c.firstSet = false
	c.mu.Unlock()
	return c.runPhase(stateDiscard)
}

// Stop forces the state machine to stopped and halts the source. Any frame
// in progress is truncated.
func (c *Characterizer) Stop() {
	c.state.Store(stateStopped)
	c.source.Stop()
}

// runPhase drives the source through one framed window. The frame deadline
// is observed inside the point callback, which pauses the source and closes
// frameDone; runPhase also returns when the source itself finishes first,
// truncating the frame.
func (c *Characterizer) runPhase(phase int32) error {
	done := make(chan struct{})
	c.mu.Lock()
	c.frameDone = done
	c.mu.Unlock()

	if !c.state.CompareAndSwap(stateStopped, phase) {
		return ErrBusy
	}

	scanErr := make(chan error, 1)
	go func() {
		scanErr <- c.source.Scan()
	}()

	select {
	case <-done:
		// Deadline reached; the callback has paused the source. Wait for
		// Scan to unwind before the caller touches the buffers.
		<-scanErr
		return nil
	case err := <-scanErr:
		select {
		case <-done:
			return nil
		default:
		}
		// The source drained before the frame deadline: the frame is
		// truncated, which ends the phase cleanly. Real errors surface.
		c.state.Store(stateStopped)
		if err == nil || errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("scanning %s: %w", phaseName(phase), err)
	}
}

// newPoint is the scanner callback: the sole writer to the point buffers.
// It must return quickly; the only work besides the append is one spatial
// query against the frozen background during the object phase.
func (c *Characterizer) newPoint(p LidarPoint) {
	state := c.state.Load()
	if state == stateStopped {
		return
	}
	if p.Reflectivity < c.minReflectivity {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.firstSet {
		c.first = p.Timestamp
		c.firstSet = true
	}
	elapsed := p.Timestamp.Sub(c.first)

	switch state {
	case stateDefineBackground:
		if elapsed > int64(c.backFrameNanos) {
			c.endFrame(state)
			return
		}
		c.background = append(c.background, p.Point)

	case stateDefineObject:
		if elapsed > int64(c.objFrameNanos) {
			c.endFrame(state)
			return
		}
		if c.isBackground(p.Point) {
			return
		}
		c.object = append(c.object, p.Point)

	case stateDiscard:
		if elapsed > int64(c.discardNanos) {
			c.endFrame(state)
		}
	}
}

// endFrame flips the machine back to stopped and releases the phase caller.
// Called with c.mu held, from the scanner goroutine.
func (c *Characterizer) endFrame(phase int32) {
	if !c.state.CompareAndSwap(phase, stateStopped) {
		return
	}
	c.source.Pause()
	close(c.frameDone)
}

// isBackground reports whether p falls within backDistance of any frozen
// background point. Called with c.mu held; the background octree is
// read-only once built.
func (c *Characterizer) isBackground(p Point) bool {
	if c.backTree == nil || c.backTree.Len() == 0 {
		return false
	}
	return len(c.backTree.SearchNeighbors(p, c.backDistance, KernelSphere)) > 0
}

func phaseName(phase int32) string {
	switch phase {
	case stateDefineBackground:
		return "background"
	case stateDefineObject:
		return "object"
	case stateDiscard:
		return "discard"
	}
	return "stopped"
}
