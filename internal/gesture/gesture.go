// Package gesture implements the swipe recognizer used in single-order mode.
// It is defined purely over abstract start/move/end events with numeric
// x-coordinates; touch and pointer input are adapted into that shape at the
// transport boundary so both drive identical transitions.
package gesture

type Phase string

const (
	PhaseStart Phase = "start"
	PhaseMove  Phase = "move"
	PhaseEnd   Phase = "end"
)

type Decision string

const (
	DecisionNone     Decision = ""
	DecisionAccepted Decision = "accepted"
	DecisionRejected Decision = "rejected"
)

type Zone string

const (
	ZoneNeutral       Zone = "neutral"
	ZoneLeaningAccept Zone = "leaning-accept"
	ZoneLeaningReject Zone = "leaning-reject"
)

// Event is one normalized input sample.
type Event struct {
	Phase Phase   `json:"phase"`
	X     float64 `json:"x"`
}

// Frame is the recognizer output after consuming one event.
type Frame struct {
	Offset    float64  `json:"offset"`
	Zone      Zone     `json:"zone"`
	Hint      string   `json:"hint"`
	Dragging  bool     `json:"dragging"`
	Committed Decision `json:"committed,omitempty"`
}

// Threshold combines a minimum absolute distance with a width-relative one so
// the swipe stays usable on narrow and wide viewports alike.
func Threshold(width, minPx, ratio float64) float64 {
	t := width * ratio
	if t < minPx {
		t = minPx
	}
	return t
}

// Recognizer tracks one continuous horizontal drag. Not safe for concurrent
// use; the owning session serializes access.
type Recognizer struct {
	threshold float64
	locked    bool
	dragging  bool
	startX    float64
	offset    float64
}

func New(width, minPx, ratio float64) *Recognizer {
	return &Recognizer{threshold: Threshold(width, minPx, ratio)}
}

func (r *Recognizer) ThresholdPx() float64 { return r.threshold }

// SetLocked marks a disposition as in flight. While locked every event is
// inert: no state change, no commit, no queueing for later.
func (r *Recognizer) SetLocked(locked bool) {
	r.locked = locked
	if locked {
		r.dragging = false
		r.offset = 0
	}
}

// Current returns the present frame without consuming an event.
func (r *Recognizer) Current() Frame {
	return r.frame(DecisionNone)
}

// Feed consumes one event and returns the resulting frame. A commit decision
// appears on exactly one frame, for the release that crossed the threshold.
func (r *Recognizer) Feed(ev Event) Frame {
	if r.locked {
		return r.frame(DecisionNone)
	}

	switch ev.Phase {
	case PhaseStart:
		if r.dragging {
			break
		}
		r.dragging = true
		r.startX = ev.X
		r.offset = 0
	case PhaseMove:
		if !r.dragging {
			break
		}
		r.offset = clamp(ev.X-r.startX, r.threshold)
	case PhaseEnd:
		if !r.dragging {
			break
		}
		offset := clamp(ev.X-r.startX, r.threshold)
		r.dragging = false
		r.offset = 0
		if offset >= r.threshold {
			return r.frame(DecisionAccepted)
		}
		if offset <= -r.threshold {
			return r.frame(DecisionRejected)
		}
	}
	return r.frame(DecisionNone)
}

func (r *Recognizer) frame(committed Decision) Frame {
	zone := r.zone()
	return Frame{
		Offset:    r.offset,
		Zone:      zone,
		Hint:      hint(zone),
		Dragging:  r.dragging,
		Committed: committed,
	}
}

func (r *Recognizer) zone() Zone {
	half := r.threshold / 2
	switch {
	case r.offset >= half:
		return ZoneLeaningAccept
	case r.offset <= -half:
		return ZoneLeaningReject
	default:
		return ZoneNeutral
	}
}

func hint(zone Zone) string {
	switch zone {
	case ZoneLeaningAccept:
		return "Release to accept"
	case ZoneLeaningReject:
		return "Release to reject"
	default:
		return "Swipe right to accept, left to reject"
	}
}

func clamp(delta, threshold float64) float64 {
	if delta > threshold {
		return threshold
	}
	if delta < -threshold {
		return -threshold
	}
	return delta
}
