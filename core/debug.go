package core

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// Event captures a proxy event for post-mortem analysis
type Event struct {
	Type   uint8  // Event type code
	Kind   uint8  // Frame kind byte, when relevant
	Clock  uint32 // Milliseconds since boot
	Value1 uint32 // Context-dependent value
	Value2 uint32 // Context-dependent value
}

// Event type codes
const (
	EvtBoot      = 1 // Boot finished, Value1 = startup delay ms
	EvtFrame     = 2 // Frame accepted
	EvtReject    = 3 // Frame rejected, Value1 = rejection count
	EvtTransmit  = 4 // Pattern played, Value1 = pulses, Value2 = ticks
	EvtReset     = 5 // Module reset, Value1 = retry count
	EvtTxFailure = 6 // Pattern aborted
)

const (
	EventRingSize = 32 // Keep last 32 events for post-mortem
)

var (
	// debugPrintln is the global debug print function (can be set by platform code)
	debugPrintln DebugWriter = func(s string) {} // No-op by default

	// debugEnabled controls whether debug output is active
	debugEnabled bool = false

	eventRing     [EventRingSize]Event
	eventRingHead uint8
)

// SetDebugWriter sets the platform-specific debug output function
// This allows platforms to redirect debug output to UART, USB, glog, etc.
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// IsDebugEnabled returns whether debug output is enabled
func IsDebugEnabled() bool {
	return debugEnabled
}

// DebugPrintln writes a debug message using the platform-specific writer
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// RecordEvent stores an event in the ring buffer. Never blocks.
func RecordEvent(eventType, kind uint8, clock, value1, value2 uint32) {
	idx := eventRingHead
	eventRing[idx] = Event{
		Type:   eventType,
		Kind:   kind,
		Clock:  clock,
		Value1: value1,
		Value2: value2,
	}
	eventRingHead = (idx + 1) % EventRingSize
}

// RecentEvents returns the recorded events, oldest first
func RecentEvents() []Event {
	events := make([]Event, 0, EventRingSize)
	start := eventRingHead
	for i := uint8(0); i < EventRingSize; i++ {
		evt := eventRing[(start+i)%EventRingSize]
		if evt.Type == 0 {
			continue
		}
		events = append(events, evt)
	}
	return events
}

func eventName(t uint8) string {
	switch t {
	case EvtBoot:
		return "BOOT"
	case EvtFrame:
		return "FRAME"
	case EvtReject:
		return "REJECT"
	case EvtTransmit:
		return "TRANSMIT"
	case EvtReset:
		return "RESET"
	case EvtTxFailure:
		return "TX_FAIL"
	default:
		return "UNKNOWN"
	}
}

// DumpEvents writes the ring buffer through the debug writer, ignoring
// the enabled flag. Called before a restart.
func DumpEvents() {
	if debugPrintln == nil {
		return
	}
	debugPrintln("[EVENTS] === Event Ring Dump ===")
	for _, evt := range RecentEvents() {
		debugPrintln("[EVENTS] " + eventName(evt.Type) +
			" kind=" + utoa(uint32(evt.Kind)) +
			" t=" + utoa(evt.Clock) +
			" v1=" + utoa(evt.Value1) +
			" v2=" + utoa(evt.Value2))
	}
	debugPrintln("[EVENTS] === End Dump ===")
}

// ClearEvents clears the event ring
func ClearEvents() {
	for i := range eventRing {
		eventRing[i] = Event{}
	}
	eventRingHead = 0
}
