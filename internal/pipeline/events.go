package pipeline

// EventKind distinguishes progress event types.
type EventKind uint8

const (
	// EventStart fires when a declaration's emission begins.
	EventStart EventKind = iota
	// EventDone fires when it finishes, successfully or not.
	EventDone
)

// Event reports per-declaration emission progress. Start and done events
// for different declarations interleave freely under parallel emission; a
// single declaration's start always precedes its done.
type Event struct {
	Kind  EventKind
	Decl  string
	Index int
	Total int

	// Symbol is the emitted record or template symbol. Done events only,
	// empty when the declaration failed or was skipped.
	Symbol string

	// Skipped marks declarations that carry no native record (foreign
	// classes). Done events only.
	Skipped bool

	// Err is the emission failure. Done events only.
	Err error
}

// Reporter consumes progress events. Reporters may be called from multiple
// goroutines and must be safe for that.
type Reporter func(Event)

func (r Reporter) emit(ev Event) {
	if r != nil {
		r(ev)
	}
}
