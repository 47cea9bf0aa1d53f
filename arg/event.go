package arg

// EventType is one of the demographic/sweep event codes from §3's event
// descriptor schema.
type EventType byte

const (
	// EventPopSize is 'n': a population-size change.
	EventPopSize EventType = 'n'
	// EventMerge is 'p'/'ed'/'ej': a backward-time population join.
	EventMerge EventType = 'p'
	// EventAdmix is 'a': admixture.
	EventAdmix EventType = 'a'
	// EventAncientSample is 'A': an ancient sample activates.
	EventAncientSample EventType = 'A'
	// EventSweep is 's': a sweep onset.
	EventSweep EventType = 's'
	// EventMigRate is 'M': a migration-rate-matrix change.
	EventMigRate EventType = 'M'
)

// Event is the tuple described in §3: (time, type, popID, popID2, popID3,
// size_or_rate, admixProp, lineageNumber). Not every field is meaningful
// for every EventType; see applyEvent in cmd/discoal for per-type
// interpretation.
type Event struct {
	Time EventTime
	Type EventType

	PopID, PopID2, PopID3 int

	// SizeOrRate holds the population-size multiplier for EventPopSize, the
	// migration rate for EventMigRate, or is unused otherwise.
	SizeOrRate float64
	// AdmixProp is the admixture proportion from PopID2, for EventAdmix.
	AdmixProp float64
	// LineageNumber is the ancient-sample count, for EventAncientSample.
	LineageNumber int
}

// EventTime is a coalescent time in units of 2N0 generations (§6).
type EventTime = float64
