package crawler

// State is a step of a site crawl.
type State int

const (
	// StateIdle is the state of a spider that has not started.
	StateIdle State = iota

	// StateFetchingSeed is entered when the seed URL is requested.
	StateFetchingSeed

	// StateExtractingSeed is entered once the seed page was fetched; its
	// emails and subpage links are collected.
	StateExtractingSeed

	// StateDraining is entered while frontier URLs are visited.
	StateDraining

	// StateDone is terminal: the frontier or the budget is exhausted, the
	// seed could not be fetched, or the context was cancelled.
	StateDone
)

// String returns the state name used in logs.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetchingSeed:
		return "fetching_seed"
	case StateExtractingSeed:
		return "extracting_seed"
	case StateDraining:
		return "draining"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}
