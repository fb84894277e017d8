package crawler

// frontier is the FIFO queue of discovered URLs awaiting a visit.
// It belongs to a single crawl run and is not safe for concurrent use.
type frontier struct {
	items []string
}

func newFrontier() *frontier {
	return &frontier{items: make([]string, 0)}
}

// push appends links in order. Duplicates are allowed; the visited set
// filters them when they are popped.
func (f *frontier) push(links ...string) {
	f.items = append(f.items, links...)
}

// pop removes and returns the oldest URL.
func (f *frontier) pop() (string, bool) {
	if len(f.items) == 0 {
		return "", false
	}
	next := f.items[0]
	f.items = f.items[1:]
	return next, true
}

func (f *frontier) len() int {
	return len(f.items)
}

// visitedSet records URLs already fetched in a crawl run.
// It only grows and is the sole dedup authority within a job.
type visitedSet map[string]struct{}

func (v visitedSet) contains(u string) bool {
	_, ok := v[u]
	return ok
}

func (v visitedSet) add(u string) {
	v[u] = struct{}{}
}
