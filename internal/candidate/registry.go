package candidate

import (
	"cmp"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"rmbloat/internal/bloat"
	"rmbloat/internal/probe"
)

var (
	// ErrUnknown is returned for paths the registry does not track.
	ErrUnknown = errors.New("unknown candidate")
	// ErrNotSelectable is returned when a candidate cannot be selected.
	ErrNotSelectable = errors.New("candidate not selectable")
	// ErrNotSelected is returned when Begin targets an unselected candidate.
	ErrNotSelected = errors.New("candidate not selected")
	// ErrSlotsBusy is returned when every concurrency slot is occupied.
	ErrSlotsBusy = errors.New("no free job slot")
	// ErrNotRunning is returned when completing a candidate that is not in progress.
	ErrNotRunning = errors.New("candidate not in progress")
)

// OutcomeKind classifies a finished job.
type OutcomeKind uint8

const (
	OutcomeOK OutcomeKind = iota + 1
	OutcomeShort
	OutcomeFailed
)

// Outcome is what a finished job reports back to the registry.
type Outcome struct {
	Kind       OutcomeKind
	ResultSize int64
	NewPath    string
	Reason     string
}

// Totals are aggregate counters over every candidate.
type Totals struct {
	Count         int
	Visible       int
	Picked        int
	TotalBytes    int64
	SelectedBytes int64
	NetDelta      int64
	Converted     int
	Short         int
	Failed        int
	Running       int
}

// Registry is the authoritative set of candidates for one run.
type Registry struct {
	mu     sync.Mutex
	items  map[string]*Candidate
	policy bloat.Policy
	filter string
	slots  int
}

// NewRegistry creates an empty registry. slots bounds concurrent IN_PROGRESS
// candidates and defaults to 1.
func NewRegistry(policy bloat.Policy, slots int) *Registry {
	if slots <= 0 {
		slots = 1
	}
	return &Registry{
		items:  make(map[string]*Candidate),
		policy: policy,
		slots:  slots,
	}
}

// Add registers path as UNPROBED. It returns false when the resolved path is
// already tracked.
func (r *Registry) Add(path string) (bool, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false, fmt.Errorf("resolve %s: %w", path, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[abs]; ok {
		return false, nil
	}
	c := &Candidate{
		Path:         abs,
		NeverConvert: NeverConvert(abs),
		rest:         Status{State: StateUnprobed},
	}
	c.refresh()
	r.items[abs] = c
	return true, nil
}

// Restore seeds persisted failure counters before the first probe of a run.
func (r *Registry) Restore(path string, probeFailures, convertFailures int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[path]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknown, path)
	}
	c.ProbeFailures = saturate(probeFailures)
	c.ConvertFailures = saturate(convertFailures)
	return nil
}

// RecordProbe stores a successful probe, resets the probe failure counter,
// and applies the default selection.
func (r *Registry) RecordProbe(path string, fp probe.Fingerprint, result probe.Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[path]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknown, path)
	}
	res := result
	c.Fingerprint = fp
	c.Probe = &res
	c.Score = bloat.Evaluate(res, r.policy)
	c.ProbeFailures = 0
	if c.ConvertFailures > 0 {
		c.rest = Status{State: StateConvertFailed, Count: c.ConvertFailures}
	} else {
		c.rest = Status{State: StateProbed}
	}
	c.Selected = c.DefaultSelected()
	c.refresh()
	return nil
}

// RecordProbeFailure increments the saturating probe failure counter and
// returns the new count. The candidate keeps no probe result.
func (r *Registry) RecordProbeFailure(path string, fp probe.Fingerprint) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[path]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknown, path)
	}
	c.Fingerprint = fp
	c.Probe = nil
	c.Score = bloat.Score{}
	c.ProbeFailures = saturate(c.ProbeFailures + 1)
	c.rest = Status{State: StateProbeFailed, Count: c.ProbeFailures}
	c.Selected = false
	c.refresh()
	return c.ProbeFailures, nil
}

// SetPolicy rescores every probed candidate.
func (r *Registry) SetPolicy(policy bloat.Policy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.policy = policy
	for _, c := range r.items {
		if c.Probe != nil {
			c.Score = bloat.Evaluate(*c.Probe, policy)
		}
	}
}

// Get returns a copy of the candidate at path.
func (r *Registry) Get(path string) (Candidate, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[path]
	if !ok {
		return Candidate{}, false
	}
	return *c, true
}

// Len returns the number of tracked candidates.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// Paths returns every tracked path in ranked order.
func (r *Registry) Paths() []string {
	ranked := r.Ranked()
	paths := make([]string, len(ranked))
	for i, c := range ranked {
		paths[i] = c.Path
	}
	return paths
}

// Select marks a candidate selected.
func (r *Registry) Select(path string) error {
	return r.setSelected(path, true)
}

// Deselect clears a candidate's selection.
func (r *Registry) Deselect(path string) error {
	return r.setSelected(path, false)
}

// Toggle flips the selection and returns the new value.
func (r *Registry) Toggle(path string) (bool, error) {
	r.mu.Lock()
	c, ok := r.items[path]
	if !ok {
		r.mu.Unlock()
		return false, fmt.Errorf("%w: %s", ErrUnknown, path)
	}
	want := !c.Selected
	r.mu.Unlock()
	if err := r.setSelected(path, want); err != nil {
		return false, err
	}
	return want, nil
}

func (r *Registry) setSelected(path string, selected bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[path]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknown, path)
	}
	if c.running {
		return fmt.Errorf("%w: %s is in progress", ErrNotSelectable, path)
	}
	if selected && !c.Selectable() {
		return fmt.Errorf("%w: %s is %s", ErrNotSelectable, path, c.Status)
	}
	c.Selected = selected
	c.refresh()
	return nil
}

// SelectAllEligible selects every visible selectable candidate and returns
// how many changed.
func (r *Registry) SelectAllEligible() int {
	return r.applyVisible(func(c *Candidate) bool { return c.Selectable() })
}

// DeselectAll clears the selection of every visible candidate.
func (r *Registry) DeselectAll() int {
	return r.applyVisible(func(*Candidate) bool { return false })
}

// ResetToDefault re-derives the policy selection for every visible candidate.
func (r *Registry) ResetToDefault() int {
	return r.applyVisible(func(c *Candidate) bool { return c.DefaultSelected() })
}

func (r *Registry) applyVisible(want func(*Candidate) bool) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	changed := 0
	for _, c := range r.items {
		if c.running || !r.visibleLocked(c) {
			continue
		}
		next := want(c)
		if next != c.Selected {
			c.Selected = next
			c.refresh()
			changed++
		}
	}
	return changed
}

// SetFilter restricts visibility to paths containing pattern, ignoring case.
// An empty pattern shows everything.
func (r *Registry) SetFilter(pattern string) {
	r.mu.Lock()
	r.filter = strings.ToLower(strings.TrimSpace(pattern))
	r.mu.Unlock()
}

// Filter returns the active filter pattern.
func (r *Registry) Filter() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filter
}

func (r *Registry) visibleLocked(c *Candidate) bool {
	return r.filter == "" || strings.Contains(strings.ToLower(c.Path), r.filter)
}

// Ranked returns every candidate sorted by bloat descending, ties broken by
// path. Unprobed candidates sort last.
func (r *Registry) Ranked() []Candidate {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rankedLocked(false)
}

// Visible returns the ranked candidates matching the active filter.
func (r *Registry) Visible() []Candidate {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rankedLocked(true)
}

func (r *Registry) rankedLocked(visibleOnly bool) []Candidate {
	out := make([]Candidate, 0, len(r.items))
	for _, c := range r.items {
		if visibleOnly && !r.visibleLocked(c) {
			continue
		}
		out = append(out, *c)
	}
	slices.SortFunc(out, compareRank)
	return out
}

func compareRank(a, b Candidate) int {
	if a.Probed() != b.Probed() {
		if a.Probed() {
			return -1
		}
		return 1
	}
	if c := cmp.Compare(b.Bloat(), a.Bloat()); c != 0 {
		return c
	}
	return cmp.Compare(a.Path, b.Path)
}

// NextSelected returns the highest-ranked visible SELECTED candidate.
func (r *Registry) NextSelected() (Candidate, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.rankedLocked(true) {
		if c.Status.State == StateSelected {
			return c, true
		}
	}
	return Candidate{}, false
}

// Begin moves a SELECTED candidate to IN_PROGRESS when a slot is free.
func (r *Registry) Begin(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[path]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknown, path)
	}
	if c.Status.State != StateSelected {
		return fmt.Errorf("%w: %s is %s", ErrNotSelected, path, c.Status)
	}
	if r.runningLocked() >= r.slots {
		return ErrSlotsBusy
	}
	c.running = true
	c.refresh()
	return nil
}

func (r *Registry) runningLocked() int {
	n := 0
	for _, c := range r.items {
		if c.running {
			n++
		}
	}
	return n
}

// Complete applies a job outcome to an IN_PROGRESS candidate.
func (r *Registry) Complete(path string, outcome Outcome) (Candidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[path]
	if !ok {
		return Candidate{}, fmt.Errorf("%w: %s", ErrUnknown, path)
	}
	if !c.running {
		return Candidate{}, fmt.Errorf("%w: %s", ErrNotRunning, path)
	}
	c.running = false
	c.Selected = false
	c.Reason = outcome.Reason
	switch outcome.Kind {
	case OutcomeOK:
		c.ConvertFailures = 0
		c.ResultSize = outcome.ResultSize
		c.NewPath = outcome.NewPath
		c.rest = Status{State: StateConvertedOK}
	case OutcomeShort:
		c.ResultSize = outcome.ResultSize
		c.rest = Status{State: StateConvertedShort}
	default:
		c.ConvertFailures = saturate(c.ConvertFailures + 1)
		c.rest = Status{State: StateConvertFailed, Count: c.ConvertFailures}
	}
	c.refresh()
	return *c, nil
}

// Abort returns an IN_PROGRESS candidate to SELECTED without touching its
// counters.
func (r *Registry) Abort(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[path]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknown, path)
	}
	if !c.running {
		return nil
	}
	c.running = false
	c.Selected = true
	c.refresh()
	return nil
}

// Retire removes a candidate from the run, typically because its file
// vanished. It reports whether the path was tracked.
func (r *Registry) Retire(path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[path]; !ok {
		return false
	}
	delete(r.items, path)
	return true
}

// Totals computes aggregate counters.
func (r *Registry) Totals() Totals {
	r.mu.Lock()
	defer r.mu.Unlock()
	var t Totals
	for _, c := range r.items {
		t.Count++
		size := c.SizeBytes()
		t.TotalBytes += size
		if r.visibleLocked(c) {
			t.Visible++
		}
		if c.Selected {
			t.Picked++
			t.SelectedBytes += size
		}
		if c.running {
			t.Running++
		}
		switch c.rest.State {
		case StateConvertedOK:
			t.Converted++
			t.NetDelta += c.ResultSize - size
		case StateConvertedShort:
			t.Short++
		case StateConvertFailed:
			t.Failed++
		}
	}
	return t
}
