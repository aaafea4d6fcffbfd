package state

import (
	"sort"
	"sync"

	"github.com/doridoridoriand/netsav-go/internal/config"
)

const defaultHistorySize = 60

// StoreImpl is a thread-safe in-memory state store.
type StoreImpl struct {
	mu          sync.RWMutex
	targets     map[string]*TargetStatus
	historySize int
}

// NewStore creates a store initialized with the provided targets.
func NewStore(targets []config.TargetConfig) *StoreImpl {
	store := &StoreImpl{
		targets:     make(map[string]*TargetStatus),
		historySize: defaultHistorySize,
	}
	store.UpdateTargets(targets)
	return store
}

// UpdateTargets updates the target list, keeping history for existing targets.
func (s *StoreImpl) UpdateTargets(targets []config.TargetConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := make(map[string]*TargetStatus, len(targets))
	for _, tgt := range targets {
		if existing, ok := s.targets[tgt.Name]; ok {
			existing.Address = tgt.Address
			existing.Port = tgt.Port
			existing.Reference = tgt.Reference
			updated[tgt.Name] = existing
			continue
		}
		updated[tgt.Name] = &TargetStatus{
			Name:      tgt.Name,
			Address:   tgt.Address,
			Port:      tgt.Port,
			Reference: tgt.Reference,
			State:     Unknown,
			Remaining: tgt.Interval,
		}
	}

	s.targets = updated
}

// RecordCycle stores the outcome of a completed poll cycle.
func (s *StoreImpl) RecordCycle(name string, point CyclePoint) {
	s.mu.Lock()
	defer s.mu.Unlock()

	target, ok := s.targets[name]
	if !ok {
		target = &TargetStatus{Name: name, State: Unknown}
		s.targets[name] = target
	}

	if target.State != point.State {
		target.LastChangeAt = point.Time
	}
	target.State = point.State
	target.LastCycleAt = point.Time
	target.Cycles++
	target.TotalAttempts += point.Attempts
	target.TotalSuccesses += point.Successes
	target.LastAttempts = point.Attempts
	target.LastSuccesses = point.Successes
	s.appendHistory(target, point)
}

// RecordSkip counts a cycle suspended by the reference quorum.
func (s *StoreImpl) RecordSkip(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if target, ok := s.targets[name]; ok {
		target.SkippedCycles++
	}
}

// SetRemaining updates the countdown to the next cycle.
func (s *StoreImpl) SetRemaining(name string, remaining int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if target, ok := s.targets[name]; ok {
		target.Remaining = remaining
	}
}

// GetSnapshot returns a copy of all target states sorted by name.
func (s *StoreImpl) GetSnapshot() []TargetStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]TargetStatus, 0, len(s.targets))
	for _, target := range s.targets {
		result = append(result, copyTargetStatus(target))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}

// GetTargetStatus returns a copy of a single target status.
func (s *StoreImpl) GetTargetStatus(name string) (TargetStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	target, ok := s.targets[name]
	if !ok {
		return TargetStatus{}, false
	}
	return copyTargetStatus(target), true
}

func (s *StoreImpl) appendHistory(target *TargetStatus, point CyclePoint) {
	if s.historySize <= 0 {
		return
	}
	if len(target.History) < s.historySize {
		target.History = append(target.History, point)
		return
	}
	copy(target.History, target.History[1:])
	target.History[len(target.History)-1] = point
}

func copyTargetStatus(source *TargetStatus) TargetStatus {
	clone := *source
	if len(source.History) > 0 {
		clone.History = append([]CyclePoint(nil), source.History...)
	}
	return clone
}
