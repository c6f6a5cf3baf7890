package rotation

import (
	"math"
	"sort"
	"sync"
	"time"

	"market-rotator/src/logger"
	"market-rotator/src/models"
	"market-rotator/src/utils"
)

// -----------------------------------------------------------------------------
// Constants
// -----------------------------------------------------------------------------

const (
	// DefaultRotationInterval drives groups with no configured cadence.
	DefaultRotationInterval = 21 * time.Second

	// Selection history is trimmed to the most recent 50 entries once it
	// exceeds 100; only fairness lookups read it.
	historyTrimThreshold = 100
	historyTrimTarget    = 50

	// Spotlight overrides require at least this signal priority.
	spotlightPriority = 7

	// Score multiplier applied when the item's venue session is closed and
	// market-hours weighting is enabled.
	closedSessionDamp = 0.25
)

// -----------------------------------------------------------------------------
// Scheduler
//
// Scheduler repeatedly selects which subset of its candidate pool occupies
// the display slots of one group, balancing configured priority,
// anti-repetition fairness, category diversity, time-of-day weighting and
// externally raised signals.
// -----------------------------------------------------------------------------

type Scheduler struct {
	Logger *logger.Logger

	mu       sync.Mutex
	groupID  string
	cfg      models.MSchedulerConfig
	sessions *utils.SessionTracker // optional, nil disables session damping
	now      func() time.Time

	items   []*models.MRotationItem
	history [][]string

	lastSelection []string
	seqIndex      int

	rotationCount     int
	fairnessOverrides int

	spotlightID    string
	spotlightTimer *time.Timer
}

// -----------------------------------------------------------------------------

// NewScheduler creates a scheduler for one display group. sessions may be nil.
func NewScheduler(groupID string, cfg models.MSchedulerConfig, sessions *utils.SessionTracker, log *logger.Logger) *Scheduler {
	if cfg.RotationIntervalSeconds <= 0 {
		cfg.RotationIntervalSeconds = int(DefaultRotationInterval / time.Second)
	}
	return &Scheduler{
		Logger:   log,
		groupID:  groupID,
		cfg:      cfg,
		sessions: sessions,
		now:      time.Now,
	}
}

// -----------------------------------------------------------------------------
// Pool management
// -----------------------------------------------------------------------------

// AddItem adds a candidate to the pool, replacing any item with the same id.
func (s *Scheduler) AddItem(item models.MRotationItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, it := range s.items {
		if it.ID == item.ID {
			copied := item
			s.items[i] = &copied
			return
		}
	}
	copied := item
	s.items = append(s.items, &copied)
}

// -----------------------------------------------------------------------------

// RemoveItem removes a candidate from the pool.
func (s *Scheduler) RemoveItem(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, it := range s.items {
		if it.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			break
		}
	}
	if s.spotlightID == id {
		s.clearSpotlightLocked()
	}
}

// -----------------------------------------------------------------------------
// Selection
// -----------------------------------------------------------------------------

// SelectNextRotation produces the next ordered slot assignment.
func (s *Scheduler) SelectNextRotation() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectLocked()
}

// -----------------------------------------------------------------------------

func (s *Scheduler) selectLocked() []string {
	slots := s.cfg.FixedSlots + s.cfg.SpotlightSlots
	s.rotationCount++

	if slots <= 0 || len(s.items) == 0 {
		// Display layers always receive a rotation, even an empty one.
		s.lastSelection = []string{}
		s.seqIndex = 0
		return []string{}
	}

	now := s.now()

	// 1. Advisory fairness filter: never leaves slots unfilled.
	candidates := s.fairnessFilterLocked(slots)

	// 2-3. Score and order.
	part, hasPart := activeDayPart(s.cfg.DayParts, now.Hour())
	scores := make(map[string]float64, len(candidates))
	for _, it := range candidates {
		scores[it.ID] = s.scoreLocked(it, part, hasPart, now)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return scores[candidates[i].ID] > scores[candidates[j].ID]
	})

	selected := make([]*models.MRotationItem, 0, slots)
	used := make(map[string]bool, slots)

	// 4. Spotlight override claims the first slot regardless of score.
	if s.spotlightID != "" {
		if it := s.findLocked(s.spotlightID); it != nil {
			selected = append(selected, it)
			used[it.ID] = true
		}
	}

	// 5. Pinned items first, then the diversity-reordered remainder.
	for _, it := range candidates {
		if len(selected) >= slots {
			break
		}
		if it.Pinned && !used[it.ID] {
			selected = append(selected, it)
			used[it.ID] = true
		}
	}
	if s.cfg.SectorDiversity {
		seen := make(map[models.Category]bool)
		for _, it := range selected {
			seen[it.Category] = true
		}
		for _, it := range candidates {
			if len(selected) >= slots {
				break
			}
			if used[it.ID] || seen[it.Category] {
				continue
			}
			selected = append(selected, it)
			used[it.ID] = true
			seen[it.Category] = true
		}
	}
	for _, it := range candidates {
		if len(selected) >= slots {
			break
		}
		if !used[it.ID] {
			selected = append(selected, it)
			used[it.ID] = true
		}
	}

	// 6. Stamp and record.
	ids := make([]string, len(selected))
	for i, it := range selected {
		it.LastShown = now
		it.ShowCount++
		ids[i] = it.ID
	}

	s.history = append(s.history, ids)
	if len(s.history) > historyTrimThreshold {
		s.history = s.history[len(s.history)-historyTrimTarget:]
	}
	s.lastSelection = ids
	s.seqIndex = 0
	return append([]string(nil), ids...)
}

// -----------------------------------------------------------------------------

// fairnessFilterLocked excludes items shown within the fairness window. The
// filter is advisory: when it would leave fewer candidates than slots, the
// recently shown items are appended back (after the fresh ones) so slots are
// never left unfilled, and the override counter records that the filter was
// bypassed.
func (s *Scheduler) fairnessFilterLocked(slots int) []*models.MRotationItem {
	window := s.cfg.FairnessWindow
	if window < 0 {
		window = 0
	}
	if window > len(s.history) {
		window = len(s.history)
	}

	excluded := make(map[string]bool)
	for _, sel := range s.history[len(s.history)-window:] {
		for _, id := range sel {
			excluded[id] = true
		}
	}

	candidates := make([]*models.MRotationItem, 0, len(s.items))
	recent := make([]*models.MRotationItem, 0, len(excluded))
	for _, it := range s.items {
		if excluded[it.ID] {
			recent = append(recent, it)
		} else {
			candidates = append(candidates, it)
		}
	}

	if len(candidates) >= slots || len(recent) == 0 {
		return candidates
	}
	s.fairnessOverrides++
	return append(candidates, recent...)
}

// -----------------------------------------------------------------------------

// scoreLocked computes the priority score of one candidate.
func (s *Scheduler) scoreLocked(it *models.MRotationItem, part models.MDayPartConfig, hasPart bool, now time.Time) float64 {
	score := it.BaseWeight

	if hasPart {
		if m, ok := part.Weights[it.Category]; ok {
			score *= m
		}
		if containsSymbol(part.PrioritySymbols, it.Symbol) {
			score *= 1.5
		}
	}

	// Fairness boost: grows with time off-screen, capped at 2.
	intervalMs := float64(s.cfg.RotationIntervalSeconds) * 1000
	boost := 2.0
	if !it.LastShown.IsZero() {
		since := float64(now.Sub(it.LastShown).Milliseconds())
		boost = math.Min(2, since/(10*intervalMs))
	}
	score *= boost

	// Frequency penalty: heavily shown items decay toward half weight.
	score *= math.Max(0.5, 1-float64(it.ShowCount)/100)

	if it.SignalActive {
		score *= 10
	}
	if it.Pinned {
		score *= 2
	}
	if s.cfg.MarketHoursWeighting && s.sessions != nil && !s.sessions.IsOpen(it.Category, now) {
		score *= closedSessionDamp
	}
	return score
}

// -----------------------------------------------------------------------------

func (s *Scheduler) findLocked(id string) *models.MRotationItem {
	for _, it := range s.items {
		if it.ID == id {
			return it
		}
	}
	return nil
}

// -----------------------------------------------------------------------------
// Sequencing
// -----------------------------------------------------------------------------

// GetNextInSequence cycles through the most recent selection one item at a
// time, computing a selection first if none exists yet. Returns "" only when
// the pool cannot produce a selection.
func (s *Scheduler) GetNextInSequence() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.lastSelection) == 0 {
		s.selectLocked()
	}
	if len(s.lastSelection) == 0 {
		return ""
	}

	id := s.lastSelection[s.seqIndex%len(s.lastSelection)]
	s.seqIndex++
	return id
}

// -----------------------------------------------------------------------------
// Signals
// -----------------------------------------------------------------------------

// RegisterSignal marks the first matching pool item as signal-active. A
// priority >= 7 signal also installs a spotlight override that self-clears
// after the signal's duration unless the override has changed identity.
func (s *Scheduler) RegisterSignal(sig models.MMarketSignal) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var target *models.MRotationItem
	for _, it := range s.items {
		if it.Symbol == sig.Symbol {
			target = it
			break
		}
	}
	if target == nil {
		s.Logger.Debug("Signal for %s matches no item in group %s", sig.Symbol, s.groupID)
		return
	}

	target.SignalActive = true
	s.Logger.Info("Signal on %s (priority %d) in group %s", sig.Symbol, sig.Priority, s.groupID)

	if sig.Priority >= spotlightPriority {
		s.setSpotlightLocked(target.ID, time.Duration(sig.DurationMs)*time.Millisecond)
	}
}

// -----------------------------------------------------------------------------

func (s *Scheduler) setSpotlightLocked(id string, ttl time.Duration) {
	if s.spotlightTimer != nil {
		s.spotlightTimer.Stop()
	}
	s.spotlightID = id
	s.spotlightTimer = time.AfterFunc(ttl, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.spotlightID == id {
			s.spotlightID = ""
			s.spotlightTimer = nil
		}
	})
}

// -----------------------------------------------------------------------------

func (s *Scheduler) clearSpotlightLocked() {
	if s.spotlightTimer != nil {
		s.spotlightTimer.Stop()
		s.spotlightTimer = nil
	}
	s.spotlightID = ""
}

// -----------------------------------------------------------------------------

// ClearSignal unmarks every item matching the symbol and removes a spotlight
// override referencing one of them.
func (s *Scheduler) ClearSignal(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, it := range s.items {
		if it.Symbol == symbol {
			it.SignalActive = false
			if s.spotlightID == it.ID {
				s.clearSpotlightLocked()
			}
		}
	}
}

// -----------------------------------------------------------------------------
// Maintenance
// -----------------------------------------------------------------------------

// ForceRefresh recomputes the current selection immediately.
func (s *Scheduler) ForceRefresh() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectLocked()
}

// -----------------------------------------------------------------------------

// UpdateConfig merges a partial configuration update; nil fields keep their
// current value.
func (s *Scheduler) UpdateConfig(update models.MSchedulerConfigUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if update.FixedSlots != nil {
		s.cfg.FixedSlots = *update.FixedSlots
	}
	if update.SpotlightSlots != nil {
		s.cfg.SpotlightSlots = *update.SpotlightSlots
	}
	if update.RotationIntervalSeconds != nil && *update.RotationIntervalSeconds > 0 {
		s.cfg.RotationIntervalSeconds = *update.RotationIntervalSeconds
	}
	if update.FairnessWindow != nil && *update.FairnessWindow >= 0 {
		s.cfg.FairnessWindow = *update.FairnessWindow
	}
	if update.SectorDiversity != nil {
		s.cfg.SectorDiversity = *update.SectorDiversity
	}
	if update.MarketHoursWeighting != nil {
		s.cfg.MarketHoursWeighting = *update.MarketHoursWeighting
	}
	if update.DayParts != nil {
		s.cfg.DayParts = append([]models.MDayPartConfig(nil), (*update.DayParts)...)
	}
}

// -----------------------------------------------------------------------------

// Config returns a copy of the current configuration.
func (s *Scheduler) Config() models.MSchedulerConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg := s.cfg
	cfg.DayParts = append([]models.MDayPartConfig(nil), s.cfg.DayParts...)
	return cfg
}

// -----------------------------------------------------------------------------

// Reset zeroes per-item counters, history and signal effects, leaving the
// pool intact.
func (s *Scheduler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, it := range s.items {
		it.LastShown = time.Time{}
		it.ShowCount = 0
		it.SignalActive = false
	}
	s.history = nil
	s.lastSelection = nil
	s.seqIndex = 0
	s.rotationCount = 0
	s.fairnessOverrides = 0
	s.clearSpotlightLocked()
}

// -----------------------------------------------------------------------------

// Stats returns the observable scheduler state.
func (s *Scheduler) Stats() models.MRotationStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[string]int, len(s.items))
	signals := []string{}
	for _, it := range s.items {
		counts[it.ID] = it.ShowCount
		if it.SignalActive {
			signals = append(signals, it.Symbol)
		}
	}

	part, hasPart := activeDayPart(s.cfg.DayParts, s.now().Hour())
	partName := ""
	if hasPart {
		partName = part.Name
	}

	return models.MRotationStats{
		PoolSize:          len(s.items),
		RotationCount:     s.rotationCount,
		FairnessOverrides: s.fairnessOverrides,
		ActiveSignals:     signals,
		SpotlightItem:     s.spotlightID,
		CurrentDayPart:    partName,
		ShowCounts:        counts,
		LastSelection:     append([]string(nil), s.lastSelection...),
	}
}
