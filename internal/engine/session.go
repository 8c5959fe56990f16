package engine

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/radiowar/internal/alliance"
	"github.com/talgya/radiowar/internal/config"
	"github.com/talgya/radiowar/internal/diplomacy"
	"github.com/talgya/radiowar/internal/elimination"
	"github.com/talgya/radiowar/internal/locale"
	"github.com/talgya/radiowar/internal/notify"
	"github.com/talgya/radiowar/internal/social"
	"github.com/talgya/radiowar/internal/territory"
	"github.com/talgya/radiowar/internal/victory"
	"github.com/talgya/radiowar/internal/world"
)

// Options configures a Session. Zero fields get defaults.
type Options struct {
	Clock     func() time.Time  // Default time.Now
	Notifier  notify.Notifier   // Default notify.Log
	Directory *social.Directory // Connected participants; default empty
	Catalog   *locale.Catalog   // Default en-US

	// OnReset receives the round discarded by Reset. It runs under the
	// session lock and must not call back into the Session.
	OnReset func(RoundRecord)
}

// Session is the explicit owner of all per-round state. Every exported
// method takes the session lock, so HTTP handlers and the tick loop observe
// one logical timeline.
type Session struct {
	eventLog

	mu        sync.Mutex
	clock     func() time.Time
	notifier  notify.Notifier
	directory *social.Directory
	catalog   *locale.Catalog
	onReset   func(RoundRecord)

	roundID   uuid.UUID
	startedAt time.Time
	ended     bool

	roster   *social.Roster
	registry *territory.Registry
	ledger   *alliance.Ledger
	stash    *diplomacy.Stash
	protocol *diplomacy.Protocol
	tracker  *elimination.Tracker
	victory  *victory.Evaluator
}

// NewSession creates an empty session. Call Start to load a round.
func NewSession(opts Options) *Session {
	s := &Session{
		clock:     opts.Clock,
		notifier:  opts.Notifier,
		directory: opts.Directory,
		catalog:   opts.Catalog,
		onReset:   opts.OnReset,
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	if s.notifier == nil {
		s.notifier = notify.Log{}
	}
	if s.directory == nil {
		s.directory = social.NewDirectory()
	}
	if s.catalog == nil {
		s.catalog = locale.MustLoad(locale.BaseLocale)
	}
	s.reset()
	return s
}

// reset restores every component to its empty default.
func (s *Session) reset() {
	s.roundID = uuid.Nil
	s.startedAt = time.Time{}
	s.ended = false

	s.roster = social.NewRoster(nil)
	s.registry = territory.NewRegistry()
	s.ledger = alliance.NewLedger()
	s.stash = diplomacy.NewStash(nil)
	s.protocol = diplomacy.NewProtocol(s.ledger, s.stash)
	s.protocol.Known = s.knownFaction
	s.tracker = elimination.NewTracker(elimination.DefaultGracePeriod)
	s.victory = victory.NewEvaluator(elimination.DefaultGracePeriod, victory.PolicyStrict)
}

// Start discards the current round and loads setup as a new one. It returns
// the new round id. Elimination and victory are first evaluated on the
// first ownership change, not at load.
func (s *Session) Start(setup config.MapSetup) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reset()
	s.eventLog.clear()
	now := s.clock()
	s.roundID = uuid.New()
	s.startedAt = now

	s.roster = setup.Roster()
	s.stash = diplomacy.NewStash(setup.Items)
	s.protocol = diplomacy.NewProtocol(s.ledger, s.stash)
	s.protocol.Known = s.knownFaction
	s.tracker.SetGracePeriod(setup.GracePeriod())
	s.victory.Configure(setup.Decisive(), setup.Policy(), setup.CaptureEnabled())

	for _, st := range setup.Stations {
		s.addStation(territory.Station{
			ID:       st.ID,
			Name:     st.Name,
			Position: world.HexCoord{Q: st.Q, R: st.R},
			Owner:    st.Frequency,
		})
	}
	names := setup.Names()
	for _, d := range setup.Documents {
		s.addDocument(diplomacy.Document{
			ID:              d.ID,
			Frequency:       d.Frequency,
			Hostile:         d.Hostile,
			TreatyPrototype: d.TreatyPrototype,
			Allies:          d.Allies,
			Names:           names,
		})
	}

	slog.Info("round started",
		"round", s.roundID,
		"factions", len(s.roster.Frequencies()),
		"stations", s.registry.Len(),
		"documents", len(s.protocol.Documents()),
		"grace_period", s.tracker.GracePeriod(),
		"decisive", s.victory.Decisive(),
		"capture_rule", s.victory.Enabled(),
		"bloc_policy", s.victory.Policy(),
	)
	s.emit(Event{Category: CategoryRound, Description: "round started"})
	return s.roundID
}

// AddStation registers a station in the running round.
func (s *Session) AddStation(st territory.Station) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addStation(st)
}

func (s *Session) addStation(st territory.Station) {
	s.registry.Add(st)
}

// AddDocument registers a diplomatic document in the running round.
func (s *Session) AddDocument(d diplomacy.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addDocument(d)
}

func (s *Session) addDocument(d diplomacy.Document) {
	s.protocol.AddDocument(d)
}

// Reset clears the whole session back to defaults. A round that was loaded
// is handed to OnReset, marked aborted unless it had already ended.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.roundID
	var rec *RoundRecord
	if prev != uuid.Nil {
		sum := s.summary()
		sum.Aborted = !s.ended
		rec = &RoundRecord{ID: prev, EndedAt: s.clock(), Summary: sum, Journal: s.Journal()}
	}

	s.reset()
	s.eventLog.clear()
	slog.Info("session reset", "round", prev)
	s.emit(Event{Category: CategoryRound, Description: "session reset"})

	if rec != nil && s.onReset != nil {
		s.onReset(*rec)
	}
}

// ChangeOwnership moves a station to faction f (empty or NeutralFrequency
// makes it neutral) and re-evaluates elimination and the win condition.
func (s *Session) ChangeOwnership(stationID string, f social.Frequency) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.changeOwnership(stationID, f)
}

func (s *Session) changeOwnership(stationID string, f social.Frequency) error {
	if s.ended {
		return ErrSessionEnded
	}
	if f == "" {
		f = territory.NeutralFrequency
	}
	if f != territory.NeutralFrequency {
		if !s.roster.Has(f) {
			return fmt.Errorf("%w: %s", ErrUnknownFaction, f)
		}
		if s.tracker.Locked(f) {
			return fmt.Errorf("%w: %s", ErrFactionLocked, f)
		}
	}

	prev, ok := s.registry.SetOwner(stationID, f)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownStation, stationID)
	}
	if prev != f {
		slog.Info("station captured", "station", stationID, "from", prev, "to", f)
		s.emit(Event{
			Category:    CategoryCapture,
			Description: fmt.Sprintf("%s now broadcasts on %s", stationID, f),
			Faction:     f,
			Station:     stationID,
		})
	}

	s.recompute(s.clock())
	return nil
}

// Reconfigure retunes a station to the first active faction owning one of
// roles and returns that faction.
func (s *Session) Reconfigure(stationID string, roles []string) (social.Frequency, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ended {
		return "", ErrSessionEnded
	}
	if _, ok := s.registry.Get(stationID); !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownStation, stationID)
	}
	f, ok := s.roster.ResolveRoles(roles, s.tracker.Locked)
	if !ok {
		return "", ErrNoEligibleRole
	}
	if err := s.changeOwnership(stationID, f); err != nil {
		return "", err
	}
	return f, nil
}

// recompute runs the elimination pass and then the win-condition pass.
func (s *Session) recompute(now time.Time) {
	alive := s.registry.AllAliveFactionFrequencies()

	for _, tr := range s.tracker.Recompute(s.roster.Frequencies(), alive, now) {
		switch tr.To {
		case elimination.PhaseGrace:
			s.startGrace(tr.Faction)
		case elimination.PhaseActive:
			s.emit(Event{
				Category:    CategoryGrace,
				Description: fmt.Sprintf("%s is back on the air", tr.Faction),
				Faction:     tr.Faction,
			})
		}
	}

	s.evaluate(alive, now)
}

func (s *Session) startGrace(f social.Frequency) {
	d := s.tracker.GracePeriod()
	notice := notify.GraceNotice{
		Faction:    f,
		Duration:   d,
		Recipients: s.directory.WithAnyRole(s.roster.Roles(f)),
		Text:       s.catalog.Text(locale.KeyLastStationLost, wholeMinutes(d)),
	}
	s.notifier.GracePeriodStarted(notice)
	s.emit(Event{
		Category:    CategoryGrace,
		Description: fmt.Sprintf("%s lost its last station", f),
		Faction:     f,
	})
}

func (s *Session) evaluate(alive social.FrequencySet, now time.Time) {
	switch s.victory.Evaluate(alive, s.ledger, now) {
	case victory.Started:
		d := s.victory.Decisive()
		s.notifier.Announce(s.catalog.Text(locale.KeyCountdown, wholeMinutes(d)), d)
		s.emit(Event{Category: CategoryCountdown, Description: "decisive countdown started"})
	case victory.Stopped:
		s.emit(Event{Category: CategoryCountdown, Description: "decisive countdown stopped"})
	}
}

// wholeMinutes rounds d up so a sub-minute period never reads as zero.
func wholeMinutes(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Minute - 1) / time.Minute)
}

// Tick is one sweep of the timed state machines: expired grace periods
// lock their factions, then the countdown fires if due.
func (s *Session) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ended || s.roundID == uuid.Nil {
		return
	}
	now := s.clock()

	locked := s.tracker.Sweep(now)
	for _, f := range locked {
		docs := s.protocol.RetireFaction(f)
		s.emit(Event{
			Category:    CategoryLocked,
			Description: fmt.Sprintf("%s has been eliminated", f),
			Faction:     f,
		})
		slog.Info("faction retired", "faction", f, "documents", docs)
	}
	if len(locked) > 0 {
		s.evaluate(s.registry.AllAliveFactionFrequencies(), now)
	}

	if s.victory.Sweep(now) {
		s.ended = true
		s.emit(Event{Category: CategoryRound, Description: "round over"})
		s.notifier.EndSession()
	}
}

// IssueTreaty hands out a treaty item from a document.
func (s *Session) IssueTreaty(documentID string) (diplomacy.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ended {
		return diplomacy.Outcome{}, ErrSessionEnded
	}
	out := s.protocol.IssueTreaty(documentID)
	if out.Result == diplomacy.ResultIssued {
		s.emit(Event{
			Category:    CategoryTreaty,
			Description: fmt.Sprintf("%s drafted treaty %s", documentID, out.Item.ID),
			Faction:     out.Self,
		})
	}
	return out, nil
}

// FormAlliance applies a treaty item to a document.
func (s *Session) FormAlliance(treatyID, documentID string) (diplomacy.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ended {
		return diplomacy.Outcome{}, ErrSessionEnded
	}
	out := s.protocol.FormAlliance(treatyID, documentID)
	switch out.Result {
	case diplomacy.ResultFormed:
		s.emit(Event{
			Category:    CategoryAlliance,
			Description: fmt.Sprintf("%s and %s signed a treaty", out.Self, out.Other),
			Faction:     out.Self,
		})
	case diplomacy.ResultHostile:
		s.emit(Event{
			Category:    CategoryTreaty,
			Description: fmt.Sprintf("%s burned a treaty from %s", out.Self, out.Other),
			Faction:     out.Self,
		})
	}
	s.evaluate(s.registry.AllAliveFactionFrequencies(), s.clock())
	return out, nil
}

// TerminateAlliance dissolves the alliance between initiator and target.
func (s *Session) TerminateAlliance(initiator, target social.Frequency) (diplomacy.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ended {
		return diplomacy.Outcome{}, ErrSessionEnded
	}
	out := s.protocol.TerminateAlliance(initiator, target)
	if out.Result == diplomacy.ResultTerminated {
		s.emit(Event{
			Category:    CategoryAlliance,
			Description: fmt.Sprintf("%s broke its treaty with %s", initiator, target),
			Faction:     initiator,
		})
	}
	s.evaluate(s.registry.AllAliveFactionFrequencies(), s.clock())
	return out, nil
}

// StationDisplayText is the examine line for a station: the localized name
// of its current owner.
func (s *Session) StationDisplayText(stationID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	owner, ok := s.registry.OwnerOf(stationID)
	if !ok {
		return "", false
	}
	return s.catalog.Text(locale.KeyStationDescription, s.factionName(owner)), true
}

// factionName localizes f: shared document table first, then the roster,
// then the raw frequency.
func (s *Session) factionName(f social.Frequency) string {
	if f == territory.NeutralFrequency || f == "" {
		return s.catalog.Text(locale.KeyNeutral)
	}
	if key, ok := s.protocol.Name(f); ok {
		return s.catalog.Text(key)
	}
	if fa, ok := s.roster.Get(f); ok && fa.NameKey != "" {
		return s.catalog.Text(fa.NameKey)
	}
	return string(f)
}

// knownFaction gates treaty frequencies: round-start factions that are not
// eliminated.
func (s *Session) knownFaction(f social.Frequency) bool {
	return s.roster.Has(f) && !s.tracker.Locked(f)
}

func (s *Session) emit(e Event) {
	e.Time = s.clock()
	if s.roundID != uuid.Nil {
		e.Round = s.roundID.String()
	}
	s.EmitEvent(e)
}
