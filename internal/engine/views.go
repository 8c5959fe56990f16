package engine

import (
	"time"

	"github.com/google/uuid"

	"github.com/talgya/radiowar/internal/diplomacy"
	"github.com/talgya/radiowar/internal/elimination"
	"github.com/talgya/radiowar/internal/locale"
	"github.com/talgya/radiowar/internal/social"
	"github.com/talgya/radiowar/internal/territory"
	"github.com/talgya/radiowar/internal/victory"
)

// Status is the headline view of the session.
type Status struct {
	Round        string             `json:"round"`
	StartedAt    time.Time          `json:"started_at"`
	Ended        bool               `json:"ended"`
	Stations     int                `json:"stations"`
	Alive        []social.Frequency `json:"alive"`
	Locked       []social.Frequency `json:"locked"`
	Countdown    victory.Countdown  `json:"countdown"`
	Participants int                `json:"participants"`
}

// FactionView is one round-start faction with its current standing.
type FactionView struct {
	Frequency social.Frequency   `json:"frequency"`
	Name      string             `json:"name"`
	Roles     []string           `json:"roles"`
	Stations  int                `json:"stations"`
	State     elimination.State  `json:"state"`
	Allies    []social.Frequency `json:"allies"`
}

// AlliancesView exposes the ledger and its blocs.
type AlliancesView struct {
	Entries map[social.Frequency][]social.Frequency `json:"entries"`
	Blocs   [][]social.Frequency                    `json:"blocs"`
}

// Summary is the end-of-round report.
type Summary struct {
	Round      string             `json:"round"`
	Total      int                `json:"total"`
	Captured   int                `json:"captured"`
	Leader     social.Frequency   `json:"leader,omitempty"`
	LeaderName string             `json:"leader_name,omitempty"`
	Allies     []social.Frequency `json:"allies,omitempty"`
	Lines      []string           `json:"lines"`
	Aborted    bool               `json:"aborted,omitempty"` // Reset before the round was won
}

// RoundRecord is what a reset hands to Options.OnReset about the round it
// discarded.
type RoundRecord struct {
	ID      uuid.UUID
	EndedAt time.Time
	Summary Summary
	Journal []Event
}

// RoundID returns the current round id, uuid.Nil before Start.
func (s *Session) RoundID() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roundID
}

// Ended reports whether the countdown has fired.
func (s *Session) Ended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ended
}

// Directory returns the participant directory notices are addressed from.
func (s *Session) Directory() *social.Directory {
	return s.directory
}

// Status returns the headline view.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		StartedAt:    s.startedAt,
		Ended:        s.ended,
		Stations:     s.registry.Len(),
		Alive:        s.registry.AllAliveFactionFrequencies().Sorted(),
		Locked:       s.tracker.LockedFactions(),
		Countdown:    s.victory.State(),
		Participants: s.directory.Len(),
	}
	if s.roundID != uuid.Nil {
		st.Round = s.roundID.String()
	}
	return st
}

// Stations lists every station in map order.
func (s *Session) Stations() []territory.Station {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.Stations()
}

// Station returns one station.
func (s *Session) Station(id string) (territory.Station, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.Get(id)
}

// Factions lists the round-start factions in roster order.
func (s *Session) Factions() []FactionView {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := s.registry.Summarize().Counts
	out := make([]FactionView, 0, len(s.roster.Frequencies()))
	for _, f := range s.roster.Frequencies() {
		out = append(out, FactionView{
			Frequency: f,
			Name:      s.factionName(f),
			Roles:     s.roster.Roles(f),
			Stations:  counts[f],
			State:     s.tracker.State(f),
			Allies:    s.ledger.Allies(f).Sorted(),
		})
	}
	return out
}

// Alliances returns the ledger entries and connected blocs.
func (s *Session) Alliances() AlliancesView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return AlliancesView{Entries: s.ledger.Entries(), Blocs: s.ledger.Blocs()}
}

// Countdown returns the decisive countdown state.
func (s *Session) Countdown() victory.Countdown {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.victory.State()
}

// Documents lists live diplomatic documents.
func (s *Session) Documents() []diplomacy.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.protocol.Documents()
}

// Items lists treaty items currently in play.
func (s *Session) Items() []diplomacy.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stash.Items()
}

// Summary builds the end-of-round report: station totals, the leading
// faction and its allies.
func (s *Session) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary()
}

func (s *Session) summary() Summary {
	tally := s.registry.Summarize()
	sum := Summary{
		Total:    tally.Total,
		Captured: tally.Captured,
		Leader:   tally.Leader,
	}
	if s.roundID != uuid.Nil {
		sum.Round = s.roundID.String()
	}

	c := s.catalog
	sum.Lines = append(sum.Lines,
		c.Text(locale.KeySummaryCount, tally.Total),
		c.Text(locale.KeyCapturedCount, tally.Captured),
	)
	if tally.Leader == "" {
		return sum
	}

	sum.LeaderName = s.factionName(tally.Leader)
	sum.Lines = append(sum.Lines, c.Text(locale.KeyLeader, sum.LeaderName))

	sum.Allies = s.ledger.Allies(tally.Leader).Sorted()
	if len(sum.Allies) > 0 {
		sum.Lines = append(sum.Lines, c.Text(locale.KeyAlliesInfo, sum.LeaderName))
		for _, a := range sum.Allies {
			sum.Lines = append(sum.Lines, c.Text(locale.KeyAlliesInfoEntry, s.factionName(a)))
		}
	}
	return sum
}
