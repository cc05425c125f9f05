package consensus

// Entry pairs a participant with its vote. Rotation order is the seating
// order provided at the boundary; everything that iterates participants
// preserves it so outputs stay deterministic.
type Entry struct {
	Address Address
	Vote    Vote
}

// Rotation is a single election attempt. The first entry is the elected
// leader when the rotation has one.
type Rotation struct {
	Entries []Entry
}

func (r Rotation) Empty() bool {
	return len(r.Entries) == 0
}

// Leader returns the rotation's first entry.
func (r Rotation) Leader() (Entry, bool) {
	if r.Empty() {
		return Entry{}, false
	}
	return r.Entries[0], true
}

// LeaderAction returns the action of the rotation's leader, or
// NoLeaderAction when the rotation is empty or leaderless.
func (r Rotation) LeaderAction() LeaderAction {
	leader, ok := r.Leader()
	if !ok {
		return NoLeaderAction
	}
	return leader.Vote.Action
}

// Vote looks up the vote cast by addr in this rotation.
func (r Rotation) Vote(addr Address) (Vote, bool) {
	for _, e := range r.Entries {
		if e.Address == addr {
			return e.Vote, true
		}
	}
	return Vote{}, false
}

// Addresses returns the participants in seating order.
func (r Rotation) Addresses() []Address {
	addrs := make([]Address, len(r.Entries))
	for i, e := range r.Entries {
		addrs[i] = e.Address
	}
	return addrs
}

// Round is an ordered sequence of rotations for one election. The last
// rotation is the one labeling and distribution inspect; earlier rotations
// are re-elections.
type Round struct {
	Rotations []Rotation
}

// Last returns the round's deciding rotation, or an empty rotation when
// the round has none.
func (r Round) Last() Rotation {
	if len(r.Rotations) == 0 {
		return Rotation{}
	}
	return r.Rotations[len(r.Rotations)-1]
}
