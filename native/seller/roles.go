package seller

// RankOf returns the rank held by account, RankNone when it never held one.
func (e *Engine) RankOf(account [20]byte) (Rank, error) {
	if err := e.ready(); err != nil {
		return RankNone, err
	}
	rank, ok, err := e.state.SellerRankGet(e.self, account)
	if err != nil {
		return RankNone, err
	}
	if !ok {
		return RankNone, nil
	}
	return rank, nil
}

func (e *Engine) requireRank(caller [20]byte, min Rank) error {
	rank, err := e.RankOf(caller)
	if err != nil {
		return err
	}
	if !rank.Satisfies(min) {
		return ErrUnauthorized
	}
	return nil
}

// GrantRank sets target's rank. Only full-rank callers may grant, and a
// full-rank target can never be changed again.
func (e *Engine) GrantRank(caller, target [20]byte, rank Rank) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.requireRank(caller, RankFull); err != nil {
		return err
	}
	if !rank.Valid() {
		return ErrInvalidRank
	}
	current, err := e.RankOf(target)
	if err != nil {
		return err
	}
	if current == RankFull {
		return ErrProtectedAccount
	}
	if err := e.state.SellerRankPut(e.self, target, rank); err != nil {
		return err
	}
	e.emit(RankGrantedEvent(e.self, caller, target, rank))
	return nil
}
