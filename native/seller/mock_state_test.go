package seller

import (
	"errors"
	"math/big"

	"github.com/holiman/uint256"

	"sellerchain/core/types"
)

type mockSnapshot struct {
	configs  map[[20]byte]*Config
	ranks    map[[40]byte]Rank
	holders  map[[20]byte][][20]byte
	accounts map[[20]byte]*types.Account
	locks    map[string]bool
	tokens   map[[20]byte]map[[20]byte]*uint256.Int
}

type mockState struct {
	configs  map[[20]byte]*Config
	ranks    map[[40]byte]Rank
	holders  map[[20]byte][][20]byte
	accounts map[[20]byte]*types.Account
	locks    map[string]bool
	// tokens holds the balances of every mockToken sharing this state so that
	// reverting a snapshot also reverts custody transfers.
	tokens    map[[20]byte]map[[20]byte]*uint256.Int
	snapshots []mockSnapshot
}

func newMockState() *mockState {
	return &mockState{
		configs:  make(map[[20]byte]*Config),
		ranks:    make(map[[40]byte]Rank),
		holders:  make(map[[20]byte][][20]byte),
		accounts: make(map[[20]byte]*types.Account),
		locks:    make(map[string]bool),
		tokens:   make(map[[20]byte]map[[20]byte]*uint256.Int),
	}
}

func rankKey(contract, holder [20]byte) [40]byte {
	var key [40]byte
	copy(key[:20], contract[:])
	copy(key[20:], holder[:])
	return key
}

func (m *mockState) SellerConfigGet(contract [20]byte) (*Config, bool, error) {
	cfg, ok := m.configs[contract]
	if !ok {
		return nil, false, nil
	}
	return cfg.Clone(), true, nil
}

func (m *mockState) SellerConfigPut(contract [20]byte, cfg *Config) error {
	if cfg == nil {
		return errors.New("nil config")
	}
	m.configs[contract] = cfg.Clone()
	return nil
}

func (m *mockState) SellerRankGet(contract, holder [20]byte) (Rank, bool, error) {
	rank, ok := m.ranks[rankKey(contract, holder)]
	return rank, ok, nil
}

func (m *mockState) SellerRankPut(contract, holder [20]byte, rank Rank) error {
	key := rankKey(contract, holder)
	if _, ok := m.ranks[key]; !ok {
		m.holders[contract] = append(m.holders[contract], holder)
	}
	m.ranks[key] = rank
	return nil
}

func (m *mockState) SellerRankHolders(contract [20]byte) ([][20]byte, error) {
	return append([][20]byte(nil), m.holders[contract]...), nil
}

func (m *mockState) GetAccount(addr []byte) (*types.Account, error) {
	var key [20]byte
	copy(key[:], addr)
	acc, ok := m.accounts[key]
	if !ok {
		return types.EnsureAccount(nil), nil
	}
	return acc.Clone(), nil
}

func (m *mockState) PutAccount(addr []byte, account *types.Account) error {
	var key [20]byte
	copy(key[:], addr)
	m.accounts[key] = account.Clone()
	return nil
}

func (m *mockState) LockHeld(key []byte) (bool, error) { return m.locks[string(key)], nil }

func (m *mockState) SetLock(key []byte, held bool) error {
	if held {
		m.locks[string(key)] = true
	} else {
		delete(m.locks, string(key))
	}
	return nil
}

func (m *mockState) capture() mockSnapshot {
	snap := mockSnapshot{
		configs:  make(map[[20]byte]*Config, len(m.configs)),
		ranks:    make(map[[40]byte]Rank, len(m.ranks)),
		holders:  make(map[[20]byte][][20]byte, len(m.holders)),
		accounts: make(map[[20]byte]*types.Account, len(m.accounts)),
		locks:    make(map[string]bool, len(m.locks)),
		tokens:   make(map[[20]byte]map[[20]byte]*uint256.Int, len(m.tokens)),
	}
	for k, v := range m.configs {
		snap.configs[k] = v.Clone()
	}
	for k, v := range m.ranks {
		snap.ranks[k] = v
	}
	for k, v := range m.holders {
		snap.holders[k] = append([][20]byte(nil), v...)
	}
	for k, v := range m.accounts {
		snap.accounts[k] = v.Clone()
	}
	for k, v := range m.locks {
		snap.locks[k] = v
	}
	for token, balances := range m.tokens {
		copied := make(map[[20]byte]*uint256.Int, len(balances))
		for holder, amount := range balances {
			copied[holder] = new(uint256.Int).Set(amount)
		}
		snap.tokens[token] = copied
	}
	return snap
}

func (m *mockState) Snapshot() int {
	m.snapshots = append(m.snapshots, m.capture())
	return len(m.snapshots) - 1
}

func (m *mockState) RevertToSnapshot(id int) error {
	if id < 0 || id >= len(m.snapshots) {
		return errors.New("unknown snapshot")
	}
	snap := m.snapshots[id]
	m.configs = snap.configs
	m.ranks = snap.ranks
	m.holders = snap.holders
	m.accounts = snap.accounts
	m.locks = snap.locks
	m.tokens = snap.tokens
	m.snapshots = m.snapshots[:id]
	return nil
}

func (m *mockState) balance(addr [20]byte) *big.Int {
	acc, _ := m.GetAccount(addr[:])
	return new(big.Int).Set(acc.Balance)
}

func (m *mockState) fund(addr [20]byte, amount int64) {
	_ = m.PutAccount(addr[:], &types.Account{Balance: big.NewInt(amount)})
}

// mockToken is an in-memory custody token whose balances live in mockState.
type mockToken struct {
	state   *mockState
	address [20]byte
	// refuse makes Transfer report failure without an error.
	refuse bool
	// failErr makes Transfer return the error.
	failErr error
	// onTransfer runs before a transfer is applied.
	onTransfer func(to [20]byte, amount *uint256.Int)
	transfers  int
}

func (t *mockToken) balances() map[[20]byte]*uint256.Int {
	b, ok := t.state.tokens[t.address]
	if !ok {
		b = make(map[[20]byte]*uint256.Int)
		t.state.tokens[t.address] = b
	}
	return b
}

func (t *mockToken) mint(to [20]byte, amount uint64) {
	b := t.balances()
	current := b[to]
	if current == nil {
		current = new(uint256.Int)
	}
	b[to] = new(uint256.Int).Add(current, uint256.NewInt(amount))
}

func (t *mockToken) balanceOf(addr [20]byte) uint64 {
	v := t.balances()[addr]
	if v == nil {
		return 0
	}
	return v.Uint64()
}

// bound returns a CustodyToken acting on behalf of from.
func (t *mockToken) bound(from [20]byte) CustodyToken { return &boundToken{token: t, from: from} }

type boundToken struct {
	token *mockToken
	from  [20]byte
}

func (b *boundToken) BalanceOf(account [20]byte) (*uint256.Int, error) {
	v := b.token.balances()[account]
	if v == nil {
		return new(uint256.Int), nil
	}
	return new(uint256.Int).Set(v), nil
}

func (b *boundToken) Transfer(to [20]byte, amount *uint256.Int) (bool, error) {
	t := b.token
	t.transfers++
	if t.onTransfer != nil {
		t.onTransfer(to, amount)
	}
	if t.failErr != nil {
		return false, t.failErr
	}
	if t.refuse {
		return false, nil
	}
	balances := t.balances()
	from := balances[b.from]
	if from == nil || from.Lt(amount) {
		return false, nil
	}
	balances[b.from] = new(uint256.Int).Sub(from, amount)
	dest := balances[to]
	if dest == nil {
		dest = new(uint256.Int)
	}
	balances[to] = new(uint256.Int).Add(dest, amount)
	return true, nil
}

type mockResolver struct {
	tokens map[[20]byte]*mockToken
}

func (r *mockResolver) Resolve(ref, caller [20]byte) (CustodyToken, error) {
	token, ok := r.tokens[ref]
	if !ok {
		return nil, errors.New("token not deployed")
	}
	return token.bound(caller), nil
}
