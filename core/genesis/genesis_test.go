package genesis

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"sellerchain/core/events"
	"sellerchain/core/state"
	"sellerchain/crypto"
	"sellerchain/native/seller"
	"sellerchain/native/token"
	"sellerchain/storage"
	"sellerchain/storage/trie"
)

const sampleGenesis = `
chain_id: 7
accounts:
  - address: "0x1111111111111111111111111111111111111111"
    balance: "1000000"
tokens:
  - address: "0x7070707070707070707070707070707070707070"
    owner: "0x1111111111111111111111111111111111111111"
    name: Custody
    symbol: cst
    decimals: 18
    allocations:
      - holder: "0x5e5e5e5e5e5e5e5e5e5e5e5e5e5e5e5e5e5e5e5e"
        amount: "1000"
sellers:
  - address: "0x5e5e5e5e5e5e5e5e5e5e5e5e5e5e5e5e5e5e5e5e"
    owner: "0x1111111111111111111111111111111111111111"
    custody_token: "0x7070707070707070707070707070707070707070"
    price: "2"
    reward:
      numerator: "1"
      denominator: "2"
    ranks:
      - account: "0x2222222222222222222222222222222222222222"
        rank: 2
`

func newManager(t *testing.T) *state.Manager {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	tr, err := trie.NewTrie(db, nil)
	require.NoError(t, err)
	return state.NewManager(tr)
}

func TestLoadAndApply(t *testing.T) {
	path := filepath.Join(t.TempDir(), "genesis.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleGenesis), 0o600))

	spec, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, uint64(7), spec.ChainID)

	mgr := newManager(t)
	buf := &events.Buffer{}
	require.NoError(t, Apply(mgr, spec, buf))

	funded, _ := crypto.ParseAddress("0x1111111111111111111111111111111111111111")
	acc, err := mgr.GetAccount(funded[:])
	require.NoError(t, err)
	require.Equal(t, int64(1_000_000), acc.Balance.Int64())

	sellerAddr, _ := crypto.ParseAddress(spec.Sellers[0].Address)
	tokenAddr, _ := crypto.ParseAddress(spec.Tokens[0].Address)
	kind, err := mgr.ContractKind(sellerAddr)
	require.NoError(t, err)
	require.Equal(t, state.ContractSeller, kind)

	ledger := token.NewLedger(tokenAddr)
	ledger.SetState(mgr)
	meta, err := ledger.Metadata()
	require.NoError(t, err)
	require.Equal(t, "CST", meta.Symbol)
	custody, err := ledger.BalanceOf(sellerAddr)
	require.NoError(t, err)
	require.Equal(t, uint64(1000), custody.Uint64())

	engine := seller.NewEngine(sellerAddr)
	engine.SetState(mgr)
	price, err := engine.Price()
	require.NoError(t, err)
	require.Equal(t, int64(2), price.Int64())
	fraction, err := engine.RewardFraction()
	require.NoError(t, err)
	require.Equal(t, int64(2), fraction.Denominator.Int64())
	ref, err := engine.CustodyToken()
	require.NoError(t, err)
	require.Equal(t, tokenAddr, ref)

	operator, _ := crypto.ParseAddress("0x2222222222222222222222222222222222222222")
	rank, err := engine.RankOf(operator)
	require.NoError(t, err)
	require.Equal(t, seller.RankWithdraw, rank)
	rank, err = engine.RankOf(funded)
	require.NoError(t, err)
	require.Equal(t, seller.RankFull, rank)

	require.NotZero(t, buf.Len())
	version, ok, err := mgr.StateVersion()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, state.StateVersion, version)
}

func TestParseRejectsInvalidDocuments(t *testing.T) {
	cases := map[string]string{
		"unknown field": "chain_id: 1\nvalidators: []\n",
		"no chain id":   "accounts: []\n",
		"bad balance":   "chain_id: 1\naccounts:\n  - address: \"0x1111111111111111111111111111111111111111\"\n    balance: \"-4\"\n",
		"zero denominator": `chain_id: 1
sellers:
  - address: "0x5e5e5e5e5e5e5e5e5e5e5e5e5e5e5e5e5e5e5e5e"
    owner: "0x1111111111111111111111111111111111111111"
    reward: {numerator: "1", denominator: "0"}
`,
		"invalid rank": `chain_id: 1
sellers:
  - address: "0x5e5e5e5e5e5e5e5e5e5e5e5e5e5e5e5e5e5e5e5e"
    owner: "0x1111111111111111111111111111111111111111"
    ranks: [{account: "0x2222222222222222222222222222222222222222", rank: 4}]
`,
		"duplicate contract": `chain_id: 1
tokens:
  - {address: "0x5e5e5e5e5e5e5e5e5e5e5e5e5e5e5e5e5e5e5e5e", owner: "0x1111111111111111111111111111111111111111", name: A, symbol: A}
sellers:
  - {address: "0x5e5e5e5e5e5e5e5e5e5e5e5e5e5e5e5e5e5e5e5e", owner: "0x1111111111111111111111111111111111111111"}
`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			require.Error(t, err)
		})
	}
}

func TestSellerDefaultsWithoutOverrides(t *testing.T) {
	spec, err := Parse([]byte(`chain_id: 1
sellers:
  - address: "0x5e5e5e5e5e5e5e5e5e5e5e5e5e5e5e5e5e5e5e5e"
    owner: "0x1111111111111111111111111111111111111111"
`))
	require.NoError(t, err)
	mgr := newManager(t)
	require.NoError(t, Apply(mgr, spec, nil))

	addr, _ := crypto.ParseAddress(spec.Sellers[0].Address)
	engine := seller.NewEngine(addr)
	engine.SetState(mgr)
	ref, err := engine.CustodyToken()
	require.NoError(t, err)
	require.Equal(t, seller.DefaultCustodyToken, ref)
	price, err := engine.Price()
	require.NoError(t, err)
	require.Zero(t, price.Sign())
}

func TestExampleGenesisIsValid(t *testing.T) {
	spec, err := Load(filepath.Join("..", "..", "deploy", "genesis.example.yaml"))
	require.NoError(t, err)
	require.Len(t, spec.Sellers, 1)
	require.Equal(t, "0xc2807533832807bf15898778d8a108405e9edfb1", spec.Tokens[0].Address)
}
