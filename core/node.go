package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"

	"sellerchain/core/events"
	"sellerchain/core/gas"
	"sellerchain/core/genesis"
	"sellerchain/core/state"
	"sellerchain/core/types"
	"sellerchain/native/seller"
	"sellerchain/native/token"
	"sellerchain/observability"
	"sellerchain/observability/metrics"
	"sellerchain/storage"
	"sellerchain/storage/trie"
)

var headKey = []byte("sellerchain/head")

// DefaultCallGasCap bounds read-only calls that do not name a gas limit.
const DefaultCallGasCap = 10_000_000

// ReceiptStore persists executed receipts.
type ReceiptStore interface {
	Put(receipt *types.Receipt) error
	Get(hash []byte) (*types.Receipt, error)
	Delete(hash []byte) error
}

// NodeConfig carries the settings a node is constructed with.
type NodeConfig struct {
	ChainID    uint64
	Schedule   gas.Schedule
	Genesis    *genesis.Spec
	CallGasCap uint64
	Logger     *slog.Logger
}

type head struct {
	Root   common.Hash
	Height uint64
}

// Node owns the state and applies transactions one at a time. Every applied
// transaction is committed as its own block, so the chain is a single
// sequential log.
type Node struct {
	mu         sync.Mutex
	db         storage.Database
	trie       *trie.Trie
	state      *state.Manager
	processor  *StateProcessor
	receipts   ReceiptStore
	feed       *events.ReceiptFeed
	head       head
	callGasCap uint64
	logger     *slog.Logger
}

// NewNode opens the state recorded in db, initialising it from the genesis
// document when db is empty.
func NewNode(db storage.Database, receipts ReceiptStore, cfg NodeConfig) (*Node, error) {
	if db == nil {
		return nil, fmt.Errorf("core: database required")
	}
	if receipts == nil {
		return nil, fmt.Errorf("core: receipt store required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	callCap := cfg.CallGasCap
	if callCap == 0 {
		callCap = DefaultCallGasCap
	}

	current, found, err := loadHead(db)
	if err != nil {
		return nil, err
	}
	var root []byte
	if found {
		root = current.Root.Bytes()
	}
	tr, err := trie.NewTrie(db, root)
	if err != nil {
		return nil, fmt.Errorf("core: open state: %w", err)
	}
	manager := state.NewManager(tr)

	if !found {
		if cfg.Genesis == nil {
			return nil, fmt.Errorf("core: empty database and no genesis")
		}
		if cfg.Genesis.ChainID != 0 && cfg.Genesis.ChainID != cfg.ChainID {
			return nil, fmt.Errorf("core: genesis chain id %d does not match %d", cfg.Genesis.ChainID, cfg.ChainID)
		}
		if err := genesis.Apply(manager, cfg.Genesis, nil); err != nil {
			return nil, fmt.Errorf("core: apply genesis: %w", err)
		}
		genesisRoot, err := manager.Commit(common.Hash{}, 0)
		if err != nil {
			return nil, fmt.Errorf("core: commit genesis: %w", err)
		}
		current = head{Root: genesisRoot}
		if err := storeHead(db, current); err != nil {
			return nil, err
		}
		logger.Info("initialised genesis state", slog.String("root", genesisRoot.Hex()))
	} else if _, ok, err := manager.StateVersion(); err != nil {
		return nil, err
	} else if !ok {
		return nil, fmt.Errorf("core: state at %s carries no version", current.Root.Hex())
	}

	processor, err := NewStateProcessor(manager, cfg.ChainID, cfg.Schedule, logger)
	if err != nil {
		return nil, err
	}
	return &Node{
		db:         db,
		trie:       tr,
		state:      manager,
		processor:  processor,
		receipts:   receipts,
		feed:       events.NewReceiptFeed(),
		head:       current,
		callGasCap: callCap,
		logger:     logger,
	}, nil
}

func loadHead(db storage.Database) (head, bool, error) {
	raw, err := db.Get(headKey)
	if errors.Is(err, storage.ErrNotFound) {
		return head{}, false, nil
	}
	if err != nil {
		return head{}, false, fmt.Errorf("core: load head: %w", err)
	}
	var h head
	if err := rlp.DecodeBytes(raw, &h); err != nil {
		return head{}, false, fmt.Errorf("core: decode head: %w", err)
	}
	return h, true, nil
}

func storeHead(db storage.Database, h head) error {
	raw, err := rlp.EncodeToBytes(&h)
	if err != nil {
		return err
	}
	return db.Put(headKey, raw)
}

// SubmitTransaction applies tx on top of the current head and commits it.
// Rejected transactions return an error and leave the chain unchanged.
func (n *Node) SubmitTransaction(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	start := time.Now()
	height := n.head.Height + 1
	receipt, err := n.processor.ApplyTransaction(ctx, tx, height)
	if err != nil {
		if resetErr := n.trie.Reset(n.head.Root); resetErr != nil {
			return nil, errors.Join(err, fmt.Errorf("core: reset state: %w", resetErr))
		}
		observability.Chain().RecordRejected(rejectReason(err))
		return nil, err
	}

	root, err := n.state.Commit(n.head.Root, height)
	if err != nil {
		_ = n.trie.Reset(n.head.Root)
		return nil, fmt.Errorf("core: commit height %d: %w", height, err)
	}
	next := head{Root: root, Height: height}
	if err := n.receipts.Put(receipt); err != nil {
		_ = n.trie.Reset(n.head.Root)
		return nil, fmt.Errorf("core: store receipt: %w", err)
	}
	if err := storeHead(n.db, next); err != nil {
		err = fmt.Errorf("core: store head: %w", err)
		if delErr := n.receipts.Delete(receipt.TxHash); delErr != nil {
			err = errors.Join(err, fmt.Errorf("core: drop receipt: %w", delErr))
		}
		if resetErr := n.trie.Reset(n.head.Root); resetErr != nil {
			err = errors.Join(err, fmt.Errorf("core: reset state: %w", resetErr))
		}
		return nil, err
	}
	n.head = next

	fee, _ := new(big.Int).SetString(receipt.Fee, 10)
	observability.Chain().RecordApplied(height, receipt.Succeeded(), fee, time.Since(start))
	observability.Events().Observe(receipt.Events)
	if n.isSeller(receipt.To) {
		metrics.Seller().ObserveReceipt(receipt)
	}
	n.logger.Info("transaction committed",
		slog.Uint64("height", height),
		slog.String("tx", fmt.Sprintf("0x%x", receipt.TxHash)),
		slog.Bool("success", receipt.Succeeded()),
		slog.String("code", receipt.ErrorCode),
		slog.Uint64("gas_used", receipt.GasUsed))
	n.feed.Publish(receipt)
	return receipt, nil
}

func (n *Node) isSeller(to []byte) bool {
	if len(to) != 20 {
		return false
	}
	var addr [20]byte
	copy(addr[:], to)
	kind, err := n.state.ContractKind(addr)
	return err == nil && kind == state.ContractSeller
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, ErrInvalidSignature):
		return "signature"
	case errors.Is(err, ErrChainIDMismatch):
		return "chain_id"
	case errors.Is(err, ErrNonceMismatch):
		return "nonce"
	case errors.Is(err, ErrIntrinsicGas):
		return "intrinsic_gas"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrInvalidRecipient), errors.Is(err, ErrInvalidAmount):
		return "malformed"
	default:
		return "internal"
	}
}

// Call executes a read-only message against a copy of the current state.
// A zero gasLimit uses the node's call cap.
func (n *Node) Call(ctx context.Context, from, to [20]byte, data []byte, value *big.Int, gasLimit uint64) (*CallResult, error) {
	n.mu.Lock()
	scratch := n.state.Copy()
	n.mu.Unlock()

	if gasLimit == 0 || gasLimit > n.callGasCap {
		gasLimit = n.callGasCap
	}
	processor, err := NewStateProcessor(scratch, n.processor.ChainID(), n.processor.Schedule(), n.logger)
	if err != nil {
		return nil, err
	}
	return processor.Call(ctx, from, to, data, value, gasLimit)
}

// SubscribeReceipts registers a receipt subscriber.
func (n *Node) SubscribeReceipts(buffer int) (<-chan *types.Receipt, func()) {
	return n.feed.Subscribe(buffer)
}

// ChainID returns the chain identifier.
func (n *Node) ChainID() uint64 { return n.processor.ChainID() }

// Schedule returns the gas schedule in force.
func (n *Node) Schedule() gas.Schedule { return n.processor.Schedule() }

// Height returns the height of the last committed transaction.
func (n *Node) Height() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.head.Height
}

// Root returns the committed state root.
func (n *Node) Root() common.Hash {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.head.Root
}

// Account returns the native account of addr.
func (n *Node) Account(addr [20]byte) (*types.Account, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state.GetAccount(addr[:])
}

// ContractKind reports which module serves addr.
func (n *Node) ContractKind(addr [20]byte) (state.ContractKind, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state.ContractKind(addr)
}

// TokenBalance returns holder's balance on the token at tokenAddr.
func (n *Node) TokenBalance(tokenAddr, holder [20]byte) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	ledger, err := n.ledger(tokenAddr)
	if err != nil {
		return nil, err
	}
	balance, err := ledger.BalanceOf(holder)
	if err != nil {
		return nil, err
	}
	return balance.ToBig(), nil
}

// TokenMetadata returns the metadata of the token at tokenAddr.
func (n *Node) TokenMetadata(tokenAddr [20]byte) (*token.Metadata, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	ledger, err := n.ledger(tokenAddr)
	if err != nil {
		return nil, err
	}
	return ledger.Metadata()
}

func (n *Node) ledger(addr [20]byte) (*token.Ledger, error) {
	kind, err := n.state.ContractKind(addr)
	if err != nil {
		return nil, err
	}
	if kind != state.ContractToken {
		return nil, fmt.Errorf("%w: %x", ErrNotContract, addr)
	}
	ledger := token.NewLedger(addr)
	ledger.SetState(n.state)
	return ledger, nil
}

// SellerSummary returns every readable attribute of the seller at addr.
func (n *Node) SellerSummary(addr [20]byte) (*seller.Summary, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	kind, err := n.state.ContractKind(addr)
	if err != nil {
		return nil, err
	}
	if kind != state.ContractSeller {
		return nil, fmt.Errorf("%w: %x", ErrNotContract, addr)
	}
	engine := seller.NewEngine(addr)
	engine.SetState(n.state)
	engine.SetTokenResolver(&tokenResolver{state: newMeteredState(n.state, nil)})
	return engine.Summary()
}

// Receipt returns the stored receipt for hash.
func (n *Node) Receipt(hash []byte) (*types.Receipt, error) {
	receipt, err := n.receipts.Get(hash)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnknownReceipt, err)
	}
	return receipt, nil
}
