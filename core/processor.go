package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"sellerchain/core/events"
	"sellerchain/core/gas"
	"sellerchain/core/state"
	"sellerchain/core/types"
	"sellerchain/native/seller"
	"sellerchain/native/token"
)

// NativeAsset labels native currency movements in transfer events.
const NativeAsset = "NATIVE"

var tracer trace.Tracer = otel.Tracer("sellerchain/core")

// StateProcessor executes transactions against a state manager. Every
// transaction either applies all of its effects or, on failure, only the
// nonce increment and the gas fee.
type StateProcessor struct {
	state    *state.Manager
	chainID  uint64
	schedule gas.Schedule
	logger   *slog.Logger
}

// NewStateProcessor constructs a processor over manager.
func NewStateProcessor(manager *state.Manager, chainID uint64, schedule gas.Schedule, logger *slog.Logger) (*StateProcessor, error) {
	if manager == nil {
		return nil, fmt.Errorf("core: state manager required")
	}
	if err := schedule.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StateProcessor{state: manager, chainID: chainID, schedule: schedule, logger: logger}, nil
}

// State exposes the underlying manager.
func (sp *StateProcessor) State() *state.Manager { return sp.state }

// ChainID returns the chain identifier transactions must carry.
func (sp *StateProcessor) ChainID() uint64 { return sp.chainID }

// Schedule returns the gas schedule in force.
func (sp *StateProcessor) Schedule() gas.Schedule { return sp.schedule }

// ApplyTransaction validates and executes tx at the given height. A non-nil
// error means the transaction was rejected and state is untouched. Execution
// failures are reported through the receipt instead.
func (sp *StateProcessor) ApplyTransaction(ctx context.Context, tx *types.Transaction, height uint64) (*types.Receipt, error) {
	_, span := tracer.Start(ctx, "core.ApplyTransaction", trace.WithAttributes(attribute.Int64("height", int64(height))))
	defer span.End()

	receipt, err := sp.applyTransaction(tx, height)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.Int64("gas_used", int64(receipt.GasUsed)),
		attribute.String("error_code", receipt.ErrorCode),
	)
	return receipt, nil
}

func (sp *StateProcessor) applyTransaction(tx *types.Transaction, height uint64) (*types.Receipt, error) {
	if tx == nil {
		return nil, fmt.Errorf("core: nil transaction")
	}
	fromBytes, err := tx.From()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	var from [20]byte
	copy(from[:], fromBytes)
	if tx.ChainID != sp.chainID {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrChainIDMismatch, tx.ChainID, sp.chainID)
	}
	if len(tx.To) != 0 && len(tx.To) != 20 {
		return nil, fmt.Errorf("%w: got %d bytes", ErrInvalidRecipient, len(tx.To))
	}
	value := bigOrZero(tx.Value)
	price := bigOrZero(tx.GasPrice)
	if value.Sign() < 0 || price.Sign() < 0 {
		return nil, ErrInvalidAmount
	}
	intrinsic, err := sp.schedule.Intrinsic(tx.Data)
	if err != nil {
		return nil, err
	}
	if tx.GasLimit < intrinsic {
		return nil, fmt.Errorf("%w: limit %d, need %d", ErrIntrinsicGas, tx.GasLimit, intrinsic)
	}
	txHash, err := tx.ID()
	if err != nil {
		return nil, err
	}

	sender, err := sp.state.GetAccount(from[:])
	if err != nil {
		return nil, err
	}
	if tx.Nonce != sender.Nonce {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrNonceMismatch, tx.Nonce, sender.Nonce)
	}
	gasBudget := new(big.Int).Mul(new(big.Int).SetUint64(tx.GasLimit), price)
	if sender.Balance.Cmp(new(big.Int).Add(value, gasBudget)) < 0 {
		return nil, ErrInsufficientFunds
	}

	// Buy gas and consume the nonce. Neither is undone by a failed execution.
	sender.Balance = new(big.Int).Sub(sender.Balance, gasBudget)
	sender.Nonce++
	if err := sp.state.PutAccount(from[:], sender); err != nil {
		return nil, err
	}

	meter := gas.NewMeter(sp.schedule, tx.GasLimit, intrinsic)
	buf := &events.Buffer{}
	snap := sp.state.Snapshot()
	out, execErr := sp.execute(from, tx, value, txHash, meter, buf)
	if execErr != nil {
		if err := sp.state.RevertToSnapshot(snap); err != nil {
			return nil, fmt.Errorf("core: revert failed execution: %w", err)
		}
		buf.Reset()
	}

	used := meter.Used()
	refund := new(big.Int).Mul(new(big.Int).SetUint64(tx.GasLimit-used), price)
	if refund.Sign() > 0 {
		if err := sp.state.AddBalance(from[:], refund); err != nil {
			return nil, err
		}
	}
	sp.state.DiscardSnapshots()
	fee := new(big.Int).Mul(new(big.Int).SetUint64(used), price)

	receipt := &types.Receipt{
		TxHash:      txHash,
		BlockNumber: height,
		From:        append([]byte(nil), from[:]...),
		To:          append([]byte(nil), tx.To...),
		GasUsed:     used,
		Fee:         fee.String(),
		Events:      buf.Events(),
	}
	if out != nil && out.contract != nil {
		receipt.ContractAddress = append([]byte(nil), out.contract[:]...)
	}
	if execErr != nil {
		receipt.Status = types.ReceiptStatusFailed
		receipt.ErrorCode = ErrorCode(execErr)
		receipt.Error = execErr.Error()
		receipt.ContractAddress = nil
		sp.logger.Debug("transaction failed",
			slog.String("tx", fmt.Sprintf("%x", txHash)),
			slog.String("code", receipt.ErrorCode),
			slog.Uint64("gas_used", used))
	} else {
		receipt.Status = types.ReceiptStatusSuccess
		if out != nil {
			receipt.Return = out.ret
		}
	}
	return receipt, nil
}

type execOutput struct {
	ret      []byte
	contract *[20]byte
}

func (sp *StateProcessor) execute(from [20]byte, tx *types.Transaction, value *big.Int, txHash []byte, meter *gas.Meter, sink events.Emitter) (*execOutput, error) {
	emitter := &meteredEmitter{next: sink, meter: meter}
	ms := newMeteredState(sp.state, meter)

	var (
		out *execOutput
		err error
	)
	if tx.IsDeployment() {
		out, err = sp.deploy(from, tx.Nonce, tx.Data, value, ms, emitter)
	} else {
		var to [20]byte
		copy(to[:], tx.To)
		var ret []byte
		ret, err = sp.call(from, to, tx.Data, value, txHash, ms, meter, emitter)
		out = &execOutput{ret: ret}
	}
	if err == nil && emitter.err != nil {
		err = emitter.err
	}
	return out, err
}

func (sp *StateProcessor) deploy(from [20]byte, nonce uint64, data []byte, value *big.Int, ms *meteredState, emitter events.Emitter) (*execOutput, error) {
	if value.Sign() != 0 {
		return nil, ErrDeploymentNotPayable
	}
	payload, err := DecodeDeploy(data)
	if err != nil {
		return nil, err
	}
	addr := ContractAddress(from, nonce)
	kind := state.ContractKind(payload.Kind)
	if err := ms.SetContractKind(addr, kind); err != nil {
		return nil, err
	}
	switch kind {
	case state.ContractSeller:
		engine := seller.NewEngine(addr)
		engine.SetState(ms)
		engine.SetEmitter(emitter)
		if err := engine.Initialize(from); err != nil {
			return nil, err
		}
	case state.ContractToken:
		ledger := token.NewLedger(addr)
		ledger.SetState(ms)
		ledger.SetEmitter(emitter)
		allocations := []token.Allocation{{Holder: from, Amount: payload.Supply}}
		if _, err := ledger.Deploy(from, payload.Name, payload.Symbol, payload.Decimals, allocations); err != nil {
			return nil, err
		}
	}
	return &execOutput{contract: &addr}, nil
}

// call routes a message by the kind of its destination. Resolving the route
// is covered by the intrinsic cost, and so is a plain transfer including its
// event.
func (sp *StateProcessor) call(from, to [20]byte, data []byte, value *big.Int, txHash []byte, ms *meteredState, meter *gas.Meter, emitter *meteredEmitter) ([]byte, error) {
	kind, err := sp.state.ContractKind(to)
	if err != nil {
		return nil, err
	}
	switch kind {
	case state.ContractSeller:
		engine := seller.NewEngine(to)
		engine.SetState(ms)
		engine.SetEmitter(emitter)
		engine.SetTokenResolver(&tokenResolver{state: ms, emitter: emitter, meter: meter})
		return engine.Dispatch(from, data, value)
	case state.ContractToken:
		ledger := token.NewLedger(to)
		ledger.SetState(ms)
		ledger.SetEmitter(emitter)
		return ledger.Dispatch(from, data, value)
	default:
		if err := sp.transfer(from, to, value); err != nil {
			return nil, err
		}
		var hash [32]byte
		copy(hash[:], txHash)
		emitter.next.Emit(events.Transfer{Asset: NativeAsset, From: from, To: to, Amount: new(big.Int).Set(value), TxHash: hash})
		return nil, nil
	}
}

func (sp *StateProcessor) transfer(from, to [20]byte, value *big.Int) error {
	if value.Sign() == 0 || from == to {
		return nil
	}
	if err := sp.state.AddBalance(from[:], new(big.Int).Neg(value)); err != nil {
		return fmt.Errorf("%w: %v", ErrInsufficientFunds, err)
	}
	return sp.state.AddBalance(to[:], value)
}

// CallResult reports the outcome of a read-only call.
type CallResult struct {
	Return    []byte
	GasUsed   uint64
	ErrorCode string
	Err       error
}

// Call executes a message without a signature, nonce or fee and reverts
// every effect afterwards. Callers that must not disturb the canonical state
// run it on a processor over a copied manager.
func (sp *StateProcessor) Call(ctx context.Context, from, to [20]byte, data []byte, value *big.Int, gasLimit uint64) (*CallResult, error) {
	_, span := tracer.Start(ctx, "core.Call")
	defer span.End()

	value = bigOrZero(value)
	if value.Sign() < 0 {
		return nil, ErrInvalidAmount
	}
	intrinsic, err := sp.schedule.Intrinsic(data)
	if err != nil {
		return nil, err
	}
	if gasLimit < intrinsic {
		return nil, fmt.Errorf("%w: limit %d, need %d", ErrIntrinsicGas, gasLimit, intrinsic)
	}
	meter := gas.NewMeter(sp.schedule, gasLimit, intrinsic)
	snap := sp.state.Snapshot()
	defer sp.state.DiscardSnapshots()

	emitter := &meteredEmitter{next: events.NoopEmitter{}, meter: meter}
	ms := newMeteredState(sp.state, meter)
	ret, execErr := sp.call(from, to, data, value, nil, ms, meter, emitter)
	if execErr == nil {
		execErr = emitter.err
	}
	if err := sp.state.RevertToSnapshot(snap); err != nil {
		return nil, err
	}
	result := &CallResult{Return: ret, GasUsed: meter.Used(), Err: execErr}
	if execErr != nil {
		result.Return = nil
		result.ErrorCode = ErrorCode(execErr)
		span.SetStatus(codes.Error, execErr.Error())
	}
	return result, nil
}

// ErrorCode maps an execution failure onto the stable identifier stored in
// receipts.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	if code := seller.Code(err); code != "internal" {
		return code
	}
	switch {
	case errors.Is(err, token.ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, token.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, token.ErrInvalidMetadata):
		return "invalid_metadata"
	case errors.Is(err, token.ErrNotPayable), errors.Is(err, ErrDeploymentNotPayable):
		return "not_payable"
	case errors.Is(err, token.ErrUnknownMethod):
		return "unknown_method"
	case errors.Is(err, token.ErrInvalidInput), errors.Is(err, ErrInvalidDeployment):
		return "invalid_input"
	case errors.Is(err, token.ErrNotDeployed):
		return "not_deployed"
	case errors.Is(err, token.ErrAlreadyDeployed):
		return "already_deployed"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrNotContract):
		return "not_contract"
	}
	return "internal"
}

func bigOrZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v
}
