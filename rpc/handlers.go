package rpc

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"

	"sellerchain/core"
	"sellerchain/core/types"
	"sellerchain/crypto"
	"sellerchain/observability"
)

func paramString(req *RPCRequest, index int, name string) (string, *methodError) {
	if len(req.Params) <= index {
		return "", invalidParams(name+" parameter required", nil)
	}
	var value string
	if err := json.Unmarshal(req.Params[index], &value); err != nil {
		return "", invalidParams("invalid "+name+" parameter", err.Error())
	}
	return value, nil
}

func paramAddress(req *RPCRequest, index int, name string) ([20]byte, *methodError) {
	raw, mErr := paramString(req, index, name)
	if mErr != nil {
		return [20]byte{}, mErr
	}
	addr, err := crypto.ParseAddress(raw)
	if err != nil {
		return [20]byte{}, invalidParams("invalid "+name+" address", err.Error())
	}
	return addr, nil
}

func (s *Server) handleChainInfo(_ *http.Request, _ *RPCRequest) (interface{}, *methodError) {
	return &ChainInfoResult{
		ChainID: s.backend.ChainID(),
		Height:  s.backend.Height(),
		Root:    s.backend.Root().Hex(),
	}, nil
}

func (s *Server) handleGetAccount(_ *http.Request, req *RPCRequest) (interface{}, *methodError) {
	addr, mErr := paramAddress(req, 0, "account")
	if mErr != nil {
		return nil, mErr
	}
	account, err := s.backend.Account(addr)
	if err != nil {
		return nil, serverError("failed to load account", err)
	}
	kind, err := s.backend.ContractKind(addr)
	if err != nil {
		return nil, serverError("failed to load contract kind", err)
	}
	account = types.EnsureAccount(account)
	return &AccountResult{
		Address: hexAddr(addr[:]),
		Balance: amountString(account.Balance),
		Nonce:   account.Nonce,
		Kind:    kind.String(),
	}, nil
}

func (s *Server) handleGetSeller(_ *http.Request, req *RPCRequest) (interface{}, *methodError) {
	addr, mErr := paramAddress(req, 0, "seller")
	if mErr != nil {
		return nil, mErr
	}
	summary, err := s.backend.SellerSummary(addr)
	if errors.Is(err, core.ErrNotContract) {
		return nil, notFound("seller not found", hexAddr(addr[:]))
	}
	if err != nil {
		return nil, serverError("failed to load seller", err)
	}
	return sellerResult(summary), nil
}

func (s *Server) handleGetToken(_ *http.Request, req *RPCRequest) (interface{}, *methodError) {
	addr, mErr := paramAddress(req, 0, "token")
	if mErr != nil {
		return nil, mErr
	}
	meta, err := s.backend.TokenMetadata(addr)
	if errors.Is(err, core.ErrNotContract) {
		return nil, notFound("token not found", hexAddr(addr[:]))
	}
	if err != nil {
		return nil, serverError("failed to load token", err)
	}
	return tokenResult(addr, meta), nil
}

func (s *Server) handleGetTokenBalance(_ *http.Request, req *RPCRequest) (interface{}, *methodError) {
	tokenAddr, mErr := paramAddress(req, 0, "token")
	if mErr != nil {
		return nil, mErr
	}
	holder, mErr := paramAddress(req, 1, "holder")
	if mErr != nil {
		return nil, mErr
	}
	balance, err := s.backend.TokenBalance(tokenAddr, holder)
	if errors.Is(err, core.ErrNotContract) {
		return nil, notFound("token not found", hexAddr(tokenAddr[:]))
	}
	if err != nil {
		return nil, serverError("failed to load token balance", err)
	}
	return &TokenBalanceResult{
		Token:   hexAddr(tokenAddr[:]),
		Holder:  hexAddr(holder[:]),
		Balance: amountString(balance),
	}, nil
}

func (s *Server) handleGetReceipt(_ *http.Request, req *RPCRequest) (interface{}, *methodError) {
	raw, mErr := paramString(req, 0, "hash")
	if mErr != nil {
		return nil, mErr
	}
	hash, err := decodeHex(raw)
	if err != nil || len(hash) != 32 {
		return nil, invalidParams("hash must be 32 hex-encoded bytes", raw)
	}
	receipt, err := s.backend.Receipt(hash)
	if errors.Is(err, core.ErrUnknownReceipt) {
		return nil, notFound("receipt not found", raw)
	}
	if err != nil {
		return nil, serverError("failed to load receipt", err)
	}
	return receiptResult(receipt), nil
}

func (s *Server) handleCall(r *http.Request, req *RPCRequest) (interface{}, *methodError) {
	if len(req.Params) == 0 {
		return nil, invalidParams("call object required", nil)
	}
	var args CallArgs
	if err := json.Unmarshal(req.Params[0], &args); err != nil {
		return nil, invalidParams("invalid call object", err.Error())
	}
	var from [20]byte
	if args.From != "" {
		parsed, err := crypto.ParseAddress(args.From)
		if err != nil {
			return nil, invalidParams("invalid from address", err.Error())
		}
		from = parsed
	}
	to, err := crypto.ParseAddress(args.To)
	if err != nil {
		return nil, invalidParams("invalid to address", err.Error())
	}
	data, err := decodeHex(args.Data)
	if err != nil {
		return nil, invalidParams("invalid call data", err.Error())
	}
	value, err := parseAmount(args.Value)
	if err != nil {
		return nil, invalidParams("invalid value", err.Error())
	}
	gasLimit := args.Gas
	if s.cfg.CallGasCap > 0 && (gasLimit == 0 || gasLimit > s.cfg.CallGasCap) {
		gasLimit = s.cfg.CallGasCap
	}
	result, err := s.backend.Call(r.Context(), from, to, data, value, gasLimit)
	if err != nil {
		return nil, invalidParams("call rejected", err.Error())
	}
	return callResult(result), nil
}

func (s *Server) handleSendTransaction(r *http.Request, req *RPCRequest) (interface{}, *methodError) {
	if authErr := s.auth.verify(r.Header.Get("Authorization")); authErr != nil {
		observability.ModuleMetrics().RecordThrottle(metricsModule, "unauthorized")
		return nil, &methodError{status: http.StatusUnauthorized, err: *authErr}
	}
	if len(req.Params) == 0 {
		return nil, invalidParams("transaction parameter required", nil)
	}
	var tx types.Transaction
	if err := json.Unmarshal(req.Params[0], &tx); err != nil {
		return nil, invalidParams("invalid transaction format", err.Error())
	}
	if tx.ChainID != s.backend.ChainID() {
		return nil, invalidParams("transaction chainId does not match the node", tx.ChainID)
	}
	if tx.GasLimit == 0 {
		return nil, invalidParams("gasLimit must be greater than zero", nil)
	}
	if tx.GasPrice == nil || tx.GasPrice.Sign() <= 0 {
		return nil, invalidParams("gasPrice must be greater than zero", nil)
	}
	if _, err := tx.From(); err != nil {
		return nil, invalidParams("invalid transaction signature", err.Error())
	}

	hashBytes, err := tx.ID()
	if err != nil {
		return nil, serverError("failed to identify transaction", err)
	}
	hash := hex.EncodeToString(hashBytes)
	if !s.rememberTx(hash, s.now()) {
		return nil, &methodError{status: http.StatusConflict, err: RPCError{Code: codeDuplicateTx, Message: "transaction has already been submitted", Data: hash}}
	}

	receipt, err := s.backend.SubmitTransaction(r.Context(), &tx)
	if err != nil {
		s.forgetTx(hash)
		if isRejection(err) {
			return nil, &methodError{status: http.StatusBadRequest, err: RPCError{Code: codeTxRejected, Message: "transaction rejected", Data: err.Error()}}
		}
		return nil, serverError("failed to apply transaction", err)
	}
	return receiptResult(receipt), nil
}

// isRejection reports whether err stopped the transaction before execution,
// leaving state untouched.
func isRejection(err error) bool {
	for _, target := range []error{
		core.ErrInvalidSignature,
		core.ErrChainIDMismatch,
		core.ErrNonceMismatch,
		core.ErrInvalidRecipient,
		core.ErrInvalidAmount,
		core.ErrIntrinsicGas,
		core.ErrInsufficientFunds,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
