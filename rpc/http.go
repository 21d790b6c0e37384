package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"sellerchain/core"
	"sellerchain/core/state"
	"sellerchain/core/types"
	"sellerchain/native/seller"
	"sellerchain/native/token"
	"sellerchain/observability"
)

const (
	jsonRPCVersion  = "2.0"
	defaultMaxBody  = 1 << 20 // 1 MiB
	txSeenTTL       = 15 * time.Minute
	requestIDHeader = "X-Request-ID"
	metricsModule   = "seller"
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeUnauthorized   = -32001
	codeServerError    = -32000
	codeNotFound       = -32004
	codeTxRejected     = -32003
	codeDuplicateTx    = -32010
	codeRateLimited    = -32020
)

// Backend is the node surface the server exposes.
type Backend interface {
	SubmitTransaction(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)
	Call(ctx context.Context, from, to [20]byte, data []byte, value *big.Int, gasLimit uint64) (*core.CallResult, error)
	SubscribeReceipts(buffer int) (<-chan *types.Receipt, func())
	ChainID() uint64
	Height() uint64
	Root() common.Hash
	Account(addr [20]byte) (*types.Account, error)
	ContractKind(addr [20]byte) (state.ContractKind, error)
	TokenBalance(tokenAddr, holder [20]byte) (*big.Int, error)
	TokenMetadata(tokenAddr [20]byte) (*token.Metadata, error)
	SellerSummary(addr [20]byte) (*seller.Summary, error)
	Receipt(hash []byte) (*types.Receipt, error)
}

// Config tunes the server. Zero values fall back to safe defaults.
type Config struct {
	JWTSecret          string
	JWTIssuer          string
	RateLimitPerSecond float64
	RateLimitBurst     int
	AllowedOrigins     []string
	MaxBodyBytes       int64
	CallGasCap         uint64
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
}

// Server answers JSON-RPC requests against a Backend.
type Server struct {
	backend Backend
	cfg     Config
	logger  *slog.Logger
	auth    *authenticator
	limiter *clientLimiter

	mu     sync.Mutex
	txSeen map[string]time.Time
	now    func() time.Time
}

// NewServer constructs a server over backend.
func NewServer(backend Backend, cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBody
	}
	return &Server{
		backend: backend,
		cfg:     cfg,
		logger:  logger,
		auth:    newAuthenticator(cfg.JWTSecret, cfg.JWTIssuer),
		limiter: newClientLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst),
		txSeen:  make(map[string]time.Time),
		now:     time.Now,
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(cors(s.cfg.AllowedOrigins))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.With(s.limiter.middleware).Post("/", s.handle)
	r.Get("/ws/receipts", s.handleReceiptsWS)
	return otelhttp.NewHandler(r, "sellerchain-rpc")
}

// Serve listens on addr until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("json-rpc server listening", slog.String("address", addr))
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      interface{}       `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *RPCError) Error() string { return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message) }

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}

// handlerFunc serves one method. A non-nil error is written as the response
// with its status.
type handlerFunc func(r *http.Request, req *RPCRequest) (interface{}, *methodError)

type methodError struct {
	status int
	err    RPCError
}

func invalidParams(message string, data interface{}) *methodError {
	return &methodError{status: http.StatusBadRequest, err: RPCError{Code: codeInvalidParams, Message: message, Data: data}}
}

func serverError(message string, err error) *methodError {
	var data interface{}
	if err != nil {
		data = err.Error()
	}
	return &methodError{status: http.StatusInternalServerError, err: RPCError{Code: codeServerError, Message: message, Data: data}}
}

func notFound(message string, data interface{}) *methodError {
	return &methodError{status: http.StatusNotFound, err: RPCError{Code: codeNotFound, Message: message, Data: data}}
}

func (s *Server) methods() map[string]handlerFunc {
	return map[string]handlerFunc{
		"seller_chainInfo":       s.handleChainInfo,
		"seller_getAccount":      s.handleGetAccount,
		"seller_getSeller":       s.handleGetSeller,
		"seller_getToken":        s.handleGetToken,
		"seller_getTokenBalance": s.handleGetTokenBalance,
		"seller_getReceipt":      s.handleGetReceipt,
		"seller_call":            s.handleCall,
		"seller_sendTransaction": s.handleSendTransaction,
	}
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	reader := http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	defer func() {
		_ = reader.Close()
	}()

	w.Header().Set("Content-Type", "application/json")

	body, err := io.ReadAll(reader)
	if err != nil {
		status := http.StatusBadRequest
		message := "failed to read request body"
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			status = http.StatusRequestEntityTooLarge
			message = fmt.Sprintf("request body exceeds %d bytes", s.cfg.MaxBodyBytes)
		}
		writeError(w, status, nil, codeInvalidRequest, message, err.Error())
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeError(w, http.StatusBadRequest, nil, codeInvalidRequest, "request body required", nil)
		return
	}

	req := &RPCRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC)
		return
	}
	if req.Method == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "method required", nil)
		return
	}

	handler, ok := s.methods()[req.Method]
	if !ok {
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, fmt.Sprintf("unknown method %s", req.Method), nil)
		observability.ModuleMetrics().Observe(metricsModule, "unknown", codeMethodNotFound, 0)
		return
	}

	started := time.Now()
	result, mErr := handler(r, req)
	code := 0
	if mErr != nil {
		code = mErr.err.Code
		writeError(w, mErr.status, req.ID, mErr.err.Code, mErr.err.Message, mErr.err.Data)
	} else {
		writeResult(w, req.ID, result)
	}
	observability.ModuleMetrics().Observe(metricsModule, req.Method, code, time.Since(started))
	s.logger.Debug("rpc request",
		slog.String("method", req.Method),
		slog.Int("code", code),
		slog.String("request_id", w.Header().Get(requestIDHeader)))
}

func (s *Server) rememberTx(hash string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for h, seenAt := range s.txSeen {
		if now.Sub(seenAt) > txSeenTTL {
			delete(s.txSeen, h)
		}
	}
	if _, exists := s.txSeen[hash]; exists {
		return false
	}
	s.txSeen[hash] = now
	return true
}

func (s *Server) forgetTx(hash string) {
	s.mu.Lock()
	delete(s.txSeen, hash)
	s.mu.Unlock()
}

func clientSource(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if candidate := strings.TrimSpace(parts[0]); candidate != "" {
			return candidate
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

func cors(origins []string) func(http.Handler) http.Handler {
	origin := "*"
	if len(origins) > 0 {
		origin = strings.Join(origins, " ")
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
