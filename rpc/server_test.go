package rpc

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"

	"sellerchain/core"
	"sellerchain/core/gas"
	"sellerchain/core/genesis"
	"sellerchain/core/types"
	"sellerchain/native/seller"
	"sellerchain/storage"
	"sellerchain/storage/receipts"
)

const (
	testChainID = 7
	testSecret  = "rpc-test-secret"
	testIssuer  = "sellerchain-test"
)

var (
	sellerAddr = common.HexToAddress("0x5e5e5e5e5e5e5e5e5e5e5e5e5e5e5e5e5e5e5e5e")
	tokenAddr  = common.HexToAddress("0x7070707070707070707070707070707070707070")
)

type fixture struct {
	node     *core.Node
	ownerKey *ecdsa.PrivateKey
	buyerKey *ecdsa.PrivateKey
	buyer    common.Address
	owner    common.Address
	nonce    uint64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ownerKey, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	buyerKey, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	f := &fixture{
		ownerKey: ownerKey,
		buyerKey: buyerKey,
		buyer:    ethcrypto.PubkeyToAddress(buyerKey.PublicKey),
		owner:    ethcrypto.PubkeyToAddress(ownerKey.PublicKey),
	}
	spec := &genesis.Spec{
		ChainID: testChainID,
		Accounts: []genesis.AccountSpec{
			{Address: f.owner.Hex(), Balance: "1000000000"},
			{Address: f.buyer.Hex(), Balance: "1000000000"},
		},
		Tokens: []genesis.TokenSpec{{
			Address:     tokenAddr.Hex(),
			Owner:       f.owner.Hex(),
			Name:        "Custody",
			Symbol:      "CST",
			Allocations: []genesis.AllocationSpec{{Holder: sellerAddr.Hex(), Amount: "1000"}},
		}},
		Sellers: []genesis.SellerSpec{{
			Address:      sellerAddr.Hex(),
			Owner:        f.owner.Hex(),
			CustodyToken: tokenAddr.Hex(),
			Price:        "10",
		}},
	}
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	store, err := receipts.Open(filepath.Join(t.TempDir(), "receipts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	node, err := core.NewNode(db, store, core.NodeConfig{
		ChainID:  testChainID,
		Schedule: gas.DefaultSchedule(),
		Genesis:  spec,
	})
	require.NoError(t, err)
	f.node = node
	return f
}

func (f *fixture) purchaseTx(t *testing.T, value int64) *types.Transaction {
	t.Helper()
	tx := &types.Transaction{
		ChainID:  testChainID,
		Nonce:    f.nonce,
		To:       sellerAddr.Bytes(),
		Value:    big.NewInt(value),
		GasLimit: 500_000,
		GasPrice: big.NewInt(1),
	}
	require.NoError(t, tx.Sign(f.buyerKey))
	f.nonce++
	return tx
}

type rawResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
}

func doRPC(t *testing.T, handler http.Handler, method string, header http.Header, params ...interface{}) (int, rawResponse) {
	t.Helper()
	encoded := make([]json.RawMessage, 0, len(params))
	for _, p := range params {
		raw, err := json.Marshal(p)
		require.NoError(t, err)
		encoded = append(encoded, raw)
	}
	body, err := json.Marshal(RPCRequest{JSONRPC: jsonRPCVersion, Method: method, Params: encoded, ID: 1})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	req.RemoteAddr = "192.0.2.1:4000"
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	var resp rawResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec.Code, resp
}

func bearer(t *testing.T) http.Header {
	t.Helper()
	token, err := IssueToken(testSecret, testIssuer, "tests", time.Minute)
	require.NoError(t, err)
	return http.Header{"Authorization": []string{"Bearer " + token}}
}

func defaultConfig() Config {
	return Config{JWTSecret: testSecret, JWTIssuer: testIssuer}
}

func TestChainInfo(t *testing.T) {
	f := newFixture(t)
	handler := NewServer(f.node, defaultConfig(), nil).Handler()

	status, resp := doRPC(t, handler, "seller_chainInfo", nil)
	require.Equal(t, http.StatusOK, status)
	require.Nil(t, resp.Error)
	var info ChainInfoResult
	require.NoError(t, json.Unmarshal(resp.Result, &info))
	require.Equal(t, uint64(testChainID), info.ChainID)
	require.Equal(t, uint64(0), info.Height)
	require.Equal(t, f.node.Root().Hex(), info.Root)
}

func TestMalformedRequests(t *testing.T) {
	f := newFixture(t)
	handler := NewServer(f.node, defaultConfig(), nil).Handler()

	status, resp := doRPC(t, handler, "seller_doesNotExist", nil)
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, codeMethodNotFound, resp.Error.Code)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "invalid JSON payload")

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader("   "))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	status, resp = doRPC(t, handler, "seller_getAccount", nil, "not-an-address")
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, codeInvalidParams, resp.Error.Code)
}

func TestOversizedBodyIsRejected(t *testing.T) {
	f := newFixture(t)
	cfg := defaultConfig()
	cfg.MaxBodyBytes = 16
	handler := NewServer(f.node, cfg, nil).Handler()

	status, resp := doRPC(t, handler, "seller_chainInfo", nil)
	require.Equal(t, http.StatusRequestEntityTooLarge, status)
	require.Equal(t, codeInvalidRequest, resp.Error.Code)
}

func TestGetSellerAndToken(t *testing.T) {
	f := newFixture(t)
	handler := NewServer(f.node, defaultConfig(), nil).Handler()

	status, resp := doRPC(t, handler, "seller_getSeller", nil, sellerAddr.Hex())
	require.Equal(t, http.StatusOK, status)
	var summary SellerResult
	require.NoError(t, json.Unmarshal(resp.Result, &summary))
	require.Equal(t, "10", summary.Price)
	require.Equal(t, tokenAddr.Hex(), summary.CustodyToken)
	require.Equal(t, "1000", summary.CustodyBalance)
	require.Equal(t, seller.RankFull.String(), summary.Ranks[f.owner.Hex()])

	status, resp = doRPC(t, handler, "seller_getSeller", nil, f.buyer.Hex())
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, codeNotFound, resp.Error.Code)

	status, resp = doRPC(t, handler, "seller_getToken", nil, tokenAddr.Hex())
	require.Equal(t, http.StatusOK, status)
	var meta TokenResult
	require.NoError(t, json.Unmarshal(resp.Result, &meta))
	require.Equal(t, "CST", meta.Symbol)
	require.Equal(t, "1000", meta.TotalSupply)

	status, resp = doRPC(t, handler, "seller_getAccount", nil, sellerAddr.Hex())
	require.Equal(t, http.StatusOK, status)
	var account AccountResult
	require.NoError(t, json.Unmarshal(resp.Result, &account))
	require.Equal(t, "seller", account.Kind)
	require.Equal(t, "0", account.Balance)
}

func TestCallReadsPrice(t *testing.T) {
	f := newFixture(t)
	handler := NewServer(f.node, defaultConfig(), nil).Handler()

	data, err := seller.ABI.Pack("price")
	require.NoError(t, err)
	status, resp := doRPC(t, handler, "seller_call", nil, CallArgs{
		From: f.buyer.Hex(),
		To:   sellerAddr.Hex(),
		Data: hexBytes(data),
	})
	require.Equal(t, http.StatusOK, status)
	var result CallResult
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	require.Empty(t, result.ErrorCode)

	ret, err := decodeHex(result.Return)
	require.NoError(t, err)
	out, err := seller.ABI.Unpack("price", ret)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(10), out[0])
	require.Equal(t, uint64(0), f.node.Height())
}

func TestSendTransactionRequiresBearerToken(t *testing.T) {
	f := newFixture(t)
	handler := NewServer(f.node, defaultConfig(), nil).Handler()
	tx := f.purchaseTx(t, 100)

	status, resp := doRPC(t, handler, "seller_sendTransaction", nil, tx)
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, codeUnauthorized, resp.Error.Code)

	forged, err := IssueToken("another-secret", testIssuer, "tests", time.Minute)
	require.NoError(t, err)
	status, resp = doRPC(t, handler, "seller_sendTransaction", http.Header{"Authorization": []string{"Bearer " + forged}}, tx)
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, codeUnauthorized, resp.Error.Code)

	unconfigured := NewServer(f.node, Config{}, nil).Handler()
	status, _ = doRPC(t, unconfigured, "seller_sendTransaction", bearer(t), tx)
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, uint64(0), f.node.Height())
}

func TestSendTransactionExecutesPurchase(t *testing.T) {
	f := newFixture(t)
	handler := NewServer(f.node, defaultConfig(), nil).Handler()
	tx := f.purchaseTx(t, 100)

	status, resp := doRPC(t, handler, "seller_sendTransaction", bearer(t), tx)
	require.Equal(t, http.StatusOK, status, string(resp.Result))
	var receipt ReceiptResult
	require.NoError(t, json.Unmarshal(resp.Result, &receipt))
	require.Equal(t, types.ReceiptStatusSuccess, receipt.Status)
	require.Equal(t, sellerAddr.Hex(), receipt.To)
	require.Equal(t, uint64(1), receipt.BlockNumber)

	status, resp = doRPC(t, handler, "seller_getTokenBalance", nil, tokenAddr.Hex(), f.buyer.Hex())
	require.Equal(t, http.StatusOK, status)
	var balance TokenBalanceResult
	require.NoError(t, json.Unmarshal(resp.Result, &balance))
	require.Equal(t, "10", balance.Balance)

	status, resp = doRPC(t, handler, "seller_getReceipt", nil, receipt.TransactionHash)
	require.Equal(t, http.StatusOK, status)
	var stored ReceiptResult
	require.NoError(t, json.Unmarshal(resp.Result, &stored))
	require.Equal(t, receipt.TransactionHash, stored.TransactionHash)

	status, resp = doRPC(t, handler, "seller_sendTransaction", bearer(t), tx)
	require.Equal(t, http.StatusConflict, status)
	require.Equal(t, codeDuplicateTx, resp.Error.Code)
}

func TestSameContentFromTwoSendersIsNotADuplicate(t *testing.T) {
	f := newFixture(t)
	handler := NewServer(f.node, defaultConfig(), nil).Handler()

	fromBuyer := f.purchaseTx(t, 100)
	fromOwner := &types.Transaction{
		ChainID:  fromBuyer.ChainID,
		Nonce:    fromBuyer.Nonce,
		To:       fromBuyer.To,
		Value:    fromBuyer.Value,
		GasLimit: fromBuyer.GasLimit,
		GasPrice: fromBuyer.GasPrice,
	}
	require.NoError(t, fromOwner.Sign(f.ownerKey))

	var hashes []string
	for _, tx := range []*types.Transaction{fromBuyer, fromOwner} {
		status, resp := doRPC(t, handler, "seller_sendTransaction", bearer(t), tx)
		require.Equal(t, http.StatusOK, status, string(resp.Result))
		require.Nil(t, resp.Error)
		var receipt ReceiptResult
		require.NoError(t, json.Unmarshal(resp.Result, &receipt))
		require.Equal(t, types.ReceiptStatusSuccess, receipt.Status)
		hashes = append(hashes, receipt.TransactionHash)
	}
	require.NotEqual(t, hashes[0], hashes[1])
	require.Equal(t, uint64(2), f.node.Height())
}

func TestSendTransactionRejectionLeavesStateUntouched(t *testing.T) {
	f := newFixture(t)
	handler := NewServer(f.node, defaultConfig(), nil).Handler()
	f.nonce = 5
	tx := f.purchaseTx(t, 100)

	status, resp := doRPC(t, handler, "seller_sendTransaction", bearer(t), tx)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, codeTxRejected, resp.Error.Code)
	require.Equal(t, uint64(0), f.node.Height())

	status, resp = doRPC(t, handler, "seller_getReceipt", nil, "0x"+strings.Repeat("ab", 32))
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, codeNotFound, resp.Error.Code)
}

func TestRateLimitPerClient(t *testing.T) {
	f := newFixture(t)
	cfg := defaultConfig()
	cfg.RateLimitPerSecond = 0.001
	cfg.RateLimitBurst = 2
	handler := NewServer(f.node, cfg, nil).Handler()

	for i := 0; i < 2; i++ {
		status, _ := doRPC(t, handler, "seller_chainInfo", nil)
		require.Equal(t, http.StatusOK, status)
	}
	status, resp := doRPC(t, handler, "seller_chainInfo", nil)
	require.Equal(t, http.StatusTooManyRequests, status)
	require.Equal(t, codeRateLimited, resp.Error.Code)

	other := http.Header{"X-Forwarded-For": []string{"198.51.100.7"}}
	status, _ = doRPC(t, handler, "seller_chainInfo", other)
	require.Equal(t, http.StatusOK, status)
}

func TestRequestIDIsEchoed(t *testing.T) {
	f := newFixture(t)
	handler := NewServer(f.node, defaultConfig(), nil).Handler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Header().Get(requestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "fixed-id")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, "fixed-id", rec.Header().Get(requestIDHeader))
}

type subscribeSignal struct {
	*core.Node
	subscribed chan struct{}
}

func (b *subscribeSignal) SubscribeReceipts(buffer int) (<-chan *types.Receipt, func()) {
	ch, cancel := b.Node.SubscribeReceipts(buffer)
	close(b.subscribed)
	return ch, cancel
}

func TestReceiptStream(t *testing.T) {
	f := newFixture(t)
	backend := &subscribeSignal{Node: f.node, subscribed: make(chan struct{})}
	srv := httptest.NewServer(NewServer(backend, defaultConfig(), nil).Handler())
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/receipts?contract=" + sellerAddr.Hex()
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "done")

	select {
	case <-backend.subscribed:
	case <-ctx.Done():
		t.Fatal("stream never subscribed")
	}

	receipt, err := f.node.SubmitTransaction(ctx, f.purchaseTx(t, 100))
	require.NoError(t, err)

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var streamed ReceiptResult
	require.NoError(t, json.Unmarshal(data, &streamed))
	require.Equal(t, hexBytes(receipt.TxHash), streamed.TransactionHash)
	require.Equal(t, types.ReceiptStatusSuccess, streamed.Status)
}
