package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"sellerchain/rpc"
)

// rpcClient speaks JSON-RPC 2.0 to a sellerd node.
type rpcClient struct {
	endpoint string
	token    string
	http     *http.Client
}

func newRPCClient(endpoint, token string) *rpcClient {
	return &rpcClient{
		endpoint: strings.TrimSpace(endpoint),
		token:    strings.TrimSpace(token),
		http:     &http.Client{Timeout: 30 * time.Second},
	}
}

type rpcEnvelope struct {
	Result json.RawMessage `json:"result"`
	Error  *rpc.RPCError   `json:"error"`
}

// call invokes method and decodes the result into out when out is non-nil.
// The bearer token is attached only when requireAuth is set.
func (c *rpcClient) call(method string, params []interface{}, out interface{}, requireAuth bool) error {
	if params == nil {
		params = []interface{}{}
	}
	payload, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      uuid.NewString(),
		"method":  method,
		"params":  params,
	})
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequest(http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if requireAuth {
		if c.token == "" {
			return fmt.Errorf("%s requires a bearer token; set %s or pass --token", method, rpcTokenEnv)
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("contact node at %s: %w", c.endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	var envelope rpcEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("decode response (HTTP %d): %w", resp.StatusCode, err)
	}
	if envelope.Error != nil {
		if envelope.Error.Data != nil {
			return fmt.Errorf("node error %d: %s (%v)", envelope.Error.Code, envelope.Error.Message, envelope.Error.Data)
		}
		return fmt.Errorf("node error %d: %s", envelope.Error.Code, envelope.Error.Message)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return fmt.Errorf("decode %s result: %w", method, err)
	}
	return nil
}

func (c *rpcClient) chainInfo() (*rpc.ChainInfoResult, error) {
	var info rpc.ChainInfoResult
	if err := c.call("seller_chainInfo", nil, &info, false); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *rpcClient) account(addr string) (*rpc.AccountResult, error) {
	var account rpc.AccountResult
	if err := c.call("seller_getAccount", []interface{}{addr}, &account, false); err != nil {
		return nil, err
	}
	return &account, nil
}
