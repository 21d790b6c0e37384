package rpc

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"nhooyr.io/websocket"

	"sellerchain/core/types"
	"sellerchain/crypto"
)

const (
	wsWriteTimeout  = 10 * time.Second
	wsReceiptBuffer = 64
)

// receiptFilter narrows the stream to receipts touching one contract.
type receiptFilter struct {
	contract []byte
}

func (f receiptFilter) match(receipt *types.Receipt) bool {
	if len(f.contract) == 0 {
		return true
	}
	addr := common.BytesToAddress(f.contract)
	return common.BytesToAddress(receipt.To) == addr || common.BytesToAddress(receipt.ContractAddress) == addr
}

func (s *Server) handleReceiptsWS(w http.ResponseWriter, r *http.Request) {
	if s == nil || s.backend == nil {
		http.Error(w, "node unavailable", http.StatusServiceUnavailable)
		return
	}
	var filter receiptFilter
	if raw := strings.TrimSpace(r.URL.Query().Get("contract")); raw != "" {
		addr, err := crypto.ParseAddress(raw)
		if err != nil {
			http.Error(w, "invalid contract address", http.StatusBadRequest)
			return
		}
		filter.contract = addr[:]
	}
	patterns := s.cfg.AllowedOrigins
	if len(patterns) == 0 {
		patterns = []string{"*"}
	}
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: patterns})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream closed")

	// The client never sends; CloseRead handles control frames and cancels
	// the context when the peer goes away.
	ctx := conn.CloseRead(r.Context())
	if err := s.streamReceipts(ctx, conn, filter); err != nil {
		if status := websocket.CloseStatus(err); status == -1 && ctx.Err() == nil {
			s.logger.Warn("receipt stream failed", slog.Any("error", err))
			_ = conn.Close(websocket.StatusInternalError, "stream error")
		}
	}
}

func (s *Server) streamReceipts(ctx context.Context, conn *websocket.Conn, filter receiptFilter) error {
	receipts, cancel := s.backend.SubscribeReceipts(wsReceiptBuffer)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case receipt, ok := <-receipts:
			if !ok {
				return nil
			}
			if !filter.match(receipt) {
				continue
			}
			if err := writeReceipt(ctx, conn, receipt); err != nil {
				return err
			}
		}
	}
}

func writeReceipt(ctx context.Context, conn *websocket.Conn, receipt *types.Receipt) error {
	data, err := json.Marshal(receiptResult(receipt))
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}
