package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"sellerchain/indexer"
)

// EventType represents the logical webhook topic.
type EventType string

const (
	// EventPurchase is emitted for every indexed purchase.
	EventPurchase EventType = "seller.purchase"
	// EventWithdrawal is emitted for every indexed treasury withdrawal.
	EventWithdrawal EventType = "seller.withdrawal"

	defaultMaxAttempts = 5
	defaultMinBackoff  = 2 * time.Second
	defaultMaxBackoff  = 30 * time.Second
)

// PurchasePayload describes the webhook body for purchase events.
type PurchasePayload struct {
	Type        EventType `json:"type"`
	TxHash      string    `json:"txHash"`
	Height      uint64    `json:"height"`
	Seller      string    `json:"seller"`
	Buyer       string    `json:"buyer"`
	Referrer    string    `json:"referrer,omitempty"`
	Payment     string    `json:"payment"`
	Tokens      string    `json:"tokens"`
	Bonus       string    `json:"bonus"`
	Remainder   string    `json:"remainder"`
	ReferralHit bool      `json:"referralHit"`
	DeliveryID  string    `json:"deliveryId"`
	SentAt      time.Time `json:"sentAt"`
}

// WithdrawalPayload describes the webhook body for withdrawal events.
type WithdrawalPayload struct {
	Type       EventType `json:"type"`
	TxHash     string    `json:"txHash"`
	Height     uint64    `json:"height"`
	Seller     string    `json:"seller"`
	Recipient  string    `json:"recipient"`
	Amount     string    `json:"amount"`
	DeliveryID string    `json:"deliveryId"`
	SentAt     time.Time `json:"sentAt"`
}

// Dispatcher orchestrates webhook deliveries with retry and exponential backoff.
type Dispatcher struct {
	endpoint    string
	secret      []byte
	client      *http.Client
	maxAttempts int
	minBackoff  time.Duration
	maxBackoff  time.Duration
	logger      *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	queue  chan delivery
	wg     sync.WaitGroup
}

type delivery struct {
	eventType EventType
	body      []byte
}

// Option mutates dispatcher configuration.
type Option func(*Dispatcher)

// WithHTTPClient overrides the HTTP client used for deliveries.
func WithHTTPClient(client *http.Client) Option {
	return func(d *Dispatcher) {
		if client != nil {
			d.client = client
		}
	}
}

// WithLogger sets the logger used for dropped deliveries.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithRetryPolicy overrides the retry configuration.
func WithRetryPolicy(maxAttempts int, minBackoff, maxBackoff time.Duration) Option {
	return func(d *Dispatcher) {
		if maxAttempts > 0 {
			d.maxAttempts = maxAttempts
		}
		if minBackoff > 0 {
			d.minBackoff = minBackoff
		}
		if maxBackoff >= minBackoff && maxBackoff > 0 {
			d.maxBackoff = maxBackoff
		}
	}
}

// NewDispatcher constructs a dispatcher and spawns the worker goroutine.
func NewDispatcher(endpoint string, secret []byte, opts ...Option) (*Dispatcher, error) {
	endpoint = string(bytes.TrimSpace([]byte(endpoint)))
	if endpoint == "" {
		return nil, errors.New("webhook: endpoint required")
	}
	if len(secret) == 0 {
		return nil, errors.New("webhook: secret required")
	}
	ctx, cancel := context.WithCancel(context.Background())
	dispatcher := &Dispatcher{
		endpoint:    endpoint,
		secret:      append([]byte(nil), secret...),
		client:      &http.Client{Timeout: 15 * time.Second},
		maxAttempts: defaultMaxAttempts,
		minBackoff:  defaultMinBackoff,
		maxBackoff:  defaultMaxBackoff,
		logger:      slog.Default(),
		ctx:         ctx,
		cancel:      cancel,
		queue:       make(chan delivery, 32),
	}
	for _, opt := range opts {
		opt(dispatcher)
	}
	dispatcher.wg.Add(1)
	go dispatcher.worker()
	return dispatcher, nil
}

// Close stops the dispatcher and waits for inflight deliveries to complete.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.cancel()
	d.wg.Wait()
}

// EnqueuePurchase sends a purchase event asynchronously.
func (d *Dispatcher) EnqueuePurchase(payload PurchasePayload) error {
	payload.Type = EventPurchase
	if payload.SentAt.IsZero() {
		payload.SentAt = time.Now().UTC()
	}
	if payload.DeliveryID == "" {
		payload.DeliveryID = uuid.NewString()
	}
	return d.enqueue(payload.Type, payload)
}

// EnqueueWithdrawal sends a withdrawal event asynchronously.
func (d *Dispatcher) EnqueueWithdrawal(payload WithdrawalPayload) error {
	payload.Type = EventWithdrawal
	if payload.SentAt.IsZero() {
		payload.SentAt = time.Now().UTC()
	}
	if payload.DeliveryID == "" {
		payload.DeliveryID = uuid.NewString()
	}
	return d.enqueue(payload.Type, payload)
}

// PurchaseIndexed forwards an indexed purchase.
func (d *Dispatcher) PurchaseIndexed(p indexer.Purchase) {
	err := d.EnqueuePurchase(PurchasePayload{
		TxHash:      p.TxHash,
		Height:      p.Height,
		Seller:      p.Seller,
		Buyer:       p.Buyer,
		Referrer:    p.Referrer,
		Payment:     p.Payment,
		Tokens:      p.Tokens,
		Bonus:       p.Bonus,
		Remainder:   p.Remainder,
		ReferralHit: p.ReferralHit,
	})
	if err != nil {
		d.logger.Warn("webhook enqueue failed", slog.String("tx", p.TxHash), slog.Any("error", err))
	}
}

// WithdrawalIndexed forwards an indexed withdrawal.
func (d *Dispatcher) WithdrawalIndexed(w indexer.Withdrawal) {
	err := d.EnqueueWithdrawal(WithdrawalPayload{
		TxHash:    w.TxHash,
		Height:    w.Height,
		Seller:    w.Seller,
		Recipient: w.Recipient,
		Amount:    w.Amount,
	})
	if err != nil {
		d.logger.Warn("webhook enqueue failed", slog.String("tx", w.TxHash), slog.Any("error", err))
	}
}

func (d *Dispatcher) enqueue(eventType EventType, body interface{}) error {
	if d == nil {
		return errors.New("webhook: dispatcher not initialised")
	}
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	select {
	case d.queue <- delivery{eventType: eventType, body: data}:
		return nil
	case <-d.ctx.Done():
		return errors.New("webhook: dispatcher closed")
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case job := <-d.queue:
			d.process(job)
		case <-d.ctx.Done():
			return
		}
	}
}

func (d *Dispatcher) process(job delivery) {
	attempt := 0
	backoff := d.minBackoff
	for {
		attempt++
		ctx, cancel := context.WithTimeout(d.ctx, d.client.Timeout)
		err := d.send(ctx, job)
		cancel()
		if err == nil {
			return
		}
		if attempt >= d.maxAttempts {
			d.logger.Error("webhook delivery abandoned",
				slog.String("event", string(job.eventType)),
				slog.Int("attempts", attempt),
				slog.Any("error", err))
			return
		}
		select {
		case <-time.After(backoff):
		case <-d.ctx.Done():
			return
		}
		backoff = nextBackoff(backoff, d.maxBackoff)
	}
}

func (d *Dispatcher) send(ctx context.Context, job delivery) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(job.body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Seller-Event", string(job.eventType))
	req.Header.Set("X-Seller-Signature", d.sign(job.body))
	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return fmt.Errorf("webhook: delivery failed with status %d", resp.StatusCode)
}

func (d *Dispatcher) sign(body []byte) string {
	mac := hmac.New(sha256.New, d.secret)
	_, _ = mac.Write(body)
	sum := mac.Sum(nil)
	return "sha256=" + hex.EncodeToString(sum)
}

func nextBackoff(current, max time.Duration) time.Duration {
	next := current * 2
	if next > max {
		return max
	}
	if next < current {
		return max
	}
	return next
}
