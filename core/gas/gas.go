// Package gas meters execution resources. A transaction that exhausts its gas
// limit aborts with ErrOutOfGas and every state change it made is reverted.
package gas

import (
	"errors"
	"fmt"
)

// ErrOutOfGas is returned once a meter's limit has been exceeded.
var ErrOutOfGas = errors.New("out of gas")

// Schedule lists the cost of each metered operation.
type Schedule struct {
	TxBase       uint64 `toml:"TxBase"`
	TxDataByte   uint64 `toml:"TxDataByte"`
	StateRead    uint64 `toml:"StateRead"`
	StateWrite   uint64 `toml:"StateWrite"`
	ExternalCall uint64 `toml:"ExternalCall"`
	Event        uint64 `toml:"Event"`
}

// DefaultSchedule mirrors the costs the network launched with. A bare value
// transfer costs exactly TxBase.
func DefaultSchedule() Schedule {
	return Schedule{
		TxBase:       21_000,
		TxDataByte:   16,
		StateRead:    800,
		StateWrite:   5_000,
		ExternalCall: 700,
		Event:        375,
	}
}

// Validate rejects schedules that would make execution free.
func (s Schedule) Validate() error {
	if s.TxBase == 0 {
		return fmt.Errorf("gas: TxBase must be positive")
	}
	if s.StateRead == 0 || s.StateWrite == 0 {
		return fmt.Errorf("gas: state access costs must be positive")
	}
	return nil
}

// Intrinsic returns the gas charged before execution starts.
func (s Schedule) Intrinsic(data []byte) (uint64, error) {
	total := s.TxBase
	perByte := s.TxDataByte
	if perByte > 0 && uint64(len(data)) > (^uint64(0)-total)/perByte {
		return 0, ErrOutOfGas
	}
	return total + uint64(len(data))*perByte, nil
}

// Meter tracks gas consumption against a limit.
type Meter struct {
	limit    uint64
	used     uint64
	schedule Schedule
}

// NewMeter returns a meter that allows up to limit gas, starting with used
// already consumed.
func NewMeter(schedule Schedule, limit, used uint64) *Meter {
	if used > limit {
		used = limit
	}
	return &Meter{limit: limit, used: used, schedule: schedule}
}

// Consume charges amount gas. When the limit would be exceeded the meter pins
// usage at the limit and returns ErrOutOfGas.
func (m *Meter) Consume(amount uint64, reason string) error {
	if m == nil {
		return nil
	}
	if amount > m.limit-m.used {
		m.used = m.limit
		return fmt.Errorf("%w: %s", ErrOutOfGas, reason)
	}
	m.used += amount
	return nil
}

// ChargeRead charges a single state read.
func (m *Meter) ChargeRead() error { return m.charge(func(s Schedule) uint64 { return s.StateRead }, "state read") }

// ChargeWrite charges a single state write.
func (m *Meter) ChargeWrite() error { return m.charge(func(s Schedule) uint64 { return s.StateWrite }, "state write") }

// ChargeCall charges a call into another contract.
func (m *Meter) ChargeCall() error {
	return m.charge(func(s Schedule) uint64 { return s.ExternalCall }, "external call")
}

// ChargeEvent charges an emitted event.
func (m *Meter) ChargeEvent() error { return m.charge(func(s Schedule) uint64 { return s.Event }, "event") }

// charge is a no-op on a nil meter, which views use for free execution.
func (m *Meter) charge(cost func(Schedule) uint64, reason string) error {
	if m == nil {
		return nil
	}
	return m.Consume(cost(m.schedule), reason)
}

// Used reports the gas consumed so far.
func (m *Meter) Used() uint64 {
	if m == nil {
		return 0
	}
	return m.used
}

// Remaining reports the gas still available.
func (m *Meter) Remaining() uint64 {
	if m == nil {
		return 0
	}
	return m.limit - m.used
}

// Limit reports the meter's limit.
func (m *Meter) Limit() uint64 {
	if m == nil {
		return 0
	}
	return m.limit
}
