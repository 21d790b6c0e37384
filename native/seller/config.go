package seller

import (
	"math/big"
)

// Price returns the native units charged per custody token.
func (e *Engine) Price() (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	cfg, err := e.loadConfig()
	if err != nil {
		return nil, err
	}
	return copyBig(cfg.Price), nil
}

// RewardFraction returns the referral reward ratio.
func (e *Engine) RewardFraction() (Fraction, error) {
	if err := e.ready(); err != nil {
		return Fraction{}, err
	}
	cfg, err := e.loadConfig()
	if err != nil {
		return Fraction{}, err
	}
	return Fraction{Numerator: copyBig(cfg.RewardNumerator), Denominator: copyBig(cfg.RewardDenominator)}, nil
}

// CustodyToken returns the reference of the token the seller disburses.
func (e *Engine) CustodyToken() ([20]byte, error) {
	if err := e.ready(); err != nil {
		return [20]byte{}, err
	}
	cfg, err := e.loadConfig()
	if err != nil {
		return [20]byte{}, err
	}
	return cfg.CustodyToken, nil
}

// SetCustodyToken points the seller at a different custody token. The
// reference is not checked against deployed tokens.
func (e *Engine) SetCustodyToken(caller, ref [20]byte) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.requireRank(caller, RankFull); err != nil {
		return err
	}
	cfg, err := e.loadConfig()
	if err != nil {
		return err
	}
	previous := cfg.CustodyToken
	cfg.CustodyToken = ref
	if err := e.state.SellerConfigPut(e.self, cfg); err != nil {
		return err
	}
	e.emit(CustodyUpdatedEvent(e.self, caller, previous, ref))
	return nil
}

// SetPrice replaces the unit price. Zero is accepted and disables purchases.
func (e *Engine) SetPrice(caller [20]byte, price *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.requireRank(caller, RankSetPrice); err != nil {
		return err
	}
	if _, err := toUint256(price); err != nil {
		return err
	}
	cfg, err := e.loadConfig()
	if err != nil {
		return err
	}
	cfg.Price = copyBig(price)
	if err := e.state.SellerConfigPut(e.self, cfg); err != nil {
		return err
	}
	e.emit(PriceUpdatedEvent(e.self, caller, cfg.Price))
	return nil
}

// SetRewardFraction replaces the referral reward ratio. The fraction is not
// bounded above.
func (e *Engine) SetRewardFraction(caller [20]byte, numerator, denominator *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.requireRank(caller, RankFull); err != nil {
		return err
	}
	if _, err := toUint256(numerator); err != nil {
		return err
	}
	den, err := toUint256(denominator)
	if err != nil {
		return err
	}
	if den.IsZero() {
		return ErrInvalidFraction
	}
	cfg, err := e.loadConfig()
	if err != nil {
		return err
	}
	cfg.RewardNumerator = copyBig(numerator)
	cfg.RewardDenominator = copyBig(denominator)
	if err := e.state.SellerConfigPut(e.self, cfg); err != nil {
		return err
	}
	e.emit(RewardUpdatedEvent(e.self, caller, cfg.RewardNumerator, cfg.RewardDenominator))
	return nil
}
