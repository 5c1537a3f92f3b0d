package config

import (
	"github.com/shopspring/decimal"

	"github.com/iliyamo/marketplace-auction/internal/ledger"
)

// MarketConfig holds the marketplace policy knobs.
type MarketConfig struct {
	CommissionRate    decimal.Decimal // platform share of every settlement
	SellerAutoApprove bool            // new sellers may list without admin approval
}

// LoadMarketConfig reads MARKET_COMMISSION_RATE (default 0.05) and
// SELLER_AUTO_APPROVE (default true).
func LoadMarketConfig() (MarketConfig, error) {
	rate := ledger.DefaultCommissionRate
	if s := envStr("MARKET_COMMISSION_RATE", ""); s != "" {
		r, err := ledger.NewRate(s)
		if err != nil {
			return MarketConfig{}, err
		}
		rate = r
	}
	return MarketConfig{
		CommissionRate:    rate,
		SellerAutoApprove: envBool("SELLER_AUTO_APPROVE", true),
	}, nil
}
