// Package calculator computes settlement fee breakdowns.
//
// All arithmetic is exact decimal; rounding is half-up, applied once to
// each aggregate figure rather than summed from per-order roundings.
package calculator

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/buildmandi/backend/internal/models"
)

// FeeConfig carries the percentages and manual adjustment for one
// settlement. Percentages are whole percents (4 means 4%), adjustment is
// a signed INR amount.
type FeeConfig struct {
	PlatformFeePct decimal.Decimal
	CommissionPct  decimal.Decimal
	Adjustment     decimal.Decimal
}

// Breakdown is the monetary result of settling a set of orders:
//
//	NetPayout = GrossTotal - PlatformFee - Commission + Adjustment
type Breakdown struct {
	GrossTotal        decimal.Decimal
	PlatformFee       decimal.Decimal
	PlatformFeeMethod models.PlatformFeeMethod
	Commission        decimal.Decimal
	Adjustment        decimal.Decimal
	NetPayout         decimal.Decimal
}

// OrderShare is a per-order slice of a Breakdown, for audit display.
type OrderShare struct {
	OrderID     string          `json:"order_id"`
	GrossTotal  decimal.Decimal `json:"gross_total"`
	PlatformFee decimal.Decimal `json:"platform_fee"`
	Commission  decimal.Decimal `json:"commission"`
	NetPayout   decimal.Decimal `json:"net_payout"`
}

// Calculate computes the settlement breakdown for the given orders.
//
// The platform fee prefers the fees recorded on each order at order time:
// when every order carries one, they are summed (method per_order). If any
// order lacks a recorded fee the flat percentage of the gross total is
// used instead (method flat_pct). The commission is always the commission
// percentage of the gross total, rounded half-up once on the aggregate.
func Calculate(orders []models.Order, cfg FeeConfig) (Breakdown, error) {
	if len(orders) == 0 {
		return Breakdown{}, fmt.Errorf("cannot calculate fees for zero orders")
	}

	gross := decimal.Zero
	perOrderFees := decimal.Zero
	allHaveFees := true
	for i := range orders {
		gross = gross.Add(orders[i].GrossTotal)
		if orders[i].PlatformFee == nil {
			allHaveFees = false
		} else if allHaveFees {
			perOrderFees = perOrderFees.Add(*orders[i].PlatformFee)
		}
	}

	var platformFee decimal.Decimal
	method := models.FeeMethodFlatPct
	if allHaveFees {
		platformFee = perOrderFees
		method = models.FeeMethodPerOrder
	} else {
		platformFee = percentOf(gross, cfg.PlatformFeePct)
	}

	commission := percentOf(gross, cfg.CommissionPct)

	net := gross.Sub(platformFee).Sub(commission).Add(cfg.Adjustment)

	return Breakdown{
		GrossTotal:        gross,
		PlatformFee:       platformFee,
		PlatformFeeMethod: method,
		Commission:        commission,
		Adjustment:        cfg.Adjustment,
		NetPayout:         net,
	}, nil
}

// ProRate distributes a breakdown across its orders proportionally to
// each order's gross total, for display. Shares are rounded half-up to
// two places; the rounding remainder lands on the last order in creation
// order, so the shares always sum exactly to the aggregate figures.
func ProRate(b Breakdown, orders []models.Order) []OrderShare {
	if len(orders) == 0 || b.GrossTotal.IsZero() {
		return nil
	}

	shares := make([]OrderShare, len(orders))
	feeLeft := b.PlatformFee
	commLeft := b.Commission

	for i := range orders {
		last := i == len(orders)-1

		var fee, comm decimal.Decimal
		if last {
			fee = feeLeft
			comm = commLeft
		} else {
			ratio := orders[i].GrossTotal.Div(b.GrossTotal)
			fee = b.PlatformFee.Mul(ratio).Round(2)
			comm = b.Commission.Mul(ratio).Round(2)
		}
		feeLeft = feeLeft.Sub(fee)
		commLeft = commLeft.Sub(comm)

		shares[i] = OrderShare{
			OrderID:     orders[i].ID,
			GrossTotal:  orders[i].GrossTotal,
			PlatformFee: fee,
			Commission:  comm,
			NetPayout:   orders[i].GrossTotal.Sub(fee).Sub(comm),
		}
	}

	return shares
}

// percentOf returns amount * pct / 100 rounded half-up to two places.
func percentOf(amount, pct decimal.Decimal) decimal.Decimal {
	return amount.Mul(pct).Div(decimal.NewFromInt(100)).Round(2)
}
