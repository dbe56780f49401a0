package calculator

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/buildmandi/backend/internal/models"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func order(id, gross string, platformFee *string) models.Order {
	o := models.Order{ID: id, GrossTotal: dec(gross)}
	if platformFee != nil {
		fee := dec(*platformFee)
		o.PlatformFee = &fee
	}
	return o
}

func strptr(s string) *string { return &s }

func TestCalculate(t *testing.T) {
	tests := []struct {
		name            string
		orders          []models.Order
		cfg             FeeConfig
		wantGross       string
		wantPlatformFee string
		wantMethod      models.PlatformFeeMethod
		wantCommission  string
		wantNet         string
		wantErr         bool
	}{
		{
			name: "flat percentage when per-order fees are missing",
			orders: []models.Order{
				order("o1", "10000", nil),
				order("o2", "20000", nil),
				order("o3", "5000", nil),
			},
			cfg:             FeeConfig{PlatformFeePct: dec("4"), CommissionPct: dec("1")},
			wantGross:       "35000",
			wantPlatformFee: "1400",
			wantMethod:      models.FeeMethodFlatPct,
			wantCommission:  "350",
			wantNet:         "33250",
		},
		{
			name: "per-order fees preferred when all orders carry one",
			orders: []models.Order{
				order("o1", "10000", strptr("300")),
				order("o2", "20000", strptr("700")),
			},
			cfg:             FeeConfig{PlatformFeePct: dec("4"), CommissionPct: dec("1")},
			wantGross:       "30000",
			wantPlatformFee: "1000",
			wantMethod:      models.FeeMethodPerOrder,
			wantCommission:  "300",
			wantNet:         "28700",
		},
		{
			name: "one missing per-order fee falls back to flat percentage",
			orders: []models.Order{
				order("o1", "10000", strptr("300")),
				order("o2", "20000", nil),
			},
			cfg:             FeeConfig{PlatformFeePct: dec("4"), CommissionPct: dec("1")},
			wantGross:       "30000",
			wantPlatformFee: "1200",
			wantMethod:      models.FeeMethodFlatPct,
			wantCommission:  "300",
			wantNet:         "28500",
		},
		{
			name: "negative adjustment deducts",
			orders: []models.Order{
				order("o1", "10000", nil),
			},
			cfg:             FeeConfig{PlatformFeePct: dec("4"), CommissionPct: dec("1"), Adjustment: dec("-250")},
			wantGross:       "10000",
			wantPlatformFee: "400",
			wantMethod:      models.FeeMethodFlatPct,
			wantCommission:  "100",
			wantNet:         "9250",
		},
		{
			name: "positive adjustment adds",
			orders: []models.Order{
				order("o1", "10000", nil),
			},
			cfg:             FeeConfig{PlatformFeePct: dec("0"), CommissionPct: dec("0"), Adjustment: dec("99.99")},
			wantGross:       "10000",
			wantPlatformFee: "0",
			wantMethod:      models.FeeMethodFlatPct,
			wantCommission:  "0",
			wantNet:         "10099.99",
		},
		{
			name: "commission rounded half-up once on the aggregate",
			orders: []models.Order{
				// 3 x 33.33 = 99.99; 1% of the aggregate = 0.9999 -> 1.00.
				// Summing per-order roundings (0.33 each) would give 0.99.
				order("o1", "33.33", nil),
				order("o2", "33.33", nil),
				order("o3", "33.33", nil),
			},
			cfg:             FeeConfig{PlatformFeePct: dec("0"), CommissionPct: dec("1")},
			wantGross:       "99.99",
			wantPlatformFee: "0",
			wantMethod:      models.FeeMethodFlatPct,
			wantCommission:  "1.00",
			wantNet:         "98.99",
		},
		{
			name:    "zero orders is an error",
			orders:  nil,
			cfg:     FeeConfig{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Calculate(tt.orders, tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Calculate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}

			check := func(field string, got decimal.Decimal, want string) {
				if !got.Equal(dec(want)) {
					t.Errorf("%s = %s, want %s", field, got, want)
				}
			}
			check("GrossTotal", got.GrossTotal, tt.wantGross)
			check("PlatformFee", got.PlatformFee, tt.wantPlatformFee)
			check("Commission", got.Commission, tt.wantCommission)
			check("NetPayout", got.NetPayout, tt.wantNet)
			if got.PlatformFeeMethod != tt.wantMethod {
				t.Errorf("PlatformFeeMethod = %s, want %s", got.PlatformFeeMethod, tt.wantMethod)
			}

			// The invariant must hold exactly, not within tolerance.
			recomputed := got.GrossTotal.Sub(got.PlatformFee).Sub(got.Commission).Add(got.Adjustment)
			if !got.NetPayout.Equal(recomputed) {
				t.Errorf("NetPayout %s != gross - fee - commission + adjustment (%s)", got.NetPayout, recomputed)
			}
		})
	}
}

func TestCalculate_Deterministic(t *testing.T) {
	orders := []models.Order{
		order("o1", "10000.01", nil),
		order("o2", "333.33", nil),
		order("o3", "0.07", nil),
	}
	cfg := FeeConfig{PlatformFeePct: dec("3.5"), CommissionPct: dec("1.25"), Adjustment: dec("-12.34")}

	first, err := Calculate(orders, cfg)
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}
	for i := 0; i < 100; i++ {
		again, err := Calculate(orders, cfg)
		if err != nil {
			t.Fatalf("Calculate failed on iteration %d: %v", i, err)
		}
		if !again.NetPayout.Equal(first.NetPayout) || !again.Commission.Equal(first.Commission) {
			t.Fatalf("iteration %d produced different result: %+v vs %+v", i, again, first)
		}
	}
}

func TestProRate(t *testing.T) {
	orders := []models.Order{
		order("o1", "100", nil),
		order("o2", "100", nil),
		order("o3", "100", nil),
	}
	b := Breakdown{
		GrossTotal:  dec("300"),
		PlatformFee: dec("10"),
		Commission:  dec("2"),
	}

	shares := ProRate(b, orders)
	if len(shares) != 3 {
		t.Fatalf("expected 3 shares, got %d", len(shares))
	}

	// 10/3 rounds to 3.33 per order; the remainder 0.01 lands on the last.
	if !shares[0].PlatformFee.Equal(dec("3.33")) || !shares[1].PlatformFee.Equal(dec("3.33")) {
		t.Errorf("unexpected fee shares: %s, %s", shares[0].PlatformFee, shares[1].PlatformFee)
	}
	if !shares[2].PlatformFee.Equal(dec("3.34")) {
		t.Errorf("last fee share = %s, want 3.34", shares[2].PlatformFee)
	}

	feeSum := decimal.Zero
	commSum := decimal.Zero
	for _, s := range shares {
		feeSum = feeSum.Add(s.PlatformFee)
		commSum = commSum.Add(s.Commission)
	}
	if !feeSum.Equal(b.PlatformFee) {
		t.Errorf("fee shares sum to %s, want %s", feeSum, b.PlatformFee)
	}
	if !commSum.Equal(b.Commission) {
		t.Errorf("commission shares sum to %s, want %s", commSum, b.Commission)
	}
}

func TestProRate_EmptyInputs(t *testing.T) {
	if shares := ProRate(Breakdown{}, nil); shares != nil {
		t.Errorf("expected nil shares for empty input, got %v", shares)
	}
}
