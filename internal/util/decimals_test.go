package util

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestToBaseUnits(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		decimals int
		want     string
		wantErr  bool
	}{
		{name: "whole USDC", amount: "10", decimals: 6, want: "10000000"},
		{name: "fractional", amount: "10.5", decimals: 6, want: "10500000"},
		{name: "full precision", amount: "0.000001", decimals: 6, want: "1"},
		{name: "truncates excess digits", amount: "1.2345678", decimals: 6, want: "1234567"},
		{name: "eighteen decimals", amount: "1.5", decimals: 18, want: "1500000000000000000"},
		{name: "zero", amount: "0", decimals: 6, want: "0"},
		{name: "negative", amount: "-2.5", decimals: 6, want: "-2500000"},
		{name: "empty", amount: "", decimals: 6, wantErr: true},
		{name: "two dots", amount: "1.2.3", decimals: 6, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToBaseUnits(tt.amount, tt.decimals)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got.String())
		})
	}
}

func TestFromBaseUnits(t *testing.T) {
	tests := []struct {
		name     string
		amount   *big.Int
		decimals int
		want     string
	}{
		{name: "whole", amount: big.NewInt(10000000), decimals: 6, want: "10"},
		{name: "fractional", amount: big.NewInt(10500000), decimals: 6, want: "10.5"},
		{name: "sub-unit", amount: big.NewInt(1), decimals: 6, want: "0.000001"},
		{name: "nil", amount: nil, decimals: 6, want: "0"},
		{name: "negative", amount: big.NewInt(-2500000), decimals: 6, want: "-2.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, FromBaseUnits(tt.amount, tt.decimals))
		})
	}
}

func TestScaleDecimals(t *testing.T) {
	tests := []struct {
		name string
		in   int64
		from int
		to   int
		want int64
	}{
		{name: "up", in: 5, from: 6, to: 18, want: 5_000_000_000_000},
		{name: "down truncates", in: 1_999_999, from: 6, to: 0, want: 1},
		{name: "same", in: 42, from: 6, to: 6, want: 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScaleDecimals(big.NewInt(tt.in), tt.from, tt.to)
			require.Equal(t, tt.want, got.Int64())
		})
	}
}
