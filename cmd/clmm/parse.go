package main

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"lukechampine.com/uint128"

	"clmm/internal/tickmath"
	"clmm/internal/token"
)

// parseAddress converts a hex address. "native" names the deposit mint.
func parseAddress(name, input string) (common.Address, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return common.Address{}, fmt.Errorf("%s is required", name)
	}
	if strings.EqualFold(input, "native") {
		return token.NativeMint, nil
	}
	if !common.IsHexAddress(input) {
		return common.Address{}, fmt.Errorf("invalid %s address: %s", name, input)
	}
	return common.HexToAddress(input), nil
}

func parseUint128(name, input string) (uint128.Uint128, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return uint128.Zero, fmt.Errorf("%s is required", name)
	}
	v, err := uint128.FromString(input)
	if err != nil {
		return uint128.Zero, fmt.Errorf("invalid %s: %w", name, err)
	}
	return v, nil
}

// parseSqrtPrice reads --sqrt-price or, when it is unset, derives the price
// from --tick.
func parseSqrtPrice(cmd *cobra.Command) (uint128.Uint128, error) {
	if raw, _ := cmd.Flags().GetString("sqrt-price"); raw != "" {
		return parseUint128("sqrt-price", raw)
	}
	if !cmd.Flags().Changed("tick") {
		return uint128.Zero, fmt.Errorf("one of --sqrt-price or --tick is required")
	}
	tick, _ := cmd.Flags().GetInt32("tick")
	price, err := tickmath.SqrtPriceFromTick(tick)
	if err != nil {
		return uint128.Zero, fmt.Errorf("sqrt price for tick %d: %w", tick, err)
	}
	return price, nil
}

func addressFlag(cmd *cobra.Command, name string) (common.Address, error) {
	raw, _ := cmd.Flags().GetString(name)
	return parseAddress(name, raw)
}
