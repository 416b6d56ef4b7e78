package types

import (
	errorsmod "cosmossdk.io/errors"
)

// ModuleName is the codespace of every error registered below.
const ModuleName = "amm"

// Error codes start at 2; code 1 is reserved for internal errors.
var (
	ErrPoolExists            = errorsmod.Register(ModuleName, 2, "pool already exists")
	ErrPoolNotFound          = errorsmod.Register(ModuleName, 3, "pool does not exist")
	ErrImbalancedDeposit     = errorsmod.Register(ModuleName, 4, "deposit ratio does not match pool ratio")
	ErrInsufficientShare     = errorsmod.Register(ModuleName, 5, "insufficient LP tokens")
	ErrInsufficientLiquidity = errorsmod.Register(ModuleName, 6, "insufficient liquidity")
	ErrInvalidAmount         = errorsmod.Register(ModuleName, 7, "invalid amount")
	ErrInvalidParameter      = errorsmod.Register(ModuleName, 8, "invalid parameter")
)
