package correlate

// layout names a candidate ERC-20 storage layout's balance and allowance
// mapping base slots.
type layout struct {
	Name          string
	BalanceBase   uint64
	AllowanceBase uint64
}

// layouts is the fixed registry of ERC-20 storage layouts this module knows
// how to test a (token, slot) pair against. Order is fixed and iterated in
// this order so "first match wins" is deterministic.
var layouts = []layout{
	{Name: "oz", BalanceBase: 0, AllowanceBase: 1},
	{Name: "vyper", BalanceBase: 1, AllowanceBase: 2},
	{Name: "dai", BalanceBase: 2, AllowanceBase: 3},
	{Name: "weth", BalanceBase: 3, AllowanceBase: 4},
	{Name: "usdc-proxy", BalanceBase: 9, AllowanceBase: 10},
}
