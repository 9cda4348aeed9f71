package registry

// Multicall3 is deployed at the same address on every supported EVM network.
const multicall3 = "0xcA11bde05977b3631167028862bE2a173976CA11"

// opGasPriceOracle is the OP-stack predeploy charging the L1 data fee.
const opGasPriceOracle = "0x420000000000000000000000000000000000000F"

// TronMainnetID is the conventional numeric id for Tron mainnet (0x2b6653dc).
const TronMainnetID uint64 = 728126428

// Mainnet returns the built-in production registry. Order matters: the intent
// builder drains sources first-fit in this order.
func Mainnet() *Registry {
	return New([]Network{
		{
			ID:            1,
			Name:          "ethereum",
			Family:        FamilyEVM,
			RPCURL:        "https://eth.llamarpc.com",
			NativeSymbol:  "ETH",
			NativeDecimal: 18,
			Vault:         "0x8d2F3CdbfF30A1a82E8Bc55eA16869D6C29bB7bF",
			Multicall:     multicall3,
			// Mainnet is the high-security network: approvals only, never
			// off-chain permits.
			ApprovalsOnly: true,
			GasBufferNum:  3,
			GasBufferDen:  2,
			FixedGasUnits: 300_000,
			Tokens: []Token{
				{Symbol: "USDC", Address: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", Decimals: 6, Permit: PermitEIP2612},
				{Symbol: "USDT", Address: "0xdAC17F958D2ee523a2206206994597C13D831ec7", Decimals: 6, Permit: PermitNone},
				{Symbol: "DAI", Address: "0x6B175474E89094C44Da98b954EedeAC495271d0F", Decimals: 18, Permit: PermitDAI},
				{Symbol: "WETH", Address: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", Decimals: 18, Permit: PermitNone},
			},
		},
		{
			ID:            10,
			Name:          "optimism",
			Family:        FamilyEVM,
			RPCURL:        "https://mainnet.optimism.io",
			NativeSymbol:  "ETH",
			NativeDecimal: 18,
			Vault:         "0x63aF1f6eE2e0bD7E1E7a549a14D1f4d289e19BA9",
			Multicall:     multicall3,
			L1FeeOracle:   opGasPriceOracle,
			GasBufferNum:  3,
			GasBufferDen:  2,
			FixedGasUnits: 300_000,
			Tokens: []Token{
				{Symbol: "USDC", Address: "0x0b2C639c533813f4Aa9D7837CACdC7094355cAe2", Decimals: 6, Permit: PermitEIP2612},
				{Symbol: "USDT", Address: "0x94b008aA00579c1307B0EF2c499aD98a8ce58e58", Decimals: 6, Permit: PermitNone},
			},
		},
		{
			ID:            137,
			Name:          "polygon",
			Family:        FamilyEVM,
			RPCURL:        "https://polygon-rpc.com",
			NativeSymbol:  "POL",
			NativeDecimal: 18,
			Vault:         "0xB1D36e7045a6bF12e2fD6Bc09BD08b13dF7C5F25",
			Multicall:     multicall3,
			GasBufferNum:  2,
			GasBufferDen:  1,
			FixedGasUnits: 300_000,
			Tokens: []Token{
				{Symbol: "USDC", Address: "0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359", Decimals: 6, Permit: PermitEIP2612},
				// Bridged USDC keeps the DAI-style permit message.
				{Symbol: "USDC.e", Address: "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174", Decimals: 6, Permit: PermitDAI},
				{Symbol: "USDT", Address: "0xc2132D05D31c914a87C6611C10748AEb04B58e8F", Decimals: 6, Permit: PermitNone},
			},
		},
		{
			ID:            42161,
			Name:          "arbitrum",
			Family:        FamilyEVM,
			RPCURL:        "https://arb1.arbitrum.io/rpc",
			NativeSymbol:  "ETH",
			NativeDecimal: 18,
			Vault:         "0x2E50cD14a98D4a06DD3A9Bf62cdeD4Fb2f54aC5e",
			Multicall:     multicall3,
			GasBufferNum:  3,
			GasBufferDen:  2,
			FixedGasUnits: 600_000,
			Tokens: []Token{
				{Symbol: "USDC", Address: "0xaf88d065e77c8cC2239327C5EDb3A432268e5831", Decimals: 6, Permit: PermitEIP2612},
				{Symbol: "USDT", Address: "0xFd086bC7CD5C481DCC9C85ebE478A1C0b69FCbb9", Decimals: 6, Permit: PermitNone},
			},
		},
		{
			ID:              43114,
			Name:            "avalanche",
			Family:          FamilyEVM,
			RPCURL:          "https://api.avax.network/ext/bc/C/rpc",
			NativeSymbol:    "AVAX",
			NativeDecimal:   18,
			Vault:           "0x7Fa9385bE102ac3EAc297483Dd6233D62b3e1496",
			Multicall:       multicall3,
			HasBalanceIndex: true,
			GasBufferNum:    3,
			GasBufferDen:    2,
			FixedGasUnits:   300_000,
			Tokens: []Token{
				{Symbol: "USDC", Address: "0xB97EF9Ef8734C71904D8002F8b6Bc66Dd9c48a6E", Decimals: 6, Permit: PermitEIP2612},
				{Symbol: "USDT", Address: "0x9702230A8Ea53601f5cD2dc00fDBc13d4dF4A8c7", Decimals: 6, Permit: PermitNone},
			},
		},
		{
			ID:            8453,
			Name:          "base",
			Family:        FamilyEVM,
			RPCURL:        "https://mainnet.base.org",
			NativeSymbol:  "ETH",
			NativeDecimal: 18,
			Vault:         "0x9C7bEF4F9b5dE25Cf7c13C73DE0f85De68D0aB2A",
			Multicall:     multicall3,
			L1FeeOracle:   opGasPriceOracle,
			GasBufferNum:  3,
			GasBufferDen:  2,
			FixedGasUnits: 300_000,
			Tokens: []Token{
				{Symbol: "USDC", Address: "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913", Decimals: 6, Permit: PermitEIP2612},
			},
		},
		{
			ID:            534352,
			Name:          "scroll",
			Family:        FamilyEVM,
			RPCURL:        "https://rpc.scroll.io",
			NativeSymbol:  "ETH",
			NativeDecimal: 18,
			Vault:         "0x1a44076050125825900e736c501f859c50fE728c",
			Multicall:     multicall3,
			GasBufferNum:  3,
			GasBufferDen:  2,
			FixedGasUnits: 300_000,
			Tokens: []Token{
				{Symbol: "USDC", Address: "0x06eFdBFf2a14a7c8E15944D1F4A48F9F95F663A4", Decimals: 6, Permit: PermitEIP2612},
			},
		},
		{
			ID:            TronMainnetID,
			Name:          "tron",
			Family:        FamilyTron,
			RPCURL:        "https://api.trongrid.io",
			NativeSymbol:  "TRX",
			NativeDecimal: 6,
			Vault:         "TXFBqm9kY31CyMdcZ3HzLNgaAGN4NuwxQ9",
			// Tron balances are served by the relay, not fetched client-side.
			HasBalanceIndex: true,
			FixedGasUnits:   0,
			Tokens: []Token{
				{Symbol: "USDT", Address: "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t", Decimals: 6, Permit: PermitNone},
			},
		},
	})
}
