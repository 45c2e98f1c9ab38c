package etherman

import ethcommon "github.com/ethereum/go-ethereum/common"

type Config struct {
	// URL is the URL of the Ethereum node
	URL string

	// TokenContractAddress is the deployed ERC-20 token contract
	TokenContractAddress ethcommon.Address

	// VaultAddress is the custodial address that receives migrating tokens
	VaultAddress ethcommon.Address

	// RequiredConfirmations is the depth a transfer must be buried under
	// before it is eligible for disbursement
	RequiredConfirmations uint64
}
