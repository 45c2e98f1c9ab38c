package state

// Table that stores the life cycle of a migration request. Amounts are
// decimal strings since ERC-20 values overflow BIGINT. isVesting is a
// tri-state: NULL means the request arrived after the bonus window.
var requestsTable = `CREATE TABLE IF NOT EXISTS requests (
	ethAddress CHAR(40) NOT NULL,
	ethTxnHash CHAR(64) NOT NULL,
	mainnetAddress VARCHAR(64) NOT NULL,
	status VARCHAR(24) NOT NULL,
	signature CHAR(130) NOT NULL,
	isVesting BOOLEAN,
	erc20Amount VARCHAR(96),
	ethTxnBlockNumber BIGINT UNSIGNED,
	migrationTxnHash CHAR(64),
	migrationTokens VARCHAR(96),
	swapBonusTokens VARCHAR(96) NOT NULL DEFAULT '0',
	vestingBonusTokens VARCHAR(96) NOT NULL DEFAULT '0',
	bonusTxnHash CHAR(64),
	PRIMARY KEY (ethAddress, ethTxnHash),
	CONSTRAINT chk_status CHECK (status IN (
		'invalid_blacklist', 'invalid', 'sig_valid', 'txn_parsed',
		'txn_confirmed', 'initial_transfer_done', 'bonus_calculated',
		'bonus_transferred'
	)),
	CONSTRAINT chk_ethAddress CHECK (length(ethAddress) = 40),
	CONSTRAINT chk_ethTxnHash CHECK (length(ethTxnHash) = 64)
);`

var requestColumnList = ` ethAddress, ethTxnHash, mainnetAddress, status, signature,
	isVesting, erc20Amount, ethTxnBlockNumber, migrationTxnHash,
	migrationTokens, swapBonusTokens, vestingBonusTokens, bonusTxnHash `
