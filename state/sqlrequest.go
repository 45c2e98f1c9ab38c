package state

import (
	"database/sql"
	"errors"
	"math/big"
)

var ErrAmountNotDecimal = errors.New("stored amount is not a decimal string")

// sqlRequest mirrors the requests table row. Conversion between it and
// MigrationRequest keeps all NULL handling in one place.
type sqlRequest struct {
	EthAddress         string
	EthTxnHash         string
	MainnetAddress     string
	Status             string
	Signature          string
	IsVesting          sql.NullBool
	ERC20Amount        sql.NullString
	EthTxnBlockNumber  sql.NullInt64
	MigrationTxnHash   sql.NullString
	MigrationTokens    sql.NullString
	SwapBonusTokens    string
	VestingBonusTokens string
	BonusTxnHash       sql.NullString
}

func (r *sqlRequest) scanRow(rows *sql.Rows) error {
	return rows.Scan(
		&r.EthAddress,
		&r.EthTxnHash,
		&r.MainnetAddress,
		&r.Status,
		&r.Signature,
		&r.IsVesting,
		&r.ERC20Amount,
		&r.EthTxnBlockNumber,
		&r.MigrationTxnHash,
		&r.MigrationTokens,
		&r.SwapBonusTokens,
		&r.VestingBonusTokens,
		&r.BonusTxnHash,
	)
}

func (r *sqlRequest) scan(row *sql.Row) error {
	return row.Scan(
		&r.EthAddress,
		&r.EthTxnHash,
		&r.MainnetAddress,
		&r.Status,
		&r.Signature,
		&r.IsVesting,
		&r.ERC20Amount,
		&r.EthTxnBlockNumber,
		&r.MigrationTxnHash,
		&r.MigrationTokens,
		&r.SwapBonusTokens,
		&r.VestingBonusTokens,
		&r.BonusTxnHash,
	)
}

func decodeAmount(s sql.NullString) (*big.Int, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	v, ok := new(big.Int).SetString(s.String, 10)
	if !ok {
		return nil, ErrAmountNotDecimal
	}
	return v, nil
}

func mustDecodeAmount(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, ErrAmountNotDecimal
	}
	return v, nil
}

func (r *sqlRequest) decode() (*MigrationRequest, error) {
	req := &MigrationRequest{
		EthAddress:     r.EthAddress,
		EthTxnHash:     r.EthTxnHash,
		MainnetAddress: r.MainnetAddress,
		Status:         RequestStatus(r.Status),
		Signature:      r.Signature,
	}

	if r.IsVesting.Valid {
		v := r.IsVesting.Bool
		req.IsVesting = &v
	}
	if r.EthTxnBlockNumber.Valid {
		req.EthTxnBlockNumber = uint64(r.EthTxnBlockNumber.Int64)
	}
	if r.MigrationTxnHash.Valid {
		req.MigrationTxnHash = r.MigrationTxnHash.String
	}
	if r.BonusTxnHash.Valid {
		req.BonusTxnHash = r.BonusTxnHash.String
	}

	var err error
	if req.ERC20Amount, err = decodeAmount(r.ERC20Amount); err != nil {
		return nil, err
	}
	if req.MigrationTokens, err = decodeAmount(r.MigrationTokens); err != nil {
		return nil, err
	}
	if req.SwapBonusTokens, err = mustDecodeAmount(r.SwapBonusTokens); err != nil {
		return nil, err
	}
	if req.VestingBonusTokens, err = mustDecodeAmount(r.VestingBonusTokens); err != nil {
		return nil, err
	}

	return req, nil
}
