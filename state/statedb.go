package state

import (
	"database/sql"
	"errors"
	"math/big"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/docknetwork/migration-go/database"
)

var (
	// ErrDuplicateRequest is returned when a (ethAddress, ethTxnHash)
	// pair was already tracked. Duplicate submissions are rejected, not
	// merged.
	ErrDuplicateRequest = errors.New("already requested migration for this address and transaction")

	ErrRequestNotFound = errors.New("no migration request for this address and transaction")
)

// StateDB persists migration requests. All lifecycle writes are guarded
// by the expected prior status so an illegal transition never lands,
// even under an operator poking the table concurrently.
type StateDB struct {
	db        *sql.DB
	stmtCache *database.StmtCache
}

func NewStateDB(db *sql.DB) (*StateDB, error) {
	if _, err := db.Exec(requestsTable); err != nil {
		return nil, err
	}
	return &StateDB{
		db:        db,
		stmtCache: database.NewStmtCache(db),
	}, nil
}

func (st *StateDB) Close() {
	st.stmtCache.Clear()
}

// TrackNewRequest inserts a freshly validated intake request. The status
// must be sig_valid or invalid_blacklist; anything later in the
// lifecycle is set by the reconciliation passes, never at intake.
func (st *StateDB) TrackNewRequest(req *MigrationRequest) error {
	if req.Status != StatusSigValid && req.Status != StatusInvalidBlacklist {
		return ErrIllegalTransition
	}

	query := `INSERT INTO requests (ethAddress, ethTxnHash, mainnetAddress, status, signature, isVesting) VALUES (?, ?, ?, ?, ?, ?)`
	stmt, err := st.stmtCache.Prepare(query)
	if err != nil {
		return err
	}

	var isVesting sql.NullBool
	if req.IsVesting != nil {
		isVesting = sql.NullBool{Bool: *req.IsVesting, Valid: true}
	}

	if _, err := stmt.Exec(
		req.EthAddress,
		req.EthTxnHash,
		req.MainnetAddress,
		string(req.Status),
		req.Signature,
		isVesting,
	); err != nil {
		var serr sqlite3.Error
		if errors.As(err, &serr) && serr.Code == sqlite3.ErrConstraint {
			return ErrDuplicateRequest
		}
		return err
	}
	return nil
}

func (st *StateDB) GetRequest(ethAddress, ethTxnHash string) (*MigrationRequest, error) {
	query := `SELECT` + requestColumnList + `FROM requests WHERE ethAddress = ? AND ethTxnHash = ?`
	stmt, err := st.stmtCache.Prepare(query)
	if err != nil {
		return nil, err
	}

	r := &sqlRequest{}
	if err := r.scan(stmt.QueryRow(ethAddress, ethTxnHash)); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	return r.decode()
}

func (st *StateDB) queryRequests(query string, args ...interface{}) ([]*MigrationRequest, error) {
	stmt, err := st.stmtCache.Prepare(query)
	if err != nil {
		return nil, err
	}

	rows, err := stmt.Query(args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reqs := []*MigrationRequest{}
	for rows.Next() {
		r := &sqlRequest{}
		if err := r.scanRow(rows); err != nil {
			return nil, err
		}
		req, err := r.decode()
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, req)
	}
	return reqs, rows.Err()
}

// GetPendingMigrationRequests returns every request still waiting for
// its initial disbursement: valid signature through confirmed, nothing
// invalid, nothing already migrated.
func (st *StateDB) GetPendingMigrationRequests() ([]*MigrationRequest, error) {
	query := `SELECT` + requestColumnList + `FROM requests WHERE status IN (?, ?, ?)`
	return st.queryRequests(query,
		string(StatusSigValid), string(StatusTxnParsed), string(StatusTxnConfirmed))
}

// GetPendingBonusCalcRequests returns migrated requests whose bonus has
// not been computed. Rows with isVesting NULL are outside the bonus
// window and never join the bonus pass.
func (st *StateDB) GetPendingBonusCalcRequests() ([]*MigrationRequest, error) {
	query := `SELECT` + requestColumnList + `FROM requests WHERE status = ? AND isVesting IS NOT NULL`
	return st.queryRequests(query, string(StatusInitialTransferDone))
}

// CountByStatus counts the requests sitting in any of the given
// statuses. Used by the bonus pass to decide whether the eligible
// population is complete.
func (st *StateDB) CountByStatus(statuses ...RequestStatus) (int64, error) {
	query := `SELECT COUNT(*) FROM requests WHERE status IN (?` + strings.Repeat(", ?", len(statuses)-1) + `)`
	stmt, err := st.stmtCache.Prepare(query)
	if err != nil {
		return 0, err
	}
	args := make([]interface{}, len(statuses))
	for i, s := range statuses {
		args[i] = string(s)
	}
	var n int64
	if err := stmt.QueryRow(args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (st *StateDB) GetPendingBonusDispRequests(limit int) ([]*MigrationRequest, error) {
	query := `SELECT` + requestColumnList + `FROM requests WHERE status = ? AND isVesting IS NOT NULL LIMIT ?`
	return st.queryRequests(query, string(StatusBonusCalculated), limit)
}

// execGuarded runs a lifecycle write that must match the expected prior
// status(es). Zero rows affected means the row is missing or in another
// state, which callers treat as an illegal transition.
func (st *StateDB) execGuarded(query string, args ...interface{}) error {
	stmt, err := st.stmtCache.Prepare(query)
	if err != nil {
		return err
	}
	res, err := stmt.Exec(args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrIllegalTransition
	}
	return nil
}

// MarkRequestParsed records the decoded transfer amount for a request
// whose transaction lacks confirmations. sig_valid -> txn_parsed.
func (st *StateDB) MarkRequestParsed(ethAddress, ethTxnHash string, erc20Amount *big.Int) error {
	query := `UPDATE requests SET status = ?, erc20Amount = ? WHERE ethAddress = ? AND ethTxnHash = ? AND status = ?`
	return st.execGuarded(query,
		string(StatusTxnParsed), erc20Amount.String(),
		ethAddress, ethTxnHash, string(StatusSigValid))
}

// MarkRequestParsedAndConfirmed takes the one legal skip in the
// lifecycle: the transaction was already confirmed on first sight.
func (st *StateDB) MarkRequestParsedAndConfirmed(ethAddress, ethTxnHash string, erc20Amount *big.Int, blockNumber uint64) error {
	query := `UPDATE requests SET status = ?, erc20Amount = ?, ethTxnBlockNumber = ? WHERE ethAddress = ? AND ethTxnHash = ? AND status = ?`
	return st.execGuarded(query,
		string(StatusTxnConfirmed), erc20Amount.String(), blockNumber,
		ethAddress, ethTxnHash, string(StatusSigValid))
}

// MarkRequestConfirmed advances txn_parsed -> txn_confirmed once the
// confirmation depth is sufficient.
func (st *StateDB) MarkRequestConfirmed(ethAddress, ethTxnHash string, blockNumber uint64) error {
	query := `UPDATE requests SET status = ?, ethTxnBlockNumber = ? WHERE ethAddress = ? AND ethTxnHash = ? AND status = ?`
	return st.execGuarded(query,
		string(StatusTxnConfirmed), blockNumber,
		ethAddress, ethTxnHash, string(StatusTxnParsed))
}

// MarkRequestInvalid drops a request into the absorbing invalid state.
// Only legal before the initial transfer.
func (st *StateDB) MarkRequestInvalid(ethAddress, ethTxnHash string) error {
	query := `UPDATE requests SET status = ? WHERE ethAddress = ? AND ethTxnHash = ? AND status IN (?, ?, ?)`
	return st.execGuarded(query,
		string(StatusInvalid),
		ethAddress, ethTxnHash,
		string(StatusSigValid), string(StatusTxnParsed), string(StatusTxnConfirmed))
}

func (st *StateDB) MarkInitialMigrationDone(ethAddress, ethTxnHash, migrationTxnHash string, migrationTokens *big.Int) error {
	query := `UPDATE requests SET status = ?, migrationTxnHash = ?, migrationTokens = ? WHERE ethAddress = ? AND ethTxnHash = ? AND status = ?`
	return st.execGuarded(query,
		string(StatusInitialTransferDone), migrationTxnHash, migrationTokens.String(),
		ethAddress, ethTxnHash, string(StatusTxnConfirmed))
}

func (st *StateDB) UpdateBonuses(ethAddress, ethTxnHash string, swapBonus, vestingBonus *big.Int) error {
	query := `UPDATE requests SET status = ?, swapBonusTokens = ?, vestingBonusTokens = ? WHERE ethAddress = ? AND ethTxnHash = ? AND status = ?`
	return st.execGuarded(query,
		string(StatusBonusCalculated), swapBonus.String(), vestingBonus.String(),
		ethAddress, ethTxnHash, string(StatusInitialTransferDone))
}

// StoreCalculatedBonuses persists one bonus calculation pass in a
// single transaction. Either every row moves to bonus_calculated or
// none does; the fixed pools must never end up split over a fragment
// of the eligible population.
func (st *StateDB) StoreCalculatedBonuses(reqs []*MigrationRequest) error {
	tx, err := st.db.Begin()
	if err != nil {
		return err
	}
	query := `UPDATE requests SET status = ?, swapBonusTokens = ?, vestingBonusTokens = ? WHERE ethAddress = ? AND ethTxnHash = ? AND status = ?`
	stmt, err := tx.Prepare(query)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, r := range reqs {
		res, err := stmt.Exec(
			string(StatusBonusCalculated), r.SwapBonusTokens.String(), r.VestingBonusTokens.String(),
			r.EthAddress, r.EthTxnHash, string(StatusInitialTransferDone))
		if err != nil {
			tx.Rollback()
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			tx.Rollback()
			return err
		}
		if n == 0 {
			tx.Rollback()
			return ErrIllegalTransition
		}
	}
	return tx.Commit()
}

func (st *StateDB) MarkBonusTransferred(ethAddress, ethTxnHash, bonusTxnHash string) error {
	query := `UPDATE requests SET status = ?, bonusTxnHash = ? WHERE ethAddress = ? AND ethTxnHash = ? AND status = ?`
	return st.execGuarded(query,
		string(StatusBonusTransferred), bonusTxnHash,
		ethAddress, ethTxnHash, string(StatusBonusCalculated))
}

// DeleteRequest removes a row outright. Administrative use only; the
// reconciliation passes never delete.
func (st *StateDB) DeleteRequest(ethAddress, ethTxnHash string) error {
	query := `DELETE FROM requests WHERE ethAddress = ? AND ethTxnHash = ?`
	stmt, err := st.stmtCache.Prepare(query)
	if err != nil {
		return err
	}
	_, err = stmt.Exec(ethAddress, ethTxnHash)
	return err
}

// GetStats aggregates counts and token sums for the statistics route.
func (st *StateDB) GetStats() (*Stats, error) {
	stats := &Stats{
		ByStatus:          map[RequestStatus]int64{},
		TotalERC20:        new(big.Int),
		TotalMigrated:     new(big.Int),
		TotalSwapBonus:    new(big.Int),
		TotalVestingBonus: new(big.Int),
	}

	countStmt, err := st.stmtCache.Prepare(`SELECT status, COUNT(*) FROM requests GROUP BY status`)
	if err != nil {
		return nil, err
	}
	rows, err := countStmt.Query()
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		stats.ByStatus[RequestStatus(status)] = n
		stats.TotalRequests += n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	vestStmt, err := st.stmtCache.Prepare(`SELECT COUNT(*) FROM requests WHERE isVesting = 1`)
	if err != nil {
		return nil, err
	}
	if err := vestStmt.QueryRow().Scan(&stats.VestingOptedIn); err != nil {
		return nil, err
	}

	// Token sums don't fit in sqlite integers, so sum in Go.
	sumStmt, err := st.stmtCache.Prepare(`SELECT erc20Amount, migrationTokens, swapBonusTokens, vestingBonusTokens FROM requests`)
	if err != nil {
		return nil, err
	}
	sumRows, err := sumStmt.Query()
	if err != nil {
		return nil, err
	}
	defer sumRows.Close()
	for sumRows.Next() {
		var erc20, migrated sql.NullString
		var swap, vesting string
		if err := sumRows.Scan(&erc20, &migrated, &swap, &vesting); err != nil {
			return nil, err
		}
		for _, pair := range []struct {
			total *big.Int
			value sql.NullString
		}{
			{stats.TotalERC20, erc20},
			{stats.TotalMigrated, migrated},
			{stats.TotalSwapBonus, sql.NullString{String: swap, Valid: true}},
			{stats.TotalVestingBonus, sql.NullString{String: vesting, Valid: true}},
		} {
			v, err := decodeAmount(pair.value)
			if err != nil {
				return nil, err
			}
			if v != nil {
				pair.total.Add(pair.total, v)
			}
		}
	}
	return stats, sumRows.Err()
}
