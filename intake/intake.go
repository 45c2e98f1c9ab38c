package intake

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	logger "github.com/sirupsen/logrus"

	"github.com/docknetwork/migration-go/common"
	"github.com/docknetwork/migration-go/metrics"
	"github.com/docknetwork/migration-go/state"
)

var (
	ErrBonusWindowClosed = errors.New("bonus window is closed")
	ErrMigrationOver     = errors.New("migration is over")
	ErrBlacklisted       = errors.New("address is blacklisted")
	ErrBadStatusQuery    = errors.New("status query is invalid")
)

type Config struct {
	// SS58 prefix submitted addresses must carry.
	NetworkPrefix byte

	// BonusEndsAt closes the with-bonus route; MigrationEndsAt closes
	// the plain route. Zero means never.
	BonusEndsAt     time.Time
	MigrationEndsAt time.Time

	// Ethereum addresses whose submissions are tracked as blacklisted.
	// Any hex casing, with or without 0x prefix.
	Blacklist []string
}

// Handler validates incoming submissions and tracks them in the store.
// Everything past this point runs asynchronously in the reconciliation
// driver, so a handler error is the only synchronous feedback a holder
// gets.
type Handler struct {
	db        *state.StateDB
	cfg       *Config
	blacklist map[string]struct{}

	// test hook
	now func() time.Time
}

func NewHandler(db *state.StateDB, cfg *Config) *Handler {
	blacklist := make(map[string]struct{}, len(cfg.Blacklist))
	for _, addr := range cfg.Blacklist {
		blacklist[normalizeEthAddress(addr)] = struct{}{}
	}
	return &Handler{
		db:        db,
		cfg:       cfg,
		blacklist: blacklist,
		now:       time.Now,
	}
}

func normalizeEthAddress(addr string) string {
	return common.Trim0xPrefix(strings.ToLower(addr))
}

func (h *Handler) isBlacklisted(ethAddress string) bool {
	_, found := h.blacklist[normalizeEthAddress(ethAddress)]
	return found
}

func (h *Handler) checkWindow(withBonus bool) error {
	if withBonus {
		if !h.cfg.BonusEndsAt.IsZero() && h.now().After(h.cfg.BonusEndsAt) {
			return ErrBonusWindowClosed
		}
		return nil
	}
	if !h.cfg.MigrationEndsAt.IsZero() && h.now().After(h.cfg.MigrationEndsAt) {
		return ErrMigrationOver
	}
	return nil
}

// SubmitRequest validates one submission and persists it. A
// blacklisted signer is persisted in the blacklisted state and still
// reported as an error; any other validation failure leaves no trace.
// Duplicates surface as state.ErrDuplicateRequest.
func (h *Handler) SubmitRequest(payload, signature string, withBonus bool) (*Submission, error) {
	if err := h.checkWindow(withBonus); err != nil {
		metrics.IntakeRequests.WithLabelValues("window_closed").Inc()
		return nil, err
	}

	sub, err := ParsePayload(payload, signature, withBonus, h.cfg.NetworkPrefix)
	if err != nil {
		metrics.IntakeRequests.WithLabelValues("rejected").Inc()
		return nil, err
	}

	req := &state.MigrationRequest{
		EthAddress:     sub.EthAddress,
		EthTxnHash:     sub.EthTxnHash,
		MainnetAddress: sub.MainnetAddress,
		Status:         state.StatusSigValid,
		Signature:      sub.Signature,
		IsVesting:      sub.IsVesting,
	}

	if h.isBlacklisted(sub.EthAddress) {
		req.Status = state.StatusInvalidBlacklist
		if err := h.db.TrackNewRequest(req); err != nil && !errors.Is(err, state.ErrDuplicateRequest) {
			return nil, err
		}
		logger.WithFields(logger.Fields{
			"ethAddress": sub.EthAddress,
			"ethTxnHash": sub.EthTxnHash,
		}).Warn("blacklisted address submitted a migration request")
		metrics.IntakeRequests.WithLabelValues("blacklisted").Inc()
		return nil, ErrBlacklisted
	}

	if err := h.db.TrackNewRequest(req); err != nil {
		if errors.Is(err, state.ErrDuplicateRequest) {
			metrics.IntakeRequests.WithLabelValues("duplicate").Inc()
		}
		return nil, err
	}

	logger.WithFields(logger.Fields{
		"ethAddress":     sub.EthAddress,
		"ethTxnHash":     sub.EthTxnHash,
		"mainnetAddress": sub.MainnetAddress,
		"withBonus":      withBonus,
	}).Info("tracked new migration request")
	metrics.IntakeRequests.WithLabelValues("accepted").Inc()
	return sub, nil
}

// ValidateStatusQuery normalizes a status lookup. Returns the Ethereum
// address and transaction hash in store form.
func (h *Handler) ValidateStatusQuery(address, txnHash string) (string, string, error) {
	if address == "" || txnHash == "" {
		return "", "", fmt.Errorf("%w: address and txnHash must be supplied", ErrBadStatusQuery)
	}

	hash := common.Trim0xPrefix(strings.ToLower(txnHash))
	if len(hash) != TxnHashSize*2 {
		return "", "", fmt.Errorf("%w: txnHash must be %d chars, got %d", ErrBadStatusQuery, TxnHashSize*2, len(hash))
	}
	if _, err := hex.DecodeString(hash); err != nil {
		return "", "", fmt.Errorf("%w: txnHash is not hex", ErrBadStatusQuery)
	}

	ethAddress := normalizeEthAddress(address)
	if h.isBlacklisted(ethAddress) {
		return "", "", ErrBlacklisted
	}
	return ethAddress, hash, nil
}
