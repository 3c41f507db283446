package game

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/core"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/onchain-coinflip/coinflip/internal/tx"
	"github.com/onchain-coinflip/coinflip/internal/wallet"
)

var (
	ErrAttemptInFlight   = errors.New("a flip is already in progress")
	ErrNoChoice          = errors.New("choose heads or tails first")
	ErrNoFlipsRemaining  = errors.New("no flips remaining today")
	ErrUnsupportedChain  = errors.New("wallet is connected to an unsupported chain")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrAttemptDiscarded  = errors.New("attempt was discarded")
)

type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindConfiguration
	KindNetworkMismatch
	KindUserRejection
	KindInsufficientFunds
	KindDailyLimitExceeded
	KindSponsorshipUnavailable
)

func (k ErrorKind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindNetworkMismatch:
		return "network_mismatch"
	case KindUserRejection:
		return "user_rejection"
	case KindInsufficientFunds:
		return "insufficient_funds"
	case KindDailyLimitExceeded:
		return "daily_limit_exceeded"
	case KindSponsorshipUnavailable:
		return "sponsorship_unavailable"
	default:
		return "unknown"
	}
}

// Message is the player-facing text for the kind.
func (k ErrorKind) Message() string {
	switch k {
	case KindConfiguration:
		return "Contract not available on this network"
	case KindNetworkMismatch:
		return "Wrong network, switch your wallet to a supported chain"
	case KindUserRejection:
		return "Request rejected in wallet"
	case KindInsufficientFunds:
		return "Not enough ETH to pay for gas"
	case KindDailyLimitExceeded:
		return "No flips left today, come back later"
	case KindSponsorshipUnavailable:
		return "Gas sponsorship unavailable, next flip pays its own gas"
	default:
		return "Flip failed"
	}
}

// Retryable reports whether the player can retry without changing anything
// outside the game.
func (k ErrorKind) Retryable() bool {
	switch k {
	case KindConfiguration, KindNetworkMismatch, KindDailyLimitExceeded:
		return false
	default:
		return true
	}
}

// FlipError is a classified attempt failure.
type FlipError struct {
	Kind ErrorKind
	Err  error
}

func (e *FlipError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *FlipError) Unwrap() error {
	return e.Err
}

// Classify maps a submission error onto the error taxonomy. It never returns nil
// for a non-nil err. Funding and inclusion failures of a sponsored attempt are
// the paymaster's, not the player's.
func Classify(err error, mode tx.Mode) *FlipError {
	if err == nil {
		return nil
	}

	var flipErr *FlipError
	if errors.As(err, &flipErr) {
		return flipErr
	}

	kind := classifyKind(err)
	if mode == tx.ModeSponsored && (kind == KindInsufficientFunds || errors.Is(err, wallet.ErrNotIncluded)) {
		kind = KindSponsorshipUnavailable
	}

	return &FlipError{Kind: kind, Err: err}
}

func classifyKind(err error) ErrorKind {
	switch {
	case errors.Is(err, tx.ErrContractUnavailable),
		errors.Is(err, tx.ErrSponsorshipNotConfigured),
		errors.Is(err, tx.ErrNoChoice):
		return KindConfiguration
	case errors.Is(err, wallet.ErrChainMismatch), errors.Is(err, ErrUnsupportedChain):
		return KindNetworkMismatch
	case errors.Is(err, wallet.ErrUserRejected):
		return KindUserRejection
	case errors.Is(err, wallet.ErrSponsorshipRejected), errors.Is(err, wallet.ErrUnsupportedMode):
		return KindSponsorshipUnavailable
	case errors.Is(err, core.ErrInsufficientFunds), errors.Is(err, core.ErrInsufficientFundsForTransfer):
		return KindInsufficientFunds
	case errors.Is(err, ErrNoFlipsRemaining):
		return KindDailyLimitExceeded
	}

	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == 4001 {
		return KindUserRejection
	}

	// Errors relayed over JSON-RPC lose their sentinels; fall back to the node
	// and contract wording.
	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, "insufficient funds"):
		return KindInsufficientFunds
	case containsAny(msg, "no flips remaining", "daily limit", "already flipped", "cannot flip today"):
		return KindDailyLimitExceeded
	case containsAny(msg, "user rejected", "user denied", "rejected the request"):
		return KindUserRejection
	case containsAny(msg, "paymaster", "sponsorship"):
		return KindSponsorshipUnavailable
	}

	return KindUnknown
}

func containsAny(s string, needles ...string) bool {
	for _, needle := range needles {
		if strings.Contains(s, needle) {
			return true
		}
	}
	return false
}
