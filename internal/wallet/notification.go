package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
)

type NotificationKind int

const (
	NotificationSubmitted NotificationKind = iota
	NotificationFinalized
	NotificationFailed
)

func (k NotificationKind) String() string {
	switch k {
	case NotificationSubmitted:
		return "submitted"
	case NotificationFinalized:
		return "finalized"
	case NotificationFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Notification is a lifecycle event of one submission. A submission emits
// Submitted first and then exactly one of Finalized or Failed, after which the
// channel is closed. ID is the transaction hash for regular submissions and
// the call bundle id for sponsored ones.
type Notification struct {
	Kind NotificationKind
	ID   string
	Logs []*types.Log
	Err  error
}

var (
	ErrUserRejected        = errors.New("user rejected the request")
	ErrSponsorshipRejected = errors.New("wallet rejected gas sponsorship")
	ErrUnsupportedMode     = errors.New("wallet does not support this submission mode")
	ErrReverted            = errors.New("transaction reverted")
	ErrChainMismatch       = errors.New("wallet is connected to a different chain")
	ErrNotIncluded         = errors.New("call bundle was not included onchain")
	ErrStatusUnknown       = errors.New("wallet did not report a call bundle status")
)

const (
	codeUserRejected          = 4001
	codeUnsupportedCapability = 5700
	codeUnsupportedChain      = 5710
)

// wrapRPCError tags wallet JSON-RPC errors with the matching sentinel so callers
// can use errors.Is without knowing the provider error codes.
func wrapRPCError(err error, sponsored bool) error {
	var rpcErr rpc.Error
	if !errors.As(err, &rpcErr) {
		return err
	}

	switch rpcErr.ErrorCode() {
	case codeUserRejected:
		return fmt.Errorf("%w: %w", ErrUserRejected, err)
	case codeUnsupportedCapability:
		if sponsored {
			return fmt.Errorf("%w: %w", ErrSponsorshipRejected, err)
		}
	case codeUnsupportedChain:
		return fmt.Errorf("%w: %w", ErrChainMismatch, err)
	}

	return err
}

// deliver pushes the terminal notification and closes the channel.
func deliver(ctx context.Context, ch chan<- Notification, n Notification) {
	defer close(ch)
	select {
	case ch <- n:
	case <-ctx.Done():
	}
}
