package wallet

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/onchain-coinflip/coinflip/internal/logger"
	"github.com/onchain-coinflip/coinflip/internal/sponsorship"
	"github.com/onchain-coinflip/coinflip/internal/tx"
)

const (
	sendCallsRPCMethod       = "wallet_sendCalls"
	getCallsStatusRPCMethod  = "wallet_getCallsStatus"
	getCapabilitiesRPCMethod = "wallet_getCapabilities"
	chainIDRPCMethod         = "eth_chainId"

	sendCallsVersion = "2.0.0"
)

// EIP-5792 call bundle status codes.
const (
	callsStatusPending        = 100
	callsStatusConfirmed      = 200
	callsStatusOffchainFailed = 400
	callsStatusReverted       = 500
	callsStatusPartialRevert  = 600
)

// maxUnansweredPolls is how many status polls in a row may fail or come back
// without a known code before the bundle is given up on.
const maxUnansweredPolls = 30

type (
	rpcCaller interface {
		CallContext(ctx context.Context, result any, method string, args ...any) error
	}

	// RemoteWallet drives an external EIP-5792 wallet over JSON-RPC. Both
	// submission modes go through wallet_sendCalls; sponsored bundles carry the
	// paymasterService capability.
	RemoteWallet struct {
		rpc          rpcCaller
		address      common.Address
		pollInterval time.Duration
		logger       *slog.Logger
	}

	sendCallsRequest struct {
		Version        string               `json:"version"`
		ChainID        hexutil.Uint64       `json:"chainId"`
		From           common.Address       `json:"from"`
		AtomicRequired bool                 `json:"atomicRequired"`
		Calls          []callRequest        `json:"calls"`
		Capabilities   *requestCapabilities `json:"capabilities,omitempty"`
	}

	callRequest struct {
		To    common.Address `json:"to"`
		Data  hexutil.Bytes  `json:"data"`
		Value *hexutil.Big   `json:"value,omitempty"`
	}

	requestCapabilities struct {
		PaymasterService *sponsorship.PaymasterService `json:"paymasterService,omitempty"`
	}

	callsStatus struct {
		ID       string          `json:"id"`
		Status   callsStatusCode `json:"status"`
		Receipts []callsReceipt  `json:"receipts"`
	}

	callsReceipt struct {
		Status          hexutil.Uint64 `json:"status"`
		TransactionHash common.Hash    `json:"transactionHash"`
		Logs            []receiptLog   `json:"logs"`
	}

	// receiptLog is the trimmed log shape wallets return inside call receipts.
	receiptLog struct {
		Address common.Address `json:"address"`
		Topics  []common.Hash  `json:"topics"`
		Data    hexutil.Bytes  `json:"data"`
	}

	callsID         string
	callsStatusCode int
)

func NewRemoteWallet(client rpcCaller, address common.Address, pollInterval time.Duration) *RemoteWallet {
	return &RemoteWallet{
		rpc:          client,
		address:      address,
		pollInterval: pollInterval,
		logger:       logger.Named("remote_wallet"),
	}
}

func (w *RemoteWallet) Address() common.Address {
	return w.address
}

func (w *RemoteWallet) ChainID(ctx context.Context) (uint64, error) {
	var id hexutil.Uint64
	if err := w.rpc.CallContext(ctx, &id, chainIDRPCMethod); err != nil {
		return 0, fmt.Errorf("failed to get chain id: %w", wrapRPCError(err, false))
	}
	return uint64(id), nil
}

// Capabilities asks the wallet what it supports on chainID. The result is not
// cached; wallets may change answers between calls.
func (w *RemoteWallet) Capabilities(ctx context.Context, chainID uint64) (sponsorship.Capabilities, error) {
	var raw map[string]map[string]json.RawMessage
	err := w.rpc.CallContext(ctx, &raw, getCapabilitiesRPCMethod, w.address, []hexutil.Uint64{hexutil.Uint64(chainID)})
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet capabilities: %w", wrapRPCError(err, false))
	}

	return parseCapabilities(raw, w.logger), nil
}

func (w *RemoteWallet) Submit(ctx context.Context, d tx.Descriptor) (<-chan Notification, error) {
	sponsored := d.Mode == tx.ModeSponsored

	request := sendCallsRequest{
		Version:        sendCallsVersion,
		ChainID:        hexutil.Uint64(d.ChainID),
		From:           w.address,
		AtomicRequired: true,
		Calls:          make([]callRequest, 0, len(d.Calls)),
	}
	for _, call := range d.Calls {
		request.Calls = append(request.Calls, callRequest{To: call.To, Data: call.Data})
	}
	if sponsored {
		if d.Paymaster == nil {
			return nil, fmt.Errorf("%w: sponsored flip without paymaster", ErrSponsorshipRejected)
		}
		request.Capabilities = &requestCapabilities{PaymasterService: d.Paymaster}
	}

	var result callsID
	if err := w.rpc.CallContext(ctx, &result, sendCallsRPCMethod, request); err != nil {
		return nil, fmt.Errorf("failed to send calls: %w", wrapRPCError(err, sponsored))
	}

	id := string(result)
	w.logger.With("calls_id", id, "mode", d.Mode.String()).Info("flip calls sent")

	updates := make(chan Notification, 2)
	updates <- Notification{Kind: NotificationSubmitted, ID: id}
	go w.await(ctx, id, updates)

	return updates, nil
}

func (w *RemoteWallet) await(ctx context.Context, id string, updates chan<- Notification) {
	log := w.logger.With("calls_id", id)
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	unanswered := 0
	for {
		select {
		case <-ctx.Done():
			deliver(ctx, updates, Notification{Kind: NotificationFailed, ID: id, Err: ctx.Err()})
			return
		case <-ticker.C:
		}

		var status callsStatus
		err := w.rpc.CallContext(ctx, &status, getCallsStatusRPCMethod, id)
		switch {
		case err != nil:
			log.With("error", err).Warn("failed to fetch calls status, retrying")
		case status.Status < callsStatusPending:
			log.With("status", int(status.Status)).Debug("unrecognized calls status")
		case status.Status < callsStatusConfirmed:
			unanswered = 0
			continue
		default:
			deliver(ctx, updates, w.final(id, status))
			return
		}

		unanswered++
		if unanswered >= maxUnansweredPolls {
			log.With("polls", unanswered).Warn("giving up on calls status")
			deliver(ctx, updates, Notification{Kind: NotificationFailed, ID: id, Err: ErrStatusUnknown})
			return
		}
	}
}

// final maps a settled bundle status onto its notification.
func (w *RemoteWallet) final(id string, status callsStatus) Notification {
	switch {
	case status.Status == callsStatusConfirmed && status.reverted():
		return Notification{Kind: NotificationFailed, ID: id, Err: ErrReverted}
	case status.Status == callsStatusConfirmed:
		w.logger.With("calls_id", id, "receipts", len(status.Receipts)).Info("flip calls confirmed")
		return Notification{Kind: NotificationFinalized, ID: id, Logs: status.logs()}
	case status.Status == callsStatusOffchainFailed:
		return Notification{Kind: NotificationFailed, ID: id, Err: ErrNotIncluded}
	default:
		w.logger.With("calls_id", id, "status", int(status.Status)).Warn("flip calls reverted")
		return Notification{Kind: NotificationFailed, ID: id, Err: ErrReverted}
	}
}

func (s callsStatus) reverted() bool {
	for _, receipt := range s.Receipts {
		if uint64(receipt.Status) != types.ReceiptStatusSuccessful {
			return true
		}
	}
	return false
}

func (s callsStatus) logs() []*types.Log {
	var out []*types.Log
	for _, receipt := range s.Receipts {
		for _, l := range receipt.Logs {
			out = append(out, &types.Log{
				Address: l.Address,
				Topics:  l.Topics,
				Data:    l.Data,
				TxHash:  receipt.TransactionHash,
			})
		}
	}
	return out
}

func parseCapabilities(raw map[string]map[string]json.RawMessage, log *slog.Logger) sponsorship.Capabilities {
	caps := make(sponsorship.Capabilities, len(raw))
	for chainHex, entries := range raw {
		chainID, err := hexutil.DecodeUint64(chainHex)
		if err != nil {
			log.With("chain", chainHex).Debug("skipping capabilities for malformed chain id")
			continue
		}

		chainCaps := make(map[string]sponsorship.Capability, len(entries))
		for name, value := range entries {
			var capability sponsorship.Capability
			if err := json.Unmarshal(value, &capability); err != nil {
				continue
			}
			chainCaps[name] = capability
		}
		caps[chainID] = chainCaps
	}
	return caps
}

// UnmarshalJSON accepts both the v1 bare string id and the v2 {"id": ...} object.
func (c *callsID) UnmarshalJSON(data []byte) error {
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		*c = callsID(id)
		return nil
	}

	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("unexpected calls id %s: %w", string(data), err)
	}
	*c = callsID(obj.ID)
	return nil
}

// UnmarshalJSON accepts numeric EIP-5792 codes and the legacy PENDING/CONFIRMED strings.
func (c *callsStatusCode) UnmarshalJSON(data []byte) error {
	var code int
	if err := json.Unmarshal(data, &code); err == nil {
		*c = callsStatusCode(code)
		return nil
	}

	var legacy string
	if err := json.Unmarshal(data, &legacy); err != nil {
		return fmt.Errorf("unexpected calls status %s: %w", string(data), err)
	}
	switch strings.ToUpper(legacy) {
	case "PENDING":
		*c = callsStatusPending
	case "CONFIRMED":
		*c = callsStatusConfirmed
	default:
		*c = callsStatusOffchainFailed
	}
	return nil
}
