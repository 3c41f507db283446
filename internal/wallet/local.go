package wallet

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/onchain-coinflip/coinflip/internal/logger"
	"github.com/onchain-coinflip/coinflip/internal/sponsorship"
	"github.com/onchain-coinflip/coinflip/internal/tx"
)

type (
	backend interface {
		ChainID(ctx context.Context) (*big.Int, error)
		BlockNumber(ctx context.Context) (uint64, error)
		HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
		PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
		SuggestGasTipCap(ctx context.Context) (*big.Int, error)
		EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
		SendTransaction(ctx context.Context, tx *types.Transaction) error
		TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	}

	// LocalWallet signs regular flips with a private key and pays gas itself.
	// It has no paymaster support.
	LocalWallet struct {
		backend       backend
		key           *ecdsa.PrivateKey
		address       common.Address
		pollInterval  time.Duration
		confirmations uint64
		logger        *slog.Logger
	}
)

// ParsePrivateKey accepts a hex key with or without the 0x prefix.
func ParsePrivateKey(hexKey string) (*ecdsa.PrivateKey, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	return key, nil
}

func NewLocalWallet(b backend, key *ecdsa.PrivateKey, pollInterval time.Duration, confirmations uint64) *LocalWallet {
	if confirmations == 0 {
		confirmations = 1
	}
	return &LocalWallet{
		backend:       b,
		key:           key,
		address:       crypto.PubkeyToAddress(key.PublicKey),
		pollInterval:  pollInterval,
		confirmations: confirmations,
		logger:        logger.Named("local_wallet"),
	}
}

func (w *LocalWallet) Address() common.Address {
	return w.address
}

func (w *LocalWallet) ChainID(ctx context.Context) (uint64, error) {
	id, err := w.backend.ChainID(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get chain id: %w", err)
	}
	return id.Uint64(), nil
}

// Capabilities always reports nothing: a bare key cannot attach a paymaster.
func (w *LocalWallet) Capabilities(context.Context, uint64) (sponsorship.Capabilities, error) {
	return sponsorship.Capabilities{}, nil
}

func (w *LocalWallet) Submit(ctx context.Context, d tx.Descriptor) (<-chan Notification, error) {
	if d.Mode != tx.ModeRegular {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMode, d.Mode)
	}

	chainID, err := w.backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain id: %w", err)
	}
	if chainID.Uint64() != d.ChainID {
		return nil, fmt.Errorf("%w: connected to %d, flip targets %d", ErrChainMismatch, chainID.Uint64(), d.ChainID)
	}

	signed, err := w.sign(ctx, chainID, d.Call())
	if err != nil {
		return nil, err
	}

	if err := w.backend.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("failed to send transaction: %w", err)
	}

	hash := signed.Hash()
	w.logger.With("tx_hash", hash.Hex(), "nonce", signed.Nonce()).Info("flip transaction sent")

	updates := make(chan Notification, 2)
	updates <- Notification{Kind: NotificationSubmitted, ID: hash.Hex()}
	go w.await(ctx, hash, updates)

	return updates, nil
}

func (w *LocalWallet) sign(ctx context.Context, chainID *big.Int, call tx.Call) (*types.Transaction, error) {
	nonce, err := w.backend.PendingNonceAt(ctx, w.address)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}

	tipCap, err := w.backend.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas tip cap: %w", err)
	}

	head, err := w.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest header: %w", err)
	}

	feeCap := new(big.Int).Set(tipCap)
	if head.BaseFee != nil {
		feeCap.Add(feeCap, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
	}

	to := call.To
	gas, err := w.backend.EstimateGas(ctx, ethereum.CallMsg{
		From: w.address,
		To:   &to,
		Data: call.Data,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to estimate gas: %w", err)
	}

	unsigned := types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		GasTipCap: tipCap,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        &to,
		Value:     big.NewInt(0),
		Data:      call.Data,
	})

	signed, err := types.SignTx(unsigned, types.LatestSignerForChainID(chainID), w.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	return signed, nil
}

func (w *LocalWallet) await(ctx context.Context, hash common.Hash, updates chan<- Notification) {
	log := w.logger.With("tx_hash", hash.Hex())
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			deliver(ctx, updates, Notification{Kind: NotificationFailed, ID: hash.Hex(), Err: ctx.Err()})
			return
		case <-ticker.C:
		}

		receipt, err := w.backend.TransactionReceipt(ctx, hash)
		if errors.Is(err, ethereum.NotFound) {
			continue
		}
		if err != nil {
			log.With("error", err).Warn("failed to fetch receipt, retrying")
			continue
		}

		if receipt.Status != types.ReceiptStatusSuccessful {
			log.With("block", receipt.BlockNumber).Warn("flip transaction reverted")
			deliver(ctx, updates, Notification{Kind: NotificationFailed, ID: hash.Hex(), Err: ErrReverted})
			return
		}

		if !w.confirmed(ctx, receipt) {
			continue
		}

		log.With("block", receipt.BlockNumber, "gas_used", receipt.GasUsed).Info("flip transaction confirmed")
		deliver(ctx, updates, Notification{Kind: NotificationFinalized, ID: hash.Hex(), Logs: receipt.Logs})
		return
	}
}

func (w *LocalWallet) confirmed(ctx context.Context, receipt *types.Receipt) bool {
	if w.confirmations <= 1 || receipt.BlockNumber == nil {
		return true
	}

	head, err := w.backend.BlockNumber(ctx)
	if err != nil {
		return false
	}

	return head+1 >= receipt.BlockNumber.Uint64()+w.confirmations
}
