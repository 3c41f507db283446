package sponsorship

import (
	"log/slog"
	"strings"

	"github.com/onchain-coinflip/coinflip/internal/logger"
)

// CapabilityPaymasterService is the EIP-5792 capability a wallet reports when it
// can attach an ERC-7677 paymaster to a call bundle.
const CapabilityPaymasterService = "paymasterService"

const (
	Provider = "Coinbase Developer Platform"
	DocsURL  = "https://docs.cdp.coinbase.com/paymaster/introduction/welcome"
)

const (
	ReasonAvailable         = "gas is sponsored by the paymaster"
	ReasonNotConfigured     = "sponsorship is not configured for this app"
	ReasonWalletUnsupported = "wallet does not support gas sponsorship on this chain"
)

type (
	Capability struct {
		Supported bool `json:"supported"`
	}

	// Capabilities is what a wallet reports per chain id, keyed by capability name.
	Capabilities map[uint64]map[string]Capability

	Status struct {
		Available bool
		Reason    string
	}

	// PaymasterService is the capability object attached to sponsored call bundles.
	PaymasterService struct {
		URL string `json:"url"`
	}

	// Evaluator decides whether a flip can be sent gasless. It holds only the
	// application-level paymaster endpoint; wallet capabilities are passed on
	// every call and never cached.
	Evaluator struct {
		paymasterURL string
		logger       *slog.Logger
	}
)

func NewEvaluator(paymasterURL string) *Evaluator {
	return &Evaluator{
		paymasterURL: strings.TrimSpace(paymasterURL),
		logger:       logger.Named("sponsorship_evaluator"),
	}
}

// Configured reports whether an application-level paymaster endpoint exists.
func (e *Evaluator) Configured() bool {
	return e.paymasterURL != ""
}

// Service returns the paymaster capability object, or false when not configured.
func (e *Evaluator) Service() (PaymasterService, bool) {
	if !e.Configured() {
		return PaymasterService{}, false
	}
	return PaymasterService{URL: e.paymasterURL}, true
}

// IsAvailable is true iff a paymaster is configured and the wallet supports
// paymasterService on chainID.
func (e *Evaluator) IsAvailable(caps Capabilities, chainID uint64) bool {
	return e.Status(caps, chainID).Available
}

func (e *Evaluator) Status(caps Capabilities, chainID uint64) Status {
	if !e.Configured() {
		return Status{Reason: ReasonNotConfigured}
	}
	if !caps.Supports(chainID, CapabilityPaymasterService) {
		e.logger.With("chain_id", chainID).Debug("wallet does not report paymaster support")
		return Status{Reason: ReasonWalletUnsupported}
	}
	return Status{Available: true, Reason: ReasonAvailable}
}

// Supports reports whether capability is marked supported for chainID. A nil
// map supports nothing.
func (c Capabilities) Supports(chainID uint64, capability string) bool {
	chainCaps, ok := c[chainID]
	if !ok {
		return false
	}
	return chainCaps[capability].Supported
}
