package game

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"github.com/onchain-coinflip/coinflip/internal/coin"
	"github.com/onchain-coinflip/coinflip/internal/logger"
	"github.com/onchain-coinflip/coinflip/internal/sponsorship"
	"github.com/onchain-coinflip/coinflip/internal/tx"
	"github.com/onchain-coinflip/coinflip/internal/wallet"
)

const refreshTimeout = 15 * time.Second

type (
	Registry interface {
		IsSupported(chainID uint64) bool
	}

	Evaluator interface {
		IsAvailable(caps sponsorship.Capabilities, chainID uint64) bool
		Status(caps sponsorship.Capabilities, chainID uint64) sponsorship.Status
	}

	Preparer interface {
		PrepareRegular(side coin.Side, chainID uint64) (tx.Descriptor, error)
		PrepareSponsored(side coin.Side, chainID uint64) (tx.Descriptor, error)
	}

	// Wallet is the chain client the orchestrator submits through. Submit
	// returns the subscription for the submission's lifecycle.
	Wallet interface {
		Address() common.Address
		ChainID(ctx context.Context) (uint64, error)
		Capabilities(ctx context.Context, chainID uint64) (sponsorship.Capabilities, error)
		Submit(ctx context.Context, d tx.Descriptor) (<-chan wallet.Notification, error)
	}

	LimitReader interface {
		FlipsRemaining(ctx context.Context, player common.Address) (uint64, error)
	}

	// Timer schedules f after d. f must run on its own goroutine, never inside
	// AfterFunc.
	Timer interface {
		AfterFunc(d time.Duration, f func()) (stop func() bool)
	}

	Observer func(Snapshot)

	Settings struct {
		FlipDelay   time.Duration
		DailyWindow time.Duration
	}

	Dependencies struct {
		Registry  Registry
		Evaluator Evaluator
		Preparer  Preparer
		Wallet    Wallet
		Limits    LimitReader
		Resolver  OutcomeResolver
		Timer     Timer
		Now       func() time.Time
		Observer  Observer
	}

	attempt struct {
		id               string
		choice           coin.Side
		chainID          uint64
		allowSponsorship bool
		mode             tx.Mode
		contract         common.Address
		submissionID     string
		outcome          coin.Side
		cancel           context.CancelFunc
		stopTimer        func() bool
	}

	// Orchestrator is the flip state machine. Every transition runs under mu
	// and checks that the notification it applies belongs to the current
	// attempt.
	Orchestrator struct {
		deps     Dependencies
		settings Settings
		logger   *slog.Logger

		mu             sync.Mutex
		version        uint64
		phase          Phase
		chainID        uint64
		choice         coin.Side
		mode           tx.Mode
		attemptID      string
		current        *attempt
		result         *Result
		err            *FlipError
		remaining      uint64
		remainingKnown bool
		comeBackLater  bool
		nextEligibleAt time.Time
		demoted        bool

		notifyMu     sync.Mutex
		lastNotified uint64
	}

	realTimer struct{}
)

func (realTimer) AfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

func New(deps Dependencies, settings Settings) *Orchestrator {
	if deps.Timer == nil {
		deps.Timer = realTimer{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Resolver == nil {
		deps.Resolver = EventResolver{}
	}

	return &Orchestrator{
		deps:     deps,
		settings: settings,
		logger:   logger.Named("game_orchestrator"),
		phase:    PhaseIdle,
	}
}

// Connect reads the wallet's chain and, on a supported chain, the player's
// remaining flips.
func (o *Orchestrator) Connect(ctx context.Context) error {
	chainID, err := o.deps.Wallet.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("failed to read wallet chain: %w", err)
	}

	if err := o.SwitchChain(chainID); err != nil {
		return err
	}

	return o.Refresh(ctx)
}

// SwitchChain records the chain the wallet is connected to. The cached limit
// belongs to the previous chain and is dropped.
func (o *Orchestrator) SwitchChain(chainID uint64) error {
	o.mu.Lock()
	var err error
	if chainID != o.chainID {
		o.chainID = chainID
		o.remainingKnown = false
		o.remaining = 0
		o.updateLimitDisplayLocked()
	}
	if o.current == nil {
		if o.err != nil && o.err.Kind == KindNetworkMismatch {
			o.err = nil
		}
		err = o.checkChainLocked()
	}
	snap := o.snapshotLocked()
	o.mu.Unlock()

	o.notify(snap)
	return err
}

// Refresh re-reads flips remaining from the contract.
func (o *Orchestrator) Refresh(ctx context.Context) error {
	o.mu.Lock()
	chainID := o.chainID
	o.mu.Unlock()

	if !o.deps.Registry.IsSupported(chainID) {
		return nil
	}

	remaining, err := o.deps.Limits.FlipsRemaining(ctx, o.deps.Wallet.Address())
	if err != nil {
		return fmt.Errorf("failed to read flips remaining: %w", err)
	}

	o.mu.Lock()
	if o.chainID != chainID {
		o.mu.Unlock()
		return nil
	}
	o.remaining = remaining
	o.remainingKnown = true
	o.updateLimitDisplayLocked()
	snap := o.snapshotLocked()
	o.mu.Unlock()

	o.logger.With("chain_id", chainID, "flips_remaining", remaining).Debug("limit refreshed")
	o.notify(snap)
	return nil
}

func (o *Orchestrator) Choose(side coin.Side) error {
	if !side.Valid() {
		return ErrNoChoice
	}

	o.mu.Lock()
	err := o.chooseLocked(side)
	snap := o.snapshotLocked()
	o.mu.Unlock()

	o.notify(snap)
	return err
}

func (o *Orchestrator) chooseLocked(side coin.Side) error {
	if o.phase.InFlight() {
		return ErrAttemptInFlight
	}
	if o.phase == PhaseResult {
		return fmt.Errorf("%w: choose from %s", ErrInvalidTransition, o.phase)
	}
	if err := o.gateLocked(); err != nil {
		return err
	}

	o.choice = side
	o.err = nil
	o.setPhaseLocked(PhaseChoosing)
	return nil
}

// Flip starts an attempt for the recorded choice. It returns once the wallet
// accepted the submission; later lifecycle events arrive asynchronously. A
// failure before submission leaves the machine Idle with the choice kept.
func (o *Orchestrator) Flip(ctx context.Context) error {
	o.mu.Lock()
	a, attemptCtx, err := o.beginLocked(ctx)
	snap := o.snapshotLocked()
	o.mu.Unlock()

	o.notify(snap)
	if err != nil {
		return err
	}

	return o.submit(attemptCtx, a)
}

func (o *Orchestrator) beginLocked(ctx context.Context) (*attempt, context.Context, error) {
	if o.phase.InFlight() {
		return nil, nil, ErrAttemptInFlight
	}
	if o.phase == PhaseResult {
		return nil, nil, fmt.Errorf("%w: flip from %s", ErrInvalidTransition, o.phase)
	}
	if !o.choice.Valid() {
		return nil, nil, ErrNoChoice
	}
	if err := o.gateLocked(); err != nil {
		return nil, nil, err
	}

	attemptCtx, cancel := context.WithCancel(ctx)
	a := &attempt{
		id:               uuid.NewString(),
		choice:           o.choice,
		chainID:          o.chainID,
		allowSponsorship: !o.demoted,
		cancel:           cancel,
	}

	o.current = a
	o.attemptID = a.id
	o.err = nil
	o.result = nil
	o.setPhaseLocked(PhasePending)

	return a, attemptCtx, nil
}

func (o *Orchestrator) submit(ctx context.Context, a *attempt) error {
	descriptor, err := o.prepare(ctx, a)
	if err != nil {
		return o.failAttempt(a.id, err)
	}

	o.mu.Lock()
	if !o.isCurrentLocked(a.id) {
		o.mu.Unlock()
		return ErrAttemptDiscarded
	}
	a.mode = descriptor.Mode
	a.contract = descriptor.Call().To
	o.mode = descriptor.Mode
	snap := o.snapshotLocked()
	o.mu.Unlock()
	o.notify(snap)

	o.logger.With("attempt_id", a.id, "mode", descriptor.Mode.String(), "chain_id", a.chainID).Info("submitting flip")

	updates, err := o.deps.Wallet.Submit(ctx, descriptor)
	if err != nil {
		return o.failAttempt(a.id, err)
	}

	go o.forward(a.id, updates)
	return nil
}

// prepare picks the submission mode and builds the descriptor. Sponsored
// preparation falls back to regular once, before anything is signed.
func (o *Orchestrator) prepare(ctx context.Context, a *attempt) (tx.Descriptor, error) {
	log := o.logger.With("attempt_id", a.id)

	if a.allowSponsorship {
		caps, err := o.deps.Wallet.Capabilities(ctx, a.chainID)
		if err != nil {
			log.With("error", err).Warn("failed to read wallet capabilities")
		} else if o.deps.Evaluator.IsAvailable(caps, a.chainID) {
			descriptor, err := o.deps.Preparer.PrepareSponsored(a.choice, a.chainID)
			if err == nil {
				return descriptor, nil
			}
			log.With("error", err).Info("sponsored preparation failed, falling back to regular")
		}
	}

	return o.deps.Preparer.PrepareRegular(a.choice, a.chainID)
}

func (o *Orchestrator) forward(id string, updates <-chan wallet.Notification) {
	for n := range updates {
		switch n.Kind {
		case wallet.NotificationSubmitted:
			o.onSubmitted(id, n.ID)
		case wallet.NotificationFinalized:
			o.onFinalized(id, n.Logs)
		case wallet.NotificationFailed:
			_ = o.failAttempt(id, n.Err)
		}
	}
}

func (o *Orchestrator) onSubmitted(id, submissionID string) {
	o.mu.Lock()
	if !o.isCurrentLocked(id) || o.phase != PhasePending {
		o.mu.Unlock()
		o.logger.With("attempt_id", id).Debug("ignoring stale submitted notification")
		return
	}
	o.current.submissionID = submissionID
	o.setPhaseLocked(PhaseConfirming)
	snap := o.snapshotLocked()
	o.mu.Unlock()

	o.notify(snap)
}

func (o *Orchestrator) onFinalized(id string, logs []*types.Log) {
	o.mu.Lock()
	if !o.isCurrentLocked(id) || (o.phase != PhasePending && o.phase != PhaseConfirming) {
		o.mu.Unlock()
		o.logger.With("attempt_id", id).Debug("ignoring stale finalized notification")
		return
	}
	view := Attempt{
		ID:       id,
		Choice:   o.current.choice,
		Mode:     o.current.mode,
		ChainID:  o.current.chainID,
		Player:   o.deps.Wallet.Address(),
		Contract: o.current.contract,
	}
	o.mu.Unlock()

	outcome, err := o.deps.Resolver.Resolve(view, logs)
	if err != nil {
		// The flip was mined, so the contract has counted it either way.
		_ = o.failAttempt(id, fmt.Errorf("failed to resolve outcome: %w", err))
		o.refreshAsync()
		return
	}

	o.mu.Lock()
	if !o.isCurrentLocked(id) {
		o.mu.Unlock()
		return
	}
	o.current.outcome = outcome
	o.setPhaseLocked(PhaseFlipping)
	o.current.stopTimer = o.deps.Timer.AfterFunc(o.settings.FlipDelay, func() { o.finish(id) })
	snap := o.snapshotLocked()
	o.mu.Unlock()

	o.notify(snap)
}

func (o *Orchestrator) finish(id string) {
	o.mu.Lock()
	if !o.isCurrentLocked(id) || o.phase != PhaseFlipping {
		o.mu.Unlock()
		return
	}
	a := o.current
	a.cancel()
	result := newResult(a.choice, a.outcome)
	o.result = &result
	o.current = nil
	o.setPhaseLocked(PhaseResult)
	o.updateLimitDisplayLocked()
	snap := o.snapshotLocked()
	o.mu.Unlock()

	o.logger.With("attempt_id", id, "choice", result.Choice.String(), "outcome", result.Outcome.String(), "won", result.Won).Info("flip finished")
	o.notify(snap)
	o.refreshAsync()
}

// failAttempt ends the attempt id with a classified error and returns it.
func (o *Orchestrator) failAttempt(id string, cause error) error {
	o.mu.Lock()
	if !o.isCurrentLocked(id) {
		o.mu.Unlock()
		o.logger.With("attempt_id", id, "error", cause).Debug("ignoring failure of discarded attempt")
		return Classify(cause, tx.ModeRegular)
	}

	flipErr := Classify(cause, o.current.mode)
	o.discardLocked()
	o.err = flipErr
	switch flipErr.Kind {
	case KindSponsorshipUnavailable:
		o.demoted = true
	case KindDailyLimitExceeded:
		o.remaining = 0
		o.remainingKnown = true
	}
	o.setPhaseLocked(PhaseIdle)
	o.updateLimitDisplayLocked()
	snap := o.snapshotLocked()
	o.mu.Unlock()

	o.logger.With("attempt_id", id, "kind", flipErr.Kind.String(), "error", cause).Warn("flip failed")
	o.notify(snap)

	if flipErr.Kind == KindDailyLimitExceeded {
		o.refreshAsync()
	}
	return flipErr
}

// PlayAgain leaves Result. With no flips left the machine stays on the result
// and shows the countdown instead.
func (o *Orchestrator) PlayAgain() error {
	o.mu.Lock()
	var err error
	switch {
	case o.phase != PhaseResult:
		err = fmt.Errorf("%w: play again from %s", ErrInvalidTransition, o.phase)
	case o.remainingKnown && o.remaining == 0:
		o.updateLimitDisplayLocked()
		err = ErrNoFlipsRemaining
	default:
		o.resetLocked()
	}
	snap := o.snapshotLocked()
	o.mu.Unlock()

	o.notify(snap)
	return err
}

// Cancel disengages from the in-flight attempt. Its later notifications are
// ignored. The choice is kept so the player can flip again.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	if o.current != nil {
		o.logger.With("attempt_id", o.current.id).Info("attempt cancelled")
		o.discardLocked()
	}
	o.result = nil
	o.setPhaseLocked(PhaseIdle)
	o.updateLimitDisplayLocked()
	snap := o.snapshotLocked()
	o.mu.Unlock()

	o.notify(snap)
}

// Reset discards any attempt and clears the choice, result and error.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	o.resetLocked()
	snap := o.snapshotLocked()
	o.mu.Unlock()

	o.notify(snap)
}

// SponsorshipStatus explains whether the next flip can be gasless. Capabilities
// are read fresh on every call.
func (o *Orchestrator) SponsorshipStatus(ctx context.Context) (sponsorship.Status, error) {
	o.mu.Lock()
	chainID := o.chainID
	o.mu.Unlock()

	caps, err := o.deps.Wallet.Capabilities(ctx, chainID)
	if err != nil {
		return sponsorship.Status{}, fmt.Errorf("failed to read wallet capabilities: %w", err)
	}

	return o.deps.Evaluator.Status(caps, chainID), nil
}

func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.snapshotLocked()
}

func (o *Orchestrator) resetLocked() {
	o.discardLocked()
	o.choice = coin.None
	o.result = nil
	o.err = nil
	o.attemptID = ""
	o.setPhaseLocked(PhaseIdle)
	o.updateLimitDisplayLocked()
	_ = o.checkChainLocked()
}

func (o *Orchestrator) discardLocked() {
	a := o.current
	if a == nil {
		return
	}
	a.cancel()
	if a.stopTimer != nil {
		a.stopTimer()
	}
	o.current = nil
}

func (o *Orchestrator) isCurrentLocked(id string) bool {
	return o.current != nil && o.current.id == id
}

// gateLocked refuses new work on unsupported chains and when the day's flips
// are used up.
func (o *Orchestrator) gateLocked() error {
	if err := o.checkChainLocked(); err != nil {
		return err
	}

	if o.remainingKnown && o.remaining == 0 {
		if o.phase == PhaseChoosing {
			o.setPhaseLocked(PhaseIdle)
		}
		o.updateLimitDisplayLocked()
		return ErrNoFlipsRemaining
	}

	return nil
}

func (o *Orchestrator) checkChainLocked() error {
	if o.deps.Registry.IsSupported(o.chainID) {
		return nil
	}

	flipErr := &FlipError{Kind: KindNetworkMismatch, Err: fmt.Errorf("%w: chain %d", ErrUnsupportedChain, o.chainID)}
	o.err = flipErr
	if o.phase == PhaseChoosing {
		o.setPhaseLocked(PhaseIdle)
	}
	return flipErr
}

// updateLimitDisplayLocked enters or leaves the "come back later" display. The
// next eligible time is fixed when the display is entered.
func (o *Orchestrator) updateLimitDisplayLocked() {
	exhausted := o.remainingKnown && o.remaining == 0
	idle := o.current == nil && (o.phase == PhaseIdle || o.phase == PhaseResult)

	switch {
	case exhausted && idle:
		if !o.comeBackLater {
			o.comeBackLater = true
			o.nextEligibleAt = o.deps.Now().Add(o.settings.DailyWindow)
		}
	case !exhausted:
		o.comeBackLater = false
		o.nextEligibleAt = time.Time{}
	}
}

func (o *Orchestrator) setPhaseLocked(to Phase) {
	from := o.phase
	if from == to {
		return
	}
	o.phase = to
	o.logger.With("attempt_id", o.attemptID, "from", from.String(), "to", to.String()).Info("phase transition")
}

func (o *Orchestrator) snapshotLocked() Snapshot {
	o.version++

	snap := Snapshot{
		Version:            o.version,
		AttemptID:          o.attemptID,
		Phase:              o.phase,
		ChainID:            o.chainID,
		Choice:             o.choice,
		Mode:               o.mode,
		Err:                o.err,
		FlipsRemaining:     o.remaining,
		LimitKnown:         o.remainingKnown,
		ComeBackLater:      o.comeBackLater,
		NextEligibleAt:     o.nextEligibleAt,
		SponsorshipDemoted: o.demoted,
	}
	if o.current != nil {
		snap.SubmissionID = o.current.submissionID
	}
	if o.phase == PhaseResult && o.result != nil {
		result := *o.result
		snap.Result = &result
	}

	return snap
}

// notify hands snapshots to the observer in version order, dropping any that
// were overtaken by a newer one.
func (o *Orchestrator) notify(snap Snapshot) {
	if o.deps.Observer == nil {
		return
	}

	o.notifyMu.Lock()
	defer o.notifyMu.Unlock()

	if snap.Version <= o.lastNotified {
		return
	}
	o.lastNotified = snap.Version
	o.deps.Observer(snap)
}

func (o *Orchestrator) refreshAsync() {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()

		if err := o.Refresh(ctx); err != nil {
			o.logger.With("error", err).Warn("failed to refresh flips remaining")
		}
	}()
}
