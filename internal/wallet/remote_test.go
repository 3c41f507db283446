package wallet

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/onchain-coinflip/coinflip/internal/sponsorship"
	"github.com/onchain-coinflip/coinflip/internal/tx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	playerAddr   = common.HexToAddress("0x00000000000000000000000000000000000000AA")
	contractAddr = common.HexToAddress("0x00000000000000000000000000000000C0FFEE01")
)

type (
	codedError struct {
		code int
		msg  string
	}

	fakeWalletService struct {
		mu       sync.Mutex
		chainID  uint64
		requests []sendCallsRequest
		sendErr  error
		statuses []callsStatus
		polls    int
		caps     map[string]map[string]any
	}
)

func (e codedError) Error() string  { return e.msg }
func (e codedError) ErrorCode() int { return e.code }

func (s *fakeWalletService) SendCalls(request sendCallsRequest) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, request)
	if s.sendErr != nil {
		return nil, s.sendErr
	}
	return map[string]string{"id": "0xbundle"}, nil
}

func (s *fakeWalletService) GetCallsStatus(id string) (*callsStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.polls
	if idx >= len(s.statuses) {
		idx = len(s.statuses) - 1
	}
	s.polls++
	status := s.statuses[idx]
	status.ID = id
	return &status, nil
}

func (s *fakeWalletService) GetCapabilities(_ common.Address, _ []hexutil.Uint64) (map[string]map[string]any, error) {
	return s.caps, nil
}

func (s *fakeWalletService) ChainId() hexutil.Uint64 {
	return hexutil.Uint64(s.chainID)
}

func (s *fakeWalletService) lastRequest(t *testing.T) sendCallsRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.requests)
	return s.requests[len(s.requests)-1]
}

func newTestRemoteWallet(t *testing.T, svc *fakeWalletService) *RemoteWallet {
	t.Helper()

	server := rpc.NewServer()
	require.NoError(t, server.RegisterName("wallet", svc))
	require.NoError(t, server.RegisterName("eth", svc))
	client := rpc.DialInProc(server)
	t.Cleanup(func() {
		client.Close()
		server.Stop()
	})

	return NewRemoteWallet(client, playerAddr, 5*time.Millisecond)
}

func collect(t *testing.T, updates <-chan Notification) []Notification {
	t.Helper()

	var out []Notification
	timeout := time.After(5 * time.Second)
	for {
		select {
		case n, ok := <-updates:
			if !ok {
				return out
			}
			out = append(out, n)
		case <-timeout:
			t.Fatal("timed out waiting for notifications")
			return nil
		}
	}
}

func sponsoredDescriptor() tx.Descriptor {
	return tx.Descriptor{
		Mode:      tx.ModeSponsored,
		ChainID:   8453,
		Calls:     []tx.Call{{To: contractAddr, Function: "flip", ChooseHeads: true, Data: []byte{0x01, 0x02}}},
		Paymaster: &sponsorship.PaymasterService{URL: "https://paymaster.example"},
	}
}

func TestRemoteWalletSponsoredSubmit(t *testing.T) {
	txHash := common.HexToHash("0xabc")
	svc := &fakeWalletService{
		statuses: []callsStatus{
			{Status: callsStatusPending},
			{
				Status: callsStatusConfirmed,
				Receipts: []callsReceipt{{
					Status:          1,
					TransactionHash: txHash,
					Logs: []receiptLog{{
						Address: contractAddr,
						Topics:  []common.Hash{common.HexToHash("0x01")},
						Data:    []byte{0xff},
					}},
				}},
			},
		},
	}
	w := newTestRemoteWallet(t, svc)

	updates, err := w.Submit(context.Background(), sponsoredDescriptor())
	require.NoError(t, err)

	notifications := collect(t, updates)
	require.Len(t, notifications, 2)
	assert.Equal(t, NotificationSubmitted, notifications[0].Kind)
	assert.Equal(t, "0xbundle", notifications[0].ID)
	assert.Equal(t, NotificationFinalized, notifications[1].Kind)
	require.Len(t, notifications[1].Logs, 1)
	assert.Equal(t, contractAddr, notifications[1].Logs[0].Address)
	assert.Equal(t, txHash, notifications[1].Logs[0].TxHash)

	request := svc.lastRequest(t)
	assert.Equal(t, sendCallsVersion, request.Version)
	assert.Equal(t, hexutil.Uint64(8453), request.ChainID)
	assert.Equal(t, playerAddr, request.From)
	assert.True(t, request.AtomicRequired)
	require.Len(t, request.Calls, 1)
	assert.Equal(t, contractAddr, request.Calls[0].To)
	assert.Equal(t, hexutil.Bytes{0x01, 0x02}, request.Calls[0].Data)
	require.NotNil(t, request.Capabilities)
	require.NotNil(t, request.Capabilities.PaymasterService)
	assert.Equal(t, "https://paymaster.example", request.Capabilities.PaymasterService.URL)
}

func TestRemoteWalletRegularSubmitOmitsPaymaster(t *testing.T) {
	svc := &fakeWalletService{statuses: []callsStatus{{Status: callsStatusConfirmed}}}
	w := newTestRemoteWallet(t, svc)

	descriptor := sponsoredDescriptor()
	descriptor.Mode = tx.ModeRegular
	descriptor.Paymaster = nil

	updates, err := w.Submit(context.Background(), descriptor)
	require.NoError(t, err)

	notifications := collect(t, updates)
	require.Len(t, notifications, 2)
	assert.Equal(t, NotificationFinalized, notifications[1].Kind)
	assert.Nil(t, svc.lastRequest(t).Capabilities)
}

func TestRemoteWalletSubmitErrors(t *testing.T) {
	tests := []struct {
		name     string
		mode     tx.Mode
		err      error
		expected error
	}{
		{name: "user rejected", mode: tx.ModeSponsored, err: codedError{code: 4001, msg: "User rejected the request."}, expected: ErrUserRejected},
		{name: "paymaster capability rejected", mode: tx.ModeSponsored, err: codedError{code: 5700, msg: "unsupported capability"}, expected: ErrSponsorshipRejected},
		{name: "unsupported chain", mode: tx.ModeRegular, err: codedError{code: 5710, msg: "unsupported chain"}, expected: ErrChainMismatch},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := &fakeWalletService{sendErr: tc.err}
			w := newTestRemoteWallet(t, svc)

			descriptor := sponsoredDescriptor()
			descriptor.Mode = tc.mode

			updates, err := w.Submit(context.Background(), descriptor)
			assert.ErrorIs(t, err, tc.expected)
			assert.Nil(t, updates)
		})
	}
}

func TestRemoteWalletCapabilityRejectionOnRegularIsNotSponsorship(t *testing.T) {
	svc := &fakeWalletService{sendErr: codedError{code: 5700, msg: "unsupported capability"}}
	w := newTestRemoteWallet(t, svc)

	descriptor := sponsoredDescriptor()
	descriptor.Mode = tx.ModeRegular

	_, err := w.Submit(context.Background(), descriptor)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSponsorshipRejected)
}

func TestRemoteWalletRevertedBundle(t *testing.T) {
	tests := []struct {
		name     string
		status   callsStatus
		expected error
	}{
		{name: "chain rules failure", status: callsStatus{Status: callsStatusReverted}, expected: ErrReverted},
		{name: "partial revert", status: callsStatus{Status: callsStatusPartialRevert}, expected: ErrReverted},
		{name: "offchain failure", status: callsStatus{Status: callsStatusOffchainFailed}, expected: ErrNotIncluded},
		{name: "confirmed with failed receipt", status: callsStatus{Status: callsStatusConfirmed, Receipts: []callsReceipt{{Status: 0}}}, expected: ErrReverted},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := &fakeWalletService{statuses: []callsStatus{tc.status}}
			w := newTestRemoteWallet(t, svc)

			updates, err := w.Submit(context.Background(), sponsoredDescriptor())
			require.NoError(t, err)

			notifications := collect(t, updates)
			require.Len(t, notifications, 2)
			assert.Equal(t, NotificationFailed, notifications[1].Kind)
			assert.ErrorIs(t, notifications[1].Err, tc.expected)
		})
	}
}

func TestRemoteWalletGivesUpOnMissingStatus(t *testing.T) {
	svc := &fakeWalletService{statuses: []callsStatus{{}}}
	w := newTestRemoteWallet(t, svc)

	updates, err := w.Submit(context.Background(), sponsoredDescriptor())
	require.NoError(t, err)

	notifications := collect(t, updates)
	require.Len(t, notifications, 2)
	assert.Equal(t, NotificationFailed, notifications[1].Kind)
	assert.ErrorIs(t, notifications[1].Err, ErrStatusUnknown)

	svc.mu.Lock()
	defer svc.mu.Unlock()
	assert.Equal(t, maxUnansweredPolls, svc.polls)
}

func TestRemoteWalletPendingStatusResetsUnansweredPolls(t *testing.T) {
	var statuses []callsStatus
	for range maxUnansweredPolls - 1 {
		statuses = append(statuses, callsStatus{})
	}
	statuses = append(statuses, callsStatus{Status: callsStatusPending})
	for range maxUnansweredPolls - 1 {
		statuses = append(statuses, callsStatus{})
	}
	statuses = append(statuses, callsStatus{Status: callsStatusConfirmed})

	svc := &fakeWalletService{statuses: statuses}
	w := newTestRemoteWallet(t, svc)

	updates, err := w.Submit(context.Background(), sponsoredDescriptor())
	require.NoError(t, err)

	notifications := collect(t, updates)
	require.Len(t, notifications, 2)
	assert.Equal(t, NotificationFinalized, notifications[1].Kind)
}

func TestRemoteWalletSponsoredWithoutPaymaster(t *testing.T) {
	w := newTestRemoteWallet(t, &fakeWalletService{})

	descriptor := sponsoredDescriptor()
	descriptor.Paymaster = nil

	_, err := w.Submit(context.Background(), descriptor)
	assert.ErrorIs(t, err, ErrSponsorshipRejected)
}

func TestRemoteWalletCapabilities(t *testing.T) {
	svc := &fakeWalletService{
		caps: map[string]map[string]any{
			"0x2105": {
				sponsorship.CapabilityPaymasterService: map[string]any{"supported": true},
				"atomic":                               map[string]any{"status": "supported"},
			},
			"0x14a34": {
				sponsorship.CapabilityPaymasterService: map[string]any{"supported": false},
			},
			"not-hex": {
				sponsorship.CapabilityPaymasterService: map[string]any{"supported": true},
			},
		},
	}
	w := newTestRemoteWallet(t, svc)

	caps, err := w.Capabilities(context.Background(), 8453)
	require.NoError(t, err)

	assert.True(t, caps.Supports(8453, sponsorship.CapabilityPaymasterService))
	assert.False(t, caps.Supports(84532, sponsorship.CapabilityPaymasterService))
	assert.Len(t, caps, 2)
}

func TestRemoteWalletChainID(t *testing.T) {
	w := newTestRemoteWallet(t, &fakeWalletService{chainID: 8453})

	id, err := w.ChainID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(8453), id)
}

func TestCallsIDShapes(t *testing.T) {
	var id callsID
	require.NoError(t, json.Unmarshal([]byte(`"0x1234"`), &id))
	assert.Equal(t, callsID("0x1234"), id)

	require.NoError(t, json.Unmarshal([]byte(`{"id":"0x5678","capabilities":{}}`), &id))
	assert.Equal(t, callsID("0x5678"), id)

	assert.Error(t, json.Unmarshal([]byte(`42`), &id))
}

func TestCallsStatusCodeLegacyStrings(t *testing.T) {
	var code callsStatusCode
	require.NoError(t, json.Unmarshal([]byte(`"PENDING"`), &code))
	assert.Equal(t, callsStatusCode(callsStatusPending), code)

	require.NoError(t, json.Unmarshal([]byte(`"CONFIRMED"`), &code))
	assert.Equal(t, callsStatusCode(callsStatusConfirmed), code)

	require.NoError(t, json.Unmarshal([]byte(`200`), &code))
	assert.Equal(t, callsStatusCode(callsStatusConfirmed), code)
}
