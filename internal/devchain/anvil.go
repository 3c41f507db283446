package devchain

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"net/url"
	"strconv"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/go-connections/nat"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/onchain-coinflip/coinflip/configs"
	"github.com/onchain-coinflip/coinflip/internal/logger"
)

const (
	anvilPort    = "8545"
	readyTimeout = 30 * time.Second
	readyPoll    = 500 * time.Millisecond
)

type (
	docker interface {
		ImageExists(ctx context.Context, imageName string) (bool, error)
		PullImage(ctx context.Context, imageName string) error
		Running(ctx context.Context, name string) (bool, error)
		Start(ctx context.Context, name string, cfg *container.Config, hostCfg *container.HostConfig) (string, error)
		Remove(ctx context.Context, name string) error
	}

	chainIDReader interface {
		ChainID(ctx context.Context) (*big.Int, error)
	}

	// Service runs a single anvil node standing in for the CoinFlip chain.
	Service struct {
		docker docker
		cfg    configs.DevChain
		dial   func(ctx context.Context, rawURL string) (chainIDReader, func(), error)
		logger *slog.Logger
	}
)

func NewService(d docker, cfg configs.DevChain) *Service {
	return &Service{
		docker: d,
		cfg:    cfg,
		dial:   dialEthclient,
		logger: logger.Named("devchain"),
	}
}

func dialEthclient(ctx context.Context, rawURL string) (chainIDReader, func(), error) {
	c, err := ethclient.DialContext(ctx, rawURL)
	if err != nil {
		return nil, nil, err
	}
	return c, c.Close, nil
}

// RPCURL is where the node answers on the host.
func RPCURL(cfg configs.DevChain) string {
	u := url.URL{Scheme: "http", Host: "127.0.0.1:" + strconv.Itoa(cfg.Port)}
	return u.String()
}

func containerConfig(cfg configs.DevChain) (*container.Config, *container.HostConfig) {
	port := nat.Port(anvilPort + "/tcp")

	config := &container.Config{
		Image:        cfg.Image,
		Entrypoint:   []string{"anvil"},
		Cmd:          []string{"--host", "0.0.0.0", "--port", anvilPort, "--chain-id", strconv.FormatUint(cfg.ChainID, 10)},
		ExposedPorts: nat.PortSet{port: struct{}{}},
		Labels:       map[string]string{"com.onchain-coinflip.devchain": cfg.ContainerName},
	}
	hostConfig := &container.HostConfig{
		PortBindings: nat.PortMap{
			port: []nat.PortBinding{{HostIP: "127.0.0.1", HostPort: strconv.Itoa(cfg.Port)}},
		},
	}

	return config, hostConfig
}

// Up starts the node unless it already runs, then waits until it answers with
// the configured chain id.
func (s *Service) Up(ctx context.Context) error {
	running, err := s.docker.Running(ctx, s.cfg.ContainerName)
	if err != nil {
		return err
	}

	if running {
		s.logger.With("container", s.cfg.ContainerName).Info("devchain already running")
	} else {
		if err := s.ensureImage(ctx); err != nil {
			return err
		}
		// a stopped container with the same name blocks create
		if err := s.docker.Remove(ctx, s.cfg.ContainerName); err != nil {
			return err
		}

		cfg, hostCfg := containerConfig(s.cfg)
		id, err := s.docker.Start(ctx, s.cfg.ContainerName, cfg, hostCfg)
		if err != nil {
			return err
		}
		s.logger.With("container", s.cfg.ContainerName).With("id", id).Info("devchain container started")
	}

	return s.waitReady(ctx)
}

func (s *Service) Down(ctx context.Context) error {
	if err := s.docker.Remove(ctx, s.cfg.ContainerName); err != nil {
		return err
	}
	s.logger.With("container", s.cfg.ContainerName).Info("devchain container removed")
	return nil
}

func (s *Service) ensureImage(ctx context.Context) error {
	exists, err := s.docker.ImageExists(ctx, s.cfg.Image)
	if err != nil {
		return fmt.Errorf("failed to check image %s: %w", s.cfg.Image, err)
	}
	if exists {
		return nil
	}
	return s.docker.PullImage(ctx, s.cfg.Image)
}

func (s *Service) waitReady(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, readyTimeout)
	defer cancel()

	rpcURL := RPCURL(s.cfg)
	ticker := time.NewTicker(readyPoll)
	defer ticker.Stop()

	var lastErr error
	for {
		id, err := s.chainID(ctx, rpcURL)
		switch {
		case err != nil:
			lastErr = err
		case id != s.cfg.ChainID:
			return fmt.Errorf("devchain at %s reports chain %d, want %d", rpcURL, id, s.cfg.ChainID)
		default:
			s.logger.With("rpc_url", rpcURL).With("chain_id", id).Info("devchain ready")
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("devchain at %s did not become ready: %w", rpcURL, lastErr)
		case <-ticker.C:
		}
	}
}

func (s *Service) chainID(ctx context.Context, rpcURL string) (uint64, error) {
	c, closeFn, err := s.dial(ctx, rpcURL)
	if err != nil {
		return 0, err
	}
	defer closeFn()

	id, err := c.ChainID(ctx)
	if err != nil {
		return 0, err
	}
	return id.Uint64(), nil
}
