// Package auth builds, signs, verifies and caches decryption
// authorizations: EIP-712 grants, signed by the user wallet over an
// ephemeral secp256k1 key, that let the decryption oracle reveal handles of
// a set of contracts to the user during a bounded time window.
package auth

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/vocdoni/fhe-ballot/crypto/ethereum"
	"github.com/vocdoni/fhe-ballot/log"
	"github.com/vocdoni/fhe-ballot/types"
	"github.com/vocdoni/fhe-ballot/util"
	"golang.org/x/sync/singleflight"
)

// Manager issues authorizations on behalf of a client, reusing the cached
// ones while they are valid. Concurrent requests for the same requester and
// contracts share a single signature prompt.
type Manager struct {
	domain       Domain
	cache        Cache
	clock        clock.Clock
	durationDays uint64
	inflight     singleflight.Group

	mu      sync.Mutex
	flights map[string]*flight
}

// flight is the signature request shared by the callers waiting on the same
// key. Its context is canceled once every caller has given up.
type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock sets the clock used to timestamp and expire authorizations.
func WithClock(c clock.Clock) Option {
	return func(m *Manager) {
		m.clock = c
	}
}

// WithDurationDays sets the validity of new authorizations.
func WithDurationDays(days uint64) Option {
	return func(m *Manager) {
		m.durationDays = days
	}
}

// NewManager returns a Manager issuing authorizations for domain and keeping
// them in cache. A nil cache means a fresh MemoryCache.
func NewManager(domain Domain, cache Cache, opts ...Option) *Manager {
	if cache == nil {
		cache = NewMemoryCache()
	}
	m := &Manager{
		domain:       domain,
		cache:        cache,
		clock:        clock.New(),
		durationDays: DefaultDurationDays,
		flights:      make(map[string]*flight),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Domain returns the domain the authorizations are signed for.
func (m *Manager) Domain() Domain {
	return m.domain
}

// LoadOrSign returns a valid authorization of signer for contracts. A cached
// authorization that is still valid is returned unchanged. Otherwise a new
// ephemeral key is generated and the user is asked to sign. If the user
// declines or ctx is canceled, ErrUserRejectedSignature is returned and
// nothing is cached. A shared prompt is aborted only once every caller
// waiting on it has canceled.
func (m *Manager) LoadOrSign(ctx context.Context, signer Signer, contracts []common.Address) (*types.Authorization, error) {
	contracts = util.SortedAddresses(contracts)
	if len(contracts) == 0 {
		return nil, fmt.Errorf("at least one contract address is required")
	}
	requester := signer.Address()
	for _, c := range contracts {
		if c == requester {
			return nil, fmt.Errorf("contract address %s cannot be the requester", c.Hex())
		}
	}
	key := CacheKey(requester, contracts)
	flightKey := hex.EncodeToString(key)

	f := m.join(ctx, flightKey)
	defer m.leave(flightKey, f)
	for {
		res := m.inflight.DoChan(flightKey, func() (any, error) {
			return m.loadOrSign(f.ctx, signer, contracts, key)
		})
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", ErrUserRejectedSignature, ctx.Err())
		case r := <-res:
			if r.Err != nil {
				// a flight abandoned by its callers before this one joined
				if errors.Is(r.Err, context.Canceled) && ctx.Err() == nil && f.ctx.Err() == nil {
					continue
				}
				return nil, r.Err
			}
			return clone(r.Val.(*types.Authorization)), nil
		}
	}
}

// join registers the caller as a waiter of the flight for key and returns
// it. The flight context does not inherit the cancellation of ctx.
func (m *Manager) join(ctx context.Context, key string) *flight {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.flights[key]
	if !ok {
		f = &flight{}
		f.ctx, f.cancel = context.WithCancel(context.WithoutCancel(ctx))
		m.flights[key] = f
	}
	f.waiters++
	return f
}

// leave unregisters a waiter, canceling the flight when none is left.
func (m *Manager) leave(key string, f *flight) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f.waiters--
	if f.waiters > 0 {
		return
	}
	f.cancel()
	if m.flights[key] == f {
		delete(m.flights, key)
	}
}

func (m *Manager) loadOrSign(ctx context.Context, signer Signer, contracts []common.Address,
	key []byte,
) (*types.Authorization, error) {
	requester := signer.Address()
	cached, err := m.cache.Load(key)
	if err != nil {
		log.Warnw("cannot load cached authorization", "requester", requester.Hex(), "error", err.Error())
	}
	if cached != nil {
		if m.reusable(cached, requester, contracts) {
			log.Debugw("reusing decryption authorization",
				"requester", requester.Hex(),
				"expiration", cached.Expiration().Unix())
			return cached, nil
		}
		if err := m.cache.Delete(key); err != nil {
			return nil, fmt.Errorf("delete stale authorization: %w", err)
		}
	}

	authz, err := m.sign(ctx, signer, contracts)
	if err != nil {
		return nil, err
	}
	// signers are not trusted to honor ctx
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUserRejectedSignature, err)
	}
	if err := m.cache.Store(key, authz); err != nil {
		return nil, fmt.Errorf("cache authorization: %w", err)
	}
	log.Infow("decryption authorization signed",
		"requester", requester.Hex(),
		"contracts", len(contracts),
		"durationDays", authz.DurationDays)
	return authz, nil
}

// reusable reports whether a cached authorization can be returned as is.
func (m *Manager) reusable(a *types.Authorization, requester common.Address, contracts []common.Address) bool {
	if a.UserAddress != requester || len(a.ContractAddresses) != len(contracts) || len(a.PrivateKey) == 0 {
		return false
	}
	for i := range contracts {
		if a.ContractAddresses[i] != contracts[i] {
			return false
		}
	}
	return !a.ExpiredAt(m.clock.Now())
}

// sign builds a new authorization with a fresh ephemeral key and asks
// signer for the EIP-712 signature.
func (m *Manager) sign(ctx context.Context, signer Signer, contracts []common.Address) (*types.Authorization, error) {
	ephemeral := ethereum.NewSignKeys()
	if err := ephemeral.Generate(); err != nil {
		return nil, fmt.Errorf("generate ephemeral key: %w", err)
	}
	authz := &types.Authorization{
		PublicKey:         ephemeral.PublicKey(),
		PrivateKey:        ethcrypto.FromECDSA(&ephemeral.Private),
		UserAddress:       signer.Address(),
		ContractAddresses: contracts,
		StartTimestamp:    m.clock.Now().Unix(),
		DurationDays:      m.durationDays,
	}
	sig, err := signer.SignTypedData(ctx, TypedData(m.domain, authz))
	if err != nil {
		if errors.Is(err, ErrUserRejectedSignature) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrUserRejectedSignature, err)
	}
	authz.Signature = sig
	if err := Verify(authz, m.domain, m.clock.Now()); err != nil {
		return nil, fmt.Errorf("signer returned an unusable authorization: %w", err)
	}
	return authz, nil
}

// Invalidate drops the cached authorization of requester for contracts, so
// the next LoadOrSign signs a new one.
func (m *Manager) Invalidate(requester common.Address, contracts []common.Address) error {
	return m.cache.Delete(CacheKey(requester, util.SortedAddresses(contracts)))
}
