package oracle

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/fhe-ballot/acl"
	"github.com/vocdoni/fhe-ballot/auth"
	"github.com/vocdoni/fhe-ballot/crypto/ethereum"
	"github.com/vocdoni/fhe-ballot/fhe"
	"github.com/vocdoni/fhe-ballot/ledger"
	"github.com/vocdoni/fhe-ballot/storage"
	"github.com/vocdoni/fhe-ballot/types"
	"go.vocdoni.io/dvote/db/metadb"
)

var (
	testContract = common.HexToAddress("0xc0ffee0000000000000000000000000000000001")
	testDomain   = auth.Domain{
		ChainID:           31337,
		VerifyingContract: common.HexToAddress("0x00000000000000000000000000000000000000dd"),
	}
)

type env struct {
	ledger *ledger.Ledger
	cp     *fhe.Coprocessor
	oracle *Oracle
	auth   *auth.Manager
	clock  *clock.Mock
	reader *ethereum.SignKeys
}

func newEnv(c *qt.C) *env {
	stg := storage.New(metadb.NewTest(c))
	verifier := ethereum.NewSignKeys()
	c.Assert(verifier.Generate(), qt.IsNil)
	reader := ethereum.NewSignKeys()
	c.Assert(reader.Generate(), qt.IsNil)

	cp := fhe.NewCoprocessor(stg, testDomain.ChainID, common.Address{0xaa}, verifier)
	list := acl.New(stg)
	l, err := ledger.New(stg, cp, list, ledger.Config{
		Contract:      testContract,
		ResultReaders: []common.Address{reader.Address()},
	})
	c.Assert(err, qt.IsNil)

	mock := clock.NewMock()
	mock.Set(time.Unix(1_700_000_000, 0))
	return &env{
		ledger: l,
		cp:     cp,
		oracle: New(testDomain, list, cp, WithClock(mock)),
		auth:   auth.NewManager(testDomain, nil, auth.WithClock(mock)),
		clock:  mock,
		reader: reader,
	}
}

func (e *env) wallet(c *qt.C) *ethereum.SignKeys {
	k := ethereum.NewSignKeys()
	c.Assert(k.Generate(), qt.IsNil)
	return k
}

func (e *env) vote(c *qt.C, voter *ethereum.SignKeys, candidate uint32) types.Handle {
	handles, proof, err := e.cp.EncryptInput(testContract, voter.Address(), candidate)
	c.Assert(err, qt.IsNil)
	c.Assert(e.ledger.CastVote(voter.Address(), handles[0], proof), qt.IsNil)
	return handles[0]
}

func (e *env) decrypt(c *qt.C, user *ethereum.SignKeys, handles ...types.Handle) (map[types.Handle]uint64, error) {
	authz, err := e.auth.LoadOrSign(context.Background(), user, []common.Address{testContract})
	c.Assert(err, qt.IsNil)
	req := &Request{Authorization: authz.Public()}
	for _, h := range handles {
		req.Handles = append(req.Handles, HandleContractPair{Handle: h, Contract: testContract})
	}
	resp, err := e.oracle.UserDecrypt(context.Background(), req)
	if err != nil {
		return nil, err
	}
	c.Assert(resp.RequestID, qt.Not(qt.Equals), "")
	return OpenAll(authz, resp)
}

func TestAccessIsolation(t *testing.T) {
	c := qt.New(t)
	e := newEnv(c)
	voters := []*ethereum.SignKeys{e.wallet(c), e.wallet(c), e.wallet(c)}
	choices := make([]types.Handle, len(voters))
	for i, v := range voters {
		choices[i] = e.vote(c, v, uint32(i%2+1))
	}

	for i, x := range voters {
		// own choice is readable
		values, err := e.decrypt(c, x, choices[i])
		c.Assert(err, qt.IsNil)
		c.Assert(values[choices[i]], qt.Equals, uint64(i%2+1))

		// everybody else's is not
		for j, y := range voters {
			if i == j {
				continue
			}
			_, err := e.decrypt(c, y, choices[i])
			c.Assert(err, qt.ErrorIs, ErrAccessDenied)
		}
	}

	// voters cannot read the totals, result readers can
	total, err := e.ledger.CandidateTotal(1)
	c.Assert(err, qt.IsNil)
	_, err = e.decrypt(c, voters[0], total)
	c.Assert(err, qt.ErrorIs, ErrAccessDenied)
	values, err := e.decrypt(c, e.reader, total)
	c.Assert(err, qt.IsNil)
	c.Assert(values[total], qt.Equals, uint64(2))
}

func TestBatchDenial(t *testing.T) {
	c := qt.New(t)
	e := newEnv(c)
	alice, bob := e.wallet(c), e.wallet(c)
	aliceChoice := e.vote(c, alice, 1)
	bobChoice := e.vote(c, bob, 2)

	values, err := e.decrypt(c, alice, aliceChoice, bobChoice)
	c.Assert(err, qt.ErrorIs, ErrAccessDenied)
	c.Assert(values, qt.IsNil)

	// unknown and uninitialized handles are never permitted
	_, err = e.decrypt(c, alice, aliceChoice, types.ZeroHandle)
	c.Assert(err, qt.ErrorIs, ErrAccessDenied)

	// duplicates collapse
	values, err = e.decrypt(c, alice, aliceChoice, aliceChoice)
	c.Assert(err, qt.IsNil)
	c.Assert(values, qt.HasLen, 1)
}

func TestAuthorizationChecks(t *testing.T) {
	c := qt.New(t)
	e := newEnv(c)
	alice := e.wallet(c)
	choice := e.vote(c, alice, 2)
	ctx := context.Background()

	authz, err := e.auth.LoadOrSign(ctx, alice, []common.Address{testContract})
	c.Assert(err, qt.IsNil)
	req := &Request{
		Handles:       []HandleContractPair{{Handle: choice, Contract: testContract}},
		Authorization: authz.Public(),
	}

	// repeating the request is idempotent
	first, err := e.oracle.UserDecrypt(ctx, req)
	c.Assert(err, qt.IsNil)
	second, err := e.oracle.UserDecrypt(ctx, req)
	c.Assert(err, qt.IsNil)
	c.Assert(second.RequestID, qt.Not(qt.Equals), first.RequestID)
	v1, err := OpenAll(authz, first)
	c.Assert(err, qt.IsNil)
	v2, err := OpenAll(authz, second)
	c.Assert(err, qt.IsNil)
	c.Assert(v1, qt.DeepEquals, v2)

	// another key cannot open the sealed values
	_, err = Open(e.wallet(c).Private.D.Bytes(), first.Values[choice])
	c.Assert(err, qt.IsNotNil)
	_, err = OpenAll(authz.Public(), first)
	c.Assert(err, qt.IsNotNil)

	// contract out of scope
	other := common.HexToAddress("0xc0ffee0000000000000000000000000000000002")
	_, err = e.oracle.UserDecrypt(ctx, &Request{
		Handles:       []HandleContractPair{{Handle: choice, Contract: other}},
		Authorization: authz.Public(),
	})
	c.Assert(err, qt.ErrorIs, auth.ErrAuthorizationInvalid)

	// forged authorization
	forged := authz.Public()
	forged.DurationDays = 1
	_, err = e.oracle.UserDecrypt(ctx, &Request{Handles: req.Handles, Authorization: forged})
	c.Assert(err, qt.ErrorIs, auth.ErrAuthorizationInvalid)
	_, err = e.oracle.UserDecrypt(ctx, &Request{Handles: req.Handles})
	c.Assert(err, qt.ErrorIs, auth.ErrAuthorizationInvalid)

	// expired authorization
	e.clock.Add(auth.DefaultDurationDays * 24 * time.Hour)
	_, err = e.oracle.UserDecrypt(ctx, req)
	c.Assert(err, qt.ErrorIs, auth.ErrAuthorizationExpired)

	// a fresh one works again
	values, err := e.decrypt(c, alice, choice)
	c.Assert(err, qt.IsNil)
	c.Assert(values[choice], qt.Equals, uint64(2))
}

func TestRequestBounds(t *testing.T) {
	c := qt.New(t)
	e := newEnv(c)
	alice := e.wallet(c)
	authz, err := e.auth.LoadOrSign(context.Background(), alice, []common.Address{testContract})
	c.Assert(err, qt.IsNil)

	_, err = e.oracle.UserDecrypt(context.Background(), &Request{Authorization: authz.Public()})
	c.Assert(err, qt.ErrorIs, ErrInvalidRequest)

	req := &Request{Authorization: authz.Public()}
	for i := 0; i <= MaxHandlesPerRequest; i++ {
		req.Handles = append(req.Handles, HandleContractPair{Contract: testContract})
	}
	_, err = e.oracle.UserDecrypt(context.Background(), req)
	c.Assert(err, qt.ErrorIs, ErrInvalidRequest)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.oracle.UserDecrypt(ctx, &Request{Authorization: authz.Public()})
	c.Assert(err, qt.ErrorIs, context.Canceled)
}
