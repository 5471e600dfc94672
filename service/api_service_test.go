package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/arbo/memdb"
	"github.com/vocdoni/fhe-ballot/api"
	"github.com/vocdoni/fhe-ballot/api/client"
	"github.com/vocdoni/fhe-ballot/config"
	"github.com/vocdoni/fhe-ballot/crypto/ethereum"
	"github.com/vocdoni/fhe-ballot/storage"
)

func testNode(c *qt.C, testInputs bool) *Node {
	kv := memdb.New()
	stg := storage.New(kv)
	c.Cleanup(stg.Close)
	conf, err := config.Load("", map[string]any{
		"datadir":              c.TempDir(),
		"ledger.contract":      "0xc0ffee0000000000000000000000000000000001",
		"ledger.candidates":    []string{"Alice", "Bob"},
		"api.enabletestinputs": testInputs,
	})
	c.Assert(err, qt.IsNil)
	node, err := NewNode(stg, conf)
	c.Assert(err, qt.IsNil)
	return node
}

func TestAPIService(t *testing.T) {
	c := qt.New(t)
	node := testNode(c, true)

	// Create API service with a random available port
	apiService := NewAPI(node, "127.0.0.1", 0) // Port 0 lets the OS choose an available port

	ctx := context.Background()
	err := apiService.Start(ctx)
	c.Assert(err, qt.IsNil)
	defer apiService.Stop()

	host, port := apiService.HostPort()
	cli, err := client.New(fmt.Sprintf("http://%s:%d", host, port))
	c.Assert(err, qt.IsNil)
	info, err := cli.Ledger()
	c.Assert(err, qt.IsNil)
	c.Assert(info.Candidates, qt.HasLen, 2)
	c.Assert(info.Candidates[1].Name, qt.Equals, "Bob")

	voter := ethereum.NewSignKeys()
	c.Assert(voter.Generate(), qt.IsNil)
	handles, proof, err := cli.EncryptInputs(info.Contract, voter.Address(), 1)
	c.Assert(err, qt.IsNil)
	_, err = cli.CastVote(voter, info.Contract, handles[0], proof)
	c.Assert(err, qt.IsNil)

	// Test stopping and restarting
	apiService.Stop()
	err = apiService.Start(ctx)
	c.Assert(err, qt.IsNil)

	// Test starting an already running service
	err = apiService.Start(ctx)
	c.Assert(err, qt.ErrorMatches, "service already running")

	// state survives the restart
	host, port = apiService.HostPort()
	cli, err = client.New(fmt.Sprintf("http://%s:%d", host, port))
	c.Assert(err, qt.IsNil)
	info, err = cli.Ledger()
	c.Assert(err, qt.IsNil)
	c.Assert(info.VoterCount, qt.Equals, 1)
}

func TestAPIServiceWithoutTestInputs(t *testing.T) {
	c := qt.New(t)
	apiService := NewAPI(testNode(c, false), "127.0.0.1", 0)
	c.Assert(apiService.Start(context.Background()), qt.IsNil)
	defer apiService.Stop()

	host, port := apiService.HostPort()
	cli, err := client.New(fmt.Sprintf("http://%s:%d", host, port))
	c.Assert(err, qt.IsNil)
	cli.SetRetries(1)
	_, _, err = cli.EncryptInputs(common.Address{}, common.Address{0x01}, 1)
	c.Assert(err, qt.ErrorIs, api.ErrNotFound)
}
