package chain

import (
	"context"
	"errors"
	"testing"

	"github.com/Fantasim/dropmint/internal/config"
)

func fakeDialer(clients map[string]*mockClient) DialFunc {
	return func(_ context.Context, url string) (Client, error) {
		c, ok := clients[url]
		if !ok {
			return nil, errors.New("connection refused")
		}
		return c, nil
	}
}

func TestConnect_KeepsMatchingEndpointsInOrder(t *testing.T) {
	good1 := newMockClient(8453)
	wrong := newMockClient(1)
	good2 := newMockClient(8453)
	clients := map[string]*mockClient{
		"https://a.example": good1,
		"https://b.example": wrong,
		"https://d.example": good2,
	}

	urls := []string{"https://a.example", "https://b.example", "https://c.example", "https://d.example"}
	pool, err := Connect(context.Background(), 8453, urls, ConnectOptions{Dial: fakeDialer(clients), RPS: 1000})
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	if pool.Size() != 2 {
		t.Fatalf("Size() = %d, want 2", pool.Size())
	}
	if pool.Primary() != "https://a.example" {
		t.Errorf("Primary() = %q", pool.Primary())
	}
	if !wrong.closed {
		t.Error("endpoint on the wrong chain must be closed")
	}
	if pool.Chain() != 8453 {
		t.Errorf("Chain() = %d", pool.Chain())
	}
}

func TestConnect_NoneReachable(t *testing.T) {
	_, err := Connect(context.Background(), 1, []string{"https://x.example"}, ConnectOptions{Dial: fakeDialer(nil)})
	if !errors.Is(err, config.ErrNoEndpoint) {
		t.Fatalf("error = %v, want ErrNoEndpoint", err)
	}

	_, err = Connect(context.Background(), 1, nil, ConnectOptions{})
	if !errors.Is(err, config.ErrNoEndpoint) {
		t.Fatalf("empty urls error = %v, want ErrNoEndpoint", err)
	}
}

func TestConnect_ChainIDError(t *testing.T) {
	c := newMockClient(1)
	c.chainIDErr = errors.New("method not found")

	_, err := Connect(context.Background(), 1, []string{"https://a.example"},
		ConnectOptions{Dial: fakeDialer(map[string]*mockClient{"https://a.example": c})})
	if err == nil {
		t.Fatal("expected error")
	}
	if !c.closed {
		t.Error("client must be closed when eth_chainId fails")
	}
}

func TestDetect_FirstReachableChain(t *testing.T) {
	rpcs := config.RPCFile{
		1:     {ChainInfo: config.ChainInfo{ID: 1, Name: "Ethereum"}, RPCs: []string{"https://eth.example"}},
		137:   {ChainInfo: config.ChainInfo{ID: 137, Name: "Polygon"}, RPCs: []string{"https://polygon.example"}},
		42161: {ChainInfo: config.ChainInfo{ID: 42161, Name: "Arbitrum"}, RPCs: []string{"https://arb.example"}},
	}
	clients := map[string]*mockClient{
		"https://polygon.example": newMockClient(137),
		"https://arb.example":     newMockClient(42161),
	}

	pool, entry, err := Detect(context.Background(), rpcs, ConnectOptions{Dial: fakeDialer(clients), RPS: 1000})
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if entry.ID != 137 || pool.Chain() != 137 {
		t.Errorf("detected chain = %d, want 137", entry.ID)
	}
}

func TestDetect_NothingReachable(t *testing.T) {
	rpcs := config.RPCFile{
		1: {ChainInfo: config.ChainInfo{ID: 1}, RPCs: []string{"https://eth.example"}},
	}
	_, _, err := Detect(context.Background(), rpcs, ConnectOptions{Dial: fakeDialer(nil)})
	if !errors.Is(err, config.ErrNoEndpoint) {
		t.Fatalf("error = %v, want ErrNoEndpoint", err)
	}

	_, _, err = Detect(context.Background(), config.RPCFile{}, ConnectOptions{})
	if !errors.Is(err, config.ErrNoEndpoint) {
		t.Fatalf("empty file error = %v, want ErrNoEndpoint", err)
	}
}

func TestPool_RunHealthChecks(t *testing.T) {
	a, b := newMockClient(10), newMockClient(10)
	b.chainIDErr = errors.New("timeout")
	p := poolOf(10, a, b)

	results := p.RunHealthChecks(context.Background())
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	if !results[0].OK || results[1].OK {
		t.Errorf("results = %+v, want [ok, failed]", results)
	}
	if p.Health()[1].Failures != 1 {
		t.Error("failed probe must count against the breaker")
	}
}
