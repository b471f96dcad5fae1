package pool

import "testing"

func TestManagerReusesPoolPerConfig(t *testing.T) {
	m := NewManager()
	cfg := Config{Server: "localhost", Database: "People", User: "sa", Password: "pw"}

	first, err := m.QueryPool(cfg)
	if err != nil {
		t.Fatalf("QueryPool: %v", err)
	}
	second, err := m.QueryPool(cfg)
	if err != nil {
		t.Fatalf("QueryPool: %v", err)
	}
	if first != second {
		t.Error("same configuration produced distinct query pools")
	}
}

func TestManagerSeparatesQueryAndMutationPools(t *testing.T) {
	m := NewManager()
	cfg := Config{Server: "localhost", Database: "People", User: "sa", Password: "pw"}

	q, err := m.QueryPool(cfg)
	if err != nil {
		t.Fatalf("QueryPool: %v", err)
	}
	mu, err := m.MutationPool(cfg)
	if err != nil {
		t.Fatalf("MutationPool: %v", err)
	}
	if q == mu {
		t.Error("query and mutation sides shared a pool for the same configuration")
	}
}

func TestManagerDistinctConfigsGetDistinctPools(t *testing.T) {
	m := NewManager()

	a, err := m.QueryPool(Config{Server: "localhost", Database: "People"})
	if err != nil {
		t.Fatalf("QueryPool: %v", err)
	}
	b, err := m.QueryPool(Config{Server: "localhost", Database: "Orders"})
	if err != nil {
		t.Fatalf("QueryPool: %v", err)
	}
	if a == b {
		t.Error("distinct configurations shared a pool")
	}
}

func TestPoolStartsDisconnected(t *testing.T) {
	m := NewManager()
	p, err := m.QueryPool(Config{Server: "localhost", Database: "People"})
	if err != nil {
		t.Fatalf("QueryPool: %v", err)
	}
	if p.Connected() {
		t.Error("freshly constructed pool reported connected")
	}
	if p.DB() == nil {
		t.Error("pool has no underlying database handle")
	}
}
