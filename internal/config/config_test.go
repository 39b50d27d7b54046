package config

import (
	"testing"
	"time"
)

func TestParseSeed(t *testing.T) {
	got := ParseSeed("1:50,2:100,3:75")
	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(got))
	}
	if got["1"] != 50 || got["2"] != 100 || got["3"] != 75 {
		t.Fatalf("unexpected seed: %+v", got)
	}
}

func TestParseSeedSkipsMalformed(t *testing.T) {
	got := ParseSeed("1:50,bogus,2:-5,3:abc, 4 : 10 ,")
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %+v", got)
	}
	if got["1"] != 50 || got["4"] != 10 {
		t.Fatalf("unexpected seed: %+v", got)
	}
}

func TestParseCSV(t *testing.T) {
	got := ParseCSV(" a, b ,,c ")
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("unexpected result: %+v", got)
	}
	if got := ParseCSV(""); got != nil {
		t.Fatalf("expected nil for empty input, got %+v", got)
	}
}

func TestParseBackends(t *testing.T) {
	got := ParseBackends("products=http://p1:5001|http://p2:5001,stock=http://s1:5002/")
	if len(got) != 2 {
		t.Fatalf("expected 2 services, got %d", len(got))
	}
	if len(got["products"]) != 2 || got["products"][1] != "http://p2:5001" {
		t.Fatalf("unexpected products backends: %+v", got["products"])
	}
	if len(got["stock"]) != 1 || got["stock"][0] != "http://s1:5002" {
		t.Fatalf("expected trailing slash trimmed, got %+v", got["stock"])
	}
}

func TestParseBackendsSkipsMalformed(t *testing.T) {
	got := ParseBackends("noequals,=http://x,empty=,ok=http://y")
	if len(got) != 1 {
		t.Fatalf("expected only valid entry, got %+v", got)
	}
	if got["ok"][0] != "http://y" {
		t.Fatalf("unexpected entry: %+v", got)
	}
}

func TestLoadDefaults(t *testing.T) {
	stockd := LoadStockd()
	if stockd.HTTPAddr != ":5002" {
		t.Fatalf("unexpected stockd addr %q", stockd.HTTPAddr)
	}
	if stockd.Seed["1"] != 50 || stockd.Seed["2"] != 100 || stockd.Seed["3"] != 75 {
		t.Fatalf("unexpected default seed: %+v", stockd.Seed)
	}

	orderd := LoadOrderd()
	if orderd.HTTPAddr != ":5005" {
		t.Fatalf("unexpected orderd addr %q", orderd.HTTPAddr)
	}
	if orderd.UpstreamTimeout != 30*time.Second {
		t.Fatalf("unexpected upstream timeout %s", orderd.UpstreamTimeout)
	}

	gw := LoadGateway()
	if gw.HTTPAddr != ":8080" {
		t.Fatalf("unexpected gateway addr %q", gw.HTTPAddr)
	}
	if len(gw.Backends["products"]) != 2 {
		t.Fatalf("expected two default products instances, got %+v", gw.Backends["products"])
	}
	if len(gw.Backends) != 5 {
		t.Fatalf("expected 5 default services, got %d", len(gw.Backends))
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9999")
	t.Setenv("STOCK_SEED", "7:1")
	t.Setenv("UPSTREAM_TIMEOUT", "5")

	stockd := LoadStockd()
	if stockd.HTTPAddr != ":9999" {
		t.Fatalf("unexpected addr %q", stockd.HTTPAddr)
	}
	if len(stockd.Seed) != 1 || stockd.Seed["7"] != 1 {
		t.Fatalf("unexpected seed: %+v", stockd.Seed)
	}

	orderd := LoadOrderd()
	if orderd.UpstreamTimeout != 5*time.Second {
		t.Fatalf("unexpected timeout %s", orderd.UpstreamTimeout)
	}
}
