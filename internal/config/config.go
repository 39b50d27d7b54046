// Package config collects runtime configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Stockd configures the reservation ledger service.
type Stockd struct {
	HTTPAddr        string
	DatabaseURL     string
	CORSOrigins     []string
	Seed            map[string]uint
	ShutdownTimeout time.Duration
}

// Orderd configures the order orchestrator service.
type Orderd struct {
	HTTPAddr           string
	DatabaseURL        string
	CartURL            string
	StockURL           string
	CORSOrigins        []string
	UpstreamTimeout    time.Duration
	UpstreamRetries    uint
	ClearRetryInterval time.Duration
	ClearRetryAttempts int
	ShutdownTimeout    time.Duration
}

// Gateway configures the routing layer.
type Gateway struct {
	HTTPAddr        string
	Backends        map[string][]string
	ForwardTimeout  time.Duration
	ProbeTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// LoadStockd reads stockd configuration with defaults matching the original
// deployment (port 5002, seeded products 1-3).
func LoadStockd() Stockd {
	return Stockd{
		HTTPAddr:        getenv("HTTP_ADDR", ":5002"),
		DatabaseURL:     getenv("DATABASE_URL", ""),
		CORSOrigins:     ParseCSV(getenv("CORS_ORIGINS", "*")),
		Seed:            ParseSeed(getenv("STOCK_SEED", "1:50,2:100,3:75")),
		ShutdownTimeout: durenvs("SHUTDOWN_TIMEOUT", 10),
	}
}

// LoadOrderd reads orderd configuration. The upstream timeout matches the
// 30-second proxy budget of the routing layer.
func LoadOrderd() Orderd {
	return Orderd{
		HTTPAddr:           getenv("HTTP_ADDR", ":5005"),
		DatabaseURL:        getenv("DATABASE_URL", ""),
		CartURL:            getenv("CART_SERVICE_URL", "http://cart-service:5004"),
		StockURL:           getenv("STOCK_SERVICE_URL", "http://stock-service:5002"),
		CORSOrigins:        ParseCSV(getenv("CORS_ORIGINS", "*")),
		UpstreamTimeout:    durenvs("UPSTREAM_TIMEOUT", 30),
		UpstreamRetries:    uint(atoienv("UPSTREAM_RETRIES", 2)),
		ClearRetryInterval: durenvs("CLEAR_RETRY_INTERVAL", 15),
		ClearRetryAttempts: atoienv("CLEAR_RETRY_ATTEMPTS", 20),
		ShutdownTimeout:    durenvs("SHUTDOWN_TIMEOUT", 10),
	}
}

const defaultBackends = "products=http://products-service-1:5001|http://products-service-2:5001," +
	"stock=http://stock-service:5002," +
	"customers=http://customers-service:5003," +
	"cart=http://cart-service:5004," +
	"orders=http://order-service:5005"

// LoadGateway reads gateway configuration.
func LoadGateway() Gateway {
	return Gateway{
		HTTPAddr:        getenv("HTTP_ADDR", ":8080"),
		Backends:        ParseBackends(getenv("GATEWAY_SERVICES", defaultBackends)),
		ForwardTimeout:  durenvs("FORWARD_TIMEOUT", 30),
		ProbeTimeout:    durenvs("PROBE_TIMEOUT", 5),
		ShutdownTimeout: durenvs("SHUTDOWN_TIMEOUT", 10),
	}
}

// ParseCSV splits a comma-separated list, dropping empty entries.
func ParseCSV(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

// ParseSeed parses "id:quantity,id:quantity" stock seed declarations.
// Malformed entries are skipped.
func ParseSeed(input string) map[string]uint {
	out := make(map[string]uint)
	for _, part := range ParseCSV(input) {
		id, qty, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		n, err := strconv.ParseUint(strings.TrimSpace(qty), 10, 32)
		if err != nil {
			continue
		}
		out[strings.TrimSpace(id)] = uint(n)
	}
	return out
}

// ParseBackends parses "name=url|url,name=url" service instance declarations.
func ParseBackends(input string) map[string][]string {
	out := make(map[string][]string)
	for _, part := range ParseCSV(input) {
		name, urls, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		var instances []string
		for _, u := range strings.Split(urls, "|") {
			u = strings.TrimSpace(u)
			if u == "" {
				continue
			}
			instances = append(instances, strings.TrimRight(u, "/"))
		}
		if name == "" || len(instances) == 0 {
			continue
		}
		out[name] = instances
	}
	return out
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoienv(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func durenvs(key string, defSec int) time.Duration {
	return time.Duration(atoienv(key, defSec)) * time.Second
}
