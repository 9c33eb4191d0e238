// Command ammsim-pipeline is a thin example wrapper around the
// simulation core (spec §6: "No CLI surface ... is part of the core;
// examples may wrap it"). It reads one JSON-encoded wire.SyncMessage,
// feeds it through a stream.Pipeline, and prints the resulting
// BlockUpdate summary. Grounded on the teacher's cmd/quote/main.go:
// flag-driven config, .env loading, JSON in/out.
package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"ammsim/internal/obs"
	"ammsim/pkg/config"
	"ammsim/pkg/pool"
	"ammsim/pkg/stream"
	"ammsim/pkg/token"
	"ammsim/pkg/wire"
)

var (
	configPath = flag.String("config", "", "Path to a YAML pipeline config (optional)")
	inputPath  = flag.String("input", "", "Path to a JSON-encoded sync-message (default: stdin)")
)

func main() {
	flag.Parse()

	if err := config.LoadEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not load .env: %v\n", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}
	obs.Configure(cfg)
	defer obs.Sync()

	tokens, err := buildTokenRegistry(cfg)
	if err != nil {
		obs.L().Fatalw("building initial token registry", "error", err)
	}

	in := os.Stdin
	if *inputPath != "" {
		f, err := os.Open(*inputPath)
		if err != nil {
			obs.L().Fatalw("opening input", "error", err)
		}
		defer f.Close()
		in = f
	}

	var msg wire.SyncMessage
	if err := json.NewDecoder(in).Decode(&msg); err != nil {
		obs.L().Fatalw("decoding sync-message", "error", err)
	}

	pipeline := stream.New(tokens, nil, nil)
	update, err := pipeline.Process(context.Background(), msg)
	if err != nil {
		obs.L().Fatalw("processing sync-message", "error", err, "block", msg.Header.Number)
	}

	summary := map[string]any{
		"block":         update.Header.Number,
		"new_pairs":     keysOf(update.NewPairs),
		"updated_pairs": keysOf(update.States),
		"removed_pairs": keysOfSet(update.RemovedPairs),
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		obs.L().Fatalw("encoding output", "error", err)
	}
}

func buildTokenRegistry(cfg *config.Config) (*token.Registry, error) {
	seed := make(map[[20]byte]token.Token, len(cfg.Tokens))
	for _, tc := range cfg.Tokens {
		a, err := parseAddress(tc.Address)
		if err != nil {
			return nil, fmt.Errorf("token %s: %w", tc.Address, err)
		}
		seed[a] = token.Token{Address: a, Decimals: tc.Decimals, Symbol: tc.Symbol, Gas: tc.Gas}
	}
	return token.NewRegistry(seed), nil
}

func parseAddress(s string) ([20]byte, error) {
	var out [20]byte
	b, err := hex.DecodeString(trimHexPrefix(s))
	if err != nil || len(b) != 20 {
		return out, fmt.Errorf("bad address %q", s)
	}
	copy(out[:], b)
	return out, nil
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

func keysOf(m map[string]pool.Pool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func keysOfSet(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
