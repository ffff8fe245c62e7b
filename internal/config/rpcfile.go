package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// ChainRPC is one chain entry of the RPC file.
type ChainRPC struct {
	ChainInfo
	RPCs []string `json:"rpcs"`
}

// RPCFile maps chain ID to its configured endpoints.
type RPCFile map[int64]ChainRPC

type rpcFileEntry struct {
	Name   string   `json:"name,omitempty"`
	Symbol string   `json:"symbol,omitempty"`
	RPCs   []string `json:"rpcs"`
}

// LoadRPCFile reads the RPC file. Each key is a chain ID and each value is
// either {"name","symbol","rpcs"} or a bare array of URLs.
func LoadRPCFile(path string) (RPCFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rpc file %q: %w", path, err)
	}
	return ParseRPCFile(data)
}

// ParseRPCFile decodes RPC file contents.
func ParseRPCFile(data []byte) (RPCFile, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: rpc file is not a JSON object: %v", ErrInvalidConfig, err)
	}

	out := make(RPCFile, len(raw))
	for key, val := range raw {
		id, err := strconv.ParseInt(strings.TrimSpace(key), 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("%w: rpc file key %q is not a chain id", ErrInvalidConfig, key)
		}

		var entry rpcFileEntry
		trimmed := strings.TrimSpace(string(val))
		if strings.HasPrefix(trimmed, "[") {
			if err := json.Unmarshal(val, &entry.RPCs); err != nil {
				return nil, fmt.Errorf("%w: chain %d rpcs: %v", ErrInvalidConfig, id, err)
			}
		} else if err := json.Unmarshal(val, &entry); err != nil {
			return nil, fmt.Errorf("%w: chain %d: %v", ErrInvalidConfig, id, err)
		}

		info := ChainInfo{ID: id, Name: entry.Name, Symbol: entry.Symbol}
		if known, ok := LookupChain(id); ok {
			if info.Name == "" {
				info.Name = known.Name
			}
			if info.Symbol == "" {
				info.Symbol = known.Symbol
			}
		}
		if info.Name == "" {
			info.Name = fmt.Sprintf("Chain %d", id)
		}
		if info.Symbol == "" {
			info.Symbol = "ETH"
		}

		urls := make([]string, 0, len(entry.RPCs))
		for _, u := range entry.RPCs {
			if u = strings.TrimSpace(u); u != "" {
				urls = append(urls, u)
			}
		}

		out[id] = ChainRPC{ChainInfo: info, RPCs: urls}
	}
	return out, nil
}

// ChainIDs returns the configured chain IDs in ascending order.
func (f RPCFile) ChainIDs() []int64 {
	ids := make([]int64, 0, len(f))
	for id := range f {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Endpoints returns the RPC URLs for a chain, or ErrNoEndpoint.
func (f RPCFile) Endpoints(chainID int64) ([]string, error) {
	c, ok := f[chainID]
	if !ok || len(c.RPCs) == 0 {
		return nil, fmt.Errorf("%w: chain %d", ErrNoEndpoint, chainID)
	}
	return c.RPCs, nil
}

// AddChain inserts or replaces a chain entry and writes the file back to path.
func (f RPCFile) AddChain(path string, chain ChainRPC) error {
	if chain.ID <= 0 {
		return fmt.Errorf("%w: chain id must be > 0", ErrInvalidConfig)
	}
	if len(chain.RPCs) == 0 {
		return fmt.Errorf("%w: chain %d", ErrNoEndpoint, chain.ID)
	}
	f[chain.ID] = chain

	out := make(map[string]rpcFileEntry, len(f))
	for id, c := range f {
		out[strconv.FormatInt(id, 10)] = rpcFileEntry{Name: c.Name, Symbol: c.Symbol, RPCs: c.RPCs}
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encode rpc file: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create rpc file directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write rpc file %q: %w", path, err)
	}

	slog.Info("chain added to rpc file", "chainID", chain.ID, "name", chain.Name, "rpcs", len(chain.RPCs))
	return nil
}
