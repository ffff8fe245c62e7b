package config

import (
	"fmt"
	"sort"
	"strings"
)

// ChainInfo describes a supported EVM chain.
type ChainInfo struct {
	ID     int64  `json:"chainId"`
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
}

// knownChains is the built-in registry of chains the tool has been run against.
var knownChains = map[int64]ChainInfo{
	1:     {ID: 1, Name: "Ethereum", Symbol: "ETH"},
	10:    {ID: 10, Name: "Optimism", Symbol: "ETH"},
	137:   {ID: 137, Name: "Polygon", Symbol: "POL"},
	143:   {ID: 143, Name: "Monad", Symbol: "MON"},
	999:   {ID: 999, Name: "Hyperliquid", Symbol: "HYPE"},
	2741:  {ID: 2741, Name: "Metis", Symbol: "ETH"},
	8453:  {ID: 8453, Name: "Base", Symbol: "ETH"},
	33139: {ID: 33139, Name: "ApeChain", Symbol: "APE"},
	42161: {ID: 42161, Name: "Arbitrum", Symbol: "ETH"},
	43114: {ID: 43114, Name: "Avalanche", Symbol: "AVAX"},
	80094: {ID: 80094, Name: "Berachain", Symbol: "BERA"},
}

// LookupChain returns the registry entry for a chain ID.
func LookupChain(id int64) (ChainInfo, bool) {
	c, ok := knownChains[id]
	return c, ok
}

// ChainByName resolves a chain by case-insensitive name.
func ChainByName(name string) (ChainInfo, error) {
	needle := strings.ToLower(strings.TrimSpace(name))
	for _, c := range knownChains {
		if strings.ToLower(c.Name) == needle {
			return c, nil
		}
	}
	return ChainInfo{}, fmt.Errorf("%w: %q", ErrUnknownChain, name)
}

// KnownChains returns the registry sorted by chain ID.
func KnownChains() []ChainInfo {
	out := make([]ChainInfo, 0, len(knownChains))
	for _, c := range knownChains {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// NativeSymbol returns the native currency symbol for a chain, "ETH" when unknown.
func NativeSymbol(id int64) string {
	if c, ok := knownChains[id]; ok {
		return c.Symbol
	}
	return "ETH"
}
