package models

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Identity names one dataset and the model trained on it.
// Partition is the candle interval ("15m") or a strategy name ("strat1").
type Identity struct {
	Symbol    string `json:"symbol"`
	Partition string `json:"partition"`
	Horizon   string `json:"horizon,omitempty"`
}

// Validate checks the fields every identity needs.
func (id Identity) Validate() error {
	if id.Symbol == "" {
		return fmt.Errorf("symbol is required")
	}
	if id.Partition == "" {
		return fmt.Errorf("partition is required")
	}
	if strings.ContainsAny(id.Symbol+id.Partition+id.Horizon, `/\`) {
		return fmt.Errorf("identity fields must not contain path separators")
	}
	return nil
}

// Key renders symbol/partition[/horizon].
func (id Identity) Key() string {
	if id.Horizon == "" {
		return id.Symbol + "/" + id.Partition
	}
	return id.Symbol + "/" + id.Partition + "/" + id.Horizon
}

// Path is Key joined with the OS separator.
func (id Identity) Path() string {
	return filepath.FromSlash(id.Key())
}

func (id Identity) String() string { return id.Key() }
