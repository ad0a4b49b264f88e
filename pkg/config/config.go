// Package config supplies the explicit configuration structs that replace
// the reference implementation's default/optional parameters (a null log
// manager, a null transaction context) — per spec §9's design note, a heap
// file is constructed in one of two named modes instead of relying on a nil
// collaborator to signal "logging disabled".
package config

import (
	"github.com/pkg/errors"
	"github.com/utkarsh5026/heapcore/pkg/storage/page"
)

// DefaultPageSize is the conventional 4 KiB page.
const DefaultPageSize = 4096

// PageConfig configures the fixed size of every page in a heap file.
type PageConfig struct {
	PageSize int
}

// PageOption mutates a PageConfig under construction.
type PageOption func(*PageConfig)

// WithPageSize overrides the default page size.
func WithPageSize(n int) PageOption {
	return func(c *PageConfig) { c.PageSize = n }
}

// NewPageConfig builds a PageConfig, applying opts over the default.
func NewPageConfig(opts ...PageOption) PageConfig {
	cfg := PageConfig{PageSize: DefaultPageSize}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Validate checks that the page is large enough to hold a header and at
// least one slot directory entry.
func (c PageConfig) Validate() error {
	min := page.HeaderSize + page.SlotSize
	if c.PageSize < min {
		return errors.Errorf("config: page size %d is smaller than the minimum %d (header + one slot)", c.PageSize, min)
	}
	return nil
}

// HeapFileConfig selects a heap file's logging mode: Logged mode requires a
// log manager and a transaction context on every mutation; Unlogged mode
// (bulk load, tests) passes a nil log manager down to the page layer,
// disabling WAL emission entirely.
type HeapFileConfig struct {
	Logged bool
}

// HeapFileOption mutates a HeapFileConfig under construction.
type HeapFileOption func(*HeapFileConfig)

// WithUnlogged switches the heap file to unlogged mode.
func WithUnlogged() HeapFileOption {
	return func(c *HeapFileConfig) { c.Logged = false }
}

// NewHeapFileConfig builds a HeapFileConfig, logged by default.
func NewHeapFileConfig(opts ...HeapFileOption) HeapFileConfig {
	cfg := HeapFileConfig{Logged: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
