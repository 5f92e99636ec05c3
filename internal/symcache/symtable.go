package symcache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/archsim/dddg/pkg/symtab"
)

// TableSnapshot is the on-disk representation of an interned symbol table,
// keyed by the trace file's content identity so a rebuild over an
// unchanged trace can skip re-interning every name.
type TableSnapshot struct {
	Functions    []string `msgpack:"functions"`
	BasicBlocks  []string `msgpack:"basic_blocks"`
	Instructions []string `msgpack:"instructions"`
	Variables    []string `msgpack:"variables"`
	Labels       []string `msgpack:"labels"`
}

// TableCache persists symtab.Table snapshots in an LRU cache backed by
// msgpack, mirroring the teacher's LRUCache Save/Load contract but scoped
// to a single value type instead of interface{}.
type TableCache struct {
	lru *LRUCache
}

// NewTableCache creates a TableCache holding up to maxEntries snapshots.
func NewTableCache(maxEntries int) *TableCache {
	return &TableCache{lru: New(Options{MaxSize: maxEntries})}
}

// Key derives a stable cache key by hashing a trace file's path, size and
// modification time; the file's contents are not read. Non-goal note: the
// key only detects staleness; it never reads or stores the DDDG itself.
func Key(tracePath string) (string, error) {
	f, err := os.Open(tracePath)
	if err != nil {
		return "", fmt.Errorf("opening trace for cache key: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat trace for cache key: %w", err)
	}

	h := sha256.New()
	fmt.Fprintf(h, "%s:%d:%d", tracePath, info.Size(), info.ModTime().UnixNano())
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Store snapshots the given table into the cache under key.
func (c *TableCache) Store(key string, table *symtab.Table) {
	c.lru.Set(key, snapshot(table))
}

// Fetch restores a table's interned names from the cache, if present.
// It does not restore invocation counters, which are build-scoped.
func (c *TableCache) Fetch(key string) (*symtab.Table, bool) {
	v, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	snap, ok := v.(TableSnapshot)
	if !ok {
		return nil, false
	}
	return restore(snap), true
}

// Save persists every cached snapshot using msgpack, in the manner of
// LRUCache.Save but with a typed on-disk schema.
func (c *TableCache) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating symbol cache file: %w", err)
	}
	defer f.Close()
	return c.lru.Save(f)
}

// Load restores cached snapshots previously written by Save. A missing
// file is not an error: the cache simply starts cold.
func (c *TableCache) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("opening symbol cache file: %w", err)
	}
	defer f.Close()

	dec := msgpack.NewDecoder(f)
	var entries []struct {
		Key   string
		Value TableSnapshot
	}
	if err := dec.Decode(&entries); err != nil {
		return fmt.Errorf("decoding symbol cache: %w", err)
	}
	for _, e := range entries {
		c.lru.Set(e.Key, e.Value)
	}
	return nil
}

func snapshot(table *symtab.Table) TableSnapshot {
	return TableSnapshot{
		Functions:    table.Names(symtab.KindFunction),
		BasicBlocks:  table.Names(symtab.KindBasicBlock),
		Instructions: table.Names(symtab.KindInstruction),
		Variables:    table.Names(symtab.KindVariable),
		Labels:       table.Names(symtab.KindLabel),
	}
}

func restore(snap TableSnapshot) *symtab.Table {
	table := symtab.NewTable()
	for _, n := range snap.Functions {
		table.InternFunction(n)
	}
	for _, n := range snap.BasicBlocks {
		table.InternBasicBlock(n)
	}
	for _, n := range snap.Instructions {
		table.InternInstruction(n)
	}
	for _, n := range snap.Variables {
		table.InternVariable(n)
	}
	for _, n := range snap.Labels {
		table.InternLabel(n)
	}
	return table
}
