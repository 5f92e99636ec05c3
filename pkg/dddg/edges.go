package dddg

import (
	"sort"

	"github.com/archsim/dddg/pkg/program"
)

// handlePostWriteDependency walks every byte in [startAddr, startAddr+size)
// and, for each byte that has a recorded last writer, records a pending
// memory edge from that writer to sinkNode. Re-recording an edge that is
// already pending does not increase the memory-edge counter (invariant 7).
func (b *Builder) handlePostWriteDependency(startAddr, size uint64, sinkNode uint64) {
	for addr := startAddr; addr < startAddr+size; addr++ {
		writer, ok := b.addressLastWritten[addr]
		if !ok {
			continue
		}
		sinks, ok := b.memoryEdgeTable[writer]
		if !ok {
			sinks = make(map[uint64]struct{})
			b.memoryEdgeTable[writer] = sinks
		}
		if _, already := sinks[sinkNode]; already {
			continue
		}
		sinks[sinkNode] = struct{}{}
		b.numMemDep++
	}
}

// insertControlDependence records a pending control edge source → dest.
func (b *Builder) insertControlDependence(source, dest uint64) {
	sinks, ok := b.controlEdgeTable[source]
	if !ok {
		sinks = make(map[uint64]struct{})
		b.controlEdgeTable[source] = sinks
	}
	if _, already := sinks[dest]; already {
		return
	}
	sinks[dest] = struct{}{}
	b.numCtrlDep++
}

// flushEdges drains every pending edge table into the program sink in
// (source, sink) order, independent of map iteration order, so that two
// runs over the same trace produce byte-identical edge lists.
func (b *Builder) flushEdges() {
	for _, src := range sortedRegEdgeSources(b.registerEdgeTable) {
		for _, e := range b.registerEdgeTable[src] {
			b.sink.AddEdge(src, e.sink, program.RegisterEdge, e.paramIndex)
		}
	}
	b.flushSetTable(b.memoryEdgeTable, program.MemoryEdge)
	b.flushSetTable(b.controlEdgeTable, program.ControlEdge)
}

func (b *Builder) flushSetTable(table map[uint64]map[uint64]struct{}, kind program.EdgeKind) {
	for _, src := range sortedSetKeys(table) {
		for _, snk := range sortedUint64s(table[src]) {
			b.sink.AddEdge(src, snk, kind, 0)
		}
	}
}

func sortedRegEdgeSources(table map[uint64][]regEdge) []uint64 {
	keys := make([]uint64, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func sortedSetKeys(table map[uint64]map[uint64]struct{}) []uint64 {
	keys := make([]uint64, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func sortedUint64s(set map[uint64]struct{}) []uint64 {
	out := make([]uint64, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
