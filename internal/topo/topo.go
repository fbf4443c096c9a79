// Package topo wires the subbasin network's topological ordering to
// github.com/maseology/mmaths, which orders sub-watersheds from a
// downstream map.
package topo

import "github.com/maseology/mmaths/topology"

// Order returns subbasin IDs in topological (upstream-before-downstream)
// order given a downstream map (ID -> downstream ID) and the sentinel
// value marking an outlet. Subbasins must be routed in this order, and the
// ordering must be deterministic: the returned order depends only on
// topology, never on map iteration order.
func Order(downstream map[int]int, outletSentinel int) []int {
	return topology.OrderFromToTree(downstream, outletSentinel)
}
