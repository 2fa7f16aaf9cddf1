// Package testgen produces the argument tuples a verification runs over,
// either from an explicit payload or from deterministic per-type constants.
package testgen

import (
	"code-translator/internal/config"
	"code-translator/internal/domain/model"
)

const defaultMaxCases = 20

type Generator struct {
	tables   map[model.TypeTag]Table
	maxCases int
}

// New builds a generator from config overrides on top of DefaultTables.
func New(cfg config.TestGenConfig) *Generator {
	tables := DefaultTables()

	it := tables[model.TypeInteger]
	if len(cfg.IntBoundaries) > 0 {
		it.Boundaries = ints(cfg.IntBoundaries...)
	}
	if cfg.IntEdge != nil {
		it.Edge = model.Int(*cfg.IntEdge)
	}
	if cfg.IntTypical != nil {
		it.Typical = model.Int(*cfg.IntTypical)
	}
	if len(cfg.IntSamples) > 0 {
		it.Samples = nil
		for _, row := range cfg.IntSamples {
			if len(row) > 0 {
				it.Samples = append(it.Samples, ints(row...))
			}
		}
	}
	tables[model.TypeInteger] = it

	if len(cfg.FloatBoundaries) > 0 {
		ft := tables[model.TypeFloat]
		ft.Boundaries = floats(cfg.FloatBoundaries...)
		tables[model.TypeFloat] = ft
	}
	if len(cfg.StringBoundaries) > 0 {
		st := tables[model.TypeString]
		st.Boundaries = strs(cfg.StringBoundaries...)
		tables[model.TypeString] = st
	}

	maxCases := cfg.MaxCases
	if maxCases <= 0 {
		maxCases = defaultMaxCases
	}
	return &Generator{tables: tables, maxCases: maxCases}
}

func (g *Generator) MaxCases() int { return g.maxCases }

func (g *Generator) table(t model.TypeTag) Table {
	if tb, ok := g.tables[t]; ok {
		return tb
	}
	return g.tables[model.TypeInteger]
}

// Auto returns the deterministic battery for the given parameter types.
// The same types always yield the same tuples in the same order.
func (g *Generator) Auto(types []model.TypeTag) [][]model.Value {
	var out [][]model.Value
	switch len(types) {
	case 0:
		out = [][]model.Value{{}}
	case 1:
		for _, v := range g.table(types[0]).Boundaries {
			out = append(out, []model.Value{v})
		}
	default:
		out = append(out, g.corners(types)...)
		out = append(out, g.samples(types)...)
	}
	return g.limit(dedup(out))
}

// corners enumerates every {edge, typical} assignment in lexicographic order
// (edge before typical), dropping the all-edge and all-typical tuples.
func (g *Generator) corners(types []model.TypeTag) [][]model.Value {
	n := len(types)
	bits := n
	if bits > 30 {
		bits = 30
	}
	total := 1 << bits
	var out [][]model.Value
	for mask := 1; mask < total-1; mask++ {
		tuple := make([]model.Value, n)
		for p := 0; p < n; p++ {
			// most significant bit is the first parameter
			tb := g.table(types[p])
			if mask&(1<<(n-1-p)) != 0 {
				tuple[p] = tb.Typical
			} else {
				tuple[p] = tb.Edge
			}
		}
		out = append(out, tuple)
		if len(out) >= g.maxCases {
			break
		}
	}
	return out
}

func (g *Generator) samples(types []model.TypeTag) [][]model.Value {
	rows := 0
	for _, t := range types {
		if r := len(g.table(t).Samples); r > rows {
			rows = r
		}
	}
	var out [][]model.Value
	for r := 0; r < rows; r++ {
		tuple := make([]model.Value, len(types))
		for p, t := range types {
			tb := g.table(t)
			if len(tb.Samples) == 0 {
				tuple[p] = tb.Typical
				continue
			}
			row := tb.Samples[r%len(tb.Samples)]
			tuple[p] = row[p%len(row)]
		}
		out = append(out, tuple)
	}
	return out
}

func (g *Generator) limit(in [][]model.Value) [][]model.Value {
	if len(in) > g.maxCases {
		return in[:g.maxCases]
	}
	return in
}

func dedup(in [][]model.Value) [][]model.Value {
	out := make([][]model.Value, 0, len(in))
	for _, t := range in {
		dup := false
		for _, seen := range out {
			if sameTuple(t, seen) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, t)
		}
	}
	return out
}

func sameTuple(a, b []model.Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Identical(b[i]) {
			return false
		}
	}
	return true
}
