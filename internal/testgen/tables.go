package testgen

import "code-translator/internal/domain/model"

// Table holds the deterministic constants used for one type tag.
type Table struct {
	// Boundaries is the arity-1 battery, in order.
	Boundaries []model.Value
	// Edge and Typical drive the cartesian corner pass for arity >= 2.
	Edge    model.Value
	Typical model.Value
	// Samples are representative rows; parameter p takes row[p mod len(row)].
	Samples [][]model.Value
}

func ints(xs ...int64) []model.Value { return model.Ints(xs...) }

func floats(xs ...float64) []model.Value {
	out := make([]model.Value, len(xs))
	for i, x := range xs {
		out[i] = model.Float(x)
	}
	return out
}

func strs(xs ...string) []model.Value {
	out := make([]model.Value, len(xs))
	for i, x := range xs {
		out[i] = model.String(x)
	}
	return out
}

func intRange(n int64) model.Value {
	items := make([]model.Value, n)
	for i := int64(0); i < n; i++ {
		items[i] = model.Int(i)
	}
	return model.Seq(items...)
}

func entry(k string, v int64) model.Entry { return model.Entry{Key: k, Value: model.Int(v)} }

// DefaultTables returns fresh copies of the built-in constants.
func DefaultTables() map[model.TypeTag]Table {
	return map[model.TypeTag]Table{
		model.TypeInteger: {
			Boundaries: ints(0, 1, -1, 2, 5, 10, 20, 50, 1000, -1000),
			Edge:       model.Int(0),
			Typical:    model.Int(5),
			Samples:    [][]model.Value{ints(-4, 6), ints(12, 18)},
		},
		model.TypeFloat: {
			Boundaries: floats(0, 1, -1, 0.5, -2.25, 3.14159, 1e6, 1e-6),
			Edge:       model.Float(0),
			Typical:    model.Float(2.5),
			Samples:    [][]model.Value{floats(-1.5, 2.25), floats(10, 0.125)},
		},
		model.TypeString: {
			Boundaries: strs("", "a", "abc", "Hello, World", "  spaced  ", "ünïcödé"),
			Edge:       model.String(""),
			Typical:    model.String("abc"),
			Samples:    [][]model.Value{strs("hello", "world"), strs("racecar", "level")},
		},
		model.TypeBoolean: {
			Boundaries: []model.Value{model.Bool(false), model.Bool(true)},
			Edge:       model.Bool(false),
			Typical:    model.Bool(true),
			Samples:    [][]model.Value{{model.Bool(true), model.Bool(false)}},
		},
		model.TypeSequence: {
			Boundaries: []model.Value{
				model.Seq(), model.Seq(ints(0)...), model.Seq(ints(1, 2, 3)...),
				model.Seq(ints(3, -1, 2, -5)...), intRange(50),
			},
			Edge:    model.Seq(),
			Typical: model.Seq(ints(1, 2, 3)...),
			Samples: [][]model.Value{
				{model.Seq(ints(5, 3, 1)...), model.Seq(ints(2, 4)...)},
				{model.Seq(ints(10, -10)...), model.Seq(ints(7)...)},
			},
		},
		model.TypeSet: {
			Boundaries: []model.Value{model.Set(), model.Set(ints(1)...), model.Set(ints(1, 2, 3)...)},
			Edge:       model.Set(),
			Typical:    model.Set(ints(1, 2, 3)...),
			Samples:    [][]model.Value{{model.Set(ints(1, 2)...), model.Set(ints(2, 3)...)}},
		},
		model.TypeMapping: {
			Boundaries: []model.Value{
				model.Map(), model.Map(entry("a", 1)),
				model.Map(entry("a", 1), entry("b", 2), entry("c", 3)),
			},
			Edge:    model.Map(),
			Typical: model.Map(entry("a", 1)),
			Samples: [][]model.Value{{model.Map(entry("x", 1)), model.Map(entry("y", 2))}},
		},
	}
}
