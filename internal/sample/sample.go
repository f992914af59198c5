// Package sample holds small arithmetic pipelines. The CLI loads dumps
// against their allow-list, and tests use them as realistic trees.
package sample

import (
	"context"
	"fmt"
	"reflect"

	"github.com/roach88/pipetree/internal/compose"
	"github.com/roach88/pipetree/internal/runctx"
	"github.com/roach88/pipetree/internal/slot"
)

var (
	intType = reflect.TypeFor[int]()
	intSig  = &slot.Signature{Returns: intType}
)

// Multiply returns a*x. It runs in the cached section.
var Multiply = compose.MustDefine("sample.Multiply",
	compose.Help("Multiply the input by a."),
	compose.Middleware("cached", nil),
	compose.Param("a", compose.TypeOf(0), compose.Doc("factor")),
	compose.Signature(&slot.Signature{
		Params:  []slot.Field{{Name: "x", Type: intType}},
		Returns: intType,
	}),
	compose.Run(func(_ context.Context, c *compose.Composable, in runctx.Input) (any, error) {
		a, err := compose.As[int](c, "a")
		if err != nil {
			return nil, err
		}
		x, err := IntArg(in, 0, "x")
		if err != nil {
			return nil, err
		}
		return a * x, nil
	}),
)

// Sum1 returns a+b+c. d follows b.
var Sum1 = compose.MustDefine("sample.Sum1",
	compose.Help("Add a, b and c."),
	compose.Param("a", compose.TypeOf(0)),
	compose.Param("b", compose.Default(10), compose.TypeOf(0)),
	compose.Param("c", compose.Default(10), compose.TypeOf(0)),
	compose.Param("d", compose.DependsOn("b"), compose.Auto(func(c *compose.Composable) (any, error) {
		b, err := compose.As[int](c, "b")
		if err != nil {
			return nil, err
		}
		return b * 2, nil
	}), compose.Doc("twice b")),
	compose.Signature(intSig),
	compose.Run(func(_ context.Context, c *compose.Composable, _ runctx.Input) (any, error) {
		total := 0
		for _, name := range []string{"a", "b", "c"} {
			v, err := compose.As[int](c, name)
			if err != nil {
				return nil, err
			}
			total += v
		}
		return total, nil
	}),
)

// Sum2 returns self.a + a + mult(b).
var Sum2 = compose.MustDefine("sample.Sum2",
	compose.Help("Add a, the first argument and mult applied to the second."),
	compose.Param("a", compose.TypeOf(0)),
	compose.Node("mult", compose.Default(Multiply.With(map[string]any{"a": 10}))),
	compose.Signature(&slot.Signature{
		Params:   []slot.Field{{Name: "a", Type: intType}, {Name: "b", Type: intType}},
		Variadic: &slot.Field{Name: "rest"},
		Returns:  intType,
	}),
	compose.Run(func(ctx context.Context, c *compose.Composable, in runctx.Input) (any, error) {
		self, err := compose.As[int](c, "a")
		if err != nil {
			return nil, err
		}
		a, err := IntArg(in, 0, "a")
		if err != nil {
			return nil, err
		}
		b, err := IntArg(in, 1, "b")
		if err != nil {
			return nil, err
		}
		m, err := c.Call(ctx, "mult", b)
		if err != nil {
			return nil, err
		}
		return sumInts(self, a, m)
	}),
)

// Plus combines x, y and m. z is rebuilt whenever x changes.
var Plus = compose.MustDefine("sample.Plus",
	compose.Help("Add the outputs of x, y and m."),
	compose.Param("a", compose.TypeOf(0)),
	compose.Param("e", compose.TypeOf(0)),
	compose.Param("f", compose.DependsOn("a", "e"), compose.Auto(func(c *compose.Composable) (any, error) {
		a, err := compose.As[int](c, "a")
		if err != nil {
			return nil, err
		}
		e, err := compose.As[int](c, "e")
		if err != nil {
			return nil, err
		}
		return a + e, nil
	})),
	compose.Node("x", compose.Expect(intSig), compose.Doc("any int producer")),
	compose.Node("y", compose.Default(Sum1.With(map[string]any{"a": 100}))),
	compose.Node("m", compose.Default(Sum2.With(map[string]any{"a": 100}))),
	compose.Node("z", compose.DependsOn("x"), compose.Auto(func(c *compose.Composable) (any, error) {
		a, err := compose.As[int](c, "x.a")
		if err != nil {
			return nil, err
		}
		return Sum1.New(map[string]any{"a": a * 10})
	})),
	compose.Signature(&slot.Signature{
		Params:  []slot.Field{{Name: "ma", Type: intType}, {Name: "mb", Type: intType}},
		Returns: intType,
	}),
	compose.Run(func(ctx context.Context, c *compose.Composable, in runctx.Input) (any, error) {
		x, err := c.Call(ctx, "x")
		if err != nil {
			return nil, err
		}
		y, err := c.Call(ctx, "y")
		if err != nil {
			return nil, err
		}
		m, err := c.CallInput(ctx, "m", in)
		if err != nil {
			return nil, err
		}
		return sumInts(x, y, m)
	}),
)

// Pipeline applies every step to the running value in turn. Steps are
// registered children, so each is traced under its own edge.
var Pipeline = compose.MustDefine("sample.Pipeline",
	compose.Help("Chain registered steps, feeding each output to the next."),
	compose.Param("steps", compose.Default([]string{}), compose.TypeOf([]string{}), compose.Doc("registered step edges in order")),
	compose.Run(func(ctx context.Context, c *compose.Composable, in runctx.Input) (any, error) {
		v, err := IntArg(in, 0, "x")
		if err != nil {
			return nil, err
		}
		steps, err := compose.As[[]string](c, "steps")
		if err != nil {
			return nil, err
		}
		children := c.Children()
		for _, edge := range steps {
			step, ok := children[edge]
			if !ok {
				return nil, fmt.Errorf("pipeline step %q is not registered", edge)
			}
			out, err := step.Invoke(ctx, runctx.Input{Args: []any{v}})
			if err != nil {
				return nil, err
			}
			if v, err = Int(out); err != nil {
				return nil, fmt.Errorf("pipeline step %q: %w", edge, err)
			}
		}
		return v, nil
	}),
)

// AllowList names every sample type.
func AllowList() compose.AllowList {
	return compose.Allow(Multiply, Sum1, Sum2, Plus, Pipeline)
}

// IntArg reads positional argument i, or kwargs[name] when there are not
// enough positional arguments.
func IntArg(in runctx.Input, i int, name string) (int, error) {
	var v any
	switch {
	case i < len(in.Args):
		v = in.Args[i]
	case in.Kwargs != nil && in.Kwargs[name] != nil:
		v = in.Kwargs[name]
	default:
		return 0, fmt.Errorf("missing argument %s", name)
	}
	n, err := Int(v)
	if err != nil {
		return 0, fmt.Errorf("argument %s: %w", name, err)
	}
	return n, nil
}

// Int converts v to int. Outputs restored from a persisted run come back
// as int64 and JSON arguments as float64; both are accepted when integral.
func Int(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != float64(int(n)) {
			return 0, fmt.Errorf("%v is not an integer", n)
		}
		return int(n), nil
	}
	return 0, fmt.Errorf("want int, got %T", v)
}

func sumInts(vs ...any) (any, error) {
	total := 0
	for _, v := range vs {
		n, err := Int(v)
		if err != nil {
			return nil, err
		}
		total += n
	}
	return total, nil
}
