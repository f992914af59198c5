package compose

import (
	"context"
	"reflect"
	"testing"

	"github.com/roach88/pipetree/internal/middleware"
	"github.com/roach88/pipetree/internal/runctx"
	"github.com/roach88/pipetree/internal/slot"
)

var (
	intType = reflect.TypeFor[int]()
	stringT = reflect.TypeFor[string]()
)

func sumRun(_ context.Context, c *Composable, _ runctx.Input) (any, error) {
	total := 0
	for _, name := range []string{"a", "b", "c"} {
		v, err := As[int](c, name)
		if err != nil {
			return nil, err
		}
		total += v
	}
	return total, nil
}

var testSum = MustDefine("test.Sum",
	Param("a", TypeOf(0)),
	Param("b", Default(10), TypeOf(0)),
	Param("c", Default(10), TypeOf(0)),
	Param("d", DependsOn("b"), Auto(func(c *Composable) (any, error) {
		b, err := As[int](c, "b")
		if err != nil {
			return nil, err
		}
		return b * 2, nil
	})),
	Signature(&slot.Signature{Returns: intType}),
	Run(sumRun),
)

var testRoot = MustDefine("test.Root",
	Param("a", TypeOf(0)),
	Node("x", Expect(&slot.Signature{Returns: intType})),
	Node("y", Default(testSum.With(map[string]any{"a": 100}))),
	Run(func(ctx context.Context, c *Composable, _ runctx.Input) (any, error) {
		x, err := c.Call(ctx, "x")
		if err != nil {
			return nil, err
		}
		y, err := c.Call(ctx, "y")
		if err != nil {
			return nil, err
		}
		return x.(int) + y.(int), nil
	}),
)

func newTestEnv(t *testing.T) *Env {
	t.Helper()
	env := NewEnv(middleware.Deps{})
	env.Runs = runctx.NewStore(runctx.WithClock(runctx.NewClock()))
	return env
}

func newRoot(t *testing.T, env *Env) *Composable {
	t.Helper()
	root, err := testRoot.New(map[string]any{
		"a": 20,
		"x": testSum.With(map[string]any{"a": 20}),
	}, WithEnv(env))
	if err != nil {
		t.Fatalf("new root: %v", err)
	}
	return root
}
