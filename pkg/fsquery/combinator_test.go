package fsquery

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func join(op Op, left, right Node[int, string]) *Combinator[int, string] {
	c := NewCombinator[int, string](op.String(), op)
	_ = c.SetPrev(left, true)
	_ = c.SetPrev(right, false)
	return c
}

func TestCombinator_UpdateCost(t *testing.T) {
	tests := []struct {
		name        string
		op          Op
		left, right [2]float64 // cost, success
		wantR2L     bool
		wantCost    float64
		wantSuccess float64
	}{
		{"and picks cheap selective right side", OpAnd, [2]float64{100, 0.9}, [2]float64{1, 0.1}, true, 11, 0.09},
		{"and keeps cheap left side", OpAnd, [2]float64{1, 0.1}, [2]float64{100, 0.9}, false, 11, 0.09},
		{"or picks cheap likely right side", OpOr, [2]float64{100, 0.1}, [2]float64{1, 0.9}, true, 11, 0.91},
		{"or keeps left on tie", OpOr, [2]float64{1, 0.5}, [2]float64{1, 0.5}, false, 1.5, 0.75},
		{"xor never reorders", OpXor, [2]float64{100, 0.9}, [2]float64{1, 0.1}, false, 101, 0.82},
		{"nand complements success", OpNand, [2]float64{100, 0.9}, [2]float64{1, 0.1}, true, 11, 0.91},
		{"nor complements success", OpNor, [2]float64{1, 0.5}, [2]float64{1, 0.5}, false, 1.5, 0.25},
		{"xnor complements success", OpXnor, [2]float64{1, 0.9}, [2]float64{1, 0.1}, false, 2, 0.18},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := join(tt.op,
				constStub("l", tt.left[0], tt.left[1], true),
				constStub("r", tt.right[0], tt.right[1], true))
			c.UpdateCost()

			assert.Equal(t, tt.wantR2L, c.RightToLeft())
			assert.InDelta(t, tt.wantCost, c.Cost(), 1e-9)
			assert.InDelta(t, tt.wantSuccess, c.SuccessRate(), 1e-9)
		})
	}
}

func TestCombinator_SideEffectsPinOrder(t *testing.T) {
	left := constStub("l", 100, 0.9, true)
	left.SideEffects = true
	c := join(OpAnd, left, constStub("r", 1, 0.1, true))
	c.UpdateCost()

	assert.False(t, c.Communicative())
	assert.False(t, c.RightToLeft())
	assert.InDelta(t, 100.9, c.Cost(), 1e-9)

	// Non-communicative children poison every ancestor.
	outer := join(OpOr, c, constStub("x", 1, 0.5, true))
	outer.UpdateCost()
	assert.False(t, outer.Communicative())
	assert.False(t, outer.RightToLeft())
}

func TestCombinator_ReorderedEvaluationShortCircuits(t *testing.T) {
	left := constStub("l", 100, 0.9, true)
	right := constStub("r", 1, 0.1, false)
	c := join(OpAnd, left, right)
	c.UpdateCost()
	require.True(t, c.RightToLeft())

	ok, err := c.ApplyBlocked(0)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.EqualValues(t, 1, right.calls.blocked.Load())
	assert.EqualValues(t, 0, left.calls.blocked.Load(), "expensive side must not run")

	v, err := c.Apply(0)
	require.NoError(t, err)
	assert.Equal(t, False, v)
	assert.EqualValues(t, 0, left.calls.apply.Load())
}

func TestCombinator_ApplyBlocked(t *testing.T) {
	tests := []struct {
		op   Op
		want [4]bool // ff, ft, tf, tt
	}{
		{OpAnd, [4]bool{false, false, false, true}},
		{OpOr, [4]bool{false, true, true, true}},
		{OpXor, [4]bool{false, true, true, false}},
		{OpNand, [4]bool{true, true, true, false}},
		{OpNor, [4]bool{true, false, false, false}},
		{OpXnor, [4]bool{true, false, false, true}},
	}
	for _, tt := range tests {
		t.Run(tt.op.String(), func(t *testing.T) {
			for i, in := range [4][2]bool{{false, false}, {false, true}, {true, false}, {true, true}} {
				c := join(tt.op, constStub("l", 1, 0.5, in[0]), constStub("r", 1, 0.5, in[1]))
				got, err := c.ApplyBlocked(0)
				require.NoError(t, err)
				assert.Equal(t, tt.want[i], got, "%v %v %v", in[0], tt.op, in[1])

				cheap, err := c.Apply(0)
				require.NoError(t, err)
				assert.Equal(t, FromBool(tt.want[i]), cheap)
			}
		})
	}
}

func TestCombinator_ApplyPropagatesUncertain(t *testing.T) {
	yes := func(int) (bool, error) { return true, nil }

	t.Run("and with false is decided", func(t *testing.T) {
		c := join(OpAnd, uncertainStub("u", yes), constStub("f", 1, 0, false))
		v, err := c.Apply(0)
		require.NoError(t, err)
		assert.Equal(t, False, v)
	})
	t.Run("or with true is decided", func(t *testing.T) {
		c := join(OpOr, uncertainStub("u", yes), constStub("t", 1, 1, true))
		v, err := c.Apply(0)
		require.NoError(t, err)
		assert.Equal(t, True, v)
	})
	t.Run("nand stays uncertain", func(t *testing.T) {
		c := join(OpNand, uncertainStub("u", yes), constStub("t", 1, 1, true))
		v, err := c.Apply(0)
		require.NoError(t, err)
		assert.True(t, v.IsUncertain())
	})
	t.Run("xor stays uncertain", func(t *testing.T) {
		c := join(OpXor, constStub("t", 1, 1, true), uncertainStub("u", yes))
		v, err := c.Apply(0)
		require.NoError(t, err)
		assert.True(t, v.IsUncertain())

		exact, err := c.ApplyBlocked(0)
		require.NoError(t, err)
		assert.False(t, exact)
	})
}

func TestCombinator_UncertainSideEffectDefers(t *testing.T) {
	yes := func(int) (bool, error) { return true, nil }
	for _, op := range []Op{OpAnd, OpOr, OpNand, OpNor} {
		t.Run(op.String(), func(t *testing.T) {
			action := uncertainStub("act", yes)
			action.SideEffects = true
			other := constStub("c", 1, 0.5, op.base() == OpOr)
			c := join(op, action, other)
			c.UpdateCost()

			v, err := c.Apply(0)
			require.NoError(t, err)
			assert.True(t, v.IsUncertain(), "the action has not run yet")
			assert.EqualValues(t, 0, other.calls.apply.Load())
		})
	}
}

func TestCombinator_Errors(t *testing.T) {
	t.Run("missing child", func(t *testing.T) {
		c := NewCombinator[int, string]("-and", OpAnd)
		_, err := c.ApplyBlocked(0)
		assert.ErrorIs(t, err, ErrUninitializedNode)
		_, err = c.Apply(0)
		assert.ErrorIs(t, err, ErrUninitializedNode)
	})
	t.Run("child error propagates", func(t *testing.T) {
		boom := errors.New("boom")
		bad := newStub("bad", 1, 0.5, func(int) (bool, error) { return false, boom })
		c := join(OpOr, constStub("f", 1, 0, false), bad)
		_, err := c.ApplyBlocked(0)
		assert.ErrorIs(t, err, boom)
		_, err = c.Apply(0)
		assert.ErrorIs(t, err, boom)
	})
}

func TestCombinator_Clone(t *testing.T) {
	c := join(OpXor, constStub("l", 1, 0.5, true), constStub("r", 1, 0.5, false))
	cl := c.Clone()

	assert.Equal(t, "xor", cl.Name())
	assert.Equal(t, KindCombinator, cl.Kind())
	kids := cl.(*Combinator[int, string]).Children()
	assert.Nil(t, kids[0])
	assert.Nil(t, kids[1])
}
