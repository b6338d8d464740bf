package pscore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvironment_SetThenAssocFinds(t *testing.T) {
	h := newTestHeap()
	sym := h.NewSymbolFrom("x")
	val := h.NewIntegerFromInt64(42)
	env := h.Set(sym, val, NilPtr)

	got, ok := h.Assoc(sym, env)
	require.True(t, ok)
	assert.Equal(t, "42", h.IntegerToString(got))
}

func TestEnvironment_AssocMissingKeyFails(t *testing.T) {
	h := newTestHeap()
	sym := h.NewSymbolFrom("x")
	other := h.NewSymbolFrom("y")
	env := h.Set(sym, h.NewIntegerFromInt64(1), NilPtr)

	_, ok := h.Assoc(other, env)
	assert.False(t, ok)
}

// TestEnvironment_SetNeverMutatesPriorEnv verifies invariant 9/10 from
// the environment spec: extending an environment must not disturb a
// binding already reachable through an older reference to it.
func TestEnvironment_SetNeverMutatesPriorEnv(t *testing.T) {
	h := newTestHeap()
	sym := h.NewSymbolFrom("x")
	env1 := h.Set(sym, h.NewIntegerFromInt64(1), NilPtr)
	env2 := h.Set(sym, h.NewIntegerFromInt64(2), env1)

	v1, ok1 := h.Assoc(sym, env1)
	require.True(t, ok1)
	assert.Equal(t, "1", h.IntegerToString(v1), "the older environment handle must still see its own binding")

	v2, ok2 := h.Assoc(sym, env2)
	require.True(t, ok2)
	assert.Equal(t, "2", h.IntegerToString(v2), "the newer environment sees the shadowing binding")
}

func TestEnvironment_InternedReturnsCanonicalKey(t *testing.T) {
	h := newTestHeap()
	sym := h.NewSymbolFrom("x")
	env := h.Set(sym, h.NewIntegerFromInt64(1), NilPtr)

	again := h.NewSymbolFrom("x") // distinct cell, deep-equal to sym
	canonical, ok := h.Interned(again, env)
	require.True(t, ok)
	assert.Equal(t, sym, canonical, "Interned must return the exact cell stored as the key, not the lookup key")
}

func TestEnvironment_InternOnlyAddsWhenAbsent(t *testing.T) {
	h := newTestHeap()
	sym := h.NewSymbolFrom("x")
	env := h.Set(sym, h.NewIntegerFromInt64(99), NilPtr)

	env2 := h.Intern(sym, env)
	assert.Equal(t, env, env2, "interning an already-bound key must return the same environment unchanged")

	v, ok := h.Assoc(sym, env2)
	require.True(t, ok)
	assert.Equal(t, "99", h.IntegerToString(v), "Intern must not clobber an existing binding")
}

func TestEnvironment_DeepBindMutatesHostVariableOnly(t *testing.T) {
	h := newTestHeap()
	sym := h.NewSymbolFrom("x")
	oblist := NilPtr
	h.DeepBind(&oblist, sym, h.NewIntegerFromInt64(7))

	v, ok := h.Assoc(sym, oblist)
	require.True(t, ok)
	assert.Equal(t, "7", h.IntegerToString(v))
}

func TestEnvironment_HashMapEnvironmentAssocAndSet(t *testing.T) {
	h := newTestHeap()
	env := h.NewHashMap()
	sym := h.NewSymbolFrom("x")
	env2 := h.Set(sym, h.NewIntegerFromInt64(5), env)

	v, ok := h.Assoc(sym, env2)
	require.True(t, ok)
	assert.Equal(t, "5", h.IntegerToString(v))

	_, stillThere := h.Assoc(sym, env)
	assert.False(t, stillThere, "a hashmap environment's Set must return a new map, not mutate the old one")
}
