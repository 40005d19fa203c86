package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mavity/binaryen-fork/internal/binary"
	"github.com/mavity/binaryen-fork/internal/ir"
)

// buildAddOneModule mirrors internal/binary's own fixture: a single exported
// function "add_one" of type (i32) -> i32 returning local 0 plus a constant.
func buildAddOneModule(t *testing.T) []byte {
	t.Helper()
	m := ir.NewModule(ir.NewTypeStore())
	sig := m.Types.InternSignature([]ir.ValueType{ir.ValueTypeI32}, []ir.ValueType{ir.ValueTypeI32})

	one := m.Arena.Alloc(ir.Expr{Kind: ir.KindConst, Type: ir.BasicHandle(ir.ValueTypeI32), Lit: ir.Literal{I32: 1}})
	local0 := m.Arena.Alloc(ir.Expr{Kind: ir.KindLocalGet, Type: ir.BasicHandle(ir.ValueTypeI32), VarIndex: 0})
	add := m.Arena.Alloc(ir.Expr{Kind: ir.KindBinary, Type: ir.BasicHandle(ir.ValueTypeI32), BinaryOp: ir.AddI32, A: local0, B: one})
	body := m.Arena.Alloc(ir.Expr{Kind: ir.KindBlock, Label: -1, Type: ir.BasicHandle(ir.ValueTypeI32), Children: []ir.Handle{add}})

	f := &ir.Function{Sig: sig, Body: body, ImportIdx: -1}
	m.Functions = append(m.Functions, f)
	m.Exports = append(m.Exports, &ir.Export{Name: "add_one", Kind: ir.ExternFunc, Index: 0})

	encoded, err := binary.EncodeModule(m)
	require.NoError(t, err)
	return encoded
}

func TestDoMainOptimizesAndWritesOutput(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.wasm")
	out := filepath.Join(dir, "out.wasm")
	require.NoError(t, os.WriteFile(in, buildAddOneModule(t), 0o644))

	var stdout, stderr bytes.Buffer
	code := doMain(&stdout, &stderr, []string{"-O", "O1", "-o", out, in})
	require.Equal(t, 0, code, "stderr: %s", stderr.String())

	outBytes, err := os.ReadFile(out)
	require.NoError(t, err)
	decoded, err := binary.DecodeModule(outBytes)
	require.NoError(t, err)
	require.Len(t, decoded.Functions, 1)
}

func TestDoMainFailsWithoutOutputPath(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.wasm")
	require.NoError(t, os.WriteFile(in, buildAddOneModule(t), 0o644))

	var stdout, stderr bytes.Buffer
	code := doMain(&stdout, &stderr, []string{in})
	require.NotEqual(t, 0, code)
}

func TestDoMainFailsOnMissingInputFile(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.wasm")

	var stdout, stderr bytes.Buffer
	code := doMain(&stdout, &stderr, []string{"-o", out, filepath.Join(dir, "nope.wasm")})
	require.NotEqual(t, 0, code)
}

func TestDoMainListsBundles(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := doMain(&stdout, &stderr, []string{"-list-bundles"})
	require.Equal(t, 0, code)
	require.Contains(t, stdout.String(), "O1")
}

func TestDoMainRejectsUnknownPassName(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.wasm")
	out := filepath.Join(dir, "out.wasm")
	require.NoError(t, os.WriteFile(in, buildAddOneModule(t), 0o644))

	var stdout, stderr bytes.Buffer
	code := doMain(&stdout, &stderr, []string{"-O", "O0", "-pass", "not-a-real-pass", "-o", out, in})
	require.NotEqual(t, 0, code)
}
