package validate

import "github.com/mavity/binaryen-fork/internal/ir"

// opType pairs an operator's operand type(s) with its result type. Every
// UnaryOp/BinaryOp variant is width- and type-specific by construction (see
// ir.UnaryOp's and ir.BinaryOp's doc comments), so these tables are a direct, total mapping rather
// than a heuristic.
type opType struct {
	operand ir.ValueType
	result  ir.ValueType
}

var unaryTypes = map[ir.UnaryOp]opType{
	ir.EqzI32:    {ir.ValueTypeI32, ir.ValueTypeI32},
	ir.ClzI32:    {ir.ValueTypeI32, ir.ValueTypeI32},
	ir.CtzI32:    {ir.ValueTypeI32, ir.ValueTypeI32},
	ir.PopcntI32: {ir.ValueTypeI32, ir.ValueTypeI32},
	ir.EqzI64:    {ir.ValueTypeI64, ir.ValueTypeI32},
	ir.ClzI64:    {ir.ValueTypeI64, ir.ValueTypeI64},
	ir.CtzI64:    {ir.ValueTypeI64, ir.ValueTypeI64},
	ir.PopcntI64: {ir.ValueTypeI64, ir.ValueTypeI64},

	ir.AbsF32:     {ir.ValueTypeF32, ir.ValueTypeF32},
	ir.NegF32:     {ir.ValueTypeF32, ir.ValueTypeF32},
	ir.CeilF32:    {ir.ValueTypeF32, ir.ValueTypeF32},
	ir.FloorF32:   {ir.ValueTypeF32, ir.ValueTypeF32},
	ir.TruncF32:   {ir.ValueTypeF32, ir.ValueTypeF32},
	ir.NearestF32: {ir.ValueTypeF32, ir.ValueTypeF32},
	ir.SqrtF32:    {ir.ValueTypeF32, ir.ValueTypeF32},
	ir.AbsF64:     {ir.ValueTypeF64, ir.ValueTypeF64},
	ir.NegF64:     {ir.ValueTypeF64, ir.ValueTypeF64},
	ir.CeilF64:    {ir.ValueTypeF64, ir.ValueTypeF64},
	ir.FloorF64:   {ir.ValueTypeF64, ir.ValueTypeF64},
	ir.TruncF64:   {ir.ValueTypeF64, ir.ValueTypeF64},
	ir.NearestF64: {ir.ValueTypeF64, ir.ValueTypeF64},
	ir.SqrtF64:    {ir.ValueTypeF64, ir.ValueTypeF64},

	ir.WrapI64ToI32:    {ir.ValueTypeI64, ir.ValueTypeI32},
	ir.TruncF32SToI32:  {ir.ValueTypeF32, ir.ValueTypeI32},
	ir.TruncF32UToI32:  {ir.ValueTypeF32, ir.ValueTypeI32},
	ir.TruncF64SToI32:  {ir.ValueTypeF64, ir.ValueTypeI32},
	ir.TruncF64UToI32:  {ir.ValueTypeF64, ir.ValueTypeI32},
	ir.ExtendI32SToI64: {ir.ValueTypeI32, ir.ValueTypeI64},
	ir.ExtendI32UToI64: {ir.ValueTypeI32, ir.ValueTypeI64},
	ir.TruncF32SToI64:  {ir.ValueTypeF32, ir.ValueTypeI64},
	ir.TruncF32UToI64:  {ir.ValueTypeF32, ir.ValueTypeI64},
	ir.TruncF64SToI64:  {ir.ValueTypeF64, ir.ValueTypeI64},
	ir.TruncF64UToI64:  {ir.ValueTypeF64, ir.ValueTypeI64},

	ir.ConvertI32SToF32: {ir.ValueTypeI32, ir.ValueTypeF32},
	ir.ConvertI32UToF32: {ir.ValueTypeI32, ir.ValueTypeF32},
	ir.ConvertI64SToF32: {ir.ValueTypeI64, ir.ValueTypeF32},
	ir.ConvertI64UToF32: {ir.ValueTypeI64, ir.ValueTypeF32},
	ir.DemoteF64ToF32:   {ir.ValueTypeF64, ir.ValueTypeF32},
	ir.ConvertI32SToF64: {ir.ValueTypeI32, ir.ValueTypeF64},
	ir.ConvertI32UToF64: {ir.ValueTypeI32, ir.ValueTypeF64},
	ir.ConvertI64SToF64: {ir.ValueTypeI64, ir.ValueTypeF64},
	ir.ConvertI64UToF64: {ir.ValueTypeI64, ir.ValueTypeF64},
	ir.PromoteF32ToF64:  {ir.ValueTypeF32, ir.ValueTypeF64},

	ir.ReinterpretF32ToI32: {ir.ValueTypeF32, ir.ValueTypeI32},
	ir.ReinterpretI32ToF32: {ir.ValueTypeI32, ir.ValueTypeF32},
	ir.ReinterpretF64ToI64: {ir.ValueTypeF64, ir.ValueTypeI64},
	ir.ReinterpretI64ToF64: {ir.ValueTypeI64, ir.ValueTypeF64},

	ir.Extend8SI32:  {ir.ValueTypeI32, ir.ValueTypeI32},
	ir.Extend16SI32: {ir.ValueTypeI32, ir.ValueTypeI32},
	ir.Extend8SI64:  {ir.ValueTypeI64, ir.ValueTypeI64},
	ir.Extend16SI64: {ir.ValueTypeI64, ir.ValueTypeI64},
	ir.Extend32SI64: {ir.ValueTypeI64, ir.ValueTypeI64},
}

var binaryTypes = map[ir.BinaryOp]opType{}

func init() {
	i32ops := []ir.BinaryOp{
		ir.AddI32, ir.SubI32, ir.MulI32, ir.DivSI32, ir.DivUI32, ir.RemSI32, ir.RemUI32,
		ir.AndI32, ir.OrI32, ir.XorI32, ir.ShlI32, ir.ShrSI32, ir.ShrUI32, ir.RotlI32, ir.RotrI32,
	}
	for _, op := range i32ops {
		binaryTypes[op] = opType{ir.ValueTypeI32, ir.ValueTypeI32}
	}
	i32cmp := []ir.BinaryOp{
		ir.EqI32, ir.NeI32, ir.LtSI32, ir.LtUI32, ir.GtSI32, ir.GtUI32, ir.LeSI32, ir.LeUI32, ir.GeSI32, ir.GeUI32,
	}
	for _, op := range i32cmp {
		binaryTypes[op] = opType{ir.ValueTypeI32, ir.ValueTypeI32}
	}

	i64ops := []ir.BinaryOp{
		ir.AddI64, ir.SubI64, ir.MulI64, ir.DivSI64, ir.DivUI64, ir.RemSI64, ir.RemUI64,
		ir.AndI64, ir.OrI64, ir.XorI64, ir.ShlI64, ir.ShrSI64, ir.ShrUI64, ir.RotlI64, ir.RotrI64,
	}
	for _, op := range i64ops {
		binaryTypes[op] = opType{ir.ValueTypeI64, ir.ValueTypeI64}
	}
	i64cmp := []ir.BinaryOp{
		ir.EqI64, ir.NeI64, ir.LtSI64, ir.LtUI64, ir.GtSI64, ir.GtUI64, ir.LeSI64, ir.LeUI64, ir.GeSI64, ir.GeUI64,
	}
	for _, op := range i64cmp {
		binaryTypes[op] = opType{ir.ValueTypeI64, ir.ValueTypeI32}
	}

	f32ops := []ir.BinaryOp{ir.AddF32, ir.SubF32, ir.MulF32, ir.DivF32, ir.MinF32, ir.MaxF32, ir.CopysignF32}
	for _, op := range f32ops {
		binaryTypes[op] = opType{ir.ValueTypeF32, ir.ValueTypeF32}
	}
	f32cmp := []ir.BinaryOp{ir.EqF32, ir.NeF32, ir.LtF32, ir.GtF32, ir.LeF32, ir.GeF32}
	for _, op := range f32cmp {
		binaryTypes[op] = opType{ir.ValueTypeF32, ir.ValueTypeI32}
	}

	f64ops := []ir.BinaryOp{ir.AddF64, ir.SubF64, ir.MulF64, ir.DivF64, ir.MinF64, ir.MaxF64, ir.CopysignF64}
	for _, op := range f64ops {
		binaryTypes[op] = opType{ir.ValueTypeF64, ir.ValueTypeF64}
	}
	f64cmp := []ir.BinaryOp{ir.EqF64, ir.NeF64, ir.LtF64, ir.GtF64, ir.LeF64, ir.GeF64}
	for _, op := range f64cmp {
		binaryTypes[op] = opType{ir.ValueTypeF64, ir.ValueTypeI32}
	}
}
