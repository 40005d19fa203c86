package binary

import "github.com/mavity/binaryen-fork/internal/ir"

type loadInfo struct {
	access ir.MemAccessKind
	result ir.ValueType
}

var loadOps = map[byte]loadInfo{
	OpI32Load:    {ir.AccessI32, ir.ValueTypeI32},
	OpI64Load:    {ir.AccessI64, ir.ValueTypeI64},
	OpF32Load:    {ir.AccessF32, ir.ValueTypeF32},
	OpF64Load:    {ir.AccessF64, ir.ValueTypeF64},
	OpI32Load8S:  {ir.AccessI32_8S, ir.ValueTypeI32},
	OpI32Load8U:  {ir.AccessI32_8U, ir.ValueTypeI32},
	OpI32Load16S: {ir.AccessI32_16S, ir.ValueTypeI32},
	OpI32Load16U: {ir.AccessI32_16U, ir.ValueTypeI32},
	OpI64Load8S:  {ir.AccessI64_8S, ir.ValueTypeI64},
	OpI64Load8U:  {ir.AccessI64_8U, ir.ValueTypeI64},
	OpI64Load16S: {ir.AccessI64_16S, ir.ValueTypeI64},
	OpI64Load16U: {ir.AccessI64_16U, ir.ValueTypeI64},
	OpI64Load32S: {ir.AccessI64_32S, ir.ValueTypeI64},
	OpI64Load32U: {ir.AccessI64_32U, ir.ValueTypeI64},
}

// storeOps reuses the load side's unsigned/width-tagged MemAccessKind
// variants to identify width for stores too; signedness is meaningless for a
// store and is ignored by every consumer.
var storeOps = map[byte]ir.MemAccessKind{
	OpI32Store:   ir.AccessI32,
	OpI64Store:   ir.AccessI64,
	OpF32Store:   ir.AccessF32,
	OpF64Store:   ir.AccessF64,
	OpI32Store8:  ir.AccessI32_8U,
	OpI32Store16: ir.AccessI32_16U,
	OpI64Store8:  ir.AccessI64_8U,
	OpI64Store16: ir.AccessI64_16U,
	OpI64Store32: ir.AccessI64_32U,
}

type unaryInfo struct {
	op     ir.UnaryOp
	result ir.ValueType
}

var unaryOps = map[byte]unaryInfo{
	OpI32Eqz:    {ir.EqzI32, ir.ValueTypeI32},
	OpI32Clz:    {ir.ClzI32, ir.ValueTypeI32},
	OpI32Ctz:    {ir.CtzI32, ir.ValueTypeI32},
	OpI32Popcnt: {ir.PopcntI32, ir.ValueTypeI32},
	OpI64Eqz:    {ir.EqzI64, ir.ValueTypeI32},
	OpI64Clz:    {ir.ClzI64, ir.ValueTypeI64},
	OpI64Ctz:    {ir.CtzI64, ir.ValueTypeI64},
	OpI64Popcnt: {ir.PopcntI64, ir.ValueTypeI64},

	OpF32Abs:     {ir.AbsF32, ir.ValueTypeF32},
	OpF32Neg:     {ir.NegF32, ir.ValueTypeF32},
	OpF32Ceil:    {ir.CeilF32, ir.ValueTypeF32},
	OpF32Floor:   {ir.FloorF32, ir.ValueTypeF32},
	OpF32Trunc:   {ir.TruncF32, ir.ValueTypeF32},
	OpF32Nearest: {ir.NearestF32, ir.ValueTypeF32},
	OpF32Sqrt:    {ir.SqrtF32, ir.ValueTypeF32},
	OpF64Abs:     {ir.AbsF64, ir.ValueTypeF64},
	OpF64Neg:     {ir.NegF64, ir.ValueTypeF64},
	OpF64Ceil:    {ir.CeilF64, ir.ValueTypeF64},
	OpF64Floor:   {ir.FloorF64, ir.ValueTypeF64},
	OpF64Trunc:   {ir.TruncF64, ir.ValueTypeF64},
	OpF64Nearest: {ir.NearestF64, ir.ValueTypeF64},
	OpF64Sqrt:    {ir.SqrtF64, ir.ValueTypeF64},

	OpI32WrapI64:        {ir.WrapI64ToI32, ir.ValueTypeI32},
	OpI32TruncF32S:      {ir.TruncF32SToI32, ir.ValueTypeI32},
	OpI32TruncF32U:      {ir.TruncF32UToI32, ir.ValueTypeI32},
	OpI32TruncF64S:      {ir.TruncF64SToI32, ir.ValueTypeI32},
	OpI32TruncF64U:      {ir.TruncF64UToI32, ir.ValueTypeI32},
	OpI64ExtendI32S:     {ir.ExtendI32SToI64, ir.ValueTypeI64},
	OpI64ExtendI32U:     {ir.ExtendI32UToI64, ir.ValueTypeI64},
	OpI64TruncF32S:      {ir.TruncF32SToI64, ir.ValueTypeI64},
	OpI64TruncF32U:      {ir.TruncF32UToI64, ir.ValueTypeI64},
	OpI64TruncF64S:      {ir.TruncF64SToI64, ir.ValueTypeI64},
	OpI64TruncF64U:      {ir.TruncF64UToI64, ir.ValueTypeI64},
	OpF32ConvertI32S:    {ir.ConvertI32SToF32, ir.ValueTypeF32},
	OpF32ConvertI32U:    {ir.ConvertI32UToF32, ir.ValueTypeF32},
	OpF32ConvertI64S:    {ir.ConvertI64SToF32, ir.ValueTypeF32},
	OpF32ConvertI64U:    {ir.ConvertI64UToF32, ir.ValueTypeF32},
	OpF32DemoteF64:      {ir.DemoteF64ToF32, ir.ValueTypeF32},
	OpF64ConvertI32S:    {ir.ConvertI32SToF64, ir.ValueTypeF64},
	OpF64ConvertI32U:    {ir.ConvertI32UToF64, ir.ValueTypeF64},
	OpF64ConvertI64S:    {ir.ConvertI64SToF64, ir.ValueTypeF64},
	OpF64ConvertI64U:    {ir.ConvertI64UToF64, ir.ValueTypeF64},
	OpF64PromoteF32:     {ir.PromoteF32ToF64, ir.ValueTypeF64},
	OpI32ReinterpretF32: {ir.ReinterpretF32ToI32, ir.ValueTypeI32},
	OpI64ReinterpretF64: {ir.ReinterpretF64ToI64, ir.ValueTypeI64},
	OpF32ReinterpretI32: {ir.ReinterpretI32ToF32, ir.ValueTypeF32},
	OpF64ReinterpretI64: {ir.ReinterpretI64ToF64, ir.ValueTypeF64},

	OpI32Extend8S:  {ir.Extend8SI32, ir.ValueTypeI32},
	OpI32Extend16S: {ir.Extend16SI32, ir.ValueTypeI32},
	OpI64Extend8S:  {ir.Extend8SI64, ir.ValueTypeI64},
	OpI64Extend16S: {ir.Extend16SI64, ir.ValueTypeI64},
	OpI64Extend32S: {ir.Extend32SI64, ir.ValueTypeI64},
}

type binaryInfo struct {
	op     ir.BinaryOp
	result ir.ValueType
}

var binaryOps = map[byte]binaryInfo{
	OpI32Add:  {ir.AddI32, ir.ValueTypeI32},
	OpI32Sub:  {ir.SubI32, ir.ValueTypeI32},
	OpI32Mul:  {ir.MulI32, ir.ValueTypeI32},
	OpI32DivS: {ir.DivSI32, ir.ValueTypeI32},
	OpI32DivU: {ir.DivUI32, ir.ValueTypeI32},
	OpI32RemS: {ir.RemSI32, ir.ValueTypeI32},
	OpI32RemU: {ir.RemUI32, ir.ValueTypeI32},
	OpI32And:  {ir.AndI32, ir.ValueTypeI32},
	OpI32Or:   {ir.OrI32, ir.ValueTypeI32},
	OpI32Xor:  {ir.XorI32, ir.ValueTypeI32},
	OpI32Shl:  {ir.ShlI32, ir.ValueTypeI32},
	OpI32ShrS: {ir.ShrSI32, ir.ValueTypeI32},
	OpI32ShrU: {ir.ShrUI32, ir.ValueTypeI32},
	OpI32Rotl: {ir.RotlI32, ir.ValueTypeI32},
	OpI32Rotr: {ir.RotrI32, ir.ValueTypeI32},
	OpI32Eq:   {ir.EqI32, ir.ValueTypeI32},
	OpI32Ne:   {ir.NeI32, ir.ValueTypeI32},
	OpI32LtS:  {ir.LtSI32, ir.ValueTypeI32},
	OpI32LtU:  {ir.LtUI32, ir.ValueTypeI32},
	OpI32GtS:  {ir.GtSI32, ir.ValueTypeI32},
	OpI32GtU:  {ir.GtUI32, ir.ValueTypeI32},
	OpI32LeS:  {ir.LeSI32, ir.ValueTypeI32},
	OpI32LeU:  {ir.LeUI32, ir.ValueTypeI32},
	OpI32GeS:  {ir.GeSI32, ir.ValueTypeI32},
	OpI32GeU:  {ir.GeUI32, ir.ValueTypeI32},

	OpI64Add:  {ir.AddI64, ir.ValueTypeI64},
	OpI64Sub:  {ir.SubI64, ir.ValueTypeI64},
	OpI64Mul:  {ir.MulI64, ir.ValueTypeI64},
	OpI64DivS: {ir.DivSI64, ir.ValueTypeI64},
	OpI64DivU: {ir.DivUI64, ir.ValueTypeI64},
	OpI64RemS: {ir.RemSI64, ir.ValueTypeI64},
	OpI64RemU: {ir.RemUI64, ir.ValueTypeI64},
	OpI64And:  {ir.AndI64, ir.ValueTypeI64},
	OpI64Or:   {ir.OrI64, ir.ValueTypeI64},
	OpI64Xor:  {ir.XorI64, ir.ValueTypeI64},
	OpI64Shl:  {ir.ShlI64, ir.ValueTypeI64},
	OpI64ShrS: {ir.ShrSI64, ir.ValueTypeI64},
	OpI64ShrU: {ir.ShrUI64, ir.ValueTypeI64},
	OpI64Rotl: {ir.RotlI64, ir.ValueTypeI64},
	OpI64Rotr: {ir.RotrI64, ir.ValueTypeI64},
	OpI64Eq:   {ir.EqI64, ir.ValueTypeI32},
	OpI64Ne:   {ir.NeI64, ir.ValueTypeI32},
	OpI64LtS:  {ir.LtSI64, ir.ValueTypeI32},
	OpI64LtU:  {ir.LtUI64, ir.ValueTypeI32},
	OpI64GtS:  {ir.GtSI64, ir.ValueTypeI32},
	OpI64GtU:  {ir.GtUI64, ir.ValueTypeI32},
	OpI64LeS:  {ir.LeSI64, ir.ValueTypeI32},
	OpI64LeU:  {ir.LeUI64, ir.ValueTypeI32},
	OpI64GeS:  {ir.GeSI64, ir.ValueTypeI32},
	OpI64GeU:  {ir.GeUI64, ir.ValueTypeI32},

	OpF32Add:      {ir.AddF32, ir.ValueTypeF32},
	OpF32Sub:      {ir.SubF32, ir.ValueTypeF32},
	OpF32Mul:      {ir.MulF32, ir.ValueTypeF32},
	OpF32Div:      {ir.DivF32, ir.ValueTypeF32},
	OpF32Min:      {ir.MinF32, ir.ValueTypeF32},
	OpF32Max:      {ir.MaxF32, ir.ValueTypeF32},
	OpF32Copysign: {ir.CopysignF32, ir.ValueTypeF32},
	OpF32Eq:       {ir.EqF32, ir.ValueTypeI32},
	OpF32Ne:       {ir.NeF32, ir.ValueTypeI32},
	OpF32Lt:       {ir.LtF32, ir.ValueTypeI32},
	OpF32Gt:       {ir.GtF32, ir.ValueTypeI32},
	OpF32Le:       {ir.LeF32, ir.ValueTypeI32},
	OpF32Ge:       {ir.GeF32, ir.ValueTypeI32},

	OpF64Add:      {ir.AddF64, ir.ValueTypeF64},
	OpF64Sub:      {ir.SubF64, ir.ValueTypeF64},
	OpF64Mul:      {ir.MulF64, ir.ValueTypeF64},
	OpF64Div:      {ir.DivF64, ir.ValueTypeF64},
	OpF64Min:      {ir.MinF64, ir.ValueTypeF64},
	OpF64Max:      {ir.MaxF64, ir.ValueTypeF64},
	OpF64Copysign: {ir.CopysignF64, ir.ValueTypeF64},
	OpF64Eq:       {ir.EqF64, ir.ValueTypeI32},
	OpF64Ne:       {ir.NeF64, ir.ValueTypeI32},
	OpF64Lt:       {ir.LtF64, ir.ValueTypeI32},
	OpF64Gt:       {ir.GtF64, ir.ValueTypeI32},
	OpF64Le:       {ir.LeF64, ir.ValueTypeI32},
	OpF64Ge:       {ir.GeF64, ir.ValueTypeI32},
}

// reverse lookup tables, built once, used by the writer.
var opcodeForUnary = func() map[ir.UnaryOp]byte {
	m := make(map[ir.UnaryOp]byte, len(unaryOps))
	for op, info := range unaryOps {
		m[info.op] = op
	}
	return m
}()

var opcodeForBinary = func() map[ir.BinaryOp]byte {
	m := make(map[ir.BinaryOp]byte, len(binaryOps))
	for op, info := range binaryOps {
		m[info.op] = op
	}
	return m
}()

var opcodeForLoad = func() map[ir.MemAccessKind]byte {
	m := make(map[ir.MemAccessKind]byte, len(loadOps))
	for op, info := range loadOps {
		m[info.access] = op
	}
	return m
}()

var opcodeForStore = func() map[ir.MemAccessKind]byte {
	m := make(map[ir.MemAccessKind]byte, len(storeOps))
	for op, access := range storeOps {
		m[access] = op
	}
	return m
}()
