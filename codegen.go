package mindbend

import (
	"fmt"

	"github.com/golang/glog"
	"github.com/google/uuid"
	llvm "tinygo.org/x/go-llvm"
)

const userDefinedLabelPrefix = "user_defined_label"
const endInFailBlockName = "end_main_fail"

// runtimeFuncs collects the externs and the shared runtime-check routines
// emitted once per module (spec §4.3.2): PAR, SUR, DGR, FVR, ELVR and CAR,
// plus the two libc functions the generated program drives bit by bit.
type runtimeFuncs struct {
	putchar llvm.Value
	getchar llvm.Value

	primitiveAccessRoutine   llvm.Value
	stateUpdateRoutine       llvm.Value
	drillGateRoutine         llvm.Value
	funcValidationRoutine    llvm.Value
	exprLifeValidationRoutine llvm.Value
	cellAccessRoutine        llvm.Value
}

// machineState is the set of function-local allocas backing the runtime
// machine model (spec §4.2, §6): the 15-cell bank, its TTL shadow table,
// and the region/gate/TTSO registers.
type machineState struct {
	currGatesStatePtr llvm.Value
	gatesTTSOPtr      llvm.Value
	currRegionPtr     llvm.Value
	cellsPtr          llvm.Value
	ttlTablePtr       llvm.Value
}

// CodeGen lowers an Organism AST into an LLVM module (spec §4.3). One
// CodeGen is good for a single Code() call; build a fresh one per compile.
type CodeGen struct {
	org    *Organism
	labels []string

	ctx     llvm.Context
	module  llvm.Module
	builder llvm.Builder

	i8   llvm.Type
	i32  llvm.Type
	void llvm.Type
}

// NewCodeGen returns a CodeGen ready to lower org. The module name is
// namespaced with a random id so that two in-process compiles never
// collide inside the same LLVM context pool.
func NewCodeGen(org *Organism, labels []string) *CodeGen {
	ctx := llvm.NewContext()
	name := fmt.Sprintf("mindbend-%s", uuid.NewString())
	return &CodeGen{
		org:     org,
		labels:  labels,
		ctx:     ctx,
		module:  ctx.NewModule(name),
		builder: ctx.NewBuilder(),
		i8:      ctx.Int8Type(),
		i32:     ctx.Int32Type(),
		void:    ctx.VoidType(),
	}
}

// Dispose releases the LLVM context backing c. Call it once the module
// returned by Module has been fully consumed (object emission complete).
func (c *CodeGen) Dispose() {
	c.builder.Dispose()
	c.ctx.Dispose()
}

// Module returns the LLVM module being built. Only meaningful after Code.
func (c *CodeGen) Module() llvm.Module { return c.module }

func (c *CodeGen) constI32(n int64) llvm.Value { return llvm.ConstInt(c.i32, uint64(n), true) }
func (c *CodeGen) constI8(n int64) llvm.Value  { return llvm.ConstInt(c.i8, uint64(n), true) }

func (c *CodeGen) i8ptr() llvm.Type  { return llvm.PointerType(c.i8, 0) }
func (c *CodeGen) i32ptr() llvm.Type { return llvm.PointerType(c.i32, 0) }

// getBasicBlock finds a basic block of fn by name; every block this
// compiler ever needs to jump back into (entry, end_main_fail, and every
// user-defined label) is created up front, so a linear scan here always
// succeeds.
func (c *CodeGen) getBasicBlock(fn llvm.Value, name string) llvm.BasicBlock {
	for _, bb := range fn.BasicBlocks() {
		if bb.AsValue().Name() == name {
			return bb
		}
	}
	panic("mindbend: missing basic block " + name)
}

// Code lowers the whole Organism list into main(), mirroring the generated
// program's runtime machine model end to end (spec §4.3).
func (c *CodeGen) Code() error {
	mainFn := c.initMainFn()
	mainBlock := c.ctx.AddBasicBlock(mainFn, "main")
	c.initUserDefinedBlocks(mainFn)
	ms := c.initMachineState(mainFn)
	fns := c.initRuntimeFuncs()
	c.builder.SetInsertPointAtEnd(mainBlock)

	for cur := c.org; cur != nil; cur = cur.Right {
		switch e := cur.Child.(type) {
		case *LeachExpr:
			c.codeLeachExpr(e, mainFn, ms, fns)
		case *CellExpr:
			c.codeLoneCellExpr(mainFn, ms, fns)
		case *PrimitiveExpr:
			c.codeLonePrimitiveExpr(mainFn, ms, fns)
		case *JumpExpr:
			c.codeJump(e, mainFn, ms, fns)
		case *DrillExpr:
			c.codeDrillExpr(mainFn, ms, fns)
		case *RegionExpr:
			c.codeRegionExpr(e, ms, fns)
		case *LabelExpr:
			c.codeLabel(e, mainFn)
		case *DummyExpr:
			// A splice hole with nothing after it; nothing to lower.
		default:
			return fmt.Errorf("mindbend: codegen hit an unhandled organism node %T", e)
		}
	}
	c.codeEndMain(mainFn)
	glog.V(1).Infof("mindbend: codegen emitted main with %d user-defined label(s)", len(c.labels))
	return nil
}

func (c *CodeGen) initMainFn() llvm.Value {
	fnType := llvm.FunctionType(c.i32, nil, false)
	mainFn := llvm.AddFunction(c.module, "main", fnType)
	c.ctx.AddBasicBlock(mainFn, "entry")
	c.ctx.AddBasicBlock(mainFn, endInFailBlockName)
	return mainFn
}

func (c *CodeGen) initUserDefinedBlocks(mainFn llvm.Value) {
	for _, label := range c.labels {
		c.ctx.AddBasicBlock(mainFn, userDefinedLabelPrefix+label)
	}
}

// initMachineState allocates and initializes the machine model in
// main's entry block (spec §4.2, §6): cells start at -1 (dead), the TTL
// table starts at 0, and the region/gate/TTSO registers start closed.
func (c *CodeGen) initMachineState(mainFn llvm.Value) *machineState {
	entry := c.getBasicBlock(mainFn, "entry")
	mainBlock := c.getBasicBlock(mainFn, "main")
	c.builder.SetInsertPointAtEnd(entry)

	currGatesStatePtr := c.builder.CreateAlloca(c.i8, "curr_gates_state")
	gatesTTSOPtr := c.builder.CreateAlloca(c.i8, "gates_ttso")
	currRegionPtr := c.builder.CreateAlloca(c.i8, "curr_region")
	cellsPtr := c.builder.CreateArrayAlloca(c.i32, c.constI32(15), "cells")
	ttlTablePtr := c.builder.CreateArrayAlloca(c.i8, c.constI8(15), "TTL_table")

	c.builder.CreateStore(c.constI8(0), currGatesStatePtr)
	c.builder.CreateStore(c.constI8(0), gatesTTSOPtr)
	c.builder.CreateStore(c.constI8(0), currRegionPtr)

	for i := int64(0); i < 15; i++ {
		loc := c.builder.CreateInBoundsGEP(cellsPtr, []llvm.Value{c.constI32(i)}, "cell_location")
		c.builder.CreateStore(c.constI32(-1), loc)
	}
	for i := int64(0); i < 15; i++ {
		loc := c.builder.CreateInBoundsGEP(ttlTablePtr, []llvm.Value{c.constI8(i)}, "ttl_table_cell_location")
		c.builder.CreateStore(c.constI8(0), loc)
	}
	c.builder.CreateBr(mainBlock)

	return &machineState{
		currGatesStatePtr: currGatesStatePtr,
		gatesTTSOPtr:      gatesTTSOPtr,
		currRegionPtr:     currRegionPtr,
		cellsPtr:          cellsPtr,
		ttlTablePtr:       ttlTablePtr,
	}
}

func (c *CodeGen) initRuntimeFuncs() *runtimeFuncs {
	putcharType := llvm.FunctionType(c.i32, []llvm.Type{c.i32}, false)
	putchar := c.module.AddFunction("putchar", putcharType)
	getcharType := llvm.FunctionType(c.i32, nil, false)
	getchar := c.module.AddFunction("getchar", getcharType)

	fns := &runtimeFuncs{putchar: putchar, getchar: getchar}
	fns.primitiveAccessRoutine = c.codePrimitiveAccessRoutine(putchar)
	fns.stateUpdateRoutine = c.codeStateUpdateRoutine()
	fns.drillGateRoutine = c.codeDrillGateRoutine(putchar)
	fns.funcValidationRoutine = c.codeFunctionValidationRoutine(putchar)
	fns.exprLifeValidationRoutine = c.codeExprLifeValidationRoutine()
	fns.cellAccessRoutine = c.codeCellAccessRoutine()
	return fns
}

func (c *CodeGen) codeEndMain(mainFn llvm.Value) {
	endMainSuccess := c.ctx.AddBasicBlock(mainFn, "end_main_success")
	c.builder.CreateBr(endMainSuccess)
	c.builder.SetInsertPointAtEnd(endMainSuccess)
	c.builder.CreateRet(c.constI32(0))

	endInFail := c.getBasicBlock(mainFn, endInFailBlockName)
	c.builder.SetInsertPointAtEnd(endInFail)
	c.builder.CreateRet(c.constI32(1))
}

// codePrint emits a putchar call per rune of msg (spec §7): the generated
// program has no libc string support, so a runtime diagnostic is printed
// one character at a time, exactly like the value-printing primitive does.
func (c *CodeGen) codePrint(putchar llvm.Value, msg string) {
	for _, r := range msg {
		c.builder.CreateCall(putchar, []llvm.Value{c.constI32(int64(r))}, "printerror")
	}
}

// codePrimitiveAccessRoutine builds PAR (spec §4.3.2): a primitive may
// only be read when the current region is Layers and all three drill
// gates are open.
func (c *CodeGen) codePrimitiveAccessRoutine(putchar llvm.Value) llvm.Value {
	fnType := llvm.FunctionType(c.i32, []llvm.Type{c.i8ptr(), c.i8ptr()}, false)
	fn := c.module.AddFunction("primitive_access_routine", fnType)
	currRegionPtr := fn.Param(0)
	currGateStatePtr := fn.Param(1)

	entry := c.ctx.AddBasicBlock(fn, "entry_block")
	regionIsLayers := c.ctx.AddBasicBlock(fn, "curr_region_is_layers_block")
	succeeded := c.ctx.AddBasicBlock(fn, "access_succeeded_block")
	failedRegion := c.ctx.AddBasicBlock(fn, "access_failed_region_not_layers_block")
	failedGates := c.ctx.AddBasicBlock(fn, "access_failed_gates_not_open_block")

	c.builder.SetInsertPointAtEnd(entry)
	region := c.builder.CreateLoad(currRegionPtr, "curr_region")
	isLayers := c.builder.CreateICmp(llvm.IntEQ, region, c.constI8(1), "curr_region_is_layers")
	c.builder.CreateCondBr(isLayers, regionIsLayers, failedRegion)

	c.builder.SetInsertPointAtEnd(regionIsLayers)
	gateState := c.builder.CreateLoad(currGateStatePtr, "curr_gate_state")
	gatesOpen := c.builder.CreateICmp(llvm.IntEQ, gateState, c.constI8(3), "gates_fully_open")
	c.builder.CreateCondBr(gatesOpen, succeeded, failedGates)

	c.builder.SetInsertPointAtEnd(succeeded)
	c.builder.CreateRet(c.constI32(0))

	c.builder.SetInsertPointAtEnd(failedRegion)
	c.codePrint(putchar, runtimeMsgPrimitiveNotLayers)
	c.builder.CreateRet(c.constI32(1))

	c.builder.SetInsertPointAtEnd(failedGates)
	c.codePrint(putchar, runtimeMsgPrimitiveGatesNotOpen)
	c.builder.CreateRet(c.constI32(1))

	return fn
}

// codeStateUpdateRoutine builds SUR (spec §4.3.2): optionally decays the
// drill-gate TTSO (and resets the gate state once it expires), then always
// ages every live cell's TTL by one, killing (resetting to -1) any cell
// whose TTL just hit zero. The per-cell loop is unrolled at codegen time,
// one fixed-index GEP per cell, since the cell count is a closed constant.
func (c *CodeGen) codeStateUpdateRoutine() llvm.Value {
	fnType := llvm.FunctionType(c.void, []llvm.Type{c.i8ptr(), c.i8ptr(), c.i8ptr(), c.i8, c.i32ptr()}, false)
	fn := c.module.AddFunction("state_update_routine", fnType)
	ttsoPtr := fn.Param(0)
	gateStatePtr := fn.Param(1)
	ttlTablePtr := fn.Param(2)
	reduceTTSO := fn.Param(3)
	cellsPtr := fn.Param(4)

	entry := c.ctx.AddBasicBlock(fn, "entry_block")
	reduceBlock := c.ctx.AddBasicBlock(fn, "reduce_ttso_block")
	ttsoNonzero := c.ctx.AddBasicBlock(fn, "ttso_nonzero_block")
	ttsoExpired := c.ctx.AddBasicBlock(fn, "ttso_expired_block")
	ttlUpdate := c.ctx.AddBasicBlock(fn, "ttl_update_block")

	c.builder.SetInsertPointAtEnd(entry)
	shouldReduce := c.builder.CreateICmp(llvm.IntNE, reduceTTSO, c.constI8(0), "should_reduce_ttso")
	c.builder.CreateCondBr(shouldReduce, reduceBlock, ttlUpdate)

	c.builder.SetInsertPointAtEnd(reduceBlock)
	ttso := c.builder.CreateLoad(ttsoPtr, "ttso")
	ttsoIsZero := c.builder.CreateICmp(llvm.IntEQ, ttso, c.constI8(0), "ttso_is_zero")
	c.builder.CreateCondBr(ttsoIsZero, ttlUpdate, ttsoNonzero)

	c.builder.SetInsertPointAtEnd(ttsoNonzero)
	reduced := c.builder.CreateSub(ttso, c.constI8(1), "reduced_ttso")
	c.builder.CreateStore(reduced, ttsoPtr)
	reducedIsZero := c.builder.CreateICmp(llvm.IntEQ, reduced, c.constI8(0), "reduced_ttso_is_zero")
	c.builder.CreateCondBr(reducedIsZero, ttsoExpired, ttlUpdate)

	c.builder.SetInsertPointAtEnd(ttsoExpired)
	c.builder.CreateStore(c.constI8(0), gateStatePtr)
	c.builder.CreateBr(ttlUpdate)

	c.builder.SetInsertPointAtEnd(ttlUpdate)
	for i := int64(0); i < 15; i++ {
		ttlPtr := c.builder.CreateInBoundsGEP(ttlTablePtr, []llvm.Value{c.constI8(i)}, "ttl_cell_ptr")
		ttlVal := c.builder.CreateLoad(ttlPtr, "ttl_val")

		nonZeroBlock := c.ctx.AddBasicBlock(fn, fmt.Sprintf("ttl_nonzero_block_%d", i))
		nextBlock := c.ctx.AddBasicBlock(fn, fmt.Sprintf("ttl_next_block_%d", i))
		isNonZero := c.builder.CreateICmp(llvm.IntNE, ttlVal, c.constI8(0), "ttl_is_nonzero")
		c.builder.CreateCondBr(isNonZero, nonZeroBlock, nextBlock)

		c.builder.SetInsertPointAtEnd(nonZeroBlock)
		decremented := c.builder.CreateSub(ttlVal, c.constI8(1), "decremented_ttl")
		c.builder.CreateStore(decremented, ttlPtr)
		expireBlock := c.ctx.AddBasicBlock(fn, fmt.Sprintf("ttl_expire_cell_block_%d", i))
		expired := c.builder.CreateICmp(llvm.IntEQ, decremented, c.constI8(0), "ttl_expired")
		c.builder.CreateCondBr(expired, expireBlock, nextBlock)

		c.builder.SetInsertPointAtEnd(expireBlock)
		cellPtr := c.builder.CreateInBoundsGEP(cellsPtr, []llvm.Value{c.constI32(i)}, "expired_cell_ptr")
		c.builder.CreateStore(c.constI32(-1), cellPtr)
		c.builder.CreateBr(nextBlock)

		c.builder.SetInsertPointAtEnd(nextBlock)
	}
	c.builder.CreateRetVoid()
	return fn
}

// codeDrillGateRoutine builds DGR (spec §4.3.2): drilling only works in
// the Layers region; each call opens one more gate up to three, and
// opening the third sets the auto-close TTSO.
func (c *CodeGen) codeDrillGateRoutine(putchar llvm.Value) llvm.Value {
	fnType := llvm.FunctionType(c.i32, []llvm.Type{c.i8ptr(), c.i8ptr(), c.i8ptr()}, false)
	fn := c.module.AddFunction("drill_gate_routine", fnType)
	currRegionPtr := fn.Param(0)
	currGateStatePtr := fn.Param(1)
	ttsoPtr := fn.Param(2)

	entry := c.ctx.AddBasicBlock(fn, "entry_block")
	regionIsLayers := c.ctx.AddBasicBlock(fn, "region_is_layers_block")
	regionNotLayers := c.ctx.AddBasicBlock(fn, "region_not_layers_block")
	alreadyOpen := c.ctx.AddBasicBlock(fn, "gates_already_open_block")
	increment := c.ctx.AddBasicBlock(fn, "increment_gate_block")
	thirdGate := c.ctx.AddBasicBlock(fn, "third_gate_opened_block")
	end := c.ctx.AddBasicBlock(fn, "end_block")

	c.builder.SetInsertPointAtEnd(entry)
	region := c.builder.CreateLoad(currRegionPtr, "curr_region")
	isLayers := c.builder.CreateICmp(llvm.IntEQ, region, c.constI8(1), "curr_region_is_layers")
	c.builder.CreateCondBr(isLayers, regionIsLayers, regionNotLayers)

	c.builder.SetInsertPointAtEnd(regionNotLayers)
	c.codePrint(putchar, runtimeMsgDrillNotLayers)
	c.builder.CreateRet(c.constI32(1))

	c.builder.SetInsertPointAtEnd(regionIsLayers)
	gateState := c.builder.CreateLoad(currGateStatePtr, "curr_gate_state")
	isAlreadyOpen := c.builder.CreateICmp(llvm.IntEQ, gateState, c.constI8(3), "gates_already_fully_open")
	c.builder.CreateCondBr(isAlreadyOpen, alreadyOpen, increment)

	c.builder.SetInsertPointAtEnd(alreadyOpen)
	c.builder.CreateBr(end)

	c.builder.SetInsertPointAtEnd(increment)
	incremented := c.builder.CreateAdd(gateState, c.constI8(1), "incremented_gate_state")
	c.builder.CreateStore(incremented, currGateStatePtr)
	isThird := c.builder.CreateICmp(llvm.IntEQ, incremented, c.constI8(3), "gate_now_fully_open")
	c.builder.CreateCondBr(isThird, thirdGate, end)

	c.builder.SetInsertPointAtEnd(thirdGate)
	c.builder.CreateStore(c.constI8(5), ttsoPtr)
	c.builder.CreateBr(end)

	c.builder.SetInsertPointAtEnd(end)
	c.builder.CreateRet(c.constI32(0))

	return fn
}

// codeExprLifeValidationRoutine builds ELVR (spec §4.3.2): a cell is alive
// exactly when its TTL table entry is nonzero.
func (c *CodeGen) codeExprLifeValidationRoutine() llvm.Value {
	fnType := llvm.FunctionType(c.i32, []llvm.Type{c.i8ptr(), c.i8}, false)
	fn := c.module.AddFunction("expr_life_validation_routine", fnType)
	ttlPtr := fn.Param(0)
	cellNum := fn.Param(1)

	entry := c.ctx.AddBasicBlock(fn, "entry_block")
	deadBlock := c.ctx.AddBasicBlock(fn, "dead_block")
	aliveBlock := c.ctx.AddBasicBlock(fn, "alive_block")

	c.builder.SetInsertPointAtEnd(entry)
	cellTTLPtr := c.builder.CreateInBoundsGEP(ttlPtr, []llvm.Value{cellNum}, "cell_ttl_ptr")
	ttlVal := c.builder.CreateLoad(cellTTLPtr, "cell_ttl_val")
	isDead := c.builder.CreateICmp(llvm.IntEQ, ttlVal, c.constI8(0), "cell_is_dead")
	c.builder.CreateCondBr(isDead, deadBlock, aliveBlock)

	c.builder.SetInsertPointAtEnd(deadBlock)
	c.builder.CreateRet(c.constI32(1))

	c.builder.SetInsertPointAtEnd(aliveBlock)
	c.builder.CreateRet(c.constI32(0))

	return fn
}

// codeFunctionValidationRoutine builds FVR (spec §4.3.2): a cell can be
// massacred onto only when it is alive and holds one of the four function
// primitive indices.
func (c *CodeGen) codeFunctionValidationRoutine(putchar llvm.Value) llvm.Value {
	fnType := llvm.FunctionType(c.i32, []llvm.Type{c.i8, c.i32ptr(), c.i8ptr()}, false)
	fn := c.module.AddFunction("func_validation_routine", fnType)
	cellNumber := fn.Param(0)
	cellsPtr := fn.Param(1)
	ttlTablePtr := fn.Param(2)

	entry := c.ctx.AddBasicBlock(fn, "entry_block")
	deadBlock := c.ctx.AddBasicBlock(fn, "dead_block")
	aliveBlock := c.ctx.AddBasicBlock(fn, "alive_block")
	successBlock := c.ctx.AddBasicBlock(fn, "success_block")
	nonFuncBlock := c.ctx.AddBasicBlock(fn, "non_function_primitive_block")

	c.builder.SetInsertPointAtEnd(entry)
	ttlPtr := c.builder.CreateInBoundsGEP(ttlTablePtr, []llvm.Value{cellNumber}, "cell_ttl_ptr")
	ttlVal := c.builder.CreateLoad(ttlPtr, "cell_ttl_val")
	isDead := c.builder.CreateICmp(llvm.IntEQ, ttlVal, c.constI8(0), "cell_is_dead")
	c.builder.CreateCondBr(isDead, deadBlock, aliveBlock)

	c.builder.SetInsertPointAtEnd(deadBlock)
	c.builder.CreateRet(c.constI32(1))

	c.builder.SetInsertPointAtEnd(aliveBlock)
	cellNumberExt := c.builder.CreateZExt(cellNumber, c.i32, "cell_number_ext")
	cellPtr := c.builder.CreateInBoundsGEP(cellsPtr, []llvm.Value{cellNumberExt}, "cell_ptr")
	cellVal := c.builder.CreateLoad(cellPtr, "cell_val")

	sw := c.builder.CreateSwitch(cellVal, nonFuncBlock, 4)
	sw.AddCase(c.constI32(int64(PrimAddition.FuncIndex())), successBlock)
	sw.AddCase(c.constI32(int64(PrimSubtraction.FuncIndex())), successBlock)
	sw.AddCase(c.constI32(int64(PrimOutput.FuncIndex())), successBlock)
	sw.AddCase(c.constI32(int64(PrimInput.FuncIndex())), successBlock)

	c.builder.SetInsertPointAtEnd(successBlock)
	c.builder.CreateRet(c.constI32(0))

	c.builder.SetInsertPointAtEnd(nonFuncBlock)
	c.codePrint(putchar, runtimeMsgNonFunctionMassacre)
	c.builder.CreateRet(c.constI32(1))

	return fn
}

// codeCellAccessRoutine builds CAR (spec §4.3.2): a cell may only be
// touched when the current region is Cells.
func (c *CodeGen) codeCellAccessRoutine() llvm.Value {
	fnType := llvm.FunctionType(c.i32, []llvm.Type{c.i8ptr()}, false)
	fn := c.module.AddFunction("cell_access_routine", fnType)
	currRegionPtr := fn.Param(0)

	entry := c.ctx.AddBasicBlock(fn, "entry_block")
	successBlock := c.ctx.AddBasicBlock(fn, "success_block")
	failBlock := c.ctx.AddBasicBlock(fn, "fail_block")

	c.builder.SetInsertPointAtEnd(entry)
	region := c.builder.CreateLoad(currRegionPtr, "curr_region")
	isCells := c.builder.CreateICmp(llvm.IntEQ, region, c.constI8(0), "curr_region_is_cells")
	c.builder.CreateCondBr(isCells, successBlock, failBlock)

	c.builder.SetInsertPointAtEnd(successBlock)
	c.builder.CreateRet(c.constI32(0))

	c.builder.SetInsertPointAtEnd(failBlock)
	c.builder.CreateRet(c.constI32(1))

	return fn
}
