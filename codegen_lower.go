package mindbend

import llvm "tinygo.org/x/go-llvm"

// stateUpdate calls SUR with the given reduceTTSO flag (spec §4.3.2):
// every construct that moves program state forward — a cell write, a
// region change, a drill, a jump whether taken or not — drives the TTL
// table (and, when reduceTTSO is nonzero, the drill-gate decay) through
// this one call.
func (c *CodeGen) stateUpdate(ms *machineState, fns *runtimeFuncs, reduceTTSO int64) {
	c.builder.CreateCall(fns.stateUpdateRoutine, []llvm.Value{
		ms.gatesTTSOPtr, ms.currGatesStatePtr, ms.ttlTablePtr, c.constI8(reduceTTSO), ms.cellsPtr,
	}, "carry_out_state_update_routine")
}

func (c *CodeGen) cellPtr(ms *machineState, ident int) llvm.Value {
	return c.builder.CreateInBoundsGEP(ms.cellsPtr, []llvm.Value{c.constI32(int64(ident))}, "cell_ptr")
}

func (c *CodeGen) ttlPtr(ms *machineState, ident int) llvm.Value {
	return c.builder.CreateInBoundsGEP(ms.ttlTablePtr, []llvm.Value{c.constI8(int64(ident))}, "ttl_ptr")
}

// codeLeachExpr dispatches a leach to one of its three shapes (spec
// §4.3.3): a primitive storing into a cell, a chained massacre ending in a
// function call, or a plain cell-to-cell copy.
func (c *CodeGen) codeLeachExpr(e *LeachExpr, mainFn llvm.Value, ms *machineState, fns *runtimeFuncs) {
	if prim, ok := e.Left.(*PrimitiveExpr); ok {
		target := e.Right.Left.(*CellExpr)
		c.codeStorePrimitive(prim.Value, target.Cell, e.RegionChanges, mainFn, ms, fns)
		return
	}
	if e.IsChain {
		cells := e.Cells()
		c.codeFunctionCall(cells[0], cells[1:], mainFn, ms, fns)
		return
	}
	left := e.Left.(*CellExpr)
	right := e.Right.Left.(*CellExpr)
	c.codeCellCopy(left.Cell, right.Cell, mainFn, ms, fns)
}

// codeStorePrimitive lowers a primitive-store leach (spec §4.3.3): it
// requires a working PAR check up front, applies any "->L"/"->C" region
// changes that appeared between the primitive and the arrow, then requires
// a working CAR check before writing the primitive's stored value and
// resetting the target cell's TTL to 5.
func (c *CodeGen) codeStorePrimitive(pval PrimitiveValue, targetCellIdent int, regionChanges []*RegionExpr, mainFn llvm.Value, ms *machineState, fns *runtimeFuncs) {
	endInFail := c.getBasicBlock(mainFn, endInFailBlockName)

	accessResult := c.builder.CreateCall(fns.primitiveAccessRoutine, []llvm.Value{
		ms.currRegionPtr, ms.currGatesStatePtr,
	}, "primitive_access_routine_result")
	accessOK := c.builder.CreateICmp(llvm.IntEQ, accessResult, c.constI32(0), "primitive_access_is_successful")

	accessOKBlock := c.ctx.AddBasicBlock(mainFn, "primitive_access_routine_successful_block")
	accessFailBlock := c.ctx.AddBasicBlock(mainFn, "primitive_access_routine_failed_block")
	continueBlock := c.ctx.AddBasicBlock(mainFn, "continue_main_block")
	c.builder.CreateCondBr(accessOK, accessOKBlock, accessFailBlock)

	c.builder.SetInsertPointAtEnd(accessFailBlock)
	c.codePrint(fns.putchar, runtimeMsgPrimitiveNotLayers)
	c.builder.CreateBr(endInFail)

	c.builder.SetInsertPointAtEnd(accessOKBlock)
	for _, re := range regionChanges {
		c.codeRegionExpr(re, ms, fns)
	}

	cellAccessResult := c.builder.CreateCall(fns.cellAccessRoutine, []llvm.Value{ms.currRegionPtr}, "carry_out_cell_access_routine")
	cellAccessOK := c.builder.CreateICmp(llvm.IntEQ, cellAccessResult, c.constI32(0), "cell_access_routine_successful")

	cellAccessOKBlock := c.ctx.AddBasicBlock(mainFn, "cell_access_routine_successful_block")
	cellAccessFailBlock := c.ctx.AddBasicBlock(mainFn, "cell_access_routine_failed_block")
	c.builder.CreateCondBr(cellAccessOK, cellAccessOKBlock, cellAccessFailBlock)

	c.builder.SetInsertPointAtEnd(cellAccessFailBlock)
	c.codePrint(fns.putchar, runtimeMsgCellOutsideCells)
	c.builder.CreateBr(endInFail)

	c.builder.SetInsertPointAtEnd(cellAccessOKBlock)
	c.builder.CreateStore(c.constI32(int64(pval.StoreValue())), c.cellPtr(ms, targetCellIdent))
	c.stateUpdate(ms, fns, 1)
	c.builder.CreateStore(c.constI8(5), c.ttlPtr(ms, targetCellIdent))
	c.builder.CreateBr(continueBlock)

	c.builder.SetInsertPointAtEnd(continueBlock)
}

// codeCellCopy lowers a plain, non-chained cell leach (spec §4.3.3): the
// source must be alive, its value moves across, the source dies and the
// destination's TTL resets to 5.
func (c *CodeGen) codeCellCopy(leftCellIdent, rightCellIdent int, mainFn llvm.Value, ms *machineState, fns *runtimeFuncs) {
	endInFail := c.getBasicBlock(mainFn, endInFailBlockName)

	validationResult := c.builder.CreateCall(fns.exprLifeValidationRoutine, []llvm.Value{
		ms.ttlTablePtr, c.constI8(int64(leftCellIdent)),
	}, "expr_life_validation_result")
	isAlive := c.builder.CreateICmp(llvm.IntEQ, validationResult, c.constI32(0), "expr_is_alive")

	aliveBlock := c.ctx.AddBasicBlock(mainFn, "expr_life_validation_successful")
	deadBlock := c.ctx.AddBasicBlock(mainFn, "expr_life_validation_failed")
	continueBlock := c.ctx.AddBasicBlock(mainFn, "continue_main_block")
	c.builder.CreateCondBr(isAlive, aliveBlock, deadBlock)

	c.builder.SetInsertPointAtEnd(deadBlock)
	c.codePrint(fns.putchar, runtimeMsgLeachDeath)
	c.builder.CreateBr(endInFail)

	c.builder.SetInsertPointAtEnd(aliveBlock)
	srcVal := c.builder.CreateLoad(c.cellPtr(ms, leftCellIdent), "src_cell_value")
	c.builder.CreateStore(srcVal, c.cellPtr(ms, rightCellIdent))
	c.stateUpdate(ms, fns, 1)
	c.builder.CreateStore(c.constI8(5), c.ttlPtr(ms, rightCellIdent))
	c.builder.CreateStore(c.constI8(0), c.ttlPtr(ms, leftCellIdent))
	c.builder.CreateBr(continueBlock)

	c.builder.SetInsertPointAtEnd(continueBlock)
}

// codeFunctionCall lowers a chained massacre (spec §4.3.3, §9): pfCellIdent
// names the cell holding the function, args is every cell along the chain
// after it in order, with the last one doubling as the result target.
//
// Addition and Subtraction both fold the first argument into the
// accumulator twice — once as the seed, again inside the loop over every
// arg — and Output walks args two at a time, printing a raw cell value for
// any odd leftover. Both behaviors are load-bearing: programs written
// against this compiler depend on them exactly as implemented here.
func (c *CodeGen) codeFunctionCall(pfCellIdent int, args []int, mainFn llvm.Value, ms *machineState, fns *runtimeFuncs) {
	endInFail := c.getBasicBlock(mainFn, endInFailBlockName)

	validationResult := c.builder.CreateCall(fns.funcValidationRoutine, []llvm.Value{
		c.constI8(int64(pfCellIdent)), ms.cellsPtr, ms.ttlTablePtr,
	}, "carry_out_function_validation_routine")
	isValid := c.builder.CreateICmp(llvm.IntEQ, validationResult, c.constI32(0), "func_is_valid")

	validBlock := c.ctx.AddBasicBlock(mainFn, "func_validation_routine_block")
	invalidBlock := c.ctx.AddBasicBlock(mainFn, "func_validation_failed_block")
	c.builder.CreateCondBr(isValid, validBlock, invalidBlock)

	c.builder.SetInsertPointAtEnd(invalidBlock)
	c.codePrint(fns.putchar, runtimeMsgNonFunctionMassacre)
	c.builder.CreateBr(endInFail)

	c.builder.SetInsertPointAtEnd(validBlock)
	primitiveIndex := c.builder.CreateLoad(c.cellPtr(ms, pfCellIdent), "func_primitive_index")

	continueBlock := c.ctx.AddBasicBlock(mainFn, "continue_main")
	additionBlock := c.ctx.AddBasicBlock(mainFn, "addition_block")
	subtractionBlock := c.ctx.AddBasicBlock(mainFn, "subtraction_block")
	inputBlock := c.ctx.AddBasicBlock(mainFn, "input_block")
	outputBlock := c.ctx.AddBasicBlock(mainFn, "output_block")

	sw := c.builder.CreateSwitch(primitiveIndex, outputBlock, 4)
	sw.AddCase(c.constI32(int64(PrimAddition.FuncIndex())), additionBlock)
	sw.AddCase(c.constI32(int64(PrimSubtraction.FuncIndex())), subtractionBlock)
	sw.AddCase(c.constI32(int64(PrimInput.FuncIndex())), inputBlock)

	targetCellIdent := args[len(args)-1]
	firstArg := args[0]

	c.builder.SetInsertPointAtEnd(additionBlock)
	sum := c.builder.CreateLoad(c.cellPtr(ms, firstArg), "first_arg_value")
	for _, arg := range args {
		v := c.builder.CreateLoad(c.cellPtr(ms, arg), "arg_value")
		sum = c.builder.CreateAdd(sum, v, "add_another_arg")
	}
	c.builder.CreateStore(sum, c.cellPtr(ms, targetCellIdent))
	c.codePostFuncExecRoutine(pfCellIdent, args, ms, fns)
	c.builder.CreateBr(continueBlock)

	c.builder.SetInsertPointAtEnd(subtractionBlock)
	diff := c.builder.CreateLoad(c.cellPtr(ms, firstArg), "first_arg_value")
	for _, arg := range args {
		v := c.builder.CreateLoad(c.cellPtr(ms, arg), "arg_value")
		diff = c.builder.CreateSub(diff, v, "subtract_another_arg")
	}
	c.builder.CreateStore(diff, c.cellPtr(ms, targetCellIdent))
	c.codePostFuncExecRoutine(pfCellIdent, args, ms, fns)
	c.builder.CreateBr(continueBlock)

	c.builder.SetInsertPointAtEnd(outputBlock)
	for i := 0; i < len(args); i += 2 {
		var numValue llvm.Value
		if i+1 == len(args) {
			numValue = c.builder.CreateLoad(c.cellPtr(ms, args[i]), "num_value")
		} else {
			first := c.builder.CreateLoad(c.cellPtr(ms, args[i]), "first_digit")
			second := c.builder.CreateLoad(c.cellPtr(ms, args[i+1]), "second_digit")
			tens := c.builder.CreateMul(first, c.constI32(10), "first_digit_tens_value")
			numValue = c.builder.CreateAdd(tens, second, "final_ascii_value")
		}
		c.builder.CreateCall(fns.putchar, []llvm.Value{numValue}, "print_value")
	}
	c.codePostFuncExecRoutine(pfCellIdent, args, ms, fns)
	c.builder.CreateBr(continueBlock)

	c.builder.SetInsertPointAtEnd(inputBlock)
	input := c.builder.CreateCall(fns.getchar, nil, "input")
	c.builder.CreateStore(input, c.cellPtr(ms, firstArg))
	c.codePostFuncExecRoutine(pfCellIdent, args, ms, fns)
	c.builder.CreateBr(continueBlock)

	c.builder.SetInsertPointAtEnd(continueBlock)
}

// codePostFuncExecRoutine runs SUR once per arg (spec §9: a chain of N
// args ages the clock N times, the same as N separate leaches would),
// then kills every arg but the last plus the cell that held the function,
// and resets the result cell's TTL to 5.
func (c *CodeGen) codePostFuncExecRoutine(pfCellIdent int, args []int, ms *machineState, fns *runtimeFuncs) {
	for range args {
		c.stateUpdate(ms, fns, 1)
	}
	for _, arg := range args[:len(args)-1] {
		c.builder.CreateStore(c.constI8(0), c.ttlPtr(ms, arg))
	}
	c.builder.CreateStore(c.constI8(0), c.ttlPtr(ms, pfCellIdent))
	c.builder.CreateStore(c.constI8(5), c.ttlPtr(ms, args[len(args)-1]))
}

// codeRegionExpr lowers a standalone or inline region change (spec
// §4.3.3): store the new region, then age the clock.
func (c *CodeGen) codeRegionExpr(e *RegionExpr, ms *machineState, fns *runtimeFuncs) {
	var target int64
	if e.Region == RegionLayers {
		target = 1
	}
	c.builder.CreateStore(c.constI8(target), ms.currRegionPtr)
	c.stateUpdate(ms, fns, 1)
}

// codeDrillExpr lowers a drill (spec §4.3.3): on success, SUR runs without
// decaying the TTSO — a drill itself doesn't age the gates, the clock they
// opened does.
func (c *CodeGen) codeDrillExpr(mainFn llvm.Value, ms *machineState, fns *runtimeFuncs) {
	endInFail := c.getBasicBlock(mainFn, endInFailBlockName)

	result := c.builder.CreateCall(fns.drillGateRoutine, []llvm.Value{
		ms.currRegionPtr, ms.currGatesStatePtr, ms.gatesTTSOPtr,
	}, "carry_out_drill_routine")
	failed := c.builder.CreateICmp(llvm.IntNE, result, c.constI32(0), "drill_fail")

	successBlock := c.ctx.AddBasicBlock(mainFn, "drill_success_block")
	failBlock := c.ctx.AddBasicBlock(mainFn, "drill_fail_block")
	continueBlock := c.ctx.AddBasicBlock(mainFn, "continue_main_block")
	c.builder.CreateCondBr(failed, failBlock, successBlock)

	c.builder.SetInsertPointAtEnd(failBlock)
	c.builder.CreateBr(endInFail)

	c.builder.SetInsertPointAtEnd(successBlock)
	c.stateUpdate(ms, fns, 0)
	c.builder.CreateBr(continueBlock)

	c.builder.SetInsertPointAtEnd(continueBlock)
}

func (c *CodeGen) codeLabel(e *LabelExpr, mainFn llvm.Value) {
	block := c.getBasicBlock(mainFn, userDefinedLabelPrefix+e.Name)
	c.builder.CreateBr(block)
	c.builder.SetInsertPointAtEnd(block)
}

func (c *CodeGen) codeJump(e *JumpExpr, mainFn llvm.Value, ms *machineState, fns *runtimeFuncs) {
	target := c.getBasicBlock(mainFn, userDefinedLabelPrefix+e.Target)
	if e.Conditional {
		c.codeConditionalJump(target, mainFn, ms, fns)
	} else {
		c.codeUnconditionalJump(target, mainFn, ms, fns)
	}
}

func (c *CodeGen) codeUnconditionalJump(target llvm.BasicBlock, mainFn llvm.Value, ms *machineState, fns *runtimeFuncs) {
	c.stateUpdate(ms, fns, 1)
	c.builder.CreateBr(target)
	continueBlock := c.ctx.AddBasicBlock(mainFn, "continue_main_block")
	c.builder.SetInsertPointAtEnd(continueBlock)
}

// codeConditionalJump branches to target when cell 0 holds zero (spec
// §4.3.3). SUR runs before the branch either way, so a conditional jump
// ages the clock whether or not it's taken.
func (c *CodeGen) codeConditionalJump(target llvm.BasicBlock, mainFn llvm.Value, ms *machineState, fns *runtimeFuncs) {
	cellZero := c.builder.CreateLoad(c.cellPtr(ms, 0), "cell_0_val")
	isZero := c.builder.CreateICmp(llvm.IntEQ, cellZero, c.constI32(0), "cell_0_val_is_0")
	c.stateUpdate(ms, fns, 1)
	continueBlock := c.ctx.AddBasicBlock(mainFn, "continue_main_block")
	c.builder.CreateCondBr(isZero, target, continueBlock)
	c.builder.SetInsertPointAtEnd(continueBlock)
}

// codeLoneCellExpr lowers a bare cell reference with no leach attached
// (spec §4.3.3): only CAR is checked, no value moves and no clock ages.
func (c *CodeGen) codeLoneCellExpr(mainFn llvm.Value, ms *machineState, fns *runtimeFuncs) {
	endInFail := c.getBasicBlock(mainFn, endInFailBlockName)
	result := c.builder.CreateCall(fns.cellAccessRoutine, []llvm.Value{ms.currRegionPtr}, "cell_access_routine_result")
	ok := c.builder.CreateICmp(llvm.IntEQ, result, c.constI32(0), "cell_access_routine_successful")

	okBlock := c.ctx.AddBasicBlock(mainFn, "cell_access_successful_block")
	failBlock := c.ctx.AddBasicBlock(mainFn, "cell_access_failed_block")
	continueBlock := c.ctx.AddBasicBlock(mainFn, "continue_main_block")
	c.builder.CreateCondBr(ok, okBlock, failBlock)

	c.builder.SetInsertPointAtEnd(failBlock)
	c.codePrint(fns.putchar, runtimeMsgCellOutsideCells)
	c.builder.CreateBr(endInFail)

	c.builder.SetInsertPointAtEnd(okBlock)
	c.builder.CreateBr(continueBlock)

	c.builder.SetInsertPointAtEnd(continueBlock)
}

// codeLonePrimitiveExpr lowers a bare primitive reference with no leach
// attached (spec §4.3.3): only PAR is checked.
func (c *CodeGen) codeLonePrimitiveExpr(mainFn llvm.Value, ms *machineState, fns *runtimeFuncs) {
	endInFail := c.getBasicBlock(mainFn, endInFailBlockName)
	result := c.builder.CreateCall(fns.primitiveAccessRoutine, []llvm.Value{
		ms.currRegionPtr, ms.currGatesStatePtr,
	}, "primitive_access_routine_result")
	ok := c.builder.CreateICmp(llvm.IntEQ, result, c.constI32(0), "primitive_access_routine_successful")

	okBlock := c.ctx.AddBasicBlock(mainFn, "primitive_access_successful_block")
	failBlock := c.ctx.AddBasicBlock(mainFn, "primitive_access_failed_block")
	continueBlock := c.ctx.AddBasicBlock(mainFn, "continue_main_block")
	c.builder.CreateCondBr(ok, okBlock, failBlock)

	c.builder.SetInsertPointAtEnd(failBlock)
	c.builder.CreateBr(endInFail)

	c.builder.SetInsertPointAtEnd(okBlock)
	c.builder.CreateBr(continueBlock)

	c.builder.SetInsertPointAtEnd(continueBlock)
}
