package mindbend

import (
	"strings"
	"testing"

	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stripModuleID drops the leading "; ModuleID = '...'" / source_filename
// comment lines LLVM prints at the top of a dump, since those embed the
// random uuid NewCodeGen namespaces each module with (spec §4.3).
func stripModuleID(ir string) string {
	lines := strings.Split(ir, "\n")
	out := lines[:0]
	for _, l := range lines {
		if strings.HasPrefix(l, "; ModuleID") || strings.HasPrefix(l, "source_filename") {
			continue
		}
		out = append(out, l)
	}
	return strings.Join(out, "\n")
}

func genIR(t *testing.T, tokens []Token) string {
	t.Helper()
	org, labels, err := Parse(tokens)
	require.NoError(t, err)

	cg := NewCodeGen(org, labels)
	defer cg.Dispose()
	require.NoError(t, cg.Code())
	return cg.Module().String()
}

func TestCodeGenEmitsMainWithEntryAndFailBlocks(t *testing.T) {
	tokens := []Token{regionTok(RegionLayers)}
	ir := genIR(t, tokens)

	assert.Contains(t, ir, "define i32 @main(")
	assert.Contains(t, ir, "entry:")
	assert.Contains(t, ir, "end_main_fail:")
	assert.Contains(t, ir, "end_main_success:")
}

func TestCodeGenEmitsAllSixRuntimeRoutines(t *testing.T) {
	tokens := []Token{regionTok(RegionLayers)}
	ir := genIR(t, tokens)

	for _, fn := range []string{
		"@primitive_access_routine(",
		"@state_update_routine(",
		"@drill_gate_routine(",
		"@func_validation_routine(",
		"@expr_life_validation_routine(",
		"@cell_access_routine(",
	} {
		assert.Contains(t, ir, fn)
	}
	assert.Contains(t, ir, "declare i32 @putchar(")
	assert.Contains(t, ir, "declare i32 @getchar(")
}

func TestCodeGenCreatesOneBlockPerUserDefinedLabel(t *testing.T) {
	tokens := []Token{
		{Kind: TokJump, Name: "loop"},
		{Kind: TokLabel, Name: "loop"},
	}
	ir := genIR(t, tokens)
	assert.Contains(t, ir, userDefinedLabelPrefix+"loop:")
}

func TestCodeGenDrillThenPrimitiveStoreLowersWithoutError(t *testing.T) {
	tokens := []Token{
		regionTok(RegionLayers), tok(TokDrill), tok(TokDrill), tok(TokDrill),
		primTok("`"),
		regionTok(RegionCells), tok(TokTilde), cellTok(0),
	}
	ir := genIR(t, tokens)

	assert.Contains(t, ir, "@drill_gate_routine(")
	assert.Contains(t, ir, "@primitive_access_routine(")
	assert.Contains(t, ir, "@state_update_routine(")
}

func TestCodeGenChainedMassacreLowersWithoutError(t *testing.T) {
	tokens := []Token{
		regionTok(RegionLayers), tok(TokDrill), tok(TokDrill), tok(TokDrill),
		primTok("<>"),
		regionTok(RegionCells), tok(TokTilde), cellTok(0),
		cellTok(0), tok(TokTilde), cellTok(1), tok(TokTripleSixEqM),
	}
	ir := genIR(t, tokens)
	assert.Contains(t, ir, "@func_validation_routine(")
}

// Code() is otherwise deterministic given the same Organism (aside from the
// per-module uuid), so two independent lowerings of the same program should
// produce identical IR once that id is stripped out.
func TestCodeGenIsDeterministicAcrossRuns(t *testing.T) {
	tokens := []Token{
		regionTok(RegionLayers), tok(TokDrill), tok(TokDrill), tok(TokDrill),
		primTok("><"),
		regionTok(RegionCells), tok(TokTilde), cellTok(1),
	}

	org1, labels1, err := Parse(tokens)
	require.NoError(t, err)
	cg1 := NewCodeGen(org1, labels1)
	defer cg1.Dispose()
	require.NoError(t, cg1.Code())
	ir1 := stripModuleID(cg1.Module().String())

	org2, labels2, err := Parse(tokens)
	require.NoError(t, err)
	cg2 := NewCodeGen(org2, labels2)
	defer cg2.Dispose()
	require.NoError(t, cg2.Code())
	ir2 := stripModuleID(cg2.Module().String())

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(ir1, ir2, false)
	for _, d := range diffs {
		if d.Type != diffmatchpatch.DiffEqual {
			t.Fatalf("unexpected IR divergence across identical runs:\n%s", dmp.DiffPrettyText(diffs))
		}
	}
}
