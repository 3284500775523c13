package mindbend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tok is a small builder to keep the fixture token slices below readable.
func tok(k TokenKind) Token { return Token{Kind: k} }

func regionTok(r Region) Token { return Token{Kind: TokRegionIdent, Region: r} }

func cellTok(c int) Token { return Token{Kind: TokCellIdent, Cell: c} }

func primTok(lexeme string) Token { return Token{Kind: TokPrimitiveIdent, Primitive: lexeme} }

func TestParseDrillThenPrimitiveStoreThenRegionChangeThenCopy(t *testing.T) {
	tokens := []Token{
		regionTok(RegionLayers), tok(TokDrill), tok(TokDrill), tok(TokDrill),
		primTok("`"),
		regionTok(RegionCells), tok(TokTilde), cellTok(0),
		regionTok(RegionLayers), primTok("><"),
		regionTok(RegionCells), tok(TokTilde), cellTok(1),
		cellTok(0), tok(TokTilde), cellTok(1),
	}
	org, labels, err := Parse(tokens)
	require.NoError(t, err)
	assert.Empty(t, labels)

	require.IsType(t, &RegionExpr{}, org.Child)
	assert.Equal(t, RegionLayers, org.Child.(*RegionExpr).Region)

	n := org.Right
	require.IsType(t, &DrillExpr{}, n.Child)
	n = n.Right
	require.IsType(t, &DrillExpr{}, n.Child)
	n = n.Right
	require.IsType(t, &DrillExpr{}, n.Child)

	n = n.Right
	leach, ok := n.Child.(*LeachExpr)
	require.True(t, ok)
	prim, ok := leach.Left.(*PrimitiveExpr)
	require.True(t, ok)
	assert.Equal(t, PrimSix, prim.Value)
	require.NotNil(t, leach.Right)
	assert.Equal(t, 0, leach.Right.Left.(*CellExpr).Cell)
	require.Len(t, leach.RegionChanges, 1)
	assert.Equal(t, RegionCells, leach.RegionChanges[0].Region)
	assert.False(t, leach.IsChain)

	n = n.Right
	require.IsType(t, &RegionExpr{}, n.Child)
	assert.Equal(t, RegionLayers, n.Child.(*RegionExpr).Region)

	n = n.Right
	leach2, ok := n.Child.(*LeachExpr)
	require.True(t, ok)
	assert.Equal(t, PrimOutput, leach2.Left.(*PrimitiveExpr).Value)
	assert.Equal(t, 1, leach2.Right.Left.(*CellExpr).Cell)

	n = n.Right
	leach3, ok := n.Child.(*LeachExpr)
	require.True(t, ok)
	assert.Equal(t, 0, leach3.Left.(*CellExpr).Cell)
	assert.Equal(t, 1, leach3.Right.Left.(*CellExpr).Cell)
	assert.False(t, leach3.IsChain)
	assert.Nil(t, n.Right)
}

func TestParseChainedMassacre(t *testing.T) {
	tokens := []Token{
		regionTok(RegionLayers), tok(TokDrill), tok(TokDrill), tok(TokDrill),
		primTok("<>"),
		regionTok(RegionCells), tok(TokTilde), cellTok(0),
		cellTok(0), tok(TokTilde), cellTok(1), tok(TokTripleSixEqM),
		regionTok(RegionLayers), primTok("><"),
		regionTok(RegionCells), tok(TokTilde), cellTok(2),
		cellTok(2), tok(TokTilde), cellTok(1), tok(TokTripleSixEqM),
	}
	org, _, err := Parse(tokens)
	require.NoError(t, err)

	n := org.Right.Right.Right.Right // past ->L, drill, drill, drill
	leach, ok := n.Child.(*LeachExpr)
	require.True(t, ok)
	assert.Equal(t, PrimInput, leach.Left.(*PrimitiveExpr).Value)

	n = n.Right
	chain, ok := n.Child.(*LeachExpr)
	require.True(t, ok)
	assert.True(t, chain.IsChain)
	assert.Equal(t, []int{0, 1}, chain.Cells())
	assert.False(t, chain.Right.IsChain)
}

func TestParseUnterminatedChainFails(t *testing.T) {
	tokens := []Token{
		regionTok(RegionCells), cellTok(0), tok(TokTilde), cellTok(1), tok(TokTilde), cellTok(2),
	}
	_, _, err := Parse(tokens)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must end in a massacre")
}

func TestParseLeachOntoSelfFails(t *testing.T) {
	tokens := []Token{
		regionTok(RegionCells), cellTok(0), tok(TokTilde), cellTok(1), tok(TokTilde), cellTok(0), tok(TokTripleSixEqM),
	}
	_, _, err := Parse(tokens)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "leach expression onto itself")
}

func TestParseDrillInCellsRegionFails(t *testing.T) {
	tokens := []Token{tok(TokDrill)}
	_, _, err := Parse(tokens)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "drill in the Cells Region")
}

func TestParsePrimitiveOutsideLayersFails(t *testing.T) {
	tokens := []Token{primTok("!")}
	_, _, err := Parse(tokens)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Layers Region")
}

func TestParsePrimitiveGatesNotOpenFails(t *testing.T) {
	tokens := []Token{regionTok(RegionLayers), tok(TokDrill), primTok("!")}
	_, _, err := Parse(tokens)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gates aren't fully open")
}

func TestParseJumpToNonExistentLabelFails(t *testing.T) {
	tokens := []Token{{Kind: TokJump, Name: "nowhere"}}
	_, _, err := Parse(tokens)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non existent label")
}

func TestParseJumpForwardReferenceSucceeds(t *testing.T) {
	tokens := []Token{
		{Kind: TokJump, Name: "loop"},
		{Kind: TokLabel, Name: "loop"},
	}
	org, labels, err := Parse(tokens)
	require.NoError(t, err)
	assert.Equal(t, []string{"loop"}, labels)
	require.IsType(t, &JumpExpr{}, org.Child)
	require.IsType(t, &LabelExpr{}, org.Right.Child)
}

func TestParseDuplicateLabelFails(t *testing.T) {
	tokens := []Token{
		{Kind: TokLabel, Name: "a"},
		{Kind: TokLabel, Name: "a"},
	}
	_, _, err := Parse(tokens)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicated")
}

func TestParseTripleSixEqOSplice(t *testing.T) {
	tokens := []Token{
		regionTok(RegionLayers),
		tok(TokTripleSixEqO),
		regionTok(RegionCells),
	}
	org, _, err := Parse(tokens)
	require.NoError(t, err)
	assert.Equal(t, RegionLayers, org.Child.(*RegionExpr).Region)
	require.NotNil(t, org.Right)
	assert.Equal(t, RegionCells, org.Right.Child.(*RegionExpr).Region)
	assert.Nil(t, org.Right.Right)
}

func TestParseTildeAtTopLevelFails(t *testing.T) {
	_, _, err := Parse([]Token{tok(TokTilde)})
	require.Error(t, err)
}

func TestParseUnrecognizedCellFails(t *testing.T) {
	tokens := []Token{regionTok(RegionCells), cellTok(0), tok(TokTilde), {Kind: TokCellIdent, Cell: 99}}
	_, _, err := Parse(tokens)
	require.Error(t, err)
}
