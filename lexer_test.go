package mindbend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenizeSymbolFormsAndOtherTokens(t *testing.T) {
	src := `$!$@$#$+$%$` + "`" + `$&$*$($)$<>$><${$}label:hello:^^^^^^666^^^^^^^^^^^^666^^^^^^=->L~\\|//jmp:hello:ijmp:hello:^^^^^^666^^^^^^=M^^^^^^666^^^^^^=O`
	toks, err := Tokenize(src)
	require.NoError(t, err)

	want := []TokenKind{
		TokPrimitiveIdent, TokPrimitiveIdent, TokPrimitiveIdent,
		TokPrimitiveIdent, TokPrimitiveIdent, TokPrimitiveIdent,
		TokPrimitiveIdent, TokPrimitiveIdent, TokPrimitiveIdent,
		TokPrimitiveIdent, TokPrimitiveIdent, TokPrimitiveIdent,
		TokPrimitiveIdent, TokPrimitiveIdent, TokLabel,
		TokTripleSix, TokTripleSixEq, TokRegionIdent,
		TokTilde, TokDrill, TokJump, TokConditionalJump, TokTripleSixEqM,
	}
	require.Len(t, toks, len(want))
	for i, k := range want {
		assert.Equalf(t, k, toks[i].Kind, "token %d", i)
	}
	assert.Equal(t, "hello", toks[14].Name)
	assert.Equal(t, "hello", toks[20].Name)
	assert.Equal(t, "hello", toks[21].Name)
	assert.Equal(t, RegionLayers, toks[17].Region)
}

func TestTokenizeIndexForms(t *testing.T) {
	src := "$D$C$B$A$9$8$7$6$5$4$2$3$1$0^^^^^^666^^^^^^=O"
	toks, err := Tokenize(src)
	require.NoError(t, err)
	require.Len(t, toks, 14)
	wantPrims := []string{"D", "C", "B", "A", "9", "8", "7", "6", "5", "4", "2", "3", "1", "0"}
	for i, lex := range wantPrims {
		pv, ok := lookupPrimitive(lex)
		require.True(t, ok)
		assert.Equal(t, pv, func() PrimitiveValue {
			got, _ := lookupPrimitive(toks[i].Primitive)
			return got
		}())
	}
}

func TestTokenizeCellIdents(t *testing.T) {
	src := "0123456789ABCDE^^^^^^666^^^^^^=O"
	toks, err := Tokenize(src)
	require.NoError(t, err)
	require.Len(t, toks, 15)
	for i := 0; i < 15; i++ {
		assert.Equal(t, TokCellIdent, toks[i].Kind)
		assert.Equal(t, i, toks[i].Cell)
	}
}

func TestTokenizeMissingTerminatorFails(t *testing.T) {
	_, err := Tokenize("~")
	require.Error(t, err)
}

func TestTokenizeWhitespaceFails(t *testing.T) {
	_, err := Tokenize("0 1^^^^^^666^^^^^^=O")
	require.Error(t, err)

	_, err = Tokenize("0\n1^^^^^^666^^^^^^=O")
	require.Error(t, err)
}

func TestTokenizeUnrecognizedTokenFails(t *testing.T) {
	_, err := Tokenize("?^^^^^^666^^^^^^=O")
	require.Error(t, err)
}

func TestTokenizeInvalidPrimitiveFails(t *testing.T) {
	_, err := Tokenize("$?^^^^^^666^^^^^^=O")
	require.Error(t, err)
}

func TestTokenizeBadTripleSixFails(t *testing.T) {
	_, err := Tokenize("^^^^^66^^^^^^=O")
	require.Error(t, err)
}

func TestTokenizeBadDrillFails(t *testing.T) {
	_, err := Tokenize(`\|\/^^^^^^666^^^^^^=O`)
	require.Error(t, err)
}

func TestTokenizeBadRegionFails(t *testing.T) {
	_, err := Tokenize("->X^^^^^^666^^^^^^=O")
	require.Error(t, err)
}

func TestTokenizeLabelJumpRoundtrip(t *testing.T) {
	toks, err := Tokenize("label:loop:jmp:loop:ijmp:loop:^^^^^^666^^^^^^=O")
	require.NoError(t, err)
	require.Len(t, toks, 3)
	assert.Equal(t, "loop", toks[0].Name)
	assert.Equal(t, "loop", toks[1].Name)
	assert.Equal(t, "loop", toks[2].Name)
	assert.Equal(t, TokLabel, toks[0].Kind)
	assert.Equal(t, TokJump, toks[1].Kind)
	assert.Equal(t, TokConditionalJump, toks[2].Kind)
}
