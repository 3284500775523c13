package mindbend

import (
	"fmt"
	"os"

	"github.com/golang/glog"
)

// Compile runs the full pipeline over source — lexing, parsing, code
// generation, object emission and linking — and writes the resulting
// executable to outFilename (spec §1, §4.4).
func Compile(source string, outFilename string) error {
	tokens, err := Tokenize(source)
	if err != nil {
		return err
	}
	glog.V(1).Infof("mindbend: tokenized %d token(s)", len(tokens))

	org, labels, err := Parse(tokens)
	if err != nil {
		return err
	}
	glog.V(1).Infof("mindbend: parsed organism with %d label(s)", len(labels))

	cg := NewCodeGen(org, labels)
	defer cg.Dispose()
	if err := cg.Code(); err != nil {
		return err
	}

	objPath := outFilename + ".tmp"
	if err := EmitObject(cg.Module(), objPath); err != nil {
		return err
	}
	defer os.Remove(objPath)

	return Link(objPath, outFilename)
}

// CompileFile reads path, compiles it, and writes the resulting executable
// to outFilename.
func CompileFile(path string, outFilename string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("mindbend: reading %s: %w", path, err)
	}
	return Compile(string(src), outFilename)
}
