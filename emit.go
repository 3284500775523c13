package mindbend

import (
	"fmt"
	"os"
	"os/exec"

	units "github.com/docker/go-units"
	"github.com/golang/glog"
	llvm "tinygo.org/x/go-llvm"
)

// EmitObject lowers mod to a native object file at objPath (spec §4.4).
func EmitObject(mod llvm.Module, objPath string) error {
	llvm.InitializeNativeTarget()
	llvm.InitializeNativeAsmPrinter()

	triple := llvm.DefaultTargetTriple()
	target, err := llvm.GetTargetFromTriple(triple)
	if err != nil {
		return fmt.Errorf("mindbend: resolving target triple %q: %w", triple, err)
	}
	machine := target.CreateTargetMachine(
		triple,
		llvm.GetHostCPUName(),
		llvm.GetHostCPUFeatures(),
		llvm.CodeGenLevelDefault,
		llvm.RelocDefault,
		llvm.CodeModelDefault,
	)
	defer machine.Dispose()

	if err := llvm.VerifyModule(mod, llvm.PrintMessageAction); err != nil {
		return fmt.Errorf("mindbend: module verification failed: %w", err)
	}
	if err := machine.EmitToFile(mod, objPath, llvm.ObjectFile); err != nil {
		return fmt.Errorf("mindbend: emitting object file: %w", err)
	}
	if info, err := os.Stat(objPath); err == nil {
		glog.V(1).Infof("mindbend: wrote object %s (%s)", objPath, units.HumanSize(float64(info.Size())))
	}
	return nil
}

// linkerCandidates is tried in order when $CC is unset (spec §4.4); the
// generated object needs nothing beyond a C runtime to link.
var linkerCandidates = []string{"cc", "gcc", "clang"}

func resolveLinker() (string, error) {
	if cc := os.Getenv("CC"); cc != "" {
		if path, err := exec.LookPath(cc); err == nil {
			return path, nil
		}
		return "", fmt.Errorf("mindbend: $CC=%q not found on PATH", cc)
	}
	for _, candidate := range linkerCandidates {
		if path, err := exec.LookPath(candidate); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("mindbend: no linker found, tried %v (set $CC to override)", linkerCandidates)
}

// Link invokes the system C compiler to turn objPath into an executable
// at outPath (spec §4.4). -no-pie matches the generated code's assumption
// of a fixed, non-relocated load address.
func Link(objPath, outPath string) error {
	linker, err := resolveLinker()
	if err != nil {
		return err
	}
	glog.V(1).Infof("mindbend: linking with %s", linker)
	cmd := exec.Command(linker, objPath, "-o", outPath, "-no-pie")
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("mindbend: linking %s: %w", outPath, err)
	}
	return nil
}
