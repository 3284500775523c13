package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/golang/glog"

	mindbend "github.com/mindbend-lang/mbc"
)

// defaultOutputName is the CLI's default -o/--output value (spec §6.3).
const defaultOutputName = "out"

func main() {
	var (
		outputShort = flag.String("o", defaultOutputName, "Path to the output executable")
		outputLong  = flag.String("output", defaultOutputName, "Path to the output executable (long form of -o)")
		dumpAST     = flag.Bool("dump-ast", false, "Print the parsed organism and exit without generating code")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <input.mb>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	defer glog.Flush()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}
	inputPath := flag.Arg(0)

	src, err := os.ReadFile(inputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mindbendc: %s\n", err)
		os.Exit(1)
	}

	if *dumpAST {
		tokens, err := mindbend.Tokenize(string(src))
		if err != nil {
			fmt.Fprintf(os.Stderr, "mindbendc: %s\n", err)
			os.Exit(1)
		}
		org, _, err := mindbend.Parse(tokens)
		if err != nil {
			fmt.Fprintf(os.Stderr, "mindbendc: %s\n", err)
			os.Exit(1)
		}
		fmt.Print(mindbend.DumpOrganism(org))
		return
	}

	out := defaultOutputName
	switch {
	case *outputLong != defaultOutputName:
		out = *outputLong
	case *outputShort != defaultOutputName:
		out = *outputShort
	}
	if err := mindbend.Compile(string(src), out); err != nil {
		fmt.Fprintf(os.Stderr, "mindbendc: %s\n", err)
		os.Exit(1)
	}
}
