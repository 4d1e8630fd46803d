// hostdis - host bytecode disassembler
// Lists every method of a host program with its basic blocks
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gogpu/xshader/cfg"
	"github.com/gogpu/xshader/disasm"
	"github.com/gogpu/xshader/host"
)

var (
	typeName = flag.String("type", "", "only list methods of this type")
	noBlocks = flag.Bool("flat", false, "do not split methods into blocks")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: hostdis [-type name] [-flat] <program.toml>\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	m, err := host.LoadFile(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	for _, t := range m.Types() {
		if *typeName != "" && t.Name != *typeName {
			continue
		}
		for _, mt := range t.Methods {
			if len(mt.Code) == 0 {
				continue
			}
			if err := listMethod(os.Stdout, m, mt, !*noBlocks); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v: %v\n", mt.Key(), err)
				os.Exit(1)
			}
		}
	}
}

// listMethod writes the listing of one method: a header, then one line per
// instruction with its stack effect. With blocks set, each basic block is
// introduced by its label and followed by its successor edges.
func listMethod(w io.Writer, r host.Reflector, mt *host.Method, blocks bool) error {
	instrs, err := disasm.Disassemble(r, mt)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "; %v -> %v\n", mt.Key(), returnName(mt))
	for i, l := range mt.Locals {
		fmt.Fprintf(w, ";   local %d %s %v\n", i, l.Name, l.Type)
	}

	if !blocks {
		for i := range instrs {
			writeInstr(w, &instrs[i])
		}
		fmt.Fprintln(w)
		return nil
	}

	g, err := cfg.Build(mt, instrs)
	if err != nil {
		return err
	}

	for _, b := range g.Blocks {
		fmt.Fprintf(w, "%v:\n", b)
		for i := range b.Instrs {
			writeInstr(w, &b.Instrs[i])
		}

		var succs []string
		for _, e := range b.Succs {
			succs = append(succs, fmt.Sprintf("%v %v", e.Kind, e.To))
		}
		if len(succs) != 0 {
			fmt.Fprintf(w, "               ; -> %s\n", strings.Join(succs, ", "))
		}
	}
	fmt.Fprintln(w)

	return nil
}

func writeInstr(w io.Writer, in *disasm.Instruction) {
	fmt.Fprintf(w, "    %-48s ; %-6v -%d +%d\n", in.String(), in.Class(), in.Pop, in.Push)
}

func returnName(mt *host.Method) string {
	if mt.Return.IsVoid() {
		return "void"
	}
	return mt.Return.Name
}
