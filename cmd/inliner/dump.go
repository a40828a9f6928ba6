package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/chazu/inliner/assembly"
	"github.com/chazu/inliner/il"
)

var (
	methodFlag = &cli.StringFlag{
		Name:    "method",
		Aliases: []string{"m"},
		Usage:   "only dump methods whose full name contains this string",
	}
	noColorFlag = &cli.BoolFlag{
		Name:  "no-color",
		Usage: "disable colored output",
	}
)

var dumpCommand = &cli.Command{
	Name:      "dump",
	Usage:     "Disassemble the method bodies of an assembly",
	ArgsUsage: "<assembly>",
	Flags: []cli.Flag{
		methodFlag,
		noColorFlag,
	},
	Action: dumpAction,
}

func dumpAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("dump takes exactly one assembly", 2)
	}
	if c.Bool(noColorFlag.Name) {
		color.NoColor = true
	}
	file, err := assembly.ReadFile(c.Args().First())
	if err != nil {
		return err
	}
	dump(c.App.Writer, file, c.String(methodFlag.Name))
	return nil
}

var (
	headerColor = color.New(color.Bold)
	branchColor = color.New(color.FgCyan)
	callColor   = color.New(color.FgYellow)
	exitColor   = color.New(color.FgRed)
	nopColor    = color.New(color.Faint)
)

func dump(w io.Writer, file *assembly.File, filter string) {
	asm := file.Assembly
	state := "unoptimized"
	if file.Header.Optimized() {
		state = "optimized"
	}
	headerColor.Fprintf(w, "// %s (%s, %s)\n", asm.Name, asm.Kind.Extension(), state)

	for _, m := range asm.Methods() {
		if filter != "" && !strings.Contains(m.FullName(), filter) {
			continue
		}
		fmt.Fprintln(w)
		headerColor.Fprintf(w, ".method %s\n", m)
		if !m.HasBody() {
			fmt.Fprintln(w, "  // no body")
			continue
		}
		b := m.Body()
		for i, l := range b.Locals {
			fmt.Fprintf(w, "  .local [%d] %s\n", i, l.Type)
		}
		for in := b.First(); in != nil; in = in.Next() {
			fmt.Fprintf(w, "  %s\n", colorFor(in).Sprint(il.DisassembleInstruction(in)))
		}
	}
}

func colorFor(in *il.Instruction) *color.Color {
	switch in.Kind() {
	case il.KindBranch, il.KindConditionalBranch:
		return branchColor
	case il.KindCall:
		return callColor
	case il.KindReturn, il.KindThrow:
		return exitColor
	case il.KindNop:
		return nopColor
	}
	return color.New()
}
