package main

import (
	"fmt"
	"os"

	"github.com/hexlang/hex/asm"
	cli "github.com/urfave/cli/v2"
)

func main() {
	app := cli.NewApp()
	app.Name = "hexasm"
	app.Usage = "Assemble Hex mnemonic source into a Hex binary"
	app.ArgsUsage = "source.hasm"
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "write the assembled binary to `FILE` instead of source.bin",
		},
		&cli.BoolFlag{
			Name:  "tree",
			Usage: "print the resolved directive listing instead of assembling",
		},
		&cli.BoolFlag{
			Name:  "no-debug",
			Usage: "omit the debug (symbol) section from the binary",
		},
	}
	app.Action = func(c *cli.Context) error {
		if c.Args().Len() < 1 {
			cli.ShowAppHelp(c)
			return cli.Exit("missing source file", 1)
		}
		srcPath := c.Args().Get(0)
		src, err := os.ReadFile(srcPath)
		if err != nil {
			return cli.Exit(err, 1)
		}

		prog, err := asm.Parse(src)
		if err != nil {
			return cli.Exit(err, 1)
		}
		prog, _, err = asm.Resolve(prog)
		if err != nil {
			return cli.Exit(err, 1)
		}

		if c.Bool("tree") {
			return asm.WriteListing(prog, os.Stdout)
		}

		binary, err := asm.EmitBinary(prog, c.Bool("no-debug"))
		if err != nil {
			return cli.Exit(err, 1)
		}

		out := c.String("output")
		if out == "" {
			out = outputName(srcPath)
		}
		if err := os.WriteFile(out, binary, 0644); err != nil {
			return cli.Exit(err, 1)
		}
		fmt.Printf("wrote %s (%d bytes)\n", out, len(binary))
		return nil
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func outputName(src string) string {
	for i := len(src) - 1; i >= 0 && src[i] != '/'; i-- {
		if src[i] == '.' {
			return src[:i] + ".bin"
		}
	}
	return src + ".bin"
}
