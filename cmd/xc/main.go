package main

import (
	"fmt"
	"os"

	"github.com/hexlang/hex/asm"
	"github.com/hexlang/hex/xlang"
	cli "github.com/urfave/cli/v2"
)

func main() {
	app := cli.NewApp()
	app.Name = "xc"
	app.Usage = "Compile an X source program to a Hex binary"
	app.ArgsUsage = "source.x"
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "write the assembled binary to `FILE` instead of source.bin",
		},
		&cli.BoolFlag{
			Name:  "tree",
			Usage: "print the parsed syntax tree instead of compiling",
		},
		&cli.BoolFlag{
			Name:  "listing",
			Usage: "print the resolved directive listing instead of writing a binary",
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

		if c.Bool("tree") {
			prog, err := xlang.Parse(src)
			if err != nil {
				return cli.Exit(err, 1)
			}
			return xlang.WriteTree(prog, os.Stdout)
		}

		_, directives, err := xlang.Compile(src)
		if err != nil {
			return cli.Exit(err, 1)
		}
		directives, _, err = asm.Resolve(directives)
		if err != nil {
			return cli.Exit(err, 1)
		}

		if c.Bool("listing") {
			return asm.WriteListing(directives, os.Stdout)
		}

		binary, err := asm.EmitBinary(directives, c.Bool("no-debug"))
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
