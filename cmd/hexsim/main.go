package main

import (
	"fmt"
	"os"

	"github.com/hexlang/hex/vm"
	cli "github.com/urfave/cli/v2"
)

func main() {
	app := cli.NewApp()
	app.Name = "hexsim"
	app.Usage = "Run a Hex binary"
	app.ArgsUsage = "program.bin"
	app.Flags = []cli.Flag{
		&cli.BoolFlag{
			Name:    "trace",
			Aliases: []string{"t"},
			Usage:   "print a per-cycle execution trace to stderr",
		},
		&cli.BoolFlag{
			Name:    "dump",
			Aliases: []string{"d"},
			Usage:   "dump memory to stderr after the program halts",
		},
		&cli.Uint64Flag{
			Name:  "max-cycles",
			Usage: "stop after `N` executed instructions (0 = unbounded)",
		},
		&cli.StringFlag{
			Name:  "dir",
			Usage: "base directory for file streams opened via syscalls",
			Value: ".",
		},
	}
	app.Action = func(c *cli.Context) error {
		if c.Args().Len() < 1 {
			cli.ShowAppHelp(c)
			return cli.Exit("missing binary file", 1)
		}
		binPath := c.Args().Get(0)
		data, err := os.ReadFile(binPath)
		if err != nil {
			return cli.Exit(err, 1)
		}

		io_ := vm.NewIO(os.Stdin, os.Stdout, c.String("dir"))
		defer io_.Close()

		p := vm.NewProcessor(io_)
		if err := p.Load(data); err != nil {
			return cli.Exit(err, 1)
		}

		if c.Bool("trace") {
			p.Trace = os.Stderr
		}
		p.MaxCycles = c.Uint64("max-cycles")

		runErr := p.Run()

		if c.Bool("dump") {
			highWord := 0
			for i, w := range p.Memory {
				if w != 0 {
					highWord = i
				}
			}
			if err := p.Dump(os.Stderr, highWord); err != nil {
				return cli.Exit(err, 1)
			}
		}

		if runErr != nil {
			return cli.Exit(runErr, 1)
		}

		if p.ExitCode != 0 {
			os.Exit(int(p.ExitCode))
		}
		return nil
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
