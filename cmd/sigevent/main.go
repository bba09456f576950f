// Command sigevent runs and inspects scenarios for the VHDL 'event attribute monitor.
package main

import (
	"os"

	"github.com/roach88/sigevent/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:], os.Stdout, os.Stderr))
}
