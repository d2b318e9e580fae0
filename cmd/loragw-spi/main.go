// Package main is loragw-spi, a tool for poking the radios of a LoRa concentrator board over SPI.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"

	"go.viam.com/loragw/spi"
)

func main() {
	app := newApp(&runner{out: os.Stdout, open: spi.Open})
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Error: %v", err))
		os.Exit(1)
	}
}
