package cmd

import (
	"fmt"

	"github.com/common-nighthawk/go-figure"
)

func printBanner() {
	fmt.Print("\x1b[34m")
	figure.NewFigure("eventdesk", "cybermedium", true).Print()
	fmt.Print("\x1b[0m")
	fmt.Printf("\x1b[32m  Event RSVP & Activity Service - Version %s\x1b[0m\n\n", Version)
}
