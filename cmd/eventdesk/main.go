package main

import "github.com/jmcleod/eventdesk/cmd/eventdesk/cmd"

func main() {
	cmd.Execute()
}
