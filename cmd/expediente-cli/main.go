package main

import (
	"tybafetch/cmd/expediente-cli/commands"
	"tybafetch/lib/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
