package main

import (
	"eamsassist-backend/cmd/eams-cli/commands"
	"eamsassist-backend/lib/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
