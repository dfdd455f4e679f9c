package main

import "github.com/linesmerrill/custody-ledger-api/cmd"

func main() {
	cmd.Execute()
}
