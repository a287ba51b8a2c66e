package main

import "github.com/qalthos/infoboard/cmd"

func main() {
	cmd.Execute()
}
