package main

import "github.com/josephlewis42/flowsh/cmd"

func main() {
	cmd.Execute()
}
