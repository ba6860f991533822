package main

import "github.com/lepinkainen/gameaugment/cmd"

var execute = cmd.Execute

func main() {
	execute()
}
