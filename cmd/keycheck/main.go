package main

import "github.com/pulsesparkai/SparkOrchestra-sub001/cmd/keycheck/commands"

func main() {
	commands.Execute()
}
