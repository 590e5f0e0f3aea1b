package main

import "github.com/hookport/hookport/cmd"

func main() {
	cmd.Execute()
}
