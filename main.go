package main

import "github.com/fakeyudi/diffreview/cmd"

func main() {
	cmd.Execute()
}
