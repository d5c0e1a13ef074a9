package main

import "swocat/cmd"

func main() {
	cmd.Execute()
}
