package main

import "github.com/11bdev/sitrep/cmd"

func main() {
	cmd.Execute()
}
