package main

import "soulrec/cmd"

func main() {
	cmd.Execute()
}
