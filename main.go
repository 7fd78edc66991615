package main

import "github.com/Yates-Labs/sleuth/cmd"

func main() {
	cmd.Execute()
}
