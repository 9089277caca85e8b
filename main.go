package main

import "github.com/eltwork/eltctl/cmd"

func main() {
	cmd.Execute()
}
