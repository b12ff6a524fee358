package main

import "github.com/bnema/waylab/cmd"

func main() {
	cmd.Execute()
}
