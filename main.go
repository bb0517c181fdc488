package main

import "github.com/rkv-io/rkv/cmd"

func main() {
	cmd.Execute()
}
