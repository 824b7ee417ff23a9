package main

import "github.com/devicelab-dev/msgrelay/pkg/cli"

func main() {
	cli.Execute()
}
