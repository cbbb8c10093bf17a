package main

import "github.com/dmitrijs2005/coevo/internal/client/cli"

func main() {
	cli.Execute()
}
