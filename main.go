package main

import (
	"github.com/cellar-network/price-router/cmd"
)

func main() {
	cmd.Execute()
}
