package main

import (
	"github.com/bounzy/bounzy-go/cmd/bounzy/cmd"
)

func main() {
	cmd.Execute()
}
