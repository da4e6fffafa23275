package main

import (
	"os"

	"github.com/solatis/couponkeeper/cmd/couponkeeper/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
