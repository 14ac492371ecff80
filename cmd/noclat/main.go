package main

import (
	"fmt"

	"github.com/tebeka/atexit"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Println(err)
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
