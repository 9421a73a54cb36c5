package main

import (
	"errors"
	"os"
)

func main() {
	err := newRootCmd().Execute()
	if err == nil {
		return
	}

	var exit *exitError
	if errors.As(err, &exit) {
		if exit.err != nil {
			printError(exit.err)
		}

		os.Exit(exit.code)
	}

	printError(err)
	os.Exit(classifyExit(err))
}
