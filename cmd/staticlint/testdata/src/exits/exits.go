package main

import "os"

func helper() {
	os.Exit(2)
}

func main() {
	defer func() {
		os.Exit(3)
	}()
	helper()
	os.Exit(1) // want "os.Exit call is forbidden in main function"
}
