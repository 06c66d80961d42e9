package main

import "github.com/goplus/llrecipe/cmd/llrecipe/internal"

func main() {
	internal.Execute()
}
