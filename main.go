package main

import (
	"context"
	"os"
	"runtime"

	"github.com/tuboc/chip8vm/cmd"
)

func init() {
	// SDL and ebiten need the main thread.
	runtime.LockOSThread()
}

func main() {
	os.Exit(cmd.Execute(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}
