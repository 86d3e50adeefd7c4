//go:build mage
// +build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Default target to run when none is specified
var Default = Build

var commands = []string{"tripletgbl", "telsim", "planeeff", "resmap", "clustershape"}

// Build compiles every command into ./bin
func Build() error {
	mg.Deps(Test)
	for _, name := range commands {
		fmt.Printf("Building %s executable...\n", name)
		if err := sh.RunV("go", "build", "-o", "./bin/"+name, "./"+name); err != nil {
			return err
		}
	}
	fmt.Println("Compilation finished")
	return nil
}

// Test runs the unit tests of every package
func Test() error {
	return sh.RunV("go", "test", "./...")
}

// Clean removes the built executables
func Clean() error {
	return sh.Rm("bin")
}
