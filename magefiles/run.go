//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Engine runs the testbed in a window.
func (Run) Engine() error {
	mg.Deps(Build.Shaders)
	fmt.Println("Run engine...")
	_, err := executeCmd("go", withArgs("run", ".", "-config", "assets/config.toml"), withStream())
	return err
}

// Headless renders a few frames without a window.
func (Run) Headless() error {
	fmt.Println("Run headless...")
	_, err := executeCmd("go", withArgs("run", ".", "-config", "assets/config.toml", "-backend", "headless", "-frames", "120"), withStream())
	return err
}

type Test mg.Namespace

// All runs every package's tests.
func (Test) All() error {
	_, err := executeCmd("go", withArgs("test", "./..."), withStream())
	return err
}
