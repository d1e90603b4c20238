//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Example generates the temperate example into out/.
func (Run) Example() error {
	mg.Deps(Build.Binary)
	fmt.Println("Run example...")
	_, err := executeCmd("bin/verdant",
		withArgs("-catalog", "examples/temperate.veg", "-config", "examples/verdant.yaml", "-out", "out"),
		withStream())
	return err
}

// Watch regenerates the example whenever its catalog or config changes.
func (Run) Watch() error {
	mg.Deps(Build.Binary)
	_, err := executeCmd("bin/verdant",
		withArgs("-catalog", "examples/temperate.veg", "-config", "examples/verdant.yaml", "-out", "out", "-watch"),
		withStream())
	return err
}
