//go:build mage

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// Engine builds the engine binary into bin/.
func (Build) Engine() error {
	if err := os.MkdirAll("bin", 0o755); err != nil {
		return err
	}
	_, err := executeCmd("go", withArgs("build", "-o", filepath.Join("bin", "umbra"), "."), withStream())
	return err
}

// Shaders validates every shader stage under assets/shaders with
// glslangValidator. Includes and defines are resolved by the engine, so
// stages are checked as the preprocessor would see them with no defines.
func (Build) Shaders() error {
	return validateShaders(filepath.Join("assets", "shaders"))
}

func validateShaders(dir string) error {
	var stages []string
	for _, ext := range []string{".vs", ".fs", ".gs", ".tcs", ".tes"} {
		matches, err := filepath.Glob(filepath.Join(dir, "*"+ext))
		if err != nil {
			return err
		}
		stages = append(stages, matches...)
	}
	if len(stages) == 0 {
		return fmt.Errorf("no shaders found in %s", dir)
	}

	tmp, err := os.MkdirTemp("", "umbra-shaders")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmp)

	for _, stage := range stages {
		out, err := preprocessStage(stage, tmp)
		if err != nil {
			return err
		}
		if _, err := executeCmd("glslangValidator", withArgs("-S", glslStage(stage), out)); err != nil {
			return fmt.Errorf("%s: %w", stage, err)
		}
	}
	return nil
}
