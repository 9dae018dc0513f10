//go:build mage

package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
)

type cmdOptions struct {
	args   []string
	stream bool
}

type cmdOption func(*cmdOptions)

func withArgs(args ...string) cmdOption {
	return func(o *cmdOptions) {
		o.args = args
	}
}

func withStream() cmdOption {
	return func(o *cmdOptions) {
		o.stream = true
	}
}

func executeCmd(command string, options ...cmdOption) (string, error) {
	opts := &cmdOptions{}
	for _, o := range options {
		o(opts)
	}

	fmt.Printf("Executing: %s %s\n", command, strings.Join(opts.args, " "))
	cmd := exec.Command(command, opts.args...)

	streamOutput := mg.Verbose() || opts.stream

	var b bytes.Buffer
	if streamOutput {
		cmd.Stdout = io.MultiWriter(&b, os.Stdout)
		cmd.Stderr = io.MultiWriter(&b, os.Stderr)
	} else {
		cmd.Stdout = &b
		cmd.Stderr = &b
	}
	err := cmd.Run()
	if err != nil {
		if !streamOutput {
			fmt.Println("... failed command output:")
			fmt.Println(b.String())
		}
		return "", fmt.Errorf("error executing %s: %w", command, err)
	}
	return b.String(), nil
}

var stageNames = map[string]string{
	".vs":  "vert",
	".fs":  "frag",
	".gs":  "geom",
	".tcs": "tesc",
	".tes": "tese",
}

func glslStage(file string) string {
	return stageNames[filepath.Ext(file)]
}

// preprocessStage expands the #include lines of a shader stage into dir and
// returns the written file. glslangValidator wants a #version first, which
// the engine sources carry themselves.
func preprocessStage(file, dir string) (string, error) {
	var out strings.Builder
	if err := expandIncludes(&out, file, 0); err != nil {
		return "", err
	}
	target := filepath.Join(dir, filepath.Base(file)+"."+glslStage(file))
	return target, os.WriteFile(target, []byte(out.String()), 0o644)
}

func expandIncludes(out *strings.Builder, file string, depth int) error {
	if depth > 16 {
		return fmt.Errorf("%s: includes nested too deep", file)
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	for _, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#include") {
			name := strings.Trim(strings.TrimSpace(strings.TrimPrefix(trimmed, "#include")), "\"")
			if err := expandIncludes(out, filepath.Join(filepath.Dir(file), name), depth+1); err != nil {
				return err
			}
			continue
		}
		out.WriteString(line)
		out.WriteString("\n")
	}
	return nil
}
