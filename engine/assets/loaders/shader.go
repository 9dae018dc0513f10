package loaders

import (
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/spaghettifunk/umbra/engine/core"
	"github.com/spaghettifunk/umbra/engine/renderer/metadata"
)

const maxIncludeDepth = 16

// ShaderLoader loads a GLSL stage and runs it through a small preprocessor:
//
//	#include "file"   inlines file, relative to the including file
//	#ifdef NAME       keeps the block when NAME is defined
//	#ifndef NAME      keeps the block when NAME is not defined
//	#else / #endif
//
// Conditional blocks can't be nested. Everything else is passed through.
type ShaderLoader struct{}

func (sl *ShaderLoader) Load(fsys fs.FS, filename string, params interface{}) (*metadata.Resource, error) {
	var defines []string
	if typedParams, ok := params.(*metadata.ShaderResourceParams); ok && typedParams != nil {
		defines = typedParams.Defines
	}

	source, err := Preprocess(fsys, filename, defines)
	if err != nil {
		return nil, err
	}
	core.LogDebug("Loaded %s", filename)
	return &metadata.Resource{
		Name:     path.Base(filename),
		FullPath: filename,
		Type:     metadata.ResourceTypeShader,
		DataSize: uint64(len(source)),
		Data:     source,
	}, nil
}

func (sl *ShaderLoader) Unload(*metadata.Resource) error {
	return nil
}

// Preprocess loads filename from fsys and resolves includes and conditionals.
func Preprocess(fsys fs.FS, filename string, defines []string) (string, error) {
	defined := make(map[string]bool, len(defines))
	for _, d := range defines {
		for _, f := range strings.Fields(d) {
			defined[f] = true
		}
	}
	var out strings.Builder
	if err := preprocess(fsys, filename, defined, 0, &out); err != nil {
		return "", err
	}
	return out.String(), nil
}

type ifState int

const (
	ifNone ifState = iota
	ifSkipping
	ifTaken
)

func preprocess(fsys fs.FS, filename string, defined map[string]bool, depth int, out *strings.Builder) error {
	if depth > maxIncludeDepth {
		return fmt.Errorf("%w: include depth exceeded at %s", core.ErrShaderCompile, filename)
	}
	text, err := readText(fsys, filename)
	if err != nil {
		return err
	}

	state := ifNone
	emit := true
	for number, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "#include "):
			if !emit {
				continue
			}
			name, ok := quoted(trimmed[len("#include "):])
			if !ok {
				core.LogErrorCode(number+1, "malformed include in %s: %s", filename, trimmed)
				continue
			}
			if err := preprocess(fsys, path.Join(path.Dir(filename), name), defined, depth+1, out); err != nil {
				return err
			}
		case strings.HasPrefix(trimmed, "#ifdef "), strings.HasPrefix(trimmed, "#ifndef "):
			if state != ifNone {
				core.LogErrorCode(number+1, "Can't nest defines in shaders (%s)", filename)
				return fmt.Errorf("%w: %s:%d", core.ErrShaderNesting, filename, number+1)
			}
			fields := strings.Fields(trimmed)
			want := strings.HasPrefix(trimmed, "#ifdef ")
			state = ifSkipping
			if len(fields) > 1 && defined[fields[1]] == want {
				state = ifTaken
			}
			emit = state == ifTaken
		case strings.HasPrefix(trimmed, "#else"):
			if state == ifNone {
				core.LogErrorCode(number+1, "#else without #ifdef in %s", filename)
				continue
			}
			emit = state == ifSkipping
			state = ifTaken
		case strings.HasPrefix(trimmed, "#endif"):
			state = ifNone
			emit = true
		default:
			if emit && trimmed != "" {
				out.WriteString(line)
				out.WriteByte('\n')
			}
		}
	}
	return nil
}

func quoted(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '"' {
		return "", false
	}
	end := strings.IndexByte(s[1:], '"')
	if end < 0 {
		return "", false
	}
	return s[1 : end+1], true
}
