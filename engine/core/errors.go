package core

import (
	"errors"
)

var (
	ErrNoShader              = errors.New("no shader assigned")
	ErrNoProgram             = errors.New("shader has no compiled program")
	ErrShaderCompile         = errors.New("shader compilation failed")
	ErrProgramLink           = errors.New("shader program linking failed")
	ErrShaderNesting         = errors.New("can't nest defines in shaders")
	ErrFramebufferIncomplete = errors.New("framebuffer incomplete")
	ErrTextureDecode         = errors.New("couldn't decode image")
	ErrAssetNotFound         = errors.New("asset not found")
	ErrUnknownAssetType      = errors.New("unknown asset type")
	ErrUnknownBackend        = errors.New("unknown renderer backend")
	ErrWatcherClosed         = errors.New("asset watcher already closed")
	ErrUnknown               = errors.New("unknown")
)
