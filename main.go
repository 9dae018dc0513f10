/*
Demo application that runs the testbed scene on the engine.
*/
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/umbra/engine"
	"github.com/spaghettifunk/umbra/engine/core"
	"github.com/spaghettifunk/umbra/testbed"
)

func main() {
	configPath := flag.String("config", "", "application config (TOML)")
	backend := flag.String("backend", "", "override the renderer backend: opengl or headless")
	frames := flag.Int("frames", -1, "frames to draw with the headless backend")
	flag.Parse()

	config := engine.DefaultApplicationConfig()
	if *configPath != "" {
		loaded, err := engine.LoadApplicationConfig(*configPath)
		if err != nil {
			core.LogFatal("config: %s", err)
		}
		config = loaded
	}
	if *backend != "" {
		config.Renderer.Backend = *backend
	}
	if *frames >= 0 {
		config.Renderer.Frames = *frames
	}

	tb := testbed.NewTestGame(config)

	e, err := engine.New(tb.Game)
	if err != nil {
		core.LogFatal(err.Error())
	}

	if err := e.Initialize(); err != nil {
		core.LogFatal(err.Error())
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	go func() {
		<-sigCh
		e.Quit()
	}()

	runErr := e.Run()
	if err := e.Shutdown(); err != nil {
		core.LogError(err.Error())
	}
	if runErr != nil {
		core.LogError(runErr.Error())
		os.Exit(1)
	}
}
