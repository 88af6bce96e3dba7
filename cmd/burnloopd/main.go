// Command burnloopd runs the engraving controller daemon.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"burnloop/internal/config"
	"burnloop/internal/daemonrun"
)

func main() {
	var (
		configFlag = flag.String("config", "", "configuration file path")
		socketFlag = flag.String("socket", "", "path to the daemon IPC socket")
		levelFlag  = flag.String("log-level", "", "log level override (debug, info, warn, error)")
	)
	flag.Parse()

	cfg, _, _, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	err = daemonrun.Run(context.Background(), cfg, daemonrun.Options{
		LogLevel:   *levelFlag,
		SocketPath: *socketFlag,
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
