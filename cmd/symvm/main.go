package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"

	"github.com/podhmo/symvm"
	"github.com/podhmo/symvm/classfile"
	"github.com/podhmo/symvm/format"
	"github.com/podhmo/symvm/state"
)

func main() {
	var (
		programPath string
		method      string
		configPath  string
		verbose     bool
	)

	flag.StringVar(&programPath, "program", "", "path to the YAML program")
	flag.StringVar(&method, "method", "", "method to explore, as class:descriptor:name")
	flag.StringVar(&configPath, "config", "", "path to a TOML config file")
	flag.BoolVar(&verbose, "v", false, "log at debug level")
	flag.Parse()

	if programPath == "" {
		log.Fatal("-program is required")
	}
	if method == "" {
		log.Fatal("-method is required")
	}

	if err := run(context.Background(), os.Stdout, programPath, method, configPath, verbose); err != nil {
		log.Fatalf("!! %+v", err)
	}
}

func run(ctx context.Context, w io.Writer, programPath, method, configPath string, verbose bool) error {
	config := symvm.DefaultConfig()
	if configPath != "" {
		c, err := symvm.LoadConfig(configPath)
		if err != nil {
			return err
		}
		config = c
	}
	level, err := config.Level()
	if err != nil {
		return err
	}
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	hier, err := classfile.LoadFile(programPath)
	if err != nil {
		return err
	}
	e, err := symvm.New(hier, symvm.WithConfig(config), symvm.WithLogger(logger))
	if err != nil {
		return err
	}
	s, err := e.InitialState(method)
	if err != nil {
		return err
	}

	out := bufio.NewWriter(w)
	defer out.Flush()
	tracer := format.NewTracer()
	err = e.Run(ctx, s, func(s *state.State) error {
		_, err := fmt.Fprintln(out, tracer.Format(s))
		return err
	})
	if errors.Is(err, symvm.ErrStateLimit) {
		logger.WarnContext(ctx, "exploration truncated", slog.Any("error", err))
		return nil
	}
	return err
}
