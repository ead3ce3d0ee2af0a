// mddexport bakes a per-frame OBJ sequence into an MDD vertex cache.
package main

import (
	"fmt"
	"os"

	"github.com/Faultbox/meshcache/internal/config"
	"github.com/Faultbox/meshcache/internal/export"
	"github.com/Faultbox/meshcache/internal/logger"
	"github.com/Faultbox/meshcache/internal/objseq"
)

func main() {
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	if cfg.Source.Dir == "" {
		return fmt.Errorf("no source directory configured (use -dir or source.dir)")
	}

	format, err := export.ParseFormat(cfg.Export.Format)
	if err != nil {
		return err
	}

	seq, err := objseq.New(cfg.Source.Dir, cfg.Source.Pattern, cfg.Source.FPS)
	if err != nil {
		return err
	}

	results, err := export.Run(seq, []string{seq.Object()}, export.Options{
		OutputPath:  cfg.Export.OutputPath,
		Format:      format,
		FrameStart:  cfg.Export.FrameStart,
		FrameEnd:    cfg.Export.FrameEnd,
		NoOverwrite: cfg.Export.NoOverwrite,
	})
	if err != nil {
		return err
	}

	failed := 0
	for _, res := range results {
		if res.Failed() {
			failed++
			fmt.Fprintf(os.Stderr, "%s: %v\n", res.Object, res.Err)
			continue
		}
		fmt.Printf("%s: %d frames, %d points -> %s\n", res.Object, res.Frames, res.Points, res.Path)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d objects failed", failed, len(results))
	}
	return nil
}
