// mddtool is a CLI utility for working with MDD vertex cache files.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/Faultbox/meshcache/internal/deform"
	"github.com/Faultbox/meshcache/internal/export"
	"github.com/Faultbox/meshcache/internal/logger"
	"github.com/Faultbox/meshcache/pkg/mdd"
	vmath "github.com/Faultbox/meshcache/pkg/math"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	if err := logger.InitWithFileConfig("warn", logger.FileConfig{}, true); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "info":
		cmdInfo(args)
	case "dump":
		cmdDump(args)
	case "verify":
		cmdVerify(args)
	case "gen":
		cmdGen(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`mddtool - MDD vertex cache utility

Usage:
  mddtool <command> [options]

Commands:
  info <file.mdd>              Show cache header and bounds
  dump <file.mdd> [-frame N]   Print timestamps and vertex positions
  verify <file.mdd>            Check structural integrity
  gen [options]                Generate a procedural test cache

Examples:
  mddtool info bake.mdd
  mddtool dump bake.mdd -frame 0 -n 10
  mddtool gen -o wave.mdd -frames 120 -fps 30`)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func cmdInfo(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: mddtool info <file.mdd>")
		os.Exit(1)
	}

	clip, err := mdd.ParseFile(args[0])
	if err != nil {
		fatalf("%v", err)
	}

	min, max := clip.Bounds()
	fmt.Printf("File:     %s\n", args[0])
	fmt.Printf("Frames:   %d\n", clip.FrameCount())
	fmt.Printf("Points:   %d\n", clip.PointCount())
	fmt.Printf("Duration: %.4fs (%.4fs - %.4fs)\n",
		clip.Duration(), clip.Times[0], clip.Times[len(clip.Times)-1])
	if clip.FrameCount() > 1 {
		step := clip.Duration() / float32(clip.FrameCount()-1)
		if step > 0 {
			fmt.Printf("Rate:     %.2f fps\n", 1/step)
		}
	}
	fmt.Printf("Bounds:   min (%g, %g, %g)  max (%g, %g, %g)\n",
		min.X, min.Y, min.Z, max.X, max.Y, max.Z)
	fmt.Printf("Size:     %d bytes\n", clip.EncodedSize())
}

func cmdDump(args []string) {
	fs := flag.NewFlagSet("dump", flag.ExitOnError)
	frame := fs.Int("frame", -1, "Dump a single frame (-1 = timestamps only)")
	limit := fs.Int("n", 0, "Limit output to N vertices (0 = all)")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: mddtool dump <file.mdd> [-frame N] [-n limit]")
		os.Exit(1)
	}

	clip, err := mdd.ParseFile(fs.Arg(0))
	if err != nil {
		fatalf("%v", err)
	}

	if *frame < 0 {
		for i, t := range clip.Times {
			fmt.Printf("frame %4d  t=%.6f\n", i, t)
		}
		return
	}

	if *frame >= clip.FrameCount() {
		fatalf("frame %d out of range (cache has %d frames)", *frame, clip.FrameCount())
	}

	fmt.Printf("frame %d  t=%.6f\n", *frame, clip.Times[*frame])
	for i, p := range clip.Frames[*frame] {
		if *limit > 0 && i >= *limit {
			fmt.Printf("... %d more\n", clip.PointCount()-*limit)
			break
		}
		fmt.Printf("  %6d  % .6f  % .6f  % .6f\n", i, p.X, p.Y, p.Z)
	}
}

func cmdVerify(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: mddtool verify <file.mdd>")
		os.Exit(1)
	}

	info, err := os.Stat(args[0])
	if err != nil {
		fatalf("%v", err)
	}

	clip, err := mdd.ParseFile(args[0])
	if err != nil {
		fatalf("%v", err)
	}

	problems := 0
	if info.Size() != clip.EncodedSize() {
		fmt.Printf("WARN: file is %d bytes, payload declares %d (trailing data)\n",
			info.Size(), clip.EncodedSize())
		problems++
	}
	for i := 1; i < len(clip.Times); i++ {
		if clip.Times[i] < clip.Times[i-1] {
			fmt.Printf("WARN: timestamps decrease at frame %d (%.6f -> %.6f)\n",
				i, clip.Times[i-1], clip.Times[i])
			problems++
		}
	}

	if problems == 0 {
		fmt.Printf("OK: %d frames, %d points, %d bytes\n",
			clip.FrameCount(), clip.PointCount(), clip.EncodedSize())
		return
	}
	fmt.Printf("%d problem(s) found\n", problems)
	os.Exit(1)
}

func cmdGen(args []string) {
	fs := flag.NewFlagSet("gen", flag.ExitOnError)
	out := fs.String("o", "wave.mdd", "Output cache file")
	frames := fs.Int("frames", 100, "Number of frames to generate")
	fps := fs.Float64("fps", 24, "Timeline frame rate")
	size := fs.Int("size", 16, "Grid resolution per side")
	spacing := fs.Float64("spacing", 0.25, "Grid point spacing")
	noOverwrite := fs.Bool("no-overwrite", false, "Refuse to replace an existing file")
	fs.Parse(args)

	if *frames < 1 {
		fatalf("-frames must be at least 1")
	}

	eval := deform.NewEvaluator(*fps)
	eval.AddObject("wave", deform.NewObject(
		deform.Grid(*size, *size, float32(*spacing)),
		deform.Wave{Amplitude: 0.5, Wavelength: 1.5, Speed: 1, Attack: 0.5},
		deform.Spin{Axis: vmath.Vec3{Y: 1}, RadPerSec: 0.3},
	))

	results, err := export.Run(eval, eval.Objects(), export.Options{
		OutputPath:  *out,
		Format:      export.FormatMDD,
		FrameStart:  1,
		FrameEnd:    *frames,
		NoOverwrite: *noOverwrite,
	})
	if err != nil {
		fatalf("%v", err)
	}
	for _, res := range results {
		if res.Failed() {
			fatalf("%s: %v", res.Object, res.Err)
		}
		fmt.Printf("%s: %d frames, %d points -> %s\n", res.Object, res.Frames, res.Points, res.Path)
	}
}
