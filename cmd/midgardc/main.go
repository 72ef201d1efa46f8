// Command midgardc encodes scheduled Midgard programs into machine code.
//
// Input files hold one CBOR-serialized mir.Program each. The machine code
// for every input is written next to it with a .bin extension, or to the
// path given by -o when there is a single input.
//
// Usage:
//
//	midgardc [options] <input.mir>...
//
// Examples:
//
//	midgardc shader.mir                  # Writes shader.bin
//	midgardc -o out.bin shader.mir       # Writes out.bin
//	midgardc -workers 8 -cache *.mir     # Parallel, with the binary cache
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/gogpu/midgard"
	"github.com/gogpu/midgard/cache"
	"github.com/gogpu/midgard/config"
	"github.com/gogpu/midgard/mir"
)

var (
	output     = flag.String("o", "", "output file (single input only)")
	configPath = flag.String("config", "", "configuration file (default: ./"+config.FileName+" if present)")
	useCache   = flag.Bool("cache", false, "reuse and store encoded binaries in the cache")
	workers    = flag.Int("workers", 0, "programs encoded in parallel (default: from config, or GOMAXPROCS)")
	noValidate = flag.Bool("no-validate", false, "skip program validation")
	verbosity  = flag.Int("v", -1, "log verbosity (default: from config)")
	version    = flag.Bool("version", false, "print version")
)

const midgardVersion = "0.1.0-dev"

var log = commonlog.GetLogger("midgardc")

func main() {
	flag.Usage = usage
	flag.Parse()

	if *version {
		fmt.Printf("midgardc version %s\n", midgardVersion)
		return
	}

	args := flag.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Error: no input file specified")
		usage()
		os.Exit(1)
	}
	if *output != "" && len(args) > 1 {
		fmt.Fprintln(os.Stderr, "Error: -o requires a single input file")
		os.Exit(1)
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	commonlog.Configure(cfg.Log.Verbosity, nil)
	if cfg.Log.Verbosity >= 2 {
		midgard.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	if err := run(context.Background(), cfg, args); err != nil {
		log.Errorf("%s", err)
		os.Exit(1)
	}
}

// loadConfig reads the configuration and applies command-line overrides.
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
	} else {
		cfg, err = config.Find(".")
	}
	if err != nil {
		return nil, err
	}

	if *useCache {
		cfg.Cache.Enabled = true
	}
	if *workers > 0 {
		cfg.Encode.Workers = *workers
	}
	if *noValidate {
		cfg.Encode.Validate = false
	}
	if *verbosity >= 0 {
		cfg.Log.Verbosity = *verbosity
	}
	return cfg, cfg.Validate()
}

func run(ctx context.Context, cfg *config.Config, inputs []string) error {
	programs := make([]*mir.Program, len(inputs))
	for i, path := range inputs {
		p, err := readProgram(path)
		if err != nil {
			return err
		}
		programs[i] = p
	}

	opts := midgard.Options{
		Validate: cfg.Encode.Validate,
		Workers:  cfg.Encode.Workers,
	}

	var results [][]byte
	var err error
	if cfg.Cache.Enabled {
		results, err = encodeCached(ctx, cfg.Cache.Path, programs, opts)
	} else {
		results, err = midgard.EncodeAll(ctx, programs, opts)
	}
	if err != nil {
		return fmt.Errorf("encoding error: %w", err)
	}

	for i, path := range inputs {
		dest := outputPath(path)
		if err := os.WriteFile(dest, results[i], 0o644); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
		log.Infof("encoded %s to %s (%d bytes)", path, dest, len(results[i]))
	}
	return nil
}

// encodeCached encodes programs one after another through the cache.
func encodeCached(ctx context.Context, path string, programs []*mir.Program, opts midgard.Options) ([][]byte, error) {
	c, err := cache.Open(path)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	results := make([][]byte, len(programs))
	for i, p := range programs {
		code, err := midgard.EncodeCached(ctx, c, p, opts)
		if err != nil {
			return nil, fmt.Errorf("program %d: %w", i, err)
		}
		results[i] = code
	}
	return results, nil
}

func readProgram(path string) (*mir.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	p, err := mir.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if p.Name == "" {
		p.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return p, nil
}

func outputPath(input string) string {
	if *output != "" {
		return *output
	}
	return strings.TrimSuffix(input, filepath.Ext(input)) + ".bin"
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: midgardc [options] <input.mir>...\n\n")
	fmt.Fprintf(os.Stderr, "Options:\n")
	flag.PrintDefaults()
	fmt.Fprintf(os.Stderr, "\nExamples:\n")
	fmt.Fprintf(os.Stderr, "  midgardc shader.mir                 Encode to shader.bin\n")
	fmt.Fprintf(os.Stderr, "  midgardc -o out.bin shader.mir      Encode to file\n")
	fmt.Fprintf(os.Stderr, "  midgardc -cache -v 2 *.mir          Use the cache, debug logging\n")
}
