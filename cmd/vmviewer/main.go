// Command vmviewer creates, inspects, and resizes a vmkit mapped
// storage file from the shell — a thin wrapper over vm/storage for
// manual testing and scripting, not a production tool.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joshuapare/vmkit/internal/vmlog"
	"github.com/joshuapare/vmkit/vm/flags"
	"github.com/joshuapare/vmkit/vm/storage"
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage: vmviewer <command> [flags]")
	fmt.Fprintln(os.Stderr, "commands: create, stat, grow, shrink")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var verbose bool
	for _, a := range os.Args[1:] {
		if a == "-v" || a == "--verbose" {
			verbose = true
		}
	}
	if verbose {
		vmlog.Init(vmlog.Options{Writer: os.Stderr, Level: slog.LevelDebug})
	}

	var err error
	switch os.Args[1] {
	case "create":
		err = runCreate(os.Args[2:])
	case "stat":
		err = runStat(os.Args[2:])
	case "grow":
		err = runResize(os.Args[2:], true)
	case "shrink":
		err = runResize(os.Args[2:], false)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "vmviewer: %v\n", err)
		os.Exit(1)
	}
}

func headerInfo(userHeaderSize uint) storage.HeaderInfo {
	return storage.HeaderInfo{UserHeaderSize: uint32(userHeaderSize)}
}

func runCreate(args []string) error {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	path := fs.String("path", "", "storage file path")
	size := fs.Uint64("size", 0, "initial data size in bytes")
	headerSize := fs.Uint("header-size", 0, "user header size in bytes")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *path == "" {
		return fmt.Errorf("-path is required")
	}

	s, err := storage.MapFile(*path, flags.CreateNew, headerInfo(*headerSize))
	if err != nil {
		return fmt.Errorf("create: %w", err)
	}
	defer s.Close()

	if *size > 0 {
		if err := s.GrowTo(*size); err != nil {
			return fmt.Errorf("create: initial grow: %w", err)
		}
	}
	printStats(*path, s)
	return nil
}

func runStat(args []string) error {
	fs := flag.NewFlagSet("stat", flag.ExitOnError)
	path := fs.String("path", "", "storage file path")
	headerSize := fs.Uint("header-size", 0, "user header size in bytes, must match the file's")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *path == "" {
		return fmt.Errorf("-path is required")
	}

	s, err := storage.MapFile(*path, flags.OpenExisting, headerInfo(*headerSize))
	if err != nil {
		return fmt.Errorf("stat: %w", err)
	}
	defer s.Close()

	printStats(*path, s)
	return nil
}

func runResize(args []string, grow bool) error {
	name := "grow"
	if !grow {
		name = "shrink"
	}
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	path := fs.String("path", "", "storage file path")
	size := fs.Uint64("size", 0, "new data size in bytes")
	headerSize := fs.Uint("header-size", 0, "user header size in bytes, must match the file's")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *path == "" {
		return fmt.Errorf("-path is required")
	}

	s, err := storage.MapFile(*path, flags.OpenExisting, headerInfo(*headerSize))
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	defer s.Close()

	if err := s.Resize(*size); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	printStats(*path, s)
	return nil
}

func printStats(path string, s *storage.Storage) {
	fmt.Printf("%s\n", path)
	fmt.Printf("  size:          %d bytes\n", s.Size())
	fmt.Printf("  vm capacity:   %d bytes\n", s.VMCapacity())
	fmt.Printf("  fs capacity:   %d bytes\n", s.FSCapacity())
	fmt.Printf("  mapped size:   %d bytes\n", s.MappedSize())
	fmt.Printf("  storage size:  %d bytes\n", s.StorageSize())
}
