package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/Scarjit/fileChunk/blobstore"
	"github.com/Scarjit/fileChunk/chunker"
	"github.com/Scarjit/fileChunk/logger"
	"github.com/Scarjit/fileChunk/restorer"
)

type command struct {
	Flag  *flag.FlagSet
	Usage string
	Help  string
	Run   func([]string) error
}

const (
	name         = "fileChunk"
	baseUsage    = "<command> [<options>] [--] <args>"
	archiveUsage = "[<options>] [--] <source> <data-dir>"
	archiveHelp  = "Archive every file under <source> into <data-dir>"
	restoreUsage = "[<options>] [--] <data-dir> <out-dir> [<path>]"
	restoreHelp  = "Restore <path> (or every archived path, with -all) from <data-dir> into <out-dir>"
)

var (
	logLevel    int
	restoreAll  bool
	archiveCmd  = flag.NewFlagSet("archive", flag.ExitOnError)
	restoreCmd  = flag.NewFlagSet("restore", flag.ExitOnError)
	subcommands = map[string]command{
		archiveCmd.Name(): {archiveCmd, archiveUsage, archiveHelp, archiveMain},
		restoreCmd.Name(): {restoreCmd, restoreUsage, restoreHelp, restoreMain},
	}
)

func init() {
	// init default help message
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s %s\n\ncommands:\n", name, baseUsage)
		for _, s := range subcommands {
			fmt.Printf("  %s	%s\n", s.Flag.Name(), s.Help)
		}
		os.Exit(1)
	}
	// setup subcommands
	for _, s := range subcommands {
		s.Flag.IntVar(&logLevel, "v", 3, "log verbosity level (0-4)")
	}
	restoreCmd.BoolVar(&restoreAll, "all", false, "restore every archived path instead of a single one")
}

func main() {
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		flag.Usage()
	}
	cmd, exists := subcommands[args[0]]
	if !exists {
		fmt.Fprintf(flag.CommandLine.Output(), "error: unknown command %s\n\n", args[0])
		flag.Usage()
	}
	cmd.Flag.Usage = func() {
		fmt.Fprintf(cmd.Flag.Output(), "usage: %s %s %s\n\noptions:\n", name, cmd.Flag.Name(), cmd.Usage)
		cmd.Flag.PrintDefaults()
		os.Exit(1)
	}
	cmd.Flag.Parse(args[1:])
	logger.Init(logLevel)
	if err := cmd.Run(cmd.Flag.Args()); err != nil {
		fmt.Fprintf(cmd.Flag.Output(), "error: %s\n\n", err)
		cmd.Flag.Usage()
	}
}

func archiveMain(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("wrong number of args")
	}
	source := args[0]
	dataDir := args[1]

	if err := os.MkdirAll(dataDir, 0o775); err != nil {
		logger.Fatal(err)
	}
	blobs, err := blobstore.Open(dataDir)
	if err != nil {
		logger.Fatal(err)
	}
	files, err := chunker.WalkFiles(source)
	if err != nil {
		logger.Fatal(err)
	}
	ck := chunker.New(blobs, chunker.Options{})
	if err := ck.AddFiles(source, files); err != nil {
		logger.Error(err)
		return err
	}
	if err := ck.Manifest().Save(dataDir); err != nil {
		logger.Error(err)
		return err
	}
	logger.Infof("archived %d file(s) from %s into %s", len(files), source, dataDir)
	return nil
}

func restoreMain(args []string) error {
	if restoreAll {
		if len(args) != 2 {
			return fmt.Errorf("wrong number of args")
		}
	} else if len(args) != 3 {
		return fmt.Errorf("wrong number of args")
	}
	dataDir := args[0]
	outDir := args[1]

	r, err := restorer.Open(dataDir)
	if err != nil {
		logger.Error(err)
		return err
	}
	if restoreAll {
		if err := r.RestoreAll(outDir); err != nil {
			logger.Error(err)
			return err
		}
		logger.Infof("restored every archived path from %s into %s", dataDir, outDir)
		return nil
	}
	path := args[2]
	if err := r.Restore(path, outDir); err != nil {
		logger.Error(err)
		return err
	}
	logger.Infof("restored %s from %s into %s", path, dataDir, outDir)
	return nil
}
