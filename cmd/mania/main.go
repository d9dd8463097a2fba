// Command mania is a thin launcher: parse flags, split the positional
// arguments into directories (handed to process.Node.LoadPaths for .bam
// discovery) and source files (compiled and spawned here), build a
// process.Node, and run it.
package main

import (
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"asc.im/mania"
	"asc.im/mania/compiler"
	"asc.im/mania/process"
	"asc.im/mania/reader"
	"asc.im/mania/vm"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "mania [paths...]",
	Short: "Run Mania source files and .bam modules under a cooperative scheduler.",
	RunE:  run,
}

func init() {
	rootCmd.Flags().Int("ticks", 1000, "instructions run per process per scheduler turn")
	rootCmd.Flags().Int("schedulers", 1, "number of scheduler OS threads")
}

func run(cmd *cobra.Command, args []string) error {
	ticks, err := cmd.Flags().GetInt("ticks")
	if err != nil {
		return err
	}
	schedulers, err := cmd.Flags().GetInt("schedulers")
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return fmt.Errorf("mania: expected at least one source file or directory")
	}

	var dirs, files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return err
		}
		if info.IsDir() {
			dirs = append(dirs, arg)
		} else {
			files = append(files, arg)
		}
	}

	scope, err := vm.NewBootScope(os.Stdout)
	if err != nil {
		return err
	}
	node := process.NewNode(process.Config{TickLimit: ticks, Schedulers: schedulers, Paths: dirs}, scope)
	if err := node.LoadPaths(); err != nil {
		return err
	}
	for _, f := range files {
		if err := spawnSourceFile(node, f); err != nil {
			return err
		}
	}

	log.WithFields(log.Fields{"ticks": ticks, "schedulers": schedulers, "paths": args}).Info("mania node starting")
	node.Run()
	return nil
}

// spawnSourceFile reads a plain-text ".mania" source file, compiles it as a
// module, and spawns a process running it — the path not covered by the
// precompiled ".bam" module discovery that process.Node.LoadPaths performs.
func spawnSourceFile(node *process.Node, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	rd := reader.New(f)
	forms, err := readAllForms(rd)
	if err != nil {
		return fmt.Errorf("mania: %s: %w", path, err)
	}
	module := compiler.CompileModule(path, forms)
	node.Spawn(path, module.EntryCode())
	return nil
}

func readAllForms(rd *reader.Reader) ([]mania.Object, error) {
	forms, err := rd.ReadAll()
	if err != nil && err != io.EOF {
		return nil, err
	}
	return forms, nil
}
