package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/philtomson/hotwright/internal/batch"
	"github.com/philtomson/hotwright/internal/cache"
	"github.com/philtomson/hotwright/internal/diag"
	"github.com/philtomson/hotwright/internal/emit"
	"github.com/philtomson/hotwright/internal/engine"
	"github.com/philtomson/hotwright/internal/hwctx"
	"github.com/philtomson/hotwright/internal/interp"
	"github.com/philtomson/hotwright/internal/layout"
	"github.com/philtomson/hotwright/internal/session"
	"github.com/philtomson/hotwright/internal/vectorgen"
)

func main() {
	var verbose bool
	var layoutPath string

	rootCmd := &cobra.Command{
		Use:   "hotwright",
		Short: "Compiler from a restricted C-like language to hotstate FPGA microcode",
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose (debug-level) logging")
	rootCmd.PersistentFlags().StringVar(&layoutPath, "layout", "", "Path to a bit-layout YAML file (defaults built in)")

	newLogger := func() *zap.Logger {
		cfg := zap.NewDevelopmentConfig()
		if !verbose {
			cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
		}
		log, err := cfg.Build()
		if err != nil {
			log = zap.NewNop()
		}
		return log
	}

	loadLayout := func() (*layout.Layout, error) {
		if layoutPath == "" {
			return layout.Default(), nil
		}
		return layout.Load(layoutPath)
	}

	var outBase string
	compileCmd := &cobra.Command{
		Use:   "compile <source.hw>",
		Short: "Compile one source file and write microcode images",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			l, err := loadLayout()
			if err != nil {
				return err
			}
			log := newLogger()
			defer log.Sync()

			sess := session.New(log, l)
			base := outBase
			if base == "" {
				base = strings.TrimSuffix(args[0], filepath.Ext(args[0]))
			}
			art, err := sess.CompileAndWrite(string(src), base)
			if err != nil {
				return reportDiag(err)
			}
			fmt.Printf("compiled %s: %d instructions, %d words, elapsed %s\n",
				args[0], len(art.Result.Instructions), len(art.Images.Words), art.Duration)
			return nil
		},
	}
	compileCmd.Flags().StringVar(&outBase, "out", "", "Output file base (default: source name without extension)")

	var numWorkers int
	var cachePath string
	batchCmd := &cobra.Command{
		Use:   "batch <dir>",
		Short: "Compile every .hw file in a directory concurrently",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := loadLayout()
			if err != nil {
				return err
			}
			log := newLogger()
			defer log.Sync()

			entries, err := os.ReadDir(args[0])
			if err != nil {
				return err
			}
			var jobs []batch.Job
			for _, e := range entries {
				if e.IsDir() || filepath.Ext(e.Name()) != ".hw" {
					continue
				}
				path := filepath.Join(args[0], e.Name())
				src, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				base := strings.TrimSuffix(path, filepath.Ext(path))
				jobs = append(jobs, batch.Job{Path: path, Source: string(src), OutBase: base})
			}

			c := cache.New()
			if cachePath != "" {
				if loaded, err := cache.Load(cachePath); err == nil {
					c = loaded
				}
			}

			sess := session.New(log, l)
			pool := batch.NewPool(numWorkers, sess, c)
			pool.Run(jobs)

			for _, o := range pool.Results.Outcomes() {
				switch {
				case o.Err != nil:
					fmt.Printf("FAIL  %s: %v\n", o.Job.Path, o.Err)
				case o.Cached:
					if err := writeOutcome(o); err != nil {
						fmt.Printf("FAIL  %s: writing output: %v\n", o.Job.Path, err)
						continue
					}
					fmt.Printf("CACHE %s\n", o.Job.Path)
				default:
					if err := writeOutcome(o); err != nil {
						fmt.Printf("FAIL  %s: writing output: %v\n", o.Job.Path, err)
						continue
					}
					fmt.Printf("OK    %s: %d instructions\n", o.Job.Path, len(o.Artifact.Result.Instructions))
				}
			}

			compiled, cached, failed := pool.Stats()
			fmt.Printf("\n%d compiled, %d cached, %d failed\n", compiled, cached, failed)

			if cachePath != "" {
				if err := c.Save(cachePath); err != nil {
					return err
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d files failed to compile", failed)
			}
			return nil
		},
	}
	batchCmd.Flags().IntVar(&numWorkers, "workers", 0, "Number of workers (0 = NumCPU)")
	batchCmd.Flags().StringVar(&cachePath, "cache", "", "Build cache file for memoizing unchanged sources")

	var inputsPath string
	simulateCmd := &cobra.Command{
		Use:   "simulate <source.hw>",
		Short: "Compile in-memory and drive the software engine against an input vector trace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if inputsPath == "" {
				return fmt.Errorf("--inputs is required")
			}
			src, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			l, err := loadLayout()
			if err != nil {
				return err
			}
			log := newLogger()
			defer log.Sync()

			sess := session.New(log, l)
			art, err := sess.Compile(string(src))
			if err != nil {
				return reportDiag(err)
			}

			vectors, err := readVectorFile(inputsPath, len(art.Hardware.Inputs))
			if err != nil {
				return err
			}

			initial := initialState(art.Hardware)
			st := initial
			for i, v := range vectors {
				st, err = engine.Run(art.Engine, st, v, len(art.Engine.Words)+1)
				if err != nil {
					return err
				}
				fmt.Printf("cycle %d: in=%v out=%s\n", i, v, st)
			}
			return nil
		},
	}
	simulateCmd.Flags().StringVar(&inputsPath, "inputs", "", "Path to a newline-delimited input vector trace")

	var exhaustive bool
	verifyCmd := &cobra.Command{
		Use:   "verify <source.hw>",
		Short: "Differentially check the compiled engine against the reference interpreter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			l, err := loadLayout()
			if err != nil {
				return err
			}
			log := newLogger()
			defer log.Sync()

			sess := session.New(log, l)
			art, err := sess.Compile(string(src))
			if err != nil {
				return reportDiag(err)
			}

			numInputs := len(art.Hardware.Inputs)
			initial := initialState(art.Hardware)

			var mismatches int
			var total int
			check := func(v engine.Vector) bool {
				total++
				want, err := interp.Run(art.Hardware, art.MainBody, v)
				if err != nil {
					fmt.Printf("interpreter error on %v: %v\n", v, err)
					mismatches++
					return true
				}
				got, err := engine.Run(art.Engine, initial, v, len(art.Engine.Words)+1)
				if err != nil {
					fmt.Printf("engine error on %v: %v\n", v, err)
					mismatches++
					return true
				}
				if !want.Equal(got) {
					fmt.Printf("MISMATCH on %v: interp=%s engine=%s\n", v, want, got)
					mismatches++
				}
				return true
			}

			if exhaustive && numInputs <= vectorgen.MaxExhaustiveInputs {
				vectorgen.Exhaustive(numInputs, check)
			} else {
				if exhaustive {
					fmt.Printf("refusing exhaustive sweep over %d inputs (limit %d); sampling instead\n",
						numInputs, vectorgen.MaxExhaustiveInputs)
				}
				vectorgen.Sampled(numInputs, check)
			}

			fmt.Printf("%d vectors checked, %d mismatches\n", total, mismatches)
			if mismatches > 0 {
				return fmt.Errorf("%d mismatches found", mismatches)
			}
			return nil
		},
	}
	verifyCmd.Flags().BoolVar(&exhaustive, "exhaustive", false, "Check every input combination instead of a fixed sample")

	rootCmd.AddCommand(compileCmd, batchCmd, simulateCmd, verifyCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func writeOutcome(o batch.Outcome) error {
	if o.Artifact == nil || o.Artifact.Images == nil {
		return nil
	}
	return emit.WriteFiles(o.Job.OutBase, o.Artifact.Images)
}

func initialState(hw *hwctx.Context) engine.State {
	st := make(engine.State, hw.NumStateSlots())
	for _, s := range hw.States {
		st[s.StateNumber] = s.InitialValue
	}
	return st
}

func reportDiag(err error) error {
	var de *diag.Error
	if errors.As(err, &de) {
		if de.Pos != nil {
			return fmt.Errorf("%s at %d:%d: %s", de.Kind, de.Pos.Line, de.Pos.Col, de.Message)
		}
		return fmt.Errorf("%s: %s", de.Kind, de.Message)
	}
	return err
}

func readVectorFile(path string, numInputs int) ([]engine.Vector, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var vectors []engine.Vector
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		v := make(engine.Vector, numInputs)
		for i := 0; i < numInputs && i < len(line); i++ {
			v[i] = line[i] == '1'
		}
		vectors = append(vectors, v)
	}
	return vectors, scanner.Err()
}
