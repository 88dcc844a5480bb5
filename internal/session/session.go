// Package session orchestrates one full compilation: lex, parse, analyze
// hardware, lower, resolve, and pack. It threads a zap logger explicitly
// through every stage rather than relying on a package-level global, so
// tests can substitute an observer core and the CLI can substitute a
// human-friendly console encoder.
package session

import (
	"time"

	"go.uber.org/zap"

	"github.com/philtomson/hotwright/internal/ast"
	"github.com/philtomson/hotwright/internal/diag"
	"github.com/philtomson/hotwright/internal/emit"
	"github.com/philtomson/hotwright/internal/engine"
	"github.com/philtomson/hotwright/internal/hwctx"
	"github.com/philtomson/hotwright/internal/layout"
	"github.com/philtomson/hotwright/internal/lower"
	"github.com/philtomson/hotwright/internal/parser"
	"github.com/philtomson/hotwright/internal/resolve"
)

// Artifact is everything a completed compilation produced.
type Artifact struct {
	Hardware   *hwctx.Context
	MainBody   *ast.Block
	Result     *lower.Result
	Images     *emit.Images
	Engine     *engine.Program
	Duration   time.Duration
}

// Session is a single compilation pipeline run.
type Session struct {
	Log    *zap.Logger
	Layout *layout.Layout
}

// New creates a Session. If log is nil, a no-op logger is used.
func New(log *zap.Logger, l *layout.Layout) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	if l == nil {
		l = layout.Default()
	}
	return &Session{Log: log, Layout: l}
}

// Compile runs the full pipeline over src and returns the packed artifact.
func (s *Session) Compile(src string) (*Artifact, error) {
	start := time.Now()
	log := s.Log

	prog, errs := parser.Parse(src)
	if len(errs) > 0 {
		log.Error("parse failed", zap.Int("errorCount", len(errs)), zap.Error(errs[0]))
		return nil, errs[0]
	}
	log.Debug("parsed", zap.Int("topLevelItems", len(prog.Items)))

	hw, err := hwctx.Analyze(prog)
	if err != nil {
		log.Error("hardware analysis failed", zap.Error(err))
		return nil, err
	}
	log.Debug("hardware analyzed", zap.Int("states", len(hw.States)), zap.Int("inputs", len(hw.Inputs)))

	mainBody, err := findMain(prog)
	if err != nil {
		log.Error("no main function", zap.Error(err))
		return nil, err
	}

	lw := lower.New(hw, s.Layout.SwitchOffsetBits)
	result, err := lw.Lower(mainBody)
	if err != nil {
		log.Error("lowering failed", zap.Error(err))
		return nil, err
	}
	log.Debug("lowered", zap.Int("instructions", len(result.Instructions)), zap.Int("pendingJumps", len(result.Pending)))

	if err := resolve.Resolve(result.Instructions, result.Pending); err != nil {
		log.Error("jump resolution failed", zap.Error(err))
		return nil, err
	}

	images, err := emit.Pack(result.Instructions, result.Maxima, hw, s.Layout)
	if err != nil {
		log.Error("packing failed", zap.Error(err))
		return nil, err
	}
	images.SwitchTable = result.SwitchTable

	prog2 := engine.FromLowered(result.Instructions, result.SwitchTable, result.BankSize)

	dur := time.Since(start)
	log.Info("compiled", zap.Duration("elapsed", dur), zap.Int("words", len(images.Words)))

	return &Artifact{
		Hardware: hw,
		MainBody: mainBody,
		Result:   result,
		Images:   images,
		Engine:   prog2,
		Duration: dur,
	}, nil
}

// CompileAndWrite runs Compile and writes the resulting images to outBase.
func (s *Session) CompileAndWrite(src, outBase string) (*Artifact, error) {
	art, err := s.Compile(src)
	if err != nil {
		return nil, err
	}
	if err := emit.WriteFiles(outBase, art.Images); err != nil {
		s.Log.Error("writing output failed", zap.Error(err))
		return nil, err
	}
	return art, nil
}

func findMain(prog *ast.Program) (*ast.Block, error) {
	for _, item := range prog.Items {
		if fn, ok := item.(*ast.FunctionDef); ok && fn.Name == "main" {
			return fn.Body, nil
		}
	}
	return nil, diag.New(diag.UnsupportedConstruct, "source has no main function")
}
