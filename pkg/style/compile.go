package style

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	errs "github.com/matzehuels/sldview/pkg/errors"
	"github.com/matzehuels/sldview/pkg/observability"
	"github.com/matzehuels/sldview/pkg/sld"
)

// Kind is the geometry family a style is compiled for.
type Kind string

// Geometry kinds.
const (
	KindVector  Kind = "vector"
	KindRaster  Kind = "raster"
	KindGeneric Kind = "generic"
)

// ParseKind parses a geometry kind name. The empty string is KindVector.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return KindVector, nil
	case KindVector, KindRaster, KindGeneric:
		return k, nil
	default:
		return "", errs.New(errs.ErrCodeInvalidKind, "unknown kind %q (want vector, raster or generic)", s)
	}
}

// Stage is one step of a compile.
type Stage string

// Compile stages, in order. StageFetch is run by callers that retrieve the
// document before compiling it.
const (
	StageFetch    Stage = "fetch"
	StageDecode   Stage = "decode"
	StageParse    Stage = "parse"
	StageValidate Stage = "validate"
	StageExtract  Stage = "extract"
	StageClassify Stage = "classify"
)

// Stop records why a compile ended without a style.
type Stop struct {
	Stage Stage
	Err   error
}

func (s *Stop) Error() string { return fmt.Sprintf("%s: %v", s.Stage, s.Err) }

func (s *Stop) Unwrap() error { return s.Err }

// Compiler turns SLD bytes into a Result. A Compiler holds no per-call
// state and may be shared between goroutines.
type Compiler struct {
	// Mode selects bin or enum classification for discrete vector rules.
	Mode Mode

	// Smooth enables intermediate stops on raster ramps.
	Smooth bool

	Logger *log.Logger
}

// NewCompiler returns a compiler with bin classification and ramp smoothing.
// A nil logger discards output.
func NewCompiler(logger *log.Logger) *Compiler {
	return &Compiler{Mode: ModeBin, Smooth: true, Logger: logger}
}

// Compile runs every stage and returns the style. Any failure yields the
// empty Result; the reason is logged and available from Run.
func (c *Compiler) Compile(ctx context.Context, data []byte, kind Kind) Result {
	res, _ := c.Run(ctx, data, kind)
	return res
}

// Run is Compile that also reports where and why a compile stopped. The
// Result is empty whenever the Stop is non-nil.
func (c *Compiler) Run(ctx context.Context, data []byte, kind Kind) (res Result, stop *Stop) {
	start := time.Now()
	logger := c.logger().With("kind", kind)
	current := StageDecode

	defer func() {
		if r := recover(); r != nil {
			stop = &Stop{Stage: current, Err: errs.New(errs.ErrCodeInternal, "panic: %v", r)}
		}
		if stop != nil {
			res = Result{}
			logger.Warn("compile stopped", "stage", stop.Stage, "reason", stop.Err)
		}
		observability.Pipeline().OnCompileComplete(ctx, string(kind), rendererName(res.Renderer), len(res.Legend), time.Since(start))
	}()

	logf := sld.Logf(func(format string, args ...any) {
		logger.Debug(fmt.Sprintf(format, args...), "stage", current)
	})

	var (
		text  string
		enc   string
		doc   *sld.Document
		rules []sld.Rule
		cmap  sld.ColorMap
	)
	steps := []struct {
		stage Stage
		run   func() error
	}{
		{StageDecode, func() (err error) {
			text, enc, err = sld.Decode(data)
			return err
		}},
		{StageParse, func() (err error) {
			doc, err = sld.ParseText(text)
			if err != nil {
				return err
			}
			doc.Encoding = enc
			logger.Debug("parsed document", "version", doc.Version, "encoding", enc, "repaired", doc.Repaired)
			return nil
		}},
		{StageValidate, func() error {
			return sld.Validate(doc)
		}},
		{StageExtract, func() error {
			switch kind {
			case KindVector, KindGeneric:
				rules = sld.ExtractRules(doc, logf)
				if len(rules) == 0 {
					return errs.New(errs.ErrCodeNoStyle, "no rule with a drawable colored symbolizer")
				}
			case KindRaster:
				cmap = sld.ExtractColorMap(doc, logf)
				if len(cmap.Entries) == 0 {
					return errs.New(errs.ErrCodeNoStyle, "no usable color map entries")
				}
			default:
				return errs.New(errs.ErrCodeInvalidKind, "unknown kind %q", kind)
			}
			return nil
		}},
		{StageClassify, func() error {
			switch kind {
			case KindVector:
				res = ClassifyWith(rules, c.Mode)
			case KindGeneric:
				res = Result{Legend: Legend(rules)}
			case KindRaster:
				res = FromColorMap(cmap, c.Smooth)
			}
			if res.Empty() {
				return errs.New(errs.ErrCodeNoStyle, "classification produced no style")
			}
			return nil
		}},
	}

	for _, step := range steps {
		current = step.stage
		if err := ctx.Err(); err != nil {
			return Result{}, &Stop{Stage: step.stage, Err: errs.Wrap(errs.ErrCodeTimeout, err, "compile cancelled")}
		}
		stepStart := time.Now()
		err := step.run()
		observability.Pipeline().OnStageComplete(ctx, string(step.stage), time.Since(stepStart), err)
		if err != nil {
			return Result{}, &Stop{Stage: step.stage, Err: err}
		}
	}

	logger.Debug("compiled style", "renderer", rendererName(res.Renderer), "legend", len(res.Legend))
	return res, nil
}

func (c *Compiler) logger() *log.Logger {
	if c.Logger == nil {
		return log.New(io.Discard)
	}
	return c.Logger
}

func rendererName(r Renderer) string {
	if r == nil {
		return ""
	}
	return string(r.Kind())
}
