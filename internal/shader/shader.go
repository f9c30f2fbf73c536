// Package shader checks WGSL sources before they reach the GPU and applies
// the fragment fallback policy: a broken fragment shader is replaced by the
// bundled error shader, a broken vertex shader is fatal.
package shader

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"

	"github.com/tuxx/shaderlock/internal/logging"
)

// Entry points every shader pair must provide.
const (
	VertexEntry   = "vs_main"
	FragmentEntry = "fs_main"
)

var (
	//go:embed wgsl/prelude.wgsl
	Prelude string
	//go:embed wgsl/vertex.wgsl
	Vertex string
	//go:embed wgsl/error.wgsl
	errorFragment string
	//go:embed wgsl/demo.wgsl
	demoFragment string
)

// ErrorFragment is the fallback fragment shader, prelude included.
func ErrorFragment() string { return WithPrelude(errorFragment) }

// DemoFragment is used when no fragment shader is configured.
func DemoFragment() string { return WithPrelude(demoFragment) }

// Stage names the shader stage a source belongs to.
type Stage uint8

const (
	StageVertex Stage = iota
	StageFragment
)

func (s Stage) String() string {
	if s == StageVertex {
		return "vertex"
	}
	return "fragment"
}

func (s Stage) irStage() ir.ShaderStage {
	if s == StageVertex {
		return ir.StageVertex
	}
	return ir.StageFragment
}

// Error is a compile failure for one stage.
type Error struct {
	Stage Stage
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s shader: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ErrMissingEntry is reported when a module lacks the stage entry point.
var ErrMissingEntry = errors.New("missing entry point")

// WithPrelude prepends the binding declarations unless src declares its
// own group 0 bindings. Commented-out declarations do not count.
func WithPrelude(src string) string {
	if declaresGroup0(src) {
		return src
	}
	return Prelude + "\n" + src
}

// declaresGroup0 reports whether the code of src, with comments and
// whitespace removed, carries an @group(0) attribute. WGSL has no string
// literals, so any remaining attribute belongs to a declaration.
func declaresGroup0(src string) bool {
	code := strings.Join(strings.Fields(stripComments(src)), "")
	return strings.Contains(code, "@group(0)")
}

// stripComments removes line comments and nested block comments.
func stripComments(src string) string {
	var b strings.Builder
	depth := 0
	for i := 0; i < len(src); i++ {
		switch {
		case depth == 0 && strings.HasPrefix(src[i:], "//"):
			j := strings.IndexByte(src[i:], '\n')
			if j < 0 {
				return b.String()
			}
			i += j
			b.WriteByte('\n')
		case strings.HasPrefix(src[i:], "/*"):
			depth++
			i++
		case depth > 0 && strings.HasPrefix(src[i:], "*/"):
			depth--
			i++
			b.WriteByte(' ')
		case depth == 0:
			b.WriteByte(src[i])
		}
	}
	return b.String()
}

// Check parses, lowers and validates src and requires entry to exist as an
// entry point of the given stage.
func Check(stage Stage, src, entry string) error {
	ast, err := naga.Parse(src)
	if err != nil {
		return &Error{Stage: stage, Err: err}
	}
	module, err := naga.LowerWithSource(ast, src)
	if err != nil {
		return &Error{Stage: stage, Err: err}
	}
	verrs, err := naga.Validate(module)
	if err != nil {
		return &Error{Stage: stage, Err: err}
	}
	if len(verrs) > 0 {
		errs := make([]error, len(verrs))
		for i := range verrs {
			errs[i] = verrs[i]
		}
		return &Error{Stage: stage, Err: errors.Join(errs...)}
	}
	for _, ep := range module.EntryPoints {
		if ep.Name == entry && ep.Stage == stage.irStage() {
			return nil
		}
	}
	return &Error{Stage: stage, Err: fmt.Errorf("%w %q", ErrMissingEntry, entry)}
}

// Sources is a checked vertex and fragment pair ready for module creation.
type Sources struct {
	Vertex   string
	Fragment string
	// Fallback is set when Fragment is the bundled error shader.
	Fallback bool
}

// Prepare checks both stages. A fragment failure is logged and replaced by
// the error shader; a vertex failure is returned as *Error.
func Prepare(vertex, fragment string, log *slog.Logger) (Sources, error) {
	log = logging.Or(log)

	if err := Check(StageVertex, vertex, VertexEntry); err != nil {
		return Sources{}, err
	}
	out := Sources{Vertex: vertex, Fragment: WithPrelude(fragment)}
	if err := Check(StageFragment, out.Fragment, FragmentEntry); err != nil {
		log.Error("fragment shader failed to compile, using fallback", "err", err)
		out.Fragment = ErrorFragment()
		out.Fallback = true
	}
	return out, nil
}
