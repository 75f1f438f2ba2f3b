// pre_processor.go implements the WGSL pre-processor. It replaces @oxy: annotations with
// registered struct sources or generated binding declarations and collects the declarations
// so callers can look up which binding carries which struct.
package shader

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-pathtracer/engine/light"
	"github.com/Carmen-Shannon/oxy-pathtracer/engine/scene"
)

// StructSource registers a WGSL struct definition under an annotation key.
type StructSource struct {
	// Key is the argument used in include and group annotations.
	Key AnnotationArg
	// Source is the WGSL text injected by include annotations.
	Source string
	// Type is the WGSL type name emitted in generated group declarations.
	Type string
}

type preProcessor struct {
	structRegistry       map[AnnotationArg]StructSource
	addressSpaceRegistry map[AnnotationArg]string

	// declarations is reset at the start of each Process call.
	declarations []Annotation
}

// PreProcessor expands @oxy: annotations in WGSL source.
type PreProcessor interface {
	// Process replaces include annotations with struct sources and group annotations with
	// generated @group/@binding declarations.
	//
	// Parameters:
	//   - source: the annotated WGSL source
	//
	// Returns:
	//   - string: the expanded WGSL source
	//   - error: an error if an annotation is malformed or references an unregistered struct
	Process(source string) (string, error)

	// Declarations returns the group annotations collected by the last Process call, in source order.
	//
	// Returns:
	//   - []Annotation: the collected declarations
	Declarations() []Annotation
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a pre-processor with the sphere and directional light structs registered.
//
// Parameters:
//   - structs: additional struct sources; an entry with an existing key replaces it
//
// Returns:
//   - PreProcessor: a ready-to-use pre-processor
func NewPreProcessor(structs ...StructSource) PreProcessor {
	p := &preProcessor{
		structRegistry: map[AnnotationArg]StructSource{
			AnnotationArgSphere:           {Key: AnnotationArgSphere, Source: scene.GPUSphereSource, Type: "Sphere"},
			AnnotationArgDirectionalLight: {Key: AnnotationArgDirectionalLight, Source: light.GPUDirectionalLightSource, Type: "DirectionalLight"},
		},
		addressSpaceRegistry: map[AnnotationArg]string{
			annotationArgStorageTypeUniform:   "var<uniform>",
			annotationArgStorageTypeRead:      "var<storage, read>",
			annotationArgStorageTypeReadWrite: "var<storage, read_write>",
		},
	}
	for _, s := range structs {
		p.structRegistry[s.Key] = s
	}
	return p
}

func (p *preProcessor) Process(source string) (string, error) {
	p.declarations = p.declarations[:0]

	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))
	included := make(map[AnnotationArg]bool)

	for i, line := range lines {
		a, err := parseAnnotation(line, i+1)
		if err != nil {
			return "", err
		}
		if a == nil {
			out = append(out, line)
			continue
		}

		switch a.Type {
		case annotationTypeInclude:
			entry, ok := p.structRegistry[a.Args[0]]
			if !ok {
				return "", fmt.Errorf("line %d: unknown @oxy include argument %q", i+1, a.Args[0])
			}
			// a second include of the same struct would redeclare it
			if !included[a.Args[0]] {
				out = append(out, entry.Source)
				included[a.Args[0]] = true
			}
		case AnnotationTypeBindingGroup:
			addrSpace := p.addressSpaceRegistry[a.Args[0]]
			varName := string(a.Args[1])
			var wgslType string
			if inner, ok := strings.CutPrefix(string(a.Args[2]), "array<"); ok {
				inner = strings.TrimSuffix(inner, ">")
				entry, ok := p.structRegistry[AnnotationArg(inner)]
				if !ok {
					return "", fmt.Errorf("line %d: unknown array element type %q in @oxy group annotation", i+1, inner)
				}
				wgslType = fmt.Sprintf("array<%s>", entry.Type)
			} else {
				entry, ok := p.structRegistry[a.Args[2]]
				if !ok {
					return "", fmt.Errorf("line %d: unknown struct type %q in @oxy group annotation", i+1, a.Args[2])
				}
				wgslType = entry.Type
			}

			out = append(out, fmt.Sprintf("@group(%d) @binding(%d) %s %s: %s;", *a.Group, *a.Binding, addrSpace, varName, wgslType))
			p.declarations = append(p.declarations, *a)
		default:
			return "", fmt.Errorf("line %d: unknown annotation type %q", i+1, a.Type)
		}
	}
	return strings.Join(out, "\n"), nil
}

func (p *preProcessor) Declarations() []Annotation {
	return p.declarations
}
