package container

import (
	stderrors "github.com/orizon-lang/orizon-objemit/internal/errors"
	"github.com/orizon-lang/orizon-objemit/internal/objwriter"
)

// Open constructs a WriterHandle backed by the native format for target and
// arch, matching the objwriter.HandleFactory signature. This is the seam
// where a real toolchain would dlopen/cgo into its native container
// library; this package satisfies the same ABI directly in Go.
func Open(path string, target objwriter.TargetOS, arch objwriter.Arch) (objwriter.WriterHandle, error) {
	switch target {
	case objwriter.Windows:
		return newWriter(path, arch, encodeCOFF), nil
	case objwriter.Linux:
		return newWriter(path, arch, encodeELF), nil
	case objwriter.OSX:
		return newWriter(path, arch, encodeMachO), nil
	default:
		return nil, stderrors.ContainerInitFailed(path, errUnknownTarget{target})
	}
}

type errUnknownTarget struct{ target objwriter.TargetOS }

func (e errUnknownTarget) Error() string {
	return "unknown target OS: " + e.target.String()
}
