package objwriter

import (
	semver "github.com/Masterminds/semver/v3"

	stderrors "github.com/orizon-lang/orizon-objemit/internal/errors"
)

// SupportedContainerVersions is the range of native container ABI versions
// this emitter was built against. Bump alongside any ABI-breaking change to
// the WriterHandle interface.
const SupportedContainerVersions = ">= 1.0.0, < 2.0.0"

// GatedHandleFactory wraps open with a semver check against the handle's
// reported ContainerVersion, refusing to hand back a handle from an
// incompatible container build. A handle that reports "" (unversioned) is
// let through unchecked — the fake and older container backends may not
// implement version reporting.
func GatedHandleFactory(open HandleFactory) HandleFactory {
	constraint, err := semver.NewConstraint(SupportedContainerVersions)
	if err != nil {
		// SupportedContainerVersions is a package constant; a parse failure
		// here is a programmer error caught immediately by any test run.
		panic("objwriter: invalid SupportedContainerVersions constraint: " + err.Error())
	}

	return func(path string, os TargetOS, arch Arch) (WriterHandle, error) {
		w, err := open(path, os, arch)
		if err != nil || w == nil {
			return w, err
		}

		reported := w.ContainerVersion()
		if reported == "" {
			return w, nil
		}

		v, err := semver.NewVersion(reported)
		if err != nil {
			_ = w.Close()
			return nil, stderrors.IncompatibleContainerVersion(reported, SupportedContainerVersions)
		}

		if !constraint.Check(v) {
			_ = w.Close()
			return nil, stderrors.IncompatibleContainerVersion(reported, SupportedContainerVersions)
		}

		return w, nil
	}
}
