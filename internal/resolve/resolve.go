// Package resolve canonicalizes user-supplied paths. Symlinks in the
// final path element are NOT followed — the link itself is the target of
// deletion and restoration — but symlinks in parent components are
// resolved, so a link pointing into a protected directory cannot be used
// to evade the protection guard.
package resolve

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Kind classifies a resolved path.
type Kind string

// Resolved path kinds. KindOther covers sockets, devices, and pipes,
// which the engine refuses to stage.
const (
	KindFile    Kind = "file"
	KindDir     Kind = "dir"
	KindSymlink Kind = "symlink"
	KindOther   Kind = "other"
	KindAbsent  Kind = "absent"
)

// Resolved is the canonical form of one user-supplied path argument.
type Resolved struct {
	// Arg is the argument as the user typed it, for error messages.
	Arg string

	// Path is the absolute, lexically normalized path with parent
	// symlinks resolved. The final element is kept literal.
	Path string

	// Kind of the object at Path (KindAbsent if nothing is there).
	Kind Kind

	// Exists reports whether the object is present (lstat succeeded).
	Exists bool

	// Mode holds the full lstat mode when the object exists.
	Mode fs.FileMode

	// Size is the lstat size (regular files only; directory payload
	// sizes are summed at stage time).
	Size int64

	// Device identifies the volume holding the object, for the
	// same-volume rename fast path. Zero on platforms without device
	// ids; absent or identical values are treated as "same volume".
	Device uint64
}

// Resolve canonicalizes one path argument. Empty input is rejected. A
// nonexistent path resolves successfully with Exists=false — the caller
// decides whether absence is an error.
func Resolve(arg string) (*Resolved, error) {
	if arg == "" {
		return nil, fmt.Errorf("empty path")
	}

	abs, err := filepath.Abs(arg)
	if err != nil {
		return nil, fmt.Errorf("resolving %q: %w", arg, err)
	}

	canonical, err := canonicalize(abs)
	if err != nil {
		return nil, fmt.Errorf("resolving %q: %w", arg, err)
	}

	r := &Resolved{Arg: arg, Path: canonical, Kind: KindAbsent}

	info, err := os.Lstat(canonical)
	if err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}

		return nil, fmt.Errorf("examining %q: %w", canonical, err)
	}

	r.Exists = true
	r.Mode = info.Mode()
	r.Size = info.Size()
	r.Kind = kindOf(info.Mode())
	r.Device = deviceOf(info)

	return r, nil
}

// canonicalize resolves symlinks in the parent directory while keeping
// the final element literal. When the parent does not exist either, the
// lexically cleaned path is returned as-is.
func canonicalize(abs string) (string, error) {
	cleaned := filepath.Clean(abs)

	dir := filepath.Dir(cleaned)
	base := filepath.Base(cleaned)

	realDir, err := filepath.EvalSymlinks(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return cleaned, nil
		}

		return "", err
	}

	// Root resolves to itself; Join handles the "/" + base case.
	if base == string(filepath.Separator) {
		return realDir, nil
	}

	return filepath.Join(realDir, base), nil
}

// kindOf maps a file mode to the resolver's kind classification.
func kindOf(mode fs.FileMode) Kind {
	switch {
	case mode&fs.ModeSymlink != 0:
		return KindSymlink
	case mode.IsDir():
		return KindDir
	case mode.IsRegular():
		return KindFile
	default:
		return KindOther
	}
}
