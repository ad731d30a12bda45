package ffmpeg

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pkg/errors"
)

// sidecarDir holds bundled binaries shipped next to the executable
var sidecarDir = filepath.Join("imageio_ffmpeg", "binaries")

// ResolveBinary locates name ("ffmpeg" or "ffprobe"). An explicit path wins;
// otherwise a binary next to the running executable is preferred over PATH.
func ResolveBinary(name, explicit string) (string, error) {
	exeDir := ""
	if exe, err := os.Executable(); err == nil {
		exeDir = filepath.Dir(exe)
	}
	return resolveBinary(name, explicit, exeDir, exec.LookPath)
}

func resolveBinary(name, explicit, exeDir string, lookPath func(string) (string, error)) (string, error) {
	explicit = strings.TrimSpace(explicit)
	if explicit != "" {
		if strings.ContainsRune(explicit, filepath.Separator) {
			info, err := os.Stat(explicit)
			if err != nil {
				return "", errors.Wrapf(err, "%s binary %q", name, explicit)
			}
			if !isExecutable(info) {
				return "", errors.Errorf("%s binary %q is not executable", name, explicit)
			}
			return explicit, nil
		}
		resolved, err := lookPath(explicit)
		if err != nil {
			return "", errors.Wrapf(err, "%s binary %q", name, explicit)
		}
		return resolved, nil
	}

	if exeDir != "" {
		if candidate, ok := sidecarCandidate(exeDir, name); ok {
			return candidate, nil
		}
	}

	resolved, err := lookPath(exeName(name))
	if err != nil {
		return "", errors.Errorf("%s not found: install it, put it next to the executable or set its path in the config", name)
	}
	return resolved, nil
}

func sidecarCandidate(exeDir, name string) (string, bool) {
	direct := filepath.Join(exeDir, exeName(name))
	if info, err := os.Stat(direct); err == nil && isExecutable(info) {
		return direct, true
	}

	// Bundled builds carry a platform/version suffix, e.g. ffmpeg-win-x86_64-v7.1.exe
	matches, _ := filepath.Glob(filepath.Join(exeDir, sidecarDir, name+"*"))
	for _, m := range matches {
		if info, err := os.Stat(m); err == nil && isExecutable(info) {
			return m, true
		}
	}
	return "", false
}

func exeName(name string) string {
	if runtime.GOOS == "windows" {
		return name + ".exe"
	}
	return name
}

func isExecutable(info os.FileInfo) bool {
	if !info.Mode().IsRegular() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
