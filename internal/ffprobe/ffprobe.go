// Package ffprobe wraps the embedded ffmpeg/ffprobe WASM binaries from
// codeberg.org/gruf/go-ffmpreg to probe audio duration and cut fixed-length
// segments, without shelling out to a system ffmpeg install.
package ffprobe

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"codeberg.org/gruf/go-ffmpreg/ffmpreg"
	"codeberg.org/gruf/go-ffmpreg/wasm"
	"github.com/tetratelabs/wazero"
)

// Runner executes ffprobe/ffmpeg operations.
type Runner struct{}

// NewRunner builds a Runner.
func NewRunner() *Runner {
	return &Runner{}
}

// Duration returns the duration of an audio file in seconds, using
// ffprobe's default writer with wrappers and keys suppressed, so stdout
// holds only the duration value.
func (r *Runner) Duration(ctx context.Context, path string) (float64, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return 0, err
	}
	dir := filepath.Dir(absPath)

	var stdout bytes.Buffer
	args := wasm.Args{
		Stdout: &stdout,
		Stderr: io.Discard,
		Args: []string{
			"-v", "error",
			"-show_entries", "format=duration",
			"-of", "default=noprint_wrappers=1:nokey=1",
			absPath,
		},
		Config: func(cfg wazero.ModuleConfig) wazero.ModuleConfig {
			return cfg.WithFSConfig(wazero.NewFSConfig().WithDirMount(dir, dir))
		},
	}

	rc, err := ffmpreg.Ffprobe(ctx, args)
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w", err)
	}
	if rc != 0 {
		return 0, fmt.Errorf("ffprobe exited with code %d", rc)
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(stdout.String()), 64)
	if err != nil {
		return 0, fmt.Errorf("parse ffprobe duration: %w", err)
	}
	return duration, nil
}

// Cut extracts a fixed-length segment from srcPath starting at startSecs,
// writing the result to destPath.
func (r *Runner) Cut(ctx context.Context, srcPath, destPath string, startSecs, durationSecs int) error {
	absSrc, err := filepath.Abs(srcPath)
	if err != nil {
		return err
	}
	absDest, err := filepath.Abs(destPath)
	if err != nil {
		return err
	}
	srcDir := filepath.Dir(absSrc)
	destDir := filepath.Dir(absDest)

	args := wasm.Args{
		Stdout: io.Discard,
		Stderr: io.Discard,
		Args: []string{
			"-ss", strconv.Itoa(startSecs),
			"-t", strconv.Itoa(durationSecs),
			"-i", absSrc,
			"-c", "copy",
			"-y",
			absDest,
		},
		Config: func(cfg wazero.ModuleConfig) wazero.ModuleConfig {
			return cfg.WithFSConfig(wazero.NewFSConfig().
				WithDirMount(srcDir, srcDir).
				WithDirMount(destDir, destDir))
		},
	}

	rc, err := ffmpreg.Ffmpeg(ctx, args)
	if err != nil {
		return fmt.Errorf("ffmpeg: %w", err)
	}
	if rc != 0 {
		return fmt.Errorf("ffmpeg exited with code %d", rc)
	}
	return nil
}
