package shell

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
)

var (
	ErrDirStackEmpty = errors.New("directory stack empty")
	ErrNoPrevious    = errors.New("no previous directory")
)

// DirectoryStack tracks the shell's working directory and the directories
// saved with pushd.
type DirectoryStack struct {
	// dirs[0] is the working directory
	dirs     []string
	previous string
}

// NewDirectoryStack creates a stack with only the working directory.
func NewDirectoryStack(cwd string) *DirectoryStack {
	return &DirectoryStack{dirs: []string{filepath.Clean(cwd)}}
}

// Current gets the working directory.
func (d *DirectoryStack) Current() string {
	return d.dirs[0]
}

// Previous gets the directory before the last change, if there was one.
func (d *DirectoryStack) Previous() string {
	return d.previous
}

// Resolve makes path absolute relative to the working directory.
func (d *DirectoryStack) Resolve(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(d.Current(), path)
}

// Cd changes the working directory, "-" goes to the previous directory.
func (d *DirectoryStack) Cd(fs afero.Fs, target string) error {
	dir, err := d.checkDir(fs, target)
	if err != nil {
		return err
	}

	d.previous = d.dirs[0]
	d.dirs[0] = dir
	return nil
}

// Push saves the working directory and changes to target. With no target the
// top two directories are swapped.
func (d *DirectoryStack) Push(fs afero.Fs, target string) error {
	if target == "" {
		if len(d.dirs) < 2 {
			return ErrDirStackEmpty
		}
		d.previous = d.dirs[0]
		d.dirs[0], d.dirs[1] = d.dirs[1], d.dirs[0]
		return nil
	}

	dir, err := d.checkDir(fs, target)
	if err != nil {
		return err
	}

	d.previous = d.dirs[0]
	d.dirs = append([]string{dir}, d.dirs...)
	return nil
}

// Pop removes the working directory from the stack and changes to the next
// one.
func (d *DirectoryStack) Pop() error {
	if len(d.dirs) < 2 {
		return ErrDirStackEmpty
	}

	d.previous = d.dirs[0]
	d.dirs = d.dirs[1:]
	return nil
}

// Dirs lists the stack starting with the working directory.
func (d *DirectoryStack) Dirs() []string {
	return append([]string(nil), d.dirs...)
}

func (d *DirectoryStack) checkDir(fs afero.Fs, target string) (string, error) {
	if target == "-" {
		if d.previous == "" {
			return "", ErrNoPrevious
		}
		target = d.previous
	}

	dir := d.Resolve(target)
	info, err := fs.Stat(dir)
	switch {
	case err != nil:
		return "", fmt.Errorf("%s: no such directory", target)
	case !info.IsDir():
		return "", fmt.Errorf("%s: not a directory", target)
	}
	return dir, nil
}
