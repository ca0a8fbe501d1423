package lock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/quantmind-br/pkgtx/internal/fsops"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"golang.org/x/sys/unix"
)

// ErrLocked is returned when another process holds the lock and waiting is disabled
var ErrLocked = errors.New("package database is locked by another process")

// DefaultPollInterval is used when Options.PollInterval is zero
const DefaultPollInterval = 250 * time.Millisecond

// Options controls how Lock behaves when the lock is busy
type Options struct {
	Wait         bool
	PollInterval time.Duration
}

type fdFile interface {
	afero.File
	Fd() uintptr
}

// FileLock is an exclusive advisory lock (flock) on a file.
// Only one FileLock per path can be held at a time, across processes.
type FileLock struct {
	fs     afero.Fs
	path   string
	opts   Options
	logger *zerolog.Logger

	mu   sync.Mutex
	file fdFile
}

// NewFileLock creates an unlocked FileLock for path. fs must be backed by the OS
// filesystem because flock needs a real file descriptor.
func NewFileLock(fs afero.Fs, path string, opts Options, logger *zerolog.Logger) *FileLock {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &FileLock{fs: fs, path: path, opts: opts, logger: logger}
}

// Path returns the lock file path
func (l *FileLock) Path() string {
	return l.path
}

// Lock acquires the lock. With Wait set it polls until the lock is free or ctx
// is done, otherwise it returns ErrLocked immediately.
func (l *FileLock) Lock(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		return fmt.Errorf("lock %s already held", l.path)
	}

	if err := fsops.EnsureParentDir(l.fs, l.path); err != nil {
		return err
	}

	f, err := l.fs.OpenFile(l.path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}
	file, ok := f.(fdFile)
	if !ok {
		f.Close()
		return fmt.Errorf("open lock file: %s is not backed by a file descriptor", l.path)
	}

	announced := false
	for {
		err := unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			break
		}
		if !errors.Is(err, unix.EWOULDBLOCK) {
			file.Close()
			return fmt.Errorf("flock %s: %w", l.path, err)
		}

		holder := readHolder(file)
		if !l.opts.Wait {
			file.Close()
			if holder != "" {
				return fmt.Errorf("%w (pid %s)", ErrLocked, holder)
			}
			return ErrLocked
		}
		if !announced {
			l.logger.Info().Str("path", l.path).Str("holder", holder).Msg("waiting for package database lock")
			announced = true
		}

		select {
		case <-ctx.Done():
			file.Close()
			return fmt.Errorf("wait for lock: %w", ctx.Err())
		case <-time.After(l.opts.PollInterval):
		}
	}

	if err := file.Truncate(0); err == nil {
		_, _ = file.WriteAt([]byte(strconv.Itoa(os.Getpid())+"\n"), 0)
	}

	l.file = file
	l.logger.Debug().Str("path", l.path).Msg("lock acquired")
	return nil
}

// Unlock releases the lock. Unlocking a lock that is not held is a no-op.
func (l *FileLock) Unlock() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	file := l.file
	l.file = nil

	_ = file.Truncate(0)
	unlockErr := unix.Flock(int(file.Fd()), unix.LOCK_UN)
	closeErr := file.Close()
	if unlockErr != nil {
		return fmt.Errorf("unlock %s: %w", l.path, unlockErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close lock file: %w", closeErr)
	}
	l.logger.Debug().Str("path", l.path).Msg("lock released")
	return nil
}

// Held reports whether this FileLock currently holds the lock
func (l *FileLock) Held() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file != nil
}

func readHolder(f afero.File) string {
	buf := make([]byte, 32)
	n, _ := f.ReadAt(buf, 0)
	return strings.TrimSpace(string(buf[:n]))
}
