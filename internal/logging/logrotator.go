// Package logging writes output feeds to daily files and compresses the
// files of previous days.
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/sirupsen/logrus"
)

const dateLayout = "2006-01-02"

// ErrClosed is returned when writing to a closed rotator
var ErrClosed = errors.New("log rotator is closed")

// RotatorConfig describes where and how rotated files are written.
// Files are named <Prefix>_<date><Extension>.
type RotatorConfig struct {
	Dir       string
	Prefix    string
	Extension string
	UseUTC    bool
}

// LogRotator is an io.Writer over one file per day. When the day changes
// the previous file is closed and gzip compressed in the background.
type LogRotator struct {
	config      RotatorConfig
	logger      *logrus.Logger
	now         func() time.Time
	currentFile *os.File
	currentDate string
	mutex       sync.RWMutex
	compressing sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewLogRotator creates the output directory and opens today's file
func NewLogRotator(config RotatorConfig, logger *logrus.Logger) (*LogRotator, error) {
	return newLogRotator(config, logger, time.Now)
}

func newLogRotator(config RotatorConfig, logger *logrus.Logger, now func() time.Time) (*LogRotator, error) {
	if config.Prefix == "" {
		config.Prefix = "sky1090"
	}
	if config.Extension == "" {
		config.Extension = ".log"
	}

	if err := os.MkdirAll(config.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	rotator := &LogRotator{
		config: config,
		logger: logger,
		now:    now,
		ctx:    ctx,
		cancel: cancel,
	}

	rotator.mutex.Lock()
	err := rotator.rotateLocked(rotator.today())
	rotator.mutex.Unlock()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize log file: %w", err)
	}

	return rotator, nil
}

// Start checks for a date change once a minute until ctx is done or the
// rotator is closed. Writes also rotate, so Start only matters for idle feeds.
func (r *LogRotator) Start(ctx context.Context) {
	r.logger.WithField("dir", r.config.Dir).Info("Starting log rotator")

	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Log rotator stopping")
			return
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.checkRotation()
		}
	}
}

func (r *LogRotator) today() string {
	now := r.now()
	if r.config.UseUTC {
		now = now.UTC()
	}
	return now.Format(dateLayout)
}

func (r *LogRotator) fileName(date string) string {
	return filepath.Join(r.config.Dir, fmt.Sprintf("%s_%s%s", r.config.Prefix, date, r.config.Extension))
}

// checkRotation rotates when the date has changed
func (r *LogRotator) checkRotation() {
	date := r.today()

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.currentFile == nil || r.currentDate == date {
		return
	}

	r.logger.WithFields(logrus.Fields{
		"old_date": r.currentDate,
		"new_date": date,
	}).Info("Rotating log file")

	if err := r.rotateLocked(date); err != nil {
		r.logger.WithError(err).Error("Failed to rotate log file")
	}
}

// rotateLocked closes the current file, queues it for compression and
// opens the file for date. The caller holds the write lock.
func (r *LogRotator) rotateLocked(date string) error {
	if r.currentFile != nil && r.currentDate == date {
		return nil
	}

	if r.currentFile != nil {
		if err := r.currentFile.Close(); err != nil {
			r.logger.WithError(err).Error("Failed to close old log file")
		}

		oldDate := r.currentDate
		r.compressing.Add(1)
		go func() {
			defer r.compressing.Done()
			r.compressLogFile(oldDate)
		}()
	}

	path := r.fileName(date)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		r.currentFile = nil
		return fmt.Errorf("failed to create log file %s: %w", path, err)
	}

	r.currentFile = file
	r.currentDate = date

	r.logger.WithField("file", path).Info("Created new log file")

	return nil
}

// compressLogFile gzips the file of the given date and removes the original
func (r *LogRotator) compressLogFile(date string) {
	logFile := r.fileName(date)
	gzipFile := logFile + ".gz"

	if _, err := os.Stat(logFile); os.IsNotExist(err) {
		r.logger.WithField("file", logFile).Debug("Log file doesn't exist, skipping compression")
		return
	}

	if err := gzipFileTo(logFile, gzipFile); err != nil {
		r.logger.WithError(err).WithField("file", logFile).Error("Failed to compress log file")
		_ = os.Remove(gzipFile)
		return
	}

	if err := os.Remove(logFile); err != nil {
		r.logger.WithError(err).WithField("file", logFile).Error("Failed to remove original log file")
		return
	}

	r.logger.WithField("file", gzipFile).Info("Log file compressed successfully")
}

func gzipFileTo(source, target string) error {
	src, err := os.Open(source)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(target)
	if err != nil {
		return err
	}
	defer dst.Close()

	gzWriter := gzip.NewWriter(dst)
	gzWriter.Name = filepath.Base(source)
	gzWriter.ModTime = time.Now()

	if _, err := io.Copy(gzWriter, src); err != nil {
		return err
	}
	if err := gzWriter.Close(); err != nil {
		return err
	}

	return dst.Close()
}

// Write appends p to today's file, rotating first if the date changed
func (r *LogRotator) Write(p []byte) (int, error) {
	date := r.today()

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.currentFile == nil {
		return 0, ErrClosed
	}
	if r.currentDate != date {
		if err := r.rotateLocked(date); err != nil {
			return 0, err
		}
	}

	return r.currentFile.Write(p)
}

// GetWriter returns the rotator as a writer, or an error once closed
func (r *LogRotator) GetWriter() (io.Writer, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if r.currentFile == nil {
		return nil, ErrClosed
	}

	return r, nil
}

// Close closes the current file and waits for pending compressions
func (r *LogRotator) Close() error {
	r.logger.WithField("dir", r.config.Dir).Info("Closing log rotator")

	r.cancel()

	r.mutex.Lock()
	var err error
	if r.currentFile != nil {
		if err = r.currentFile.Close(); err != nil {
			r.logger.WithError(err).Error("Failed to close current log file")
		}
		r.currentFile = nil
	}
	r.mutex.Unlock()

	r.compressing.Wait()
	return err
}

// GetCurrentLogFile returns the current log file path
func (r *LogRotator) GetCurrentLogFile() string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if r.currentDate == "" {
		return ""
	}

	return r.fileName(r.currentDate)
}

// GetLogFiles returns every file of this feed, compressed ones included
func (r *LogRotator) GetLogFiles() ([]string, error) {
	pattern := filepath.Join(r.config.Dir, fmt.Sprintf("%s_*%s*", r.config.Prefix, r.config.Extension))
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to list log files: %w", err)
	}

	return files, nil
}

// CleanupOldLogs removes files of this feed not modified for maxDays days
func (r *LogRotator) CleanupOldLogs(maxDays int) error {
	if maxDays <= 0 {
		return fmt.Errorf("maxDays must be positive")
	}

	files, err := r.GetLogFiles()
	if err != nil {
		return fmt.Errorf("failed to get log files: %w", err)
	}

	cutoff := r.now().AddDate(0, 0, -maxDays)
	current := r.GetCurrentLogFile()

	removed := 0
	for _, file := range files {
		if file == current || !strings.HasPrefix(filepath.Base(file), r.config.Prefix+"_") {
			continue
		}

		info, err := os.Stat(file)
		if err != nil {
			r.logger.WithError(err).WithField("file", file).Warn("Failed to stat log file")
			continue
		}

		if info.ModTime().Before(cutoff) {
			if err := os.Remove(file); err != nil {
				r.logger.WithError(err).WithField("file", file).Error("Failed to remove old log file")
			} else {
				r.logger.WithField("file", file).Info("Removed old log file")
				removed++
			}
		}
	}

	r.logger.WithField("count", removed).Info("Cleaned up old log files")
	return nil
}
