// Package report scans a run's logs for errors and warnings after every job
// has finished.
package report

import (
	"bufio"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Names of the files the aggregator writes into the log directory. They are
// never scanned.
const (
	ErrorsFile   = "errors.log"
	WarningsFile = "warnings.log"
	LogExt       = ".log"
)

// Patterns matched case-insensitively against every log line.
const (
	ErrorPattern   = "error"
	WarningPattern = "warning"
)

// maxLineSize bounds a single scanned line; compiler diagnostics for
// template-heavy code get long.
const maxLineSize = 4 << 20

// Report is the result of one aggregation pass.
type Report struct {
	LogDir       string
	Errors       int
	Warnings     int
	FilesScanned int
	ErrorsPath   string
	WarningsPath string
}

// Aggregate scans every *.log under logDir (excluding its own output files)
// and writes errors.log and warnings.log with path:line:content entries.
func Aggregate(logDir string) (*Report, error) {
	files, err := logFiles(logDir)
	if err != nil {
		return nil, err
	}

	r := &Report{
		LogDir:       logDir,
		ErrorsPath:   filepath.Join(logDir, ErrorsFile),
		WarningsPath: filepath.Join(logDir, WarningsFile),
	}

	errOut, err := os.Create(r.ErrorsPath)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", ErrorsFile, err)
	}
	defer errOut.Close()
	warnOut, err := os.Create(r.WarningsPath)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", WarningsFile, err)
	}
	defer warnOut.Close()

	errW := bufio.NewWriter(errOut)
	warnW := bufio.NewWriter(warnOut)

	for _, path := range files {
		e, w, err := scanFile(path, errW, warnW)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", path, err)
		}
		r.Errors += e
		r.Warnings += w
		r.FilesScanned++
	}

	if err := errW.Flush(); err != nil {
		return nil, err
	}
	if err := warnW.Flush(); err != nil {
		return nil, err
	}
	return r, nil
}

func logFiles(logDir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(logDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		name := d.Name()
		if name == ErrorsFile || name == WarningsFile || filepath.Ext(name) != LogExt {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", logDir, err)
	}
	sort.Strings(files)
	return files, nil
}

func scanFile(path string, errW, warnW io.Writer) (errors, warnings int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		lower := strings.ToLower(text)
		if strings.Contains(lower, ErrorPattern) {
			errors++
			fmt.Fprintf(errW, "%s:%d:%s\n", path, line, text)
		}
		if strings.Contains(lower, WarningPattern) {
			warnings++
			fmt.Fprintf(warnW, "%s:%d:%s\n", path, line, text)
		}
	}
	return errors, warnings, sc.Err()
}
