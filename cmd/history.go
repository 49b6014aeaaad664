package cmd

import (
	"fmt"
	"io"

	"grimm.is/vecmatrix/internal/clock"
	"grimm.is/vecmatrix/internal/history"
	"grimm.is/vecmatrix/internal/tui"
)

// RunHistory lists the most recent runs recorded in the database at path.
func RunHistory(path string, limit int, out io.Writer) error {
	store, err := history.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.Recent(limit)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, tui.RenderHistory(runs, clock.Now()))
	return nil
}
