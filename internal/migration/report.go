package migration

import (
	"fmt"
	"io"
	"text/tabwriter"
)

// WriteStatus 以表格形式输出迁移状态
func WriteStatus(w io.Writer, statuses []Status) error {
	if len(statuses) == 0 {
		_, err := fmt.Fprintln(w, "No migrations found.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tNAME\tSTATE")
	for _, s := range statuses {
		state := "pending"
		switch {
		case s.Dirty:
			state = "dirty"
		case s.Applied:
			state = "applied"
		}
		fmt.Fprintf(tw, "%06d\t%s\t%s\n", s.Version, s.Name, state)
	}
	return tw.Flush()
}

// WriteVersion 输出当前版本
func WriteVersion(w io.Writer, version uint, dirty bool) error {
	if version == 0 {
		_, err := fmt.Fprintln(w, "No migrations applied yet.")
		return err
	}
	suffix := ""
	if dirty {
		suffix = " (dirty)"
	}
	_, err := fmt.Fprintf(w, "Current version: %d%s\n", version, suffix)
	return err
}
