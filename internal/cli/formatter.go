package cli

import (
	"cmp"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/idelchi/diskmanager/internal/breakdown"
	"github.com/idelchi/diskmanager/internal/diskstat"
)

const (
	// TabSpacing is the number of spaces between tabwriter columns.
	TabSpacing = 2
)

// Result is the printable outcome of one invocation.
type Result struct {
	// Root is the analyzed directory.
	Root string `json:"rootdir" yaml:"rootdir"`
	// Stat is the rolled-up statistic of Root.
	Stat *diskstat.Stat `json:"stat,omitempty" yaml:"stat,omitempty"`
	// File is set instead of Stat when a single file was inspected.
	File *diskstat.FileStat `json:"file,omitempty" yaml:"file,omitempty"`
	// Degraded lists the directories that could not be measured.
	Degraded []diskstat.Failure `json:"degraded,omitempty" yaml:"degraded,omitempty"`
	// Breakdown holds the optional extension breakdown.
	Breakdown *breakdown.Report `json:"breakdown,omitempty" yaml:"breakdown,omitempty"`
	// Counted reports whether file and directory counts were collected.
	Counted bool `json:"-" yaml:"-"`
	// Elapsed is the duration of the traversal.
	Elapsed time.Duration `json:"elapsed" yaml:"elapsed"`
}

// Print writes result to writer in the given format.
func Print(result *Result, format string, writer io.Writer) error {
	switch format {
	case "json":
		return PrintJSON(result, writer)
	case "yaml":
		return PrintYAML(result, writer)
	case "list":
		return PrintList(result, writer)
	case "table":
		return PrintTable(result, writer)
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}

// PrintJSON outputs the result in JSON format.
func PrintJSON(result *Result, writer io.Writer) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}

	if _, err := fmt.Fprintln(writer, string(data)); err != nil {
		return err
	}

	return nil
}

// PrintYAML outputs the result in YAML format.
func PrintYAML(result *Result, writer io.Writer) error {
	encoder := yaml.NewEncoder(writer)
	encoder.SetIndent(2) //nolint:mnd // Conventional indentation

	if err := encoder.Encode(result); err != nil {
		return fmt.Errorf("encoding YAML output: %w", err)
	}

	return encoder.Close()
}

// PrintList outputs one "size<TAB>path" line per sub-folder, largest first.
// It feeds the shell integration.
func PrintList(result *Result, writer io.Writer) error {
	if result.Stat == nil {
		return nil
	}

	for _, sub := range sortedSubFolders(result.Stat) {
		if _, err := fmt.Fprintf(writer, "%s\t%s\n", HumanSize(uint64(sub.Size)), sub.Path); err != nil {
			return err
		}
	}

	return nil
}

// PrintTable outputs the result in human-readable table format.
//
//nolint:forbidigo // This function prints output to the console.
func PrintTable(result *Result, writer io.Writer) error {
	w := tabwriter.NewWriter(writer, 0, 4, TabSpacing, ' ', 0)

	switch {
	case result.File != nil:
		printFile(w, result.File)
	case result.Stat != nil:
		printStat(w, result)
	}

	if result.Breakdown != nil {
		printBreakdown(w, result.Breakdown)
	}

	fmt.Fprintf(w, "\nElapsed:\t%v\n", result.Elapsed.Round(time.Millisecond))

	return w.Flush()
}

func printFile(w io.Writer, file *diskstat.FileStat) {
	fmt.Fprintf(w, "File:\t%s\n", file.Path)
	fmt.Fprintf(w, "Size:\t%s (%s bytes)\n", HumanSize(uint64(file.Size)), exactBytes(uint64(file.Size)))
	printTimes(w, file.BirthTime, file.LastModifiedTime)
}

func printStat(w io.Writer, result *Result) {
	stat := result.Stat

	fmt.Fprintf(w, "Directory:\t%s\n", result.Root)
	fmt.Fprintf(w, "Size:\t%s (%s bytes)\n", HumanSize(uint64(stat.Size)), exactBytes(uint64(stat.Size)))

	if result.Counted {
		fmt.Fprintf(w, "Files:\t%s\n", humanize.Comma(stat.NumFiles))
		fmt.Fprintf(w, "Folders:\t%s\n", humanize.Comma(stat.NumDirs))
	}

	printTimes(w, stat.BirthTime, stat.LastModifiedTime)

	if len(result.Degraded) > 0 {
		fmt.Fprintf(w, "Degraded:\t%d directories could not be read\n", len(result.Degraded))
	}

	if len(stat.SubFolders) == 0 {
		return
	}

	fmt.Fprintln(w, "\nSub-folders:\t\t")

	for i, sub := range sortedSubFolders(stat) {
		pct := 0.0
		if stat.Size > 0 {
			pct = 100.0 * float64(sub.Size) / float64(stat.Size)
		}

		fmt.Fprintf(w, "  %d) '%s'\t%s (%.1f%%)\n", i+1, sub.Path, HumanSize(uint64(sub.Size)), pct)
	}
}

func printTimes(w io.Writer, birth, modified *diskstat.Timestamp) {
	if birth != nil {
		fmt.Fprintf(w, "Created:\t%s (%s)\n", birth.Time().Format(time.DateTime), humanize.Time(birth.Time()))
	}

	if modified != nil {
		fmt.Fprintf(w, "Modified:\t%s (%s)\n", modified.Time().Format(time.DateTime), humanize.Time(modified.Time()))
	}
}

func printBreakdown(w io.Writer, report *breakdown.Report) {
	fmt.Fprintln(w, "\nTop extensions:\t\t")

	for i, ext := range report.Extensions() {
		extStat := report.ExtStats[ext]
		pct := 0.0
		if report.TotalBytes > 0 {
			pct = 100.0 * float64(extStat.Size) / float64(report.TotalBytes)
		}

		if ext == "" {
			ext = "\"\""
		}

		fmt.Fprintf(w, "  %d) %s:\t%d files, %s (%.1f%%)\n",
			i+1, ext, extStat.Count, humanize.IBytes(uint64(extStat.Size)), pct) //nolint:gosec // Sizes are never negative
	}

	fmt.Fprintln(w, "\nTop files:\t\t")

	for i, f := range report.TopFiles {
		pct := 0.0
		if report.TotalBytes > 0 {
			pct = 100.0 * float64(f.Size) / float64(report.TotalBytes)
		}

		fmt.Fprintf(w, "  %d) '%s'\t%s (%.1f%%)\n",
			i+1, f.Path, humanize.IBytes(uint64(f.Size)), pct) //nolint:gosec // Sizes are never negative
	}

	fmt.Fprintf(w, "\nBreakdown files:\t%d\n", report.FileCount)

	if report.ErrorCount > 0 {
		fmt.Fprintf(w, "Breakdown errors:\t%d\n", report.ErrorCount)
	}
}

// sortedSubFolders returns the sub-folders of stat, largest first.
func sortedSubFolders(stat *diskstat.Stat) []*diskstat.Stat {
	subs := slices.Clone(stat.SubFolders)

	slices.SortFunc(subs, func(a, b *diskstat.Stat) int {
		if c := cmp.Compare(b.Size, a.Size); c != 0 {
			return c
		}

		return cmp.Compare(a.Path, b.Path)
	})

	return subs
}

// Binary size units used by HumanSize.
const (
	kilobyte = 1024
	megabyte = 1024 * kilobyte
	gigabyte = 1024 * megabyte
)

// HumanSize formats size in bytes, KB, MB or GB (powers of 1024) with three decimals.
func HumanSize(size uint64) string {
	switch {
	case size < kilobyte:
		return fmt.Sprintf("%d bytes", size)
	case size < megabyte:
		return fmt.Sprintf("%.3f KB", float64(size)/kilobyte)
	case size < gigabyte:
		return fmt.Sprintf("%.3f MB", float64(size)/megabyte)
	default:
		return fmt.Sprintf("%.3f GB", float64(size/kilobyte)/megabyte)
	}
}

// exactBytes renders size with thousands separators.
func exactBytes(size uint64) string {
	return humanize.BigComma(new(big.Int).SetUint64(size))
}
