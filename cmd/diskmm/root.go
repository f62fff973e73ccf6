package main

import (
	"fmt"
	"io"
	"os"

	"github.com/c2h5oh/datasize"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/vkngwrapper/diskmm/disk"
	"golang.org/x/exp/slog"
)

// Global flags
type rootOptions struct {
	verbose  bool
	jsonOut  bool
	capacity string
	minSize  string
	maxSize  string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "diskmm",
		Short: "Manage files on a simulated fixed-capacity disk",
		Long: `diskmm places named files on a simulated disk using best-fit allocation.
Deleted files return their space to the free list, where it is merged with
neighboring free space.

Without a subcommand, diskmm starts the interactive shell.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShell(cmd, opts)
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging on stderr")
	cmd.PersistentFlags().BoolVar(&opts.jsonOut, "json", false, "Show disk status in JSON format")
	cmd.PersistentFlags().StringVar(&opts.capacity, "capacity", datasize.ByteSize(disk.DefaultCapacity).String(), "Disk capacity, e.g. 360KB")
	cmd.PersistentFlags().StringVar(&opts.minSize, "min-size", "", fmt.Sprintf("Smallest allowed file size (default %s)", datasize.ByteSize(disk.DefaultMinAllocationSize)))
	cmd.PersistentFlags().StringVar(&opts.maxSize, "max-size", "", fmt.Sprintf("Largest allowed file size (default %s, or the capacity if smaller)", datasize.ByteSize(disk.DefaultMaxAllocationSize)))

	cmd.AddCommand(newShellCmd(opts))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	return slog.New(slog.HandlerOptions{Level: level}.NewTextHandler(w))
}

// parseSize returns 0 for an empty value so that the disk default applies
func parseSize(flag, value string) (int, error) {
	if value == "" {
		return 0, nil
	}

	size, err := datasize.ParseString(value)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid --%s", flag)
	}

	if size.Bytes() == 0 || size.Bytes() > uint64(1<<31-1) {
		return 0, errors.Newf("invalid --%s: %s is out of range", flag, value)
	}

	return int(size.Bytes()), nil
}

func (o *rootOptions) createDisk(logger *slog.Logger) (*disk.Disk, error) {
	capacity, err := parseSize("capacity", o.capacity)
	if err != nil {
		return nil, err
	}

	minSize, err := parseSize("min-size", o.minSize)
	if err != nil {
		return nil, err
	}

	maxSize, err := parseSize("max-size", o.maxSize)
	if err != nil {
		return nil, err
	}

	return disk.New(logger, disk.CreateOptions{
		Capacity:          capacity,
		MinAllocationSize: minSize,
		MaxAllocationSize: maxSize,
	})
}
