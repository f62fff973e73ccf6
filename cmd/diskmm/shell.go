package main

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/vkngwrapper/diskmm/disk"
	"github.com/vkngwrapper/diskmm/memutils"
)

func newShellCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Start the interactive disk shell",
		Long: `The shell command reads menu choices from stdin and writes, deletes, or
lists files on a fresh simulated disk. It exits on choice 4 or end of input.

Example:
  diskmm shell
  diskmm shell --capacity 1MB --max-size 64KB
  diskmm shell --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShell(cmd, opts)
		},
	}
}

func runShell(cmd *cobra.Command, opts *rootOptions) error {
	logger := newLogger(cmd.ErrOrStderr(), opts.verbose)

	d, err := opts.createDisk(logger)
	if err != nil {
		return err
	}

	s := &shell{
		disk:    d,
		in:      bufio.NewScanner(cmd.InOrStdin()),
		out:     cmd.OutOrStdout(),
		jsonOut: opts.jsonOut,
	}
	return s.run()
}

type shell struct {
	disk    *disk.Disk
	in      *bufio.Scanner
	out     io.Writer
	jsonOut bool
}

// prompt writes the prompt and reads one line. It returns false at end of input.
func (s *shell) prompt(text string) (string, bool) {
	fmt.Fprint(s.out, text)
	if !s.in.Scan() {
		return "", false
	}

	return strings.TrimRight(s.in.Text(), "\r"), true
}

func (s *shell) run() error {
	for {
		fmt.Fprintln(s.out)
		fmt.Fprintln(s.out, "1. Write file")
		fmt.Fprintln(s.out, "2. Delete file")
		fmt.Fprintln(s.out, "3. Show disk status")
		fmt.Fprintln(s.out, "4. Exit")

		choice, ok := s.prompt("Enter choice (1-4): ")
		if !ok {
			return s.in.Err()
		}

		var err error
		switch choice {
		case "1":
			ok, err = s.writeFile()
		case "2":
			ok, err = s.deleteFile()
		case "3":
			err = s.showStatus()
		case "4":
			return nil
		default:
			fmt.Fprintln(s.out, "Invalid choice")
		}

		if err != nil {
			return err
		}

		if !ok {
			return s.in.Err()
		}
	}
}

func (s *shell) writeFile() (bool, error) {
	name, ok := s.prompt("Enter file name: ")
	if !ok {
		return false, nil
	}

	sizeText, ok := s.prompt("Enter file size (bytes): ")
	if !ok {
		return false, nil
	}

	size, sizeDigits, err := parseFileSize(sizeText)
	if errors.Is(err, strconv.ErrRange) {
		s.printSizeOutOfRange(sizeDigits)
		return true, nil
	} else if err != nil {
		fmt.Fprintln(s.out, "Error: Invalid file size")
		return true, nil
	}

	offset, err := s.disk.Allocate(name, size)
	switch {
	case err == nil:
		fmt.Fprintf(s.out, "File %s written at position %d\n", name, offset)
	case errors.Is(err, memutils.SizeOutOfRangeError):
		s.printSizeOutOfRange(sizeDigits)
	case errors.Is(err, memutils.NoSpaceError):
		fmt.Fprintf(s.out, "Error: No suitable space for file %s of size %d bytes\n", name, size)
	case errors.Is(err, memutils.InvalidOwnerError):
		fmt.Fprintln(s.out, "Error: File name must not be empty")
	case errors.Is(err, memutils.OwnerExistsError):
		fmt.Fprintf(s.out, "Error: File %s already exists\n", name)
	default:
		return false, err
	}

	return true, nil
}

func (s *shell) printSizeOutOfRange(sizeDigits string) {
	minimum, maximum := s.disk.AllocationSizeRange()
	fmt.Fprintf(s.out, "Error: File size %s bytes is out of valid range (%d-%d bytes)\n", sizeDigits, minimum, maximum)
}

func (s *shell) deleteFile() (bool, error) {
	name, ok := s.prompt("Enter file name to delete: ")
	if !ok {
		return false, nil
	}

	err := s.disk.Release(name)
	switch {
	case err == nil:
		fmt.Fprintf(s.out, "File %s deleted\n", name)
	case errors.Is(err, memutils.NotFoundError):
		fmt.Fprintf(s.out, "Error: File %s not found\n", name)
	default:
		return false, err
	}

	return true, nil
}

func (s *shell) showStatus() error {
	if s.jsonOut {
		return writeStatusJSON(s.out, s.disk)
	}

	writeStatusText(s.out, s.disk.Status())
	return nil
}

// A decimal integer with an optional sign, where single underscores may separate digits
var fileSizePattern = regexp.MustCompile(`^[+-]?[0-9]+(_[0-9]+)*$`)

// parseFileSize parses a typed file size. Alongside the value it returns the size's canonical
// decimal digits, which are still returned with an error wrapping strconv.ErrRange when the
// value does not fit in an int.
func parseFileSize(text string) (int, string, error) {
	text = strings.TrimSpace(text)
	if !fileSizePattern.MatchString(text) {
		return 0, "", errors.Wrapf(strconv.ErrSyntax, "file size %q", text)
	}

	digits := strings.ReplaceAll(text, "_", "")
	sign := ""
	if strings.HasPrefix(digits, "-") {
		sign = "-"
	}
	digits = strings.TrimLeft(digits, "+-")
	digits = strings.TrimLeft(digits, "0")
	if digits == "" {
		return 0, "0", nil
	}
	digits = sign + digits

	size, err := strconv.Atoi(digits)
	if err != nil {
		return 0, digits, err
	}

	return size, digits, nil
}
