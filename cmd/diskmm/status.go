package main

import (
	"fmt"
	"io"

	"github.com/c2h5oh/datasize"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/diskmm/disk"
)

func humanSize(bytes int) string {
	return datasize.ByteSize(bytes).HumanReadable()
}

func writeStatusText(out io.Writer, status disk.Status) {
	fmt.Fprintln(out, "Disk Status:")
	fmt.Fprintln(out, "Occupied Blocks:")
	for _, region := range status.Occupied {
		fmt.Fprintf(out, "File: %s, Start: %d, Size: %d bytes\n", region.Owner, region.Start, region.Size)
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Free Blocks:")
	largestFree := 0
	for _, region := range status.Free {
		fmt.Fprintf(out, "Start: %d, Size: %d bytes\n", region.Start, region.Size)
		if region.Size > largestFree {
			largestFree = region.Size
		}
	}

	fmt.Fprintf(out, "Used: %s of %s, Free: %s, Largest free block: %s\n",
		humanSize(status.OccupiedBytes()),
		humanSize(status.Capacity),
		humanSize(status.FreeBytes()),
		humanSize(largestFree),
	)
	fmt.Fprintln(out)
}

func writeStatusJSON(out io.Writer, d *disk.Disk) error {
	writer := jwriter.NewWriter()
	d.PrintDetailedMap(&writer)
	if err := writer.Error(); err != nil {
		return err
	}

	_, err := fmt.Fprintln(out, string(writer.Bytes()))
	return err
}
