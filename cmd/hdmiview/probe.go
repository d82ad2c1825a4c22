package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/gogpu/hdmiview/internal/v4l2"
)

// probe prints what the capture device reports without streaming.
func probe(w io.Writer, path string) error {
	dev, err := v4l2.Open(path)
	if err != nil {
		return err
	}
	defer dev.Close()

	caps := dev.Capability()
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "device:\t%s\n", path)
	fmt.Fprintf(tw, "driver:\t%s %s\n", caps.Driver, caps.VersionString())
	fmt.Fprintf(tw, "card:\t%s\n", caps.Card)
	fmt.Fprintf(tw, "bus:\t%s\n", caps.BusInfo)
	fmt.Fprintf(tw, "caps:\t%#08x (multi-planar capture: %t, streaming: %t)\n",
		caps.Caps, caps.MultiPlanarCapture(), caps.Streaming())

	f, err := dev.Format()
	if err != nil {
		fmt.Fprintf(tw, "format:\tunavailable (%v)\n", err)
		return tw.Flush()
	}
	fmt.Fprintf(tw, "format:\t%s\n", f)
	fmt.Fprintf(tw, "layout:\t%s (driver bytes/line %d)\n", f.Layout, f.BytesPerLine)
	fmt.Fprintf(tw, "luma:\t%s, %d bytes/line\n", f.LumaSize(), f.LumaStride())
	fmt.Fprintf(tw, "chroma:\t%s, %d bytes/line\n", f.ChromaSize(), f.ChromaStride())
	return tw.Flush()
}
