// Command serial-dump prints the raw bytes arriving on the LiDAR serial line
// as hex, optionally decoding complete frames as they pass.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/banshee-data/range.trigger/internal/benewake"
	"github.com/banshee-data/range.trigger/internal/serialmux"
)

var (
	port   = flag.String("port", "/dev/ttyS0", "Serial port to read")
	baud   = flag.Int("baud", serialmux.DefaultBaudRate, "Serial baud rate")
	decode = flag.Bool("decode", false, "Also print each decoded frame")
	every  = flag.Duration("interval", 10*time.Millisecond, "Poll interval")
)

func hexLine(data []byte) string {
	var b strings.Builder
	for i, c := range data {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%02X", c)
	}
	return b.String()
}

// dump writes one line per non-empty chunk to w and, when dec is non-nil, one
// line per frame it completes.
func dump(w io.Writer, data []byte, dec *benewake.Decoder) {
	if len(data) == 0 {
		return
	}
	fmt.Fprintf(w, "[HEX] %s\n", hexLine(data))
	if dec == nil {
		return
	}
	for _, c := range data {
		m, outcome := dec.Feed(c)
		switch outcome {
		case benewake.Decoded:
			fmt.Fprintf(w, "[FRAME] distance=%dcm strength=%d temp=%.2fC in_range=%t\n",
				m.DistanceCM, m.Strength, m.TemperatureC, m.InRange())
		case benewake.Discarded:
			fmt.Fprintf(w, "[DISCARD] %+v\n", dec.Stats())
		}
	}
}

func main() {
	flag.Parse()

	src, err := serialmux.OpenPolling(*port, serialmux.PortOptions{BaudRate: *baud})
	if err != nil {
		log.Fatalf("[ERROR] Serial connection failed: %v", err)
	}
	log.Printf("[INFO] Serial port %s opened with baudrate %d", *port, *baud)
	defer func() {
		src.Close()
		log.Printf("[INFO] Serial port %s closed.", *port)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var dec *benewake.Decoder
	if *decode {
		dec = &benewake.Decoder{}
	}

	ticker := time.NewTicker(*every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Print("[INFO] Program interrupted by user.")
			return
		case <-ticker.C:
			data, err := src.ReadAvailable()
			dump(os.Stdout, data, dec)
			if err != nil {
				log.Printf("[ERROR] %v", err)
			}
		}
	}
}
