// Command finsreader performs a single read or write against a live
// OMRON FINS PLC and prints the result. It is a one-shot diagnostic
// tool, not a polling daemon: each invocation opens a connection, issues
// one command, and exits.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/havrevik/finsgo/fins"
)

func main() {
	var (
		host    = flag.String("host", "", "PLC host or IP (required)")
		port    = flag.Int("port", 9600, "FINS/TCP port")
		udp     = flag.Bool("udp", false, "use FINS/UDP instead of FINS/TCP")
		network = flag.Int("network", 0, "destination network number")
		node    = flag.Int("node", 0, "destination node number")
		unit    = flag.Int("unit", 0, "destination unit number")
		family  = flag.String("family", "CS", "PLC family: CS, CJ, NJ, NX or CV")
		address = flag.String("address", "", "symbolic memory address, e.g. D100 or CIO50.3 (required)")
		count   = flag.Int("count", 1, "word count for a read")
		write   = flag.String("write", "", "hex-encoded bytes to write instead of reading")
		asFloat = flag.Bool("float", false, "interpret a 2-word read/write as a REAL (float32)")
		timeout = flag.Duration("timeout", 2*time.Second, "per-request response timeout")
		value   = flag.Float64("value", 0, "float32 value to write when -float is set and -write is not (without -value, -float reads)")
	)
	flag.Parse()

	valueSet := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "value" {
			valueSet = true
		}
	})

	if *host == "" || *address == "" {
		fmt.Fprintln(os.Stderr, "usage: finsreader -host <ip> -address <addr> [options]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	fam, err := fins.ParsePlcFamily(*family)
	if err != nil {
		log.Fatalf("finsreader: %v", err)
	}

	opts := []fins.Option{
		fins.WithPort(*port),
		fins.WithDestination(byte(*network), byte(*node), byte(*unit)),
		fins.WithFamily(fam),
		fins.WithTimeout(*timeout),
	}
	if *udp {
		opts = append(opts, fins.WithUDP())
	}

	client, err := fins.NewClient(*host, opts...)
	if err != nil {
		log.Fatalf("finsreader: connect: %v", err)
	}
	defer client.Close()

	addr, err := fins.ParseAddress(*address)
	if err != nil {
		log.Fatalf("finsreader: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout+time.Second)
	defer cancel()

	switch {
	case *asFloat && *write == "" && valueSet:
		data := fins.EncodeFloat32Bytes(float32(*value))
		resp, err := client.Write(ctx, addr, 2, data)
		if err != nil {
			log.Fatalf("finsreader: write: %v", err)
		}
		if !resp.Succeeded() {
			log.Fatalf("finsreader: write end code %s", resp.EndCodeDescription)
		}
		fmt.Printf("wrote %v = %v\n", addr, *value)

	case *write != "":
		data, err := hexDecode(*write)
		if err != nil {
			log.Fatalf("finsreader: -write: %v", err)
		}
		resp, err := client.Write(ctx, addr, uint16(len(data)/2), data)
		if err != nil {
			log.Fatalf("finsreader: write: %v", err)
		}
		if !resp.Succeeded() {
			log.Fatalf("finsreader: write end code %s", resp.EndCodeDescription)
		}
		fmt.Printf("wrote %v\n", addr)

	case *asFloat:
		resp, err := client.Read(ctx, addr, 2)
		if err != nil {
			log.Fatalf("finsreader: read: %v", err)
		}
		if !resp.Succeeded() {
			log.Fatalf("finsreader: read end code %s", resp.EndCodeDescription)
		}
		v, err := fins.DecodeFloat32Bytes(resp.Data)
		if err != nil {
			log.Fatalf("finsreader: %v", err)
		}
		fmt.Printf("%v = %v\n", addr, v)

	default:
		resp, err := client.Read(ctx, addr, uint16(*count))
		if err != nil {
			log.Fatalf("finsreader: read: %v", err)
		}
		if !resp.Succeeded() {
			log.Fatalf("finsreader: read end code %s", resp.EndCodeDescription)
		}
		fmt.Printf("%v = % X\n", addr, resp.Data)
	}
}

func hexDecode(s string) ([]byte, error) {
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("odd-length hex string")
	}
	out := make([]byte, len(s)/2)
	for i := range out {
		var b byte
		if _, err := fmt.Sscanf(s[i*2:i*2+2], "%02X", &b); err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}
