//go:build pcap
// +build pcap

// pcap-extract replays HWORD sensor traffic from a PCAP capture through
// the frame sync engine and writes each recovered frame to a .dsql file.
// Build with the 'pcap' tag (requires libpcap headers).
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"

	"github.com/banshee-data/framegrabber/internal/dsql/capture"
)

var (
	pcapFile = flag.String("pcap", "", "PCAP file to read (required)")
	udpPort  = flag.Int("udp-port", 2370, "UDP port carrying sensor data")
	outDir   = flag.String("out", "captures", "Directory to write .dsql frame files")
)

func main() {
	flag.Parse()

	if *pcapFile == "" {
		fmt.Fprintf(os.Stderr, "usage: %s -pcap file.pcap [flags]\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatalf("Failed to create output directory %s: %v", *outDir, err)
	}

	handle, err := pcap.OpenOffline(*pcapFile)
	if err != nil {
		log.Fatalf("Failed to open PCAP file %s: %v", *pcapFile, err)
	}
	defer handle.Close()

	filterStr := fmt.Sprintf("udp port %d", *udpPort)
	if err := handle.SetBPFFilter(filterStr); err != nil {
		log.Fatalf("Failed to set BPF filter '%s': %v", filterStr, err)
	}
	log.Printf("PCAP BPF filter set: %s", filterStr)

	var nextFrame uint32
	engine := capture.NewSyncEngine(func(frame []byte, mode capture.FrameMode) {
		name := fmt.Sprintf("%08x.dsql", nextFrame)
		nextFrame++
		if err := os.WriteFile(filepath.Join(*outDir, name), frame, 0o644); err != nil {
			log.Fatalf("Failed to write frame %s: %v", name, err)
		}
		log.Printf("Wrote %s (%s, %d records)", name, mode, len(frame)/12)
	})

	packetSource := gopacket.NewPacketSource(handle, handle.LinkType())
	packetCount := 0
	startTime := time.Now()

	for packet := range packetSource.Packets() {
		udpLayer := packet.Layer(layers.LayerTypeUDP)
		if udpLayer == nil {
			continue
		}
		udp, ok := udpLayer.(*layers.UDP)
		if !ok || len(udp.Payload) == 0 {
			continue
		}
		packetCount++
		engine.Feed(udp.Payload)
	}
	engine.Flush()

	s := engine.Stats()
	log.Printf("PCAP extraction complete: %d packets in %v, %d frames, %d sync errors, %d records discarded",
		packetCount, time.Since(startTime), s.FramesCompleted, s.SyncErrors, s.RecordsDiscarded)
}
