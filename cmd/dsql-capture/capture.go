// dsql-capture listens for HWORD sensor data on UDP, synchronizes frame
// boundaries with the capture sync engine, and writes each completed frame
// to a numbered .dsql file. Optionally indexes frames into a SQLite store.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/framegrabber/internal/dsql/capture"
	"github.com/banshee-data/framegrabber/internal/dsql/frames"
	"github.com/banshee-data/framegrabber/internal/dsql/store"
	"github.com/banshee-data/framegrabber/internal/monitoring"
)

var (
	udpPort     = flag.Int("udp-port", 2370, "UDP port to listen for sensor data")
	udpAddress  = flag.String("udp-addr", "", "UDP bind address (default: listen on all interfaces)")
	outDir      = flag.String("out", "captures", "Directory to write .dsql frame files")
	dbFile      = flag.String("db", "", "Optional SQLite frame index database (disabled if empty)")
	notes       = flag.String("notes", "", "Notes to attach to the capture run in the frame index")
	rcvBuf      = flag.Int("rcvbuf", 4<<20, "UDP receive buffer size in bytes (default 4MB)")
	logInterval = flag.Int("log-interval", 2, "Statistics logging interval in seconds")
	verbose     = flag.Bool("verbose", false, "Log per-record sync engine decisions")
)

// Packet statistics tracking
type PacketStats struct {
	mu          sync.Mutex
	packetCount int64
	byteCount   int64
	frameCount  int64
	lastReset   time.Time
}

func (ps *PacketStats) AddPacket(bytes int) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.packetCount++
	ps.byteCount += int64(bytes)
}

func (ps *PacketStats) AddFrame() {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.frameCount++
}

func (ps *PacketStats) GetAndReset() (packets, bytes, framesN int64, duration time.Duration) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	now := time.Now()
	duration = now.Sub(ps.lastReset)
	packets = ps.packetCount
	bytes = ps.byteCount
	framesN = ps.frameCount

	ps.packetCount = 0
	ps.byteCount = 0
	ps.frameCount = 0
	ps.lastReset = now

	return
}

// frameWriter persists completed frames and optionally indexes them.
type frameWriter struct {
	dir       string
	store     *store.FrameStore
	runID     string
	nextFrame uint32
	stats     *PacketStats
}

func (fw *frameWriter) onFrame(frame []byte, mode capture.FrameMode) {
	number := fw.nextFrame
	fw.nextFrame++

	name := fmt.Sprintf("%08x.dsql", number)
	path := filepath.Join(fw.dir, name)
	if err := os.WriteFile(path, frame, 0o644); err != nil {
		log.Printf("Failed to write frame %s: %v", name, err)
		return
	}
	fw.stats.AddFrame()

	if fw.store != nil {
		decoded, err := frames.FromBytes(number, frame)
		if err != nil {
			log.Printf("Frame %s (%s) does not assemble cleanly: %v", name, mode, err)
			return
		}
		if _, err := fw.store.RecordFrame(fw.runID, path, decoded); err != nil {
			log.Printf("Failed to index frame %s: %v", name, err)
		}
	}
}

// UDP listener loop feeding the sync engine.
func listenUDP(ctx context.Context, engine *capture.SyncEngine, stats *PacketStats, address string) error {
	addr, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		return fmt.Errorf("failed to resolve UDP address: %v", err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on UDP: %v", err)
	}
	defer conn.Close()

	if err := conn.SetReadBuffer(*rcvBuf); err != nil {
		log.Printf("Warning: failed to set UDP receive buffer to %d bytes: %v (some OSes clamp buffer sizes)", *rcvBuf, err)
	} else {
		log.Printf("Set UDP receive buffer to %d bytes", *rcvBuf)
	}

	log.Printf("Listening for sensor data on %s", address)

	// Start periodic logging goroutine
	go func() {
		ticker := time.NewTicker(time.Duration(*logInterval) * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				packets, bytes, framesN, duration := stats.GetAndReset()
				if packets > 0 {
					packetsPerSec := float64(packets) / duration.Seconds()
					mbPerSec := float64(bytes) / duration.Seconds() / (1024 * 1024)
					logMsg := fmt.Sprintf("Capture stats (/sec): %.1f MB, %.1f packets, %.1f frames",
						mbPerSec, packetsPerSec, float64(framesN)/duration.Seconds())
					if s := engine.Stats(); s.SyncErrors > 0 || s.RecordsDiscarded > 0 {
						logMsg += fmt.Sprintf(" (total: %d sync errors, %d records discarded)",
							s.SyncErrors, s.RecordsDiscarded)
					}
					log.Print(logMsg)
				}
			}
		}
	}()

	buffer := make([]byte, 65536)
	timeoutCount := 0

	log.Printf("Starting UDP packet receive loop...")
	for {
		select {
		case <-ctx.Done():
			log.Println("UDP listener shutting down")
			engine.Flush()
			return ctx.Err()
		default:
			// Read timeout allows checking for context cancellation.
			if err := conn.SetReadDeadline(time.Now().Add(1 * time.Second)); err != nil {
				log.Printf("Error setting read deadline: %v", err)
				continue
			}

			n, _, err := conn.ReadFromUDP(buffer)
			if err != nil {
				if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
					timeoutCount++
					if timeoutCount%10 == 0 {
						log.Printf("No packets received for %d seconds", timeoutCount)
					}
					continue
				}
				log.Printf("Error reading UDP packet: %v", err)
				continue
			}

			timeoutCount = 0
			stats.AddPacket(n)
			// The engine copies what it keeps, so the reused buffer is safe.
			engine.Feed(buffer[:n])
		}
	}
}

func main() {
	flag.Parse()

	monitoring.Debug = *verbose

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatalf("Failed to create output directory %s: %v", *outDir, err)
	}

	var udpListenAddr string
	if *udpAddress == "" {
		udpListenAddr = fmt.Sprintf(":%d", *udpPort)
	} else {
		udpListenAddr = fmt.Sprintf("%s:%d", *udpAddress, *udpPort)
	}

	stats := &PacketStats{lastReset: time.Now()}
	writer := &frameWriter{dir: *outDir, stats: stats}

	if *dbFile != "" {
		s, err := store.Open(*dbFile)
		if err != nil {
			log.Fatalf("Failed to open frame index: %v", err)
		}
		defer s.Close()

		runID, err := s.StartRun(udpListenAddr, *notes)
		if err != nil {
			log.Fatalf("Failed to start capture run: %v", err)
		}
		writer.store = s
		writer.runID = runID
		defer func() {
			if err := s.FinishRun(runID); err != nil {
				log.Printf("Failed to finish capture run: %v", err)
			}
		}()
		log.Printf("Indexing frames under run %s", runID)
	}

	engine := capture.NewSyncEngine(writer.onFrame)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := listenUDP(ctx, engine, stats, udpListenAddr); err != nil && err != context.Canceled {
		log.Printf("UDP listener error: %v", err)
	}

	s := engine.Stats()
	log.Printf("Capture finished: %d frames, %d sync errors, %d records discarded",
		s.FramesCompleted, s.SyncErrors, s.RecordsDiscarded)
}
