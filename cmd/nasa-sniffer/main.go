// Command nasa-sniffer is a passive sniffer for the Samsung NASA HVAC
// field-bus protocol. It wires a transport (serial or TCP) into the
// resynchronising reassembler, the packet decoder, and a live session
// that fans decoded packets out to the structural analyser, an optional
// Redis sink, a Prometheus metrics endpoint and a WebSocket push
// channel for browser clients.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Aranyalma2/samsung-nasa-sniffer/internal/analyser"
	"github.com/Aranyalma2/samsung-nasa-sniffer/internal/capture"
	"github.com/Aranyalma2/samsung-nasa-sniffer/internal/decoder"
	"github.com/Aranyalma2/samsung-nasa-sniffer/internal/metrics"
	"github.com/Aranyalma2/samsung-nasa-sniffer/internal/reassembler"
	"github.com/Aranyalma2/samsung-nasa-sniffer/internal/session"
	"github.com/Aranyalma2/samsung-nasa-sniffer/internal/transport"
	"github.com/Aranyalma2/samsung-nasa-sniffer/internal/transport/serialtransport"
	"github.com/Aranyalma2/samsung-nasa-sniffer/internal/transport/tcptransport"
	"github.com/Aranyalma2/samsung-nasa-sniffer/internal/wspush"
)

var (
	mode = flag.String("mode", "serial", `Capture mode: "serial", "tcp" or "view"`)

	serialDevice = flag.String("serial", "/dev/ttyUSB0", "Serial device path (mode=serial)")
	baudRate     = flag.Int("baud", 9600, "Serial baud rate (mode=serial)")
	tcpAddr      = flag.String("tcp-addr", "localhost:4000", "TCP bridge address (mode=tcp)")
	viewFile     = flag.String("view-file", "", "Persisted JSON export to replay (mode=view)")

	historyCapacity = flag.Int("history", 1000, "Live session history ring capacity")
	maxGroupHistory = flag.Int("max-group-history", 200, "Per-group retained packet history cap (0 = unbounded)")

	redisAddr = flag.String("redis-addr", "", "Redis address for the optional publish sink (empty disables it)")
	redisPass = flag.String("redis-pass", "", "Redis password")
	redisDB   = flag.Int("redis-db", 0, "Redis database number")

	checkpointFile = flag.String("checkpoint", "", "Path to a cbor analyser checkpoint to load at startup and save at shutdown (empty disables it)")
	exportFile     = flag.String("export-file", "", "Path to write a JSON packet export at shutdown (empty disables it)")

	httpAddr = flag.String("http-addr", ":8080", "Listen address for /metrics and /ws")
)

func main() {
	flag.Parse()

	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
	log.Printf("Starting NASA bus sniffer")
	log.Printf("Mode: %s", *mode)

	an := analyser.New(analyser.Config{MaxHistoryPerGroup: *maxGroupHistory})

	if *checkpointFile != "" {
		if err := capture.RestoreCheckpoint(*checkpointFile, an); err != nil {
			log.Printf("Checkpoint not restored: %v", err)
		} else {
			log.Printf("Restored analyser checkpoint from %s", *checkpointFile)
		}
	}

	cfg := session.Config{
		HistoryCapacity: *historyCapacity,
		Sinks:           []session.Sink{session.SinkFunc(an.Observe)},
	}

	var redisSink *session.RedisSink
	if *redisAddr != "" {
		sink, err := session.NewRedisSink(*redisAddr, *redisPass, *redisDB, "nasa:packets", "nasa:stats")
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		redisSink = sink
		cfg.Sinks = append(cfg.Sinks, redisSink)
		log.Printf("Publishing decoded packets to Redis at %s", *redisAddr)
	}

	var sess *session.Session
	switch *mode {
	case "view":
		if *viewFile == "" {
			log.Fatalf("mode=view requires -view-file")
		}
		packets, err := capture.LoadView(*viewFile)
		if err != nil {
			log.Fatalf("Failed to load view file: %v", err)
		}
		sess = session.NewView(packets, cfg)
		for _, p := range packets {
			an.Observe(p)
		}
		log.Printf("Loaded %d packets from %s (view mode)", len(packets), *viewFile)
	case "serial", "tcp":
		sess = session.New(cfg)
		sess.SetMetricsHook(metrics.SessionHook{})
		if err := sess.Start(); err != nil {
			log.Fatalf("Failed to start session: %v", err)
		}
	default:
		log.Fatalf("Unknown -mode %q", *mode)
	}

	registerCollectors(sess)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/ws", wspush.NewHub(sess))
	mux.HandleFunc("/report", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, an.Report())
	})

	httpServer := &http.Server{Addr: *httpAddr, Handler: mux}
	go func() {
		log.Printf("Serving /metrics, /ws and /report on %s", *httpAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	if *mode == "serial" || *mode == "tcp" {
		var tr transport.Transport
		if *mode == "serial" {
			tr = serialtransport.New(*serialDevice, *baudRate)
		} else {
			tr = tcptransport.New(*tcpAddr)
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		if err := tr.Connect(ctx); err != nil {
			log.Fatalf("Failed to connect transport: %v", err)
		}
		log.Printf("Transport connected")

		go watchTransportEvents(tr)
		go runCaptureLoop(ctx, tr, sess, an)
	}

	<-sigCh
	log.Printf("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = httpServer.Shutdown(shutdownCtx)

	if err := sess.Close(); err != nil {
		log.Printf("Error during session shutdown: %v", err)
	}

	if *checkpointFile != "" {
		if err := capture.SaveCheckpoint(*checkpointFile, an); err != nil {
			log.Printf("Failed to save checkpoint: %v", err)
		}
	}
	if *exportFile != "" {
		if err := capture.ExportFile(*exportFile, sess.History(), time.Now()); err != nil {
			log.Printf("Failed to write export: %v", err)
		}
	}
	if redisSink != nil {
		_ = redisSink.Close()
	}

	log.Printf("Stopped")
}

// runCaptureLoop is the capture pipeline: read bytes, reassemble,
// decode, publish. Reassembly and decoding run single-threaded relative
// to the byte stream; the reassembler's cursor state is order-dependent.
func runCaptureLoop(ctx context.Context, tr transport.Transport, sess *session.Session, an *analyser.Analyser) {
	var buffer []byte

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		chunk, err := tr.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("Transport read error: %v", err)
			continue
		}
		if len(chunk) == 0 {
			continue
		}

		buffer = append(buffer, chunk...)

		frames, tail, resyncs := reassembler.Reassemble(buffer)
		buffer = tail

		for _, r := range resyncs {
			metrics.IncResync(r.Skipped)
			log.Printf("Resync: skipped %d bytes", r.Skipped)
		}

		for _, frame := range frames {
			p, err := decoder.Decode(frame)
			if err != nil {
				if de, ok := err.(*decoder.DecodeError); ok {
					metrics.IncDecodeError(de.Kind.String())
					log.Printf("Decode error: %v", de)
				} else {
					log.Printf("Decode error: %v", err)
				}
				continue
			}
			metrics.IncDecoded()
			metrics.SetGroupsObserved(an.Stats().UniqueGroups)
			if err := sess.Publish(*p); err != nil {
				log.Printf("Publish rejected: %v", err)
			}
		}
	}
}

func watchTransportEvents(tr transport.Transport) {
	for ev := range tr.Events() {
		switch ev.Kind {
		case transport.Connected:
			log.Printf("Transport connected")
		case transport.Disconnected:
			log.Printf("Transport disconnected")
		case transport.Reconnecting:
			log.Printf("Transport reconnecting in %s", ev.Delay)
		case transport.Error:
			log.Printf("Transport error: %v", ev.Err)
		}
	}
}

func registerCollectors(sess *session.Session) {
	prometheus.MustRegister(metrics.NewScrapeGauge(
		"nasa_history_ring_occupancy",
		"Current number of packets held in the live session's history ring.",
		sess.HistoryLen,
	))
	prometheus.MustRegister(metrics.NewScrapeGauge(
		"nasa_active_subscribers",
		"Current number of live session subscribers.",
		sess.SubscriberCount,
	))
}
