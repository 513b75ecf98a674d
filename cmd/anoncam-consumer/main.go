// Command anoncam-consumer is a standalone demo of the virtual-camera
// extension's side of the zero-copy ring: it attaches to the named
// shared-memory region anoncamd publishes to and drains it on the same
// periodic cadence a real extension would present frames to the OS at,
// printing each dequeued slot's metadata instead of presenting it.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/faisalnazir/AnonCam/internal/ring"
	"github.com/faisalnazir/AnonCam/internal/virtualcam"
)

const dequeueInterval = 33 * time.Millisecond

func main() {
	shmName := flag.String("shm-name", "/anoncam.default", "name of the shared-memory ring to attach to")
	width := flag.Int("width", 1280, "ring width in pixels, must match the producer")
	height := flag.Int("height", 720, "ring height in pixels, must match the producer")
	flag.Parse()

	consumer, region, err := ring.AttachSharedConsumer(*shmName, *width, *height)
	if err != nil {
		log.Fatalf("anoncam-consumer: attach %s: %v", *shmName, err)
	}
	defer region.Close()

	fmt.Printf("attached to %s (%dx%d), provider=%s model=%s\n", *shmName, *width, *height, virtualcam.ProviderID, virtualcam.Model)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(dequeueInterval)
	defer ticker.Stop()

	var delivered, misses uint64
	for {
		select {
		case <-sigChan:
			fmt.Printf("stopping: delivered=%d misses=%d\n", delivered, misses)
			return
		case <-ticker.C:
			if !consumer.Attached() {
				misses++
				continue
			}
			view, ok := consumer.PeekLatest()
			if !ok {
				misses++
				continue
			}
			duration := time.Second / 30
			pts := time.Duration(view.TimestampNs)
			fmt.Printf("frame=%d slot=%d pts=%s duration=%s bytes=%d\n",
				view.FrameNumber, view.SlotIndex, pts, duration, len(view.Pixels))
			delivered++
		}
	}
}
