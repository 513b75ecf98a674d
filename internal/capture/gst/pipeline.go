//go:build linux

package gst

import (
	"fmt"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"
)

// pipelineConfig configures v4l2-backed pipeline construction.
type pipelineConfig struct {
	Device    string
	Width     int
	Height    int
	FrameRate int
	Mirrored  bool
}

// pipelineElements holds references needed for hot-reload and teardown.
type pipelineElements struct {
	Pipeline   *gst.Pipeline
	AppSink    *app.Sink
	VideoFlip  *gst.Element
	CapsFilter *gst.Element
	Source     *gst.Element
}

// buildPipeline wires: v4l2src → videoconvert → videoflip → videoscale →
// capsfilter(BGRA,W,H,FPS) → appsink. v4l2src exposes a static src pad,
// unlike rtspsrc's dynamic pads, so every element links up front with no
// pad-added callback required.
func buildPipeline(cfg pipelineConfig) (*pipelineElements, error) {
	gst.Init(nil)

	pipeline, err := gst.NewPipeline("")
	if err != nil {
		return nil, fmt.Errorf("gst: create pipeline: %w", err)
	}

	source, err := gst.NewElement("v4l2src")
	if err != nil {
		return nil, fmt.Errorf("gst: create v4l2src: %w", err)
	}
	source.SetProperty("device", cfg.Device)

	converter, err := gst.NewElement("videoconvert")
	if err != nil {
		return nil, fmt.Errorf("gst: create videoconvert: %w", err)
	}

	flip, err := gst.NewElement("videoflip")
	if err != nil {
		return nil, fmt.Errorf("gst: create videoflip: %w", err)
	}
	flip.SetProperty("method", flipMethod(cfg.Mirrored))

	scaler, err := gst.NewElement("videoscale")
	if err != nil {
		return nil, fmt.Errorf("gst: create videoscale: %w", err)
	}

	capsfilter, err := gst.NewElement("capsfilter")
	if err != nil {
		return nil, fmt.Errorf("gst: create capsfilter: %w", err)
	}
	capsfilter.SetProperty("caps", gst.NewCapsFromString(buildCaps(cfg.Width, cfg.Height, cfg.FrameRate)))

	appsink, err := app.NewAppSink()
	if err != nil {
		return nil, fmt.Errorf("gst: create appsink: %w", err)
	}
	appsink.SetProperty("sync", false)
	appsink.SetProperty("max-buffers", 1)
	appsink.SetProperty("drop", true)

	pipeline.AddMany(source, converter, flip, scaler, capsfilter, appsink.Element)
	if err := gst.ElementLinkMany(source, converter, flip, scaler, capsfilter, appsink.Element); err != nil {
		return nil, fmt.Errorf("gst: link pipeline elements: %w", err)
	}

	return &pipelineElements{
		Pipeline:   pipeline,
		AppSink:    appsink,
		VideoFlip:  flip,
		CapsFilter: capsfilter,
		Source:     source,
	}, nil
}

// flipMethod maps the mirrored flag onto videoflip's "method" enum, where
// 0 is identity and 4 is a horizontal flip.
func flipMethod(mirrored bool) int {
	if mirrored {
		return 4
	}
	return 0
}

func buildCaps(width, height, fps int) string {
	return fmt.Sprintf("video/x-raw,format=BGRA,width=%d,height=%d,framerate=%d/1", width, height, fps)
}

// destroyPipeline sets the pipeline to NULL, releasing resources. Safe to
// call on an already-destroyed or nil pipeline.
func destroyPipeline(elements *pipelineElements) error {
	if elements == nil || elements.Pipeline == nil {
		return nil
	}
	if err := elements.Pipeline.SetState(gst.StateNull); err != nil {
		return fmt.Errorf("gst: set pipeline to NULL: %w", err)
	}
	return nil
}
