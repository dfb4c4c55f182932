package worker

import (
	"context"
	"fmt"
	"log"

	"github.com/hibiken/asynq"

	"github.com/stemstage/api/internal/model"
	"github.com/stemstage/api/internal/stem"
	"github.com/stemstage/api/internal/taskstore"
	"github.com/stemstage/api/internal/tool"
	ws "github.com/stemstage/api/internal/websocket"
)

// MergeWorker assembles separated stems into a multichannel container.
type MergeWorker struct {
	store      taskstore.Store
	hub        *ws.Hub
	remuxer    *tool.Remuxer
	silenceRMS float64
}

func NewMergeWorker(store taskstore.Store, hub *ws.Hub, remuxer *tool.Remuxer, silenceRMS float64) *MergeWorker {
	return &MergeWorker{store: store, hub: hub, remuxer: remuxer, silenceRMS: silenceRMS}
}

func (w *MergeWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload model.MergePayload
	taskID, err := decode(t, &payload)
	if err != nil {
		return err
	}
	r := &reporter{store: w.store, hub: w.hub, taskID: taskID}
	log.Printf("Starting merge task %s: %s", taskID, payload.SeparatedDir)

	r.Progress(ctx, 0, "Merging stems...")

	result, err := assembleScaled(ctx, r, w.remuxer, payload.SeparatedDir, w.silenceRMS, 0, 0.9)
	if err != nil {
		r.Fail(ctx, fmt.Sprintf("Stem merging failed: %v", err))
		return err
	}

	r.Complete(ctx, "Stems merged successfully.", map[string]interface{}{
		"multichannel_wav_path": result.MultichannelPath,
		"stem_order":            result.Manifest.StemOrder,
		"channel_layout":        result.Manifest.ChannelLayout,
	})
	return nil
}

// assembleScaled runs the stem assembler, mapping its progress into the
// [lo, hi] range of the surrounding task, and verifies the written container
// actually carries the expected channel count and a valid layout tag.
func assembleScaled(ctx context.Context, r *reporter, remuxer *tool.Remuxer, dir string, silenceRMS, lo, hi float64) (*stem.AssemblyResult, error) {
	assembler := &stem.Assembler{
		SilenceRMS: silenceRMS,
		Progress: func(frac float64, message string) {
			r.Progress(ctx, lo+frac*(hi-lo), message)
		},
	}

	result, err := assembler.Assemble(dir)
	if err != nil {
		return nil, err
	}

	r.Progress(ctx, hi, "Verifying multichannel layout...")
	channels, layout, err := remuxer.ProbeLayout(ctx, result.MultichannelPath)
	if err != nil {
		return nil, err
	}
	if channels != result.Manifest.ChannelCount {
		return nil, fmt.Errorf("expected %d channels but found %d", result.Manifest.ChannelCount, channels)
	}
	// ffprobe may name the layout differently (e.g. "5.0(side)"); the
	// manifest keeps our canonical tag, the probe only proves one exists.
	_ = layout

	return result, nil
}
