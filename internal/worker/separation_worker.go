package worker

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/stemstage/api/internal/config"
	"github.com/stemstage/api/internal/model"
	"github.com/stemstage/api/internal/taskstore"
	"github.com/stemstage/api/internal/tool"
	ws "github.com/stemstage/api/internal/websocket"
)

// SeparationWorker runs the external separation model and then assembles and
// remuxes the result in one pass, so a finished separation is immediately
// playable.
type SeparationWorker struct {
	store      taskstore.Store
	hub        *ws.Hub
	separator  *tool.Separator
	remuxer    *tool.Remuxer
	dirs       config.DirsConfig
	silenceRMS float64
}

func NewSeparationWorker(store taskstore.Store, hub *ws.Hub, separator *tool.Separator, remuxer *tool.Remuxer, dirs config.DirsConfig, silenceRMS float64) *SeparationWorker {
	return &SeparationWorker{
		store:      store,
		hub:        hub,
		separator:  separator,
		remuxer:    remuxer,
		dirs:       dirs,
		silenceRMS: silenceRMS,
	}
}

func (w *SeparationWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload model.SeparatePayload
	taskID, err := decode(t, &payload)
	if err != nil {
		return err
	}
	r := &reporter{store: w.store, hub: w.hub, taskID: taskID}
	log.Printf("Starting separation task %s: %s (%s)", taskID, payload.VideoPath, payload.Model)

	r.Progress(ctx, 0, "Starting separation...")

	// Each task separates into its own uuid-suffixed directory so
	// concurrent tasks never collide on files.
	base := strings.TrimSuffix(filepath.Base(payload.VideoPath), filepath.Ext(payload.VideoPath))
	outDir := filepath.Join(w.dirs.Separated, fmt.Sprintf("%s_%s", base, uuid.New().String()))

	stemDir, err := w.separator.Separate(ctx, payload.VideoPath, string(payload.Model), outDir)
	if err != nil {
		r.Fail(ctx, fmt.Sprintf("Separation failed: %v", err))
		return err
	}

	r.Progress(ctx, 0.7, "Separation complete. Assembling stems...")

	result, err := assembleScaled(ctx, r, w.remuxer, stemDir, w.silenceRMS, 0.7, 0.9)
	if err != nil {
		r.Fail(ctx, fmt.Sprintf("Separation failed: %v", err))
		return err
	}

	r.Progress(ctx, 0.9, "Remuxing stems into MP4...")
	remuxedPath := filepath.Join(w.dirs.Remuxed, base+"_remuxed.mp4")
	title := fmt.Sprintf("Stem mix (%s)", result.Manifest.ChannelLayout)
	if err := w.remuxer.Remux(ctx, payload.VideoPath, result.MultichannelPath, remuxedPath, title); err != nil {
		r.Fail(ctx, fmt.Sprintf("Auto-remux failed: %v", err))
		return err
	}

	r.Complete(ctx, "Separation and remux complete.", map[string]interface{}{
		"separated_dir":         stemDir,
		"model":                 string(payload.Model),
		"remuxed_path":          remuxedPath,
		"stem_order":            result.Manifest.StemOrder,
		"channel_layout":        result.Manifest.ChannelLayout,
		"multichannel_wav_path": result.MultichannelPath,
	})
	return nil
}
