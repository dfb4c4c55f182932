package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/stemstage/api/internal/config"
	"github.com/stemstage/api/internal/model"
	"github.com/stemstage/api/internal/stem"
	"github.com/stemstage/api/internal/taskstore"
	"github.com/stemstage/api/internal/tool"
	ws "github.com/stemstage/api/internal/websocket"
)

// ExportWorker renders the offline bounce: gain-mixed, normalized stems
// remuxed against the untouched video stream.
type ExportWorker struct {
	store   taskstore.Store
	hub     *ws.Hub
	remuxer *tool.Remuxer
	dirs    config.DirsConfig
}

func NewExportWorker(store taskstore.Store, hub *ws.Hub, remuxer *tool.Remuxer, dirs config.DirsConfig) *ExportWorker {
	return &ExportWorker{store: store, hub: hub, remuxer: remuxer, dirs: dirs}
}

func (w *ExportWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload model.ExportPayload
	taskID, err := decode(t, &payload)
	if err != nil {
		return err
	}
	r := &reporter{store: w.store, hub: w.hub, taskID: taskID}
	log.Printf("Starting export task %s: %s", taskID, payload.OutputFilename)

	r.Progress(ctx, 0, "Starting mix export...")

	separatedDir := filepath.Dir(payload.MultichannelPath)
	manifest, err := stem.LoadManifest(separatedDir)
	if errors.Is(err, stem.ErrManifestMissing) {
		// Degraded mode: no persisted index. Re-discover in vocabulary
		// order — never alphabetical.
		log.Printf("Export task %s: no %s in %s, re-deriving stem order (degraded)",
			taskID, stem.ManifestFilename, separatedDir)
		order, derr := stem.DiscoverStems(separatedDir)
		if derr != nil {
			r.Fail(ctx, fmt.Sprintf("Mix export failed: %v", derr))
			return derr
		}
		manifest = &stem.Manifest{StemOrder: order}
		err = nil
	}
	if err != nil {
		r.Fail(ctx, fmt.Sprintf("Mix export failed: %v", err))
		return err
	}

	r.Progress(ctx, 0.2, "Loading stems...")
	set, err := stem.LoadSet(separatedDir, manifest)
	if err != nil {
		r.Fail(ctx, fmt.Sprintf("Mix export failed: %v", err))
		return err
	}

	r.Progress(ctx, 0.4, "Mixing stems...")
	mixed, channels, err := stem.Mixdown(set, stem.GainState(payload.Gains))
	if err != nil {
		r.Fail(ctx, fmt.Sprintf("Mix export failed: %v", err))
		return err
	}

	r.Progress(ctx, 0.6, "Writing mixed audio...")
	tempPath := filepath.Join(w.dirs.Mixes, fmt.Sprintf("temp_mixed_audio_%s.wav", uuid.New().String()))
	if err := stem.WriteWAV(tempPath, mixed, set.SampleRate, channels, 24); err != nil {
		r.Fail(ctx, fmt.Sprintf("Mix export failed: %v", err))
		return err
	}
	defer os.Remove(tempPath)

	r.Progress(ctx, 0.8, "Remuxing video with mixed audio...")
	outputPath := filepath.Join(w.dirs.Mixes, payload.OutputFilename)
	if err := w.remuxer.Remux(ctx, payload.VideoPath, tempPath, outputPath, ""); err != nil {
		r.Fail(ctx, fmt.Sprintf("FFmpeg error during mix export: %v", err))
		return err
	}

	r.Complete(ctx, "Mix export complete.", map[string]interface{}{
		"output_path": outputPath,
	})
	return nil
}
