package worker

import (
	"context"
	"fmt"
	"log"

	"github.com/hibiken/asynq"

	"github.com/stemstage/api/internal/model"
	"github.com/stemstage/api/internal/taskstore"
	"github.com/stemstage/api/internal/tool"
	ws "github.com/stemstage/api/internal/websocket"
)

// DownloadWorker fetches videos in the background.
type DownloadWorker struct {
	store      taskstore.Store
	hub        *ws.Hub
	downloader *tool.Downloader
	dir        string
}

func NewDownloadWorker(store taskstore.Store, hub *ws.Hub, downloader *tool.Downloader, dir string) *DownloadWorker {
	return &DownloadWorker{store: store, hub: hub, downloader: downloader, dir: dir}
}

func (w *DownloadWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload model.DownloadPayload
	taskID, err := decode(t, &payload)
	if err != nil {
		return err
	}
	r := &reporter{store: w.store, hub: w.hub, taskID: taskID}
	log.Printf("Starting download task %s: %s", taskID, payload.URL)

	r.Progress(ctx, 0, "Starting download...")

	videoPath, err := w.downloader.Download(ctx, payload.URL, w.dir, func(frac float64, message string) {
		r.Progress(ctx, frac, message)
	})
	if err != nil {
		r.Fail(ctx, fmt.Sprintf("Download failed: %v", err))
		return err
	}

	r.Complete(ctx, "Download complete.", map[string]interface{}{
		"video_path": videoPath,
	})
	return nil
}
