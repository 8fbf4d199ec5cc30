package main

import (
	"authenta/internal/app"
	"authenta/internal/config"
	"authenta/internal/dto"
	"authenta/internal/model"
	"authenta/internal/repository"
	"authenta/internal/service/media"
	"authenta/internal/service/visualization"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"
)

type command func(ctx context.Context, a *app.App, args []string) error

var commands = map[string]command{
	"process": processCommand,
	"status":  statusCommand,
	"wait":    waitCommand,
	"resume":  resumeCommand,
	"list":    listCommand,
	"delete":  deleteCommand,
	"heatmap": heatmapCommand,
	"bbox":    bboxCommand,
	"history": historyCommand,
}

var errUsage = errors.New("invalid arguments")

func exitCode(err error) int {
	var timeoutErr *media.TimeoutError
	switch {
	case errors.Is(err, errUsage), errors.Is(err, flag.ErrHelp):
		return 2
	case errors.Is(err, config.ErrMissingCredentials):
		return 3
	case errors.As(err, &timeoutErr):
		return 4
	}
	return 1
}

func pollFlags(fs *flag.FlagSet) (*time.Duration, *time.Duration) {
	interval := fs.Duration("interval", 0, "poll interval (0 = configured default)")
	timeout := fs.Duration("timeout", 0, "processing timeout (0 = configured default)")
	return interval, timeout
}

// parse handles "-h" and checks the number of positional arguments.
func parse(fs *flag.FlagSet, args []string, min, max int) error {
	if err := fs.Parse(args); err != nil {
		return err
	}
	if n := fs.NArg(); n < min || n > max {
		fs.Usage()
		return fmt.Errorf("%w: %s expects %d..%d arguments, got %d", errUsage, fs.Name(), min, max, n)
	}
	return nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func processCommand(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("process", flag.ContinueOnError)
	modelType := fs.String("model", model.ModelDeepfake, "model type: DF-1, AC-1 or FD-1")
	src := fs.String("src", "", "source video for bounding boxes (default: the uploaded file)")
	outDir := fs.String("out", a.Config().OutputDirectory, "output directory for artefacts")
	interval, timeout := pollFlags(fs)
	if err := parse(fs, args, 1, 1); err != nil {
		return err
	}

	filePath := fs.Arg(0)
	record, err := a.Orchestrator().UploadProcessAndWait(ctx, filePath, *modelType, *interval, *timeout)
	if err != nil {
		return err
	}

	if err := printJSON(record); err != nil {
		return err
	}
	if !strings.EqualFold(record.Status, model.StatusProcessed) {
		return fmt.Errorf("media %s finished with status %s", record.MID, record.NormalizedStatus())
	}

	base := strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
	view := visualization.ToView(record)

	var artefacts *visualization.Artefacts
	switch {
	case model.IsImageModel(record.ModelType):
		artefacts, err = a.Renderer().SaveImageArtefacts(ctx, view, *outDir, base)
	case model.IsVideoModel(record.ModelType):
		source := *src
		if source == "" {
			source = filePath
		}
		artefacts, err = a.Renderer().SaveVideoArtefacts(ctx, view, source, *outDir, base)
	default:
		a.Logger().Info("Model %s has no visual artefacts", record.ModelType)
		return nil
	}

	if artefacts != nil {
		a.RecordArtefacts(record.MID, artefacts)
		printArtefacts(artefacts)
	}
	return err
}

func printArtefacts(artefacts *visualization.Artefacts) {
	for kind, paths := range artefacts.Paths() {
		for _, path := range paths {
			fmt.Printf("%s\t%s\n", kind, path)
		}
	}
	if artefacts.HeatmapVideos != nil {
		for _, failure := range artefacts.HeatmapVideos.Failures {
			fmt.Fprintf(os.Stderr, "skipped participant %d: %s\n", failure.Index, failure.Reason)
		}
	}
}

func statusCommand(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	if err := parse(fs, args, 1, 1); err != nil {
		return err
	}

	record, err := a.Orchestrator().GetMedia(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	return printJSON(record)
}

func waitCommand(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("wait", flag.ContinueOnError)
	interval, timeout := pollFlags(fs)
	if err := parse(fs, args, 1, 1); err != nil {
		return err
	}

	record, err := a.Orchestrator().WaitForTerminal(ctx, fs.Arg(0), *interval, *timeout)
	if err != nil {
		return err
	}
	return printJSON(record)
}

func resumeCommand(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("resume", flag.ContinueOnError)
	interval, timeout := pollFlags(fs)
	if err := parse(fs, args, 1, 2); err != nil {
		return err
	}

	record, err := a.Orchestrator().ResumeUpload(ctx, fs.Arg(0), fs.Arg(1), *interval, *timeout)
	if err != nil {
		return err
	}
	return printJSON(record)
}

func listCommand(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	status := fs.String("status", "", "filter by status")
	modelType := fs.String("model", "", "filter by model type")
	mediaType := fs.String("type", "", "filter by media type (Image, Video)")
	page := fs.Int("page", 0, "page number")
	pageSize := fs.Int("page-size", 0, "records per page")
	if err := parse(fs, args, 0, 0); err != nil {
		return err
	}

	list, err := a.Orchestrator().ListMediaPage(ctx, &dto.MediaFilters{
		Status:    *status,
		ModelType: *modelType,
		Type:      *mediaType,
		Page:      *page,
		PageSize:  *pageSize,
	})
	if err != nil {
		return err
	}
	return printJSON(list)
}

func deleteCommand(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	if err := parse(fs, args, 1, 1); err != nil {
		return err
	}
	return a.Orchestrator().DeleteMedia(ctx, fs.Arg(0))
}

func heatmapCommand(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("heatmap", flag.ContinueOnError)
	out := fs.String("out", "", "output file for images, output directory for videos")
	modelType := fs.String("model", "", "force image (AC-) or video (DF-) handling")
	if err := parse(fs, args, 1, 1); err != nil {
		return err
	}

	mid := fs.Arg(0)
	record, err := a.Orchestrator().GetMedia(ctx, mid)
	if err != nil {
		return err
	}

	forced := *modelType
	if forced == "" {
		forced = record.ModelType
	}
	view := visualization.ToView(record)

	outPath := *out
	if outPath == "" {
		outPath = a.Config().OutputDirectory
		if view.Kind == model.KindImage || model.IsImageModel(forced) {
			outPath = filepath.Join(outPath, mid+"_heatmap.jpg")
		}
	}

	result, err := a.Renderer().SaveHeatmap(ctx, view, outPath, forced)
	if err != nil {
		return err
	}

	artefacts := &visualization.Artefacts{}
	switch r := result.(type) {
	case *visualization.ImageResult:
		artefacts.HeatmapImage = r.Path
	case *visualization.VideoResults:
		artefacts.HeatmapVideos = r
	}
	a.RecordArtefacts(mid, artefacts)
	printArtefacts(artefacts)
	return nil
}

func bboxCommand(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("bbox", flag.ContinueOnError)
	out := fs.String("out", "", "output video path")
	if err := parse(fs, args, 2, 2); err != nil {
		return err
	}

	mid, src := fs.Arg(0), fs.Arg(1)
	record, err := a.Orchestrator().GetMedia(ctx, mid)
	if err != nil {
		return err
	}

	outPath := *out
	if outPath == "" {
		outPath = filepath.Join(a.Config().OutputDirectory, mid+"_bbox.mp4")
	}

	path, err := a.Renderer().SaveBoundingBoxVideo(ctx, visualization.ToView(record), src, outPath)
	if err != nil {
		return err
	}

	artefacts := &visualization.Artefacts{BoundingBoxVideo: path}
	a.RecordArtefacts(mid, artefacts)
	printArtefacts(artefacts)
	return nil
}

func historyCommand(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	status := fs.String("status", "", "filter by status")
	modelType := fs.String("model", "", "filter by model type")
	limit := fs.Int("limit", 20, "maximum number of records")
	if err := parse(fs, args, 0, 0); err != nil {
		return err
	}

	entries, err := a.MediaRepo().GetAll(&repository.MediaFilter{
		Status:    *status,
		ModelType: *modelType,
		Limit:     *limit,
	})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MID\tNAME\tMODEL\tSTATUS\tUPDATED\tARTIFACTS")
	for _, entry := range entries {
		artifacts, err := a.ArtifactRepo().GetByMID(entry.Record.MID)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\n",
			entry.Record.MID,
			entry.Record.Name,
			entry.Record.ModelType,
			entry.Record.NormalizedStatus(),
			entry.UpdatedAt.Local().Format(time.DateTime),
			len(artifacts),
		)
	}
	return w.Flush()
}
