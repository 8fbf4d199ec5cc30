package visualization

import "authenta/internal/model"

// ToView reduces a status document to what the renderers need. It performs
// no I/O and never fails; a record with neither an image heatmap nor
// participants yields KindNone and the caller decides whether that is an error.
func ToView(record *model.MediaRecord) model.VisualizationView {
	view := model.VisualizationView{Kind: model.KindNone}
	if record == nil {
		return view
	}

	view.ResultURL = record.ResultURL

	switch {
	case model.IsImageModel(record.ModelType) && record.HeatmapURL != "":
		view.Kind = model.KindImage
		view.HeatmapURL = record.HeatmapURL
	case len(record.Participants) > 0:
		view.Kind = model.KindVideo
		view.Participants = make([]model.ParticipantView, len(record.Participants))
		for i, p := range record.Participants {
			view.Participants[i] = model.ParticipantView{Index: i, HeatmapURL: p.HeatmapURL}
		}
	}

	return view
}
