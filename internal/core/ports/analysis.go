package ports

// AnalysisQueue accepts uploaded audio for background inspection. Submit
// never blocks and reports whether the job was queued.
type AnalysisQueue interface {
	Submit(songID, mediaKey string) bool
}
