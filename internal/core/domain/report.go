package domain

// Report summarizes one generation's pass over a work list.
type Report struct {
	RunID      string   `json:"run_id"`
	Generation int      `json:"generation"`
	Processed  int      `json:"processed"`
	Accepted   int      `json:"accepted"`
	Skipped    int      `json:"skipped"`
	Failed     int      `json:"failed"`
	Merged     bool     `json:"merged"`
	FinalFile  string   `json:"final_file,omitempty"`
	Results    []string `json:"results"`
}

// SuccessRate is accepted over processed, 0 for an empty pass.
func (r *Report) SuccessRate() float64 {
	if r.Processed == 0 {
		return 0
	}
	return float64(r.Accepted) / float64(r.Processed)
}
