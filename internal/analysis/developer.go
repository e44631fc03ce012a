package analysis

import (
	"CoinScope/internal/timeseries"
)

// BuildDeveloper derives the development-activity columns. There is no
// history threshold: the weekly baseline simply stays missing until enough
// rows accumulate, and the activity signal follows it.
func BuildDeveloper(t *timeseries.Table, w Windows) (*timeseries.Table, error) {
	if t.IsEmpty() {
		return t, nil
	}
	cw := &columnWriter{t: t}

	if core, ok := t.Column("Core_Dev_Commits"); ok {
		baseline := timeseries.Mean(core, w.DevBaseline)
		cw.set("Core_Dev_MA_7D", baseline)
		cw.set("Dev_Activity_Signal", timeseries.Div(core, baseline))
	}
	if commits, ok := t.Column("Commit_Count"); ok {
		cw.set("Total_Commits_Acc_144", timeseries.Sum(commits, w.CommitAccum))
	}

	if cw.err != nil {
		return nil, cw.err
	}
	return t, nil
}
