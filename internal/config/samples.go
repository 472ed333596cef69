package config

import (
	"path/filepath"
)

// SampleRef identifies one sample directory and the group it belongs to
type SampleRef struct {
	Group    int
	Location string
}

// DefaultSampleGroups returns the in-plane sample runs measured so far, one
// slice per sample group.
func DefaultSampleGroups() [][]string {
	return [][]string{
		{"INPL17/INPL17_5"},
		{"INPL2/INPL2_1", "INPL2/INPL2_2", "INPL2/INPL2_3", "INPL2/INPL2_4", "INPL2/INPL2_5"},
		{"INPL3/INPL3_1", "INPL3/INPL3_2", "INPL3/INPL3_3", "INPL3/INPL3_4", "INPL3/INPL3_5"},
		{"INPL4/INPL4_2", "INPL4/INPL4_3", "INPL4/INPL4_4", "INPL4/INPL4_5"},
		{"INPL9/INPL9_1", "INPL9/INPL9_2", "INPL9/INPL9_3", "INPL9/INPL9_4", "INPL9/INPL9_5"},
		{"INPL10/INPL10_1", "INPL10/INPL10_2", "INPL10/INPL10_3", "INPL10/INPL10_4", "INPL10/INPL10_5"},
		{"INPL11/INPL11_1", "INPL11/INPL11_3", "INPL11/INPL11_4", "INPL11/INPL11_5"},
		{"INPL12/INPL12_1", "INPL12/INPL12_2", "INPL12/INPL12_3", "INPL12/INPL12_4", "INPL12/INPL12_5"},
		{"INPL13/INPL13_1", "INPL13/INPL13_2", "INPL13/INPL13_3", "INPL13/INPL13_4", "INPL13/INPL13_5"},
		{"INPL16/INPL16_1", "INPL16/INPL16_2", "INPL16/INPL16_3", "INPL16/INPL16_4", "INPL16/INPL16_5"},
		{"INPL17/INPL17_1", "INPL17/INPL17_2", "INPL17/INPL17_3", "INPL17/INPL17_4"},
		{"INPL21/INPL21_1", "INPL21/INPL21_2", "INPL21/INPL21_3", "INPL21/INPL21_4", "INPL21/INPL21_5", "INPL21/INPL21_6"},
		{"INPL21_irradiated_correct/INPL21_1", "INPL21_irradiated_correct/INPL21_2", "INPL21_irradiated_correct/INPL21_3", "INPL21_irradiated_correct/INPL21_4"},
	}
}

// SampleRefs flattens the configured groups into sample references with
// locations resolved against Root. Empty groups are skipped but keep their
// index so reports line up with the configuration.
func (s SamplesConfig) SampleRefs() []SampleRef {
	var refs []SampleRef
	for gi, group := range s.Groups {
		for _, loc := range group {
			refs = append(refs, SampleRef{Group: gi, Location: s.ResolveLocation(loc)})
		}
	}
	return refs
}

// ResolveLocation joins a relative sample location onto Root
func (s SamplesConfig) ResolveLocation(location string) string {
	if filepath.IsAbs(location) || s.Root == "" {
		return filepath.Clean(location)
	}
	return filepath.Join(s.Root, location)
}
