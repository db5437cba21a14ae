package types

// GenerateRequest is the /generate body. Defaults mirror the front-end:
// initialize with NewGenerateRequest before binding so missing fields keep
// them.
type GenerateRequest struct {
	ID            string  `json:"id,omitempty"`
	Prompt        string  `json:"prompt"`
	Height        int     `json:"height"`
	Width         int     `json:"width"`
	Steps         int     `json:"steps"`
	GuidanceScale float64 `json:"guidance_scale"`
	Seed          int64   `json:"seed"`
}

func NewGenerateRequest() GenerateRequest {
	return GenerateRequest{
		Height:        1024,
		Width:         1024,
		Steps:         8,
		GuidanceScale: 0.0,
		Seed:          -1,
	}
}

// SettingsRequest is the /settings/model-path body.
type SettingsRequest struct {
	CacheDir   string `json:"cache_dir"`
	CPUOffload bool   `json:"cpu_offload"`
}
