package llm

// Options are the sampling parameters sent with every generation request.
type Options struct {
	NumCtx        int     `json:"num_ctx"`
	NumPredict    int     `json:"num_predict"`
	Temperature   float64 `json:"temperature"`
	TopK          int     `json:"top_k"`
	TopP          float64 `json:"top_p"`
	RepeatPenalty float64 `json:"repeat_penalty"`
}

// DefaultOptions keeps responses short and fast on a local model.
func DefaultOptions() Options {
	return Options{
		NumCtx:        512,
		NumPredict:    256,
		Temperature:   0.7,
		TopK:          40,
		TopP:          0.9,
		RepeatPenalty: 1.1,
	}
}

// Overrides is a partial Options. Nil fields keep the base value.
type Overrides struct {
	NumCtx        *int
	NumPredict    *int
	Temperature   *float64
	TopK          *int
	TopP          *float64
	RepeatPenalty *float64
}

// Merge returns o with every non-nil field of ov applied.
func (o Options) Merge(ov Overrides) Options {
	if ov.NumCtx != nil {
		o.NumCtx = *ov.NumCtx
	}
	if ov.NumPredict != nil {
		o.NumPredict = *ov.NumPredict
	}
	if ov.Temperature != nil {
		o.Temperature = *ov.Temperature
	}
	if ov.TopK != nil {
		o.TopK = *ov.TopK
	}
	if ov.TopP != nil {
		o.TopP = *ov.TopP
	}
	if ov.RepeatPenalty != nil {
		o.RepeatPenalty = *ov.RepeatPenalty
	}
	return o
}

// Int returns a pointer to v for use in Overrides.
func Int(v int) *int { return &v }

// Float returns a pointer to v for use in Overrides.
func Float(v float64) *float64 { return &v }
