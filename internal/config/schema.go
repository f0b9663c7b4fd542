package config

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

// schema constrains the encoded configuration. Durations are encoded in
// milliseconds.
const schema = `
listen: string & =~"^[^ ]*:[0-9]+$"
mode:   "sign_in" | "sign_out"

storage: {
	driver: "sqlite" | "json" | "memory"
	path:   string
	if driver != "memory" {
		path: !=""
	}
}

reader: {
	driver: "none" | "simulated"
	name:   string
}

detector: {
	interval_ms:      int & >=10 & <=60000
	read_attempts:    int & >=1 & <=10
	retry_delay_ms:   int & >=0 & <=5000
	error_backoff_ms: int & >=0 & <=60000
	auto_start:       bool
}

notify: max_pending: int & >=0

sync: {
	url:         string
	token:       string
	timeout_ms:  int & >0
	interval_ms: int & >=0
	if url != "" {
		url: =~"^https?://"
	}
}
`

// Validate checks cfg against the schema.
func Validate(cfg Config) error {
	ctx := cuecontext.New()

	s := ctx.CompileString(schema, cue.Filename("rollcall.cue"))
	if err := s.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}

	v := s.Unify(ctx.Encode(encode(cfg)))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid config:\n%s", cueerrors.Details(err, nil))
	}
	return nil
}

func encode(cfg Config) map[string]any {
	ms := func(d Duration) int64 { return d.Milliseconds() }
	return map[string]any{
		"listen": cfg.Listen,
		"mode":   cfg.Mode,
		"storage": map[string]any{
			"driver": cfg.Storage.Driver,
			"path":   cfg.Storage.Path,
		},
		"reader": map[string]any{
			"driver": cfg.Reader.Driver,
			"name":   cfg.Reader.Name,
		},
		"detector": map[string]any{
			"interval_ms":      ms(cfg.Detector.Interval),
			"read_attempts":    cfg.Detector.ReadAttempts,
			"retry_delay_ms":   ms(cfg.Detector.RetryDelay),
			"error_backoff_ms": ms(cfg.Detector.ErrorBackoff),
			"auto_start":       cfg.Detector.AutoStart,
		},
		"notify": map[string]any{
			"max_pending": cfg.Notify.MaxPending,
		},
		"sync": map[string]any{
			"url":         cfg.Sync.URL,
			"token":       cfg.Sync.Token,
			"timeout_ms":  ms(cfg.Sync.Timeout),
			"interval_ms": ms(cfg.Sync.Interval),
		},
	}
}
