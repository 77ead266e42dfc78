package tui

import "time"

// Option configures a Model.
type Option func(*Model)

// WithKeyConfig applies key overrides.
func WithKeyConfig(cfg KeyConfig) Option {
	return func(m *Model) {
		m.keys.applyConfig(cfg)
	}
}

// WithDateFormat sets the layout for "Created:" captions.
func WithDateFormat(layout string) Option {
	return func(m *Model) {
		if layout != "" {
			m.timeOpts.DateFormat = layout
		}
	}
}

// WithRelativeTimes appends humanized ages to creation captions.
func WithRelativeTimes(enabled bool) Option {
	return func(m *Model) {
		m.timeOpts.Relative = enabled
	}
}

// WithClock overrides the clock used for relative times.
func WithClock(now func() time.Time) Option {
	return func(m *Model) {
		if now != nil {
			m.timeOpts.Now = now
		}
	}
}

// WithClipboard overrides how task ids are copied.
func WithClipboard(write func(string) error) Option {
	return func(m *Model) {
		if write != nil {
			m.copyText = write
		}
	}
}
