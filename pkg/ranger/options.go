package ranger

// WithLogger sets the logger used to report protocol violations
func WithLogger(logger Logger) func(*Ranger) {
	return func(r *Ranger) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithConfig sets the initial configuration
func WithConfig(cfg Config) func(*Ranger) {
	return func(r *Ranger) {
		r.setConfig(cfg)
		r.filter.Reset()
	}
}
