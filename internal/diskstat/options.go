package diskstat

import "go.uber.org/zap"

// VerboseDepth is the number of recursion levels for which verbose logging reports
// each measured directory.
const VerboseDepth = 3

// DefaultNameDepth is the default depth of the initial name-tree build.
const DefaultNameDepth = 2

// Config is the resolved run configuration.
type Config struct {
	// Count enables file and directory counting.
	Count bool
	// Verbose logs every directory measured within the first VerboseDepth levels.
	Verbose bool
	// Names requests a name tree alongside the statistics.
	Names bool
	// NameDepth is the depth of the initial name-tree build (at least 1).
	NameDepth int
	// SubFolders embeds child statistics in nested mode results.
	SubFolders bool
	// Concurrency caps in-flight filesystem operations (0 = DefaultConcurrency).
	Concurrency int
}

// Option customizes the components of this package.
type Option func(*settings)

type settings struct {
	log   *zap.Logger
	style PathStyle
}

func newSettings(opts []Option) settings {
	s := settings{log: zap.NewNop(), style: NativeStyle()}

	for _, opt := range opts {
		opt(&s)
	}

	return s
}

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(log *zap.Logger) Option {
	return func(s *settings) {
		if log != nil {
			s.log = log
		}
	}
}

// WithPathStyle sets the separator convention used to join paths and derive names.
func WithPathStyle(style PathStyle) Option {
	return func(s *settings) {
		s.style = style
	}
}
