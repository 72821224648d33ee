package config

import "time"

// OffloadConfig configures the bounded worker pool used for parse and
// validate tasks.
type OffloadConfig struct {
	// MaxWorkers caps the pool size. Zero means "size to available CPUs".
	MaxWorkers int `yaml:"max_workers"`

	// TaskTimeout bounds how long a submitted task may run before the
	// executor falls back to a local run.
	TaskTimeout string `yaml:"task_timeout"`

	// JobSizeCap is the payload size in characters above which tasks run
	// locally without ever being submitted to the pool.
	JobSizeCap int `yaml:"job_size_cap"`

	// MaxRetries bounds local retries after a timeout. The pipeline
	// assumes exactly one.
	MaxRetries int `yaml:"max_retries"`

	// QueueSize bounds pending submissions.
	QueueSize int `yaml:"queue_size"`
}

func defaultOffloadConfig() OffloadConfig {
	return OffloadConfig{
		MaxWorkers:  0,
		TaskTimeout: "10s",
		JobSizeCap:  200_000,
		MaxRetries:  1,
		QueueSize:   32,
	}
}

// TaskTimeoutDuration returns the parsed per-task timeout.
func (o OffloadConfig) TaskTimeoutDuration() time.Duration {
	return parseDuration(o.TaskTimeout, 10*time.Second)
}
