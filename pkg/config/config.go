package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// WorkerConfig tunes the dispatch worker. Values come from
// config.yaml when present, with hard defaults otherwise, so a bare
// container still runs sensibly.
type WorkerConfig struct {
	JobConcurrency    int
	FanoutConcurrency int
	SchedulerInterval time.Duration
	MetricsPort       string
}

func DefaultWorker() WorkerConfig {
	return WorkerConfig{
		JobConcurrency:    5,
		FanoutConcurrency: 64,
		SchedulerInterval: time.Second,
		MetricsPort:       "2113",
	}
}

// LoadWorker reads the worker section from a yaml file. A missing
// file is not an error; defaults apply.
func LoadWorker(path string) (WorkerConfig, error) {
	cfg := DefaultWorker()
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	var file struct {
		Worker struct {
			JobConcurrency    int    `yaml:"job_concurrency"`
			FanoutConcurrency int    `yaml:"fanout_concurrency"`
			SchedulerInterval string `yaml:"scheduler_interval"`
			MetricsPort       string `yaml:"metrics_port"`
		} `yaml:"worker"`
	}
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return cfg, err
	}

	if file.Worker.JobConcurrency > 0 {
		cfg.JobConcurrency = file.Worker.JobConcurrency
	}
	if file.Worker.FanoutConcurrency > 0 {
		cfg.FanoutConcurrency = file.Worker.FanoutConcurrency
	}
	if file.Worker.SchedulerInterval != "" {
		interval, err := time.ParseDuration(file.Worker.SchedulerInterval)
		if err != nil {
			return cfg, fmt.Errorf("scheduler_interval: %w", err)
		}
		cfg.SchedulerInterval = interval
	}
	if file.Worker.MetricsPort != "" {
		cfg.MetricsPort = file.Worker.MetricsPort
	}
	return cfg, nil
}
