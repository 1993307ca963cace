package app

import (
	"strings"
	"time"

	"vacancywatch/internal/audit"
	"vacancywatch/internal/config"
	"vacancywatch/internal/usajobs"
	logx "vacancywatch/pkg/logx"
)

const defaultSubscribersPath = "./data/user_data.json"

func mapLogConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

func mapWatchConfig(cfg *config.Config, creds config.Credentials) (usajobs.Config, usajobs.Search, time.Duration, error) {
	interval, err := config.ParseDurationOrDefault("watch.interval", cfg.Watch.Interval, 60*time.Second)
	if err != nil {
		return usajobs.Config{}, usajobs.Search{}, 0, err
	}
	reqTimeout, err := config.ParseDurationOrDefault("watch.request_timeout", cfg.Watch.RequestTimeout, 10*time.Second)
	if err != nil {
		return usajobs.Config{}, usajobs.Search{}, 0, err
	}

	probeCfg := usajobs.Config{
		AuthorizationKey: creds.USAJobsAuthKey,
		UserAgent:        creds.USAJobsUserAgent,
		BaseURL:          cfg.Watch.BaseURL,
		RequestTimeout:   reqTimeout,
	}
	query := usajobs.Search{
		Keyword:        cfg.Watch.Keyword,
		LocationName:   cfg.Watch.LocationName,
		Radius:         cfg.Watch.Radius,
		PayGradeLow:    cfg.Watch.PayGradeLow,
		ResultsPerPage: cfg.Watch.ResultsPerPage,
	}
	return probeCfg, query, interval, nil
}

func subscribersPath(cfg *config.Config) string {
	if p := strings.TrimSpace(cfg.Subscribers.Path); p != "" {
		return p
	}
	return defaultSubscribersPath
}

func openAudit(cfg *config.Config, log logx.Logger) (audit.Log, error) {
	if cfg.Audit == nil {
		return nil, nil
	}
	busy, err := config.ParseDurationField("audit.busy_timeout", cfg.Audit.BusyTimeout)
	if err != nil {
		return nil, err
	}
	return audit.Open(audit.Config{
		Driver:      cfg.Audit.Driver,
		Path:        cfg.Audit.Path,
		BusyTimeout: busy,
	}, log)
}
